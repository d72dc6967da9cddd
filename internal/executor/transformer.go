// Package executor runs the normalization pipeline: it pulls candidate files
// from the traverser, rewrites each one and reports every outcome.
package executor

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/harrison/pitufo/internal/filelock"
	"github.com/harrison/pitufo/internal/models"
	"github.com/harrison/pitufo/internal/parser"
	"github.com/zeebo/blake3"
)

// TransformOptions controls how a single file is rewritten.
type TransformOptions struct {
	Minify   bool // compact output instead of indented
	StripBOM bool // drop a leading byte-order marker before parsing
	Atomic   bool // replace through temp file and rename instead of truncating
	Digest   bool // record BLAKE3 digests of the content before and after
}

// Transformer reads, normalizes and writes back one file at a time.
// It holds no per-file state and is safe for concurrent use.
type Transformer struct {
	opts  TransformOptions
	style parser.Style
	write func(path string, data []byte) error
}

// NewTransformer creates a Transformer for the given options.
func NewTransformer(opts TransformOptions) *Transformer {
	write := filelock.WriteInPlace
	if opts.Atomic {
		write = filelock.AtomicWrite
	}
	return &Transformer{
		opts:  opts,
		style: parser.StyleFor(opts.Minify),
		write: write,
	}
}

// Process normalizes the file at path and returns its outcome.
// A failure never leaves a partially parsed file behind: content is only
// written after it has been parsed and serialized completely.
func (t *Transformer) Process(path string) models.FileOutcome {
	start := time.Now()
	outcome := t.process(path)
	outcome.Duration = time.Since(start)
	return outcome
}

func (t *Transformer) process(path string) models.FileOutcome {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Failure(path, models.KindRead, unwrapPathError(err))
	}

	content := raw
	if t.opts.StripBOM {
		content, _ = parser.StripBOM(raw)
	}

	doc, err := parser.Parse(content)
	if err != nil {
		return models.Failure(path, models.KindParse, err)
	}

	out, err := parser.Encode(doc, t.style)
	if err != nil {
		return models.Failure(path, models.KindParse, fmt.Errorf("re-encode: %w", err))
	}

	outcome := models.Success(path)
	outcome.BytesIn = int64(len(raw))
	outcome.BytesOut = int64(len(out))
	if t.opts.Digest {
		outcome.DigestBefore = digest(raw)
		outcome.DigestAfter = digest(out)
	}

	if bytes.Equal(raw, out) {
		return outcome
	}

	if err := t.write(path, out); err != nil {
		return models.Failure(path, models.KindWrite, err)
	}
	outcome.Changed = true
	return outcome
}

// digest returns the hex BLAKE3-256 of data.
func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// unwrapPathError drops the *os.PathError wrapper; FileError already carries the path.
func unwrapPathError(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return fmt.Errorf("%s: %w", pe.Op, pe.Err)
	}
	return err
}
