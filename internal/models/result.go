package models

import "time"

// Outcome status constants
const (
	StatusRewritten = "REWRITTEN" // Content normalized and written back
	StatusUnchanged = "UNCHANGED" // Content already normalized, nothing written
	StatusFailed    = "FAILED"    // Read, parse or write failed
)

// FileOutcome represents the result of processing a single candidate file
type FileOutcome struct {
	Path         string        // Candidate path as produced by traversal
	Err          *FileError    // Non-nil when processing failed
	Changed      bool          // True when new bytes were written
	BytesIn      int64         // Size of the file as read
	BytesOut     int64         // Size of the serialized output
	DigestBefore string        // BLAKE3 of the bytes read (only when digests are enabled)
	DigestAfter  string        // BLAKE3 of the bytes produced (only when digests are enabled)
	Duration     time.Duration // Time spent on this file
}

// Success creates a successful outcome for path.
func Success(path string) FileOutcome {
	return FileOutcome{Path: path}
}

// Failure creates a failed outcome carrying a FileError.
func Failure(path string, kind ErrorKind, err error) FileOutcome {
	return FileOutcome{
		Path: path,
		Err:  NewFileError(kind, path, err),
	}
}

// Failed reports whether processing the file failed.
func (o FileOutcome) Failed() bool {
	return o.Err != nil
}

// Status returns the outcome status: "REWRITTEN", "UNCHANGED" or "FAILED".
func (o FileOutcome) Status() string {
	switch {
	case o.Err != nil:
		return StatusFailed
	case o.Changed:
		return StatusRewritten
	default:
		return StatusUnchanged
	}
}

// RunSummary represents the aggregate result of a run
type RunSummary struct {
	Candidates int           // Number of candidate files seen
	Rewritten  int           // Files whose content was replaced
	Unchanged  int           // Files already normalized
	Failed     int           // Files that failed
	BytesIn    int64         // Total bytes read from successfully processed files
	BytesOut   int64         // Total bytes produced for successfully processed files
	Duration   time.Duration // Total run time
	Failures   []FileOutcome // Details of failed files
}

// Add folds one outcome into the summary.
func (s *RunSummary) Add(o FileOutcome) {
	s.Candidates++
	switch {
	case o.Failed():
		s.Failed++
		s.Failures = append(s.Failures, o)
		return
	case o.Changed:
		s.Rewritten++
	default:
		s.Unchanged++
	}
	s.BytesIn += o.BytesIn
	s.BytesOut += o.BytesOut
}

// Succeeded returns the number of files processed without error.
func (s RunSummary) Succeeded() int {
	return s.Rewritten + s.Unchanged
}
