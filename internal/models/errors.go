package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies the pipeline step a file error came from.
type ErrorKind int

const (
	// KindTraversalEntry is a directory entry that could not be read during the walk.
	KindTraversalEntry ErrorKind = iota
	// KindRead is a candidate file that could not be opened or read.
	KindRead
	// KindParse is file content that is not valid JSON after optional BOM stripping.
	KindParse
	// KindWrite is serialized content that could not be written back.
	KindWrite
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindTraversalEntry:
		return "traversal"
	case KindRead:
		return "read"
	case KindParse:
		return "parse"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// FileError is a failure confined to a single path.
type FileError struct {
	Kind ErrorKind // Step that failed
	Path string    // Offending path
	Err  error     // Underlying error
}

// NewFileError creates a FileError for the given kind and path.
func NewFileError(kind ErrorKind, path string, err error) *FileError {
	return &FileError{
		Kind: kind,
		Path: path,
		Err:  err,
	}
}

// Error implements the error interface for FileError.
// Format: "<kind> error: <cause> <path>"
func (e *FileError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s error", e.Kind))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	sb.WriteString(" ")
	sb.WriteString(e.Path)
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *FileError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is or wraps a FileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	var fe *FileError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == kind
}
