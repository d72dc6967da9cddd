package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindTraversalEntry, "traversal"},
		{KindRead, "read"},
		{KindParse, "parse"},
		{KindWrite, "write"},
		{ErrorKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestFileErrorMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         *FileError
		wantContain []string
	}{
		{
			name:        "with cause",
			err:         NewFileError(KindParse, "data/a.json", errors.New("invalid character 'x'")),
			wantContain: []string{"parse error", "invalid character 'x'", "data/a.json"},
		},
		{
			name:        "without cause",
			err:         NewFileError(KindWrite, "b.json", nil),
			wantContain: []string{"write error", "b.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.wantContain {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want to contain %q", msg, want)
				}
			}
			if !strings.HasSuffix(msg, tt.err.Path) {
				t.Errorf("Error() = %q, want path %q at the end", msg, tt.err.Path)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	readErr := NewFileError(KindRead, "a.json", errors.New("gone"))
	wrapped := fmt.Errorf("processing: %w", readErr)

	if !IsKind(readErr, KindRead) {
		t.Error("expected IsKind(readErr, KindRead) to be true")
	}
	if !IsKind(wrapped, KindRead) {
		t.Error("expected IsKind to see through wrapping")
	}
	if IsKind(readErr, KindParse) {
		t.Error("expected IsKind(readErr, KindParse) to be false")
	}
	if IsKind(errors.New("plain"), KindRead) {
		t.Error("expected plain errors not to match")
	}
	if IsKind(nil, KindRead) {
		t.Error("expected nil not to match")
	}
}
