package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"

	"github.com/harrison/pitufo/internal/models"
)

// ErrSymlinkLoop is reported for a followed link that leads to one of its own ancestors.
var ErrSymlinkLoop = errors.New("symlink loop detected")

// WalkOptions configures traversal
type WalkOptions struct {
	// Extensions lists the file extensions to yield, with leading dot (e.g. ".json").
	// Matching is case-sensitive. Empty means every regular file.
	Extensions []string
	// FollowSymlinks descends into symlinked directories
	FollowSymlinks bool
	// MaxDepth limits traversal depth (0 = unlimited, 1 = root's children only)
	MaxDepth int
	// OnSkip, when set, is called for each entry skipped because of an error.
	// The error is a *models.FileError of kind KindTraversalEntry.
	OnSkip func(err error)
	// Context, when set, ends the walk once it is done, even inside
	// subtrees that yield no candidates.
	Context context.Context
}

// Candidate is a file discovered during traversal
type Candidate struct {
	// Path is the root joined with the entry's relative path
	Path string
	// Depth is the number of path elements below the root
	Depth int
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the candidate paths, sorted
	Files []string
	// Errors contains the entry errors skipped during the scan
	Errors []error
}

type pendingDir struct {
	path      string
	depth     int
	ancestors []os.FileInfo
}

type walker struct {
	opts   WalkOptions
	extMap map[string]bool
}

// Walk returns a lazy sequence of candidate files under root.
// It fails only when root itself cannot be accessed.
func Walk(root string, opts WalkOptions) (iter.Seq[Candidate], error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root %s: %w", root, err)
	}

	w := &walker{
		opts:   opts,
		extMap: make(map[string]bool, len(opts.Extensions)),
	}
	for _, ext := range opts.Extensions {
		w.extMap[ext] = true
	}

	return func(yield func(Candidate) bool) {
		if !info.IsDir() {
			if info.Mode().IsRegular() && w.matches(filepath.Base(root)) {
				yield(Candidate{Path: root})
			}
			return
		}
		w.run(root, info, yield)
	}, nil
}

// Scan walks root to completion and returns the sorted candidate paths along
// with every skipped entry error.
func Scan(root string, opts WalkOptions) (*ScanResult, error) {
	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	onSkip := opts.OnSkip
	opts.OnSkip = func(err error) {
		result.Errors = append(result.Errors, err)
		if onSkip != nil {
			onSkip(err)
		}
	}

	seq, err := Walk(root, opts)
	if err != nil {
		return nil, err
	}
	for c := range seq {
		result.Files = append(result.Files, c.Path)
	}

	sort.Strings(result.Files)
	return result, nil
}

func (w *walker) run(root string, rootInfo os.FileInfo, yield func(Candidate) bool) {
	stack := []pendingDir{{path: root, depth: 0, ancestors: []os.FileInfo{rootInfo}}}

	for len(stack) > 0 {
		if w.canceled() {
			return
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// ReadDir returns the entries it managed to read alongside the error
		entries, err := os.ReadDir(dir.path)
		if err != nil {
			w.skip(dir.path, err)
		}

		var subdirs []pendingDir
		for _, entry := range entries {
			if w.canceled() {
				return
			}
			path := filepath.Join(dir.path, entry.Name())
			depth := dir.depth + 1

			info, isDir, ok := w.resolve(path, entry)
			if !ok {
				continue
			}

			if isDir {
				if w.opts.MaxDepth > 0 && depth >= w.opts.MaxDepth {
					continue
				}
				if w.opts.FollowSymlinks && entry.Type()&fs.ModeSymlink != 0 && isAncestor(dir.ancestors, info) {
					w.skip(path, ErrSymlinkLoop)
					continue
				}
				subdirs = append(subdirs, pendingDir{
					path:      path,
					depth:     depth,
					ancestors: append(dir.ancestors[:len(dir.ancestors):len(dir.ancestors)], info),
				})
				continue
			}

			if !w.matches(entry.Name()) {
				continue
			}
			if !yield(Candidate{Path: path, Depth: depth}) {
				return
			}
		}

		// Push in reverse so subdirectories are visited in lexical order
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
}

// resolve classifies an entry. ok is false when the entry must be skipped:
// it is unreadable, a broken link, a directory link that is not followed, or
// neither a directory nor a regular file.
func (w *walker) resolve(path string, entry fs.DirEntry) (info os.FileInfo, isDir bool, ok bool) {
	typ := entry.Type()

	if typ&fs.ModeSymlink != 0 {
		target, err := os.Stat(path)
		if err != nil {
			w.skip(path, err)
			return nil, false, false
		}
		if target.IsDir() {
			return target, true, w.opts.FollowSymlinks
		}
		return target, false, target.Mode().IsRegular()
	}

	if entry.IsDir() {
		if !w.opts.FollowSymlinks {
			return nil, true, true
		}
		// Ancestor infos are only needed for loop detection on followed links
		info, err := entry.Info()
		if err != nil {
			w.skip(path, err)
			return nil, false, false
		}
		return info, true, true
	}

	return nil, false, typ.IsRegular()
}

func (w *walker) canceled() bool {
	return w.opts.Context != nil && w.opts.Context.Err() != nil
}

func (w *walker) matches(name string) bool {
	if len(w.extMap) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	if ext == name {
		return false
	}
	return w.extMap[ext]
}

func (w *walker) skip(path string, err error) {
	if w.opts.OnSkip != nil {
		w.opts.OnSkip(models.NewFileError(models.KindTraversalEntry, path, err))
	}
}

func isAncestor(ancestors []os.FileInfo, target os.FileInfo) bool {
	for _, a := range ancestors {
		if a != nil && os.SameFile(a, target) {
			return true
		}
	}
	return false
}
