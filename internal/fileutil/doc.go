// Package fileutil finds candidate files under a directory tree.
//
// Walk produces candidates lazily: directories are read one at a time from an
// explicit worklist while the caller ranges over the returned sequence, and
// the walk stops as soon as the caller stops. Scan drains the same walk into a
// sorted slice together with the entry errors that were skipped.
//
// # Traversal policy
//
//   - Depth: the root is depth 0 and its direct children are depth 1.
//     MaxDepth > 0 yields entries down to MaxDepth and never descends into a
//     directory at that depth. MaxDepth 0 is unlimited.
//   - Symlinks: links to regular files are yielded when they resolve; broken
//     links are skipped. Links to directories are descended only with
//     FollowSymlinks, and a link that leads back to one of its own ancestors
//     is skipped.
//   - Filter: only regular files whose extension is one of Extensions
//     (case-sensitive) are yielded. A file named exactly like the extension,
//     such as ".json", has no extension.
//   - Errors: an entry that cannot be read is skipped and reported to OnSkip;
//     enumeration continues with its siblings. Only an unreadable root fails
//     the walk as a whole.
//   - Cancellation: when Context is set, the walk ends quietly once it is
//     done, checked before every directory read and every entry.
//
// # Usage
//
//	seq, err := fileutil.Walk("/path/to/tree", fileutil.WalkOptions{
//	    Extensions: []string{".json"},
//	    MaxDepth:   2,
//	})
//	if err != nil {
//	    return err
//	}
//	for c := range seq {
//	    fmt.Println(c.Path, c.Depth)
//	}
package fileutil
