package fs

import (
	"strings"

	fserrors "github.com/msaf1980/blockfs/errors"
)

// splitPath breaks an absolute slash-separated path into its non-empty
// components. "/" yields an empty slice.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// lookupResult describes where path resolution landed.
type lookupResult struct {
	// node is the furthest dentry reached: the target itself on a hit, or
	// the last matching ancestor on a miss.
	node *dentryNode
	// found reports whether every path component matched through to the
	// final one.
	found bool
}

// lookup resolves path against the in-memory tree, hydrating inodes along
// the way as needed. A query component matches a child only when the
// child's name is exactly equal to it: a directory containing "report"
// does not resolve a lookup for "rep". The original compared only the
// first len(query) bytes, so a prefix matched; that comparison is not
// reproduced here.
//
// A path that continues past a regular file fails with ErrNotDir.
func (fsys *Filesystem) lookup(path string) (lookupResult, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return lookupResult{node: fsys.root, found: true}, nil
	}

	cursor := fsys.root
	for i, name := range components {
		in, err := fsys.hydrate(cursor)
		if err != nil {
			return lookupResult{}, err
		}

		if in.ftype != FileTypeDir {
			return lookupResult{node: cursor, found: false}, fserrors.ErrNotDir.WithMessage(path)
		}

		var next *dentryNode
		for _, child := range in.children {
			if child.name == name {
				next = child
				break
			}
		}
		if next == nil {
			return lookupResult{node: cursor, found: false}, nil
		}

		cursor = next
		if i == len(components)-1 {
			return lookupResult{node: cursor, found: true}, nil
		}
	}

	return lookupResult{node: cursor, found: true}, nil
}

// lookupExact resolves path through lookup and additionally checks that the
// resolved entry's name equals the final path component, for operations
// that must only ever act on the entry actually named (existence checks
// before creating a new entry, for instance).
func (fsys *Filesystem) lookupExact(path string) (lookupResult, error) {
	res, err := fsys.lookup(path)
	if err != nil {
		return lookupResult{}, err
	}
	if !res.found {
		return res, nil
	}
	components := splitPath(path)
	if len(components) == 0 {
		return res, nil
	}
	if res.node.name != components[len(components)-1] {
		return lookupResult{node: res.node, found: false}, nil
	}
	return res, nil
}
