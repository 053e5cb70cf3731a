package tsgobridge

import (
	"context"
	"path"
	"sort"
	"strings"
)

// EntryKind is the kind of answer a FileResolver gives for a path.
type EntryKind uint32

const (
	NotFound  EntryKind = 0
	File      EntryKind = 1
	Directory EntryKind = 2
)

func (k EntryKind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "not-found"
	}
}

// Entry is the result of resolving one path.
// Content is set for files, Children (base names) for directories.
type Entry struct {
	Content  []byte
	Children []string
	Kind     EntryKind
}

// FileEntry returns a file entry with the given content.
func FileEntry(content string) Entry {
	return Entry{Kind: File, Content: []byte(content)}
}

// DirectoryEntry returns a directory entry listing the given children.
func DirectoryEntry(children ...string) Entry {
	return Entry{Kind: Directory, Children: children}
}

// FileResolver answers path queries on behalf of the engine.
// Resolve may block; a returned error is treated as "no result" for that one call.
type FileResolver interface {
	Resolve(ctx context.Context, path string) (Entry, error)
}

// ResolverFunc adapts a function to FileResolver.
type ResolverFunc func(ctx context.Context, path string) (Entry, error)

func (f ResolverFunc) Resolve(ctx context.Context, path string) (Entry, error) {
	return f(ctx, path)
}

// MapResolver serves files from a map keyed by absolute slash-separated path.
// Every parent of a file is reported as a directory.
type MapResolver map[string]string

func (m MapResolver) Resolve(_ context.Context, p string) (Entry, error) {
	p = path.Clean(p)
	if content, ok := m[p]; ok {
		return FileEntry(content), nil
	}

	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	seen := make(map[string]struct{})
	for name := range m {
		rest, ok := strings.CutPrefix(path.Clean(name), prefix)
		if !ok || rest == "" {
			continue
		}
		child, _, _ := strings.Cut(rest, "/")
		seen[child] = struct{}{}
	}
	if len(seen) == 0 {
		return Entry{Kind: NotFound}, nil
	}

	children := make([]string, 0, len(seen))
	for c := range seen {
		children = append(children, c)
	}
	sort.Strings(children)
	return DirectoryEntry(children...), nil
}

var _ FileResolver = MapResolver(nil)
var _ FileResolver = ResolverFunc(nil)
