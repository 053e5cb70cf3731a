package inproc

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/registry"
	"github.com/wippyai/tsgo-bridge/tsc"
)

// fileSystem is the compiler's view of the project. Paths are absolute and
// slash-separated.
type fileSystem interface {
	lookup(ctx context.Context, p string) tsgobridge.Entry
}

// fileWriter is implemented by file systems that persist emitted files.
type fileWriter interface {
	writeFile(p string, content []byte) error
}

type diskFS struct{}

func (diskFS) lookup(_ context.Context, p string) tsgobridge.Entry {
	name := filepath.FromSlash(p)
	info, err := os.Stat(name)
	if err != nil {
		return tsgobridge.Entry{Kind: tsgobridge.NotFound}
	}
	if info.IsDir() {
		entries, err := os.ReadDir(name)
		if err != nil {
			return tsgobridge.Entry{Kind: tsgobridge.NotFound}
		}
		children := make([]string, len(entries))
		for i, e := range entries {
			children[i] = e.Name()
		}
		return tsgobridge.DirectoryEntry(children...)
	}
	content, err := os.ReadFile(name)
	if err != nil {
		return tsgobridge.Entry{Kind: tsgobridge.NotFound}
	}
	return tsgobridge.Entry{Kind: tsgobridge.File, Content: content}
}

// diskPath turns an OS path into an absolute slash path.
func diskPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.ToSlash(p)
}

func (diskFS) writeFile(p string, content []byte) error {
	name := filepath.FromSlash(p)
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, content, 0o644)
}

// resolverFS answers lookups by calling the host's resolve callback. Answers
// are cached for the duration of one build, so the host sees each path once.
type resolverFS struct {
	dispatcher *engine.Dispatcher
	heap       tsgobridge.Heap
	cache      map[string]tsgobridge.Entry
	fn         engine.FuncID
	token      registry.Token
	mu         sync.Mutex
}

func newResolverFS(d *engine.Dispatcher, heap tsgobridge.Heap, fn engine.FuncID, token registry.Token) *resolverFS {
	return &resolverFS{
		dispatcher: d,
		heap:       heap,
		fn:         fn,
		token:      token,
		cache:      make(map[string]tsgobridge.Entry),
	}
}

func (r *resolverFS) lookup(ctx context.Context, p string) tsgobridge.Entry {
	r.mu.Lock()
	e, ok := r.cache[p]
	r.mu.Unlock()
	if ok {
		return e
	}

	e = r.call(ctx, p)

	r.mu.Lock()
	r.cache[p] = e
	r.mu.Unlock()
	return e
}

func (r *resolverFS) call(ctx context.Context, p string) tsgobridge.Entry {
	if r.fn == engine.FuncNone {
		return tsgobridge.Entry{Kind: tsgobridge.NotFound}
	}
	e, ok := hostCall(ctx, r.dispatcher, r.heap, r.fn, r.token, tsc.EntryLayout,
		func(w *abi.Writer) uint32 { return tsc.EncodeResolveArgs(w, p) },
		tsc.DecodeEntry)
	if !ok {
		return tsgobridge.Entry{Kind: tsgobridge.NotFound}
	}
	return e
}
