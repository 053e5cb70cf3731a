package inproc

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/registry"
	"github.com/wippyai/tsgo-bridge/syncadapter"
	"github.com/wippyai/tsgo-bridge/tsc"
)

type callbackFunc func(ctx context.Context, call *engine.Call) (uint32, error)

func (f callbackFunc) Invoke(ctx context.Context, call *engine.Call) (uint32, error) {
	return f(ctx, call)
}

func TestEngine_Close(t *testing.T) {
	ctx := context.Background()
	e := New(WithRegistry(registry.New()))

	release, err := e.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	if err := e.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := e.Acquire(ctx); !errors.IsSystem(err) {
		t.Errorf("Acquire after Close = %v, want system error", err)
	}
	if _, err := e.ESBuildBuild(ctx, 0); !errors.IsSystem(err) {
		t.Errorf("ESBuildBuild after Close = %v, want system error", err)
	}
	if err := e.TSCFreeResult(ctx, 8); !errors.IsSystem(err) {
		t.Errorf("TSCFreeResult after Close = %v, want system error", err)
	}
}

func TestEngine_AcquireCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(WithRegistry(registry.New()))
	if _, err := e.Acquire(ctx); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Acquire = %v, want context.Canceled", err)
	}
}

func TestEngine_RunRecoversPanic(t *testing.T) {
	e := New(WithRegistry(registry.New()))
	ptr, err := e.run("boom", func() (uint32, error) { panic("bad state") })
	if ptr != 0 {
		t.Errorf("ptr = %d, want 0", ptr)
	}
	var be *errors.Error
	if !stderrors.As(err, &be) || be.Kind != errors.KindTrap {
		t.Fatalf("err = %v, want trap", err)
	}
}

func TestEngine_UndecodableOptions(t *testing.T) {
	ctx := context.Background()
	e := New(WithRegistry(registry.New()))

	if ptr, err := e.ESBuildBuild(ctx, 0); ptr != 0 || !errors.IsTransport(err) {
		t.Errorf("ESBuildBuild(null) = %d, %v; want transport error", ptr, err)
	}
	if ptr, err := e.ESBuildTransform(ctx, 0, 0); ptr != 0 || !errors.IsTransport(err) {
		t.Errorf("ESBuildTransform(null) = %d, %v; want transport error", ptr, err)
	}
	if live := e.Arena().Live(); live != 0 {
		t.Errorf("live allocations = %d, want 0", live)
	}
}

func TestEngine_MemoryLimit(t *testing.T) {
	e := New(WithRegistry(registry.New()), WithMemoryLimit(1))
	if got := e.Arena().Size(); got != 1<<16 {
		t.Errorf("Size = %d, want one page", got)
	}
	if _, err := e.Heap().Alloc(1<<17, 8); err == nil {
		t.Error("allocation past the limit succeeded")
	}
}

func TestHostCall(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	e := New(WithRegistry(reg))

	var seen string
	token, err := reg.Register(callbackFunc(func(_ context.Context, call *engine.Call) (uint32, error) {
		rd := abi.NewReader(call.Heap)
		seen = tsc.DecodeResolveArgs(rd, call.Arg)
		if err := rd.Err(); err != nil {
			return 0, err
		}
		if seen == "/missing" {
			return 0, nil
		}

		list := abi.NewAllocationList()
		defer list.Release()
		w := abi.NewWriter(call.Heap, list)
		ptr := tsc.EncodeEntry(w, tsgobridge.FileEntry("content of "+seen))
		if err := w.Err(); err != nil {
			return 0, err
		}
		list.Detach()
		return ptr, nil
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	fs := newResolverFS(e.dispatcher, e.arena, engine.FuncResolve, token)

	entry := fs.lookup(ctx, "/a.ts")
	if entry.Kind != tsgobridge.File || string(entry.Content) != "content of /a.ts" {
		t.Errorf("lookup = %+v", entry)
	}
	if seen != "/a.ts" {
		t.Errorf("callback saw %q", seen)
	}

	seen = ""
	fs.lookup(ctx, "/a.ts")
	if seen != "" {
		t.Error("cached lookup reached the host")
	}

	if entry := fs.lookup(ctx, "/missing"); entry.Kind != tsgobridge.NotFound {
		t.Errorf("lookup(/missing) = %v, want NotFound", entry.Kind)
	}
	if live := e.Arena().Live(); live != 0 {
		t.Errorf("Live = %d after lookups, want 0", live)
	}
}

func TestHostCall_StaleToken(t *testing.T) {
	e := New(WithRegistry(registry.New()))
	fs := newResolverFS(e.dispatcher, e.arena, engine.FuncResolve, 99)
	if entry := fs.lookup(context.Background(), "/a.ts"); entry.Kind != tsgobridge.NotFound {
		t.Errorf("lookup = %v, want NotFound", entry.Kind)
	}
}

func TestHostCall_Timeout(t *testing.T) {
	reg := registry.New()
	e := New(WithRegistry(reg), WithCallbackTimeout(20*time.Millisecond))

	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })

	token, err := reg.Register(callbackFunc(func(ctx context.Context, call *engine.Call) (uint32, error) {
		ptr, _ := syncadapter.Resolve(ctx, func(context.Context) (uint32, error) {
			<-unblock
			return 0, nil
		}, call.Adapter...)
		return ptr, nil
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	start := time.Now()
	fs := newResolverFS(e.dispatcher, e.arena, engine.FuncResolve, token)
	if entry := fs.lookup(context.Background(), "/slow.ts"); entry.Kind != tsgobridge.NotFound {
		t.Errorf("lookup = %v, want NotFound", entry.Kind)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("lookup took %v", elapsed)
	}
}

func TestDiskFS(t *testing.T) {
	dir := diskPath(t.TempDir())
	var fs diskFS

	if err := fs.writeFile(dir+"/nested/out.js", []byte("x")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	e := fs.lookup(context.Background(), dir)
	if e.Kind != tsgobridge.Directory || len(e.Children) != 1 || e.Children[0] != "nested" {
		t.Errorf("lookup(dir) = %+v", e)
	}
	e = fs.lookup(context.Background(), dir+"/nested/out.js")
	if e.Kind != tsgobridge.File || string(e.Content) != "x" {
		t.Errorf("lookup(file) = %+v", e)
	}
	if e := fs.lookup(context.Background(), dir+"/gone"); e.Kind != tsgobridge.NotFound {
		t.Errorf("lookup(gone) = %v", e.Kind)
	}
}
