package inproc

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/esbuild"
	"github.com/wippyai/tsgo-bridge/registry"
	"github.com/wippyai/tsgo-bridge/tsc"
)

// Engine is the in-process engine. It is safe for concurrent use; unlike a
// wasm instance it needs no exclusive lease, so Acquire never blocks.
type Engine struct {
	arena      *abi.Arena
	dispatcher *engine.Dispatcher
	stderr     io.Writer
	closed     atomic.Bool
}

// New creates an engine.
func New(opts ...Option) *Engine {
	var cfg engine.Config
	for _, opt := range opts {
		opt(&cfg)
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	return &Engine{
		arena:      abi.NewArena(cfg.MemoryLimitPages),
		dispatcher: engine.NewDispatcher(&cfg),
		stderr:     stderr,
	}
}

func (e *Engine) Heap() tsgobridge.Heap {
	return e.arena
}

// Arena exposes the engine's memory, mainly so tests can check that every
// allocation was released.
func (e *Engine) Arena() *abi.Arena {
	return e.arena
}

func (e *Engine) Registry() *registry.Registry {
	return e.dispatcher.Registry()
}

func (e *Engine) Acquire(ctx context.Context) (func(), error) {
	if e.closed.Load() {
		return nil, errors.Closed("engine")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

// run guards an entry point the way a wasm instance would: a closed engine
// refuses the call and a panic becomes a trap.
func (e *Engine) run(name string, fn func() (uint32, error)) (ptr uint32, err error) {
	if e.closed.Load() {
		return 0, errors.Closed("engine")
	}
	defer func() {
		if p := recover(); p != nil {
			engine.Logger().Error("engine entry point panicked",
				zap.String("entry", name),
				zap.Any("panic", p))
			ptr, err = 0, errors.Trap(name, fmt.Errorf("panic: %v", p))
		}
	}()
	return fn()
}

// publish encodes an engine-owned result. The host releases it through the
// matching free entry point.
func (e *Engine) publish(name string, encode func(*abi.Writer) uint32) (uint32, error) {
	list := abi.NewAllocationList()
	defer list.Release()

	w := abi.NewWriter(e.arena, list)
	ptr := encode(w)
	if err := w.Err(); err != nil {
		list.Free(e.arena)
		return 0, errors.Trap(name, err)
	}
	list.Detach()
	return ptr, nil
}

func (e *Engine) TSCBuildFilesystem(ctx context.Context, projectPtr uint32, printErrors bool, configPtr uint32) (uint32, error) {
	return e.run(engine.ExportTSCBuildFilesystem, func() (uint32, error) {
		rd := abi.NewReader(e.arena)
		project := rd.String(projectPtr, "project_path")
		config := rd.String(configPtr, "config_file")
		if err := rd.Err(); err != nil {
			return 0, errors.Trap(engine.ExportTSCBuildFilesystem, err)
		}
		project = diskPath(project)
		if config != "" {
			config = diskPath(config)
		}

		res := e.compile(ctx, diskFS{}, project, config, printErrors)
		return e.publish(engine.ExportTSCBuildFilesystem, func(w *abi.Writer) uint32 {
			return tsc.EncodeResult(w, res)
		})
	})
}

func (e *Engine) TSCBuildWithResolver(ctx context.Context, projectPtr uint32, printErrors bool, configPtr, callbacksPtr uint32) (uint32, error) {
	return e.run(engine.ExportTSCBuildWithResolver, func() (uint32, error) {
		rd := abi.NewReader(e.arena)
		project := rd.String(projectPtr, "project_path")
		config := rd.String(configPtr, "config_file")
		fn, token := tsc.DecodeCallbacks(rd, callbacksPtr)
		if err := rd.Err(); err != nil {
			return 0, errors.Trap(engine.ExportTSCBuildWithResolver, err)
		}

		fs := newResolverFS(e.dispatcher, e.arena, fn, token)
		res := e.compile(ctx, fs, project, config, printErrors)
		return e.publish(engine.ExportTSCBuildWithResolver, func(w *abi.Writer) uint32 {
			return tsc.EncodeResult(w, res)
		})
	})
}

func (e *Engine) ESBuildBuild(ctx context.Context, optionsPtr uint32) (uint32, error) {
	return e.run(engine.ExportESBuildBuild, func() (uint32, error) {
		rd := abi.NewReader(e.arena)
		opts, plugins := esbuild.DecodeBuildOptions(rd, optionsPtr)
		if err := rd.Err(); err != nil {
			return 0, errors.Trap(engine.ExportESBuildBuild, err)
		}
		res := e.build(ctx, opts, plugins)
		return e.publish(engine.ExportESBuildBuild, func(w *abi.Writer) uint32 {
			return esbuild.EncodeBuildResult(w, res)
		})
	})
}

func (e *Engine) ESBuildTransform(ctx context.Context, codePtr, optionsPtr uint32) (uint32, error) {
	return e.run(engine.ExportESBuildTransform, func() (uint32, error) {
		rd := abi.NewReader(e.arena)
		code := rd.String(codePtr, "code")
		opts := esbuild.DecodeTransformOptions(rd, optionsPtr)
		if err := rd.Err(); err != nil {
			return 0, errors.Trap(engine.ExportESBuildTransform, err)
		}
		res := transform(code, opts)
		return e.publish(engine.ExportESBuildTransform, func(w *abi.Writer) uint32 {
			return esbuild.EncodeTransformResult(w, res)
		})
	})
}

func (e *Engine) free(name string, ptr uint32, l *abi.Layout) error {
	if e.closed.Load() {
		return errors.Closed("engine")
	}
	if err := abi.FreeRecord(e.arena, ptr, l); err != nil {
		return errors.Trap(name, err)
	}
	return nil
}

func (e *Engine) TSCFreeResult(_ context.Context, ptr uint32) error {
	return e.free(engine.ExportTSCFreeResult, ptr, tsc.ResultLayout)
}

func (e *Engine) ESBuildFreeBuildResult(_ context.Context, ptr uint32) error {
	return e.free(engine.ExportESBuildFreeBuildResult, ptr, esbuild.BuildResultLayout)
}

func (e *Engine) ESBuildFreeTransformResult(_ context.Context, ptr uint32) error {
	return e.free(engine.ExportESBuildFreeTransformResult, ptr, esbuild.TransformResultLayout)
}

// Close marks the engine closed. It is safe to call more than once.
func (e *Engine) Close(context.Context) error {
	if e.closed.CompareAndSwap(false, true) {
		engine.Logger().Debug("inproc engine closed",
			zap.Int("live_allocations", e.arena.Live()))
	}
	return nil
}

var _ engine.Engine = (*Engine)(nil)
