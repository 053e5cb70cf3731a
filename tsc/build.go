package tsc

import (
	"context"
	"strings"

	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
)

// ConfigErrorPrefix marks a config_file value that is an engine-side
// configuration error rather than a path.
const ConfigErrorPrefix = "error: "

// BuildFileSystem compiles the project at projectPath, a directory holding
// tsconfig.json or the path of a tsconfig file. Emitted files are written to
// disk by the engine and reported in the result.
func BuildFileSystem(ctx context.Context, eng engine.Engine, projectPath string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	release, err := eng.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	heap := eng.Heap()
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(heap)

	w := abi.NewWriter(heap, list)
	projectPtr := w.String(projectPath, "project_path")
	configPtr := w.String(opts.ConfigFile, "config_file")
	if err := w.Err(); err != nil {
		return nil, err
	}

	ptr, err := eng.TSCBuildFilesystem(ctx, projectPtr, opts.PrintErrors, configPtr)
	if err != nil {
		return nil, err
	}
	return takeResult(ctx, eng, engine.ExportTSCBuildFilesystem, ptr, nil)
}

// BuildWithResolver compiles the project at projectPath, answering every file
// system query through resolver. Resolver failures count as "not found" for
// that one path; the compiler reports them as diagnostics.
func BuildWithResolver(ctx context.Context, eng engine.Engine, projectPath string, resolver tsgobridge.FileResolver, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	release, err := eng.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	scope := eng.Registry().NewScope()
	defer scope.Close()

	h := &resolverHandler{resolver: resolver}
	token, err := scope.Register(h)
	if err != nil {
		return nil, err
	}

	heap := eng.Heap()
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(heap)

	w := abi.NewWriter(heap, list)
	projectPtr := w.String(projectPath, "project_path")
	configPtr := w.String(opts.ConfigFile, "config_file")
	callbacksPtr := EncodeCallbacks(w, engine.FuncResolve, token)
	if err := w.Err(); err != nil {
		return nil, err
	}

	ptr, err := eng.TSCBuildWithResolver(ctx, projectPtr, opts.PrintErrors, configPtr, callbacksPtr)
	if err != nil {
		return nil, err
	}
	return takeResult(ctx, eng, engine.ExportTSCBuildWithResolver, ptr, h)
}

// takeResult decodes the engine's result record and releases it.
func takeResult(ctx context.Context, eng engine.Engine, entry string, ptr uint32, h *resolverHandler) (*Result, error) {
	if ptr == 0 {
		return nil, errors.NullResult(entry)
	}
	buf := abi.Borrow(ptr, eng.TSCFreeResult)
	defer func() {
		if err := buf.Release(ctx); err != nil {
			engine.Logger().Warn("release build result", zap.Error(err))
		}
	}()

	rd := abi.NewReader(eng.Heap())
	res := DecodeResult(rd, buf.Ptr())
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if h != nil {
		if err := h.transportErr(); err != nil {
			return nil, err
		}
	}

	if msg, ok := strings.CutPrefix(res.ConfigFile, ConfigErrorPrefix); ok {
		return nil, errors.InvalidConfig(msg)
	}
	return res, nil
}
