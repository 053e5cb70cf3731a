package engine

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/registry"
)

// WazeroEngine runs an engine binary compiled to wasm32 under wazero.
//
// A wasm instance is not reentrant across goroutines, so host operations
// serialise through Acquire. Host callbacks run on the goroutine of the
// entry point that triggered them and may allocate freely.
type WazeroEngine struct {
	runtime    wazero.Runtime
	module     api.Module
	heap       wazeroHeap
	dispatcher *Dispatcher
	fns        map[string]api.Function
	lease      *semaphore.Weighted
	closed     atomic.Bool
}

// LoadWazeroEngine compiles and instantiates an engine binary.
//
// The binary may import wasi_snapshot_preview1 and tsgo_host.invoke, and must
// export memory plus every name in RequiredExports. A reactor-style binary's
// _initialize export runs once at instantiation.
func LoadWazeroEngine(ctx context.Context, wasmBytes []byte, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	e := &WazeroEngine{
		runtime:    runtime,
		dispatcher: NewDispatcher(cfg),
		fns:        make(map[string]api.Function, len(RequiredExports)),
		lease:      semaphore.NewWeighted(1),
	}

	inst, err := e.instantiate(ctx, wasmBytes, cfg)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}
	e.module = inst

	for _, name := range RequiredExports {
		e.fns[name] = inst.ExportedFunction(name)
	}
	mem := inst.Memory()
	if mem == nil {
		_ = runtime.Close(ctx)
		return nil, errors.NewMissingExportsError([]string{"memory"})
	}
	e.heap = wazeroHeap{
		WazeroMemory:    &WazeroMemory{mem: mem},
		wazeroAllocator: newWazeroAllocator(e.fns[ExportMalloc], e.fns[ExportFree]),
	}

	Logger().Debug("engine loaded",
		zap.Uint32("memory_bytes", mem.Size()),
		zap.Int("exports", len(e.fns)))
	return e, nil
}

func (e *WazeroEngine) instantiate(ctx context.Context, wasmBytes []byte, cfg *Config) (api.Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	var missing []string
	exported := compiled.ExportedFunctions()
	for _, name := range RequiredExports {
		if _, ok := exported[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingExportsError(missing)
	}

	if importsWASI(compiled) {
		if _, err := instantiateWASI(ctx, e.runtime); err != nil {
			return nil, errors.Instantiation(err)
		}
	}

	_, err = e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.invoke),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		WithParameterNames("fn", "token", "arg").
		Export(HostInvoke).
		Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName("engine").
		WithStartFunctions("_initialize").
		WithStderr(cfg.stderr()).
		WithStdout(cfg.stderr())
	inst, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	return inst, nil
}

// invoke implements tsgo_host.invoke(fn, token, arg) -> ptr.
func (e *WazeroEngine) invoke(ctx context.Context, _ api.Module, stack []uint64) {
	fn := FuncID(api.DecodeU32(stack[0]))
	token := registry.Token(api.DecodeU32(stack[1]))
	arg := api.DecodeU32(stack[2])
	stack[0] = api.EncodeU32(e.dispatcher.Invoke(ctx, e.heap, fn, token, arg))
}

func (e *WazeroEngine) Heap() tsgobridge.Heap {
	return e.heap
}

func (e *WazeroEngine) Registry() *registry.Registry {
	return e.dispatcher.Registry()
}

func (e *WazeroEngine) Acquire(ctx context.Context) (func(), error) {
	if e.closed.Load() {
		return nil, errors.Closed("engine")
	}
	if err := e.lease.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if e.closed.Load() {
		e.lease.Release(1)
		return nil, errors.Closed("engine")
	}
	return func() { e.lease.Release(1) }, nil
}

func (e *WazeroEngine) call(ctx context.Context, name string, params ...uint64) (uint32, error) {
	if e.closed.Load() {
		return 0, errors.Closed("engine")
	}
	fn := e.fns[name]
	if fn == nil {
		return 0, errors.NewMissingExportsError([]string{name})
	}

	e.heap.setContext(ctx)
	defer e.heap.setContext(nil)

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, errors.Trap(name, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return api.DecodeU32(results[0]), nil
}

func boolParam(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func (e *WazeroEngine) TSCBuildFilesystem(ctx context.Context, projectPtr uint32, printErrors bool, configPtr uint32) (uint32, error) {
	return e.call(ctx, ExportTSCBuildFilesystem,
		api.EncodeU32(projectPtr), boolParam(printErrors), api.EncodeU32(configPtr))
}

func (e *WazeroEngine) TSCBuildWithResolver(ctx context.Context, projectPtr uint32, printErrors bool, configPtr, callbacksPtr uint32) (uint32, error) {
	return e.call(ctx, ExportTSCBuildWithResolver,
		api.EncodeU32(projectPtr), boolParam(printErrors), api.EncodeU32(configPtr), api.EncodeU32(callbacksPtr))
}

func (e *WazeroEngine) ESBuildBuild(ctx context.Context, optionsPtr uint32) (uint32, error) {
	return e.call(ctx, ExportESBuildBuild, api.EncodeU32(optionsPtr))
}

func (e *WazeroEngine) ESBuildTransform(ctx context.Context, codePtr, optionsPtr uint32) (uint32, error) {
	return e.call(ctx, ExportESBuildTransform, api.EncodeU32(codePtr), api.EncodeU32(optionsPtr))
}

func (e *WazeroEngine) TSCFreeResult(ctx context.Context, ptr uint32) error {
	_, err := e.call(ctx, ExportTSCFreeResult, api.EncodeU32(ptr))
	return err
}

func (e *WazeroEngine) ESBuildFreeBuildResult(ctx context.Context, ptr uint32) error {
	_, err := e.call(ctx, ExportESBuildFreeBuildResult, api.EncodeU32(ptr))
	return err
}

func (e *WazeroEngine) ESBuildFreeTransformResult(ctx context.Context, ptr uint32) error {
	_, err := e.call(ctx, ExportESBuildFreeTransformResult, api.EncodeU32(ptr))
	return err
}

// Close waits for the running operation, if any, and releases the runtime.
// Later calls are no-ops.
func (e *WazeroEngine) Close(ctx context.Context) error {
	if err := e.lease.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.lease.Release(1)
	if e.closed.Swap(true) {
		return nil
	}
	Logger().Debug("engine closed")
	return e.runtime.Close(ctx)
}

var _ Engine = (*WazeroEngine)(nil)
