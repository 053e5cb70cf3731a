package esbuild

import (
	"context"

	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
)

// Invoke serves the engine's plugin callbacks for this instance. Results are
// written into call.Heap and handed over to the engine; failures to encode
// them are recorded and reported by the build.
func (pi *pluginInstance) Invoke(ctx context.Context, call *engine.Call) (uint32, error) {
	switch call.Func {
	case engine.FuncPluginDispose:
		pi.Drop()
		return 0, nil

	case engine.FuncPluginStart, engine.FuncPluginEnd:
		hooks, event := pi.start, "onStart"
		if call.Func == engine.FuncPluginEnd {
			hooks, event = pi.end, "onEnd"
		}
		res := pi.runAll(ctx, hooks, event, call.Adapter)
		if len(res.Errors) == 0 && len(res.Warnings) == 0 {
			return 0, nil
		}
		return pi.respond(call, func(w *abi.Writer) uint32 { return EncodeHookResult(w, &res) })

	case engine.FuncPluginResolve:
		rd := abi.NewReader(call.Heap)
		args := DecodeResolveArgs(rd, call.Arg)
		if err := rd.Err(); err != nil {
			pi.recordTransport(err)
			return 0, err
		}
		res := pi.resolve(ctx, args, call.Adapter)
		if res == nil {
			return 0, nil
		}
		return pi.respond(call, func(w *abi.Writer) uint32 { return EncodeResolveResult(w, res) })

	case engine.FuncPluginLoad:
		rd := abi.NewReader(call.Heap)
		args := DecodeLoadArgs(rd, call.Arg)
		if err := rd.Err(); err != nil {
			pi.recordTransport(err)
			return 0, err
		}
		res := pi.load(ctx, args, call.Adapter)
		if res == nil {
			return 0, nil
		}
		return pi.respond(call, func(w *abi.Writer) uint32 { return EncodeLoadResult(w, res) })
	}
	return 0, nil
}

// respond encodes a callback result and detaches it for the engine.
func (pi *pluginInstance) respond(call *engine.Call, encode func(*abi.Writer) uint32) (uint32, error) {
	list := abi.NewAllocationList()
	defer list.Release()

	w := abi.NewWriter(call.Heap, list)
	ptr := encode(w)
	if err := w.Err(); err != nil {
		list.Free(call.Heap)
		pi.recordTransport(err)
		return 0, err
	}
	list.Detach()
	return ptr, nil
}

var _ engine.Callback = (*pluginInstance)(nil)
