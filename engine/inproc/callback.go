package inproc

import (
	"context"

	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/registry"
)

// hostCall runs one host callback the way engine code calls a function
// pointer: the argument record lives in heap for the duration of the call,
// and the result record the host hands over is freed once decoded.
// ok is false when the host had no result or the exchange failed.
func hostCall[R any](
	ctx context.Context,
	d *engine.Dispatcher,
	heap tsgobridge.Heap,
	fn engine.FuncID,
	token registry.Token,
	result *abi.Layout,
	encode func(*abi.Writer) uint32,
	decode func(*abi.Reader, uint32) R,
) (out R, ok bool) {
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(heap)

	var arg uint32
	if encode != nil {
		w := abi.NewWriter(heap, list)
		arg = encode(w)
		if err := w.Err(); err != nil {
			engine.Logger().Warn("encode callback args",
				zap.Stringer("func", fn),
				zap.Error(err))
			return out, false
		}
	}

	ptr := d.Invoke(ctx, heap, fn, token, arg)
	if ptr == 0 || result == nil {
		return out, false
	}
	defer func() {
		if err := abi.FreeRecord(heap, ptr, result); err != nil {
			engine.Logger().Warn("free callback result",
				zap.Stringer("func", fn),
				zap.Error(err))
		}
	}()

	rd := abi.NewReader(heap)
	v := decode(rd, ptr)
	if err := rd.Err(); err != nil {
		engine.Logger().Warn("decode callback result",
			zap.Stringer("func", fn),
			zap.Error(err))
		return out, false
	}
	return v, true
}
