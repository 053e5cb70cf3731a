package esbuild

import (
	"context"

	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
)

// Transform compiles a single source text without bundling. As with Build,
// messages come back in the result and opts.LogLevel is ignored.
func Transform(ctx context.Context, eng engine.Engine, code string, opts *TransformOptions) (*TransformResult, error) {
	o := TransformOptions{}
	if opts != nil {
		o = *opts
	}
	o.LogLevel = LogLevelSilent

	release, err := eng.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	heap := eng.Heap()
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(heap)

	w := abi.NewWriter(heap, list)
	codePtr := w.String(code, "code")
	optionsPtr := EncodeTransformOptions(w, &o)
	if err := w.Err(); err != nil {
		return nil, err
	}

	ptr, err := eng.ESBuildTransform(ctx, codePtr, optionsPtr)
	if err != nil {
		return nil, err
	}
	if ptr == 0 {
		return nil, errors.NullResult(engine.ExportESBuildTransform)
	}

	buf := abi.Borrow(ptr, eng.ESBuildFreeTransformResult)
	defer releaseBuffer(ctx, buf, "transform")

	rd := abi.NewReader(heap)
	res := DecodeTransformResult(rd, buf.Ptr())
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
