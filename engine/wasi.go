package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// importsWASI reports whether the compiled engine needs wasi_snapshot_preview1.
func importsWASI(compiled wazero.CompiledModule) bool {
	for _, imp := range compiled.ImportedFunctions() {
		if mod, _, _ := imp.Import(); mod == wasi_snapshot_preview1.ModuleName {
			return true
		}
	}
	return false
}

// instantiateWASI provides WASI preview1 to engine binaries built for
// wasip1 (Go's GOOS=wasip1 or wasi-libc). Engines write printed diagnostics
// through fd_write, which ends up in the module's configured stderr.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if mod := r.Module(wasi_snapshot_preview1.ModuleName); mod != nil {
		return mod, nil
	}
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}
