package engine

import (
	"context"
	"fmt"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/registry"
)

// Entry points an engine binary must export.
const (
	ExportMalloc                     = "malloc"
	ExportFree                       = "free"
	ExportTSCBuildFilesystem         = "tsc_build_filesystem"
	ExportTSCBuildWithResolver       = "tsc_build_with_dynamic_resolver"
	ExportESBuildBuild               = "esbuild_build"
	ExportESBuildTransform           = "esbuild_transform"
	ExportTSCFreeResult              = "tsc_free_result"
	ExportESBuildFreeBuildResult     = "esbuild_free_build_result"
	ExportESBuildFreeTransformResult = "esbuild_free_transform_result"
)

// RequiredExports lists every export LoadWazeroEngine checks for.
var RequiredExports = []string{
	ExportMalloc,
	ExportFree,
	ExportTSCBuildFilesystem,
	ExportTSCBuildWithResolver,
	ExportESBuildBuild,
	ExportESBuildTransform,
	ExportTSCFreeResult,
	ExportESBuildFreeBuildResult,
	ExportESBuildFreeTransformResult,
}

// Host import the engine calls back through.
const (
	HostModule = "tsgo_host"
	HostInvoke = "invoke"
)

// FuncID identifies a host callback. Callback records carry it in the slot
// a native engine would use for a function pointer; 0 means "not provided".
type FuncID uint32

const (
	FuncNone FuncID = iota
	FuncResolve
	FuncPluginStart
	FuncPluginEnd
	FuncPluginResolve
	FuncPluginLoad
	FuncPluginDispose
)

func (f FuncID) String() string {
	switch f {
	case FuncNone:
		return "none"
	case FuncResolve:
		return "resolve"
	case FuncPluginStart:
		return "plugin_start"
	case FuncPluginEnd:
		return "plugin_end"
	case FuncPluginResolve:
		return "plugin_resolve"
	case FuncPluginLoad:
		return "plugin_load"
	case FuncPluginDispose:
		return "plugin_dispose"
	}
	return fmt.Sprintf("FuncID(%d)", uint32(f))
}

// Engine is the C-shaped surface of a compiler and bundler engine.
//
// Every pointer argument and result lives in the engine's Heap. Entry points
// return the raw result pointer; errors are SystemErrors meaning the entry
// point could not run to completion. A host operation (encode, call, decode,
// free) must hold the lease returned by Acquire for its whole duration.
type Engine interface {
	// Heap is the engine's linear memory and allocator.
	Heap() tsgobridge.Heap
	// Registry resolves callback tokens passed to this engine.
	Registry() *registry.Registry
	// Acquire waits for exclusive use of the engine.
	Acquire(ctx context.Context) (release func(), err error)

	TSCBuildFilesystem(ctx context.Context, projectPtr uint32, printErrors bool, configPtr uint32) (uint32, error)
	TSCBuildWithResolver(ctx context.Context, projectPtr uint32, printErrors bool, configPtr, callbacksPtr uint32) (uint32, error)
	ESBuildBuild(ctx context.Context, optionsPtr uint32) (uint32, error)
	ESBuildTransform(ctx context.Context, codePtr, optionsPtr uint32) (uint32, error)

	TSCFreeResult(ctx context.Context, ptr uint32) error
	ESBuildFreeBuildResult(ctx context.Context, ptr uint32) error
	ESBuildFreeTransformResult(ctx context.Context, ptr uint32) error

	Close(ctx context.Context) error
}
