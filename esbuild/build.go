package esbuild

import (
	"context"

	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/registry"
)

// Build runs the bundler once. Messages are always returned in the result
// and never printed, so opts.LogLevel is ignored.
//
// Every plugin is set up before the engine is called. A plugin whose setup
// fails, or that registers an invalid filter, aborts the build with a
// configuration error; dispose hooks of plugins already set up still run.
func Build(ctx context.Context, eng engine.Engine, opts *BuildOptions) (*BuildResult, error) {
	o := BuildOptions{}
	if opts != nil {
		o = *opts
	}
	o.LogLevel = LogLevelSilent

	release, err := eng.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	scope := eng.Registry().NewScope()
	defer scope.Close()

	instances, refs, err := setupPlugins(scope, &o)
	if err != nil {
		return nil, err
	}

	heap := eng.Heap()
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(heap)

	w := abi.NewWriter(heap, list)
	optionsPtr := EncodeBuildOptions(w, &o, refs)
	if err := w.Err(); err != nil {
		return nil, err
	}

	ptr, err := eng.ESBuildBuild(ctx, optionsPtr)
	if err != nil {
		return nil, err
	}
	if ptr == 0 {
		return nil, errors.NullResult(engine.ExportESBuildBuild)
	}

	buf := abi.Borrow(ptr, eng.ESBuildFreeBuildResult)
	defer releaseBuffer(ctx, buf, "build")

	rd := abi.NewReader(heap)
	res := DecodeBuildResult(rd, buf.Ptr())
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if err := pluginErrors(instances); err != nil {
		return nil, err
	}
	return res, nil
}

// BuildWithResolver bundles with every import resolved and loaded through
// resolver. Paths the resolver does not know fall through to the bundler.
func BuildWithResolver(ctx context.Context, eng engine.Engine, opts *BuildOptions, resolver tsgobridge.FileResolver) (*BuildResult, error) {
	o := BuildOptions{}
	if opts != nil {
		o = *opts
	}
	o.Plugins = append(append([]Plugin(nil), o.Plugins...), ResolverPlugin(resolver))
	return Build(ctx, eng, &o)
}

// BuildFiles bundles an in-memory file tree keyed by absolute path.
// Entry points name keys of files.
func BuildFiles(ctx context.Context, eng engine.Engine, files map[string]string, opts *BuildOptions) (*BuildResult, error) {
	return BuildWithResolver(ctx, eng, opts, tsgobridge.MapResolver(files))
}

func setupPlugins(scope *registry.Scope, o *BuildOptions) ([]*pluginInstance, []PluginRef, error) {
	instances := make([]*pluginInstance, 0, len(o.Plugins))
	refs := make([]PluginRef, 0, len(o.Plugins))
	for i, p := range o.Plugins {
		if p.Name == "" {
			return nil, nil, errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
				Detail("plugin at index %d has no name", i).
				Build()
		}
		pi := newPluginInstance(p.Name, *o)
		// Registered before setup so dispose hooks run even if setup fails.
		token, err := scope.Register(pi)
		if err != nil {
			return nil, nil, err
		}
		if err := pi.setup(p.Setup); err != nil {
			return nil, nil, err
		}
		instances = append(instances, pi)
		refs = append(refs, pi.ref(token))
	}
	return instances, refs, nil
}

// ref describes the instance's hooks for the engine.
func (pi *pluginInstance) ref(token registry.Token) PluginRef {
	r := PluginRef{Name: pi.name, Token: token}
	if len(pi.start) > 0 {
		r.Start = engine.FuncPluginStart
	}
	if len(pi.end) > 0 {
		r.End = engine.FuncPluginEnd
	}
	if len(pi.resolveHooks) > 0 {
		r.Resolve = engine.FuncPluginResolve
	}
	if len(pi.loadHooks) > 0 {
		r.Load = engine.FuncPluginLoad
	}
	if len(pi.dispose) > 0 {
		r.Dispose = engine.FuncPluginDispose
	}
	for _, h := range pi.resolveHooks {
		r.ResolveHooks = append(r.ResolveHooks, HookFilter{Filter: h.pattern, Namespace: h.namespace})
	}
	for _, h := range pi.loadHooks {
		r.LoadHooks = append(r.LoadHooks, HookFilter{Filter: h.pattern, Namespace: h.namespace})
	}
	return r
}

// pluginErrors reports the first error recorded by a plugin during the
// build: transport failures first, then late hook registrations.
func pluginErrors(instances []*pluginInstance) error {
	var config error
	for _, pi := range instances {
		c, t := pi.errs()
		if t != nil {
			return t
		}
		if config == nil {
			config = c
		}
	}
	return config
}

func releaseBuffer(ctx context.Context, buf *abi.EngineBuffer, what string) {
	if err := buf.Release(ctx); err != nil {
		engine.Logger().Warn("release "+what+" result", zap.Error(err))
	}
}
