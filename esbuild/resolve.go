package esbuild

import (
	"context"

	"github.com/wippyai/tsgo-bridge/errors"
)

// ResolveOptions describes the import PluginBuild.Resolve resolves.
// A zero Kind resolves as an import statement.
type ResolveOptions struct {
	PluginData any
	With       map[string]string
	PluginName string
	Importer   string
	Namespace  string
	ResolveDir string
	Kind       ResolveKind
}

// ResolveResult is what the build's resolver made of a path. A path nothing
// could resolve comes back with at least one error.
type ResolveResult struct {
	PluginData  any
	Path        string
	Namespace   string
	Suffix      string
	Errors      []Message
	Warnings    []Message
	External    bool
	SideEffects bool
}

// ResolveFunc resolves a path inside the build that is running.
type ResolveFunc func(ctx context.Context, path string, opts ResolveOptions) (*ResolveResult, error)

type resolveFuncKey struct{}

// WithResolveFunc returns a context carrying fn. Engines that can resolve
// from inside a running build pass such a context to hook callbacks, which
// makes PluginBuild.Resolve work there.
func WithResolveFunc(ctx context.Context, fn ResolveFunc) context.Context {
	return context.WithValue(ctx, resolveFuncKey{}, fn)
}

func resolveFuncFrom(ctx context.Context) (ResolveFunc, bool) {
	fn, ok := ctx.Value(resolveFuncKey{}).(ResolveFunc)
	return fn, ok && fn != nil
}

// Resolve runs the build's resolver, other plugins' resolve hooks
// included. It must be called from a hook with the hook's context.
func (pi *pluginInstance) Resolve(ctx context.Context, path string, opts ResolveOptions) (*ResolveResult, error) {
	if !pi.active() {
		return nil, pi.configError(errors.KindHookOutsideSetup, "resolve %q called outside a hook", path)
	}
	fn, ok := resolveFuncFrom(ctx)
	if !ok {
		return nil, errors.New(errors.PhaseCallback, errors.KindUnsupported).
			Path("plugin", pi.name).
			Detail("engine cannot resolve %q from inside a hook", path).
			Build()
	}
	if opts.PluginName == "" {
		opts.PluginName = pi.name
	}
	if opts.Kind == ResolveNone {
		opts.Kind = ResolveJSImportStatement
	}
	return fn(ctx, path, opts)
}
