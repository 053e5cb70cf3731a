// Package esbuild drives the bundler and transformer behind an engine.
//
// Options, results and plugin hooks are plain Go values. Build and Transform
// encode them into engine memory, call the matching entry point once and
// copy the result back out before releasing it.
//
// Plugins run on the host. Each plugin is set up once per build, its hooks
// are registered under a single callback token and the engine reaches them
// through the tsgo_host.invoke import:
//
//	plugin := esbuild.Plugin{
//		Name: "virtual",
//		Setup: func(b esbuild.PluginBuild) error {
//			b.OnResolve(esbuild.OnResolveOptions{Filter: `^virtual:`},
//				func(ctx context.Context, args esbuild.OnResolveArgs) (*esbuild.OnResolveResult, error) {
//					return &esbuild.OnResolveResult{Path: esbuild.Ptr(args.Path), Namespace: esbuild.Ptr("virtual")}, nil
//				})
//			return nil
//		},
//	}
//
// Resolve and load hooks are tried in registration order; the first hook
// whose namespace and filter match and which returns a non-nil result wins.
package esbuild
