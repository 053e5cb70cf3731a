package inproc

import (
	"context"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/esbuild"
)

func (e *Engine) build(ctx context.Context, o *esbuild.BuildOptions, refs []esbuild.PluginRef) *esbuild.BuildResult {
	opts := buildOptions(o)
	for _, ref := range refs {
		opts.Plugins = append(opts.Plugins, e.bridge(ctx, ref))
	}

	r := api.Build(opts)
	res := &esbuild.BuildResult{
		Errors:      messagesFromAPI(r.Errors),
		Warnings:    messagesFromAPI(r.Warnings),
		MangleCache: r.MangleCache,
	}
	for _, f := range r.OutputFiles {
		res.OutputFiles = append(res.OutputFiles, esbuild.OutputFile{Path: f.Path, Hash: f.Hash, Contents: f.Contents})
	}
	if o.Metafile {
		res.Metafile = &r.Metafile
	}

	engine.Logger().Debug("bundled",
		zap.Int("plugins", len(refs)),
		zap.Int("outputs", len(res.OutputFiles)),
		zap.Int("errors", len(res.Errors)))
	return res
}

func transform(code string, o *esbuild.TransformOptions) *esbuild.TransformResult {
	r := api.Transform(code, transformOptions(o))
	res := &esbuild.TransformResult{
		Errors:        messagesFromAPI(r.Errors),
		Warnings:      messagesFromAPI(r.Warnings),
		Code:          r.Code,
		MangleCache:   r.MangleCache,
		LegalComments: r.LegalComments,
	}
	if len(r.Map) > 0 {
		res.Map = r.Map
	}
	return res
}

type hookFilter struct {
	re        *regexp.Regexp
	namespace string
}

// hookFilters is the engine-side copy of a plugin's hook filters. A path
// that no filter matches never reaches the host.
type hookFilters []hookFilter

func compileHookFilters(name string, hooks []esbuild.HookFilter) hookFilters {
	var out hookFilters
	for _, h := range hooks {
		re, err := regexp.Compile(h.Filter)
		if err != nil {
			engine.Logger().Warn("skip hook with invalid filter",
				zap.String("plugin", name),
				zap.String("filter", h.Filter),
				zap.Error(err))
			continue
		}
		out = append(out, hookFilter{re: re, namespace: h.Namespace})
	}
	return out
}

func (f hookFilters) match(p, namespace string) bool {
	for _, h := range f {
		if (h.namespace == "" || h.namespace == namespace) && h.re.MatchString(p) {
			return true
		}
	}
	return false
}

// bridge turns a host plugin into a bundler plugin whose hooks call back
// into the host through the dispatcher.
func (e *Engine) bridge(ctx context.Context, ref esbuild.PluginRef) api.Plugin {
	return api.Plugin{
		Name: ref.Name,
		Setup: func(b api.PluginBuild) {
			ctx := esbuild.WithResolveFunc(ctx, resolveIn(b))
			if ref.Start != engine.FuncNone {
				b.OnStart(func() (api.OnStartResult, error) {
					hr := e.callHook(ctx, ref, ref.Start)
					return api.OnStartResult{Errors: messagesToAPI(hr.Errors), Warnings: messagesToAPI(hr.Warnings)}, nil
				})
			}
			if ref.End != engine.FuncNone {
				b.OnEnd(func(*api.BuildResult) (api.OnEndResult, error) {
					hr := e.callHook(ctx, ref, ref.End)
					return api.OnEndResult{Errors: messagesToAPI(hr.Errors), Warnings: messagesToAPI(hr.Warnings)}, nil
				})
			}
			if ref.Resolve != engine.FuncNone && len(ref.ResolveHooks) > 0 {
				filters := compileHookFilters(ref.Name, ref.ResolveHooks)
				b.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if !filters.match(args.Path, args.Namespace) {
						return api.OnResolveResult{}, nil
					}
					return e.callResolve(ctx, ref, args), nil
				})
			}
			if ref.Load != engine.FuncNone && len(ref.LoadHooks) > 0 {
				filters := compileHookFilters(ref.Name, ref.LoadHooks)
				b.OnLoad(api.OnLoadOptions{Filter: ".*"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if !filters.match(args.Path, args.Namespace) {
						return api.OnLoadResult{}, nil
					}
					return e.callLoad(ctx, ref, args), nil
				})
			}
			if ref.Dispose != engine.FuncNone {
				b.OnDispose(func() {
					hostCall[struct{}](context.Background(), e.dispatcher, e.arena, ref.Dispose, ref.Token, nil, nil, nil)
				})
			}
		},
	}
}

// resolveIn lets host hooks resolve through b. Hooks run inside the
// engine call that started the build, so no new lease is taken.
func resolveIn(b api.PluginBuild) esbuild.ResolveFunc {
	return func(_ context.Context, p string, o esbuild.ResolveOptions) (*esbuild.ResolveResult, error) {
		r := b.Resolve(p, api.ResolveOptions{
			PluginName: o.PluginName,
			Importer:   o.Importer,
			Namespace:  o.Namespace,
			ResolveDir: o.ResolveDir,
			Kind:       api.ResolveKind(o.Kind),
			PluginData: o.PluginData,
			With:       o.With,
		})
		return &esbuild.ResolveResult{
			PluginData:  r.PluginData,
			Path:        r.Path,
			Namespace:   r.Namespace,
			Suffix:      r.Suffix,
			Errors:      messagesFromAPI(r.Errors),
			Warnings:    messagesFromAPI(r.Warnings),
			External:    r.External,
			SideEffects: r.SideEffects,
		}, nil
	}
}

func (e *Engine) callHook(ctx context.Context, ref esbuild.PluginRef, fn engine.FuncID) *esbuild.HookResult {
	hr, ok := hostCall(ctx, e.dispatcher, e.arena, fn, ref.Token, esbuild.HookMessagesLayout, nil, esbuild.DecodeHookResult)
	if !ok {
		return &esbuild.HookResult{}
	}
	return hr
}

func (e *Engine) callResolve(ctx context.Context, ref esbuild.PluginRef, args api.OnResolveArgs) api.OnResolveResult {
	a := esbuild.OnResolveArgs{
		Path:       args.Path,
		Importer:   args.Importer,
		Namespace:  args.Namespace,
		ResolveDir: args.ResolveDir,
		Kind:       esbuild.ResolveKind(args.Kind),
		PluginData: args.PluginData,
		With:       args.With,
	}
	r, ok := hostCall(ctx, e.dispatcher, e.arena, ref.Resolve, ref.Token, esbuild.ResolveResultLayout,
		func(w *abi.Writer) uint32 { return esbuild.EncodeResolveArgs(w, &a) },
		esbuild.DecodeResolveResult)
	if !ok {
		return api.OnResolveResult{}
	}

	out := api.OnResolveResult{
		PluginName: deref(r.PluginName),
		Errors:     messagesToAPI(r.Errors),
		Warnings:   messagesToAPI(r.Warnings),
		Path:       deref(r.Path),
		External:   deref(r.External),
		Namespace:  deref(r.Namespace),
		Suffix:     deref(r.Suffix),
		PluginData: r.PluginData,
		WatchFiles: r.WatchFiles,
		WatchDirs:  r.WatchDirs,
	}
	if r.SideEffects != nil && !*r.SideEffects {
		out.SideEffects = api.SideEffectsFalse
	}
	return out
}

func (e *Engine) callLoad(ctx context.Context, ref esbuild.PluginRef, args api.OnLoadArgs) api.OnLoadResult {
	a := esbuild.OnLoadArgs{
		Path:       args.Path,
		Namespace:  args.Namespace,
		Suffix:     args.Suffix,
		PluginData: args.PluginData,
		With:       args.With,
	}
	r, ok := hostCall(ctx, e.dispatcher, e.arena, ref.Load, ref.Token, esbuild.LoadResultLayout,
		func(w *abi.Writer) uint32 { return esbuild.EncodeLoadArgs(w, &a) },
		esbuild.DecodeLoadResult)
	if !ok {
		return api.OnLoadResult{}
	}
	return api.OnLoadResult{
		PluginName: deref(r.PluginName),
		Errors:     messagesToAPI(r.Errors),
		Warnings:   messagesToAPI(r.Warnings),
		Contents:   r.Contents,
		ResolveDir: deref(r.ResolveDir),
		Loader:     api.Loader(r.Loader),
		PluginData: r.PluginData,
		WatchFiles: r.WatchFiles,
		WatchDirs:  r.WatchDirs,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func engines(in []esbuild.Engine) []api.Engine {
	var out []api.Engine
	for _, e := range in {
		out = append(out, api.Engine{Name: api.EngineName(e.Name), Version: e.Version})
	}
	return out
}

func logOverride(in map[string]esbuild.LogLevel) map[string]api.LogLevel {
	if in == nil {
		return nil
	}
	out := make(map[string]api.LogLevel, len(in))
	for k, v := range in {
		out[k] = api.LogLevel(v)
	}
	return out
}

func buildOptions(o *esbuild.BuildOptions) api.BuildOptions {
	c := &o.CommonOptions
	opts := api.BuildOptions{
		Color:             api.StderrColor(c.Color),
		LogLevel:          api.LogLevel(c.LogLevel),
		LogLimit:          c.LogLimit,
		LogOverride:       logOverride(c.LogOverride),
		Sourcemap:         api.SourceMap(c.Sourcemap),
		SourceRoot:        c.SourceRoot,
		SourcesContent:    api.SourcesContent(c.SourcesContent),
		Target:            api.Target(c.Target),
		Engines:           engines(c.Engines),
		Supported:         c.Supported,
		MangleProps:       c.MangleProps,
		ReserveProps:      c.ReserveProps,
		MangleQuoted:      api.MangleQuoted(c.MangleQuoted),
		MangleCache:       c.MangleCache,
		Drop:              api.Drop(c.Drop),
		DropLabels:        c.DropLabels,
		MinifyWhitespace:  c.MinifyWhitespace,
		MinifyIdentifiers: c.MinifyIdentifiers,
		MinifySyntax:      c.MinifySyntax,
		LineLimit:         c.LineLimit,
		Charset:           api.Charset(c.Charset),
		TreeShaking:       api.TreeShaking(c.TreeShaking),
		IgnoreAnnotations: c.IgnoreAnnotations,
		LegalComments:     api.LegalComments(c.LegalComments),
		JSX:               api.JSX(c.JSX),
		JSXFactory:        c.JSXFactory,
		JSXFragment:       c.JSXFragment,
		JSXImportSource:   c.JSXImportSource,
		JSXDev:            c.JSXDev,
		JSXSideEffects:    c.JSXSideEffects,
		Define:            c.Define,
		Pure:              c.Pure,
		KeepNames:         c.KeepNames,
		GlobalName:        c.GlobalName,
		TsconfigRaw:       c.TSConfigRaw,
		Platform:          api.Platform(c.Platform),
		Format:            api.Format(c.Format),

		Bundle:            o.Bundle,
		PreserveSymlinks:  o.PreserveSymlinks,
		Splitting:         o.Splitting,
		Outfile:           o.Outfile,
		Metafile:          o.Metafile,
		Outdir:            o.Outdir,
		Outbase:           o.Outbase,
		AbsWorkingDir:     o.AbsWorkingDir,
		External:          o.External,
		Packages:          api.Packages(o.Packages),
		Alias:             o.Alias,
		MainFields:        o.MainFields,
		Conditions:        o.Conditions,
		ResolveExtensions: o.ResolveExtensions,
		Tsconfig:          o.TSConfig,
		OutExtension:      o.OutExtension,
		PublicPath:        o.PublicPath,
		Inject:            o.Inject,
		Banner:            o.Banner,
		Footer:            o.Footer,
		NodePaths:         o.NodePaths,
		EntryNames:        o.EntryNames,
		ChunkNames:        o.ChunkNames,
		AssetNames:        o.AssetNames,
		EntryPoints:       o.EntryPoints,
		Write:             o.Write,
		AllowOverwrite:    o.AllowOverwrite,
	}
	if o.Loader != nil {
		opts.Loader = make(map[string]api.Loader, len(o.Loader))
		for ext, l := range o.Loader {
			opts.Loader[ext] = api.Loader(l)
		}
	}
	for _, ep := range o.EntryPointsAdvanced {
		opts.EntryPointsAdvanced = append(opts.EntryPointsAdvanced, api.EntryPoint{InputPath: ep.InputPath, OutputPath: ep.OutputPath})
	}
	if s := o.Stdin; s != nil {
		opts.Stdin = &api.StdinOptions{
			Contents:   s.Contents,
			ResolveDir: s.ResolveDir,
			Sourcefile: s.Sourcefile,
			Loader:     api.Loader(s.Loader),
		}
	}
	return opts
}

func transformOptions(o *esbuild.TransformOptions) api.TransformOptions {
	c := &o.CommonOptions
	return api.TransformOptions{
		Color:             api.StderrColor(c.Color),
		LogLevel:          api.LogLevel(c.LogLevel),
		LogLimit:          c.LogLimit,
		LogOverride:       logOverride(c.LogOverride),
		Sourcemap:         api.SourceMap(c.Sourcemap),
		SourceRoot:        c.SourceRoot,
		SourcesContent:    api.SourcesContent(c.SourcesContent),
		Target:            api.Target(c.Target),
		Engines:           engines(c.Engines),
		Supported:         c.Supported,
		Platform:          api.Platform(c.Platform),
		Format:            api.Format(c.Format),
		GlobalName:        c.GlobalName,
		MangleProps:       c.MangleProps,
		ReserveProps:      c.ReserveProps,
		MangleQuoted:      api.MangleQuoted(c.MangleQuoted),
		MangleCache:       c.MangleCache,
		Drop:              api.Drop(c.Drop),
		DropLabels:        c.DropLabels,
		MinifyWhitespace:  c.MinifyWhitespace,
		MinifyIdentifiers: c.MinifyIdentifiers,
		MinifySyntax:      c.MinifySyntax,
		LineLimit:         c.LineLimit,
		Charset:           api.Charset(c.Charset),
		TreeShaking:       api.TreeShaking(c.TreeShaking),
		IgnoreAnnotations: c.IgnoreAnnotations,
		LegalComments:     api.LegalComments(c.LegalComments),
		JSX:               api.JSX(c.JSX),
		JSXFactory:        c.JSXFactory,
		JSXFragment:       c.JSXFragment,
		JSXImportSource:   c.JSXImportSource,
		JSXDev:            c.JSXDev,
		JSXSideEffects:    c.JSXSideEffects,
		TsconfigRaw:       c.TSConfigRaw,
		Define:            c.Define,
		Pure:              c.Pure,
		KeepNames:         c.KeepNames,

		Banner:     o.Banner,
		Footer:     o.Footer,
		Sourcefile: o.Sourcefile,
		Loader:     api.Loader(o.Loader),
	}
}

func locationFromAPI(l *api.Location) *esbuild.Location {
	if l == nil {
		return nil
	}
	return &esbuild.Location{
		File:       l.File,
		Namespace:  l.Namespace,
		Line:       l.Line,
		Column:     l.Column,
		Length:     l.Length,
		LineText:   l.LineText,
		Suggestion: l.Suggestion,
	}
}

func locationToAPI(l *esbuild.Location) *api.Location {
	if l == nil {
		return nil
	}
	return &api.Location{
		File:       l.File,
		Namespace:  l.Namespace,
		Line:       l.Line,
		Column:     l.Column,
		Length:     l.Length,
		LineText:   l.LineText,
		Suggestion: l.Suggestion,
	}
}

func messagesFromAPI(in []api.Message) []esbuild.Message {
	var out []esbuild.Message
	for _, m := range in {
		msg := esbuild.Message{
			ID:         m.ID,
			PluginName: m.PluginName,
			Text:       m.Text,
			Location:   locationFromAPI(m.Location),
			Detail:     m.Detail,
		}
		for _, n := range m.Notes {
			msg.Notes = append(msg.Notes, esbuild.Note{Text: n.Text, Location: locationFromAPI(n.Location)})
		}
		out = append(out, msg)
	}
	return out
}

func messagesToAPI(in []esbuild.Message) []api.Message {
	var out []api.Message
	for _, m := range in {
		msg := api.Message{
			ID:         m.ID,
			PluginName: m.PluginName,
			Text:       m.Text,
			Location:   locationToAPI(m.Location),
			Detail:     m.Detail,
		}
		for _, n := range m.Notes {
			msg.Notes = append(msg.Notes, api.Note{Text: n.Text, Location: locationToAPI(n.Location)})
		}
		out = append(out, msg)
	}
	return out
}
