package esbuild_test

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine/inproc"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/esbuild"
	"github.com/wippyai/tsgo-bridge/registry"
)

func newEngine(t *testing.T) *inproc.Engine {
	t.Helper()
	eng := inproc.New(inproc.WithRegistry(registry.New()))
	t.Cleanup(func() { _ = eng.Close(context.Background()) })
	return eng
}

// assertReleased checks that a finished build left nothing behind.
func assertReleased(t *testing.T, eng *inproc.Engine) {
	t.Helper()
	assert.Zero(t, eng.Registry().Len(), "registered callbacks")
	assert.Zero(t, eng.Arena().Live(), "live allocations")
}

func virtualPlugin(contents string, firstHookCalls *atomic.Int32) esbuild.Plugin {
	return esbuild.Plugin{
		Name: "virtual",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnResolve(esbuild.OnResolveOptions{Filter: `^never-matches$`}, func(context.Context, esbuild.OnResolveArgs) (*esbuild.OnResolveResult, error) {
				firstHookCalls.Add(1)
				return &esbuild.OnResolveResult{Path: esbuild.Ptr("wrong"), Namespace: esbuild.Ptr("virtual")}, nil
			})
			b.OnResolve(esbuild.OnResolveOptions{Filter: `.*`}, func(_ context.Context, args esbuild.OnResolveArgs) (*esbuild.OnResolveResult, error) {
				return &esbuild.OnResolveResult{Path: esbuild.Ptr(args.Path), Namespace: esbuild.Ptr("virtual")}, nil
			})
			b.OnLoad(esbuild.OnLoadOptions{Filter: `.*`, Namespace: "virtual"}, func(_ context.Context, args esbuild.OnLoadArgs) (*esbuild.OnLoadResult, error) {
				if args.Path != "entry" {
					return nil, nil
				}
				return &esbuild.OnLoadResult{Contents: esbuild.Ptr(contents), Loader: esbuild.LoaderJS}, nil
			})
			return nil
		},
	}
}

func TestBuild_SecondResolveHookAnswers(t *testing.T) {
	eng := newEngine(t)
	var firstCalls atomic.Int32

	res, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{
		EntryPoints: []string{"entry"},
		Bundle:      true,
		Outfile:     "/out/bundle.js",
		Plugins:     []esbuild.Plugin{virtualPlugin(`console.log("from-virtual")`, &firstCalls)},
	})
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Errors)

	out, ok := res.Output("bundle.js")
	require.True(t, ok)
	assert.Contains(t, out.Text(), "from-virtual")
	assert.Zero(t, firstCalls.Load())
	assertReleased(t, eng)
}

func TestBuild_HookResolvesThroughBuild(t *testing.T) {
	eng := newEngine(t)
	var targetCalls atomic.Int32
	aliasing := esbuild.Plugin{
		Name: "alias",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnResolve(esbuild.OnResolveOptions{Filter: `^alias:`}, func(ctx context.Context, args esbuild.OnResolveArgs) (*esbuild.OnResolveResult, error) {
				r, err := b.Resolve(ctx, strings.TrimPrefix(args.Path, "alias:"), esbuild.ResolveOptions{
					Importer:   args.Importer,
					Namespace:  args.Namespace,
					ResolveDir: args.ResolveDir,
				})
				if err != nil {
					return nil, err
				}
				if len(r.Errors) > 0 {
					return &esbuild.OnResolveResult{Errors: r.Errors}, nil
				}
				return &esbuild.OnResolveResult{Path: &r.Path, Namespace: &r.Namespace}, nil
			})
			b.OnResolve(esbuild.OnResolveOptions{Filter: `^target$`}, func(context.Context, esbuild.OnResolveArgs) (*esbuild.OnResolveResult, error) {
				targetCalls.Add(1)
				return &esbuild.OnResolveResult{Path: esbuild.Ptr("/virtual/target.js"), Namespace: esbuild.Ptr("virtual")}, nil
			})
			b.OnLoad(esbuild.OnLoadOptions{Filter: `.*`, Namespace: "virtual"}, func(context.Context, esbuild.OnLoadArgs) (*esbuild.OnLoadResult, error) {
				return &esbuild.OnLoadResult{Contents: esbuild.Ptr(`export default "from-target"`), Loader: esbuild.LoaderJS}, nil
			})
			return nil
		},
	}

	files := map[string]string{
		"/src/index.js": "import v from \"alias:target\"\nconsole.log(v)\n",
	}
	res, err := esbuild.BuildFiles(context.Background(), eng, files, &esbuild.BuildOptions{
		EntryPoints: []string{"/src/index.js"},
		Bundle:      true,
		Outfile:     "/out/app.js",
		Plugins:     []esbuild.Plugin{aliasing},
	})
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Errors)

	out, ok := res.Output("app.js")
	require.True(t, ok)
	assert.Contains(t, out.Text(), "from-target")
	assert.Equal(t, int32(1), targetCalls.Load())
	assertReleased(t, eng)
}

func TestBuildFiles(t *testing.T) {
	eng := newEngine(t)
	files := map[string]string{
		"/src/index.ts": `import { greet } from "./greet"
console.log(greet("bridge"))`,
		"/src/greet.ts": `export function greet(name: string): string {
	return "hello " + name
}`,
	}

	opts := &esbuild.BuildOptions{
		EntryPoints: []string{"/src/index.ts"},
		Bundle:      true,
		Outfile:     "/out/app.js",
	}
	opts.Format = esbuild.FormatESModule

	res, err := esbuild.BuildFiles(context.Background(), eng, files, opts)
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Errors)
	require.Len(t, res.OutputFiles, 1)

	out, ok := res.Output("app.js")
	require.True(t, ok)
	assert.Contains(t, out.Text(), `"hello "`)
	assert.NotContains(t, out.Text(), ": string")
	assertReleased(t, eng)
}

func TestBuildFiles_MissingImport(t *testing.T) {
	eng := newEngine(t)
	files := map[string]string{
		"/src/index.ts": `import "./missing"`,
	}

	res, err := esbuild.BuildFiles(context.Background(), eng, files, &esbuild.BuildOptions{
		EntryPoints: []string{"/src/index.ts"},
		Bundle:      true,
		Outfile:     "/out/app.js",
	})
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	assert.Empty(t, res.OutputFiles)
	assertReleased(t, eng)
}

func TestBuildWithResolver_ErrorBecomesMessage(t *testing.T) {
	eng := newEngine(t)
	resolver := tsgobridge.ResolverFunc(func(_ context.Context, p string) (tsgobridge.Entry, error) {
		if p == "/src/index.ts" {
			return tsgobridge.FileEntry(`import "./broken"`), nil
		}
		return tsgobridge.Entry{}, stderrors.New("storage offline")
	})

	res, err := esbuild.BuildWithResolver(context.Background(), eng, &esbuild.BuildOptions{
		EntryPoints: []string{"/src/index.ts"},
		Bundle:      true,
		Outfile:     "/out/app.js",
	}, resolver)
	require.NoError(t, err)
	require.True(t, res.HasErrors())

	var found bool
	for _, m := range res.Errors {
		if strings.Contains(m.Text, "./broken") && strings.Contains(m.Text, "storage offline") {
			found = true
		}
	}
	assert.True(t, found, "%v", res.Errors)
	assertReleased(t, eng)
}

func TestReactGlobalPlugin(t *testing.T) {
	eng := newEngine(t)
	files := map[string]string{
		"/src/app.jsx": `import React from "react"
console.log(React.createElement("div"))`,
	}

	for _, tc := range []struct {
		global string
		want   string
	}{
		{"", "module.exports = " + esbuild.DefaultReactGlobal},
		{"window.React", "module.exports = window.React"},
	} {
		res, err := esbuild.BuildFiles(context.Background(), eng, files, &esbuild.BuildOptions{
			EntryPoints: []string{"/src/app.jsx"},
			Bundle:      true,
			Outfile:     "/out/app.js",
			Plugins:     []esbuild.Plugin{esbuild.ReactGlobalPlugin(tc.global)},
		})
		require.NoError(t, err)
		require.False(t, res.HasErrors(), "%v", res.Errors)

		out, ok := res.Output("app.js")
		require.True(t, ok)
		assert.Contains(t, out.Text(), tc.want)
	}
}

func TestBuild_StartHookErrorsReported(t *testing.T) {
	eng := newEngine(t)
	var firstCalls atomic.Int32
	refusing := esbuild.Plugin{
		Name: "gate",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnStart(func(context.Context) (*esbuild.HookResult, error) {
				return &esbuild.HookResult{Errors: []esbuild.Message{{Text: "refused to start"}}}, nil
			})
			return nil
		},
	}

	res, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{
		EntryPoints: []string{"entry"},
		Bundle:      true,
		Outfile:     "/out/bundle.js",
		Plugins:     []esbuild.Plugin{refusing, virtualPlugin(`console.log(1)`, &firstCalls)},
	})
	require.NoError(t, err)
	require.True(t, res.HasErrors())
	assert.Contains(t, res.Errors[0].Text, "refused to start")
	assertReleased(t, eng)
}

func TestBuild_DisposeRunsOnce(t *testing.T) {
	eng := newEngine(t)
	var disposed, firstCalls atomic.Int32
	watcher := esbuild.Plugin{
		Name: "watcher",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnDispose(func() { disposed.Add(1) })
			return nil
		},
	}

	_, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{
		EntryPoints: []string{"entry"},
		Bundle:      true,
		Outfile:     "/out/bundle.js",
		Plugins:     []esbuild.Plugin{watcher, virtualPlugin(`console.log(1)`, &firstCalls)},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), disposed.Load())
	assertReleased(t, eng)
}

func TestBuild_SetupFailure(t *testing.T) {
	eng := newEngine(t)
	var disposed atomic.Int32
	ok := esbuild.Plugin{
		Name: "ok",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnDispose(func() { disposed.Add(1) })
			return nil
		},
	}
	failing := esbuild.Plugin{
		Name:  "failing",
		Setup: func(esbuild.PluginBuild) error { return stderrors.New("missing credentials") },
	}

	res, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{
		EntryPoints: []string{"entry"},
		Plugins:     []esbuild.Plugin{ok, failing},
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, int32(1), disposed.Load())
	assertReleased(t, eng)
}

func TestBuild_UnnamedPlugin(t *testing.T) {
	eng := newEngine(t)
	_, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{
		Plugins: []esbuild.Plugin{{Setup: func(esbuild.PluginBuild) error { return nil }}},
	})
	assert.True(t, errors.IsConfiguration(err))
}

func TestBuild_InvalidFilter(t *testing.T) {
	eng := newEngine(t)
	bad := esbuild.Plugin{
		Name: "bad-filter",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnLoad(esbuild.OnLoadOptions{Filter: `[`}, func(context.Context, esbuild.OnLoadArgs) (*esbuild.OnLoadResult, error) {
				return nil, nil
			})
			return nil
		},
	}

	_, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{Plugins: []esbuild.Plugin{bad}})
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindInvalidFilter, e.Kind)
}

func TestBuild_LateHookRegistration(t *testing.T) {
	eng := newEngine(t)
	var firstCalls atomic.Int32
	late := esbuild.Plugin{
		Name: "late",
		Setup: func(b esbuild.PluginBuild) error {
			b.OnStart(func(context.Context) (*esbuild.HookResult, error) {
				b.OnEnd(func(context.Context) (*esbuild.HookResult, error) { return nil, nil })
				return nil, nil
			})
			return nil
		},
	}

	_, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{
		EntryPoints: []string{"entry"},
		Bundle:      true,
		Outfile:     "/out/bundle.js",
		Plugins:     []esbuild.Plugin{late, virtualPlugin(`console.log(1)`, &firstCalls)},
	})
	require.Error(t, err)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindHookOutsideSetup, e.Kind)
	assert.True(t, errors.IsConfiguration(err))
	assertReleased(t, eng)
}

func TestBuild_Metafile(t *testing.T) {
	eng := newEngine(t)
	var firstCalls atomic.Int32
	opts := &esbuild.BuildOptions{
		EntryPoints: []string{"entry"},
		Bundle:      true,
		Outfile:     "/out/bundle.js",
		Plugins:     []esbuild.Plugin{virtualPlugin(`console.log(1)`, &firstCalls)},
	}

	res, err := esbuild.Build(context.Background(), eng, opts)
	require.NoError(t, err)
	assert.Nil(t, res.Metafile)

	opts.Metafile = true
	res, err = esbuild.Build(context.Background(), eng, opts)
	require.NoError(t, err)
	require.NotNil(t, res.Metafile)
	assert.Contains(t, *res.Metafile, `"inputs"`)
}

func TestBuild_ClosedEngine(t *testing.T) {
	eng := inproc.New(inproc.WithRegistry(registry.New()))
	require.NoError(t, eng.Close(context.Background()))
	require.NoError(t, eng.Close(context.Background()))

	_, err := esbuild.Build(context.Background(), eng, &esbuild.BuildOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsSystem(err))

	_, err = esbuild.Transform(context.Background(), eng, "1", nil)
	assert.True(t, errors.IsSystem(err))
}

func TestTransform(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	t.Run("typescript", func(t *testing.T) {
		res, err := esbuild.Transform(ctx, eng, "const n: number = 1\nexport default n\n",
			esbuild.TypeScriptTransform(esbuild.ESNext, esbuild.JSXTransform))
		require.NoError(t, err)
		require.False(t, res.HasErrors(), "%v", res.Errors)
		assert.NotContains(t, string(res.Code), ": number")
		assert.Nil(t, res.Map)
	})

	t.Run("minified", func(t *testing.T) {
		src := "export function add(first, second) {\n  return first + second\n}\n"
		res, err := esbuild.Transform(ctx, eng, src, esbuild.MinifiedTransform(esbuild.ES2020, esbuild.FormatESModule))
		require.NoError(t, err)
		require.False(t, res.HasErrors(), "%v", res.Errors)
		assert.Less(t, len(res.Code), len(src))
		assert.NotContains(t, string(res.Code), "second")
	})

	t.Run("jsx factory", func(t *testing.T) {
		res, err := esbuild.Transform(ctx, eng, "const el = <div>hi</div>\n",
			esbuild.JSXPreset(esbuild.JSXTransform, "h", "Fragment"))
		require.NoError(t, err)
		require.False(t, res.HasErrors(), "%v", res.Errors)
		assert.Contains(t, string(res.Code), `h("div"`)
	})

	t.Run("source map", func(t *testing.T) {
		opts := esbuild.TypeScriptTransform(esbuild.ESNext, esbuild.JSXTransform)
		opts.Sourcemap = esbuild.SourceMapExternal
		opts.Sourcefile = "input.ts"
		res, err := esbuild.Transform(ctx, eng, "let x: string = 'a'\n", opts)
		require.NoError(t, err)
		require.NotNil(t, res.Map)
		assert.Contains(t, string(res.Map), "input.ts")
	})

	t.Run("syntax error", func(t *testing.T) {
		res, err := esbuild.Transform(ctx, eng, "let = ;", nil)
		require.NoError(t, err)
		require.True(t, res.HasErrors())
		require.NotNil(t, res.Errors[0].Location)
		assert.Equal(t, 1, res.Errors[0].Location.Line)
	})

	assertReleased(t, eng)
}

func TestBuildOptions_WireRoundTrip(t *testing.T) {
	arena := abi.NewArena(4)
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(arena)

	in := &esbuild.BuildOptions{
		EntryPoints: []string{"/src/a.ts", "/src/b.ts"},
		EntryPointsAdvanced: []esbuild.EntryPoint{
			{InputPath: "/src/c.ts", OutputPath: "c"},
		},
		External:     []string{"react"},
		Outdir:       "/out",
		Bundle:       true,
		Splitting:    true,
		Metafile:     true,
		Alias:        map[string]string{"lodash": "lodash-es"},
		Loader:       map[string]esbuild.Loader{".svg": esbuild.LoaderText},
		Banner:       map[string]string{"js": "/* banner */"},
		OutExtension: map[string]string{".js": ".mjs"},
		Stdin:        &esbuild.Stdin{Contents: "export {}", Sourcefile: "stdin.ts", Loader: esbuild.LoaderTS},
	}
	in.Format = esbuild.FormatESModule
	in.Platform = esbuild.PlatformNode
	in.Target = esbuild.ES2022
	in.Define = map[string]string{"DEBUG": "false"}
	in.Engines = []esbuild.Engine{{Name: esbuild.EngineNode, Version: "20"}}
	in.Minify = true
	in.MangleCache = map[string]any{"_x": "a"}

	refs := []esbuild.PluginRef{{
		Name:         "p",
		Token:        3,
		Resolve:      4,
		ResolveHooks: []esbuild.HookFilter{{Filter: `^a$`, Namespace: "file"}},
	}}

	w := abi.NewWriter(arena, list)
	ptr := esbuild.EncodeBuildOptions(w, in, refs)
	require.NoError(t, w.Err())

	rd := abi.NewReader(arena)
	out, gotRefs := esbuild.DecodeBuildOptions(rd, ptr)
	require.NoError(t, rd.Err())

	assert.Equal(t, in.EntryPoints, out.EntryPoints)
	assert.Equal(t, in.EntryPointsAdvanced, out.EntryPointsAdvanced)
	assert.Equal(t, in.External, out.External)
	assert.Equal(t, in.Outdir, out.Outdir)
	assert.True(t, out.Bundle)
	assert.True(t, out.Splitting)
	assert.True(t, out.Metafile)
	assert.False(t, out.Write)
	assert.Equal(t, in.Alias, out.Alias)
	assert.Equal(t, in.Loader, out.Loader)
	assert.Equal(t, in.Banner, out.Banner)
	assert.Equal(t, in.OutExtension, out.OutExtension)
	assert.Equal(t, in.Stdin, out.Stdin)
	assert.Equal(t, in.Format, out.Format)
	assert.Equal(t, in.Platform, out.Platform)
	assert.Equal(t, in.Target, out.Target)
	assert.Equal(t, in.Define, out.Define)
	assert.Equal(t, in.Engines, out.Engines)
	assert.False(t, out.Minify)
	assert.True(t, out.MinifyWhitespace)
	assert.True(t, out.MinifyIdentifiers)
	assert.True(t, out.MinifySyntax)
	assert.Equal(t, in.MangleCache, out.MangleCache)
	assert.Nil(t, out.Footer)
	assert.Equal(t, refs, gotRefs)
}

func TestBuildOptions_EmptyListsStayDistinct(t *testing.T) {
	arena := abi.NewArena(4)
	list := abi.NewAllocationList()
	defer list.FreeAndRelease(arena)

	w := abi.NewWriter(arena, list)
	empty := esbuild.EncodeBuildOptions(w, &esbuild.BuildOptions{
		Conditions:        []string{},
		MainFields:        []string{},
		ResolveExtensions: []string{},
	}, nil)
	unset := esbuild.EncodeBuildOptions(w, &esbuild.BuildOptions{}, nil)
	watched := esbuild.EncodeResolveResult(w, &esbuild.OnResolveResult{WatchFiles: []string{}})
	require.NoError(t, w.Err())

	rd := abi.NewReader(arena)
	got, _ := esbuild.DecodeBuildOptions(rd, empty)
	require.NoError(t, rd.Err())
	for name, v := range map[string][]string{
		"conditions":         got.Conditions,
		"main fields":        got.MainFields,
		"resolve extensions": got.ResolveExtensions,
	} {
		assert.NotNil(t, v, name)
		assert.Empty(t, v, name)
	}

	got, _ = esbuild.DecodeBuildOptions(rd, unset)
	require.NoError(t, rd.Err())
	assert.Nil(t, got.Conditions)
	assert.Nil(t, got.MainFields)
	assert.Nil(t, got.ResolveExtensions)

	rr := esbuild.DecodeResolveResult(rd, watched)
	require.NoError(t, rd.Err())
	assert.NotNil(t, rr.WatchFiles)
	assert.Empty(t, rr.WatchFiles)
}

func TestBuild_PlatformReachesBundler(t *testing.T) {
	eng := newEngine(t)
	build := func(p esbuild.Platform) *esbuild.BuildResult {
		t.Helper()
		opts := &esbuild.BuildOptions{
			Stdin:   &esbuild.Stdin{Contents: "import fs from \"fs\"\nconsole.log(fs)\n", Loader: esbuild.LoaderJS},
			Bundle:  true,
			Outfile: "/out/app.js",
		}
		opts.Platform = p
		res, err := esbuild.Build(context.Background(), eng, opts)
		require.NoError(t, err)
		return res
	}

	node := build(esbuild.PlatformNode)
	require.False(t, node.HasErrors(), "%v", node.Errors)
	out, ok := node.Output("app.js")
	require.True(t, ok)
	assert.Contains(t, out.Text(), `require("fs")`)

	browser := build(esbuild.PlatformBrowser)
	require.True(t, browser.HasErrors())
	assert.Contains(t, browser.Errors[0].Text, `"fs"`)

	assert.True(t, build(esbuild.PlatformNeutral).HasErrors())
	assertReleased(t, eng)
}
