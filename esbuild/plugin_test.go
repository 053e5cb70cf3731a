package esbuild

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
)

func resolveTo(p string) ResolveCallback {
	return func(context.Context, OnResolveArgs) (*OnResolveResult, error) {
		return &OnResolveResult{Path: Ptr(p)}, nil
	}
}

func newActive(t *testing.T, setup func(PluginBuild) error) *pluginInstance {
	t.Helper()
	pi := newPluginInstance("test", BuildOptions{})
	require.NoError(t, pi.setup(setup))
	return pi
}

func TestResolve_FirstMatchWins(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `^\./lib/`}, resolveTo("lib"))
		b.OnResolve(OnResolveOptions{Filter: `\.ts$`}, resolveTo("ts"))
		b.OnResolve(OnResolveOptions{Filter: `.*`}, resolveTo("any"))
		return nil
	})

	tests := []struct {
		path string
		want string
	}{
		{"./lib/util.ts", "lib"},
		{"./main.ts", "ts"},
		{"react", "any"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := pi.resolve(context.Background(), OnResolveArgs{Path: tt.path, Namespace: "file"}, nil)
			require.NotNil(t, res)
			assert.Equal(t, tt.want, *res.Path)
		})
	}
}

func TestResolve_NilAndFailingHooksFallThrough(t *testing.T) {
	var calls atomic.Int32
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `.*`}, func(context.Context, OnResolveArgs) (*OnResolveResult, error) {
			calls.Add(1)
			return nil, nil
		})
		b.OnResolve(OnResolveOptions{Filter: `.*`}, func(context.Context, OnResolveArgs) (*OnResolveResult, error) {
			calls.Add(1)
			return nil, stderrors.New("resolver down")
		})
		b.OnResolve(OnResolveOptions{Filter: `.*`}, func(context.Context, OnResolveArgs) (*OnResolveResult, error) {
			calls.Add(1)
			panic("boom")
		})
		b.OnResolve(OnResolveOptions{Filter: `.*`}, resolveTo("last"))
		return nil
	})

	res := pi.resolve(context.Background(), OnResolveArgs{Path: "x"}, nil)
	require.NotNil(t, res)
	assert.Equal(t, "last", *res.Path)
	assert.Equal(t, int32(3), calls.Load())

	require.Len(t, res.Warnings, 2)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "test", res.Warnings[0].PluginName)
	assert.Contains(t, res.Warnings[0].Text, "resolver down")
	assert.Contains(t, res.Warnings[1].Text, "boom")
}

func TestLoad_FailingHookReportedWithoutResult(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnLoad(OnLoadOptions{Filter: `.*`}, func(context.Context, OnLoadArgs) (*OnLoadResult, error) {
			return nil, stderrors.New("disk gone")
		})
		return nil
	})

	res := pi.load(context.Background(), OnLoadArgs{Path: "/a.ts"}, nil)
	require.NotNil(t, res)
	assert.Nil(t, res.Contents, "failed hook leaves loading to the bundler")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Text, "onLoad")
	assert.Contains(t, res.Warnings[0].Text, "disk gone")
}

func TestResolve_NamespaceMismatchSkipped(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `.*`, Namespace: "virtual"}, resolveTo("virtual"))
		b.OnResolve(OnResolveOptions{Filter: `.*`}, resolveTo("any"))
		return nil
	})

	res := pi.resolve(context.Background(), OnResolveArgs{Path: "x", Namespace: "file"}, nil)
	require.NotNil(t, res)
	assert.Equal(t, "any", *res.Path)

	res = pi.resolve(context.Background(), OnResolveArgs{Path: "x", Namespace: "virtual"}, nil)
	require.NotNil(t, res)
	assert.Equal(t, "virtual", *res.Path)
}

func TestResolve_NoMatch(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `^nothing$`}, resolveTo("x"))
		return nil
	})
	assert.Nil(t, pi.resolve(context.Background(), OnResolveArgs{Path: "other"}, nil))
}

func TestLoad_FirstMatchWins(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnLoad(OnLoadOptions{Filter: `\.css$`}, func(context.Context, OnLoadArgs) (*OnLoadResult, error) {
			return &OnLoadResult{Contents: Ptr("css"), Loader: LoaderCSS}, nil
		})
		b.OnLoad(OnLoadOptions{Filter: `.*`}, func(context.Context, OnLoadArgs) (*OnLoadResult, error) {
			return &OnLoadResult{Contents: Ptr(""), Loader: LoaderJS}, nil
		})
		return nil
	})

	res := pi.load(context.Background(), OnLoadArgs{Path: "/a.css"}, nil)
	require.NotNil(t, res)
	assert.Equal(t, LoaderCSS, res.Loader)

	res = pi.load(context.Background(), OnLoadArgs{Path: "/a.js"}, nil)
	require.NotNil(t, res)
	require.NotNil(t, res.Contents)
	assert.Equal(t, "", *res.Contents)
}

func TestSetup_InvalidFilter(t *testing.T) {
	pi := newPluginInstance("bad", BuildOptions{})
	err := pi.setup(func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `(`}, resolveTo("x"))
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindInvalidFilter, e.Kind)
	assert.Equal(t, "(", e.Value)
}

func TestSetup_EmptyFilter(t *testing.T) {
	pi := newPluginInstance("bad", BuildOptions{})
	err := pi.setup(func(b PluginBuild) error {
		b.OnLoad(OnLoadOptions{}, nil)
		return nil
	})
	assert.True(t, errors.IsConfiguration(err))
}

func TestSetup_ErrorAndPanic(t *testing.T) {
	cause := stderrors.New("no config")
	pi := newPluginInstance("failing", BuildOptions{})
	err := pi.setup(func(PluginBuild) error { return cause })
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.ErrorIs(t, err, cause)

	pi = newPluginInstance("panicking", BuildOptions{})
	err = pi.setup(func(PluginBuild) error { panic("setup exploded") })
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "setup exploded")
}

func TestSetup_RunsOnce(t *testing.T) {
	pi := newActive(t, nil)
	err := pi.setup(func(PluginBuild) error { return nil })
	assert.True(t, errors.IsConfiguration(err))
}

func TestHookOutsideSetup(t *testing.T) {
	var saved PluginBuild
	pi := newActive(t, func(b PluginBuild) error {
		saved = b
		return nil
	})

	saved.OnResolve(OnResolveOptions{Filter: `.*`}, resolveTo("late"))

	config, transport := pi.errs()
	assert.NoError(t, transport)
	require.Error(t, config)
	assert.True(t, errors.IsConfiguration(config))

	var e *errors.Error
	require.ErrorAs(t, config, &e)
	assert.Equal(t, errors.KindHookOutsideSetup, e.Kind)
	assert.Nil(t, pi.resolve(context.Background(), OnResolveArgs{Path: "x"}, nil))
}

func TestInitialOptions(t *testing.T) {
	opts := BuildOptions{EntryPoints: []string{"/src/index.ts"}, Plugins: []Plugin{{Name: "self"}}}
	var seen BuildOptions
	newPluginInstance("p", opts).setup(func(b PluginBuild) error {
		seen = b.InitialOptions()
		return nil
	})
	assert.Equal(t, []string{"/src/index.ts"}, seen.EntryPoints)
	assert.Nil(t, seen.Plugins)
}

func TestPluginBuildResolve(t *testing.T) {
	var saved PluginBuild
	pi := newActive(t, func(b PluginBuild) error {
		saved = b
		_, err := b.Resolve(context.Background(), "early", ResolveOptions{})
		assert.True(t, errors.IsConfiguration(err), "resolve during setup")
		return nil
	})

	_, err := saved.Resolve(context.Background(), "dep", ResolveOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsSystem(err))
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindUnsupported, e.Kind)

	var got ResolveOptions
	ctx := WithResolveFunc(context.Background(), func(_ context.Context, p string, o ResolveOptions) (*ResolveResult, error) {
		got = o
		return &ResolveResult{Path: "/resolved/" + p, Namespace: "file"}, nil
	})
	res, err := saved.Resolve(ctx, "dep", ResolveOptions{Importer: "/src/a.ts"})
	require.NoError(t, err)
	assert.Equal(t, "/resolved/dep", res.Path)
	assert.Equal(t, "test", got.PluginName)
	assert.Equal(t, ResolveJSImportStatement, got.Kind)
	assert.Equal(t, "/src/a.ts", got.Importer)

	pi.Drop()
	_, err = saved.Resolve(ctx, "dep", ResolveOptions{})
	assert.True(t, errors.IsConfiguration(err), "resolve after dispose")
}

func TestRunAll_ConcatenatesInOrder(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnStart(func(context.Context) (*HookResult, error) {
			return &HookResult{Warnings: []Message{{Text: "first"}}}, nil
		})
		b.OnStart(func(context.Context) (*HookResult, error) {
			return nil, stderrors.New("second failed")
		})
		b.OnStart(func(context.Context) (*HookResult, error) {
			return &HookResult{Errors: []Message{{Text: "third"}}}, nil
		})
		return nil
	})

	res := pi.runAll(context.Background(), pi.start, "onStart", nil)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "first", res.Warnings[0].Text)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "test", res.Errors[0].PluginName)
	assert.Contains(t, res.Errors[0].Text, "second failed")
	assert.Equal(t, "third", res.Errors[1].Text)
}

func TestDrop_Idempotent(t *testing.T) {
	var disposed atomic.Int32
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `.*`}, resolveTo("x"))
		b.OnDispose(func() { disposed.Add(1) })
		return nil
	})

	pi.Drop()
	pi.Drop()
	_, err := pi.Invoke(context.Background(), &engine.Call{Func: engine.FuncPluginDispose})
	require.NoError(t, err)

	assert.Equal(t, int32(1), disposed.Load())
	assert.Nil(t, pi.resolve(context.Background(), OnResolveArgs{Path: "x"}, nil))
}

func TestDrop_PanickingDisposeHook(t *testing.T) {
	var second atomic.Bool
	pi := newActive(t, func(b PluginBuild) error {
		b.OnDispose(func() { panic("dispose exploded") })
		b.OnDispose(func() { second.Store(true) })
		return nil
	})
	assert.NotPanics(t, pi.Drop)
	assert.True(t, second.Load())
}

func TestInvoke_ResolveRoundTrip(t *testing.T) {
	arena := abi.NewArena(4)
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `^\./skip`}, resolveTo("wrong"))
		b.OnResolve(OnResolveOptions{Filter: `.*`}, func(_ context.Context, args OnResolveArgs) (*OnResolveResult, error) {
			return &OnResolveResult{
				Path:       Ptr("/virtual/" + args.Path),
				Namespace:  Ptr("virtual"),
				External:   Ptr(false),
				PluginData: map[string]any{"importer": args.Importer},
			}, nil
		})
		return nil
	})

	list := abi.NewAllocationList()
	w := abi.NewWriter(arena, list)
	arg := EncodeResolveArgs(w, &OnResolveArgs{Path: "dep", Importer: "/src/main.ts", Kind: ResolveJSImportStatement})
	require.NoError(t, w.Err())
	baseline := arena.Live()

	ptr, err := pi.Invoke(context.Background(), &engine.Call{Heap: arena, Func: engine.FuncPluginResolve, Arg: arg})
	require.NoError(t, err)
	require.NotZero(t, ptr)

	rd := abi.NewReader(arena)
	res := DecodeResolveResult(rd, ptr)
	require.NoError(t, rd.Err())
	assert.Equal(t, "/virtual/dep", *res.Path)
	assert.Equal(t, "virtual", *res.Namespace)
	require.NotNil(t, res.External)
	assert.False(t, *res.External)
	assert.Nil(t, res.SideEffects)
	assert.Equal(t, map[string]any{"importer": "/src/main.ts"}, res.PluginData)

	require.NoError(t, abi.FreeRecord(arena, ptr, ResolveResultLayout))
	assert.Equal(t, baseline, arena.Live())

	list.FreeAndRelease(arena)
	assert.Zero(t, arena.Live())
}

func TestInvoke_NoResultIsNull(t *testing.T) {
	arena := abi.NewArena(4)
	pi := newActive(t, func(b PluginBuild) error {
		b.OnLoad(OnLoadOptions{Filter: `\.css$`}, func(context.Context, OnLoadArgs) (*OnLoadResult, error) {
			return &OnLoadResult{Contents: Ptr("")}, nil
		})
		return nil
	})

	list := abi.NewAllocationList()
	defer list.FreeAndRelease(arena)
	w := abi.NewWriter(arena, list)
	arg := EncodeLoadArgs(w, &OnLoadArgs{Path: "/a.ts", Namespace: "file"})
	require.NoError(t, w.Err())

	ptr, err := pi.Invoke(context.Background(), &engine.Call{Heap: arena, Func: engine.FuncPluginLoad, Arg: arg})
	require.NoError(t, err)
	assert.Zero(t, ptr)
}

func TestInvoke_StartWithoutMessagesIsNull(t *testing.T) {
	var ran atomic.Bool
	pi := newActive(t, func(b PluginBuild) error {
		b.OnStart(func(context.Context) (*HookResult, error) {
			ran.Store(true)
			return nil, nil
		})
		return nil
	})
	ptr, err := pi.Invoke(context.Background(), &engine.Call{Heap: abi.NewArena(1), Func: engine.FuncPluginStart})
	require.NoError(t, err)
	assert.Zero(t, ptr)
	assert.True(t, ran.Load())
}

func TestRef_DescribesRegisteredHooks(t *testing.T) {
	pi := newActive(t, func(b PluginBuild) error {
		b.OnResolve(OnResolveOptions{Filter: `^react$`}, resolveTo("react"))
		b.OnLoad(OnLoadOptions{Filter: `.*`, Namespace: "react-global"}, func(context.Context, OnLoadArgs) (*OnLoadResult, error) {
			return nil, nil
		})
		return nil
	})

	ref := pi.ref(7)
	assert.Equal(t, "test", ref.Name)
	assert.EqualValues(t, 7, ref.Token)
	assert.Equal(t, engine.FuncPluginResolve, ref.Resolve)
	assert.Equal(t, engine.FuncPluginLoad, ref.Load)
	assert.Equal(t, engine.FuncNone, ref.Start)
	assert.Equal(t, engine.FuncNone, ref.End)
	assert.Equal(t, engine.FuncNone, ref.Dispose)
	assert.Equal(t, []HookFilter{{Filter: `^react$`}}, ref.ResolveHooks)
	assert.Equal(t, []HookFilter{{Filter: `.*`, Namespace: "react-global"}}, ref.LoadHooks)
}
