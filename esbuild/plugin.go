package esbuild

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/syncadapter"
)

// Plugin extends a build with host-side hooks. Setup runs once per build
// and registers hooks on the PluginBuild it is given. A Setup error aborts
// the build with a configuration error.
type Plugin struct {
	Setup func(PluginBuild) error
	Name  string
}

// PluginBuild registers hooks during Setup. Registering a hook after Setup
// has returned is a configuration error reported by the build.
type PluginBuild interface {
	// InitialOptions returns a copy of the options the build was started with.
	InitialOptions() BuildOptions
	OnStart(cb HookCallback)
	OnEnd(cb HookCallback)
	OnResolve(opts OnResolveOptions, cb ResolveCallback)
	OnLoad(opts OnLoadOptions, cb LoadCallback)
	OnDispose(cb func())
	// Resolve resolves path the way the build would resolve an import.
	// It is only available to hooks, called with the hook's context.
	Resolve(ctx context.Context, path string, opts ResolveOptions) (*ResolveResult, error)
}

// OnResolveOptions selects the paths a resolve hook sees. Filter is a Go
// regular expression matched against the import path; an empty Namespace
// matches every namespace.
type OnResolveOptions struct {
	Filter    string
	Namespace string
}

type OnLoadOptions struct {
	Filter    string
	Namespace string
}

type OnResolveArgs struct {
	PluginData any
	With       map[string]string
	Path       string
	Importer   string
	Namespace  string
	ResolveDir string
	Kind       ResolveKind
}

// OnResolveResult answers a resolve hook. Nil fields are left to the bundler.
type OnResolveResult struct {
	PluginData  any
	Path        *string
	Namespace   *string
	Suffix      *string
	PluginName  *string
	External    *bool
	SideEffects *bool
	Errors      []Message
	Warnings    []Message
	WatchFiles  []string
	WatchDirs   []string
}

type OnLoadArgs struct {
	PluginData any
	With       map[string]string
	Path       string
	Namespace  string
	Suffix     string
}

// OnLoadResult answers a load hook. A nil Contents with no errors lets the
// bundler load the file itself; an empty Contents is an empty module.
type OnLoadResult struct {
	PluginData any
	Contents   *string
	ResolveDir *string
	PluginName *string
	Errors     []Message
	Warnings   []Message
	WatchFiles []string
	WatchDirs  []string
	Loader     Loader
}

// HookResult is what start and end hooks report.
type HookResult struct {
	Errors   []Message
	Warnings []Message
}

type (
	ResolveCallback func(ctx context.Context, args OnResolveArgs) (*OnResolveResult, error)
	LoadCallback    func(ctx context.Context, args OnLoadArgs) (*OnLoadResult, error)
	HookCallback    func(ctx context.Context) (*HookResult, error)
)

type pluginState uint8

const (
	stateConstructed pluginState = iota
	stateConfiguring
	stateActive
	stateDisposed
)

func (s pluginState) String() string {
	switch s {
	case stateConstructed:
		return "constructed"
	case stateConfiguring:
		return "configuring"
	case stateActive:
		return "active"
	case stateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("pluginState(%d)", uint8(s))
}

type hook[A, R any] struct {
	filter    *regexp.Regexp
	cb        func(context.Context, A) (*R, error)
	pattern   string
	namespace string
}

func (h hook[A, R]) matches(path, namespace string) bool {
	if h.namespace != "" && h.namespace != namespace {
		return false
	}
	return h.filter.MatchString(path)
}

// pluginInstance is one plugin's hooks for one build. It is registered
// under a single token and serves every hook callback of that plugin.
type pluginInstance struct {
	initial      BuildOptions
	name         string
	resolveHooks []hook[OnResolveArgs, OnResolveResult]
	loadHooks    []hook[OnLoadArgs, OnLoadResult]
	start        []HookCallback
	end          []HookCallback
	dispose      []func()
	configErr    error
	transportErr error
	disposeOnce  sync.Once
	mu           sync.Mutex
	state        pluginState
}

func newPluginInstance(name string, initial BuildOptions) *pluginInstance {
	initial.Plugins = nil
	return &pluginInstance{name: name, initial: initial}
}

// setup runs the plugin's Setup and moves the instance to active.
// The returned error is the first configuration error recorded.
func (pi *pluginInstance) setup(fn func(PluginBuild) error) (err error) {
	pi.mu.Lock()
	if pi.state != stateConstructed {
		pi.mu.Unlock()
		return pi.configError(errors.KindHookOutsideSetup, "setup already ran (state %s)", pi.state)
	}
	pi.state = stateConfiguring
	pi.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			pi.recordConfig(pi.configError(errors.KindInvalidConfig, "setup panicked: %v", p))
		}
		pi.mu.Lock()
		if pi.state == stateConfiguring {
			pi.state = stateActive
		}
		err = pi.configErr
		pi.mu.Unlock()
	}()

	if fn != nil {
		if serr := fn(pi); serr != nil {
			e := pi.configError(errors.KindInvalidConfig, "setup failed")
			e.Cause = serr
			pi.recordConfig(e)
		}
	}
	return nil
}

func (pi *pluginInstance) configError(kind errors.Kind, format string, args ...any) *errors.Error {
	return errors.New(errors.PhaseConfig, kind).
		Path("plugin", pi.name).
		Detail(format, args...).
		Build()
}

func (pi *pluginInstance) recordConfig(err error) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if pi.configErr == nil {
		pi.configErr = err
	}
}

func (pi *pluginInstance) recordTransport(err error) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if pi.transportErr == nil {
		pi.transportErr = err
	}
}

// errs returns the recorded configuration and transport errors.
func (pi *pluginInstance) errs() (config, transport error) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.configErr, pi.transportErr
}

// register appends under the lock if the instance is still configuring.
func (pi *pluginInstance) register(what string, add func()) {
	pi.mu.Lock()
	if pi.state == stateConfiguring {
		add()
		pi.mu.Unlock()
		return
	}
	state := pi.state
	pi.mu.Unlock()
	pi.recordConfig(pi.configError(errors.KindHookOutsideSetup, "%s registered while %s", what, state))
}

func (pi *pluginInstance) compile(what, filter string) (*regexp.Regexp, bool) {
	if filter == "" {
		pi.recordConfig(pi.configError(errors.KindInvalidFilter, "%s needs a filter", what))
		return nil, false
	}
	re, err := regexp.Compile(filter)
	if err != nil {
		e := pi.configError(errors.KindInvalidFilter, "%s filter %q", what, filter)
		e.Cause = err
		e.Value = filter
		pi.recordConfig(e)
		return nil, false
	}
	return re, true
}

func (pi *pluginInstance) InitialOptions() BuildOptions {
	return pi.initial
}

func (pi *pluginInstance) OnStart(cb HookCallback) {
	pi.register("onStart", func() { pi.start = append(pi.start, cb) })
}

func (pi *pluginInstance) OnEnd(cb HookCallback) {
	pi.register("onEnd", func() { pi.end = append(pi.end, cb) })
}

func (pi *pluginInstance) OnResolve(opts OnResolveOptions, cb ResolveCallback) {
	re, ok := pi.compile("onResolve", opts.Filter)
	if !ok {
		return
	}
	pi.register("onResolve", func() {
		pi.resolveHooks = append(pi.resolveHooks, hook[OnResolveArgs, OnResolveResult]{
			filter: re, pattern: opts.Filter, namespace: opts.Namespace, cb: cb,
		})
	})
}

func (pi *pluginInstance) OnLoad(opts OnLoadOptions, cb LoadCallback) {
	re, ok := pi.compile("onLoad", opts.Filter)
	if !ok {
		return
	}
	pi.register("onLoad", func() {
		pi.loadHooks = append(pi.loadHooks, hook[OnLoadArgs, OnLoadResult]{
			filter: re, pattern: opts.Filter, namespace: opts.Namespace, cb: cb,
		})
	})
}

func (pi *pluginInstance) OnDispose(cb func()) {
	pi.register("onDispose", func() { pi.dispose = append(pi.dispose, cb) })
}

func (pi *pluginInstance) active() bool {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.state == stateActive
}

// adapterOptions adds an error handler that logs a failed hook and records
// it in failed as a warning.
func (pi *pluginInstance) adapterOptions(base []syncadapter.Option, event, path string, failed *[]Message) []syncadapter.Option {
	opts := make([]syncadapter.Option, 0, len(base)+1)
	opts = append(opts, base...)
	return append(opts, syncadapter.WithErrorHandler(func(err error) {
		engine.Logger().Warn("plugin hook failed",
			zap.String("plugin", pi.name),
			zap.String("hook", event),
			zap.String("path", path),
			zap.Error(err))
		*failed = append(*failed, Message{
			PluginName: pi.name,
			Text:       fmt.Sprintf("%s hook failed for %q: %v", event, path, err),
		})
	}))
}

// firstMatch tries hooks in registration order and returns the first
// non-nil result. A failing hook counts as "no result".
func firstMatch[A, R any](ctx context.Context, hooks []hook[A, R], path, namespace string, args A, opts []syncadapter.Option) *R {
	for _, h := range hooks {
		if !h.matches(path, namespace) {
			continue
		}
		res, ok := syncadapter.Resolve(ctx, func(ctx context.Context) (*R, error) {
			return h.cb(ctx, args)
		}, opts...)
		if ok && res != nil {
			return res
		}
	}
	return nil
}

// resolve and load return failed hooks as warnings, on an otherwise empty
// result when no hook answered, so the bundler reports them and moves on.
func (pi *pluginInstance) resolve(ctx context.Context, args OnResolveArgs, base []syncadapter.Option) *OnResolveResult {
	if !pi.active() {
		return nil
	}
	var failed []Message
	res := firstMatch(ctx, pi.resolveHooks, args.Path, args.Namespace, args,
		pi.adapterOptions(base, "onResolve", args.Path, &failed))
	if len(failed) == 0 {
		return res
	}
	if res == nil {
		res = &OnResolveResult{}
	}
	res.Warnings = append(res.Warnings, failed...)
	return res
}

func (pi *pluginInstance) load(ctx context.Context, args OnLoadArgs, base []syncadapter.Option) *OnLoadResult {
	if !pi.active() {
		return nil
	}
	var failed []Message
	res := firstMatch(ctx, pi.loadHooks, args.Path, args.Namespace, args,
		pi.adapterOptions(base, "onLoad", args.Path, &failed))
	if len(failed) == 0 {
		return res
	}
	if res == nil {
		res = &OnLoadResult{}
	}
	res.Warnings = append(res.Warnings, failed...)
	return res
}

// runAll runs every hook in order, each to completion before the next.
// A failing hook contributes an error message naming the plugin.
func (pi *pluginInstance) runAll(ctx context.Context, hooks []HookCallback, event string, opts []syncadapter.Option) HookResult {
	var out HookResult
	if !pi.active() {
		return out
	}
	for _, cb := range hooks {
		res, err := syncadapter.Call(ctx, func(ctx context.Context) (*HookResult, error) {
			return cb(ctx)
		}, opts...)
		if err != nil {
			engine.Logger().Warn("plugin hook failed",
				zap.String("plugin", pi.name),
				zap.String("hook", event),
				zap.Error(err))
			out.Errors = append(out.Errors, Message{PluginName: pi.name, Text: err.Error()})
			continue
		}
		if res != nil {
			out.Errors = append(out.Errors, res.Errors...)
			out.Warnings = append(out.Warnings, res.Warnings...)
		}
	}
	return out
}

// Drop disposes the instance: it stops dispatch and runs the dispose hooks.
// Only the first call has any effect.
func (pi *pluginInstance) Drop() {
	pi.disposeOnce.Do(func() {
		pi.mu.Lock()
		pi.state = stateDisposed
		hooks := pi.dispose
		pi.mu.Unlock()

		for _, cb := range hooks {
			_, err := syncadapter.Call(context.Background(), func(context.Context) (struct{}, error) {
				cb()
				return struct{}{}, nil
			})
			if err != nil {
				engine.Logger().Warn("plugin dispose failed",
					zap.String("plugin", pi.name),
					zap.Error(err))
			}
		}
	})
}

var _ PluginBuild = (*pluginInstance)(nil)
