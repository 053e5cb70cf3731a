package inproc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/esbuild"
	"github.com/wippyai/tsgo-bridge/tsc"
	"github.com/wippyai/tsgo-bridge/tsconfig"
)

// Diagnostic codes, numbered as tsc numbers them.
const (
	codeCannotReadFile      = 5012
	codeCannotWriteFile     = 5033
	codeOverwritesInput     = 5055
	codeNoConfigInDirectory = 5057
	codePathDoesNotExist    = 5058
	codeFileNotFound        = 6053
	codeNotUnderRootDir     = 6059
	codeCircularExtends     = 18000
	codeNoInputs            = 18003
	codeModuleNotFound      = 2307
)

// programNamespace holds every module of the program during the import scan.
const programNamespace = "tsgo-program"

var (
	tsExtensions    = []string{".ts", ".tsx", ".mts", ".cts"}
	jsExtensions    = []string{".js", ".jsx", ".mjs", ".cjs"}
	defaultExcludes = []string{"node_modules", "bower_components", "jspm_packages"}

	// tsAlternates maps the extension written in an import to the sources
	// that may produce it.
	tsAlternates = map[string][]string{
		".js":  {".ts", ".tsx"},
		".jsx": {".tsx"},
		".mjs": {".mts"},
		".cjs": {".cts"},
	}
)

// compilation is one compiler run.
type compilation struct {
	ctx        context.Context
	fs         fileSystem
	config     *tsconfig.Config
	opts       *tsconfig.CompilerOptions
	sources    map[string][]byte
	loaded     map[string]struct{}
	seen       map[string]struct{}
	configPath string
	configDir  string
	rawConfig  string
	inputs     []string
	diags      []tsc.Diagnostic
	mu         sync.Mutex
}

func (e *Engine) compile(ctx context.Context, fs fileSystem, project, configFile string, printErrors bool) *tsc.Result {
	c := &compilation{
		ctx:     ctx,
		fs:      fs,
		sources: make(map[string][]byte),
		loaded:  make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
	res := &tsc.Result{WrittenFiles: make(map[string]string)}

	err := c.run(project, configFile, res)
	if err != nil {
		res.ConfigFile = tsc.ConfigErrorPrefix + err.Error()
	} else {
		res.ConfigFile = c.configPath
	}
	res.Diagnostics = c.diags
	res.Success = err == nil && !c.hasErrors()

	engine.Logger().Debug("compiled project",
		zap.String("project", project),
		zap.String("config", res.ConfigFile),
		zap.Int("inputs", len(c.inputs)),
		zap.Int("diagnostics", len(c.diags)),
		zap.Int("emitted", len(res.EmittedFiles)))

	if printErrors {
		printDiagnostics(e.stderr, c.diags)
	}
	return res
}

// run returns an error only for configuration problems; everything else is
// reported as a diagnostic.
func (c *compilation) run(project, configFile string, res *tsc.Result) error {
	cfgPath, ok := c.locateConfig(project, configFile)
	if !ok {
		return nil
	}

	cfg, err := c.loadConfig(cfgPath, nil)
	if err != nil {
		return err
	}
	if cfg == nil {
		c.configPath = cfgPath
		return nil
	}
	raw, err := cfg.JSON()
	if err != nil {
		return err
	}

	c.config = cfg
	c.opts = cfg.Options()
	c.configPath = cfgPath
	c.configDir = path.Dir(cfgPath)
	c.rawConfig = string(raw)

	if err := c.collectInputs(); err != nil {
		return err
	}
	if len(c.inputs) == 0 {
		return nil
	}
	if err := c.ctx.Err(); err != nil {
		c.report(tsc.Diagnostic{Category: tsc.CategoryError, Message: "Build cancelled: " + err.Error()})
		return nil
	}

	c.scan()
	c.emit(res)
	return nil
}

func (c *compilation) report(d tsc.Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := d.String()
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.diags = append(c.diags, d)
}

func (c *compilation) reportf(code int, file string, format string, args ...any) {
	d := tsc.Diagnostic{
		Category: tsc.CategoryError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
	if file != "" {
		d.File = &file
	}
	c.report(d)
}

func (c *compilation) hasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// locateConfig finds the tsconfig for project, which may be the config
// itself or the directory holding tsconfig.json.
func (c *compilation) locateConfig(project, configFile string) (string, bool) {
	if configFile != "" {
		p := absolute(project, configFile)
		if c.fs.lookup(c.ctx, p).Kind != tsgobridge.File {
			c.reportf(codePathDoesNotExist, "", "The specified path does not exist: '%s'.", p)
			return "", false
		}
		return p, true
	}

	switch c.fs.lookup(c.ctx, project).Kind {
	case tsgobridge.File:
		return project, true
	case tsgobridge.Directory:
		p := path.Join(project, "tsconfig.json")
		if c.fs.lookup(c.ctx, p).Kind != tsgobridge.File {
			c.reportf(codeNoConfigInDirectory, "", "Cannot find a tsconfig.json file at the specified directory: '%s'.", project)
			return "", false
		}
		return p, true
	}
	c.reportf(codePathDoesNotExist, "", "The specified path does not exist: '%s'.", project)
	return "", false
}

// loadConfig reads the config at p and the chain of configs it extends.
// A nil config with a nil error means the problem was reported as a
// diagnostic.
func (c *compilation) loadConfig(p string, chain []string) (*tsconfig.Config, error) {
	if slices.Contains(chain, p) {
		c.reportf(codeCircularExtends, "", "Circularity detected while resolving configuration: %s",
			strings.Join(append(chain, p), " -> "))
		return nil, nil
	}

	e := c.fs.lookup(c.ctx, p)
	if e.Kind != tsgobridge.File {
		c.reportf(codeFileNotFound, "", "File '%s' not found.", p)
		return nil, nil
	}
	cfg, err := tsconfig.Parse(e.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if cfg.Extends == "" {
		return cfg, nil
	}

	basePath := c.resolveExtends(path.Dir(p), cfg.Extends)
	base, err := c.loadConfig(basePath, append(chain, p))
	if err != nil || base == nil {
		return nil, err
	}
	rebase(base, path.Dir(basePath))
	return cfg.Extend(base)
}

func (c *compilation) resolveExtends(dir, ref string) string {
	if path.IsAbs(ref) || strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		p := absolute(dir, ref)
		if !strings.HasSuffix(p, ".json") && c.fs.lookup(c.ctx, p).Kind != tsgobridge.File {
			p += ".json"
		}
		return p
	}

	// Package reference: search node_modules upwards.
	first := ""
	for d := dir; ; d = path.Dir(d) {
		p := path.Join(d, "node_modules", ref)
		switch c.fs.lookup(c.ctx, p).Kind {
		case tsgobridge.File:
			return p
		case tsgobridge.Directory:
			return path.Join(p, "tsconfig.json")
		}
		if !strings.HasSuffix(p, ".json") && c.fs.lookup(c.ctx, p+".json").Kind == tsgobridge.File {
			return p + ".json"
		}
		if first == "" {
			first = p
		}
		if d == "/" || d == "." {
			return first
		}
	}
}

// rebase makes the paths of an extended config absolute, since they are
// relative to the file that declares them.
func rebase(cfg *tsconfig.Config, dir string) {
	for _, list := range [][]string{cfg.Files, cfg.Include, cfg.Exclude} {
		for i, p := range list {
			list[i] = absolute(dir, p)
		}
	}
	o := cfg.CompilerOptions
	if o == nil {
		return
	}
	for _, p := range []*string{o.OutDir, o.RootDir, o.BaseURL, o.DeclarationDir, o.TSBuildInfoFile, o.OutFile} {
		if p != nil {
			*p = absolute(dir, *p)
		}
	}
}

func absolute(dir, p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(dir, p)
}

func (c *compilation) collectInputs() error {
	for _, f := range c.config.Files {
		p := absolute(c.configDir, f)
		e := c.fs.lookup(c.ctx, p)
		if e.Kind != tsgobridge.File {
			c.reportf(codeFileNotFound, "", "File '%s' not found.", p)
			continue
		}
		c.addInput(p, e.Content)
	}

	include := c.config.Include
	if include == nil && c.config.Files == nil {
		include = []string{"**/*"}
	}
	exclude := c.config.Exclude
	if exclude == nil {
		exclude = slices.Clone(defaultExcludes)
		if c.opts.OutDir != nil {
			exclude = append(exclude, *c.opts.OutDir)
		}
	}

	if len(include) > 0 {
		inc, err := compilePatterns(c.configDir, include)
		if err != nil {
			return fmt.Errorf("invalid include pattern: %w", err)
		}
		exc, err := compilePatterns(c.configDir, exclude)
		if err != nil {
			return fmt.Errorf("invalid exclude pattern: %w", err)
		}
		walked := make(map[string]bool)
		for _, pattern := range include {
			root, _ := splitLiteral(absolute(c.configDir, pattern))
			if !walked[root] {
				walked[root] = true
				c.walk(root, false, inc, exc)
			}
		}
	}

	if len(c.inputs) == 0 && !c.hasErrors() {
		c.reportf(codeNoInputs, "",
			"No inputs were found in config file '%s'. Specified 'include' paths were '%s' and 'exclude' paths were '%s'.",
			c.configPath, jsonList(include), jsonList(exclude))
	}
	return nil
}

func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// walk adds every source file under p that include matches and exclude
// does not. listed reports whether a parent directory listed p.
func (c *compilation) walk(p string, listed bool, inc, exc *patternSet) {
	if exc.match(p) {
		return
	}
	e := c.fs.lookup(c.ctx, p)
	switch e.Kind {
	case tsgobridge.Directory:
		for _, child := range slices.Sorted(slices.Values(e.Children)) {
			c.walk(path.Join(p, child), true, inc, exc)
		}
	case tsgobridge.File:
		if c.isSource(p) && inc.match(p) {
			c.addInput(p, e.Content)
		}
	default:
		if listed && c.isSource(p) && inc.match(p) {
			c.reportf(codeCannotReadFile, p, "Cannot read file '%s'.", p)
		}
	}
}

func (c *compilation) addInput(p string, content []byte) {
	if _, ok := c.sources[p]; ok {
		return
	}
	c.sources[p] = content
	c.inputs = append(c.inputs, p)
}

func (c *compilation) allowJS() bool {
	return c.opts.AllowJS != nil && *c.opts.AllowJS
}

func (c *compilation) isSource(p string) bool {
	ext := path.Ext(p)
	if slices.Contains(tsExtensions, ext) {
		return true
	}
	return c.allowJS() && slices.Contains(jsExtensions, ext)
}

func isDeclaration(p string) bool {
	return strings.HasSuffix(p, ".d.ts") || strings.HasSuffix(p, ".d.mts") || strings.HasSuffix(p, ".d.cts")
}

// scan parses every input and follows relative imports to find the rest of
// the program. Bundler output is discarded; only messages are kept.
func (c *compilation) scan() {
	plugin := api.Plugin{
		Name: "tsgo-program",
		Setup: func(b api.PluginBuild) {
			b.OnResolve(api.OnResolveOptions{Filter: ".*"}, c.onResolve)
			b.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: programNamespace}, c.onLoad)
		},
	}
	// Inputs may share a base name, so each gets its own output name.
	entries := make([]api.EntryPoint, len(c.inputs))
	for i, p := range c.inputs {
		entries[i] = api.EntryPoint{InputPath: p, OutputPath: fmt.Sprintf("input%d", i)}
	}
	r := api.Build(api.BuildOptions{
		EntryPointsAdvanced: entries,
		Bundle:              true,
		Write:               false,
		Outdir:              "/tsgo-scan",
		Format:              api.FormatESModule,
		Platform:            api.PlatformNeutral,
		LogLevel:            api.LogLevelSilent,
		JSX:                 c.jsxMode(),
		TsconfigRaw:         c.rawConfig,
		Plugins:             []api.Plugin{plugin},
	})
	c.reportMessages(r.Errors, tsc.CategoryError)
}

func (c *compilation) onResolve(args api.OnResolveArgs) (api.OnResolveResult, error) {
	if args.Kind == api.ResolveEntryPoint {
		return api.OnResolveResult{Path: args.Path, Namespace: programNamespace}, nil
	}

	p := args.Path
	relative := strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
	if !relative && !path.IsAbs(p) {
		return api.OnResolveResult{Path: p, External: true}, nil
	}
	if relative {
		p = path.Join(path.Dir(args.Importer), p)
	}
	if found, ok := c.resolveModule(path.Clean(p)); ok {
		return api.OnResolveResult{Path: found, Namespace: programNamespace}, nil
	}
	return api.OnResolveResult{Errors: []api.Message{{
		Text: fmt.Sprintf("Cannot find module '%s' or its corresponding type declarations.", args.Path),
	}}}, nil
}

func (c *compilation) resolveModule(p string) (string, bool) {
	exts := []string{".ts", ".tsx", ".d.ts"}
	if c.allowJS() {
		exts = append(exts, ".js", ".jsx")
	}

	var candidates []string
	ext := path.Ext(p)
	for _, alt := range tsAlternates[ext] {
		candidates = append(candidates, strings.TrimSuffix(p, ext)+alt)
	}
	candidates = append(candidates, p)
	for _, e := range exts {
		candidates = append(candidates, p+e)
	}
	for _, e := range exts {
		candidates = append(candidates, p+"/index"+e)
	}

	for _, cand := range candidates {
		if _, ok := c.source(cand); ok {
			return cand, true
		}
	}
	return "", false
}

// source returns the content of the file at p, reading it on first use.
func (c *compilation) source(p string) ([]byte, bool) {
	c.mu.Lock()
	content, ok := c.sources[p]
	c.mu.Unlock()
	if ok {
		return content, true
	}

	e := c.fs.lookup(c.ctx, p)
	if e.Kind != tsgobridge.File {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if content, ok := c.sources[p]; ok {
		return content, true
	}
	c.sources[p] = e.Content
	return e.Content, true
}

func (c *compilation) onLoad(args api.OnLoadArgs) (api.OnLoadResult, error) {
	content, ok := c.source(args.Path)
	if !ok {
		return api.OnLoadResult{Errors: []api.Message{{
			Text: fmt.Sprintf("Cannot read file '%s'.", args.Path),
		}}}, nil
	}
	c.mu.Lock()
	c.loaded[args.Path] = struct{}{}
	c.mu.Unlock()

	text := string(content)
	return api.OnLoadResult{
		Contents:   &text,
		ResolveDir: path.Dir(args.Path),
		Loader:     api.Loader(esbuild.LoaderForExtension(path.Ext(args.Path))),
	}, nil
}

func (c *compilation) reportMessages(msgs []api.Message, category string) {
	for _, m := range msgs {
		d := tsc.Diagnostic{Category: category, Message: m.Text}
		if strings.HasPrefix(m.Text, "Cannot find module ") {
			d.Code = codeModuleNotFound
		}
		if strings.HasPrefix(m.Text, "Cannot read file ") {
			d.Code = codeCannotReadFile
		}
		if loc := m.Location; loc != nil && loc.File != "" {
			file := strings.TrimPrefix(loc.File, programNamespace+":")
			d.File = &file
			d.Line = loc.Line
			d.Column = loc.Column + 1
			d.Length = loc.Length
		}
		c.report(d)
	}
}

type emitPlan struct {
	src string
	out string
}

// emit transpiles every program file that produces output.
func (c *compilation) emit(res *tsc.Result) {
	plan := c.plan()
	if c.opts.NoEmit != nil && *c.opts.NoEmit {
		return
	}
	if c.opts.NoEmitOnError != nil && *c.opts.NoEmitOnError && c.hasErrors() {
		return
	}

	for _, p := range plan {
		if err := c.ctx.Err(); err != nil {
			c.report(tsc.Diagnostic{Category: tsc.CategoryError, Message: "Build cancelled: " + err.Error()})
			return
		}
		code, sourceMap, ok := c.transpile(p.src, p.out)
		if !ok {
			continue
		}
		c.write(res, p.out, code)
		if sourceMap != nil {
			c.write(res, p.out+".map", sourceMap)
		}
	}
}

// plan maps program files to output paths.
func (c *compilation) plan() []emitPlan {
	var files []string
	for _, p := range c.programFiles() {
		if isDeclaration(p) || strings.Contains(p, "/node_modules/") || !c.isSource(p) {
			continue
		}
		files = append(files, p)
	}
	if len(files) == 0 {
		return nil
	}

	rootDir := commonDir(files)
	if c.opts.RootDir != nil {
		rootDir = absolute(c.configDir, *c.opts.RootDir)
	}
	outDir := ""
	if c.opts.OutDir != nil {
		outDir = absolute(c.configDir, *c.opts.OutDir)
	}

	var plan []emitPlan
	for _, src := range files {
		rel, ok := within(rootDir, src)
		if !ok {
			c.reportf(codeNotUnderRootDir, src,
				"File '%s' is not under 'rootDir' '%s'. 'rootDir' is expected to contain all source files.", src, rootDir)
			continue
		}
		out := src
		if outDir != "" {
			out = path.Join(outDir, rel)
		}
		out = strings.TrimSuffix(out, path.Ext(out)) + c.outputExt(src)
		if _, isInput := c.sources[out]; isInput {
			c.reportf(codeOverwritesInput, "", "Cannot write file '%s' because it would overwrite input file.", out)
			continue
		}
		plan = append(plan, emitPlan{src: src, out: out})
	}
	return plan
}

func (c *compilation) programFiles() []string {
	files := slices.Clone(c.inputs)
	for p := range c.loaded {
		if !slices.Contains(files, p) {
			files = append(files, p)
		}
	}
	slices.Sort(files)
	return files
}

func commonDir(files []string) string {
	dir := path.Dir(files[0])
	for _, f := range files[1:] {
		for {
			if _, ok := within(dir, f); ok {
				break
			}
			dir = path.Dir(dir)
		}
	}
	return dir
}

// within returns p relative to dir when p is below dir.
func within(dir, p string) (string, bool) {
	if dir == "/" {
		return strings.TrimPrefix(p, "/"), true
	}
	return strings.CutPrefix(p, dir+"/")
}

func (c *compilation) outputExt(src string) string {
	switch path.Ext(src) {
	case ".mts", ".mjs":
		return ".mjs"
	case ".cts", ".cjs":
		return ".cjs"
	case ".tsx", ".jsx":
		if c.opts.JSX != nil && *c.opts.JSX == tsconfig.JSXPreserve {
			return ".jsx"
		}
	}
	return ".js"
}

func (c *compilation) transpile(src, out string) (code, sourceMap []byte, ok bool) {
	opts := api.TransformOptions{
		Sourcefile:  src,
		Loader:      api.Loader(esbuild.LoaderForExtension(path.Ext(src))),
		Target:      c.target(),
		Format:      c.format(src),
		JSX:         c.jsxMode(),
		JSXDev:      c.opts.JSX != nil && *c.opts.JSX == tsconfig.JSXReactJSXDev,
		TsconfigRaw: c.rawConfig,
		LogLevel:    api.LogLevelSilent,
	}
	if c.opts.RemoveComments != nil && *c.opts.RemoveComments {
		opts.LegalComments = api.LegalCommentsNone
	}
	external := false
	switch {
	case c.opts.InlineSourceMap != nil && *c.opts.InlineSourceMap:
		opts.Sourcemap = api.SourceMapInline
	case c.opts.SourceMap != nil && *c.opts.SourceMap:
		opts.Sourcemap = api.SourceMapExternal
		external = true
	}

	r := api.Transform(string(c.sources[src]), opts)
	c.reportMessages(r.Errors, tsc.CategoryError)
	if len(r.Errors) > 0 {
		return nil, nil, false
	}

	code = r.Code
	if external {
		code = append(code, "//# sourceMappingURL="+path.Base(out)+".map\n"...)
		sourceMap = r.Map
	}
	if c.opts.NewLine != nil && *c.opts.NewLine == tsconfig.NewLineCRLF {
		code = bytes.ReplaceAll(code, []byte("\n"), []byte("\r\n"))
	}
	if c.opts.EmitBOM != nil && *c.opts.EmitBOM {
		code = append([]byte("\ufeff"), code...)
	}
	return code, sourceMap, true
}

func (c *compilation) write(res *tsc.Result, p string, content []byte) {
	if w, ok := c.fs.(fileWriter); ok {
		if err := w.writeFile(p, content); err != nil {
			c.reportf(codeCannotWriteFile, "", "Could not write file '%s': %s.", p, err)
			return
		}
	}
	res.WrittenFiles[p] = string(content)
	res.EmittedFiles = append(res.EmittedFiles, p)
}

// target maps the compiler target onto the bundler's. An unset target
// leaves syntax as written.
func (c *compilation) target() api.Target {
	if c.opts.Target == nil {
		return api.ESNext
	}
	switch *c.opts.Target {
	case tsconfig.ES3, tsconfig.ES5:
		return api.ES5
	case tsconfig.ES2015:
		return api.ES2015
	case tsconfig.ES2016:
		return api.ES2016
	case tsconfig.ES2017:
		return api.ES2017
	case tsconfig.ES2018:
		return api.ES2018
	case tsconfig.ES2019:
		return api.ES2019
	case tsconfig.ES2020:
		return api.ES2020
	case tsconfig.ES2021:
		return api.ES2021
	case tsconfig.ES2022:
		return api.ES2022
	}
	return api.ESNext
}

func (c *compilation) format(src string) api.Format {
	m := c.opts.Module
	if m == nil {
		if t := c.opts.Target; t == nil || *t == tsconfig.ES3 || *t == tsconfig.ES5 {
			return api.FormatCommonJS
		}
		return api.FormatESModule
	}
	switch *m {
	case tsconfig.ModuleES6, tsconfig.ModuleES2015, tsconfig.ModuleES2020, tsconfig.ModuleES2022, tsconfig.ModuleESNext:
		return api.FormatESModule
	case tsconfig.ModuleNode16, tsconfig.ModuleNodeNext:
		if ext := path.Ext(src); ext == ".mts" || ext == ".mjs" {
			return api.FormatESModule
		}
	}
	return api.FormatCommonJS
}

func (c *compilation) jsxMode() api.JSX {
	if c.opts == nil || c.opts.JSX == nil {
		return api.JSXTransform
	}
	switch *c.opts.JSX {
	case tsconfig.JSXPreserve, tsconfig.JSXReactNative:
		return api.JSXPreserve
	case tsconfig.JSXReactJSX, tsconfig.JSXReactJSXDev:
		return api.JSXAutomatic
	}
	return api.JSXTransform
}

func printDiagnostics(w io.Writer, diags []tsc.Diagnostic) {
	errs := 0
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
		if d.IsError() {
			errs++
		}
	}
	switch {
	case errs == 1:
		fmt.Fprint(w, "\nFound 1 error.\n")
	case errs > 1:
		fmt.Fprintf(w, "\nFound %d errors.\n", errs)
	}
}
