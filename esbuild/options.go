package esbuild

// CommonOptions are shared by builds and transforms.
type CommonOptions struct {
	LogOverride map[string]LogLevel
	Supported   map[string]bool
	MangleCache map[string]any
	Define      map[string]string

	SourceRoot      string
	GlobalName      string
	MangleProps     string
	ReserveProps    string
	JSXFactory      string
	JSXFragment     string
	JSXImportSource string
	TSConfigRaw     string

	Engines    []Engine
	DropLabels []string
	Pure       []string

	LogLimit  int
	LineLimit int

	Color          Color
	LogLevel       LogLevel
	Sourcemap      SourceMap
	SourcesContent SourcesContent
	Target         Target
	Platform       Platform
	Format         Format
	MangleQuoted   MangleQuoted
	Drop           Drop
	Charset        Charset
	TreeShaking    TreeShaking
	LegalComments  LegalComments
	JSX            JSX

	// Minify turns on all three Minify* settings.
	Minify            bool
	MinifyWhitespace  bool
	MinifyIdentifiers bool
	MinifySyntax      bool
	IgnoreAnnotations bool
	JSXDev            bool
	JSXSideEffects    bool
	KeepNames         bool
}

// Engine is a runtime version the output must support.
type Engine struct {
	Version string
	Name    EngineName
}

// EntryPoint is an input file with an explicit output path.
type EntryPoint struct {
	InputPath  string
	OutputPath string
}

// Stdin supplies an entry point's contents directly.
type Stdin struct {
	Contents   string
	ResolveDir string
	Sourcefile string
	Loader     Loader
}

// BuildOptions configures one bundler run. Empty strings, nil maps and
// nil slices are "not set" and leave the bundler's defaults in place.
type BuildOptions struct {
	CommonOptions

	Banner       map[string]string
	Footer       map[string]string
	Alias        map[string]string
	Loader       map[string]Loader
	OutExtension map[string]string

	Stdin *Stdin

	TSConfig      string
	Outfile       string
	Outdir        string
	Outbase       string
	AbsWorkingDir string
	PublicPath    string
	EntryNames    string
	ChunkNames    string
	AssetNames    string

	External            []string
	MainFields          []string
	Conditions          []string
	ResolveExtensions   []string
	Inject              []string
	NodePaths           []string
	EntryPoints         []string
	EntryPointsAdvanced []EntryPoint
	Plugins             []Plugin

	Packages Packages

	Bundle           bool
	PreserveSymlinks bool
	Splitting        bool
	Metafile         bool
	Write            bool
	AllowOverwrite   bool
}

// TransformOptions configures the transformation of a single source text.
type TransformOptions struct {
	CommonOptions

	Banner     string
	Footer     string
	Sourcefile string
	Loader     Loader
}

// MinifiedTransform minifies and tree-shakes code for target in the given format.
func MinifiedTransform(target Target, format Format) *TransformOptions {
	o := &TransformOptions{}
	o.Target = target
	o.Format = format
	o.Minify = true
	o.TreeShaking = TreeShakingTrue
	return o
}

// TypeScriptTransform strips types from TypeScript source.
func TypeScriptTransform(target Target, jsx JSX) *TransformOptions {
	o := &TransformOptions{Loader: LoaderTS}
	o.Target = target
	o.JSX = jsx
	return o
}

// JSXPreset compiles JSX with a custom factory and fragment.
// Empty factory or fragment keep the bundler's defaults.
func JSXPreset(jsx JSX, factory, fragment string) *TransformOptions {
	o := &TransformOptions{Loader: LoaderJSX}
	o.JSX = jsx
	o.JSXFactory = factory
	o.JSXFragment = fragment
	return o
}

// Ptr returns a pointer to v, for the optional fields of hook results.
func Ptr[T any](v T) *T {
	return &v
}
