package tsconfig

// CompilerOptions mirrors the "compilerOptions" object of a tsconfig.json.
// Every field is optional; nil means "not set" and is omitted from JSON.
type CompilerOptions struct {
	// Type checking
	AllowUnreachableCode               *bool `json:"allowUnreachableCode,omitempty"`
	AllowUnusedLabels                  *bool `json:"allowUnusedLabels,omitempty"`
	AlwaysStrict                       *bool `json:"alwaysStrict,omitempty"`
	ExactOptionalPropertyTypes         *bool `json:"exactOptionalPropertyTypes,omitempty"`
	NoFallthroughCasesInSwitch         *bool `json:"noFallthroughCasesInSwitch,omitempty"`
	NoImplicitAny                      *bool `json:"noImplicitAny,omitempty"`
	NoImplicitOverride                 *bool `json:"noImplicitOverride,omitempty"`
	NoImplicitReturns                  *bool `json:"noImplicitReturns,omitempty"`
	NoImplicitThis                     *bool `json:"noImplicitThis,omitempty"`
	NoPropertyAccessFromIndexSignature *bool `json:"noPropertyAccessFromIndexSignature,omitempty"`
	NoUncheckedIndexedAccess           *bool `json:"noUncheckedIndexedAccess,omitempty"`
	NoUnusedLocals                     *bool `json:"noUnusedLocals,omitempty"`
	NoUnusedParameters                 *bool `json:"noUnusedParameters,omitempty"`
	Strict                             *bool `json:"strict,omitempty"`
	StrictBindCallApply                *bool `json:"strictBindCallApply,omitempty"`
	StrictFunctionTypes                *bool `json:"strictFunctionTypes,omitempty"`
	StrictNullChecks                   *bool `json:"strictNullChecks,omitempty"`
	StrictPropertyInitialization       *bool `json:"strictPropertyInitialization,omitempty"`
	UseUnknownInCatchVariables         *bool `json:"useUnknownInCatchVariables,omitempty"`

	// Modules
	AllowArbitraryExtensions     *bool               `json:"allowArbitraryExtensions,omitempty"`
	AllowImportingTSExtensions   *bool               `json:"allowImportingTsExtensions,omitempty"`
	AllowSyntheticDefaultImports *bool               `json:"allowSyntheticDefaultImports,omitempty"`
	AllowUmdGlobalAccess         *bool               `json:"allowUmdGlobalAccess,omitempty"`
	BaseURL                      *string             `json:"baseUrl,omitempty"`
	CustomConditions             []string            `json:"customConditions,omitempty"`
	Module                       *Module             `json:"module,omitempty"`
	ModuleResolution             *ModuleResolution   `json:"moduleResolution,omitempty"`
	ModuleSuffixes               []string            `json:"moduleSuffixes,omitempty"`
	NoResolve                    *bool               `json:"noResolve,omitempty"`
	Paths                        map[string][]string `json:"paths,omitempty"`
	ResolveJSONModule            *bool               `json:"resolveJsonModule,omitempty"`
	ResolvePackageJSONExports    *bool               `json:"resolvePackageJsonExports,omitempty"`
	ResolvePackageJSONImports    *bool               `json:"resolvePackageJsonImports,omitempty"`
	RootDir                      *string             `json:"rootDir,omitempty"`
	RootDirs                     []string            `json:"rootDirs,omitempty"`
	TypeRoots                    []string            `json:"typeRoots,omitempty"`
	Types                        []string            `json:"types,omitempty"`

	// Emit
	Declaration            *bool                   `json:"declaration,omitempty"`
	DeclarationDir         *string                 `json:"declarationDir,omitempty"`
	DeclarationMap         *bool                   `json:"declarationMap,omitempty"`
	DownlevelIteration     *bool                   `json:"downlevelIteration,omitempty"`
	EmitBOM                *bool                   `json:"emitBOM,omitempty"`
	EmitDeclarationOnly    *bool                   `json:"emitDeclarationOnly,omitempty"`
	ImportHelpers          *bool                   `json:"importHelpers,omitempty"`
	ImportsNotUsedAsValues *ImportsNotUsedAsValues `json:"importsNotUsedAsValues,omitempty"`
	InlineSourceMap        *bool                   `json:"inlineSourceMap,omitempty"`
	InlineSources          *bool                   `json:"inlineSources,omitempty"`
	MapRoot                *string                 `json:"mapRoot,omitempty"`
	NewLine                *NewLine                `json:"newLine,omitempty"`
	NoEmit                 *bool                   `json:"noEmit,omitempty"`
	NoEmitHelpers          *bool                   `json:"noEmitHelpers,omitempty"`
	NoEmitOnError          *bool                   `json:"noEmitOnError,omitempty"`
	OutDir                 *string                 `json:"outDir,omitempty"`
	OutFile                *string                 `json:"outFile,omitempty"`
	PreserveConstEnums     *bool                   `json:"preserveConstEnums,omitempty"`
	PreserveValueImports   *bool                   `json:"preserveValueImports,omitempty"`
	RemoveComments         *bool                   `json:"removeComments,omitempty"`
	SourceMap              *bool                   `json:"sourceMap,omitempty"`
	SourceRoot             *string                 `json:"sourceRoot,omitempty"`
	StripInternal          *bool                   `json:"stripInternal,omitempty"`

	// JavaScript support
	AllowJS              *bool `json:"allowJs,omitempty"`
	CheckJS              *bool `json:"checkJs,omitempty"`
	MaxNodeModuleJSDepth *int  `json:"maxNodeModuleJsDepth,omitempty"`

	// Editor support
	DisableSizeLimit *bool            `json:"disableSizeLimit,omitempty"`
	Plugins          []map[string]any `json:"plugins,omitempty"`

	// Interop constraints
	ESModuleInterop                  *bool `json:"esModuleInterop,omitempty"`
	ForceConsistentCasingInFileNames *bool `json:"forceConsistentCasingInFileNames,omitempty"`
	IsolatedModules                  *bool `json:"isolatedModules,omitempty"`
	PreserveSymlinks                 *bool `json:"preserveSymlinks,omitempty"`
	VerbatimModuleSyntax             *bool `json:"verbatimModuleSyntax,omitempty"`

	// Backwards compatibility
	Charset                        *string `json:"charset,omitempty"`
	KeyofStringsOnly               *bool   `json:"keyofStringsOnly,omitempty"`
	NoImplicitUseStrict            *bool   `json:"noImplicitUseStrict,omitempty"`
	NoStrictGenericChecks          *bool   `json:"noStrictGenericChecks,omitempty"`
	Out                            *string `json:"out,omitempty"`
	SuppressExcessPropertyErrors   *bool   `json:"suppressExcessPropertyErrors,omitempty"`
	SuppressImplicitAnyIndexErrors *bool   `json:"suppressImplicitAnyIndexErrors,omitempty"`

	// Language and environment
	EmitDecoratorMetadata   *bool    `json:"emitDecoratorMetadata,omitempty"`
	ExperimentalDecorators  *bool    `json:"experimentalDecorators,omitempty"`
	JSX                     *JSX     `json:"jsx,omitempty"`
	JSXFactory              *string  `json:"jsxFactory,omitempty"`
	JSXFragmentFactory      *string  `json:"jsxFragmentFactory,omitempty"`
	JSXImportSource         *string  `json:"jsxImportSource,omitempty"`
	Lib                     []string `json:"lib,omitempty"`
	ModuleDetection         *string  `json:"moduleDetection,omitempty"`
	NoLib                   *bool    `json:"noLib,omitempty"`
	ReactNamespace          *string  `json:"reactNamespace,omitempty"`
	Target                  *Target  `json:"target,omitempty"`
	UseDefineForClassFields *bool    `json:"useDefineForClassFields,omitempty"`

	// Compiler diagnostics
	Diagnostics         *bool   `json:"diagnostics,omitempty"`
	ExplainFiles        *bool   `json:"explainFiles,omitempty"`
	ExtendedDiagnostics *bool   `json:"extendedDiagnostics,omitempty"`
	GenerateCPUProfile  *string `json:"generateCpuProfile,omitempty"`
	ListEmittedFiles    *bool   `json:"listEmittedFiles,omitempty"`
	ListFiles           *bool   `json:"listFiles,omitempty"`
	TraceResolution     *bool   `json:"traceResolution,omitempty"`

	// Projects
	Composite                               *bool   `json:"composite,omitempty"`
	DisableReferencedProjectLoad            *bool   `json:"disableReferencedProjectLoad,omitempty"`
	DisableSolutionSearching                *bool   `json:"disableSolutionSearching,omitempty"`
	DisableSourceOfProjectReferenceRedirect *bool   `json:"disableSourceOfProjectReferenceRedirect,omitempty"`
	Incremental                             *bool   `json:"incremental,omitempty"`
	TSBuildInfoFile                         *string `json:"tsBuildInfoFile,omitempty"`

	// Output formatting
	NoErrorTruncation   *bool `json:"noErrorTruncation,omitempty"`
	PreserveWatchOutput *bool `json:"preserveWatchOutput,omitempty"`
	Pretty              *bool `json:"pretty,omitempty"`

	// Completeness
	SkipDefaultLibCheck *bool `json:"skipDefaultLibCheck,omitempty"`
	SkipLibCheck        *bool `json:"skipLibCheck,omitempty"`
}

// ProjectReference points at another project in a composite build.
type ProjectReference struct {
	Path     string `json:"path"`
	Prepend  *bool  `json:"prepend,omitempty"`
	Circular *bool  `json:"circular,omitempty"`
}

// TypeAcquisition configures automatic type acquisition for JavaScript projects.
type TypeAcquisition struct {
	Enable                              *bool    `json:"enable,omitempty"`
	Include                             []string `json:"include,omitempty"`
	Exclude                             []string `json:"exclude,omitempty"`
	DisableFilenameBasedTypeAcquisition *bool    `json:"disableFilenameBasedTypeAcquisition,omitempty"`
}

// WatchOptions configures file watching in watch mode.
type WatchOptions struct {
	WatchFile                 *string  `json:"watchFile,omitempty"`
	WatchDirectory            *string  `json:"watchDirectory,omitempty"`
	FallbackPolling           *string  `json:"fallbackPolling,omitempty"`
	SynchronousWatchDirectory *bool    `json:"synchronousWatchDirectory,omitempty"`
	ExcludeDirectories        []string `json:"excludeDirectories,omitempty"`
	ExcludeFiles              []string `json:"excludeFiles,omitempty"`
}

// Config is a tsconfig.json document.
type Config struct {
	CompilerOptions *CompilerOptions   `json:"compilerOptions,omitempty"`
	Files           []string           `json:"files,omitempty"`
	Include         []string           `json:"include,omitempty"`
	Exclude         []string           `json:"exclude,omitempty"`
	Extends         string             `json:"extends,omitempty"`
	References      []ProjectReference `json:"references,omitempty"`
	TypeAcquisition *TypeAcquisition   `json:"typeAcquisition,omitempty"`
	WatchOptions    *WatchOptions      `json:"watchOptions,omitempty"`
}

// Bool returns a pointer to v, for optional fields.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for optional fields.
func String(v string) *string { return &v }

// Int returns a pointer to v, for optional fields.
func Int(v int) *int { return &v }

// Ptr returns a pointer to v. It is meant for the enum fields.
func Ptr[T any](v T) *T { return &v }

// Options returns c.CompilerOptions, allocating it when nil.
func (c *Config) Options() *CompilerOptions {
	if c.CompilerOptions == nil {
		c.CompilerOptions = &CompilerOptions{}
	}
	return c.CompilerOptions
}

// Default is a general purpose configuration compiling src/ into dist/.
func Default() *Config {
	return &Config{
		CompilerOptions: &CompilerOptions{
			Target:                           Ptr(ES2020),
			Module:                           Ptr(ModuleCommonJS),
			OutDir:                           String("./dist"),
			RootDir:                          String("./src"),
			Strict:                           Bool(true),
			ESModuleInterop:                  Bool(true),
			SkipLibCheck:                     Bool(true),
			ForceConsistentCasingInFileNames: Bool(true),
		},
		Include: []string{"src/**/*"},
		Exclude: []string{"node_modules", "dist"},
	}
}

// NodeProject is Default plus declarations, source maps and JSON modules.
func NodeProject() *Config {
	c := Default()
	opts := c.CompilerOptions
	opts.Declaration = Bool(true)
	opts.SourceMap = Bool(true)
	opts.ResolveJSONModule = Bool(true)
	c.Exclude = []string{"node_modules", "dist", "**/*.test.ts", "**/*.spec.ts"}
	return c
}

// ReactProject type checks a React application that a bundler emits.
func ReactProject() *Config {
	return &Config{
		CompilerOptions: &CompilerOptions{
			Target:                           Ptr(ES2020),
			Lib:                              []string{"dom", "dom.iterable", "es6"},
			AllowJS:                          Bool(true),
			SkipLibCheck:                     Bool(true),
			ESModuleInterop:                  Bool(true),
			AllowSyntheticDefaultImports:     Bool(true),
			Strict:                           Bool(true),
			ForceConsistentCasingInFileNames: Bool(true),
			NoFallthroughCasesInSwitch:       Bool(true),
			Module:                           Ptr(ModuleESNext),
			ModuleResolution:                 Ptr(ResolutionNode),
			ResolveJSONModule:                Bool(true),
			IsolatedModules:                  Bool(true),
			NoEmit:                           Bool(true),
			JSX:                              Ptr(JSXReactJSX),
		},
		Include: []string{"src"},
		Exclude: []string{"node_modules"},
	}
}
