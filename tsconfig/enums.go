package tsconfig

import "strings"

// Target is the ECMAScript language version the compiler emits.
type Target string

const (
	ES3    Target = "ES3"
	ES5    Target = "ES5"
	ES2015 Target = "ES2015"
	ES2016 Target = "ES2016"
	ES2017 Target = "ES2017"
	ES2018 Target = "ES2018"
	ES2019 Target = "ES2019"
	ES2020 Target = "ES2020"
	ES2021 Target = "ES2021"
	ES2022 Target = "ES2022"
	ESNext Target = "ESNext"
)

// Targets lists every Target, oldest first.
var Targets = []Target{ES3, ES5, ES2015, ES2016, ES2017, ES2018, ES2019, ES2020, ES2021, ES2022, ESNext}

// Module is the module code generation mode.
type Module string

const (
	ModuleNone     Module = "none"
	ModuleCommonJS Module = "commonjs"
	ModuleAMD      Module = "amd"
	ModuleSystem   Module = "system"
	ModuleUMD      Module = "umd"
	ModuleES6      Module = "es6"
	ModuleES2015   Module = "es2015"
	ModuleES2020   Module = "es2020"
	ModuleES2022   Module = "es2022"
	ModuleESNext   Module = "esnext"
	ModuleNode16   Module = "node16"
	ModuleNodeNext Module = "nodenext"
)

var Modules = []Module{
	ModuleNone, ModuleCommonJS, ModuleAMD, ModuleSystem, ModuleUMD, ModuleES6,
	ModuleES2015, ModuleES2020, ModuleES2022, ModuleESNext, ModuleNode16, ModuleNodeNext,
}

// ModuleResolution is the module lookup strategy.
type ModuleResolution string

const (
	ResolutionClassic  ModuleResolution = "classic"
	ResolutionNode     ModuleResolution = "node"
	ResolutionNode16   ModuleResolution = "node16"
	ResolutionNodeNext ModuleResolution = "nodenext"
	ResolutionBundler  ModuleResolution = "bundler"
)

var ModuleResolutions = []ModuleResolution{
	ResolutionClassic, ResolutionNode, ResolutionNode16, ResolutionNodeNext, ResolutionBundler,
}

// JSX controls how JSX constructs are emitted.
type JSX string

const (
	JSXNone        JSX = "none"
	JSXPreserve    JSX = "preserve"
	JSXReact       JSX = "react"
	JSXReactNative JSX = "react-native"
	JSXReactJSX    JSX = "react-jsx"
	JSXReactJSXDev JSX = "react-jsxdev"
)

var JSXModes = []JSX{JSXNone, JSXPreserve, JSXReact, JSXReactNative, JSXReactJSX, JSXReactJSXDev}

// NewLine is the line ending used in emitted files.
type NewLine string

const (
	NewLineCRLF NewLine = "crlf"
	NewLineLF   NewLine = "lf"
)

var NewLines = []NewLine{NewLineCRLF, NewLineLF}

// ImportsNotUsedAsValues controls emit for type-only imports.
type ImportsNotUsedAsValues string

const (
	ImportsRemove   ImportsNotUsedAsValues = "remove"
	ImportsPreserve ImportsNotUsedAsValues = "preserve"
	ImportsError    ImportsNotUsedAsValues = "error"
)

var ImportsNotUsedAsValuesModes = []ImportsNotUsedAsValues{ImportsRemove, ImportsPreserve, ImportsError}

// lookup matches v against known values case-insensitively, as tsc does.
func lookup[T ~string](v T, known []T) (T, bool) {
	for _, k := range known {
		if strings.EqualFold(string(k), string(v)) {
			return k, true
		}
	}
	return v, false
}

// Canonical returns the canonical spelling of t and whether t is known.
func (t Target) Canonical() (Target, bool) { return lookup(t, Targets) }

func (m Module) Canonical() (Module, bool) { return lookup(m, Modules) }

func (r ModuleResolution) Canonical() (ModuleResolution, bool) { return lookup(r, ModuleResolutions) }

func (j JSX) Canonical() (JSX, bool) { return lookup(j, JSXModes) }

func (n NewLine) Canonical() (NewLine, bool) { return lookup(n, NewLines) }

func (i ImportsNotUsedAsValues) Canonical() (ImportsNotUsedAsValues, bool) {
	return lookup(i, ImportsNotUsedAsValuesModes)
}
