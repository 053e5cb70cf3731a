package esbuild

import (
	"fmt"
	"strings"
)

// The numeric values of every enum below are part of the wire format and
// match the bundler's own ordering. Zero is always the default.

type Platform uint8

const (
	PlatformDefault Platform = iota
	PlatformBrowser
	PlatformNode
	PlatformNeutral
)

var platformNames = []string{"default", "browser", "node", "neutral"}

func (p Platform) String() string { return enumName(platformNames, p) }

type Format uint8

const (
	FormatDefault Format = iota
	FormatIIFE
	FormatCommonJS
	FormatESModule
)

var formatNames = []string{"default", "iife", "cjs", "esm"}

func (f Format) String() string { return enumName(formatNames, f) }

type Target uint8

const (
	DefaultTarget Target = iota
	ESNext
	ES5
	ES2015
	ES2016
	ES2017
	ES2018
	ES2019
	ES2020
	ES2021
	ES2022
	ES2023
	ES2024
)

var targetNames = []string{
	"default", "esnext", "es5", "es2015", "es2016", "es2017", "es2018",
	"es2019", "es2020", "es2021", "es2022", "es2023", "es2024",
}

func (t Target) String() string { return enumName(targetNames, t) }

type Loader uint8

const (
	LoaderNone Loader = iota
	LoaderBase64
	LoaderBinary
	LoaderCopy
	LoaderCSS
	LoaderDataURL
	LoaderDefault
	LoaderEmpty
	LoaderFile
	LoaderGlobalCSS
	LoaderJS
	LoaderJSON
	LoaderJSX
	LoaderLocalCSS
	LoaderText
	LoaderTS
	LoaderTSX
)

var loaderNames = []string{
	"none", "base64", "binary", "copy", "css", "dataurl", "default", "empty",
	"file", "global-css", "js", "json", "jsx", "local-css", "text", "ts", "tsx",
}

func (l Loader) String() string { return enumName(loaderNames, l) }

type SourceMap uint8

const (
	SourceMapNone SourceMap = iota
	SourceMapInline
	SourceMapLinked
	SourceMapExternal
	SourceMapInlineAndExternal
)

var sourceMapNames = []string{"none", "inline", "linked", "external", "both"}

func (s SourceMap) String() string { return enumName(sourceMapNames, s) }

type SourcesContent uint8

const (
	SourcesContentInclude SourcesContent = iota
	SourcesContentExclude
)

var sourcesContentNames = []string{"include", "exclude"}

func (s SourcesContent) String() string { return enumName(sourcesContentNames, s) }

type JSX uint8

const (
	JSXTransform JSX = iota
	JSXPreserve
	JSXAutomatic
)

var jsxNames = []string{"transform", "preserve", "automatic"}

func (j JSX) String() string { return enumName(jsxNames, j) }

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelVerbose
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

var logLevelNames = []string{"silent", "verbose", "debug", "info", "warning", "error"}

func (l LogLevel) String() string { return enumName(logLevelNames, l) }

type LegalComments uint8

const (
	LegalCommentsDefault LegalComments = iota
	LegalCommentsNone
	LegalCommentsInline
	LegalCommentsEndOfFile
	LegalCommentsLinked
	LegalCommentsExternal
)

var legalCommentsNames = []string{"default", "none", "inline", "eof", "linked", "external"}

func (l LegalComments) String() string { return enumName(legalCommentsNames, l) }

type Charset uint8

const (
	CharsetDefault Charset = iota
	CharsetASCII
	CharsetUTF8
)

var charsetNames = []string{"default", "ascii", "utf8"}

func (c Charset) String() string { return enumName(charsetNames, c) }

type TreeShaking uint8

const (
	TreeShakingDefault TreeShaking = iota
	TreeShakingFalse
	TreeShakingTrue
)

var treeShakingNames = []string{"default", "false", "true"}

func (t TreeShaking) String() string { return enumName(treeShakingNames, t) }

type Color uint8

const (
	ColorIfTerminal Color = iota
	ColorNever
	ColorAlways
)

var colorNames = []string{"if-terminal", "never", "always"}

func (c Color) String() string { return enumName(colorNames, c) }

type Packages uint8

const (
	PackagesDefault Packages = iota
	PackagesBundle
	PackagesExternal
)

var packagesNames = []string{"default", "bundle", "external"}

func (p Packages) String() string { return enumName(packagesNames, p) }

type MangleQuoted uint8

const (
	MangleQuotedFalse MangleQuoted = iota
	MangleQuotedTrue
)

func (m MangleQuoted) String() string { return enumName([]string{"false", "true"}, m) }

// Drop is a set of constructs removed from the output.
type Drop uint8

const (
	DropConsole Drop = 1 << iota
	DropDebugger
)

func (d Drop) String() string {
	var parts []string
	if d&DropConsole != 0 {
		parts = append(parts, "console")
	}
	if d&DropDebugger != 0 {
		parts = append(parts, "debugger")
	}
	if rest := d &^ (DropConsole | DropDebugger); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

type EngineName uint8

const (
	EngineChrome EngineName = iota
	EngineDeno
	EngineEdge
	EngineFirefox
	EngineHermes
	EngineIE
	EngineIOS
	EngineNode
	EngineOpera
	EngineRhino
	EngineSafari
)

var engineNames = []string{
	"chrome", "deno", "edge", "firefox", "hermes", "ie", "ios", "node", "opera", "rhino", "safari",
}

func (e EngineName) String() string { return enumName(engineNames, e) }

type SideEffects uint8

const (
	SideEffectsTrue SideEffects = iota
	SideEffectsFalse
)

func (s SideEffects) String() string { return enumName([]string{"true", "false"}, s) }

// ResolveKind says which construct produced an import path.
type ResolveKind uint8

const (
	ResolveNone ResolveKind = iota
	ResolveEntryPoint
	ResolveJSImportStatement
	ResolveJSRequireCall
	ResolveJSDynamicImport
	ResolveJSRequireResolve
	ResolveCSSImportRule
	ResolveCSSComposesFrom
	ResolveCSSURLToken
)

var resolveKindNames = []string{
	"none", "entry-point", "import-statement", "require-call", "dynamic-import",
	"require-resolve", "import-rule", "composes-from", "url-token",
}

func (k ResolveKind) String() string { return enumName(resolveKindNames, k) }

type MessageKind uint8

const (
	MessageError MessageKind = iota
	MessageWarning
)

func (k MessageKind) String() string { return enumName([]string{"error", "warning"}, k) }

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%d", uint8(v))
}

func parseEnum[T ~uint8](names []string, kind, s string) (T, error) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}

// ParsePlatform accepts the names printed by Platform.String.
func ParsePlatform(s string) (Platform, error) {
	return parseEnum[Platform](platformNames, "platform", s)
}

func ParseFormat(s string) (Format, error) {
	return parseEnum[Format](formatNames, "format", s)
}

func ParseTarget(s string) (Target, error) {
	return parseEnum[Target](targetNames, "target", s)
}

func ParseLoader(s string) (Loader, error) {
	return parseEnum[Loader](loaderNames, "loader", s)
}

func ParseSourceMap(s string) (SourceMap, error) {
	return parseEnum[SourceMap](sourceMapNames, "sourcemap", s)
}

func ParseJSX(s string) (JSX, error) {
	return parseEnum[JSX](jsxNames, "jsx mode", s)
}

func ParseLogLevel(s string) (LogLevel, error) {
	return parseEnum[LogLevel](logLevelNames, "log level", s)
}

func ParseEngineName(s string) (EngineName, error) {
	return parseEnum[EngineName](engineNames, "engine", s)
}

// LoaderForExtension picks a loader from a file extension, with or without
// the leading dot. Unknown extensions load as JavaScript.
func LoaderForExtension(ext string) Loader {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jsx":
		return LoaderJSX
	case "ts", "mts", "cts":
		return LoaderTS
	case "tsx":
		return LoaderTSX
	case "json":
		return LoaderJSON
	case "css":
		return LoaderCSS
	case "txt":
		return LoaderText
	default:
		return LoaderJS
	}
}
