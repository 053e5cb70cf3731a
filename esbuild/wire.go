package esbuild

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/errors"
	"github.com/wippyai/tsgo-bridge/registry"
)

// Wire layouts shared by the host and the reference engine. Enum fields
// carry the enum's numeric value; opaque values (plugin data, message
// detail, mangle caches) travel as CBOR.

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("esbuild: create CBOR enc mode: %v", err))
	}
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("esbuild: create CBOR dec mode: %v", err))
	}
	cborEnc, cborDec = em, dm
}

// marshalData encodes an opaque value. Nil stays nil.
func marshalData(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return cborEnc.Marshal(v)
}

func unmarshalData(b []byte) (any, error) {
	if b == nil {
		return nil, nil
	}
	var v any
	if err := cborDec.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func setData(w *abi.Writer, rec *abi.RecordWriter, f int, v any, what string) {
	b, err := marshalData(v)
	if err != nil {
		w.Fail(errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Path(what).
			Detail("encode %T", v).
			Cause(err).
			Build())
		return
	}
	rec.SetBytes(f, b)
}

func getData(rd *abi.Reader, rec abi.RecordReader, f int, what string) any {
	v, err := unmarshalData(rec.Bytes(f))
	if err != nil {
		rd.Fail(errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, what))
		return nil
	}
	return v
}

func getEnum[T ~uint8](rd *abi.Reader, rec abi.RecordReader, f int, names []string, what string) T {
	v := rec.U32(f)
	if int(v) >= len(names) {
		rd.Fail(errors.InvalidEnum(errors.PhaseDecode, []string{what}, v, what))
		return 0
	}
	return T(v)
}

// Messages

const (
	locFile = iota
	locNamespace
	locLine
	locColumn
	locLength
	locLineText
	locSuggestion
)

var locationLayout = abi.NewLayout("location",
	abi.F("file", abi.Str),
	abi.F("namespace", abi.Str),
	abi.F("line", abi.I32),
	abi.F("column", abi.I32),
	abi.F("length", abi.I32),
	abi.F("line_text", abi.Str),
	abi.F("suggestion", abi.Str),
)

const (
	noteText = iota
	noteLocation
)

var noteLayout = abi.NewLayout("note",
	abi.F("text", abi.Str),
	abi.Nested("location", abi.Rec, locationLayout),
)

const (
	msgID = iota
	msgPluginName
	msgText
	msgLocation
	msgNotes
	msgDetail
)

var messageLayout = abi.NewLayout("message",
	abi.F("id", abi.Str),
	abi.F("plugin_name", abi.Str),
	abi.F("text", abi.Str),
	abi.Nested("location", abi.Rec, locationLayout),
	abi.Nested("notes", abi.Recs, noteLayout),
	abi.F("detail", abi.Bytes),
)

func encodeLocation(rec *abi.RecordWriter, f int, loc *Location) {
	if loc == nil {
		return
	}
	sub := rec.Record(f)
	sub.SetString(locFile, loc.File)
	sub.SetString(locNamespace, loc.Namespace)
	sub.SetInt(locLine, loc.Line)
	sub.SetInt(locColumn, loc.Column)
	sub.SetInt(locLength, loc.Length)
	sub.SetString(locLineText, loc.LineText)
	sub.SetString(locSuggestion, loc.Suggestion)
}

func decodeLocation(rec abi.RecordReader, f int) *Location {
	sub, ok := rec.Record(f)
	if !ok {
		return nil
	}
	return &Location{
		File:       sub.String(locFile),
		Namespace:  sub.String(locNamespace),
		Line:       sub.Int(locLine),
		Column:     sub.Int(locColumn),
		Length:     sub.Int(locLength),
		LineText:   sub.String(locLineText),
		Suggestion: sub.String(locSuggestion),
	}
}

func encodeMessages(w *abi.Writer, rec *abi.RecordWriter, f int, msgs []Message) {
	for i, sub := range rec.Records(f, len(msgs)) {
		m := msgs[i]
		sub.SetString(msgID, m.ID)
		sub.SetString(msgPluginName, m.PluginName)
		sub.SetString(msgText, m.Text)
		encodeLocation(sub, msgLocation, m.Location)
		for j, n := range sub.Records(msgNotes, len(m.Notes)) {
			n.SetString(noteText, m.Notes[j].Text)
			encodeLocation(n, noteLocation, m.Notes[j].Location)
		}
		// Detail is best effort: a value CBOR cannot carry is dropped.
		if b, err := marshalData(m.Detail); err == nil {
			sub.SetBytes(msgDetail, b)
		}
	}
}

func decodeMessages(rd *abi.Reader, rec abi.RecordReader, f int) []Message {
	subs := rec.Records(f)
	if subs == nil {
		return nil
	}
	out := make([]Message, len(subs))
	for i, sub := range subs {
		out[i] = Message{
			ID:         sub.String(msgID),
			PluginName: sub.String(msgPluginName),
			Text:       sub.String(msgText),
			Location:   decodeLocation(sub, msgLocation),
			Detail:     getData(rd, sub, msgDetail, "message.detail"),
		}
		for _, n := range sub.Records(msgNotes) {
			out[i].Notes = append(out[i].Notes, Note{
				Text:     n.String(noteText),
				Location: decodeLocation(n, noteLocation),
			})
		}
	}
	return out
}

// Options

const (
	coLogOverride = iota
	coSupported
	coMangleCache
	coDefine
	coSourceRoot
	coGlobalName
	coMangleProps
	coReserveProps
	coJSXFactory
	coJSXFragment
	coJSXImportSource
	coTSConfigRaw
	coEngines
	coDropLabels
	coPure
	coLogLimit
	coLineLimit
	coColor
	coLogLevel
	coSourcemap
	coSourcesContent
	coTarget
	coPlatform
	coFormat
	coMangleQuoted
	coDrop
	coCharset
	coTreeShaking
	coLegalComments
	coJSX
	coMinifyWhitespace
	coMinifyIdentifiers
	coMinifySyntax
	coIgnoreAnnotations
	coJSXDev
	coJSXSideEffects
	coKeepNames
)

const (
	engName = iota
	engVersion
)

var engineLayout = abi.NewLayout("engine",
	abi.F("name", abi.U32),
	abi.F("version", abi.Str),
)

var commonLayout = abi.NewLayout("common_options",
	abi.F("log_override", abi.Map),
	abi.F("supported", abi.Map),
	abi.F("mangle_cache", abi.Bytes),
	abi.F("define", abi.Map),
	abi.F("source_root", abi.Str),
	abi.F("global_name", abi.Str),
	abi.F("mangle_props", abi.Str),
	abi.F("reserve_props", abi.Str),
	abi.F("jsx_factory", abi.Str),
	abi.F("jsx_fragment", abi.Str),
	abi.F("jsx_import_source", abi.Str),
	abi.F("tsconfig_raw", abi.Str),
	abi.Nested("engines", abi.Recs, engineLayout),
	abi.F("drop_labels", abi.Strs),
	abi.F("pure", abi.Strs),
	abi.F("log_limit", abi.I32),
	abi.F("line_limit", abi.I32),
	abi.F("color", abi.U32),
	abi.F("log_level", abi.U32),
	abi.F("sourcemap", abi.U32),
	abi.F("sources_content", abi.U32),
	abi.F("target", abi.U32),
	abi.F("platform", abi.U32),
	abi.F("format", abi.U32),
	abi.F("mangle_quoted", abi.U32),
	abi.F("drop", abi.U32),
	abi.F("charset", abi.U32),
	abi.F("tree_shaking", abi.U32),
	abi.F("legal_comments", abi.U32),
	abi.F("jsx", abi.U32),
	abi.F("minify_whitespace", abi.Bool),
	abi.F("minify_identifiers", abi.Bool),
	abi.F("minify_syntax", abi.Bool),
	abi.F("ignore_annotations", abi.Bool),
	abi.F("jsx_dev", abi.Bool),
	abi.F("jsx_side_effects", abi.Bool),
	abi.F("keep_names", abi.Bool),
)

func encodeCommon(w *abi.Writer, rec *abi.RecordWriter, o *CommonOptions) {
	if len(o.LogOverride) > 0 {
		m := make(map[string]string, len(o.LogOverride))
		for k, v := range o.LogOverride {
			m[k] = v.String()
		}
		rec.SetMap(coLogOverride, m)
	}
	if len(o.Supported) > 0 {
		m := make(map[string]string, len(o.Supported))
		for k, v := range o.Supported {
			m[k] = strconv.FormatBool(v)
		}
		rec.SetMap(coSupported, m)
	}
	if o.MangleCache != nil {
		setData(w, rec, coMangleCache, o.MangleCache, "mangle_cache")
	}
	rec.SetMap(coDefine, o.Define)
	rec.SetString(coSourceRoot, o.SourceRoot)
	rec.SetString(coGlobalName, o.GlobalName)
	rec.SetString(coMangleProps, o.MangleProps)
	rec.SetString(coReserveProps, o.ReserveProps)
	rec.SetString(coJSXFactory, o.JSXFactory)
	rec.SetString(coJSXFragment, o.JSXFragment)
	rec.SetString(coJSXImportSource, o.JSXImportSource)
	rec.SetString(coTSConfigRaw, o.TSConfigRaw)
	for i, sub := range rec.Records(coEngines, len(o.Engines)) {
		sub.SetU32(engName, uint32(o.Engines[i].Name))
		sub.SetString(engVersion, o.Engines[i].Version)
	}
	rec.SetStrings(coDropLabels, o.DropLabels)
	rec.SetStrings(coPure, o.Pure)
	rec.SetInt(coLogLimit, o.LogLimit)
	rec.SetInt(coLineLimit, o.LineLimit)
	rec.SetU32(coColor, uint32(o.Color))
	rec.SetU32(coLogLevel, uint32(o.LogLevel))
	rec.SetU32(coSourcemap, uint32(o.Sourcemap))
	rec.SetU32(coSourcesContent, uint32(o.SourcesContent))
	rec.SetU32(coTarget, uint32(o.Target))
	rec.SetU32(coPlatform, uint32(o.Platform))
	rec.SetU32(coFormat, uint32(o.Format))
	rec.SetU32(coMangleQuoted, uint32(o.MangleQuoted))
	rec.SetU32(coDrop, uint32(o.Drop))
	rec.SetU32(coCharset, uint32(o.Charset))
	rec.SetU32(coTreeShaking, uint32(o.TreeShaking))
	rec.SetU32(coLegalComments, uint32(o.LegalComments))
	rec.SetU32(coJSX, uint32(o.JSX))
	rec.SetBool(coMinifyWhitespace, o.Minify || o.MinifyWhitespace)
	rec.SetBool(coMinifyIdentifiers, o.Minify || o.MinifyIdentifiers)
	rec.SetBool(coMinifySyntax, o.Minify || o.MinifySyntax)
	rec.SetBool(coIgnoreAnnotations, o.IgnoreAnnotations)
	rec.SetBool(coJSXDev, o.JSXDev)
	rec.SetBool(coJSXSideEffects, o.JSXSideEffects)
	rec.SetBool(coKeepNames, o.KeepNames)
}

// decodeCommon never sets Minify; the three Minify* flags carry it.
func decodeCommon(rd *abi.Reader, rec abi.RecordReader) CommonOptions {
	o := CommonOptions{
		Define:            rec.Map(coDefine),
		SourceRoot:        rec.String(coSourceRoot),
		GlobalName:        rec.String(coGlobalName),
		MangleProps:       rec.String(coMangleProps),
		ReserveProps:      rec.String(coReserveProps),
		JSXFactory:        rec.String(coJSXFactory),
		JSXFragment:       rec.String(coJSXFragment),
		JSXImportSource:   rec.String(coJSXImportSource),
		TSConfigRaw:       rec.String(coTSConfigRaw),
		DropLabels:        rec.Strings(coDropLabels),
		Pure:              rec.Strings(coPure),
		LogLimit:          rec.Int(coLogLimit),
		LineLimit:         rec.Int(coLineLimit),
		Color:             getEnum[Color](rd, rec, coColor, colorNames, "color"),
		LogLevel:          getEnum[LogLevel](rd, rec, coLogLevel, logLevelNames, "log_level"),
		Sourcemap:         getEnum[SourceMap](rd, rec, coSourcemap, sourceMapNames, "sourcemap"),
		SourcesContent:    getEnum[SourcesContent](rd, rec, coSourcesContent, sourcesContentNames, "sources_content"),
		Target:            getEnum[Target](rd, rec, coTarget, targetNames, "target"),
		Platform:          getEnum[Platform](rd, rec, coPlatform, platformNames, "platform"),
		Format:            getEnum[Format](rd, rec, coFormat, formatNames, "format"),
		MangleQuoted:      getEnum[MangleQuoted](rd, rec, coMangleQuoted, []string{"false", "true"}, "mangle_quoted"),
		Drop:              Drop(rec.U32(coDrop)) & (DropConsole | DropDebugger),
		Charset:           getEnum[Charset](rd, rec, coCharset, charsetNames, "charset"),
		TreeShaking:       getEnum[TreeShaking](rd, rec, coTreeShaking, treeShakingNames, "tree_shaking"),
		LegalComments:     getEnum[LegalComments](rd, rec, coLegalComments, legalCommentsNames, "legal_comments"),
		JSX:               getEnum[JSX](rd, rec, coJSX, jsxNames, "jsx"),
		MinifyWhitespace:  rec.Bool(coMinifyWhitespace),
		MinifyIdentifiers: rec.Bool(coMinifyIdentifiers),
		MinifySyntax:      rec.Bool(coMinifySyntax),
		IgnoreAnnotations: rec.Bool(coIgnoreAnnotations),
		JSXDev:            rec.Bool(coJSXDev),
		JSXSideEffects:    rec.Bool(coJSXSideEffects),
		KeepNames:         rec.Bool(coKeepNames),
	}
	if m := rec.Map(coLogOverride); m != nil {
		o.LogOverride = make(map[string]LogLevel, len(m))
		for k, v := range m {
			lvl, err := ParseLogLevel(v)
			if err != nil {
				rd.Fail(errors.InvalidEnum(errors.PhaseDecode, []string{"log_override", k}, v, "log level"))
				continue
			}
			o.LogOverride[k] = lvl
		}
	}
	if m := rec.Map(coSupported); m != nil {
		o.Supported = make(map[string]bool, len(m))
		for k, v := range m {
			b, err := strconv.ParseBool(v)
			if err != nil {
				rd.Fail(errors.InvalidData(errors.PhaseDecode, []string{"supported", k}, "not a boolean: "+v))
				continue
			}
			o.Supported[k] = b
		}
	}
	if cache, ok := getData(rd, rec, coMangleCache, "mangle_cache").(map[string]any); ok {
		o.MangleCache = cache
	}
	for _, sub := range rec.Records(coEngines) {
		o.Engines = append(o.Engines, Engine{
			Name:    getEnum[EngineName](rd, sub, engName, engineNames, "engine"),
			Version: sub.String(engVersion),
		})
	}
	return o
}

const (
	hfFilter = iota
	hfNamespace
)

var hookFilterLayout = abi.NewLayout("hook_filter",
	abi.F("filter", abi.Str),
	abi.F("namespace", abi.Str),
)

const (
	plName = iota
	plCallbackData
	plOnStart
	plOnEnd
	plOnResolve
	plOnLoad
	plOnDispose
	plResolveHooks
	plLoadHooks
)

var pluginLayout = abi.NewLayout("plugin",
	abi.F("name", abi.Str),
	abi.F("callback_data", abi.U32),
	abi.F("on_start", abi.U32),
	abi.F("on_end", abi.U32),
	abi.F("on_resolve", abi.U32),
	abi.F("on_load", abi.U32),
	abi.F("on_dispose", abi.U32),
	abi.Nested("resolve_hooks", abi.Recs, hookFilterLayout),
	abi.Nested("load_hooks", abi.Recs, hookFilterLayout),
)

// HookFilter is the filter and namespace of one registered hook.
type HookFilter struct {
	Filter    string
	Namespace string
}

// PluginRef is a plugin as the engine sees it: the callbacks it registered
// and the token that routes them back to the host. A zero FuncID means the
// plugin registered no hook of that kind.
type PluginRef struct {
	Name         string
	ResolveHooks []HookFilter
	LoadHooks    []HookFilter
	Token        registry.Token
	Start        engine.FuncID
	End          engine.FuncID
	Resolve      engine.FuncID
	Load         engine.FuncID
	Dispose      engine.FuncID
}

func encodeHookFilters(rec *abi.RecordWriter, f int, hooks []HookFilter) {
	for i, sub := range rec.Records(f, len(hooks)) {
		sub.SetString(hfFilter, hooks[i].Filter)
		sub.SetString(hfNamespace, hooks[i].Namespace)
	}
}

func decodeHookFilters(rec abi.RecordReader, f int) []HookFilter {
	var out []HookFilter
	for _, sub := range rec.Records(f) {
		out = append(out, HookFilter{Filter: sub.String(hfFilter), Namespace: sub.String(hfNamespace)})
	}
	return out
}

const (
	epInput = iota
	epOutput
)

var entryPointLayout = abi.NewLayout("entry_point",
	abi.F("input_path", abi.Str),
	abi.F("output_path", abi.Str),
)

const (
	stdinContents = iota
	stdinResolveDir
	stdinSourcefile
	stdinLoader
)

var stdinLayout = abi.NewLayout("stdin",
	abi.F("contents", abi.Bytes),
	abi.F("resolve_dir", abi.Str),
	abi.F("sourcefile", abi.Str),
	abi.F("loader", abi.U32),
)

const (
	boCommon = iota
	boBanner
	boFooter
	boAlias
	boLoader
	boOutExtension
	boStdin
	boTSConfig
	boOutfile
	boOutdir
	boOutbase
	boAbsWorkingDir
	boPublicPath
	boEntryNames
	boChunkNames
	boAssetNames
	boExternal
	boMainFields
	boConditions
	boResolveExtensions
	boInject
	boNodePaths
	boEntryPoints
	boEntryPointsAdvanced
	boPlugins
	boPackages
	boBundle
	boPreserveSymlinks
	boSplitting
	boMetafile
	boWrite
	boAllowOverwrite
)

// BuildOptionsLayout is the options record passed to esbuild_build.
var BuildOptionsLayout = abi.NewLayout("build_options",
	abi.Nested("common", abi.Rec, commonLayout),
	abi.F("banner", abi.Map),
	abi.F("footer", abi.Map),
	abi.F("alias", abi.Map),
	abi.F("loader", abi.Map),
	abi.F("out_extension", abi.Map),
	abi.Nested("stdin", abi.Rec, stdinLayout),
	abi.F("tsconfig", abi.Str),
	abi.F("outfile", abi.Str),
	abi.F("outdir", abi.Str),
	abi.F("outbase", abi.Str),
	abi.F("abs_working_dir", abi.Str),
	abi.F("public_path", abi.Str),
	abi.F("entry_names", abi.Str),
	abi.F("chunk_names", abi.Str),
	abi.F("asset_names", abi.Str),
	abi.F("external", abi.Strs),
	abi.F("main_fields", abi.Strs),
	abi.F("conditions", abi.Strs),
	abi.F("resolve_extensions", abi.Strs),
	abi.F("inject", abi.Strs),
	abi.F("node_paths", abi.Strs),
	abi.F("entry_points", abi.Strs),
	abi.Nested("entry_points_advanced", abi.Recs, entryPointLayout),
	abi.Nested("plugins", abi.Recs, pluginLayout),
	abi.F("packages", abi.U32),
	abi.F("bundle", abi.Bool),
	abi.F("preserve_symlinks", abi.Bool),
	abi.F("splitting", abi.Bool),
	abi.F("metafile", abi.Bool),
	abi.F("write", abi.Bool),
	abi.F("allow_overwrite", abi.Bool),
)

// EncodeBuildOptions writes o with the given plugins. o.Plugins is ignored;
// plugins cross the boundary only as PluginRefs.
func EncodeBuildOptions(w *abi.Writer, o *BuildOptions, plugins []PluginRef) uint32 {
	rec := w.NewRecord(BuildOptionsLayout)
	encodeCommon(w, rec.Record(boCommon), &o.CommonOptions)
	rec.SetMap(boBanner, o.Banner)
	rec.SetMap(boFooter, o.Footer)
	rec.SetMap(boAlias, o.Alias)
	if len(o.Loader) > 0 {
		m := make(map[string]string, len(o.Loader))
		for ext, l := range o.Loader {
			m[ext] = l.String()
		}
		rec.SetMap(boLoader, m)
	}
	rec.SetMap(boOutExtension, o.OutExtension)
	if o.Stdin != nil {
		sub := rec.Record(boStdin)
		sub.SetOptText(stdinContents, &o.Stdin.Contents)
		sub.SetString(stdinResolveDir, o.Stdin.ResolveDir)
		sub.SetString(stdinSourcefile, o.Stdin.Sourcefile)
		sub.SetU32(stdinLoader, uint32(o.Stdin.Loader))
	}
	rec.SetString(boTSConfig, o.TSConfig)
	rec.SetString(boOutfile, o.Outfile)
	rec.SetString(boOutdir, o.Outdir)
	rec.SetString(boOutbase, o.Outbase)
	rec.SetString(boAbsWorkingDir, o.AbsWorkingDir)
	rec.SetString(boPublicPath, o.PublicPath)
	rec.SetString(boEntryNames, o.EntryNames)
	rec.SetString(boChunkNames, o.ChunkNames)
	rec.SetString(boAssetNames, o.AssetNames)
	rec.SetStrings(boExternal, o.External)
	rec.SetStringsExact(boMainFields, o.MainFields)
	rec.SetStringsExact(boConditions, o.Conditions)
	rec.SetStringsExact(boResolveExtensions, o.ResolveExtensions)
	rec.SetStrings(boInject, o.Inject)
	rec.SetStrings(boNodePaths, o.NodePaths)
	rec.SetStrings(boEntryPoints, o.EntryPoints)
	for i, sub := range rec.Records(boEntryPointsAdvanced, len(o.EntryPointsAdvanced)) {
		sub.SetString(epInput, o.EntryPointsAdvanced[i].InputPath)
		sub.SetString(epOutput, o.EntryPointsAdvanced[i].OutputPath)
	}
	for i, sub := range rec.Records(boPlugins, len(plugins)) {
		p := plugins[i]
		sub.SetString(plName, p.Name)
		sub.SetU32(plCallbackData, uint32(p.Token))
		sub.SetU32(plOnStart, uint32(p.Start))
		sub.SetU32(plOnEnd, uint32(p.End))
		sub.SetU32(plOnResolve, uint32(p.Resolve))
		sub.SetU32(plOnLoad, uint32(p.Load))
		sub.SetU32(plOnDispose, uint32(p.Dispose))
		encodeHookFilters(sub, plResolveHooks, p.ResolveHooks)
		encodeHookFilters(sub, plLoadHooks, p.LoadHooks)
	}
	rec.SetU32(boPackages, uint32(o.Packages))
	rec.SetBool(boBundle, o.Bundle)
	rec.SetBool(boPreserveSymlinks, o.PreserveSymlinks)
	rec.SetBool(boSplitting, o.Splitting)
	rec.SetBool(boMetafile, o.Metafile)
	rec.SetBool(boWrite, o.Write)
	rec.SetBool(boAllowOverwrite, o.AllowOverwrite)
	return rec.Ptr()
}

// DecodeBuildOptions reads a build options record and its plugin references.
func DecodeBuildOptions(rd *abi.Reader, ptr uint32) (*BuildOptions, []PluginRef) {
	rec := rd.Record(ptr, BuildOptionsLayout)
	o := &BuildOptions{
		Banner:            rec.Map(boBanner),
		Footer:            rec.Map(boFooter),
		Alias:             rec.Map(boAlias),
		OutExtension:      rec.Map(boOutExtension),
		TSConfig:          rec.String(boTSConfig),
		Outfile:           rec.String(boOutfile),
		Outdir:            rec.String(boOutdir),
		Outbase:           rec.String(boOutbase),
		AbsWorkingDir:     rec.String(boAbsWorkingDir),
		PublicPath:        rec.String(boPublicPath),
		EntryNames:        rec.String(boEntryNames),
		ChunkNames:        rec.String(boChunkNames),
		AssetNames:        rec.String(boAssetNames),
		External:          rec.Strings(boExternal),
		MainFields:        rec.Strings(boMainFields),
		Conditions:        rec.Strings(boConditions),
		ResolveExtensions: rec.Strings(boResolveExtensions),
		Inject:            rec.Strings(boInject),
		NodePaths:         rec.Strings(boNodePaths),
		EntryPoints:       rec.Strings(boEntryPoints),
		Packages:          getEnum[Packages](rd, rec, boPackages, packagesNames, "packages"),
		Bundle:            rec.Bool(boBundle),
		PreserveSymlinks:  rec.Bool(boPreserveSymlinks),
		Splitting:         rec.Bool(boSplitting),
		Metafile:          rec.Bool(boMetafile),
		Write:             rec.Bool(boWrite),
		AllowOverwrite:    rec.Bool(boAllowOverwrite),
	}
	if sub, ok := rec.Record(boCommon); ok {
		o.CommonOptions = decodeCommon(rd, sub)
	}
	if m := rec.Map(boLoader); m != nil {
		o.Loader = make(map[string]Loader, len(m))
		for ext, name := range m {
			l, err := ParseLoader(name)
			if err != nil {
				rd.Fail(errors.InvalidEnum(errors.PhaseDecode, []string{"loader", ext}, name, "loader"))
				continue
			}
			o.Loader[ext] = l
		}
	}
	if sub, ok := rec.Record(boStdin); ok {
		o.Stdin = &Stdin{
			Contents:   string(sub.Bytes(stdinContents)),
			ResolveDir: sub.String(stdinResolveDir),
			Sourcefile: sub.String(stdinSourcefile),
			Loader:     getEnum[Loader](rd, sub, stdinLoader, loaderNames, "stdin.loader"),
		}
	}
	for _, sub := range rec.Records(boEntryPointsAdvanced) {
		o.EntryPointsAdvanced = append(o.EntryPointsAdvanced, EntryPoint{
			InputPath:  sub.String(epInput),
			OutputPath: sub.String(epOutput),
		})
	}
	var plugins []PluginRef
	for _, sub := range rec.Records(boPlugins) {
		plugins = append(plugins, PluginRef{
			Name:         sub.String(plName),
			Token:        registry.Token(sub.U32(plCallbackData)),
			Start:        engine.FuncID(sub.U32(plOnStart)),
			End:          engine.FuncID(sub.U32(plOnEnd)),
			Resolve:      engine.FuncID(sub.U32(plOnResolve)),
			Load:         engine.FuncID(sub.U32(plOnLoad)),
			Dispose:      engine.FuncID(sub.U32(plOnDispose)),
			ResolveHooks: decodeHookFilters(sub, plResolveHooks),
			LoadHooks:    decodeHookFilters(sub, plLoadHooks),
		})
	}
	return o, plugins
}

const (
	toCommon = iota
	toBanner
	toFooter
	toSourcefile
	toLoader
)

// TransformOptionsLayout is the options record passed to esbuild_transform.
var TransformOptionsLayout = abi.NewLayout("transform_options",
	abi.Nested("common", abi.Rec, commonLayout),
	abi.F("banner", abi.Str),
	abi.F("footer", abi.Str),
	abi.F("sourcefile", abi.Str),
	abi.F("loader", abi.U32),
)

func EncodeTransformOptions(w *abi.Writer, o *TransformOptions) uint32 {
	rec := w.NewRecord(TransformOptionsLayout)
	encodeCommon(w, rec.Record(toCommon), &o.CommonOptions)
	rec.SetString(toBanner, o.Banner)
	rec.SetString(toFooter, o.Footer)
	rec.SetString(toSourcefile, o.Sourcefile)
	rec.SetU32(toLoader, uint32(o.Loader))
	return rec.Ptr()
}

func DecodeTransformOptions(rd *abi.Reader, ptr uint32) *TransformOptions {
	rec := rd.Record(ptr, TransformOptionsLayout)
	o := &TransformOptions{
		Banner:     rec.String(toBanner),
		Footer:     rec.String(toFooter),
		Sourcefile: rec.String(toSourcefile),
		Loader:     getEnum[Loader](rd, rec, toLoader, loaderNames, "loader"),
	}
	if sub, ok := rec.Record(toCommon); ok {
		o.CommonOptions = decodeCommon(rd, sub)
	}
	return o
}

// Results

const (
	ofPath = iota
	ofContents
	ofHash
)

var outputFileLayout = abi.NewLayout("output_file",
	abi.F("path", abi.Str),
	abi.F("contents", abi.Bytes),
	abi.F("hash", abi.Str),
)

const (
	brErrors = iota
	brWarnings
	brOutputFiles
	brMetafile
	brMangleCache
)

// BuildResultLayout is returned by esbuild_build and released with
// esbuild_free_build_result.
var BuildResultLayout = abi.NewLayout("build_result",
	abi.Nested("errors", abi.Recs, messageLayout),
	abi.Nested("warnings", abi.Recs, messageLayout),
	abi.Nested("output_files", abi.Recs, outputFileLayout),
	abi.F("metafile", abi.Str),
	abi.F("mangle_cache", abi.Bytes),
)

func EncodeBuildResult(w *abi.Writer, r *BuildResult) uint32 {
	rec := w.NewRecord(BuildResultLayout)
	encodeMessages(w, rec, brErrors, r.Errors)
	encodeMessages(w, rec, brWarnings, r.Warnings)
	for i, sub := range rec.Records(brOutputFiles, len(r.OutputFiles)) {
		f := r.OutputFiles[i]
		sub.SetString(ofPath, f.Path)
		contents := f.Contents
		if contents == nil {
			contents = []byte{}
		}
		sub.SetBytes(ofContents, contents)
		sub.SetString(ofHash, f.Hash)
	}
	rec.SetOptString(brMetafile, r.Metafile)
	if r.MangleCache != nil {
		setData(w, rec, brMangleCache, r.MangleCache, "mangle_cache")
	}
	return rec.Ptr()
}

func DecodeBuildResult(rd *abi.Reader, ptr uint32) *BuildResult {
	rec := rd.Record(ptr, BuildResultLayout)
	r := &BuildResult{
		Errors:   decodeMessages(rd, rec, brErrors),
		Warnings: decodeMessages(rd, rec, brWarnings),
		Metafile: rec.OptString(brMetafile),
	}
	for _, sub := range rec.Records(brOutputFiles) {
		contents := sub.Bytes(ofContents)
		if contents == nil {
			contents = []byte{}
		}
		r.OutputFiles = append(r.OutputFiles, OutputFile{
			Path:     sub.String(ofPath),
			Contents: contents,
			Hash:     sub.String(ofHash),
		})
	}
	if cache, ok := getData(rd, rec, brMangleCache, "mangle_cache").(map[string]any); ok {
		r.MangleCache = cache
	}
	return r
}

const (
	trErrors = iota
	trWarnings
	trCode
	trMap
	trLegalComments
	trMangleCache
)

// TransformResultLayout is returned by esbuild_transform and released with
// esbuild_free_transform_result.
var TransformResultLayout = abi.NewLayout("transform_result",
	abi.Nested("errors", abi.Recs, messageLayout),
	abi.Nested("warnings", abi.Recs, messageLayout),
	abi.F("code", abi.Bytes),
	abi.F("map", abi.Bytes),
	abi.F("legal_comments", abi.Bytes),
	abi.F("mangle_cache", abi.Bytes),
)

func EncodeTransformResult(w *abi.Writer, r *TransformResult) uint32 {
	rec := w.NewRecord(TransformResultLayout)
	encodeMessages(w, rec, trErrors, r.Errors)
	encodeMessages(w, rec, trWarnings, r.Warnings)
	code := r.Code
	if code == nil {
		code = []byte{}
	}
	rec.SetBytes(trCode, code)
	rec.SetBytes(trMap, r.Map)
	rec.SetBytes(trLegalComments, r.LegalComments)
	if r.MangleCache != nil {
		setData(w, rec, trMangleCache, r.MangleCache, "mangle_cache")
	}
	return rec.Ptr()
}

func DecodeTransformResult(rd *abi.Reader, ptr uint32) *TransformResult {
	rec := rd.Record(ptr, TransformResultLayout)
	r := &TransformResult{
		Errors:        decodeMessages(rd, rec, trErrors),
		Warnings:      decodeMessages(rd, rec, trWarnings),
		Code:          rec.Bytes(trCode),
		Map:           rec.Bytes(trMap),
		LegalComments: rec.Bytes(trLegalComments),
	}
	if r.Code == nil {
		r.Code = []byte{}
	}
	if cache, ok := getData(rd, rec, trMangleCache, "mangle_cache").(map[string]any); ok {
		r.MangleCache = cache
	}
	return r
}

// Hook records

const (
	raPath = iota
	raImporter
	raNamespace
	raResolveDir
	raKind
	raPluginData
	raWith
)

// ResolveArgsLayout is the argument record of a plugin resolve callback.
var ResolveArgsLayout = abi.NewLayout("on_resolve_args",
	abi.F("path", abi.Str),
	abi.F("importer", abi.Str),
	abi.F("namespace", abi.Str),
	abi.F("resolve_dir", abi.Str),
	abi.F("kind", abi.U32),
	abi.F("plugin_data", abi.Bytes),
	abi.F("with", abi.Map),
)

func EncodeResolveArgs(w *abi.Writer, a *OnResolveArgs) uint32 {
	rec := w.NewRecord(ResolveArgsLayout)
	rec.SetOptString(raPath, &a.Path)
	rec.SetString(raImporter, a.Importer)
	rec.SetString(raNamespace, a.Namespace)
	rec.SetString(raResolveDir, a.ResolveDir)
	rec.SetU32(raKind, uint32(a.Kind))
	setData(w, rec, raPluginData, a.PluginData, "plugin_data")
	rec.SetMap(raWith, a.With)
	return rec.Ptr()
}

func DecodeResolveArgs(rd *abi.Reader, ptr uint32) OnResolveArgs {
	rec := rd.Record(ptr, ResolveArgsLayout)
	return OnResolveArgs{
		Path:       rec.String(raPath),
		Importer:   rec.String(raImporter),
		Namespace:  rec.String(raNamespace),
		ResolveDir: rec.String(raResolveDir),
		Kind:       getEnum[ResolveKind](rd, rec, raKind, resolveKindNames, "kind"),
		PluginData: getData(rd, rec, raPluginData, "plugin_data"),
		With:       rec.Map(raWith),
	}
}

const (
	laPath = iota
	laNamespace
	laSuffix
	laPluginData
	laWith
)

// LoadArgsLayout is the argument record of a plugin load callback.
var LoadArgsLayout = abi.NewLayout("on_load_args",
	abi.F("path", abi.Str),
	abi.F("namespace", abi.Str),
	abi.F("suffix", abi.Str),
	abi.F("plugin_data", abi.Bytes),
	abi.F("with", abi.Map),
)

func EncodeLoadArgs(w *abi.Writer, a *OnLoadArgs) uint32 {
	rec := w.NewRecord(LoadArgsLayout)
	rec.SetOptString(laPath, &a.Path)
	rec.SetString(laNamespace, a.Namespace)
	rec.SetString(laSuffix, a.Suffix)
	setData(w, rec, laPluginData, a.PluginData, "plugin_data")
	rec.SetMap(laWith, a.With)
	return rec.Ptr()
}

func DecodeLoadArgs(rd *abi.Reader, ptr uint32) OnLoadArgs {
	rec := rd.Record(ptr, LoadArgsLayout)
	return OnLoadArgs{
		Path:       rec.String(laPath),
		Namespace:  rec.String(laNamespace),
		Suffix:     rec.String(laSuffix),
		PluginData: getData(rd, rec, laPluginData, "plugin_data"),
		With:       rec.Map(laWith),
	}
}

const (
	rrPluginName = iota
	rrErrors
	rrWarnings
	rrPath
	rrExternal
	rrSideEffects
	rrNamespace
	rrSuffix
	rrPluginData
	rrWatchFiles
	rrWatchDirs
)

// ResolveResultLayout is the result record of a plugin resolve callback.
// The engine frees it with abi.FreeRecord.
var ResolveResultLayout = abi.NewLayout("on_resolve_result",
	abi.F("plugin_name", abi.Str),
	abi.Nested("errors", abi.Recs, messageLayout),
	abi.Nested("warnings", abi.Recs, messageLayout),
	abi.F("path", abi.Str),
	abi.F("external", abi.Tri),
	abi.F("side_effects", abi.Tri),
	abi.F("namespace", abi.Str),
	abi.F("suffix", abi.Str),
	abi.F("plugin_data", abi.Bytes),
	abi.F("watch_files", abi.Strs),
	abi.F("watch_dirs", abi.Strs),
)

func EncodeResolveResult(w *abi.Writer, r *OnResolveResult) uint32 {
	rec := w.NewRecord(ResolveResultLayout)
	rec.SetOptString(rrPluginName, r.PluginName)
	encodeMessages(w, rec, rrErrors, r.Errors)
	encodeMessages(w, rec, rrWarnings, r.Warnings)
	rec.SetOptString(rrPath, r.Path)
	rec.SetTri(rrExternal, r.External)
	rec.SetTri(rrSideEffects, r.SideEffects)
	rec.SetOptString(rrNamespace, r.Namespace)
	rec.SetOptString(rrSuffix, r.Suffix)
	setData(w, rec, rrPluginData, r.PluginData, "plugin_data")
	rec.SetStringsExact(rrWatchFiles, r.WatchFiles)
	rec.SetStrings(rrWatchDirs, r.WatchDirs)
	return rec.Ptr()
}

func DecodeResolveResult(rd *abi.Reader, ptr uint32) *OnResolveResult {
	rec := rd.Record(ptr, ResolveResultLayout)
	return &OnResolveResult{
		PluginName:  rec.OptString(rrPluginName),
		Errors:      decodeMessages(rd, rec, rrErrors),
		Warnings:    decodeMessages(rd, rec, rrWarnings),
		Path:        rec.OptString(rrPath),
		External:    rec.Tri(rrExternal),
		SideEffects: rec.Tri(rrSideEffects),
		Namespace:   rec.OptString(rrNamespace),
		Suffix:      rec.OptString(rrSuffix),
		PluginData:  getData(rd, rec, rrPluginData, "plugin_data"),
		WatchFiles:  rec.Strings(rrWatchFiles),
		WatchDirs:   rec.Strings(rrWatchDirs),
	}
}

const (
	lrPluginName = iota
	lrErrors
	lrWarnings
	lrContents
	lrResolveDir
	lrLoader
	lrPluginData
	lrWatchFiles
	lrWatchDirs
)

// LoadResultLayout is the result record of a plugin load callback.
var LoadResultLayout = abi.NewLayout("on_load_result",
	abi.F("plugin_name", abi.Str),
	abi.Nested("errors", abi.Recs, messageLayout),
	abi.Nested("warnings", abi.Recs, messageLayout),
	abi.F("contents", abi.Bytes),
	abi.F("resolve_dir", abi.Str),
	abi.F("loader", abi.U32),
	abi.F("plugin_data", abi.Bytes),
	abi.F("watch_files", abi.Strs),
	abi.F("watch_dirs", abi.Strs),
)

func EncodeLoadResult(w *abi.Writer, r *OnLoadResult) uint32 {
	rec := w.NewRecord(LoadResultLayout)
	rec.SetOptString(lrPluginName, r.PluginName)
	encodeMessages(w, rec, lrErrors, r.Errors)
	encodeMessages(w, rec, lrWarnings, r.Warnings)
	rec.SetOptText(lrContents, r.Contents)
	rec.SetOptString(lrResolveDir, r.ResolveDir)
	rec.SetU32(lrLoader, uint32(r.Loader))
	setData(w, rec, lrPluginData, r.PluginData, "plugin_data")
	rec.SetStrings(lrWatchFiles, r.WatchFiles)
	rec.SetStrings(lrWatchDirs, r.WatchDirs)
	return rec.Ptr()
}

func DecodeLoadResult(rd *abi.Reader, ptr uint32) *OnLoadResult {
	rec := rd.Record(ptr, LoadResultLayout)
	return &OnLoadResult{
		PluginName: rec.OptString(lrPluginName),
		Errors:     decodeMessages(rd, rec, lrErrors),
		Warnings:   decodeMessages(rd, rec, lrWarnings),
		Contents:   rec.OptText(lrContents),
		ResolveDir: rec.OptString(lrResolveDir),
		Loader:     getEnum[Loader](rd, rec, lrLoader, loaderNames, "loader"),
		PluginData: getData(rd, rec, lrPluginData, "plugin_data"),
		WatchFiles: rec.Strings(lrWatchFiles),
		WatchDirs:  rec.Strings(lrWatchDirs),
	}
}

const (
	hmErrors = iota
	hmWarnings
)

// HookMessagesLayout is the result record of start and end callbacks.
var HookMessagesLayout = abi.NewLayout("hook_messages",
	abi.Nested("errors", abi.Recs, messageLayout),
	abi.Nested("warnings", abi.Recs, messageLayout),
)

func EncodeHookResult(w *abi.Writer, r *HookResult) uint32 {
	rec := w.NewRecord(HookMessagesLayout)
	encodeMessages(w, rec, hmErrors, r.Errors)
	encodeMessages(w, rec, hmWarnings, r.Warnings)
	return rec.Ptr()
}

// DecodeHookResult reads a start or end callback result. A null ptr is an
// empty result.
func DecodeHookResult(rd *abi.Reader, ptr uint32) *HookResult {
	if ptr == 0 {
		return &HookResult{}
	}
	rec := rd.Record(ptr, HookMessagesLayout)
	return &HookResult{
		Errors:   decodeMessages(rd, rec, hmErrors),
		Warnings: decodeMessages(rd, rec, hmWarnings),
	}
}
