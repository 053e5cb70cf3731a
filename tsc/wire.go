package tsc

import (
	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/registry"
)

// Wire layouts shared by the host and the reference engine.

const (
	diagCode = iota
	diagCategory
	diagMessage
	diagFile
	diagLine
	diagColumn
	diagLength
)

var diagnosticLayout = abi.NewLayout("diagnostic",
	abi.F("code", abi.I32),
	abi.F("category", abi.Str),
	abi.F("message", abi.Str),
	abi.F("file", abi.Str),
	abi.F("line", abi.I32),
	abi.F("column", abi.I32),
	abi.F("length", abi.I32),
)

const (
	resSuccess = iota
	resConfigFile
	resDiagnostics
	resEmittedFiles
	resWrittenFiles
)

// ResultLayout is the build result record returned by both compiler entry
// points and released with tsc_free_result.
var ResultLayout = abi.NewLayout("build_result",
	abi.F("success", abi.Bool),
	abi.F("config_file", abi.Str),
	abi.Nested("diagnostics", abi.Recs, diagnosticLayout),
	abi.F("emitted_files", abi.Strs),
	abi.F("written_files", abi.Map),
)

const (
	cbResolver = iota
	cbResolverData
)

// CallbacksLayout is the resolver callback record passed to
// tsc_build_with_dynamic_resolver.
var CallbacksLayout = abi.NewLayout("resolver_callbacks",
	abi.F("resolver", abi.U32),
	abi.F("resolver_data", abi.U32),
)

// ResolveArgsLayout is the argument record of a resolve callback.
var ResolveArgsLayout = abi.NewLayout("file_resolve_args",
	abi.F("path", abi.Str),
)

const (
	entExists = iota
	entContent
	entDirectoryFiles
)

// EntryLayout is the result record of a resolve callback. The engine frees
// it with abi.FreeRecord after reading it.
var EntryLayout = abi.NewLayout("file_resolve_result",
	abi.F("exists", abi.U32),
	abi.F("content", abi.Bytes),
	abi.F("directory_files", abi.Strs),
)

// EncodeResult writes r as a build result record.
func EncodeResult(w *abi.Writer, r *Result) uint32 {
	rec := w.NewRecord(ResultLayout)
	rec.SetBool(resSuccess, r.Success)
	rec.SetString(resConfigFile, r.ConfigFile)
	for i, sub := range rec.Records(resDiagnostics, len(r.Diagnostics)) {
		d := r.Diagnostics[i]
		sub.SetInt(diagCode, d.Code)
		sub.SetString(diagCategory, d.Category)
		sub.SetString(diagMessage, d.Message)
		sub.SetOptString(diagFile, d.File)
		sub.SetInt(diagLine, d.Line)
		sub.SetInt(diagColumn, d.Column)
		sub.SetInt(diagLength, d.Length)
	}
	rec.SetStrings(resEmittedFiles, r.EmittedFiles)
	rec.SetMap(resWrittenFiles, r.WrittenFiles)
	return rec.Ptr()
}

// DecodeResult copies the build result record at ptr into Go memory.
func DecodeResult(rd *abi.Reader, ptr uint32) *Result {
	rec := rd.Record(ptr, ResultLayout)
	r := &Result{
		Success:      rec.Bool(resSuccess),
		ConfigFile:   rec.String(resConfigFile),
		EmittedFiles: rec.Strings(resEmittedFiles),
		WrittenFiles: rec.Map(resWrittenFiles),
	}
	for _, sub := range rec.Records(resDiagnostics) {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			Code:     sub.Int(diagCode),
			Category: sub.String(diagCategory),
			Message:  sub.String(diagMessage),
			File:     sub.OptString(diagFile),
			Line:     sub.Int(diagLine),
			Column:   sub.Int(diagColumn),
			Length:   sub.Int(diagLength),
		})
	}
	if r.WrittenFiles == nil {
		r.WrittenFiles = map[string]string{}
	}
	r.CompiledFiles = compiledFiles(r.WrittenFiles)
	return r
}

// EncodeCallbacks writes a resolver callback record.
func EncodeCallbacks(w *abi.Writer, fn engine.FuncID, token registry.Token) uint32 {
	rec := w.NewRecord(CallbacksLayout)
	rec.SetU32(cbResolver, uint32(fn))
	rec.SetU32(cbResolverData, uint32(token))
	return rec.Ptr()
}

// DecodeCallbacks reads a resolver callback record. A null ptr means no resolver.
func DecodeCallbacks(rd *abi.Reader, ptr uint32) (engine.FuncID, registry.Token) {
	if ptr == 0 {
		return engine.FuncNone, 0
	}
	rec := rd.Record(ptr, CallbacksLayout)
	return engine.FuncID(rec.U32(cbResolver)), registry.Token(rec.U32(cbResolverData))
}

// EncodeResolveArgs writes the argument record of a resolve callback.
func EncodeResolveArgs(w *abi.Writer, path string) uint32 {
	rec := w.NewRecord(ResolveArgsLayout)
	rec.SetOptString(0, &path)
	return rec.Ptr()
}

func DecodeResolveArgs(rd *abi.Reader, ptr uint32) string {
	return rd.Record(ptr, ResolveArgsLayout).String(0)
}

// EncodeEntry writes the result record of a resolve callback.
// A NotFound entry is encoded as the null pointer.
func EncodeEntry(w *abi.Writer, e tsgobridge.Entry) uint32 {
	if e.Kind == tsgobridge.NotFound {
		return 0
	}
	rec := w.NewRecord(EntryLayout)
	rec.SetU32(entExists, uint32(e.Kind))
	switch e.Kind {
	case tsgobridge.File:
		content := e.Content
		if content == nil {
			content = []byte{}
		}
		rec.SetBytes(entContent, content)
	case tsgobridge.Directory:
		rec.SetStrings(entDirectoryFiles, e.Children)
	}
	return rec.Ptr()
}

// DecodeEntry reads a resolve callback result. A null ptr is NotFound.
func DecodeEntry(rd *abi.Reader, ptr uint32) tsgobridge.Entry {
	if ptr == 0 {
		return tsgobridge.Entry{Kind: tsgobridge.NotFound}
	}
	rec := rd.Record(ptr, EntryLayout)
	e := tsgobridge.Entry{Kind: tsgobridge.EntryKind(rec.U32(entExists))}
	switch e.Kind {
	case tsgobridge.File:
		e.Content = rec.Bytes(entContent)
		if e.Content == nil {
			e.Content = []byte{}
		}
	case tsgobridge.Directory:
		e.Children = rec.Strings(entDirectoryFiles)
	default:
		e.Kind = tsgobridge.NotFound
	}
	return e
}
