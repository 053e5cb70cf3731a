package engine

// Hand-assembled test binaries. Only the opcodes the fixtures need are covered.

const (
	i32 = 0x7f

	opUnreachable = 0x00
	opEnd         = 0x0b
	opCall        = 0x10
	opLocalGet    = 0x20
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opI32Const    = 0x41
	opI32Add      = 0x6a
	opI32And      = 0x71
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(body)))...)
	return append(out, body...)
}

func funcType(params, results int) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(params))...)
	for i := 0; i < params; i++ {
		out = append(out, i32)
	}
	out = append(out, uleb(uint32(results))...)
	for i := 0; i < results; i++ {
		out = append(out, i32)
	}
	return out
}

func body(code ...byte) []byte {
	b := append([]byte{0x00}, code...) // no locals
	b = append(b, opEnd)
	return append(uleb(uint32(len(b))), b...)
}

type testFunc struct {
	export string
	typ    uint32
	code   []byte
}

// buildEngineModule assembles a module importing tsgo_host.invoke, exporting
// memory, a bump-allocating malloc and the given functions.
func buildEngineModule(funcs []testFunc) []byte {
	types := vec(
		funcType(3, 1), // 0: invoke, tsc_build_filesystem
		funcType(1, 1), // 1: malloc, esbuild_build
		funcType(1, 0), // 2: free, free_* entry points
		funcType(4, 1), // 3: tsc_build_with_dynamic_resolver
		funcType(2, 1), // 4: esbuild_transform
	)

	imports := vec(append(append(name(HostModule), name(HostInvoke)...), 0x00, 0x00))

	all := append([]testFunc{
		{export: ExportMalloc, typ: 1, code: []byte{
			opGlobalGet, 0,
			opGlobalGet, 0, opLocalGet, 0, opI32Add,
			opI32Const, 7, opI32Add,
			opI32Const, 0x78, opI32And, // -8
			opGlobalSet, 0,
		}},
		{export: ExportFree, typ: 2},
	}, funcs...)

	var fnTypes, exports, bodies [][]byte
	for i, f := range all {
		fnTypes = append(fnTypes, uleb(f.typ))
		exports = append(exports, append(append(name(f.export), 0x00), uleb(uint32(i+1))...))
		bodies = append(bodies, body(f.code...))
	}
	exports = append(exports, append(name("memory"), 0x02, 0x00))

	memory := vec([]byte{0x00, 0x01})
	globals := vec([]byte{i32, 0x01, opI32Const, 0x80, 0x08, opEnd}) // mut i32 = 1024

	mod := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, section(1, types)...)
	mod = append(mod, section(2, imports)...)
	mod = append(mod, section(3, vec(fnTypes...))...)
	mod = append(mod, section(5, memory)...)
	mod = append(mod, section(6, globals)...)
	mod = append(mod, section(7, vec(exports...))...)
	mod = append(mod, section(10, vec(bodies...))...)
	return mod
}

// echoEngine is a fixture engine:
//   - tsc_build_filesystem returns project_ptr
//   - tsc_build_with_dynamic_resolver reads {fn, token} at callbacks_ptr and
//     returns invoke(fn, token, project_ptr)
//   - esbuild_build traps
//   - esbuild_transform returns 0
func echoEngine() []byte {
	return buildEngineModule([]testFunc{
		{export: ExportTSCBuildFilesystem, typ: 0, code: []byte{opLocalGet, 0}},
		{export: ExportTSCBuildWithResolver, typ: 3, code: []byte{
			opLocalGet, 3, opI32Load, 2, 0,
			opLocalGet, 3, opI32Load, 2, 4,
			opLocalGet, 0,
			opCall, 0,
		}},
		{export: ExportESBuildBuild, typ: 1, code: []byte{opUnreachable}},
		{export: ExportESBuildTransform, typ: 4, code: []byte{opI32Const, 0}},
		{export: ExportTSCFreeResult, typ: 2},
		{export: ExportESBuildFreeBuildResult, typ: 2},
		{export: ExportESBuildFreeTransformResult, typ: 2},
	})
}
