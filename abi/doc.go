// Package abi encodes Go values into an engine's linear memory and decodes them back.
//
// Every record on the wire is an array of little-endian 32-bit slots described
// by a Layout. Compound fields occupy adjacent slots:
//
//	str      pointer to a NUL-terminated string, 0 = absent
//	bytes    pointer, length          (pointer 0 = absent)
//	strs     count, pointer           (array of string pointers)
//	map      count, keys, values      (parallel string pointer arrays)
//	recs     count, pointer           (contiguous records)
//	tri      int32, -1 = unset
//
// A nil slice encodes as count 0 with a null pointer. SetStringsExact encodes an
// empty non-nil slice with a non-null pointer so the reader can tell "explicitly
// empty" from "unset"; readers always return nil for a null pointer and an empty
// non-nil slice otherwise.
//
// # Ownership
//
// Memory written by a Writer is host-owned and tracked on an AllocationList,
// which frees in reverse allocation order. Records returned by engine entry
// points are engine-owned and wrapped in an EngineBuffer that calls the
// matching free entry point exactly once. Results a host callback hands to the
// engine are detached from their list and become engine-owned.
package abi
