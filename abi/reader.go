package abi

import (
	"bytes"
	"encoding/binary"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/errors"
)

const (
	maxElements  = 1 << 24
	maxStringLen = 1 << 28
	stringChunk  = 256
)

// Reader copies values out of engine memory. Like Writer, the first failure
// sticks and subsequent reads return zero values.
type Reader struct {
	mem Memory
	err error
}

func NewReader(mem Memory) *Reader {
	return &Reader{mem: mem}
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Fail records a failure from a decoding step done outside the Reader.
func (r *Reader) Fail(err error) {
	if err != nil {
		r.fail(err)
	}
}

func (r *Reader) read(ptr, length uint32, path []string) []byte {
	if r.err != nil {
		return nil
	}
	data, err := r.mem.Read(ptr, length)
	if err != nil {
		oob := errors.OutOfBounds(errors.PhaseDecode, path, ptr, length)
		oob.Cause = err
		r.fail(oob)
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

func (r *Reader) u32(ptr uint32, path []string) uint32 {
	b := r.read(ptr, 4, path)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// String reads a NUL-terminated string at ptr. A null pointer yields "".
func (r *Reader) String(ptr uint32, path ...string) string {
	if ptr == 0 || r.err != nil {
		return ""
	}
	var size uint32
	if s, ok := r.mem.(tsgobridge.MemorySizer); ok {
		size = s.Size()
	}

	var out []byte
	off := ptr
	for {
		n := uint32(stringChunk)
		if size > 0 {
			if off >= size {
				r.fail(errors.OutOfBounds(errors.PhaseDecode, path, off, 1))
				return ""
			}
			if off+n > size {
				n = size - off
			}
		}
		chunk := r.read(off, n, path)
		if chunk == nil {
			return ""
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			out = append(out, chunk[:i]...)
			return string(out)
		}
		out = append(out, chunk...)
		off += n
		if len(out) > maxStringLen {
			r.fail(errors.InvalidData(errors.PhaseDecode, path, "unterminated string"))
			return ""
		}
	}
}

func (r *Reader) strings(count, arr uint32, path []string) []string {
	if arr == 0 {
		return nil
	}
	if count > maxElements {
		r.fail(errors.InvalidData(errors.PhaseDecode, path, "element count too large"))
		return nil
	}
	raw := r.read(arr, count*4, path)
	if raw == nil && count > 0 {
		return nil
	}
	out := make([]string, count)
	for i := range out {
		out[i] = r.String(binary.LittleEndian.Uint32(raw[i*4:]), path...)
	}
	return out
}

// Record reads the slots of the record at ptr.
// A null pointer is a decode error; use RecordReader.Record for optional records.
func (r *Reader) Record(ptr uint32, l *Layout) RecordReader {
	if ptr == 0 {
		r.fail(errors.NilPointer(errors.PhaseDecode, []string{l.Name}, "record pointer"))
		return RecordReader{r: r, l: l}
	}
	return RecordReader{r: r, l: l, ptr: ptr, raw: r.read(ptr, l.Size(), []string{l.Name})}
}

// RecordReader exposes the fields of one decoded record.
type RecordReader struct {
	r   *Reader
	l   *Layout
	raw []byte
	ptr uint32
}

// Ptr is the record's address in engine memory.
func (rr RecordReader) Ptr() uint32 {
	return rr.ptr
}

func (rr RecordReader) slot(f, n int) uint32 {
	if rr.raw == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(rr.raw[rr.l.Offset(f)+uint32(n)*4:])
}

func (rr RecordReader) U32(f int) uint32 {
	rr.l.check(f, U32)
	return rr.slot(f, 0)
}

func (rr RecordReader) I32(f int) int32 {
	rr.l.check(f, I32, Tri)
	return int32(rr.slot(f, 0))
}

func (rr RecordReader) Int(f int) int {
	return int(rr.I32(f))
}

func (rr RecordReader) Bool(f int) bool {
	rr.l.check(f, Bool)
	return rr.slot(f, 0) != 0
}

// Tri returns nil for an unset tri-state field.
func (rr RecordReader) Tri(f int) *bool {
	rr.l.check(f, Tri)
	v := int32(rr.slot(f, 0))
	if v < 0 {
		return nil
	}
	b := v != 0
	return &b
}

// String returns "" for a null pointer.
func (rr RecordReader) String(f int) string {
	rr.l.check(f, Str)
	return rr.r.String(rr.slot(f, 0), rr.l.path(f)...)
}

// OptString returns nil for a null pointer, keeping absent distinct from "".
func (rr RecordReader) OptString(f int) *string {
	rr.l.check(f, Str)
	ptr := rr.slot(f, 0)
	if ptr == 0 {
		return nil
	}
	s := rr.r.String(ptr, rr.l.path(f)...)
	return &s
}

// Bytes returns nil for a null pointer and a non-nil slice otherwise.
func (rr RecordReader) Bytes(f int) []byte {
	rr.l.check(f, Bytes)
	ptr, n := rr.slot(f, 0), rr.slot(f, 1)
	if ptr == 0 {
		return nil
	}
	if n == 0 {
		return []byte{}
	}
	return rr.r.read(ptr, n, rr.l.path(f))
}

// OptText is Bytes as an optional string.
func (rr RecordReader) OptText(f int) *string {
	b := rr.Bytes(f)
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}

func (rr RecordReader) Strings(f int) []string {
	rr.l.check(f, Strs)
	return rr.r.strings(rr.slot(f, 0), rr.slot(f, 1), rr.l.path(f))
}

func (rr RecordReader) Map(f int) map[string]string {
	rr.l.check(f, Map)
	count := rr.slot(f, 0)
	keys := rr.r.strings(count, rr.slot(f, 1), rr.l.path(f))
	values := rr.r.strings(count, rr.slot(f, 2), rr.l.path(f))
	if keys == nil {
		return nil
	}
	if len(values) != len(keys) {
		rr.r.fail(errors.InvalidData(errors.PhaseDecode, rr.l.path(f), "map has no values array"))
		return nil
	}
	m := make(map[string]string, len(keys))
	for i, k := range keys {
		m[k] = values[i]
	}
	return m
}

// Record returns the nested record in field f, or false when its pointer is null.
func (rr RecordReader) Record(f int) (RecordReader, bool) {
	rr.l.check(f, Rec)
	ptr := rr.slot(f, 0)
	if ptr == 0 {
		return RecordReader{}, false
	}
	return rr.r.Record(ptr, rr.l.Fields[f].Elem), true
}

func (rr RecordReader) Records(f int) []RecordReader {
	rr.l.check(f, Recs)
	count, base := rr.slot(f, 0), rr.slot(f, 1)
	if base == 0 {
		return nil
	}
	if count > maxElements {
		rr.r.fail(errors.InvalidData(errors.PhaseDecode, rr.l.path(f), "element count too large"))
		return nil
	}
	elem := rr.l.Fields[f].Elem
	out := make([]RecordReader, count)
	for i := range out {
		out[i] = rr.r.Record(base+uint32(i)*elem.Size(), elem)
	}
	return out
}
