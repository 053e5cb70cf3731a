package abi

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/wippyai/tsgo-bridge/errors"
)

const (
	wordAlign = 4
	dataAlign = 8
)

// Writer allocates and fills host-owned memory. The first failure sticks:
// later calls become no-ops and Err reports it.
type Writer struct {
	heap Heap
	list *AllocationList
	err  error
}

// NewWriter writes into heap and records every allocation on list.
func NewWriter(heap Heap, list *AllocationList) *Writer {
	return &Writer{heap: heap, list: list}
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Fail records a failure from an encoding step done outside the Writer,
// such as serialising an opaque payload. The first failure still wins.
func (w *Writer) Fail(err error) {
	if err != nil {
		w.fail(err)
	}
}

func (w *Writer) alloc(size, align uint32) uint32 {
	if w.err != nil {
		return 0
	}
	if size == 0 {
		size = 1
	}
	ptr, err := w.heap.Alloc(size, align)
	if err != nil || ptr == 0 {
		w.fail(errors.ResourceExhausted(errors.PhaseEncode, size, align, err))
		return 0
	}
	w.list.Add(ptr, size, align)
	return ptr
}

func (w *Writer) write(ptr uint32, data []byte) {
	if w.err != nil {
		return
	}
	if err := w.heap.Write(ptr, data); err != nil {
		w.fail(errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "write record data"))
	}
}

// String writes s as a NUL-terminated string. A NUL inside s is a MalformedInput error.
func (w *Writer) String(s string, path ...string) uint32 {
	if w.err != nil {
		return 0
	}
	if strings.IndexByte(s, 0) >= 0 {
		w.fail(errors.MalformedInput(errors.PhaseEncode, path, "string contains NUL byte"))
		return 0
	}
	ptr := w.alloc(uint32(len(s))+1, 1)
	if ptr == 0 {
		return 0
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	w.write(ptr, buf)
	return ptr
}

// Bytes writes raw bytes. The caller stores the length separately.
func (w *Writer) Bytes(b []byte) uint32 {
	ptr := w.alloc(uint32(len(b)), 1)
	if ptr == 0 || len(b) == 0 {
		return ptr
	}
	w.write(ptr, b)
	return ptr
}

// Strings writes an array of string pointers and returns the array pointer.
// The array is never null, even for zero elements.
func (w *Writer) Strings(ss []string, path ...string) uint32 {
	arr := w.alloc(uint32(len(ss))*4, wordAlign)
	if arr == 0 {
		return 0
	}
	buf := make([]byte, len(ss)*4)
	for i, s := range ss {
		binary.LittleEndian.PutUint32(buf[i*4:], w.String(s, path...))
	}
	w.write(arr, buf)
	return arr
}

// NewRecord allocates a zeroed record.
func (w *Writer) NewRecord(l *Layout) *RecordWriter {
	ptr := w.alloc(l.Size(), dataAlign)
	rw := &RecordWriter{w: w, l: l, ptr: ptr}
	if ptr != 0 {
		w.write(ptr, make([]byte, l.Size()))
	}
	return rw
}

func (w *Writer) newRecords(l *Layout, n int) (uint32, []*RecordWriter) {
	base := w.alloc(uint32(n)*l.Size(), dataAlign)
	if base == 0 {
		return 0, nil
	}
	w.write(base, make([]byte, uint32(n)*l.Size()))
	out := make([]*RecordWriter, n)
	for i := range out {
		out[i] = &RecordWriter{w: w, l: l, ptr: base + uint32(i)*l.Size()}
	}
	return base, out
}

// RecordWriter fills the slots of one record.
type RecordWriter struct {
	w   *Writer
	l   *Layout
	ptr uint32
}

// Ptr is the record's address, 0 if allocation failed.
func (rw *RecordWriter) Ptr() uint32 {
	return rw.ptr
}

func (rw *RecordWriter) slot(f, n int, v uint32) {
	if rw.ptr == 0 || rw.w.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	rw.w.write(rw.ptr+rw.l.Offset(f)+uint32(n)*4, buf[:])
}

func (rw *RecordWriter) SetU32(f int, v uint32) {
	rw.l.check(f, U32)
	rw.slot(f, 0, v)
}

func (rw *RecordWriter) SetI32(f int, v int32) {
	rw.l.check(f, I32, Tri)
	rw.slot(f, 0, uint32(v))
}

func (rw *RecordWriter) SetInt(f int, v int) {
	rw.SetI32(f, int32(v))
}

func (rw *RecordWriter) SetBool(f int, v bool) {
	rw.l.check(f, Bool)
	if v {
		rw.slot(f, 0, 1)
	}
}

// SetTri writes -1 for nil, otherwise 0 or 1.
func (rw *RecordWriter) SetTri(f int, v *bool) {
	rw.l.check(f, Tri)
	rw.slot(f, 0, uint32(TriValue(v)))
}

// SetString writes s, or a null pointer when s is empty.
func (rw *RecordWriter) SetString(f int, s string) {
	rw.l.check(f, Str)
	if s == "" {
		return
	}
	rw.slot(f, 0, rw.w.String(s, rw.l.path(f)...))
}

// SetOptString writes a null pointer for nil and an empty string for "".
func (rw *RecordWriter) SetOptString(f int, s *string) {
	rw.l.check(f, Str)
	if s == nil {
		return
	}
	rw.slot(f, 0, rw.w.String(*s, rw.l.path(f)...))
}

// SetBytes writes a null pointer for nil and a non-null pointer otherwise.
func (rw *RecordWriter) SetBytes(f int, b []byte) {
	rw.l.check(f, Bytes)
	if b == nil {
		return
	}
	rw.slot(f, 0, rw.w.Bytes(b))
	rw.slot(f, 1, uint32(len(b)))
}

// SetOptText writes text content that may legitimately be empty.
func (rw *RecordWriter) SetOptText(f int, s *string) {
	if s == nil {
		rw.l.check(f, Bytes)
		return
	}
	b := []byte(*s)
	if b == nil {
		b = []byte{}
	}
	rw.SetBytes(f, b)
}

// SetStrings writes count and array pointer. Empty and nil both become null.
func (rw *RecordWriter) SetStrings(f int, ss []string) {
	rw.l.check(f, Strs)
	if len(ss) == 0 {
		return
	}
	rw.slot(f, 0, uint32(len(ss)))
	rw.slot(f, 1, rw.w.Strings(ss, rw.l.path(f)...))
}

// SetStringsExact is SetStrings for fields where an empty list differs from
// an unset one: a non-nil empty slice gets a non-null array pointer.
func (rw *RecordWriter) SetStringsExact(f int, ss []string) {
	rw.l.check(f, Strs)
	if ss == nil {
		return
	}
	rw.slot(f, 0, uint32(len(ss)))
	rw.slot(f, 1, rw.w.Strings(ss, rw.l.path(f)...))
}

// SetMap writes parallel key and value arrays, keys sorted.
func (rw *RecordWriter) SetMap(f int, m map[string]string) {
	rw.l.check(f, Map)
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	rw.slot(f, 0, uint32(len(keys)))
	rw.slot(f, 1, rw.w.Strings(keys, rw.l.path(f)...))
	rw.slot(f, 2, rw.w.Strings(values, rw.l.path(f)...))
}

// Record allocates a nested record and stores its pointer in field f.
func (rw *RecordWriter) Record(f int) *RecordWriter {
	rw.l.check(f, Rec)
	sub := rw.w.NewRecord(rw.l.Fields[f].Elem)
	rw.slot(f, 0, sub.ptr)
	return sub
}

// Records allocates n contiguous nested records for field f.
// For n == 0 nothing is allocated and the slots stay null.
func (rw *RecordWriter) Records(f int, n int) []*RecordWriter {
	rw.l.check(f, Recs)
	if n == 0 {
		return nil
	}
	base, subs := rw.w.newRecords(rw.l.Fields[f].Elem, n)
	rw.slot(f, 0, uint32(n))
	rw.slot(f, 1, base)
	return subs
}

// TriValue maps an optional bool to its wire value.
func TriValue(v *bool) int32 {
	switch {
	case v == nil:
		return -1
	case *v:
		return 1
	default:
		return 0
	}
}
