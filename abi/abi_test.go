package abi

import (
	"context"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/tsgo-bridge/errors"
)

var testLocation = NewLayout("location",
	F("file", Str),
	F("line", I32),
)

var testRecord = NewLayout("test",
	F("id", U32),
	F("delta", I32),
	F("flag", Bool),
	F("maybe", Tri),
	F("name", Str),
	F("note", Str),
	F("blob", Bytes),
	F("list", Strs),
	F("exact", Strs),
	F("env", Map),
	Nested("where", Rec, testLocation),
	Nested("all", Recs, testLocation),
)

const (
	fID = iota
	fDelta
	fFlag
	fMaybe
	fName
	fNote
	fBlob
	fList
	fExact
	fEnv
	fWhere
	fAll
)

func ptrTo[T any](v T) *T { return &v }

func TestLayout_Offsets(t *testing.T) {
	// six single-slot fields, bytes 2, strs 2, strs 2, map 3, rec 1, recs 2
	if got, want := testRecord.Slots(), 18; got != want {
		t.Fatalf("Slots() = %d, want %d", got, want)
	}
	if got := testRecord.Offset(fBlob); got != 24 {
		t.Errorf("Offset(blob) = %d, want 24", got)
	}
	if got := testRecord.Offset(fEnv); got != 48 {
		t.Errorf("Offset(env) = %d, want 48", got)
	}
}

func TestLayout_PanicsWithoutElem(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Rec field without element layout")
		}
	}()
	NewLayout("broken", F("child", Rec))
}

func TestRoundTrip(t *testing.T) {
	arena := NewArena(0)
	list := NewAllocationList()
	defer list.FreeAndRelease(arena)

	w := NewWriter(arena, list)
	rw := w.NewRecord(testRecord)
	rw.SetU32(fID, 42)
	rw.SetI32(fDelta, -7)
	rw.SetBool(fFlag, true)
	rw.SetTri(fMaybe, ptrTo(false))
	rw.SetString(fName, "main.ts")
	rw.SetOptString(fNote, ptrTo(""))
	rw.SetBytes(fBlob, []byte("a\x00b"))
	rw.SetStrings(fList, []string{"x", "y"})
	rw.SetStringsExact(fExact, []string{})
	rw.SetMap(fEnv, map[string]string{"b": "2", "a": "1"})
	where := rw.Record(fWhere)
	where.SetString(0, "/src/a.ts")
	where.SetInt(1, 3)
	for i, sub := range rw.Records(fAll, 2) {
		sub.SetString(0, []string{"one", "two"}[i])
		sub.SetInt(1, i+1)
	}
	if err := w.Err(); err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := NewReader(arena)
	rr := r.Record(rw.Ptr(), testRecord)

	if rr.U32(fID) != 42 {
		t.Errorf("id = %d", rr.U32(fID))
	}
	if rr.I32(fDelta) != -7 {
		t.Errorf("delta = %d", rr.I32(fDelta))
	}
	if !rr.Bool(fFlag) {
		t.Error("flag should be true")
	}
	if m := rr.Tri(fMaybe); m == nil || *m {
		t.Errorf("maybe = %v, want false", m)
	}
	if rr.String(fName) != "main.ts" {
		t.Errorf("name = %q", rr.String(fName))
	}
	if n := rr.OptString(fNote); n == nil || *n != "" {
		t.Errorf("note = %v, want empty but present", n)
	}
	if got := rr.Bytes(fBlob); string(got) != "a\x00b" {
		t.Errorf("blob = %q", got)
	}
	if got := rr.Strings(fList); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("list = %v", got)
	}
	if got := rr.Strings(fExact); got == nil || len(got) != 0 {
		t.Errorf("exact = %#v, want empty non-nil", got)
	}
	if got := rr.Map(fEnv); !reflect.DeepEqual(got, map[string]string{"a": "1", "b": "2"}) {
		t.Errorf("env = %v", got)
	}
	loc, ok := rr.Record(fWhere)
	if !ok || loc.String(0) != "/src/a.ts" || loc.Int(1) != 3 {
		t.Errorf("where = %v %q %d", ok, loc.String(0), loc.Int(1))
	}
	all := rr.Records(fAll)
	if len(all) != 2 || all[1].String(0) != "two" || all[1].Int(1) != 2 {
		t.Errorf("all decoded wrong: %d records", len(all))
	}
	if err := r.Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestUnsetFieldsDecodeAsAbsent(t *testing.T) {
	arena := NewArena(0)
	list := NewAllocationList()
	defer list.FreeAndRelease(arena)

	w := NewWriter(arena, list)
	rw := w.NewRecord(testRecord)
	rw.SetTri(fMaybe, nil)
	rw.SetOptString(fNote, nil)
	rw.SetBytes(fBlob, nil)
	rw.SetStrings(fList, []string{})
	rw.SetStringsExact(fExact, nil)
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}

	rr := NewReader(arena).Record(rw.Ptr(), testRecord)
	if rr.Tri(fMaybe) != nil {
		t.Error("unset tri should decode as nil")
	}
	if rr.OptString(fNote) != nil {
		t.Error("unset string should decode as nil, not empty")
	}
	if rr.OptString(fName) != nil {
		t.Error("never-set string should decode as nil")
	}
	if rr.Bytes(fBlob) != nil {
		t.Error("nil bytes should decode as nil")
	}
	if rr.Strings(fList) != nil {
		t.Error("SetStrings collapses empty to unset")
	}
	if rr.Strings(fExact) != nil {
		t.Error("nil exact list should decode as nil")
	}
	if rr.Map(fEnv) != nil {
		t.Error("unset map should decode as nil")
	}
	if _, ok := rr.Record(fWhere); ok {
		t.Error("unset nested record should be absent")
	}
	if rr.Records(fAll) != nil {
		t.Error("unset records should decode as nil")
	}
}

func TestWriter_EmbeddedNUL(t *testing.T) {
	arena := NewArena(0)
	list := NewAllocationList()
	defer list.FreeAndRelease(arena)

	w := NewWriter(arena, list)
	rw := w.NewRecord(testRecord)
	rw.SetString(fName, "bad\x00name")
	rw.SetString(fNote, "never written")

	err := w.Err()
	if err == nil {
		t.Fatal("expected MalformedInput error")
	}
	var be *errors.Error
	if !stderrors.As(err, &be) || be.Kind != errors.KindMalformedInput {
		t.Fatalf("err = %v, want malformed_input", err)
	}
	if !strings.Contains(err.Error(), "test.name") {
		t.Errorf("error should name the field: %v", err)
	}
	if !errors.IsTransport(err) {
		t.Error("malformed input is a transport error")
	}
}

func TestWriter_AllocationFailure(t *testing.T) {
	arena := NewArena(1)
	list := NewAllocationList()
	defer list.FreeAndRelease(arena)

	w := NewWriter(arena, list)
	w.Bytes(make([]byte, 2*pageSize))

	var be *errors.Error
	if !stderrors.As(w.Err(), &be) || be.Kind != errors.KindResourceExhausted {
		t.Fatalf("err = %v, want resource_exhausted", w.Err())
	}
	if w.String("after failure") != 0 {
		t.Error("writer should stop after the first failure")
	}
}

func TestFreeRecord_ReleasesEverything(t *testing.T) {
	arena := NewArena(0)
	list := NewAllocationList()

	w := NewWriter(arena, list)
	rw := w.NewRecord(testRecord)
	rw.SetString(fName, "x")
	rw.SetBytes(fBlob, []byte("content"))
	rw.SetStrings(fList, []string{"a", "b", "c"})
	rw.SetStringsExact(fExact, []string{})
	rw.SetMap(fEnv, map[string]string{"k": "v"})
	rw.Record(fWhere).SetString(0, "f")
	for _, sub := range rw.Records(fAll, 3) {
		sub.SetString(0, "n")
	}
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}

	// hand the record over, as an engine result or callback result would be
	list.Detach()
	list.Release()
	if arena.Live() == 0 {
		t.Fatal("expected live allocations before free")
	}

	if err := FreeRecord(arena, rw.Ptr(), testRecord); err != nil {
		t.Fatalf("FreeRecord: %v", err)
	}
	if live := arena.Live(); live != 0 {
		t.Errorf("Live() = %d after FreeRecord, want 0", live)
	}
}

type recordingAllocator struct {
	freed []uint32
}

func (a *recordingAllocator) Alloc(size, align uint32) (uint32, error) { return 0, nil }
func (a *recordingAllocator) Free(ptr, size, align uint32)            { a.freed = append(a.freed, ptr) }

func TestAllocationList_FreesInReverseOrder(t *testing.T) {
	al := NewAllocationList()
	al.Add(10, 4, 4)
	al.Add(20, 4, 4)
	al.Add(0, 0, 0)
	al.Add(30, 4, 4)

	alloc := &recordingAllocator{}
	al.Free(alloc)

	if !reflect.DeepEqual(alloc.freed, []uint32{30, 20, 10}) {
		t.Errorf("freed = %v, want [30 20 10]", alloc.freed)
	}
	if al.Count() != 0 {
		t.Errorf("Count() = %d after Free", al.Count())
	}
	al.Release()
}

func TestAllocationList_DetachTransfersOwnership(t *testing.T) {
	al := NewAllocationList()
	al.Add(10, 4, 4)
	al.Add(20, 8, 8)

	got := al.Detach()
	if len(got) != 2 || got[0].Ptr != 10 || got[1].Ptr != 20 {
		t.Fatalf("Detach() = %+v", got)
	}
	for _, a := range got {
		if a.Owner != EngineOwned {
			t.Errorf("block %d owner = %v, want engine", a.Ptr, a.Owner)
		}
	}

	alloc := &recordingAllocator{}
	al.Free(alloc)
	if len(alloc.freed) != 0 {
		t.Errorf("detached blocks freed by host: %v", alloc.freed)
	}
	al.Release()

	if o := Borrow(8, nil).Owner(); o != EngineOwned {
		t.Errorf("EngineBuffer owner = %v", o)
	}
}

func TestEngineBuffer_ReleaseOnce(t *testing.T) {
	calls := 0
	buf := Borrow(64, func(ctx context.Context, ptr uint32) error {
		calls++
		if ptr != 64 {
			t.Errorf("ptr = %d", ptr)
		}
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := buf.Release(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("release ran %d times, want 1", calls)
	}

	null := Borrow(0, func(context.Context, uint32) error {
		t.Error("null buffer must not call release")
		return nil
	})
	_ = null.Release(ctx)
}

func TestArena_ReusesFreedBlocks(t *testing.T) {
	a := NewArena(0)

	p1, _ := a.Alloc(32, 8)
	p2, _ := a.Alloc(32, 8)
	p3, _ := a.Alloc(32, 8)
	if p1 == 0 || p2 == 0 || p3 == 0 {
		t.Fatal("null pointer from Alloc")
	}

	a.Free(p1, 32, 8)
	a.Free(p2, 32, 8)
	a.Free(p2, 32, 8) // double free is ignored

	p4, err := a.Alloc(64, 8)
	if err != nil {
		t.Fatal(err)
	}
	if p4 != p1 {
		t.Errorf("coalesced block should be reused: got %d, want %d", p4, p1)
	}
	if a.Live() != 2 {
		t.Errorf("Live() = %d, want 2", a.Live())
	}
}

func TestArena_Grows(t *testing.T) {
	a := NewArena(4)
	ptr, err := a.Alloc(3*pageSize, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Write(ptr+3*pageSize-1, []byte{1}); err != nil {
		t.Fatalf("Write at end of block: %v", err)
	}
	if _, err := a.Alloc(2*pageSize, 8); err == nil {
		t.Fatal("expected exhaustion past the page limit")
	}
}

func TestReader_OutOfBounds(t *testing.T) {
	a := NewArena(1)
	r := NewReader(a)
	r.Record(pageSize-4, testRecord)

	var be *errors.Error
	if !stderrors.As(r.Err(), &be) || be.Kind != errors.KindOutOfBounds {
		t.Fatalf("err = %v, want out_of_bounds", r.Err())
	}
}

func TestReader_UnterminatedStringAtEnd(t *testing.T) {
	a := NewArena(1)
	end := a.Size() - 3
	if err := a.Write(end, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	r := NewReader(a)
	if s := r.String(end); s != "" {
		t.Errorf("String = %q", s)
	}
	if r.Err() == nil {
		t.Error("expected an error for a string running off the end of memory")
	}
}
