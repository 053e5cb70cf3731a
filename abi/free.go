package abi

import "encoding/binary"

// FreeRecord releases a record written by a Writer together with everything it
// points to. It is the deallocation procedure for engine-owned records: the
// result records an engine returns, and callback results handed to an engine.
//
// Sizes passed to Free are advisory; allocators free by pointer.
func FreeRecord(heap Heap, ptr uint32, l *Layout) error {
	if ptr == 0 {
		return nil
	}
	r := NewReader(heap)
	freeContents(heap, r, r.Record(ptr, l))
	heap.Free(ptr, l.Size(), dataAlign)
	return r.Err()
}

func freeContents(heap Heap, r *Reader, rr RecordReader) {
	if rr.raw == nil {
		return
	}
	for f, field := range rr.l.Fields {
		switch field.Type {
		case Str, Bytes:
			if p := rr.slot(f, 0); p != 0 {
				heap.Free(p, 0, 1)
			}
		case Strs:
			freeStringArray(heap, r, rr.slot(f, 0), rr.slot(f, 1))
		case Map:
			freeStringArray(heap, r, rr.slot(f, 0), rr.slot(f, 1))
			freeStringArray(heap, r, rr.slot(f, 0), rr.slot(f, 2))
		case Rec:
			if p := rr.slot(f, 0); p != 0 {
				freeContents(heap, r, r.Record(p, field.Elem))
				heap.Free(p, field.Elem.Size(), dataAlign)
			}
		case Recs:
			base := rr.slot(f, 1)
			if base == 0 {
				continue
			}
			for _, sub := range rr.Records(f) {
				freeContents(heap, r, sub)
			}
			heap.Free(base, rr.slot(f, 0)*field.Elem.Size(), dataAlign)
		}
	}
}

func freeStringArray(heap Heap, r *Reader, count, arr uint32) {
	if arr == 0 {
		return
	}
	if count > maxElements {
		return
	}
	raw := r.read(arr, count*4, nil)
	for i := 0; i+4 <= len(raw); i += 4 {
		if p := binary.LittleEndian.Uint32(raw[i:]); p != 0 {
			heap.Free(p, 0, 1)
		}
	}
	heap.Free(arr, count*4, wordAlign)
}
