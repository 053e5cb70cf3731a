package abi

import "fmt"

// FieldType is the wire shape of one logical record field.
type FieldType uint8

const (
	U32   FieldType = iota // one slot
	I32                    // one slot
	Bool                   // one slot, 0 or 1
	Tri                    // one slot, -1 unset
	Str                    // one slot, NUL-terminated string pointer
	Bytes                  // pointer slot, length slot
	Strs                   // count slot, pointer slot
	Map                    // count slot, keys slot, values slot
	Recs                   // count slot, pointer slot
	Rec                    // one slot, nested record pointer
)

func (t FieldType) slots() int {
	switch t {
	case Bytes, Strs, Recs:
		return 2
	case Map:
		return 3
	default:
		return 1
	}
}

func (t FieldType) String() string {
	switch t {
	case U32:
		return "u32"
	case I32:
		return "i32"
	case Bool:
		return "bool"
	case Tri:
		return "tri"
	case Str:
		return "str"
	case Bytes:
		return "bytes"
	case Strs:
		return "strs"
	case Map:
		return "map"
	case Recs:
		return "recs"
	case Rec:
		return "rec"
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// Field describes one logical field. Elem is the nested layout for Rec and Recs.
type Field struct {
	Elem *Layout
	Name string
	Type FieldType
}

func F(name string, t FieldType) Field {
	return Field{Name: name, Type: t}
}

// Nested declares a Rec or Recs field with its element layout.
func Nested(name string, t FieldType, elem *Layout) Field {
	return Field{Name: name, Type: t, Elem: elem}
}

// Layout is the fixed shape of a wire record. Fields are addressed by index,
// in declaration order.
type Layout struct {
	Name   string
	Fields []Field
	slot   []int
	slots  int
}

// NewLayout builds a layout. It panics on a Rec or Recs field without Elem.
func NewLayout(name string, fields ...Field) *Layout {
	l := &Layout{
		Name:   name,
		Fields: fields,
		slot:   make([]int, len(fields)),
	}
	for i, f := range fields {
		if (f.Type == Rec || f.Type == Recs) && f.Elem == nil {
			panic(fmt.Sprintf("abi: %s.%s needs an element layout", name, f.Name))
		}
		l.slot[i] = l.slots
		l.slots += f.Type.slots()
	}
	return l
}

// Size is the record size in bytes.
func (l *Layout) Size() uint32 {
	return uint32(l.slots) * 4
}

// Slots is the number of 32-bit slots in the record.
func (l *Layout) Slots() int {
	return l.slots
}

// Offset returns the byte offset of field f's first slot.
func (l *Layout) Offset(f int) uint32 {
	return uint32(l.slot[f]) * 4
}

func (l *Layout) check(f int, types ...FieldType) {
	if f < 0 || f >= len(l.Fields) {
		panic(fmt.Sprintf("abi: %s has no field %d", l.Name, f))
	}
	for _, t := range types {
		if l.Fields[f].Type == t {
			return
		}
	}
	panic(fmt.Sprintf("abi: %s.%s is %s, not %v", l.Name, l.Fields[f].Name, l.Fields[f].Type, types))
}

func (l *Layout) path(f int) []string {
	return []string{l.Name, l.Fields[f].Name}
}
