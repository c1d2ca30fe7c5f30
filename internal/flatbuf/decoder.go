/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package flatbuf

import "encoding/binary"

// Table is a read-only view into a decoded FlatBuffer table: the full
// backing buffer plus the absolute position of this table's root (spec
// §4.6).
type Table struct {
	buf []byte
	pos int
}

// NewTable wraps buf, treating the int32 at pos as a table root.
func NewTable(buf []byte, pos int) Table { return Table{buf: buf, pos: pos} }

func (t Table) vtablePos() int {
	soffset := int32(binary.LittleEndian.Uint32(t.buf[t.pos : t.pos+4]))
	return t.pos - int(soffset)
}

func (t Table) vtable() []byte {
	vp := t.vtablePos()
	vlen := binary.LittleEndian.Uint16(t.buf[vp : vp+2])
	return t.buf[vp : vp+int(vlen)]
}

// offset returns field i's absolute byte position, or 0 if the field is
// absent (vtable too short for it, or its slot is explicitly 0).
func (t Table) offset(i int) int {
	vt := t.vtable()
	slot := 4 + 2*i
	if slot+2 > len(vt) {
		return 0
	}
	o := binary.LittleEndian.Uint16(vt[slot : slot+2])
	if o == 0 {
		return 0
	}
	return t.pos + int(o)
}

func (t Table) GetByte(i int, def byte) byte {
	o := t.offset(i)
	if o == 0 {
		return def
	}
	return t.buf[o]
}

func (t Table) GetBool(i int, def bool) bool {
	o := t.offset(i)
	if o == 0 {
		return def
	}
	return t.buf[o] != 0
}

func (t Table) GetInt16(i int, def int16) int16 {
	o := t.offset(i)
	if o == 0 {
		return def
	}
	return int16(binary.LittleEndian.Uint16(t.buf[o : o+2]))
}

func (t Table) GetInt32(i int, def int32) int32 {
	o := t.offset(i)
	if o == 0 {
		return def
	}
	return int32(binary.LittleEndian.Uint32(t.buf[o : o+4]))
}

func (t Table) GetInt64(i int, def int64) int64 {
	o := t.offset(i)
	if o == 0 {
		return def
	}
	return int64(binary.LittleEndian.Uint64(t.buf[o : o+8]))
}

// GetOffsetTable follows a PutOffset-style field to the sub-table it
// points at.
func (t Table) GetOffsetTable(i int) (Table, bool) {
	o := t.offset(i)
	if o == 0 {
		return Table{}, false
	}
	rel := int32(binary.LittleEndian.Uint32(t.buf[o : o+4]))
	return Table{buf: t.buf, pos: o + int(rel)}, true
}

// GetString follows a PutString-style field to its Length+UTF-8 payload.
func (t Table) GetString(i int) (string, bool) {
	o := t.offset(i)
	if o == 0 {
		return "", false
	}
	rel := int32(binary.LittleEndian.Uint32(t.buf[o : o+4]))
	strPos := o + int(rel)
	n := binary.LittleEndian.Uint32(t.buf[strPos : strPos+4])
	return string(t.buf[strPos+4 : strPos+4+int(n)]), true
}

// GetVectorTables follows a PutVector-style field to its element
// sub-tables.
func (t Table) GetVectorTables(i int) []Table {
	o := t.offset(i)
	if o == 0 {
		return nil
	}
	rel := int32(binary.LittleEndian.Uint32(t.buf[o : o+4]))
	vecPos := o + int(rel)
	n := binary.LittleEndian.Uint32(t.buf[vecPos : vecPos+4])
	out := make([]Table, n)
	for j := 0; j < int(n); j++ {
		slot := vecPos + 4 + j*4
		elemRel := int32(binary.LittleEndian.Uint32(t.buf[slot : slot+4]))
		out[j] = Table{buf: t.buf, pos: slot + int(elemRel)}
	}
	return out
}

// GetPackedVector follows a PutBinary-style field to one of the spec's
// packed, vtable-less vectors (BufferVector/FieldNodeVector/BlockVector),
// returning the backing buffer, the byte position of its first record,
// and the record count.
func (t Table) GetPackedVector(i int) (buf []byte, recPos int, nitems int, ok bool) {
	o := t.offset(i)
	if o == 0 {
		return nil, 0, 0, false
	}
	rel := int32(binary.LittleEndian.Uint32(t.buf[o : o+4]))
	vecPos := o + int(rel)
	n := binary.LittleEndian.Uint32(t.buf[vecPos : vecPos+4])
	return t.buf, vecPos + 4, int(n), true
}
