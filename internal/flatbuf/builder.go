/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package flatbuf is a hand-rolled FlatBuffer encoder and decoder scoped to
// exactly the tables this format needs (Message, Schema, Field, the Int /
// FloatingPoint / Decimal type variants, RecordBatch, DictionaryBatch,
// Footer). It
// deliberately does not pull in a general-purpose FlatBuffer library or
// generated code — spec §9's design note calls for the minimal subset,
// not the full specification surface.
package flatbuf

import "encoding/binary"

// Builder assembles one FlatBuffer table: a vtable (4 + 2N bytes, N =
// field count), an inline table region for scalars, and a side list of
// "extra" blobs (sub-tables, strings, vectors) concatenated after the
// table on Flatten.
type Builder struct {
	n       int
	voffset []uint16 // per-field table-relative byte offset; 0 = absent
	table   []byte   // table bytes; table[0:4] is the self-referential *table=vlen slot
	extras  [][]byte
	patches []patch
}

type patch struct {
	tableOffset int   // byte offset of the 4-byte slot within the table region
	extraIndex  int   // which extras[] blob this slot points at
	shift       int32 // added to the computed relative offset
}

// NewBuilder starts a table with n fields, all initially absent.
func NewBuilder(n int) *Builder {
	b := &Builder{n: n, voffset: make([]uint16, n)}
	b.table = make([]byte, 4) // reserved for the *table=vlen self-reference
	return b
}

func alignUp(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}

func (b *Builder) padTableTo(align int) {
	want := alignUp(len(b.table), align)
	for len(b.table) < want {
		b.table = append(b.table, 0)
	}
}

// PutScalar writes value (already little-endian-encoded, any width) into
// the table at the next `align`-aligned cursor position and records field
// i's offset. Per spec §4.5, callers should skip calling this for a
// zero-valued scalar — offset 0 already means "absent, use the default".
func (b *Builder) PutScalar(i int, value []byte, align int) {
	b.padTableTo(align)
	b.voffset[i] = uint16(len(b.table))
	b.table = append(b.table, value...)
}

// PutBinary reserves a 4-byte slot for field i (as though by PutScalar
// with value=shift) and records blob as an extra to be concatenated after
// Flatten; the slot is patched at that time to the relative offset from
// itself to the blob's payload start, plus shift.
func (b *Builder) PutBinary(i int, blob []byte, shift int32) {
	b.padTableTo(4)
	off := len(b.table)
	b.voffset[i] = uint16(off)
	placeholder := make([]byte, 4)
	binary.LittleEndian.PutUint32(placeholder, uint32(shift))
	b.table = append(b.table, placeholder...)
	b.patches = append(b.patches, patch{tableOffset: off, extraIndex: len(b.extras), shift: shift})
	b.extras = append(b.extras, blob)
}

// PutOffset points field i at sub's table root: sub is flattened (its
// offsets resolved to a self-contained blob), then treated as one extra
// with shift = sub's own vtable length, so the relative offset lands on
// sub's table root rather than its vtable.
func (b *Builder) PutOffset(i int, sub *Builder) {
	blob, vlen, _ := sub.flattenRaw()
	b.PutBinary(i, blob, int32(vlen))
}

// PutString builds a Length(int32)+UTF-8+NUL+pad blob and stores it as
// field i via PutBinary with shift=0.
func (b *Builder) PutString(i int, s string) {
	raw := []byte(s)
	blob := make([]byte, 4, 4+len(raw)+1)
	binary.LittleEndian.PutUint32(blob, uint32(len(raw)))
	blob = append(blob, raw...)
	blob = append(blob, 0) // NUL terminator
	for len(blob)%4 != 0 {
		blob = append(blob, 0)
	}
	b.PutBinary(i, blob, 0)
}

// PutVector builds int32 nitems, nitems x int32 element offsets, followed
// by each sub-builder's flattened, 16-bit-aligned image, with each
// element offset pointing at its sub's table root. Stores the result as
// field i via PutBinary with shift=0.
func (b *Builder) PutVector(i int, subs []*Builder) {
	type image struct {
		data []byte
		vlen int
	}
	imgs := make([]image, len(subs))
	for j, s := range subs {
		data, vlen, _ := s.flattenRaw()
		imgs[j] = image{data: data, vlen: vlen}
	}

	blob := make([]byte, 4)
	binary.LittleEndian.PutUint32(blob, uint32(len(subs)))

	slotsStart := len(blob)
	blob = append(blob, make([]byte, 4*len(subs))...)

	starts := make([]int, len(subs))
	for j, img := range imgs {
		for len(blob)%2 != 0 {
			blob = append(blob, 0)
		}
		starts[j] = len(blob)
		blob = append(blob, img.data...)
	}

	for j, img := range imgs {
		slot := slotsStart + j*4
		val := int32(starts[j]-slot) + int32(img.vlen)
		binary.LittleEndian.PutUint32(blob[slot:slot+4], uint32(val))
	}

	b.PutBinary(i, blob, 0)
}

// Flatten returns the table's self-contained byte image: vtable, table,
// and its extras, with every slot resolved to an absolute-within-this-image
// offset. Top-level callers (one per FlatBuffer message) use this; nested
// callers use the internal flattenRaw so they also learn vlen.
func (b *Builder) Flatten() []byte {
	data, _, _ := b.flattenRaw()
	return data
}

// VLen returns this table's vtable length in bytes (4 + 2*n), the value a
// parent uses as the `shift` when it wants to land on this table's root.
func (b *Builder) VLen() int { return 4 + 2*b.n }

func (b *Builder) flattenRaw() ([]byte, int, int) {
	vlen := 4 + 2*b.n
	tlen := len(b.table)
	binary.LittleEndian.PutUint32(b.table[0:4], uint32(vlen))

	vtable := make([]byte, vlen)
	binary.LittleEndian.PutUint16(vtable[0:2], uint16(vlen))
	binary.LittleEndian.PutUint16(vtable[2:4], uint16(tlen))
	for i := 0; i < b.n; i++ {
		binary.LittleEndian.PutUint16(vtable[4+2*i:6+2*i], b.voffset[i])
	}

	out := make([]byte, 0, vlen+tlen+len(b.extras)*8)
	out = append(out, vtable...)
	out = append(out, b.table...)

	tableAbs := vlen
	extraAbs := make([]int, len(b.extras))
	for idx, e := range b.extras {
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		extraAbs[idx] = len(out)
		out = append(out, e...)
	}

	for _, p := range b.patches {
		slotAbs := tableAbs + p.tableOffset
		val := int32(extraAbs[p.extraIndex]-slotAbs) + p.shift
		binary.LittleEndian.PutUint32(out[slotAbs:slotAbs+4], uint32(val))
	}

	return out, vlen, tlen
}

// Scalar helpers: encode fixed-width little-endian values for PutScalar.

func ScalarBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func ScalarByte(v byte) []byte { return []byte{v} }

func ScalarInt16(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func ScalarInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func ScalarInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// PackedVector encodes one of the spec's non-table packed vector structs
// (BufferVector/FieldNodeVector/BlockVector): int32 nitems followed by
// nitems fixed-size little-endian records, each built by rec(i).
func PackedVector(nitems int, recSize int, rec func(i int, out []byte)) []byte {
	out := make([]byte, 4+nitems*recSize)
	binary.LittleEndian.PutUint32(out[0:4], uint32(nitems))
	for i := 0; i < nitems; i++ {
		rec(i, out[4+i*recSize:4+(i+1)*recSize])
	}
	return out
}
