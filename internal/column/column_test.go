/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package column

import (
	"encoding/binary"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
)

func newChecked(t *testing.T) *memory.CheckedAllocator {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { alloc.AssertSize(t, 0) })
	return alloc
}

func beInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func TestInt32AppendCommitByteSwapsAndTracksStats(t *testing.T) {
	alloc := newChecked(t)
	col, err := New(&arrowtype.Field{Name: "n", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}, alloc)
	require.NoError(t, err)
	defer col.Release()

	m1, err := col.Append(Value{Bytes: beInt32(7)})
	require.NoError(t, err)
	col.Commit(m1)

	m2, err := col.Append(Value{Null: true})
	require.NoError(t, err)
	col.Commit(m2)

	m3, err := col.Append(Value{Bytes: beInt32(-3)})
	require.NoError(t, err)
	col.Commit(m3)

	require.EqualValues(t, 3, col.RowCount())
	require.EqualValues(t, 1, col.NullCount())

	require.Equal(t, int32(7), int32(binary.LittleEndian.Uint32(col.values.Bytes()[0:4])))
	require.Equal(t, int32(0), int32(binary.LittleEndian.Uint32(col.values.Bytes()[4:8])))
	require.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(col.values.Bytes()[8:12])))

	require.True(t, col.nullmap.Bit(0))
	require.False(t, col.nullmap.Bit(1))
	require.True(t, col.nullmap.Bit(2))

	min, max, ok := col.Stats()
	require.True(t, ok)
	require.Equal(t, -3.0, min)
	require.Equal(t, 7.0, max)
}

func TestInt32UnwindDiscardsSpeculativeAppend(t *testing.T) {
	alloc := newChecked(t)
	col, err := New(&arrowtype.Field{Name: "n", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}, alloc)
	require.NoError(t, err)
	defer col.Release()

	m1, err := col.Append(Value{Bytes: beInt32(1)})
	require.NoError(t, err)
	col.Commit(m1)

	m2, err := col.Append(Value{Bytes: beInt32(99)})
	require.NoError(t, err)
	col.Unwind(m2)

	require.EqualValues(t, 1, col.RowCount())
	require.Equal(t, 4, col.values.Used())
	require.Equal(t, int32(1), int32(binary.LittleEndian.Uint32(col.values.Bytes())))

	min, max, ok := col.Stats()
	require.True(t, ok)
	require.Equal(t, 1.0, min)
	require.Equal(t, 1.0, max)

	m3, err := col.Append(Value{Bytes: beInt32(2)})
	require.NoError(t, err)
	col.Commit(m3)
	require.EqualValues(t, 2, col.RowCount())
	max = 0
	_, max, _ = col.Stats()
	require.Equal(t, 2.0, max)
}

func TestUtf8AppendWithNullOffsets(t *testing.T) {
	alloc := newChecked(t)
	col, err := New(&arrowtype.Field{Name: "s", DataType: arrow.BinaryTypes.String, Nullable: true}, alloc)
	require.NoError(t, err)
	defer col.Release()

	m1, err := col.Append(Value{Bytes: []byte("hi")})
	require.NoError(t, err)
	col.Commit(m1)

	m2, err := col.Append(Value{Null: true})
	require.NoError(t, err)
	col.Commit(m2)

	m3, err := col.Append(Value{Bytes: []byte("bye")})
	require.NoError(t, err)
	col.Commit(m3)

	require.EqualValues(t, 3, col.RowCount())
	require.EqualValues(t, 1, col.NullCount())

	offs := col.values.Bytes()
	require.Equal(t, 16, len(offs)) // sentinel + 3 rows, 4 bytes each
	o0 := binary.LittleEndian.Uint32(offs[0:4])
	o1 := binary.LittleEndian.Uint32(offs[4:8])
	o2 := binary.LittleEndian.Uint32(offs[8:12])
	o3 := binary.LittleEndian.Uint32(offs[12:16])
	require.EqualValues(t, 0, o0)
	require.EqualValues(t, 2, o1)
	require.EqualValues(t, 2, o2) // null row contributes no heap bytes
	require.EqualValues(t, 5, o3)

	require.Equal(t, "hibye", string(col.extra.Bytes()))
}

func TestDecimal128Append(t *testing.T) {
	alloc := newChecked(t)
	dt := &arrow.Decimal128Type{Precision: 10, Scale: 2}
	col, err := New(&arrowtype.Field{Name: "d", DataType: dt, Nullable: true}, alloc)
	require.NoError(t, err)
	defer col.Release()

	// PostgreSQL numeric wire format for 12.34: ndigits=2, weight=0,
	// sign=0 (positive), dscale=2, digits=[12, 3400].
	raw := make([]byte, 8+4)
	binary.BigEndian.PutUint16(raw[0:2], 2)
	binary.BigEndian.PutUint16(raw[2:4], 0)
	binary.BigEndian.PutUint16(raw[4:6], 0)
	binary.BigEndian.PutUint16(raw[6:8], 2)
	binary.BigEndian.PutUint16(raw[8:10], 12)
	binary.BigEndian.PutUint16(raw[10:12], 3400)

	m, err := col.Append(Value{Bytes: raw})
	require.NoError(t, err)
	col.Commit(m)

	lo := binary.LittleEndian.Uint64(col.values.Bytes()[0:8])
	hi := binary.LittleEndian.Uint64(col.values.Bytes()[8:16])
	require.EqualValues(t, 1234, lo)
	require.EqualValues(t, 0, hi)
}

func TestStructAppendRecursesIntoChildren(t *testing.T) {
	alloc := newChecked(t)
	field := arrowtype.NewStruct("point", true,
		&arrowtype.Field{Name: "x", DataType: arrow.PrimitiveTypes.Int32, Nullable: true},
		&arrowtype.Field{Name: "y", DataType: arrow.PrimitiveTypes.Int32, Nullable: true},
	)
	col, err := New(field, alloc)
	require.NoError(t, err)
	defer col.Release()

	m1, err := col.Append(Value{Children: []Value{{Bytes: beInt32(1)}, {Bytes: beInt32(2)}}})
	require.NoError(t, err)
	col.Commit(m1)

	m2, err := col.Append(Value{Null: true})
	require.NoError(t, err)
	col.Commit(m2)

	require.EqualValues(t, 2, col.RowCount())
	require.EqualValues(t, 1, col.NullCount())
	require.EqualValues(t, 2, col.Children[0].RowCount())
	require.EqualValues(t, 1, col.Children[0].NullCount())
	require.EqualValues(t, 1, col.Children[1].NullCount())
}

func TestSizeEstimateGrowsWithAppends(t *testing.T) {
	alloc := newChecked(t)
	col, err := New(&arrowtype.Field{Name: "n", DataType: arrow.PrimitiveTypes.Int64, Nullable: true}, alloc)
	require.NoError(t, err)
	defer col.Release()

	require.Equal(t, 0, col.SizeEstimate())
	m, err := col.Append(Value{Bytes: make([]byte, 8)})
	require.NoError(t, err)
	col.Commit(m)
	require.Equal(t, 64, col.SizeEstimate()) // one 8-byte value, aligned up to 64
}
