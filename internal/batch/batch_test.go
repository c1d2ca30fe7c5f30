/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package batch

import (
	"encoding/binary"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/column"
)

type captureEmitter struct {
	batches []*RecordBatch
}

func (e *captureEmitter) WriteRecordBatch(rb *RecordBatch) error {
	e.batches = append(e.batches, rb)
	return nil
}

func beInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func TestTwoRowInt32WithNullFlushesOnClose(t *testing.T) {
	fields := []*arrowtype.Field{{Name: "n", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}
	em := &captureEmitter{}
	mgr, err := New(fields, 1<<30, em, memory.NewGoAllocator())
	require.NoError(t, err)

	require.NoError(t, mgr.AppendRow([]column.Value{{Bytes: beInt32(7)}}))
	require.NoError(t, mgr.AppendRow([]column.Value{{Null: true}}))
	require.NoError(t, mgr.Close())

	require.Len(t, em.batches, 1)
	rb := em.batches[0]
	require.EqualValues(t, 2, rb.RowCount)
	require.Equal(t, []FieldNode{{Length: 2, NullCount: 1}}, rb.FieldNodes)

	require.Len(t, rb.Buffers, 2)
	require.EqualValues(t, 0, rb.Buffers[0].Offset)
	require.EqualValues(t, 1, rb.Buffers[0].Length) // nullmap: ceil(2/8)=1 raw byte
	require.EqualValues(t, 64, rb.Buffers[1].Offset)
	require.EqualValues(t, 8, rb.Buffers[1].Length) // 2 * int32
	require.EqualValues(t, 128, rb.BodyLength)

	require.Equal(t, byte(0x01), rb.Bodies[0][0])
	require.Equal(t, beInt32LE(7), rb.Bodies[1][0:4])
}

func beInt32LE(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestAllValidColumnOmitsNullmapBuffer(t *testing.T) {
	fields := []*arrowtype.Field{{Name: "n", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}
	em := &captureEmitter{}
	mgr, err := New(fields, 1<<30, em, memory.NewGoAllocator())
	require.NoError(t, err)

	require.NoError(t, mgr.AppendRow([]column.Value{{Bytes: beInt32(1)}}))
	require.NoError(t, mgr.Close())

	rb := em.batches[0]
	require.EqualValues(t, 0, rb.Buffers[0].Length)
	require.Nil(t, rb.Bodies[0])
}

func TestFlushBoundaryUnwindsAndReappendsOverflowingRow(t *testing.T) {
	fields := []*arrowtype.Field{{Name: "s", DataType: arrow.BinaryTypes.String, Nullable: true}}
	em := &captureEmitter{}
	// Row "x" alone: offsets(64) + heap(64) = 128, which fits a 128-byte
	// segment. Adding a null row turns the nullmap on: 128 + nullmap(64) =
	// 192, so that row overflows and is re-appended alone into the next
	// batch, where offsets(64) + empty heap(0) + nullmap(64) = 128 fits.
	mgr, err := New(fields, 128, em, memory.NewGoAllocator())
	require.NoError(t, err)

	require.NoError(t, mgr.AppendRow([]column.Value{{Bytes: []byte("x")}}))
	require.NoError(t, mgr.AppendRow([]column.Value{{Null: true}}))
	require.NoError(t, mgr.Close())

	require.Len(t, em.batches, 2)
	require.EqualValues(t, 1, em.batches[0].RowCount)
	require.EqualValues(t, 0, em.batches[0].FieldNodes[0].NullCount)
	require.EqualValues(t, 1, em.batches[1].RowCount)
	require.EqualValues(t, 1, em.batches[1].FieldNodes[0].NullCount)
}

func TestSingleRowExceedingSegmentSizeIsFatal(t *testing.T) {
	fields := []*arrowtype.Field{{Name: "s", DataType: arrow.BinaryTypes.String, Nullable: true}}
	em := &captureEmitter{}
	mgr, err := New(fields, 4, em, memory.NewGoAllocator())
	require.NoError(t, err)

	err = mgr.AppendRow([]column.Value{{Bytes: []byte("this string is too long")}})
	require.ErrorIs(t, err, ErrRowTooLarge)
}
