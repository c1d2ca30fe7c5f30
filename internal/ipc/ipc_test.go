/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package ipc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/batch"
	"github.com/pg2arrow/pg2arrow/internal/column"
	"github.com/pg2arrow/pg2arrow/internal/flatbuf"
)

func beInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func TestEmptyBatchRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.arrow")
	fields := []*arrowtype.Field{{Name: "id", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, fields)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	schema, err := r.ReadSchema()
	require.NoError(t, err)
	fieldTables := schema.GetVectorTables(flatbuf.SchemaFields)
	require.Len(t, fieldTables, 1)
	name, _ := fieldTables[0].GetString(flatbuf.FieldName)
	require.Equal(t, "id", name)

	footer, err := r.ReadFooter()
	require.NoError(t, err)
	require.Len(t, footer.RecordBatches, 0)
}

func TestTwoRowInt32WithNullRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two_rows.arrow")
	fields := []*arrowtype.Field{{Name: "n", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, fields)
	require.NoError(t, err)

	mgr, err := batch.New(fields, 1<<30, w, memory.NewGoAllocator())
	require.NoError(t, err)
	require.NoError(t, mgr.AppendRow([]column.Value{{Bytes: beInt32(7)}}))
	require.NoError(t, mgr.AppendRow([]column.Value{{Null: true}}))
	require.NoError(t, mgr.Close())
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	footer, err := r.ReadFooter()
	require.NoError(t, err)
	require.Len(t, footer.RecordBatches, 1)

	block := footer.RecordBatches[0]
	require.EqualValues(t, 128, block.BodyLength)

	rbTable, err := r.ReadRecordBatchAt(block)
	require.NoError(t, err)
	require.EqualValues(t, 2, rbTable.GetInt64(flatbuf.RecordBatchLength, 0))

	_, _, nitems, ok := rbTable.GetPackedVector(flatbuf.RecordBatchFieldNodes)
	require.True(t, ok)
	require.Equal(t, 1, nitems)
}

func TestReadDictionaryBatchAtDecodesIdAndEmbeddedRecordBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.arrow")
	fields := []*arrowtype.Field{{Name: "id", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, fields)
	require.NoError(t, err)

	// This producer never emits a DictionaryBatch block itself (no column
	// dictionary is ever populated); write one by hand to exercise the
	// decode side against a foreign file that does.
	dictOffset := w.offset
	rb := &batch.RecordBatch{RowCount: 2, FieldNodes: []batch.FieldNode{{Length: 2, NullCount: 0}}}
	dictTable := flatbuf.BuildDictionaryBatchTable(42, flatbuf.BuildRecordBatchTable(rb), false)
	msg := flatbuf.BuildMessageTable(flatbuf.HeaderDictionaryBatch, dictTable, 0)
	require.NoError(t, w.writeBytes(flatbuf.FrameMessage(msg)))

	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	id, isDelta, rbTable, err := r.ReadDictionaryBatchAt(dictOffset)
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
	require.False(t, isDelta)
	require.EqualValues(t, 2, rbTable.GetInt64(flatbuf.RecordBatchLength, 0))
}

func TestFooterTrailerBytesMatchSpecLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trailer.arrow")
	fields := []*arrowtype.Field{{Name: "id", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, fields)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ARROW1", string(raw[len(raw)-6:]))

	lengthPos := len(raw) - 10
	length := int32(binary.LittleEndian.Uint32(raw[lengthPos : lengthPos+4]))
	require.Greater(t, length, int32(0))
	require.GreaterOrEqual(t, lengthPos-int(length), len(fileSignature))
}
