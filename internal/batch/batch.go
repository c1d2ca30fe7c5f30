/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package batch drives row ingestion against a set of column accumulators,
// decides when accumulated size crosses the configured threshold, and
// assembles the logical RecordBatch (FieldNode vector, Buffer vector, raw
// buffer bodies) an IPC writer serializes to disk (spec §4.3).
package batch

import (
	"errors"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pg2arrow/pg2arrow/internal/arrowbuf"
	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/column"
	"github.com/pg2arrow/pg2arrow/internal/werror"
)

// ErrRowTooLarge fires when a single row's size alone already exceeds
// segment_sz, so no batch boundary could ever contain it (spec §7: FATAL
// "row larger than record batch").
var ErrRowTooLarge = errors.New("batch: row exceeds segment_sz on its own, no batch boundary can contain it")

// FieldNode is one schema-DFS-order entry of a RecordBatch's FieldNode
// vector (spec §3's RecordBatch logical type).
type FieldNode struct {
	Length    int64
	NullCount int64
}

// BufferSpec is one schema-DFS-order entry of a RecordBatch's Buffer
// vector: an offset into the body plus the buffer's raw (unaligned) used
// length.
type BufferSpec struct {
	Offset int64
	Length int64
}

// RecordBatch is the fully assembled logical batch the Emitter
// serializes: FieldNode/Buffer vectors in schema DFS order plus, in the
// same order as Buffers, the raw bytes of each non-empty buffer body.
type RecordBatch struct {
	RowCount   int64
	FieldNodes []FieldNode
	Buffers    []BufferSpec
	BodyLength int64
	Bodies     [][]byte
}

// Emitter serializes one assembled RecordBatch to the underlying Arrow
// file (internal/ipc.Writer implements this).
type Emitter interface {
	WriteRecordBatch(rb *RecordBatch) error
}

// Manager drives row ingestion against the column tree derived from a
// schema, flushing to Emitter whenever accumulated size crosses
// segmentSz.
type Manager struct {
	fields    []*arrowtype.Field
	columns   []*column.Column
	segmentSz int
	emit      Emitter
}

// New builds a Manager over fields (the top-level schema, in declaration
// order), allocating one Column accumulator per field.
func New(fields []*arrowtype.Field, segmentSz int, emit Emitter, alloc memory.Allocator) (*Manager, error) {
	columns := make([]*column.Column, len(fields))
	for i, f := range fields {
		c, err := column.New(f, alloc)
		if err != nil {
			return nil, err
		}
		columns[i] = c
	}
	return &Manager{fields: fields, columns: columns, segmentSz: segmentSz, emit: emit}, nil
}

// AppendRow ingests one row's worth of column values, in schema
// declaration order, flushing the current batch first if this row would
// overflow segment_sz (spec §4.3, re-architected per §9: Append is always
// speculative, and only Commit or Unwind decides its fate).
func (m *Manager) AppendRow(values []column.Value) error {
	marks, err := m.appendAll(values)
	if err != nil {
		return err
	}

	if m.sizeEstimate(marks) > m.segmentSz {
		hadRows := m.columns[0].RowCount() > 0
		for i, c := range m.columns {
			c.Unwind(marks[i])
		}
		if !hadRows {
			return werror.Wrap(ErrRowTooLarge)
		}
		if err := m.flush(); err != nil {
			return err
		}

		marks, err = m.appendAll(values)
		if err != nil {
			return err
		}
		if m.sizeEstimate(marks) > m.segmentSz {
			for i, c := range m.columns {
				c.Unwind(marks[i])
			}
			return werror.Wrap(ErrRowTooLarge)
		}
	}

	for i, c := range m.columns {
		c.Commit(marks[i])
	}
	return nil
}

// Close flushes any remaining rows and returns; the caller is responsible
// for invoking the Emitter's own Close (footer + trailer) afterward.
func (m *Manager) Close() error {
	if m.columns[0].RowCount() == 0 {
		return nil
	}
	return m.flush()
}

func (m *Manager) appendAll(values []column.Value) ([]column.Mark, error) {
	marks := make([]column.Mark, len(m.columns))
	for i, c := range m.columns {
		var v column.Value
		if i < len(values) {
			v = values[i]
		}
		mark, err := c.Append(v)
		if err != nil {
			return nil, err
		}
		marks[i] = mark
	}
	return marks, nil
}

func (m *Manager) sizeEstimate(marks []column.Mark) int {
	total := 0
	for i, c := range m.columns {
		total += c.SizeEstimateWithPending(marks[i])
	}
	return total
}

func (m *Manager) flush() error {
	rb := &RecordBatch{RowCount: m.columns[0].RowCount()}
	var offset int64

	for _, c := range m.columns {
		appendColumn(c, rb, &offset)
	}
	rb.BodyLength = offset

	if err := m.emit.WriteRecordBatch(rb); err != nil {
		return err
	}
	for _, c := range m.columns {
		c.Reset()
	}
	return nil
}

// appendColumn walks one column (recursing into Struct children in
// declaration order) contributing FieldNode/Buffer entries and raw buffer
// bodies in schema DFS order (spec §3/§4.3).
func appendColumn(c *column.Column, rb *RecordBatch, offset *int64) {
	rb.FieldNodes = append(rb.FieldNodes, FieldNode{
		Length:    c.RowCount(),
		NullCount: c.NullCount(),
	})

	switch c.Layout() {
	case arrowtype.LayoutStruct:
		appendBuffer(rb, offset, nullmapBytes(c))
		for _, child := range c.Children {
			appendColumn(child, rb, offset)
		}
	case arrowtype.LayoutVarlena:
		appendBuffer(rb, offset, nullmapBytes(c))
		appendBuffer(rb, offset, c.ValuesBytes())
		appendBuffer(rb, offset, c.ExtraBytes())
	default:
		appendBuffer(rb, offset, nullmapBytes(c))
		appendBuffer(rb, offset, c.ValuesBytes())
	}
}

// nullmapBytes returns nil (a zero-length buffer entry) for an all-valid
// column — the spec's space-saving carve-out — rather than the raw,
// all-zero bitmap bytes the Column still physically holds.
func nullmapBytes(c *column.Column) []byte {
	if c.NullCount() == 0 {
		return nil
	}
	return c.NullmapBytes()
}

func appendBuffer(rb *RecordBatch, offset *int64, body []byte) {
	rb.Buffers = append(rb.Buffers, BufferSpec{Offset: *offset, Length: int64(len(body))})
	rb.Bodies = append(rb.Bodies, body)
	*offset += int64(arrowbuf.Align64(len(body)))
}
