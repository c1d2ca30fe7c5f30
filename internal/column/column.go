/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package column implements the columnar row-to-column accumulator
// (spec §4.2): per-column handlers that transcode big-endian wire values
// into little-endian Arrow buffers, track null bitmaps and min/max
// statistics, and report a running size estimate the batch manager uses
// to decide when to flush.
package column

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"

	"github.com/pg2arrow/pg2arrow/internal/arrowbuf"
	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/werror"
)

// ErrWidthMismatch fires when a wire value's byte length disagrees with
// its column's declared fixed width — data corruption on the wire (spec
// §4.2/§7).
var ErrWidthMismatch = errors.New("column: value size disagrees with fixed width")

// ErrListUnsupported fires when a List column is appended to; arrays are
// recognized by the type model but append is not implemented (spec §4.4).
var ErrListUnsupported = errors.New("column: array/list columns are not supported at append time")

// Epoch rebase constants (spec §4.2): PostgreSQL's own epoch is
// 2000-01-01, a delta of 10957 days (== 10957*86400 seconds) after the
// Unix epoch, 1970-01-01.
const (
	epochDeltaDays   int32 = 10957
	epochDeltaMicros int64 = int64(epochDeltaDays) * 86400 * 1_000_000
)

// Value is one row's payload for a column: either a null marker, raw
// wire-order bytes for a scalar, or, for a Struct column, one Value per
// child in declaration order.
type Value struct {
	Null     bool
	Bytes    []byte
	Children []Value
}

// Mark is the pre-append watermark a Column hands back from Append, to be
// passed to either Commit or Unwind. Per spec §9's re-architecture note,
// Append never commits null_count or row_count itself — only Commit does,
// which makes Unwind a pure, cheap buffer truncation.
type Mark struct {
	nullUsed, valuesUsed, extraUsed int

	isNull bool

	statValid   bool
	statIsFloat bool
	statF       float64
	statI       int64

	children []Mark
}

// Column is one field's accumulator: its buffers, null/row counters, and
// (for Struct) its children.
type Column struct {
	Name     string
	DataType arrow.DataType
	Nullable bool

	layout arrowtype.Layout
	width  int // byte width for LayoutFixed; 0 otherwise

	nullmap *arrowbuf.Buffer
	values  *arrowbuf.Buffer
	extra   *arrowbuf.Buffer

	rowCount  int64
	nullCount int64

	trackStats bool
	hasMinI    bool
	minI, maxI int64
	hasMinF    bool
	minF, maxF float64

	Children []*Column
	Element  *Column
}

// New builds a Column (recursively, for Struct) from a derived Arrow
// field.
func New(field *arrowtype.Field, alloc memory.Allocator) (*Column, error) {
	c := &Column{
		Name:     field.Name,
		DataType: field.DataType,
		Nullable: field.Nullable,
		layout:   arrowtype.LayoutOf(field.DataType),
		nullmap:  arrowbuf.New(alloc),
		values:   arrowbuf.New(alloc),
		extra:    arrowbuf.New(alloc),
	}

	switch c.layout {
	case arrowtype.LayoutStruct:
		c.Children = make([]*Column, 0, len(field.Children))
		for _, child := range field.Children {
			cc, err := New(child, alloc)
			if err != nil {
				return nil, err
			}
			c.Children = append(c.Children, cc)
		}
	case arrowtype.LayoutList:
		if field.Element != nil {
			elem, err := New(field.Element, alloc)
			if err != nil {
				return nil, err
			}
			c.Element = elem
		}
	default:
		w, err := arrowtype.ByteWidth(field.DataType)
		if err != nil {
			return nil, werror.WrapWithContext(err, map[string]interface{}{"column": field.Name})
		}
		c.width = w
	}

	switch field.DataType.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.FLOAT32, arrow.FLOAT64:
		c.trackStats = true
	}

	return c, nil
}

// Layout reports how this column's values are physically stored.
func (c *Column) Layout() arrowtype.Layout { return c.layout }

// NullmapBytes returns the populated prefix of the null bitmap buffer.
// Only meaningful when NullCount() > 0; the batch manager omits the
// buffer entirely otherwise (spec §4.3).
func (c *Column) NullmapBytes() []byte { return c.nullmap.Bytes() }

// ValuesBytes returns the populated prefix of the fixed-width values (or
// varlena offsets) buffer.
func (c *Column) ValuesBytes() []byte { return c.values.Bytes() }

// ExtraBytes returns the populated prefix of the varlena byte heap.
func (c *Column) ExtraBytes() []byte { return c.extra.Bytes() }

// RowCount is the number of rows committed into the current (unflushed)
// batch.
func (c *Column) RowCount() int64 { return c.rowCount }

// NullCount is the number of committed rows that were null in the
// current batch.
func (c *Column) NullCount() int64 { return c.nullCount }

// Append transcodes one row's value into this column's buffers,
// speculatively: row/null counters are not updated until Commit. The
// caller must call exactly one of Commit or Unwind with the returned Mark
// before appending the next row.
func (c *Column) Append(v Value) (Mark, error) {
	mark := Mark{
		nullUsed:   c.nullmap.Used(),
		valuesUsed: c.values.Used(),
		extraUsed:  c.extra.Used(),
	}

	switch c.layout {
	case arrowtype.LayoutStruct:
		return c.appendStruct(mark, v)
	case arrowtype.LayoutList:
		return mark, werror.WrapWithContext(ErrListUnsupported, map[string]interface{}{"column": c.Name})
	case arrowtype.LayoutVarlena:
		return c.appendVarlena(mark, v)
	default:
		return c.appendFixed(mark, v)
	}
}

// Commit applies a previously-returned Mark: row_count advances, and
// null_count/statistics absorb what Append speculatively computed.
func (c *Column) Commit(m Mark) {
	c.rowCount++
	if m.isNull {
		c.nullCount++
	}
	if m.statValid {
		c.mergeStat(m)
	}
	for i, child := range c.Children {
		if i < len(m.children) {
			child.Commit(m.children[i])
		}
	}
}

// Unwind discards a previously-returned Mark's speculative buffer growth.
// row_count and null_count are untouched, because Append never committed
// them.
func (c *Column) Unwind(m Mark) {
	c.nullmap.Truncate(m.nullUsed)
	c.values.Truncate(m.valuesUsed)
	c.extra.Truncate(m.extraUsed)
	for i, child := range c.Children {
		if i < len(m.children) {
			child.Unwind(m.children[i])
		}
	}
}

// Release returns every buffer's backing storage to its allocator,
// recursing into children. The Column must not be used afterward.
func (c *Column) Release() {
	c.nullmap.Release()
	c.values.Release()
	c.extra.Release()
	for _, child := range c.Children {
		child.Release()
	}
	if c.Element != nil {
		c.Element.Release()
	}
}

// Reset clears every buffer and counter, retaining capacity, for the next
// batch.
func (c *Column) Reset() {
	c.nullmap.Clear()
	c.values.Clear()
	c.extra.Clear()
	c.rowCount = 0
	c.nullCount = 0
	c.hasMinI, c.hasMinF = false, false
	for _, child := range c.Children {
		child.Reset()
	}
}

// SizeEstimate returns the sum of 64-byte-aligned buffer sizes currently
// in use (spec §4.2's size-estimate formula), including this column's
// children.
func (c *Column) SizeEstimate() int {
	size := arrowbuf.Align64(c.values.Used()) + arrowbuf.Align64(c.extra.Used())
	if c.nullCount > 0 {
		size += arrowbuf.Align64(int((c.rowCount + 7) / 8))
	}
	for _, child := range c.Children {
		size += child.SizeEstimate()
	}
	return size
}

// SizeEstimateWithPending is SizeEstimate as it would read if m were
// committed: the batch manager calls this right after Append, before
// deciding whether to Commit or Unwind, so the threshold check sees the
// row that was just speculatively written (spec §4.3).
func (c *Column) SizeEstimateWithPending(m Mark) int {
	size := arrowbuf.Align64(c.values.Used()) + arrowbuf.Align64(c.extra.Used())
	nullCount := c.nullCount
	if m.isNull {
		nullCount++
	}
	if nullCount > 0 {
		size += arrowbuf.Align64(int((c.rowCount + 1 + 7) / 8))
	}
	for i, child := range c.Children {
		if i < len(m.children) {
			size += child.SizeEstimateWithPending(m.children[i])
		}
	}
	return size
}

// Stats returns the running min/max for signed integer and
// floating-point columns (spec §4.2). ok is false for columns that don't
// track statistics or have seen no non-null value yet.
func (c *Column) Stats() (min, max float64, ok bool) {
	if c.hasMinF {
		return c.minF, c.maxF, true
	}
	if c.hasMinI {
		return float64(c.minI), float64(c.maxI), true
	}
	return 0, 0, false
}

func (c *Column) mergeStat(m Mark) {
	if m.statIsFloat {
		if !c.hasMinF {
			c.minF, c.maxF, c.hasMinF = m.statF, m.statF, true
			return
		}
		c.minF = minOrd(c.minF, m.statF)
		c.maxF = maxOrd(c.maxF, m.statF)
		return
	}
	if !c.hasMinI {
		c.minI, c.maxI, c.hasMinI = m.statI, m.statI, true
		return
	}
	c.minI = minOrd(c.minI, m.statI)
	c.maxI = maxOrd(c.maxI, m.statI)
}

func (c *Column) appendStruct(mark Mark, v Value) (Mark, error) {
	idx := int(c.rowCount)
	if v.Null {
		mark.isNull = true
		c.nullmap.ClrBit(idx)
	} else {
		c.nullmap.SetBit(idx)
	}

	mark.children = make([]Mark, len(c.Children))
	for i, child := range c.Children {
		cv := Value{Null: true}
		if !v.Null && i < len(v.Children) {
			cv = v.Children[i]
		}
		cm, err := child.Append(cv)
		if err != nil {
			return mark, err
		}
		mark.children[i] = cm
	}
	return mark, nil
}

func (c *Column) appendVarlena(mark Mark, v Value) (Mark, error) {
	idx := int(c.rowCount)
	if idx == 0 {
		c.values.Append(le32(0))
	}

	if v.Null {
		mark.isNull = true
		c.nullmap.ClrBit(idx)
		c.values.Append(le32(uint32(c.extra.Used())))
		return mark, nil
	}

	c.nullmap.SetBit(idx)
	c.extra.Append(v.Bytes)
	c.values.Append(le32(uint32(c.extra.Used())))
	return mark, nil
}

func (c *Column) appendFixed(mark Mark, v Value) (Mark, error) {
	idx := int(c.rowCount)

	if v.Null {
		mark.isNull = true
		c.nullmap.ClrBit(idx)
		c.values.AppendZero(c.width)
		return mark, nil
	}
	c.nullmap.SetBit(idx)

	if dt, ok := c.DataType.(*arrow.Decimal128Type); ok {
		num, err := parseAndScaleNumeric(v.Bytes, int(dt.Scale))
		if err != nil {
			return mark, werror.WrapWithContext(err, map[string]interface{}{"column": c.Name})
		}
		out := make([]byte, 16)
		binary.LittleEndian.PutUint64(out[0:8], num.LowBits())
		binary.LittleEndian.PutUint64(out[8:16], uint64(num.HighBits()))
		c.values.Append(out)
		return mark, nil
	}

	if len(v.Bytes) != c.width {
		return mark, werror.WrapWithContext(ErrWidthMismatch, map[string]interface{}{
			"column": c.Name, "want": c.width, "got": len(v.Bytes),
		})
	}

	out := make([]byte, c.width)
	if err := convertScalar(c.DataType, v.Bytes, out); err != nil {
		return mark, werror.WrapWithContext(err, map[string]interface{}{"column": c.Name})
	}
	c.values.Append(out)

	if c.trackStats {
		mark.statValid = true
		mark.statIsFloat, mark.statF, mark.statI = extractStat(c.DataType, out)
	}
	return mark, nil
}

func convertScalar(dt arrow.DataType, src, dst []byte) error {
	switch t := dt.(type) {
	case *arrow.BooleanType:
		dst[0] = src[0]
	case *arrow.Int8Type:
		dst[0] = src[0]
	case *arrow.Uint8Type:
		dst[0] = src[0]
	case *arrow.Int16Type:
		binary.LittleEndian.PutUint16(dst, binary.BigEndian.Uint16(src))
	case *arrow.Uint16Type:
		binary.LittleEndian.PutUint16(dst, binary.BigEndian.Uint16(src))
	case *arrow.Date32Type:
		raw := int32(binary.BigEndian.Uint32(src))
		binary.LittleEndian.PutUint32(dst, uint32(raw+epochDeltaDays))
	case *arrow.Int32Type:
		binary.LittleEndian.PutUint32(dst, binary.BigEndian.Uint32(src))
	case *arrow.Uint32Type:
		binary.LittleEndian.PutUint32(dst, binary.BigEndian.Uint32(src))
	case *arrow.Float32Type:
		binary.LittleEndian.PutUint32(dst, binary.BigEndian.Uint32(src))
	case *arrow.TimestampType:
		raw := int64(binary.BigEndian.Uint64(src))
		binary.LittleEndian.PutUint64(dst, uint64(raw+epochDeltaMicros))
	case *arrow.Int64Type:
		binary.LittleEndian.PutUint64(dst, binary.BigEndian.Uint64(src))
	case *arrow.Uint64Type:
		binary.LittleEndian.PutUint64(dst, binary.BigEndian.Uint64(src))
	case *arrow.Float64Type:
		binary.LittleEndian.PutUint64(dst, binary.BigEndian.Uint64(src))
	case *arrow.Time64Type:
		binary.LittleEndian.PutUint64(dst, binary.BigEndian.Uint64(src))
	default:
		return fmt.Errorf("column: unsupported fixed-width type %s", t)
	}
	return nil
}

func extractStat(dt arrow.DataType, out []byte) (isFloat bool, f float64, i int64) {
	switch dt.(type) {
	case *arrow.Int8Type:
		return false, 0, int64(int8(out[0]))
	case *arrow.Int16Type:
		return false, 0, int64(int16(binary.LittleEndian.Uint16(out)))
	case *arrow.Int32Type:
		return false, 0, int64(int32(binary.LittleEndian.Uint32(out)))
	case *arrow.Int64Type:
		return false, 0, int64(binary.LittleEndian.Uint64(out))
	case *arrow.Float32Type:
		return true, float64(math.Float32frombits(binary.LittleEndian.Uint32(out))), 0
	case *arrow.Float64Type:
		return true, math.Float64frombits(binary.LittleEndian.Uint64(out)), 0
	}
	return false, 0, 0
}

func parseAndScaleNumeric(raw []byte, scale int) (decimal128.Num, error) {
	n, err := parseNumeric(raw)
	if err != nil {
		return decimal128.Num{}, err
	}
	return n.toScaledInt128(scale)
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func minOrd[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func maxOrd[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
