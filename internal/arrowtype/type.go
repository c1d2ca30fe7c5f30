/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package arrowtype is the logical Arrow type model: a Field tree whose
// DataType is represented with github.com/apache/arrow-go/v18/arrow's own
// struct family (the same types every Arrow-aware repo in the reference
// pack builds against) plus the extra bookkeeping (buffer layout kind,
// children, element type) the column accumulator and FlatBuffer encoder
// need to walk the schema.
//
// Using arrow.DataType here is a deliberate choice: it supplies type
// *descriptions* only. Nothing in this package or its callers encodes a
// FlatBuffer message — that stays hand-rolled in internal/flatbuf per the
// spec's explicit design note against pulling in a general-purpose
// FlatBuffer library.
package arrowtype

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Layout describes how a field's values are physically stored.
type Layout int

const (
	// LayoutFixed is a nullmap + a single fixed-width values buffer (2
	// buffers on the wire).
	LayoutFixed Layout = iota
	// LayoutVarlena is a nullmap + int32 offsets + a byte heap (3
	// buffers on the wire).
	LayoutVarlena
	// LayoutStruct is a nullmap only (1 buffer); children recurse and
	// contribute their own buffers.
	LayoutStruct
	// LayoutList is recognized but append is unimplemented (spec §4.4).
	LayoutList
)

// Field is one column (or child column) of the schema: a name, a logical
// Arrow type, nullability, and — for Struct/List — its children.
type Field struct {
	Name     string
	DataType arrow.DataType
	Nullable bool
	Children []*Field // populated for Struct
	Element  *Field   // populated for List
}

// LayoutOf returns how dt is physically stored on the wire.
func LayoutOf(dt arrow.DataType) Layout {
	switch dt.ID() {
	case arrow.STRUCT:
		return LayoutStruct
	case arrow.LIST, arrow.FIXED_SIZE_LIST:
		return LayoutList
	case arrow.BINARY, arrow.STRING:
		return LayoutVarlena
	default:
		return LayoutFixed
	}
}

// BufferCount is the number of Buffer entries this field itself
// contributes to a RecordBatch's Buffer vector (children contribute their
// own, counted separately during the DFS walk).
func BufferCount(f *Field) int {
	switch LayoutOf(f.DataType) {
	case LayoutStruct:
		return 1
	case LayoutVarlena:
		return 3
	default:
		return 2
	}
}

// ByteWidth returns the fixed per-row byte width this spec uses for a
// fixed-width logical type. This intentionally does not delegate to
// arrow.FixedWidthDataType.BitWidth(): the spec stores Bool as one byte
// per row (§4.2), not Arrow's canonical bit-packed validity-style layout,
// so the mapping is kept explicit here rather than inherited.
func ByteWidth(dt arrow.DataType) (int, error) {
	switch t := dt.(type) {
	case *arrow.BooleanType:
		return 1, nil
	case *arrow.Int8Type, *arrow.Uint8Type:
		return 1, nil
	case *arrow.Int16Type, *arrow.Uint16Type:
		return 2, nil
	case *arrow.Int32Type, *arrow.Uint32Type, *arrow.Date32Type:
		return 4, nil
	case *arrow.Int64Type, *arrow.Uint64Type:
		return 8, nil
	case *arrow.Float32Type:
		return 4, nil
	case *arrow.Float64Type:
		return 8, nil
	case *arrow.Time32Type:
		return 4, nil
	case *arrow.Time64Type:
		return 8, nil
	case *arrow.TimestampType:
		return 8, nil
	case *arrow.Decimal128Type:
		return 16, nil
	default:
		return 0, fmt.Errorf("arrowtype: %T has no fixed byte width", t)
	}
}

// NewStruct builds a Struct field from its children, in DFS/declaration
// order.
func NewStruct(name string, nullable bool, children ...*Field) *Field {
	fields := make([]arrow.Field, len(children))
	for i, c := range children {
		fields[i] = arrow.Field{Name: c.Name, Type: c.DataType, Nullable: c.Nullable}
	}
	return &Field{
		Name:     name,
		DataType: arrow.StructOf(fields...),
		Nullable: nullable,
		Children: children,
	}
}

// NewList builds a List field over element. Append is unimplemented for
// List columns (spec §4.4); the type is still representable so schemas
// that reference array columns can be derived and dumped.
func NewList(name string, nullable bool, element *Field) *Field {
	return &Field{
		Name:     name,
		DataType: arrow.ListOf(element.DataType),
		Nullable: nullable,
		Element:  element,
	}
}
