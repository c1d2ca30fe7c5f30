/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package pgcatalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/werror"
)

// DefaultNumericPrecision and DefaultNumericScale apply when a
// pg_catalog.numeric column carries no type modifier (spec §6).
const (
	DefaultNumericPrecision = 30
	DefaultNumericScale     = 11
)

// ErrUnmappedType is wrapped with {namespace,typename} context whenever a
// source type has no Arrow mapping (spec §4.4/§7: fatal at schema
// derivation time).
var ErrUnmappedType = fmt.Errorf("pgcatalog: no Arrow mapping for source type")

// MapType derives the Arrow field for one source column, per the
// exhaustive table in spec §6. Composite columns recurse into their
// children; array columns are recognized (LayoutList) but are not
// implemented at append time (spec §4.4).
func MapType(col ColumnSchema) (*arrowtype.Field, error) {
	if col.Kind == KindComposite {
		children := make([]*arrowtype.Field, 0, len(col.Composite))
		for _, child := range col.Composite {
			cf, err := MapType(child)
			if err != nil {
				return nil, err
			}
			children = append(children, cf)
		}
		return arrowtype.NewStruct(col.Name, true, children...), nil
	}

	if col.Element != nil {
		elem, err := MapType(*col.Element)
		if err != nil {
			return nil, err
		}
		return arrowtype.NewList(col.Name, true, elem), nil
	}

	dt, err := mapScalar(col)
	if err != nil {
		return nil, err
	}
	return &arrowtype.Field{Name: col.Name, DataType: dt, Nullable: true}, nil
}

func mapScalar(col ColumnSchema) (arrow.DataType, error) {
	if col.Namespace == "pg_catalog" {
		switch col.TypeName {
		case "bool":
			return arrow.FixedWidthTypes.Boolean, nil
		case "int2":
			return arrow.PrimitiveTypes.Int16, nil
		case "int4":
			return arrow.PrimitiveTypes.Int32, nil
		case "int8":
			return arrow.PrimitiveTypes.Int64, nil
		case "float4":
			return arrow.PrimitiveTypes.Float32, nil
		case "float8":
			return arrow.PrimitiveTypes.Float64, nil
		case "date":
			return arrow.FixedWidthTypes.Date32, nil
		case "time":
			return arrow.FixedWidthTypes.Time64us, nil
		case "timestamp", "timestamptz":
			return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
		case "text", "varchar", "bpchar":
			return arrow.BinaryTypes.String, nil
		case "numeric":
			p, s := NumericPrecisionScale(col.Modifier)
			return &arrow.Decimal128Type{Precision: int32(p), Scale: int32(s)}, nil
		}
	}

	// Generic fallback for types the catalog didn't name explicitly:
	// fixed-width types of the standard widths map to an unsigned
	// integer of that width, everything else is opaque Binary.
	switch col.ByteLength {
	case 1:
		return arrow.PrimitiveTypes.Uint8, nil
	case 2:
		return arrow.PrimitiveTypes.Uint16, nil
	case 4:
		return arrow.PrimitiveTypes.Uint32, nil
	case 8:
		return arrow.PrimitiveTypes.Uint64, nil
	case -1:
		return arrow.BinaryTypes.Binary, nil
	}

	return nil, werror.WrapWithContext(ErrUnmappedType, map[string]interface{}{
		"namespace": col.Namespace,
		"typename":  col.TypeName,
	})
}

// NumericPrecisionScale decodes a pg_catalog.numeric type modifier into
// (precision, scale). modifier == -1 means "absent", yielding the spec's
// documented default of (30, 11).
func NumericPrecisionScale(modifier int64) (precision, scale int) {
	if modifier < 0 {
		return DefaultNumericPrecision, DefaultNumericScale
	}
	raw := modifier - 4
	precision = int((raw >> 16) & 0xFFFF)
	scale = int(raw & 0xFFFF)
	return precision, scale
}
