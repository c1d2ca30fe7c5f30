/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package fake is an in-memory rowsource.RowSource that fabricates
// synthetic columns and rows with github.com/brianvoe/gofakeit/v6,
// matching the teacher's pkg/otel/fake/data_generator.go's use of
// gofakeit to stand in for a live data source in tests and the CLI's
// -fixture demo mode.
package fake

import (
	"encoding/binary"
	"math"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/pg2arrow/pg2arrow/internal/pgcatalog"
	"github.com/pg2arrow/pg2arrow/internal/rowsource"
)

// Source is a fixed, in-memory result set: a schema plus a slice of
// pre-built rows. It never touches a network or a real catalog, serving
// spec §1's "SQL client transport ... out of scope" boundary.
type Source struct {
	columns []pgcatalog.ColumnSchema
	rows    []Row
	pos     int
}

// Row is an alias of rowsource.Row, so Source's Next has the exact
// signature rowsource.RowSource requires.
type Row = rowsource.Row

// New wraps a pre-built schema and row slice.
func New(columns []pgcatalog.ColumnSchema, rows []Row) *Source {
	return &Source{columns: columns, rows: rows}
}

// Columns returns the schema supplied to New.
func (s *Source) Columns() ([]pgcatalog.ColumnSchema, error) {
	return s.columns, nil
}

// Next returns the next row, or ok=false once exhausted.
func (s *Source) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

// Close is a no-op; Source owns no external resource.
func (s *Source) Close() error { return nil }

// DemoSchema is the fixed three-column schema `-fixture` generates:
// an int4 id, a text name, and a numeric amount — one scalar of each
// buffer layout the column accumulator handles (fixed, varlena, and via
// Decimal128 a variable-width-parsed fixed type).
func DemoSchema() []pgcatalog.ColumnSchema {
	return []pgcatalog.ColumnSchema{
		{Name: "id", Namespace: "pg_catalog", TypeName: "int4", ByteLength: 4, ByValue: true, Align: 4, Kind: pgcatalog.KindBase},
		{Name: "name", Namespace: "pg_catalog", TypeName: "text", ByteLength: -1, Align: 4, Kind: pgcatalog.KindBase},
		{Name: "amount", Namespace: "pg_catalog", TypeName: "numeric", ByteLength: -1, Align: 4, Kind: pgcatalog.KindBase, Modifier: -1},
	}
}

// DemoRows fabricates n rows of DemoSchema's shape with gofakeit, each
// column encoded as the big-endian wire payload spec §6 expects a
// RowSource to deliver. Roughly one row in eight carries a null "name"
// to exercise the null bitmap path.
func DemoRows(n int) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		id := make([]byte, 4)
		binary.BigEndian.PutUint32(id, uint32(gofakeit.Number(1, math.MaxInt32)))

		var name []byte
		if i%8 != 0 {
			name = []byte(gofakeit.Name())
		}

		rows = append(rows, Row{id, name, numericWire(gofakeit.Price(1, 9999))})
	}
	return rows
}

// numericWire builds the pg_catalog.numeric binary wire payload for v
// rounded to 2 decimal digits: ndigits/weight/sign/dscale header followed
// by base-10000 digit groups (most significant first, each group worth
// 10000^(weight-i) of the integer part), matching the format
// internal/column.parseNumeric decodes.
func numericWire(v float64) []byte {
	cents := int64(math.Round(v * 100))
	sign := uint16(0x0000)
	if cents < 0 {
		sign = 0x4000
		cents = -cents
	}

	whole := cents / 100
	fracGroup := uint16((cents % 100) * 100) // 2-digit fraction -> one 4-digit group

	var wholeDigits []uint16
	for whole > 0 {
		wholeDigits = append([]uint16{uint16(whole % 10000)}, wholeDigits...)
		whole /= 10000
	}
	if len(wholeDigits) == 0 {
		wholeDigits = []uint16{0}
	}
	weight := int16(len(wholeDigits) - 1)
	digits := append(wholeDigits, fracGroup)

	buf := make([]byte, 8+2*len(digits))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(digits)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(weight))
	binary.BigEndian.PutUint16(buf[4:6], sign)
	binary.BigEndian.PutUint16(buf[6:8], 2) // dscale
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+2*i:10+2*i], d)
	}
	return buf
}
