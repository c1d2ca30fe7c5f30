/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package rowsource is the out-of-scope boundary spec.md §1/§6 describes:
// the collaborator that delivers rows in binary wire format along with
// per-column type descriptors. Only the interface is specified here; the
// libpq transport and catalog queries a production implementation would
// use stay out of scope. internal/rowsource/fake provides the in-repo
// double that exercises the rest of the module.
package rowsource

import "github.com/pg2arrow/pg2arrow/internal/pgcatalog"

// Row is one source row's per-column binary payloads, network byte order,
// in schema-column order. A nil entry means the column is null for this
// row (spec §6: "absence = null").
type Row [][]byte

// RowSource delivers the schema for a query's result columns, then the
// rows themselves, one at a time, without buffering the full result set
// (spec §1: "streaming ... without buffering the entire result set in
// memory").
type RowSource interface {
	// Columns returns the per-column schema entries spec §6 describes,
	// in result-column order. Called once before the first Next.
	Columns() ([]pgcatalog.ColumnSchema, error)

	// Next returns the next row's binary payloads, or ok=false once the
	// result set is exhausted.
	Next() (row Row, ok bool, err error)

	// Close releases any resources (connection, cursor) the source
	// holds. Always called, even after an error.
	Close() error
}
