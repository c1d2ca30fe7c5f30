/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package pgcatalog is the parallel, source-system view of types: the
// shape a catalog-lookup collaborator (out of scope per spec §1, itself)
// hands back for every column, plus the exhaustive source-type ->
// Arrow-type mapping from spec §6.
package pgcatalog

// Kind classifies how a source type is built up.
type Kind int

const (
	KindBase Kind = iota
	KindComposite
	KindEnum
	KindDomain
)

// ColumnSchema is what the catalog-lookup collaborator returns for one
// source column: namespace/type name, byte length (>0 fixed, -1
// varlena), by-value hint, alignment, kind, and — for composite/array
// columns — the nested type description.
type ColumnSchema struct {
	Name       string
	Namespace  string
	TypeName   string
	ByteLength int // >0 fixed width, -1 varlena
	ByValue    bool
	Align      int // one of 1, 2, 4, 8
	Kind       Kind

	// Composite holds the ordered child columns when Kind == KindComposite.
	Composite []ColumnSchema
	// Element holds the element type when this column is an array.
	Element *ColumnSchema
	// Modifier carries the type's modifier bits (e.g. numeric(p,s) packs
	// precision/scale here); -1 means "no modifier present".
	Modifier int64
}

// Catalog resolves a source (namespace, type name) pair to additional
// metadata a RowSource's column schema alone can't carry (currently
// unused by the mapping itself, which works off ColumnSchema, but kept as
// the documented extension point a real libpq-backed catalog collaborator
// would implement).
type Catalog interface {
	// Lookup returns the ColumnSchema for namespace.typeName, or an error
	// if the type is unknown to the catalog.
	Lookup(namespace, typeName string) (ColumnSchema, error)
}
