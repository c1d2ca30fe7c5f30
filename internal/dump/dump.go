/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package dump renders a decoded Schema and Footer as human-readable
// ASCII tables via github.com/olekukonko/tablewriter, reachable from
// `cmd/pg2arrow -dump <file>` for introspecting an already-written file
// (component 8; supplements the original tool's -i/inspect mode).
package dump

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/pg2arrow/pg2arrow/internal/flatbuf"
	"github.com/pg2arrow/pg2arrow/internal/ipc"
)

var typeTagNames = map[byte]string{
	flatbuf.TypeTagNone:          "none",
	flatbuf.TypeTagInt:           "Int",
	flatbuf.TypeTagFloatingPoint: "FloatingPoint",
	flatbuf.TypeTagBinary:        "Binary",
	flatbuf.TypeTagUtf8:          "Utf8",
	flatbuf.TypeTagBool:          "Bool",
	flatbuf.TypeTagDecimal:       "Decimal",
	flatbuf.TypeTagDate:          "Date",
	flatbuf.TypeTagTime:          "Time",
	flatbuf.TypeTagTimestamp:     "Timestamp",
	flatbuf.TypeTagList:          "List",
	flatbuf.TypeTagStruct:        "Struct",
}

// Schema renders a decoded Schema table's fields: name, type tag, and
// nullability, recursing into Struct children with an indented name.
func Schema(w io.Writer, schema flatbuf.Table) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Type", "Nullable"})
	for _, f := range schema.GetVectorTables(flatbuf.SchemaFields) {
		appendFieldRows(table, f, "")
	}
	table.Render()
}

func appendFieldRows(table *tablewriter.Table, f flatbuf.Table, indent string) {
	name, _ := f.GetString(flatbuf.FieldName)
	tag := f.GetByte(flatbuf.FieldTypeTag, flatbuf.TypeTagNone)
	nullable := f.GetBool(flatbuf.FieldNullable, false)
	table.Append([]string{indent + name, typeTagNames[tag], fmt.Sprintf("%v", nullable)})

	if children := f.GetVectorTables(flatbuf.FieldChildren); len(children) > 0 {
		for _, c := range children {
			appendFieldRows(table, c, indent+"  ")
		}
	}
}

// Footer renders a decoded Footer's record-batch blocks: index, file
// offset, metadata length, and body length, followed by one line giving
// the batch count and the total body size.
func Footer(w io.Writer, footer *ipc.Footer) {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Offset", "MetaDataLength", "BodyLength"})

	var total int64
	for i, b := range footer.RecordBatches {
		total += b.BodyLength
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%d", b.Offset),
			fmt.Sprintf("%d", b.MetaDataLength),
			humanize.Bytes(uint64(b.BodyLength)),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d record batch(es), %s of column bodies\n", len(footer.RecordBatches), humanize.Bytes(uint64(total)))
}
