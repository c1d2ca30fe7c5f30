/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package dump

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"

	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/ipc"
)

func TestSchemaRendersFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.arrow")
	fields := []*arrowtype.Field{
		{Name: "id", DataType: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "name", DataType: arrow.BinaryTypes.String, Nullable: true},
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := ipc.NewWriter(f, fields)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := ipc.Open(path)
	require.NoError(t, err)
	defer r.Close()

	schema, err := r.ReadSchema()
	require.NoError(t, err)

	var buf bytes.Buffer
	Schema(&buf, schema)
	out := buf.String()
	require.Contains(t, out, "id")
	require.Contains(t, out, "name")
}

func TestFooterRendersZeroBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump_footer.arrow")
	fields := []*arrowtype.Field{{Name: "id", DataType: arrow.PrimitiveTypes.Int32, Nullable: true}}

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := ipc.NewWriter(f, fields)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	r, err := ipc.Open(path)
	require.NoError(t, err)
	defer r.Close()

	footer, err := r.ReadFooter()
	require.NoError(t, err)

	var buf bytes.Buffer
	Footer(&buf, footer)
	require.Contains(t, buf.String(), "0 record batch(es)")
}
