/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package fake

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSourceServesColumnsThenRows(t *testing.T) {
	cols := DemoSchema()
	rows := DemoRows(5)
	src := New(cols, rows)

	got, err := src.Columns()
	require.NoError(t, err)
	require.Equal(t, cols, got)

	count := 0
	for {
		row, ok, err := src.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Len(t, row, 3)
		count++
	}
	require.Equal(t, 5, count)
	require.NoError(t, src.Close())
}

func TestDemoRowsEveryEighthNameIsNull(t *testing.T) {
	rows := DemoRows(16)
	require.Nil(t, rows[0][1])
	require.Nil(t, rows[8][1])
	require.NotNil(t, rows[1][1])
}

func TestNumericWireRoundTripsWeightAndDigits(t *testing.T) {
	buf := numericWire(12.34)
	ndigits := binary.BigEndian.Uint16(buf[0:2])
	weight := int16(binary.BigEndian.Uint16(buf[2:4]))
	sign := binary.BigEndian.Uint16(buf[4:6])

	require.Equal(t, uint16(2), ndigits)
	require.Equal(t, int16(0), weight)
	require.Equal(t, uint16(0), sign)
	require.Equal(t, uint16(12), binary.BigEndian.Uint16(buf[8:10]))
	require.Equal(t, uint16(3400), binary.BigEndian.Uint16(buf[10:12]))
}

func TestNumericWireNegativeSetsSignBit(t *testing.T) {
	buf := numericWire(-5)
	sign := binary.BigEndian.Uint16(buf[4:6])
	require.Equal(t, uint16(0x4000), sign)
}
