/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package arrowbuf

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func newChecked(t *testing.T) (*Buffer, *memory.CheckedAllocator) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	b := New(alloc)
	t.Cleanup(func() {
		b.Release()
		alloc.AssertSize(t, 0)
	})
	return b, alloc
}

func TestAppendGrowsAndPreservesContent(t *testing.T) {
	b, _ := newChecked(t)

	b.Append([]byte{1, 2, 3})
	require.Equal(t, 3, b.Used())
	require.Equal(t, []byte{1, 2, 3}, b.Bytes())

	big := make([]byte, DefaultCapacity*3)
	for i := range big {
		big[i] = byte(i)
	}
	b.Append(big)
	require.Equal(t, 3+len(big), b.Used())
	require.True(t, b.Capacity() >= b.Used())
	require.Equal(t, byte(1), b.Bytes()[0])
	require.Equal(t, big[0], b.Bytes()[3])
}

func TestAppendZeroIsZero(t *testing.T) {
	b, _ := newChecked(t)
	b.Append([]byte{0xFF})
	b.AppendZero(4)
	require.Equal(t, []byte{0xFF, 0, 0, 0, 0}, b.Bytes())
}

func TestClearThenAppendZeroZeroesStaleBytes(t *testing.T) {
	b, _ := newChecked(t)
	b.Append([]byte{1, 2, 3, 4})
	b.Clear()
	require.Equal(t, 0, b.Used())
	b.AppendZero(4)
	require.Equal(t, []byte{0, 0, 0, 0}, b.Bytes())
}

func TestSetBitClrBitGrowsToCoverIndex(t *testing.T) {
	b, _ := newChecked(t)

	b.SetBit(0)
	b.SetBit(9) // byte index 1
	require.Equal(t, 2, b.Used())
	require.True(t, b.Bit(0))
	require.True(t, b.Bit(9))
	require.False(t, b.Bit(1))

	b.ClrBit(9)
	require.False(t, b.Bit(9))
}

func TestTruncate(t *testing.T) {
	b, _ := newChecked(t)
	b.Append([]byte{1, 2, 3, 4})
	b.Truncate(2)
	require.Equal(t, []byte{1, 2}, b.Bytes())
}

func TestAlign64(t *testing.T) {
	require.Equal(t, int(0), Align64(0))
	require.Equal(t, 64, Align64(1))
	require.Equal(t, 64, Align64(64))
	require.Equal(t, 128, Align64(65))
}
