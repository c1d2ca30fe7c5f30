/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package arrowbuf implements the growable, bit-addressable byte buffer
// that every column buffer (null bitmap, fixed-width values, varlena
// offsets, varlena heap) is built on top of. It is append-only within a
// batch and is reset, not freed, across batches so the allocator only
// pays for growth once per column for the lifetime of the writer.
package arrowbuf

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DefaultCapacity is the initial allocation for a fresh Buffer.
const DefaultCapacity = 2 << 20 // 2 MiB

// Buffer is an append-only region that grows by doubling to the next
// power of two at or above whatever size is requested. len(data) is
// always the buffer's capacity; Used tracks how much of it is logically
// populated.
type Buffer struct {
	alloc memory.Allocator
	data  []byte
	used  int
}

// New allocates a Buffer backed by alloc, starting at DefaultCapacity.
func New(alloc memory.Allocator) *Buffer {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	return &Buffer{alloc: alloc, data: alloc.Allocate(DefaultCapacity)}
}

// Capacity returns the number of bytes currently backing the buffer.
func (b *Buffer) Capacity() int { return len(b.data) }

// Used returns the number of logically populated bytes.
func (b *Buffer) Used() int { return b.used }

// Bytes returns the populated prefix of the buffer. The slice is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte { return b.data[:b.used] }

// Append copies p onto the end of the buffer, growing as needed.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.grow(b.used + len(p))
	copy(b.data[b.used:], p)
	b.used += len(p)
}

// AppendZero appends n zero bytes, growing as needed.
func (b *Buffer) AppendZero(n int) {
	if n <= 0 {
		return
	}
	b.grow(b.used + n)
	clear(b.data[b.used : b.used+n])
	b.used += n
}

// SetBit sets bit i (0-indexed) of the buffer treated as a bitmap,
// growing the backing bytes to cover it first.
func (b *Buffer) SetBit(i int) {
	byteIdx := i / 8
	b.growBitmapTo(byteIdx + 1)
	b.data[byteIdx] |= 1 << uint(i%8)
}

// ClrBit clears bit i, growing the backing bytes to cover it first.
func (b *Buffer) ClrBit(i int) {
	byteIdx := i / 8
	b.growBitmapTo(byteIdx + 1)
	b.data[byteIdx] &^= 1 << uint(i%8)
}

// Bit reports whether bit i is set. i must be within the populated range.
func (b *Buffer) Bit(i int) bool {
	byteIdx := i / 8
	if byteIdx >= b.used {
		return false
	}
	return b.data[byteIdx]&(1<<uint(i%8)) != 0
}

func (b *Buffer) growBitmapTo(nBytes int) {
	if nBytes <= b.used {
		return
	}
	b.grow(nBytes)
	clear(b.data[b.used:nBytes])
	b.used = nBytes
}

// Clear resets Used to zero. Capacity is retained for reuse across
// batches.
func (b *Buffer) Clear() {
	b.used = 0
}

// Truncate rewinds Used to n, which must be <= the current Used. It does
// not zero the released tail; callers that rely on AppendZero's
// zero-on-grow guarantee must not read past the new Used before the next
// growth touches that region again.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.used {
		panic("arrowbuf: truncate out of range")
	}
	b.used = n
}

// Release returns the backing storage to the allocator. The Buffer must
// not be used afterward.
func (b *Buffer) Release() {
	if b.data != nil {
		b.alloc.Free(b.data)
	}
	b.data = nil
	b.used = 0
}

func (b *Buffer) grow(minCap int) {
	if minCap <= len(b.data) {
		return
	}
	newCap := nextPow2(minCap)
	b.data = b.alloc.Reallocate(newCap, b.data)
}

func nextPow2(n int) int {
	if n <= DefaultCapacity {
		return DefaultCapacity
	}
	p := DefaultCapacity
	for p < n {
		p <<= 1
	}
	return p
}

// Align64 rounds n up to the next multiple of 64, the alignment every
// record-batch buffer body must satisfy on disk.
func Align64(n int) int {
	return Align(n, 64)
}

// Align rounds n up to the next multiple of to. to must be a power of two.
func Align(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}
