/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordBatchAccumulatesTotals(t *testing.T) {
	p := NewProducer()
	p.RecordBatch(100, 4096)
	p.RecordBatch(50, 2048)

	require.EqualValues(t, 150, p.Rows())
	require.EqualValues(t, 6144, p.Bytes())
	require.EqualValues(t, 2, p.Batches())
}

func TestSummarizeWithNoBatchesIsZeroValued(t *testing.T) {
	p := NewProducer()
	s := p.Summarize()
	require.Zero(t, s.Rows)
	require.Zero(t, s.Batches)
	require.Zero(t, s.MeanRowsBatch)
}

func TestSummarizeComputesMeanAndQuantile(t *testing.T) {
	p := NewProducer()
	for i := 0; i < 10; i++ {
		p.RecordBatch(1000, 8192)
	}
	s := p.Summarize()
	require.InDelta(t, 1000, s.MeanRowsBatch, 5)
	require.Greater(t, s.P99BytesBatch, int64(0))
}

func TestProgressAndStringDoNotPanicOnEmptyProducer(t *testing.T) {
	p := NewProducer()
	require.NotEmpty(t, p.Progress())
	require.NotEmpty(t, p.Summarize().String())
}
