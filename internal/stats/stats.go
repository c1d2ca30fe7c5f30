/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package stats tracks producer statistics for one run: rows and bytes
// written, batch counts, and a row-count/byte-size distribution per
// batch, surfaced at close and via -progress. It parallels the
// role go/pkg/otel/stats.ProducerStats plays for the teacher's exporter,
// scoped to a single run instead of a long-lived producer.
package stats

import (
	"fmt"
	"sync/atomic"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/dustin/go-humanize"
)

// Producer accumulates counters and histograms across a writer's
// lifetime. Safe for concurrent reads of the atomic counters while a
// single goroutine drives AppendRow/Flush (spec §5: single-threaded
// producer; the atomics just make -progress reads lock-free).
type Producer struct {
	rows    atomic.Int64
	bytes   atomic.Int64
	batches atomic.Int64

	rowsPerBatch  *hdrhistogram.Histogram
	bytesPerBatch *hdrhistogram.Histogram
}

// NewProducer returns a Producer ready to record batches. The histograms
// track 0..1<<32 with 2 significant figures, matching
// go/pkg/otel/stats.NewProducerStats's RecordSizeStats construction.
func NewProducer() *Producer {
	return &Producer{
		rowsPerBatch:  hdrhistogram.New(0, 1<<32, 2),
		bytesPerBatch: hdrhistogram.New(0, 1<<32, 2),
	}
}

// RecordBatch registers one flushed batch's row count and byte size. The
// CLI passes the batch's body length (its 64-byte-padded buffer bodies);
// the framed metadata message is not included.
func (p *Producer) RecordBatch(rowCount int64, byteSize int64) {
	p.rows.Add(rowCount)
	p.bytes.Add(byteSize)
	p.batches.Add(1)
	_ = p.rowsPerBatch.RecordValue(rowCount)
	_ = p.bytesPerBatch.RecordValue(byteSize)
}

// Rows, Bytes, and Batches return the running totals.
func (p *Producer) Rows() int64    { return p.rows.Load() }
func (p *Producer) Bytes() int64   { return p.bytes.Load() }
func (p *Producer) Batches() int64 { return p.batches.Load() }

// Progress renders a single human-readable line for -progress.
func (p *Producer) Progress() string {
	return fmt.Sprintf("%s rows, %s written, %d batches",
		humanize.Comma(p.rows.Load()), humanize.Bytes(uint64(p.bytes.Load())), p.batches.Load())
}

// Summary is the end-of-run report, matching the original tool's
// end-of-run report line.
type Summary struct {
	Rows          int64
	Bytes         int64
	Batches       int64
	MeanRowsBatch float64
	P99BytesBatch int64
}

// Summarize returns the final run summary.
func (p *Producer) Summarize() Summary {
	s := Summary{Rows: p.Rows(), Bytes: p.Bytes(), Batches: p.Batches()}
	if p.batches.Load() > 0 {
		s.MeanRowsBatch = p.rowsPerBatch.Mean()
		s.P99BytesBatch = p.bytesPerBatch.ValueAtQuantile(99)
	}
	return s
}

// String renders the summary the way the CLI logs it at close.
func (s Summary) String() string {
	return fmt.Sprintf("%s rows in %d batches (%s written, mean %.1f rows/batch, p99 %s/batch)",
		humanize.Comma(s.Rows), s.Batches, humanize.Bytes(uint64(s.Bytes)),
		s.MeanRowsBatch, humanize.Bytes(uint64(s.P99BytesBatch)))
}
