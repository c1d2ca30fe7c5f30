/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package ipc is the ArrowFile writer and reader: file-level framing over
// internal/flatbuf's hand-rolled encoder/decoder and internal/batch's
// assembled RecordBatches (spec §4.3/§4.5/§4.7).
package ipc

import (
	"errors"
	"io"

	"github.com/pg2arrow/pg2arrow/internal/arrowbuf"
	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/batch"
	"github.com/pg2arrow/pg2arrow/internal/flatbuf"
	"github.com/pg2arrow/pg2arrow/internal/werror"
)

// fileSignature is the 8-byte magic every ArrowFile starts with (spec §3).
var fileSignature = []byte("ARROW1\x00\x00")

// Writer streams a schema and any number of RecordBatches to w, then a
// Footer on Close. It is purely sequential — no seeking, no backpatching —
// so w only needs to be an io.Writer (spec §5: single-threaded,
// cooperative). Each flush issues several synchronous Write calls: the
// framed message, then every buffer body and its padding.
type Writer struct {
	w      io.Writer
	offset int64
	fields []*arrowtype.Field
	blocks []flatbuf.Block
}

// NewWriter writes the file signature and the Schema message, then
// returns a Writer ready to accept RecordBatches.
func NewWriter(w io.Writer, fields []*arrowtype.Field) (*Writer, error) {
	wr := &Writer{w: w, fields: fields}
	if err := wr.writeBytes(fileSignature); err != nil {
		return nil, err
	}

	schema := flatbuf.BuildSchemaTable(fields)
	msg := flatbuf.BuildMessageTable(flatbuf.HeaderSchema, schema, 0)
	if err := wr.writeBytes(flatbuf.FrameMessage(msg)); err != nil {
		return nil, err
	}
	return wr, nil
}

func (w *Writer) writeBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.w.Write(p)
	if err != nil {
		return werror.Wrap(err)
	}
	if n != len(p) {
		return werror.Wrap(io.ErrShortWrite)
	}
	w.offset += int64(n)
	return nil
}

// WriteRecordBatch implements batch.Emitter: it frames rb's Message,
// streams each buffer body padded to 64 bytes, and records the block's
// location for the eventual Footer (spec §4.3's "Emit a batch").
func (w *Writer) WriteRecordBatch(rb *batch.RecordBatch) error {
	rbt := flatbuf.BuildRecordBatchTable(rb)
	msg := flatbuf.BuildMessageTable(flatbuf.HeaderRecordBatch, rbt, rb.BodyLength)
	framed := flatbuf.FrameMessage(msg)

	blockOffset := w.offset
	if err := w.writeBytes(framed); err != nil {
		return err
	}

	for _, body := range rb.Bodies {
		if err := w.writeBytes(body); err != nil {
			return err
		}
		if pad := arrowbuf.Align64(len(body)) - len(body); pad > 0 {
			if err := w.writeBytes(make([]byte, pad)); err != nil {
				return err
			}
		}
	}

	w.blocks = append(w.blocks, flatbuf.Block{
		Offset:         blockOffset,
		MetaDataLength: int32(len(framed)),
		BodyLength:     rb.BodyLength,
	})
	return nil
}

// Close writes the Footer, its trailing metadata length, and the closing
// signature (spec §4.3's "Close").
func (w *Writer) Close() error {
	schema := flatbuf.BuildSchemaTable(w.fields)
	footer := flatbuf.BuildFooterTable(schema, w.blocks)
	return w.writeBytes(flatbuf.FrameFooter(footer))
}

// ErrShortSignature is returned by a reader when a file is too small to
// hold the leading 8-byte signature plus the trailing footer length and
// ARROW1 (18 bytes in all).
var ErrShortSignature = errors.New("ipc: file too short to hold the ARROW1 signature")
