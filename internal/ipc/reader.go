/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/pg2arrow/pg2arrow/internal/arrowbuf"
	"github.com/pg2arrow/pg2arrow/internal/flatbuf"
	"github.com/pg2arrow/pg2arrow/internal/werror"
)

// ErrBadSignature fires when the leading or trailing ARROW1 magic is
// missing or corrupt.
var ErrBadSignature = errors.New("ipc: missing or corrupt ARROW1 signature")

// ErrUnexpectedHeader fires when a Message's header type tag doesn't
// match what the caller asked to decode.
var ErrUnexpectedHeader = errors.New("ipc: unexpected message header type")

// ErrTruncated fires when the file is too short to hold the structure a
// decode step expects — the detectable symptom of a mid-run crash (spec
// §5's cancellation note).
var ErrTruncated = errors.New("ipc: file is truncated")

// Reader opens an ArrowFile memory-mapped and decodes Schema and Footer
// metadata (spec §4.7). Record-batch and dictionary-batch buffer bodies
// are never read, only their FieldNode/Buffer metadata.
type Reader struct {
	file *os.File
	data mmap.MMap
}

// Open memory-maps path read-only and verifies the signature at both
// ends of the file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, werror.Wrap(err)
	}
	if fi.Size() < int64(len(fileSignature)+10) {
		f.Close()
		return nil, werror.Wrap(ErrShortSignature)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, werror.Wrap(err)
	}

	r := &Reader{file: f, data: data}
	if err := r.verifySignatures(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) verifySignatures() error {
	if !bytes.Equal(r.data[0:len(fileSignature)], fileSignature) {
		return werror.WrapWithContext(ErrBadSignature, map[string]interface{}{"where": "head"})
	}
	tail := r.data[len(r.data)-6:]
	if !bytes.Equal(tail, []byte("ARROW1")) {
		return werror.WrapWithContext(ErrBadSignature, map[string]interface{}{"where": "tail"})
	}
	return nil
}

// Close unmaps the file and closes its descriptor.
func (r *Reader) Close() error {
	var err error
	if r.data != nil {
		err = r.data.Unmap()
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return werror.Wrap(err)
	}
	return nil
}

// decodeMessageAt decodes the Message table framed at file position pos,
// returning it plus the file position immediately after this message's
// framing (where its body bytes, if any, begin).
func (r *Reader) decodeMessageAt(pos int64) (flatbuf.Table, int64, error) {
	if pos+8 > int64(len(r.data)) {
		return flatbuf.Table{}, 0, werror.Wrap(ErrTruncated)
	}
	metaLength := int32(binary.LittleEndian.Uint32(r.data[pos : pos+4]))
	rootOffset := int32(binary.LittleEndian.Uint32(r.data[pos+4 : pos+8]))
	tableAbs := int(pos) + 4 + int(rootOffset)
	next := pos + int64(arrowbuf.Align(4+int(metaLength), 8))
	return flatbuf.NewTable(r.data, tableAbs), next, nil
}

// ReadSchema decodes the Schema message written immediately after the
// leading signature.
func (r *Reader) ReadSchema() (flatbuf.Table, error) {
	msg, _, err := r.decodeMessageAt(int64(len(fileSignature)))
	if err != nil {
		return flatbuf.Table{}, err
	}
	if msg.GetByte(flatbuf.MessageHeaderType, flatbuf.HeaderNone) != flatbuf.HeaderSchema {
		return flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}
	schema, ok := msg.GetOffsetTable(flatbuf.MessageHeaderOffset)
	if !ok {
		return flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}
	return schema, nil
}

// Block is one record-batch's on-disk location, decoded from the Footer.
type Block struct {
	Offset         int64
	MetaDataLength int32
	BodyLength     int64
}

// Footer is the decoded tail metadata: the embedded Schema and the
// ordered list of record-batch blocks.
type Footer struct {
	Schema        flatbuf.Table
	RecordBatches []Block
}

// ReadFooter parses the trailing int32 footerMetaLength + "ARROW1" and
// decodes the Footer flatbuffer it points at (spec §8's round-trip-footer
// scenario).
func (r *Reader) ReadFooter() (*Footer, error) {
	n := len(r.data)
	lengthPos := n - 10
	length := int32(binary.LittleEndian.Uint32(r.data[lengthPos : lengthPos+4]))
	footerStart := lengthPos - int(length)
	if footerStart < 0 {
		return nil, werror.Wrap(ErrTruncated)
	}

	vlen := binary.LittleEndian.Uint16(r.data[footerStart : footerStart+2])
	root := flatbuf.NewTable(r.data, footerStart+int(vlen))

	schema, ok := root.GetOffsetTable(flatbuf.FooterSchema)
	if !ok {
		return nil, werror.Wrap(ErrUnexpectedHeader)
	}

	blocks := []Block{}
	if buf, recPos, nitems, ok := root.GetPackedVector(flatbuf.FooterRecordBatches); ok {
		for i := 0; i < nitems; i++ {
			off := recPos + i*24
			blocks = append(blocks, Block{
				Offset:         int64(binary.LittleEndian.Uint64(buf[off : off+8])),
				MetaDataLength: int32(binary.LittleEndian.Uint32(buf[off+8 : off+12])),
				BodyLength:     int64(binary.LittleEndian.Uint64(buf[off+16 : off+24])),
			})
		}
	}

	return &Footer{Schema: schema, RecordBatches: blocks}, nil
}

// ReadRecordBatchAt decodes the RecordBatch Message at b.Offset, metadata
// only — FieldNode/Buffer vectors, never the buffer bodies themselves.
func (r *Reader) ReadRecordBatchAt(b Block) (flatbuf.Table, error) {
	msg, _, err := r.decodeMessageAt(b.Offset)
	if err != nil {
		return flatbuf.Table{}, err
	}
	if msg.GetByte(flatbuf.MessageHeaderType, flatbuf.HeaderNone) != flatbuf.HeaderRecordBatch {
		return flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}
	rbTable, ok := msg.GetOffsetTable(flatbuf.MessageHeaderOffset)
	if !ok {
		return flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}
	return rbTable, nil
}

// ErrTensorUnsupported fires when a Message's header type is Tensor or
// SparseTensor: present in the enum per spec.md's open-question
// resolution, but never implemented on write and always refused on read.
var ErrTensorUnsupported = errors.New("ipc: Tensor/SparseTensor messages are not supported")

// ReadDictionaryBatchAt decodes the DictionaryBatch Message at b.Offset,
// metadata only (id, isDelta, and the embedded RecordBatch's FieldNode/
// Buffer vectors) — the companion of ReadRecordBatchAt for the one other
// payload-bearing Message header spec.md names (§1 item 2, §4.5). This
// producer never emits a DictionaryBatch block (no column's dictionary is
// ever populated), so no Footer's recordBatches list ever names one
// today; this exists so a caller handed a foreign file's dictionary block
// offset can still decode it.
func (r *Reader) ReadDictionaryBatchAt(offset int64) (id int64, isDelta bool, recordBatch flatbuf.Table, err error) {
	msg, _, derr := r.decodeMessageAt(offset)
	if derr != nil {
		return 0, false, flatbuf.Table{}, derr
	}
	switch msg.GetByte(flatbuf.MessageHeaderType, flatbuf.HeaderNone) {
	case flatbuf.HeaderTensor, flatbuf.HeaderSparseTensor:
		return 0, false, flatbuf.Table{}, werror.Wrap(ErrTensorUnsupported)
	case flatbuf.HeaderDictionaryBatch:
	default:
		return 0, false, flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}

	dict, ok := msg.GetOffsetTable(flatbuf.MessageHeaderOffset)
	if !ok {
		return 0, false, flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}
	rb, ok := dict.GetOffsetTable(flatbuf.DictionaryBatchData)
	if !ok {
		return 0, false, flatbuf.Table{}, werror.Wrap(ErrUnexpectedHeader)
	}
	return dict.GetInt64(flatbuf.DictionaryBatchID, 0), dict.GetBool(flatbuf.DictionaryBatchIsDelta, false), rb, nil
}
