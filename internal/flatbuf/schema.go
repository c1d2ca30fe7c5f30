/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package flatbuf

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/pg2arrow/pg2arrow/internal/arrowtype"
	"github.com/pg2arrow/pg2arrow/internal/batch"
)

// Field indices, bit-exact between writer and reader (spec §4.5's table).
const (
	MessageVersion       = 0
	MessageHeaderType    = 1
	MessageHeaderOffset  = 2
	MessageBodyLength    = 3

	SchemaEndianness = 0
	SchemaFields     = 1

	FieldName       = 0
	FieldNullable   = 1
	FieldTypeTag    = 2
	FieldTypeOffset = 3
	FieldDictionary = 4
	FieldChildren   = 5

	TypeIntBitWidth = 0
	TypeIntIsSigned = 1

	TypeFloatingPointPrecision = 0

	TypeDecimalPrecision = 0
	TypeDecimalScale     = 1

	RecordBatchLength     = 0
	RecordBatchFieldNodes = 1
	RecordBatchBuffers    = 2

	DictionaryBatchID      = 0
	DictionaryBatchData    = 1
	DictionaryBatchIsDelta = 2

	FooterVersion        = 0
	FooterSchema         = 1
	FooterDictionaries   = 2
	FooterRecordBatches  = 3
)

// MessageHeader union type tags, matching real Arrow's Message.fbs enum.
// Tensor and SparseTensor are named per spec.md's open-question
// resolution ("present in the enum but unimplemented on write and
// refused on read") — nothing in this package ever builds or decodes
// them, but the tags exist so a reader's header-type switch has them to
// refuse explicitly rather than only by omission.
const (
	HeaderNone            byte = 0
	HeaderSchema          byte = 1
	HeaderDictionaryBatch byte = 2
	HeaderRecordBatch     byte = 3
	HeaderTensor          byte = 4
	HeaderSparseTensor    byte = 5
)

// Type union tags, matching Arrow's own Schema.fbs discriminants so the
// on-disk bytes stay meaningful to a reader that knows the Arrow format.
const (
	TypeTagNone          byte = 0
	TypeTagInt           byte = 2
	TypeTagFloatingPoint byte = 3
	TypeTagBinary        byte = 4
	TypeTagUtf8          byte = 5
	TypeTagBool          byte = 6
	TypeTagDecimal       byte = 7
	TypeTagDate          byte = 8
	TypeTagTime          byte = 9
	TypeTagTimestamp     byte = 10
	TypeTagList          byte = 12
	TypeTagStruct        byte = 13
)

// MetadataVersionV5 is the current Arrow metadata version.
const MetadataVersionV5 int16 = 4

// FloatingPoint precision enum.
const (
	PrecisionSingle int16 = 2
	PrecisionDouble int16 = 3
)

// BuildFieldTable assembles one Field table (spec §4.5), recursing into
// Struct children / List elements in declaration order.
func BuildFieldTable(f *arrowtype.Field) *Builder {
	tb := NewBuilder(6)
	tb.PutString(FieldName, f.Name)
	if f.Nullable {
		tb.PutScalar(FieldNullable, ScalarBool(true), 1)
	}

	tag, typeTable := buildType(f.DataType)
	tb.PutScalar(FieldTypeTag, ScalarByte(tag), 1)
	tb.PutOffset(FieldTypeOffset, typeTable)

	switch {
	case len(f.Children) > 0:
		children := make([]*Builder, len(f.Children))
		for i, c := range f.Children {
			children[i] = BuildFieldTable(c)
		}
		tb.PutVector(FieldChildren, children)
	case f.Element != nil:
		tb.PutVector(FieldChildren, []*Builder{BuildFieldTable(f.Element)})
	}

	return tb
}

func buildType(dt arrow.DataType) (byte, *Builder) {
	switch t := dt.(type) {
	case *arrow.BooleanType:
		return TypeTagBool, NewBuilder(0)
	case *arrow.Int8Type:
		return TypeTagInt, intType(8, true)
	case *arrow.Uint8Type:
		return TypeTagInt, intType(8, false)
	case *arrow.Int16Type:
		return TypeTagInt, intType(16, true)
	case *arrow.Uint16Type:
		return TypeTagInt, intType(16, false)
	case *arrow.Int32Type:
		return TypeTagInt, intType(32, true)
	case *arrow.Uint32Type:
		return TypeTagInt, intType(32, false)
	case *arrow.Int64Type:
		return TypeTagInt, intType(64, true)
	case *arrow.Uint64Type:
		return TypeTagInt, intType(64, false)
	case *arrow.Float32Type:
		return TypeTagFloatingPoint, fpType(PrecisionSingle)
	case *arrow.Float64Type:
		return TypeTagFloatingPoint, fpType(PrecisionDouble)
	case *arrow.Date32Type:
		return TypeTagDate, NewBuilder(1)
	case *arrow.Time64Type:
		return TypeTagTime, NewBuilder(2)
	case *arrow.TimestampType:
		return TypeTagTimestamp, NewBuilder(2)
	case *arrow.Decimal128Type:
		tb := NewBuilder(2)
		tb.PutScalar(TypeDecimalPrecision, ScalarInt32(t.Precision), 4)
		tb.PutScalar(TypeDecimalScale, ScalarInt32(t.Scale), 4)
		return TypeTagDecimal, tb
	case *arrow.StringType:
		return TypeTagUtf8, NewBuilder(0)
	case *arrow.BinaryType:
		return TypeTagBinary, NewBuilder(0)
	case *arrow.StructType:
		return TypeTagStruct, NewBuilder(0)
	case *arrow.ListType:
		return TypeTagList, NewBuilder(0)
	default:
		panic(fmt.Sprintf("flatbuf: %T has no Type table mapping", t))
	}
}

func intType(bitWidth int32, signed bool) *Builder {
	tb := NewBuilder(2)
	tb.PutScalar(TypeIntBitWidth, ScalarInt32(bitWidth), 4)
	if signed {
		tb.PutScalar(TypeIntIsSigned, ScalarBool(true), 1)
	}
	return tb
}

func fpType(precision int16) *Builder {
	tb := NewBuilder(1)
	tb.PutScalar(TypeFloatingPointPrecision, ScalarInt16(precision), 2)
	return tb
}

// BuildSchemaTable assembles the Schema table over fields in declaration
// order. Endianness (field 0) and the KeyValue metadata vector (field 2)
// are always omitted: this format carries no custom metadata and always
// writes little-endian, Endianness's own default.
func BuildSchemaTable(fields []*arrowtype.Field) *Builder {
	tb := NewBuilder(2)
	children := make([]*Builder, len(fields))
	for i, f := range fields {
		children[i] = BuildFieldTable(f)
	}
	tb.PutVector(SchemaFields, children)
	return tb
}

// BuildMessageTable wraps header (a Schema or RecordBatch table) in a
// Message table.
func BuildMessageTable(headerType byte, header *Builder, bodyLength int64) *Builder {
	tb := NewBuilder(4)
	tb.PutScalar(MessageVersion, ScalarInt16(MetadataVersionV5), 2)
	tb.PutScalar(MessageHeaderType, ScalarByte(headerType), 1)
	tb.PutOffset(MessageHeaderOffset, header)
	if bodyLength != 0 {
		tb.PutScalar(MessageBodyLength, ScalarInt64(bodyLength), 8)
	}
	return tb
}

// BuildFieldNodeVector encodes rb's FieldNode vector as the packed,
// vtable-less struct the spec requires.
func BuildFieldNodeVector(nodes []batch.FieldNode) []byte {
	return PackedVector(len(nodes), 16, func(i int, out []byte) {
		copy(out[0:8], ScalarInt64(nodes[i].Length))
		copy(out[8:16], ScalarInt64(nodes[i].NullCount))
	})
}

// BuildBufferVector encodes rb's Buffer vector as the packed,
// vtable-less struct the spec requires.
func BuildBufferVector(bufs []batch.BufferSpec) []byte {
	return PackedVector(len(bufs), 16, func(i int, out []byte) {
		copy(out[0:8], ScalarInt64(bufs[i].Offset))
		copy(out[8:16], ScalarInt64(bufs[i].Length))
	})
}

// Block is one emitted batch's location, recorded for the Footer.
type Block struct {
	Offset         int64
	MetaDataLength int32
	BodyLength     int64
}

// BuildBlockVector encodes a Footer block list as the packed,
// vtable-less struct the spec requires: {int64 offset, int32
// metaDataLength, int32 _pad, int64 bodyLength}.
func BuildBlockVector(blocks []Block) []byte {
	return PackedVector(len(blocks), 24, func(i int, out []byte) {
		copy(out[0:8], ScalarInt64(blocks[i].Offset))
		copy(out[8:12], ScalarInt32(blocks[i].MetaDataLength))
		copy(out[16:24], ScalarInt64(blocks[i].BodyLength))
	})
}

// BuildRecordBatchTable assembles a RecordBatch table from an already
// computed batch.RecordBatch (FieldNode/Buffer vectors built by
// internal/batch).
func BuildRecordBatchTable(rb *batch.RecordBatch) *Builder {
	tb := NewBuilder(3)
	if rb.RowCount != 0 {
		tb.PutScalar(RecordBatchLength, ScalarInt64(rb.RowCount), 8)
	}
	tb.PutBinary(RecordBatchFieldNodes, BuildFieldNodeVector(rb.FieldNodes), 0)
	tb.PutBinary(RecordBatchBuffers, BuildBufferVector(rb.Buffers), 0)
	return tb
}

// BuildDictionaryBatchTable assembles a DictionaryBatch table (spec
// §4.5's table: id i64, RecordBatch offset, isDelta bool) wrapping an
// already-built RecordBatch table of dictionary values. This producer
// never populates a column's dictionary (spec.md's Non-goal: "building
// dictionaries is deferred") so nothing calls this on the write path
// today, but the encoder can frame the structure spec.md names as
// mandatory (§1 item 2, §4.5's field table) if a future column type
// needs it.
func BuildDictionaryBatchTable(id int64, data *Builder, isDelta bool) *Builder {
	tb := NewBuilder(3)
	tb.PutScalar(DictionaryBatchID, ScalarInt64(id), 8)
	tb.PutOffset(DictionaryBatchData, data)
	if isDelta {
		tb.PutScalar(DictionaryBatchIsDelta, ScalarBool(true), 1)
	}
	return tb
}

// BuildFooterTable assembles the Footer table: schema, an always-empty
// dictionaries block vector (this format never emits dictionary
// batches), and the record-batch block vector.
func BuildFooterTable(schema *Builder, recordBatches []Block) *Builder {
	tb := NewBuilder(4)
	tb.PutScalar(FooterVersion, ScalarInt16(MetadataVersionV5), 2)
	tb.PutOffset(FooterSchema, schema)
	tb.PutBinary(FooterDictionaries, BuildBlockVector(nil), 0)
	tb.PutBinary(FooterRecordBatches, BuildBlockVector(recordBatches), 0)
	return tb
}

// FrameMessage serializes msg per spec §4.5's on-disk message framing:
// int32 metaLength, int32 rootOffset, the flattened bytes (4-byte
// padded), the whole thing then padded to 8 bytes.
func FrameMessage(msg *Builder) []byte {
	data, vlen, _ := msg.flattenRaw()
	for len(data)%4 != 0 {
		data = append(data, 0)
	}

	rootOffset := int32(4 + vlen)
	metaLength := int32(4 + len(data))

	out := make([]byte, 0, 8+len(data))
	out = append(out, ScalarInt32(metaLength)...)
	out = append(out, ScalarInt32(rootOffset)...)
	out = append(out, data...)
	for len(out)%8 != 0 {
		out = append(out, 0)
	}
	return out
}

// FrameFooter serializes footer per spec §4.5: the flattened bytes,
// followed by int32 footerMetaLength, followed by literal ARROW1.
func FrameFooter(footer *Builder) []byte {
	data := footer.Flatten()
	out := make([]byte, 0, len(data)+4+6)
	out = append(out, data...)
	out = append(out, ScalarInt32(int32(len(data)))...)
	out = append(out, []byte("ARROW1")...)
	return out
}
