// Package table provides typed, null-aware columnar builders with memory
// accounting. A Table accumulates pushed values per column under a fixed
// schema and periodically detaches everything it holds as an immutable Batch,
// which is what the write path encodes as one row group.
package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"

	"github.com/ajitpratap0/colpack/pkg/errors"
)

// Kind is the closed set of logical column element types supported by the
// builders. Each kind fixes one concrete arrow representation and one default
// output encoding.
type Kind int

const (
	KindBool Kind = iota
	KindU8
	KindI32
	KindI64
	KindF64
	KindString
	KindUUID
	KindTimestampSecsZ
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindUUID:
		return "uuid"
	case KindTimestampSecsZ:
		return "timestamp_s"
	default:
		return "unknown"
	}
}

// uuidType is the arrow representation of KindUUID: 16 bytes, fixed width.
var uuidType = &arrow.FixedSizeBinaryType{ByteWidth: 16}

// timestampType is the arrow representation of KindTimestampSecsZ: second
// resolution, no timezone.
var timestampType = &arrow.TimestampType{Unit: arrow.Second}

// ArrowType returns the arrow data type this kind maps to. The mapping is
// bit-exact and must be preserved across the read and write paths.
func (k Kind) ArrowType() arrow.DataType {
	switch k {
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindU8:
		return arrow.PrimitiveTypes.Uint8
	case KindI32:
		return arrow.PrimitiveTypes.Int32
	case KindI64:
		return arrow.PrimitiveTypes.Int64
	case KindF64:
		return arrow.PrimitiveTypes.Float64
	case KindString:
		return arrow.BinaryTypes.String
	case KindUUID:
		return uuidType
	case KindTimestampSecsZ:
		return timestampType
	default:
		return nil
	}
}

// KindFromArrow maps an arrow data type back to a kind. Types outside the
// supported set fail with ErrorTypeExternalTypeUnsupported.
func KindFromArrow(dt arrow.DataType) (Kind, error) {
	switch t := dt.(type) {
	case *arrow.BooleanType:
		return KindBool, nil
	case *arrow.Uint8Type:
		return KindU8, nil
	case *arrow.Int32Type:
		return KindI32, nil
	case *arrow.Int64Type:
		return KindI64, nil
	case *arrow.Float64Type:
		return KindF64, nil
	case *arrow.StringType:
		return KindString, nil
	case *arrow.FixedSizeBinaryType:
		if t.ByteWidth == 16 {
			return KindUUID, nil
		}
	case *arrow.TimestampType:
		if t.Unit == arrow.Second && t.TimeZone == "" {
			return KindTimestampSecsZ, nil
		}
	}
	return 0, errors.Newf(errors.ErrorTypeExternalTypeUnsupported,
		"no column kind for arrow type %s", dt)
}

// Encoding selects the parquet encoding scheme used for a column. The set is
// deliberately small: several more compact encodings are known to be
// incompatible with specific reader implementations and are avoided until
// compatibility is verified.
type Encoding int

const (
	EncodingPlain Encoding = iota
	EncodingByteStreamSplit
	EncodingDeltaBinaryPacked
	EncodingDictionary
)

// ParquetEncoding returns the parquet-level encoding constant
func (e Encoding) ParquetEncoding() parquet.Encoding {
	switch e {
	case EncodingByteStreamSplit:
		return parquet.Encodings.ByteStreamSplit
	case EncodingDeltaBinaryPacked:
		return parquet.Encodings.DeltaBinaryPacked
	case EncodingDictionary:
		return parquet.Encodings.RLEDict
	default:
		return parquet.Encodings.Plain
	}
}

// DefaultEncoding returns the default output encoding for a kind: F64 columns
// use byte-stream-split, everything else stays plain.
func DefaultEncoding(k Kind) Encoding {
	if k == KindF64 {
		return EncodingByteStreamSplit
	}
	return EncodingPlain
}

// Field describes one output column: a name unique within its schema, a kind,
// nullability and the encoding used when the column is written out.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
	Encoding Encoding
}

// NewField returns a field with the default encoding for its kind
func NewField(name string, kind Kind, nullable bool) Field {
	return Field{Name: name, Kind: kind, Nullable: nullable, Encoding: DefaultEncoding(kind)}
}

// ArrowField returns the arrow schema field for f
func (f Field) ArrowField() arrow.Field {
	return arrow.Field{Name: f.Name, Type: f.Kind.ArrowType(), Nullable: f.Nullable}
}

// Schema is an ordered sequence of fields. The order is load-bearing: it fixes
// both the table column index and the output column order, and is never
// re-sorted.
type Schema struct {
	fields []Field
}

// NewSchema builds a schema from fields, rejecting duplicate names
func NewSchema(fields []Field) (*Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return nil, errors.Newf(errors.ErrorTypeSchemaViolation,
				"duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Schema{fields: append([]Field(nil), fields...)}, nil
}

// Fields returns the fields in schema order
func (s *Schema) Fields() []Field {
	return s.fields
}

// Len returns the number of fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Field returns the field at index i
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// FindField looks a field up by name, returning its column index
func (s *Schema) FindField(name string) (int, *Field, bool) {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return i, &s.fields[i], true
		}
	}
	return 0, nil, false
}

// ArrowSchema returns the arrow schema for s, preserving field order
func (s *Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s.fields))
	for i, f := range s.fields {
		fields[i] = f.ArrowField()
	}
	return arrow.NewSchema(fields, nil)
}
