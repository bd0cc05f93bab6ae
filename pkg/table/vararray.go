package table

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"github.com/ajitpratap0/colpack/pkg/errors"
)

// VarArray is one column's growable builder: a value buffer, a validity
// bitmap, and (for strings) an offsets buffer. The concrete arrow builder is
// resolved once from the column kind at construction, so a push only checks a
// pre-resolved pointer instead of downcasting an open-ended interface. A
// VarArray is exclusively owned by the table that created it until detached.
type VarArray struct {
	kind Kind

	// exactly one of these is non-nil, matching kind
	boolB   *array.BooleanBuilder
	u8B     *array.Uint8Builder
	i32B    *array.Int32Builder
	i64B    *array.Int64Builder
	f64B    *array.Float64Builder
	strB    *array.StringBuilder
	fixedB  *array.FixedSizeBinaryBuilder
	tsB     *array.TimestampBuilder
	builder array.Builder
}

// NewVarArray creates an empty builder for kind with room reserved for
// capacity values
func NewVarArray(mem memory.Allocator, kind Kind, capacity int) *VarArray {
	a := &VarArray{kind: kind}
	switch kind {
	case KindBool:
		a.boolB = array.NewBooleanBuilder(mem)
		a.builder = a.boolB
	case KindU8:
		a.u8B = array.NewUint8Builder(mem)
		a.builder = a.u8B
	case KindI32:
		a.i32B = array.NewInt32Builder(mem)
		a.builder = a.i32B
	case KindI64:
		a.i64B = array.NewInt64Builder(mem)
		a.builder = a.i64B
	case KindF64:
		a.f64B = array.NewFloat64Builder(mem)
		a.builder = a.f64B
	case KindString:
		a.strB = array.NewStringBuilder(mem)
		a.builder = a.strB
	case KindUUID:
		a.fixedB = array.NewFixedSizeBinaryBuilder(mem, uuidType)
		a.builder = a.fixedB
	case KindTimestampSecsZ:
		a.tsB = array.NewTimestampBuilder(mem, timestampType)
		a.builder = a.tsB
	}
	if capacity > 0 {
		a.builder.Reserve(capacity)
	}
	return a
}

// Kind returns the column kind
func (a *VarArray) Kind() Kind {
	return a.kind
}

// Len returns the number of values pushed so far
func (a *VarArray) Len() int {
	return a.builder.Len()
}

// PushNull appends a null to any column kind
func (a *VarArray) PushNull() {
	a.builder.AppendNull()
}

// PushBool appends a bool or null
func (a *VarArray) PushBool(v *bool) error {
	if a.boolB == nil {
		return a.mismatch("bool")
	}
	if v == nil {
		a.boolB.AppendNull()
	} else {
		a.boolB.Append(*v)
	}
	return nil
}

// PushU8 appends a uint8 or null
func (a *VarArray) PushU8(v *uint8) error {
	if a.u8B == nil {
		return a.mismatch("u8")
	}
	if v == nil {
		a.u8B.AppendNull()
	} else {
		a.u8B.Append(*v)
	}
	return nil
}

// PushI32 appends an int32 or null
func (a *VarArray) PushI32(v *int32) error {
	if a.i32B == nil {
		return a.mismatch("i32")
	}
	if v == nil {
		a.i32B.AppendNull()
	} else {
		a.i32B.Append(*v)
	}
	return nil
}

// PushI64 appends an int64 or null
func (a *VarArray) PushI64(v *int64) error {
	if a.i64B == nil {
		return a.mismatch("i64")
	}
	if v == nil {
		a.i64B.AppendNull()
	} else {
		a.i64B.Append(*v)
	}
	return nil
}

// PushF64 appends a float64 or null
func (a *VarArray) PushF64(v *float64) error {
	if a.f64B == nil {
		return a.mismatch("f64")
	}
	if v == nil {
		a.f64B.AppendNull()
	} else {
		a.f64B.Append(*v)
	}
	return nil
}

// PushStr appends a string or null
func (a *VarArray) PushStr(v *string) error {
	if a.strB == nil {
		return a.mismatch("string")
	}
	if v == nil {
		a.strB.AppendNull()
	} else {
		a.strB.Append(*v)
	}
	return nil
}

// PushFixedBytes appends a fixed-width binary value or null. The value must
// be exactly 16 bytes.
func (a *VarArray) PushFixedBytes(v []byte) error {
	if a.fixedB == nil {
		return a.mismatch("fixed-width binary")
	}
	if v == nil {
		a.fixedB.AppendNull()
		return nil
	}
	if len(v) != uuidType.ByteWidth {
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"fixed-width binary column takes %d bytes, got %d", uuidType.ByteWidth, len(v))
	}
	a.fixedB.Append(v)
	return nil
}

// PushUUID appends a uuid or null
func (a *VarArray) PushUUID(v *uuid.UUID) error {
	if a.fixedB == nil {
		return a.mismatch("uuid")
	}
	if v == nil {
		a.fixedB.AppendNull()
	} else {
		a.fixedB.Append(v[:])
	}
	return nil
}

// PushTime appends a timestamp truncated to second resolution, or null
func (a *VarArray) PushTime(v *time.Time) error {
	if a.tsB == nil {
		return a.mismatch("timestamp")
	}
	if v == nil {
		a.tsB.AppendNull()
	} else {
		a.tsB.Append(arrow.Timestamp(v.Unix()))
	}
	return nil
}

// MemUsage reports the authoritative memory cost of the column: validity
// bitmap bytes plus value buffer bytes, plus the offsets buffer for strings.
// This is what corrects the cheap per-push estimate at bulk-finalize time.
func (a *VarArray) MemUsage() int {
	n := a.builder.Len()
	validity := n / 8
	switch a.kind {
	case KindBool:
		return validity + n/8
	case KindU8:
		return validity + n
	case KindI32:
		return validity + 4*n
	case KindI64, KindF64, KindTimestampSecsZ:
		return validity + 8*n
	case KindString:
		return validity + 4*(n+1) + a.strB.DataLen()
	case KindUUID:
		return validity + uuidType.ByteWidth*n
	default:
		return validity
	}
}

// finish detaches the accumulated values as an immutable arrow array, leaving
// the builder empty
func (a *VarArray) finish() arrow.Array {
	return a.builder.NewArray()
}

func (a *VarArray) mismatch(pushed string) error {
	return errors.Newf(errors.ErrorTypeTypeMismatch,
		"can't push a %s to a %s column", pushed, a.kind)
}
