package repack

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/ajitpratap0/colpack/pkg/errors"
	"github.com/ajitpratap0/colpack/pkg/table"
)

// copyChunked appends every value of a decoded column into the destination
// builder, null pattern included. Dispatch is over the concrete arrow array;
// a kind combination without a case here fails rather than coercing.
func copyChunked(chunked *arrow.Chunked, dst *table.VarArray) error {
	for _, chunk := range chunked.Chunks() {
		if err := copyChunk(chunk, dst); err != nil {
			return err
		}
	}
	return nil
}

func copyChunk(chunk arrow.Array, dst *table.VarArray) error {
	switch arr := chunk.(type) {
	case *array.Boolean:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := arr.Value(i)
			if err := dst.PushBool(&v); err != nil {
				return err
			}
		}

	case *array.Uint8:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := arr.Value(i)
			if err := dst.PushU8(&v); err != nil {
				return err
			}
		}

	case *array.Int32:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := arr.Value(i)
			if err := dst.PushI32(&v); err != nil {
				return err
			}
		}

	case *array.Int64:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := arr.Value(i)
			if err := dst.PushI64(&v); err != nil {
				return err
			}
		}

	case *array.Float64:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := arr.Value(i)
			if err := dst.PushF64(&v); err != nil {
				return err
			}
		}

	case *array.String:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := arr.Value(i)
			if err := dst.PushStr(&v); err != nil {
				return err
			}
		}

	case *array.FixedSizeBinary:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			if err := dst.PushFixedBytes(arr.Value(i)); err != nil {
				return err
			}
		}

	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		if unit != arrow.Second {
			return errors.Newf(errors.ErrorTypeTypeMismatch,
				"timestamp column has %s resolution, want seconds", unit)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				dst.PushNull()
				continue
			}
			v := time.Unix(int64(arr.Value(i)), 0).UTC()
			if err := dst.PushTime(&v); err != nil {
				return err
			}
		}

	default:
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"no copy dispatch for arrow array %s", chunk.DataType())
	}
	return nil
}
