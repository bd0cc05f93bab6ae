package table

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"github.com/ajitpratap0/colpack/pkg/errors"
)

// Table is an ordered set of column builders sharing one schema. Values are
// pushed per column by index; between bulk-finalize boundaries all columns
// must end up with equal length. The running memory estimate is deliberately
// approximate on the push path (a bounded underestimate, off by a small
// constant factor for nulls and bools) and is recomputed exactly from the
// builders during FinishBulkPush.
type Table struct {
	schema  *Schema
	mem     memory.Allocator
	columns []*VarArray
	cap     int
	memUsed int
}

// WithCapacity creates a table whose builders reserve room for capacity rows
func WithCapacity(schema *Schema, capacity int) *Table {
	mem := memory.NewGoAllocator()
	return &Table{
		schema:  schema,
		mem:     mem,
		columns: makeColumns(mem, schema, capacity),
		cap:     capacity,
	}
}

func makeColumns(mem memory.Allocator, schema *Schema, capacity int) []*VarArray {
	cols := make([]*VarArray, schema.Len())
	for i, f := range schema.Fields() {
		cols[i] = NewVarArray(mem, f.Kind, capacity)
	}
	return cols
}

// Schema returns the table schema
func (t *Table) Schema() *Schema {
	return t.schema
}

// Rows returns the length of column 0
func (t *Table) Rows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// MemEstimate returns the current memory estimate in bytes. Between
// bulk-finalize boundaries this is the cheap running counter, not an exact
// measurement.
func (t *Table) MemEstimate() int {
	return t.memUsed
}

// Get returns a mutable view over column i
func (t *Table) Get(i int) (*VarArray, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, errors.Newf(errors.ErrorTypeSchemaViolation,
			"column index %d out of range (%d columns)", i, len(t.columns))
	}
	return t.columns[i], nil
}

// GetMany returns disjoint mutable views over the requested columns, in the
// requested order, so one transform can fill several destination columns at
// once. Duplicate indices are rejected.
func (t *Table) GetMany(indices []int) ([]*VarArray, error) {
	seen := make(map[int]struct{}, len(indices))
	out := make([]*VarArray, len(indices))
	for n, i := range indices {
		if _, dup := seen[i]; dup {
			return nil, errors.Newf(errors.ErrorTypeSchemaViolation,
				"column index %d requested twice", i)
		}
		seen[i] = struct{}{}
		col, err := t.Get(i)
		if err != nil {
			return nil, err
		}
		out[n] = col
	}
	return out, nil
}

// PushNull appends a null to column i.
// The estimate charges one byte per null regardless of true bitmap cost.
func (t *Table) PushNull(i int) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	t.memUsed++
	col.PushNull()
	return nil
}

// PushBool appends a bool or null to column i.
// The estimate charges one byte per bool regardless of true packed cost.
func (t *Table) PushBool(i int, v *bool) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	t.memUsed++
	return col.PushBool(v)
}

// PushU8 appends a uint8 or null to column i
func (t *Table) PushU8(i int, v *uint8) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	t.memUsed++
	return col.PushU8(v)
}

// PushI32 appends an int32 or null to column i
func (t *Table) PushI32(i int, v *int32) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += 4
	}
	return col.PushI32(v)
}

// PushI64 appends an int64 or null to column i
func (t *Table) PushI64(i int, v *int64) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += 8
	}
	return col.PushI64(v)
}

// PushF64 appends a float64 or null to column i
func (t *Table) PushF64(i int, v *float64) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += 8
	}
	return col.PushF64(v)
}

// PushStr appends a string or null to column i
func (t *Table) PushStr(i int, v *string) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += len(*v) + 4
	}
	return col.PushStr(v)
}

// PushFixedBytes appends a 16-byte fixed-width binary value or null to column i
func (t *Table) PushFixedBytes(i int, v []byte) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += len(v)
	}
	return col.PushFixedBytes(v)
}

// PushUUID appends a uuid or null to column i
func (t *Table) PushUUID(i int, v *uuid.UUID) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += 16
	}
	return col.PushUUID(v)
}

// PushTime appends a second-resolution timestamp or null to column i
func (t *Table) PushTime(i int, v *time.Time) error {
	col, err := t.Get(i)
	if err != nil {
		return err
	}
	if v == nil {
		t.memUsed++
	} else {
		t.memUsed += 8
	}
	return col.PushTime(v)
}

// CheckConsistent verifies that every column has the same length as column 0
func (t *Table) CheckConsistent() error {
	if len(t.columns) == 0 {
		return nil
	}
	rows := t.columns[0].Len()
	for i, col := range t.columns {
		if col.Len() != rows {
			return errors.Newf(errors.ErrorTypeSchemaViolation,
				"column %q has %d rows, column %q has %d",
				t.schema.Field(i).Name, col.Len(), t.schema.Field(0).Name, rows)
		}
	}
	return nil
}

// FinishBulkPush closes a bulk-push boundary: it checks column consistency
// and replaces the approximate running memory counter with an exact recompute
// over every builder.
func (t *Table) FinishBulkPush() error {
	if err := t.CheckConsistent(); err != nil {
		return err
	}
	exact := 0
	for _, col := range t.columns {
		exact += col.MemUsage()
	}
	t.memUsed = exact
	return nil
}

// TakeBatch atomically detaches every column as an immutable batch, rebuilds
// empty builders at the original capacity hint, and resets the memory
// estimate to zero. This is the only way a row group is closed.
func (t *Table) TakeBatch() Batch {
	rows := int64(t.Rows())
	cols := make([]arrow.Array, len(t.columns))
	for i, col := range t.columns {
		cols[i] = col.finish()
	}
	t.columns = makeColumns(t.mem, t.schema, t.cap)
	t.memUsed = 0
	return Batch{Schema: t.schema, Columns: cols, NumRows: rows}
}
