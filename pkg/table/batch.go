package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Batch is an immutable set of finished column arrays for one row group, one
// array per schema field in schema order. Ownership transfers with the value:
// whoever receives a batch is responsible for releasing it once encoded.
type Batch struct {
	Schema  *Schema
	Columns []arrow.Array
	NumRows int64
}

// Record assembles the batch into an arrow record. The record borrows the
// batch's arrays; release the record after writing.
func (b Batch) Record() arrow.Record {
	return array.NewRecord(b.Schema.ArrowSchema(), b.Columns, b.NumRows)
}

// Retain adds a reference to every column, for handing the same batch to
// more than one receiver
func (b Batch) Retain() {
	for _, col := range b.Columns {
		col.Retain()
	}
}

// Release drops the batch's array references
func (b Batch) Release() {
	for _, col := range b.Columns {
		col.Release()
	}
}
