// Package colpack builds large parquet datasets incrementally under bounded
// memory, and can remap an existing parquet file into a new one column by
// column.
//
// The core is a pipeline of three pieces: schema-checked column builders with
// approximate memory accounting (pkg/table), a flush policy that decides when
// a batch of rows is a finished row group (pkg/packer), and a writer that
// streams finished batches to one or more output sinks on background encoder
// goroutines with backpressure and non-lossy failure propagation (pkg/write).
// The transform driver (pkg/repack) composes all of this into a row-group
// state machine with per-column copy, split, drop and abort actions.
//
// # Quick Start
//
// Pack rows into an in-memory parquet payload:
//
//	import (
//	    "bytes"
//	    "github.com/ajitpratap0/colpack/pkg/config"
//	    "github.com/ajitpratap0/colpack/pkg/packer"
//	    "github.com/ajitpratap0/colpack/pkg/table"
//	)
//
//	schema, _ := table.NewSchema([]table.Field{
//	    table.NewField("id", table.KindI64, false),
//	    table.NewField("name", table.KindString, true),
//	})
//
//	var buf bytes.Buffer
//	pk, _ := packer.New([]io.Writer{&buf}, schema, config.NewPackConfig())
//
//	id := int64(1)
//	name := "a"
//	_ = pk.Table().PushI64(0, &id)
//	_ = pk.Table().PushStr(1, &name)
//	_ = pk.ConsiderFlushing()
//	_ = pk.Finish()
//
// # Key Packages
//
//	pkg/table   - Column kinds, schemas and typed builders with memory accounting
//	pkg/packer  - Flush policy over a table and a writer
//	pkg/write   - Background encoder goroutines, one per sink
//	pkg/repack  - Column-by-column transformation of existing parquet files
//	pkg/config  - Flush thresholds and parquet writer options
package colpack
