// Package repack remaps an existing parquet payload into a new one,
// column by column. A transform is a list of per-column ops whose actions
// derive the output schema up front; row groups are then processed in arrival
// order through a packer, with per-column copy, split, drop and abort
// dispatch.
package repack

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colpack/pkg/config"
	"github.com/ajitpratap0/colpack/pkg/errors"
	"github.com/ajitpratap0/colpack/pkg/logger"
	"github.com/ajitpratap0/colpack/pkg/packer"
	"github.com/ajitpratap0/colpack/pkg/table"
)

// Action decides what happens to one input column. The set is closed:
// ErrorOut, Drop, Copy and Split.
type Action interface {
	isAction()
}

// ErrorOut aborts the run once the input column has been loaded. It is a
// diagnostic hook to confirm a column is reachable and decodable without
// producing any output.
type ErrorOut struct{}

// Drop omits the input column from the output entirely. The column is never
// loaded.
type Drop struct{}

// Copy copies the input column verbatim into an identically named output
// column.
type Copy struct{}

// SplitFunc receives one input column and mutable views over exactly the
// declared output columns, in declared order. It must produce the same number
// of values (or nulls) per output column as there are input rows; the driver
// re-checks only through the per-row-group consistency check.
type SplitFunc func(ctx context.Context, in *arrow.Chunked, outs []*table.VarArray) error

// Split fans one input column out into the declared output fields through a
// caller-supplied transform.
type Split struct {
	Outputs   []table.Field
	Transform SplitFunc
}

func (ErrorOut) isAction() {}
func (Drop) isAction()     {}
func (Copy) isAction()     {}
func (Split) isAction()    {}

// Op binds an input column name to an action. Ops are built once per
// transform and are immutable during a run; within a row group they execute
// in declared order, so later ops may depend on output columns populated by
// earlier ones.
type Op struct {
	Input  string
	Action Action
}

// RowGroupDecision is produced per row group by the caller-supplied filter
type RowGroupDecision int

const (
	// IncludeRowGroup processes the row group
	IncludeRowGroup RowGroupDecision = iota
	// SkipRowGroup advances without processing, e.g. when resuming a
	// partial run
	SkipRowGroup
	// BreakRowGroups stops iteration entirely and proceeds straight to
	// finishing; no partial row group is left half-built
	BreakRowGroups
)

// RowGroupFilter decides per row group whether to process it. A nil filter
// includes everything.
type RowGroupFilter func(index int, info RowGroupInfo) RowGroupDecision

// SinkFactory creates the output sinks once the output schema is known. It is
// invoked only when the derived schema is non-empty, so an all-diagnostic op
// set never creates an output artifact.
type SinkFactory func(schema *table.Schema) ([]io.Writer, error)

// boundOp is an op resolved against the source and output schemas
type boundOp struct {
	op       Op
	inputIdx int
	outIdxs  []int
}

// Transform drives the row-group state machine: derive the output schema from
// the ops, create the sinks and packer, process each included row group op by
// op, and finish. The first failure aborts the run; partial output must be
// treated as invalid.
func Transform(ctx context.Context, src *Source, ops []Op, filter RowGroupFilter, sinks SinkFactory, cfg config.PackConfig) error {
	bound, outSchema, err := deriveSchema(src, ops)
	if err != nil {
		return err
	}

	var pk *packer.Packer
	if outSchema.Len() > 0 {
		sinkList, err := sinks(outSchema)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "creating output sinks")
		}
		pk, err = packer.New(sinkList, outSchema, cfg)
		if err != nil {
			return err
		}
	}

	logger.Info("starting transform",
		zap.Int("ops", len(ops)),
		zap.Int("output_columns", outSchema.Len()),
		zap.Int("row_groups", src.NumRowGroups()))

	if err := processRowGroups(ctx, src, pk, bound, filter); err != nil {
		// shut the encoders down before surfacing the failure; the
		// partial output is the caller's to discard
		if pk != nil {
			pk.Abort()
		}
		return err
	}

	if pk != nil {
		return pk.Finish()
	}
	return nil
}

// processRowGroups runs the per-row-group loop in arrival order
func processRowGroups(ctx context.Context, src *Source, pk *packer.Packer, bound []boundOp, filter RowGroupFilter) error {
	for rg := 0; rg < src.NumRowGroups(); rg++ {
		if filter != nil {
			switch filter(rg, src.RowGroupInfo(rg)) {
			case SkipRowGroup:
				continue
			case BreakRowGroups:
				return nil
			}
		}

		for _, b := range bound {
			if err := runOp(ctx, src, pk, b, rg); err != nil {
				return err
			}
		}

		if pk != nil {
			if err := pk.Table().FinishBulkPush(); err != nil {
				return errors.Wrap(err, errors.ErrorTypeSchemaViolation,
					"row group left inconsistent").WithDetail("row_group", rg)
			}
			if err := pk.ConsiderFlushing(); err != nil {
				return err
			}
		}
	}
	return nil
}

// deriveSchema flat-maps every op's action into zero or more output fields,
// before any row group is read. Unsupported source types and missing input
// columns fail here, before any output sink exists.
func deriveSchema(src *Source, ops []Op) ([]boundOp, *table.Schema, error) {
	var outFields []table.Field
	bound := make([]boundOp, 0, len(ops))

	for _, op := range ops {
		inIdxs := src.Schema().FieldIndices(op.Input)
		if len(inIdxs) == 0 {
			return nil, nil, errors.Newf(errors.ErrorTypeSchemaViolation,
				"input column %q not present in source", op.Input)
		}
		inIdx := inIdxs[0]
		inField := src.Schema().Field(inIdx)

		b := boundOp{op: op, inputIdx: inIdx}
		switch action := op.Action.(type) {
		case ErrorOut, Drop:
			// no output contribution
		case Copy:
			kind, err := table.KindFromArrow(inField.Type)
			if err != nil {
				return nil, nil, errors.Wrap(err, errors.ErrorTypeExternalTypeUnsupported,
					"copying column").WithDetail("column", op.Input)
			}
			b.outIdxs = []int{len(outFields)}
			outFields = append(outFields, table.NewField(inField.Name, kind, inField.Nullable))
		case Split:
			if len(action.Outputs) == 0 {
				return nil, nil, errors.Newf(errors.ErrorTypeSchemaViolation,
					"split on column %q declares no output columns", op.Input)
			}
			for i := range action.Outputs {
				b.outIdxs = append(b.outIdxs, len(outFields)+i)
			}
			outFields = append(outFields, action.Outputs...)
		default:
			return nil, nil, errors.Newf(errors.ErrorTypeInternal,
				"unknown action %T for column %q", op.Action, op.Input)
		}
		bound = append(bound, b)
	}

	schema, err := table.NewSchema(outFields)
	if err != nil {
		return nil, nil, err
	}
	return bound, schema, nil
}

// runOp executes one op against one row group
func runOp(ctx context.Context, src *Source, pk *packer.Packer, b boundOp, rg int) error {
	switch action := b.op.Action.(type) {
	case Drop:
		return nil

	case ErrorOut:
		chunked, err := src.ReadColumn(ctx, rg, b.inputIdx)
		if err != nil {
			return err
		}
		chunked.Release()
		return errors.Newf(errors.ErrorTypeUserAbort,
			"input column %q loaded, aborting as requested", b.op.Input).
			WithDetail("row_group", rg)

	case Copy:
		chunked, err := src.ReadColumn(ctx, rg, b.inputIdx)
		if err != nil {
			return err
		}
		defer chunked.Release()
		dst, err := pk.Table().Get(b.outIdxs[0])
		if err != nil {
			return err
		}
		if err := copyChunked(chunked, dst); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTypeMismatch, "copying column").
				WithDetail("column", b.op.Input).
				WithDetail("row_group", rg)
		}
		return nil

	case Split:
		chunked, err := src.ReadColumn(ctx, rg, b.inputIdx)
		if err != nil {
			return err
		}
		defer chunked.Release()
		outs, err := pk.Table().GetMany(b.outIdxs)
		if err != nil {
			return err
		}
		if err := action.Transform(ctx, chunked, outs); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "split transform failed").
				WithDetail("column", b.op.Input).
				WithDetail("row_group", rg)
		}
		return nil

	default:
		return errors.Newf(errors.ErrorTypeInternal, "unknown action %T", b.op.Action)
	}
}
