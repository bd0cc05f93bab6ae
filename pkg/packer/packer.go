// Package packer composes a table and a writer behind a flush policy, so
// callers only push data and periodically ask whether a row group is done.
package packer

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/colpack/pkg/config"
	"github.com/ajitpratap0/colpack/pkg/logger"
	"github.com/ajitpratap0/colpack/pkg/metrics"
	"github.com/ajitpratap0/colpack/pkg/table"
	"github.com/ajitpratap0/colpack/pkg/write"
)

// Packer accumulates rows in a table and flushes them to the writer when the
// configured memory or row thresholds are exceeded.
type Packer struct {
	writer *write.Writer
	table  *table.Table
	cfg    config.PackConfig
}

// New creates a packer writing to sinks under the given flush policy
func New(sinks []io.Writer, schema *table.Schema, cfg config.PackConfig) (*Packer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := write.New(sinks, schema, cfg.Writer)
	if err != nil {
		return nil, err
	}
	return &Packer{
		writer: w,
		table:  table.WithCapacity(schema, cfg.CapacityHint),
		cfg:    cfg,
	}, nil
}

// Table returns the table values are pushed into
func (p *Packer) Table() *table.Table {
	return p.table
}

// FindField looks up an output column by name
func (p *Packer) FindField(name string) (int, *table.Field, bool) {
	return p.writer.FindField(name)
}

// ConsiderFlushing validates table consistency, then flushes if the estimated
// memory exceeds MaxBufferedBytes or the row count exceeds MaxBufferedRows,
// whichever triggers first.
func (p *Packer) ConsiderFlushing() error {
	if err := p.table.CheckConsistent(); err != nil {
		return err
	}
	if p.table.MemEstimate() > p.cfg.MaxBufferedBytes || p.table.Rows() > p.cfg.MaxBufferedRows {
		return p.Flush()
	}
	return nil
}

// Flush closes the current row group and submits it to the writer. A table
// with zero rows is a no-op: an empty row group is never emitted.
func (p *Packer) Flush() error {
	rows := p.table.Rows()
	if rows == 0 {
		return nil
	}

	// update the memory estimate, and check consistent
	if err := p.table.FinishBulkPush(); err != nil {
		return err
	}
	memEstimate := p.table.MemEstimate()

	logger.Info("submitting row group",
		zap.Int("rows", rows),
		zap.Int("approx_mb", memEstimate/1024/1024),
		zap.Int("bytes_per_row", memEstimate/rows))

	start := time.Now()
	batch := p.table.TakeBatch()
	if err := p.writer.SubmitBatch(batch); err != nil {
		metrics.RowGroupsSubmitted.WithLabelValues("failed").Inc()
		return err
	}
	metrics.RowGroupsSubmitted.WithLabelValues("submitted").Inc()
	metrics.RowsFlushed.Add(float64(rows))
	metrics.BytesFlushed.Add(float64(memEstimate))
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	return nil
}

// Finish flushes any remainder and finishes the writer
func (p *Packer) Finish() error {
	if err := p.Flush(); err != nil {
		return err
	}
	return p.writer.Finish()
}

// Abort shuts the writer down without flushing the accumulated remainder.
// Used on failure paths so no encoder goroutine is left behind; whatever the
// sinks received up to this point must be discarded by the caller.
func (p *Packer) Abort() {
	_ = p.writer.Finish()
}
