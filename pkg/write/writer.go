// Package write streams finished batches to one or more output sinks. Each
// sink gets its own background encoder goroutine and its own bounded channel;
// every sink observes the identical sequence of batches in submission order.
// Closing the channels is the only signal the encoders use to finalize their
// parquet footers and exit, and no failure in a background task is ever
// swallowed: it surfaces either at the next submission or at Finish.
package write

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colpack/pkg/config"
	"github.com/ajitpratap0/colpack/pkg/errors"
	"github.com/ajitpratap0/colpack/pkg/logger"
	"github.com/ajitpratap0/colpack/pkg/metrics"
	"github.com/ajitpratap0/colpack/pkg/table"
)

// sinkTask is one background encoder: a dedicated channel feeding a dedicated
// parquet writer over a dedicated sink.
type sinkTask struct {
	ch       chan table.Batch
	done     chan struct{} // closed when the goroutine exits
	err      error         // valid once done is closed
	panicked interface{}   // recovered panic value, if any
}

// Writer owns the background encoder tasks. It is driven from a single
// producer goroutine; batch ownership transfers to the tasks on submission.
type Writer struct {
	schema *table.Schema
	tasks  []*sinkTask
	closed bool
	failed error // sticky failure from an earlier join
}

// New spawns one encoder task per sink. Per-task channel capacity equals the
// number of sinks, bounding the total number of in-flight batches to the sink
// count before a producer blocks.
func New(sinks []io.Writer, schema *table.Schema, cfg config.WriterConfig) (*Writer, error) {
	if len(sinks) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "writer needs at least one sink")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	props := writerProperties(schema, cfg)
	w := &Writer{
		schema: schema,
		tasks:  make([]*sinkTask, len(sinks)),
	}

	for i, sink := range sinks {
		t := &sinkTask{
			ch:   make(chan table.Batch, len(sinks)),
			done: make(chan struct{}),
		}
		w.tasks[i] = t
		go t.run(sink, schema, props)
	}

	return w, nil
}

// FindField looks an output column up by name
func (w *Writer) FindField(name string) (int, *table.Field, bool) {
	return w.schema.FindField(name)
}

// run encodes the batch stream into sink, finalizing the file on channel
// closure. A panic is captured so the producer can re-raise it at join time.
func (t *sinkTask) run(sink io.Writer, schema *table.Schema, props *parquet.WriterProperties) {
	defer func() {
		if r := recover(); r != nil {
			t.panicked = r
		}
		close(t.done)
	}()
	t.err = t.encode(sink, schema, props)
	if t.err != nil {
		metrics.EncoderFailures.Inc()
	}
}

func (t *sinkTask) encode(sink io.Writer, schema *table.Schema, props *parquet.WriterProperties) error {
	mem := memory.NewGoAllocator()
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)
	fw, err := pqarrow.NewFileWriter(schema.ArrowSchema(), sink, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeThreadFailure, "creating parquet writer")
	}

	for batch := range t.ch {
		rec := batch.Record()
		err := fw.Write(rec)
		rec.Release()
		batch.Release()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeThreadFailure, "encoding row group")
		}
	}

	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeThreadFailure, "finalizing parquet file")
	}
	return nil
}

// SubmitBatch hands a batch to every encoder task in order, blocking while a
// task's channel is full. If any task has already exited, the writer joins
// all remaining tasks and surfaces the underlying cause instead of letting
// the caller silently succeed or deadlock on a later call.
func (w *Writer) SubmitBatch(batch table.Batch) error {
	// a failed run also sets closed; check failure first so the stored
	// cause is never shadowed by a generic already-finished error
	if w.failed != nil {
		batch.Release()
		return errors.Wrap(w.failed, errors.ErrorTypeChannelClosed,
			"batch submitted after the encoders failed")
	}
	if w.closed {
		batch.Release()
		return errors.New(errors.ErrorTypeChannelClosed, "writer already finished")
	}

	// one reference per task; the submitting caller's reference is handed
	// to the first task
	for i := 1; i < len(w.tasks); i++ {
		batch.Retain()
	}

	for i, t := range w.tasks {
		select {
		case t.ch <- batch:
		case <-t.done:
			// drop the references that were never handed off
			for j := i; j < len(w.tasks); j++ {
				batch.Release()
			}
			return w.abort()
		}
	}
	return nil
}

// abort closes the channels, joins every task and reports the first failure.
// The run is over at this point; partial sink contents are not recoverable.
func (w *Writer) abort() error {
	err := w.join()
	if err == nil {
		err = errors.New(errors.ErrorTypeThreadFailure,
			"an encoder task exited without an error before the stream ended")
	}
	w.failed = err
	return err
}

// Finish closes the batch channels, signalling end-of-stream, then joins
// every encoder task. It returns the first failing task's error, and re-raises
// a task panic rather than swallowing it: a partially written sink is not
// recoverable.
func (w *Writer) Finish() error {
	if w.failed != nil {
		return w.failed
	}
	if w.closed {
		return errors.New(errors.ErrorTypeChannelClosed, "writer already finished")
	}
	logger.Debug("finishing writer", zap.Int("sinks", len(w.tasks)))
	return w.join()
}

// join closes every channel exactly once and waits for all tasks. A task that
// terminated abnormally is re-panicked in the caller.
func (w *Writer) join() error {
	if !w.closed {
		w.closed = true
		for _, t := range w.tasks {
			close(t.ch)
		}
	}
	var first error
	for _, t := range w.tasks {
		<-t.done
		if t.panicked != nil {
			panic(t.panicked)
		}
		if first == nil && t.err != nil {
			first = t.err
		}
	}
	return first
}

// writerProperties translates the writer config and the schema's per-field
// encodings into parquet writer properties.
func writerProperties(schema *table.Schema, cfg config.WriterConfig) *parquet.WriterProperties {
	opts := []parquet.WriterProperty{
		parquet.WithCompression(codecFor(cfg.Compression)),
		parquet.WithStats(cfg.WriteStatistics),
		parquet.WithVersion(versionFor(cfg.FormatVersion)),
		parquet.WithDictionaryDefault(cfg.EnableDictionary),
	}
	if !cfg.EnableDictionary {
		for _, f := range schema.Fields() {
			if f.Encoding == table.EncodingDictionary {
				opts = append(opts, parquet.WithDictionaryFor(f.Name, true))
				continue
			}
			opts = append(opts, parquet.WithEncodingFor(f.Name, f.Encoding.ParquetEncoding()))
		}
	}
	return parquet.NewWriterProperties(opts...)
}

func codecFor(c config.Compression) compress.Compression {
	switch c {
	case config.CompressionSnappy:
		return compress.Codecs.Snappy
	case config.CompressionGzip:
		return compress.Codecs.Gzip
	case config.CompressionUncompressed:
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Zstd
	}
}

func versionFor(v config.FormatVersion) parquet.Version {
	switch v {
	case config.FormatV1:
		return parquet.V1_0
	case config.FormatV2:
		return parquet.V2_4
	case config.FormatLatest:
		return parquet.V2_LATEST
	default:
		return parquet.V2_6
	}
}
