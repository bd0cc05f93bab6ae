package repack

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/colpack/pkg/errors"
)

// Source wraps an existing parquet payload for schema inference and
// per-row-group, per-column reads. Reads are synchronous on the caller's
// goroutine; overlap comes from the encoder tasks downstream.
type Source struct {
	pf     *file.Reader
	ar     *pqarrow.FileReader
	schema *arrow.Schema
}

// RowGroupInfo is the per-row-group metadata handed to the row group filter
type RowGroupInfo struct {
	Index      int
	NumRows    int64
	NumColumns int
}

// NewSource opens a parquet payload from any reader supporting ReadAt+Seek
func NewSource(r parquet.ReaderAtSeeker) (*Source, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExternalTypeUnsupported,
			"opening parquet payload")
	}
	ar, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExternalTypeUnsupported,
			"creating arrow reader")
	}
	schema, err := ar.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExternalTypeUnsupported,
			"inferring arrow schema")
	}
	return &Source{pf: pf, ar: ar, schema: schema}, nil
}

// Schema returns the inferred arrow schema of the payload
func (s *Source) Schema() *arrow.Schema {
	return s.schema
}

// NumRowGroups returns the number of row groups in arrival order
func (s *Source) NumRowGroups() int {
	return s.pf.NumRowGroups()
}

// RowGroupInfo returns metadata for row group i
func (s *Source) RowGroupInfo(i int) RowGroupInfo {
	rg := s.pf.RowGroup(i)
	return RowGroupInfo{
		Index:      i,
		NumRows:    rg.NumRows(),
		NumColumns: rg.NumColumns(),
	}
}

// ReadColumn decodes one column of one row group into an immutable chunked
// array
func (s *Source) ReadColumn(ctx context.Context, rowGroup, col int) (*arrow.Chunked, error) {
	chunked, err := s.ar.RowGroup(rowGroup).Column(col).Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchemaViolation, "decoding column").
			WithDetail("row_group", rowGroup).
			WithDetail("column", col)
	}
	return chunked, nil
}

// Close releases the underlying parquet reader
func (s *Source) Close() error {
	return s.pf.Close()
}
