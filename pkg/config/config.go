// Package config provides the configuration surface for colpack: the flush
// policy thresholds of the packer and the encoding options of the parquet
// write path. Both flush thresholds are policy constants of the original
// design exposed here as configuration.
package config

import (
	"github.com/ajitpratap0/colpack/pkg/errors"
)

// Default flush policy: flush a row group once the table's estimated memory
// exceeds 512 MiB or its row count exceeds 100000, whichever triggers first.
const (
	DefaultMaxBufferedBytes = 512 * 1024 * 1024
	DefaultMaxBufferedRows  = 100_000
)

// PackConfig configures a packer: when to flush, how much builder capacity to
// reserve, and how the output is encoded.
type PackConfig struct {
	// MaxBufferedBytes flushes the table once its estimated memory exceeds
	// this many bytes
	MaxBufferedBytes int `yaml:"max_buffered_bytes" json:"max_buffered_bytes"`
	// MaxBufferedRows flushes the table once it holds more than this many rows
	MaxBufferedRows int `yaml:"max_buffered_rows" json:"max_buffered_rows"`
	// CapacityHint reserves builder capacity for this many rows per column
	CapacityHint int `yaml:"capacity_hint" json:"capacity_hint"`
	// Writer configures the parquet encoding of every output sink
	Writer WriterConfig `yaml:"writer" json:"writer"`
}

// WriterConfig configures the parquet encoder attached to each sink
type WriterConfig struct {
	// Compression selects the page compression codec
	Compression Compression `yaml:"compression" json:"compression"`
	// WriteStatistics enables per-column statistics in the file footer
	WriteStatistics bool `yaml:"write_statistics" json:"write_statistics"`
	// FormatVersion selects the parquet format version
	FormatVersion FormatVersion `yaml:"format_version" json:"format_version"`
	// EnableDictionary turns dictionary encoding on for all columns. Off by
	// default: per-column encodings and dictionary pages conflict, and
	// dictionary output is known to trip some readers.
	EnableDictionary bool `yaml:"enable_dictionary" json:"enable_dictionary"`
}

// Compression identifies a parquet page compression codec
type Compression string

const (
	CompressionZstd         Compression = "zstd"
	CompressionSnappy       Compression = "snappy"
	CompressionGzip         Compression = "gzip"
	CompressionUncompressed Compression = "none"
)

// FormatVersion identifies a parquet format version
type FormatVersion string

const (
	FormatV1     FormatVersion = "v1.0"
	FormatV2     FormatVersion = "v2.4"
	FormatV2_6   FormatVersion = "v2.6"
	FormatLatest FormatVersion = "latest"
)

// NewPackConfig returns a config with the default flush policy and the
// conservative writer settings: zstd, statistics on, dictionary off.
func NewPackConfig() PackConfig {
	return PackConfig{
		MaxBufferedBytes: DefaultMaxBufferedBytes,
		MaxBufferedRows:  DefaultMaxBufferedRows,
		Writer: WriterConfig{
			Compression:     CompressionZstd,
			WriteStatistics: true,
			FormatVersion:   FormatV2_6,
		},
	}
}

// Validate checks the config for usable values
func (c *PackConfig) Validate() error {
	if c.MaxBufferedBytes <= 0 {
		return errors.New(errors.ErrorTypeConfig, "max_buffered_bytes must be positive")
	}
	if c.MaxBufferedRows <= 0 {
		return errors.New(errors.ErrorTypeConfig, "max_buffered_rows must be positive")
	}
	if c.CapacityHint < 0 {
		return errors.New(errors.ErrorTypeConfig, "capacity_hint must not be negative")
	}
	return c.Writer.Validate()
}

// Validate checks the writer config for known codec and version names
func (w *WriterConfig) Validate() error {
	switch w.Compression {
	case CompressionZstd, CompressionSnappy, CompressionGzip, CompressionUncompressed, "":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown compression codec %q", w.Compression)
	}
	switch w.FormatVersion {
	case FormatV1, FormatV2, FormatV2_6, FormatLatest, "":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown format version %q", w.FormatVersion)
	}
	return nil
}
