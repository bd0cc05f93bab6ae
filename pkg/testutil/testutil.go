// Package testutil provides testing utilities for colpack
package testutil

import (
	"testing"

	"github.com/ajitpratap0/colpack/pkg/config"
	"github.com/ajitpratap0/colpack/pkg/table"
)

// SmallPackConfig returns a pack config with tiny flush thresholds, so tests
// can exercise the flush policy without pushing half a gigabyte.
func SmallPackConfig(maxBytes, maxRows int) config.PackConfig {
	cfg := config.NewPackConfig()
	cfg.MaxBufferedBytes = maxBytes
	cfg.MaxBufferedRows = maxRows
	return cfg
}

// SampleSchema returns the three-field schema used across the round-trip
// tests: a non-null id, a nullable name and a non-null flag.
func SampleSchema(t *testing.T) *table.Schema {
	t.Helper()
	schema, err := table.NewSchema([]table.Field{
		table.NewField("id", table.KindI64, false),
		table.NewField("name", table.KindString, true),
		table.NewField("active", table.KindBool, false),
	})
	if err != nil {
		t.Fatalf("building sample schema: %v", err)
	}
	return schema
}
