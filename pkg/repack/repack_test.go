package repack

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colpack/pkg/config"
	"github.com/ajitpratap0/colpack/pkg/errors"
	"github.com/ajitpratap0/colpack/pkg/packer"
	"github.com/ajitpratap0/colpack/pkg/table"
	"github.com/ajitpratap0/colpack/pkg/testutil"
)

// inputSchema is the fixture schema used by the transform tests
func inputSchema(t *testing.T) *table.Schema {
	t.Helper()
	schema, err := table.NewSchema([]table.Field{
		table.NewField("id", table.KindI64, false),
		table.NewField("name", table.KindString, true),
		table.NewField("active", table.KindBool, false),
		table.NewField("score", table.KindF64, false),
		table.NewField("tag", table.KindUUID, false),
	})
	require.NoError(t, err)
	return schema
}

var fixtureTags = []uuid.UUID{
	uuid.MustParse("00000000-0000-0000-0000-000000000001"),
	uuid.MustParse("00000000-0000-0000-0000-000000000002"),
	uuid.MustParse("00000000-0000-0000-0000-000000000003"),
	uuid.MustParse("00000000-0000-0000-0000-000000000004"),
	uuid.MustParse("00000000-0000-0000-0000-000000000005"),
}

// writeFixture produces an in-memory parquet payload with the given row
// counts per row group
func writeFixture(t *testing.T, rowGroups []int) []byte {
	t.Helper()
	var buf bytes.Buffer
	pk, err := packer.New([]io.Writer{&buf}, inputSchema(t), testutil.SmallPackConfig(1<<30, 1<<30))
	require.NoError(t, err)

	next := int64(0)
	for _, rows := range rowGroups {
		for i := 0; i < rows; i++ {
			id := next
			name := "row"
			active := next%2 == 0
			score := float64(next) / 2
			tag := fixtureTags[int(next)%len(fixtureTags)]
			next++
			tbl := pk.Table()
			require.NoError(t, tbl.PushI64(0, &id))
			require.NoError(t, tbl.PushStr(1, &name))
			require.NoError(t, tbl.PushBool(2, &active))
			require.NoError(t, tbl.PushF64(3, &score))
			require.NoError(t, tbl.PushUUID(4, &tag))
		}
		require.NoError(t, pk.Flush())
	}
	require.NoError(t, pk.Finish())
	return buf.Bytes()
}

func openSource(t *testing.T, payload []byte) *Source {
	t.Helper()
	src, err := NewSource(bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

// bufFactory returns a sink factory writing to a single buffer and a flag
// recording whether it was invoked
func bufFactory(buf *bytes.Buffer) (SinkFactory, *bool) {
	called := false
	return func(*table.Schema) ([]io.Writer, error) {
		called = true
		return []io.Writer{buf}, nil
	}, &called
}

func readTable(t *testing.T, payload []byte) arrow.Table {
	t.Helper()
	pf, err := file.NewParquetReader(bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { pf.Close() })
	ar, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	require.NoError(t, err)
	tbl, err := ar.ReadTable(context.Background())
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestTransformCopy(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{3, 2}))
	var out bytes.Buffer
	factory, called := bufFactory(&out)

	ops := []Op{
		{Input: "id", Action: Copy{}},
		{Input: "name", Action: Copy{}},
		{Input: "tag", Action: Copy{}},
	}
	require.NoError(t, Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig()))
	require.True(t, *called)

	tbl := readTable(t, out.Bytes())
	require.Equal(t, int64(5), tbl.NumRows())
	require.Equal(t, int64(3), tbl.NumCols())
	assert.Equal(t, "id", tbl.Schema().Field(0).Name)
	assert.Equal(t, "name", tbl.Schema().Field(1).Name)
	assert.Equal(t, "tag", tbl.Schema().Field(2).Name)

	var ids []int64
	for _, chunk := range tbl.Column(0).Data().Chunks() {
		arr := chunk.(*array.Int64)
		for i := 0; i < arr.Len(); i++ {
			ids = append(ids, arr.Value(i))
		}
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ids)

	var tags [][]byte
	for _, chunk := range tbl.Column(2).Data().Chunks() {
		arr := chunk.(*array.FixedSizeBinary)
		for i := 0; i < arr.Len(); i++ {
			tags = append(tags, arr.Value(i))
		}
	}
	require.Len(t, tags, 5)
	assert.Equal(t, fixtureTags[0][:], tags[0])
	assert.Equal(t, fixtureTags[4][:], tags[4])
}

func TestTransformSplit(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{4}))
	var out bytes.Buffer
	factory, _ := bufFactory(&out)

	split := Split{
		Outputs: []table.Field{
			table.NewField("id_doubled", table.KindI64, false),
			table.NewField("id_odd", table.KindBool, false),
		},
		Transform: func(_ context.Context, in *arrow.Chunked, outs []*table.VarArray) error {
			for _, chunk := range in.Chunks() {
				arr := chunk.(*array.Int64)
				for i := 0; i < arr.Len(); i++ {
					doubled := arr.Value(i) * 2
					odd := arr.Value(i)%2 == 1
					if err := outs[0].PushI64(&doubled); err != nil {
						return err
					}
					if err := outs[1].PushBool(&odd); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	ops := []Op{{Input: "id", Action: split}}
	require.NoError(t, Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig()))

	tbl := readTable(t, out.Bytes())
	require.Equal(t, int64(4), tbl.NumRows())
	require.Equal(t, int64(2), tbl.NumCols())
	assert.Equal(t, "id_doubled", tbl.Schema().Field(0).Name)
	assert.Equal(t, "id_odd", tbl.Schema().Field(1).Name)

	doubled := tbl.Column(0).Data().Chunks()[0].(*array.Int64)
	odd := tbl.Column(1).Data().Chunks()[0].(*array.Boolean)
	assert.Equal(t, int64(6), doubled.Value(3))
	assert.True(t, odd.Value(1))
	assert.False(t, odd.Value(2))
}

func TestTransformDropOmitsColumn(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{2}))
	var out bytes.Buffer
	factory, _ := bufFactory(&out)

	ops := []Op{
		{Input: "id", Action: Copy{}},
		{Input: "name", Action: Drop{}},
	}
	require.NoError(t, Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig()))

	tbl := readTable(t, out.Bytes())
	require.Equal(t, int64(1), tbl.NumCols())
	assert.Equal(t, "id", tbl.Schema().Field(0).Name)
}

func TestTransformErrorOutCreatesNoSink(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{2}))
	var out bytes.Buffer
	factory, called := bufFactory(&out)

	ops := []Op{{Input: "id", Action: ErrorOut{}}}
	err := Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUserAbort))
	assert.False(t, *called, "an all-diagnostic op set must not create a sink")
	assert.Zero(t, out.Len(), "no output artifact")
}

func TestTransformSplitWithoutOutputsIsRejected(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{2}))
	var out bytes.Buffer
	factory, called := bufFactory(&out)

	// no declared outputs means no derivable schema; derivation must fail
	// before any row group is touched
	empty := Split{
		Transform: func(context.Context, *arrow.Chunked, []*table.VarArray) error {
			return nil
		},
	}
	ops := []Op{{Input: "id", Action: empty}}
	err := Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))
	assert.False(t, *called)
	assert.Zero(t, out.Len())
}

func TestTransformErrorOutAbortsMixedRun(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{2}))
	var out bytes.Buffer
	factory, called := bufFactory(&out)

	ops := []Op{
		{Input: "id", Action: Copy{}},
		{Input: "name", Action: ErrorOut{}},
	}
	err := Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUserAbort))
	assert.True(t, *called)
}

func TestTransformMissingInputColumn(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{2}))
	var out bytes.Buffer
	factory, called := bufFactory(&out)

	ops := []Op{{Input: "nope", Action: Copy{}}}
	err := Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))
	assert.False(t, *called)
}

func TestTransformUnsupportedExternalType(t *testing.T) {
	// a float32 column has no corresponding kind; derivation must fail
	// before any sink exists
	mem := memory.NewGoAllocator()
	arrowSchema := arrow.NewSchema([]arrow.Field{
		{Name: "f", Type: arrow.PrimitiveTypes.Float32},
	}, nil)

	var in bytes.Buffer
	fw, err := pqarrow.NewFileWriter(arrowSchema, &in,
		parquet.NewWriterProperties(), pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	require.NoError(t, err)
	fb := array.NewFloat32Builder(mem)
	fb.AppendValues([]float32{1, 2}, nil)
	arr := fb.NewArray()
	rec := array.NewRecord(arrowSchema, []arrow.Array{arr}, 2)
	require.NoError(t, fw.Write(rec))
	rec.Release()
	arr.Release()
	require.NoError(t, fw.Close())

	src := openSource(t, in.Bytes())
	var out bytes.Buffer
	factory, called := bufFactory(&out)

	ops := []Op{{Input: "f", Action: Copy{}}}
	err = Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternalTypeUnsupported))
	assert.False(t, *called)
}

func TestRowGroupFilterSkipAndBreak(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{2, 2, 2}))
	require.Equal(t, 3, src.NumRowGroups())

	var out bytes.Buffer
	factory, _ := bufFactory(&out)

	var seen []int
	filter := func(index int, info RowGroupInfo) RowGroupDecision {
		seen = append(seen, index)
		assert.Equal(t, index, info.Index)
		assert.Equal(t, int64(2), info.NumRows)
		switch index {
		case 0:
			return SkipRowGroup
		case 1:
			return IncludeRowGroup
		default:
			return BreakRowGroups
		}
	}

	ops := []Op{{Input: "id", Action: Copy{}}}
	require.NoError(t, Transform(context.Background(), src, ops, filter, factory, config.NewPackConfig()))
	assert.Equal(t, []int{0, 1, 2}, seen)

	tbl := readTable(t, out.Bytes())
	require.Equal(t, int64(2), tbl.NumRows())

	// only the second row group's ids made it through
	ids := tbl.Column(0).Data().Chunks()[0].(*array.Int64)
	assert.Equal(t, int64(2), ids.Value(0))
	assert.Equal(t, int64(3), ids.Value(1))
}

func TestSplitRowMismatchIsCaught(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{3}))
	var out bytes.Buffer
	factory, _ := bufFactory(&out)

	short := Split{
		Outputs: []table.Field{table.NewField("one", table.KindI64, false)},
		Transform: func(_ context.Context, _ *arrow.Chunked, outs []*table.VarArray) error {
			v := int64(1)
			return outs[0].PushI64(&v) // one value for three input rows
		},
	}
	ops := []Op{
		{Input: "id", Action: Copy{}},
		{Input: "name", Action: short},
	}
	err := Transform(context.Background(), src, ops, nil, factory, config.NewPackConfig())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaViolation))
}

func TestSourceMetadata(t *testing.T) {
	src := openSource(t, writeFixture(t, []int{3, 2}))
	assert.Equal(t, 2, src.NumRowGroups())

	info := src.RowGroupInfo(0)
	assert.Equal(t, 0, info.Index)
	assert.Equal(t, int64(3), info.NumRows)
	assert.Equal(t, 5, info.NumColumns)

	chunked, err := src.ReadColumn(context.Background(), 1, 0)
	require.NoError(t, err)
	defer chunked.Release()
	assert.Equal(t, 2, chunked.Len())
}
