package store

import (
	"fmt"
	"math"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"ftviz/internal/frame"
)

// ReadFeather reads a feather (Arrow IPC file) table. Float, integer,
// timestamp and string columns are supported; null floats become NaN.
func ReadFeather(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rdr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening feather %s: %w", path, err)
	}
	defer rdr.Close()

	fields := rdr.Schema().Fields()
	cols := make([]*featherColumn, len(fields))
	for i, fld := range fields {
		col, err := newFeatherColumn(fld)
		if err != nil {
			return nil, fmt.Errorf("feather %s: %w", path, err)
		}
		cols[i] = col
	}

	for r := 0; r < rdr.NumRecords(); r++ {
		rec, err := rdr.Record(r)
		if err != nil {
			return nil, fmt.Errorf("reading feather %s record %d: %w", path, r, err)
		}
		for c := range cols {
			cols[c].append(rec.Column(c))
		}
	}

	series := make([]*frame.Series, len(cols))
	for i, col := range cols {
		series[i] = col.series()
	}
	return frame.New(series...)
}

// featherColumn accumulates one Arrow column across record batches.
type featherColumn struct {
	name   string
	kind   frame.Kind
	unit   arrow.TimeUnit
	floats []float64
	ints   []int64
	strs   []string
}

func newFeatherColumn(fld arrow.Field) (*featherColumn, error) {
	col := &featherColumn{name: fld.Name}
	switch dt := fld.Type.(type) {
	case *arrow.Float64Type, *arrow.Float32Type:
		col.kind = frame.Float
	case *arrow.Int64Type, *arrow.Int32Type, *arrow.Int16Type, *arrow.Int8Type:
		col.kind = frame.Int
	case *arrow.TimestampType:
		col.kind = frame.Time
		col.unit = dt.Unit
	case *arrow.StringType, *arrow.LargeStringType:
		col.kind = frame.String
	default:
		return nil, fmt.Errorf("column %q: unsupported arrow type %s", fld.Name, fld.Type)
	}
	return col, nil
}

func (c *featherColumn) append(arr arrow.Array) {
	n := arr.Len()
	switch a := arr.(type) {
	case *array.Float64:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.floats = append(c.floats, math.NaN())
				continue
			}
			c.floats = append(c.floats, a.Value(i))
		}
	case *array.Float32:
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				c.floats = append(c.floats, math.NaN())
				continue
			}
			c.floats = append(c.floats, float64(a.Value(i)))
		}
	case *array.Int64:
		for i := 0; i < n; i++ {
			c.ints = append(c.ints, a.Value(i))
		}
	case *array.Int32:
		for i := 0; i < n; i++ {
			c.ints = append(c.ints, int64(a.Value(i)))
		}
	case *array.Int16:
		for i := 0; i < n; i++ {
			c.ints = append(c.ints, int64(a.Value(i)))
		}
	case *array.Int8:
		for i := 0; i < n; i++ {
			c.ints = append(c.ints, int64(a.Value(i)))
		}
	case *array.Timestamp:
		for i := 0; i < n; i++ {
			c.ints = append(c.ints, a.Value(i).ToTime(c.unit).UnixNano())
		}
	case *array.String:
		for i := 0; i < n; i++ {
			c.strs = append(c.strs, a.Value(i))
		}
	case *array.LargeString:
		for i := 0; i < n; i++ {
			c.strs = append(c.strs, a.Value(i))
		}
	}
}

func (c *featherColumn) series() *frame.Series {
	switch c.kind {
	case frame.Float:
		return frame.NewFloat(c.name, c.floats)
	case frame.Int:
		return frame.NewInt(c.name, c.ints)
	case frame.Time:
		return frame.NewTimeNanos(c.name, c.ints)
	default:
		return frame.NewString(c.name, c.strs)
	}
}
