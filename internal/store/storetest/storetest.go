// Package storetest writes the feather and parquet tables the store readers
// consume, for tests in packages that need candle files on disk.
package storetest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	"ftviz/internal/frame"
	"ftviz/internal/store"
)

// Times builds a timestamp column.
func Times(name string, values ...time.Time) *frame.Series {
	ns := make([]int64, len(values))
	for i, t := range values {
		ns[i] = t.UnixNano()
	}
	return frame.NewTimeNanos(name, ns)
}

// WriteFeather writes the frame as an Arrow IPC file. Timestamps are stored
// as nanosecond UTC timestamps and NaN floats as nulls, the layout pandas
// produces for engine candle files.
func WriteFeather(path string, f *frame.Frame) error {
	names := f.Columns()
	fields := make([]arrow.Field, len(names))
	cols := make([]*frame.Series, len(names))
	for i, name := range names {
		s, _ := f.Series(name)
		cols[i] = s

		var dt arrow.DataType
		switch s.Kind() {
		case frame.Float:
			dt = arrow.PrimitiveTypes.Float64
		case frame.Int:
			dt = arrow.PrimitiveTypes.Int64
		case frame.Time:
			dt = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}

	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema(fields, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for c, s := range cols {
		for i := 0; i < f.Len(); i++ {
			switch fb := b.Field(c).(type) {
			case *array.Float64Builder:
				if v := s.Float(i); math.IsNaN(v) {
					fb.AppendNull()
				} else {
					fb.Append(v)
				}
			case *array.Int64Builder:
				fb.Append(s.Int(i))
			case *array.TimestampBuilder:
				fb.Append(arrow.Timestamp(s.TimeAt(i).UnixNano()))
			case *array.StringBuilder:
				fb.Append(s.Format(i))
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating feather %s: %w", path, err)
	}
	defer out.Close()

	w, err := ipc.NewFileWriter(out, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("opening feather writer %s: %w", path, err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing feather %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing feather %s: %w", path, err)
	}
	return out.Close()
}

// WriteParquet writes the OHLCV columns of f as a candle Parquet file. The
// frame needs a date column (or a time column in unix seconds) plus open,
// high, low, close and volume.
func WriteParquet(path string, f *frame.Frame) error {
	var dateMillis func(i int) int64
	if s, ok := f.Series("date"); ok {
		dateMillis = func(i int) int64 { return s.TimeAt(i).UnixMilli() }
	} else if s, ok := f.Series("time"); ok {
		dateMillis = func(i int) int64 { return s.Int(i) * 1000 }
	} else {
		return fmt.Errorf("%w: date or time", frame.ErrColumnMissing)
	}

	cols := make(map[string][]float64, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := f.Floats(name)
		if err != nil {
			return err
		}
		cols[name] = v
	}

	records := make([]store.CandleRecord, f.Len())
	for i := range records {
		records[i] = store.CandleRecord{
			Date:   dateMillis(i),
			Open:   cols["open"][i],
			High:   cols["high"][i],
			Low:    cols["low"][i],
			Close:  cols["close"][i],
			Volume: cols["volume"][i],
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}
