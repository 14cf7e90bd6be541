// Package frame implements the price-series table that flows between the
// OHLCV readers, strategies and the CSV writers: an ordered set of equally
// long, typed columns.
package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrColumnMissing is returned when a required column is absent.
var ErrColumnMissing = errors.New("column missing")

// Frame is an ordered collection of equally long columns.
type Frame struct {
	series []*Series
	index  map[string]int
	rows   int
}

// New builds a Frame from the given columns. All columns must have the same
// length and distinct names.
func New(series ...*Series) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(series))}
	for _, s := range series {
		if _, dup := f.index[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", s.Name())
		}
		if err := f.Set(s); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Columns returns the column names in table order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.series))
	for i, s := range f.series {
		names[i] = s.Name()
	}
	return names
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Series returns the named column.
func (f *Frame) Series(name string) (*Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.series[i], true
}

// Floats returns a copy of the named column as float64 values.
func (f *Frame) Floats(name string) ([]float64, error) {
	s, ok := f.Series(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnMissing, name)
	}
	return s.Floats(), nil
}

// Set appends s, or replaces the existing column of the same name in place.
func (f *Frame) Set(s *Series) error {
	if len(f.series) > 0 && s.Len() != f.rows {
		return fmt.Errorf("column %q has %d rows, frame has %d", s.Name(), s.Len(), f.rows)
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[s.Name()]; ok {
		f.series[i] = s
		return nil
	}
	f.index[s.Name()] = len(f.series)
	f.series = append(f.series, s)
	f.rows = s.Len()
	return nil
}

// SetFloats is shorthand for Set(NewFloat(name, values)).
func (f *Frame) SetFloats(name string, values []float64) error {
	return f.Set(NewFloat(name, values))
}

// Copy returns a deep copy.
func (f *Frame) Copy() *Frame {
	c := &Frame{
		series: make([]*Series, len(f.series)),
		index:  make(map[string]int, len(f.index)),
		rows:   f.rows,
	}
	for i, s := range f.series {
		c.series[i] = s.clone()
		c.index[s.Name()] = i
	}
	return c
}

// Filter returns a new Frame holding only rows where keep[i] is true.
func (f *Frame) Filter(keep []bool) (*Frame, error) {
	if len(keep) != f.rows {
		return nil, fmt.Errorf("filter mask has %d entries, frame has %d rows", len(keep), f.rows)
	}
	c := &Frame{
		series: make([]*Series, len(f.series)),
		index:  make(map[string]int, len(f.index)),
	}
	for _, k := range keep {
		if k {
			c.rows++
		}
	}
	for i, s := range f.series {
		c.series[i] = s.filter(keep)
		c.index[s.Name()] = i
	}
	return c, nil
}

// Select returns a new Frame with the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{index: make(map[string]int, len(names))}
	for _, name := range names {
		s, ok := f.Series(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnMissing, name)
		}
		if err := out.Set(s.clone()); err != nil {
			return nil, err
		}
	}
	out.rows = f.rows
	return out, nil
}

// LowerColumns lower-cases every column name in place.
func (f *Frame) LowerColumns() error {
	index := make(map[string]int, len(f.series))
	for i, s := range f.series {
		lower := strings.ToLower(s.Name())
		if _, dup := index[lower]; dup {
			return fmt.Errorf("duplicate column %q after lower-casing", lower)
		}
		s.name = lower
		index[lower] = i
	}
	f.index = index
	return nil
}

// DateToUnix converts the "date" column to an Int "time" column holding
// seconds since the epoch. Text dates are parsed with ParseTime; numeric
// dates are taken as epoch milliseconds.
func (f *Frame) DateToUnix() (*Series, error) {
	date, ok := f.Series("date")
	if !ok {
		return nil, fmt.Errorf("%w: date", ErrColumnMissing)
	}

	secs := make([]int64, date.Len())
	for i := range secs {
		switch date.Kind() {
		case Time:
			secs[i] = date.Int(i)
		case String:
			t, err := ParseTime(date.Format(i))
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			secs[i] = t.Unix()
		default:
			v := date.Float(i)
			if math.IsNaN(v) {
				return nil, fmt.Errorf("row %d: empty date", i)
			}
			secs[i] = int64(v) / 1000
		}
	}
	return NewInt("time", secs), nil
}

// EnsureTime leaves the frame with an Int "time" column of unix seconds.
// An existing time column is normalized: timestamps convert, numeric text
// is taken as seconds and other text is parsed with ParseTime. Without one
// it is derived from "date". A frame with neither yields ErrColumnMissing.
func (f *Frame) EnsureTime() error {
	ts, ok := f.Series("time")
	if !ok {
		if !f.Has("date") {
			return fmt.Errorf("%w: time or date", ErrColumnMissing)
		}
		secs, err := f.DateToUnix()
		if err != nil {
			return err
		}
		return f.Set(secs)
	}

	secs, err := unixSeconds(ts)
	if err != nil {
		return fmt.Errorf("time column: %w", err)
	}
	return f.Set(secs)
}

// unixSeconds converts s to an Int series of unix seconds named "time".
func unixSeconds(s *Series) (*Series, error) {
	secs := make([]int64, s.Len())
	switch s.Kind() {
	case Int:
		copy(secs, s.ints)
	case Time:
		for i := range secs {
			secs[i] = s.Int(i)
		}
	case Float:
		for i, v := range s.floats {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("row %d: empty timestamp", i)
			}
			secs[i] = int64(v)
		}
	default:
		for i, cell := range s.strs {
			cell = strings.TrimSpace(cell)
			if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
				secs[i] = v
				continue
			}
			if v, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(v) {
				secs[i] = int64(v)
				continue
			}
			t, err := ParseTime(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			secs[i] = t.Unix()
		}
	}
	return NewInt("time", secs), nil
}

var timeLayouts = []string{
	csvTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp spellings found in exported OHLCV files.
// Values without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
