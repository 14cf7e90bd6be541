package frame

import (
	"math"
	"strconv"
	"time"
)

// Kind is the element type of a Series.
type Kind int

const (
	Float Kind = iota
	Int
	Time
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case Time:
		return "time"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// csvTimeLayout matches the timestamp rendering of freqtrade's CSV exports.
const csvTimeLayout = "2006-01-02 15:04:05-07:00"

// Series is a named, typed column. Time values are kept as unix
// nanoseconds in UTC.
type Series struct {
	name   string
	kind   Kind
	floats []float64
	ints   []int64
	strs   []string
}

// NewFloat creates a float column. The slice is not copied.
func NewFloat(name string, values []float64) *Series {
	return &Series{name: name, kind: Float, floats: values}
}

// NewInt creates an integer column. The slice is not copied.
func NewInt(name string, values []int64) *Series {
	return &Series{name: name, kind: Int, ints: values}
}

// NewTimeNanos creates a timestamp column from unix nanoseconds. The slice
// is not copied.
func NewTimeNanos(name string, nanos []int64) *Series {
	return &Series{name: name, kind: Time, ints: nanos}
}

// NewString creates a text column. The slice is not copied.
func NewString(name string, values []string) *Series {
	return &Series{name: name, kind: String, strs: values}
}

func (s *Series) Name() string { return s.name }
func (s *Series) Kind() Kind   { return s.kind }

// Len returns the number of rows.
func (s *Series) Len() int {
	switch s.kind {
	case Float:
		return len(s.floats)
	case String:
		return len(s.strs)
	default:
		return len(s.ints)
	}
}

// Float returns row i as a float64. Timestamps convert to unix seconds;
// unparseable text is NaN.
func (s *Series) Float(i int) float64 {
	switch s.kind {
	case Float:
		return s.floats[i]
	case Int:
		return float64(s.ints[i])
	case Time:
		return float64(s.ints[i] / int64(time.Second))
	default:
		v, err := strconv.ParseFloat(s.strs[i], 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}

// Int returns row i as an int64. Floats truncate, timestamps convert to
// unix seconds and unparseable text is 0.
func (s *Series) Int(i int) int64 {
	switch s.kind {
	case Float:
		return int64(s.floats[i])
	case Int:
		return s.ints[i]
	case Time:
		return s.ints[i] / int64(time.Second)
	default:
		v, err := strconv.ParseInt(s.strs[i], 10, 64)
		if err != nil {
			return 0
		}
		return v
	}
}

// TimeAt returns row i of a Time series. Other kinds return the zero time.
func (s *Series) TimeAt(i int) time.Time {
	if s.kind != Time {
		return time.Time{}
	}
	return time.Unix(0, s.ints[i]).UTC()
}

// Floats returns a fresh copy of the column as float64 values.
func (s *Series) Floats() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Float(i)
	}
	return out
}

// Format renders row i the way it is written to CSV. NaN becomes an empty
// cell.
func (s *Series) Format(i int) string {
	switch s.kind {
	case Float:
		v := s.floats[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case Int:
		return strconv.FormatInt(s.ints[i], 10)
	case Time:
		return s.TimeAt(i).Format(csvTimeLayout)
	default:
		return s.strs[i]
	}
}

func (s *Series) clone() *Series {
	c := &Series{name: s.name, kind: s.kind}
	if s.floats != nil {
		c.floats = append([]float64(nil), s.floats...)
	}
	if s.ints != nil {
		c.ints = append([]int64(nil), s.ints...)
	}
	if s.strs != nil {
		c.strs = append([]string(nil), s.strs...)
	}
	return c
}

func (s *Series) filter(keep []bool) *Series {
	c := &Series{name: s.name, kind: s.kind}
	for i, k := range keep {
		if !k {
			continue
		}
		switch s.kind {
		case Float:
			c.floats = append(c.floats, s.floats[i])
		case String:
			c.strs = append(c.strs, s.strs[i])
		default:
			c.ints = append(c.ints, s.ints[i])
		}
	}
	return c
}
