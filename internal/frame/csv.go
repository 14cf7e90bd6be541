package frame

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadCSV parses a delimited table with a header row. Column kinds are
// inferred: integers, then floats (empty cells become NaN), then a "date"
// column of timestamps, otherwise text.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading CSV: no header row")
	}

	header := records[0]
	rows := records[1:]

	series := make([]*Series, len(header))
	for c, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cells[i] = row[c]
		}
		series[c] = inferSeries(strings.TrimSpace(name), cells)
	}
	return New(series...)
}

// ReadCSVFile reads a CSV table from path.
func ReadCSVFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fr, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

func inferSeries(name string, cells []string) *Series {
	if ints, ok := parseInts(cells); ok {
		return NewInt(name, ints)
	}
	if floats, ok := parseFloats(cells); ok {
		return NewFloat(name, floats)
	}
	if strings.EqualFold(name, "date") {
		if s, ok := parseTimes(name, cells); ok {
			return s
		}
	}
	return NewString(name, cells)
}

func parseInts(cells []string) ([]int64, bool) {
	if len(cells) == 0 {
		return nil, false
	}
	out := make([]int64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseTimes(name string, cells []string) (*Series, bool) {
	ns := make([]int64, len(cells))
	for i, c := range cells {
		t, err := ParseTime(c)
		if err != nil {
			return nil, false
		}
		ns[i] = t.UnixNano()
	}
	return &Series{name: name, kind: Time, ints: ns}, true
}

// WriteCSV writes the frame with a header row.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return err
	}

	row := make([]string, len(f.series))
	for i := 0; i < f.rows; i++ {
		for c, s := range f.series {
			row[c] = s.Format(i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the frame to path, creating parent directories and
// replacing any existing file.
func WriteCSVFile(path string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV %s: %w", path, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if err := WriteCSV(w, f); err != nil {
		return fmt.Errorf("writing CSV %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing CSV %s: %w", path, err)
	}
	return out.Close()
}
