package frame

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		NewTimeNanos("date", []int64{
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano(),
			time.Date(2023, 1, 1, 0, 5, 0, 0, time.UTC).UnixNano(),
			time.Date(2023, 1, 1, 0, 10, 0, 0, time.UTC).UnixNano(),
		}),
		NewFloat("open", []float64{1, 2, 3}),
		NewFloat("close", []float64{1.5, 2.5, 3.5}),
	)
	require.NoError(t, err)
	return f
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New(NewFloat("a", []float64{1, 2}), NewFloat("b", []float64{1}))
	assert.Error(t, err)

	_, err = New(NewFloat("a", []float64{1}), NewFloat("a", []float64{2}))
	assert.Error(t, err)
}

func TestSetReplacesInPlace(t *testing.T) {
	f := sampleFrame(t)
	require.NoError(t, f.SetFloats("open", []float64{9, 9, 9}))
	assert.Equal(t, []string{"date", "open", "close"}, f.Columns())

	open, err := f.Floats("open")
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9, 9}, open)

	require.NoError(t, f.SetFloats("rsi", []float64{50, 60, 70}))
	assert.Equal(t, []string{"date", "open", "close", "rsi"}, f.Columns())
}

func TestCopyIsDeep(t *testing.T) {
	f := sampleFrame(t)
	c := f.Copy()
	require.NoError(t, c.SetFloats("extra", []float64{0, 0, 0}))

	s, _ := c.Series("open")
	s.floats[0] = 100

	assert.False(t, f.Has("extra"))
	open, _ := f.Floats("open")
	assert.Equal(t, 1.0, open[0])
}

func TestFilter(t *testing.T) {
	f := sampleFrame(t)
	out, err := f.Filter([]bool{false, true, true})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())

	closes, _ := out.Floats("close")
	assert.Equal(t, []float64{2.5, 3.5}, closes)

	_, err = f.Filter([]bool{true})
	assert.Error(t, err)
}

func TestSelectMissingColumn(t *testing.T) {
	f := sampleFrame(t)
	_, err := f.Select("date", "volume")
	assert.ErrorIs(t, err, ErrColumnMissing)

	out, err := f.Select("close", "date")
	require.NoError(t, err)
	assert.Equal(t, []string{"close", "date"}, out.Columns())
	assert.Equal(t, 3, out.Len())
}

func TestLowerColumns(t *testing.T) {
	f, err := New(NewFloat("Open", []float64{1}), NewFloat("CLOSE", []float64{2}))
	require.NoError(t, err)
	require.NoError(t, f.LowerColumns())
	assert.Equal(t, []string{"open", "close"}, f.Columns())
	assert.True(t, f.Has("close"))

	f, err = New(NewFloat("Close", []float64{1}), NewFloat("close", []float64{2}))
	require.NoError(t, err)
	assert.Error(t, f.LowerColumns())
}

func TestEnsureTimeFromDate(t *testing.T) {
	f := sampleFrame(t)
	require.NoError(t, f.EnsureTime())

	ts, ok := f.Series("time")
	require.True(t, ok)
	assert.Equal(t, Int, ts.Kind())
	assert.Equal(t, int64(1672531200), ts.Int(0))
	assert.Equal(t, int64(1672531200+600), ts.Int(2))
}

func TestEnsureTimeMissing(t *testing.T) {
	f, err := New(NewFloat("close", []float64{1}))
	require.NoError(t, err)
	assert.ErrorIs(t, f.EnsureTime(), ErrColumnMissing)
}

func TestEnsureTimeKeepsExisting(t *testing.T) {
	f, err := New(NewInt("time", []int64{42}), NewString("date", []string{"garbage"}))
	require.NoError(t, err)
	require.NoError(t, f.EnsureTime())

	ts, _ := f.Series("time")
	assert.Equal(t, int64(42), ts.Int(0))
}

func TestEnsureTimeNormalizesExisting(t *testing.T) {
	tests := []struct {
		name string
		time *Series
	}{
		{"timestamp", NewTimeNanos("time", []int64{1672531200e9, 1672531500e9})},
		{"float", NewFloat("time", []float64{1672531200, 1672531500})},
		{"datetime text", NewString("time", []string{"2023-01-01 00:00:00+00:00", "2023-01-01 00:05:00"})},
		{"numeric text", NewString("time", []string{"1672531200", "1672531500.0"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.time)
			require.NoError(t, err)
			require.NoError(t, f.EnsureTime())

			ts, _ := f.Series("time")
			assert.Equal(t, Int, ts.Kind())
			assert.Equal(t, int64(1672531200), ts.Int(0))
			assert.Equal(t, int64(1672531500), ts.Int(1))
		})
	}
}

func TestEnsureTimeRejectsUnparseable(t *testing.T) {
	f, err := New(NewString("time", []string{"2023-01-01 00:00:00", "soon"}))
	require.NoError(t, err)
	err = f.EnsureTime()
	require.Error(t, err)
	assert.ErrorContains(t, err, "row 1")

	f, err = New(NewFloat("time", []float64{1, math.NaN()}))
	require.NoError(t, err)
	assert.Error(t, f.EnsureTime())
}

func TestDateToUnixFromText(t *testing.T) {
	f, err := New(NewString("date", []string{"2023-01-02 00:00:00+00:00", "2023-01-02T01:00:00Z"}))
	require.NoError(t, err)

	ts, err := f.DateToUnix()
	require.NoError(t, err)
	assert.Equal(t, int64(1672617600), ts.Int(0))
	assert.Equal(t, int64(1672617600+3600), ts.Int(1))
}

func TestCSVRoundTrip(t *testing.T) {
	in := "date,open,volume,note\n" +
		"2023-01-01 00:00:00+00:00,1.5,10,a\n" +
		"2023-01-01 00:05:00+00:00,,20,b\n"

	f, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	kinds := map[string]Kind{}
	for _, name := range f.Columns() {
		s, _ := f.Series(name)
		kinds[name] = s.Kind()
	}
	assert.Equal(t, map[string]Kind{"date": Time, "open": Float, "volume": Int, "note": String}, kinds)

	open, _ := f.Floats("open")
	assert.True(t, math.IsNaN(open[1]))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, in, buf.String())
}

func TestWriteCSVFileCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	f, err := New(NewInt("time", []int64{1, 2}), NewFloat("rsi", []float64{math.NaN(), 55.25}))
	require.NoError(t, err)
	require.NoError(t, WriteCSVFile(path, f))

	back, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "rsi"}, back.Columns())

	rsi, _ := back.Floats("rsi")
	assert.True(t, math.IsNaN(rsi[0]))
	assert.Equal(t, 55.25, rsi[1])
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{
		"2023-01-01 00:00:00+00:00",
		"2023-01-01T00:00:00Z",
		"2023-01-01 00:00:00",
		"2023-01-01",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, int64(1672531200), got.Unix(), s)
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}
