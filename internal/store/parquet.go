package store

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"ftviz/internal/frame"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// CandleRecord is the Parquet schema for engine candle files.
type CandleRecord struct {
	Date   int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// ReadParquet reads a candle Parquet file into a frame with columns
// date, open, high, low, close, volume.
func ReadParquet(path string) (*frame.Frame, error) {
	records, err := readParquetFile[CandleRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet %s: %w", path, err)
	}

	n := len(records)
	dates := make([]int64, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, r := range records {
		dates[i] = time.UnixMilli(r.Date).UnixNano()
		open[i] = r.Open
		high[i] = r.High
		low[i] = r.Low
		closes[i] = r.Close
		volume[i] = r.Volume
	}

	return frame.New(
		frame.NewTimeNanos("date", dates),
		frame.NewFloat("open", open),
		frame.NewFloat("high", high),
		frame.NewFloat("low", low),
		frame.NewFloat("close", closes),
		frame.NewFloat("volume", volume),
	)
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
