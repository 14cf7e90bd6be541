package store_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ftviz/internal/frame"
	"ftviz/internal/store"
	"ftviz/internal/store/storetest"
)

func sampleCandles(t *testing.T) *frame.Frame {
	t.Helper()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start, start.Add(5 * time.Minute), start.Add(10 * time.Minute)}
	f, err := frame.New(
		storetest.Times("date", dates...),
		frame.NewFloat("open", []float64{100, 101, 102}),
		frame.NewFloat("high", []float64{105, 106, 107}),
		frame.NewFloat("low", []float64{95, 96, 97}),
		frame.NewFloat("close", []float64{101, 102, 103}),
		frame.NewFloat("volume", []float64{1000, 2000, 3000}),
	)
	if err != nil {
		t.Fatalf("building frame: %v", err)
	}
	return f
}

func assertCandles(t *testing.T, got *frame.Frame) {
	t.Helper()
	want := sampleCandles(t)
	if got.Len() != want.Len() {
		t.Fatalf("rows = %d, want %d", got.Len(), want.Len())
	}
	date, ok := got.Series("date")
	if !ok {
		t.Fatalf("missing date column, have %v", got.Columns())
	}
	if date.Kind() != frame.Time {
		t.Errorf("date kind = %s, want time", date.Kind())
	}
	wantDate, _ := want.Series("date")
	for i := 0; i < want.Len(); i++ {
		if !date.TimeAt(i).Equal(wantDate.TimeAt(i)) {
			t.Errorf("date[%d] = %v, want %v", i, date.TimeAt(i), wantDate.TimeAt(i))
		}
	}
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		g, err := got.Floats(name)
		if err != nil {
			t.Fatalf("Floats(%s): %v", name, err)
		}
		w, _ := want.Floats(name)
		for i := range w {
			if g[i] != w[i] {
				t.Errorf("%s[%d] = %v, want %v", name, i, g[i], w[i])
			}
		}
	}
}

func TestFeatherWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binance", "BTC_USDT-5m.feather")
	if err := storetest.WriteFeather(path, sampleCandles(t)); err != nil {
		t.Fatalf("WriteFeather: %v", err)
	}

	got, err := store.ReadFeather(path)
	if err != nil {
		t.Fatalf("ReadFeather: %v", err)
	}
	assertCandles(t, got)
}

func TestFeatherNaNRoundTripsAsNull(t *testing.T) {
	f, err := frame.New(
		frame.NewInt("time", []int64{1, 2}),
		frame.NewFloat("rsi", []float64{math.NaN(), 55.5}),
		frame.NewString("tag", []string{"a", "b"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "x.feather")
	if err := storetest.WriteFeather(path, f); err != nil {
		t.Fatalf("WriteFeather: %v", err)
	}

	got, err := store.ReadFeather(path)
	if err != nil {
		t.Fatalf("ReadFeather: %v", err)
	}
	rsi, _ := got.Floats("rsi")
	if !math.IsNaN(rsi[0]) || rsi[1] != 55.5 {
		t.Errorf("rsi = %v, want [NaN 55.5]", rsi)
	}
	tag, _ := got.Series("tag")
	if tag.Kind() != frame.String || tag.Format(1) != "b" {
		t.Errorf("tag column not preserved: kind=%s", tag.Kind())
	}
	tm, _ := got.Series("time")
	if tm.Kind() != frame.Int || tm.Int(1) != 2 {
		t.Errorf("time column not preserved: kind=%s", tm.Kind())
	}
}

func TestParquetWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binance", "BTC_USDT-5m.parquet")
	if err := storetest.WriteParquet(path, sampleCandles(t)); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}

	got, err := store.ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	assertCandles(t, got)
}

func TestReadTableDispatch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(csvPath, []byte("time,close\n1,2.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := store.ReadTable(csvPath)
	if err != nil {
		t.Fatalf("ReadTable csv: %v", err)
	}
	if got.Len() != 1 || !got.Has("close") {
		t.Errorf("unexpected csv table: %v", got.Columns())
	}

	featherPath := filepath.Join(dir, "a.feather")
	if err := storetest.WriteFeather(featherPath, sampleCandles(t)); err != nil {
		t.Fatal(err)
	}
	if got, err := store.ReadTable(featherPath); err != nil || got.Len() != 3 {
		t.Errorf("ReadTable feather: err=%v", err)
	}

	if _, err := store.ReadTable(filepath.Join(dir, "a.json")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestCandidatesOrder(t *testing.T) {
	got := store.Candidates("/d/binance", "BTC/USDT", "5m")
	want := []string{
		"BTCUSDT-5m.feather",
		"BTC_USDT-5m.feather",
		"BTCUSDT-5m.parquet",
		"BTC_USDT-5m.parquet",
		"BTCUSDT-5m.csv",
		"BTC_USDT-5m.csv",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.Path != filepath.Join("/d/binance", want[i]) {
			t.Errorf("candidate %d = %s, want %s", i, c.Path, want[i])
		}
	}
}

func TestFirstExistingPriority(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	touch("BTC_USDT-5m.csv")
	touch("BTCUSDT-5m.csv")
	c, err := store.FirstExisting(store.Candidates(dir, "BTC/USDT", "5m"))
	if err != nil {
		t.Fatalf("FirstExisting: %v", err)
	}
	if filepath.Base(c.Path) != "BTCUSDT-5m.csv" {
		t.Errorf("picked %s, want BTCUSDT-5m.csv", c.Path)
	}

	touch("BTC_USDT-5m.feather")
	c, err = store.FirstExisting(store.Candidates(dir, "BTC/USDT", "5m"))
	if err != nil {
		t.Fatalf("FirstExisting: %v", err)
	}
	if filepath.Base(c.Path) != "BTC_USDT-5m.feather" || c.Format != store.FormatFeather {
		t.Errorf("picked %s (%s), want the feather file", c.Path, c.Format)
	}
}

func TestFirstExistingNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := store.FirstExisting(store.Candidates(dir, "ETH/BTC", "1h"))
	if !errors.Is(err, store.ErrDataFileNotFound) {
		t.Fatalf("err = %v, want store.ErrDataFileNotFound", err)
	}
	if !strings.Contains(err.Error(), "ETHBTC-1h.feather") {
		t.Errorf("error should list the searched paths: %v", err)
	}
}

func TestSQLiteStoreRuns(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history", "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	first, err := s.StartRun(ctx, "bot_a", "SimpleVisualRSI", "convert")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := s.FinishRun(ctx, first, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	second, err := s.StartRun(ctx, "bot_a", "SimpleVisualRSI", "extract")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := s.FinishRun(ctx, second, errors.New("exit status 1")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if _, err := s.StartRun(ctx, "bot_b", "SMACross", "backtest"); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	runs, err := s.ListRuns(ctx, "bot_a", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Step != "extract" || runs[0].Status != store.RunFailed || runs[0].Detail != "exit status 1" {
		t.Errorf("newest run = %+v", runs[0])
	}
	if runs[1].Step != "convert" || runs[1].Status != store.RunOK || runs[1].FinishedAt.IsZero() {
		t.Errorf("oldest run = %+v", runs[1])
	}

	limited, err := s.ListRuns(ctx, "bot_a", 1)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second {
		t.Errorf("limit not applied: %+v", limited)
	}

	pending, err := s.ListRuns(ctx, "bot_b", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != store.RunRunning || !pending[0].FinishedAt.IsZero() {
		t.Errorf("running step = %+v", pending)
	}
}
