package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ftviz/internal/frame"
	"ftviz/internal/userdata"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name   string
	config bool
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) PopulateIndicators(_ context.Context, df *frame.Frame, _ Metadata) (*frame.Frame, error) {
	return df, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stubFactory(name string) Factory {
	return Factory{
		Name: name,
		New:  func() (Strategy, error) { return &stubStrategy{name: name}, nil },
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(stubFactory("test-strategy"))

	f, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	s, err := f.New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if s.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", s.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(stubFactory("beta"))
	r.Register(stubFactory("alpha"))

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestInstantiatePrefersConfig(t *testing.T) {
	f := Factory{
		Name: "cfg",
		New:  func() (Strategy, error) { return &stubStrategy{name: "cfg"}, nil },
		NewWithConfig: func(cfg *userdata.BotConfig) (Strategy, error) {
			return &stubStrategy{name: "cfg", config: true}, nil
		},
	}

	s, err := Instantiate(f, &userdata.BotConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Instantiate returned error: %v", err)
	}
	if !s.(*stubStrategy).config {
		t.Error("Instantiate should use the config-aware constructor when present")
	}
}

func TestInstantiateFallsBackWithoutConfig(t *testing.T) {
	f := Factory{
		Name: "fallback",
		New:  func() (Strategy, error) { return &stubStrategy{name: "fallback"}, nil },
		NewWithConfig: func(cfg *userdata.BotConfig) (Strategy, error) {
			return nil, errors.New("bad config")
		},
	}

	s, err := Instantiate(f, &userdata.BotConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("Instantiate returned error: %v", err)
	}
	if s.(*stubStrategy).config {
		t.Error("Instantiate should fall back to the no-argument constructor")
	}
}

func TestInstantiateNoConfigConstructor(t *testing.T) {
	s, err := Instantiate(stubFactory("plain"), nil, discardLogger())
	if err != nil {
		t.Fatalf("Instantiate returned error: %v", err)
	}
	if s.Name() != "plain" {
		t.Errorf("Name() = %q, want plain", s.Name())
	}
}

func TestInstantiateFails(t *testing.T) {
	f := Factory{
		Name:          "broken",
		New:           func() (Strategy, error) { return nil, errors.New("boom") },
		NewWithConfig: func(cfg *userdata.BotConfig) (Strategy, error) { return nil, errors.New("bad config") },
	}
	if _, err := Instantiate(f, nil, discardLogger()); !errors.Is(err, ErrInstantiate) {
		t.Errorf("Instantiate error = %v, want ErrInstantiate", err)
	}

	onlyConfig := Factory{
		Name:          "config-only",
		NewWithConfig: func(cfg *userdata.BotConfig) (Strategy, error) { return nil, errors.New("bad config") },
	}
	if _, err := Instantiate(onlyConfig, nil, discardLogger()); !errors.Is(err, ErrInstantiate) {
		t.Errorf("Instantiate error = %v, want ErrInstantiate", err)
	}
}

func writeSource(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

const rsiSource = `from freqtrade.strategy import IStrategy

class SimpleVisualRSI(IStrategy):
    timeframe = '5m'
`

func TestFindFileMatchesDeclaration(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, "a_other.py"), "class Helper(object):\n    pass\n")
	writeSource(t, filepath.Join(dir, "nested", "rsi.py"), rsiSource)

	got, err := FindFile("SimpleVisualRSI", dir, true)
	if err != nil {
		t.Fatalf("FindFile returned error: %v", err)
	}
	if want := filepath.Join(dir, "nested", "rsi.py"); got != want {
		t.Errorf("FindFile = %q, want %q", got, want)
	}

	// Non-recursive search does not descend into nested/.
	if _, err := FindFile("SimpleVisualRSI", dir, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindFile(non-recursive) error = %v, want ErrNotFound", err)
	}
}

func TestFindFileFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, "b.py"), rsiSource)
	writeSource(t, filepath.Join(dir, "a.py"), rsiSource)

	got, err := FindFile("SimpleVisualRSI", dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "a.py"); got != want {
		t.Errorf("FindFile = %q, want %q", got, want)
	}
}

func TestFindFileRequiresBaseClass(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, "x.py"), "class SimpleVisualRSI(object):\n    pass\n")
	writeSource(t, filepath.Join(dir, "y.py"), "class SimpleVisualRSIv2(IStrategy):\n    pass\n")
	writeSource(t, filepath.Join(dir, "notes.txt"), rsiSource)

	if _, err := FindFile("SimpleVisualRSI", dir, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindFile error = %v, want ErrNotFound", err)
	}
}

func TestFindFileMissingDir(t *testing.T) {
	_, err := FindFile("Anything", filepath.Join(t.TempDir(), "missing"), true)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindFile error = %v, want ErrNotFound", err)
	}
}

func TestListClasses(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, "rsi.py"), rsiSource)
	writeSource(t, filepath.Join(dir, "more", "multi.py"),
		"class B(IStrategy):\n    pass\n\nclass A(SomeMixin, IStrategy):\n    pass\n\nclass Util:\n    pass\n")
	writeSource(t, filepath.Join(dir, "dup.py"), rsiSource)

	got, err := ListClasses(dir)
	if err != nil {
		t.Fatalf("ListClasses returned error: %v", err)
	}
	want := []string{"A", "B", "SimpleVisualRSI"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListClasses = %v, want %v", got, want)
	}
}
