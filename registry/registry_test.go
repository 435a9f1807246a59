package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/multierr"

	"healthrisk/disease"
	"healthrisk/ml"
)

type constModel struct{ label int }

func (c *constModel) Predict(features []float64) (int, error) { return c.label, nil }

func fakeSources() []Source {
	sources := make([]Source, 0, len(disease.All()))
	for _, d := range disease.All() {
		sources = append(sources, Source{Disease: d, Path: "mem://" + d.String()})
	}
	return sources
}

func countingLoader(calls *int32, fail map[disease.Disease]bool) Loader {
	return func(src Source) (ml.Classifier, error) {
		atomic.AddInt32(calls, 1)
		if fail[src.Disease] {
			return nil, errors.New("corrupt model file")
		}
		return &constModel{label: 1}, nil
	}
}

func TestGetBeforeLoad(t *testing.T) {
	reg := New(Options{Sources: fakeSources(), Loader: countingLoader(new(int32), nil)})
	if _, ok := reg.Get(disease.Diabetes); ok {
		t.Fatal("expected no model before Load")
	}
	if reg.Loaded() {
		t.Fatal("registry should not report loaded")
	}
}

func TestLoadIsMemoized(t *testing.T) {
	var calls int32
	reg := New(Options{Sources: fakeSources(), Loader: countingLoader(&calls, nil)})

	first, err := reg.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("expected 5 models, got %d", len(first))
	}
	second, err := reg.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("expected 5 loader calls, got %d", got)
	}
	for d, m := range first {
		if second[d] != m {
			t.Fatalf("%s: second Load returned a different classifier", d)
		}
		got, ok := reg.Get(d)
		if !ok || got != m {
			t.Fatalf("%s: Get returned a different classifier", d)
		}
	}
}

func TestStrictLoadFailsAsAWhole(t *testing.T) {
	var calls int32
	reg := New(Options{
		Sources: fakeSources(),
		Loader:  countingLoader(&calls, map[disease.Disease]bool{disease.Thyroid: true}),
	})

	models, err := reg.Load()
	if err == nil {
		t.Fatal("expected load error")
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Disease != disease.Thyroid {
		t.Fatalf("expected thyroid LoadError, got %v", err)
	}
	if len(models) != 0 {
		t.Fatalf("strict load must not return partial models, got %d", len(models))
	}
	if _, ok := reg.Get(disease.Diabetes); ok {
		t.Fatal("diabetes must be unavailable after a strict load failure")
	}

	for _, record := range reg.Status() {
		if record.Loaded {
			t.Fatalf("%s: record should not be loaded", record.Disease)
		}
	}
}

func TestIsolatedLoadKeepsHealthyModels(t *testing.T) {
	var calls int32
	reg := New(Options{
		Sources:  fakeSources(),
		Loader:   countingLoader(&calls, map[disease.Disease]bool{disease.Thyroid: true, disease.Parkinsons: true}),
		Isolated: true,
	})

	models, err := reg.Load()
	if err == nil {
		t.Fatal("expected load error to be surfaced")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("expected 2 aggregated errors, got %d", n)
	}
	if len(models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(models))
	}
	if _, ok := reg.Get(disease.Thyroid); ok {
		t.Fatal("thyroid must be unavailable")
	}
	if _, ok := reg.Get(disease.Diabetes); !ok {
		t.Fatal("diabetes must still be available")
	}
}

func TestMissingSourceAndPanickingLoader(t *testing.T) {
	sources := fakeSources()[:4] // no thyroid source
	reg := New(Options{
		Sources: sources,
		Loader: func(src Source) (ml.Classifier, error) {
			if src.Disease == disease.LungCancer {
				panic("boom")
			}
			return &constModel{}, nil
		},
		Isolated: true,
	})

	_, err := reg.Load()
	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", err)
	}
	if _, ok := reg.Get(disease.Diabetes); !ok {
		t.Fatal("diabetes should load")
	}
}

func writeStump(t *testing.T, path string) {
	t.Helper()
	body := `[{"feature_idx":0,"threshold":0.5,"left_child":1,"right_child":2,"is_leaf":false},
		{"feature_idx":-1,"left_child":-1,"right_child":-1,"class_label":0,"is_leaf":true},
		{"feature_idx":-1,"left_child":-1,"right_child":-1,"class_label":1,"is_leaf":true}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileLoaderFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range DefaultFiles {
		writeStump(t, filepath.Join(dir, name))
	}

	reg := New(Options{Sources: SourcesFromDir(dir)})
	if _, err := reg.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, record := range reg.Status() {
		if !record.Loaded || record.Checksum == "" {
			t.Fatalf("%s: expected loaded record with checksum, got %+v", record.Disease, record)
		}
	}
}

func TestWatcherMarksStaleWithoutReload(t *testing.T) {
	dir := t.TempDir()
	for _, name := range DefaultFiles {
		writeStump(t, filepath.Join(dir, name))
	}

	reg := New(Options{Sources: SourcesFromDir(dir)})
	if _, err := reg.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, _ := reg.Get(disease.Diabetes)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := reg.Watch(ctx)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer func() {
		cancel()
		w.Wait()
	}()

	writeStump(t, filepath.Join(dir, DefaultFiles[disease.Diabetes]))

	select {
	case d := <-w.Changed():
		if d != disease.Diabetes {
			t.Fatalf("expected diabetes change, got %s", d)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for file change")
	}

	for _, record := range reg.Status() {
		if record.Disease == disease.Diabetes && !record.Stale {
			t.Fatal("diabetes record should be stale")
		}
		if record.Disease == disease.Thyroid && record.Stale {
			t.Fatal("thyroid record should not be stale")
		}
	}

	after, _ := reg.Get(disease.Diabetes)
	if after != before {
		t.Fatal("classifier must not be reloaded on change")
	}
}

func TestShippedModels(t *testing.T) {
	reg := New(Options{Sources: SourcesFromDir(filepath.Join("..", "Models"))})
	models, err := reg.Load()
	if err != nil {
		t.Fatalf("shipped models failed to load: %v", err)
	}
	if len(models) != len(disease.All()) {
		t.Fatalf("expected %d models, got %d", len(disease.All()), len(models))
	}

	diabetes, _ := reg.Get(disease.Diabetes)
	high, err := diabetes.Predict([]float64{2, 180, 70, 20, 80, 30, 0.5, 45})
	if err != nil || high != 1 {
		t.Fatalf("expected positive for high glucose, got %d (%v)", high, err)
	}
	low, err := diabetes.Predict([]float64{2, 95, 70, 20, 80, 30, 0.5, 45})
	if err != nil || low != 0 {
		t.Fatalf("expected negative for normal glucose, got %d (%v)", low, err)
	}
}
