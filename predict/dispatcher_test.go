package predict

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"healthrisk/disease"
	"healthrisk/ml"
	"healthrisk/monitoring"
	"healthrisk/registry"
)

type fakeModel struct {
	label int
	err   error
	calls int32
}

func (f *fakeModel) Predict(features []float64) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.label, f.err
}

// staticModels is a ModelSource backed by a plain map.
type staticModels map[disease.Disease]ml.Classifier

func (s staticModels) Get(d disease.Disease) (ml.Classifier, bool) {
	m, ok := s[d]
	return m, ok
}

func allModels(m ml.Classifier) staticModels {
	out := staticModels{}
	for _, d := range disease.All() {
		out[d] = m
	}
	return out
}

func newDispatcher(t *testing.T, models ModelSource, opts Options) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(models, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestBinaryConventionForAllDiseases(t *testing.T) {
	tests := []struct {
		label int
		want  disease.Tag
	}{
		{1, disease.Positive},
		{0, disease.Negative},
		{2, disease.Negative},
	}
	for _, tt := range tests {
		dispatcher := newDispatcher(t, allModels(&fakeModel{label: tt.label}), Options{})
		for _, d := range disease.All() {
			outcome, err := dispatcher.Predict(context.Background(), d, d.Schema().Defaults())
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", d, err)
			}
			if outcome.Tag != tt.want {
				t.Fatalf("%s with raw %d: got %v, want %v", d, tt.label, outcome.Tag, tt.want)
			}
			if outcome.Disease != d || outcome.Message != d.Message(tt.want) {
				t.Fatalf("%s: unexpected outcome %+v", d, outcome)
			}
		}
	}
}

func TestPredictWithoutLoadIsUnavailable(t *testing.T) {
	reg := registry.New(registry.Options{
		Sources: registry.SourcesFromDir(t.TempDir()),
		Loader: func(src registry.Source) (ml.Classifier, error) {
			return &fakeModel{label: 1}, nil
		},
	})
	dispatcher := newDispatcher(t, reg, Options{})

	for _, d := range disease.All() {
		_, err := dispatcher.Predict(context.Background(), d, d.Schema().Defaults())
		if !errors.Is(err, ErrModelUnavailable) {
			t.Fatalf("%s: expected ErrModelUnavailable, got %v", d, err)
		}
	}
}

func TestPartialLoadIsolation(t *testing.T) {
	reg := registry.New(registry.Options{
		Sources: registry.SourcesFromDir("Models"),
		Loader: func(src registry.Source) (ml.Classifier, error) {
			if src.Disease == disease.Thyroid {
				return nil, errors.New("unpickling error")
			}
			return &fakeModel{label: 0}, nil
		},
		Isolated: true,
	})
	if _, err := reg.Load(); err == nil {
		t.Fatal("expected thyroid load error")
	}
	dispatcher := newDispatcher(t, reg, Options{})

	_, err := dispatcher.Predict(context.Background(), disease.Thyroid, disease.Thyroid.Schema().Defaults())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}

	outcome, err := dispatcher.Predict(context.Background(), disease.Diabetes, []float64{0, 100, 70, 20, 80, 25.0, 0.5, 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Tag != disease.Negative {
		t.Fatalf("expected NEGATIVE, got %v", outcome.Tag)
	}
}

func TestDiabetesScenario(t *testing.T) {
	dispatcher := newDispatcher(t, staticModels{disease.Diabetes: &fakeModel{label: 0}}, Options{})
	outcome, err := dispatcher.Predict(context.Background(), disease.Diabetes, []float64{0, 100, 70, 20, 80, 25.0, 0.5, 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Tag != disease.Negative {
		t.Fatalf("expected NEGATIVE, got %v", outcome.Tag)
	}
	if !strings.Contains(outcome.Message, "not likely to be diabetic") {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestHeartDiseaseScenario(t *testing.T) {
	dispatcher := newDispatcher(t, staticModels{disease.HeartDisease: &fakeModel{label: 1}}, Options{})
	outcome, err := dispatcher.Predict(context.Background(), disease.HeartDisease,
		[]float64{50, 1, 0, 120, 200, 0, 0, 150, 0, 1.0, 0, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Tag != disease.Positive {
		t.Fatalf("expected POSITIVE, got %v", outcome.Tag)
	}
	if !strings.Contains(outcome.Message, "high risk of heart disease") {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
}

func TestFieldOrderChangesOutcome(t *testing.T) {
	// positive only when glucose (position 1) exceeds blood pressure (position 2)
	positional := ml.ClassifierFunc(func(features []float64) (int, error) {
		if features[1] > features[2] {
			return 1, nil
		}
		return 0, nil
	})
	dispatcher := newDispatcher(t, staticModels{disease.Diabetes: positional}, Options{})

	ordered := []float64{0, 100, 70, 20, 80, 25.0, 0.5, 25}
	swapped := []float64{0, 70, 100, 20, 80, 25.0, 0.5, 25}

	a, err := dispatcher.Predict(context.Background(), disease.Diabetes, ordered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := dispatcher.Predict(context.Background(), disease.Diabetes, swapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Tag == b.Tag {
		t.Fatalf("swapping glucose and blood_pressure should change the outcome, both %v", a.Tag)
	}
}

func TestInferenceErrors(t *testing.T) {
	failing := &fakeModel{err: errors.New("X has 7 features, but classifier is expecting 8")}
	panicking := ml.ClassifierFunc(func(features []float64) (int, error) {
		panic("index 22 is out of bounds")
	})
	dispatcher := newDispatcher(t, staticModels{
		disease.Diabetes:   failing,
		disease.Parkinsons: panicking,
		disease.Thyroid:    &fakeModel{label: 1},
	}, Options{})

	_, err := dispatcher.Predict(context.Background(), disease.Diabetes, disease.Diabetes.Schema().Defaults())
	var ie *InferenceError
	if !errors.As(err, &ie) || ie.Disease != disease.Diabetes {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if !errors.Is(err, failing.err) {
		t.Fatal("InferenceError must carry the underlying cause")
	}

	_, err = dispatcher.Predict(context.Background(), disease.Parkinsons, disease.Parkinsons.Schema().Defaults())
	if !IsInferenceError(err) {
		t.Fatalf("expected InferenceError from panic, got %v", err)
	}

	_, err = dispatcher.Predict(context.Background(), disease.Thyroid, []float64{40, 0, 0})
	if !IsInferenceError(err) {
		t.Fatalf("expected InferenceError for short vector, got %v", err)
	}
	if ErrorKind(err) != "inference_error" {
		t.Fatalf("unexpected kind %q", ErrorKind(err))
	}
}

func TestUnknownDiseaseAndCancelledContext(t *testing.T) {
	dispatcher := newDispatcher(t, allModels(&fakeModel{label: 1}), Options{})

	if _, err := dispatcher.Predict(context.Background(), disease.Disease(42), nil); !errors.Is(err, disease.ErrUnknownDisease) {
		t.Fatalf("expected ErrUnknownDisease, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dispatcher.Predict(ctx, disease.Diabetes, disease.Diabetes.Schema().Defaults()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOutcomeCacheAndMetrics(t *testing.T) {
	model := &fakeModel{label: 1}
	collector := monitoring.NewMetricsCollector()
	dispatcher := newDispatcher(t, allModels(model), Options{
		CacheSize: 8,
		Metrics:   monitoring.NewPredictionMetrics(collector),
	})

	features := disease.LungCancer.Schema().Defaults()
	for i := 0; i < 3; i++ {
		if _, err := dispatcher.Predict(context.Background(), disease.LungCancer, features); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&model.calls); got != 1 {
		t.Fatalf("expected 1 classifier call with cache, got %d", got)
	}

	labels := map[string]string{"disease": "lung_cancer", "outcome": "POSITIVE"}
	if got := collector.Value(monitoring.MetricPredictions, labels); got != 3 {
		t.Fatalf("expected 3 recorded predictions, got %v", got)
	}
}
