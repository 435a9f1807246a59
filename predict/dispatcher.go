// Package predict routes feature vectors to the registered classifier of a
// disease and maps the raw decision to a fixed outcome.
package predict

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"healthrisk/disease"
	"healthrisk/ml"
	"healthrisk/monitoring"
)

// ModelSource resolves the classifier of a disease.
type ModelSource interface {
	Get(d disease.Disease) (ml.Classifier, bool)
}

type Options struct {
	// CacheSize bounds the in-memory outcome cache; zero disables it.
	CacheSize int
	Metrics   *monitoring.PredictionMetrics
	Logger    *zap.Logger
}

// Dispatcher makes one synchronous classifier call per prediction.
type Dispatcher struct {
	models  ModelSource
	cache   *lru.Cache[string, disease.Outcome]
	metrics *monitoring.PredictionMetrics
	logger  *zap.Logger
}

func NewDispatcher(models ModelSource, opts Options) (*Dispatcher, error) {
	d := &Dispatcher{
		models:  models,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, disease.Outcome](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create outcome cache: %w", err)
		}
		d.cache = cache
	}
	return d, nil
}

// Predict classifies features for dis. Features must follow the disease's
// schema order. Errors are ErrModelUnavailable, *InferenceError,
// disease.ErrUnknownDisease or a context error; no partial outcome is ever
// returned alongside an error.
func (d *Dispatcher) Predict(ctx context.Context, dis disease.Disease, features []float64) (disease.Outcome, error) {
	if !dis.Valid() {
		return disease.Outcome{}, fmt.Errorf("%w: %s", disease.ErrUnknownDisease, dis)
	}
	if err := ctx.Err(); err != nil {
		return disease.Outcome{}, err
	}

	model, ok := d.models.Get(dis)
	if !ok || model == nil {
		d.metrics.RecordError(dis.String(), "model_unavailable")
		return disease.Outcome{}, fmt.Errorf("%w: %s", ErrModelUnavailable, dis)
	}

	schema := dis.Schema()
	if len(features) != schema.Len() {
		err := &InferenceError{
			Disease: dis,
			Cause:   fmt.Errorf("expected %d features (%s), got %d", schema.Len(), strings.Join(schema.Names(), ", "), len(features)),
		}
		d.metrics.RecordError(dis.String(), "inference_error")
		return disease.Outcome{}, err
	}

	key := cacheKey(dis, features)
	if d.cache != nil {
		if outcome, ok := d.cache.Get(key); ok {
			d.metrics.RecordOutcome(dis.String(), outcome.Tag.String(), 0)
			return outcome, nil
		}
	}

	start := time.Now()
	raw, err := invoke(model, features)
	elapsed := time.Since(start)
	if err != nil {
		d.metrics.RecordError(dis.String(), "inference_error")
		d.logger.Warn("inference failed", zap.String("disease", dis.String()), zap.Error(err))
		return disease.Outcome{}, &InferenceError{Disease: dis, Cause: err}
	}

	outcome := dis.Interpret(raw)
	d.metrics.RecordOutcome(dis.String(), outcome.Tag.String(), elapsed)
	d.logger.Debug("prediction",
		zap.String("disease", dis.String()),
		zap.Int("raw", raw),
		zap.Stringer("outcome", outcome.Tag),
		zap.Duration("elapsed", elapsed))

	if d.cache != nil {
		d.cache.Add(key, outcome)
	}
	return outcome, nil
}

// invoke calls the classifier on a private copy of the vector and turns a
// panic into an error.
func invoke(model ml.Classifier, features []float64) (raw int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("classifier panic: %v", p)
		}
	}()
	vector := append([]float64(nil), features...)
	return model.Predict(vector)
}

func cacheKey(dis disease.Disease, features []float64) string {
	var b strings.Builder
	b.WriteString(dis.String())
	for _, f := range features {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return b.String()
}
