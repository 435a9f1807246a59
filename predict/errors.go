package predict

import (
	"errors"
	"fmt"

	"healthrisk/disease"
)

// ErrModelUnavailable is returned when no classifier is registered for the
// requested disease, either because loading failed or never happened.
var ErrModelUnavailable = errors.New("model unavailable")

// InferenceError reports a classifier that rejected its input or failed while
// running.
type InferenceError struct {
	Disease disease.Disease
	Cause   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference failed: %v", e.Disease, e.Cause)
}

func (e *InferenceError) Unwrap() error { return e.Cause }

// IsInferenceError reports whether err is or wraps an *InferenceError.
func IsInferenceError(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie)
}

// ErrorKind classifies err for metrics and presentation.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case IsInferenceError(err):
		return "inference_error"
	case errors.Is(err, disease.ErrUnknownDisease):
		return "unknown_disease"
	default:
		return "internal"
	}
}
