package ml

// Classifier is a pre-trained binary decision function. Implementations are
// immutable once loaded and safe for concurrent use.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(features []float64) (int, error)

func (f ClassifierFunc) Predict(features []float64) (int, error) {
	return f(features)
}
