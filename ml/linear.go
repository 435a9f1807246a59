package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LinearModel is a linear decision function: label 1 when w·x + b > 0.
type LinearModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (lm *LinearModel) Predict(features []float64) (int, error) {
	if len(lm.Weights) == 0 {
		return 0, errors.New("model not loaded")
	}
	if len(features) != len(lm.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lm.Weights), len(features))
	}
	score := lm.Bias
	for i, w := range lm.Weights {
		score += w * features[i]
	}
	if score > 0 {
		return 1, nil
	}
	return 0, nil
}

func (lm *LinearModel) Save(path string) error {
	if len(lm.Weights) == 0 {
		return errors.New("model not loaded")
	}
	payload, err := json.Marshal(lm)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (lm *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var model LinearModel
	if err := json.Unmarshal(payload, &model); err != nil {
		return fmt.Errorf("decode linear model: %w", err)
	}
	if len(model.Weights) == 0 {
		return errors.New("linear model has no weights")
	}
	*lm = model
	return nil
}
