package ml

import (
	"fmt"
)

const (
	TypeDecisionTree = "decision_tree"
	TypeLinear       = "linear"
)

// LoadModel deserializes the classifier stored at path.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case TypeDecisionTree, "":
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case TypeLinear:
		model := &LinearModel{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
