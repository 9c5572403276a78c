package ml

import (
	"errors"
)

// LoadModel loads a servable model artifact from disk.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "decision_tree":
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, errors.New("unsupported model type")
	}
}
