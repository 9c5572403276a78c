package ml

import (
	"math"
	"path/filepath"
	"testing"
)

// Small iris-like fixture: class 0 has short petals, class 1 medium, class 2 long.
func irisFixture() ([][]float64, []int) {
	features := [][]float64{
		{5.1, 3.5, 1.4, 0.2},
		{4.9, 3.0, 1.4, 0.2},
		{5.0, 3.6, 1.3, 0.3},
		{5.4, 3.9, 1.7, 0.4},
		{6.0, 2.7, 4.1, 1.3},
		{6.1, 2.9, 4.7, 1.4},
		{5.7, 2.8, 4.5, 1.3},
		{6.2, 2.2, 4.5, 1.5},
		{7.2, 3.0, 5.8, 1.6},
		{6.9, 3.1, 5.4, 2.1},
		{6.5, 3.0, 5.5, 1.8},
		{7.7, 3.8, 6.7, 2.2},
	}
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2}
	return features, labels
}

func TestDecisionTreeTrainPredict(t *testing.T) {
	features, labels := irisFixture()

	model := NewDecisionTree(5)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label, err := model.Predict([]float64{5.1, 3.5, 1.4, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}

	label, err = model.Predict([]float64{7.5, 3.2, 6.2, 2.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 2 {
		t.Fatalf("expected label 2, got %d", label)
	}
}

func TestDecisionTreePredictProba(t *testing.T) {
	features, labels := irisFixture()

	model := NewDecisionTree(5)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probabilities, err := model.PredictProba([]float64{5.1, 3.5, 1.4, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(probabilities) != 3 {
		t.Fatalf("expected 3 probabilities, got %d", len(probabilities))
	}

	sum := 0.0
	for _, p := range probabilities {
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range: %v", probabilities)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("probabilities should sum to 1, got %v", sum)
	}

	label, err := model.Predict([]float64{5.1, 3.5, 1.4, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	best := 0
	for class, p := range probabilities {
		if p > probabilities[best] {
			best = class
		}
	}
	if best != label {
		t.Fatalf("predicted class %d should carry the leaf majority, argmax was %d", label, best)
	}
}

func TestDecisionTreeSaveLoad(t *testing.T) {
	features, labels := irisFixture()

	model := NewDecisionTree(5)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "dt.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadModel("decision_tree", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, feature := range features {
		want, err := model.Predict(feature)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := loaded.Predict(feature)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want != got {
			t.Fatalf("sample %d: loaded model disagrees: %d vs %d", i, want, got)
		}
	}
}

func TestDecisionTreeUntrained(t *testing.T) {
	model := &DecisionTree{}
	if _, err := model.Predict([]float64{1, 2, 3, 4}); err == nil {
		t.Fatal("expected error from untrained model")
	}
	if _, err := model.PredictProba([]float64{1, 2, 3, 4}); err == nil {
		t.Fatal("expected error from untrained model")
	}
}

func TestLoadModelUnsupportedType(t *testing.T) {
	if _, err := LoadModel("random_forest", "nope"); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}
