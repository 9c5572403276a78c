package serving

import (
	"errors"
	"testing"

	"github.com/saradindusengupta/mlops-workshop/contract"
)

var testRecord = contract.FeatureRecord{
	SepalLength: 5.1,
	SepalWidth:  3.5,
	PetalLength: 1.4,
	PetalWidth:  0.2,
}

func TestDispatcherPredict(t *testing.T) {
	state := NewState()
	state.Set(&stubClassifier{class: 0, probs: []float64{0.9, 0.07, 0.03}}, "latest")
	dispatcher := NewDispatcher(state, nil, nil)

	result, err := dispatcher.Predict(testRecord)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Prediction != 0 {
		t.Fatalf("unexpected prediction: %d", result.Prediction)
	}
	if result.PredictionLabel != "setosa" {
		t.Fatalf("unexpected label: %s", result.PredictionLabel)
	}
	if result.Confidence != 0.9 {
		t.Fatalf("unexpected confidence: %v", result.Confidence)
	}
	if result.ModelVersion != "latest" {
		t.Fatalf("unexpected version: %s", result.ModelVersion)
	}
}

func TestDispatcherConfidenceIsPredictedClassProbability(t *testing.T) {
	// A degenerate model whose decision disagrees with its own argmax: the
	// contract is "probability of the predicted class", not the maximum.
	state := NewState()
	state.Set(&stubClassifier{class: 1, probs: []float64{0.7, 0.2, 0.1}}, "latest")
	dispatcher := NewDispatcher(state, nil, nil)

	result, err := dispatcher.Predict(testRecord)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0.2 {
		t.Fatalf("confidence must be the predicted class probability, got %v", result.Confidence)
	}
}

func TestDispatcherUnknownClassLabel(t *testing.T) {
	state := NewState()
	state.Set(&stubClassifier{class: 7, probs: []float64{0.5, 0.3, 0.2}}, "latest")
	dispatcher := NewDispatcher(state, nil, nil)

	result, err := dispatcher.Predict(testRecord)
	if err != nil {
		t.Fatalf("unknown class must not fail the request: %v", err)
	}
	if result.PredictionLabel != "unknown" {
		t.Fatalf("expected unknown label, got %s", result.PredictionLabel)
	}
	if result.Confidence != 0 {
		t.Fatalf("no probability exists for an out-of-range class, got %v", result.Confidence)
	}
}

func TestDispatcherModelUnavailable(t *testing.T) {
	dispatcher := NewDispatcher(NewState(), nil, nil)
	if _, err := dispatcher.Predict(testRecord); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestDispatcherInferenceError(t *testing.T) {
	state := NewState()
	cause := errors.New("bad input shape")
	state.Set(&stubClassifier{err: cause}, "latest")
	dispatcher := NewDispatcher(state, nil, nil)

	_, err := dispatcher.Predict(testRecord)
	var inferenceErr *InferenceError
	if !errors.As(err, &inferenceErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("inference error must carry the underlying cause")
	}
}

type capturingPublisher struct {
	results []Result
}

func (c *capturingPublisher) PublishPrediction(result Result) {
	c.results = append(c.results, result)
}

func TestDispatcherPublishesEvents(t *testing.T) {
	state := NewState()
	state.Set(&stubClassifier{class: 2, probs: []float64{0.1, 0.2, 0.7}}, "latest")
	publisher := &capturingPublisher{}
	dispatcher := NewDispatcher(state, publisher, nil)

	if _, err := dispatcher.Predict(testRecord); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.results) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.results))
	}
	if publisher.results[0].PredictionLabel != "virginica" {
		t.Fatalf("unexpected event payload: %+v", publisher.results[0])
	}
}
