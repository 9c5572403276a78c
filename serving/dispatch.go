package serving

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/saradindusengupta/mlops-workshop/contract"
	"github.com/saradindusengupta/mlops-workshop/ml"
)

// ErrModelUnavailable is returned while the serving state is empty.
var ErrModelUnavailable = errors.New("model not loaded")

// InferenceError wraps a failure inside the model invocation itself.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Result is one labeled, confidence-scored prediction.
type Result struct {
	Prediction      int     `json:"prediction"`
	PredictionLabel string  `json:"prediction_label"`
	Confidence      float64 `json:"confidence"`
	ModelVersion    string  `json:"model_version"`
}

// EventPublisher receives each successful prediction, best-effort.
type EventPublisher interface {
	PublishPrediction(Result)
}

// Dispatcher turns one validated feature record into one prediction result
// using the currently loaded model.
type Dispatcher struct {
	state     *State
	publisher EventPublisher
	logger    *zap.Logger
}

func NewDispatcher(state *State, publisher EventPublisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		state:     state,
		publisher: publisher,
		logger:    logger,
	}
}

// Predict runs the loaded model on a validated record. Confidence is the
// probability of the predicted class, not the maximum of the vector.
func (d *Dispatcher) Predict(record contract.FeatureRecord) (Result, error) {
	model, version, ok := d.state.Model()
	if !ok {
		return Result{}, ErrModelUnavailable
	}

	vector := record.Vector()

	class, err := model.Predict(vector)
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}
	probabilities, err := model.PredictProba(vector)
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}

	confidence := 0.0
	if class >= 0 && class < len(probabilities) {
		confidence = probabilities[class]
	}

	result := Result{
		Prediction:      class,
		PredictionLabel: ml.SpeciesLabel(class),
		Confidence:      confidence,
		ModelVersion:    version,
	}

	d.logger.Info("prediction",
		zap.Int("class", result.Prediction),
		zap.String("label", result.PredictionLabel),
		zap.Float64("confidence", result.Confidence),
		zap.String("model_version", result.ModelVersion))

	if d.publisher != nil {
		d.publisher.PublishPrediction(result)
	}
	return result, nil
}
