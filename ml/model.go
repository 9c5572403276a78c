// Package ml holds the servable model types and the iris dataset loader.
package ml

// Classifier is the capability a loaded model must provide: a class decision
// and the full class-probability vector for the same input.
type Classifier interface {
	Predict(features []float64) (int, error)
	PredictProba(features []float64) ([]float64, error)
}
