// Package serving holds the loaded-model state, the startup model
// resolution, and the prediction dispatch logic.
package serving

import (
	"sync/atomic"

	"github.com/saradindusengupta/mlops-workshop/ml"
)

// loadedModel pairs a handle with its version tag. The pair is published as
// one pointer so readers always observe both fields or neither.
type loadedModel struct {
	model   ml.Classifier
	version string
}

// State is the process-wide holder of the serving model. It starts empty and
// is set at most once, before request traffic begins; afterwards it is
// read-only.
type State struct {
	current atomic.Pointer[loadedModel]
}

func NewState() *State {
	return &State{}
}

// Set publishes a model and its version tag. Only the first call wins.
func (s *State) Set(model ml.Classifier, version string) bool {
	return s.current.CompareAndSwap(nil, &loadedModel{model: model, version: version})
}

// Model returns the loaded model and version, or ok=false while empty.
func (s *State) Model() (ml.Classifier, string, bool) {
	loaded := s.current.Load()
	if loaded == nil {
		return nil, "", false
	}
	return loaded.model, loaded.version, true
}

// Loaded reports whether a model has been published.
func (s *State) Loaded() bool {
	return s.current.Load() != nil
}
