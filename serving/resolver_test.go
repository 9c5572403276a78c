package serving

import (
	"errors"
	"testing"

	"github.com/saradindusengupta/mlops-workshop/ml"
	"github.com/saradindusengupta/mlops-workshop/registry"
)

type stubClassifier struct {
	class int
	probs []float64
	err   error
}

func (s *stubClassifier) Predict(features []float64) (int, error) {
	return s.class, s.err
}

func (s *stubClassifier) PredictProba(features []float64) ([]float64, error) {
	return s.probs, s.err
}

type stubRegistry struct {
	aliasRun   registry.Run
	aliasErr   error
	hasExp     bool
	expErr     error
	runs       []registry.Run
	listErr    error
	model      ml.Classifier
	loadErr    error
	loadCalled int
}

func (s *stubRegistry) ResolveAlias(alias string) (registry.Run, error) {
	return s.aliasRun, s.aliasErr
}

func (s *stubRegistry) ExperimentExists(name string) (bool, error) {
	return s.hasExp, s.expErr
}

func (s *stubRegistry) ListRuns(experiment string, limit int) ([]registry.Run, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubRegistry) LoadArtifact(run registry.Run) (ml.Classifier, error) {
	s.loadCalled++
	return s.model, s.loadErr
}

func TestResolverAliasSuccess(t *testing.T) {
	reg := &stubRegistry{
		aliasRun: registry.Run{ID: "abcdef1234567890"},
		model:    &stubClassifier{},
	}
	resolver := NewResolver(reg, "iris-classification", "latest", nil)
	state := NewState()

	if err := resolver.Resolve(state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, version, ok := state.Model()
	if !ok {
		t.Fatal("state should be populated")
	}
	if version != "latest" {
		t.Fatalf("alias resolution must tag with the alias literal, got %q", version)
	}
}

func TestResolverFallsBackToLatestRun(t *testing.T) {
	reg := &stubRegistry{
		aliasErr: registry.ErrNotFound,
		hasExp:   true,
		runs:     []registry.Run{{ID: "abcdef1234567890"}},
		model:    &stubClassifier{},
	}
	resolver := NewResolver(reg, "iris-classification", "latest", nil)
	state := NewState()

	if err := resolver.Resolve(state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, version, ok := state.Model()
	if !ok {
		t.Fatal("state should be populated")
	}
	if version != "abcdef1" {
		t.Fatalf("fallback must tag with the first 7 chars of the run id, got %q", version)
	}
}

func TestResolverExperimentMissing(t *testing.T) {
	reg := &stubRegistry{
		aliasErr: errors.New("registry unreachable"),
		hasExp:   false,
	}
	resolver := NewResolver(reg, "iris-classification", "latest", nil)
	state := NewState()

	err := resolver.Resolve(state)
	if err == nil {
		t.Fatal("expected terminal failure")
	}
	if state.Loaded() {
		t.Fatal("state must stay empty on terminal failure")
	}
	if reg.loadCalled != 0 {
		t.Fatal("no artifact load should be attempted")
	}
}

func TestResolverNoRuns(t *testing.T) {
	reg := &stubRegistry{
		aliasErr: registry.ErrNotFound,
		hasExp:   true,
		runs:     nil,
	}
	resolver := NewResolver(reg, "iris-classification", "latest", nil)
	state := NewState()

	if err := resolver.Resolve(state); err == nil {
		t.Fatal("expected terminal failure for empty experiment")
	}
	if state.Loaded() {
		t.Fatal("state must stay empty")
	}
}

func TestResolverCorruptAliasArtifactFallsBack(t *testing.T) {
	// Alias resolves but its artifact cannot be loaded; the run fallback
	// still has to be attempted.
	reg := &stubRegistry{
		aliasRun: registry.Run{ID: "brokenrun9999999"},
		hasExp:   true,
		runs:     []registry.Run{{ID: "abcdef1234567890"}},
		model:    &stubClassifier{},
	}
	reg.loadErr = errors.New("artifact corrupt")
	resolver := NewResolver(reg, "iris-classification", "latest", nil)
	state := NewState()

	err := resolver.Resolve(state)
	if err == nil {
		t.Fatal("expected failure while every load fails")
	}
	if reg.loadCalled != 2 {
		t.Fatalf("expected both strategies to attempt a load, got %d", reg.loadCalled)
	}
}

func TestStateSetOnce(t *testing.T) {
	state := NewState()
	if !state.Set(&stubClassifier{}, "latest") {
		t.Fatal("first set should win")
	}
	if state.Set(&stubClassifier{}, "other") {
		t.Fatal("second set must be rejected")
	}
	_, version, _ := state.Model()
	if version != "latest" {
		t.Fatalf("unexpected version %q", version)
	}
}

func TestStateEmpty(t *testing.T) {
	state := NewState()
	if state.Loaded() {
		t.Fatal("new state must be empty")
	}
	model, version, ok := state.Model()
	if ok || model != nil || version != "" {
		t.Fatal("empty state must return the zero pair")
	}
}
