package serving

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/saradindusengupta/mlops-workshop/ml"
	"github.com/saradindusengupta/mlops-workshop/registry"
)

// Registry is the artifact-registry collaborator the resolver needs.
type Registry interface {
	ResolveAlias(alias string) (registry.Run, error)
	ExperimentExists(name string) (bool, error)
	ListRuns(experiment string, limit int) ([]registry.Run, error)
	LoadArtifact(run registry.Run) (ml.Classifier, error)
}

// shortRunIDLen truncates run identifiers for the version tag; readability
// over full traceability.
const shortRunIDLen = 7

// strategy is one way of locating a servable model.
type strategy struct {
	name    string
	resolve func() (ml.Classifier, string, error)
}

// Resolver locates a servable model at startup by walking an ordered list of
// strategies and stopping at the first success.
type Resolver struct {
	registry   Registry
	experiment string
	alias      string
	logger     *zap.Logger
}

func NewResolver(reg Registry, experiment, alias string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry:   reg,
		experiment: experiment,
		alias:      alias,
		logger:     logger,
	}
}

// Resolve runs the strategies in order and publishes the first successful
// result into state. A total failure leaves state empty; the caller is
// expected to keep serving in degraded mode.
func (r *Resolver) Resolve(state *State) error {
	strategies := []strategy{
		{name: "registry_alias", resolve: r.resolveAlias},
		{name: "latest_run", resolve: r.resolveLatestRun},
	}

	var lastErr error
	for _, strat := range strategies {
		r.logger.Info("resolving model", zap.String("strategy", strat.name))
		model, version, err := strat.resolve()
		if err != nil {
			r.logger.Warn("model resolution strategy failed",
				zap.String("strategy", strat.name), zap.Error(err))
			lastErr = err
			continue
		}
		if !state.Set(model, version) {
			return errors.New("serving state already populated")
		}
		r.logger.Info("model loaded",
			zap.String("strategy", strat.name), zap.String("version", version))
		return nil
	}
	return fmt.Errorf("all resolution strategies failed: %w", lastErr)
}

// resolveAlias loads the model the configured registry alias points at. The
// version tag is the alias literal.
func (r *Resolver) resolveAlias() (ml.Classifier, string, error) {
	run, err := r.registry.ResolveAlias(r.alias)
	if err != nil {
		return nil, "", err
	}
	model, err := r.registry.LoadArtifact(run)
	if err != nil {
		return nil, "", err
	}
	return model, r.alias, nil
}

// resolveLatestRun falls back to the most recent run of the configured
// experiment. The version tag is the truncated run id.
func (r *Resolver) resolveLatestRun() (ml.Classifier, string, error) {
	exists, err := r.registry.ExperimentExists(r.experiment)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", fmt.Errorf("experiment %q not found, run train_model first", r.experiment)
	}

	runs, err := r.registry.ListRuns(r.experiment, 1)
	if err != nil {
		return nil, "", err
	}
	if len(runs) == 0 {
		return nil, "", fmt.Errorf("no runs found in experiment %q", r.experiment)
	}

	run := runs[0]
	model, err := r.registry.LoadArtifact(run)
	if err != nil {
		return nil, "", err
	}

	version := run.ID
	if len(version) > shortRunIDLen {
		version = version[:shortRunIDLen]
	}
	return model, version, nil
}
