// Package registry is the artifact registry: a sqlite-backed store of
// training runs, their metrics, and named aliases pointing at servable
// artifacts on disk.
package registry

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/saradindusengupta/mlops-workshop/ml"
)

// Config locates the registry and names what the service resolves from it.
type Config struct {
	Path        string `yaml:"path"`
	ArtifactDir string `yaml:"artifact_dir"`
	Experiment  string `yaml:"experiment"`
	Alias       string `yaml:"alias"`
}

// ErrNotFound is returned when an alias or run does not exist.
var ErrNotFound = errors.New("registry: not found")

// Run is one recorded training execution.
type Run struct {
	ID           string
	Experiment   string
	StartTime    time.Time
	Accuracy     float64
	Precision    float64
	Recall       float64
	DataPoints   int
	ArtifactPath string
}

// Store owns the registry database and a small cache of loaded artifacts.
type Store struct {
	db     *sql.DB
	config Config
	cache  *lru.Cache[string, ml.Classifier]
	logger *zap.Logger

	watchDone chan struct{}
}

const artifactCacheSize = 8

// Open opens (creating if needed) the registry at config.Path and starts the
// artifact-directory watcher.
func Open(config Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(config.ArtifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS experiments (
        name VARCHAR(100) PRIMARY KEY,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS runs (
        run_id VARCHAR(40) PRIMARY KEY,
        experiment VARCHAR(100) NOT NULL,
        start_time DATETIME NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        data_points INTEGER,
        artifact_path TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS aliases (
        alias VARCHAR(100) PRIMARY KEY,
        run_id VARCHAR(40) NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry tables: %w", err)
	}

	cache, err := lru.New[string, ml.Classifier](artifactCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		db:     db,
		config: config,
		cache:  cache,
		logger: logger,
	}
	store.startWatcher()
	return store, nil
}

// Close stops the watcher and closes the database.
func (s *Store) Close() error {
	if s.watchDone != nil {
		close(s.watchDone)
	}
	return s.db.Close()
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// ArtifactPath returns where the artifact for a run is stored.
func (s *Store) ArtifactPath(runID string) string {
	return filepath.Join(s.config.ArtifactDir, runID+".json")
}

// CreateRun records a run and its metrics, registering the experiment on
// first use.
func (s *Store) CreateRun(run Run) error {
	if run.ID == "" || run.Experiment == "" {
		return errors.New("run id and experiment are required")
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO experiments (name) VALUES (?)`, run.Experiment); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, experiment, start_time, accuracy, precision, recall, data_points, artifact_path)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Experiment, run.StartTime, run.Accuracy, run.Precision, run.Recall, run.DataPoints, run.ArtifactPath,
	)
	return err
}

// SetAlias points an alias at a run, replacing any previous target.
func (s *Store) SetAlias(alias, runID string) error {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("alias target run %s: %w", runID, ErrNotFound)
	}
	_, err := s.db.Exec(
		`INSERT INTO aliases (alias, run_id, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
         ON CONFLICT(alias) DO UPDATE SET run_id = excluded.run_id, updated_at = CURRENT_TIMESTAMP`,
		alias, runID,
	)
	return err
}

// ResolveAlias returns the run an alias points at.
func (s *Store) ResolveAlias(alias string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT r.run_id, r.experiment, r.start_time, r.accuracy, r.precision, r.recall, r.data_points, r.artifact_path
         FROM aliases a JOIN runs r ON r.run_id = a.run_id
         WHERE a.alias = ?`, alias)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("alias %q: %w", alias, ErrNotFound)
	}
	return run, err
}

// ExperimentExists reports whether an experiment has been registered.
func (s *Store) ExperimentExists(name string) (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM experiments WHERE name = ?`, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRuns returns up to limit runs of an experiment, most recent first.
func (s *Store) ListRuns(experiment string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT run_id, experiment, start_time, accuracy, precision, recall, data_points, artifact_path
         FROM runs WHERE experiment = ?
         ORDER BY start_time DESC LIMIT ?`, experiment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadArtifact loads the servable model attached to a run, consulting the
// artifact cache first.
func (s *Store) LoadArtifact(run Run) (ml.Classifier, error) {
	if model, ok := s.cache.Get(run.ID); ok {
		return model, nil
	}
	model, err := ml.LoadModel("decision_tree", run.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("load artifact for run %s: %w", run.ID, err)
	}
	s.cache.Add(run.ID, model)
	return model, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Experiment, &run.StartTime,
		&run.Accuracy, &run.Precision, &run.Recall, &run.DataPoints, &run.ArtifactPath)
	return run, err
}
