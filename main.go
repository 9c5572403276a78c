package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	qhttp "github.com/saradindusengupta/mlops-workshop/http"
	"github.com/saradindusengupta/mlops-workshop/logging"
	"github.com/saradindusengupta/mlops-workshop/monitoring"
	"github.com/saradindusengupta/mlops-workshop/registry"
	"github.com/saradindusengupta/mlops-workshop/serving"
)

type Config struct {
	Http     qhttp.ServerConfig `yaml:"http"`
	Registry registry.Config    `yaml:"registry"`
	Log      logging.Config     `yaml:"log"`
}

func defaultConfig() Config {
	return Config{
		Http: qhttp.DefaultServerConfig(),
		Registry: registry.Config{
			Path:        "./mlruns/registry.db",
			ArtifactDir: "./mlruns/artifacts",
			Experiment:  "iris-classification",
			Alias:       "latest",
		},
		Log: logging.Config{Level: "info"},
	}
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		// The config file is optional for the demo; defaults serve.
		config = defaultConfig()
	}
	// The registry location can always be overridden from the environment.
	if path := os.Getenv("REGISTRY_PATH"); path != "" {
		config.Registry.Path = path
	}

	logger := logging.NewLogger(config.Log)
	defer logger.Sync()

	logger.Info("starting iris classification service",
		zap.String("registry", config.Registry.Path),
		zap.String("experiment", config.Registry.Experiment))

	store, err := registry.Open(config.Registry, logger)
	if err != nil {
		logger.Fatal("failed to open registry", zap.Error(err))
	}
	defer store.Close()

	// Resolve exactly once, before any request is accepted. A failure is
	// absorbed: the service stays up and answers 503 until a restart finds
	// a servable model.
	state := serving.NewState()
	resolver := serving.NewResolver(store, config.Registry.Experiment, config.Registry.Alias, logger)
	if err := resolver.Resolve(state); err != nil {
		logger.Error("model resolution failed, serving in degraded mode", zap.Error(err))
	}

	hub := monitoring.NewHub(logger)
	go hub.Run()

	dispatcher := serving.NewDispatcher(state, hub, logger)
	api := qhttp.NewAPI(state, dispatcher, hub, logger)

	server := qhttp.NewServer(config.Http, api)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	logger.Info("exiting")
}

func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return config, err
	}
	return config, nil
}
