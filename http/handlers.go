package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/saradindusengupta/mlops-workshop/contract"
	"github.com/saradindusengupta/mlops-workshop/monitoring"
	"github.com/saradindusengupta/mlops-workshop/serving"
)

const (
	serviceName    = "Iris Classification API"
	serviceVersion = "1.0.0"

	maxRequestBody = 1 << 20
)

// API bundles the handlers with their collaborators.
type API struct {
	state      *serving.State
	dispatcher *serving.Dispatcher
	hub        *monitoring.Hub
	logger     *zap.Logger
}

func NewAPI(state *serving.State, dispatcher *serving.Dispatcher, hub *monitoring.Hub, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		state:      state,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
	}
}

// Register mounts the service endpoints. Status codes are part of the
// contract: 422 for validation, 503 while no model is loaded, 500 for
// inference failures.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /contract", a.handleContract)
	mux.HandleFunc("POST /predict", a.handlePredict)
	if a.hub != nil {
		mux.HandleFunc("GET /ws/predictions", a.hub.HandleWS)
	}
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"health":      "/health",
			"predict":     "/predict",
			"contract":    "/contract",
			"predictions": "/ws/predictions",
		},
	})
}

type healthResponse struct {
	Status       string  `json:"status"`
	ModelLoaded  bool    `json:"model_loaded"`
	ModelVersion *string `json:"model_version"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, version, ok := a.state.Model()
	if !ok {
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:      "unhealthy",
			ModelLoaded: false,
		})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		ModelLoaded:  true,
		ModelVersion: &version,
	})
}

func (a *API) handleContract(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, contract.DescribeSchema())
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	record, err := contract.ParseRequest(body)
	if err != nil {
		var validationErr *contract.ValidationError
		if errors.As(err, &validationErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "validation failed",
				"detail": validationErr,
			})
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := a.dispatcher.Predict(record)
	if err != nil {
		switch {
		case errors.Is(err, serving.ErrModelUnavailable):
			respondError(w, http.StatusServiceUnavailable, "model not loaded, service is unavailable")
		default:
			a.logger.Error("prediction error",
				zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
