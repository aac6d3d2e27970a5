package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/services"
)

const maxRequestBytes = 8 << 20

// Handler exposes the analytics service over HTTP JSON.
type Handler struct {
	logger  *slog.Logger
	service *services.AnalyticsService
}

// NewHandler constructs the HTTP handler set.
func NewHandler(logger *slog.Logger, service *services.AnalyticsService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Routes returns the configured request mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analyze", h.handleAnalyze)
	mux.HandleFunc("/api/v1/health", h.handleHealth)
	return mux
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.service == nil {
		writeError(w, http.StatusServiceUnavailable, "analytics service not configured")
		return
	}

	var wireReq AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&wireReq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, events, err := wireReq.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var result models.AnalysisResult
	if events != nil {
		result, err = h.service.Analyze(r.Context(), req, events)
	} else {
		result, err = h.service.AnalyzeOwner(r.Context(), req)
	}
	if err != nil {
		h.logger.Error("analyze request failed",
			slog.String("owner", req.OwnerEmail),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := HealthResponse{Status: "SERVING"}
	if h.service != nil {
		if p95 := h.service.LatencyP95(); p95 > 0 {
			resp.LatencyP95 = p95.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
