package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/config"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

// QueryHandler exposes the pipeline, the validator and the execution
// gateway over JSON endpoints.
type QueryHandler struct {
	pipeline *services.QueryService
	gateway  *services.ExecutionGateway
	cfg      *config.Config
	logger   *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(pipeline *services.QueryService, gateway *services.ExecutionGateway, cfg *config.Config, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		pipeline: pipeline,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger.Named("handlers.query"),
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/query", h.Query)
	mux.HandleFunc("/api/validate", h.Validate)
	mux.HandleFunc("/api/execute", h.Execute)
}

// Query handles POST /api/query: runs the full pipeline for a question.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	resp := h.pipeline.RunQuery(r.Context(), req.Question, services.QueryOptions{
		AgentType:       req.AgentType,
		TopK:            h.cfg.Retrieval.TopK,
		SchemaInjection: h.cfg.Retrieval.SchemaInjection,
		SQLValidation:   h.cfg.Retrieval.SQLValidation,
	})

	status := http.StatusOK
	if resp.Error != nil && resp.Error.Code == models.ErrCodeEmptyQuestion {
		status = http.StatusBadRequest
	}

	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// Validate handles POST /api/validate: ad-hoc safety verdict for SQL.
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "sql is required")
		return
	}

	verdict := h.pipeline.Validate(req.SQL)
	if err := WriteJSON(w, http.StatusOK, verdict); err != nil {
		h.logger.Error("Failed to encode verdict", zap.Error(err))
	}
}

// Execute handles POST /api/execute: gated execution of SQL.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "sql is required")
		return
	}

	opts := services.ExecuteOptions{
		DryRun:         req.DryRun,
		MaxBytesBilled: h.cfg.Warehouse.MaxBytesBilled,
		Timeout:        time.Duration(h.cfg.Warehouse.QueryTimeoutSeconds) * time.Second,
	}

	var result any
	if len(req.Params) > 0 {
		result = h.gateway.ExecuteWithParams(r.Context(), req.SQL, req.Params, opts)
	} else {
		result = h.gateway.Execute(r.Context(), req.SQL, opts)
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode execution result", zap.Error(err))
	}
}
