package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/invalidation"
	"github.com/commerce-platform/cache-coordinator/internal/warmup"
)

// Handler provides HTTP handlers for coordinator administration.
type Handler struct {
	coordinator *cache.Coordinator
	engine      *invalidation.Engine
	warmup      *warmup.Orchestrator
	broker      cache.Broker
	logger      *zap.Logger
}

// NewHandler creates the ops handler set.
func NewHandler(coordinator *cache.Coordinator, engine *invalidation.Engine, orchestrator *warmup.Orchestrator, broker cache.Broker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		coordinator: coordinator,
		engine:      engine,
		warmup:      orchestrator,
		broker:      broker,
		logger:      logger,
	}
}

// InvalidateRequest is the body for POST /api/v1/invalidations.
type InvalidateRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

// InvalidateResponse reports the regions cleared by an invalidation.
type InvalidateResponse struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	Regions    []string `json:"regions"`
}

// ErrorResponse is the common error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.coordinator.Health(r.Context())

	if h.broker != nil {
		if h.broker.Healthy() {
			status.BrokerStatus = "healthy"
		} else {
			status.BrokerStatus = "unavailable"
		}
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Regions handles GET /api/v1/regions.
func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.Statistics())
}

// ClearRegion handles DELETE /api/v1/regions/{region}.
func (h *Handler) ClearRegion(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	if err := h.coordinator.ClearRegion(r.Context(), region); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Evict handles DELETE /api/v1/regions/{region}/keys/{key}.
func (h *Handler) Evict(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	key := chi.URLParam(r, "key")

	if err := h.coordinator.Evict(r.Context(), region, key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WarmupRegion handles POST /api/v1/regions/{region}/warmup.
func (h *Handler) WarmupRegion(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")

	job, err := h.warmup.WarmupRegion(r.Context(), region)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// WarmupJobs handles GET /api/v1/warmup/jobs.
func (h *Handler) WarmupJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.warmup.Jobs())
}

// Invalidate handles POST /api/v1/invalidations.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.EntityType == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "entity_type is required"})
		return
	}

	if err := h.engine.InvalidateRelated(r.Context(), req.EntityType, req.EntityID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InvalidateResponse{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Regions:    h.engine.RegionsFor(req.EntityType),
	})
}

// Relationships handles GET /api/v1/relationships.
func (h *Handler) Relationships(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Relationships())
}

// ReconfigureRelationships handles PUT /api/v1/relationships.
func (h *Handler) ReconfigureRelationships(w http.ResponseWriter, r *http.Request) {
	var relationships map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&relationships); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if len(relationships) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "relationship map must not be empty"})
		return
	}

	// Reject references to regions that do not exist; a silent typo here
	// would leave a derived cache permanently stale.
	registry := h.coordinator.Registry()
	for entity, regions := range relationships {
		for _, region := range regions {
			if _, err := registry.Get(region); err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Error: "unknown region " + region + " for entity " + entity,
				})
				return
			}
		}
	}

	h.engine.Reconfigure(relationships)
	writeJSON(w, http.StatusOK, h.engine.Relationships())
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, cache.ToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}
