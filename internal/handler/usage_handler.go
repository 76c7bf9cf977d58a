package handler

import (
	"net/http"

	"github.com/freeeve/showdown-bot/internal/auth"
	"github.com/freeeve/showdown-bot/internal/logger"
	"github.com/freeeve/showdown-bot/internal/repository"
)

// UsageHandler serves the usage statistics table.
type UsageHandler struct {
	repo repository.UsageRepository
}

// NewUsageHandler creates a UsageHandler.
func NewUsageHandler(repo repository.UsageRepository) *UsageHandler {
	return &UsageHandler{repo: repo}
}

// GetUsage handles GET /api/v1/usage/{format}/{unit}
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetUsage(r.Context(), r.PathValue("format"), r.PathValue("unit"))
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Str("clientId", auth.ClientIDFromContext(r.Context())).Msg("Usage lookup failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "no usage for unit")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
