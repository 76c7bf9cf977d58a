package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/freeeve/showdown-bot/internal/auth"
	"github.com/freeeve/showdown-bot/internal/logger"
	"github.com/freeeve/showdown-bot/internal/repository"
)

// ExperienceHandler serves recorded turn experience.
type ExperienceHandler struct {
	repo repository.ExperienceRepository
}

// NewExperienceHandler creates an ExperienceHandler.
func NewExperienceHandler(repo repository.ExperienceRepository) *ExperienceHandler {
	return &ExperienceHandler{repo: repo}
}

// ListByMatch handles GET /api/v1/matches/{id}/experience
func (h *ExperienceHandler) ListByMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	if _, err := uuid.Parse(matchID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	turns, err := h.repo.ListByMatch(r.Context(), matchID)
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Str("clientId", auth.ClientIDFromContext(r.Context())).Msg("Experience lookup failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turns == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, turns)
}
