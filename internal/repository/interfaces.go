package repository

import (
	"context"

	"github.com/freeeve/showdown-bot/internal/model"
)

// ExperienceRepository defines append-only storage for per-turn decisions.
type ExperienceRepository interface {
	InsertTurn(ctx context.Context, exp *model.TurnExperience) error
	ListByMatch(ctx context.Context, matchID string) ([]model.TurnExperience, error)
}

// UsageRepository defines read access to ladder usage statistics (Redis).
// GetUsage returns nil, nil when the unit has no entry.
type UsageRepository interface {
	GetUsage(ctx context.Context, format, unit string) (*model.UsageStats, error)
	SetUsage(ctx context.Context, format string, table model.UsageTable) error
}
