package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/showdown-bot/internal/model"
)

// ExperienceRepo implements repository.ExperienceRepository.
type ExperienceRepo struct {
	db *sql.DB
}

// NewExperienceRepo creates an ExperienceRepo.
func NewExperienceRepo(db *sql.DB) *ExperienceRepo {
	return &ExperienceRepo{db: db}
}

// InsertTurn appends one decision row and fills in its ID and timestamp.
func (r *ExperienceRepo) InsertTurn(ctx context.Context, exp *model.TurnExperience) error {
	var risk any
	if len(exp.Risk) > 0 {
		risk = []byte(exp.Risk)
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO turn_experience (match_id, battle_tag, turn, selected_move, position, policy, risk)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		exp.MatchID, exp.BattleTag, exp.Turn, exp.SelectedMove,
		[]byte(exp.Position), []byte(exp.Policy), risk,
	).Scan(&exp.ID, &exp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn experience: %w", err)
	}
	return nil
}

// ListByMatch returns a match's decisions in turn order.
func (r *ExperienceRepo) ListByMatch(ctx context.Context, matchID string) ([]model.TurnExperience, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, battle_tag, turn, selected_move, position, policy, risk, created_at
		 FROM turn_experience WHERE match_id = $1 ORDER BY turn, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list turn experience: %w", err)
	}
	defer rows.Close()

	var out []model.TurnExperience
	for rows.Next() {
		var (
			e    model.TurnExperience
			risk sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.MatchID, &e.BattleTag, &e.Turn, &e.SelectedMove,
			&e.Position, &e.Policy, &risk, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn experience: %w", err)
		}
		if risk.Valid {
			e.Risk = []byte(risk.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
