package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/metrics"
	"github.com/freeeve/showdown-bot/internal/model"
	"github.com/freeeve/showdown-bot/internal/repository"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

// DefaultExperienceLogPath is where the file recorder appends by default.
const DefaultExperienceLogPath = "data/experience_log.jsonl"

// TurnRecord is one line of the experience log.
type TurnRecord struct {
	MatchID      string                            `json:"match_id"`
	BattleTag    string                            `json:"battle_tag"`
	Turn         int                               `json:"turn"`
	SelectedMove string                            `json:"selected_move"`
	Position     PositionMetrics                   `json:"position"`
	Policy       map[battle.Choice]float64         `json:"policy"`
	Risk         map[battle.Choice]MoveRiskProfile `json:"risk,omitempty"`
	RecordedAt   time.Time                         `json:"recorded_at"`
}

// Recorder persists turn records. Implementations swallow their own errors.
type Recorder interface {
	Record(ctx context.Context, rec TurnRecord)
}

// FileRecorder appends records as JSON lines.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

// NewFileRecorder creates a recorder appending to path.
func NewFileRecorder(path string) *FileRecorder {
	if path == "" {
		path = DefaultExperienceLogPath
	}
	return &FileRecorder{path: path}
}

// Record implements Recorder.
func (r *FileRecorder) Record(_ context.Context, rec TurnRecord) {
	if err := r.write(rec); err != nil {
		metrics.ExperienceWriteErrors.WithLabelValues("file").Inc()
		log.Debug().Err(err).Str("path", r.path).Msg("Experience log write failed")
	}
}

func (r *FileRecorder) write(rec TurnRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode turn record: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open experience log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append experience log: %w", err)
	}
	return f.Close()
}

// StoreRecorder writes records to an experience repository.
type StoreRecorder struct {
	repo repository.ExperienceRepository
}

// NewStoreRecorder creates a StoreRecorder.
func NewStoreRecorder(repo repository.ExperienceRepository) *StoreRecorder {
	return &StoreRecorder{repo: repo}
}

// Record implements Recorder.
func (r *StoreRecorder) Record(ctx context.Context, rec TurnRecord) {
	exp, err := toExperience(rec)
	if err == nil {
		err = r.repo.InsertTurn(ctx, exp)
	}
	if err != nil {
		metrics.ExperienceWriteErrors.WithLabelValues("store").Inc()
		log.Debug().Err(err).Str("matchId", rec.MatchID).Int("turn", rec.Turn).Msg("Experience store write failed")
	}
}

func toExperience(rec TurnRecord) (*model.TurnExperience, error) {
	position, err := json.Marshal(rec.Position)
	if err != nil {
		return nil, fmt.Errorf("encode position: %w", err)
	}
	policy, err := json.Marshal(rec.Policy)
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	exp := &model.TurnExperience{
		MatchID:      rec.MatchID,
		BattleTag:    rec.BattleTag,
		Turn:         rec.Turn,
		SelectedMove: rec.SelectedMove,
		Position:     position,
		Policy:       policy,
	}
	if len(rec.Risk) > 0 {
		risk, err := json.Marshal(rec.Risk)
		if err != nil {
			return nil, fmt.Errorf("encode risk: %w", err)
		}
		exp.Risk = risk
	}
	return exp, nil
}

// MultiRecorder fans a record out to several recorders.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, rec TurnRecord) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, rec)
		}
	}
}
