package model

import (
	"encoding/json"
	"time"
)

// TurnExperience is one persisted decision: the position snapshot, the final
// policy and the per-move risk profiles for a single turn of a match.
type TurnExperience struct {
	ID           int64           `json:"id,omitempty"`
	MatchID      string          `json:"match_id"`
	BattleTag    string          `json:"battle_tag"`
	Turn         int             `json:"turn"`
	SelectedMove string          `json:"selected_move"`
	Position     json.RawMessage `json:"position"`
	Policy       json.RawMessage `json:"policy"`
	Risk         json.RawMessage `json:"risk,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MoveUsage is a move and the fraction of sets that carry it.
type MoveUsage struct {
	Move   string  `json:"move"`
	Weight float64 `json:"weight"`
}

// TypeUsage is a tera type and the fraction of sets that use it.
type TypeUsage struct {
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// UsageStats is the aggregate ladder usage for one unit in one format.
type UsageStats struct {
	Moves     []MoveUsage `json:"moves"`
	RawCount  float64     `json:"raw_count"`
	TeraTypes []TypeUsage `json:"tera_types"`
}

// UsageTable maps unit names to their usage statistics.
type UsageTable map[string]UsageStats
