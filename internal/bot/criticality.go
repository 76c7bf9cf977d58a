package bot

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/metrics"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	maxCriticality       = 3.0
	ohkoBudgetMultiplier = 1.5
	timePressureClock    = 60
)

// Criticality is the search-effort multiplier for the position, in [1, 3].
func Criticality(st *battle.State, m PositionMetrics) float64 {
	if st == nil || st.TeamPreview || st.User == nil || st.Opponent == nil {
		return 1
	}
	c := 1.0
	switch userAlive := st.User.AliveCount(); {
	case userAlive <= 2:
		c *= 2
	case userAlive <= 3:
		c *= 1.5
	}
	if st.Opponent.AliveCount() <= 2 {
		c *= 1.3
	}
	if st.User.Active != nil && st.User.Active.MaxHP > 0 && st.User.Active.HPRatio() < 0.3 {
		c *= 1.5
	}
	if m.OppSweep >= 0.7 {
		c *= 1.8
	}
	if !m.HasWinCondition {
		c *= 1.3
	}
	if m.Momentum < 0.4 {
		c *= 1.2
	}
	return math.Max(1, math.Min(maxCriticality, c))
}

// OHKOThreat is an opposing move whose max roll knocks out the active unit.
type OHKOThreat struct {
	Move      string
	MinDamage float64
	MaxDamage float64
	CurrentHP int
}

// CheckOHKO asks calc how hard each of the opposing active unit's enabled
// moves hits the user's active unit and returns the ones that can knock it
// out from its current HP. Failed lookups are skipped.
func CheckOHKO(ctx context.Context, calc DamageCalculator, st *battle.State) []OHKOThreat {
	if calc == nil || st == nil || st.TeamPreview || st.User == nil || st.Opponent == nil {
		return nil
	}
	user, opp := st.User.Active, st.Opponent.Active
	if user == nil || opp == nil || user.HP <= 0 {
		return nil
	}

	var threats []OHKOThreat
	for _, mv := range opp.Moves {
		if mv.Disabled {
			continue
		}
		rng, err := calc.DamageRange(ctx, st, battle.OpponentSide, mv.Name)
		if err != nil {
			log.Debug().Err(err).Str("move", mv.Name).Msg("OHKO damage lookup failed")
			continue
		}
		if rng.Max >= float64(user.HP) {
			threats = append(threats, OHKOThreat{Move: mv.Name, MinDamage: rng.Min, MaxDamage: rng.Max, CurrentHP: user.HP})
			log.Warn().
				Str("attacker", opp.Name).
				Str("move", mv.Name).
				Float64("maxDamage", rng.Max).
				Int("hp", user.HP).
				Msg("OHKO threat detected")
		}
	}
	if len(threats) > 0 {
		metrics.OHKOThreats.Inc()
	}
	return threats
}

// SearchPlan is how many determinizations to search and the budget each gets.
type SearchPlan struct {
	Samples  int
	BudgetMs int
}

// PlanSearch sizes the search for the battle type. Hidden-information heavy
// positions get more samples; time pressure halves the sample multiplier.
func PlanSearch(st *battle.State, parallelism, budgetMs int) (SearchPlan, error) {
	if st == nil {
		return SearchPlan{}, errors.New("plan search: nil state")
	}
	if err := st.Type.Validate(); err != nil {
		return SearchPlan{}, err
	}
	parallelism = max(parallelism, 1)
	pressure := st.TimeRemaining != nil && *st.TimeRemaining <= timePressureClock

	oppMoves, oppAlive := 0, false
	if st.Opponent != nil && st.Opponent.Active != nil {
		oppMoves = len(st.Opponent.Active.Moves)
		oppAlive = st.Opponent.Active.HP > 0
	}

	mult := 2
	if pressure {
		mult = 1
	}
	switch st.Type {
	case battle.RandomBattle:
		revealed := 0
		if st.Opponent != nil {
			revealed = len(st.Opponent.Team())
		}
		if revealed <= 3 && oppAlive && oppMoves == 0 {
			mult = 4
			if pressure {
				mult = 2
			}
			return SearchPlan{Samples: parallelism * mult, BudgetMs: budgetMs / 2}, nil
		}
		return SearchPlan{Samples: parallelism * mult, BudgetMs: budgetMs}, nil
	default:
		if st.TeamPreview || (oppAlive && oppMoves == 0) || oppMoves < 3 {
			return SearchPlan{Samples: parallelism * mult, BudgetMs: budgetMs}, nil
		}
		return SearchPlan{Samples: parallelism, BudgetMs: budgetMs}, nil
	}
}

// ApplyOHKO raises the per-battle budget when a knockout threat exists.
func (p SearchPlan) ApplyOHKO(threats []OHKOThreat) SearchPlan {
	if len(threats) == 0 {
		return p
	}
	p.BudgetMs = int(float64(p.BudgetMs) * ohkoBudgetMultiplier)
	return p
}
