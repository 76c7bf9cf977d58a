package bot

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// SwitchAdvice is a defensive switch recommendation.
type SwitchAdvice struct {
	ShouldSwitch bool
	Target       string
	Score        float64
	Reason       string
}

// RecommendSwitch decides whether the active unit should leave the field
// and, if so, which reserve unit takes the hit best.
func RecommendSwitch(st *battle.State) (SwitchAdvice, error) {
	if st == nil || st.User == nil || st.Opponent == nil || st.User.Active == nil || st.Opponent.Active == nil {
		return SwitchAdvice{}, ErrNoActive
	}
	if !shouldSwitchDefensively(st) {
		return SwitchAdvice{Reason: "current matchup acceptable"}, nil
	}

	opp := st.Opponent.Active
	best, bestScore := (*battle.Unit)(nil), -1.0
	for _, u := range st.User.AliveReserve() {
		score := defensiveMatchup(u, opp) * (0.5 + 0.5*u.HPRatio())
		if score > bestScore {
			best, bestScore = u, score
		}
	}
	if best == nil {
		return SwitchAdvice{Reason: "no switch options"}, nil
	}
	if bestScore > 0.6 || switchInSafe(opp, best) {
		log.Info().Str("target", best.Name).Float64("score", bestScore).Msg("Defensive switch recommended")
		return SwitchAdvice{ShouldSwitch: true, Target: best.Name, Score: bestScore, Reason: "better defensive matchup"}, nil
	}
	return SwitchAdvice{Score: bestScore, Reason: "switch options not significantly better"}, nil
}

func shouldSwitchDefensively(st *battle.State) bool {
	user, opp := st.User.Active, st.Opponent.Active
	if user.HPRatio() < 0.2 {
		return true
	}
	theirs := bestUsableEffectiveness(opp, user)
	if theirs >= 4 {
		return true
	}
	ours := bestUsableEffectiveness(user, opp)
	return ours <= 0.5 && theirs >= 2
}

// bestUsableEffectiveness is the best type multiplier among the attacker's
// usable attacking moves, 0 when it has none.
func bestUsableEffectiveness(attacker, defender *battle.Unit) float64 {
	best := 0.0
	for _, mv := range attacker.Moves {
		if !mv.Usable() || !mv.IsAttack() {
			continue
		}
		best = math.Max(best, battle.Effectiveness(mv.Type, defender.Types))
	}
	return best
}

// defensiveMatchup scores how well u absorbs opp's known attacks, in [0,1].
func defensiveMatchup(u, opp *battle.Unit) float64 {
	score := 0.5
	for _, mv := range opp.Moves {
		if !mv.Usable() || !mv.IsAttack() {
			continue
		}
		eff := battle.Effectiveness(mv.Type, u.Types)
		switch {
		case eff == 0:
			score += 0.3
		case eff < 0.5:
			score += 0.2
		case eff == 1:
			score += 0.05
		case eff >= 4:
			score -= 0.4
		case eff >= 2:
			score -= 0.2
		}
	}
	for _, ours := range u.Types {
		for _, theirs := range opp.Types {
			if battle.Effectiveness(ours, []string{theirs}) >= 2 {
				score += 0.1
			}
		}
	}
	return clamp01(score)
}

// switchInSafe is true when opp's strongest known hit is under half of the
// switch-in's current HP.
func switchInSafe(opp, u *battle.Unit) bool {
	if u.HP <= 0 {
		return false
	}
	worst := 0.0
	for _, mv := range opp.Moves {
		if !mv.Usable() || !mv.IsAttack() {
			continue
		}
		worst = math.Max(worst, float64(mv.BasePower)*battle.Effectiveness(mv.Type, u.Types))
	}
	return worst < float64(u.HP)*0.5
}

// ShouldStronglyConsiderSwitching flags a hopeless matchup: every usable
// attack is resisted, or the opponent carries a 4x hit.
func ShouldStronglyConsiderSwitching(st *battle.State) bool {
	if st == nil || st.User == nil || st.Opponent == nil || st.User.Active == nil || st.Opponent.Active == nil {
		return false
	}
	user, opp := st.User.Active, st.Opponent.Active
	ineffective := true
	for _, mv := range user.Moves {
		if mv.CurrentPP > 0 && mv.Category != battle.Status && battle.Effectiveness(mv.Type, opp.Types) >= 1 {
			ineffective = false
			break
		}
	}
	if ineffective {
		return true
	}
	for _, mv := range opp.Moves {
		if !mv.Disabled && battle.Effectiveness(mv.Type, user.Types) >= 4 {
			return true
		}
	}
	return false
}
