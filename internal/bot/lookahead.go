package bot

import (
	"math"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	aggressiveOpponent   = 0.7
	aggressionDamageMult = 1.1
	setupWindowPenalty   = 0.2
	finisherLineBonus    = 0.3
	lineDamageScale      = 100.0
)

// opponentBestResponse estimates the strongest hit the opposing active unit
// can answer with, inflated against aggressive opponents.
func opponentBestResponse(st *battle.State, aggression float64) float64 {
	opp, user := st.Opponent.Active, st.User.Active
	if opp == nil || user == nil {
		return 0
	}
	best := 0.0
	for _, mv := range opp.Moves {
		if !mv.IsAttack() {
			continue
		}
		score := heuristicDamage(mv, opp, user) * mv.HitChance()
		if aggression > aggressiveOpponent {
			score *= aggressionDamageMult
		}
		best = math.Max(best, score)
	}
	return best
}

// EvaluateCandidateLines scores each candidate with a one-ply look at the
// exchange it leads to. Candidates without a risk profile are skipped.
func EvaluateCandidateLines(st *battle.State, candidates []battle.Choice, profile OpponentProfile,
	risk map[battle.Choice]MoveRiskProfile, m PositionMetrics) map[battle.Choice]float64 {
	out := make(map[battle.Choice]float64, len(candidates))
	if st == nil || st.User == nil || st.Opponent == nil {
		return out
	}
	oppDamage := opponentBestResponse(st, profile.Aggression)
	tempoBias := m.Tempo.Score - 0.5
	safetyPenalty := 0.0
	if m.Safety.OpponentSetupWindow {
		safetyPenalty = setupWindowPenalty
	}

	for _, c := range candidates {
		p, ok := risk[c]
		if !ok {
			continue
		}
		if c.IsSwitch() {
			out[c] = tempoBias - safetyPenalty
			continue
		}
		net := (p.ExpectedValue - oppDamage) / lineDamageScale
		variancePenalty := math.Sqrt(p.Variance) / lineDamageScale * (1 - profile.RiskTolerance)
		score := net + tempoBias - variancePenalty - safetyPenalty
		if p.Tag == TagFinisher {
			score += finisherLineBonus
		}
		out[c] = score
	}
	return out
}
