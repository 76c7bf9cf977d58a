package bot

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	leadSetupBonus  = 15.0
	leadHazardBonus = 10.0
	leadSpeedBonus  = 5.0
)

// ChooseLead scores every reserve unit against the opposing roster and
// returns a switch to the best one's 1-based preview slot, numbered the way
// battle.LegalChoices numbers them. Opponents are weighted by
// their predicted lead probability when report carries one.
func ChooseLead(st *battle.State, report *UsagePreviewReport) (battle.Choice, bool) {
	if st == nil || st.User == nil || st.Opponent == nil {
		return battle.Choice{}, false
	}
	ours := st.User.Reserve
	theirs := st.Opponent.Team()
	if len(theirs) == 0 {
		return battle.Choice{}, false
	}

	avgSpeed, n := 0.0, 0
	for _, u := range ours {
		if u != nil {
			avgSpeed += float64(u.Speed())
			n++
		}
	}
	if n == 0 {
		return battle.Choice{}, false
	}
	avgSpeed /= float64(n)

	bestSlot, bestScore := -1, 0.0
	for i, u := range ours {
		if u == nil {
			continue
		}
		score := 0.0
		for _, opp := range theirs {
			score += leadWeight(report, opp, len(theirs)) * leadMatchup(u, opp)
		}
		if u.HasMoveIn(battle.ClassLeadSetup) {
			score += leadSetupBonus
		}
		if u.HasMoveIn(battle.ClassHazard) {
			score += leadHazardBonus
		}
		if float64(u.Speed()) > avgSpeed {
			score += leadSpeedBonus
		}
		log.Debug().Str("unit", u.Name).Float64("score", score).Msg("Lead score")
		if bestSlot < 0 || score > bestScore {
			bestSlot, bestScore = i, score
		}
	}

	log.Info().Str("lead", ours[bestSlot].Name).Float64("score", bestScore).Msg("Lead selected")
	return battle.SwitchChoice(strconv.Itoa(bestSlot + 1)), true
}

// leadWeight rescales the predicted lead probability so a uniform
// prediction weighs every opponent at 1.
func leadWeight(report *UsagePreviewReport, opp *battle.Unit, n int) float64 {
	if report == nil || len(report.Leads) == 0 {
		return 1
	}
	p, ok := report.Leads[opp.Name]
	if !ok {
		return 1
	}
	return p * float64(n)
}

// leadMatchup is ten times the best offensive multiplier plus five times
// the type-based defensive score of u against opp.
func leadMatchup(u, opp *battle.Unit) float64 {
	offense := 0.0
	for _, mv := range u.Moves {
		if mv.IsAttack() {
			offense = max(offense, battle.Effectiveness(mv.Type, opp.Types))
		}
	}
	defense := 0.0
	for _, ours := range u.Types {
		mod := 1.0
		for _, theirs := range opp.Types {
			mod *= battle.Effectiveness(theirs, []string{ours})
		}
		defense += 2 - mod
	}
	return offense*10 + defense*5
}
