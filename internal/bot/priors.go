package bot

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// ErrNoActive is returned by advisors when a side has no active unit.
var ErrNoActive = errors.New("no active unit")

const exhaustedMovePrior = 0.01

// MovePriorities scores the user's active moves by type matchup, safe setup
// opportunities and multi-target coverage, normalised to sum to 1.
func MovePriorities(st *battle.State) (map[string]float64, error) {
	if st == nil || st.User == nil || st.User.Active == nil {
		return nil, ErrNoActive
	}
	if st.Opponent == nil || st.Opponent.Active == nil {
		return nil, ErrNoActive
	}
	priorities := make(map[string]float64, len(st.User.Active.Moves))
	total := 0.0
	for _, mv := range st.User.Active.Moves {
		p := exhaustedMovePrior
		if mv.Usable() {
			p = movePriority(st, mv)
		}
		priorities[mv.Name] = p
		total += p
	}
	if total > 0 {
		for name, p := range priorities {
			priorities[name] = p / total
		}
	}
	log.Debug().Interface("priorities", priorities).Msg("Move priorities")
	return priorities, nil
}

func movePriority(st *battle.State, mv battle.Move) float64 {
	score := 1.0
	if mv.IsAttack() {
		eff := battle.Effectiveness(mv.Type, st.Opponent.Active.Types)
		switch {
		case eff == 0:
			score *= 0.01
		case eff < 0.5:
			score *= 0.3
		case eff >= 2:
			score *= 2
		}
		if superEffectiveCount(mv, st.Opponent.Team()) >= 2 {
			score *= 1.5
		}
	}
	if isSetupMove(mv.Name) && canSetupSafely(st) {
		score *= 2.5
	}
	return score
}

func isSetupMove(name string) bool {
	return battle.InClass(name, battle.ClassSetup)
}

// canSetupSafely is true when the user is healthy and no known opposing
// move hits the active unit super effectively.
func canSetupSafely(st *battle.State) bool {
	user, opp := st.User.Active, st.Opponent.Active
	if user.HPRatio() < 0.5 {
		return false
	}
	for _, mv := range opp.Moves {
		if mv.Disabled || !mv.IsAttack() {
			continue
		}
		if battle.Effectiveness(mv.Type, user.Types) >= 2 {
			return false
		}
	}
	return true
}

func superEffectiveCount(mv battle.Move, team []*battle.Unit) int {
	n := 0
	for _, u := range team {
		if u.Alive() && battle.Effectiveness(mv.Type, u.Types) >= 2 {
			n++
		}
	}
	return n
}

// TopPriorityMove returns the usable move with the highest prior.
func TopPriorityMove(st *battle.State) (string, error) {
	priorities, err := MovePriorities(st)
	if err != nil {
		return "", err
	}
	best, bestScore := "", -1.0
	for _, mv := range st.User.Active.Moves {
		if !mv.Usable() {
			continue
		}
		if p := priorities[mv.Name]; p > bestScore {
			best, bestScore = mv.Name, p
		}
	}
	if best == "" {
		return "", errors.New("no usable move")
	}
	return best, nil
}
