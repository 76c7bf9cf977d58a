package bot

import (
	"sort"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	sackOpenRatio         = 0.25
	sackCloseRatio        = 0.5
	earlySackTurn         = 8
	doubleSwitchMargin    = 0.5
	riskyAccuracyBelow    = 90
	defaultBehaviourIndex = 0.5
)

// SackEvent records an opposing unit fainting.
type SackEvent struct {
	Unit     string `json:"unit"`
	Turn     int    `json:"turn"`
	Duration int    `json:"duration"`

	// Verified is false when the unit fainted without ever having been
	// seen at or below the sack threshold.
	Verified bool `json:"verified"`
}

// OpponentProfile is derived from the model's cumulative counters.
type OpponentProfile struct {
	Aggression          float64             `json:"aggression"`
	RiskTolerance       float64             `json:"risk_tolerance"`
	SackRate            float64             `json:"sack_rate"`
	SackTiming          float64             `json:"sack_timing"`
	DoubleSwitchRate    float64             `json:"double_switch_rate"`
	DoubleSwitchSuccess float64             `json:"double_switch_success"`
	TeraTurn            int                 `json:"tera_turn,omitempty"`
	TeraType            string              `json:"tera_type,omitempty"`
	RevealedMoves       map[string][]string `json:"revealed_moves"`

	// Sacks lists every recorded faint, verified or not.
	Sacks []SackEvent `json:"sacks,omitempty"`
}

// NeutralProfile is the profile of an opponent nothing is known about.
func NeutralProfile() OpponentProfile {
	return OpponentProfile{
		Aggression:    defaultBehaviourIndex,
		RiskTolerance: defaultBehaviourIndex,
		RevealedMoves: map[string][]string{},
	}
}

// OpponentModel accumulates the opponent's tendencies over a match.
// ObserveTurn is called once per decision and ignores repeated turn numbers.
type OpponentModel struct {
	observed   bool
	lastTurn   int
	lastAction battle.LastMove

	aggressive, passive int
	risky, safe         int

	pendingSacks map[string]int // unit -> turn it dropped to the threshold
	fainted      map[string]bool
	sacks        []SackEvent

	doubleSwitches   int
	doubleSwitchWins int
	prevMatchup      float64
	havePrevMatchup  bool

	teraTurn int
	teraType string
	revealed map[string]map[string]bool
}

// NewOpponentModel returns an empty model.
func NewOpponentModel() *OpponentModel {
	return &OpponentModel{
		pendingSacks: make(map[string]int),
		fainted:      make(map[string]bool),
		revealed:     make(map[string]map[string]bool),
	}
}

// ObserveTurn folds the state of a new turn into the model. Calling it again
// with the same turn number changes nothing.
func (m *OpponentModel) ObserveTurn(st *battle.State) {
	if st == nil || st.Opponent == nil || st.User == nil {
		return
	}
	if m.observed && st.Turn == m.lastTurn {
		return
	}
	m.observed = true
	m.lastTurn = st.Turn

	if last := st.Opponent.LastUsedMove; m.freshAction(last) {
		m.categorize(st, last)
		m.lastAction = last
	}
	m.trackSacks(st)
	m.trackTera(st)
	m.trackRevealed(st)

	if st.User.Active != nil && st.Opponent.Active != nil {
		m.prevMatchup = matchupDelta(st.Opponent.Active, st.User.Active)
		m.havePrevMatchup = true
	}
}

// freshAction is false for an empty action or one already counted on an
// earlier observation.
func (m *OpponentModel) freshAction(last battle.LastMove) bool {
	if last.Move == "" || last == m.lastAction {
		return false
	}
	return last.Turn == 0 || last.Turn > m.lastAction.Turn
}

func (m *OpponentModel) categorize(st *battle.State, last battle.LastMove) {
	if last.IsSwitch() {
		m.passive++
		m.safe++
		user := st.User.LastUsedMove
		if user.IsSwitch() && user.Turn == last.Turn {
			m.doubleSwitches++
			if m.doubleSwitchSucceeded(st) {
				m.doubleSwitchWins++
			}
		}
		return
	}

	var mv *battle.Move
	if u := st.Opponent.Find(last.Unit); u != nil {
		mv = u.Move(last.Move)
	}
	if mv == nil {
		m.passive++
		m.safe++
		return
	}
	if mv.IsAttack() {
		m.aggressive++
	} else {
		m.passive++
	}
	if mv.Accuracy > 0 && mv.Accuracy < riskyAccuracyBelow {
		m.risky++
	} else {
		m.safe++
	}
}

// doubleSwitchSucceeded compares the opponent's matchup after the double
// switch with the matchup recorded on the previous turn.
func (m *OpponentModel) doubleSwitchSucceeded(st *battle.State) bool {
	if !m.havePrevMatchup || st.User.Active == nil || st.Opponent.Active == nil {
		return false
	}
	now := matchupDelta(st.Opponent.Active, st.User.Active)
	return now-m.prevMatchup > doubleSwitchMargin
}

// matchupDelta is the attacker's best offensive effectiveness into the
// defender minus the defender's best effectiveness back.
func matchupDelta(attacker, defender *battle.Unit) float64 {
	return bestEffectiveness(attacker, defender) - bestEffectiveness(defender, attacker)
}

func bestEffectiveness(attacker, defender *battle.Unit) float64 {
	best := 0.0
	found := false
	for _, mv := range attacker.Moves {
		if !mv.IsAttack() {
			continue
		}
		found = true
		if eff := battle.Effectiveness(mv.Type, defender.Types); eff > best {
			best = eff
		}
	}
	if !found {
		return 1
	}
	return best
}

func (m *OpponentModel) trackSacks(st *battle.State) {
	for _, u := range st.Opponent.Team() {
		if m.fainted[u.Name] {
			continue
		}
		opened, pending := m.pendingSacks[u.Name]
		switch {
		case !u.Alive():
			ev := SackEvent{Unit: u.Name, Turn: st.Turn}
			if pending {
				ev.Duration = st.Turn - opened
				ev.Verified = true
				delete(m.pendingSacks, u.Name)
			}
			m.sacks = append(m.sacks, ev)
			m.fainted[u.Name] = true
		case pending && u.HPRatio() > sackCloseRatio:
			delete(m.pendingSacks, u.Name)
		case !pending && u.MaxHP > 0 && u.HPRatio() <= sackOpenRatio:
			m.pendingSacks[u.Name] = st.Turn
		}
	}
}

func (m *OpponentModel) trackTera(st *battle.State) {
	if m.teraTurn != 0 {
		return
	}
	for _, u := range st.Opponent.Team() {
		if !u.Terastallized {
			continue
		}
		m.teraTurn = st.Turn
		m.teraType = u.TeraType
		if m.teraType == "" && len(u.Types) > 0 {
			m.teraType = u.Types[0]
		}
		return
	}
}

func (m *OpponentModel) trackRevealed(st *battle.State) {
	for _, u := range st.Opponent.Team() {
		set := m.revealed[u.Name]
		if set == nil {
			set = make(map[string]bool)
			m.revealed[u.Name] = set
		}
		for _, mv := range u.Moves {
			set[mv.Name] = true
		}
	}
}

// Profile derives the behavioural indices from the counters.
func (m *OpponentModel) Profile() OpponentProfile {
	p := NeutralProfile()
	actions := m.aggressive + m.passive
	if actions > 0 {
		p.Aggression = float64(m.aggressive) / float64(actions)
		p.DoubleSwitchRate = min(1, float64(m.doubleSwitches)/float64(actions))
	}
	if n := m.risky + m.safe; n > 0 {
		p.RiskTolerance = float64(m.risky) / float64(n)
	}

	verified, early := 0, 0
	for _, s := range m.sacks {
		if !s.Verified {
			continue
		}
		verified++
		if s.Turn <= earlySackTurn {
			early++
		}
	}
	if actions > 0 {
		p.SackRate = min(1, float64(verified)/float64(actions))
	}
	if verified > 0 {
		p.SackTiming = float64(early) / float64(verified)
	}
	if m.doubleSwitches > 0 {
		p.DoubleSwitchSuccess = float64(m.doubleSwitchWins) / float64(m.doubleSwitches)
	}

	p.Sacks = append([]SackEvent(nil), m.sacks...)
	p.TeraTurn = m.teraTurn
	p.TeraType = m.teraType
	for unit, set := range m.revealed {
		moves := make([]string, 0, len(set))
		for mv := range set {
			moves = append(moves, mv)
		}
		sort.Strings(moves)
		p.RevealedMoves[unit] = moves
	}
	return p
}
