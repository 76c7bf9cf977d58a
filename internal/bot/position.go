package bot

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// HPAdvantage compares effective HP after entry hazard chip.
type HPAdvantage struct {
	Ours  float64 `json:"our_hp"`
	Opp   float64 `json:"opp_hp"`
	Diff  float64 `json:"hp_diff"`
	Ratio float64 `json:"hp_ratio"`
}

// HazardPressure summarises the entry hazard game for both sides.
type HazardPressure struct {
	UserChip  float64 `json:"user_hazard_damage"`
	OppChip   float64 `json:"opp_hazard_damage"`
	Advantage float64 `json:"hazard_advantage"`
	OurTools  int     `json:"our_tools"`
	OppTools  int     `json:"opp_tools"`
}

// SpeedControl compares the two active units' speed.
type SpeedControl struct {
	HasSpeedControl   bool `json:"has_speed_control"`
	SpeedAdvantage    int  `json:"speed_advantage"`
	UserSpeed         int  `json:"user_speed"`
	OppSpeed          int  `json:"opp_speed"`
	PriorityAdvantage int  `json:"priority_advantage"`
	ScarfAdvantage    int  `json:"scarf_advantage"`
	TrickRoom         bool `json:"trick_room_active"`
}

// Tempo is whether the user is forcing exchanges or reacting to them.
type Tempo struct {
	Score    float64 `json:"tempo_score"`
	Forcing  float64 `json:"forcing"`
	Reactive float64 `json:"reactive"`
}

// PositionalSafety describes how safely the user can spend a turn.
type PositionalSafety struct {
	Score               float64 `json:"safety_score"`
	SafeToSetup         bool    `json:"safe_to_setup"`
	OpponentSetupWindow bool    `json:"opponent_setup_window"`
}

// PositionMetrics is an immutable snapshot of positional signals for one turn.
type PositionMetrics struct {
	Turn            int              `json:"turn"`
	HP              HPAdvantage      `json:"hp_advantage"`
	UserSweep       float64          `json:"user_sweep_potential"`
	OppSweep        float64          `json:"opp_sweep_potential"`
	Momentum        float64          `json:"momentum"`
	Tempo           Tempo            `json:"tempo"`
	Hazards         HazardPressure   `json:"hazard_pressure"`
	Speed           SpeedControl     `json:"speed_control"`
	Safety          PositionalSafety `json:"positional_safety"`
	WinConditions   WinConReport     `json:"win_conditions"`
	HasWinCondition bool             `json:"has_win_condition"`
}

// neutralMetrics is used when no evaluation has happened yet.
func neutralMetrics() PositionMetrics {
	return PositionMetrics{
		HP:       HPAdvantage{Ratio: 1},
		Momentum: 0.5,
		Tempo:    Tempo{Score: 0.5},
		Safety:   PositionalSafety{Score: 0.5, SafeToSetup: true},
	}
}

// EvaluatePosition computes the positional snapshot for st. The tracker,
// when given, supplies the win-condition report and keeps its overlays.
func EvaluatePosition(st *battle.State, tracker *WinConTracker) PositionMetrics {
	if tracker == nil {
		tracker = NewWinConTracker()
	}
	if st == nil || st.User == nil || st.Opponent == nil {
		return neutralMetrics()
	}
	m := PositionMetrics{Turn: st.Turn}
	m.HP = hpAdvantage(st)
	m.UserSweep = sweepPotential(st.User)
	m.OppSweep = sweepPotential(st.Opponent)
	m.HasWinCondition = hasWinCondition(st, m.HP, m.UserSweep)
	m.Hazards = hazardPressure(st)
	m.Speed = speedControl(st)
	m.Tempo = tempo(st, m.Speed, m.Hazards)
	m.Safety = positionalSafety(st)
	m.WinConditions = tracker.Analyze(st)
	m.Momentum = momentum(st, m.HP, m.UserSweep, m.OppSweep)

	log.Info().
		Int("turn", m.Turn).
		Float64("hpDiff", m.HP.Diff).
		Float64("hpRatio", m.HP.Ratio).
		Float64("userSweep", m.UserSweep).
		Float64("oppSweep", m.OppSweep).
		Float64("momentum", m.Momentum).
		Float64("tempo", m.Tempo.Score).
		Float64("safety", m.Safety.Score).
		Bool("wincon", m.HasWinCondition).
		Strs("preserve", m.WinConditions.Preserve).
		Msg("Position metrics")
	return m
}

func effectiveHP(side *battle.Side) (total float64) {
	for _, u := range side.Team() {
		if u.MaxHP <= 0 {
			continue
		}
		hp := float64(u.HP)
		if hp > 0 {
			chip := battle.EntryChipFraction(u, side.SideConditions) * float64(u.MaxHP)
			hp -= math.Min(chip, hp)
		}
		total += hp
	}
	return total
}

func hpAdvantage(st *battle.State) HPAdvantage {
	ours := effectiveHP(st.User)
	opp := effectiveHP(st.Opponent)
	ratio := 2.0
	if opp > 0 {
		ratio = ours / opp
	}
	return HPAdvantage{Ours: ours, Opp: opp, Diff: ours - opp, Ratio: ratio}
}

// sweepPotential scores how close a side's active unit is to sweeping.
func sweepPotential(side *battle.Side) float64 {
	if side == nil || !side.Active.Alive() {
		return 0
	}
	u := side.Active
	boosts := u.Boost(battle.Attack) + u.Boost(battle.SpecialAttack) + u.Boost(battle.Speed)

	score := 0.0
	if boosts >= 2 {
		score += 0.5
	}
	if boosts >= 4 {
		score += 0.3
	}
	if boosts >= 1 && u.HasMoveIn(battle.ClassSweepSetup) {
		score += 0.2
	}
	if boosts >= 2 && u.HPRatio() > 0.7 {
		score += 0.3
	}
	return math.Min(score, 1)
}

func hasWinCondition(st *battle.State, hp HPAdvantage, userSweep float64) bool {
	if st.User.Active == nil || st.Opponent.Active == nil {
		return false
	}
	userAlive := st.User.AliveCount()
	oppAlive := st.Opponent.AliveCount()
	switch {
	case userAlive >= oppAlive+2:
		return true
	case hp.Ratio >= 2.5:
		return true
	case userSweep >= 0.7 && oppAlive <= 2:
		return true
	}
	return false
}

// hazardsUp reports whether any entry hazard is set on the side.
func hazardsUp(side *battle.Side) bool {
	for _, h := range []string{battle.StealthRock, battle.Spikes, battle.ToxicSpikes, battle.StickyWeb} {
		if side.Condition(h) > 0 {
			return true
		}
	}
	return false
}

func momentum(st *battle.State, hp HPAdvantage, userSweep, oppSweep float64) float64 {
	m := 0.5
	m += hp.Diff / 500 * 0.3
	m += float64(st.User.AliveCount()-st.Opponent.AliveCount()) * 0.1

	ours := hazardsUp(st.Opponent)
	theirs := hazardsUp(st.User)
	switch {
	case ours && !theirs:
		m += 0.1
	case theirs && !ours:
		m -= 0.1
	}

	m += (userSweep - oppSweep) * 0.2
	return clamp01(m)
}

func sideChip(side *battle.Side) (chip float64) {
	for _, u := range side.Team() {
		if u.MaxHP > 0 && u.Alive() {
			chip += battle.EntryChipFraction(u, side.SideConditions)
		}
	}
	return chip
}

func removalTools(side *battle.Side) (n int) {
	for _, u := range side.Team() {
		if u.HasMoveIn(battle.ClassHazardRemoval) {
			n++
		}
	}
	return n
}

func hazardPressure(st *battle.State) HazardPressure {
	userChip := sideChip(st.User)
	oppChip := sideChip(st.Opponent)
	return HazardPressure{
		UserChip:  userChip,
		OppChip:   oppChip,
		Advantage: oppChip - userChip,
		OurTools:  removalTools(st.User),
		OppTools:  removalTools(st.Opponent),
	}
}

func speedControl(st *battle.State) SpeedControl {
	user, opp := st.User.Active, st.Opponent.Active
	if user == nil || opp == nil {
		return SpeedControl{TrickRoom: st.TrickRoom}
	}
	sc := SpeedControl{
		UserSpeed:         user.Speed(),
		OppSpeed:          opp.Speed(),
		SpeedAdvantage:    user.Boost(battle.Speed) - opp.Boost(battle.Speed),
		PriorityAdvantage: user.CountMovesIn(battle.ClassPriority) - opp.CountMovesIn(battle.ClassPriority),
		TrickRoom:         st.TrickRoom,
	}
	if st.TrickRoom {
		sc.HasSpeedControl = sc.UserSpeed < sc.OppSpeed
	} else {
		sc.HasSpeedControl = sc.UserSpeed > sc.OppSpeed
	}
	if user.Item == "choicescarf" {
		sc.ScarfAdvantage++
	}
	if opp.Item == "choicescarf" {
		sc.ScarfAdvantage--
	}
	return sc
}

func tempo(st *battle.State, speed SpeedControl, hazards HazardPressure) Tempo {
	var forcing, reactive float64
	switch {
	case hazards.Advantage > 0:
		forcing += 0.3
	case hazards.Advantage < 0:
		reactive += 0.3
	}
	if speed.HasSpeedControl {
		forcing += 0.2
	} else {
		reactive += 0.2
	}
	if st.User.Active != nil && st.User.Active.Boost(battle.Attack) >= 2 {
		forcing += 0.3
	}
	if st.Opponent.Active != nil && st.Opponent.Active.Boost(battle.Attack) >= 2 {
		reactive += 0.3
	}
	return Tempo{Score: clamp01(0.5 + forcing - reactive), Forcing: forcing, Reactive: reactive}
}

func positionalSafety(st *battle.State) PositionalSafety {
	user, opp := st.User.Active, st.Opponent.Active
	if user == nil || opp == nil {
		return PositionalSafety{Score: 0.5, SafeToSetup: true}
	}
	oppSetup := opp.HasMoveIn(battle.ClassSetupThreat)
	hp := user.HPRatio()

	score := 0.5
	if oppSetup {
		score -= 0.2
	}
	if hp < 0.4 {
		score -= 0.2
	}
	if user.HasMoveIn(battle.ClassPriority) {
		score += 0.1
	}
	return PositionalSafety{
		Score:               clamp01(score),
		SafeToSetup:         hp > 0.5 && !oppSetup,
		OpponentSetupWindow: oppSetup && hp < 0.5,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
