package bot

import (
	"sort"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// Role is the strategic job a unit performs for its side.
type Role string

const (
	RoleSweeper Role = "sweeper"
	RoleWall    Role = "wall"
	RoleUtility Role = "utility"
	RolePivot   Role = "pivot"
)

const (
	primaryHPThreshold = 0.4
	backupHPThreshold  = 0.25
	wallHPThreshold    = 0.5
	threatScoreFloor   = 0.4
)

// WinCondition is one own unit considered as a route to winning.
type WinCondition struct {
	Name     string   `json:"name"`
	HPRatio  float64  `json:"hp_ratio"`
	Role     Role     `json:"role"`
	Blockers []string `json:"blockers,omitempty"`
}

// WinConReport is the per-turn output of the tracker.
type WinConReport struct {
	Primary     []WinCondition      `json:"primary"`
	Backup      []WinCondition      `json:"backup"`
	Preserve    []string            `json:"preserve"`
	Targets     []string            `json:"targets"`
	Predictions *UsagePreviewReport `json:"predictions,omitempty"`
}

// WinConTracker classifies own units each turn and keeps the usage
// predictions ingested at team preview as a standing overlay.
type WinConTracker struct {
	predictions *UsagePreviewReport
	last        WinConReport
}

// NewWinConTracker returns an empty tracker.
func NewWinConTracker() *WinConTracker {
	return &WinConTracker{}
}

// IngestPredictions stores team preview predictions for later turns.
func (t *WinConTracker) IngestPredictions(report *UsagePreviewReport) {
	if report == nil {
		return
	}
	t.predictions = report
}

// Last returns the most recent report.
func (t *WinConTracker) Last() WinConReport {
	return t.last
}

// Analyze recomputes roles, win conditions, the preserve list and the
// critical opposing targets for the current state.
func (t *WinConTracker) Analyze(st *battle.State) WinConReport {
	report := WinConReport{
		Primary:     []WinCondition{},
		Backup:      []WinCondition{},
		Preserve:    []string{},
		Targets:     []string{},
		Predictions: t.predictions,
	}
	if st == nil || st.User == nil || st.Opponent == nil {
		t.last = report
		return report
	}
	opponents := st.Opponent.Team()

	for _, u := range st.User.Team() {
		if !u.Alive() {
			continue
		}
		role := classifyRole(u)
		wc := WinCondition{Name: u.Name, HPRatio: u.HPRatio(), Role: role}
		if role == RoleSweeper {
			wc.Blockers = sweeperBlockers(u, opponents)
		}
		switch {
		case role == RoleSweeper && wc.HPRatio > primaryHPThreshold:
			report.Primary = append(report.Primary, wc)
		case (role == RoleWall || role == RoleUtility) && wc.HPRatio > backupHPThreshold:
			report.Backup = append(report.Backup, wc)
		}
		if role == RoleWall || role == RoleUtility {
			report.Preserve = append(report.Preserve, u.Name)
		}
	}

	seen := make(map[string]bool)
	for _, opp := range opponents {
		if !opp.Alive() || seen[opp.Name] {
			continue
		}
		if opp.HasMoveIn(battle.ClassPriority) || opp.Boost(battle.Attack) >= 2 {
			report.Targets = append(report.Targets, opp.Name)
			seen[opp.Name] = true
		}
	}
	if t.predictions != nil {
		names := make([]string, 0, len(t.predictions.Threats))
		for name, score := range t.predictions.Threats {
			if score > threatScoreFloor {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			// Predicted threats that have been revealed and fainted no longer matter.
			if u := st.Opponent.Find(name); u != nil && !u.Alive() {
				continue
			}
			report.Targets = append(report.Targets, name)
			seen[name] = true
		}
	}

	t.last = report
	return report
}

func classifyRole(u *battle.Unit) Role {
	switch {
	case u.HasMoveIn(battle.ClassSetup):
		return RoleSweeper
	case u.HasMoveIn(battle.ClassHazardRemoval):
		return RoleUtility
	case u.HPRatio() > wallHPThreshold && u.HasMoveIn(battle.ClassRecovery):
		return RoleWall
	default:
		return RolePivot
	}
}

// sweeperBlockers returns living opponents that resist every attacking type
// the sweeper carries.
func sweeperBlockers(sweeper *battle.Unit, opponents []*battle.Unit) []string {
	var attackTypes []string
	for _, m := range sweeper.Moves {
		if m.IsAttack() {
			attackTypes = append(attackTypes, m.Type)
		}
	}
	if len(attackTypes) == 0 {
		return nil
	}
	var blockers []string
	for _, opp := range opponents {
		if !opp.Alive() {
			continue
		}
		resisted := true
		for _, typ := range attackTypes {
			if battle.Effectiveness(typ, opp.Types) >= 1 {
				resisted = false
				break
			}
		}
		if resisted {
			blockers = append(blockers, opp.Name)
		}
	}
	return blockers
}
