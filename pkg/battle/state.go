package battle

import (
	"errors"
	"fmt"
)

// ErrUnsupportedBattleType is returned for a battle type the engine cannot plan for.
var ErrUnsupportedBattleType = errors.New("unsupported battle type")

// BattleType classifies how hidden information is sampled for a match.
type BattleType string

const (
	RandomBattle   BattleType = "random_battle"
	BattleFactory  BattleType = "battle_factory"
	StandardBattle BattleType = "standard_battle"
)

// ParseBattleType converts a battle type tag to a BattleType.
func ParseBattleType(s string) (BattleType, error) {
	bt := BattleType(s)
	if err := bt.Validate(); err != nil {
		return "", err
	}
	return bt, nil
}

// Validate returns ErrUnsupportedBattleType for unknown tags.
func (bt BattleType) Validate() error {
	switch bt {
	case RandomBattle, BattleFactory, StandardBattle:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedBattleType, string(bt))
}

// SideID designates one of the two sides of a battle.
type SideID string

const (
	UserSide     SideID = "user"
	OpponentSide SideID = "opponent"
)

// Other returns the opposing side designator.
func (s SideID) Other() SideID {
	if s == UserSide {
		return OpponentSide
	}
	return UserSide
}

// LastMove records the most recent action taken by a side.
type LastMove struct {
	Unit string `json:"unit"`
	Move string `json:"move"`
	Turn int    `json:"turn"`
}

// IsSwitch reports whether the recorded action was a switch.
func (lm LastMove) IsSwitch() bool {
	return len(lm.Move) >= 6 && lm.Move[:6] == "switch"
}

// Side holds one team's view of the battle.
type Side struct {
	Active          *Unit          `json:"active"`
	Reserve         []*Unit        `json:"reserve"`
	SideConditions  map[string]int `json:"side_conditions,omitempty"`
	LastUsedMove    LastMove       `json:"last_used_move"`
	CanTerastallize bool           `json:"can_terastallize,omitempty"`
	CanMega         bool           `json:"can_mega,omitempty"`
}

// Team returns the active unit followed by the reserve, skipping nil entries.
func (s *Side) Team() []*Unit {
	if s == nil {
		return nil
	}
	team := make([]*Unit, 0, len(s.Reserve)+1)
	if s.Active != nil {
		team = append(team, s.Active)
	}
	for _, u := range s.Reserve {
		if u != nil {
			team = append(team, u)
		}
	}
	return team
}

// AliveCount returns the number of units with HP left.
func (s *Side) AliveCount() int {
	n := 0
	for _, u := range s.Team() {
		if u.Alive() {
			n++
		}
	}
	return n
}

// AliveReserve returns reserve units that can be switched in.
func (s *Side) AliveReserve() []*Unit {
	var out []*Unit
	for _, u := range s.Reserve {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// Condition returns the layer count for a side condition.
func (s *Side) Condition(name string) int {
	if s == nil {
		return 0
	}
	return s.SideConditions[name]
}

// Find returns the team member with the given name, or nil.
func (s *Side) Find(name string) *Unit {
	for _, u := range s.Team() {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Clone returns a deep copy of the side.
func (s *Side) Clone() *Side {
	if s == nil {
		return nil
	}
	c := *s
	c.Active = s.Active.Clone()
	c.Reserve = make([]*Unit, len(s.Reserve))
	for i, u := range s.Reserve {
		c.Reserve[i] = u.Clone()
	}
	if s.SideConditions != nil {
		c.SideConditions = make(map[string]int, len(s.SideConditions))
		for k, v := range s.SideConditions {
			c.SideConditions[k] = v
		}
	}
	return &c
}

// State is the battle state maintained by the transport layer and read once per turn.
type State struct {
	ID            string     `json:"id"`
	Type          BattleType `json:"type"`
	User          *Side      `json:"user"`
	Opponent      *Side      `json:"opponent"`
	TeamPreview   bool       `json:"team_preview,omitempty"`
	ForceSwitch   bool       `json:"force_switch,omitempty"`
	Turn          int        `json:"turn"`
	TimeRemaining *int       `json:"time_remaining,omitempty"` // seconds; nil when the clock is off
	TrickRoom     bool       `json:"trick_room,omitempty"`
}

// Side returns the side for a designator.
func (st *State) Side(id SideID) *Side {
	if id == OpponentSide {
		return st.Opponent
	}
	return st.User
}

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	if st == nil {
		return nil
	}
	c := *st
	c.User = st.User.Clone()
	c.Opponent = st.Opponent.Clone()
	if st.TimeRemaining != nil {
		tr := *st.TimeRemaining
		c.TimeRemaining = &tr
	}
	return &c
}

// Seconds is a helper for building an optional clock value.
func Seconds(n int) *int {
	return &n
}
