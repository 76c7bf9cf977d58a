package battle

// Category is the damage class of a move.
type Category string

const (
	Physical Category = "physical"
	Special  Category = "special"
	Status   Category = "status"
)

// Stat names a boostable stat.
type Stat string

const (
	Attack         Stat = "attack"
	Defense        Stat = "defense"
	SpecialAttack  Stat = "special-attack"
	SpecialDefense Stat = "special-defense"
	Speed          Stat = "speed"
	Accuracy       Stat = "accuracy"
	Evasion        Stat = "evasion"
)

// Stats is a unit's computed stat block.
type Stats struct {
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`
}

// Move is a single move known (or revealed) on a unit.
type Move struct {
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	BasePower int      `json:"base_power"`
	Type      string   `json:"type"`
	Accuracy  int      `json:"accuracy"` // 0 means the move cannot miss
	CurrentPP int      `json:"current_pp"`
	Disabled  bool     `json:"disabled,omitempty"`
	Priority  int      `json:"priority,omitempty"`
}

// IsAttack reports whether the move deals direct damage.
func (m Move) IsAttack() bool {
	return m.Category == Physical || m.Category == Special
}

// HitChance returns the probability in [0,1] that the move connects.
func (m Move) HitChance() float64 {
	if m.Accuracy <= 0 || m.Accuracy >= 100 {
		return 1
	}
	return float64(m.Accuracy) / 100
}

// Usable reports whether the move can be selected this turn.
func (m Move) Usable() bool {
	return m.CurrentPP > 0 && !m.Disabled
}

// Unit is a single battler.
type Unit struct {
	Name          string       `json:"name"`
	BaseName      string       `json:"base_name,omitempty"`
	Types         []string     `json:"types"`
	HP            int          `json:"hp"`
	MaxHP         int          `json:"max_hp"`
	Stats         Stats        `json:"stats"`
	Boosts        map[Stat]int `json:"boosts,omitempty"`
	Status        string       `json:"status,omitempty"`
	Item          string       `json:"item,omitempty"`
	Ability       string       `json:"ability,omitempty"`
	Terastallized bool         `json:"terastallized,omitempty"`
	TeraType      string       `json:"tera_type,omitempty"`
	Volatiles     []string     `json:"volatiles,omitempty"`
	Moves         []Move       `json:"moves"`
}

// HPRatio returns current over max HP, or 0 when max HP is unknown.
func (u *Unit) HPRatio() float64 {
	if u == nil || u.MaxHP <= 0 {
		return 0
	}
	return float64(u.HP) / float64(u.MaxHP)
}

// Alive reports whether the unit has HP left.
func (u *Unit) Alive() bool {
	return u != nil && u.HP > 0
}

// Speed returns the raw speed stat.
func (u *Unit) Speed() int {
	if u == nil {
		return 0
	}
	return u.Stats.Speed
}

// Boost returns the stage boost for a stat (0 when absent).
func (u *Unit) Boost(s Stat) int {
	if u == nil {
		return 0
	}
	return u.Boosts[s]
}

// HasType reports whether t is one of the unit's current types.
func (u *Unit) HasType(t string) bool {
	for _, ut := range u.Types {
		if ut == t {
			return true
		}
	}
	return false
}

// Move returns the named move, or nil.
func (u *Unit) Move(name string) *Move {
	for i := range u.Moves {
		if u.Moves[i].Name == name {
			return &u.Moves[i]
		}
	}
	return nil
}

// HasMove reports whether the unit knows the named move.
func (u *Unit) HasMove(name string) bool {
	return u != nil && u.Move(name) != nil
}

// HasMoveIn reports whether any of the unit's moves belongs to class.
func (u *Unit) HasMoveIn(class MoveClass) bool {
	if u == nil {
		return false
	}
	for _, m := range u.Moves {
		if InClass(m.Name, class) {
			return true
		}
	}
	return false
}

// CountMovesIn returns how many of the unit's moves belong to class.
func (u *Unit) CountMovesIn(class MoveClass) int {
	if u == nil {
		return 0
	}
	n := 0
	for _, m := range u.Moves {
		if InClass(m.Name, class) {
			n++
		}
	}
	return n
}

// HasVolatile reports whether the named volatile condition is active.
func (u *Unit) HasVolatile(v string) bool {
	for _, uv := range u.Volatiles {
		if uv == v {
			return true
		}
	}
	return false
}

// AnyUsableMove reports whether at least one move has PP left and is not disabled.
func (u *Unit) AnyUsableMove() bool {
	for _, m := range u.Moves {
		if m.Usable() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	if u == nil {
		return nil
	}
	c := *u
	c.Types = append([]string(nil), u.Types...)
	c.Volatiles = append([]string(nil), u.Volatiles...)
	c.Moves = append([]Move(nil), u.Moves...)
	if u.Boosts != nil {
		c.Boosts = make(map[Stat]int, len(u.Boosts))
		for k, v := range u.Boosts {
			c.Boosts[k] = v
		}
	}
	return &c
}
