package battle

import (
	"fmt"
	"strings"
)

// NoOpToken is submitted when no option is worth taking.
const NoOpToken = "splash"

// ChoiceKind tags the variant held by a Choice.
type ChoiceKind int

const (
	ChoiceAttack ChoiceKind = iota
	ChoiceSwitch
	ChoiceSpecialForm
)

func (k ChoiceKind) String() string {
	switch k {
	case ChoiceAttack:
		return "attack"
	case ChoiceSwitch:
		return "switch"
	case ChoiceSpecialForm:
		return "special"
	default:
		return "unknown"
	}
}

// FormKind names a one-time transformation used alongside a move.
type FormKind string

const (
	FormTera FormKind = "tera"
	FormMega FormKind = "mega"
)

// Choice is one action for a turn. Only the fields for its Kind are set.
type Choice struct {
	Kind   ChoiceKind
	Move   string   // attack and special form
	Form   FormKind // special form only
	Target string   // switch only: slot number or unit name
}

// AttackChoice returns a plain move choice.
func AttackChoice(move string) Choice {
	return Choice{Kind: ChoiceAttack, Move: move}
}

// SwitchChoice returns a switch to the given slot or unit name.
func SwitchChoice(target string) Choice {
	return Choice{Kind: ChoiceSwitch, Target: target}
}

// SpecialFormChoice returns a move used together with a transformation.
func SpecialFormChoice(move string, form FormKind) Choice {
	return Choice{Kind: ChoiceSpecialForm, Move: move, Form: form}
}

// NoOp returns the do-nothing choice.
func NoOp() Choice {
	return AttackChoice(NoOpToken)
}

// IsNoOp reports whether c is the do-nothing choice.
func (c Choice) IsNoOp() bool {
	return c.Kind == ChoiceAttack && c.Move == NoOpToken
}

// IsSwitch reports whether c replaces the active unit.
func (c Choice) IsSwitch() bool {
	return c.Kind == ChoiceSwitch
}

// String formats the choice in the wire grammar.
func (c Choice) String() string {
	switch c.Kind {
	case ChoiceSwitch:
		return "switch " + c.Target
	case ChoiceSpecialForm:
		return c.Move + "-" + string(c.Form)
	default:
		return c.Move
	}
}

// ParseChoice parses a wire token: "<move>", "<move>-tera", "<move>-mega" or "switch <target>".
func ParseChoice(s string) (Choice, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Choice{}, fmt.Errorf("empty choice")
	}
	if s == "switch" {
		return Choice{}, fmt.Errorf("switch choice has no target")
	}
	if rest, ok := strings.CutPrefix(s, "switch "); ok {
		target := strings.TrimSpace(rest)
		if target == "" {
			return Choice{}, fmt.Errorf("switch choice %q has no target", s)
		}
		return SwitchChoice(target), nil
	}
	if strings.ContainsAny(s, " \t") {
		return Choice{}, fmt.Errorf("invalid choice %q", s)
	}
	for _, form := range []FormKind{FormTera, FormMega} {
		if move, ok := strings.CutSuffix(s, "-"+string(form)); ok && move != "" {
			return SpecialFormChoice(move, form), nil
		}
	}
	return AttackChoice(s), nil
}

// MarshalText lets choices key JSON objects.
func (c Choice) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses the wire grammar.
func (c *Choice) UnmarshalText(b []byte) error {
	parsed, err := ParseChoice(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
