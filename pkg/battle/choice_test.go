package battle

import (
	"encoding/json"
	"testing"
)

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Choice
	}{
		{"plain move", "earthquake", AttackChoice("earthquake")},
		{"tera move", "earthquake-tera", SpecialFormChoice("earthquake", FormTera)},
		{"mega move", "crunch-mega", SpecialFormChoice("crunch", FormMega)},
		{"switch by slot", "switch 3", SwitchChoice("3")},
		{"switch by name", "switch garchomp", SwitchChoice("garchomp")},
		{"no-op", NoOpToken, NoOp()},
		{"surrounding space", "  uturn ", AttackChoice("uturn")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChoice(tt.token)
			if err != nil {
				t.Fatalf("ParseChoice(%q) error: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("ParseChoice(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParseChoice_Invalid(t *testing.T) {
	for _, token := range []string{"", "   ", "switch ", "two words"} {
		if _, err := ParseChoice(token); err == nil {
			t.Errorf("ParseChoice(%q) should fail", token)
		}
	}
}

func TestChoice_StringRoundTrip(t *testing.T) {
	for _, c := range []Choice{
		AttackChoice("knockoff"),
		SpecialFormChoice("knockoff", FormTera),
		SpecialFormChoice("knockoff", FormMega),
		SwitchChoice("2"),
	} {
		got, err := ParseChoice(c.String())
		if err != nil {
			t.Fatalf("ParseChoice(%q): %v", c.String(), err)
		}
		if got != c {
			t.Errorf("round trip of %q = %+v", c.String(), got)
		}
	}
}

func TestChoice_MapKeyJSON(t *testing.T) {
	policy := map[Choice]float64{AttackChoice("a"): 1.0}
	b, err := json.Marshal(policy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":1}` {
		t.Errorf("json = %s, want {\"a\":1}", b)
	}
}

func TestChoice_Predicates(t *testing.T) {
	if !NoOp().IsNoOp() {
		t.Error("NoOp should report IsNoOp")
	}
	if AttackChoice("tackle").IsNoOp() {
		t.Error("tackle is not a no-op")
	}
	if !SwitchChoice("1").IsSwitch() {
		t.Error("switch choice should report IsSwitch")
	}
}
