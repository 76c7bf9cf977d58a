package bei

import (
	"testing"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name string
		line string
		want info
	}{
		{
			name: "side one move",
			line: "info side 1 visits 120 score 0.55 move earthquake",
			want: info{Side: 1, Visits: 120, Score: 0.55, Move: "earthquake"},
		},
		{
			name: "switch keeps the full target",
			line: "info side 2 visits 7 score 0.1 move switch iron valiant",
			want: info{Side: 2, Visits: 7, Score: 0.1, Move: "switch iron valiant"},
		},
		{
			name: "total visits",
			line: "info totalvisits 5000",
			want: info{TotalVisits: 5000},
		},
		{
			name: "empty info",
			line: "info",
			want: info{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseInfo(tt.line)
			if got != tt.want {
				t.Errorf("parseInfo(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSearchResults_Add(t *testing.T) {
	sr := &SearchResults{}
	lines := []string{
		"info side 1 visits 30 score 0.5 move earthquake-tera",
		"info side 1 visits 70 score 0.6 move switch 2",
		"info side 2 visits 100 score 0.4 move uturn",
	}
	for _, l := range lines {
		if err := sr.add(parseInfo(l)); err != nil {
			t.Fatalf("add(%q): %v", l, err)
		}
	}
	if len(sr.SideOne) != 2 || len(sr.SideTwo) != 1 {
		t.Fatalf("sides = %d/%d, want 2/1", len(sr.SideOne), len(sr.SideTwo))
	}
	if sr.SideOne[0].Choice != battle.SpecialFormChoice("earthquake", battle.FormTera) {
		t.Errorf("SideOne[0] = %v", sr.SideOne[0].Choice)
	}
	if sr.Visits() != 100 {
		t.Errorf("Visits = %d, want 100", sr.Visits())
	}
}

func TestParseDamageRolls(t *testing.T) {
	dr, err := parseDamageRolls("damagerolls 85 100 128 150")
	if err != nil {
		t.Fatalf("parseDamageRolls: %v", err)
	}
	if dr != (DamageRolls{Min: 85, Max: 100, CritMin: 128, CritMax: 150}) {
		t.Errorf("rolls = %+v", dr)
	}

	dr, err = parseDamageRolls("damagerolls 10 12")
	if err != nil {
		t.Fatalf("parseDamageRolls short: %v", err)
	}
	if dr.CritMax != 12 || dr.CritMin != 10 {
		t.Errorf("short rolls crit = %v/%v, want 10/12", dr.CritMin, dr.CritMax)
	}

	if _, err := parseDamageRolls("damagerolls x"); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestParseEngineOption(t *testing.T) {
	opt := parseEngineOption("option name Threads type spin default 4 min 1 max 64")
	if opt.Name != "Threads" || opt.Type != "spin" || opt.Default != "4" || opt.Min != "1" || opt.Max != "64" {
		t.Errorf("parseEngineOption = %+v", opt)
	}
	opt = parseEngineOption("option name Style type combo default mcts var mcts var expectiminimax")
	if len(opt.Vars) != 2 || opt.Vars[1] != "expectiminimax" {
		t.Errorf("Vars = %v", opt.Vars)
	}
}

func TestGoParams_String(t *testing.T) {
	tests := []struct {
		params GoParams
		want   string
	}{
		{GoParams{MoveTime: 250}, "movetime 250"},
		{GoParams{MoveTime: 250, Iterations: 1000}, "movetime 250 iterations 1000"},
		{GoParams{Infinite: true, MoveTime: 5}, "infinite"},
		{GoParams{}, ""},
	}
	for _, tt := range tests {
		if got := tt.params.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.params, got, tt.want)
		}
	}
}
