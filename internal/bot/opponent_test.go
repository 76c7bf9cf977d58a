package bot

import (
	"slices"
	"testing"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

func opponentTurn(turn int) *battle.State {
	st := garchompVsHeatran()
	st.Turn = turn
	magma := attack("magmastorm", "fire", 100)
	magma.Accuracy = 75
	st.Opponent.Active.Moves = []battle.Move{magma, status("stealthrock")}
	st.Opponent.LastUsedMove = battle.LastMove{Unit: "heatran", Move: "magmastorm", Turn: turn}
	return st
}

func TestOpponentModel_NeutralProfile(t *testing.T) {
	p := NewOpponentModel().Profile()
	if p.Aggression != 0.5 || p.RiskTolerance != 0.5 {
		t.Errorf("Aggression, RiskTolerance = %v, %v, want 0.5, 0.5", p.Aggression, p.RiskTolerance)
	}
	if p.SackRate != 0 || p.DoubleSwitchRate != 0 {
		t.Errorf("expected zero rates, got %+v", p)
	}
}

func TestOpponentModel_ObserveTurnIsIdempotent(t *testing.T) {
	m := NewOpponentModel()
	st := opponentTurn(3)
	m.ObserveTurn(st)
	before := m.Profile()

	m.ObserveTurn(st)
	m.ObserveTurn(st.Clone())
	after := m.Profile()

	if before.Aggression != after.Aggression || before.RiskTolerance != after.RiskTolerance {
		t.Errorf("profile changed on repeated turn: %+v -> %+v", before, after)
	}
	if m.aggressive != 1 || m.risky != 1 {
		t.Errorf("aggressive, risky = %d, %d, want 1, 1", m.aggressive, m.risky)
	}
	if after.Aggression != 1 {
		t.Errorf("Aggression = %v, want 1", after.Aggression)
	}
	if after.RiskTolerance != 1 {
		t.Errorf("RiskTolerance = %v, want 1", after.RiskTolerance)
	}
}

func TestOpponentModel_Categorize(t *testing.T) {
	m := NewOpponentModel()
	m.ObserveTurn(opponentTurn(1))

	st := opponentTurn(2)
	st.Opponent.LastUsedMove = battle.LastMove{Unit: "heatran", Move: "stealthrock", Turn: 2}
	m.ObserveTurn(st)

	st = opponentTurn(3)
	st.Opponent.LastUsedMove = battle.LastMove{Unit: "clefable", Move: "switch clefable", Turn: 3}
	m.ObserveTurn(st)

	p := m.Profile()
	if want := 1.0 / 3; p.Aggression != want {
		t.Errorf("Aggression = %v, want %v", p.Aggression, want)
	}
	if want := 1.0 / 3; p.RiskTolerance != want {
		t.Errorf("RiskTolerance = %v, want %v", p.RiskTolerance, want)
	}
}

func TestOpponentModel_StaleActionCountedOnce(t *testing.T) {
	m := NewOpponentModel()
	m.ObserveTurn(opponentTurn(3))

	// The opponent's last action is still the one from turn 3.
	st := opponentTurn(4)
	st.Opponent.LastUsedMove.Turn = 3
	m.ObserveTurn(st)
	st = opponentTurn(5)
	st.Opponent.LastUsedMove.Turn = 3
	m.ObserveTurn(st)

	if m.aggressive != 1 || m.risky != 1 {
		t.Errorf("aggressive, risky = %d, %d, want 1, 1", m.aggressive, m.risky)
	}

	m.ObserveTurn(opponentTurn(6))
	if m.aggressive != 2 {
		t.Errorf("aggressive = %d after a new action, want 2", m.aggressive)
	}
}

func TestOpponentModel_Sacks(t *testing.T) {
	m := NewOpponentModel()

	st := opponentTurn(2)
	st.Opponent.Reserve[0].HP = 80 // clefable at about 20%
	m.ObserveTurn(st)

	st = opponentTurn(4)
	st.Opponent.Reserve[0].HP = 0
	st.Opponent.Reserve = append(st.Opponent.Reserve, unit("skarmory", 0, 334, []string{"steel", "flying"}))
	m.ObserveTurn(st)

	sacks := m.Profile().Sacks
	if len(sacks) != 2 {
		t.Fatalf("expected 2 sack events, got %d", len(sacks))
	}
	byUnit := map[string]SackEvent{}
	for _, s := range sacks {
		byUnit[s.Unit] = s
	}
	clef := byUnit["clefable"]
	if !clef.Verified || clef.Duration != 2 || clef.Turn != 4 {
		t.Errorf("clefable sack = %+v, want verified, duration 2, turn 4", clef)
	}
	skarm := byUnit["skarmory"]
	if skarm.Verified || skarm.Duration != 0 {
		t.Errorf("skarmory sack = %+v, want unverified with zero duration", skarm)
	}

	p := m.Profile()
	if p.SackRate != 0.5 {
		t.Errorf("SackRate = %v, want 0.5 (one verified sack over two actions)", p.SackRate)
	}
	if p.SackTiming != 1 {
		t.Errorf("SackTiming = %v, want 1", p.SackTiming)
	}

	// A fainted unit is never recorded twice.
	m.ObserveTurn(opponentTurnWithFainted(5))
	if len(m.Profile().Sacks) != 2 {
		t.Errorf("expected 2 sack events after re-observing, got %d", len(m.Profile().Sacks))
	}
}

func opponentTurnWithFainted(turn int) *battle.State {
	st := opponentTurn(turn)
	st.Opponent.Reserve[0].HP = 0
	return st
}

func TestOpponentModel_SackWindowClosesOnRecovery(t *testing.T) {
	m := NewOpponentModel()
	st := opponentTurn(2)
	st.Opponent.Reserve[0].HP = 80
	m.ObserveTurn(st)

	st = opponentTurn(3)
	st.Opponent.Reserve[0].HP = 300
	m.ObserveTurn(st)

	m.ObserveTurn(opponentTurnWithFainted(4))
	sacks := m.Profile().Sacks
	if len(sacks) != 1 || sacks[0].Verified {
		t.Errorf("sacks = %+v, want one unverified event", sacks)
	}
}

func TestOpponentModel_TeraAndRevealedMoves(t *testing.T) {
	m := NewOpponentModel()
	st := opponentTurn(6)
	st.Opponent.Active.Terastallized = true
	st.Opponent.Active.TeraType = "grass"
	m.ObserveTurn(st)

	st = opponentTurn(7)
	st.Opponent.Reserve[0].Terastallized = true
	st.Opponent.Reserve[0].TeraType = "steel"
	st.Opponent.Active.Moves = append(st.Opponent.Active.Moves, attack("earthpower", "ground", 90))
	m.ObserveTurn(st)

	p := m.Profile()
	if p.TeraTurn != 6 || p.TeraType != "grass" {
		t.Errorf("tera = turn %d type %q, want turn 6 type grass", p.TeraTurn, p.TeraType)
	}
	want := []string{"earthpower", "magmastorm", "stealthrock"}
	if got := p.RevealedMoves["heatran"]; !slices.Equal(got, want) {
		t.Errorf("revealed = %v, want %v", got, want)
	}
}

func TestOpponentModel_DoubleSwitch(t *testing.T) {
	m := NewOpponentModel()

	// Turn 2: the opponent's grass type is losing to our fire type.
	st := &battle.State{
		Type: battle.StandardBattle,
		Turn: 2,
		User: &battle.Side{Active: unit("cinderace", 300, 300, []string{"fire"}, attack("pyroball", "fire", 120))},
		Opponent: &battle.Side{
			Active:  unit("rillaboom", 300, 300, []string{"grass"}, attack("woodhammer", "grass", 120)),
			Reserve: []*battle.Unit{unit("toxapex", 300, 300, []string{"water"}, attack("surf", "water", 90))},
		},
	}
	m.ObserveTurn(st)

	// Turn 3: both sides switched; the opponent now holds the better matchup.
	st = st.Clone()
	st.Turn = 3
	st.User.Active = unit("volcarona", 300, 300, []string{"fire"}, attack("fierydance", "fire", 80))
	st.Opponent.Active, st.Opponent.Reserve[0] = st.Opponent.Reserve[0], st.Opponent.Active
	st.User.LastUsedMove = battle.LastMove{Unit: "volcarona", Move: "switch volcarona", Turn: 3}
	st.Opponent.LastUsedMove = battle.LastMove{Unit: "toxapex", Move: "switch toxapex", Turn: 3}
	m.ObserveTurn(st)

	p := m.Profile()
	if p.DoubleSwitchRate != 1 {
		t.Errorf("DoubleSwitchRate = %v, want 1", p.DoubleSwitchRate)
	}
	if p.DoubleSwitchSuccess != 1 {
		t.Errorf("DoubleSwitchSuccess = %v, want 1", p.DoubleSwitchSuccess)
	}
}
