package bot

import (
	"math"
	"testing"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

func TestEvaluateCandidateLines(t *testing.T) {
	st := garchompVsHeatran()
	eq := battle.AttackChoice("earthquake")
	dc := battle.AttackChoice("dragonclaw")
	sw := battle.SwitchChoice("corviknight")
	risk := map[battle.Choice]MoveRiskProfile{
		eq: {ExpectedValue: 400, Tag: TagFinisher},
		dc: {ExpectedValue: 50, Variance: 400},
		sw: {ExpectedValue: -50, Tag: TagSwitch},
	}
	m := neutralMetrics()
	profile := NeutralProfile()

	lines := EvaluateCandidateLines(st, []battle.Choice{eq, dc, sw, battle.AttackChoice("swordsdance")}, profile, risk, m)
	if _, ok := lines[battle.AttackChoice("swordsdance")]; ok {
		t.Error("expected no line for a candidate without a risk profile")
	}

	// heatran answers with magmastorm: 100 base power, resisted, same type.
	oppDamage := 75.0
	wantEq := (400-oppDamage)/lineDamageScale + finisherLineBonus
	if math.Abs(lines[eq]-wantEq) > 1e-9 {
		t.Errorf("earthquake line = %v, want %v", lines[eq], wantEq)
	}
	wantDc := (50-oppDamage)/lineDamageScale - math.Sqrt(400)/lineDamageScale*0.5
	if math.Abs(lines[dc]-wantDc) > 1e-9 {
		t.Errorf("dragonclaw line = %v, want %v", lines[dc], wantDc)
	}
	if lines[sw] != 0 {
		t.Errorf("switch line = %v, want 0 with neutral tempo", lines[sw])
	}

	m.Safety.OpponentSetupWindow = true
	lines = EvaluateCandidateLines(st, []battle.Choice{sw}, profile, risk, m)
	if math.Abs(lines[sw]+setupWindowPenalty) > 1e-9 {
		t.Errorf("switch line = %v, want %v", lines[sw], -setupWindowPenalty)
	}
}

func TestOpponentBestResponse_Aggression(t *testing.T) {
	st := garchompVsHeatran()
	calm := opponentBestResponse(st, 0.5)
	aggressive := opponentBestResponse(st, 0.9)
	if math.Abs(aggressive-calm*aggressionDamageMult) > 1e-9 {
		t.Errorf("aggressive response = %v, want %v", aggressive, calm*aggressionDamageMult)
	}
}
