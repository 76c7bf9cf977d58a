package bot

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

func riskCalc() *stubDamage {
	return &stubDamage{ranges: map[string]DamageRange{
		"earthquake": {Min: 200, Max: 240},
		"dragonclaw": {Min: 50, Max: 60},
		"focusblast": {Min: 10, Max: 20},
	}}
}

func TestRiskEvaluate_IdempotentWithinTurn(t *testing.T) {
	st := garchompVsHeatran()
	calc := riskCalc()
	r := NewRiskAnalyzer(calc)
	legal := battle.LegalChoices(st)

	first := r.Evaluate(context.Background(), st, legal)
	calls := calc.Calls()
	if calls != 2 {
		t.Fatalf("damage queries = %d, want 2 (status moves and switches need none)", calls)
	}
	second := r.Evaluate(context.Background(), st, legal)
	if calc.Calls() != calls {
		t.Errorf("second evaluation issued %d extra queries", calc.Calls()-calls)
	}
	if len(first) != len(second) {
		t.Fatalf("profile count changed: %d then %d", len(first), len(second))
	}
	for c, p := range first {
		if second[c] != p {
			t.Errorf("%s: profile changed from %+v to %+v", c, p, second[c])
		}
	}

	st.Turn++
	r.Evaluate(context.Background(), st, legal)
	if calc.Calls() != 2*calls {
		t.Errorf("new turn queries = %d, want %d", calc.Calls(), 2*calls)
	}
}

func TestRiskEvaluate_HazardImmuneSwitchCostsNothing(t *testing.T) {
	st := garchompVsHeatran()
	st.User.SideConditions = map[string]int{battle.StealthRock: 1, battle.Spikes: 3}
	booted := unit("gholdengo", 400, 400, []string{"steel", "ghost"})
	booted.Item = "heavydutyboots"
	grounded := unit("tinglu", 400, 400, []string{"dark", "ground"})
	st.User.Reserve = []*battle.Unit{booted, grounded}

	r := NewRiskAnalyzer(nil)
	profiles := r.Evaluate(context.Background(), st, []battle.Choice{
		battle.SwitchChoice("gholdengo"),
		battle.SwitchChoice("tinglu"),
	})

	p := profiles[battle.SwitchChoice("gholdengo")]
	if p.HazardCost != 0 {
		t.Errorf("boots HazardCost = %v, want 0", p.HazardCost)
	}
	if p.Tag != TagSwitch {
		t.Errorf("Tag = %q, want %q", p.Tag, TagSwitch)
	}
	p = profiles[battle.SwitchChoice("tinglu")]
	if math.Abs(p.HazardCost-150) > 1e-9 {
		t.Errorf("grounded HazardCost = %v, want 150", p.HazardCost)
	}
	if p.ExpectedValue != -p.HazardCost {
		t.Errorf("ExpectedValue = %v, want %v", p.ExpectedValue, -p.HazardCost)
	}
}

func TestRiskEvaluate_Tags(t *testing.T) {
	st := garchompVsHeatran()
	st.Opponent.Active.HP = 200
	focus := attack("focusblast", "fighting", 120)
	focus.Category = battle.Special
	focus.Accuracy = 50
	st.User.Active.Moves = append(st.User.Active.Moves, focus)

	r := NewRiskAnalyzer(riskCalc())
	profiles := r.Evaluate(context.Background(), st, []battle.Choice{
		battle.AttackChoice("earthquake"),
		battle.AttackChoice("dragonclaw"),
		battle.AttackChoice("focusblast"),
		battle.AttackChoice("swordsdance"),
		battle.AttackChoice("outrage"),
	})

	tests := []struct {
		choice string
		want   RiskTag
	}{
		{"earthquake", TagFinisher},
		{"dragonclaw", TagRaw},
		{"focusblast", TagHighRisk},
		{"swordsdance", TagRaw},
	}
	for _, tt := range tests {
		p, ok := profiles[battle.AttackChoice(tt.choice)]
		if !ok {
			t.Errorf("%s: missing profile", tt.choice)
			continue
		}
		if p.Tag != tt.want {
			t.Errorf("%s: Tag = %q, want %q", tt.choice, p.Tag, tt.want)
		}
	}
	if _, ok := profiles[battle.AttackChoice("outrage")]; ok {
		t.Error("expected no profile for a move the unit does not have")
	}
	if p := profiles[battle.AttackChoice("swordsdance")]; p.FailChance != 0 {
		t.Errorf("status move FailChance = %v, want 0", p.FailChance)
	}
}

func TestRiskEvaluate_TeraRestoresUnit(t *testing.T) {
	st := garchompVsHeatran()
	st.User.CanTerastallize = true
	st.User.Active.TeraType = "fire"

	r := NewRiskAnalyzer(riskCalc())
	profiles := r.Evaluate(context.Background(), st, []battle.Choice{
		battle.SpecialFormChoice("earthquake", battle.FormTera),
	})
	if _, ok := profiles[battle.SpecialFormChoice("earthquake", battle.FormTera)]; !ok {
		t.Fatal("expected a tera profile")
	}
	u := st.User.Active
	if !slices.Equal(u.Types, []string{"dragon", "ground"}) {
		t.Errorf("Types = %v, want [dragon ground]", u.Types)
	}
	if u.Terastallized {
		t.Error("expected Terastallized to be restored to false")
	}
}

func TestRiskProfiles_ReturnsCopy(t *testing.T) {
	st := garchompVsHeatran()
	r := NewRiskAnalyzer(riskCalc())
	r.Evaluate(context.Background(), st, []battle.Choice{battle.AttackChoice("earthquake")})

	profiles := r.Profiles(st.Turn)
	delete(profiles, battle.AttackChoice("earthquake"))
	if got := len(r.Profiles(st.Turn)); got != 1 {
		t.Errorf("expected cache to be unaffected, got %d profiles", got)
	}
}

func TestRiskProfiles_OtherTurnIsEmpty(t *testing.T) {
	st := garchompVsHeatran()
	r := NewRiskAnalyzer(riskCalc())
	r.Evaluate(context.Background(), st, []battle.Choice{battle.AttackChoice("earthquake")})

	if got := len(r.Profiles(st.Turn + 1)); got != 0 {
		t.Errorf("Profiles(next turn) has %d entries, want 0", got)
	}
	if got := len(r.Profiles(st.Turn)); got != 1 {
		t.Errorf("Profiles(turn) has %d entries, want 1", got)
	}
}

func TestEstimateDamage_Fallback(t *testing.T) {
	st := garchompVsHeatran()
	calc := &stubDamage{ranges: map[string]DamageRange{}}

	est := EstimateDamage(context.Background(), calc, st, battle.UserSide, "earthquake")
	// 100 base power, 4x effective, 1.5 same-type bonus.
	if est.Max != 600 {
		t.Errorf("Max = %v, want 600", est.Max)
	}
	if math.Abs(est.Min-510) > 1e-9 {
		t.Errorf("Min = %v, want 510", est.Min)
	}
	if est.HitChance != 1 {
		t.Errorf("HitChance = %v, want 1", est.HitChance)
	}
}

func TestMixDamage(t *testing.T) {
	est := mixDamage("earthquake", DamageRange{Min: 80, Max: 100, CritMin: 120, CritMax: 150}, 0.9, 0.25)
	wantOnHit := 0.75*90 + 0.25*135
	if math.Abs(est.OnHitMean-wantOnHit) > 1e-9 {
		t.Errorf("OnHitMean = %v, want %v", est.OnHitMean, wantOnHit)
	}
	if math.Abs(est.Expected-0.9*wantOnHit) > 1e-9 {
		t.Errorf("Expected = %v, want %v", est.Expected, 0.9*wantOnHit)
	}
	if est.Max != 150 {
		t.Errorf("Max = %v, want 150", est.Max)
	}
	if math.Abs(est.FailChance()-0.1) > 1e-9 {
		t.Errorf("FailChance = %v, want 0.1", est.FailChance())
	}
}
