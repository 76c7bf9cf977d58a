package bot

import (
	"context"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// RiskTag is a qualitative label for a move's risk profile.
type RiskTag string

const (
	TagFinisher RiskTag = "finisher"
	TagHighRisk RiskTag = "high-risk"
	TagRaw      RiskTag = "raw"
	TagTera     RiskTag = "tera"
	TagMega     RiskTag = "mega"
	TagSwitch   RiskTag = "switch"
)

const highRiskFailChance = 0.3

// MoveRiskProfile is the expected value and risk of one choice this turn.
type MoveRiskProfile struct {
	ExpectedValue float64 `json:"expected_value"`
	Variance      float64 `json:"variance"`
	FailChance    float64 `json:"fail_chance"`
	MinDamage     float64 `json:"min_damage"`
	MaxDamage     float64 `json:"max_damage"`
	HazardCost    float64 `json:"hazard_cost,omitempty"`
	CritChance    float64 `json:"crit_chance"`
	Tag           RiskTag `json:"tag"`
}

// RiskAnalyzer scores candidate choices and caches the profiles for the
// turn they were computed in.
type RiskAnalyzer struct {
	damage DamageCalculator
	turn   int
	cache  map[battle.Choice]MoveRiskProfile
}

// NewRiskAnalyzer creates an analyzer backed by calc (nil uses the local estimate).
func NewRiskAnalyzer(calc DamageCalculator) *RiskAnalyzer {
	return &RiskAnalyzer{damage: calc, cache: make(map[battle.Choice]MoveRiskProfile)}
}

// Profiles returns a copy of the profiles cached for turn. Profiles from any
// other turn are stale, so the result is empty unless Evaluate ran on turn.
func (r *RiskAnalyzer) Profiles(turn int) map[battle.Choice]MoveRiskProfile {
	if turn != r.turn {
		return map[battle.Choice]MoveRiskProfile{}
	}
	out := make(map[battle.Choice]MoveRiskProfile, len(r.cache))
	for c, p := range r.cache {
		out[c] = p
	}
	return out
}

// Evaluate returns profiles for the candidates, computing only those not
// already cached for st.Turn. A new turn number drops the whole cache.
func (r *RiskAnalyzer) Evaluate(ctx context.Context, st *battle.State, candidates []battle.Choice) map[battle.Choice]MoveRiskProfile {
	if st.Turn != r.turn {
		r.cache = make(map[battle.Choice]MoveRiskProfile)
		r.turn = st.Turn
	}
	out := make(map[battle.Choice]MoveRiskProfile, len(candidates))
	if st.User == nil || st.Opponent == nil || st.User.Active == nil || st.Opponent.Active == nil {
		return out
	}

	for _, c := range candidates {
		if p, ok := r.cache[c]; ok {
			out[c] = p
			continue
		}
		p, ok := r.profile(ctx, st, c)
		if !ok {
			continue
		}
		r.cache[c] = p
		out[c] = p
	}
	return out
}

func (r *RiskAnalyzer) profile(ctx context.Context, st *battle.State, c battle.Choice) (MoveRiskProfile, bool) {
	switch c.Kind {
	case battle.ChoiceSwitch:
		target := st.User.Find(c.Target)
		if target == nil {
			return MoveRiskProfile{}, false
		}
		cost := battle.SwitchInHazardFraction(target, st.User.SideConditions) * float64(target.MaxHP)
		return MoveRiskProfile{ExpectedValue: -cost, HazardCost: cost, Tag: TagSwitch}, true
	case battle.ChoiceSpecialForm:
		if !st.User.Active.HasMove(c.Move) {
			return MoveRiskProfile{}, false
		}
		var est DamageEstimate
		if c.Form == battle.FormTera {
			est = r.teraEstimate(ctx, st, c.Move)
		} else {
			est = EstimateDamage(ctx, r.damage, st, battle.UserSide, c.Move)
		}
		return tagProfile(est, st, RiskTag(c.Form)), true
	default:
		if !st.User.Active.HasMove(c.Move) {
			return MoveRiskProfile{}, false
		}
		est := EstimateDamage(ctx, r.damage, st, battle.UserSide, c.Move)
		return tagProfile(est, st, TagRaw), true
	}
}

// teraEstimate evaluates move as if the active unit had terastallized.
// The unit's types and tera flag are restored on every exit path.
func (r *RiskAnalyzer) teraEstimate(ctx context.Context, st *battle.State, move string) DamageEstimate {
	u := st.User.Active
	if u.TeraType == "" || u.Terastallized {
		return EstimateDamage(ctx, r.damage, st, battle.UserSide, move)
	}
	types, tera := u.Types, u.Terastallized
	defer func() {
		u.Types, u.Terastallized = types, tera
	}()
	u.Types = []string{u.TeraType}
	u.Terastallized = true
	return EstimateDamage(ctx, r.damage, st, battle.UserSide, move)
}

func tagProfile(est DamageEstimate, st *battle.State, base RiskTag) MoveRiskProfile {
	p := MoveRiskProfile{
		ExpectedValue: est.Expected,
		Variance:      est.Variance,
		FailChance:    est.FailChance(),
		MinDamage:     est.Min,
		MaxDamage:     est.Max,
		CritChance:    est.CritChance,
		Tag:           base,
	}
	oppHP := float64(st.Opponent.Active.HP)
	switch {
	case oppHP > 0 && est.Max >= oppHP:
		p.Tag = TagFinisher
	case p.FailChance >= highRiskFailChance:
		p.Tag = TagHighRisk
	}
	return p
}
