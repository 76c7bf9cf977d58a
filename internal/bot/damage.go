package bot

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/metrics"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	baseCritChance = 1.0 / 24
	stabMultiplier = 1.5
	minRollFactor  = 0.85
)

// DamageRange is the roll range one move can deal, in HP.
type DamageRange struct {
	Min     float64
	Max     float64
	CritMin float64
	CritMax float64
}

// DamageCalculator computes damage ranges for a move used by attacker
// against the opposing active unit of st.
type DamageCalculator interface {
	DamageRange(ctx context.Context, st *battle.State, attacker battle.SideID, move string) (DamageRange, error)
}

// DamageEstimate is the expected output of one move, weighted over hit,
// crit and miss outcomes.
type DamageEstimate struct {
	Move       string
	Expected   float64
	Variance   float64
	Min        float64
	Max        float64
	HitChance  float64
	CritChance float64
	OnHitMean  float64
}

// FailChance is the probability the move does not connect.
func (d DamageEstimate) FailChance() float64 {
	return math.Max(0, 1-d.HitChance)
}

// EstimateDamage asks calc for the damage range of move and folds accuracy
// and crit chance into an expectation. Any failure degrades to a local
// estimate from base power, type effectiveness and same-type bonus.
func EstimateDamage(ctx context.Context, calc DamageCalculator, st *battle.State, attacker battle.SideID, move string) DamageEstimate {
	atk := st.Side(attacker).Active
	def := st.Side(attacker.Other()).Active
	if atk == nil || def == nil {
		return DamageEstimate{Move: move}
	}
	mv := atk.Move(move)
	if mv == nil {
		return DamageEstimate{Move: move}
	}
	if !mv.IsAttack() {
		return DamageEstimate{Move: move, HitChance: mv.HitChance()}
	}
	if calc == nil {
		return fallbackDamage(*mv, atk, def)
	}

	rng, err := calc.DamageRange(ctx, st, attacker, move)
	if err != nil {
		log.Debug().Err(err).Str("move", move).Msg("Falling back to heuristic damage estimate")
		return fallbackDamage(*mv, atk, def)
	}
	if rng.Max <= 0 && rng.CritMax <= 0 {
		return fallbackDamage(*mv, atk, def)
	}
	return mixDamage(move, rng, mv.HitChance(), baseCritChance)
}

// mixDamage combines non-crit and crit uniform roll ranges into the
// on-hit mean and variance, then weights by accuracy.
func mixDamage(move string, rng DamageRange, hit, crit float64) DamageEstimate {
	if rng.CritMax <= 0 {
		rng.CritMin, rng.CritMax = rng.Min, rng.Max
	}
	meanNormal := (rng.Min + rng.Max) / 2
	meanCrit := (rng.CritMin + rng.CritMax) / 2
	onHitMean := (1-crit)*meanNormal + crit*meanCrit

	onHitVar := (1-crit)*uniformVariance(rng.Min, rng.Max) + crit*uniformVariance(rng.CritMin, rng.CritMax)
	onHitVar += (1 - crit) * math.Pow(meanNormal-onHitMean, 2)
	onHitVar += crit * math.Pow(meanCrit-onHitMean, 2)

	return DamageEstimate{
		Move:       move,
		Expected:   hit * onHitMean,
		Variance:   hit*onHitVar + hit*(1-hit)*onHitMean*onHitMean,
		Min:        rng.Min,
		Max:        rng.CritMax,
		HitChance:  hit,
		CritChance: crit,
		OnHitMean:  onHitMean,
	}
}

// fallbackDamage estimates damage without a calculator.
func fallbackDamage(mv battle.Move, atk, def *battle.Unit) DamageEstimate {
	metrics.DamageFallbacks.Inc()
	raw := heuristicDamage(mv, atk, def)
	rng := DamageRange{Min: raw * minRollFactor, Max: raw}
	hit := mv.HitChance()
	mean := (rng.Min + rng.Max) / 2
	return DamageEstimate{
		Move:       mv.Name,
		Expected:   hit * mean,
		Variance:   hit*uniformVariance(rng.Min, rng.Max) + hit*(1-hit)*mean*mean,
		Min:        rng.Min,
		Max:        rng.Max,
		HitChance:  hit,
		CritChance: baseCritChance,
		OnHitMean:  mean,
	}
}

// heuristicDamage is base power scaled by type effectiveness and same-type bonus.
func heuristicDamage(mv battle.Move, atk, def *battle.Unit) float64 {
	if !mv.IsAttack() || atk == nil || def == nil {
		return 0
	}
	raw := float64(mv.BasePower) * battle.Effectiveness(mv.Type, def.Types)
	if atk.HasType(mv.Type) {
		raw *= stabMultiplier
	}
	return raw
}

func uniformVariance(lo, hi float64) float64 {
	spread := hi - lo
	if spread <= 0 {
		return 0
	}
	return spread * spread / 12
}
