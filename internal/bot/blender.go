package bot

import (
	"errors"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// ErrNoPolicy is returned when search results carry no positive weight.
var ErrNoPolicy = errors.New("no policy")

const (
	shortCircuitShare  = 0.9
	trimShare          = 0.75
	factorFloor        = 0.05
	highMomentum       = 0.6
	lowMomentum        = 0.4
	finisherBase       = 1.2
	finisherSackWeight = 0.3
	switchDSDiscount   = 0.3
	teraAfterReveal    = 1.1
	teraBeforeReveal   = 0.9
	hopelessSwitchGain = 1.25
)

// Policy maps choices to probabilities.
type Policy map[battle.Choice]float64

// BlendContext carries the heuristic signals that reshape search weights.
type BlendContext struct {
	State    *battle.State
	Metrics  PositionMetrics
	Opponent OpponentProfile
	Risk     map[battle.Choice]MoveRiskProfile
}

// Selection is the blender's output.
type Selection struct {
	Choice       battle.Choice
	Policy       Policy
	ShortCircuit bool

	// Variance is the spread of each surviving choice's visit share across
	// determinizations. It is reported, never used for weighting.
	Variance map[battle.Choice]float64
}

// AggregatePolicy sums each result's visit shares weighted by its
// determinization probability.
func AggregatePolicy(results []WeightedResult) Policy {
	agg := make(Policy)
	for _, wr := range results {
		for c, share := range visitShares(wr.Result) {
			agg[c] += wr.Probability * share
		}
	}
	return agg
}

func visitShares(res *SearchResult) map[battle.Choice]float64 {
	if res == nil {
		return nil
	}
	total := res.TotalVisits
	if total <= 0 {
		for _, mv := range res.Moves {
			total += mv.Visits
		}
	}
	if total <= 0 {
		return nil
	}
	out := make(map[battle.Choice]float64, len(res.Moves))
	for _, mv := range res.Moves {
		out[mv.Choice] += float64(mv.Visits) / float64(total)
	}
	return out
}

// SelectMove merges search results into a policy and draws the final
// choice from it. A nil bc skips the heuristic reweighting.
func SelectMove(results []WeightedResult, bc *BlendContext) (Selection, error) {
	agg := AggregatePolicy(results)
	ranked := rankPolicy(agg)
	if len(ranked) == 0 || agg[ranked[0]] <= 0 {
		return Selection{}, ErrNoPolicy
	}

	total := 0.0
	for _, w := range agg {
		total += w
	}
	top := ranked[0]
	if agg[top] >= shortCircuitShare*total {
		log.Info().Str("choice", top.String()).Float64("share", agg[top]/total).Msg("Search is decisive")
		return Selection{Choice: top, Policy: Policy{top: 1}, ShortCircuit: true}, nil
	}

	topWeight := agg[top]
	trimmed := make(Policy)
	for _, c := range ranked {
		if agg[c] >= trimShare*topWeight {
			trimmed[c] = agg[c]
		}
	}
	variance := shareVariance(results, trimmed)

	if bc != nil {
		applyBlendFactors(trimmed, bc)
	}
	policy := normalize(trimmed)
	if len(policy) == 0 {
		return Selection{}, ErrNoPolicy
	}

	order := rankPolicy(policy)
	weights := make([]float64, len(order))
	for i, c := range order {
		weights[i] = policy[c]
		log.Info().Int("rank", i+1).Str("choice", c.String()).Float64("weight", policy[c]).Msg("Ranked move")
	}
	idx := botWeightedIndex(weights)
	if idx < 0 {
		return Selection{}, ErrNoPolicy
	}
	return Selection{Choice: order[idx], Policy: policy, Variance: variance}, nil
}

// applyBlendFactors multiplies each weight by the line evaluation and the
// opponent-model factors. Every factor is floored so no choice is erased.
func applyBlendFactors(p Policy, bc *BlendContext) {
	choices := make([]battle.Choice, 0, len(p))
	for c := range p {
		choices = append(choices, c)
	}
	lines := EvaluateCandidateLines(bc.State, choices, bc.Opponent, bc.Risk, bc.Metrics)
	momentum := bc.Metrics.Momentum
	hopeless := ShouldStronglyConsiderSwitching(bc.State)
	oppHP := 1.0
	if bc.State != nil && bc.State.Opponent != nil && bc.State.Opponent.Active != nil {
		oppHP = math.Max(1, float64(bc.State.Opponent.Active.HP))
	}

	for c, w := range p {
		if score, ok := lines[c]; ok {
			w *= floorFactor(1 + score)
		}
		risk, hasRisk := bc.Risk[c]
		if hasRisk {
			switch {
			case momentum > highMomentum:
				w *= floorFactor(1 - risk.FailChance)
			case momentum < lowMomentum:
				w *= floorFactor(1 + 0.5*math.Min(1, math.Max(0, risk.ExpectedValue)/oppHP))
			}
			if risk.Tag == TagFinisher {
				w *= floorFactor(finisherBase + finisherSackWeight*bc.Opponent.SackTiming)
			}
		}
		if c.IsSwitch() {
			w *= floorFactor(1 - switchDSDiscount*bc.Opponent.DoubleSwitchSuccess)
			if hopeless {
				w *= hopelessSwitchGain
			}
		}
		if c.Kind == battle.ChoiceSpecialForm && c.Form == battle.FormTera {
			if bc.Opponent.TeraTurn > 0 {
				w *= teraAfterReveal
			} else {
				w *= teraBeforeReveal
			}
		}
		p[c] = w
	}
}

func floorFactor(f float64) float64 {
	return math.Max(factorFloor, f)
}

// shareVariance is the population variance of each choice's visit share
// across the results.
func shareVariance(results []WeightedResult, keep Policy) map[battle.Choice]float64 {
	out := make(map[battle.Choice]float64, len(keep))
	if len(results) == 0 {
		return out
	}
	shares := make([]map[battle.Choice]float64, len(results))
	for i, wr := range results {
		shares[i] = visitShares(wr.Result)
	}
	n := float64(len(results))
	for c := range keep {
		mean := 0.0
		for _, s := range shares {
			mean += s[c]
		}
		mean /= n
		v := 0.0
		for _, s := range shares {
			d := s[c] - mean
			v += d * d
		}
		out[c] = v / n
	}
	return out
}

func normalize(p Policy) Policy {
	total := 0.0
	for _, w := range p {
		if w > 0 {
			total += w
		}
	}
	out := make(Policy, len(p))
	if total <= 0 {
		return out
	}
	for c, w := range p {
		if w > 0 {
			out[c] = w / total
		}
	}
	return out
}

// rankPolicy orders choices by descending weight, ties by token.
func rankPolicy(p Policy) []battle.Choice {
	out := make([]battle.Choice, 0, len(p))
	for c := range p {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if p[out[i]] != p[out[j]] {
			return p[out[i]] > p[out[j]]
		}
		return out[i].String() < out[j].String()
	})
	return out
}
