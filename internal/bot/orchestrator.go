package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/metrics"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

// DecisionSource says how a decision was produced.
type DecisionSource string

const (
	SourceSearch    DecisionSource = "search"
	SourceShortcut  DecisionSource = "shortcut"
	SourceHeuristic DecisionSource = "heuristic"
	SourcePreview   DecisionSource = "preview"
	SourceNoOp      DecisionSource = "noop"
)

// Decision is the outcome of one turn.
type Decision struct {
	Choice  battle.Choice
	Policy  Policy
	Source  DecisionSource
	Metrics PositionMetrics
	Plan    SearchPlan
	OHKO    []OHKOThreat
}

// Bot runs the per-turn decision pipeline. A Bot holds no match state and
// can serve many matches, each through its own StrategicContext.
type Bot struct {
	engine      SearchEngine
	sampler     Sampler
	scout       *UsageScout
	damage      DamageCalculator
	parallelism int
	grace       time.Duration
	dispatcher  *Dispatcher
}

// Option configures a Bot.
type Option func(*Bot)

// WithSampler sets the determinization sampler. Defaults to ObservedSampler.
func WithSampler(s Sampler) Option {
	return func(b *Bot) { b.sampler = s }
}

// WithScout sets the usage scout consulted at team preview.
func WithScout(s *UsageScout) Option {
	return func(b *Bot) { b.scout = s }
}

// WithDamage sets the damage calculator used for the OHKO check.
func WithDamage(d DamageCalculator) Option {
	return func(b *Bot) { b.damage = d }
}

// WithParallelism sets how many searches run at once.
func WithParallelism(n int) Option {
	return func(b *Bot) { b.parallelism = n }
}

// WithGrace sets how long a search may overrun its budget before it is abandoned.
func WithGrace(d time.Duration) Option {
	return func(b *Bot) { b.grace = d }
}

// NewBot creates a Bot that searches with engine.
func NewBot(engine SearchEngine, opts ...Option) *Bot {
	b := &Bot{
		engine:      engine,
		sampler:     ObservedSampler{},
		parallelism: 1,
		grace:       2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.parallelism = max(b.parallelism, 1)
	b.dispatcher = NewDispatcher(engine, b.parallelism, b.grace)
	return b
}

// FindBestMove decides the user's action for st. The state is cloned and
// never modified. Only an unsupported battle type is returned as an error;
// every other failure degrades to a heuristic choice.
func (b *Bot) FindBestMove(ctx context.Context, sc *StrategicContext, st *battle.State) (Decision, error) {
	if st == nil {
		return Decision{}, errors.New("find best move: nil state")
	}
	if sc == nil {
		return Decision{}, errors.New("find best move: nil strategic context")
	}
	if err := st.Type.Validate(); err != nil {
		return Decision{}, err
	}
	st = st.Clone()

	if st.TeamPreview {
		d := b.preview(ctx, sc, st)
		b.finish(ctx, sc, st, d)
		return d, nil
	}

	sc.Opponent.ObserveTurn(st)
	m := EvaluatePosition(st, sc.WinCons)
	sc.UpdatePositionMetrics(m)

	legal := battle.LegalChoices(st)
	if noUsableMoves(st) || len(legal) == 0 {
		d := Decision{Choice: battle.NoOp(), Policy: Policy{battle.NoOp(): 1}, Source: SourceNoOp, Metrics: m}
		b.finish(ctx, sc, st, d)
		return d, nil
	}

	risk := sc.Risk.Evaluate(ctx, st, legal)
	crit := Criticality(st, m)

	if sc.Time.ShouldSkipDeepSearch(st) {
		log.Info().Int("turn", st.Turn).Msg("Clock is low, deciding without search")
		d := heuristicDecision(st, legal, m)
		b.finish(ctx, sc, st, d)
		return d, nil
	}

	d, err := b.search(ctx, sc, st, legal, risk, m, crit)
	if err != nil {
		log.Warn().Err(err).Int("turn", st.Turn).Msg("Search produced no policy, using heuristics")
		fallback := heuristicDecision(st, legal, m)
		fallback.Plan, fallback.OHKO = d.Plan, d.OHKO
		d = fallback
	}
	b.finish(ctx, sc, st, d)
	return d, nil
}

func (b *Bot) preview(ctx context.Context, sc *StrategicContext, st *battle.State) Decision {
	if sc.Preview == nil && b.scout != nil && st.Opponent != nil {
		report := b.scout.Preview(ctx, st.Opponent.Team())
		sc.Preview = &report
		sc.WinCons.IngestPredictions(&report)
	}
	m := sc.Metrics()
	if c, ok := ChooseLead(st, sc.Preview); ok {
		return Decision{Choice: c, Policy: Policy{c: 1}, Source: SourcePreview, Metrics: m}
	}
	if legal := battle.LegalChoices(st); len(legal) > 0 {
		return Decision{Choice: legal[0], Policy: Policy{legal[0]: 1}, Source: SourcePreview, Metrics: m}
	}
	return Decision{Choice: battle.NoOp(), Policy: Policy{battle.NoOp(): 1}, Source: SourceNoOp, Metrics: m}
}

func (b *Bot) search(ctx context.Context, sc *StrategicContext, st *battle.State, legal []battle.Choice,
	risk map[battle.Choice]MoveRiskProfile, m PositionMetrics, crit float64) (Decision, error) {
	d := Decision{Metrics: m}

	alloc := sc.Time.Allocate(st, crit)
	plan, err := PlanSearch(st, b.parallelism, alloc)
	if err != nil {
		return d, err
	}
	d.OHKO = CheckOHKO(ctx, b.damage, st)
	if len(d.OHKO) > 0 && len(st.User.AliveReserve()) > 0 {
		log.Warn().Int("threats", len(d.OHKO)).Msg("Active unit can be knocked out this turn; switching is worth considering")
	}
	d.Plan = plan.ApplyOHKO(d.OHKO)

	log.Info().
		Int("turn", st.Turn).
		Float64("criticality", crit).
		Int("samples", d.Plan.Samples).
		Int("budgetMs", d.Plan.BudgetMs).
		Msg("Searching")

	dets, err := b.sampler.Sample(ctx, st, d.Plan.Samples)
	if err != nil {
		return d, fmt.Errorf("sample: %w", err)
	}
	results, err := b.dispatcher.Run(ctx, dets, d.Plan.BudgetMs)
	if err != nil {
		return d, err
	}
	sel, err := SelectMove(results, &BlendContext{
		State:    st,
		Metrics:  m,
		Opponent: sc.Opponent.Profile(),
		Risk:     risk,
	})
	if err != nil {
		return d, err
	}
	d.Choice, d.Policy = sel.Choice, sel.Policy
	d.Source = SourceSearch
	if sel.ShortCircuit {
		d.Source = SourceShortcut
	}
	if !containsChoice(legal, d.Choice) {
		log.Warn().Str("choice", d.Choice.String()).Msg("Search chose an option outside the legal set")
	}
	return d, nil
}

// finish records the turn and counts the decision.
func (b *Bot) finish(ctx context.Context, sc *StrategicContext, st *battle.State, d Decision) {
	metrics.Decisions.WithLabelValues(string(d.Source)).Inc()
	log.Info().
		Str("battle", st.ID).
		Int("turn", st.Turn).
		Str("choice", d.Choice.String()).
		Str("source", string(d.Source)).
		Msg("Decision")
	if sc.Recorder == nil {
		return
	}
	sc.Recorder.Record(ctx, TurnRecord{
		MatchID:      sc.MatchID.String(),
		BattleTag:    st.ID,
		Turn:         st.Turn,
		SelectedMove: d.Choice.String(),
		Position:     d.Metrics,
		Policy:       d.Policy,
		Risk:         sc.Risk.Profiles(st.Turn),
		RecordedAt:   time.Now().UTC(),
	})
}

// noUsableMoves is true when the active unit must act but has no move left.
func noUsableMoves(st *battle.State) bool {
	if st.ForceSwitch || st.User == nil || st.User.Active == nil || !st.User.Active.Alive() {
		return false
	}
	return !st.User.Active.AnyUsableMove()
}

// HeuristicChoice picks an action without search: a recommended defensive
// switch, else the highest-prior usable move, else the first legal option.
func HeuristicChoice(st *battle.State, legal []battle.Choice) battle.Choice {
	if advice, err := RecommendSwitch(st); err != nil {
		log.Debug().Err(err).Msg("No switch signal")
	} else if advice.ShouldSwitch {
		if c := battle.SwitchChoice(advice.Target); containsChoice(legal, c) {
			return c
		}
	}
	if !st.ForceSwitch {
		if name, err := TopPriorityMove(st); err != nil {
			log.Debug().Err(err).Msg("No move priority signal")
		} else if c := battle.AttackChoice(name); containsChoice(legal, c) {
			return c
		}
	}
	if len(legal) > 0 {
		return legal[0]
	}
	return battle.NoOp()
}

func heuristicDecision(st *battle.State, legal []battle.Choice, m PositionMetrics) Decision {
	c := HeuristicChoice(st, legal)
	src := SourceHeuristic
	if c.IsNoOp() {
		src = SourceNoOp
	}
	return Decision{Choice: c, Policy: Policy{c: 1}, Source: src, Metrics: m}
}

func containsChoice(choices []battle.Choice, c battle.Choice) bool {
	for _, x := range choices {
		if x == c {
			return true
		}
	}
	return false
}
