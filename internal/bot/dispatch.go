package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/showdown-bot/internal/metrics"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

// ErrNoSearchResults is returned when every dispatched search failed.
var ErrNoSearchResults = errors.New("no search results")

// Determinization is one concrete resolution of the hidden information,
// weighted by how likely it is.
type Determinization struct {
	State       *battle.State
	Probability float64
}

// Sampler produces determinizations of a partially observed state.
type Sampler interface {
	Sample(ctx context.Context, st *battle.State, n int) ([]Determinization, error)
}

// ObservedSampler treats the observed state as fully known and returns n
// independent copies of it with equal weight. It is the default when no
// set-prediction sampler is configured.
type ObservedSampler struct{}

// Sample implements Sampler.
func (ObservedSampler) Sample(_ context.Context, st *battle.State, n int) ([]Determinization, error) {
	if st == nil {
		return nil, fmt.Errorf("sample: nil state")
	}
	n = max(n, 1)
	out := make([]Determinization, n)
	for i := range out {
		out[i] = Determinization{State: st.Clone(), Probability: 1 / float64(n)}
	}
	return out, nil
}

// MoveStat is the visit count a search gave one of the user's choices.
type MoveStat struct {
	Choice battle.Choice
	Visits int
}

// SearchResult is the visit distribution from one search.
type SearchResult struct {
	Moves       []MoveStat
	TotalVisits int
}

// SearchEngine runs one search over a concrete state within budgetMs.
type SearchEngine interface {
	Search(ctx context.Context, st *battle.State, budgetMs int) (*SearchResult, error)
}

// WeightedResult pairs a search result with its determinization's weight.
type WeightedResult struct {
	Index       int
	Probability float64
	Result      *SearchResult
}

// Dispatcher fans determinizations out to a SearchEngine.
type Dispatcher struct {
	engine      SearchEngine
	parallelism int
	grace       time.Duration
}

// NewDispatcher creates a dispatcher running at most parallelism searches at
// once. Each search is abandoned grace after its budget expires.
func NewDispatcher(engine SearchEngine, parallelism int, grace time.Duration) *Dispatcher {
	return &Dispatcher{engine: engine, parallelism: max(parallelism, 1), grace: grace}
}

// Run searches every determinization and waits for all of them. Searches that
// fail or overrun are dropped; an error is returned only if none succeeded.
func (d *Dispatcher) Run(ctx context.Context, dets []Determinization, budgetMs int) ([]WeightedResult, error) {
	results := make([]*SearchResult, len(dets))
	deadline := time.Duration(budgetMs)*time.Millisecond + d.grace
	metrics.SearchBudget.Observe(float64(budgetMs))

	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for i, det := range dets {
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()

			start := time.Now()
			res, err := d.engine.Search(taskCtx, det.State, budgetMs)
			metrics.SearchDuration.Observe(time.Since(start).Seconds())
			switch {
			case err != nil && taskCtx.Err() == context.DeadlineExceeded:
				metrics.SearchTasks.WithLabelValues("timeout").Inc()
				log.Warn().Err(err).Int("index", i).Msg("Search task overran its deadline")
				return nil
			case err != nil:
				metrics.SearchTasks.WithLabelValues("error").Inc()
				log.Warn().Err(err).Int("index", i).Msg("Search task failed")
				return nil
			}
			metrics.SearchTasks.WithLabelValues("ok").Inc()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var out []WeightedResult
	for i, res := range results {
		if res == nil {
			continue
		}
		log.Debug().Int("index", i).Int("visits", res.TotalVisits).Msg("Search finished")
		out = append(out, WeightedResult{Index: i, Probability: dets[i].Probability, Result: res})
	}
	if len(out) == 0 {
		return nil, ErrNoSearchResults
	}
	return out, nil
}
