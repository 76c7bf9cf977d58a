package bot

import (
	"context"
	"fmt"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// Strategy picks the user's action for one turn of a match.
type Strategy interface {
	Name() string
	Choose(ctx context.Context, sc *StrategicContext, st *battle.State) (battle.Choice, error)
}

// StrategyForName returns the strategy registered under name. The search
// strategy needs a Bot; the others ignore it.
func StrategyForName(name string, b *Bot) (Strategy, error) {
	switch name {
	case "", "search":
		if b == nil {
			return nil, fmt.Errorf("strategy %q needs a search engine", "search")
		}
		return &SearchStrategy{Bot: b}, nil
	case "heuristic":
		return HeuristicStrategy{}, nil
	case "random":
		return RandomStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// --- SearchStrategy ---

// SearchStrategy runs the full decision pipeline.
type SearchStrategy struct {
	Bot *Bot
}

func (*SearchStrategy) Name() string { return "search" }

func (s *SearchStrategy) Choose(ctx context.Context, sc *StrategicContext, st *battle.State) (battle.Choice, error) {
	d, err := s.Bot.FindBestMove(ctx, sc, st)
	if err != nil {
		return battle.Choice{}, err
	}
	return d.Choice, nil
}

// --- HeuristicStrategy ---

// HeuristicStrategy uses lead scoring, switch advice and move priorities
// without any search.
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return "heuristic" }

func (HeuristicStrategy) Choose(_ context.Context, sc *StrategicContext, st *battle.State) (battle.Choice, error) {
	if st == nil {
		return battle.Choice{}, fmt.Errorf("heuristic: nil state")
	}
	if err := st.Type.Validate(); err != nil {
		return battle.Choice{}, err
	}
	if st.TeamPreview {
		var report *UsagePreviewReport
		if sc != nil {
			report = sc.Preview
		}
		if c, ok := ChooseLead(st, report); ok {
			return c, nil
		}
	}
	if noUsableMoves(st) {
		return battle.NoOp(), nil
	}
	return HeuristicChoice(st, battle.LegalChoices(st)), nil
}

// --- RandomStrategy ---

// RandomStrategy picks uniformly among legal choices. Used for testing.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) Choose(_ context.Context, _ *StrategicContext, st *battle.State) (battle.Choice, error) {
	legal := battle.LegalChoices(st)
	if len(legal) == 0 {
		return battle.NoOp(), nil
	}
	return legal[botIntn(len(legal))], nil
}
