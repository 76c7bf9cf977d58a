package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/freeeve/showdown-bot/pkg/battle"
	"github.com/freeeve/showdown-bot/pkg/bei"
)

// EngineSearch runs searches on engines borrowed from a bei.Pool.
type EngineSearch struct {
	pool *bei.Pool
}

// NewEngineSearch creates an EngineSearch.
func NewEngineSearch(pool *bei.Pool) *EngineSearch {
	return &EngineSearch{pool: pool}
}

// Search implements SearchEngine.
func (s *EngineSearch) Search(ctx context.Context, st *battle.State, budgetMs int) (*SearchResult, error) {
	eng, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire engine: %w", err)
	}
	if err := eng.Position(st); err != nil {
		s.pool.Release(eng)
		return nil, err
	}
	res, err := eng.Go(ctx, bei.GoParams{MoveTime: budgetMs})
	if err != nil {
		// The engine may still be mid-search; never hand it to the next task.
		s.pool.Discard(eng)
		return nil, fmt.Errorf("search: %w", err)
	}
	s.pool.Release(eng)

	out := &SearchResult{TotalVisits: res.TotalVisits}
	for _, mv := range res.SideOne {
		out.Moves = append(out.Moves, MoveStat{Choice: mv.Choice, Visits: mv.Visits})
	}
	return out, nil
}

// EngineDamage answers damage queries with engines from a bei.Pool.
type EngineDamage struct {
	pool *bei.Pool
}

// NewEngineDamage creates an EngineDamage.
func NewEngineDamage(pool *bei.Pool) *EngineDamage {
	return &EngineDamage{pool: pool}
}

// DamageRange implements DamageCalculator.
func (d *EngineDamage) DamageRange(ctx context.Context, st *battle.State, attacker battle.SideID, move string) (DamageRange, error) {
	eng, err := d.pool.Acquire(ctx)
	if err != nil {
		return DamageRange{}, fmt.Errorf("acquire engine: %w", err)
	}
	if err := eng.Position(st); err != nil {
		d.pool.Release(eng)
		return DamageRange{}, err
	}
	rolls, err := eng.Damage(ctx, attacker, move)
	switch {
	case err == nil, errors.Is(err, bei.ErrDamage):
		d.pool.Release(eng)
	default:
		d.pool.Discard(eng)
	}
	if err != nil {
		return DamageRange{}, err
	}
	return DamageRange{Min: rolls.Min, Max: rolls.Max, CritMin: rolls.CritMin, CritMax: rolls.CritMax}, nil
}
