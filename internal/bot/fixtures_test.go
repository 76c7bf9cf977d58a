package bot

import (
	"context"
	"sync"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

func attack(name, typ string, basePower int) battle.Move {
	cat := battle.Physical
	if typ == "fire" || typ == "water" || typ == "ice" || typ == "psychic" || typ == "electric" {
		cat = battle.Special
	}
	return battle.Move{Name: name, Category: cat, BasePower: basePower, Type: typ, Accuracy: 100, CurrentPP: 16}
}

func status(name string) battle.Move {
	return battle.Move{Name: name, Category: battle.Status, Type: "normal", CurrentPP: 16}
}

func unit(name string, hp, maxHP int, types []string, moves ...battle.Move) *battle.Unit {
	return &battle.Unit{Name: name, Types: types, HP: hp, MaxHP: maxHP, Moves: moves}
}

// garchompVsHeatran is a standard-battle turn with one reserve on each side.
func garchompVsHeatran() *battle.State {
	return &battle.State{
		ID:   "battle-gen9ou-test",
		Type: battle.StandardBattle,
		Turn: 5,
		User: &battle.Side{
			Active: unit("garchomp", 357, 357, []string{"dragon", "ground"},
				attack("earthquake", "ground", 100),
				attack("dragonclaw", "dragon", 80),
				status("swordsdance"),
			),
			Reserve: []*battle.Unit{
				unit("corviknight", 399, 399, []string{"flying", "steel"}, attack("bravebird", "flying", 120), status("defog")),
			},
		},
		Opponent: &battle.Side{
			Active: unit("heatran", 385, 385, []string{"fire", "steel"},
				attack("magmastorm", "fire", 100),
			),
			Reserve: []*battle.Unit{
				unit("clefable", 394, 394, []string{"fairy"}),
			},
		},
	}
}

// stubDamage answers DamageRange from a fixed table and counts queries.
type stubDamage struct {
	mu     sync.Mutex
	ranges map[string]DamageRange
	errs   map[string]error
	calls  int
}

func (s *stubDamage) DamageRange(_ context.Context, _ *battle.State, _ battle.SideID, move string) (DamageRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[move]; err != nil {
		return DamageRange{}, err
	}
	return s.ranges[move], nil
}

func (s *stubDamage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubSearch returns canned visit counts, or an error, for every search.
type stubSearch struct {
	mu     sync.Mutex
	result *SearchResult
	err    error
	block  bool
	calls  int
}

func (s *stubSearch) Search(ctx context.Context, _ *battle.State, _ int) (*SearchResult, error) {
	s.mu.Lock()
	s.calls++
	res, err, block := s.result, s.err, s.block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *stubSearch) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memRecorder keeps records in memory.
type memRecorder struct {
	mu      sync.Mutex
	records []TurnRecord
}

func (m *memRecorder) Record(_ context.Context, rec TurnRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *memRecorder) Records() []TurnRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TurnRecord(nil), m.records...)
}
