package bot

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/metrics"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

// TimeConfig configures the search time bank.
type TimeConfig struct {
	InitialBankMs  int
	BaseMs         int
	MaxMs          int
	MinMs          int
	SafetyBufferMs int
	LeverageBonus  float64

	// LowBankMs is the bank level at which non-critical turns stop searching
	// deeply once the match clock is running low.
	LowBankMs int

	// Clock thresholds in seconds.
	ComfortableClock int
	CriticalClock    int
}

// DefaultTimeConfig returns the standard bank settings around a per-move budget.
func DefaultTimeConfig(baseMs int) TimeConfig {
	if baseMs <= 0 {
		baseMs = 100
	}
	return TimeConfig{
		InitialBankMs:    150_000,
		BaseMs:           baseMs,
		MaxMs:            baseMs * 3,
		MinMs:            50,
		SafetyBufferMs:   10_000,
		LowBankMs:        40_000,
		LeverageBonus:    0.5,
		ComfortableClock: 45,
		CriticalClock:    15,
	}
}

// TimeManager owns the match's search time bank. The bank only shrinks.
type TimeManager struct {
	cfg          TimeConfig
	bankMs       int
	highLeverage bool

	allocated bool
	lastTurn  int
	lastAlloc int
}

// NewTimeManager creates a manager with a full bank.
func NewTimeManager(cfg TimeConfig) *TimeManager {
	return &TimeManager{cfg: cfg, bankMs: cfg.InitialBankMs}
}

// Bank returns the remaining bank in milliseconds.
func (tm *TimeManager) Bank() int { return tm.bankMs }

// HighLeverage reports whether the current turn was flagged high-leverage.
func (tm *TimeManager) HighLeverage() bool { return tm.highLeverage }

// UpdateFromMetrics flags the turn as high-leverage when the position is
// losing momentum, lacks a win condition or is behind on HP.
func (tm *TimeManager) UpdateFromMetrics(m PositionMetrics) {
	tm.highLeverage = m.Momentum < 0.4 || !m.HasWinCondition || m.HP.Ratio < 0.8
}

// resync caps the bank at what the authoritative clock still allows.
func (tm *TimeManager) resync(st *battle.State) {
	if st == nil || st.TimeRemaining == nil {
		return
	}
	clockMs := *st.TimeRemaining*1000 - tm.cfg.SafetyBufferMs
	clockMs = max(clockMs, 2*tm.cfg.MinMs)
	tm.bankMs = min(tm.bankMs, clockMs)
}

// Allocate returns this turn's search budget in milliseconds and charges it
// to the bank. Asking again for the same turn returns the same budget
// without charging twice.
func (tm *TimeManager) Allocate(st *battle.State, criticality float64) int {
	if tm.allocated && st.Turn == tm.lastTurn {
		return tm.lastAlloc
	}
	tm.resync(st)

	mult := criticality
	if tm.highLeverage {
		mult += tm.cfg.LeverageBonus
	}
	mult = clampMultiplier(mult)
	desired := min(int(float64(tm.cfg.BaseMs)*mult), tm.cfg.MaxMs)

	turnsLeft := 3
	if st.User != nil && st.Opponent != nil {
		turnsLeft = max(3, st.User.AliveCount()+st.Opponent.AliveCount())
	}
	soft := tm.bankMs / turnsLeft

	alloc := max(min(desired, soft), tm.cfg.MinMs)
	tm.bankMs = max(0, tm.bankMs-alloc)

	tm.allocated = true
	tm.lastTurn = st.Turn
	tm.lastAlloc = alloc
	metrics.TimeBank.Set(float64(tm.bankMs))

	log.Debug().
		Int("turn", st.Turn).
		Float64("criticality", criticality).
		Bool("highLeverage", tm.highLeverage).
		Int("allocMs", alloc).
		Int("bankMs", tm.bankMs).
		Msg("Search time allocated")
	return alloc
}

// ShouldSkipDeepSearch reports whether the turn should be decided by
// heuristics alone to protect the match clock.
func (tm *TimeManager) ShouldSkipDeepSearch(st *battle.State) bool {
	if st == nil || st.TeamPreview || st.TimeRemaining == nil {
		return false
	}
	clock := *st.TimeRemaining
	if clock > tm.cfg.ComfortableClock {
		return false
	}
	if clock <= tm.cfg.CriticalClock {
		return true
	}
	tm.resync(st)
	return tm.bankMs <= tm.cfg.LowBankMs && !tm.highLeverage
}

// clampMultiplier keeps criticality and leverage multipliers in [1, 3].
func clampMultiplier(v float64) float64 {
	return math.Max(1, math.Min(3, v))
}
