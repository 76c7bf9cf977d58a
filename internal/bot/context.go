package bot

import (
	"github.com/google/uuid"
)

// StrategicContext holds the long-lived models for one match. It is created
// when the match starts, passed through every decision, and dropped when the
// match ends. It is not safe for concurrent use.
type StrategicContext struct {
	MatchID  uuid.UUID
	Opponent *OpponentModel
	Risk     *RiskAnalyzer
	WinCons  *WinConTracker
	Time     *TimeManager
	Recorder Recorder

	// Preview is the usage report built at team preview, nil before it.
	Preview     *UsagePreviewReport
	LastMetrics *PositionMetrics
}

// NewStrategicContext creates a context with fresh models. A nil recorder
// disables the experience log.
func NewStrategicContext(damage DamageCalculator, timeCfg TimeConfig, rec Recorder) *StrategicContext {
	return &StrategicContext{
		MatchID:  uuid.New(),
		Opponent: NewOpponentModel(),
		Risk:     NewRiskAnalyzer(damage),
		WinCons:  NewWinConTracker(),
		Time:     NewTimeManager(timeCfg),
		Recorder: rec,
	}
}

// UpdatePositionMetrics stores the turn's snapshot and refreshes the
// time manager's leverage flag.
func (sc *StrategicContext) UpdatePositionMetrics(m PositionMetrics) {
	sc.LastMetrics = &m
	sc.Time.UpdateFromMetrics(m)
}

// Metrics returns the last snapshot, or neutral metrics before the first one.
func (sc *StrategicContext) Metrics() PositionMetrics {
	if sc.LastMetrics == nil {
		return neutralMetrics()
	}
	return *sc.LastMetrics
}
