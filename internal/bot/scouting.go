package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/model"
	"github.com/freeeve/showdown-bot/internal/repository"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

const (
	leadScoreFloor   = 0.05
	leadHazardWeight = 1.8
	leadPivotWeight  = 1.2
	leadSpeedScale   = 200.0
	threatSetupScale = 1.5
	threatHazardMult = 0.5
	threatFloor      = 0.2
	teraPredictions  = 3
)

// UsageSource looks up aggregate ladder statistics for a unit.
// A nil result with a nil error means the unit has no entry.
type UsageSource interface {
	Usage(ctx context.Context, unit string) (*model.UsageStats, error)
}

// TableSource serves usage from an in-memory table.
type TableSource model.UsageTable

// Usage implements UsageSource.
func (t TableSource) Usage(_ context.Context, unit string) (*model.UsageStats, error) {
	stats, ok := t[unit]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

// StoreSource serves usage for one format from a usage repository.
type StoreSource struct {
	repo   repository.UsageRepository
	format string
}

// NewStoreSource creates a StoreSource.
func NewStoreSource(repo repository.UsageRepository, format string) *StoreSource {
	return &StoreSource{repo: repo, format: format}
}

// Usage implements UsageSource.
func (s *StoreSource) Usage(ctx context.Context, unit string) (*model.UsageStats, error) {
	return s.repo.GetUsage(ctx, s.format, unit)
}

// LoadUsageFile reads a usage table from a JSON file keyed by unit name.
func LoadUsageFile(path string) (model.UsageTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read usage file: %w", err)
	}
	var table model.UsageTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode usage file %s: %w", path, err)
	}
	return table, nil
}

// UsagePreviewReport holds team preview predictions about the opposing roster.
type UsagePreviewReport struct {
	Leads   map[string]float64           `json:"leads"`
	Tera    map[string][]model.TypeUsage `json:"tera"`
	Threats map[string]float64           `json:"threats"`
}

// UsageScout turns usage statistics into lead, tera and threat predictions.
type UsageScout struct {
	source UsageSource
}

// NewUsageScout creates a scout. A nil source yields uniform leads.
func NewUsageScout(source UsageSource) *UsageScout {
	return &UsageScout{source: source}
}

type scoutEntry struct {
	unit  *battle.Unit
	stats *model.UsageStats
}

// Preview builds the report for the opposing roster shown at team preview.
func (s *UsageScout) Preview(ctx context.Context, team []*battle.Unit) UsagePreviewReport {
	report := UsagePreviewReport{
		Leads:   map[string]float64{},
		Tera:    map[string][]model.TypeUsage{},
		Threats: map[string]float64{},
	}

	var entries []scoutEntry
	failed := false
	found := 0
	for _, u := range team {
		if u == nil {
			continue
		}
		stats, err := s.lookup(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("unit", u.Name).Msg("Usage lookup failed")
			failed = true
		}
		if stats != nil {
			found++
		}
		entries = append(entries, scoutEntry{unit: u, stats: stats})
	}
	if len(entries) == 0 {
		return report
	}

	if failed || found == 0 {
		report.Leads = uniformLeads(entries)
	} else {
		report.Leads = leadProbabilities(entries)
	}
	for _, e := range entries {
		if e.stats == nil {
			continue
		}
		if tera := topTera(e.stats.TeraTypes); len(tera) > 0 {
			report.Tera[e.unit.Name] = tera
		}
		if score := threatScore(e.stats); score > threatFloor {
			report.Threats[e.unit.Name] = round3(score)
		}
	}

	log.Info().
		Interface("leads", report.Leads).
		Interface("threats", report.Threats).
		Msg("Usage preview")
	return report
}

func (s *UsageScout) lookup(ctx context.Context, u *battle.Unit) (*model.UsageStats, error) {
	if s == nil || s.source == nil {
		return nil, nil
	}
	stats, err := s.source.Usage(ctx, u.Name)
	if err != nil || stats != nil {
		return stats, err
	}
	if u.BaseName != "" && u.BaseName != u.Name {
		return s.source.Usage(ctx, u.BaseName)
	}
	return nil, nil
}

func uniformLeads(entries []scoutEntry) map[string]float64 {
	out := make(map[string]float64, len(entries))
	p := 1.0 / float64(len(entries))
	for _, e := range entries {
		out[e.unit.Name] = p
	}
	return out
}

func leadProbabilities(entries []scoutEntry) map[string]float64 {
	scores := make(map[string]float64, len(entries))
	total := 0.0
	for _, e := range entries {
		var hazard, pivot float64
		if e.stats != nil {
			hazard = moveWeightIn(e.stats.Moves, battle.ClassHazard)
			pivot = moveWeightIn(e.stats.Moves, battle.ClassPivot)
		}
		speed := float64(e.unit.Speed()) / leadSpeedScale
		score := (math.Log(rawCount(e.stats)+1) + 1) * (1 + hazard*leadHazardWeight + pivot*leadPivotWeight + speed)
		score = math.Max(score, leadScoreFloor)
		scores[e.unit.Name] = score
		total += score
	}
	if total <= 0 {
		return uniformLeads(entries)
	}
	for name, score := range scores {
		scores[name] = score / total
	}
	return scores
}

func threatScore(stats *model.UsageStats) float64 {
	setup := moveWeightIn(stats.Moves, battle.ClassScoutSetup)
	hazard := moveWeightIn(stats.Moves, battle.ClassHazard)
	return setup*threatSetupScale + hazard*threatHazardMult + math.Log(rawCount(stats)+1)/10
}

// topTera keeps the most used tera types the type chart knows about.
func topTera(types []model.TypeUsage) []model.TypeUsage {
	var sorted []model.TypeUsage
	for _, t := range types {
		if battle.KnownType(t.Type) {
			sorted = append(sorted, t)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })
	if len(sorted) > teraPredictions {
		sorted = sorted[:teraPredictions]
	}
	for i := range sorted {
		sorted[i].Weight = round3(sorted[i].Weight)
	}
	return sorted
}

func moveWeightIn(moves []model.MoveUsage, class battle.MoveClass) float64 {
	total := 0.0
	for _, m := range moves {
		if battle.InClass(m.Move, class) {
			total += m.Weight
		}
	}
	return total
}

// rawCount treats a missing or zero count as a single observation.
func rawCount(stats *model.UsageStats) float64 {
	if stats == nil || stats.RawCount <= 0 {
		return 1
	}
	return stats.RawCount
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
