package bot

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/freeeve/showdown-bot/internal/model"
	"github.com/freeeve/showdown-bot/pkg/battle"
)

func usageTable() TableSource {
	return TableSource{
		"heatran": {
			RawCount: 1000,
			Moves: []model.MoveUsage{
				{Move: "magmastorm", Weight: 1.0},
				{Move: "stealthrock", Weight: 0.9},
			},
			TeraTypes: []model.TypeUsage{
				{Type: "grass", Weight: 0.5},
				{Type: "ghost", Weight: 0.1},
				{Type: "fairy", Weight: 0.3},
				{Type: "water", Weight: 0.1},
			},
		},
		"clefable": {
			RawCount: 100,
			Moves:    []model.MoveUsage{{Move: "moonblast", Weight: 1.0}},
		},
		"urshifu": {
			RawCount: 400,
			Moves:    []model.MoveUsage{{Move: "swordsdance", Weight: 0.6}},
		},
	}
}

func opposingRoster() []*battle.Unit {
	return []*battle.Unit{
		unit("heatran", 385, 385, []string{"fire", "steel"}),
		unit("clefable", 394, 394, []string{"fairy"}),
		unit("garganacl", 404, 404, []string{"rock"}),
	}
}

func TestTopTera_DropsUnknownTypes(t *testing.T) {
	got := topTera([]model.TypeUsage{
		{Type: "stellar", Weight: 0.9},
		{Type: "fairy", Weight: 0.3},
		{Type: "", Weight: 0.2},
	})
	if len(got) != 1 || got[0].Type != "fairy" {
		t.Errorf("topTera = %+v, want only fairy", got)
	}
	if got := topTera([]model.TypeUsage{{Type: "stellar", Weight: 1}}); got != nil {
		t.Errorf("topTera = %+v, want nil", got)
	}
}

func TestUsageScout_Preview(t *testing.T) {
	report := NewUsageScout(usageTable()).Preview(context.Background(), opposingRoster())

	sum := 0.0
	for _, p := range report.Leads {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("lead probabilities sum to %v, want 1", sum)
	}
	if !(report.Leads["heatran"] > report.Leads["clefable"] && report.Leads["clefable"] > report.Leads["garganacl"]) {
		t.Errorf("expected heatran > clefable > garganacl, got %v", report.Leads)
	}

	tera := report.Tera["heatran"]
	if len(tera) != 3 {
		t.Fatalf("expected 3 tera predictions, got %d", len(tera))
	}
	for i, want := range []string{"grass", "fairy", "ghost"} {
		if tera[i].Type != want {
			t.Errorf("tera[%d] = %q, want %q", i, tera[i].Type, want)
		}
	}
	if _, ok := report.Tera["clefable"]; ok {
		t.Error("expected no tera prediction without tera data")
	}

	if got := report.Threats["heatran"]; got != 1.141 {
		t.Errorf("heatran threat = %v, want 1.141", got)
	}
	if _, ok := report.Threats["garganacl"]; ok {
		t.Error("expected no threat entry for a unit without usage data")
	}
}

func TestUsageScout_UniformWithoutData(t *testing.T) {
	tests := []struct {
		name   string
		source UsageSource
	}{
		{"nil source", nil},
		{"empty table", TableSource{}},
		{"failing source", failingSource{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewUsageScout(tt.source).Preview(context.Background(), opposingRoster())
			for name, p := range report.Leads {
				if math.Abs(p-1.0/3) > 1e-9 {
					t.Errorf("%s lead = %v, want 1/3", name, p)
				}
			}
			if len(report.Leads) != 3 {
				t.Errorf("expected 3 leads, got %d", len(report.Leads))
			}
		})
	}
}

func TestUsageScout_BaseNameFallback(t *testing.T) {
	u := unit("urshifurapidstrike", 341, 341, []string{"fighting", "water"})
	u.BaseName = "urshifu"

	report := NewUsageScout(usageTable()).Preview(context.Background(), []*battle.Unit{u})
	if _, ok := report.Threats["urshifurapidstrike"]; !ok {
		t.Errorf("expected base name usage to produce a threat score, got %v", report.Threats)
	}
}

func TestUsageScout_EmptyTeam(t *testing.T) {
	report := NewUsageScout(usageTable()).Preview(context.Background(), nil)
	if len(report.Leads) != 0 || report.Leads == nil {
		t.Errorf("expected an empty non-nil lead map, got %v", report.Leads)
	}
}

type failingSource struct{}

func (failingSource) Usage(context.Context, string) (*model.UsageStats, error) {
	return nil, errors.New("redis: connection refused")
}

type memUsageRepo struct {
	tables map[string]model.UsageTable
}

func (m *memUsageRepo) GetUsage(_ context.Context, format, unit string) (*model.UsageStats, error) {
	stats, ok := m.tables[format][unit]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

func (m *memUsageRepo) SetUsage(_ context.Context, format string, table model.UsageTable) error {
	m.tables[format] = table
	return nil
}

func TestStoreSource(t *testing.T) {
	repo := &memUsageRepo{tables: map[string]model.UsageTable{}}
	repo.SetUsage(context.Background(), "gen9ou", model.UsageTable(usageTable()))

	src := NewStoreSource(repo, "gen9ou")
	stats, err := src.Usage(context.Background(), "heatran")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if stats == nil || stats.RawCount != 1000 {
		t.Errorf("expected heatran usage, got %+v", stats)
	}

	other := NewStoreSource(repo, "gen9uu")
	if stats, _ := other.Usage(context.Background(), "heatran"); stats != nil {
		t.Errorf("expected no usage in another format, got %+v", stats)
	}
}

func TestLoadUsageFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "gen9ou.json")
	data := `{"heatran":{"raw_count":1000,"moves":[{"move":"stealthrock","weight":0.9}],"tera_types":[{"type":"grass","weight":0.5}]}}`
	if err := os.WriteFile(good, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadUsageFile(good)
	if err != nil {
		t.Fatalf("LoadUsageFile: %v", err)
	}
	if table["heatran"].RawCount != 1000 {
		t.Errorf("RawCount = %v, want 1000", table["heatran"].RawCount)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadUsageFile(bad); err == nil {
		t.Error("expected error for malformed file")
	}
	if _, err := LoadUsageFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
