package battle

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed dex.yaml
var dexYAML []byte

// MoveClass groups moves that play the same strategic role.
type MoveClass string

const (
	ClassSetup         MoveClass = "setup"
	ClassSweepSetup    MoveClass = "sweep_setup"
	ClassSetupThreat   MoveClass = "setup_threat"
	ClassLeadSetup     MoveClass = "lead_setup"
	ClassScoutSetup    MoveClass = "scout_setup"
	ClassHazard        MoveClass = "hazard"
	ClassHazardRemoval MoveClass = "hazard_removal"
	ClassPriority      MoveClass = "priority"
	ClassPivot         MoveClass = "pivot"
	ClassRecovery      MoveClass = "recovery"
)

type dexFile struct {
	Types       map[string]map[string]float64 `yaml:"types"`
	MoveClasses map[MoveClass][]string       `yaml:"move_classes"`
}

type dex struct {
	chart   map[string]map[string]float64
	classes map[MoveClass]map[string]bool
}

var (
	dexOnce   sync.Once
	loadedDex *dex
)

func parseDex(data []byte) (*dex, error) {
	var f dexFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dex: %w", err)
	}
	if len(f.Types) == 0 {
		return nil, fmt.Errorf("parse dex: no type chart")
	}
	d := &dex{
		chart:   f.Types,
		classes: make(map[MoveClass]map[string]bool, len(f.MoveClasses)),
	}
	for class, moves := range f.MoveClasses {
		set := make(map[string]bool, len(moves))
		for _, m := range moves {
			set[m] = true
		}
		d.classes[class] = set
	}
	return d, nil
}

func getDex() *dex {
	dexOnce.Do(func() {
		d, err := parseDex(dexYAML)
		if err != nil {
			panic(err)
		}
		loadedDex = d
	})
	return loadedDex
}

// KnownType reports whether t appears in the type chart.
func KnownType(t string) bool {
	_, ok := getDex().chart[t]
	return ok
}

// Effectiveness returns the damage multiplier of an attack type against a set of defending types.
// Unknown types are neutral.
func Effectiveness(attackType string, defender []string) float64 {
	row := getDex().chart[attackType]
	mult := 1.0
	for _, t := range defender {
		if m, ok := row[t]; ok {
			mult *= m
		}
	}
	return mult
}

// InClass reports whether a move belongs to the given class.
func InClass(move string, class MoveClass) bool {
	return getDex().classes[class][move]
}
