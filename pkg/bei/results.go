package bei

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/showdown-bot/pkg/battle"
)

// MoveVisits is one candidate's statistics from a search.
type MoveVisits struct {
	Choice battle.Choice
	Visits int
	Score  float64
}

// SearchResults holds the accumulated output of a Go command: per-side move
// statistics reported in info lines plus the final bestmove.
type SearchResults struct {
	BestMove    battle.Choice
	SideOne     []MoveVisits
	SideTwo     []MoveVisits
	TotalVisits int
}

// Visits sums the visit counts reported for side one.
func (r *SearchResults) Visits() int {
	n := 0
	for _, mv := range r.SideOne {
		n += mv.Visits
	}
	return n
}

// DamageRolls is the damage range an engine reports for one move.
type DamageRolls struct {
	Min     float64
	Max     float64
	CritMin float64
	CritMax float64
}

// EngineID holds the engine identification received during handshake.
type EngineID struct {
	Name            string
	Author          string
	ProtocolVersion int
}

// EngineOption describes a configuration option advertised by the engine.
type EngineOption struct {
	Name    string
	Type    string
	Default string
	Min     string
	Max     string
	Vars    []string
}

// GoParams configures search constraints for the Go command.
type GoParams struct {
	MoveTime   int  // milliseconds; 0 means use engine default
	Iterations int  // playout limit; 0 means unlimited
	Infinite   bool // search until stop is sent
}

// String formats GoParams as a "go" command suffix.
func (p GoParams) String() string {
	if p.Infinite {
		return "infinite"
	}
	var parts []string
	if p.MoveTime > 0 {
		parts = append(parts, fmt.Sprintf("movetime %d", p.MoveTime))
	}
	if p.Iterations > 0 {
		parts = append(parts, fmt.Sprintf("iterations %d", p.Iterations))
	}
	return strings.Join(parts, " ")
}

// info is one parsed "info" line.
type info struct {
	Side        int
	Visits      int
	Score       float64
	Move        string
	TotalVisits int
}

// parseInfo parses "info side <n> visits <v> score <s> move <choice...>" and
// "info totalvisits <n>". The move runs to the end of the line.
func parseInfo(line string) info {
	var in info
	tokens := strings.Fields(line)
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "info":
			continue
		case "side":
			if i+1 < len(tokens) {
				in.Side, _ = strconv.Atoi(tokens[i+1])
				i++
			}
		case "visits":
			if i+1 < len(tokens) {
				in.Visits, _ = strconv.Atoi(tokens[i+1])
				i++
			}
		case "score":
			if i+1 < len(tokens) {
				in.Score, _ = strconv.ParseFloat(tokens[i+1], 64)
				i++
			}
		case "totalvisits":
			if i+1 < len(tokens) {
				in.TotalVisits, _ = strconv.Atoi(tokens[i+1])
				i++
			}
		case "move":
			in.Move = strings.Join(tokens[i+1:], " ")
			return in
		}
	}
	return in
}

// add folds a parsed info line into the results.
func (r *SearchResults) add(in info) error {
	if in.TotalVisits > 0 {
		r.TotalVisits = in.TotalVisits
	}
	if in.Move == "" {
		return nil
	}
	c, err := battle.ParseChoice(in.Move)
	if err != nil {
		return err
	}
	mv := MoveVisits{Choice: c, Visits: in.Visits, Score: in.Score}
	if in.Side == 2 {
		r.SideTwo = append(r.SideTwo, mv)
	} else {
		r.SideOne = append(r.SideOne, mv)
	}
	return nil
}

// parseDamageRolls parses "damagerolls <min> <max> <critmin> <critmax>".
// Crit values default to the non-crit values when omitted.
func parseDamageRolls(line string) (DamageRolls, error) {
	tokens := strings.Fields(strings.TrimPrefix(line, "damagerolls"))
	if len(tokens) < 2 {
		return DamageRolls{}, fmt.Errorf("malformed damagerolls line %q", line)
	}
	vals := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return DamageRolls{}, fmt.Errorf("malformed damagerolls value %q: %w", tok, err)
		}
		vals[i] = v
	}
	dr := DamageRolls{Min: vals[0], Max: vals[1], CritMin: vals[0], CritMax: vals[1]}
	if len(vals) >= 4 {
		dr.CritMin, dr.CritMax = vals[2], vals[3]
	}
	return dr, nil
}

// parseEngineOption parses an "option" line from the engine handshake.
// Format: option name <id> type <type> [default <x>] [min <x>] [max <x>] [var <x> ...]
func parseEngineOption(line string) EngineOption {
	var opt EngineOption
	tokens := strings.Fields(line)

	for i := 0; i < len(tokens); i++ {
		if i+1 >= len(tokens) {
			break
		}
		switch tokens[i] {
		case "name":
			i++
			opt.Name = tokens[i]
		case "type":
			i++
			opt.Type = tokens[i]
		case "default":
			i++
			opt.Default = tokens[i]
		case "min":
			i++
			opt.Min = tokens[i]
		case "max":
			i++
			opt.Max = tokens[i]
		case "var":
			i++
			opt.Vars = append(opt.Vars, tokens[i])
		}
	}
	return opt
}
