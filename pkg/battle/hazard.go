package battle

// Side condition names for entry hazards.
const (
	StealthRock = "stealthrock"
	Spikes      = "spikes"
	ToxicSpikes = "toxicspikes"
	StickyWeb   = "stickyweb"
)

const hazardBoots = "heavydutyboots"

// spikesFraction is indexed by layer count.
var spikesFraction = [...]float64{0, 1.0 / 8, 1.0 / 6, 1.0 / 4}

// toxicSpikesFraction approximates the first turns of poison (one layer) or bad poison (two).
var toxicSpikesFraction = [...]float64{0, 1.0 / 8, 1.0 / 6}

var toxicImmuneAbilities = map[string]bool{
	"immunity":      true,
	"purifyingsalt": true,
	"comatose":      true,
	"pastelveil":    true,
}

// Grounded reports whether ground-based hazards affect the unit.
func Grounded(u *Unit) bool {
	if u == nil {
		return false
	}
	if u.HasType("flying") || u.Ability == "levitate" || u.Item == "airballoon" {
		return false
	}
	if u.HasVolatile("magnetrise") || u.HasVolatile("telekinesis") {
		return false
	}
	return true
}

// IgnoresHazards reports whether the unit's item blocks all entry hazard effects.
func IgnoresHazards(u *Unit) bool {
	return u != nil && u.Item == hazardBoots
}

// StealthRockFraction returns the type-scaled fraction of max HP stealth rock removes.
func StealthRockFraction(u *Unit) float64 {
	if u == nil || len(u.Types) == 0 {
		return 0
	}
	return Effectiveness("rock", u.Types) / 8
}

// SwitchInHazardFraction estimates the fraction of max HP a unit loses on entry
// using fixed per-layer fractions. Stealth rock counts as a flat eighth.
func SwitchInHazardFraction(u *Unit, conditions map[string]int) float64 {
	if u == nil || IgnoresHazards(u) {
		return 0
	}
	total := 0.0
	if conditions[StealthRock] > 0 {
		total += 1.0 / 8
	}
	if !Grounded(u) {
		return total
	}
	if layers := clampLayers(conditions[Spikes], len(spikesFraction)-1); layers > 0 {
		total += spikesFraction[layers]
	}
	if layers := clampLayers(conditions[ToxicSpikes], len(toxicSpikesFraction)-1); layers > 0 && poisonable(u) {
		total += toxicSpikesFraction[layers]
	}
	return total
}

// EntryChipFraction estimates the fraction of max HP lost on entry with
// stealth rock scaled by type and spikes applied to grounded units.
func EntryChipFraction(u *Unit, conditions map[string]int) float64 {
	if u == nil || IgnoresHazards(u) {
		return 0
	}
	total := 0.0
	if conditions[StealthRock] > 0 {
		total += StealthRockFraction(u)
	}
	if Grounded(u) {
		total += spikesFraction[clampLayers(conditions[Spikes], len(spikesFraction)-1)]
	}
	return total
}

func poisonable(u *Unit) bool {
	if u.Status != "" {
		return false
	}
	if u.HasType("poison") || u.HasType("steel") {
		return false
	}
	return !toxicImmuneAbilities[u.Ability]
}

func clampLayers(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
