package battle

import "strconv"

// LegalChoices enumerates the user's options for the current decision.
//
// During team preview the options are 1-based lead slots. During a forced
// switch only switches are legal. Otherwise every usable move is offered,
// with tera and mega variants when the side still has them, followed by
// switches to living reserve units.
func LegalChoices(st *State) []Choice {
	if st == nil || st.User == nil {
		return nil
	}
	side := st.User
	if st.TeamPreview {
		out := make([]Choice, 0, len(side.Reserve))
		for i := range side.Reserve {
			out = append(out, SwitchChoice(strconv.Itoa(i+1)))
		}
		return out
	}

	var out []Choice
	if !st.ForceSwitch && side.Active.Alive() {
		for _, m := range side.Active.Moves {
			if !m.Usable() {
				continue
			}
			out = append(out, AttackChoice(m.Name))
			if side.CanTerastallize && !side.Active.Terastallized {
				out = append(out, SpecialFormChoice(m.Name, FormTera))
			}
			if side.CanMega {
				out = append(out, SpecialFormChoice(m.Name, FormMega))
			}
		}
	}
	for _, u := range side.AliveReserve() {
		out = append(out, SwitchChoice(u.Name))
	}
	return out
}
