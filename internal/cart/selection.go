package cart

// AllSelected reports whether every line is selected. An empty cart is not
// considered fully selected.
func AllSelected(lines Lines) bool {
	if len(lines) == 0 {
		return false
	}
	for _, line := range lines {
		if !line.Selected {
			return false
		}
	}
	return true
}

// ToggleOne flips the selection of exactly one line and returns the new snapshot.
// The input is left untouched. The boolean is false when id is not in the cart.
func ToggleOne(lines Lines, id LineID) (Lines, bool) {
	idx := lines.Index(id)
	if idx < 0 {
		return lines, false
	}
	out := lines.Clone()
	out[idx].Selected = !out[idx].Selected
	return out, true
}

// ToggleAll selects every line unless all are already selected, in which case it
// deselects every line.
func ToggleAll(lines Lines) Lines {
	target := !AllSelected(lines)
	return SetAllSelected(lines, target)
}

// SetAllSelected forces every line to the given selection flag.
func SetAllSelected(lines Lines, selected bool) Lines {
	out := lines.Clone()
	for i := range out {
		out[i].Selected = selected
	}
	return out
}

// Selection maps line ids to their selection flag.
type Selection map[LineID]bool

// SelectionOf captures the selection flags of a snapshot.
func SelectionOf(lines Lines) Selection {
	sel := make(Selection, len(lines))
	for _, line := range lines {
		sel[line.ID] = line.Selected
	}
	return sel
}

// Diff returns the ids whose flag differs between s and other, in the order of lines.
func (s Selection) Diff(other Selection, lines Lines) []LineID {
	var changed []LineID
	for _, line := range lines {
		if s[line.ID] != other[line.ID] {
			changed = append(changed, line.ID)
		}
	}
	return changed
}
