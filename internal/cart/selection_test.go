package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleOneFlipsOnlyTarget(t *testing.T) {
	t.Parallel()

	lines := Lines{fullLine(1, 1, 1000, 1, true), fullLine(2, 1, 1000, 1, false), fullLine(3, 2, 1000, 1, true)}
	out, ok := ToggleOne(lines, 2)
	require.True(t, ok)

	assert.Equal(t, []bool{true, true, true}, flags(out))
	assert.Equal(t, []bool{true, false, true}, flags(lines), "input must not be mutated")

	_, ok = ToggleOne(lines, 99)
	assert.False(t, ok)
}

func TestToggleAllSelectsWhenAnyUnselected(t *testing.T) {
	t.Parallel()

	lines := Lines{fullLine(1, 1, 1000, 1, true), fullLine(2, 1, 1000, 1, false)}
	assert.Equal(t, []bool{true, true}, flags(ToggleAll(lines)))
}

func TestToggleAllDeselectsWhenAllSelected(t *testing.T) {
	t.Parallel()

	lines := Lines{fullLine(1, 1, 1000, 1, true), fullLine(2, 1, 1000, 1, true)}
	assert.Equal(t, []bool{false, false}, flags(ToggleAll(lines)))
}

func TestToggleAllTwiceRestoresUniformSelections(t *testing.T) {
	t.Parallel()

	for _, selected := range []bool{true, false} {
		lines := Lines{fullLine(1, 1, 1000, 1, selected), fullLine(2, 2, 1000, 1, selected), fullLine(3, 3, 1000, 1, selected)}
		assert.Equal(t, flags(lines), flags(ToggleAll(ToggleAll(lines))))
	}
}

func TestToggleAllEmptyCart(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ToggleAll(Lines{}))
	assert.False(t, AllSelected(nil))
}

func TestSelectionDiff(t *testing.T) {
	t.Parallel()

	before := Lines{fullLine(1, 1, 1000, 1, true), fullLine(2, 1, 1000, 1, false), fullLine(3, 1, 1000, 1, false)}
	after := SetAllSelected(before, true)
	assert.Equal(t, []LineID{2, 3}, SelectionOf(before).Diff(SelectionOf(after), before))
}

func flags(lines Lines) []bool {
	out := make([]bool, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Selected)
	}
	return out
}
