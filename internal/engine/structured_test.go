package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionInfo_Resolve(t *testing.T) {
	tests := []struct {
		slot   int
		length int
		want   int
	}{
		{0, 3, 0},
		{2, 3, 2},
		{3, 3, -1},
		{-1, 3, 2},
		{-3, 3, 0},
		{-4, 3, -1},
	}
	for _, tc := range tests {
		got := PositionInfo[int]{Slot: tc.slot}.resolve(tc.length)
		assert.Equal(t, tc.want, got, "slot %d length %d", tc.slot, tc.length)
	}
}

func TestStructuredSpace_FirstSlotPinned(t *testing.T) {
	infos := []PositionInfo[int]{{Slot: 0, Alphabet: []int{9, 8, 7}}}
	space, err := NewStructured(digits(5), Lengths{Min: 3, Max: 5}, infos, StructuredOptions{})
	require.NoError(t, err)

	// 3*5^2 + 3*5^3 + 3*5^4
	assert.Equal(t, int64(75+375+1875), space.Max())

	got := walk(t, space, Window{Start: 1})
	require.Len(t, got, int(space.Max()))
	for _, c := range got {
		assert.Contains(t, []int{9, 8, 7}, c[0])
		for _, s := range c[1:] {
			assert.Contains(t, digits(5), s)
		}
	}

	first, err := space.CandidateAt(1)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 1, 1}, first)
}

func TestStructuredSpace_FromEnd(t *testing.T) {
	infos := []PositionInfo[string]{{Slot: -1, Alphabet: []string{"!", "?"}}}
	space, err := NewStructured([]string{"a", "b"}, Lengths{Min: 1, Max: 2}, infos, StructuredOptions{})
	require.NoError(t, err)

	got := walk(t, space, Window{Start: 1})
	assert.Equal(t, [][]string{
		{"!"}, {"?"},
		{"a", "!"}, {"a", "?"}, {"b", "!"}, {"b", "?"},
	}, got)
}

func TestStructuredSpace_SlotOutsideShortCandidates(t *testing.T) {
	infos := []PositionInfo[int]{{Slot: 2, Alphabet: []int{0}}}
	space, err := NewStructured([]int{1, 2}, Lengths{Min: 1, Max: 3}, infos, StructuredOptions{})
	require.NoError(t, err)

	// Slot 2 only exists at length 3.
	assert.Equal(t, int64(2+4+4), space.Max())
	slots, err := space.SlotAlphabets(3)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {1, 2}, {0}}, slots)
}

func TestStructuredSpace_Ambiguity(t *testing.T) {
	infos := []PositionInfo[int]{
		{Slot: 0, Alphabet: []int{7}},
		{Slot: -3, Alphabet: []int{8}},
	}

	// Slot 0 and slot -3 collide at length 3.
	_, err := NewStructured(digits(3), Lengths{Min: 2, Max: 4}, infos, StructuredOptions{})
	code, ok := ValidationCode(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeAmbiguousSlots, code)

	assert.NoError(t, CheckAmbiguity(infos, Lengths{Min: 4, Max: 6}))

	// Tolerated: the first entry wins at length 3.
	space, err := NewStructured(digits(3), Lengths{Min: 2, Max: 4}, infos, StructuredOptions{TolerateAmbiguity: true})
	require.NoError(t, err)
	slots, err := space.SlotAlphabets(3)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, slots[0])
}

func TestStructuredSpace_InvalidInfos(t *testing.T) {
	dup := []PositionInfo[int]{{Slot: 1, Alphabet: []int{1}}, {Slot: 1, Alphabet: []int{2}}}
	_, err := NewStructured(digits(3), Lengths{Min: 1, Max: 3}, dup, StructuredOptions{TolerateAmbiguity: true})
	code, _ := ValidationCode(err)
	assert.Equal(t, ErrCodeInvalidSlots, code)

	empty := []PositionInfo[int]{{Slot: 1}}
	_, err = NewStructured(digits(3), Lengths{Min: 1, Max: 3}, empty, StructuredOptions{})
	code, _ = ValidationCode(err)
	assert.Equal(t, ErrCodeInvalidAlphabet, code)
}

func TestStructuredSpace_RoundTripAndIncremental(t *testing.T) {
	infos := []PositionInfo[int]{
		{Slot: 0, Alphabet: []int{10, 20}},
		{Slot: -1, Alphabet: []int{30, 40, 50}},
	}
	space, err := NewStructured(digits(4), Lengths{Min: 2, Max: 5}, infos, StructuredOptions{Excluded: []int{3}})
	require.NoError(t, err)

	for pos := int64(1); pos <= space.Max(); pos++ {
		c, err := space.CandidateAt(pos)
		require.NoError(t, err)
		assert.NotEqual(t, 3, len(c))
		back, err := space.PositionOf(c)
		require.NoError(t, err)
		require.Equal(t, pos, back)
	}

	w := Window{Start: 2, End: space.Max()}
	got := walk(t, space, w)
	for i, c := range got {
		want, err := space.CandidateAt(w.Start + int64(i))
		require.NoError(t, err)
		require.Equal(t, want, c)
	}

	_, err = space.PositionOf([]int{1, 30})
	code, _ := ValidationCode(err)
	assert.Equal(t, ErrCodeInvalidCandidate, code)
}

func TestStructuredStatics(t *testing.T) {
	infos := []PositionInfo[int]{{Slot: 0, Alphabet: []int{9}}}
	m, err := StructuredMax(digits(2), Lengths{Min: 2, Max: 2}, infos, StructuredOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), m)

	c, err := StructuredCandidateAt(2, digits(2), Lengths{Min: 2, Max: 2}, infos, StructuredOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{9, 2}, c)

	pos, err := StructuredPositionOf([]int{9, 1}, digits(2), Lengths{Min: 2, Max: 2}, infos, StructuredOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)
}
