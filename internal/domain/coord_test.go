package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	keys := []Key{{0, 0, 0}, {1, -2, 3}, {-10, 250, -7}}
	for _, k := range keys {
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Equal(t, "1,-2,3", Key{1, -2, 3}.String())
}

func TestParseKeyInvalid(t *testing.T) {
	for _, s := range []string{"", "1,2", "1,2,3,4", "a,b,c", "1.5,2,3"} {
		_, err := ParseKey(s)
		assert.ErrorIs(t, err, ErrInvalidKey, "input %q", s)
	}
}

func TestBlocksFromGridSorted(t *testing.T) {
	grid := map[string]string{"1,0,0": "dirt", "0,0,0": "stone"}
	assert.Equal(t, []Block{{Key: "0,0,0", Type: "stone"}, {Key: "1,0,0", Type: "dirt"}}, BlocksFromGrid(grid))
	assert.Empty(t, BlocksFromGrid(nil))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, MatchResultWin, Outcome(3, 1))
	assert.Equal(t, MatchResultLose, Outcome(0, 1))
	assert.Equal(t, MatchResultDraw, Outcome(2, 2))

	assert.Nil(t, WinnerAddress("a", "b", 1, 1))
	require.NotNil(t, WinnerAddress("a", "b", 0, 1))
	assert.Equal(t, "b", *WinnerAddress("a", "b", 0, 1))
}

func TestPhaseNext(t *testing.T) {
	assert.Equal(t, PhaseHunting, PhaseBuilding.Next())
	assert.Equal(t, PhaseResults, PhaseHunting.Next())
	assert.Equal(t, PhaseResults, PhaseResults.Next())
}
