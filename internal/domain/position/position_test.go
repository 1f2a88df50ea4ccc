package position

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-3, 4))
	assert.Equal(t, 2, Clamp(2, 4))
	assert.Equal(t, 4, Clamp(9, 4))
	assert.Equal(t, 0, Clamp(5, 0))
}

func TestInsertShiftsFollowingElements(t *testing.T) {
	out, idx := Insert([]string{"A", "B", "C"}, "X", 1)
	assert.Equal(t, []string{"A", "X", "B", "C"}, out)
	assert.Equal(t, 1, idx)

	out, idx = Insert([]string{"A", "B"}, "X", 99)
	assert.Equal(t, []string{"A", "B", "X"}, out)
	assert.Equal(t, 2, idx)

	out, idx = Insert(nil, "X", 3)
	assert.Equal(t, []string{"X"}, out)
	assert.Equal(t, 0, idx)
}

func TestMoveSameIndexIsNoop(t *testing.T) {
	order := []string{"A", "B", "C"}
	out, idx, changed := Move(order, "B", 1)
	assert.False(t, changed)
	assert.Equal(t, 1, idx)
	assert.Equal(t, order, out)
}

func TestMoveWithinList(t *testing.T) {
	out, idx, changed := Move([]string{"A", "B", "C", "D"}, "A", 2)
	assert.True(t, changed)
	assert.Equal(t, 2, idx)
	assert.Equal(t, []string{"B", "C", "A", "D"}, out)

	out, _, _ = Move([]string{"A", "B", "C", "D"}, "D", 0)
	assert.Equal(t, []string{"D", "A", "B", "C"}, out)
}

func TestMoveInsertsMissingItem(t *testing.T) {
	out, idx, changed := Move([]string{"A", "B"}, "C", 0)
	assert.True(t, changed)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{"C", "A", "B"}, out)
}

func TestNext(t *testing.T) {
	assert.Equal(t, 0, Next(nil))
	highest := 4
	assert.Equal(t, 5, Next(&highest))
}

func TestIsDense(t *testing.T) {
	assert.True(t, IsDense(nil))
	assert.True(t, IsDense([]int{2, 0, 1}))
	assert.False(t, IsDense([]int{0, 2}))
	assert.False(t, IsDense([]int{0, 0}))
	assert.False(t, IsDense([]int{-1, 0}))
}

// Random move sequences across several columns keep every column a dense
// permutation and preserve the card set.
func TestRandomMovesStayDense(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	columns := [][]int{{0, 1, 2, 3}, {4, 5}, {}, {6, 7, 8}}
	total := 9

	for step := 0; step < 2000; step++ {
		card := rng.Intn(total)
		target := rng.Intn(len(columns))
		index := rng.Intn(12) - 3

		src := -1
		for c, order := range columns {
			if IndexOf(order, card) >= 0 {
				src = c
			}
		}
		require.GreaterOrEqual(t, src, 0)

		if src == target {
			columns[target], _, _ = Move(columns[target], card, index)
		} else {
			columns[src] = Without(columns[src], card)
			var final int
			columns[target], final = Insert(columns[target], card, index)
			require.Equal(t, Clamp(index, len(columns[target])-1), final)
		}

		seen := map[int]bool{}
		for _, order := range columns {
			positions := make([]int, len(order))
			for i := range order {
				positions[i] = i
			}
			require.True(t, IsDense(positions))
			for _, id := range order {
				require.False(t, seen[id], "card %d appears twice", id)
				seen[id] = true
			}
		}
		require.Len(t, seen, total)
	}
}
