// Package position computes dense 0-based orderings for cards within a
// column and columns within a board.
//
// The functions are pure; repositories apply the resulting order inside a
// transaction.
package position

// Clamp bounds index to [0, n].
func Clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// Without returns a copy of order with every occurrence of item removed.
func Without[T comparable](order []T, item T) []T {
	out := make([]T, 0, len(order))
	for _, v := range order {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}

// Insert places item into others at index, clamped to [0, len(others)].
// Elements of others keep their relative order; the ones at or after the
// insertion point shift by one. others must not contain item.
func Insert[T comparable](others []T, item T, index int) ([]T, int) {
	index = Clamp(index, len(others))

	out := make([]T, 0, len(others)+1)
	out = append(out, others[:index]...)
	out = append(out, item)
	out = append(out, others[index:]...)
	return out, index
}

// Move relocates item inside order to index. It reports the final index
// and whether anything changed. If item is absent it is inserted.
func Move[T comparable](order []T, item T, index int) ([]T, int, bool) {
	current := IndexOf(order, item)
	others := Without(order, item)
	out, final := Insert(others, item, index)
	return out, final, current != final
}

// IndexOf returns the position of item in order, or -1.
func IndexOf[T comparable](order []T, item T) int {
	for i, v := range order {
		if v == item {
			return i
		}
	}
	return -1
}

// Next returns the position for an element appended to a list whose
// highest position is maxPos. A nil maxPos means the list is empty.
func Next(maxPos *int) int {
	if maxPos == nil {
		return 0
	}
	return *maxPos + 1
}

// IsDense reports whether positions are exactly 0..n-1 in some order.
func IsDense(positions []int) bool {
	seen := make([]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(positions) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
