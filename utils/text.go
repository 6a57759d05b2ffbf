package utils

import (
	"fmt"
	"math/rand/v2"
)

// Truncation directions for TruncIndexs.
const (
	TruncLeft  = "left"
	TruncRight = "right"
)

// TruncIndexs cuts a token-index sequence down to window entries, padding
// with padIndex when the sequence is shorter than the window (unless
// usePadding is false). direction "left" keeps the rightmost tokens and pads
// on the left; "right" keeps the leftmost tokens and pads on the right.
// window -1 returns a copy of the whole sequence.
func TruncIndexs(sent []int, window int, direction string, padIndex int, usePadding bool) ([]int, error) {
	if direction != TruncLeft && direction != TruncRight {
		return nil, fmt.Errorf("trunc indexs: unknown direction %q", direction)
	}
	if window == -1 {
		return append([]int{}, sent...), nil
	}
	if window > len(sent) {
		if !usePadding {
			return append([]int{}, sent...), nil
		}
		padding := make([]int, window-len(sent))
		for i := range padding {
			padding[i] = padIndex
		}
		if direction == TruncLeft {
			return append(padding, sent...), nil
		}
		return append(append([]int{}, sent...), padding...), nil
	}
	if direction == TruncLeft {
		return append([]int{}, sent[len(sent)-window:]...), nil
	}
	return append([]int{}, sent[:window]...), nil
}

// ShuffleTwo shuffles two same-length slices with the same permutation so
// that sample/label correspondence survives.
func ShuffleTwo(x [][]int, y []int, rng *rand.Rand) ([][]int, []int, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("shuffle two: length mismatch x=%d y=%d", len(x), len(y))
	}
	perm := rng.Perm(len(x))
	xs := make([][]int, len(x))
	ys := make([]int, len(y))
	for i, p := range perm {
		xs[i] = x[p]
		ys[i] = y[p]
	}
	return xs, ys, nil
}
