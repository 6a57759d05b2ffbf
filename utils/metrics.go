package utils

import "fmt"

// ZeroOneLoss is the fraction of predictions that differ from gold.
func ZeroOneLoss(gold, pred []int) (float64, error) {
	if len(gold) != len(pred) {
		return 0, fmt.Errorf("zero-one loss: length mismatch gold=%d pred=%d", len(gold), len(pred))
	}
	if len(gold) == 0 {
		return 0, fmt.Errorf("zero-one loss: empty input")
	}
	wrong := 0
	for i := range gold {
		if gold[i] != pred[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(len(gold)), nil
}
