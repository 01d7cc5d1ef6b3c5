package recognizer

import "math"

const blankIndex = 0

// decodeGreedy performs best-path CTC decoding over a [T, C] score matrix
// stored row-major in scores (or [C, T] when classesFirst). It returns the
// collapsed class indices and the probability of each emitted class.
func decodeGreedy(scores []float32, steps, classes int, classesFirst bool) ([]int, []float64) {
	if steps <= 0 || classes <= 0 || len(scores) < steps*classes {
		return nil, nil
	}

	row := make([]float32, classes)
	var indices []int
	var probs []float64
	prev := -1
	for t := range steps {
		if classesFirst {
			for k := range classes {
				row[k] = scores[k*steps+t]
			}
		} else {
			copy(row, scores[t*classes:(t+1)*classes])
		}

		idx := argmax(row)
		if idx != blankIndex && idx != prev {
			indices = append(indices, idx)
			probs = append(probs, probability(row, idx))
		}
		prev = idx
	}
	return indices, probs
}

func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// probability returns v[idx] when v already looks like a distribution and its
// softmax probability otherwise.
func probability(v []float32, idx int) float64 {
	var sum float64
	lo, hi := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		lo = min(lo, x)
		hi = max(hi, x)
	}
	if lo >= 0 && hi <= 1 && sum > 0.99 && sum < 1.01 {
		return float64(v[idx])
	}

	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - hi))
	}
	if denom == 0 {
		return 0
	}
	return math.Exp(float64(v[idx]-hi)) / denom
}

func meanConfidence(probs []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	var s float64
	for _, p := range probs {
		s += p
	}
	return s / float64(len(probs))
}
