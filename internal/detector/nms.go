package detector

import "sort"

// NonMaxSuppression keeps the highest-confidence candidate of every group
// whose pairwise IoU exceeds iouThreshold. Output is sorted by confidence,
// ties broken by Seq.
func NonMaxSuppression(cands []Candidate, iouThreshold float64) []Candidate {
	if len(cands) <= 1 {
		return append([]Candidate(nil), cands...)
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := cands[order[i]], cands[order[j]]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Seq < b.Seq
	})

	suppressed := make([]bool, len(cands))
	kept := make([]Candidate, 0, len(cands))
	for x, a := range order {
		if suppressed[a] {
			continue
		}
		kept = append(kept, cands[a])
		for _, b := range order[x+1:] {
			if !suppressed[b] && cands[a].Box.IoU(cands[b].Box) > iouThreshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}
