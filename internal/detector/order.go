package detector

import (
	"sort"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// ReadingRanks returns, for each region in its input position, its position
// in reading order: top to bottom in rows, and within a row right to left
// when rtl is set (manga) or left to right otherwise. Two regions share a row
// when their vertical centers are closer than half the smaller height. The
// input is not reordered.
func ReadingRanks(regions []Region, rtl bool) []int {
	perm := make([]int, len(regions))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return readsBefore(regions[perm[i]].Box, regions[perm[j]].Box, rtl)
	})
	ranks := make([]int, len(regions))
	for pos, i := range perm {
		ranks[i] = pos
	}
	return ranks
}

func readsBefore(a, b utils.Box, rtl bool) bool {
	ay, by := (a.MinY+a.MaxY)/2, (b.MinY+b.MaxY)/2
	tol := min(a.Height(), b.Height()) / 2
	if ay < by-tol || ay > by+tol {
		return ay < by
	}
	if rtl {
		return a.MaxX > b.MaxX
	}
	return a.MinX < b.MinX
}
