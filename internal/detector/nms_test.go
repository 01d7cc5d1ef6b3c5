package detector

import (
	"testing"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonMaxSuppression(t *testing.T) {
	tests := []struct {
		name     string
		in       []Candidate
		iou      float64
		wantSeqs []int
	}{
		{
			name:     "empty",
			in:       nil,
			iou:      0.5,
			wantSeqs: nil,
		},
		{
			name: "overlap keeps higher confidence",
			in: []Candidate{
				{Seq: 0, Box: utils.NewBox(0, 0, 100, 100), Confidence: 0.6},
				{Seq: 1, Box: utils.NewBox(5, 5, 105, 105), Confidence: 0.9},
			},
			iou:      0.5,
			wantSeqs: []int{1},
		},
		{
			name: "overlap below cutoff keeps both",
			in: []Candidate{
				{Seq: 0, Box: utils.NewBox(0, 0, 100, 100), Confidence: 0.6},
				{Seq: 1, Box: utils.NewBox(80, 0, 180, 100), Confidence: 0.9},
			},
			iou:      0.5,
			wantSeqs: []int{1, 0},
		},
		{
			name: "equal confidence prefers earlier detection",
			in: []Candidate{
				{Seq: 0, Box: utils.NewBox(0, 0, 10, 10), Confidence: 0.7},
				{Seq: 1, Box: utils.NewBox(0, 0, 10, 10), Confidence: 0.7},
			},
			iou:      0.5,
			wantSeqs: []int{0},
		},
		{
			name: "chain suppression is greedy",
			in: []Candidate{
				{Seq: 0, Box: utils.NewBox(0, 0, 10, 10), Confidence: 0.9},
				{Seq: 1, Box: utils.NewBox(2, 0, 12, 10), Confidence: 0.8},
				{Seq: 2, Box: utils.NewBox(4, 0, 14, 10), Confidence: 0.7},
			},
			iou:      0.5,
			wantSeqs: []int{0, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept := NonMaxSuppression(tt.in, tt.iou)
			var seqs []int
			for _, c := range kept {
				seqs = append(seqs, c.Seq)
			}
			assert.Equal(t, tt.wantSeqs, seqs)
		})
	}
}

func TestNonMaxSuppression_DoesNotMutateInput(t *testing.T) {
	in := []Candidate{
		{Seq: 0, Box: utils.NewBox(0, 0, 10, 10), Confidence: 0.1},
		{Seq: 1, Box: utils.NewBox(50, 50, 60, 60), Confidence: 0.9},
	}
	_ = NonMaxSuppression(in, 0.5)
	require.Equal(t, 0, in[0].Seq)
	require.Equal(t, 1, in[1].Seq)
}

func genCandidates() gopter.Gen {
	return gen.SliceOfN(15, gopter.CombineGens(
		gen.Float64Range(0, 180),
		gen.Float64Range(0, 180),
		gen.Float64Range(5, 40),
		gen.Float64Range(0, 1),
	).Map(func(v []interface{}) Candidate {
		x, y, s := v[0].(float64), v[1].(float64), v[2].(float64)
		return Candidate{Box: utils.NewBox(x, y, x+s, y+s), Confidence: v[3].(float64)}
	})).Map(func(cs []Candidate) []Candidate {
		for i := range cs {
			cs[i].Seq = i
		}
		return cs
	})
}

func TestNonMaxSuppression_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no kept pair overlaps above the cutoff", prop.ForAll(
		func(cs []Candidate, iou float64) bool {
			kept := NonMaxSuppression(cs, iou)
			for i := range kept {
				for j := i + 1; j < len(kept); j++ {
					if kept[i].Box.IoU(kept[j].Box) > iou {
						return false
					}
				}
			}
			return true
		},
		genCandidates(),
		gen.Float64Range(0.1, 0.9),
	))

	properties.Property("highest confidence candidate always survives", prop.ForAll(
		func(cs []Candidate, iou float64) bool {
			if len(cs) == 0 {
				return true
			}
			kept := NonMaxSuppression(cs, iou)
			best := cs[0]
			for _, c := range cs[1:] {
				if c.Confidence > best.Confidence {
					best = c
				}
			}
			return len(kept) > 0 && kept[0].Confidence == best.Confidence
		},
		genCandidates(),
		gen.Float64Range(0.1, 0.9),
	))

	properties.TestingRun(t)
}
