package detector

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/bubbletrans/internal/onnx"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// featuresFirst builds a [1, 5, N] tensor from rows of cx, cy, w, h, conf.
func featuresFirst(rows ...[5]float32) onnx.Tensor {
	n := len(rows)
	data := make([]float32, 5*n)
	for i, r := range rows {
		for k := range 5 {
			data[k*n+i] = r[k]
		}
	}
	return onnx.Tensor{Data: data, Shape: []int64{1, 5, int64(n)}}
}

func TestDecodeOutput_FeaturesFirst(t *testing.T) {
	out := featuresFirst(
		[5]float32{50, 50, 20, 10, 0.9},
		[5]float32{10, 10, 4, 4, 0.1},
		[5]float32{0, 0, 2, 2, 0.2},
		[5]float32{0, 0, 2, 2, 0.3},
		[5]float32{0, 0, 2, 2, 0.4},
		[5]float32{0, 0, 2, 2, 0.5},
	)
	cands, err := decodeOutput(out)
	require.NoError(t, err)
	require.Len(t, cands, 6)
	assert.Equal(t, utils.NewBox(40, 45, 60, 55), cands[0].Box)
	assert.InDelta(t, 0.9, cands[0].Confidence, 1e-6)
	assert.Equal(t, 1, cands[1].Seq)
}

func TestDecodeOutput_AnchorsFirstWithClasses(t *testing.T) {
	// 8 anchors x 7 features: cx, cy, w, h, obj, cls0, cls1.
	data := make([]float32, 8*7)
	copy(data[0:7], []float32{10, 10, 4, 4, 0.8, 0.5, 0.9})
	out := onnx.Tensor{Data: data, Shape: []int64{1, 8, 7}}

	cands, err := decodeOutput(out)
	require.NoError(t, err)
	require.Len(t, cands, 8)
	assert.InDelta(t, 0.72, cands[0].Confidence, 1e-6)
	assert.Equal(t, utils.NewBox(8, 8, 12, 12), cands[0].Box)
}

func TestDecodeOutput_BadShapes(t *testing.T) {
	tests := []struct {
		name string
		t    onnx.Tensor
	}{
		{"rank 2", onnx.Tensor{Data: make([]float32, 10), Shape: []int64{2, 5}}},
		{"batch 2", onnx.Tensor{Data: make([]float32, 20), Shape: []int64{2, 5, 2}}},
		{"length mismatch", onnx.Tensor{Data: make([]float32, 3), Shape: []int64{1, 5, 2}}},
		{"too few features", onnx.Tensor{Data: make([]float32, 12), Shape: []int64{1, 4, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeOutput(tt.t)
			assert.Error(t, err)
		})
	}
}

func TestPostprocess(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)
	raw := []Candidate{
		{Seq: 0, Box: utils.NewBox(60, 60, 140, 120), Confidence: 0.8},
		{Seq: 1, Box: utils.NewBox(0, 0, 30, 30), Confidence: 0.4},
		{Seq: 2, Box: utils.NewBox(10, 10, 40, 40), Confidence: 0.95},
		{Seq: 3, Box: utils.NewBox(12, 12, 40, 40), Confidence: 0.7},
		{Seq: 4, Box: utils.NewBox(200, 200, 220, 220), Confidence: 0.99},
	}

	regions := Postprocess(raw, bounds, 0.5, 0.5)
	require.Len(t, regions, 2)

	assert.Equal(t, 0, regions[0].Index)
	assert.Equal(t, utils.NewBox(60, 60, 100, 80), regions[0].Box)
	assert.Equal(t, 1, regions[1].Index)
	assert.InDelta(t, 0.95, regions[1].Confidence, 1e-9)
}

func TestPostprocess_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	bounds := image.Rect(0, 0, 160, 120)

	properties.Property("regions are in bounds and above threshold", prop.ForAll(
		func(cs []Candidate, threshold float64) bool {
			for i := range cs {
				cs[i].Box = cs[i].Box.Expand(30)
			}
			for _, r := range Postprocess(cs, bounds, threshold, 0.5) {
				if !r.Box.Inside(bounds) || r.Confidence < threshold {
					return false
				}
			}
			return true
		},
		genCandidates(),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
