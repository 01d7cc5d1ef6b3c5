package detector

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/MeKo-Tech/bubbletrans/internal/onnx"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// Candidate is a raw detection before thresholding and suppression.
// Seq is its position in the model output.
type Candidate struct {
	Seq        int
	Box        utils.Box
	Confidence float64
}

// decodeOutput reads YOLO-style detection heads.
//
// Two layouts are accepted:
//   - [1, 4+C, N]: rows cx, cy, w, h followed by C class scores (anchor-free heads).
//   - [1, N, 5+C]: per anchor cx, cy, w, h, objectness and optional class scores.
func decodeOutput(t onnx.Tensor) ([]Candidate, error) {
	if len(t.Shape) != 3 || t.Shape[0] != 1 {
		return nil, fmt.Errorf("unexpected detection output shape %v", t.Shape)
	}
	a, b := int(t.Shape[1]), int(t.Shape[2])
	if a*b != len(t.Data) {
		return nil, fmt.Errorf("detection output length %d does not match shape %v", len(t.Data), t.Shape)
	}
	if a < 5 && b < 5 {
		return nil, errors.New("detection output has too few features")
	}

	featuresFirst := a >= 5 && (a < b || b < 5)
	if featuresFirst {
		n, f := b, a
		out := make([]Candidate, 0, n)
		for i := range n {
			at := func(k int) float64 { return float64(t.Data[k*n+i]) }
			conf := at(4)
			for k := 5; k < f; k++ {
				conf = max(conf, at(k))
			}
			out = append(out, Candidate{Seq: i, Box: utils.BoxFromCenter(at(0), at(1), at(2), at(3)), Confidence: conf})
		}
		return out, nil
	}

	n, f := a, b
	out := make([]Candidate, 0, n)
	for i := range n {
		row := t.Data[i*f : (i+1)*f]
		conf := float64(row[4])
		if f > 5 {
			best := float64(row[5])
			for _, v := range row[6:] {
				best = max(best, float64(v))
			}
			conf *= best
		}
		out = append(out, Candidate{
			Seq:        i,
			Box:        utils.BoxFromCenter(float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])),
			Confidence: conf,
		})
	}
	return out, nil
}

// Postprocess turns raw candidates into final regions: candidates below
// threshold are dropped, boxes are clamped to bounds, degenerate boxes are
// removed and overlaps above iouThreshold are suppressed. Survivors keep
// model output order and are indexed from zero.
func Postprocess(raw []Candidate, bounds image.Rectangle, threshold, iouThreshold float64) []Region {
	filtered := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		c.Confidence = min(c.Confidence, 1)
		if math.IsNaN(c.Confidence) || c.Confidence < threshold {
			continue
		}
		c.Box = c.Box.Clamp(bounds)
		if c.Box.Empty() {
			continue
		}
		filtered = append(filtered, c)
	}

	kept := NonMaxSuppression(filtered, iouThreshold)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Seq < kept[j].Seq })

	regions := make([]Region, len(kept))
	for i, c := range kept {
		regions[i] = Region{Index: i, Box: c.Box, Confidence: c.Confidence}
	}
	return regions
}
