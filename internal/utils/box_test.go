package utils

import (
	"image"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNewBox_OrdersCorners(t *testing.T) {
	b := NewBox(10, 20, 0, 5)
	assert.Equal(t, Box{MinX: 0, MinY: 5, MaxX: 10, MaxY: 20}, b)
	assert.InDelta(t, 10.0, b.Width(), 1e-9)
	assert.InDelta(t, 15.0, b.Height(), 1e-9)
}

func TestBoxFromCenter(t *testing.T) {
	b := BoxFromCenter(50, 40, 20, 10)
	assert.Equal(t, Box{MinX: 40, MinY: 35, MaxX: 60, MaxY: 45}, b)
}

func TestBox_IoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10), 1},
		{"disjoint", NewBox(0, 0, 10, 10), NewBox(20, 20, 30, 30), 0},
		{"touching edge", NewBox(0, 0, 10, 10), NewBox(10, 0, 20, 10), 0},
		{"half overlap", NewBox(0, 0, 10, 10), NewBox(5, 0, 15, 10), 50.0 / 150.0},
		{"contained", NewBox(0, 0, 10, 10), NewBox(0, 0, 5, 5), 0.25},
		{"degenerate", NewBox(0, 0, 0, 10), NewBox(0, 0, 10, 10), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.a.IoU(tt.b), 1e-9)
			assert.InDelta(t, tt.want, tt.b.IoU(tt.a), 1e-9)
		})
	}
}

func TestBox_Clamp(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)
	tests := []struct {
		name string
		in   Box
		want Box
	}{
		{"inside", NewBox(10, 10, 20, 20), NewBox(10, 10, 20, 20)},
		{"overflow right bottom", NewBox(90, 40, 120, 70), NewBox(90, 40, 100, 50)},
		{"negative origin", NewBox(-5, -5, 10, 10), NewBox(0, 0, 10, 10)},
		{"fully outside", NewBox(200, 200, 300, 300), Box{MinX: 100, MinY: 50, MaxX: 100, MaxY: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp(bounds)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Inside(bounds))
		})
	}
}

func TestBox_ExpandAndToRect(t *testing.T) {
	b := NewBox(10.4, 10.6, 20.2, 20.8).Expand(2)
	assert.InDelta(t, 8.4, b.MinX, 1e-9)
	assert.InDelta(t, 22.8, b.MaxY, 1e-9)

	r := b.ToRect(image.Rect(0, 0, 21, 100))
	assert.Equal(t, image.Rect(8, 8, 21, 23), r)
}

func genBox() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 300),
		gen.Float64Range(-100, 300),
		gen.Float64Range(-100, 300),
		gen.Float64Range(-100, 300),
	).Map(func(v []interface{}) Box {
		return NewBox(v[0].(float64), v[1].(float64), v[2].(float64), v[3].(float64))
	})
}

func TestBox_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	bounds := image.Rect(0, 0, 200, 150)

	properties.Property("clamped boxes lie inside bounds", prop.ForAll(
		func(b Box) bool {
			return b.Clamp(bounds).Inside(bounds)
		},
		genBox(),
	))

	properties.Property("IoU is symmetric and within [0,1]", prop.ForAll(
		func(a, b Box) bool {
			x, y := a.IoU(b), b.IoU(a)
			return x >= 0 && x <= 1+1e-9 && x == y
		},
		genBox(), genBox(),
	))

	properties.TestingRun(t)
}
