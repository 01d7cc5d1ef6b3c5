package onnx

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	tests := []struct {
		name    string
		data    []float32
		c, h, w int
		wantErr bool
	}{
		{"valid", make([]float32, 3*4*5), 3, 4, 5, false},
		{"nil data", nil, 3, 4, 5, true},
		{"wrong length", make([]float32, 10), 3, 4, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := NewImageTensor(tt.data, tt.c, tt.h, tt.w)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 3, 4, 5}, tensor.Shape)
			assert.NoError(t, VerifyImageTensor(tensor))
		})
	}
}

func TestVerifyImageTensor(t *testing.T) {
	assert.Error(t, VerifyImageTensor(Tensor{Data: make([]float32, 6), Shape: []int64{1, 6}}))
	assert.Error(t, VerifyImageTensor(Tensor{Data: make([]float32, 6), Shape: []int64{1, 0, 2, 3}}))
	assert.Error(t, VerifyImageTensor(Tensor{Data: make([]float32, 5), Shape: []int64{1, 1, 2, 3}}))
	assert.NoError(t, VerifyImageTensor(Tensor{Data: make([]float32, 6), Shape: []int64{1, 1, 2, 3}}))
}

func TestImageToTensor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img.Set(1, 0, color.RGBA{R: 0, G: 255, B: 255, A: 255})

	tensor, err := ImageToTensor(img, UnitNormalization)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 1, 2}, tensor.Shape)
	assert.Equal(t, []float32{1, 0, 0, 1, 0, 1}, tensor.Data)

	sym, err := ImageToTensor(img, SymmetricNormalization)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sym.Data[0], 1e-6)
	assert.InDelta(t, -1.0, sym.Data[1], 1e-6)

	_, err = ImageToTensor(nil, UnitNormalization)
	assert.Error(t, err)

	tensor.Release()
	assert.Nil(t, tensor.Data)
	assert.NotPanics(t, tensor.Release)
}

func TestNewSession_MissingModel(t *testing.T) {
	_, err := NewSession("/nonexistent/model.onnx", 1)
	assert.Error(t, err)
}
