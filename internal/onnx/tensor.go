package onnx

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/bubbletrans/internal/mempool"
)

// Tensor represents a simple float32 tensor prepared for ONNX input.
// Data layout is row-major, with NCHW for images.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// Release hands the data buffer back to the pool. The tensor must not be used afterwards.
func (t *Tensor) Release() {
	mempool.PutFloat32(t.Data)
	t.Data = nil
}

// NewImageTensor builds a single-image tensor with shape [1, C, H, W].
// data must be length C*H*W in NCHW order.
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if expected := c * h * w; len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	return Tensor{Data: data, Shape: []int64{1, int64(c), int64(h), int64(w)}}, nil
}

// ValidateNCHW ensures a shape is [N, C, H, W] with positive dimensions.
func ValidateNCHW(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// VerifyImageTensor checks data length matches the provided NCHW shape.
func VerifyImageTensor(t Tensor) error {
	if err := ValidateNCHW(t.Shape); err != nil {
		return err
	}
	n, c, h, w := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	if expected := int(n * c * h * w); len(t.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}

// Normalization maps 8-bit channel values v to (v/255 - Mean) / Std per RGB channel.
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// UnitNormalization scales to [0,1].
var UnitNormalization = Normalization{Mean: [3]float32{0, 0, 0}, Std: [3]float32{1, 1, 1}}

// SymmetricNormalization scales to [-1,1].
var SymmetricNormalization = Normalization{Mean: [3]float32{0.5, 0.5, 0.5}, Std: [3]float32{0.5, 0.5, 0.5}}

// ImageToTensor converts img into a [1,3,H,W] tensor of the image's own size.
// The data buffer is pooled; call Release once the tensor has been run.
func ImageToTensor(img image.Image, norm Normalization) (Tensor, error) {
	if img == nil {
		return Tensor{}, errors.New("nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Tensor{}, errors.New("empty image")
	}
	plane := w * h
	data := mempool.GetFloat32(3 * plane)
	for y := range h {
		for x := range w {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			data[i] = (float32(r>>8)/255 - norm.Mean[0]) / norm.Std[0]
			data[plane+i] = (float32(g>>8)/255 - norm.Mean[1]) / norm.Std[1]
			data[2*plane+i] = (float32(bl>>8)/255 - norm.Mean[2]) / norm.Std[2]
		}
	}
	return NewImageTensor(data, 3, h, w)
}
