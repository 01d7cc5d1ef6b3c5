package recognizer

import (
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/bubbletrans/internal/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out    onnx.Tensor
	err    error
	inputs []onnx.Tensor
}

func (f *fakeRunner) Run(t onnx.Tensor) (onnx.Tensor, error) {
	f.inputs = append(f.inputs, t)
	return f.out, f.err
}

func (f *fakeRunner) Close() error { return nil }

func newTestRecognizer(out onnx.Tensor, err error) (*Recognizer, *fakeRunner) {
	fr := &fakeRunner{out: out, err: err}
	return &Recognizer{
		config:  DefaultConfig(),
		model:   fr,
		charset: NewCharset([]string{"な", "に", "!"}, true),
	}, fr
}

func TestRecognize_DecodesText(t *testing.T) {
	// 5 classes: blank, な, に, !, space.
	out := onnx.Tensor{Data: oneHot(5, 1, 1, 0, 2, 3, 3), Shape: []int64{1, 6, 5}}
	r, fr := newTestRecognizer(out, nil)

	line, err := r.Recognize(image.NewGray(image.Rect(0, 0, 100, 40)))
	require.NoError(t, err)
	assert.Equal(t, "なに!", line.Text)
	assert.InDelta(t, 1.0, line.Confidence, 1e-9)

	require.Len(t, fr.inputs, 1)
	assert.Equal(t, int64(48), fr.inputs[0].Shape[2])
	assert.Zero(t, fr.inputs[0].Shape[3]%8)
}

func TestRecognize_RotatesVerticalCrops(t *testing.T) {
	out := onnx.Tensor{Data: oneHot(5, 0), Shape: []int64{1, 1, 5}}
	r, fr := newTestRecognizer(out, nil)

	line, err := r.Recognize(image.NewGray(image.Rect(0, 0, 30, 120)))
	require.NoError(t, err)
	assert.Empty(t, line.Text)
	assert.Zero(t, line.Confidence)

	shape := fr.inputs[0].Shape
	assert.Greater(t, shape[3], shape[2], "vertical crop should become a wide line")
}

func TestRecognize_Errors(t *testing.T) {
	r, _ := newTestRecognizer(onnx.Tensor{}, errors.New("session closed"))
	_, err := r.Recognize(image.NewGray(image.Rect(0, 0, 10, 10)))
	assert.ErrorContains(t, err, "session closed")

	_, err = r.Recognize(nil)
	assert.Error(t, err)

	bad, _ := newTestRecognizer(onnx.Tensor{Data: make([]float32, 6), Shape: []int64{1, 2, 3}}, nil)
	_, err = bad.Recognize(image.NewGray(image.Rect(0, 0, 10, 10)))
	assert.Error(t, err)
}

func TestResizeForRecognition(t *testing.T) {
	img := resizeForRecognition(image.NewGray(image.Rect(0, 0, 50, 25)), 48, 1280, 8)
	assert.Equal(t, 48, img.Bounds().Dy())
	assert.Equal(t, 96, img.Bounds().Dx())

	clamped := resizeForRecognition(image.NewGray(image.Rect(0, 0, 1000, 10)), 48, 320, 8)
	assert.Equal(t, 320, clamped.Bounds().Dx())
}

func TestNew_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Height = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.DictPath = "/nonexistent/dict.txt"
	_, err = New(cfg)
	assert.Error(t, err)
}
