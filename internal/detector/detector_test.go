package detector

import (
	"context"
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
	calls  int
	inputs []onnx.Tensor
	closed bool
}

func (f *fakeRunner) Run(t onnx.Tensor) (onnx.Tensor, error) {
	f.calls++
	f.inputs = append(f.inputs, t)
	return f.out, f.err
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InputSize = 64
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }, true},
		{"negative iou", func(c *Config) { c.IoUThreshold = -0.1 }, true},
		{"input not multiple of 32", func(c *Config) { c.InputSize = 100 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestNewDetector_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/bubbles.onnx"
	_, err := NewDetector(cfg)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	cfg.ModelPath = ""
	_, err = NewDetector(cfg)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestDetect_MapsBoxesBackToPage(t *testing.T) {
	// 200x100 page into a 64px input: scale 0.32, 64x32 content, 16px vertical padding.
	runner := &fakeRunner{out: featuresFirst(
		[5]float32{32, 32, 32, 16, 0.9},
		[5]float32{10, 20, 8, 8, 0.2},
		[5]float32{60, 40, 20, 20, 0.7},
		[5]float32{0, 0, 1, 1, 0.0},
		[5]float32{0, 0, 1, 1, 0.0},
		[5]float32{0, 0, 1, 1, 0.0},
	)}
	d := newDetectorWithRunner(testConfig(), runner)

	page := image.NewRGBA(image.Rect(0, 0, 200, 100))
	regions, err := d.Detect(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, []int64{1, 3, 64, 64}, runner.inputs[0].Shape)

	first := regions[0].Box
	assert.InDelta(t, 50, first.MinX, 1e-6)
	assert.InDelta(t, 150, first.MaxX, 1e-6)
	assert.InDelta(t, 25, first.MinY, 1e-6)
	assert.InDelta(t, 75, first.MaxY, 1e-6)

	for _, r := range regions {
		assert.True(t, r.Box.Inside(page.Bounds()))
		assert.GreaterOrEqual(t, r.Confidence, 0.5)
	}
}

func TestDetect_Errors(t *testing.T) {
	page := image.NewRGBA(image.Rect(0, 0, 10, 10))

	d := newDetectorWithRunner(testConfig(), &fakeRunner{})
	_, err := d.Detect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrInvalidImage)

	var nilDetector *Detector
	_, err = nilDetector.Detect(context.Background(), page)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	failing := newDetectorWithRunner(testConfig(), &fakeRunner{err: errors.New("boom")})
	_, err = failing.Detect(context.Background(), page)
	assert.ErrorContains(t, err, "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Detect(ctx, page)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect_NoRegions(t *testing.T) {
	runner := &fakeRunner{out: featuresFirst(
		[5]float32{1, 1, 1, 1, 0.1},
		[5]float32{1, 1, 1, 1, 0.1},
		[5]float32{1, 1, 1, 1, 0.1},
		[5]float32{1, 1, 1, 1, 0.1},
		[5]float32{1, 1, 1, 1, 0.1},
		[5]float32{1, 1, 1, 1, 0.1},
	)}
	d := newDetectorWithRunner(testConfig(), runner)
	regions, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 64)))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestDetector_Close(t *testing.T) {
	runner := &fakeRunner{}
	d := newDetectorWithRunner(testConfig(), runner)
	require.NoError(t, d.Close())
	assert.True(t, runner.closed)

	var nilDetector *Detector
	assert.NoError(t, nilDetector.Close())
}
