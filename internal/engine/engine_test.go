package engine

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name    string
	loadErr error
	cands   []Candidate
	err     error
	panics  bool
	delay   time.Duration

	loads    atomic.Int32
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Load(context.Context) error {
	f.loads.Add(1)
	return f.loadErr
}

func (f *fakeBackend) Recognize(context.Context, image.Image, []string) ([]Candidate, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("model exploded")
	}
	return f.cands, f.err
}

func (f *fakeBackend) Close() error { return nil }

func testImage() image.Image { return image.NewGray(image.Rect(0, 0, 40, 40)) }

func TestGuarded_LoadsOnce(t *testing.T) {
	b := &fakeBackend{name: "fake", cands: []Candidate{{Text: "hi", Confidence: 0.8}}}
	g := Guard(b, false)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Recognize(context.Background(), testImage(), []string{"en"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), b.loads.Load())
	assert.Equal(t, int32(8), b.calls.Load())
}

func TestGuarded_LoadFailureYieldsEmpty(t *testing.T) {
	b := &fakeBackend{name: "fake", loadErr: ErrModelUnavailable}
	g := Guard(b, false)

	assert.Empty(t, g.Recognize(context.Background(), testImage(), nil))
	assert.Empty(t, g.Recognize(context.Background(), testImage(), nil))
	assert.ErrorIs(t, g.Ready(context.Background()), ErrModelUnavailable)
	assert.Equal(t, int32(1), b.loads.Load())
	assert.Zero(t, b.calls.Load())
}

func TestGuarded_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		img     image.Image
	}{
		{"error", &fakeBackend{name: "e", err: errors.New("bad tensor")}, testImage()},
		{"panic", &fakeBackend{name: "p", panics: true}, testImage()},
		{"nil image", &fakeBackend{name: "n", cands: []Candidate{{Text: "x"}}}, nil},
		{"empty image", &fakeBackend{name: "z", cands: []Candidate{{Text: "x"}}}, image.NewGray(image.Rect(0, 0, 0, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Guard(tt.backend, false)
			assert.NotPanics(t, func() {
				assert.Empty(t, g.Recognize(context.Background(), tt.img, nil))
			})
		})
	}
}

func TestGuarded_SerializesCallsPerInstance(t *testing.T) {
	serial := &fakeBackend{name: "serial", delay: 5 * time.Millisecond}
	parallel := &fakeBackend{name: "parallel", delay: 20 * time.Millisecond}
	gs, gp := Guard(serial, false), Guard(parallel, true)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() { defer wg.Done(); gs.Recognize(context.Background(), testImage(), nil) }()
		go func() { defer wg.Done(); gp.Recognize(context.Background(), testImage(), nil) }()
	}
	wg.Wait()

	assert.Equal(t, int32(1), serial.maxSeen.Load())
	assert.Greater(t, parallel.maxSeen.Load(), int32(1))
}

func TestGuarded_NormalizesCandidates(t *testing.T) {
	b := &fakeBackend{name: "fake", cands: []Candidate{
		{Engine: "spoofed", Text: "  こんにちは\n", Confidence: 1.7},
		{Text: "Hello", Confidence: -0.2, Language: "en"},
		{Text: "", Confidence: 0.9},
	}}
	got := Guard(b, false).Recognize(context.Background(), testImage(), nil)
	require.Len(t, got, 3)

	assert.Equal(t, Candidate{Engine: "fake", Text: "こんにちは", Confidence: 1, Language: "ja"}, got[0])
	assert.Equal(t, Candidate{Engine: "fake", Text: "Hello", Confidence: 0, Language: "en"}, got[1])
	assert.Equal(t, "", got[2].Text)
	assert.Equal(t, "fake", got[2].Engine)
}

func TestRecognizeAll_KeepsEngineOrder(t *testing.T) {
	slow := Guard(&fakeBackend{name: "a", delay: 20 * time.Millisecond, cands: []Candidate{{Text: "first"}}}, false)
	fast := Guard(&fakeBackend{name: "b", cands: []Candidate{{Text: "second"}}}, false)
	none := Guard(&fakeBackend{name: "c"}, false)

	got := RecognizeAll(context.Background(), []Engine{slow, fast, none}, testImage(), nil)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Engine)
	assert.Equal(t, "b", got[1].Engine)
}
