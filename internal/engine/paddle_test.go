package engine

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/MeKo-Tech/bubbletrans/internal/recognizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	line   recognizer.Line
	err    error
	closed bool
}

func (f *fakeLine) Recognize(image.Image) (recognizer.Line, error) { return f.line, f.err }

func (f *fakeLine) Close() error {
	f.closed = true
	return nil
}

func newFakePaddle(rec *fakeLine, openErr error) *Paddle {
	p := NewPaddle(recognizer.DefaultConfig())
	p.open = func(recognizer.Config) (lineRecognizer, error) {
		if openErr != nil {
			return nil, openErr
		}
		return rec, nil
	}
	return p
}

func TestPaddle_Recognize(t *testing.T) {
	rec := &fakeLine{line: recognizer.Line{Text: "なんだと", Confidence: 0.93}}
	p := newFakePaddle(rec, nil)
	require.NoError(t, p.Load(context.Background()))

	got, err := p.Recognize(context.Background(), testImage(), []string{"ja"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "なんだと", got[0].Text)
	assert.Equal(t, "ja", got[0].Language)

	require.NoError(t, p.Close())
	assert.True(t, rec.closed)
}

func TestPaddle_EmptyAndErrors(t *testing.T) {
	p := newFakePaddle(&fakeLine{}, nil)
	require.NoError(t, p.Load(context.Background()))
	got, err := p.Recognize(context.Background(), testImage(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	failing := newFakePaddle(&fakeLine{err: errors.New("inference")}, nil)
	require.NoError(t, failing.Load(context.Background()))
	_, err = failing.Recognize(context.Background(), testImage(), nil)
	assert.Error(t, err)

	missing := newFakePaddle(nil, errors.New("no such file"))
	assert.ErrorIs(t, missing.Load(context.Background()), ErrModelUnavailable)
	assert.NoError(t, missing.Close())
}

func TestPaddle_LanguageFallsBackToRequest(t *testing.T) {
	p := newFakePaddle(&fakeLine{line: recognizer.Line{Text: "...!", Confidence: 0.5}}, nil)
	require.NoError(t, p.Load(context.Background()))
	got, err := p.Recognize(context.Background(), testImage(), []string{"KO"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ko", got[0].Language)
}
