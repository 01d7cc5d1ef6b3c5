package testutil

import (
	"bytes"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

func TestBubblePage(t *testing.T) {
	img, boxes := BubblePage(3)
	require.Len(t, boxes, 3)
	assert.Equal(t, BubbleWidth+2*BubbleMargin, img.Bounds().Dx())

	for i, b := range boxes {
		assert.False(t, b.Empty())
		if i > 0 {
			assert.Greater(t, b.MinY, boxes[i-1].MaxY, "bubbles are stacked without overlap")
		}
		cx, cy := int(b.MinX)+BubbleWidth/2, int(b.MinY)+BubbleHeight/2
		assert.Equal(t, color.RGBAModel.Convert(color.Black), img.At(cx, cy), "text stroke in the middle")
		assert.Equal(t, color.RGBAModel.Convert(color.White), img.At(cx, int(b.MinY)+4), "bubble interior")
		assert.Equal(t, color.RGBAModel.Convert(screentone), img.At(int(b.MinX), int(b.MinY)), "corner outside the ellipse")
	}

	empty, none := BubblePage(0)
	assert.Empty(t, none)
	assert.Equal(t, 64, empty.Bounds().Dy())
}

func TestWhitePageAndGradient(t *testing.T) {
	assert.Equal(t, color.RGBAModel.Convert(color.White), WhitePage(5, 5).At(4, 4))
	g := Gradient(10, 10)
	assert.NotEqual(t, g.At(0, 0), g.At(9, 9))
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "page.png")
	WritePNG(t, path, Gradient(12, 8))

	data := EncodePNG(t, Gradient(12, 8))
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())

	decoded, _, err := utils.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dy())
}
