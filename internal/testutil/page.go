// Package testutil draws synthetic comic pages for tests.
package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// Bubble layout of BubblePage: one column, top to bottom.
const (
	BubbleMargin = 20
	BubbleWidth  = 80
	BubbleHeight = 48
	BubbleStride = 64
)

var screentone = color.Gray{Y: 200}

// WhitePage returns a blank white page.
func WhitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// Gradient returns a page whose pixels differ in both directions, useful
// where encoders or resizers must not see a flat image.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: byte(x % 256), G: byte(y % 256), A: 255})
		}
	}
	return img
}

// BubblePage draws n elliptical speech bubbles, each holding a dark text
// stroke, on a screentone background. The boxes are in reading order.
func BubblePage(n int) (*image.RGBA, []utils.Box) {
	h := max(BubbleStride*n+2*BubbleMargin, 64)
	img := image.NewRGBA(image.Rect(0, 0, BubbleWidth+2*BubbleMargin, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(screentone), image.Point{}, draw.Src)

	boxes := make([]utils.Box, 0, n)
	for i := range n {
		x0, y0 := BubbleMargin, BubbleMargin+i*BubbleStride
		fillEllipse(img, image.Rect(x0, y0, x0+BubbleWidth, y0+BubbleHeight), color.White)
		stroke := image.Rect(x0+16, y0+BubbleHeight/2-3, x0+BubbleWidth-16, y0+BubbleHeight/2+3)
		draw.Draw(img, stroke, image.NewUniform(color.Black), image.Point{}, draw.Src)
		boxes = append(boxes, utils.NewBox(float64(x0), float64(y0), float64(x0+BubbleWidth), float64(y0+BubbleHeight)))
	}
	return img, boxes
}

func fillEllipse(img *image.RGBA, r image.Rectangle, c color.Color) {
	cx, cy := float64(r.Min.X+r.Max.X)/2, float64(r.Min.Y+r.Max.Y)/2
	rx, ry := float64(r.Dx())/2, float64(r.Dy())/2
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := (float64(x)+0.5-cx)/rx, (float64(y)+0.5-cy)/ry
			if dx*dx+dy*dy <= 1 {
				img.Set(x, y, c)
			}
		}
	}
}
