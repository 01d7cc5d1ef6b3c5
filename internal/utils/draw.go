package utils

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// DrawLabel writes text on a filled background whose top-left corner is at pt.
// The label is shifted to stay inside dst.
func DrawLabel(dst *image.RGBA, pt image.Point, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	w := d.MeasureString(text).Ceil() + 4
	h := face.Metrics().Height.Ceil() + 2

	b := dst.Bounds()
	if pt.X+w > b.Max.X {
		pt.X = b.Max.X - w
	}
	if pt.X < b.Min.X {
		pt.X = b.Min.X
	}
	if pt.Y < b.Min.Y {
		pt.Y = b.Min.Y
	}
	if pt.Y+h > b.Max.Y {
		pt.Y = b.Max.Y - h
	}

	draw.Draw(dst, image.Rect(pt.X, pt.Y, pt.X+w, pt.Y+h), image.NewUniform(bg), image.Point{}, draw.Src)
	d.Dot = fixed.P(pt.X+2, pt.Y+face.Metrics().Ascent.Ceil()+1)
	d.DrawString(text)
}
