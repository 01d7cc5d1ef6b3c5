package detector

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	"github.com/disintegration/imaging"
)

var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterboxed is a square model input with the page scaled and centered in it.
type letterboxed struct {
	image      *image.NRGBA
	scale      float64
	padX, padY float64
}

func letterbox(img image.Image, size int) letterboxed {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	scale := min(float64(size)/w, float64(size)/h)

	nw := max(1, int(w*scale+0.5))
	nh := max(1, int(h*scale+0.5))
	resized := imaging.Resize(img, nw, nh, imaging.Linear)

	canvas := imaging.New(size, size, padColor)
	padX, padY := (size-nw)/2, (size-nh)/2
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	return letterboxed{
		image: canvas,
		scale: scale,
		padX:  float64(padX),
		padY:  float64(padY),
	}
}

// toPage maps a box in model input space back to page coordinates.
func (l letterboxed) toPage(b utils.Box) utils.Box {
	return utils.NewBox(
		(b.MinX-l.padX)/l.scale,
		(b.MinY-l.padY)/l.scale,
		(b.MaxX-l.padX)/l.scale,
		(b.MaxY-l.padY)/l.scale,
	)
}
