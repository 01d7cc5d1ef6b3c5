package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

var statusColors = map[Status]color.RGBA{
	StatusTranslated:        {R: 0, G: 200, B: 0, A: 255},
	StatusSkipped:           {R: 0, G: 120, B: 255, A: 255},
	StatusNoText:            {R: 255, G: 165, B: 0, A: 255},
	StatusTranslationFailed: {R: 220, G: 0, B: 0, A: 255},
	StatusPreprocessFailed:  {R: 220, G: 0, B: 0, A: 255},
	StatusCancelled:         {R: 128, G: 128, B: 128, A: 255},
}

// RenderOverlay draws every region box of page over img, colored by status
// and labelled "#index (confidence)". img is not modified.
func RenderOverlay(img image.Image, page *ProcessedPage) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if page == nil {
		return dst
	}

	for _, r := range page.Regions {
		col, ok := statusColors[r.Status]
		if !ok {
			col = color.RGBA{R: 255, A: 255}
		}
		rect := r.Box.ToRect(dst.Bounds())
		utils.DrawRect(dst, rect, col, 2)

		label := fmt.Sprintf("#%d (%.2f)", r.Index+1, r.DetectionConfidence)
		utils.DrawLabel(dst, image.Pt(rect.Min.X, rect.Min.Y-15), label, color.White, col)
	}
	return dst
}
