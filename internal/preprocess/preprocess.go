// Package preprocess normalizes cropped bubble regions before recognition.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	"github.com/disintegration/imaging"
)

// ErrRegionTooSmall is returned when the crop is below the smallest size worth recognizing.
var ErrRegionTooSmall = errors.New("region too small")

// Options controls region preparation. Contrast is a percentage in [-100, 100]
// passed to imaging.AdjustContrast; sigma values of zero disable that step.
type Options struct {
	Margin       int
	MinSize      int
	MinCrop      int
	Contrast     float64
	DenoiseSigma float64
	SharpenSigma float64
}

// DefaultOptions returns the default preparation settings.
func DefaultOptions() Options {
	return Options{
		Margin:       4,
		MinSize:      32,
		MinCrop:      5,
		Contrast:     50,
		DenoiseSigma: 0.5,
		SharpenSigma: 0.6,
	}
}

// Validate reports unusable option values.
func (o Options) Validate() error {
	switch {
	case o.Margin < 0:
		return fmt.Errorf("margin must be >= 0, got %d", o.Margin)
	case o.MinSize < 1:
		return fmt.Errorf("min size must be >= 1, got %d", o.MinSize)
	case o.MinCrop < 1:
		return fmt.Errorf("min crop must be >= 1, got %d", o.MinCrop)
	case o.Contrast < -100 || o.Contrast > 100:
		return fmt.Errorf("contrast must be in [-100,100], got %f", o.Contrast)
	case o.DenoiseSigma < 0 || o.SharpenSigma < 0:
		return errors.New("sigma values must be >= 0")
	}
	return nil
}

// Prepare crops box (plus margin) out of page, converts it to grayscale,
// stretches contrast, smooths noise, sharpens strokes and upscales it with
// Lanczos when its shorter side is below MinSize. The result depends only on
// the inputs.
func Prepare(page image.Image, box utils.Box, opts Options) (*image.NRGBA, error) {
	if page == nil {
		return nil, &utils.ImageProcessingError{Operation: "prepare", Err: errors.New("nil page")}
	}

	rect := box.Expand(float64(opts.Margin)).ToRect(page.Bounds())
	if rect.Dx() < opts.MinCrop || rect.Dy() < opts.MinCrop {
		return nil, fmt.Errorf("%w: %dx%d", ErrRegionTooSmall, rect.Dx(), rect.Dy())
	}

	img := imaging.Crop(page, rect)
	img = imaging.Grayscale(img)
	if opts.Contrast != 0 {
		img = imaging.AdjustContrast(img, opts.Contrast)
	}
	if opts.DenoiseSigma > 0 {
		img = imaging.Blur(img, opts.DenoiseSigma)
	}
	if opts.SharpenSigma > 0 {
		img = imaging.Sharpen(img, opts.SharpenSigma)
	}
	return upscale(img, opts.MinSize), nil
}

// upscale enlarges img so its shorter side reaches minSize, keeping aspect ratio.
func upscale(img *image.NRGBA, minSize int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	short := min(w, h)
	if short >= minSize {
		return img
	}
	scale := float64(minSize) / float64(short)
	nw := max(minSize, int(math.Round(float64(w)*scale)))
	nh := max(minSize, int(math.Round(float64(h)*scale)))
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}
