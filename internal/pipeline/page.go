package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/bubbletrans/internal/detector"
	"github.com/MeKo-Tech/bubbletrans/internal/lang"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// Page is one decoded comic page plus the requested language pair. An empty
// SourceLang lets the engines and the arbiter infer the language per region.
type Page struct {
	ID         string
	Source     string
	Image      image.Image
	SourceLang string
	TargetLang string
}

// NewPage wraps img with a fresh id.
func NewPage(img image.Image, src, dst string) (*Page, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, detector.ErrInvalidImage
	}
	for _, l := range []string{src, dst} {
		if l != "" && !lang.IsSupported(l) {
			return nil, fmt.Errorf("unsupported language %q", l)
		}
	}
	return &Page{
		ID:         uuid.NewString(),
		Image:      img,
		SourceLang: lang.Normalize(src),
		TargetLang: lang.Normalize(dst),
	}, nil
}

// DecodePage reads an encoded image. Undecodable input maps to detector.ErrInvalidImage.
func DecodePage(r io.Reader, src, dst string) (*Page, error) {
	img, _, err := utils.DecodeImage(r)
	if err != nil {
		return nil, errors.Join(detector.ErrInvalidImage, err)
	}
	return NewPage(img, src, dst)
}

// LoadPage reads a page image from disk.
func LoadPage(path, src, dst string) (*Page, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, errors.Join(detector.ErrInvalidImage, err)
	}
	p, err := NewPage(img, src, dst)
	if err != nil {
		return nil, err
	}
	p.Source = path
	return p, nil
}
