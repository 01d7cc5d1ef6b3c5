// Package volume splits comic volumes (PDF files or image directories) into
// page images and runs them through the page processor in order.
package volume

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// ErrNoPages is returned when a volume holds no page images.
var ErrNoPages = errors.New("volume contains no page images")

// PageImage is one image taken from a volume. Scanned comics carry one image
// per page; Seq tells apart several images on the same page.
type PageImage struct {
	Number int
	Seq    int
	Name   string
	Image  image.Image
}

// ExtractPDF returns the embedded images of the selected pages of a PDF,
// ordered by page then by extraction order. An empty pageRange selects all pages.
func ExtractPDF(path, pageRange string) ([]PageImage, error) {
	pages, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "bubbletrans-volume-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}
	if err := api.ExtractImagesFile(path, tempDir, selected, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return collectExtracted(tempDir, base)
}

// collectExtracted loads files written by pdfcpu, which are named
// <base>_<page>_<id>.<ext> or <base>_<page>.<ext>.
func collectExtracted(dir, base string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []PageImage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		num, ok := pageFromFilename(e.Name(), base)
		if !ok {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			// Masks and unsupported encodings are not pages.
			continue
		}
		out = append(out, PageImage{Number: num, Name: e.Name(), Image: img})
	}
	if len(out) == 0 {
		return nil, ErrNoPages
	}
	sortPages(out)
	return out, nil
}

func pageFromFilename(name, base string) (int, bool) {
	rest, ok := strings.CutPrefix(name, base+"_")
	if !ok {
		return 0, false
	}
	rest = strings.TrimSuffix(rest, filepath.Ext(rest))
	digits, _, _ := strings.Cut(rest, "_")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// sortPages orders images by page number then name and assigns Seq.
func sortPages(pages []PageImage) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Number != pages[j].Number {
			return pages[i].Number < pages[j].Number
		}
		return pages[i].Name < pages[j].Name
	})
	for i := range pages {
		if i > 0 && pages[i].Number == pages[i-1].Number {
			pages[i].Seq = pages[i-1].Seq + 1
		}
	}
}

// ExtractDir loads the supported images of a directory in lexical file order;
// the n-th image becomes page n. pageRange filters by that page number.
func ExtractDir(dir, pageRange string) ([]PageImage, error) {
	pages, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	want := map[int]bool{}
	for _, p := range pages {
		want[p] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsSupportedImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []PageImage
	for i, name := range names {
		num := i + 1
		if len(want) > 0 && !want[num] {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("page %d (%s): %w", num, name, err)
		}
		out = append(out, PageImage{Number: num, Name: name, Image: img})
	}
	if len(out) == 0 {
		return nil, ErrNoPages
	}
	return out, nil
}

// Extract dispatches on the path: directories are read as image folders,
// everything else as PDF.
func Extract(path, pageRange string) ([]PageImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ExtractDir(path, pageRange)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("unsupported volume format %q", filepath.Ext(path))
	}
	return ExtractPDF(path, pageRange)
}

// ParsePageRange parses "1-5", "1,3,5" or combinations. Empty means all pages.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	if from, to, ok := strings.Cut(part, "-"); ok {
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("invalid start page: %s", from)
		}
		end, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", to)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
