package volume

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
)

// PageProcessor processes a single page.
type PageProcessor interface {
	Process(ctx context.Context, page *pipeline.Page) (*pipeline.ProcessedPage, error)
}

// PageResult is the outcome for one page image of a volume.
type PageResult struct {
	Number int                     `json:"number"`
	Seq    int                     `json:"seq,omitempty"`
	Name   string                  `json:"name"`
	Page   *pipeline.ProcessedPage `json:"page,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Result collects page results in volume order.
type Result struct {
	Path              string       `json:"path"`
	Pages             []PageResult `json:"pages"`
	FailedPages       int          `json:"failed_pages"`
	TotalRegions      int          `json:"total_regions"`
	TranslatedRegions int          `json:"translated_regions"`
	ProcessingTimeMs  int64        `json:"processing_time_ms"`
}

// Options controls volume processing.
type Options struct {
	PageRange  string
	SourceLang string
	TargetLang string
	Progress   pipeline.ProgressCallback
}

// Process extracts the pages of the volume at path and runs them one by one.
// A failing page is recorded and processing continues; only extraction
// errors and cancellation abort the volume.
func Process(ctx context.Context, proc PageProcessor, path string, opts Options) (*Result, error) {
	start := time.Now()
	images, err := Extract(path, opts.PageRange)
	if err != nil {
		return nil, err
	}
	return ProcessImages(ctx, proc, path, images, opts, start)
}

// ProcessImages runs already extracted page images.
func ProcessImages(ctx context.Context, proc PageProcessor, path string, images []PageImage, opts Options, start time.Time) (*Result, error) {
	progress := opts.Progress
	if progress == nil {
		progress = pipeline.NoOpProgressCallback{}
	}
	progress.OnStart(len(images))
	defer progress.OnComplete()

	res := &Result{Path: path, Pages: make([]PageResult, 0, len(images))}
	for i, pi := range images {
		if err := ctx.Err(); err != nil {
			res.ProcessingTimeMs = time.Since(start).Milliseconds()
			return res, err
		}
		pr := PageResult{Number: pi.Number, Seq: pi.Seq, Name: pi.Name}

		page, err := pipeline.NewPage(pi.Image, opts.SourceLang, opts.TargetLang)
		if err == nil {
			page.Source = fmt.Sprintf("%s#%d", path, pi.Number)
			pr.Page, err = proc.Process(ctx, page)
		}
		if err != nil {
			pr.Error = err.Error()
			res.FailedPages++
			progress.OnError(i+1, err)
			slog.Warn("Volume page failed", "path", path, "page", pi.Number, "error", err)
		}
		if pr.Page != nil {
			res.TotalRegions += pr.Page.Summary.TotalRegions
			res.TranslatedRegions += pr.Page.Summary.TranslatedRegions
		}
		res.Pages = append(res.Pages, pr)
		progress.OnProgress(i+1, len(images))
	}
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	return res, nil
}
