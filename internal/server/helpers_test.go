package server

import (
	"bytes"
	"context"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

type fakeEngine struct {
	name     string
	readyErr error
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(context.Context, image.Image, []string) []engine.Candidate { return nil }

func (f *fakeEngine) Ready(context.Context) error { return f.readyErr }

// fakeProcessor returns one translated region per page, or err.
type fakeProcessor struct {
	mu    sync.Mutex
	err   error
	pages []*pipeline.Page
	cache *translation.Cache
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{cache: translation.NewCache(nil, translation.CacheConfig{})}
}

func (f *fakeProcessor) Process(_ context.Context, page *pipeline.Page) (*pipeline.ProcessedPage, error) {
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()

	b := page.Image.Bounds()
	out := &pipeline.ProcessedPage{
		PageID:     page.ID,
		Source:     page.Source,
		Width:      b.Dx(),
		Height:     b.Dy(),
		SourceLang: page.SourceLang,
		TargetLang: page.TargetLang,
		State:      pipeline.StateDone,
		Regions: []pipeline.RegionResult{{
			Index:               0,
			Box:                 utils.NewBox(2, 2, 20, 12),
			DetectionConfidence: 0.9,
			Text:                "こんにちは",
			Confidence:          0.8,
			Engine:              engine.NamePaddle,
			Translation:         "hello",
			Status:              pipeline.StatusTranslated,
		}},
	}
	out.Summary = pipeline.Summarize(out.Regions, 0)
	if f.err != nil {
		out.State = pipeline.StateFailed
		return out, f.err
	}
	return out, nil
}

func (f *fakeProcessor) Engines() []engine.Engine {
	return []engine.Engine{
		&fakeEngine{name: engine.NamePaddle},
		&fakeEngine{name: engine.NameVision, readyErr: engine.ErrModelUnavailable},
	}
}

func (f *fakeProcessor) Cache() *translation.Cache { return f.cache }

func (f *fakeProcessor) lastPage() *pipeline.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pages) == 0 {
		return nil
	}
	return f.pages[len(f.pages)-1]
}

func newTestServer(proc Processor) *Server {
	return NewServer(Config{CORSOrigin: "*", MaxUploadMB: 1, TimeoutSec: 5, SourceLang: "ja", TargetLang: "en"}, proc)
}

func createMultipartRequest(t *testing.T, data []byte, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if data != nil {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/translate", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
