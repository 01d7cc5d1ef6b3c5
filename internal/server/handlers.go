package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/detector"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	"github.com/MeKo-Tech/bubbletrans/internal/version"
)

const (
	formatJSON    = "json"
	formatText    = "text"
	formatCSV     = "csv"
	formatOverlay = "overlay"
)

// readier is implemented by engines that load their model lazily.
type readier interface {
	Ready(ctx context.Context) error
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// enginesHandler lists the recognition engines in build order. With
// ?check=1 each engine is loaded and its readiness reported.
func (s *Server) enginesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	check := r.URL.Query().Get("check") != ""

	var resp EnginesResponse
	for _, e := range s.processor.Engines() {
		info := EngineInfo{Name: e.Name()}
		if rd, ok := e.(readier); ok && check {
			ready := rd.Ready(r.Context()) == nil
			info.Ready = &ready
		}
		resp.Engines = append(resp.Engines, info)
	}
	resp.Count = len(resp.Engines)
	if c := s.processor.Cache(); c != nil {
		stats := c.Stats()
		resp.Cache = &stats
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// translateHandler runs one uploaded page through the pipeline.
func (s *Server) translateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page, format, ok := s.parseTranslateRequest(w, r)
	if !ok {
		pagesTotal.WithLabelValues("http", "rejected").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.processor.Process(ctx, page)
	observePage("http", res, err)
	if err != nil {
		status, kind := statusForError(err)
		slog.Warn("Page processing failed", "page_id", page.ID, "error", err)
		s.writeErrorResponse(w, kind, fmt.Sprintf("processing failed: %v", err), status)
		return
	}

	s.writePageResponse(w, page, res, format)
}

func (s *Server) parseTranslateRequest(w http.ResponseWriter, r *http.Request) (*pipeline.Page, string, bool) {
	maxBytes := s.maxUploadMB << 20
	// Leave headroom for the multipart envelope and form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "file_too_large", "request body too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "invalid_request", "failed to parse form data", http.StatusBadRequest)
		}
		return nil, "", false
	}

	format := strings.ToLower(r.FormValue("format"))
	if format == "" {
		format = formatJSON
	}
	switch format {
	case formatJSON, formatText, formatCSV, formatOverlay:
	default:
		s.writeErrorResponse(w, "invalid_request", "unsupported format: "+format, http.StatusBadRequest)
		return nil, "", false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "invalid_request", "no image file provided", http.StatusBadRequest)
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	if err := utils.ValidateUpload(header.Filename, header.Size, maxBytes); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, utils.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeErrorResponse(w, "invalid_upload", err.Error(), status)
		return nil, "", false
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "invalid_request", "failed to read image data", http.StatusBadRequest)
		return nil, "", false
	}

	src := firstNonEmpty(r.FormValue("source_lang"), s.sourceLang)
	dst := firstNonEmpty(r.FormValue("target_lang"), s.targetLang)
	page, err := pipeline.DecodePage(bytes.NewReader(data), src, dst)
	if err != nil {
		s.writeErrorResponse(w, "invalid_image", err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	page.Source = header.Filename
	return page, format, true
}

func (s *Server) writePageResponse(w http.ResponseWriter, page *pipeline.Page, res *pipeline.ProcessedPage, format string) {
	switch format {
	case formatOverlay:
		var buf bytes.Buffer
		if err := png.Encode(&buf, pipeline.RenderOverlay(page.Image, res)); err != nil {
			s.writeErrorResponse(w, "internal_error", "failed to encode overlay", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Page-Id", res.PageID)
		_, _ = w.Write(buf.Bytes())
	case formatText:
		s.writeRendered(w, "text/plain; charset=utf-8", res, pipeline.ToPlainText)
	case formatCSV:
		s.writeRendered(w, "text/csv; charset=utf-8", res, pipeline.ToCSV)
	default:
		s.writeJSON(w, http.StatusOK, TranslateResponse{Success: true, Result: res})
	}
}

func (s *Server) writeRendered(
	w http.ResponseWriter,
	contentType string,
	res *pipeline.ProcessedPage,
	render func(*pipeline.ProcessedPage) (string, error),
) {
	out, err := render(res)
	if err != nil {
		s.writeErrorResponse(w, "internal_error", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, out)
}

// statusForError maps a processing error to an HTTP status and error type.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, detector.ErrInvalidImage):
		return http.StatusBadRequest, "invalid_image"
	case errors.Is(err, detector.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "processing_error"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, kind, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message, Type: kind})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
