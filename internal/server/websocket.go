package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketRequest is a text frame from the client. Type "config" sets the
// language pair used for later binary frames; type "page" carries an image.
type WebSocketRequest struct {
	Type       string `json:"type"`
	RequestID  string `json:"request_id,omitempty"`
	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`
	Image      []byte `json:"image,omitempty"`
}

// WebSocketResponse is every frame the server sends.
type WebSocketResponse struct {
	Type      string                  `json:"type"`
	Status    string                  `json:"status"` // "processing", "completed", "error"
	RequestID string                  `json:"request_id,omitempty"`
	Result    *pipeline.ProcessedPage `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	ErrorType string                  `json:"error_type,omitempty"`
}

// WebSocketConnWriter is the write side of a websocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsSession is the per-connection language pair.
type wsSession struct {
	sourceLang string
	targetLang string
}

// translateWebSocketHandler streams pages: binary image frames in,
// ProcessedPage JSON frames out.
func (s *Server) translateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	session := &wsSession{sourceLang: s.sourceLang, targetLang: s.targetLang}
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		s.handleWebSocketMessage(conn, session, messageType, data)
	}
}

// handleWebSocketMessage dispatches one frame.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, session *wsSession, messageType int, data []byte) {
	switch messageType {
	case websocket.BinaryMessage:
		s.processWebSocketPage(conn, uuid.NewString(), data, session.sourceLang, session.targetLang)
	case websocket.TextMessage:
		var req WebSocketRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("failed to parse request: %v", err))
			return
		}
		switch req.Type {
		case "config":
			if req.SourceLang != "" {
				session.sourceLang = req.SourceLang
			}
			if req.TargetLang != "" {
				session.targetLang = req.TargetLang
			}
			s.sendWebSocketResponse(conn, WebSocketResponse{Type: "config", Status: "completed", RequestID: req.RequestID})
		case "page":
			id := firstNonEmpty(req.RequestID, uuid.NewString())
			src := firstNonEmpty(req.SourceLang, session.sourceLang)
			dst := firstNonEmpty(req.TargetLang, session.targetLang)
			s.processWebSocketPage(conn, id, req.Image, src, dst)
		default:
			s.sendWebSocketError(conn, req.RequestID, "invalid_request", "unsupported request type: "+req.Type)
		}
	}
}

func (s *Server) processWebSocketPage(conn WebSocketConnWriter, requestID string, data []byte, src, dst string) {
	if len(data) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "no image data provided")
		return
	}
	if int64(len(data)) > s.maxUploadMB<<20 {
		s.sendWebSocketError(conn, requestID, "invalid_upload", "image too large")
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	page, err := pipeline.DecodePage(bytes.NewReader(data), src, dst)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_image", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{Type: "page", Status: "processing", RequestID: requestID})

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.processor.Process(ctx, page)
	observePage("websocket", res, err)
	if err != nil {
		_, kind := statusForError(err)
		s.sendWebSocketError(conn, requestID, kind, fmt.Sprintf("processing failed: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "page",
		Status:    "completed",
		RequestID: requestID,
		Result:    res,
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
