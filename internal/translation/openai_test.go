package translation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultOpenAIConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1"
	cfg.RetryDelay = time.Millisecond
	tr, err := NewOpenAI(cfg)
	require.NoError(t, err)
	return tr
}

func TestOpenAI_Translate(t *testing.T) {
	var req openai.ChatCompletionRequest
	tr := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion("  Привет!\n"))
	})

	out, err := tr.Translate(context.Background(), "こんにちは！", "ja", "ru")
	require.NoError(t, err)
	assert.Equal(t, "Привет!", out)

	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[0].Content, "Japanese")
	assert.Contains(t, req.Messages[0].Content, "Russian")
	assert.Equal(t, "こんにちは！", req.Messages[1].Content)
	assert.Equal(t, openai.GPT4oMini, req.Model)
}

func TestOpenAI_ChineseUsesProviderTag(t *testing.T) {
	var system string
	tr := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		system = req.Messages[0].Content
		_, _ = io.WriteString(w, completion("hello"))
	})

	_, err := tr.Translate(context.Background(), "你好", "zh", "en")
	require.NoError(t, err)
	assert.Contains(t, system, "zh-CN")
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	tr := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream","type":"server_error"}}`)
			return
		}
		_, _ = io.WriteString(w, completion("ok"))
	})

	out, err := tr.Translate(context.Background(), "hi", "en", "ru")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenAI_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	tr := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"down","type":"server_error"}}`)
	})

	_, err := tr.Translate(context.Background(), "hi", "en", "ru")
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenAI_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	tr := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := tr.Translate(context.Background(), "hi", "en", "ru")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAI_EmptyReplyFails(t *testing.T) {
	tr := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, completion("   "))
	})
	_, err := tr.Translate(context.Background(), "hi", "en", "ru")
	assert.Error(t, err)
}

func TestOpenAI_UnsupportedLanguage(t *testing.T) {
	tr := newTestOpenAI(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := tr.Translate(context.Background(), "hola", "es", "en")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(DefaultOpenAIConfig())
	assert.Error(t, err)
}

func TestOpenAI_ThroughCache(t *testing.T) {
	var calls atomic.Int32
	tr := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, completion("Спасибо"))
	})
	cache := NewCache(nil, CacheConfig{})

	for range 3 {
		out, err := cache.GetOrTranslate(context.Background(), "ありがとう", "ja", "ru", tr)
		require.NoError(t, err)
		assert.Equal(t, "Спасибо", out)
	}
	assert.EqualValues(t, 1, calls.Load())
}
