package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/lang"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	openai "github.com/sashabaranov/go-openai"
)

// VisionConfig configures the vision-model engine.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// DefaultConfidence is used when the provider returns no token log probabilities.
	DefaultConfidence float64
}

// DefaultVisionConfig returns defaults for an OpenAI-compatible endpoint.
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		Model:             openai.GPT4oMini,
		Timeout:           30 * time.Second,
		DefaultConfidence: 0.6,
	}
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// noTextMarker is what the model is asked to answer for crops without text.
const noTextMarker = "<none>"

// Vision transcribes crops with a multimodal chat model. It is the general-purpose engine.
type Vision struct {
	config VisionConfig
	client chatClient
}

// NewVision returns an unloaded Vision backend.
func NewVision(config VisionConfig) *Vision {
	return &Vision{config: config}
}

func (v *Vision) Name() string { return NameVision }

// Load creates the API client. A missing API key makes the engine unavailable.
func (v *Vision) Load(context.Context) error {
	if v.client != nil {
		return nil
	}
	if v.config.APIKey == "" {
		return fmt.Errorf("%w: no API key configured", ErrModelUnavailable)
	}
	cfg := openai.DefaultConfig(v.config.APIKey)
	if v.config.BaseURL != "" {
		cfg.BaseURL = v.config.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: v.config.Timeout}
	v.client = openai.NewClientWithConfig(cfg)
	return nil
}

func visionPrompt(langs []string) string {
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, lang.DisplayName(l))
	}
	expected := "any language"
	if len(names) > 0 {
		expected = strings.Join(names, " or ")
	}
	return "You are an OCR engine for comic speech bubbles. Transcribe the text in the image exactly, " +
		"in reading order, expected language: " + expected + ". Reply with the transcription only. " +
		"If the image contains no text, reply with " + noTextMarker + "."
}

// Recognize sends the crop to the model and derives confidence from token log probabilities.
func (v *Vision) Recognize(ctx context.Context, img image.Image, langs []string) ([]Candidate, error) {
	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       v.config.Model,
		Temperature: 0,
		LogProbs:    true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionPrompt(langs)},
			{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    url,
					Detail: openai.ImageURLDetailHigh,
				}},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("vision response has no choices")
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" || text == noTextMarker {
		return nil, nil
	}
	return []Candidate{{
		Text:       text,
		Confidence: tokenConfidence(choice.LogProbs, v.config.DefaultConfidence),
	}}, nil
}

// tokenConfidence is the geometric mean token probability.
func tokenConfidence(lp *openai.LogProbs, fallback float64) float64 {
	if lp == nil || len(lp.Content) == 0 {
		return fallback
	}
	var sum float64
	for _, t := range lp.Content {
		sum += t.LogProb
	}
	return math.Exp(sum / float64(len(lp.Content)))
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (v *Vision) Close() error { return nil }
