package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/MeKo-Tech/bubbletrans/internal/lang"
)

// OpenAIConfig configures the chat-completion translator.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Retries is the number of extra attempts after a failed request.
	Retries int
	// RetryDelay is the constant pause between attempts.
	RetryDelay time.Duration
}

// DefaultOpenAIConfig returns defaults for api.openai.com.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:      openai.GPT4oMini,
		Retries:    2,
		RetryDelay: 500 * time.Millisecond,
	}
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI translates speech-bubble text with a chat model.
type OpenAI struct {
	config OpenAIConfig
	client chatClient
}

// NewOpenAI builds a translator. An empty API key is rejected.
func NewOpenAI(config OpenAIConfig) (*OpenAI, error) {
	if config.APIKey == "" {
		return nil, errors.New("translation: no API key configured")
	}
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	cfg.HTTPClient = &http.Client{}
	return &OpenAI{config: config, client: openai.NewClientWithConfig(cfg)}, nil
}

func translatePrompt(src, dst string) string {
	return fmt.Sprintf("You translate comic speech bubbles from %s (%s) to %s (%s). "+
		"Keep the tone and interjections of spoken dialogue. "+
		"Reply with the translation only, without quotes or notes.",
		lang.DisplayName(src), lang.ProviderTag(src), lang.DisplayName(dst), lang.ProviderTag(dst))
}

// Translate sends one text to the model. Unsupported languages fail without
// a request; transport errors are retried with a constant backoff.
func (o *OpenAI) Translate(ctx context.Context, text, src, dst string) (string, error) {
	for _, l := range []string{src, dst} {
		if !lang.IsSupported(l) {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, l)
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       o.config.Model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translatePrompt(src, dst)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.config.RetryDelay), uint64(max(o.config.Retries, 0))),
		ctx,
	)
	out, err := backoff.RetryWithData(func() (string, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 &&
				apiErr.HTTPStatusCode != http.StatusTooManyRequests {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty completion")
		}
		result := strings.TrimSpace(resp.Choices[0].Message.Content)
		if result == "" {
			return "", errors.New("empty translation")
		}
		return result, nil
	}, policy)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return out, nil
}
