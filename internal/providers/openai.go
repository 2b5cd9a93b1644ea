package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIVisionName         = "openai"
	openAIVisionDefaultModel = "gpt-4o-mini"
)

// OpenAIVisionConfig holds configuration for the OpenAI vision client.
type OpenAIVisionConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	BaseURL    string       // Optional (tests)
	HTTPClient *http.Client // Optional (tests)
}

// OpenAIVisionClient implements VisionClient using the official OpenAI SDK.
type OpenAIVisionClient struct {
	model  string
	client openai.Client
}

// NewOpenAIVisionClient creates a new OpenAI vision client.
func NewOpenAIVisionClient(cfg OpenAIVisionConfig) *OpenAIVisionClient {
	if cfg.Model == "" {
		cfg.Model = openAIVisionDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// The pipeline owns retry policy; disable SDK transport retries.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIVisionClient{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIVisionClient) Name() string {
	return OpenAIVisionName
}

// Complete sends the image as a data URL alongside the prompt and returns
// the first choice's text content.
func (c *OpenAIVisionClient) Complete(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return "", mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// mapOpenAIError converts SDK errors into the typed errors Classify expects.
func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("OpenAI error (status %d)", apiErr.StatusCode)
		}
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", msg),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.StatusCode >= 500 {
			return &ServerError{
				Message:    fmt.Sprintf("OpenAI error (status %d): %s", apiErr.StatusCode, msg),
				StatusCode: apiErr.StatusCode,
			}
		}
		return fmt.Errorf("OpenAI error (status %d): %s", apiErr.StatusCode, msg)
	}
	return err
}

// parseRetryAfter parses a Retry-After header value in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	var seconds float64
	if _, err := fmt.Sscanf(value, "%f", &seconds); err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Verify interface
var _ VisionClient = (*OpenAIVisionClient)(nil)
