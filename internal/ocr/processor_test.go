package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackzampolin/scanpress/internal/providers"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProcessor wires a processor with a recording sleep func so tests can
// assert backoff delays without actually waiting.
func newTestProcessor(client providers.VisionClient) (*Processor, *[]time.Duration) {
	p := NewProcessor(client, Config{Logger: discardLogger()})
	delays := &[]time.Duration{}
	p.sleep = func(ctx context.Context, d time.Duration) {
		*delays = append(*delays, d)
	}
	return p, delays
}

func TestProcessPage_Success(t *testing.T) {
	client := providers.NewMockVisionClient("# Heading\n\nBody text")
	p, delays := newTestProcessor(client)

	text, ok := p.ProcessPage(context.Background(), []byte("img"), 1, "")
	if !ok {
		t.Fatal("expected success")
	}
	if text != "# Heading\n\nBody text" {
		t.Errorf("text = %q", text)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no delays, got %v", *delays)
	}
	if client.Calls() != 1 {
		t.Errorf("calls = %d, want 1", client.Calls())
	}
}

func TestProcessPage_EmptyTextIsBlankPage(t *testing.T) {
	client := providers.NewMockVisionClient("")
	p, _ := newTestProcessor(client)

	text, ok := p.ProcessPage(context.Background(), []byte("img"), 7, "")
	if !ok {
		t.Fatal("blank page should be a success")
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestProcessPage_DefaultPrompt(t *testing.T) {
	client := providers.NewMockVisionClient("ok")
	p, _ := newTestProcessor(client)

	p.ProcessPage(context.Background(), nil, 1, "")
	p.ProcessPage(context.Background(), nil, 2, "custom instructions")

	prompts := client.Prompts()
	if prompts[0] != DefaultPrompt {
		t.Errorf("empty prompt should fall back to the default, got %q", prompts[0])
	}
	if prompts[1] != "custom instructions" {
		t.Errorf("custom prompt not passed through, got %q", prompts[1])
	}
}

func TestProcessPage_TransientThenSuccess(t *testing.T) {
	rle := &providers.RateLimitError{Message: "rate limited", StatusCode: 429}
	client := &providers.MockVisionClient{
		Script: []providers.MockResponse{
			{Err: rle},
			{Err: rle},
			{Text: "recovered text"},
		},
	}
	p, delays := newTestProcessor(client)

	text, ok := p.ProcessPage(context.Background(), []byte("img"), 3, "")
	if !ok {
		t.Fatal("expected eventual success")
	}
	if text != "recovered text" {
		t.Errorf("text = %q", text)
	}

	want := []time.Duration{6 * time.Second, 12 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], want[i])
		}
	}
	if client.Calls() != 3 {
		t.Errorf("calls = %d, want 3", client.Calls())
	}
}

func TestProcessPage_RetryExhaustion(t *testing.T) {
	client := &providers.MockVisionClient{
		Script: []providers.MockResponse{
			{Err: &providers.RateLimitError{Message: "quota", StatusCode: 429}},
		},
	}
	p, delays := newTestProcessor(client)

	text, ok := p.ProcessPage(context.Background(), []byte("img"), 9, "")
	if ok {
		t.Fatal("expected failure after exhausting retries")
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if client.Calls() != 5 {
		t.Errorf("calls = %d, want 5", client.Calls())
	}

	want := []time.Duration{6 * time.Second, 12 * time.Second, 24 * time.Second, 48 * time.Second, 96 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], want[i])
		}
	}
}

func TestProcessPage_ServerErrorRetries(t *testing.T) {
	client := &providers.MockVisionClient{
		Script: []providers.MockResponse{
			{Err: &providers.ServerError{Message: "unavailable", StatusCode: 503}},
			{Text: "after blip"},
		},
	}
	p, delays := newTestProcessor(client)

	text, ok := p.ProcessPage(context.Background(), []byte("img"), 2, "")
	if !ok || text != "after blip" {
		t.Fatalf("got (%q, %v)", text, ok)
	}
	if len(*delays) != 1 || (*delays)[0] != 6*time.Second {
		t.Errorf("delays = %v, want [6s]", *delays)
	}
}

func TestProcessPage_PermanentFailureNoRetry(t *testing.T) {
	client := &providers.MockVisionClient{
		Script: []providers.MockResponse{
			{Err: errors.New("invalid api key")},
		},
	}
	p, delays := newTestProcessor(client)

	_, ok := p.ProcessPage(context.Background(), []byte("img"), 4, "")
	if ok {
		t.Fatal("expected immediate failure")
	}
	if client.Calls() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent errors)", client.Calls())
	}
	if len(*delays) != 0 {
		t.Errorf("delays = %v, want none", *delays)
	}
}

func TestProcessPage_CancelledContext(t *testing.T) {
	client := providers.NewMockVisionClient("never seen")
	p, _ := newTestProcessor(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := p.ProcessPage(ctx, []byte("img"), 1, "")
	if ok {
		t.Fatal("cancelled context should not succeed")
	}
	if client.Calls() != 0 {
		t.Errorf("calls = %d, want 0", client.Calls())
	}
}
