package providers

import (
	"context"
	"sync"
	"sync/atomic"
)

const MockClientName = "mock"

// MockVisionClient is a VisionClient for testing.
//
// Responses are scripted per call: the Nth Complete call consumes Script[N]
// (repeating the last entry once the script is exhausted). An empty script
// returns ResponseText for every call.
type MockVisionClient struct {
	// Script is consumed one entry per Complete call.
	Script []MockResponse

	// ResponseText is returned when the script is empty.
	ResponseText string

	// PagePrompts records the prompt of each call, for assertions.
	mu      sync.Mutex
	prompts []string

	callCount atomic.Int64
}

// MockResponse is one scripted Complete outcome.
type MockResponse struct {
	Text string
	Err  error
}

// NewMockVisionClient creates a mock client that always succeeds with text.
func NewMockVisionClient(text string) *MockVisionClient {
	return &MockVisionClient{ResponseText: text}
}

// Name returns the client identifier.
func (c *MockVisionClient) Name() string {
	return MockClientName
}

// Complete returns the next scripted response.
func (c *MockVisionClient) Complete(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n := int(c.callCount.Add(1)) - 1

	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	if len(c.Script) == 0 {
		return c.ResponseText, nil
	}
	if n >= len(c.Script) {
		n = len(c.Script) - 1
	}
	r := c.Script[n]
	return r.Text, r.Err
}

// Calls returns the number of Complete invocations so far.
func (c *MockVisionClient) Calls() int {
	return int(c.callCount.Load())
}

// Prompts returns a copy of the prompts seen so far.
func (c *MockVisionClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Verify interface
var _ VisionClient = (*MockVisionClient)(nil)
