// Package llm turns transcripts into summaries and summaries into a
// narration script through an OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	kitllm "github.com/anatolykoptev/go-kit/llm"
)

const (
	StageSummarize = "summarize"
	StageCompose   = "compose"
)

// Completer sends one system instruction and one user turn and returns
// the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type ClientConfig struct {
	APIBase      string
	APIKey       string
	FallbackKeys []string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// Client adapts the go-kit chat client to Completer.
type Client struct {
	complete func(ctx context.Context, system, user string) (string, error)
	model    string
}

func NewClient(cfg ClientConfig) *Client {
	kc := kitllm.NewClient(cfg.APIBase, cfg.APIKey, cfg.Model,
		kitllm.WithFallbackKeys(cfg.FallbackKeys),
		kitllm.WithMaxTokens(cfg.MaxTokens),
		kitllm.WithTemperature(cfg.Temperature),
		kitllm.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)

	return &Client{
		complete: func(ctx context.Context, system, user string) (string, error) {
			return kc.Complete(ctx, system, user)
		},
		model: cfg.Model,
	}
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user)
}

func (c *Client) Model() string {
	return c.model
}

// Error reports a failed or empty completion for one pipeline stage.
type Error struct {
	Stage   string
	VideoID string
	Err     error
}

func (e *Error) Error() string {
	if e.VideoID != "" {
		return fmt.Sprintf("llm %s %s: %v", e.Stage, e.VideoID, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
