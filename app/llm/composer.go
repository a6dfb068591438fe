package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"golang.org/x/time/rate"
)

const DateLayout = "January 2, 2006"

type promptData struct {
	Date string
}

type Composer struct {
	client  Completer
	tmpl    *template.Template
	limiter *rate.Limiter
	now     func() time.Time
}

// NewComposer parses prompt as a text/template. limiter may be nil.
func NewComposer(client Completer, prompt string, limiter *rate.Limiter) (*Composer, error) {
	tmpl, err := template.New("script").Option("missingkey=error").Parse(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script prompt: %w", err)
	}
	return &Composer{client: client, tmpl: tmpl, limiter: limiter, now: time.Now}, nil
}

// WithClock replaces the time source used for the episode date.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// Run turns all summaries of a run into one narration script.
func (c *Composer) Run(ctx context.Context, summaries []Summary) (string, error) {
	if len(summaries) == 0 {
		return "", &Error{Stage: StageCompose, Err: errors.New("no summaries")}
	}

	system, err := c.systemPrompt()
	if err != nil {
		return "", &Error{Stage: StageCompose, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Stage: StageCompose, Err: err}
		}
	}

	script, err := c.client.Complete(ctx, system, JoinSummaries(summaries))
	if err != nil {
		return "", &Error{Stage: StageCompose, Err: err}
	}

	script = strings.TrimSpace(script)
	if script == "" {
		return "", &Error{Stage: StageCompose, Err: ErrEmptyCompletion}
	}

	slog.Debug("Script composed", "summaries", len(summaries), "chars", len(script))
	return script, nil
}

func (c *Composer) systemPrompt() (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, promptData{Date: c.now().Format(DateLayout)}); err != nil {
		return "", fmt.Errorf("failed to render script prompt: %w", err)
	}
	return buf.String(), nil
}

// JoinSummaries concatenates summary texts with newlines, in order.
func JoinSummaries(summaries []Summary) string {
	texts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, "\n")
}
