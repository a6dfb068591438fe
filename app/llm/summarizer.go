package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
)

var ErrEmptyCompletion = errors.New("empty completion")

type Summary struct {
	VideoID     string
	Title       string
	ChannelName string
	Text        string
}

type Summarizer struct {
	client  Completer
	system  string
	limiter *rate.Limiter
}

// NewSummarizer builds a Summarizer. limiter may be nil.
func NewSummarizer(client Completer, system string, limiter *rate.Limiter) *Summarizer {
	return &Summarizer{client: client, system: system, limiter: limiter}
}

// Run summarizes the transcript of one video. The transcript is the only
// user turn.
func (s *Summarizer) Run(ctx context.Context, video feed.Video) (Summary, error) {
	if strings.TrimSpace(video.Transcript) == "" {
		return Summary{}, &Error{Stage: StageSummarize, VideoID: video.ID, Err: errors.New("empty transcript")}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Summary{}, &Error{Stage: StageSummarize, VideoID: video.ID, Err: err}
		}
	}

	text, err := s.client.Complete(ctx, s.system, video.Transcript)
	if err != nil {
		return Summary{}, &Error{Stage: StageSummarize, VideoID: video.ID, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Summary{}, &Error{Stage: StageSummarize, VideoID: video.ID, Err: ErrEmptyCompletion}
	}

	slog.Debug("Transcript summarized", "video", video.ID, "transcript_chars", len(video.Transcript), "summary_chars", len(text))

	return Summary{
		VideoID:     video.ID,
		Title:       video.Title,
		ChannelName: video.ChannelName,
		Text:        text,
	}, nil
}
