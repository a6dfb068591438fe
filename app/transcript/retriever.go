// Package transcript retrieves caption text for YouTube videos.
package transcript

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/retry"
)

const fallbackLanguage = "en"

type Fetcher interface {
	FetchTranscript(ctx context.Context, videoID string, langs []string) (string, error)
}

type Retriever struct {
	fetcher Fetcher
	retry   retry.Config
	limiter *rate.Limiter
}

// NewRetriever builds a Retriever. limiter may be nil.
func NewRetriever(fetcher Fetcher, retryCfg retry.Config, limiter *rate.Limiter) *Retriever {
	return &Retriever{
		fetcher: fetcher,
		retry:   retryCfg,
		limiter: limiter,
	}
}

// Run returns the transcript of video in its channel language, falling
// back to English.
func (r *Retriever) Run(ctx context.Context, video feed.Video) (string, error) {
	langs := Languages(video.Language)

	text, err := retry.Do(ctx, r.retry, isRetryable, func(ctx context.Context) (string, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		return r.fetcher.FetchTranscript(ctx, video.ID, langs)
	})
	if err != nil {
		return "", &Error{VideoID: video.ID, Err: err}
	}
	if text == "" {
		return "", &Error{VideoID: video.ID, Err: ErrNoTranscript}
	}

	slog.Debug("Transcript retrieved", "video", video.ID, "languages", langs, "chars", len(text))
	return text, nil
}

// Languages returns the preference list [preferred, "en"] without duplicates.
func Languages(preferred string) []string {
	if preferred == "" || preferred == fallbackLanguage {
		return []string{fallbackLanguage}
	}
	return []string{preferred, fallbackLanguage}
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrVideoUnavailable) || errors.Is(err, ErrNoTranscript) {
		return false
	}
	if errors.Is(err, ErrTooManyRequests) {
		return true
	}
	return retry.IsTransient(err)
}
