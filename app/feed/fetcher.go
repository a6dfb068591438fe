package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/retry"
)

const maxFeedSize = 10 << 20

type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
	retry      retry.Config
}

func NewFetcher(httpClient *http.Client, baseURL, userAgent string, timeout time.Duration, retryCfg retry.Config) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		timeout:    timeout,
		retry:      retryCfg,
	}
}

// Run downloads the feed document of one channel.
func (f *Fetcher) Run(ctx context.Context, channelID string) ([]byte, error) {
	feedURL, err := f.feedURL(channelID)
	if err != nil {
		return nil, &FetchError{ChannelID: channelID, Err: err}
	}

	data, err := retry.Do(ctx, f.retry, nil, func(ctx context.Context) ([]byte, error) {
		return f.fetchFeed(ctx, feedURL)
	})
	if err != nil {
		fetchErr := &FetchError{ChannelID: channelID, Err: err}
		var statusErr *retry.StatusError
		if errors.As(err, &statusErr) {
			fetchErr.StatusCode = statusErr.StatusCode
			switch statusErr.StatusCode {
			case http.StatusNotFound:
				fetchErr.Err = fmt.Errorf("%w: %w", ErrChannelNotFound, err)
			case http.StatusTooManyRequests:
				fetchErr.Err = fmt.Errorf("%w: %w", ErrRateLimited, err)
			}
		}
		return nil, fetchErr
	}

	return data, nil
}

func (f *Fetcher) feedURL(channelID string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed base URL: %w", err)
	}
	q := u.Query()
	q.Set("channel_id", channelID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
