package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/retry"
)

const (
	defaultWatchURL = "https://www.youtube.com/watch"

	// playerResponseMarker marks the start of the player response JSON in watch page HTML.
	playerResponseMarker = "ytInitialPlayerResponse = "

	maxWatchPageSize = 6 << 20
	maxTimedTextSize = 2 << 20
)

// Client scrapes caption tracks from the YouTube watch page. Each call is
// a single attempt; retries belong to the Retriever.
type Client struct {
	httpClient *http.Client
	watchURL   string
	userAgent  string
	timeout    time.Duration
}

type ClientOption func(*Client)

func WithWatchURL(u string) ClientOption {
	return func(c *Client) { c.watchURL = u }
}

func NewClient(httpClient *http.Client, userAgent string, timeout time.Duration, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		watchURL:   defaultWatchURL,
		userAgent:  userAgent,
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTranscript returns the caption text of the first track matching
// langs, in order. Manual tracks beat auto-generated ones of the same
// language.
func (c *Client) FetchTranscript(ctx context.Context, videoID string, langs []string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	page, err := c.fetchWatchPage(ctx, videoID)
	if err != nil {
		return "", err
	}

	tracks, err := extractCaptionTracks(page)
	if err != nil {
		return "", err
	}

	track, ok := pickTrack(tracks, langs)
	if !ok {
		return "", fmt.Errorf("%w for languages %v", ErrNoTranscript, langs)
	}

	text, err := c.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty caption track %s", ErrNoTranscript, track.LanguageCode)
	}

	return text, nil
}

func (c *Client) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	u, err := url.Parse(c.watchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid watch URL: %w", err)
	}
	q := u.Query()
	q.Set("v", videoID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+cb"})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w", ErrTooManyRequests, &retry.StatusError{StatusCode: resp.StatusCode})
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrVideoUnavailable, &retry.StatusError{StatusCode: resp.StatusCode})
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("watch page: %w", &retry.StatusError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageSize))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}
	return body, nil
}

func extractCaptionTracks(page []byte) ([]captionTrack, error) {
	idx := strings.Index(string(page), playerResponseMarker)
	if idx < 0 {
		if strings.Contains(string(page), `class="g-recaptcha"`) {
			return nil, ErrTooManyRequests
		}
		return nil, fmt.Errorf("%w: no player response in watch page", ErrVideoUnavailable)
	}

	jsonData := extractJSON(page[idx+len(playerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var player playerResponse
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}

	if player.PlayabilityStatus == nil {
		return nil, fmt.Errorf("%w: missing playability status", ErrVideoUnavailable)
	}
	if status := player.PlayabilityStatus.Status; status != "OK" {
		return nil, fmt.Errorf("%w: %s %s", ErrVideoUnavailable, status, player.PlayabilityStatus.Reason)
	}

	if player.Captions == nil {
		return nil, fmt.Errorf("%w: captions disabled", ErrNoTranscript)
	}
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no caption tracks", ErrNoTranscript)
	}
	return tracks, nil
}

// pickTrack walks langs in order, preferring manual tracks within a language.
// Tracks in other languages are never chosen.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	for _, lang := range langs {
		var generated *captionTrack
		for i, t := range tracks {
			if t.LanguageCode != lang || t.BaseURL == "" {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return captionTrack{}, false
}

func (c *Client) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %w", ErrTooManyRequests, &retry.StatusError{StatusCode: resp.StatusCode})
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch timedtext: %w", &retry.StatusError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextSize))
	if err != nil {
		return "", fmt.Errorf("read timedtext: %w", err)
	}

	return parseTimedText(body)
}

// parseTimedText joins caption segments with single spaces.
func parseTimedText(body []byte) (string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}

	lines := tt.Lines
	if len(lines) == 0 {
		lines = tt.Paragraphs
	}

	segments := make([]string, 0, len(lines))
	for _, line := range lines {
		// Caption text is entity-encoded once more inside the XML.
		text := strings.Join(strings.Fields(html.UnescapeString(line.String())), " ")
		if text != "" {
			segments = append(segments, text)
		}
	}
	return strings.Join(segments, " "), nil
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
