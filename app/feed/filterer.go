package feed

import (
	"log/slog"
	"strings"
	"time"
)

const DefaultWindow = 24 * time.Hour

type Filterer struct {
	window time.Duration
	now    func() time.Time
}

func NewFilterer(window time.Duration) *Filterer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Filterer{window: window, now: time.Now}
}

// WithClock replaces the time source, mainly for tests.
func (f *Filterer) WithClock(now func() time.Time) *Filterer {
	f.now = now
	return f
}

// Run keeps entries published within the window whose title passes the
// channel's title filter. Feed order is preserved.
func (f *Filterer) Run(entries []Entry, channel ChannelConfig) []Video {
	now := f.now()
	videos := make([]Video, 0, len(entries))

	for _, entry := range entries {
		if age := now.Sub(entry.PublishedAt); age > f.window {
			continue
		}

		if !f.matchesFilter(entry.Title, channel.TitleFilter) {
			slog.Debug("Video excluded by title filter", "channel", channel.Name, "video", entry.VideoID, "title", entry.Title, "filter", channel.TitleFilter)
			continue
		}

		videos = append(videos, Video{
			ID:           entry.VideoID,
			Title:        entry.Title,
			ThumbnailURL: entry.ThumbnailURL,
			ChannelID:    channel.ID,
			ChannelName:  channel.Name,
			Language:     channel.Language,
			PublishedAt:  entry.PublishedAt,
		})
	}

	return videos
}

// matchesFilter is a case-sensitive substring match. NoTitleFilter and an
// empty filter accept every title.
func (f *Filterer) matchesFilter(title, filter string) bool {
	if filter == "" || filter == NoTitleFilter {
		return true
	}
	return strings.Contains(title, filter)
}
