package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Parser reads raw Atom entries so <updated> never stands in for a
// missing <published>.
type Parser struct {
	atomParser *atom.Parser
}

func NewParser() *Parser {
	return &Parser{
		atomParser: &atom.Parser{},
	}
}

// Run parses a channel feed document into entries, keeping document order.
// Any entry without a video id, published date or thumbnail fails the
// whole document.
func (p *Parser) Run(channelID string, data []byte) ([]Entry, error) {
	feed, err := p.atomParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{ChannelID: channelID, Err: fmt.Errorf("failed to parse feed: %w", err)}
	}

	entries := make([]Entry, 0, len(feed.Entries))
	for i, item := range feed.Entries {
		entry, err := p.normalizeItem(item)
		if err != nil {
			return nil, &ParseError{ChannelID: channelID, Entry: i + 1, Err: err}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (p *Parser) normalizeItem(item *atom.Entry) (Entry, error) {
	if item == nil {
		return Entry{}, fmt.Errorf("%w: entry", ErrMissingField)
	}

	entry := Entry{
		Title:        strings.TrimSpace(item.Title),
		VideoID:      extensionValue(item.Extensions, "yt", "videoId"),
		ThumbnailURL: p.extractThumbnail(item.Extensions),
	}

	if entry.VideoID == "" {
		return Entry{}, fmt.Errorf("%w: yt:videoId", ErrMissingField)
	}
	if item.PublishedParsed == nil {
		return Entry{}, fmt.Errorf("%w: published", ErrMissingField)
	}
	entry.PublishedAt = item.PublishedParsed.UTC()

	if entry.ThumbnailURL == "" {
		return Entry{}, fmt.Errorf("%w: media:thumbnail", ErrMissingField)
	}

	return entry, nil
}

// extractThumbnail reads media:group/media:thumbnail@url, falling back to a
// top-level media:thumbnail.
func (p *Parser) extractThumbnail(extensions ext.Extensions) string {
	media, ok := extensions["media"]
	if !ok {
		return ""
	}

	for _, group := range media["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := strings.TrimSpace(thumb.Attrs["url"]); url != "" {
				return url
			}
		}
	}

	for _, thumb := range media["thumbnail"] {
		if url := strings.TrimSpace(thumb.Attrs["url"]); url != "" {
			return url
		}
	}

	return ""
}

func extensionValue(extensions ext.Extensions, namespace, name string) string {
	values := extensions[namespace][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
