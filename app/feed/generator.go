package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

// Podcast describes the channel element of the generated podcast feed.
type Podcast struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	ImageURL    string
	Language    string
	Version     string
}

// EpisodeItem is one published episode with its audio enclosure.
type EpisodeItem struct {
	GUID         string
	Title        string
	Description  string
	Link         string
	PublishedAt  time.Time
	AudioURL     string
	AudioLength  int64
	AudioType    string
	SourceVideos []Video
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(podcast Podcast, items []EpisodeItem) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", podcast.Title, 4)
	g.writeElement(&buf, "link", podcast.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(podcast.Description, "Daily digest of YouTube news channels"), 4)

	if podcast.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(podcast.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = cmp.Or(items[0].PublishedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("TLDL-Podcast/%s", podcast.Version), 4)
	g.writeElement(&buf, "language", podcast.Language, 4)

	if podcast.ImageURL != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", podcast.ImageURL, 6)
		g.writeElement(&buf, "title", podcast.Title, 6)
		g.writeElement(&buf, "link", podcast.Link, 6)
		buf.WriteString("    </image>\n")
		buf.WriteString(fmt.Sprintf("    <itunes:image href=\"%s\" />\n", html.EscapeString(podcast.ImageURL)))
	}

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item EpisodeItem) {
	buf.WriteString("    <item>\n")

	if item.GUID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.GUID)))
		xml.EscapeText(buf, []byte(item.GUID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "description", cmp.Or(item.Description, g.describeSources(item.SourceVideos)), 6)
	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)

	// RSS 2.0 requires url, length and type on enclosures
	if item.AudioURL != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"%d\" type=\"%s\" />\n",
			html.EscapeString(item.AudioURL),
			item.AudioLength,
			html.EscapeString(cmp.Or(item.AudioType, "audio/mpeg"))))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) describeSources(videos []Video) string {
	if len(videos) == 0 {
		return "No description available"
	}

	var buf bytes.Buffer
	buf.WriteString("Sources:")
	for _, v := range videos {
		buf.WriteString(fmt.Sprintf("\n- %s: %s (%s)", v.ChannelName, v.Title, v.URL()))
	}
	return buf.String()
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
