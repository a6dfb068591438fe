package feed

import (
	"time"
)

// NoTitleFilter disables title filtering for a channel.
const NoTitleFilter = "N/A"

// Channel configuration types

type ChannelsFile struct {
	Channels []ChannelConfig `yaml:"channels"`
}

type ChannelConfig struct {
	Name        string `yaml:"name"`
	ID          string `yaml:"id"`
	TitleFilter string `yaml:"video_title_regex"` // plain substring, not a regex
	Language    string `yaml:"language"`
}

// Feed processing types

type Entry struct {
	VideoID      string
	Title        string
	PublishedAt  time.Time
	ThumbnailURL string
}

type Video struct {
	ID           string
	Title        string
	ThumbnailURL string
	ChannelID    string
	ChannelName  string
	Language     string
	PublishedAt  time.Time
	Transcript   string
}

func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}
