package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultLanguage = "en"

type ChannelCache struct {
	path     string
	channels []ChannelConfig
	mu       sync.RWMutex
}

func NewChannelCache(path string) *ChannelCache {
	return &ChannelCache{path: path}
}

// Run loads and validates the channel file, replacing the cached list.
func (cc *ChannelCache) Run() error {
	channels, err := cc.parseConfig()
	if err != nil {
		return &ConfigError{Path: cc.path, Err: err}
	}

	seen := make(map[string]bool, len(channels))
	for i := range channels {
		if err := cc.validateConfig(&channels[i]); err != nil {
			return &ConfigError{Path: cc.path, Err: fmt.Errorf("channel at index %d: %w", i, err)}
		}
		if seen[channels[i].ID] {
			return &ConfigError{Path: cc.path, Err: fmt.Errorf("duplicate channel id %s", channels[i].ID)}
		}
		seen[channels[i].ID] = true

		slog.Debug("Channel loaded", "channel", channels[i].Name, "id", channels[i].ID, "language", channels[i].Language, "title_filter", channels[i].TitleFilter)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.channels = channels

	return nil
}

func (cc *ChannelCache) GetChannels() []ChannelConfig {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	channelsCopy := make([]ChannelConfig, len(cc.channels))
	copy(channelsCopy, cc.channels)
	return channelsCopy
}

func (cc *ChannelCache) GetChannelCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.channels)
}

func (cc *ChannelCache) parseConfig() ([]ChannelConfig, error) {
	data, err := os.ReadFile(cc.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file ChannelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Channels {
		if file.Channels[i].TitleFilter == "" {
			file.Channels[i].TitleFilter = NoTitleFilter
		}
		if file.Channels[i].Language == "" {
			file.Channels[i].Language = defaultLanguage
		}
	}

	return file.Channels, nil
}

func (cc *ChannelCache) validateConfig(channel *ChannelConfig) error {
	if channel == nil {
		return errors.New("channel is nil")
	}

	requiredFields := map[string]string{
		"name": channel.Name,
		"id":   channel.ID,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	tag, err := language.Parse(channel.Language)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", channel.Language, err)
	}
	channel.Language = tag.String()

	return nil
}
