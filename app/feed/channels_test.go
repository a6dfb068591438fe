package feed

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeChannels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestChannelCacheLoadValidConfig(t *testing.T) {
	path := writeChannels(t, `
channels:
  - name: Yadnya Investment Academy
    id: UCyadnya
    video_title_regex: "N/A"
    language: hi
  - name: Market Daily
    id: UCmarket
    video_title_regex: "Market Update"
  - name: Plain
    id: UCplain
`)

	cache := NewChannelCache(path)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetChannelCount() != 3 {
		t.Fatalf("Expected 3 channels, got %d", cache.GetChannelCount())
	}

	channels := cache.GetChannels()
	if channels[0].Language != "hi" {
		t.Errorf("Expected language 'hi', got '%s'", channels[0].Language)
	}
	if channels[1].TitleFilter != "Market Update" {
		t.Errorf("Expected title filter 'Market Update', got '%s'", channels[1].TitleFilter)
	}
	if channels[1].Language != defaultLanguage {
		t.Errorf("Expected default language '%s', got '%s'", defaultLanguage, channels[1].Language)
	}
	if channels[2].TitleFilter != NoTitleFilter {
		t.Errorf("Expected empty filter to default to '%s', got '%s'", NoTitleFilter, channels[2].TitleFilter)
	}

	if cache.GetChannelCount() != 3 {
		t.Errorf("Expected 3 channels, got %d", cache.GetChannelCount())
	}
}

func TestChannelCacheGetChannelsReturnsCopy(t *testing.T) {
	path := writeChannels(t, "channels:\n  - name: One\n    id: UC1\n")

	cache := NewChannelCache(path)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	channels := cache.GetChannels()
	channels[0].Name = "Changed"

	if cache.GetChannels()[0].Name != "One" {
		t.Error("Mutating the returned slice should not affect the cache")
	}
}

func TestChannelCacheInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing id", content: "channels:\n  - name: One\n"},
		{name: "missing name", content: "channels:\n  - id: UC1\n"},
		{name: "bad language", content: "channels:\n  - name: One\n    id: UC1\n    language: \"not a tag!\"\n"},
		{name: "duplicate id", content: "channels:\n  - name: One\n    id: UC1\n  - name: Two\n    id: UC1\n"},
		{name: "invalid yaml", content: "channels: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewChannelCache(writeChannels(t, tt.content))
			err := cache.Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestChannelCacheMissingFile(t *testing.T) {
	cache := NewChannelCache(filepath.Join(t.TempDir(), "nope.yml"))
	err := cache.Run()

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped os.ErrNotExist, got: %v", err)
	}
}
