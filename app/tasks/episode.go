package tasks

import (
	"sync"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/llm"
)

// Episode is the result of one successful pipeline run. It lives in
// memory only.
type Episode struct {
	ID         string
	Date       time.Time
	Script     string
	ScriptPath string
	AudioPath  string
	AudioBytes int64
	VideoPath  string
	Videos     []feed.Video
	Summaries  []llm.Summary
	Stats      RunStats
	Duration   time.Duration
	CreatedAt  time.Time
}

func (e *Episode) Title() string {
	return "TL;DL for " + e.Date.Format(llm.DateLayout)
}

type RunStats struct {
	Channels       int
	ChannelsFailed int
	Candidates     int
	Skipped        int
}

// EpisodeStore holds the latest episode.
type EpisodeStore struct {
	mu     sync.RWMutex
	latest *Episode
}

func NewEpisodeStore() *EpisodeStore {
	return &EpisodeStore{}
}

func (s *EpisodeStore) Set(e *Episode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = e
}

func (s *EpisodeStore) Latest() (*Episode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}
