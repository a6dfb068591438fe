package api

import (
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/tasks"
)

type GeneratorInterface interface {
	Run(podcast feed.Podcast, items []feed.EpisodeItem) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type EpisodeSource interface {
	Latest() (*tasks.Episode, bool)
}

var _ EpisodeSource = (*tasks.EpisodeStore)(nil)

type RunRequester interface {
	RequestRun(trigger string) (string, error)
}

var _ RunRequester = (*tasks.Scheduler)(nil)

type HandlerConfig struct {
	BaseURL    string
	Version    string
	ImagePath  string
	AudioPath  string
	VideoPath  string
	ScriptPath string
}

type Handler struct {
	episodes  EpisodeSource
	runs      RunRequester
	generator GeneratorInterface
	cfg       HandlerConfig
}
