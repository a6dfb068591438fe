package tasks

import (
	"context"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/llm"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/speech"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Example usage:
//
//	scheduler := NewScheduler(pipeline, store, SchedulerConfig{Interval: 24 * time.Hour})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewProduceEpisodeTask(TriggerAPI, pipeline, store, 3))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// EpisodeProducer runs the whole pipeline once.
type EpisodeProducer interface {
	Run(ctx context.Context) (*Episode, error)
}

// Pipeline stages, satisfied by the feed, transcript, llm, speech and
// video packages.

type ChannelSource interface {
	GetChannels() []feed.ChannelConfig
}

type FeedFetcher interface {
	Run(ctx context.Context, channelID string) ([]byte, error)
}

type TranscriptRetriever interface {
	Run(ctx context.Context, video feed.Video) (string, error)
}

type VideoSummarizer interface {
	Run(ctx context.Context, video feed.Video) (llm.Summary, error)
}

type ScriptComposer interface {
	Run(ctx context.Context, summaries []llm.Summary) (string, error)
}

type SpeechSynthesizer interface {
	Run(ctx context.Context, script, path string) (speech.Result, error)
}

type VideoMuxer interface {
	Run(ctx context.Context, audioPath, imagePath, outputPath string) error
}
