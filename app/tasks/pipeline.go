package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/llm"
)

// ErrNoContent ends a run in which no video produced a summary. No
// artifact is written.
var ErrNoContent = errors.New("no summaries produced")

type PipelineConfig struct {
	Workers    int
	OutputDir  string
	AudioFile  string
	VideoFile  string
	ScriptFile string
	ImageFile  string
	Mux        bool
}

func (c PipelineConfig) AudioPath() string  { return filepath.Join(c.OutputDir, c.AudioFile) }
func (c PipelineConfig) VideoPath() string  { return filepath.Join(c.OutputDir, c.VideoFile) }
func (c PipelineConfig) ScriptPath() string { return filepath.Join(c.OutputDir, c.ScriptFile) }

type Pipeline struct {
	channels    ChannelSource
	fetcher     FeedFetcher
	parser      *feed.Parser
	filterer    *feed.Filterer
	transcripts TranscriptRetriever
	summarizer  VideoSummarizer
	composer    ScriptComposer
	synthesizer SpeechSynthesizer
	muxer       VideoMuxer
	cfg         PipelineConfig
	now         func() time.Time
}

type PipelineDeps struct {
	Channels    ChannelSource
	Fetcher     FeedFetcher
	Parser      *feed.Parser
	Filterer    *feed.Filterer
	Transcripts TranscriptRetriever
	Summarizer  VideoSummarizer
	Composer    ScriptComposer
	Synthesizer SpeechSynthesizer
	Muxer       VideoMuxer
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Pipeline{
		channels:    deps.Channels,
		fetcher:     deps.Fetcher,
		parser:      deps.Parser,
		filterer:    deps.Filterer,
		transcripts: deps.Transcripts,
		summarizer:  deps.Summarizer,
		composer:    deps.Composer,
		synthesizer: deps.Synthesizer,
		muxer:       deps.Muxer,
		cfg:         cfg,
		now:         time.Now,
	}
}

type channelResult struct {
	videos    []feed.Video
	summaries []llm.Summary
	skipped   int
	err       error
}

// Run produces one episode: per-channel fetch, parse and filter, then
// per-video transcript and summary, then script, audio and optional video.
// Channel and video failures are logged and skipped; the aggregate stages
// are fatal.
func (p *Pipeline) Run(ctx context.Context) (*Episode, error) {
	start := p.now()
	channels := p.channels.GetChannels()

	results := make([]channelResult, len(channels))

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, channel := range channels {
		g.Go(func() error {
			results[i] = p.processChannel(ctx, channel)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:    uuid.NewString(),
		Date:  start,
		Stats: RunStats{Channels: len(channels)},
	}
	for _, r := range results {
		if r.err != nil {
			episode.Stats.ChannelsFailed++
		}
		episode.Stats.Candidates += len(r.videos)
		episode.Stats.Skipped += r.skipped
		episode.Summaries = append(episode.Summaries, r.summaries...)
	}
	for _, r := range results {
		for _, v := range r.videos {
			if hasSummary(episode.Summaries, v.ID) {
				v.Transcript = ""
				episode.Videos = append(episode.Videos, v)
			}
		}
	}

	if len(episode.Summaries) == 0 {
		slog.Warn("No summaries produced", "channels", episode.Stats.Channels, "failed_channels", episode.Stats.ChannelsFailed, "candidates", episode.Stats.Candidates, "skipped", episode.Stats.Skipped)
		return nil, ErrNoContent
	}

	script, err := p.composer.Run(ctx, episode.Summaries)
	if err != nil {
		return nil, err
	}
	episode.Script = script

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	episode.ScriptPath = p.cfg.ScriptPath()
	if err := writeFileAtomic(episode.ScriptPath, []byte(script+"\n")); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	audio, err := p.synthesizer.Run(ctx, script, p.cfg.AudioPath())
	if err != nil {
		return nil, err
	}
	episode.AudioPath = audio.Path
	episode.AudioBytes = audio.Bytes

	if p.cfg.Mux {
		if err := p.muxer.Run(ctx, episode.AudioPath, p.cfg.ImageFile, p.cfg.VideoPath()); err != nil {
			return nil, err
		}
		episode.VideoPath = p.cfg.VideoPath()
	}

	episode.CreatedAt = p.now()
	episode.Duration = episode.CreatedAt.Sub(start)

	slog.Info("Episode produced",
		"id", episode.ID,
		"channels", episode.Stats.Channels,
		"failed_channels", episode.Stats.ChannelsFailed,
		"videos", len(episode.Videos),
		"skipped", episode.Stats.Skipped,
		"audio", episode.AudioPath,
		"audio_bytes", episode.AudioBytes,
		"video", episode.VideoPath,
		"duration", episode.Duration)

	return episode, nil
}

func (p *Pipeline) processChannel(ctx context.Context, channel feed.ChannelConfig) channelResult {
	var result channelResult

	data, err := p.fetcher.Run(ctx, channel.ID)
	if err != nil {
		slog.Warn("Channel skipped", "channel", channel.Name, "stage", "fetch", "error", err)
		result.err = err
		return result
	}

	entries, err := p.parser.Run(channel.ID, data)
	if err != nil {
		slog.Warn("Channel skipped", "channel", channel.Name, "stage", "parse", "error", err)
		result.err = err
		return result
	}

	result.videos = p.filterer.Run(entries, channel)

	for i := range result.videos {
		if ctx.Err() != nil {
			result.err = ctx.Err()
			return result
		}

		video := &result.videos[i]

		transcript, err := p.transcripts.Run(ctx, *video)
		if err != nil {
			slog.Warn("Video skipped", "channel", channel.Name, "video", video.ID, "stage", "transcript", "error", err)
			result.skipped++
			continue
		}
		video.Transcript = transcript

		summary, err := p.summarizer.Run(ctx, *video)
		if err != nil {
			slog.Warn("Video skipped", "channel", channel.Name, "video", video.ID, "stage", "summarize", "error", err)
			result.skipped++
			continue
		}
		result.summaries = append(result.summaries, summary)
	}

	slog.Info("Channel processed",
		"channel", channel.Name,
		"entries", len(entries),
		"candidates", len(result.videos),
		"summaries", len(result.summaries),
		"skipped", result.skipped)

	return result
}

func hasSummary(summaries []llm.Summary, videoID string) bool {
	for _, s := range summaries {
		if s.VideoID == videoID {
			return true
		}
	}
	return false
}

// writeFileAtomic replaces path with data through a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Mux renders the video from the audio file already in the output dir.
func (p *Pipeline) Mux(ctx context.Context) (string, error) {
	output := p.cfg.VideoPath()
	if err := p.muxer.Run(ctx, p.cfg.AudioPath(), p.cfg.ImageFile, output); err != nil {
		return "", err
	}
	return output, nil
}
