package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/api"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/cfg"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/feed"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/llm"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/retry"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/speech"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/tasks"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/transcript"
	"github.com/datapaglu-avi/tl-dl-genai-podcast/app/video"
	"golang.org/x/time/rate"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting TL;DL podcast", "version", appCfg.Version, "command", appCfg.Command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg); err != nil {
		slog.Error("Fatal error", "command", appCfg.Command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg *cfg.Cfg) error {
	switch appCfg.Command {
	case cfg.CommandMux:
		pipeline := tasks.NewPipeline(tasks.PipelineDeps{
			Muxer: video.NewMuxer(video.ExecRunner{}),
		}, pipelineConfig(appCfg))

		path, err := pipeline.Mux(ctx)
		if err != nil {
			return err
		}
		slog.Info("Video rendered", "path", path)
		return nil

	case cfg.CommandServe:
		pipeline, err := buildPipeline(appCfg)
		if err != nil {
			return err
		}
		return serve(ctx, appCfg, pipeline)

	default:
		pipeline, err := buildPipeline(appCfg)
		if err != nil {
			return err
		}

		episode, err := pipeline.Run(ctx)
		if errors.Is(err, tasks.ErrNoContent) {
			slog.Info("No new videos today, nothing produced")
			return nil
		}
		if err != nil {
			return err
		}

		slog.Info("Run complete", "title", episode.Title(), "script", episode.ScriptPath)
		return nil
	}
}

func pipelineConfig(appCfg *cfg.Cfg) tasks.PipelineConfig {
	return tasks.PipelineConfig{
		Workers:    appCfg.Workers,
		OutputDir:  appCfg.OutputDir,
		AudioFile:  appCfg.AudioFile,
		VideoFile:  appCfg.VideoFile,
		ScriptFile: appCfg.ScriptFile,
		ImageFile:  appCfg.ImageFile,
		Mux:        appCfg.Mux,
	}
}

// buildPipeline constructs every stage once; they are shared by all runs.
func buildPipeline(appCfg *cfg.Cfg) (*tasks.Pipeline, error) {
	channels := feed.NewChannelCache(appCfg.ChannelsFile)
	if err := channels.Run(); err != nil {
		return nil, err
	}
	slog.Info("Channels loaded", "file", appCfg.ChannelsFile, "count", channels.GetChannelCount())

	httpClient := &http.Client{Timeout: appCfg.Timeout}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = appCfg.MaxAttempts

	// Shared by the transcript and LLM services.
	var limiter *rate.Limiter
	if appCfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(appCfg.RequestsPerSecond), 1)
	}

	llmClient := llm.NewClient(llm.ClientConfig{
		APIBase:      appCfg.LLMAPIBase,
		APIKey:       appCfg.LLMAPIKey,
		FallbackKeys: appCfg.LLMAPIKeyFallbacks,
		Model:        appCfg.LLMModel,
		Temperature:  appCfg.LLMTemperature,
		MaxTokens:    appCfg.LLMMaxTokens,
		Timeout:      appCfg.LLMTimeout,
	})

	prompts, err := llm.LoadPrompts(appCfg.PromptsDir)
	if err != nil {
		return nil, err
	}
	scriptPrompt, err := prompts.Script(appCfg.Format)
	if err != nil {
		return nil, err
	}
	composer, err := llm.NewComposer(llmClient, scriptPrompt, limiter)
	if err != nil {
		return nil, err
	}

	backend := speech.NewOpenAIBackend(speech.OpenAIConfig{
		APIBase: appCfg.TTSAPIBase,
		APIKey:  appCfg.TTSAPIKey,
		Model:   appCfg.TTSModel,
		Voice:   appCfg.Voice,
		Speed:   appCfg.SpeechRate,
		Timeout: appCfg.LLMTimeout,
	})

	slog.Info("Pipeline configured",
		"llm_model", llmClient.Model(),
		"tts_model", appCfg.TTSModel,
		"voice", appCfg.Voice,
		"format", appCfg.Format,
		"workers", appCfg.Workers,
		"window", appCfg.Window)

	return tasks.NewPipeline(tasks.PipelineDeps{
		Channels:    channels,
		Fetcher:     feed.NewFetcher(httpClient, appCfg.FeedBaseURL, appCfg.UserAgent, appCfg.Timeout, retryCfg),
		Parser:      feed.NewParser(),
		Filterer:    feed.NewFilterer(appCfg.Window),
		Transcripts: transcript.NewRetriever(transcript.NewClient(httpClient, appCfg.UserAgent, appCfg.Timeout), retryCfg, limiter),
		Summarizer:  llm.NewSummarizer(llmClient, prompts.Summary, limiter),
		Composer:    composer,
		Synthesizer: speech.NewSynthesizer(backend, appCfg.TTSChunkChars),
		Muxer:       video.NewMuxer(video.ExecRunner{}),
	}, pipelineConfig(appCfg)), nil
}

func serve(ctx context.Context, appCfg *cfg.Cfg, pipeline *tasks.Pipeline) error {
	store := tasks.NewEpisodeStore()

	scheduler := tasks.NewScheduler(pipeline, store, tasks.SchedulerConfig{
		Interval:   appCfg.ScheduleInterval,
		RunOnStart: appCfg.RunOnStart,
		MaxRetries: appCfg.TaskRetries,
	})
	scheduler.Start()
	defer scheduler.Stop()

	pc := pipelineConfig(appCfg)
	handler := api.NewHandler(store, scheduler, api.HandlerConfig{
		BaseURL:    appCfg.BaseUrl,
		Version:    appCfg.Version,
		ImagePath:  appCfg.ImageFile,
		AudioPath:  pc.AudioPath(),
		VideoPath:  pc.VideoPath(),
		ScriptPath: pc.ScriptPath(),
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort("", appCfg.Port),
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", appCfg.Port, "output_dir", filepath.Clean(appCfg.OutputDir))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
