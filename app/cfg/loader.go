package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Inputs
	ChannelsFile string `long:"channels" env:"CHANNELS_FILE" default:"./config.yml" description:"YAML file listing the channels to poll"`
	EnvFile      string `long:"env-file" env:"ENV_FILE" default:".env" description:"Dotenv file holding service credentials"`
	PromptsDir   string `long:"prompts-dir" env:"PROMPTS_DIR" description:"Directory with summary.txt / script_solo.txt / script_duo.txt overriding the built-in prompts"`
	ImageFile    string `long:"image" env:"COVER_IMAGE" default:"./TL_DL.png" description:"Still image used for the video"`

	// Outputs
	OutputDir  string `long:"output-dir" env:"OUTPUT_DIR" default:"." description:"Directory receiving the generated artifacts"`
	AudioFile  string `long:"audio-file" env:"AUDIO_FILE" default:"podcast.mp3" description:"Audio file name"`
	VideoFile  string `long:"video-file" env:"VIDEO_FILE" default:"podcast_video.mp4" description:"Video file name"`
	ScriptFile string `long:"script-file" env:"SCRIPT_FILE" default:"podcast_script.txt" description:"Narration script dump file name"`

	// Feed
	FeedBaseURL string        `long:"feed-base-url" env:"FEED_BASE_URL" default:"https://www.youtube.com/feeds/videos.xml" description:"Channel feed endpoint"`
	Window      time.Duration `long:"window" env:"WINDOW" default:"24h" description:"Only videos published within this window are used"`
	UserAgent   string        `long:"user-agent" env:"USER_AGENT" default:"TLDL Podcast/1.0" description:"User agent string for HTTP requests"`
	Timeout     time.Duration `long:"timeout" env:"HTTP_TIMEOUT" default:"30s" description:"Timeout for feed and transcript requests"`

	// Pipeline
	Workers           int     `long:"workers" env:"WORKERS" default:"4" description:"Number of channels processed concurrently"`
	RequestsPerSecond float64 `long:"rps" env:"REQUESTS_PER_SECOND" default:"2" description:"Rate limit for transcript and LLM requests"`
	MaxAttempts       int     `long:"max-attempts" env:"MAX_ATTEMPTS" default:"3" description:"Total tries per feed or transcript request, including the first"`
	Format            string  `long:"format" env:"SCRIPT_FORMAT" default:"solo" choice:"solo" choice:"duo" description:"Narration format"`

	// LLM
	LLMAPIBase         string        `long:"llm-api-base" env:"LLM_API_BASE" default:"https://api.openai.com/v1" description:"OpenAI-compatible chat completion endpoint"`
	LLMAPIKey          string        `long:"llm-api-key" env:"LLM_API_KEY" description:"LLM API key"`
	LLMAPIKeyFallbacks []string      `long:"llm-api-key-fallbacks" env:"LLM_API_KEY_FALLBACKS" env-delim:"," description:"Extra LLM API keys tried when the primary key is rejected or rate limited"`
	LLMModel           string        `long:"llm-model" env:"LLM_MODEL" default:"gpt-4o-mini" description:"LLM model"`
	LLMTemperature     float64       `long:"llm-temperature" env:"LLM_TEMPERATURE" default:"0.3" description:"LLM sampling temperature"`
	LLMMaxTokens       int           `long:"llm-max-tokens" env:"LLM_MAX_TOKENS" default:"4096" description:"LLM max output tokens"`
	LLMTimeout         time.Duration `long:"llm-timeout" env:"LLM_TIMEOUT" default:"120s" description:"Timeout for a single LLM request"`

	// Speech
	TTSAPIBase    string  `long:"tts-api-base" env:"TTS_API_BASE" default:"https://api.openai.com/v1" description:"OpenAI-compatible speech endpoint"`
	TTSAPIKey     string  `long:"tts-api-key" env:"TTS_API_KEY" description:"TTS API key (falls back to the LLM key)"`
	TTSModel      string  `long:"tts-model" env:"TTS_MODEL" default:"tts-1" description:"TTS model"`
	Voice         string  `long:"voice" env:"TTS_VOICE" default:"alloy" description:"Voice identifier"`
	SpeechRate    float64 `long:"speech-rate" env:"SPEECH_RATE" default:"1.1" description:"Speech rate multiplier"`
	TTSChunkChars int     `long:"tts-chunk-chars" env:"TTS_CHUNK_CHARS" default:"4000" description:"Maximum characters per synthesis request"`

	// Serve
	Port             string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl          string        `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://podcast.example.com)"`
	ScheduleInterval time.Duration `long:"schedule-interval" env:"SCHEDULE_INTERVAL" default:"24h" description:"Interval between scheduled runs"`

	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for the episode date (e.g., UTC, Asia/Kolkata)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type runCommand struct {
	Mux bool `long:"mux" env:"MUX" description:"Also render the video after the audio"`
}

type muxCommand struct{}

type serveCommand struct {
	RunOnStart  bool `long:"run-on-start" env:"RUN_ON_START" description:"Produce an episode right after startup"`
	TaskRetries int  `long:"task-retries" env:"TASK_RETRIES" default:"2" description:"Re-runs of a failed episode task after the first run"`
}

// ConfigError reports an invalid or unreadable configuration.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type parsedArgs struct {
	raw     rawCfg
	run     runCommand
	mux     muxCommand
	serve   serveCommand
	command string
}

// Load parses args (without the program name) plus the environment.
// It returns nil, nil when help was requested.
//
// Flags are parsed twice: the first pass resolves --env-file, the second
// sees the variables that file provides.
func Load(args []string) (*Cfg, error) {
	first, err := parseArgs(args)
	if err != nil || first == nil {
		return nil, err
	}

	if err := loadEnvFile(first.raw.EnvFile); err != nil {
		return nil, err
	}

	parsed, err := parseArgs(args)
	if err != nil || parsed == nil {
		return nil, err
	}

	raw, run, serve, command := parsed.raw, parsed.run, parsed.serve, parsed.command

	cfg := &Cfg{
		Command:            command,
		ChannelsFile:       raw.ChannelsFile,
		EnvFile:            raw.EnvFile,
		PromptsDir:         raw.PromptsDir,
		ImageFile:          raw.ImageFile,
		OutputDir:          raw.OutputDir,
		AudioFile:          raw.AudioFile,
		VideoFile:          raw.VideoFile,
		ScriptFile:         raw.ScriptFile,
		FeedBaseURL:        raw.FeedBaseURL,
		Window:             raw.Window,
		UserAgent:          raw.UserAgent,
		Timeout:            raw.Timeout,
		Workers:            raw.Workers,
		RequestsPerSecond:  raw.RequestsPerSecond,
		MaxAttempts:        raw.MaxAttempts,
		Format:             raw.Format,
		Mux:                run.Mux,
		LLMAPIBase:         raw.LLMAPIBase,
		LLMAPIKey:          raw.LLMAPIKey,
		LLMAPIKeyFallbacks: nonEmpty(raw.LLMAPIKeyFallbacks),
		LLMModel:           raw.LLMModel,
		LLMTemperature:     raw.LLMTemperature,
		LLMMaxTokens:       raw.LLMMaxTokens,
		LLMTimeout:         raw.LLMTimeout,
		TTSAPIBase:         raw.TTSAPIBase,
		TTSAPIKey:          cmp.Or(raw.TTSAPIKey, raw.LLMAPIKey),
		TTSModel:           raw.TTSModel,
		Voice:              raw.Voice,
		SpeechRate:         raw.SpeechRate,
		TTSChunkChars:      raw.TTSChunkChars,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		ScheduleInterval:   raw.ScheduleInterval,
		RunOnStart:         serve.RunOnStart,
		TaskRetries:        serve.TaskRetries,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func parseArgs(args []string) (*parsedArgs, error) {
	p := &parsedArgs{}

	parser := flags.NewParser(&p.raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.AddCommand(CommandRun, "Produce today's episode", "Fetch, summarize, script and synthesize today's episode.", &p.run); err != nil {
		return nil, err
	}
	if _, err := parser.AddCommand(CommandMux, "Render the video", "Combine the existing audio file with the cover image.", &p.mux); err != nil {
		return nil, err
	}
	if _, err := parser.AddCommand(CommandServe, "Run the scheduler and HTTP API", "Produce an episode every schedule interval and serve the latest one.", &p.serve); err != nil {
		return nil, err
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, &ConfigError{Err: fmt.Errorf("failed to parse configuration: %w", err)}
	}

	p.command = CommandRun
	if parser.Active != nil {
		p.command = parser.Active.Name
	}

	return p, nil
}

// loadEnvFile reads credentials from a dotenv file. Variables already
// present in the environment win. A missing file is not an error.
func loadEnvFile(path string) error {
	path = cmp.Or(path, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigError{Field: "env-file", Err: err}
	}
	return nil
}

func validate(cfg *Cfg) error {
	positiveInts := map[string]int{
		"workers":         cfg.Workers,
		"llm-max-tokens":  cfg.LLMMaxTokens,
		"tts-chunk-chars": cfg.TTSChunkChars,
	}
	for field, value := range positiveInts {
		if value <= 0 {
			return &ConfigError{Field: field, Err: fmt.Errorf("must be positive, got %d", value)}
		}
	}

	positiveDurations := map[string]time.Duration{
		"window":            cfg.Window,
		"timeout":           cfg.Timeout,
		"llm-timeout":       cfg.LLMTimeout,
		"schedule-interval": cfg.ScheduleInterval,
	}
	for field, value := range positiveDurations {
		if value <= 0 {
			return &ConfigError{Field: field, Err: fmt.Errorf("must be positive, got %s", value)}
		}
	}

	if cfg.MaxAttempts < 1 {
		return &ConfigError{Field: "max-attempts", Err: fmt.Errorf("must be at least 1, got %d", cfg.MaxAttempts)}
	}
	if cfg.TaskRetries < 0 {
		return &ConfigError{Field: "task-retries", Err: fmt.Errorf("must not be negative, got %d", cfg.TaskRetries)}
	}
	if cfg.RequestsPerSecond <= 0 {
		return &ConfigError{Field: "rps", Err: fmt.Errorf("must be positive, got %g", cfg.RequestsPerSecond)}
	}
	if cfg.SpeechRate < 0.25 || cfg.SpeechRate > 4.0 {
		return &ConfigError{Field: "speech-rate", Err: fmt.Errorf("must be within [0.25, 4.0], got %g", cfg.SpeechRate)}
	}
	if cfg.Format != FormatSolo && cfg.Format != FormatDuo {
		return &ConfigError{Field: "format", Err: fmt.Errorf("unknown format %q", cfg.Format)}
	}

	return nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
