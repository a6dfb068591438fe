package cfg

import "time"

const (
	CommandRun   = "run"
	CommandMux   = "mux"
	CommandServe = "serve"
)

const (
	FormatSolo = "solo"
	FormatDuo  = "duo"
)

type Cfg struct {
	Command string

	// Inputs
	ChannelsFile string
	EnvFile      string
	PromptsDir   string
	ImageFile    string

	// Outputs
	OutputDir  string
	AudioFile  string
	VideoFile  string
	ScriptFile string

	// Feed
	FeedBaseURL string
	Window      time.Duration
	UserAgent   string
	Timeout     time.Duration

	// Pipeline
	Workers           int
	RequestsPerSecond float64
	MaxAttempts       int
	Format            string
	Mux               bool

	// LLM
	LLMAPIBase         string
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMTimeout         time.Duration

	// Speech
	TTSAPIBase    string
	TTSAPIKey     string
	TTSModel      string
	Voice         string
	SpeechRate    float64
	TTSChunkChars int

	// Serve
	Port             string
	BaseUrl          string
	ScheduleInterval time.Duration
	RunOnStart       bool
	TaskRetries      int

	Timezone string
	Debug    bool
	Version  string
}
