package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	for _, key := range []string{"SCRIPT_FORMAT", "WORKERS", "LLM_API_KEY", "TTS_API_KEY", "WINDOW", "SPEECH_RATE", "MUX", "RUN_ON_START", "LLM_API_KEY_FALLBACKS", "MAX_ATTEMPTS", "TASK_RETRIES"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Command != CommandRun {
		t.Errorf("Expected default command %q, got %q", CommandRun, cfg.Command)
	}
	if cfg.Window != 24*time.Hour {
		t.Errorf("Expected 24h window, got %s", cfg.Window)
	}
	if cfg.AudioFile != "podcast.mp3" {
		t.Errorf("Expected audio file 'podcast.mp3', got '%s'", cfg.AudioFile)
	}
	if cfg.VideoFile != "podcast_video.mp4" {
		t.Errorf("Expected video file 'podcast_video.mp4', got '%s'", cfg.VideoFile)
	}
	if cfg.Format != FormatSolo {
		t.Errorf("Expected format '%s', got '%s'", FormatSolo, cfg.Format)
	}
	if cfg.Mux {
		t.Error("Expected mux to be disabled by default")
	}
}

func TestLoad_Subcommands(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name       string
		args       []string
		command    string
		mux        bool
		runOnStart bool
	}{
		{name: "run with mux", args: []string{"run", "--mux"}, command: CommandRun, mux: true},
		{name: "mux", args: []string{"mux"}, command: CommandMux},
		{name: "serve", args: []string{"--port", "9090", "serve", "--run-on-start"}, command: CommandServe, runOnStart: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Command != tt.command {
				t.Errorf("Expected command %q, got %q", tt.command, cfg.Command)
			}
			if cfg.Mux != tt.mux {
				t.Errorf("Expected mux %t, got %t", tt.mux, cfg.Mux)
			}
			if cfg.RunOnStart != tt.runOnStart {
				t.Errorf("Expected run-on-start %t, got %t", tt.runOnStart, cfg.RunOnStart)
			}
		})
	}
}

func TestLoad_EnvFileCredentials(t *testing.T) {
	dir := isolateEnv(t)

	envFile := filepath.Join(dir, "creds.env")
	if err := os.WriteFile(envFile, []byte("LLM_API_KEY=sk-from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Cleanup(func() { os.Unsetenv("LLM_API_KEY") })

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLMAPIKey != "sk-from-file" {
		t.Errorf("Expected LLM key from env file, got '%s'", cfg.LLMAPIKey)
	}
	if cfg.TTSAPIKey != "sk-from-file" {
		t.Errorf("Expected TTS key to fall back to LLM key, got '%s'", cfg.TTSAPIKey)
	}
}

func TestLoad_EnvFileFlag(t *testing.T) {
	dir := isolateEnv(t)

	envFile := filepath.Join(dir, "flag.env")
	content := "LLM_API_KEY=sk-from-flag\nLLM_API_KEY_FALLBACKS=sk-spare-1, sk-spare-2,\nWORKERS=7\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("LLM_API_KEY")
		os.Unsetenv("LLM_API_KEY_FALLBACKS")
		os.Unsetenv("WORKERS")
	})

	cfg, err := Load([]string{"--env-file", envFile})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.EnvFile != envFile {
		t.Errorf("Expected env file %s, got %s", envFile, cfg.EnvFile)
	}
	if cfg.LLMAPIKey != "sk-from-flag" {
		t.Errorf("Expected LLM key from --env-file, got '%s'", cfg.LLMAPIKey)
	}
	if cfg.Workers != 7 {
		t.Errorf("Expected workers from --env-file, got %d", cfg.Workers)
	}
	if len(cfg.LLMAPIKeyFallbacks) != 2 || cfg.LLMAPIKeyFallbacks[0] != "sk-spare-1" || cfg.LLMAPIKeyFallbacks[1] != "sk-spare-2" {
		t.Errorf("Unexpected fallback keys: %q", cfg.LLMAPIKeyFallbacks)
	}
}

func TestLoad_RetryFlags(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load([]string{"--max-attempts", "5", "serve", "--task-retries", "0"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.TaskRetries != 0 {
		t.Errorf("Expected 0 task retries, got %d", cfg.TaskRetries)
	}

	cfg, err = Load([]string{"serve"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxAttempts != 3 || cfg.TaskRetries != 2 {
		t.Errorf("Expected defaults 3 attempts / 2 task retries, got %d / %d", cfg.MaxAttempts, cfg.TaskRetries)
	}
}

func TestLoad_Invalid(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{name: "zero workers", args: []string{"--workers", "0"}, field: "workers"},
		{name: "speech rate too fast", args: []string{"--speech-rate", "5"}, field: "speech-rate"},
		{name: "negative window", args: []string{"--window=-1h"}, field: "window"},
		{name: "zero attempts", args: []string{"--max-attempts", "0"}, field: "max-attempts"},
		{name: "negative task retries", args: []string{"serve", "--task-retries=-1"}, field: "task-retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestLoad_UnknownFormat(t *testing.T) {
	isolateEnv(t)

	_, err := Load([]string{"--format", "trio"})
	if err == nil {
		t.Fatal("Expected error for unknown format")
	}
}
