// Package speech converts a narration script into an MP3 file.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultChunkChars stays under the 4096 character input cap of the
// OpenAI speech endpoint.
const DefaultChunkChars = 4000

// Backend synthesizes one chunk of text into MP3 bytes.
type Backend interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

type OpenAIConfig struct {
	APIBase string
	APIKey  string
	Model   string
	Voice   string
	Speed   float64
	Timeout time.Duration
}

type OpenAIBackend struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	speed  float64
}

func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		config.BaseURL = cfg.APIBase
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(config),
		model:  openai.SpeechModel(cfg.Model),
		voice:  openai.SpeechVoice(cfg.Voice),
		speed:  cfg.Speed,
	}
}

func (b *OpenAIBackend) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := b.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          b.model,
		Input:          text,
		Voice:          b.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          b.speed,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Error reports a failed synthesis. Chunk is 1-based, 0 when the failure
// is not tied to a chunk.
type Error struct {
	Path  string
	Chunk int
	Err   error
}

func (e *Error) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("synthesize %s: chunk %d: %v", e.Path, e.Chunk, e.Err)
	}
	return fmt.Sprintf("synthesize %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Result struct {
	Path   string
	Bytes  int64
	Chunks int
}

type Synthesizer struct {
	backend    Backend
	chunkChars int
}

func NewSynthesizer(backend Backend, chunkChars int) *Synthesizer {
	if chunkChars <= 0 {
		chunkChars = DefaultChunkChars
	}
	return &Synthesizer{backend: backend, chunkChars: chunkChars}
}

// Run synthesizes script chunk by chunk and writes the concatenated MP3
// streams to path. path is replaced only when every chunk succeeded.
func (s *Synthesizer) Run(ctx context.Context, script, path string) (Result, error) {
	chunks := Chunk(script, s.chunkChars)
	if len(chunks) == 0 {
		return Result{}, &Error{Path: path, Err: errors.New("empty script")}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".speech-*.mp3")
	if err != nil {
		return Result{}, &Error{Path: path, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return Result{}, &Error{Path: path, Err: fmt.Errorf("failed to set file mode: %w", err)}
	}

	var total int64
	for i, chunk := range chunks {
		n, err := s.writeChunk(ctx, tmp, chunk)
		if err != nil {
			return Result{}, &Error{Path: path, Chunk: i + 1, Err: err}
		}
		total += n
		slog.Debug("Speech chunk synthesized", "chunk", i+1, "of", len(chunks), "chars", len(chunk), "bytes", n)
	}

	if total == 0 {
		return Result{}, &Error{Path: path, Err: errors.New("backend returned no audio")}
	}

	if err := tmp.Close(); err != nil {
		return Result{}, &Error{Path: path, Err: fmt.Errorf("failed to close temp file: %w", err)}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Result{}, &Error{Path: path, Err: fmt.Errorf("failed to move audio into place: %w", err)}
	}
	committed = true

	return Result{Path: path, Bytes: total, Chunks: len(chunks)}, nil
}

func (s *Synthesizer) writeChunk(ctx context.Context, w io.Writer, text string) (int64, error) {
	audio, err := s.backend.Synthesize(ctx, text)
	if err != nil {
		return 0, err
	}
	defer audio.Close()

	n, err := io.Copy(w, audio)
	if err != nil {
		return n, fmt.Errorf("failed to write audio: %w", err)
	}
	return n, nil
}
