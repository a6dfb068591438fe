// Package video renders the episode audio over a still cover image.
package video

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	FrameRate = 24

	defaultBinary = "ffmpeg"
	maxStderrTail = 2000
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Error struct {
	Output string
	Err    error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("mux %s: %v", e.Output, e.Err)
	}
	return fmt.Sprintf("mux: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Muxer struct {
	runner Runner
	binary string
}

// NewMuxer builds a Muxer. A nil runner executes ffmpeg from PATH.
func NewMuxer(runner Runner) *Muxer {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Muxer{runner: runner, binary: defaultBinary}
}

// Run holds image for the whole duration of audio and writes output.
func (m *Muxer) Run(ctx context.Context, audioPath, imagePath, outputPath string) error {
	for _, input := range []string{audioPath, imagePath} {
		info, err := os.Stat(input)
		if err != nil {
			return &Error{Output: outputPath, Err: fmt.Errorf("input %s: %w", input, err)}
		}
		if info.IsDir() {
			return &Error{Output: outputPath, Err: fmt.Errorf("input %s is a directory", input)}
		}
	}

	start := time.Now()
	out, err := m.runner.Run(ctx, m.binary, Args(audioPath, imagePath, outputPath)...)
	if err != nil {
		return &Error{Output: outputPath, Err: fmt.Errorf("%s failed: %w: %s", m.binary, err, tail(out))}
	}

	slog.Info("Video rendered", "output", outputPath, "duration", time.Since(start))
	return nil
}

// Args returns the ffmpeg arguments for a still-image video at FrameRate.
// -shortest ends the video with the audio.
func Args(audioPath, imagePath, outputPath string) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(FrameRate),
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-r", strconv.Itoa(FrameRate),
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		outputPath,
	}
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(bytes.ToValidUTF8(out, nil)))
	if len(s) <= maxStderrTail {
		return s
	}
	start := len(s) - maxStderrTail
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
