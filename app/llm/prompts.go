package llm

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed prompts/*.txt
var builtinPrompts embed.FS

const (
	summaryPromptFile = "summary.txt"
	soloPromptFile    = "script_solo.txt"
	duoPromptFile     = "script_duo.txt"
)

// Prompts holds the instruction texts. Script prompts are text/template
// sources that receive {{.Date}}.
type Prompts struct {
	Summary    string
	ScriptSolo string
	ScriptDuo  string
}

// LoadPrompts returns the built-in prompts, each replaced by the file of
// the same name in dir when dir is set and the file exists.
func LoadPrompts(dir string) (Prompts, error) {
	var p Prompts

	targets := map[string]*string{
		summaryPromptFile: &p.Summary,
		soloPromptFile:    &p.ScriptSolo,
		duoPromptFile:     &p.ScriptDuo,
	}

	for name, target := range targets {
		text, err := readPrompt(dir, name)
		if err != nil {
			return Prompts{}, err
		}
		*target = text
	}

	return p, nil
}

// Script returns the script prompt for format ("solo" or "duo").
func (p Prompts) Script(format string) (string, error) {
	switch format {
	case "solo":
		return p.ScriptSolo, nil
	case "duo":
		return p.ScriptDuo, nil
	}
	return "", fmt.Errorf("unknown script format %q", format)
}

func readPrompt(dir, name string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		switch {
		case err == nil:
			return string(data), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("failed to read prompt %s: %w", name, err)
		}
	}

	data, err := builtinPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read built-in prompt %s: %w", name, err)
	}
	return string(data), nil
}
