package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MimeLyc/txt2img-batch/internal/workflow"
)

// LoadPromptsFile reads a JSON array of prompts:
//
//	[{"name": "logo_v1", "seed": 1, "clip_l": "...", "t5xxl": "..."}]
func LoadPromptsFile(path string) ([]workflow.Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var prompts []workflow.Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("invalid prompts file: %w", err)
	}
	if err := ValidatePrompts(prompts); err != nil {
		return nil, fmt.Errorf("invalid prompts file: %w", err)
	}
	return prompts, nil
}

// ValidatePrompts requires at least one prompt and unique, path-safe names.
// Names are trimmed and NFC-normalized in place before they are checked.
func ValidatePrompts(prompts []workflow.Prompt) error {
	if len(prompts) == 0 {
		return fmt.Errorf("no prompts")
	}

	seen := make(map[string]struct{}, len(prompts))
	for i := range prompts {
		name := norm.NFC.String(strings.TrimSpace(prompts[i].Name))
		prompts[i].Name = name
		if name == "" {
			return fmt.Errorf("prompt %d: name is required", i)
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("prompt %d: name %q is not a valid file name", i, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("prompt %d: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
