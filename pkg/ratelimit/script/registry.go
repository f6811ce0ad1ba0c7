// Package script loads the Lua source text the rate-limit engine evaluates
// atomically against the shared store.
package script

import (
	"embed"
	"fmt"
	"io/fs"
)

// Names of the four scripts the engine requires. These match the fixed
// directory layout spec.md §4.1 describes, one file per name.
const (
	RateLimit     = "rate_limit"
	TokenBucket   = "token_bucket"
	SlidingWindow = "sliding_window"
	LeakyBucket   = "leaky_bucket"
)

var required = []string{RateLimit, TokenBucket, SlidingWindow, LeakyBucket}

//go:embed scripts/*.lua
var embedded embed.FS

const embeddedDir = "scripts"

// Registry holds the source text of the four named scripts, immutable for
// the process lifetime once constructed.
type Registry struct {
	sources map[string]string
}

// NewRegistry loads the four required scripts from src. A nil src loads
// the binary's embedded defaults. A missing script is a fatal error
// returned here, not a panic deep in the runner's call path.
func NewRegistry(src fs.FS) (*Registry, error) {
	useEmbedded := src == nil
	if useEmbedded {
		src = embedded
	}

	sources := make(map[string]string, len(required))
	for _, name := range required {
		text, err := readScript(src, name, useEmbedded)
		if err != nil {
			return nil, fmt.Errorf("script registry: %w", err)
		}
		sources[name] = text
	}

	return &Registry{sources: sources}, nil
}

func readScript(src fs.FS, name string, useEmbedded bool) (string, error) {
	// The embedded default lives under scripts/; an operator-supplied
	// fs.FS is expected to be rooted directly at the script files.
	path := name + ".lua"
	if useEmbedded {
		path = embeddedDir + "/" + path
	}
	data, err := fs.ReadFile(src, path)
	if err != nil {
		return "", fmt.Errorf("missing script %q: %w", name, err)
	}
	return string(data), nil
}

// Source returns the source text for a named script and whether it exists.
func (r *Registry) Source(name string) (string, bool) {
	text, ok := r.sources[name]
	return text, ok
}

// Names returns the names of every script the registry holds.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}
