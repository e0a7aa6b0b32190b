package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"capc/internal/specialize"
)

// ManifestName is the session manifest looked up from the working directory.
const ManifestName = "capc.toml"

// Manifest is the TOML session manifest:
//
//	[target]
//	arch = "x86_64"
//	baseline = ["sse2"]
//
//	[specialize]
//	indirect_fallback = "error"   # or "baseline"
//	max_depth = 64
//	jobs = 0
type Manifest struct {
	Path string `toml:"-"`

	Target     targetConfig     `toml:"target"`
	Specialize specializeConfig `toml:"specialize"`
}

type targetConfig struct {
	Arch     string   `toml:"arch"`
	Baseline []string `toml:"baseline"`
}

type specializeConfig struct {
	IndirectFallback string `toml:"indirect_fallback"`
	MaxDepth         int    `toml:"max_depth"`
	Jobs             int    `toml:"jobs"`
	MaxDiagnostics   int    `toml:"max_diagnostics"`
}

// FindManifest walks up from startDir looking for capc.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest reads and decodes one manifest file.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	m.Path = path
	return &m, nil
}

// Config maps the manifest onto a session Config, validating enum fields.
func (m *Manifest) Config() (Config, error) {
	cfg := Config{
		Arch:           m.Target.Arch,
		Baseline:       m.Target.Baseline,
		MaxDepth:       m.Specialize.MaxDepth,
		Jobs:           m.Specialize.Jobs,
		MaxDiagnostics: m.Specialize.MaxDiagnostics,
	}
	switch m.Specialize.IndirectFallback {
	case "", "error":
		cfg.IndirectFallback = specialize.FallbackError
	case "baseline":
		cfg.IndirectFallback = specialize.FallbackBaseline
	default:
		return Config{}, fmt.Errorf("manifest %q: unknown indirect_fallback %q (want \"error\" or \"baseline\")", m.Path, m.Specialize.IndirectFallback)
	}
	return cfg, nil
}
