package driver

import (
	"os"
	"path/filepath"
	"testing"

	"capc/internal/specialize"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[target]
arch = "x86_64"
baseline = ["sse2", "popcnt"]

[specialize]
indirect_fallback = "baseline"
max_depth = 16
jobs = 4
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := m.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Arch != "x86_64" || len(cfg.Baseline) != 2 {
		t.Fatalf("target: %+v", cfg)
	}
	if cfg.IndirectFallback != specialize.FallbackBaseline {
		t.Fatal("fallback not mapped")
	}
	if cfg.MaxDepth != 16 || cfg.Jobs != 4 {
		t.Fatalf("limits: %+v", cfg)
	}
}

func TestManifestDefaultsToErrorPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[target]
arch = "aarch64"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := m.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IndirectFallback != specialize.FallbackError {
		t.Fatal("default policy must be error")
	}
}

func TestManifestRejectsUnknownPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[target]
arch = "x86_64"

[specialize]
indirect_fallback = "guess"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Config(); err == nil {
		t.Fatal("unknown policy must be rejected")
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[target]\narch = \"x86_64\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindManifest(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("manifest not found")
	}
	if filepath.Dir(path) != root {
		t.Fatalf("found %q, want in %q", path, root)
	}
}

func TestFindManifestMissing(t *testing.T) {
	_, ok, err := FindManifest(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("unexpected manifest")
	}
}
