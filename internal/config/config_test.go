package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reverie.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("got port %d, want 9000", cfg.Server.Port)
	}
	// Absent sections keep defaults.
	if cfg.Clock.IncrementSec != 20 {
		t.Errorf("got increment %d, want default 20", cfg.Clock.IncrementSec)
	}
	if cfg.Retrieval.MaxContext != 5 {
		t.Errorf("got max_context %d, want default 5", cfg.Retrieval.MaxContext)
	}
}

func TestLoadEnvSubstitution(t *testing.T) {
	t.Setenv("REVERIE_TEST_KEY", "secret-from-env")

	path := writeConfig(t, `
providers:
  - id: main
    type: openai
    api_key: ${REVERIE_TEST_KEY}
    endpoint: ${REVERIE_TEST_MISSING:http://localhost:1234/v1}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("got %d providers, want 1", len(cfg.Providers))
	}
	if got := cfg.Providers[0].APIKey; got != "secret-from-env" {
		t.Errorf("got api_key %q, want env value", got)
	}
	if got := cfg.Providers[0].Endpoint; got != "http://localhost:1234/v1" {
		t.Errorf("got endpoint %q, want default fallback", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
