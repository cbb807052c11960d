package engine

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("engine", flag.ContinueOnError)
	t.Setenv("ASTERFALL_ENGINE_DB_PATH", "env/engine.db")
	t.Setenv("ASTERFALL_ENGINE_GLOBAL_DAILY_CEILING", "50")

	cfg, err := ParseConfig(fs, []string{"-backend", "openai", "-min-tick-interval", "5m"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "env/engine.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "env/engine.db")
	}
	if cfg.GlobalDailyCeiling != 50 {
		t.Fatalf("global ceiling = %d, want 50", cfg.GlobalDailyCeiling)
	}
	if cfg.Backend != "openai" {
		t.Fatalf("backend = %q, want %q", cfg.Backend, "openai")
	}
	if cfg.MinTickInterval != 5*time.Minute {
		t.Fatalf("min tick interval = %s, want 5m", cfg.MinTickInterval)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("engine", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Backend != "stub" {
		t.Fatalf("backend = %q, want %q", cfg.Backend, "stub")
	}
	if cfg.BackendTimeout != 20*time.Second {
		t.Fatalf("backend timeout = %s, want 20s", cfg.BackendTimeout)
	}
	if cfg.MaxInputChars != 2000 {
		t.Fatalf("max input chars = %d, want 2000", cfg.MaxInputChars)
	}
	if cfg.PerUserDailyCeiling != 20 {
		t.Fatalf("per-user ceiling = %d, want 20", cfg.PerUserDailyCeiling)
	}
	if cfg.PinnedMemoryCap != 10 {
		t.Fatalf("pinned memory cap = %d, want 10", cfg.PinnedMemoryCap)
	}
	if cfg.MoodDecayDivisor != 10 {
		t.Fatalf("mood decay divisor = %d, want 10", cfg.MoodDecayDivisor)
	}
}

func TestBuildBackend(t *testing.T) {
	if backend, err := buildBackend(Config{Backend: "stub"}); err != nil || backend != nil {
		t.Fatalf("stub backend = %v, %v; want nil, nil", backend, err)
	}
	if backend, err := buildBackend(Config{Backend: "openai", BackendModel: "m", BackendAPIKey: "k"}); err != nil || backend == nil {
		t.Fatalf("openai backend = %v, %v; want adapter, nil", backend, err)
	}
	if _, err := buildBackend(Config{Backend: "oracle"}); err == nil {
		t.Fatal("unknown backend should fail")
	}
}
