package observer

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("observer", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected default redis addr, got %q", cfg.RedisAddr)
	}
	if cfg.WatchKind != "persistent" {
		t.Fatalf("expected default watch kind, got %q", cfg.WatchKind)
	}
	if cfg.WatchKey != "" {
		t.Fatalf("expected empty watch key, got %q", cfg.WatchKey)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("observer", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-watch-kind", "ephemeral", "-watch-key", "npc", "-instance", "world1"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.WatchKind != "ephemeral" {
		t.Fatalf("expected watch kind override, got %q", cfg.WatchKind)
	}
	if cfg.WatchKey != "npc" {
		t.Fatalf("expected watch key override, got %q", cfg.WatchKey)
	}
	if cfg.Instance != "world1" {
		t.Fatalf("expected instance override, got %q", cfg.Instance)
	}
}
