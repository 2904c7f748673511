package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRequiresStorage(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without a storage path")
	}
}

func TestNewWiresMinimalAuthority(t *testing.T) {
	server, err := New(Options{StoragePath: filepath.Join(t.TempDir(), "stages.db")})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer server.close()

	if server.mcpServer == nil {
		t.Fatal("mcp server should be wired")
	}
	if server.publisher != nil {
		t.Fatal("propagation should be off without a redis address")
	}
}

func TestNewLoadsKnownStagesAndPolicies(t *testing.T) {
	dir := t.TempDir()

	knownPath := filepath.Join(dir, "known.json")
	if err := os.WriteFile(knownPath, []byte(`["intro", "boss1"]`), 0o644); err != nil {
		t.Fatalf("write known stages: %v", err)
	}

	policyDir := filepath.Join(dir, "policies")
	if err := os.Mkdir(policyDir, 0o755); err != nil {
		t.Fatalf("mkdir policies: %v", err)
	}
	script := `function allow_add(kind, key, stage) return true end`
	if err := os.WriteFile(filepath.Join(policyDir, "gate.lua"), []byte(script), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	server, err := New(Options{
		StoragePath:     filepath.Join(dir, "stages.db"),
		KnownStagesPath: knownPath,
		PolicyDir:       policyDir,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	server.close()
}

func TestNewRejectsMissingKnownStagesFile(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{
		StoragePath:     filepath.Join(dir, "stages.db"),
		KnownStagesPath: filepath.Join(dir, "missing.json"),
	})
	if err == nil {
		t.Fatal("expected error for missing known stages file")
	}
}

func TestNewRejectsBrokenPolicy(t *testing.T) {
	dir := t.TempDir()
	policyDir := filepath.Join(dir, "policies")
	if err := os.Mkdir(policyDir, 0o755); err != nil {
		t.Fatalf("mkdir policies: %v", err)
	}
	if err := os.WriteFile(filepath.Join(policyDir, "broken.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	_, err := New(Options{
		StoragePath: filepath.Join(dir, "stages.db"),
		PolicyDir:   policyDir,
	})
	if err == nil {
		t.Fatal("expected error for broken policy script")
	}
}
