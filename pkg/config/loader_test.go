package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSolverConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solver_config.yaml")
	body := "schema_version: \"1.0.0\"\nseed: 7\nrest_min_min: 660\npool_cap: 20000\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, raw, err := LoadSolverConfig(path)
	if err != nil {
		t.Fatalf("LoadSolverConfig: %v", err)
	}
	if sc.Seed != 7 {
		t.Errorf("Seed = %d, want 7", sc.Seed)
	}
	if sc.RestMinMin != 660 {
		t.Errorf("RestMinMin = %d, want 660", sc.RestMinMin)
	}
	if string(raw) != body {
		t.Errorf("raw bytes did not round-trip verbatim")
	}
}

func TestLoadSolverConfigRejectsOutOfRangeSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solver_config.yaml")
	body := "schema_version: \"9.0.0\"\nseed: 1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := LoadSolverConfig(path); err == nil {
		t.Fatal("expected an error for an unsupported schema_version")
	}
}

func TestLoadTenantPolicyMissingFileIsNotAnError(t *testing.T) {
	tp, err := LoadTenantPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error for a missing tenant policy file, got %v", err)
	}
	if tp != nil {
		t.Fatalf("expected a nil policy for a missing file")
	}
}

func TestSolverConfigHashStableOverSameBytes(t *testing.T) {
	body := []byte("schema_version: \"1.0.0\"\nseed: 1\n")
	if SolverConfigHash(body) != SolverConfigHash(append([]byte(nil), body...)) {
		t.Fatal("expected identical hash for identical bytes")
	}
}
