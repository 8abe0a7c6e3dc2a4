package config

import "testing"

func TestDefaultSolverConfigMatchesDomainThresholds(t *testing.T) {
	sc := DefaultSolverConfig(42)
	th := sc.ToThresholds()

	if th.RestMinMin != 660 {
		t.Errorf("RestMinMin = %d, want 660", th.RestMinMin)
	}
	if th.FTEMaxMin != 3300 {
		t.Errorf("FTEMaxMin = %d, want 3300", th.FTEMaxMin)
	}
	if th.PoolCap != 20000 {
		t.Errorf("PoolCap = %d, want 20000", th.PoolCap)
	}
	if sc.Seed != 42 {
		t.Errorf("Seed = %d, want 42", sc.Seed)
	}
}

func TestTenantPolicyAppliesOnlyNonZeroOverrides(t *testing.T) {
	base := DefaultSolverConfig(1)
	policy := TenantPolicy{TenantID: "acme", HeavyRestMinMinutes: 720}

	overridden := policy.ApplyTo(base)
	if overridden.HeavyRestMinMin != 720 {
		t.Errorf("HeavyRestMinMin = %d, want 720", overridden.HeavyRestMinMin)
	}
	if overridden.FreezeHorizonMin != base.FreezeHorizonMin {
		t.Errorf("FreezeHorizonMin should be unchanged when policy leaves it zero")
	}
}

func TestNewWithDefaultsSetsOutputDir(t *testing.T) {
	cfg := NewWithDefaults()
	if cfg.OutputDir == "" {
		t.Error("expected a non-empty default OutputDir")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}
