// Package config holds the three configuration surfaces rosterctl reads:
// the CLI/viper-layered runtime Config, the solver's own SolverConfig (read
// directly from its own bytes so it can be hashed verbatim), and the legacy
// per-tenant policy sidecar.
package config

import (
	"github.com/nimbusline/rosterctl/pkg/buildinfo"
	"github.com/nimbusline/rosterctl/pkg/domain"
)

// Config is the runtime configuration for a rosterctl invocation: where
// things live on disk and how noisy to be. It is populated from flags,
// environment, and an optional config file via viper (see loader.go),
// mirroring the precedence order of the teacher's worker config loader.
type Config struct {
	// NOTE: viper decodes into "mapstructure" tags, not "json" — see
	// LoadConfig for the full precedence chain.
	TenantID         string `json:"TenantID" mapstructure:"TenantID"`
	SiteID           string `json:"SiteID" mapstructure:"SiteID"`
	OutputDir        string `json:"OutputDir" mapstructure:"OutputDir"`
	ForecastPath     string `json:"ForecastPath" mapstructure:"ForecastPath"`
	SolverConfigPath string `json:"SolverConfigPath" mapstructure:"SolverConfigPath"`
	TenantPolicyPath string `json:"TenantPolicyPath" mapstructure:"TenantPolicyPath"`
	LogLevel         string `json:"LogLevel" mapstructure:"LogLevel"`
	LogFile          string `json:"LogFile" mapstructure:"LogFile"`
	Debug            bool   `json:"Debug" mapstructure:"Debug"`
}

// NewWithDefaults returns a Config with every field set to its documented
// default, the same shape as a freshly unmarshaled-but-empty viper config.
func NewWithDefaults() *Config {
	return &Config{
		OutputDir:        "./rosterctl-out",
		SolverConfigPath: "./solver_config.yaml",
		LogLevel:         "info",
	}
}

// SolverConfig is the canonical, hash-sensitive knob set for one solve
// (spec.md §4.9: solver_config_hash is computed over these exact bytes).
// It is decoded with yaml.v3 directly from the file rather than through
// viper, so the digest matches what an operator can independently recompute.
type SolverConfig struct {
	SchemaVersion string `yaml:"schema_version"`
	Seed          uint32 `yaml:"seed"`

	GapRegularMin     int `yaml:"gap_regular_min"`
	GapRegularMax     int `yaml:"gap_regular_max"`
	GapSplitMin       int `yaml:"gap_split_min"`
	GapSplitMax       int `yaml:"gap_split_max"`
	SpanRegularMaxMin int `yaml:"span_regular_max_min"`
	SpanSplitMaxMin   int `yaml:"span_split_max_min"`
	RestMinMin        int `yaml:"rest_min_min"`
	HeavyRestMinMin   int `yaml:"heavy_rest_min_min"`

	MaxToursPerDay            int `yaml:"max_tours_per_day"`
	HeavyDayTourCount         int `yaml:"heavy_day_tour_count"`
	NextDayAfterHeavyMaxTours int `yaml:"next_day_after_heavy_max_tours"`

	FTEMaxMin           int `yaml:"fte_max_min"`
	PTMaxMin            int `yaml:"pt_max_min"`
	FTESoftTargetMinMin int `yaml:"fte_soft_target_min_min"`
	FTESoftTargetMaxMin int `yaml:"fte_soft_target_max_min"`
	PTMinHoursSoftMin   int `yaml:"pt_min_hours_soft_min"`

	FreezeHorizonMin         int `yaml:"freeze_horizon_min"`
	NearViolationRestBandMin int `yaml:"near_violation_rest_band_min"`
	NearViolationSpanBandMin int `yaml:"near_violation_span_band_min"`

	PoolCap        int `yaml:"pool_cap"`
	FTEOverflowCap int `yaml:"fte_overflow_cap"`

	WeightSingleton    float64 `yaml:"weight_singleton"`
	WeightUnderfill    float64 `yaml:"weight_underfill"`
	WeightPTDays       float64 `yaml:"weight_pt_days"`
	WeightPTUnderfloor float64 `yaml:"weight_pt_underfloor"`

	PartitionTimeLimitSec int `yaml:"partition_time_limit_sec"`
	ColumnGenTimeLimitSec int `yaml:"columngen_time_limit_sec"`
	MasterTimeLimitSec    int `yaml:"master_time_limit_sec"`
	GreedyTimeLimitSec    int `yaml:"greedy_time_limit_sec"`
}

// DefaultSolverConfig returns the solver config matching domain.DefaultThresholds,
// at the newest schema version this build understands.
func DefaultSolverConfig(seed uint32) SolverConfig {
	th := domain.DefaultThresholds()
	return SolverConfig{
		SchemaVersion: buildinfo.MaxSolverConfigSchema,
		Seed:          seed,

		GapRegularMin:     th.GapRegularMin,
		GapRegularMax:     th.GapRegularMax,
		GapSplitMin:       th.GapSplitMin,
		GapSplitMax:       th.GapSplitMax,
		SpanRegularMaxMin: th.SpanRegularMaxMin,
		SpanSplitMaxMin:   th.SpanSplitMaxMin,
		RestMinMin:        th.RestMinMin,
		HeavyRestMinMin:   th.HeavyRestMinMin,

		MaxToursPerDay:            th.MaxToursPerDay,
		HeavyDayTourCount:         th.HeavyDayTourCount,
		NextDayAfterHeavyMaxTours: th.NextDayAfterHeavyMaxTours,

		FTEMaxMin:           th.FTEMaxMin,
		PTMaxMin:            th.PTMaxMin,
		FTESoftTargetMinMin: th.FTESoftTargetMinMin,
		FTESoftTargetMaxMin: th.FTESoftTargetMaxMin,
		PTMinHoursSoftMin:   th.PTMinHoursSoftMin,

		FreezeHorizonMin:         th.FreezeHorizonMin,
		NearViolationRestBandMin: th.NearViolationRestBandMin,
		NearViolationSpanBandMin: th.NearViolationSpanBandMin,

		PoolCap:        th.PoolCap,
		FTEOverflowCap: th.FTEOverflowCap,

		WeightSingleton:    th.WeightSingleton,
		WeightUnderfill:    th.WeightUnderfill,
		WeightPTDays:       th.WeightPTDays,
		WeightPTUnderfloor: th.WeightPTUnderfloor,

		PartitionTimeLimitSec: 30,
		ColumnGenTimeLimitSec: 120,
		MasterTimeLimitSec:    180,
		GreedyTimeLimitSec:    60,
	}
}

// ToThresholds projects the hash-sensitive solver knobs onto domain.Thresholds.
// domain deliberately does not import config, to keep the dependency arrow
// pointing one way; this is the single conversion point.
func (c SolverConfig) ToThresholds() domain.Thresholds {
	return domain.Thresholds{
		GapRegularMin:             c.GapRegularMin,
		GapRegularMax:             c.GapRegularMax,
		GapSplitMin:               c.GapSplitMin,
		GapSplitMax:               c.GapSplitMax,
		SpanRegularMaxMin:         c.SpanRegularMaxMin,
		SpanSplitMaxMin:           c.SpanSplitMaxMin,
		RestMinMin:                c.RestMinMin,
		HeavyRestMinMin:           c.HeavyRestMinMin,
		MaxToursPerDay:            c.MaxToursPerDay,
		HeavyDayTourCount:         c.HeavyDayTourCount,
		NextDayAfterHeavyMaxTours: c.NextDayAfterHeavyMaxTours,
		FTEMaxMin:                 c.FTEMaxMin,
		PTMaxMin:                  c.PTMaxMin,
		FTESoftTargetMinMin:       c.FTESoftTargetMinMin,
		FTESoftTargetMaxMin:       c.FTESoftTargetMaxMin,
		PTMinHoursSoftMin:         c.PTMinHoursSoftMin,
		FreezeHorizonMin:          c.FreezeHorizonMin,
		NearViolationRestBandMin:  c.NearViolationRestBandMin,
		NearViolationSpanBandMin:  c.NearViolationSpanBandMin,
		PoolCap:                   c.PoolCap,
		FTEOverflowCap:            c.FTEOverflowCap,
		WeightSingleton:           c.WeightSingleton,
		WeightUnderfill:           c.WeightUnderfill,
		WeightPTDays:              c.WeightPTDays,
		WeightPTUnderfloor:        c.WeightPTUnderfloor,
	}
}

// TenantPolicy is a legacy per-tenant override sidecar, still emitted by
// older onboarding tooling in yaml.v2's subset of the YAML spec. Only a
// handful of fields are ever overridden in practice.
type TenantPolicy struct {
	TenantID            string `yaml:"tenant_id"`
	HeavyRestMinMinutes int    `yaml:"heavy_rest_min_minutes"`
	FreezeHorizonMin    int    `yaml:"freeze_horizon_min"`
}

// ApplyTo overlays any non-zero override from the policy onto a SolverConfig.
func (p TenantPolicy) ApplyTo(sc SolverConfig) SolverConfig {
	if p.HeavyRestMinMinutes > 0 {
		sc.HeavyRestMinMin = p.HeavyRestMinMinutes
	}
	if p.FreezeHorizonMin > 0 {
		sc.FreezeHorizonMin = p.FreezeHorizonMin
	}
	return sc
}
