package config

import (
	"os"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	yamlv2 "gopkg.in/yaml.v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/nimbusline/rosterctl/pkg/buildinfo"
	"github.com/nimbusline/rosterctl/pkg/hashutil"
)

// LoadConfig resolves the runtime Config from, in ascending precedence: a
// config file (if present), environment variables prefixed ROSTERCTL_, and
// whatever the caller already set on v (normally populated from flags by
// cobra before this is called). This mirrors the teacher's worker
// LoadConfig: file then env then explicit overrides win.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	cfg := NewWithDefaults()

	v.SetEnvPrefix("ROSTERCTL")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rosterctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rosterctl")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	return cfg, nil
}

// LoadSolverConfig reads and decodes a SolverConfig from path using yaml.v3,
// checks its schema_version against the range this build understands, and
// returns both the struct and the raw bytes the hash must be computed over.
func LoadSolverConfig(path string) (SolverConfig, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SolverConfig{}, nil, errors.Wrap(err, "reading solver config")
	}

	var sc SolverConfig
	if err := yamlv3.Unmarshal(raw, &sc); err != nil {
		return SolverConfig{}, nil, errors.Wrap(err, "parsing solver config")
	}

	if err := checkSchemaCompat(sc.SchemaVersion); err != nil {
		return SolverConfig{}, nil, err
	}

	return sc, raw, nil
}

func checkSchemaCompat(schema string) error {
	got, err := version.NewVersion(schema)
	if err != nil {
		return errors.Wrapf(err, "invalid schema_version %q", schema)
	}
	min, err := version.NewVersion(buildinfo.MinSolverConfigSchema)
	if err != nil {
		return errors.Wrap(err, "invalid build MinSolverConfigSchema")
	}
	max, err := version.NewVersion(buildinfo.MaxSolverConfigSchema)
	if err != nil {
		return errors.Wrap(err, "invalid build MaxSolverConfigSchema")
	}
	if got.LessThan(min) || got.GreaterThan(max) {
		return errors.Errorf("schema_version %s outside supported range [%s, %s]", schema, min, max)
	}
	return nil
}

// SolverConfigHash hashes the exact on-disk bytes of the solver config, per
// spec.md §4.9: the digest must match what an operator can recompute with
// sha256sum on the file they were handed.
func SolverConfigHash(raw []byte) string {
	return hashutil.SHA256Hex(string(raw))
}

// LoadTenantPolicy reads the legacy yaml.v2 sidecar. A missing file is not
// an error: tenants without an override simply keep solver-config defaults.
func LoadTenantPolicy(path string) (*TenantPolicy, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading tenant policy")
	}

	var tp TenantPolicy
	if err := yamlv2.Unmarshal(raw, &tp); err != nil {
		return nil, errors.Wrap(err, "parsing tenant policy")
	}
	return &tp, nil
}
