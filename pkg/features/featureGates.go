// Package features gates the two optional alternative-solver code paths
// (see DESIGN.md, Design Notes in spec.md §9): both sit behind the same
// set-partitioning interface as the main master/greedy pipeline and are
// off by default.
package features

import "os"

const (
	All = "ROSTERCTL_ALL_FEATURES"

	// PTFragmentPass enables the second-stage local search that tightens
	// PT under-fill minutes after the main master run.
	PTFragmentPass = "ROSTERCTL_PT_FRAGMENT_PASS"

	// PortfolioPolicy enables selecting among {Master-only,
	// Master-then-PTFragment, Greedy-only} by instance size instead of
	// always running the full master pipeline.
	PortfolioPolicy = "ROSTERCTL_PORTFOLIO_POLICY"
)

var (
	featureDefaultMap = map[string]bool{
		PTFragmentPass:  false,
		PortfolioPolicy: false,
	}
)

// Enabled returns if the named feature is enabled based on the current env and defaults.
func Enabled(feature string) bool {
	return enabledCore(feature, os.Getenv(All), os.Getenv(feature), featureDefaultMap)
}

// Extracted logic here for testing so we can modify the env and defaults easily.
func enabledCore(featureName, allEnv, featureEnv string, defaultMap map[string]bool) bool {
	if featureEnv == "false" {
		return false
	}
	return defaultMap[featureName] || allEnv == "true" || featureEnv == "true"
}
