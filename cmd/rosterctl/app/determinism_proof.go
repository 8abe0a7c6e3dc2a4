package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/determinism"
	"github.com/nimbusline/rosterctl/pkg/pipeline"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

type determinismProofFlags struct {
	forecastPath     string
	solverConfigPath string
	runs             int
}

// NewCmdDeterminismProof runs the full pipeline N times over the same
// input/config/seed and checks every run produced the same output_hash
// (spec.md §4.10's self-test).
func NewCmdDeterminismProof() *cobra.Command {
	var f determinismProofFlags
	cmd := &cobra.Command{
		Use:   "determinism_proof",
		Short: "Run the pipeline N times and verify every output hash agrees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeterminismProof(f)
		},
	}
	cmd.Flags().StringVar(&f.forecastPath, "forecast", "", "path to the canonical forecast JSON document")
	cmd.Flags().StringVar(&f.solverConfigPath, "solver-config", "./solver_config.yaml", "path to the solver config YAML")
	cmd.Flags().IntVar(&f.runs, "runs", 5, "number of repeat solves to compare")
	cmd.MarkFlagRequired("forecast")
	return cmd
}

func runDeterminismProof(f determinismProofFlags) error {
	doc, sc, err := loadForecastAndConfig(f.forecastPath, f.solverConfigPath)
	if err != nil {
		return withExitCode(2, err)
	}

	report, err := determinism.SelfTest(context.Background(), f.runs, func(ctx context.Context, run int) (string, error) {
		result, err := pipeline.Solve(doc, sc)
		if err != nil {
			return "", err
		}
		return result.OutputHash, nil
	})

	fmt.Printf("runs: %d\n", report.Runs)
	for i, h := range report.OutputHashes {
		fmt.Printf("  run %d: %s\n", i+1, h)
	}

	if err != nil {
		if rerr, ok := err.(*rosterr.Error); ok && rerr.Kind == rosterr.DeterminismBroken {
			return withExitCode(1, err)
		}
		return withExitCode(2, err)
	}

	fmt.Println("all_equal: true")
	return nil
}
