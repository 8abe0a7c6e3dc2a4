package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/forecast"
	"github.com/nimbusline/rosterctl/pkg/pipeline"
	"github.com/nimbusline/rosterctl/pkg/proofpack"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

type exportProofPackFlags struct {
	forecastPath     string
	solverConfigPath string
	planVersionID    string
	tenantID         string
	siteID           string
	outPath          string
}

// NewCmdExportProofPack solves a forecast and writes a proof pack without
// touching a plan store, for ad hoc inspection of a solve.
func NewCmdExportProofPack() *cobra.Command {
	var f exportProofPackFlags
	cmd := &cobra.Command{
		Use:   "export_proof_pack",
		Short: "Solve a forecast and export its proof pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportProofPack(f)
		},
	}
	cmd.Flags().StringVar(&f.forecastPath, "forecast", "", "path to the canonical forecast JSON document")
	cmd.Flags().StringVar(&f.solverConfigPath, "solver-config", "./solver_config.yaml", "path to the solver config YAML")
	cmd.Flags().StringVar(&f.planVersionID, "plan-version-id", "", "plan version id to stamp into the pack's metadata")
	cmd.Flags().StringVar(&f.tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&f.siteID, "site", "", "site id")
	cmd.Flags().StringVar(&f.outPath, "out", "./proof_pack.zip", "path to write the proof pack to")
	cmd.MarkFlagRequired("forecast")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("site")
	return cmd
}

func runExportProofPack(f exportProofPackFlags) error {
	raw, err := os.ReadFile(f.forecastPath)
	if err != nil {
		return rosterr.Wrap(err, rosterr.ValidationError, "reading forecast file")
	}
	doc, err := forecast.Parse(raw)
	if err != nil {
		return withExitCode(1, err)
	}
	if err := doc.Validate(); err != nil {
		return withExitCode(1, err)
	}

	sc, scRaw, err := config.LoadSolverConfig(f.solverConfigPath)
	if err != nil {
		return withExitCode(2, err)
	}

	result, err := pipeline.Solve(doc, sc)
	if err != nil {
		return err
	}

	out, err := os.Create(f.outPath)
	if err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "creating proof pack file")
	}
	defer out.Close()

	build := proofpack.Build{
		PlanVersionID:    f.planVersionID,
		TenantID:         f.tenantID,
		SiteID:           f.siteID,
		ForecastSource:   f.forecastPath,
		InputHash:        result.InputHash,
		SolverConfigHash: result.SolverConfigHash,
		Seed:             sc.Seed,
		SolverConfig:     sc,
		SolverConfigRaw:  scRaw,
		Assignments:      result.Assignments,
		AuditResults:     result.AuditResults,
	}
	if err := proofpack.Write(out, build); err != nil {
		return err
	}

	fmt.Printf("master_status: %s\n", result.MasterStatus)
	fmt.Printf("output_hash: %s\n", result.OutputHash)
	fmt.Printf("proof_pack: %s\n", f.outPath)
	return nil
}
