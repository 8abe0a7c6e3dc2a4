package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/audit"
	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/forecast"
	"github.com/nimbusline/rosterctl/pkg/pipeline"
	"github.com/nimbusline/rosterctl/pkg/planstore"
	"github.com/nimbusline/rosterctl/pkg/proofpack"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

type goldenRunFlags struct {
	forecastPath     string
	solverConfigPath string
	tenantID         string
	siteID           string
	outPath          string
}

// NewCmdGenerateGoldenRun solves a forecast end to end, walks the plan
// through its full lifecycle, and writes the resulting proof pack.
func NewCmdGenerateGoldenRun() *cobra.Command {
	var f goldenRunFlags
	cmd := &cobra.Command{
		Use:   "generate_golden_run",
		Short: "Solve a forecast end to end and publish the resulting plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoldenRun(f)
		},
	}
	cmd.Flags().StringVar(&f.forecastPath, "forecast", "", "path to the canonical forecast JSON document")
	cmd.Flags().StringVar(&f.solverConfigPath, "solver-config", "./solver_config.yaml", "path to the solver config YAML")
	cmd.Flags().StringVar(&f.tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&f.siteID, "site", "", "site id")
	cmd.Flags().StringVar(&f.outPath, "out", "./proof_pack.zip", "path to write the proof pack to")
	cmd.MarkFlagRequired("forecast")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("site")
	return cmd
}

func runGoldenRun(f goldenRunFlags) error {
	raw, err := os.ReadFile(f.forecastPath)
	if err != nil {
		return rosterr.Wrap(err, rosterr.ValidationError, "reading forecast file")
	}
	doc, err := forecast.Parse(raw)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	sc, scRaw, err := config.LoadSolverConfig(f.solverConfigPath)
	if err != nil {
		return err
	}

	store := planstore.New()
	forecastVersionID := doc.TenantCode + "/" + doc.SiteCode + "/" + doc.WeekAnchorDate
	plan := store.CreateDraft(forecastVersionID, f.tenantID, f.siteID, sc.Seed)

	if err := store.Transition(plan.PlanVersionID, domain.StatusSolving); err != nil {
		return err
	}

	result, err := pipeline.Solve(doc, sc)
	if err != nil {
		return err
	}

	if err := store.SetHashes(plan.PlanVersionID, result.InputHash, result.SolverConfigHash, result.OutputHash); err != nil {
		return err
	}
	if err := store.Transition(plan.PlanVersionID, domain.StatusSolved); err != nil {
		return err
	}
	if !audit.CanRelease(result.AuditResults) {
		return rosterr.New(rosterr.StateMachineViolation, "solved plan failed a mandatory audit check, cannot lock")
	}
	if err := store.Transition(plan.PlanVersionID, domain.StatusLocked); err != nil {
		return err
	}

	out, err := os.Create(f.outPath)
	if err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "creating proof pack file")
	}
	defer out.Close()

	build := proofpack.Build{
		PlanVersionID:    plan.PlanVersionID,
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

	snap, err := store.Publish(plan.PlanVersionID, result.Assignments, result.OutputHash)
	if err != nil {
		return err
	}

	fmt.Printf("plan_version_id: %s\n", plan.PlanVersionID)
	fmt.Printf("snapshot_id: %s (version %d)\n", snap.SnapshotID, snap.VersionNumber)
	fmt.Printf("master_status: %s\n", result.MasterStatus)
	fmt.Printf("input_hash: %s\n", result.InputHash)
	fmt.Printf("solver_config_hash: %s\n", result.SolverConfigHash)
	fmt.Printf("output_hash: %s\n", result.OutputHash)
	fmt.Printf("proof_pack: %s\n", f.outPath)
	return nil
}
