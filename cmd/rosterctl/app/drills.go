package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/drill"
	"github.com/nimbusline/rosterctl/pkg/forecast"
	"github.com/nimbusline/rosterctl/pkg/pipeline"
	"github.com/nimbusline/rosterctl/pkg/repair"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

type sickCallDrillFlags struct {
	forecastPath     string
	solverConfigPath string
	absentDrivers    string
	nowMinuteOfEpoch int
	churnWarnCapPct  float64
	outPath          string
}

// NewCmdRunSickCallDrill solves a baseline plan, marks the given drivers
// absent, and runs the repair orchestrator against it, reporting Gate H1's
// PASS/WARN/FAIL verdict (spec.md §4.10).
func NewCmdRunSickCallDrill() *cobra.Command {
	var f sickCallDrillFlags
	cmd := &cobra.Command{
		Use:   "run_sick_call_drill",
		Short: "Simulate driver absences and verify the repair orchestrator recovers coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSickCallDrillCmd(f)
		},
	}
	cmd.Flags().StringVar(&f.forecastPath, "forecast", "", "path to the canonical forecast JSON document")
	cmd.Flags().StringVar(&f.solverConfigPath, "solver-config", "./solver_config.yaml", "path to the solver config YAML")
	cmd.Flags().StringVar(&f.absentDrivers, "absent", "", "comma-separated driver ids to mark absent")
	cmd.Flags().IntVar(&f.nowMinuteOfEpoch, "now-min", 0, "current time, in the forecast's minute clock")
	cmd.Flags().Float64Var(&f.churnWarnCapPct, "churn-warn-cap-pct", 10.0, "churn rate above which the drill warns instead of passing")
	cmd.Flags().StringVar(&f.outPath, "out", "./sick_call_drill_evidence.json", "path to write the drill evidence to")
	cmd.MarkFlagRequired("forecast")
	cmd.MarkFlagRequired("absent")
	return cmd
}

func runSickCallDrillCmd(f sickCallDrillFlags) error {
	doc, sc, err := loadForecastAndConfig(f.forecastPath, f.solverConfigPath)
	if err != nil {
		return err
	}

	baseline, err := pipeline.Solve(doc, sc)
	if err != nil {
		return err
	}

	absent := strings.Split(f.absentDrivers, ",")
	for i := range absent {
		absent[i] = strings.TrimSpace(absent[i])
	}

	th := sc.ToThresholds()
	snap := domain.PlanSnapshot{AssignmentsSnapshot: baseline.Assignments}
	in := drill.SickCallInput{
		BaselinePlanID:  "baseline",
		NewPlanID:       "repair-1",
		ForecastTours:   baseline.Tours,
		ChurnRateCapPct: f.churnWarnCapPct,
		RepairInput: repair.Input{
			BaselineSnapshot: snap,
			AbsentDriverIDs:  absent,
			NowMinuteOfEpoch: f.nowMinuteOfEpoch,
			FreezeHorizonMin: th.FreezeHorizonMin,
			Th:               th,
			DriverSchedules:  driverSchedules(baseline.Assignments),
		},
	}

	evidence, err := drill.RunSickCallDrill(context.Background(), in)
	if err != nil {
		return rosterr.Wrap(err, rosterr.InfeasibleInstance, "running sick-call drill")
	}

	if err := writeJSONFile(f.outPath, evidence); err != nil {
		return err
	}

	fmt.Printf("verdict: %s\n", evidence.Verdict)
	fmt.Printf("coverage_percent: %.2f\n", evidence.CoveragePct)
	fmt.Printf("churn_rate: %.2f\n", evidence.ChurnRate)
	fmt.Printf("evidence: %s\n", f.outPath)

	switch evidence.Verdict {
	case "PASS":
		return nil
	case "WARN":
		return withExitCode(1, rosterr.New(rosterr.ValidationError, "sick-call drill warned: churn above cap"))
	default:
		return withExitCode(2, rosterr.New(rosterr.ValidationError, "sick-call drill failed"))
	}
}

type freezeWindowDrillFlags struct {
	horizonMin int
	outPath    string
}

// NewCmdRunFreezeWindowDrill enumerates the at/above/below freeze-horizon
// boundary cases and checks every one is blocked or allowed correctly
// (Gate H2, spec.md §4.10).
func NewCmdRunFreezeWindowDrill() *cobra.Command {
	var f freezeWindowDrillFlags
	cmd := &cobra.Command{
		Use:   "run_freeze_window_drill",
		Short: "Verify freeze-horizon boundary cases are blocked or allowed correctly",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreezeWindowDrillCmd(f)
		},
	}
	cmd.Flags().IntVar(&f.horizonMin, "horizon-min", 720,"freeze horizon in minutes")
	cmd.Flags().StringVar(&f.outPath, "out", "./freeze_window_drill_evidence.json", "path to write the drill evidence to")
	return cmd
}

func runFreezeWindowDrillCmd(f freezeWindowDrillFlags) error {
	cases := drill.StandardFreezeCases(f.horizonMin)
	// The reference harness attempts every mutation through the same
	// IsFrozen gate the orchestrator itself enforces, so this exercises the
	// gate rather than a second, possibly-diverging, implementation of it.
	evidence := drill.RunFreezeWindowDrill(cases, func(c drill.FreezeCase) bool {
		return repair.IsFrozen(c.StartMin, c.NowMinuteOfEpoch, c.FreezeHorizonMin)
	})

	if err := writeJSONFile(f.outPath, evidence); err != nil {
		return err
	}

	fmt.Printf("verdict: %s\n", evidence.Verdict)
	for _, c := range evidence.Cases {
		fmt.Printf("  %-14s frozen=%t blocked=%t correct=%t\n", c.Label, c.ActuallyFrozen, c.Blocked, c.Correct)
	}
	fmt.Printf("evidence: %s\n", f.outPath)

	if evidence.Verdict != "PASS" {
		return withExitCode(2, rosterr.New(rosterr.ValidationError, "freeze-window drill failed"))
	}
	return nil
}

func driverSchedules(assignments []domain.Assignment) map[string][]domain.Assignment {
	out := make(map[string][]domain.Assignment)
	for _, a := range assignments {
		out[a.DriverID] = append(out[a.DriverID], a)
	}
	return out
}

func loadForecastAndConfig(forecastPath, solverConfigPath string) (forecast.Document, config.SolverConfig, error) {
	raw, err := os.ReadFile(forecastPath)
	if err != nil {
		return forecast.Document{}, config.SolverConfig{}, rosterr.Wrap(err, rosterr.ValidationError, "reading forecast file")
	}
	doc, err := forecast.Parse(raw)
	if err != nil {
		return forecast.Document{}, config.SolverConfig{}, err
	}
	if err := doc.Validate(); err != nil {
		return forecast.Document{}, config.SolverConfig{}, err
	}
	sc, _, err := config.LoadSolverConfig(solverConfigPath)
	if err != nil {
		return forecast.Document{}, config.SolverConfig{}, err
	}
	return doc, sc, nil
}

func writeJSONFile(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "marshaling evidence")
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "writing evidence file")
	}
	return nil
}
