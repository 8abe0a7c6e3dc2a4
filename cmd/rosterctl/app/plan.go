package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/audit"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/pipeline"
)

type planFlags struct {
	forecastPath     string
	solverConfigPath string
}

func addPlanFlags(cmd *cobra.Command, f *planFlags) {
	cmd.Flags().StringVar(&f.forecastPath, "forecast", "", "path to the canonical forecast JSON document")
	cmd.Flags().StringVar(&f.solverConfigPath, "solver-config", "./solver_config.yaml", "path to the solver config YAML")
	cmd.MarkFlagRequired("forecast")
}

// NewCmdPlan groups the inspection subcommands a plan's solve produces,
// supplementing the contractual CLI surface of spec.md §6.2 with operator
// visibility into a solve that isn't captured by a full proof pack export.
func NewCmdPlan() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect a solved plan",
	}
	cmd.AddCommand(newCmdPlanShow())
	cmd.AddCommand(newCmdPlanAudit())
	return cmd
}

func newCmdPlanShow() *cobra.Command {
	var f planFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Solve a forecast and print the resulting roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanShow(f)
		},
	}
	addPlanFlags(cmd, &f)
	return cmd
}

func runPlanShow(f planFlags) error {
	doc, sc, err := loadForecastAndConfig(f.forecastPath, f.solverConfigPath)
	if err != nil {
		return err
	}
	result, err := pipeline.Solve(doc, sc)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DRIVER\tDAY\tTOUR\tBLOCK\tSTART\tEND")
	for _, a := range result.Assignments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", a.DriverID, a.Day, a.TourInstanceID, a.BlockID, a.StartMin, a.EndMin)
	}
	w.Flush()

	fmt.Printf("\nmaster_status: %s\n", result.MasterStatus)
	fmt.Printf("drivers_used: %d\n", countDrivers(result.Assignments))
	fmt.Printf("output_hash: %s\n", result.OutputHash)
	return nil
}

func newCmdPlanAudit() *cobra.Command {
	var f planFlags
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Solve a forecast and print the seven canonical audit checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanAudit(f)
		},
	}
	addPlanFlags(cmd, &f)
	return cmd
}

func runPlanAudit(f planFlags) error {
	doc, sc, err := loadForecastAndConfig(f.forecastPath, f.solverConfigPath)
	if err != nil {
		return err
	}
	result, err := pipeline.Solve(doc, sc)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tVIOLATIONS")
	for _, r := range result.AuditResults {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.Check, r.Status, r.ViolationCount)
	}
	w.Flush()

	fmt.Printf("\ncan_release: %t\n", audit.CanRelease(result.AuditResults))
	return nil
}

func countDrivers(assignments []domain.Assignment) int {
	seen := make(map[string]bool)
	for _, a := range assignments {
		seen[a.DriverID] = true
	}
	return len(seen)
}
