package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nimbusline/rosterctl/pkg/audit"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/hashutil"
	"github.com/nimbusline/rosterctl/pkg/pipeline"
	"github.com/nimbusline/rosterctl/pkg/planstore"
	"github.com/nimbusline/rosterctl/pkg/proofpack"
	"github.com/nimbusline/rosterctl/pkg/repair"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

type repairFlags struct {
	forecastPath     string
	solverConfigPath string
	absentDrivers    string
	nowMinuteOfEpoch int
	tenantID         string
	siteID           string
	idempotencyKey   string
}

func addRepairFlags(cmd *cobra.Command, f *repairFlags) {
	cmd.Flags().StringVar(&f.forecastPath, "forecast", "", "path to the canonical forecast JSON document")
	cmd.Flags().StringVar(&f.solverConfigPath, "solver-config", "./solver_config.yaml", "path to the solver config YAML")
	cmd.Flags().StringVar(&f.absentDrivers, "absent", "", "comma-separated driver ids to mark absent")
	cmd.Flags().IntVar(&f.nowMinuteOfEpoch, "now-min", 0, "current time, in the forecast's minute clock")
	cmd.Flags().StringVar(&f.tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&f.siteID, "site", "", "site id")
	cmd.Flags().StringVar(&f.idempotencyKey, "idempotency-key", "", "client-supplied key; repeating a commit with the same key and payload is a no-op")
	cmd.MarkFlagRequired("forecast")
	cmd.MarkFlagRequired("absent")
}

// NewCmdRepair groups the repair orchestrator's operator-facing
// subcommands: proposing candidate repairs for an absence, and committing
// the top-ranked one, supplementing the contractual CLI surface of
// spec.md §6.2.
func NewCmdRepair() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Propose or apply a day-of repair against a solved plan",
	}
	cmd.AddCommand(newCmdRepairPropose())
	cmd.AddCommand(newCmdRepairCommit())
	return cmd
}

func newCmdRepairPropose() *cobra.Command {
	var f repairFlags
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "List the ranked repair proposals for a set of absent drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, proposals, err := solveAndPropose(f)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tIMPACTED_TOURS\tCOVERAGE_PCT\tHARD_VIOLATIONS\tCHURN\tCOST")
			for _, p := range proposals {
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%d\t%d\t%.2f\n",
					p.Family, p.ImpactedToursCount, p.CoveragePercent, p.HardViolations, p.ChurnToursReassigned, p.CostScore)
			}
			w.Flush()
			return nil
		},
	}
	addRepairFlags(cmd, &f)
	return cmd
}

func newCmdRepairCommit() *cobra.Command {
	var f repairFlags
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Run the full audit, allocate a repair plan version, and publish the top-ranked proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepairCommit(f)
		},
	}
	addRepairFlags(cmd, &f)
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("site")
	return cmd
}

func solveAndPropose(f repairFlags) (forecastBaseline, domain.PlanSnapshot, []repair.Proposal, error) {
	doc, sc, err := loadForecastAndConfig(f.forecastPath, f.solverConfigPath)
	if err != nil {
		return forecastBaseline{}, domain.PlanSnapshot{}, nil, err
	}
	baseline, err := pipeline.Solve(doc, sc)
	if err != nil {
		return forecastBaseline{}, domain.PlanSnapshot{}, nil, err
	}

	absent := strings.Split(f.absentDrivers, ",")
	for i := range absent {
		absent[i] = strings.TrimSpace(absent[i])
	}

	th := sc.ToThresholds()
	snap := domain.PlanSnapshot{AssignmentsSnapshot: baseline.Assignments}
	in := repair.Input{
		BaselineSnapshot: snap,
		AbsentDriverIDs:  absent,
		NowMinuteOfEpoch: f.nowMinuteOfEpoch,
		FreezeHorizonMin: th.FreezeHorizonMin,
		Th:               th,
		DriverSchedules:  driverSchedules(baseline.Assignments),
		ForecastTours:    baseline.Tours,
	}

	proposals, err := repair.GenerateProposals(context.Background(), in, repair.ValidationFull)
	fb := forecastBaseline{
		forecastVersionID: doc.TenantCode + "/" + doc.SiteCode + "/" + doc.WeekAnchorDate,
		seed:              sc.Seed,
		th:                th,
		tours:             baseline.Tours,
		absentDriverIDs:   absent,
		solverConfigHash:  baseline.SolverConfigHash,
	}
	if err != nil {
		return fb, snap, nil, err
	}
	return fb, snap, proposals, nil
}

// forecastBaseline carries the context solveAndPropose gathers along the
// way that runRepairCommit needs for plan-version bookkeeping but
// newCmdRepairPropose doesn't.
type forecastBaseline struct {
	forecastVersionID string
	seed              uint32
	th                domain.Thresholds
	tours             []domain.Tour
	absentDriverIDs   []string
	solverConfigHash  string
}

// runRepairCommit realizes spec.md §4.8's commit semantics: publish the
// parent plan's snapshot if it isn't already on record, allocate a child
// plan version flagged IsRepair with ParentPlanID set, run the full audit
// against the proposal's resulting schedule, and publish it — all gated by
// an idempotency key so repeating the same commit is a no-op.
func runRepairCommit(f repairFlags) error {
	fb, baselineSnap, proposals, err := solveAndPropose(f)
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		return rosterr.New(rosterr.InfeasibleInstance, "no repair proposal satisfies the absence constraints")
	}
	best := proposals[0]

	resulting := domain.SortAssignments(applyRepairProposal(baselineSnap.AssignmentsSnapshot, best))
	results := audit.Run(fb.tours, resulting, fb.th)
	if !audit.CanRelease(results) {
		return rosterr.New(rosterr.StateMachineViolation, "repaired schedule failed a mandatory audit check, refusing to commit")
	}

	parentOutputHash, err := proofpack.OutputHash(baselineSnap.AssignmentsSnapshot, fb.solverConfigHash)
	if err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "hashing parent plan output")
	}
	childOutputHash, err := proofpack.OutputHash(resulting, fb.solverConfigHash)
	if err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "hashing repaired plan output")
	}

	payloadHash, _, err := hashutil.CanonicalJSONHash(best.Reassignments)
	if err != nil {
		return rosterr.Wrap(err, rosterr.IntegrityFault, "hashing commit payload")
	}

	store := planstore.New()
	if f.idempotencyKey != "" {
		existing, isReplay, err := store.CheckIdempotency(f.idempotencyKey, payloadHash)
		if err != nil {
			return err
		}
		if isReplay {
			fmt.Printf("idempotent replay: plan_version_id=%s\n", existing)
			return nil
		}
	}

	parent := store.CreateDraft(fb.forecastVersionID, f.tenantID, f.siteID, fb.seed)
	if err := store.SetHashes(parent.PlanVersionID, "", fb.solverConfigHash, parentOutputHash); err != nil {
		return err
	}
	if err := commitPlanThroughLock(store, parent.PlanVersionID); err != nil {
		return err
	}
	if _, err := store.Publish(parent.PlanVersionID, baselineSnap.AssignmentsSnapshot, parentOutputHash); err != nil {
		return err
	}

	child := store.CreateRepairDraft(parent.PlanVersionID, fb.absentDriverIDs, fb.forecastVersionID, f.tenantID, f.siteID, fb.seed)
	if err := store.SetHashes(child.PlanVersionID, "", fb.solverConfigHash, childOutputHash); err != nil {
		return err
	}
	if err := commitPlanThroughLock(store, child.PlanVersionID); err != nil {
		return err
	}
	snap, err := store.Publish(child.PlanVersionID, resulting, childOutputHash)
	if err != nil {
		return err
	}

	if f.idempotencyKey != "" {
		store.RecordIdempotency(f.idempotencyKey, payloadHash, child.PlanVersionID)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOUR\tNEW_DRIVER")
	for tourID, driverID := range best.Reassignments {
		fmt.Fprintf(w, "%s\t%s\n", tourID, driverID)
	}
	w.Flush()

	fmt.Printf("\nfamily: %s\n", best.Family)
	fmt.Printf("coverage_percent: %.1f\n", best.CoveragePercent)
	fmt.Printf("churn_tours_reassigned: %d\n", best.ChurnToursReassigned)
	fmt.Printf("parent_plan_id: %s\n", parent.PlanVersionID)
	fmt.Printf("plan_version_id: %s\n", child.PlanVersionID)
	fmt.Printf("snapshot_id: %s (version %d)\n", snap.SnapshotID, snap.VersionNumber)
	return nil
}

// commitPlanThroughLock walks a freshly-drafted plan version through
// SOLVING -> SOLVED -> LOCKED, the mandatory prefix of spec.md §4.6's
// lifecycle before a snapshot can be published.
func commitPlanThroughLock(store *planstore.Store, planVersionID string) error {
	if err := store.Transition(planVersionID, domain.StatusSolving); err != nil {
		return err
	}
	if err := store.Transition(planVersionID, domain.StatusSolved); err != nil {
		return err
	}
	if err := store.Transition(planVersionID, domain.StatusLocked); err != nil {
		return err
	}
	return nil
}

// applyRepairProposal mirrors pkg/drill's applyProposal: baseline
// assignments keep their driver unless the proposal reassigns their tour.
func applyRepairProposal(baseline []domain.Assignment, p repair.Proposal) []domain.Assignment {
	out := make([]domain.Assignment, len(baseline))
	for i, a := range baseline {
		if newDriver, ok := p.Reassignments[a.TourInstanceID]; ok {
			a.DriverID = newDriver
		}
		out[i] = a
	}
	return out
}
