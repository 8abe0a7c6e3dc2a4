package master

import (
	"testing"
	"time"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func TestDeadlineHitReflectsWatchdogFlag(t *testing.T) {
	e := &engine{useDeadline: true}
	if e.deadlineHit() {
		t.Fatal("deadlineHit should be false before the watchdog fires")
	}
	e.timedOut.Store(true)
	if !e.deadlineHit() {
		t.Fatal("deadlineHit should be true once the watchdog flips timedOut")
	}
}

func TestDeadlineHitAlwaysFalseWithoutATimeLimit(t *testing.T) {
	e := &engine{}
	e.timedOut.Store(true) // even if something set this, useDeadline=false should win
	if e.deadlineHit() {
		t.Fatal("deadlineHit should stay false when Solve was never given a TimeLimit")
	}
}

func col(id string, blocks ...string) domain.RosterColumn {
	return domain.RosterColumn{
		RosterID:   id,
		BlockIDs:   blocks,
		IsValid:    true,
		RosterType: domain.FTE,
		TotalMin:   domain.DefaultThresholds().FTESoftTargetMinMin,
	}
}

func TestSolveFindsMinimalCover(t *testing.T) {
	th := domain.DefaultThresholds()
	pool := []domain.RosterColumn{
		col("R000001", "B1-t1"),
		col("R000002", "B1-t2"),
		col("R000003", "B1-t1", "B1-t2"), // a single column covering both
	}

	res := Solve(pool, []string{"B1-t1", "B1-t2"}, th, Options{TimeLimit: time.Second})
	if res.Status != StatusOptimal {
		t.Fatalf("status = %s, want OPTIMAL", res.Status)
	}
	if res.Headcount != 1 {
		t.Fatalf("headcount = %d, want 1 (the combined column should win Stage 1)", res.Headcount)
	}
}

func TestSolveReturnsInfeasibleWithZeroSupport(t *testing.T) {
	th := domain.DefaultThresholds()
	pool := []domain.RosterColumn{col("R000001", "B1-t1")}

	res := Solve(pool, []string{"B1-t1", "B1-t2"}, th, Options{TimeLimit: time.Second})
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %s, want INFEASIBLE", res.Status)
	}
	found := false
	for _, id := range res.ZeroSupportTargetIDs {
		if id == "B1-t2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected B1-t2 in zero-support targets, got %v", res.ZeroSupportTargetIDs)
	}
}

func TestSolveDiagnosesConflictDrivenInfeasibility(t *testing.T) {
	th := domain.DefaultThresholds()
	// Every block has at least one covering column (no zero-support block),
	// but B1's only column and B2's only column both also cover B3, so no
	// pair of columns can jointly cover all three without double-covering
	// B3.
	pool := []domain.RosterColumn{
		col("R000001", "B1-t1", "B3-t3"),
		col("R000002", "B2-t2", "B3-t3"),
	}

	res := Solve(pool, []string{"B1-t1", "B2-t2", "B3-t3"}, th, Options{TimeLimit: time.Second})
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %s, want INFEASIBLE", res.Status)
	}
	if len(res.ZeroSupportTargetIDs) != 0 {
		t.Fatalf("expected no zero-support targets, got %v", res.ZeroSupportTargetIDs)
	}
	found := false
	for _, id := range res.ConflictTargetIDs {
		if id == "B3-t3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected B3-t3 flagged as conflict-driven, got %v", res.ConflictTargetIDs)
	}
}

func TestSolvePrefersCombinedColumnOverSingletons(t *testing.T) {
	th := domain.DefaultThresholds()
	combined := col("R000001", "B1-t1", "B1-t2")
	singleA := col("R000002", "B1-t1")
	singleB := col("R000003", "B1-t2")

	res := Solve([]domain.RosterColumn{combined, singleA, singleB}, []string{"B1-t1", "B1-t2"}, th, Options{TimeLimit: time.Second})
	if res.Headcount != 1 {
		t.Fatalf("expected the 1-column cover to win on Stage 1, got headcount %d", res.Headcount)
	}
	if len(res.Selected) != 1 || res.Selected[0].RosterID != "R000001" {
		t.Fatalf("expected R000001 selected, got %v", res.Selected)
	}
}
