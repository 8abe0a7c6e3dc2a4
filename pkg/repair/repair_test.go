package repair

import (
	"context"
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func baseInput() Input {
	th := domain.DefaultThresholds()
	baseline := domain.PlanSnapshot{
		AssignmentsSnapshot: []domain.Assignment{
			{DriverID: "D1", TourInstanceID: "t1", Day: 0, StartMin: 480, EndMin: 600},
			{DriverID: "D1", TourInstanceID: "t2", Day: 1, StartMin: 480, EndMin: 600},
			{DriverID: "D2", TourInstanceID: "t3", Day: 0, StartMin: 900, EndMin: 1000},
		},
	}
	return Input{
		BaselineSnapshot: baseline,
		AbsentDriverIDs:  []string{"D1"},
		NowMinuteOfEpoch: 0,
		FreezeHorizonMin: th.FreezeHorizonMin,
		Th:               th,
		DriverSchedules: map[string][]domain.Assignment{
			"D2": {{DriverID: "D2", TourInstanceID: "t3", Day: 0, StartMin: 500, EndMin: 560}},
			"D3": {},
		},
		ForecastTours: []domain.Tour{
			{ID: "t1", Day: 0, StartMin: 480, EndMin: 600},
			{ID: "t2", Day: 1, StartMin: 480, EndMin: 600},
			{ID: "t3", Day: 0, StartMin: 900, EndMin: 1000},
		},
	}
}

func TestImpactedToursMatchesAbsentDriver(t *testing.T) {
	in := baseInput()
	impacted := ImpactedTours(in)
	if len(impacted) != 2 {
		t.Fatalf("expected 2 impacted tours for D1, got %d", len(impacted))
	}
}

func TestGenerateProposalsRejectsFrozenTour(t *testing.T) {
	in := baseInput()
	// Tour t1 starts at minute 480, well inside a 720-minute freeze horizon
	// measured from minute 0.
	_, err := GenerateProposals(context.Background(), in, ValidationNone)
	if err == nil {
		t.Fatal("expected a freeze violation when impacted tours are inside the freeze horizon")
	}
}

func TestGenerateProposalsSucceedsOutsideFreezeHorizon(t *testing.T) {
	in := baseInput()
	in.NowMinuteOfEpoch = -100000 // push every tour well outside the freeze horizon
	proposals, err := GenerateProposals(context.Background(), in, ValidationNone)
	if err != nil {
		t.Fatalf("GenerateProposals: %v", err)
	}
	if len(proposals) == 0 {
		t.Fatal("expected at least one proposal")
	}
	for _, p := range proposals {
		if p.ImpactedToursCount != 2 {
			t.Fatalf("proposal %s: ImpactedToursCount = %d, want 2", p.Family, p.ImpactedToursCount)
		}
	}
}

func TestFindCandidatesExcludesOverlappingDriver(t *testing.T) {
	in := baseInput()
	in.NowMinuteOfEpoch = -100000
	tour := in.BaselineSnapshot.AssignmentsSnapshot[0] // t1, D1, day 0, 480-600
	cands := FindCandidates(tour, in)

	for _, c := range cands {
		if c.DriverID == "D2" {
			t.Fatal("D2 has an overlapping tour on day 0 and must not be a candidate")
		}
	}
	found := false
	for _, c := range cands {
		if c.DriverID == "D3" {
			found = true
		}
	}
	if !found {
		t.Fatal("D3 has no conflicts and should be an eligible candidate")
	}
}

func TestProposalsAreRankedByChurnThenCost(t *testing.T) {
	in := baseInput()
	in.NowMinuteOfEpoch = -100000
	proposals, err := GenerateProposals(context.Background(), in, ValidationNone)
	if err != nil {
		t.Fatalf("GenerateProposals: %v", err)
	}
	for i := 1; i < len(proposals); i++ {
		prev, cur := proposals[i-1], proposals[i]
		if prev.HardViolations > cur.HardViolations {
			t.Fatalf("proposals not sorted by HardViolations: %+v before %+v", prev, cur)
		}
		if prev.HardViolations == cur.HardViolations && prev.ChurnToursReassigned > cur.ChurnToursReassigned {
			t.Fatalf("proposals not sorted by churn: %+v before %+v", prev, cur)
		}
		if prev.HardViolations == cur.HardViolations && prev.ChurnToursReassigned == cur.ChurnToursReassigned && prev.CostScore > cur.CostScore {
			t.Fatalf("proposals not sorted by cost: %+v before %+v", prev, cur)
		}
	}
}

func TestValidationFullPopulatesHardViolations(t *testing.T) {
	in := baseInput()
	in.NowMinuteOfEpoch = -100000
	proposals, err := GenerateProposals(context.Background(), in, ValidationFull)
	if err != nil {
		t.Fatalf("GenerateProposals: %v", err)
	}
	if len(proposals) == 0 {
		t.Fatal("expected at least one proposal")
	}
	for _, p := range proposals {
		if !p.ViolationsValidated {
			t.Fatalf("proposal %s: ViolationsValidated = false, want true under ValidationFull", p.Family)
		}
	}
}

func TestValidationNoneLeavesViolationsUnvalidated(t *testing.T) {
	in := baseInput()
	in.NowMinuteOfEpoch = -100000
	proposals, err := GenerateProposals(context.Background(), in, ValidationNone)
	if err != nil {
		t.Fatalf("GenerateProposals: %v", err)
	}
	for _, p := range proposals {
		if p.ViolationsValidated {
			t.Fatalf("proposal %s: ViolationsValidated = true, want false under ValidationNone", p.Family)
		}
	}
}

func TestFindChainFreesDayCapBlockedDriver(t *testing.T) {
	th := domain.DefaultThresholds()
	th.MaxToursPerDay = 1

	// D2 already holds a same-day tour (t_other) so the day cap blocks it
	// from also taking the impacted tour t1, even though nothing overlaps
	// and rest is fine. D3 is free to pick up t_other instead, so a chain
	// should free D2 for t1.
	impacted := domain.Assignment{DriverID: "D1", TourInstanceID: "t1", Day: 0, StartMin: 480, EndMin: 600}
	other := domain.Assignment{DriverID: "D2", TourInstanceID: "t_other", Day: 0, StartMin: 700, EndMin: 800}

	in := Input{
		AbsentDriverIDs: []string{"D1"},
		Th:              th,
		DriverSchedules: map[string][]domain.Assignment{
			"D2": {other},
			"D3": {},
		},
	}

	driverID, victim, substitute, ok := findChain(impacted, in, map[string]string{})
	if !ok {
		t.Fatal("expected findChain to find a depth-2 chain")
	}
	if driverID != "D2" {
		t.Fatalf("driverID = %s, want D2", driverID)
	}
	if victim.TourInstanceID != "t_other" {
		t.Fatalf("victim = %s, want t_other", victim.TourInstanceID)
	}
	if substitute != "D3" {
		t.Fatalf("substitute = %s, want D3", substitute)
	}
}
