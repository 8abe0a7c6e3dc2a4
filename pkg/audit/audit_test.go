package audit

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func TestCoveragePassesWhenEveryTourAssignedOnce(t *testing.T) {
	tours := []domain.Tour{{ID: "t1"}, {ID: "t2"}}
	assignments := []domain.Assignment{
		{TourInstanceID: "t1", DriverID: "D1"},
		{TourInstanceID: "t2", DriverID: "D1"},
	}
	results := Run(tours, assignments, domain.DefaultThresholds())
	for _, r := range results {
		if r.Check == domain.CheckCoverage && r.Status != domain.Pass {
			t.Fatalf("coverage = %s, want PASS: %v", r.Status, r.Violations)
		}
	}
}

func TestCoverageFailsOnMissingTour(t *testing.T) {
	tours := []domain.Tour{{ID: "t1"}, {ID: "t2"}}
	assignments := []domain.Assignment{{TourInstanceID: "t1", DriverID: "D1"}}
	results := Run(tours, assignments, domain.DefaultThresholds())
	for _, r := range results {
		if r.Check == domain.CheckCoverage && r.Status != domain.Fail {
			t.Fatalf("coverage = %s, want FAIL", r.Status)
		}
	}
}

func TestOverlapDetectsOverlappingAssignments(t *testing.T) {
	assignments := []domain.Assignment{
		{DriverID: "D1", Day: 0, TourInstanceID: "t1", StartMin: 480, EndMin: 600},
		{DriverID: "D1", Day: 0, TourInstanceID: "t2", StartMin: 540, EndMin: 660},
	}
	results := Run(nil, assignments, domain.DefaultThresholds())
	for _, r := range results {
		if r.Check == domain.CheckOverlap && r.Status != domain.Fail {
			t.Fatalf("overlap = %s, want FAIL", r.Status)
		}
	}
}

func TestRestFailsBelowFloorAndWarnsNearIt(t *testing.T) {
	th := domain.DefaultThresholds()
	// rest exactly at the floor passes (spec.md §8 boundary: 660 passes).
	atFloor := []domain.Assignment{
		{DriverID: "D1", Day: 0, TourInstanceID: "t1", StartMin: 480, EndMin: 600},
		{DriverID: "D1", Day: 1, TourInstanceID: "t2", StartMin: 600 + th.RestMinMin - 1440, EndMin: 600 + th.RestMinMin - 1440 + 60},
	}
	results := Run(nil, atFloor, th)
	for _, r := range results {
		if r.Check == domain.CheckRest && r.Status == domain.Fail {
			t.Fatalf("rest exactly at the floor should not FAIL: %v", r.Violations)
		}
	}

	belowFloor := []domain.Assignment{
		{DriverID: "D1", Day: 0, TourInstanceID: "t1", StartMin: 480, EndMin: 600},
		{DriverID: "D1", Day: 1, TourInstanceID: "t2", StartMin: 600 + th.RestMinMin - 1 - 1440, EndMin: 600 + th.RestMinMin - 1 - 1440 + 60},
	}
	results = Run(nil, belowFloor, th)
	for _, r := range results {
		if r.Check == domain.CheckRest && r.Status != domain.Fail {
			t.Fatalf("rest = %d (one below floor) should FAIL, got %s", th.RestMinMin-1, r.Status)
		}
	}
}

func TestCanReleaseBlocksOnlyOnFail(t *testing.T) {
	pass := []domain.AuditResult{{Check: domain.CheckCoverage, Status: domain.Pass}}
	if !CanRelease(pass) {
		t.Fatal("expected CanRelease to be true when every check passes")
	}
	fail := []domain.AuditResult{{Check: domain.CheckCoverage, Status: domain.Fail}}
	if CanRelease(fail) {
		t.Fatal("expected CanRelease to be false when any check fails")
	}
	warnOnly := []domain.AuditResult{{Check: domain.CheckRest, Status: domain.Warn}}
	if !CanRelease(warnOnly) {
		t.Fatal("expected CanRelease to tolerate WARN")
	}
}
