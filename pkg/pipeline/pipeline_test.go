package pipeline

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/audit"
	"github.com/nimbusline/rosterctl/pkg/config"
	"github.com/nimbusline/rosterctl/pkg/forecast"
)

func sampleDoc() forecast.Document {
	return forecast.Document{
		TenantCode:     "acme",
		SiteCode:       "site-1",
		WeekAnchorDate: "2026-08-03",
		Tours: []forecast.TourRow{
			{ExternalID: "T1", Day: 1, StartTime: "06:00", EndTime: "14:00", Count: 2},
			{ExternalID: "T2", Day: 2, StartTime: "06:00", EndTime: "14:00", Count: 2},
			{ExternalID: "T3", Day: 3, StartTime: "06:00", EndTime: "14:00", Count: 2},
			{ExternalID: "T4", Day: 4, StartTime: "06:00", EndTime: "14:00", Count: 2},
			{ExternalID: "T5", Day: 5, StartTime: "06:00", EndTime: "14:00", Count: 2},
		},
	}
}

func TestSolveCoversEveryForecastTour(t *testing.T) {
	doc := sampleDoc()
	sc := config.DefaultSolverConfig(7)

	result, err := Solve(doc, sc)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	want := len(doc.Expand())
	if len(result.Assignments) != want {
		t.Fatalf("got %d assignments, want %d (one per forecast tour)", len(result.Assignments), want)
	}

	coverage := audit.Run(result.Tours, result.Assignments, sc.ToThresholds())
	for _, r := range coverage {
		if r.Check == "COVERAGE" && r.Status != "PASS" {
			t.Fatalf("coverage check did not pass: %+v", r)
		}
	}
}

func TestSolveIsDeterministicForTheSameSeed(t *testing.T) {
	doc := sampleDoc()
	sc := config.DefaultSolverConfig(11)

	r1, err := Solve(doc, sc)
	if err != nil {
		t.Fatalf("Solve (run 1): %v", err)
	}
	r2, err := Solve(doc, sc)
	if err != nil {
		t.Fatalf("Solve (run 2): %v", err)
	}

	if r1.OutputHash != r2.OutputHash {
		t.Fatalf("output_hash differs across identical runs: %s vs %s", r1.OutputHash, r2.OutputHash)
	}
}

func TestSolveProducesDistinctHashesForDifferentSeeds(t *testing.T) {
	doc := sampleDoc()
	r1, err := Solve(doc, config.DefaultSolverConfig(1))
	if err != nil {
		t.Fatalf("Solve (seed 1): %v", err)
	}
	r2, err := Solve(doc, config.DefaultSolverConfig(2))
	if err != nil {
		t.Fatalf("Solve (seed 2): %v", err)
	}

	if r1.InputHash != r2.InputHash {
		t.Fatalf("input_hash should not depend on seed: %s vs %s", r1.InputHash, r2.InputHash)
	}
	if r1.SolverConfigHash == r2.SolverConfigHash {
		t.Fatal("solver_config_hash should differ when the seed differs")
	}
}
