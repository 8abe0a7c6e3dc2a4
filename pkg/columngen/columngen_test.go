package columngen

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func sampleBlocks() []domain.Block {
	mon := domain.NewBlock("B1-t1", domain.Weekday(0), []domain.Tour{
		{ID: "t1", Day: 0, StartMin: 8 * 60, EndMin: 14 * 60},
	}, domain.Block1er, domain.ZoneRegular)
	tue := domain.NewBlock("B1-t2", domain.Weekday(1), []domain.Tour{
		{ID: "t2", Day: 1, StartMin: 8 * 60, EndMin: 14 * 60},
	}, domain.Block1er, domain.ZoneRegular)
	wed := domain.NewBlock("B1-t3", domain.Weekday(2), []domain.Tour{
		{ID: "t3", Day: 2, StartMin: 8 * 60, EndMin: 14 * 60},
	}, domain.Block1er, domain.ZoneRegular)
	return []domain.Block{mon, tue, wed}
}

func TestGenerateSingletonColumnsCoversEveryBlock(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := sampleBlocks()
	g := New(blocks, 1, th)

	admitted := g.GenerateSingletonColumns()
	if admitted != len(blocks) {
		t.Fatalf("admitted %d singleton columns, want %d", admitted, len(blocks))
	}
	if uncovered := g.UncoveredBlocks(); len(uncovered) != 0 {
		t.Fatalf("expected no uncovered blocks after singleton generation, got %v", uncovered)
	}
}

func TestPoolRejectsDuplicateSignature(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := sampleBlocks()
	g := New(blocks, 1, th)

	g.GenerateSingletonColumns()
	before := len(g.Pool())
	g.GenerateSingletonColumns()
	after := len(g.Pool())
	if before != after {
		t.Fatalf("expected pool size to stay at %d after re-running singleton generation, got %d", before, after)
	}
}

func TestBuildFromSeedProducesOnlyValidColumns(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := sampleBlocks()
	g := New(blocks, 5, th)

	g.GenerateInitialPool(10)
	for _, col := range g.Pool() {
		if !col.IsValid {
			t.Errorf("pool column %s is invalid: %v", col.RosterID, col.Violations)
		}
	}
}

func TestDiversifyAvoidsHighConflictBlocksWhenAlternativesExist(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := sampleBlocks()
	g := New(blocks, 3, th)

	avoid := map[string]bool{"B1-t2": true}
	before := len(g.Pool())
	admitted := g.Diversify([]string{"B1-t1"}, avoid, domain.FTE)
	if admitted == 0 {
		t.Fatal("expected Diversify to admit at least one column")
	}
	if len(g.Pool()) != before+admitted {
		t.Fatalf("pool grew by %d, want %d", len(g.Pool())-before, admitted)
	}
}

func TestHighConflictBlocksEmptyWhenQuartileRoundsToZero(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := sampleBlocks()
	g := New(blocks, 1, th)

	// The top quartile of three sample blocks rounds down to zero blocks, so
	// the avoid set should come back empty rather than panic.
	avoid := g.HighConflictBlocks()
	if len(avoid) != 0 {
		t.Fatalf("expected no high-conflict blocks when the quartile of 3 blocks is 0, got %v", avoid)
	}
}

func TestRosterIDsAreSequentialAndStable(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := sampleBlocks()
	g := New(blocks, 2, th)
	g.GenerateSingletonColumns()

	seen := make(map[string]bool)
	for _, col := range g.Pool() {
		if seen[col.RosterID] {
			t.Errorf("duplicate roster ID %s", col.RosterID)
		}
		seen[col.RosterID] = true
	}
}
