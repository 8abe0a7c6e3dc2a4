package greedy

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func sampleBlocks() []domain.Block {
	return []domain.Block{
		domain.NewBlock("B1-t1", 0, []domain.Tour{{ID: "t1", Day: 0, StartMin: 8 * 60, EndMin: 14 * 60}}, domain.Block1er, domain.ZoneRegular),
		domain.NewBlock("B1-t2", 1, []domain.Tour{{ID: "t2", Day: 1, StartMin: 8 * 60, EndMin: 14 * 60}}, domain.Block1er, domain.ZoneRegular),
		domain.NewBlock("B1-t3", 5, []domain.Tour{{ID: "t3", Day: 5, StartMin: 8 * 60, EndMin: 14 * 60}}, domain.Block1er, domain.ZoneRegular),
	}
}

func TestBuildPlacesEveryBlockExactlyOnce(t *testing.T) {
	th := domain.DefaultThresholds()
	res := Build(sampleBlocks(), 2, 10, th, 7)

	seen := make(map[string]int)
	for _, s := range res.Slots {
		for _, id := range s.BlockIDs {
			seen[id]++
		}
	}
	for _, b := range sampleBlocks() {
		if seen[b.ID] != 1 {
			t.Errorf("block %s placed %d times, want 1", b.ID, seen[b.ID])
		}
	}
}

func TestBuildSortsSaturdayBlocksFirst(t *testing.T) {
	ordered := sortByDifficulty(sampleBlocks())
	if ordered[0].Day != domain.Weekday(5) {
		t.Fatalf("expected the Saturday block first, got day %v", ordered[0].Day)
	}
}

func TestBuildOpensOverflowWhenFTEsExhausted(t *testing.T) {
	th := domain.DefaultThresholds()
	res := Build(sampleBlocks(), 0, 5, th, 7)
	if len(res.Slots) == 0 {
		t.Fatal("expected overflow slots to absorb blocks when zero FTEs were offered")
	}
}

func TestBuildEnforcesRestFloorBetweenAdjacentDays(t *testing.T) {
	th := domain.DefaultThresholds()
	// Two adjacent-day blocks whose gap is well under the 11h floor: a late
	// finish on Monday followed by an early start on Tuesday.
	blocks := []domain.Block{
		domain.NewBlock("B1-t1", 0, []domain.Tour{{ID: "t1", Day: 0, StartMin: 20 * 60, EndMin: 22 * 60}}, domain.Block1er, domain.ZoneRegular),
		domain.NewBlock("B1-t2", 1, []domain.Tour{{ID: "t2", Day: 1, StartMin: 5 * 60, EndMin: 11 * 60}}, domain.Block1er, domain.ZoneRegular),
	}
	res := Build(blocks, 1, 10, th, 7)

	for _, s := range res.Slots {
		if len(s.BlockIDs) < 2 {
			continue
		}
		t.Fatalf("driver %s was given both rest-violating blocks in one slot: %v", s.DriverID, s.BlockIDs)
	}
}

func TestBuildLNSNeverIncreasesHeadcountOrSevenDayWeeks(t *testing.T) {
	th := domain.DefaultThresholds()
	res := Build(sampleBlocks(), 3, 10, th, 99)
	for _, s := range res.Slots {
		if len(s.DayBlocks) >= 7 {
			t.Fatalf("driver %s works all 7 days", s.DriverID)
		}
	}
}
