package partition

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func sampleTours() []domain.Tour {
	return []domain.Tour{
		{ID: "t1", Day: 0, StartMin: 8 * 60, EndMin: 10 * 60},
		{ID: "t2", Day: 0, StartMin: 10*60 + 30, EndMin: 12 * 60},
		{ID: "t3", Day: 0, StartMin: 13 * 60, EndMin: 15 * 60},
		{ID: "t4", Day: 1, StartMin: 6 * 60, EndMin: 7 * 60},
	}
}

func TestPartitionCoversEveryTourExactlyOnce(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := Partition(sampleTours(), 7, th)

	seen := make(map[string]int)
	for _, b := range blocks {
		for _, id := range b.TourIDs() {
			seen[id]++
		}
	}
	for _, tour := range sampleTours() {
		if seen[tour.ID] != 1 {
			t.Errorf("tour %s appears in %d blocks, want exactly 1", tour.ID, seen[tour.ID])
		}
	}
}

func TestPartitionPreservesTotalWorkMinutes(t *testing.T) {
	th := domain.DefaultThresholds()
	tours := sampleTours()
	blocks := Partition(tours, 11, th)

	var want, got int
	for _, t := range tours {
		want += t.DurationMin()
	}
	for _, b := range blocks {
		got += b.TotalWorkMin
	}
	if got != want {
		t.Errorf("total work minutes = %d, want %d", got, want)
	}
}

func TestPartitionIsDeterministicForFixedSeed(t *testing.T) {
	th := domain.DefaultThresholds()
	tours := sampleTours()

	a := Partition(tours, 42, th)
	b := Partition(tours, 42, th)

	if len(a) != len(b) {
		t.Fatalf("block count differs across identical-seed runs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("block %d ID differs: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestPartitionProducesValidBlocks(t *testing.T) {
	th := domain.DefaultThresholds()
	blocks := Partition(sampleTours(), 3, th)
	for _, b := range blocks {
		if err := b.Validate(th); err != nil {
			t.Errorf("block %s failed validation: %v", b.ID, err)
		}
	}
}
