// Package partition implements the Block Partitioner (C2, spec.md §4.1): a
// deterministic, seeded-RNG greedy that groups a day's tours into 1-3 tour
// blocks, biased toward the larger block types first.
package partition

import (
	"math/rand"
	"sort"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

// Partition groups tours into blocks, one day at a time, in calendar order.
// Same (sorted tours, seed) always yields byte-identical output (spec.md
// §4.1 determinism contract) because the only randomness is the RNG seeded
// here, consumed in a fixed order.
func Partition(tours []domain.Tour, seed uint32, th domain.Thresholds) []domain.Block {
	rng := rand.New(rand.NewSource(int64(seed)))

	byDay := make(map[domain.Weekday][]domain.Tour)
	for _, t := range tours {
		byDay[t.Day] = append(byDay[t.Day], t)
	}

	var out []domain.Block
	for day := domain.Weekday(0); day < 7; day++ {
		dayTours, ok := byDay[day]
		if !ok {
			continue
		}
		sort.Slice(dayTours, func(i, j int) bool {
			if dayTours[i].StartMin != dayTours[j].StartMin {
				return dayTours[i].StartMin < dayTours[j].StartMin
			}
			return dayTours[i].ID < dayTours[j].ID
		})
		out = append(out, partitionDay(dayTours, day, rng, th)...)
	}
	return out
}

func partitionDay(dayTours []domain.Tour, day domain.Weekday, rng *rand.Rand, th domain.Thresholds) []domain.Block {
	used := make(map[string]bool, len(dayTours))
	var blocks []domain.Block

	tryPhase := func(build func(t1 domain.Tour) (domain.Block, bool)) {
		for {
			progressed := false
			for _, t1 := range dayTours {
				if used[t1.ID] {
					continue
				}
				b, ok := build(t1)
				if !ok {
					continue
				}
				for _, id := range b.TourIDs() {
					used[id] = true
				}
				blocks = append(blocks, b)
				progressed = true
				break
			}
			if !progressed {
				return
			}
		}
	}

	successors := func(t1 domain.Tour, minGap, maxGap int) []domain.Tour {
		var cands []domain.Tour
		for _, t2 := range dayTours {
			if used[t2.ID] || t2.ID == t1.ID || t2.StartMin <= t1.StartMin {
				continue
			}
			gap := t1.GapMin(t2)
			if gap >= minGap && gap <= maxGap {
				cands = append(cands, t2)
			}
		}
		shuffle(cands, rng)
		return cands
	}

	// Phase 1: 3er blocks.
	tryPhase(func(t1 domain.Tour) (domain.Block, bool) {
		for _, t2 := range successors(t1, th.GapRegularMin, th.GapRegularMax) {
			var t3Cands []domain.Tour
			for _, t3 := range dayTours {
				if used[t3.ID] || t3.ID == t1.ID || t3.ID == t2.ID || t3.StartMin <= t2.StartMin {
					continue
				}
				gap23 := t2.GapMin(t3)
				if gap23 < th.GapRegularMin || gap23 > th.GapRegularMax {
					continue
				}
				end3 := t3.EndMin
				if t3.CrossesMidnight {
					end3 += 1440
				}
				if end3-t1.StartMin > domain.MaxTourDurationMin {
					continue
				}
				t3Cands = append(t3Cands, t3)
			}
			if len(t3Cands) == 0 {
				continue
			}
			shuffle(t3Cands, rng)
			t3 := t3Cands[0]
			b := domain.NewBlock(domain.BlockID(domain.Block3er, t1.ID), day, []domain.Tour{t1, t2, t3}, domain.Block3er, domain.ZoneRegular)
			return b, true
		}
		return domain.Block{}, false
	})

	// Phase 2: 2er-regular.
	tryPhase(func(t1 domain.Tour) (domain.Block, bool) {
		for _, t2 := range successors(t1, th.GapRegularMin, th.GapRegularMax) {
			b := domain.NewBlock(domain.BlockID(domain.Block2erRegular, t1.ID), day, []domain.Tour{t1, t2}, domain.Block2erRegular, domain.ZoneRegular)
			if b.SpanMin <= th.SpanRegularMaxMin {
				return b, true
			}
		}
		return domain.Block{}, false
	})

	// Phase 3: 2er-split.
	tryPhase(func(t1 domain.Tour) (domain.Block, bool) {
		for _, t2 := range successors(t1, th.GapSplitMin, th.GapSplitMax) {
			b := domain.NewBlock(domain.BlockID(domain.Block2erSplit, t1.ID), day, []domain.Tour{t1, t2}, domain.Block2erSplit, domain.ZoneSplit)
			if b.SpanMin <= th.SpanSplitMaxMin {
				return b, true
			}
		}
		return domain.Block{}, false
	})

	// Phase 4: 1er fallback, always succeeds (spec.md §4.1: "no failures").
	tryPhase(func(t1 domain.Tour) (domain.Block, bool) {
		b := domain.NewBlock(domain.BlockID(domain.Block1er, t1.ID), day, []domain.Tour{t1}, domain.Block1er, domain.ZoneRegular)
		return b, true
	})

	return blocks
}

// shuffle is a Fisher-Yates shuffle drawing from rng, the sole entry point
// for randomness in the partitioner (spec.md §4.1).
func shuffle(t []domain.Tour, rng *rand.Rand) {
	for i := len(t) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		t[i], t[j] = t[j], t[i]
	}
}
