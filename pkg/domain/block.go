package domain

import (
	"fmt"
	"sort"
)

// BlockType tags the sum type of legal daily work units (spec.md §9 Design
// Notes: tagged variant, not a class hierarchy).
type BlockType string

const (
	Block1er        BlockType = "1er"
	Block2erRegular BlockType = "2er-regular"
	Block2erSplit   BlockType = "2er-split"
	Block3er        BlockType = "3er"
)

// PauseZone classifies the pause governing a block's inter-tour gaps.
type PauseZone string

const (
	ZoneRegular PauseZone = "REGULAR"
	ZoneSplit   PauseZone = "SPLIT"
)

// Block is a legal daily work unit holding 1-3 consecutive same-day tours.
type Block struct {
	ID           string
	Day          Weekday
	Tours        []Tour // sorted by StartMin
	Type         BlockType
	PauseZone    PauseZone
	FirstStart   int
	LastEnd      int
	TotalWorkMin int
	SpanMin      int
}

// NewBlock builds a Block from tours already known to be sorted and valid
// for the given type, computing its derived fields.
func NewBlock(id string, day Weekday, tours []Tour, typ BlockType, zone PauseZone) Block {
	sorted := make([]Tour, len(tours))
	copy(sorted, tours)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMin < sorted[j].StartMin })

	b := Block{
		ID:        id,
		Day:       day,
		Tours:     sorted,
		Type:      typ,
		PauseZone: zone,
	}
	if len(sorted) > 0 {
		b.FirstStart = sorted[0].StartMin
		last := sorted[len(sorted)-1]
		b.LastEnd = last.EndMin
		if last.CrossesMidnight {
			b.LastEnd += 1440
		}
		b.SpanMin = b.LastEnd - b.FirstStart
	}
	for _, t := range sorted {
		b.TotalWorkMin += t.DurationMin()
	}
	return b
}

// IsHeavy reports whether the block is a 3-tour (3er) day.
func (b Block) IsHeavy(th Thresholds) bool {
	return len(b.Tours) == th.HeavyDayTourCount
}

// TourIDs returns the IDs of the block's tours, in block order.
func (b Block) TourIDs() []string {
	ids := make([]string, len(b.Tours))
	for i, t := range b.Tours {
		ids[i] = t.ID
	}
	return ids
}

// Validate checks the hard invariants of spec.md §3: non-overlap, gap
// windows, no split-gap inside a 3er, and the span cap for the block's kind.
func (b Block) Validate(th Thresholds) error {
	if len(b.Tours) == 0 || len(b.Tours) > 3 {
		return fmt.Errorf("block %s: must hold 1-3 tours, has %d", b.ID, len(b.Tours))
	}
	for i := 0; i+1 < len(b.Tours); i++ {
		t1, t2 := b.Tours[i], b.Tours[i+1]
		if t1.Day != t2.Day || t1.Day != b.Day {
			return fmt.Errorf("block %s: tours must share the block's day", b.ID)
		}
		end1 := t1.EndMin
		if t1.CrossesMidnight {
			end1 += 1440
		}
		if end1 > t2.StartMin {
			return fmt.Errorf("block %s: tours %s/%s overlap", b.ID, t1.ID, t2.ID)
		}
		gap := t2.StartMin - end1
		switch b.Type {
		case Block3er, Block2erRegular:
			if gap < th.GapRegularMin || gap > th.GapRegularMax {
				return fmt.Errorf("block %s: gap %d outside regular window [%d,%d]", b.ID, gap, th.GapRegularMin, th.GapRegularMax)
			}
		case Block2erSplit:
			if gap < th.GapSplitMin || gap > th.GapSplitMax {
				return fmt.Errorf("block %s: split gap %d outside window [%d,%d]", b.ID, gap, th.GapSplitMin, th.GapSplitMax)
			}
		}
	}

	switch b.Type {
	case Block2erSplit:
		if b.SpanMin > th.SpanSplitMaxMin {
			return fmt.Errorf("block %s: split span %d exceeds cap %d", b.ID, b.SpanMin, th.SpanSplitMaxMin)
		}
	default:
		maxSpan := th.SpanRegularMaxMin
		if b.Type == Block3er {
			maxSpan = th.SpanSplitMaxMin // 3er days share the 16h ceiling (spec.md §4.5 SPAN_SPLIT).
		}
		if b.SpanMin > maxSpan {
			return fmt.Errorf("block %s: span %d exceeds cap %d", b.ID, b.SpanMin, maxSpan)
		}
	}
	return nil
}

// BlockID renders the tie-broken ID scheme of spec.md §4.1:
// {B3,B2R,B2S,B1}-<first-tour-id>.
func BlockID(typ BlockType, firstTourID string) string {
	prefix := map[BlockType]string{
		Block3er:        "B3",
		Block2erRegular: "B2R",
		Block2erSplit:   "B2S",
		Block1er:        "B1",
	}[typ]
	return fmt.Sprintf("%s-%s", prefix, firstTourID)
}
