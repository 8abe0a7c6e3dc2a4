// Package greedy implements the Greedy Assigner (C5, spec.md §4.4): an
// anytime constructor used both as a hint seed for the master and as the
// fallback plan when the master finds no cover (INFEASIBLE, which includes
// running out of time before any cover is found).
package greedy

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

// DriverSlot is one under-construction roster during the greedy build.
type DriverSlot struct {
	DriverID   string
	RosterType domain.RosterType
	BlockIDs   []string
	TotalMin   int
	DayBlocks  map[domain.Weekday]domain.Block // day -> block assigned that day
}

// Result is the output of Build: one block assignment per driver slot.
type Result struct {
	Slots []DriverSlot
}

// lnsIterations bounds the Large-Neighborhood Improvement loop so a greedy
// fallback run stays within the anytime budget the master's timeout is
// meant to protect.
const lnsIterations = 20

// Build runs the three-phase anytime construction of spec.md §4.4:
// preprocessing (difficulty-sorted blocks), construction (greedy slot
// scoring), repair (placement retry, overflow slots, PT slots), followed by
// a Large-Neighborhood improvement loop that destroys and greedily
// rebuilds a handful of slots at a time. seed drives both the LNS's random
// driver picks and must be the same solver-config seed used elsewhere in
// the run, so a fallback plan is reproducible for the same input.
func Build(blocks []domain.Block, targetFTEs, overflowCap int, th domain.Thresholds, seed uint32) Result {
	ordered := sortByDifficulty(blocks)

	slots := make([]*DriverSlot, 0, targetFTEs)
	for i := 0; i < targetFTEs; i++ {
		slots = append(slots, &DriverSlot{
			DriverID:   fmt.Sprintf("D%05d", i+1),
			RosterType: domain.FTE,
			DayBlocks:  make(map[domain.Weekday]domain.Block),
		})
	}

	var unplaced []domain.Block
	for _, b := range ordered {
		slot := bestSlot(slots, b, th)
		if slot == nil {
			unplaced = append(unplaced, b)
			continue
		}
		place(slot, b)
	}

	slots, unplaced = repair(slots, unplaced, overflowCap, th)
	slots, unplaced = ptCompaction(slots, unplaced, th)
	slots = nonEmpty(slots)

	rng := rand.New(rand.NewSource(int64(seed)))
	slots = improve(slots, overflowCap, th, rng)

	result := Result{}
	for _, s := range slots {
		if len(s.BlockIDs) > 0 {
			result.Slots = append(result.Slots, *s)
		}
	}
	sort.Slice(result.Slots, func(i, j int) bool { return result.Slots[i].DriverID < result.Slots[j].DriverID })
	return result
}

// sortByDifficulty orders blocks per spec.md §4.4 preprocessing:
// (-is_saturday, -is_friday, -is_edge_hours, -work_min, id).
func sortByDifficulty(blocks []domain.Block) []domain.Block {
	out := append([]domain.Block(nil), blocks...)
	isEdge := func(b domain.Block) bool { return b.FirstStart < 6*60 || b.LastEnd > 21*60 }
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Day == domain.Weekday(5)) != (b.Day == domain.Weekday(5)) {
			return a.Day == domain.Weekday(5) // Saturday first
		}
		if (a.Day == domain.Weekday(4)) != (b.Day == domain.Weekday(4)) {
			return a.Day == domain.Weekday(4) // Friday next
		}
		if isEdge(a) != isEdge(b) {
			return isEdge(a)
		}
		if a.TotalWorkMin != b.TotalWorkMin {
			return a.TotalWorkMin > b.TotalWorkMin
		}
		return a.ID < b.ID
	})
	return out
}

// bestSlot picks the feasible slot minimizing slotScore = empty_slot_penalty
// + slack_penalty (spec.md §4.4 construction). The score has no term for how
// tight the rest gap to neighboring days is; rest only decides feasibility.
func bestSlot(slots []*DriverSlot, b domain.Block, th domain.Thresholds) *DriverSlot {
	var best *DriverSlot
	bestScore := -1.0
	for _, s := range slots {
		if !feasible(s, b, th) {
			continue
		}
		score := slotScore(s, b, th)
		if best == nil || score < bestScore {
			best = s
			bestScore = score
		}
	}
	return best
}

func feasible(s *DriverSlot, b domain.Block, th domain.Thresholds) bool {
	if _, taken := s.DayBlocks[b.Day]; taken {
		return false
	}
	if s.TotalMin+b.TotalWorkMin > th.FTEMaxMin {
		return false
	}
	return restOK(s, b, th)
}

// restOK enforces the inter-day rest floor against b's immediate neighbor
// days already assigned in s, mirroring columngen.checkRestAndOverlap
// (pkg/columngen/columngen.go): the 11h floor widens to the heavy-rest
// floor whenever either side of the gap is a 3-tour day.
func restOK(s *DriverSlot, b domain.Block, th domain.Thresholds) bool {
	if b.Day > 0 {
		if prev, ok := s.DayBlocks[b.Day-1]; ok && !restBetween(prev, b, th) {
			return false
		}
	}
	if b.Day < domain.Weekday(6) {
		if next, ok := s.DayBlocks[b.Day+1]; ok && !restBetween(b, next, th) {
			return false
		}
	}
	return true
}

// restBetween reports whether the rest gap between two consecutive-day
// blocks (earlier then later) meets the applicable floor.
func restBetween(earlier, later domain.Block, th domain.Thresholds) bool {
	rest := later.FirstStart + 1440 - earlier.LastEnd
	minRest := th.RestMinMin
	if earlier.IsHeavy(th) || later.IsHeavy(th) {
		minRest = th.HeavyRestMinMin
	}
	return rest >= minRest
}

func slotScore(s *DriverSlot, b domain.Block, th domain.Thresholds) float64 {
	newDayPenalty := 0.0
	if len(s.DayBlocks) == 0 {
		newDayPenalty = 1.0
	}
	slack := float64(th.FTESoftTargetMaxMin - (s.TotalMin + b.TotalWorkMin))
	if slack < 0 {
		slack = -slack
	}
	return newDayPenalty + slack/1000.0
}

func place(s *DriverSlot, b domain.Block) {
	s.BlockIDs = append(s.BlockIDs, b.ID)
	s.TotalMin += b.TotalWorkMin
	s.DayBlocks[b.Day] = b
}

// repair retries bestSlot for anything the construction phase could not
// place and opens overflow slots (up to overflowCap) for what still does not
// fit (spec.md §4.4 repair phase). No ejection chain or block swap is
// attempted. It returns the possibly-grown slot set alongside whatever
// remains unplaced.
func repair(slots []*DriverSlot, unplaced []domain.Block, overflowCap int, th domain.Thresholds) ([]*DriverSlot, []domain.Block) {
	var stillUnplaced []domain.Block
	opened := nextSuffix(slots, "D-OF")
	for _, b := range unplaced {
		if slot := bestSlot(slots, b, th); slot != nil {
			place(slot, b)
			continue
		}
		if opened < overflowCap {
			newSlot := &DriverSlot{
				DriverID:   fmt.Sprintf("D-OF%03d", opened+1),
				RosterType: domain.FTE,
				DayBlocks:  make(map[domain.Weekday]domain.Block),
			}
			place(newSlot, b)
			slots = append(slots, newSlot)
			opened++
			continue
		}
		stillUnplaced = append(stillUnplaced, b)
	}
	return slots, stillUnplaced
}

// ptCompaction opens PT slots for anything overflow couldn't absorb, placing
// each block first-fit into the PT slots opened in this call before opening
// another (spec.md §4.4: PT as last resort). PT slots are not merged with one
// another afterwards. It returns the possibly-grown slot set alongside
// whatever remains unplaced.
func ptCompaction(slots []*DriverSlot, unplaced []domain.Block, th domain.Thresholds) ([]*DriverSlot, []domain.Block) {
	var stillUnplaced []domain.Block
	var ptSlots []*DriverSlot
	ptBase := nextSuffix(slots, "D-PT")
	for i, b := range unplaced {
		placed := false
		for _, s := range ptSlots {
			if feasiblePT(s, b, th) {
				place(s, b)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		newSlot := &DriverSlot{
			DriverID:   fmt.Sprintf("D-PT%03d", ptBase+len(ptSlots)+1),
			RosterType: domain.PT,
			DayBlocks:  make(map[domain.Weekday]domain.Block),
		}
		if feasiblePT(newSlot, b, th) {
			place(newSlot, b)
			ptSlots = append(ptSlots, newSlot)
			slots = append(slots, newSlot)
		} else {
			stillUnplaced = append(stillUnplaced, unplaced[i])
		}
	}
	return slots, stillUnplaced
}

// nextSuffix finds the highest numeric suffix already used by a
// prefix-named slot (e.g. "D-OF003" -> 3) so a later repair/ptCompaction
// call over a slot set that already carries earlier overflow/PT slots
// never reissues a DriverID already in use.
func nextSuffix(slots []*DriverSlot, prefix string) int {
	max := 0
	for _, s := range slots {
		if !strings.HasPrefix(s.DriverID, prefix) {
			continue
		}
		if n, err := strconv.Atoi(s.DriverID[len(prefix):]); err == nil && n > max {
			max = n
		}
	}
	return max
}

func feasiblePT(s *DriverSlot, b domain.Block, th domain.Thresholds) bool {
	if _, taken := s.DayBlocks[b.Day]; taken {
		return false
	}
	if s.TotalMin+b.TotalWorkMin > th.PTMaxMin {
		return false
	}
	return restOK(s, b, th)
}

func nonEmpty(slots []*DriverSlot) []*DriverSlot {
	out := make([]*DriverSlot, 0, len(slots))
	for _, s := range slots {
		if len(s.BlockIDs) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// improve runs the Large-Neighborhood Improvement step of spec.md §4.4:
// each round destroys a handful of slots (1 PT, 2 under-filled FTEs, 2
// random) back into loose blocks, greedily re-places them, and keeps the
// result only if it never raises total headcount or pushes any driver to a
// 7-day working week.
func improve(slots []*DriverSlot, overflowCap int, th domain.Thresholds, rng *rand.Rand) []*DriverSlot {
	current := slots
	for iter := 0; iter < lnsIterations; iter++ {
		if len(current) < 2 {
			break
		}
		victims := chooseVictims(current, rng)
		if len(victims) == 0 {
			continue
		}
		remaining, destroyed := destroy(current, victims)
		if len(destroyed) == 0 {
			continue
		}
		trial, leftover := rebuild(remaining, destroyed, overflowCap, th)
		if len(leftover) > 0 {
			continue // could not re-house every destroyed block; keep current
		}
		if accept(current, trial) {
			current = trial
		}
	}
	return current
}

// chooseVictims selects up to 5 slot indices to destroy: the lightest PT
// slot, the two lightest FTE slots, and two more slots picked uniformly at
// random (deduplicated against what's already chosen).
func chooseVictims(slots []*DriverSlot, rng *rand.Rand) map[int]bool {
	victims := make(map[int]bool)

	ptIdx := -1
	for i, s := range slots {
		if s.RosterType != domain.PT {
			continue
		}
		if ptIdx == -1 || s.TotalMin < slots[ptIdx].TotalMin {
			ptIdx = i
		}
	}
	if ptIdx >= 0 {
		victims[ptIdx] = true
	}

	type byFill struct {
		idx int
		min int
	}
	var ftes []byFill
	for i, s := range slots {
		if s.RosterType == domain.FTE {
			ftes = append(ftes, byFill{i, s.TotalMin})
		}
	}
	sort.Slice(ftes, func(i, j int) bool { return ftes[i].min < ftes[j].min })
	added := 0
	for _, f := range ftes {
		if added >= 2 {
			break
		}
		if victims[f.idx] {
			continue
		}
		victims[f.idx] = true
		added++
	}

	added = 0
	for attempts := 0; added < 2 && attempts < len(slots)*4; attempts++ {
		i := rng.Intn(len(slots))
		if victims[i] {
			continue
		}
		victims[i] = true
		added++
	}
	return victims
}

// destroy splits current into a deep-copied remainder (safe to mutate
// without disturbing current, the fallback if the trial is rejected) and
// the loose blocks that belonged to the victim slots.
func destroy(current []*DriverSlot, victims map[int]bool) ([]*DriverSlot, []domain.Block) {
	var remaining []*DriverSlot
	var loose []domain.Block
	for i, s := range current {
		if victims[i] {
			for _, b := range s.DayBlocks {
				loose = append(loose, b)
			}
			continue
		}
		remaining = append(remaining, deepCopy(s))
	}
	sort.Slice(loose, func(i, j int) bool { return loose[i].ID < loose[j].ID })
	return remaining, loose
}

func deepCopy(s *DriverSlot) *DriverSlot {
	cp := &DriverSlot{
		DriverID:   s.DriverID,
		RosterType: s.RosterType,
		BlockIDs:   append([]string(nil), s.BlockIDs...),
		TotalMin:   s.TotalMin,
		DayBlocks:  make(map[domain.Weekday]domain.Block, len(s.DayBlocks)),
	}
	for d, b := range s.DayBlocks {
		cp.DayBlocks[d] = b
	}
	return cp
}

// rebuild re-places loose blocks into remaining via the same bestSlot/
// repair/ptCompaction pipeline the initial construction uses. Any newly
// opened overflow/PT slots get suffixes past whatever remaining already
// has open (nextSuffix), so driver IDs stay unique across LNS rounds.
func rebuild(remaining []*DriverSlot, loose []domain.Block, overflowCap int, th domain.Thresholds) ([]*DriverSlot, []domain.Block) {
	var unplaced []domain.Block
	for _, b := range sortByDifficulty(loose) {
		if slot := bestSlot(remaining, b, th); slot != nil {
			place(slot, b)
			continue
		}
		unplaced = append(unplaced, b)
	}
	remaining, unplaced = repair(remaining, unplaced, overflowCap, th)
	remaining, unplaced = ptCompaction(remaining, unplaced, th)
	return nonEmpty(remaining), unplaced
}

// accept applies the LNS's acceptance rule: never grow total headcount,
// never push a driver to a 7-day working week.
func accept(before, trial []*DriverSlot) bool {
	if countNonEmpty(trial) > countNonEmpty(before) {
		return false
	}
	for _, s := range trial {
		if len(s.DayBlocks) >= 7 {
			return false
		}
	}
	return true
}

func countNonEmpty(slots []*DriverSlot) int {
	n := 0
	for _, s := range slots {
		if len(s.BlockIDs) > 0 {
			n++
		}
	}
	return n
}
