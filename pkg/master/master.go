// Package master implements the Set-Partitioning Master (C4, spec.md §4.3):
// an exact branch-and-bound search choosing a subset of pool columns that
// covers every target block exactly once, lexicographically minimizing
// (headcount, quality). The search shape — a dedicated engine struct,
// admissible lower bound, deterministic branch order, incumbent pruning,
// sparse deadline checks — follows a depth-first branch-and-bound searcher
// built for an unrelated combinatorial problem in the wider example corpus;
// the covering formulation and the two-stage objective are this domain's own.
package master

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nimbusline/rosterctl/pkg/domain"
	sonotime "github.com/nimbusline/rosterctl/pkg/time"
)

// Status is the master's result classification.
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusTimeout    Status = "TIMEOUT"
	StatusInfeasible Status = "INFEASIBLE"
	// StatusSkipped marks an instance the portfolio policy routed straight
	// to the greedy constructor, bypassing the master entirely (spec.md §9
	// Design Notes).
	StatusSkipped Status = "SKIPPED"
)

// Result is what Solve returns.
type Result struct {
	Status             Status
	Selected           []domain.RosterColumn
	Headcount          int
	Stage2Cost         float64
	ZeroSupportTargetIDs []string // populated only on INFEASIBLE: blocks with no covering column at all
	ConflictTargetIDs    []string // populated only on INFEASIBLE: blocks whose coverage exists but can never be jointly selected with every other block's
}

// Options bounds the search.
type Options struct {
	TimeLimit time.Duration
	Hints     []domain.RosterColumn // known-feasible columns, filtered and tried first
}

// engine holds all search data, mirroring a dedicated-struct branch-and-bound
// shape: explicit state, no captured closures, sparse deadline checks.
type engine struct {
	th Thresholds

	blockIDs    []string          // target blocks, index-addressable
	blockIndex  map[string]int
	columns     []domain.RosterColumn
	colBlocks   [][]int // per column, indices into blockIDs it covers
	coverage    map[int][]int // block index -> column indices covering it, sorted by column order

	useDeadline bool
	timedOut    atomic.Bool // flipped by the watchdog goroutine, polled sparsely by dfs
	steps       int

	covered  []bool
	selected []int // indices into columns, current partial selection

	bestSelected  []int
	bestHeadcount int
	bestStage2    float64
	found         bool
}

// Thresholds is the subset of domain.Thresholds the Stage-2 objective reads.
type Thresholds = domain.Thresholds

// Solve runs the master over pool against the target block set.
func Solve(pool []domain.RosterColumn, targetBlockIDs []string, th domain.Thresholds, opts Options) Result {
	e := &engine{th: th}
	e.blockIndex = make(map[string]int, len(targetBlockIDs))
	sortedTargets := append([]string(nil), targetBlockIDs...)
	sort.Strings(sortedTargets)
	e.blockIDs = sortedTargets
	for i, id := range e.blockIDs {
		e.blockIndex[id] = i
	}

	e.columns = orderColumns(pool, opts.Hints)
	e.colBlocks = make([][]int, len(e.columns))
	e.coverage = make(map[int][]int, len(e.blockIDs))
	for ci, col := range e.columns {
		for _, bid := range col.BlockIDs {
			bi, ok := e.blockIndex[bid]
			if !ok {
				continue // column covers a block outside the target set; irrelevant here
			}
			e.colBlocks[ci] = append(e.colBlocks[ci], bi)
			e.coverage[bi] = append(e.coverage[bi], ci)
		}
	}

	// The watchdog runs on its own goroutine and flips timedOut once
	// opts.TimeLimit elapses; dfs polls the flag sparsely rather than
	// blocking on the channel itself, since a deep recursive search can't
	// suspend mid-call to wait on one. Using the injected sonotime.After
	// (rather than stdlib time.After directly) lets tests collapse the wait
	// with timetest.UseNoAfter instead of needing a real TimeLimit to elapse.
	if opts.TimeLimit > 0 {
		e.useDeadline = true
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-sonotime.After(opts.TimeLimit):
				e.timedOut.Store(true)
			case <-done:
			}
		}()
	}

	e.covered = make([]bool, len(e.blockIDs))
	e.bestHeadcount = math.MaxInt32
	e.bestStage2 = math.Inf(1)

	e.dfs(0)

	if !e.found {
		return Result{
			Status:               StatusInfeasible,
			ZeroSupportTargetIDs: e.zeroSupportTargets(),
			ConflictTargetIDs:    e.conflictTargets(),
		}
	}

	selected := make([]domain.RosterColumn, len(e.bestSelected))
	for i, ci := range e.bestSelected {
		selected[i] = e.columns[ci]
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].RosterID < selected[j].RosterID })

	status := StatusOptimal
	if e.deadlineHit() {
		status = StatusTimeout
	}
	return Result{
		Status:     status,
		Selected:   selected,
		Headcount:  e.bestHeadcount,
		Stage2Cost: e.bestStage2,
	}
}

// orderColumns places filtered hints first (spec.md §4.3 hint ingestion),
// then the remaining pool sorted by RosterID for determinism. Hints are
// checked against the blocks the pool covers (filterValidHintColumns), not
// against the target block set; Solve ignores any block outside the target
// set.
func orderColumns(pool []domain.RosterColumn, hints []domain.RosterColumn) []domain.RosterColumn {
	targetSet := make(map[string]bool, len(pool))
	for _, c := range pool {
		for _, bid := range c.BlockIDs {
			targetSet[bid] = true
		}
	}

	hintSigs := make(map[string]bool)
	var ordered []domain.RosterColumn
	for _, h := range filterValidHintColumns(hints, pool) {
		ordered = append(ordered, h)
		hintSigs[h.Signature] = true
	}

	rest := append([]domain.RosterColumn(nil), pool...)
	sort.Slice(rest, func(i, j int) bool { return rest[i].RosterID < rest[j].RosterID })
	for _, c := range rest {
		if !hintSigs[c.Signature] {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// filterValidHintColumns rejects any hint whose covered set is not a subset
// of the columns actually present in the pool's block universe (spec.md
// §4.3 _filter_valid_hint_columns).
func filterValidHintColumns(hints []domain.RosterColumn, pool []domain.RosterColumn) []domain.RosterColumn {
	universe := make(map[string]bool)
	for _, c := range pool {
		for _, bid := range c.BlockIDs {
			universe[bid] = true
		}
	}
	var out []domain.RosterColumn
	for _, h := range hints {
		ok := true
		for _, bid := range h.BlockIDs {
			if !universe[bid] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RosterID < out[j].RosterID })
	return out
}

func (e *engine) deadlineHit() bool {
	return e.useDeadline && e.timedOut.Load()
}

// dfs picks the first uncovered block and branches over every column
// covering it, in deterministic column order (spec.md §4.3 stage 1: a
// set-partition cover; this entry point never second-guesses coverage
// the caller already fixed).
func (e *engine) dfs(depth int) {
	e.steps++
	if e.useDeadline && e.steps&255 == 0 && e.timedOut.Load() {
		return
	}

	target := e.firstUncovered()
	if target == -1 {
		e.considerIncumbent()
		return
	}

	// Prune: at least one more column is needed, so headcount can't match or
	// beat the incumbent.
	if len(e.selected) >= e.bestHeadcount {
		return
	}

	for _, ci := range e.coverage[target] {
		if e.conflicts(ci) {
			continue
		}
		e.apply(ci)
		e.dfs(depth + 1)
		e.unapply(ci)
	}
}

func (e *engine) firstUncovered() int {
	for i, c := range e.covered {
		if !c {
			return i
		}
	}
	return -1
}

func (e *engine) conflicts(ci int) bool {
	for _, bi := range e.colBlocks[ci] {
		if e.covered[bi] {
			return true
		}
	}
	return false
}

func (e *engine) apply(ci int) {
	e.selected = append(e.selected, ci)
	for _, bi := range e.colBlocks[ci] {
		e.covered[bi] = true
	}
}

func (e *engine) unapply(ci int) {
	e.selected = e.selected[:len(e.selected)-1]
	for _, bi := range e.colBlocks[ci] {
		e.covered[bi] = false
	}
}

// considerIncumbent updates the best-known solution lexicographically:
// fewer columns always wins; ties broken by the Stage-2 weighted objective.
func (e *engine) considerIncumbent() {
	headcount := len(e.selected)
	stage2 := e.stage2Cost()

	better := headcount < e.bestHeadcount ||
		(headcount == e.bestHeadcount && stage2 < e.bestStage2)
	if !e.found || better {
		e.found = true
		e.bestHeadcount = headcount
		e.bestStage2 = stage2
		e.bestSelected = append([]int(nil), e.selected...)
	}
}

// stage2Cost evaluates spec.md §4.3 Stage 2: singleton count, FTE
// under-fill, and PT fragmentation, weighted per domain.Thresholds.
func (e *engine) stage2Cost() float64 {
	var singleton, underfill, ptDays, ptUnderfloor float64
	for _, ci := range e.selected {
		col := e.columns[ci]
		if col.IsSingleton() {
			singleton++
		}
		if col.RosterType == domain.FTE && col.TotalMin < e.th.FTESoftTargetMinMin {
			underfill += float64(e.th.FTESoftTargetMinMin - col.TotalMin)
		}
		if col.RosterType == domain.PT {
			ptDays += float64(col.WorkingDays())
			if col.TotalMin < e.th.PTMinHoursSoftMin {
				ptUnderfloor += float64(e.th.PTMinHoursSoftMin - col.TotalMin)
			}
		}
	}
	return singleton*e.th.WeightSingleton +
		underfill*e.th.WeightUnderfill +
		ptDays*e.th.WeightPTDays +
		ptUnderfloor*e.th.WeightPTUnderfloor
}

// zeroSupportTargets is the cheap half of the relaxed RMP diagnostic of
// spec.md §4.3: blocks with no covering column at all can never be part of
// any cover, independent of which columns get selected elsewhere.
func (e *engine) zeroSupportTargets() []string {
	var out []string
	for i, id := range e.blockIDs {
		if len(e.coverage[i]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// conflictTargets is the other half of the relaxed RMP diagnostic: blocks
// that do have covering columns but can never all be selected together
// because their only columns mutually conflict (two blocks' sole remaining
// candidates always double-cover some third block). This is exactly the
// realistic failure mode in the real pipeline, since GenerateSingletonColumns
// guarantees every block has at least one covering column before the master
// ever runs, making zero-support essentially unreachable.
//
// The check relaxes the master's exact set-partition requirement to
// bipartite matching: assign each target block to one distinct covering
// column (a column may legitimately satisfy several blocks at once, so this
// relaxation is necessarily optimistic). Blocks that can't be matched even
// under that relaxation are reported; anything the relaxation can match is
// not a useful diagnosis target, since the true exact-cover problem is only
// harder than matching, never easier — a matched block may still turn out
// infeasible for reasons the full branch-and-bound alone can reveal.
func (e *engine) conflictTargets() []string {
	matchedBy := make(map[int]int) // column index -> block index currently using it
	matched := make(map[int]bool)
	for bi := range e.blockIDs {
		if len(e.coverage[bi]) == 0 {
			continue // already reported by zeroSupportTargets
		}
		if e.tryAugment(bi, make(map[int]bool), matchedBy) {
			matched[bi] = true
		}
	}

	var out []string
	for i, id := range e.blockIDs {
		if len(e.coverage[i]) > 0 && !matched[i] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// tryAugment is Kuhn's algorithm's augmenting-path step: try to give block
// bi a column of its own, bumping whichever block currently holds a
// contested column to a different one if possible.
func (e *engine) tryAugment(bi int, visited map[int]bool, matchedBy map[int]int) bool {
	for _, ci := range e.coverage[bi] {
		if visited[ci] {
			continue
		}
		visited[ci] = true
		holder, taken := matchedBy[ci]
		if !taken || e.tryAugment(holder, visited, matchedBy) {
			matchedBy[ci] = bi
			return true
		}
	}
	return false
}
