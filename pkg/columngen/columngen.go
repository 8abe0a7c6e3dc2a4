// Package columngen implements the Roster Column Generator (C3, spec.md
// §4.2): an ALNS-style pool builder that grows a set of valid weekly
// RosterColumns, guaranteeing every block is covered by at least one column
// once generate_singleton_columns has run.
package columngen

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

// Generator holds the incremental pool state of spec.md §4.2.
type Generator struct {
	th    domain.Thresholds
	rng   *rand.Rand
	blocks map[string]domain.Block

	pool          map[string]domain.RosterColumn // signature -> column
	blockToRosters map[string]map[string]bool     // block_id -> set of signatures
	conflictScore  map[string]int                  // block_id -> overlap count

	nextRosterNum int
}

// New builds a Generator over the given block set. blocks must already be
// validated individually (domain.Block.Validate).
func New(blocks []domain.Block, seed uint32, th domain.Thresholds) *Generator {
	g := &Generator{
		th:             th,
		rng:            rand.New(rand.NewSource(int64(seed))),
		blocks:         make(map[string]domain.Block, len(blocks)),
		pool:           make(map[string]domain.RosterColumn),
		blockToRosters: make(map[string]map[string]bool),
		conflictScore:  make(map[string]int, len(blocks)),
	}
	for _, b := range blocks {
		g.blocks[b.ID] = b
	}
	g.computeConflictScores(blocks)
	return g
}

func (g *Generator) computeConflictScores(blocks []domain.Block) {
	for _, a := range blocks {
		count := 0
		for _, b := range blocks {
			if a.ID == b.ID || a.Day != b.Day {
				continue
			}
			if blockOverlaps(a, b) {
				count++
			}
		}
		g.conflictScore[a.ID] = count
	}
}

func blockOverlaps(a, b domain.Block) bool {
	for _, t1 := range a.Tours {
		for _, t2 := range b.Tours {
			if t1.Overlaps(t2) {
				return true
			}
		}
	}
	return false
}

func (g *Generator) nextRosterID() string {
	id := fmt.Sprintf("R%06d", g.nextRosterNum)
	g.nextRosterNum++
	return id
}

// Pool returns the current pool contents sorted by RosterID for stable
// iteration.
func (g *Generator) Pool() []domain.RosterColumn {
	out := make([]domain.RosterColumn, 0, len(g.pool))
	for _, c := range g.pool {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RosterID < out[j].RosterID })
	return out
}

// admit inserts a column into the pool if its signature is new and the pool
// has room, updating block_to_rosters. Returns true if admitted.
func (g *Generator) admit(blockIDs []string, rosterType domain.RosterType) (domain.RosterColumn, bool) {
	if len(g.pool) >= g.th.PoolCap {
		return domain.RosterColumn{}, false
	}
	col, ok := g.buildColumn(blockIDs, rosterType)
	if !ok || !col.IsValid {
		return domain.RosterColumn{}, false
	}
	if _, exists := g.pool[col.Signature]; exists {
		return domain.RosterColumn{}, false
	}
	col.RosterID = g.nextRosterID()
	g.pool[col.Signature] = col
	for _, bid := range col.BlockIDs {
		if g.blockToRosters[bid] == nil {
			g.blockToRosters[bid] = make(map[string]bool)
		}
		g.blockToRosters[bid][col.Signature] = true
	}
	return col, true
}

// buildColumn assembles a RosterColumn from a block-ID set, validating hard
// constraints and computing the dedup signature (spec.md §4.2).
func (g *Generator) buildColumn(blockIDs []string, rosterType domain.RosterType) (domain.RosterColumn, bool) {
	sorted := append([]string(nil), blockIDs...)
	sort.Strings(sorted)

	var totalMin int
	var dayCount [7]int
	dayStats := make(map[domain.Weekday]*domain.DayStat)
	var coveredTours []string
	var violations []string

	for _, bid := range sorted {
		b, ok := g.blocks[bid]
		if !ok {
			violations = append(violations, fmt.Sprintf("unknown block %s", bid))
			continue
		}
		totalMin += b.TotalWorkMin
		dayCount[b.Day]++
		ds, ok := dayStats[b.Day]
		if !ok {
			ds = &domain.DayStat{Day: b.Day, FirstStart: b.FirstStart, LastEnd: b.LastEnd}
			dayStats[b.Day] = ds
		}
		ds.ToursCount += len(b.Tours)
		if b.FirstStart < ds.FirstStart {
			ds.FirstStart = b.FirstStart
		}
		if b.LastEnd > ds.LastEnd {
			ds.LastEnd = b.LastEnd
		}
		coveredTours = append(coveredTours, b.TourIDs()...)
	}
	sort.Strings(coveredTours)

	var stats []domain.DayStat
	for _, ds := range dayStats {
		stats = append(stats, *ds)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Day < stats[j].Day })

	col := domain.RosterColumn{
		BlockIDs:       sorted,
		CoveredTourIDs: coveredTours,
		TotalMin:       totalMin,
		DayStats:       stats,
		RosterType:     rosterType,
	}
	col.Signature = domain.Signature(sorted, totalMin, dayCount, rosterType)

	maxMin := col.HardMaxMin(g.th)
	if totalMin > maxMin {
		violations = append(violations, fmt.Sprintf("total_min %d exceeds %d", totalMin, maxMin))
	}
	for _, ds := range stats {
		if ds.ToursCount > g.th.MaxToursPerDay {
			violations = append(violations, fmt.Sprintf("day %s has %d tours", ds.Day, ds.ToursCount))
		}
	}
	if err := g.checkRestAndOverlap(sorted); err != nil {
		violations = append(violations, err.Error())
	}

	col.Violations = violations
	col.IsValid = len(violations) == 0
	return col, true
}

// checkRestAndOverlap enforces same-day overlap and inter-day rest (spec.md
// §4.2 can_add_block_to_roster checks 1, 4, 5, 6), evaluated over the whole
// block set at once.
func (g *Generator) checkRestAndOverlap(blockIDs []string) error {
	byDay := make(map[domain.Weekday][]domain.Block)
	for _, bid := range blockIDs {
		b := g.blocks[bid]
		byDay[b.Day] = append(byDay[b.Day], b)
	}
	for day, blocks := range byDay {
		if len(blocks) > 1 {
			return fmt.Errorf("multiple blocks on day %s", day)
		}
	}

	var days []domain.Weekday
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	for i := 0; i+1 < len(days); i++ {
		d1, d2 := days[i], days[i+1]
		if int(d2)-int(d1) != 1 {
			continue // not consecutive calendar days, no rest constraint applies
		}
		b1 := byDay[d1][0]
		b2 := byDay[d2][0]
		rest := b2.FirstStart + 1440 - b1.LastEnd
		minRest := g.th.RestMinMin
		if b1.IsHeavy(g.th) || b2.IsHeavy(g.th) {
			minRest = g.th.HeavyRestMinMin
		}
		if rest < minRest {
			return fmt.Errorf("rest %d between day %s and %s below minimum %d", rest, d1, d2, minRest)
		}
		if b1.IsHeavy(g.th) && len(b2.Tours) > g.th.NextDayAfterHeavyMaxTours {
			return fmt.Errorf("day %s after heavy day %s has %d tours", d2, d1, len(b2.Tours))
		}
	}
	return nil
}

// canAddBlockToRoster runs the six ordered checks of spec.md §4.2 for
// inserting candidate into the block set already chosen for partial.
func (g *Generator) canAddBlockToRoster(partial []string, candidate domain.Block, rosterType domain.RosterType) bool {
	for _, bid := range partial {
		b := g.blocks[bid]
		if b.Day == candidate.Day {
			return false
		}
	}
	trial := append(append([]string(nil), partial...), candidate.ID)
	col, ok := g.buildColumn(trial, rosterType)
	return ok && col.IsValid
}

// GenerateSingletonColumns admits one column per block as the
// emergency-feasibility floor (spec.md §4.2).
func (g *Generator) GenerateSingletonColumns() int {
	ids := make([]string, 0, len(g.blocks))
	for id := range g.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	admitted := 0
	for _, id := range ids {
		if _, ok := g.admit([]string{id}, domain.FTE); ok {
			admitted++
		}
	}
	return admitted
}

// GenerateInitialPool runs build-from-seed from every block until the pool
// reaches targetSize or every block has been tried as a seed once.
func (g *Generator) GenerateInitialPool(targetSize int) int {
	admitted := 0
	ids := g.sortedBlockIDs()
	for _, seed := range ids {
		if len(g.pool) >= targetSize {
			break
		}
		if g.buildFromSeed(seed, domain.FTE) {
			admitted++
		}
	}
	return admitted
}

// GeneratePTPool runs build-from-seed aiming at the PT ceiling instead of
// the FTE band.
func (g *Generator) GeneratePTPool(targetSize int) int {
	admitted := 0
	ids := g.sortedBlockIDs()
	for _, seed := range ids {
		if len(g.pool) >= targetSize {
			break
		}
		if g.buildFromSeed(seed, domain.PT) {
			admitted++
		}
	}
	return admitted
}

func (g *Generator) sortedBlockIDs() []string {
	ids := make([]string, 0, len(g.blocks))
	for id := range g.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// buildFromSeed is ALNS move 1 (spec.md §4.2): greedily extend from one seed
// block, sorted by (is_uncovered, -conflict_score, -work_min), until total_min
// lands in the soft target band or no further insertion is feasible.
func (g *Generator) buildFromSeed(seedBlockID string, rosterType domain.RosterType) bool {
	targetMin := g.th.FTESoftTargetMinMin + g.rng.Intn(g.th.FTESoftTargetMaxMin-g.th.FTESoftTargetMinMin+1)
	if rosterType == domain.PT {
		targetMin = g.th.PTMinHoursSoftMin + g.rng.Intn(g.th.PTMaxMin-g.th.PTMinHoursSoftMin+1)
	}

	chosen := []string{seedBlockID}
	totalMin := g.blocks[seedBlockID].TotalWorkMin

	for totalMin < targetMin {
		cand := g.bestCandidate(chosen)
		if cand == "" {
			break
		}
		chosen = append(chosen, cand)
		totalMin += g.blocks[cand].TotalWorkMin
	}

	_, ok := g.admit(chosen, rosterType)
	return ok
}

func (g *Generator) bestCandidate(chosen []string) string {
	chosenSet := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		chosenSet[id] = true
	}

	type scored struct {
		id          string
		uncovered   bool
		conflict    int
		workMin     int
	}
	var cands []scored
	for id, b := range g.blocks {
		if chosenSet[id] {
			continue
		}
		if !g.canAddBlockToRoster(chosen, b, domain.FTE) {
			continue
		}
		uncovered := len(g.blockToRosters[id]) == 0
		cands = append(cands, scored{id: id, uncovered: uncovered, conflict: g.conflictScore[id], workMin: b.TotalWorkMin})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].uncovered != cands[j].uncovered {
			return cands[i].uncovered
		}
		if cands[i].conflict != cands[j].conflict {
			return cands[i].conflict > cands[j].conflict
		}
		if cands[i].workMin != cands[j].workMin {
			return cands[i].workMin > cands[j].workMin
		}
		return cands[i].id < cands[j].id
	})
	return cands[0].id
}

// GenerateColumns runs rounds of repair-uncovered, swap-builder, and
// targeted diversification, returning the count of newly admitted columns
// (spec.md §4.2 moves 2, 3, 4).
func (g *Generator) GenerateColumns(rounds, perRound int) int {
	admitted := 0
	for r := 0; r < rounds; r++ {
		admitted += g.repairUncovered(perRound)
		admitted += g.swapBuilder(perRound)
		admitted += g.Diversify(g.UncoveredBlocks(), g.HighConflictBlocks(), domain.FTE)
	}
	return admitted
}

// repairUncovered is ALNS move 2: build from every currently-uncovered block.
func (g *Generator) repairUncovered(limit int) int {
	var uncovered []string
	for id := range g.blocks {
		if len(g.blockToRosters[id]) == 0 {
			uncovered = append(uncovered, id)
		}
	}
	sort.Strings(uncovered)

	admitted := 0
	for _, id := range uncovered {
		if admitted >= limit {
			break
		}
		if g.buildFromSeed(id, domain.FTE) {
			admitted++
		}
	}
	return admitted
}

// swapBuilder is ALNS move 3: pick two pool members and swap one block
// between them, emitting any resulting columns that remain valid.
func (g *Generator) swapBuilder(limit int) int {
	cols := g.Pool()
	admitted := 0
	for i := 0; i+1 < len(cols) && admitted < limit; i++ {
		a, b := cols[i], cols[i+1]
		if len(a.BlockIDs) == 0 || len(b.BlockIDs) == 0 {
			continue
		}
		aSwap := append(append([]string(nil), a.BlockIDs[1:]...), b.BlockIDs[0])
		bSwap := append(append([]string(nil), b.BlockIDs[1:]...), a.BlockIDs[0])

		if _, ok := g.admit(aSwap, a.RosterType); ok {
			admitted++
		}
		if _, ok := g.admit(bSwap, b.RosterType); ok {
			admitted++
		}
	}
	return admitted
}

// HighConflictBlocks returns the blocks whose conflict_score puts them in
// the top quartile of the set, the avoid-set that targeted diversification
// (move 4) steers away from so the pool doesn't keep re-threading the same
// collision-prone blocks into every new column.
func (g *Generator) HighConflictBlocks() map[string]bool {
	type scored struct {
		id    string
		score int
	}
	all := make([]scored, 0, len(g.blocks))
	for id := range g.blocks {
		all = append(all, scored{id, g.conflictScore[id]})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})
	n := len(all) / 4
	out := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		out[all[i].id] = true
	}
	return out
}

// Diversify is ALNS move 4, targeted diversification (spec.md §4.2): for
// each block in targets, grows a fresh column using rarity-weighted
// candidate selection, preferring blocks with the lowest conflict_score and
// discounting anything in avoid, so the pool gains columns built from a
// different part of the block graph than moves 1-3 tend to produce.
// Returns the count of newly admitted columns.
func (g *Generator) Diversify(targets []string, avoid map[string]bool, rosterType domain.RosterType) int {
	admitted := 0
	for _, seed := range targets {
		if g.buildDiversified(seed, avoid, rosterType) {
			admitted++
		}
	}
	return admitted
}

func (g *Generator) buildDiversified(seedBlockID string, avoid map[string]bool, rosterType domain.RosterType) bool {
	targetMin := g.th.FTESoftTargetMinMin + g.rng.Intn(g.th.FTESoftTargetMaxMin-g.th.FTESoftTargetMinMin+1)
	if rosterType == domain.PT {
		targetMin = g.th.PTMinHoursSoftMin + g.rng.Intn(g.th.PTMaxMin-g.th.PTMinHoursSoftMin+1)
	}

	chosen := []string{seedBlockID}
	totalMin := g.blocks[seedBlockID].TotalWorkMin

	for totalMin < targetMin {
		cand := g.rarestCandidate(chosen, avoid, rosterType)
		if cand == "" {
			break
		}
		chosen = append(chosen, cand)
		totalMin += g.blocks[cand].TotalWorkMin
	}

	_, ok := g.admit(chosen, rosterType)
	return ok
}

// rarestCandidate ranks feasible extensions of chosen by rarity =
// 1 / (conflict_score + 1), discounting anything in avoid by an order of
// magnitude so it is picked only when nothing else fits.
func (g *Generator) rarestCandidate(chosen []string, avoid map[string]bool, rosterType domain.RosterType) string {
	chosenSet := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		chosenSet[id] = true
	}

	type scored struct {
		id      string
		rarity  float64
		workMin int
	}
	var cands []scored
	for id, b := range g.blocks {
		if chosenSet[id] {
			continue
		}
		if !g.canAddBlockToRoster(chosen, b, rosterType) {
			continue
		}
		rarity := 1.0 / float64(g.conflictScore[id]+1)
		if avoid[id] {
			rarity *= 0.1
		}
		cands = append(cands, scored{id: id, rarity: rarity, workMin: b.TotalWorkMin})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].rarity != cands[j].rarity {
			return cands[i].rarity > cands[j].rarity
		}
		if cands[i].workMin != cands[j].workMin {
			return cands[i].workMin > cands[j].workMin
		}
		return cands[i].id < cands[j].id
	})
	return cands[0].id
}

// SeedFromGreedy admits columns reproducing a known-feasible greedy
// solution, grouped by driver (spec.md §4.2 seed_from_greedy).
func (g *Generator) SeedFromGreedy(driverBlockIDs map[string][]string, rosterTypeOf func(driverID string) domain.RosterType) int {
	drivers := make([]string, 0, len(driverBlockIDs))
	for d := range driverBlockIDs {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)

	admitted := 0
	for _, d := range drivers {
		rt := domain.FTE
		if rosterTypeOf != nil {
			rt = rosterTypeOf(d)
		}
		if _, ok := g.admit(driverBlockIDs[d], rt); ok {
			admitted++
		}
	}
	return admitted
}

// UncoveredBlocks returns, in sorted order, every block ID covered by no
// pool column.
func (g *Generator) UncoveredBlocks() []string {
	var out []string
	for id := range g.blocks {
		if len(g.blockToRosters[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
