// Package repair implements the Repair Orchestrator (C8, spec.md §4.8):
// given a published plan and a list of absent drivers, produce top-K repair
// proposals ranked by disruption. Candidate scoring for independent
// impacted tours fans out concurrently via errgroup — the one place in the
// pipeline parallelism is safe, since proposal generation never needs to be
// bit-reproducible the way a solve does.
package repair

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nimbusline/rosterctl/pkg/audit"
	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

// ValidationMode controls how thoroughly a proposal is checked before
// ranking (spec.md §4.8 step 6).
type ValidationMode string

const (
	ValidationNone ValidationMode = "none"
	ValidationFast ValidationMode = "fast"
	ValidationFull ValidationMode = "full"
)

// Family tags which proposal shape produced a Proposal.
type Family string

const (
	FamilyNoSplit   Family = "OPTION_A_NO_SPLIT"
	FamilySplit     Family = "OPTION_B_SPLIT"
	FamilyChainSwap Family = "OPTION_C_CHAIN_SWAP"
)

// Proposal is one candidate repair.
type Proposal struct {
	Family                Family
	Reassignments         map[string]string // tour_instance_id -> new driver_id
	ImpactedToursCount    int
	ImpactedAssignedCount int
	CoveragePercent       float64
	HardViolations        int
	ChurnToursReassigned  int
	CostScore             float64
	ViolationsValidated   bool
}

// CandidateScore ranks one eligible driver for one impacted tour.
type CandidateScore struct {
	DriverID    string
	ExtraDays   int
	AddedHours  float64
	NewDay      bool
	TightRest   bool
	Disruption  float64
}

// Input bundles everything the orchestrator needs for one repair run.
type Input struct {
	BaselineSnapshot domain.PlanSnapshot
	AbsentDriverIDs  []string
	NowMinuteOfEpoch int // current time expressed in the same minute clock as tour start times, for freeze-horizon checks
	FreezeHorizonMin int
	Th               domain.Thresholds
	DriverSchedules  map[string][]domain.Assignment // every active driver's current week, keyed by driver ID
	ForecastTours    []domain.Tour                  // only needed when GenerateProposals is called with a ValidationMode other than ValidationNone
}

// ImpactedTours returns every assignment currently held by an absent driver
// (spec.md §4.8 step 2).
func ImpactedTours(in Input) []domain.Assignment {
	absent := make(map[string]bool, len(in.AbsentDriverIDs))
	for _, d := range in.AbsentDriverIDs {
		absent[d] = true
	}
	var out []domain.Assignment
	for _, a := range in.BaselineSnapshot.AssignmentsSnapshot {
		if absent[a.DriverID] {
			out = append(out, a)
		}
	}
	return out
}

// IsFrozen reports whether a tour's start falls inside the freeze horizon
// measured from now (spec.md §4.8 step 3): start_time - now <= horizon.
func IsFrozen(startMin, nowMinuteOfEpoch, freezeHorizonMin int) bool {
	return startMin-nowMinuteOfEpoch <= freezeHorizonMin
}

func isFrozen(a domain.Assignment, in Input) bool {
	return IsFrozen(a.StartMin, in.NowMinuteOfEpoch, in.FreezeHorizonMin)
}

// FindCandidates runs the candidate finder for one impacted tour: eligible
// drivers are active, not absent, respect rest against both neighbors,
// respect the daily tour count cap, and have no overlap (spec.md §4.8 step 4).
func FindCandidates(tour domain.Assignment, in Input) []CandidateScore {
	absent := make(map[string]bool, len(in.AbsentDriverIDs))
	for _, d := range in.AbsentDriverIDs {
		absent[d] = true
	}

	var drivers []string
	for d := range in.DriverSchedules {
		if !absent[d] {
			drivers = append(drivers, d)
		}
	}
	sort.Strings(drivers)

	var out []CandidateScore
	for _, d := range drivers {
		sched := in.DriverSchedules[d]
		if !eligible(d, tour, sched, in.Th) {
			continue
		}
		out = append(out, score(d, tour, sched, in.Th))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Disruption < out[j].Disruption })
	return out
}

func eligible(driverID string, tour domain.Assignment, sched []domain.Assignment, th domain.Thresholds) bool {
	dayCount := 0
	for _, a := range sched {
		if a.Day == tour.Day {
			dayCount++
			if assignmentsOverlap(a, tour) {
				return false
			}
		}
	}
	if dayCount >= th.MaxToursPerDay {
		return false
	}
	return restRespected(tour, sched, th)
}

func assignmentsOverlap(a, b domain.Assignment) bool {
	aEnd, bEnd := a.EndMin, b.EndMin
	if a.CrossesMidnight {
		aEnd += 1440
	}
	if b.CrossesMidnight {
		bEnd += 1440
	}
	return a.StartMin < bEnd && b.StartMin < aEnd
}

func restRespected(tour domain.Assignment, sched []domain.Assignment, th domain.Thresholds) bool {
	for _, a := range sched {
		if a.Day == tour.Day {
			continue
		}
		if int(a.Day)-int(tour.Day) == 1 || int(tour.Day)-int(a.Day) == 1 {
			var earlier, later domain.Assignment
			if a.Day < tour.Day {
				earlier, later = a, tour
			} else {
				earlier, later = tour, a
			}
			end := earlier.EndMin
			if earlier.CrossesMidnight {
				end += 1440
			}
			rest := later.StartMin + 1440 - end
			if rest < th.RestMinMin {
				return false
			}
		}
	}
	return true
}

func score(driverID string, tour domain.Assignment, sched []domain.Assignment, th domain.Thresholds) CandidateScore {
	newDay := true
	for _, a := range sched {
		if a.Day == tour.Day {
			newDay = false
		}
	}
	addedHours := float64(tour.EndMin-tour.StartMin) / 60.0
	disruption := addedHours
	if newDay {
		disruption += 10
	}
	return CandidateScore{
		DriverID:   driverID,
		NewDay:     newDay,
		AddedHours: addedHours,
		Disruption: disruption,
	}
}

// GenerateProposals runs candidate scoring for every impacted tour
// concurrently (errgroup), then assembles Option A/B/C proposals from the
// per-tour candidate rankings (spec.md §4.8 steps 4-5), validating each one
// against the audit engine at the requested strength (step 6).
func GenerateProposals(ctx context.Context, in Input, mode ValidationMode) ([]Proposal, error) {
	impacted := ImpactedTours(in)
	for _, t := range impacted {
		if isFrozen(t, in) {
			return nil, rosterr.New(rosterr.FreezeViolation, "impacted tour "+t.TourInstanceID+" is inside the freeze horizon")
		}
	}

	candidatesByTour := make([][]CandidateScore, len(impacted))
	g, _ := errgroup.WithContext(ctx)
	for i, t := range impacted {
		i, t := i, t
		g.Go(func() error {
			candidatesByTour[i] = FindCandidates(t, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var proposals []Proposal
	if p, ok := buildNoSplit(impacted, candidatesByTour); ok {
		proposals = append(proposals, p)
	}
	if p, ok := buildSplit(impacted, candidatesByTour); ok {
		proposals = append(proposals, p)
	}
	if p, ok := buildChainSwap(impacted, candidatesByTour, in); ok {
		proposals = append(proposals, p)
	}

	if mode != ValidationNone {
		for i := range proposals {
			validate(&proposals[i], in, mode)
		}
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].HardViolations != proposals[j].HardViolations {
			return proposals[i].HardViolations < proposals[j].HardViolations
		}
		if proposals[i].ChurnToursReassigned != proposals[j].ChurnToursReassigned {
			return proposals[i].ChurnToursReassigned < proposals[j].ChurnToursReassigned
		}
		return proposals[i].CostScore < proposals[j].CostScore
	})
	return proposals, nil
}

// fastChecks is the cheap subset ValidationFast runs: the two checks a bad
// reassignment is most likely to break. ValidationFull runs audit.Run's
// complete seven-check suite.
var fastChecks = map[domain.AuditCheckName]bool{
	domain.CheckOverlap: true,
	domain.CheckRest:    true,
}

// validate applies a proposal's reassignments to the baseline schedule and
// runs the audit engine against the result, populating HardViolations and
// ViolationsValidated (spec.md §4.8 step 6).
func validate(p *Proposal, in Input, mode ValidationMode) {
	resulting := applyReassignments(in.BaselineSnapshot.AssignmentsSnapshot, p.Reassignments)
	results := audit.Run(in.ForecastTours, resulting, in.Th)

	hard := 0
	for _, r := range results {
		if mode == ValidationFast && !fastChecks[r.Check] {
			continue
		}
		if r.Status == domain.Fail {
			hard += r.ViolationCount
		}
	}
	p.HardViolations = hard
	p.ViolationsValidated = true
}

// applyReassignments produces the schedule a proposal would yield: every
// assignment in baseline keeps its driver unless reassign names a new one
// for its tour instance.
func applyReassignments(baseline []domain.Assignment, reassign map[string]string) []domain.Assignment {
	out := make([]domain.Assignment, len(baseline))
	for i, a := range baseline {
		if newDriver, ok := reassign[a.TourInstanceID]; ok {
			a.DriverID = newDriver
		}
		out[i] = a
	}
	return out
}

// buildNoSplit is Option A: a single substitute driver takes every impacted
// tour, chosen as whoever is the top candidate for the most of them.
func buildNoSplit(impacted []domain.Assignment, candidates [][]CandidateScore) (Proposal, bool) {
	if len(impacted) == 0 {
		return Proposal{}, false
	}
	tally := make(map[string]int)
	for _, cands := range candidates {
		if len(cands) > 0 {
			tally[cands[0].DriverID]++
		}
	}
	var best string
	bestCount := -1
	for d, c := range tally {
		if c > bestCount || (c == bestCount && d < best) {
			best, bestCount = d, c
		}
	}
	if best == "" {
		return Proposal{}, false
	}

	reassign := make(map[string]string, len(impacted))
	assigned := 0
	var cost float64
	for i, t := range impacted {
		for _, c := range candidates[i] {
			if c.DriverID == best {
				reassign[t.TourInstanceID] = best
				assigned++
				cost += c.Disruption
				break
			}
		}
	}
	return proposalFrom(FamilyNoSplit, impacted, reassign, assigned, cost), true
}

// buildSplit is Option B: each impacted tour independently takes its own
// top candidate, distributing load across multiple drivers.
func buildSplit(impacted []domain.Assignment, candidates [][]CandidateScore) (Proposal, bool) {
	if len(impacted) == 0 {
		return Proposal{}, false
	}
	reassign := make(map[string]string, len(impacted))
	assigned := 0
	var cost float64
	for i, t := range impacted {
		if len(candidates[i]) == 0 {
			continue
		}
		c := candidates[i][0]
		reassign[t.TourInstanceID] = c.DriverID
		assigned++
		cost += c.Disruption
	}
	return proposalFrom(FamilySplit, impacted, reassign, assigned, cost), true
}

// buildChainSwap is Option C: a depth-2 cascading chain swap. For an
// impacted tour whose only block is a driver otherwise blocked solely by the
// daily tour-count cap, it looks for one of that driver's own same-day tours
// that some other, currently-eligible driver could take instead, freeing the
// capacity the impacted tour needs. When no such chain exists it falls back
// to the second-ranked candidate (the top one when only one exists), so its
// pick differs from Option B's.
func buildChainSwap(impacted []domain.Assignment, candidates [][]CandidateScore, in Input) (Proposal, bool) {
	if len(impacted) == 0 {
		return Proposal{}, false
	}
	reassign := make(map[string]string, len(impacted))
	assigned := 0
	var cost float64
	for i, t := range impacted {
		cands := candidates[i]

		if driverID, victim, substitute, ok := findChain(t, in, reassign); ok {
			reassign[t.TourInstanceID] = driverID
			reassign[victim.TourInstanceID] = substitute
			assigned++
			cost += float64(t.EndMin-t.StartMin)/60.0 + float64(victim.EndMin-victim.StartMin)/60.0
			continue
		}

		if len(cands) == 0 {
			continue
		}
		pick := cands[0]
		if len(cands) > 1 {
			pick = cands[1]
		}
		reassign[t.TourInstanceID] = pick.DriverID
		assigned++
		cost += pick.Disruption
	}
	return proposalFrom(FamilyChainSwap, impacted, reassign, assigned, cost), true
}

// dayCapBlocked reports whether driverID is blocked from taking tour solely
// by the daily tour-count cap (no overlap, rest respected), and if so
// returns that driver's schedule for the tour's day.
func dayCapBlocked(driverID string, tour domain.Assignment, sched []domain.Assignment, th domain.Thresholds) (bool, []domain.Assignment) {
	var sameDay []domain.Assignment
	for _, a := range sched {
		if a.Day == tour.Day {
			if assignmentsOverlap(a, tour) {
				return false, nil
			}
			sameDay = append(sameDay, a)
		}
	}
	if len(sameDay) < th.MaxToursPerDay {
		return false, nil // not actually day-cap blocked
	}
	if !restRespected(tour, sched, th) {
		return false, nil
	}
	return true, sameDay
}

// findChain looks for a depth-2 chain freeing capacity for tour: a driver
// otherwise eligible except for the day cap, one of whose own same-day
// tours a third, currently-eligible driver can pick up instead.
func findChain(tour domain.Assignment, in Input, alreadyReassigned map[string]string) (driverID string, victim domain.Assignment, substitute string, ok bool) {
	absent := make(map[string]bool, len(in.AbsentDriverIDs))
	for _, d := range in.AbsentDriverIDs {
		absent[d] = true
	}

	var drivers []string
	for d := range in.DriverSchedules {
		if !absent[d] {
			drivers = append(drivers, d)
		}
	}
	sort.Strings(drivers)

	for _, d := range drivers {
		sched := in.DriverSchedules[d]
		blocked, sameDay := dayCapBlocked(d, tour, sched, in.Th)
		if !blocked {
			continue
		}
		for _, candidateVictim := range sameDay {
			if _, taken := alreadyReassigned[candidateVictim.TourInstanceID]; taken {
				continue
			}
			for _, d2 := range drivers {
				if d2 == d {
					continue
				}
				sched2 := in.DriverSchedules[d2]
				if eligible(d2, candidateVictim, sched2, in.Th) {
					return d, candidateVictim, d2, true
				}
			}
		}
	}
	return "", domain.Assignment{}, "", false
}

func proposalFrom(family Family, impacted []domain.Assignment, reassign map[string]string, assigned int, cost float64) Proposal {
	coverage := 0.0
	if len(impacted) > 0 {
		coverage = 100.0 * float64(assigned) / float64(len(impacted))
	}
	return Proposal{
		Family:                family,
		Reassignments:         reassign,
		ImpactedToursCount:    len(impacted),
		ImpactedAssignedCount: assigned,
		CoveragePercent:       coverage,
		ChurnToursReassigned:  assigned,
		CostScore:             cost,
	}
}
