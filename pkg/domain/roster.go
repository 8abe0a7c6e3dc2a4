package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// RosterType tags a column as full-time or part-time (spec.md §9 Open
// Question #2: a plain tag, never a hard-constraint discriminator beyond
// the FTE/PT minute ceilings themselves).
type RosterType string

const (
	FTE RosterType = "FTE"
	PT  RosterType = "PT"
)

// DayStat summarizes one working day within a roster column.
type DayStat struct {
	Day        Weekday
	ToursCount int
	FirstStart int
	LastEnd int
}

// RosterColumn is a candidate weekly schedule for one driver, composed of
// blocks, satisfying all hard constraints when IsValid is true.
type RosterColumn struct {
	RosterID       string
	BlockIDs       []string // sorted set
	CoveredTourIDs []string // sorted set
	TotalMin       int
	DayStats       []DayStat
	RosterType     RosterType
	IsValid        bool
	Violations     []string
	Signature      string
}

// Signature computes the canonical dedup tuple of spec.md §4.2: sorted
// block IDs, total minutes, per-day tour counts (in day order), and the
// roster type.
func Signature(blockIDs []string, totalMin int, dayTourCounts [7]int, rosterType RosterType) string {
	sorted := append([]string(nil), blockIDs...)
	sort.Strings(sorted)
	var sb strings.Builder
	sb.WriteString(strings.Join(sorted, ","))
	fmt.Fprintf(&sb, "|%d|", totalMin)
	for _, c := range dayTourCounts {
		fmt.Fprintf(&sb, "%d,", c)
	}
	sb.WriteString("|")
	sb.WriteString(string(rosterType))

	h := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(h[:])[:24]
}

// HardMaxMin returns the hard ceiling for this column's roster type: 55h
// for FTE, 40h for PT (spec.md §3 invariant 5).
func (r RosterColumn) HardMaxMin(th Thresholds) int {
	if r.RosterType == PT {
		return th.PTMaxMin
	}
	return th.FTEMaxMin
}

// CoversBlock reports whether the column's block set includes id.
func (r RosterColumn) CoversBlock(id string) bool {
	for _, b := range r.BlockIDs {
		if b == id {
			return true
		}
	}
	return false
}

// IsSingleton reports whether the column covers exactly one block —
// singleton columns are penalized heavily in the Stage-2 objective
// (spec.md §4.3) and exist as the emergency-feasibility floor (spec.md §4.2).
func (r RosterColumn) IsSingleton() bool {
	return len(r.BlockIDs) == 1
}

// WorkingDays returns the number of distinct days with at least one tour.
func (r RosterColumn) WorkingDays() int {
	n := 0
	for _, ds := range r.DayStats {
		if ds.ToursCount > 0 {
			n++
		}
	}
	return n
}
