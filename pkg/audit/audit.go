// Package audit implements the Audit Engine (C6, spec.md §4.5): the seven
// canonical checks over a solved plan, their near-violation warning
// variants, and the can_release publish gate. The failure-dominates /
// unknown-dominates rollup follows the same shape as the result-tree status
// aggregation used elsewhere in the corpus for rolling up plugin results,
// generalized here from pass/fail/unknown to PASS/WARN/FAIL.
package audit

import (
	"fmt"
	"sort"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

// Run executes all seven canonical checks plus their near-violation
// variants against a solved assignment set.
func Run(forecastTours []domain.Tour, assignments []domain.Assignment, th domain.Thresholds) []domain.AuditResult {
	results := []domain.AuditResult{
		coverage(forecastTours, assignments),
		overlap(assignments),
		rest(assignments, th),
		spanRegular(assignments, th),
		spanSplit(assignments, th),
		fatigue(assignments, th),
		weeklyHours(assignments, th),
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Check < results[j].Check })
	return results
}

// CanRelease is spec.md §4.5's publish gate: false if any check is FAIL;
// WARN results do not block a release.
func CanRelease(results []domain.AuditResult) bool {
	for _, r := range results {
		if r.Status == domain.Fail {
			return false
		}
	}
	return true
}

func coverage(forecastTours []domain.Tour, assignments []domain.Assignment) domain.AuditResult {
	counts := make(map[string]int, len(forecastTours))
	for _, t := range forecastTours {
		counts[t.ID] = 0
	}
	for _, a := range assignments {
		counts[a.TourInstanceID]++
	}

	var violations []string
	for id, n := range counts {
		if n != 1 {
			violations = append(violations, fmt.Sprintf("tour %s has %d assignments", id, n))
		}
	}
	sort.Strings(violations)
	return result(domain.CheckCoverage, violations)
}

func overlap(assignments []domain.Assignment) domain.AuditResult {
	type key struct {
		driver string
		day    domain.Weekday
	}
	byKey := make(map[key][]domain.Assignment)
	for _, a := range assignments {
		k := key{a.DriverID, a.Day}
		byKey[k] = append(byKey[k], a)
	}

	var violations []string
	for k, group := range byKey {
		sort.Slice(group, func(i, j int) bool { return group[i].StartMin < group[j].StartMin })
		for i := 0; i+1 < len(group); i++ {
			end := group[i].EndMin
			if group[i].CrossesMidnight {
				end += 1440
			}
			if end > group[i+1].StartMin {
				violations = append(violations, fmt.Sprintf("driver %s day %s: %s overlaps %s", k.driver, k.day, group[i].TourInstanceID, group[i+1].TourInstanceID))
			}
		}
	}
	sort.Strings(violations)
	return result(domain.CheckOverlap, violations)
}

// dayExtent is one driver's earliest-start/latest-end span for one day,
// plus the block type governing which span cap applies.
type dayExtent struct {
	first, last int
	blockType   domain.BlockType
}

func perDriverDayExtent(assignments []domain.Assignment) map[string]map[domain.Weekday]dayExtent {
	out := make(map[string]map[domain.Weekday]dayExtent)
	for _, a := range assignments {
		if out[a.DriverID] == nil {
			out[a.DriverID] = make(map[domain.Weekday]dayExtent)
		}
		end := a.EndMin
		if a.CrossesMidnight {
			end += 1440
		}
		e, ok := out[a.DriverID][a.Day]
		if !ok {
			e = dayExtent{first: a.StartMin, last: end, blockType: a.BlockType}
		}
		if a.StartMin < e.first {
			e.first = a.StartMin
		}
		if end > e.last {
			e.last = end
		}
		out[a.DriverID][a.Day] = e
	}
	return out
}

func rest(assignments []domain.Assignment, th domain.Thresholds) domain.AuditResult {
	extents := perDriverDayExtent(assignments)
	var violations, warnings []string

	drivers := sortedKeys(extents)
	for _, d := range drivers {
		days := sortedDayKeys(extents[d])
		for i := 0; i+1 < len(days); i++ {
			d1, d2 := days[i], days[i+1]
			if int(d2)-int(d1) != 1 {
				continue
			}
			e1, e2 := extents[d][d1], extents[d][d2]
			r := e2.first + 1440 - e1.last
			minRest := th.RestMinMin
			if isHeavy(e1.blockType, th) || isHeavy(e2.blockType, th) {
				minRest = th.HeavyRestMinMin
			}
			switch {
			case r < minRest:
				violations = append(violations, fmt.Sprintf("driver %s: rest %d between day %s and %s below %d", d, r, d1, d2, minRest))
			case r < minRest+th.NearViolationRestBandMin:
				warnings = append(warnings, fmt.Sprintf("driver %s: rest %d between day %s and %s near the %d floor", d, r, d1, d2, minRest))
			}
		}
	}
	sort.Strings(violations)
	sort.Strings(warnings)
	return resultWithWarnings(domain.CheckRest, violations, warnings)
}

func isHeavy(bt domain.BlockType, th domain.Thresholds) bool {
	return bt == domain.Block3er
}

func spanRegular(assignments []domain.Assignment, th domain.Thresholds) domain.AuditResult {
	extents := perDriverDayExtent(assignments)
	var violations, warnings []string
	for _, d := range sortedKeys(extents) {
		for _, day := range sortedDayKeys(extents[d]) {
			e := extents[d][day]
			if e.blockType == domain.Block2erSplit || e.blockType == domain.Block3er {
				continue
			}
			span := e.last - e.first
			switch {
			case span > th.SpanRegularMaxMin:
				violations = append(violations, fmt.Sprintf("driver %s day %s: span %d exceeds %d", d, day, span, th.SpanRegularMaxMin))
			case span > th.SpanRegularMaxMin-th.NearViolationSpanBandMin:
				warnings = append(warnings, fmt.Sprintf("driver %s day %s: span %d near the %d cap", d, day, span, th.SpanRegularMaxMin))
			}
		}
	}
	sort.Strings(violations)
	sort.Strings(warnings)
	return resultWithWarnings(domain.CheckSpanRegular, violations, warnings)
}

func spanSplit(assignments []domain.Assignment, th domain.Thresholds) domain.AuditResult {
	extents := perDriverDayExtent(assignments)
	var violations, warnings []string
	for _, d := range sortedKeys(extents) {
		for _, day := range sortedDayKeys(extents[d]) {
			e := extents[d][day]
			if e.blockType != domain.Block2erSplit && e.blockType != domain.Block3er {
				continue
			}
			span := e.last - e.first
			switch {
			case span > th.SpanSplitMaxMin:
				violations = append(violations, fmt.Sprintf("driver %s day %s: span %d exceeds %d", d, day, span, th.SpanSplitMaxMin))
			case span > th.SpanSplitMaxMin-th.NearViolationSpanBandMin:
				warnings = append(warnings, fmt.Sprintf("driver %s day %s: span %d near the %d cap", d, day, span, th.SpanSplitMaxMin))
			}
		}
	}
	sort.Strings(violations)
	sort.Strings(warnings)
	return resultWithWarnings(domain.CheckSpanSplit, violations, warnings)
}

func fatigue(assignments []domain.Assignment, th domain.Thresholds) domain.AuditResult {
	dayTourCount := make(map[string]map[domain.Weekday]int)
	for _, a := range assignments {
		if dayTourCount[a.DriverID] == nil {
			dayTourCount[a.DriverID] = make(map[domain.Weekday]int)
		}
		dayTourCount[a.DriverID][a.Day]++
	}

	var violations []string
	for _, d := range sortedKeysInt(dayTourCount) {
		days := sortedDayKeysInt(dayTourCount[d])
		for i := 0; i+1 < len(days); i++ {
			d1, d2 := days[i], days[i+1]
			if int(d2)-int(d1) != 1 {
				continue
			}
			if dayTourCount[d][d1] == th.HeavyDayTourCount && dayTourCount[d][d2] == th.HeavyDayTourCount {
				violations = append(violations, fmt.Sprintf("driver %s: consecutive heavy days %s, %s", d, d1, d2))
			}
			if dayTourCount[d][d1] == th.HeavyDayTourCount && dayTourCount[d][d2] > th.NextDayAfterHeavyMaxTours {
				violations = append(violations, fmt.Sprintf("driver %s: day after heavy day %s has %d tours", d, d2, dayTourCount[d][d2]))
			}
		}
	}
	sort.Strings(violations)
	return result(domain.CheckFatigue, violations)
}

func weeklyHours(assignments []domain.Assignment, th domain.Thresholds) domain.AuditResult {
	totals := make(map[string]int)
	for _, a := range assignments {
		dur := a.EndMin - a.StartMin
		if a.CrossesMidnight {
			dur += 1440
		}
		totals[a.DriverID] += dur
	}

	var violations []string
	for _, d := range sortedKeysFromTotals(totals) {
		if totals[d] > th.FTEMaxMin {
			violations = append(violations, fmt.Sprintf("driver %s: weekly minutes %d exceed %d", d, totals[d], th.FTEMaxMin))
		}
	}
	sort.Strings(violations)
	return result(domain.CheckWeeklyHours, violations)
}

func result(check domain.AuditCheckName, violations []string) domain.AuditResult {
	status := domain.Pass
	if len(violations) > 0 {
		status = domain.Fail
	}
	return domain.AuditResult{Check: check, Status: status, ViolationCount: len(violations), Violations: violations}
}

// resultWithWarnings folds in the near-violation side channel (spec.md
// §4.5): warnings never turn a PASS into a FAIL, they only upgrade it to WARN.
func resultWithWarnings(check domain.AuditCheckName, violations, warnings []string) domain.AuditResult {
	r := result(check, violations)
	if r.Status == domain.Pass && len(warnings) > 0 {
		r.Status = domain.Warn
		r.Violations = warnings
		r.ViolationCount = len(warnings)
	}
	return r
}

func sortedKeys(m map[string]map[domain.Weekday]dayExtent) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedDayKeys(m map[domain.Weekday]dayExtent) []domain.Weekday {
	out := make([]domain.Weekday, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeysInt(m map[string]map[domain.Weekday]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedDayKeysInt(m map[domain.Weekday]int) []domain.Weekday {
	out := make([]domain.Weekday, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeysFromTotals(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
