package master

import (
	"sort"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

// TightenPTFragments is the optional second-stage local search gated behind
// features.PTFragmentPass (spec.md §9 Design Notes): after the master has
// picked a cover, any selected PT column still short of the soft-hours
// floor is swapped for an alternate pool column covering the exact same
// blocks but carrying more minutes, if one exists. Headcount and coverage
// never change — only which column fills an already-selected PT slot.
func TightenPTFragments(selected []domain.RosterColumn, pool []domain.RosterColumn, th domain.Thresholds) []domain.RosterColumn {
	bySignatureBlocks := make(map[string][]domain.RosterColumn)
	for _, c := range pool {
		key := blockSetKey(c.BlockIDs)
		bySignatureBlocks[key] = append(bySignatureBlocks[key], c)
	}

	out := make([]domain.RosterColumn, len(selected))
	copy(out, selected)

	for i, c := range out {
		if c.RosterType != domain.PT || c.TotalMin >= th.PTMinHoursSoftMin {
			continue
		}
		candidates := bySignatureBlocks[blockSetKey(c.BlockIDs)]
		best := c
		for _, cand := range candidates {
			if cand.RosterType != domain.PT || !cand.IsValid {
				continue
			}
			if cand.TotalMin > best.TotalMin {
				best = cand
			}
		}
		out[i] = best
	}
	return out
}

// blockSetKey is the sorted-join key used to group pool columns by the
// exact block set they cover, independent of roster ID or signature.
func blockSetKey(blockIDs []string) string {
	sorted := append([]string(nil), blockIDs...)
	sort.Strings(sorted)
	key := ""
	for _, b := range sorted {
		key += b + ","
	}
	return key
}
