package master

// Decision is which solver path the portfolio policy selects for a given
// instance size (spec.md §9 Design Notes: portfolio policy).
type Decision string

const (
	DecisionMasterOnly       Decision = "MASTER_ONLY"
	DecisionMasterThenPTFrag Decision = "MASTER_THEN_PT_FRAGMENT"
	DecisionGreedyOnly       Decision = "GREEDY_ONLY"
)

// Instance-size thresholds the policy branches on, measured in target
// blocks. Below smallInstanceBlocks the exact master alone is cheap enough
// to always run; up to largeInstanceBlocks it's still worth running but
// benefits from the PT-fragment tightening pass; beyond that the branch-
// and-bound search isn't worth attempting and the greedy constructor runs
// directly.
const (
	smallInstanceBlocks = 60
	largeInstanceBlocks = 200
)

// ChoosePortfolio picks a solver path by instance size, gated behind
// features.PortfolioPolicy: small instances run the exact master alone,
// mid-size instances also get the PT-fragment tightening pass, and very
// large instances skip the master entirely in favor of the greedy fallback
// construction (spec.md §9 Design Notes).
func ChoosePortfolio(numTargetBlocks int) Decision {
	switch {
	case numTargetBlocks <= smallInstanceBlocks:
		return DecisionMasterOnly
	case numTargetBlocks <= largeInstanceBlocks:
		return DecisionMasterThenPTFrag
	default:
		return DecisionGreedyOnly
	}
}
