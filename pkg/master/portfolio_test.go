package master

import "testing"

func TestChoosePortfolioBranchesOnInstanceSize(t *testing.T) {
	cases := []struct {
		numBlocks int
		want      Decision
	}{
		{10, DecisionMasterOnly},
		{smallInstanceBlocks, DecisionMasterOnly},
		{smallInstanceBlocks + 1, DecisionMasterThenPTFrag},
		{largeInstanceBlocks, DecisionMasterThenPTFrag},
		{largeInstanceBlocks + 1, DecisionGreedyOnly},
	}
	for _, c := range cases {
		if got := ChoosePortfolio(c.numBlocks); got != c.want {
			t.Errorf("ChoosePortfolio(%d) = %s, want %s", c.numBlocks, got, c.want)
		}
	}
}
