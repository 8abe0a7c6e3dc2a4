package master

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func ptCol(id string, totalMin int, blocks ...string) domain.RosterColumn {
	return domain.RosterColumn{
		RosterID:   id,
		BlockIDs:   blocks,
		IsValid:    true,
		RosterType: domain.PT,
		TotalMin:   totalMin,
	}
}

func TestTightenPTFragmentsSwapsInHigherMinuteAlternative(t *testing.T) {
	th := domain.DefaultThresholds()
	selected := []domain.RosterColumn{
		ptCol("R000001", th.PTMinHoursSoftMin-60, "B1-t1"),
	}
	pool := []domain.RosterColumn{
		selected[0],
		ptCol("R000002", th.PTMinHoursSoftMin+30, "B1-t1"),
	}

	tightened := TightenPTFragments(selected, pool, th)
	if len(tightened) != 1 {
		t.Fatalf("expected 1 column, got %d", len(tightened))
	}
	if tightened[0].RosterID != "R000002" {
		t.Fatalf("expected the higher-minute alternative R000002 to be swapped in, got %s", tightened[0].RosterID)
	}
}

func TestTightenPTFragmentsLeavesColumnsAtOrAboveFloorUntouched(t *testing.T) {
	th := domain.DefaultThresholds()
	selected := []domain.RosterColumn{
		ptCol("R000001", th.PTMinHoursSoftMin+10, "B1-t1"),
	}
	pool := []domain.RosterColumn{
		selected[0],
		ptCol("R000002", th.PTMinHoursSoftMin+500, "B1-t1"),
	}

	tightened := TightenPTFragments(selected, pool, th)
	if tightened[0].RosterID != "R000001" {
		t.Fatalf("column already at the soft floor should not be swapped, got %s", tightened[0].RosterID)
	}
}
