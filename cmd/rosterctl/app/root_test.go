package app

import (
	"errors"
	"testing"

	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

func TestExitCodeForRosterErrKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"determinism broken", rosterr.New(rosterr.DeterminismBroken, "x"), 1},
		{"infeasible instance", rosterr.New(rosterr.InfeasibleInstance, "x"), 1},
		{"solver timeout", rosterr.New(rosterr.SolverTimeout, "x"), 1},
		{"validation error", rosterr.New(rosterr.ValidationError, "x"), 2},
		{"state machine violation", rosterr.New(rosterr.StateMachineViolation, "x"), 2},
		{"integrity fault", rosterr.New(rosterr.IntegrityFault, "x"), 2},
		{"plain error", errors.New("boom"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeForHonorsCommandSuppliedCode(t *testing.T) {
	err := withExitCode(1, rosterr.New(rosterr.IntegrityFault, "checksum mismatch"))
	if got := ExitCodeFor(err); got != 1 {
		t.Errorf("ExitCodeFor(withExitCode(1, ...)) = %d, want 1", got)
	}
}

func TestWithExitCodePassesThroughNil(t *testing.T) {
	if err := withExitCode(1, nil); err != nil {
		t.Errorf("withExitCode(1, nil) = %v, want nil", err)
	}
}
