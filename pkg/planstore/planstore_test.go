package planstore

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

func TestTransitionFollowsForwardOnlyTable(t *testing.T) {
	s := New()
	p := s.CreateDraft("fv1", "acme", "site-1", 1)

	if err := s.Transition(p.PlanVersionID, domain.StatusSolving); err != nil {
		t.Fatalf("DRAFT -> SOLVING should succeed: %v", err)
	}
	if err := s.Transition(p.PlanVersionID, domain.StatusPublished); err == nil {
		t.Fatal("SOLVING -> PUBLISHED should be rejected")
	}
}

func TestPublishIsAtomic(t *testing.T) {
	s := New()
	p := s.CreateDraft("fv1", "acme", "site-1", 1)
	s.Transition(p.PlanVersionID, domain.StatusSolving)
	s.Transition(p.PlanVersionID, domain.StatusSolved)
	s.Transition(p.PlanVersionID, domain.StatusLocked)

	snap, err := s.Publish(p.PlanVersionID, []domain.Assignment{{DriverID: "D1", TourInstanceID: "t1"}}, "hash1")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if snap.VersionNumber != 1 {
		t.Fatalf("VersionNumber = %d, want 1", snap.VersionNumber)
	}

	got, _ := s.Get(p.PlanVersionID)
	if got.Status != domain.StatusPublished {
		t.Fatalf("status = %s, want PUBLISHED", got.Status)
	}
	if len(s.Snapshots(p.PlanVersionID)) != 1 {
		t.Fatalf("expected exactly one snapshot recorded")
	}
}

func TestPublishRejectsFromNonLockedState(t *testing.T) {
	s := New()
	p := s.CreateDraft("fv1", "acme", "site-1", 1)
	if _, err := s.Publish(p.PlanVersionID, nil, "hash1"); err == nil {
		t.Fatal("expected publish from DRAFT to fail")
	}
}

func TestIdempotencyReplayReturnsSamePlan(t *testing.T) {
	s := New()
	s.RecordIdempotency("key1", "payloadA", "plan-123")

	id, replay, err := s.CheckIdempotency("key1", "payloadA")
	if err != nil {
		t.Fatalf("unexpected error on matching replay: %v", err)
	}
	if !replay || id != "plan-123" {
		t.Fatalf("expected a replay pointing at plan-123, got replay=%v id=%s", replay, id)
	}

	_, _, err = s.CheckIdempotency("key1", "payloadB")
	if err == nil {
		t.Fatal("expected an idempotency conflict for a different payload")
	}
}
