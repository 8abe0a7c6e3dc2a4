// Package planstore implements the Plan State Machine & Snapshot Store (C7,
// spec.md §4.6): an in-process reference implementation of the storage
// contract in spec.md §6.3. The single-mutex-guards-a-map discipline, never
// held across a blocking call, follows the aggregator that guards node
// results and progress updates in the wider example corpus.
package planstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

// Store holds plan versions and their immutable snapshots.
type Store struct {
	mu        sync.Mutex
	plans     map[string]*domain.PlanVersion
	snapshots map[string][]domain.PlanSnapshot // plan_version_id -> snapshots, append-only
	idempo    map[string]idempoRecord          // idempotency_key -> (payload hash, plan_version_id)
}

type idempoRecord struct {
	payloadHash   string
	planVersionID string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		plans:     make(map[string]*domain.PlanVersion),
		snapshots: make(map[string][]domain.PlanSnapshot),
		idempo:    make(map[string]idempoRecord),
	}
}

// CreateDraft inserts a new plan version in DRAFT status.
func (s *Store) CreateDraft(forecastVersionID, tenantID, siteID string, seed uint32) *domain.PlanVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := &domain.PlanVersion{
		PlanVersionID:     uuid.NewString(),
		ForecastVersionID: forecastVersionID,
		TenantID:          tenantID,
		SiteID:            siteID,
		Seed:              seed,
		Status:            domain.StatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.plans[p.PlanVersionID] = p
	return p
}

// CreateRepairDraft inserts a new plan version in DRAFT status marked as a
// repair of parentPlanID (spec.md §4.8 commit semantics: a repair gets its
// own plan_version_id, never overwrites the parent).
func (s *Store) CreateRepairDraft(parentPlanID string, absentDriverIDs []string, forecastVersionID, tenantID, siteID string, seed uint32) *domain.PlanVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := &domain.PlanVersion{
		PlanVersionID:     uuid.NewString(),
		ForecastVersionID: forecastVersionID,
		TenantID:          tenantID,
		SiteID:            siteID,
		Seed:              seed,
		Status:            domain.StatusDraft,
		IsRepair:          true,
		ParentPlanID:      parentPlanID,
		AbsentDriverIDs:   append([]string(nil), absentDriverIDs...),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.plans[p.PlanVersionID] = p
	return p
}

// Get returns a copy of the plan, or an IntegrityFault if it doesn't exist.
func (s *Store) Get(planVersionID string) (domain.PlanVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planVersionID]
	if !ok {
		return domain.PlanVersion{}, rosterr.New(rosterr.IntegrityFault, "plan version not found: "+planVersionID)
	}
	return *p, nil
}

// Transition moves a plan to next, enforcing the forward-only table of
// spec.md §4.6 (DRAFT -> SOLVING -> SOLVED -> LOCKED -> PUBLISHED).
func (s *Store) Transition(planVersionID string, next domain.PlanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planVersionID]
	if !ok {
		return rosterr.New(rosterr.IntegrityFault, "plan version not found: "+planVersionID)
	}
	if !p.CanTransitionTo(next) {
		return rosterr.New(rosterr.StateMachineViolation, string(p.Status)+" -> "+string(next)+" is not a legal transition")
	}
	p.Status = next
	p.UpdatedAt = time.Now()
	return nil
}

// SetHashes records the input/solver-config/output hashes once a solve
// completes, ahead of the SOLVING -> SOLVED transition.
func (s *Store) SetHashes(planVersionID, inputHash, solverConfigHash, outputHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planVersionID]
	if !ok {
		return rosterr.New(rosterr.IntegrityFault, "plan version not found: "+planVersionID)
	}
	p.InputHash = inputHash
	p.SolverConfigHash = solverConfigHash
	p.OutputHash = outputHash
	p.UpdatedAt = time.Now()
	return nil
}

// Publish appends the next immutable snapshot and transitions LOCKED ->
// PUBLISHED atomically: either both happen or neither does (spec.md §4.6
// "publish is atomic").
func (s *Store) Publish(planVersionID string, assignments []domain.Assignment, contentHash string) (domain.PlanSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planVersionID]
	if !ok {
		return domain.PlanSnapshot{}, rosterr.New(rosterr.IntegrityFault, "plan version not found: "+planVersionID)
	}
	if !p.CanTransitionTo(domain.StatusPublished) {
		return domain.PlanSnapshot{}, rosterr.New(rosterr.StateMachineViolation, string(p.Status)+" -> PUBLISHED is not a legal transition")
	}

	snap := domain.PlanSnapshot{
		SnapshotID:          uuid.NewString(),
		PlanVersionID:       planVersionID,
		VersionNumber:       len(s.snapshots[planVersionID]) + 1,
		AssignmentsSnapshot: domain.SortAssignments(append([]domain.Assignment(nil), assignments...)),
		ContentHash:         contentHash,
		CreatedAt:           time.Now().Unix(),
	}

	// Both mutations succeed together; the snapshot slice append and the
	// status flip happen under the same lock so no reader observes one
	// without the other.
	s.snapshots[planVersionID] = append(s.snapshots[planVersionID], snap)
	p.Status = domain.StatusPublished
	p.UpdatedAt = time.Now()

	return snap, nil
}

// Snapshots returns every snapshot recorded for a plan, oldest first.
func (s *Store) Snapshots(planVersionID string) []domain.PlanSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PlanSnapshot(nil), s.snapshots[planVersionID]...)
}

// CheckIdempotency enforces spec.md §4.8's idempotency contract: the same
// key with the same payload hash returns the plan version already created
// for it; the same key with a different payload hash is rejected.
func (s *Store) CheckIdempotency(key, payloadHash string) (existingPlanVersionID string, isReplay bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.idempo[key]
	if !ok {
		return "", false, nil
	}
	if rec.payloadHash != payloadHash {
		return "", false, rosterr.New(rosterr.IdempotencyConflict, "idempotency key reused with a different payload")
	}
	return rec.planVersionID, true, nil
}

// RecordIdempotency binds an idempotency key to the plan version it created.
func (s *Store) RecordIdempotency(key, payloadHash, planVersionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempo[key] = idempoRecord{payloadHash: payloadHash, planVersionID: planVersionID}
}

// ListByStatus returns plan versions in a given status, sorted by
// PlanVersionID for stable output.
func (s *Store) ListByStatus(status domain.PlanStatus) []domain.PlanVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PlanVersion
	for _, p := range s.plans {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanVersionID < out[j].PlanVersionID })
	return out
}

// VerifyStateMachineIntegrity is the reference implementation of spec.md
// §6.3's verify_state_machine_integrity(): one row per invariant class.
func (s *Store) VerifyStateMachineIntegrity() []domain.AuditResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshotViolations []string
	for planID, snaps := range s.snapshots {
		seen := make(map[int]bool)
		for _, snap := range snaps {
			if seen[snap.VersionNumber] {
				snapshotViolations = append(snapshotViolations, "duplicate snapshot version_number for plan "+planID)
			}
			seen[snap.VersionNumber] = true
		}
	}
	sort.Strings(snapshotViolations)

	status := domain.Pass
	if len(snapshotViolations) > 0 {
		status = domain.Fail
	}
	return []domain.AuditResult{{
		Check:          "SNAPSHOT_IMMUTABILITY",
		Status:         status,
		ViolationCount: len(snapshotViolations),
		Violations:     snapshotViolations,
	}}
}
