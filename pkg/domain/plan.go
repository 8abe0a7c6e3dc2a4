package domain

import "time"

// PlanStatus is the plan lifecycle state (spec.md §3/§4.6). Terminal:
// Published. There is no backward transition.
type PlanStatus string

const (
	StatusDraft     PlanStatus = "DRAFT"
	StatusSolving   PlanStatus = "SOLVING"
	StatusSolved    PlanStatus = "SOLVED"
	StatusLocked    PlanStatus = "LOCKED"
	StatusPublished PlanStatus = "PUBLISHED"
)

// PlanVersion is the primary audited artifact: one solve attempt against
// one forecast version, for one tenant/site.
type PlanVersion struct {
	PlanVersionID     string
	ForecastVersionID string
	TenantID          string
	SiteID            string
	Seed              uint32
	SolverConfigHash  string
	InputHash         string
	OutputHash        string
	Status            PlanStatus
	IsRepair          bool
	ParentPlanID      string // empty if not a repair
	AbsentDriverIDs   []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LockedBy          string
}

// CanTransitionTo reports whether the transition table in spec.md §4.6
// allows moving from p.Status to next. The table only allows forward
// moves along DRAFT -> SOLVING -> SOLVED -> LOCKED -> PUBLISHED.
func (p PlanVersion) CanTransitionTo(next PlanStatus) bool {
	order := map[PlanStatus]int{
		StatusDraft:     0,
		StatusSolving:   1,
		StatusSolved:    2,
		StatusLocked:    3,
		StatusPublished: 4,
	}
	cur, ok1 := order[p.Status]
	nxt, ok2 := order[next]
	if !ok1 || !ok2 {
		return false
	}
	return nxt == cur+1
}
