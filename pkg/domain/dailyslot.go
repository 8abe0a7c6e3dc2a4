package domain

import "fmt"

// DailySlotState is the per-day execution lifecycle of one tour instance
// (spec.md §3/§4.7), distinct from the plan-level PlanStatus machine.
type DailySlotState string

const (
	SlotPlanned  DailySlotState = "PLANNED"
	SlotAssigned DailySlotState = "ASSIGNED"
	SlotHold     DailySlotState = "HOLD"
	SlotReleased DailySlotState = "RELEASED"
	SlotExecuted DailySlotState = "EXECUTED"
	SlotAborted  DailySlotState = "ABORTED"
)

// AbortReason is the closed set of reasons a slot may be aborted for.
type AbortReason string

const (
	AbortLowDemand  AbortReason = "LOW_DEMAND"
	AbortWeather    AbortReason = "WEATHER"
	AbortVehicle    AbortReason = "VEHICLE"
	AbortOpsDecision AbortReason = "OPS_DECISION"
	AbortOther      AbortReason = "OTHER"
)

// DailySlot tracks one tour instance's execution-day state.
type DailySlot struct {
	TourInstanceID   string
	State            DailySlotState
	AssignedDriverID string
	ReleaseAt        *int64 // unix seconds; required once RELEASED or ASSIGNED, kept through EXECUTED/ABORTED, cleared on HOLD
	AbortReason      AbortReason
	DayFrozen        bool // true once inside the freeze horizon (spec.md §4.8)
}

// dailySlotTransitions is the forward-edge table of spec.md §4.7. HOLD and
// RELEASED form a side channel reachable only by unassigning first: there is
// no direct ASSIGNED -> HOLD edge.
var dailySlotTransitions = map[DailySlotState]map[DailySlotState]bool{
	SlotPlanned:  {SlotAssigned: true, SlotHold: true, SlotAborted: true},
	SlotAssigned: {SlotReleased: true, SlotExecuted: true, SlotAborted: true},
	SlotHold:     {SlotAssigned: true, SlotAborted: true},
	SlotReleased: {SlotHold: true, SlotAssigned: true, SlotAborted: true},
	SlotExecuted: {},
	SlotAborted:  {},
}

// TransitionTo validates and applies a state change, enforcing INV-1
// through INV-5 (spec.md §3):
//
//	INV-1 HOLD implies AssignedDriverID is empty.
//	INV-2 ASSIGNED implies ReleaseAt is set.
//	INV-3 RELEASED implies ReleaseAt is set.
//	INV-4 a frozen day rejects every mutation except ABORTED.
//	INV-5 ASSIGNED -> HOLD is forbidden; must route through RELEASED.
func (d DailySlot) TransitionTo(next DailySlotState, driverID string, releaseAt *int64, reason AbortReason) (DailySlot, error) {
	if d.DayFrozen && next != SlotAborted {
		return d, fmt.Errorf("slot %s: day is frozen, only ABORTED is permitted", d.TourInstanceID)
	}
	allowed := dailySlotTransitions[d.State]
	if !allowed[next] {
		return d, fmt.Errorf("slot %s: illegal transition %s -> %s", d.TourInstanceID, d.State, next)
	}

	out := d
	out.State = next
	switch next {
	case SlotHold:
		out.AssignedDriverID = ""
		out.ReleaseAt = nil
	case SlotAssigned:
		if releaseAt == nil {
			return d, fmt.Errorf("slot %s: ASSIGNED requires a release_at", d.TourInstanceID)
		}
		out.AssignedDriverID = driverID
		out.ReleaseAt = releaseAt
	case SlotReleased:
		if releaseAt == nil {
			return d, fmt.Errorf("slot %s: RELEASED requires a release_at", d.TourInstanceID)
		}
		out.AssignedDriverID = ""
		out.ReleaseAt = releaseAt
	case SlotAborted:
		out.AbortReason = reason
	case SlotExecuted:
	}
	return out, nil
}
