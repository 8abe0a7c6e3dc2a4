package domain

import "sort"

// Assignment binds one tour instance to one driver within one plan version.
type Assignment struct {
	PlanVersionID  string
	DriverID       string
	TourInstanceID string
	Day            Weekday
	BlockID        string
	BlockType      BlockType
	StartMin       int
	EndMin         int
	CrossesMidnight bool
}

// SortAssignments orders assignments by (driver_id, day, tour_instance_id)
// as required before hashing or snapshotting (spec.md §5 Ordering
// guarantees). The slice is sorted in place and also returned.
func SortAssignments(a []Assignment) []Assignment {
	sort.Slice(a, func(i, j int) bool {
		if a[i].DriverID != a[j].DriverID {
			return a[i].DriverID < a[j].DriverID
		}
		if a[i].Day != a[j].Day {
			return a[i].Day < a[j].Day
		}
		return a[i].TourInstanceID < a[j].TourInstanceID
	})
	return a
}

// PlanSnapshot is an immutable point-in-time capture of a plan's assignments.
type PlanSnapshot struct {
	SnapshotID          string
	PlanVersionID        string
	VersionNumber       int
	AssignmentsSnapshot []Assignment
	ContentHash         string
	CreatedAt           int64 // unix seconds; stamped by the caller (domain does not call time.Now)
}
