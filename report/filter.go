package report

import (
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// Filter narrows results before aggregation. Empty fields match everything.
type Filter struct {
	EmployeeIDs []generic.EntityID
	Departments []string
	From        *generic.TimePoint
	To          *generic.TimePoint
}

// Apply returns filtered copies; results are left untouched. Employees with
// no days left inside the date range are dropped.
func (f Filter) Apply(results []attendance.ClassifyResult) []attendance.ClassifyResult {
	ids := make(map[generic.EntityID]bool, len(f.EmployeeIDs))
	for _, id := range f.EmployeeIDs {
		ids[id] = true
	}
	depts := make(map[string]bool, len(f.Departments))
	for _, d := range f.Departments {
		depts[d] = true
	}

	var out []attendance.ClassifyResult
	for _, res := range results {
		if len(ids) > 0 && !ids[res.Employee.ID] {
			continue
		}
		if len(depts) > 0 && !depts[res.Employee.Department] {
			continue
		}

		days := make([]attendance.ClassifiedDay, 0, len(res.Days))
		for _, d := range res.Days {
			if f.From != nil && d.Date.Before(*f.From) {
				continue
			}
			if f.To != nil && d.Date.After(*f.To) {
				continue
			}
			days = append(days, d)
		}
		if len(days) == 0 {
			continue
		}
		res.Days = days
		out = append(out, res)
	}
	return out
}
