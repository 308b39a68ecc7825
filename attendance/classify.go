/*
classify.go - Per-employee classification

PURPOSE:
  Folds one employee's raw marks, oldest first, into classified days.
  Day N depends on the weekly-off count and CL balances left by days
  1..N-1, so the marks are never reordered or split.

FOLD STATE:
  weeklyOff: WeeklyOffCounter (value, replaced on every step)
  cl:        *Allocator, only for policies with a CL quota

DAY RULES:
  raw Present    -> Present, counts as attendance
  raw WeeklyOff  -> WeeklyOffPaid if attendance >= threshold, else Unpaid
  raw Absent     -> CL policy:   CasualLeave while quota lasts, else LossOfPay
                    (CasualLeave counts as attendance when the policy says so)
                    other:       Absent
  anything else  -> MalformedAttendanceRangeError, nothing classified

SEE ALSO:
  - processor.go: Runs Classify for many employees
*/
package attendance

import (
	"github.com/warp/attendance-engine/generic"
)

// ClassifyResult is everything one employee's pass produces.
type ClassifyResult struct {
	Employee Employee
	Policy   Policy
	Days     []ClassifiedDay
	Balances []CLBalance

	// FirstWeeklyOffMayUndercount is set when the window's first weekly off
	// came out unpaid with no earlier weekly off in the window to anchor
	// the count. See WeeklyOffCounter.
	FirstWeeklyOffMayUndercount bool
}

// Period returns the day range covered, or false when there are no days.
func (r ClassifyResult) Period() (generic.Period, bool) {
	if len(r.Days) == 0 {
		return generic.Period{}, false
	}
	return generic.Period{Start: r.Days[0].Date, End: r.Days[len(r.Days)-1].Date}, true
}

// ValidateRange checks that marks all belong to employeeID and cover
// consecutive days with no gaps or duplicates.
func ValidateRange(employeeID generic.EntityID, marks []RawDayMark) error {
	for i, m := range marks {
		if m.EmployeeID != employeeID {
			return &MalformedAttendanceRangeError{EmployeeID: employeeID, Date: m.Date, Reason: ViolationForeignEmployee}
		}
		if i == 0 {
			continue
		}
		prev := marks[i-1].Date
		switch {
		case m.Date.Equal(prev):
			return &MalformedAttendanceRangeError{EmployeeID: employeeID, Date: m.Date, Reason: ViolationDuplicate}
		case m.Date.Before(prev):
			return &MalformedAttendanceRangeError{EmployeeID: employeeID, Date: m.Date, Reason: ViolationOutOfOrder}
		case !m.Date.Equal(prev.AddDays(1)):
			return &MalformedAttendanceRangeError{EmployeeID: employeeID, Date: m.Date, Reason: ViolationGap}
		}
	}
	return nil
}

// Classify runs the policy over marks. opening is passed to the CL
// allocator and ignored for policies without a quota.
func Classify(emp Employee, policy Policy, marks []RawDayMark, opening []CLBalance) (ClassifyResult, error) {
	if err := ValidateRange(emp.ID, marks); err != nil {
		return ClassifyResult{}, err
	}

	var cl *Allocator
	if policy.HasCasualLeave() {
		var err error
		if cl, err = NewAllocator(emp, policy, opening); err != nil {
			return ClassifyResult{}, err
		}
	}

	result := ClassifyResult{
		Employee: emp,
		Policy:   policy,
		Days:     make([]ClassifiedDay, 0, len(marks)),
	}

	var weeklyOff WeeklyOffCounter
	for _, m := range marks {
		var category DayCategory
		switch m.Status {
		case RawPresent:
			category = Present
			weeklyOff = weeklyOff.Attend()

		case RawWeeklyOff:
			first := weeklyOff.First()
			category, weeklyOff = weeklyOff.Settle(policy.WeeklyOffThreshold)
			if first && category == WeeklyOffUnpaid {
				result.FirstWeeklyOffMayUndercount = true
			}

		case RawAbsent:
			if cl == nil {
				category = Absent
				break
			}
			category = cl.Allocate(m.Date)
			if category == CasualLeave && policy.CLCountsAsAttendance {
				weeklyOff = weeklyOff.Attend()
			}

		default:
			return ClassifyResult{}, &MalformedAttendanceRangeError{EmployeeID: emp.ID, Date: m.Date, Reason: ViolationUnknownStatus}
		}

		result.Days = append(result.Days, ClassifiedDay{
			EmployeeID: emp.ID,
			Date:       m.Date,
			Category:   category,
			Raw:        m.Status,
		})
	}

	if cl != nil {
		result.Balances = cl.Balances()
	}
	return result, nil
}
