// Package attendance classifies raw daily attendance into payroll categories.
// It uses the generic engine for calendar periods and leave quotas and adds
// the hospital and clinic leave policies on top.
package attendance

import (
	"strings"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ATTENDANCE RESOURCE TYPE
// =============================================================================

// Resource is the concrete resource type for attendance quotas.
type Resource string

func (r Resource) ResourceID() string     { return string(r) }
func (r Resource) ResourceDomain() string { return "attendance" }

var _ generic.ResourceType = Resource("")

const ResourceCasualLeave Resource = "casual_leave"

func init() {
	generic.RegisterResource(ResourceCasualLeave)
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type Organization string

const (
	OrgHospital    Organization = "Hospital"
	OrgSuperClinic Organization = "SuperClinic"
)

type Category string

const (
	CategoryStaff      Category = "Staff"
	CategoryConsultant Category = "Consultant"
)

// Employee is the metadata a classification run needs. It is read once per
// run and not modified while the run is in progress.
type Employee struct {
	ID           generic.EntityID
	Name         string
	Department   string
	Organization Organization
	Category     Category
	JoiningDate  *generic.TimePoint
}

// =============================================================================
// RAW DAY MARK - One uploaded day
// =============================================================================

// RawStatus is what the attendance sheet says about a day before any policy
// is applied.
type RawStatus string

const (
	RawPresent   RawStatus = "P"
	RawAbsent    RawStatus = "A"
	RawWeeklyOff RawStatus = "WO"
)

var rawCodes = map[string]RawStatus{
	"P":          RawPresent,
	"PR":         RawPresent,
	"PRESENT":    RawPresent,
	"A":          RawAbsent,
	"AB":         RawAbsent,
	"ABSENT":     RawAbsent,
	"WO":         RawWeeklyOff,
	"W/O":        RawWeeklyOff,
	"OFF":        RawWeeklyOff,
	"WEEKLYOFF":  RawWeeklyOff,
	"WEEKLY OFF": RawWeeklyOff,
}

// ParseRawStatus maps a sheet code to a RawStatus. A blank code falls back
// to the punches: any IN or OUT time means the employee was present.
func ParseRawStatus(code, inTime, outTime string) (RawStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		if strings.TrimSpace(inTime) != "" || strings.TrimSpace(outTime) != "" {
			return RawPresent, nil
		}
		return RawAbsent, nil
	}
	if status, ok := rawCodes[normalized]; ok {
		return status, nil
	}
	return "", &UnknownStatusCodeError{Code: code}
}

type RawDayMark struct {
	EmployeeID generic.EntityID
	Date       generic.TimePoint
	Status     RawStatus
	Code       string // as uploaded
	InTime     string
	OutTime    string
}

// =============================================================================
// CLASSIFIED DAY - Final payroll category
// =============================================================================

type DayCategory string

const (
	Present         DayCategory = "Present"
	Absent          DayCategory = "Absent"
	WeeklyOffPaid   DayCategory = "WeeklyOffPaid"
	WeeklyOffUnpaid DayCategory = "WeeklyOffUnpaid"
	CasualLeave     DayCategory = "CasualLeave"
	LossOfPay       DayCategory = "LossOfPay"
)

// Categories lists every DayCategory in report column order.
var Categories = []DayCategory{Present, Absent, WeeklyOffPaid, WeeklyOffUnpaid, CasualLeave, LossOfPay}

// Short is the code printed in day-wise reports.
func (c DayCategory) Short() string {
	switch c {
	case Present:
		return "P"
	case Absent:
		return "A"
	case WeeklyOffPaid:
		return "WO"
	case WeeklyOffUnpaid:
		return "WO-U"
	case CasualLeave:
		return "CL"
	case LossOfPay:
		return "LOP"
	default:
		return string(c)
	}
}

// ClassifiedDay is derived from exactly one RawDayMark and is never stored
// on its own.
type ClassifiedDay struct {
	EmployeeID generic.EntityID
	Date       generic.TimePoint
	Category   DayCategory
	Raw        RawStatus
}
