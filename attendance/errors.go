package attendance

import (
	"errors"
	"fmt"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrUnknownOrganization: no policy exists for the organization/category pair.
	ErrUnknownOrganization = errors.New("attendance: unknown organization or category")

	// ErrMissingJoiningDate: a consultant's CL quota cannot be computed.
	ErrMissingJoiningDate = errors.New("attendance: missing joining date")

	// ErrMalformedAttendanceRange: marks have gaps, duplicates or are out of order.
	ErrMalformedAttendanceRange = errors.New("attendance: malformed attendance range")

	// ErrUnknownStatusCode: a raw sheet code could not be mapped.
	ErrUnknownStatusCode = errors.New("attendance: unknown raw status code")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

type UnknownOrganizationError struct {
	EmployeeID   generic.EntityID
	Organization Organization
	Category     Category
}

func (e *UnknownOrganizationError) Error() string {
	return fmt.Sprintf("attendance: no policy for organization %q category %q (employee %s)",
		e.Organization, e.Category, e.EmployeeID)
}

func (e *UnknownOrganizationError) Unwrap() error { return ErrUnknownOrganization }

type MissingJoiningDateError struct {
	EmployeeID generic.EntityID
}

func (e *MissingJoiningDateError) Error() string {
	return fmt.Sprintf("attendance: employee %s has no joining date, cannot compute casual leave quota", e.EmployeeID)
}

func (e *MissingJoiningDateError) Unwrap() error { return ErrMissingJoiningDate }

// RangeViolation names what is wrong with a mark sequence.
type RangeViolation string

const (
	ViolationGap             RangeViolation = "gap"
	ViolationDuplicate       RangeViolation = "duplicate"
	ViolationOutOfOrder      RangeViolation = "out_of_order"
	ViolationForeignEmployee RangeViolation = "foreign_employee"
	ViolationUnknownStatus   RangeViolation = "unknown_status"
)

type MalformedAttendanceRangeError struct {
	EmployeeID generic.EntityID
	Date       generic.TimePoint // first offending mark
	Reason     RangeViolation
}

func (e *MalformedAttendanceRangeError) Error() string {
	return fmt.Sprintf("attendance: malformed range for employee %s at %s: %s", e.EmployeeID, e.Date, e.Reason)
}

func (e *MalformedAttendanceRangeError) Unwrap() error { return ErrMalformedAttendanceRange }

type UnknownStatusCodeError struct {
	Code string
}

func (e *UnknownStatusCodeError) Error() string {
	return fmt.Sprintf("attendance: unknown raw status code %q", e.Code)
}

func (e *UnknownStatusCodeError) Unwrap() error { return ErrUnknownStatusCode }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsEmployeeError reports whether err fails a single employee's
// classification without affecting anyone else in the batch.
func IsEmployeeError(err error) bool {
	return errors.Is(err, ErrUnknownOrganization) ||
		errors.Is(err, ErrMissingJoiningDate) ||
		errors.Is(err, ErrMalformedAttendanceRange) ||
		errors.Is(err, generic.ErrEntityNotFound)
}
