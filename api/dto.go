/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry validator/v10 tags and are checked by Handler.decode
  before any domain code runs. Dates use the "2006-01-02" layout.

SEE ALSO:
  - handlers.go: Uses these types
  - report/report.go: SummaryRow and DetailRow are returned as-is
*/
package api

import (
	"errors"
	"fmt"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/report"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	Organization string `json:"organization"`
	Category     string `json:"category"`
	JoiningDate  string `json:"joining_date,omitempty"`
}

func toEmployeeDTO(emp attendance.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           string(emp.ID),
		Name:         emp.Name,
		Department:   emp.Department,
		Organization: string(emp.Organization),
		Category:     string(emp.Category),
	}
	if emp.JoiningDate != nil {
		dto.JoiningDate = emp.JoiningDate.String()
	}
	return dto
}

// CreateEmployeeRequest creates or replaces an employee. Category is
// inferred from the name when omitted.
type CreateEmployeeRequest struct {
	ID           string `json:"id" validate:"required,max=64"`
	Name         string `json:"name" validate:"required"`
	Department   string `json:"department"`
	Organization string `json:"organization" validate:"required,oneof=Hospital SuperClinic"`
	Category     string `json:"category" validate:"omitempty,oneof=Staff Consultant"`
	JoiningDate  string `json:"joining_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r CreateEmployeeRequest) toEmployee() attendance.Employee {
	emp := attendance.Employee{
		ID:           generic.EntityID(r.ID),
		Name:         r.Name,
		Department:   r.Department,
		Organization: attendance.Organization(r.Organization),
		Category:     attendance.Category(r.Category),
	}
	if emp.Category == "" {
		emp.Category = attendance.InferCategory(r.Name)
	}
	if r.JoiningDate != "" {
		tp := generic.MustParseTimePoint(r.JoiningDate)
		emp.JoiningDate = &tp
	}
	return emp
}

// =============================================================================
// ATTENDANCE UPLOAD
// =============================================================================

// MarkDTO is one uploaded day. Code may be empty when punches are given.
type MarkDTO struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Code       string `json:"code"`
	InTime     string `json:"in_time"`
	OutTime    string `json:"out_time"`
}

type UploadAttendanceRequest struct {
	Marks []MarkDTO `json:"marks" validate:"required,min=1,dive"`
}

type UploadAttendanceResponse struct {
	Saved     int `json:"saved"`
	Employees int `json:"employees"`
}

// MarkError points at the upload row that could not be read.
type MarkError struct {
	Index int
	Err   error
}

func (e *MarkError) Error() string {
	return fmt.Sprintf("marks[%d]: %v", e.Index, e.Err)
}

func (e *MarkError) Unwrap() error { return e.Err }

func (r UploadAttendanceRequest) toMarks() ([]attendance.RawDayMark, error) {
	marks := make([]attendance.RawDayMark, 0, len(r.Marks))
	for i, m := range r.Marks {
		status, err := attendance.ParseRawStatus(m.Code, m.InTime, m.OutTime)
		if err != nil {
			return nil, &MarkError{Index: i, Err: err}
		}
		marks = append(marks, attendance.RawDayMark{
			EmployeeID: generic.EntityID(m.EmployeeID),
			Date:       generic.MustParseTimePoint(m.Date),
			Status:     status,
			Code:       m.Code,
			InTime:     m.InTime,
			OutTime:    m.OutTime,
		})
	}
	return marks, nil
}

// =============================================================================
// RUNS
// =============================================================================

type RunRequest struct {
	From    string `json:"from" validate:"required,datetime=2006-01-02"`
	To      string `json:"to" validate:"required,datetime=2006-01-02"`
	Persist bool   `json:"persist"`
}

type FailureDTO struct {
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
}

func toFailureDTOs(failures []attendance.EmployeeFailure) []FailureDTO {
	out := make([]FailureDTO, 0, len(failures))
	for _, f := range failures {
		out = append(out, FailureDTO{
			EmployeeID: string(f.EmployeeID),
			Kind:       failureKind(f.Err),
			Error:      f.Err.Error(),
		})
	}
	return out
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, attendance.ErrUnknownOrganization):
		return "unknown_organization"
	case errors.Is(err, attendance.ErrMissingJoiningDate):
		return "missing_joining_date"
	case errors.Is(err, attendance.ErrMalformedAttendanceRange):
		return "malformed_range"
	case generic.IsNotFound(err):
		return "unknown_employee"
	default:
		return "internal"
	}
}

type RunResponse struct {
	RunID     string              `json:"run_id,omitempty"`
	From      string              `json:"from"`
	To        string              `json:"to"`
	Summary   []report.SummaryRow `json:"summary"`
	Failures  []FailureDTO        `json:"failures"`
	Persisted int                 `json:"persisted"`
}

type RunDTO struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Employees int    `json:"employees"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Persist   bool   `json:"persist"`
	Persisted int    `json:"persisted"`
	CreatedAt string `json:"created_at"`
}

// =============================================================================
// REPORTS
// =============================================================================

type BalanceDTO struct {
	Year      int    `json:"year"`
	Half      string `json:"half"`
	Quota     int    `json:"quota"`
	Consumed  int    `json:"consumed"`
	Available int    `json:"available"`
}

func toBalanceDTOs(balances []attendance.CLBalance) []BalanceDTO {
	out := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		out = append(out, BalanceDTO{
			Year:      b.Year(),
			Half:      b.Half.String(),
			Quota:     b.Quota(),
			Consumed:  b.Consumed(),
			Available: b.Available().IntPart(),
		})
	}
	return out
}

type DetailResponse struct {
	Employee                    EmployeeDTO        `json:"employee"`
	Policy                      string             `json:"policy"`
	Summary                     report.SummaryRow  `json:"summary"`
	Days                        []report.DetailRow `json:"days"`
	Balances                    []BalanceDTO       `json:"balances"`
	FirstWeeklyOffMayUndercount bool               `json:"first_weekly_off_may_undercount"`
}

type SummaryResponse struct {
	From     string              `json:"from"`
	To       string              `json:"to"`
	Group    string              `json:"group"`
	Rows     []report.SummaryRow `json:"rows"`
	Failures []FailureDTO        `json:"failures"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
