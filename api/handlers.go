/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes employee registration, attendance upload, classification runs
  and payroll reports over REST. Handles HTTP request/response, JSON
  serialization, and delegates to the attendance and report packages.

ENDPOINTS:
  Employees:
    GET    /api/employees                List all employees
    POST   /api/employees                Create or replace an employee
    GET    /api/employees/{id}           Get employee details

  Attendance:
    POST   /api/attendance               Upload raw day marks (upsert per day)

  Runs:
    POST   /api/runs                     Classify a date window, optionally persist CL
    GET    /api/runs                     Recent runs

  Reports:
    GET    /api/reports/summary          Category counts per employee and period
    GET    /api/reports/detail/{id}      Day-by-day classification for one employee

REQUEST FLOW:
  1. Decode and validate the request (validator/v10)
  2. Load marks and employees from the store
  3. Attach opening CL balances from the ledger
  4. Run the Processor
  5. Serialize JSON, CSV or XLSX

ERROR HANDLING:
  - 400: Validation errors, unreadable status codes, bad date windows
  - 404: Unknown employee
  - 422: Employee data the policy cannot classify
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/report"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Ledger    generic.Ledger
	Processor *attendance.Processor
	Logger    *logrus.Logger

	validate *validator.Validate
}

// NewHandler wires a handler around store. The store also backs the CL ledger.
func NewHandler(store *sqlite.Store, processor *attendance.Processor, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Store:     store,
		Ledger:    generic.NewLedger(store),
		Processor: processor,
		Logger:    logger,
		validate:  validator.New(),
	}
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, emp := range employees {
		dtos = append(dtos, toEmployeeDTO(emp))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := generic.EntityID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or replaces an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp := req.toEmployee()
	if emp.Category == attendance.CategoryConsultant && emp.JoiningDate == nil {
		h.writeError(w, http.StatusBadRequest, "consultants need a joining date",
			&attendance.MissingJoiningDateError{EmployeeID: emp.ID})
		return
	}
	if _, err := attendance.SelectPolicy(emp, h.Processor.Options); err != nil {
		h.writeDomainError(w, "no leave policy for employee", err)
		return
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// ATTENDANCE ENDPOINTS
// =============================================================================

// UploadAttendance stores raw marks. A day uploaded twice keeps the latest mark.
// POST /api/attendance
func (h *Handler) UploadAttendance(w http.ResponseWriter, r *http.Request) {
	var req UploadAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	marks, err := req.toMarks()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable attendance mark", err)
		return
	}
	if err := h.Store.SaveMarks(r.Context(), marks); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to save attendance", err)
		return
	}

	employees := make(map[generic.EntityID]bool)
	for _, m := range marks {
		employees[m.EmployeeID] = true
	}
	h.Logger.WithFields(logrus.Fields{
		"marks":     len(marks),
		"employees": len(employees),
	}).Info("attendance uploaded")

	writeJSON(w, http.StatusOK, UploadAttendanceResponse{Saved: len(marks), Employees: len(employees)})
}

// =============================================================================
// RUN ENDPOINTS
// =============================================================================

// CreateRun classifies every employee with marks in the window.
// POST /api/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !h.decode(w, r, &req) {
		return
	}
	window, err := parseWindow(req.From, req.To)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date window", err)
		return
	}

	resp, err := h.ExecuteRun(r.Context(), window, req.Persist)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns the most recent runs.
// GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context(), 50)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, RunDTO{
			ID:        run.ID,
			From:      run.Period.Start.String(),
			To:        run.Period.End.String(),
			Employees: run.Employees,
			Succeeded: run.Succeeded,
			Failed:    run.Failed,
			Persist:   run.Persist,
			Persisted: run.Persisted,
			CreatedAt: run.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExecuteRun classifies window, optionally records CL consumption in the
// ledger, and logs the run. Per-employee failures are part of the response;
// only storage errors are returned.
func (h *Handler) ExecuteRun(ctx context.Context, window generic.Period, persist bool) (RunResponse, error) {
	res, err := h.classifyWindow(ctx, window)
	if err != nil {
		return RunResponse{}, err
	}

	runID := uuid.NewString()
	persisted := 0
	if persist {
		if persisted, err = attendance.RecordConsumption(ctx, h.Ledger, res.Results, runID); err != nil {
			return RunResponse{}, err
		}
	}

	run := sqlite.Run{
		ID:        runID,
		Period:    window,
		Employees: len(res.Results) + len(res.Failures),
		Succeeded: len(res.Results),
		Failed:    len(res.Failures),
		Persist:   persist,
		Persisted: persisted,
		CreatedAt: time.Now(),
	}
	if err := h.Store.SaveRun(ctx, run); err != nil {
		return RunResponse{}, fmt.Errorf("save run: %w", err)
	}

	h.Logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"from":      window.Start.String(),
		"to":        window.End.String(),
		"succeeded": run.Succeeded,
		"failed":    run.Failed,
		"persisted": persisted,
	}).Info("attendance run completed")

	return RunResponse{
		RunID:     runID,
		From:      window.Start.String(),
		To:        window.End.String(),
		Summary:   nonNilRows(report.SummarizeAll(res.Results, report.GroupByRun)),
		Failures:  toFailureDTOs(res.Failures),
		Persisted: persisted,
	}, nil
}

// classifyWindow loads the batch for window, attaches opening balances and
// runs the processor.
func (h *Handler) classifyWindow(ctx context.Context, window generic.Period) (attendance.BatchResult, error) {
	batch, err := h.Store.LoadBatch(ctx, window)
	if err != nil {
		return attendance.BatchResult{}, fmt.Errorf("load batch: %w", err)
	}

	batch.Opening = make(map[generic.EntityID][]attendance.CLBalance)
	for id, emp := range batch.Employees {
		opening, err := h.openingBalances(ctx, emp, window)
		if err != nil {
			return attendance.BatchResult{}, err
		}
		batch.Opening[id] = opening
	}

	return h.Processor.Process(ctx, batch)
}

// openingBalances returns nil for employees the processor will reject; the
// processor reports those failures itself.
func (h *Handler) openingBalances(ctx context.Context, emp attendance.Employee, window generic.Period) ([]attendance.CLBalance, error) {
	policy, err := attendance.SelectPolicy(emp, h.Processor.Options)
	if err != nil {
		return nil, nil
	}
	opening, err := attendance.OpeningBalances(ctx, h.Ledger, emp, policy, window)
	if err != nil {
		if attendance.IsEmployeeError(err) {
			return nil, nil
		}
		return nil, err
	}
	return opening, nil
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// SummaryReport returns category counts per employee and period. Days are
// classified from the first of the month containing from, then trimmed to
// the requested range.
// GET /api/reports/summary?from=&to=&group=run|month|half&department=&employee=&format=json|csv|xlsx
func (h *Handler) SummaryReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date window", err)
		return
	}
	group, err := report.ParseGroupBy(q.Get("group"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid group", err)
		return
	}
	format := q.Get("format")
	if !validFormat(format) {
		h.writeError(w, http.StatusBadRequest, "invalid format", fmt.Errorf("unknown format %q", format))
		return
	}

	res, err := h.classifyWindow(r.Context(), reportSpan(window))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "classification failed", err)
		return
	}

	filter := report.Filter{
		Departments: listParam(q["department"]),
		From:        &window.Start,
		To:          &window.End,
	}
	for _, id := range listParam(q["employee"]) {
		filter.EmployeeIDs = append(filter.EmployeeIDs, generic.EntityID(id))
	}
	results := filter.Apply(res.Results)
	rows := report.SummarizeAll(results, group)

	switch format {
	case "csv":
		writeAttachment(w, "text/csv", "summary.csv")
		if err := report.WriteSummaryCSV(w, rows); err != nil {
			h.Logger.WithError(err).Error("write summary csv")
		}
	case "xlsx":
		writeAttachment(w, xlsxContentType, "attendance.xlsx")
		if err := report.WriteXLSX(w, rows, report.DetailAll(results)); err != nil {
			h.Logger.WithError(err).Error("write summary xlsx")
		}
	default:
		writeJSON(w, http.StatusOK, SummaryResponse{
			From:     window.Start.String(),
			To:       window.End.String(),
			Group:    string(group),
			Rows:     nonNilRows(rows),
			Failures: toFailureDTOs(res.Failures),
		})
	}
}

// DetailReport returns one employee's classified days. Like SummaryReport it
// classifies from the start of the month and reports only the asked range.
// GET /api/reports/detail/{id}?from=&to=&format=json|csv|xlsx
func (h *Handler) DetailReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.EntityID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	window, err := parseWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date window", err)
		return
	}
	format := q.Get("format")
	if !validFormat(format) {
		h.writeError(w, http.StatusBadRequest, "invalid format", fmt.Errorf("unknown format %q", format))
		return
	}

	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		h.writeDomainError(w, "failed to get employee", err)
		return
	}
	span := reportSpan(window)
	marks, err := h.Store.LoadMarks(ctx, id, span)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load attendance", err)
		return
	}
	opening, err := h.openingBalances(ctx, emp, span)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load leave balances", err)
		return
	}

	batch := attendance.Batch{
		Employees: map[generic.EntityID]attendance.Employee{id: emp},
		Marks:     map[generic.EntityID][]attendance.RawDayMark{id: marks},
		Opening:   map[generic.EntityID][]attendance.CLBalance{id: opening},
	}
	res, err := h.Processor.ProcessEmployee(batch, id)
	if err != nil {
		h.writeDomainError(w, "employee cannot be classified", err)
		return
	}

	var inWindow []attendance.ClassifiedDay
	if trimmed := (report.Filter{From: &window.Start, To: &window.End}).Apply([]attendance.ClassifyResult{res}); len(trimmed) == 1 {
		inWindow = trimmed[0].Days
	}
	days := report.Detail(emp, inWindow)
	summary := report.Summarize(emp, window, window.Start.String()+".."+window.End.String(), inWindow)

	switch format {
	case "csv":
		writeAttachment(w, "text/csv", string(id)+".csv")
		if err := report.WriteDetailCSV(w, days); err != nil {
			h.Logger.WithError(err).Error("write detail csv")
		}
	case "xlsx":
		writeAttachment(w, xlsxContentType, string(id)+".xlsx")
		if err := report.WriteXLSX(w, []report.SummaryRow{summary}, days); err != nil {
			h.Logger.WithError(err).Error("write detail xlsx")
		}
	default:
		if days == nil {
			days = []report.DetailRow{}
		}
		writeJSON(w, http.StatusOK, DetailResponse{
			Employee:                    toEmployeeDTO(emp),
			Policy:                      string(res.Policy.ID()),
			Summary:                     summary,
			Days:                        days,
			Balances:                    toBalanceDTOs(res.Balances),
			FirstWeeklyOffMayUndercount: res.FirstWeeklyOffMayUndercount,
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.Logger.WithError(err).Error(message)
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's kind.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	h.writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case attendance.IsEmployeeError(err):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err), errors.Is(err, attendance.ErrUnknownStatusCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

func parseWindow(from, to string) (generic.Period, error) {
	if from == "" || to == "" {
		return generic.Period{}, fmt.Errorf("%w: from and to are required", generic.ErrInvalidPeriod)
	}
	start, err := generic.ParseTimePoint(from)
	if err != nil {
		return generic.Period{}, err
	}
	end, err := generic.ParseTimePoint(to)
	if err != nil {
		return generic.Period{}, err
	}
	return generic.NewPeriod(start, end)
}

// reportSpan widens window back to the first of its month, so a report
// starting mid-month sees the weekly-off stretch and casual leave already
// used earlier in that month.
func reportSpan(window generic.Period) generic.Period {
	return generic.Period{
		Start: generic.StartOfMonth(window.Start.Year(), window.Start.Month()),
		End:   window.End,
	}
}

func validFormat(f string) bool {
	switch f {
	case "", "json", "csv", "xlsx":
		return true
	}
	return false
}

// listParam flattens repeated and comma-separated query values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func nonNilRows(rows []report.SummaryRow) []report.SummaryRow {
	if rows == nil {
		return []report.SummaryRow{}
	}
	return rows
}
