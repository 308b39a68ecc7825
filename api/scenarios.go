/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	attendance sheets. Each scenario creates employees and a month or more
	of raw marks that exercise one part of the leave policies.

AVAILABLE SCENARIOS:

	hospital-staff:     Ten-day rosters; paid and unpaid weekly offs
	clinic-consultant:  Consultant exhausting the H1 casual leave quota
	mixed-clinic:       Several employees, two of which cannot be classified

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees
 3. Upload marks generated from a day pattern

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "clinic-consultant"}

	then POST /api/runs with the scenario's from/to.

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ExecuteRun
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "hospital-staff",
			Name:        "Hospital Staff",
			Description: "Nurse on a ten-day roster; the weekly off after a short stretch is unpaid",
			From:        "2024-03-01",
			To:          "2024-03-31",
		},
		load: loadHospitalStaffScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "clinic-consultant",
			Name:        "Clinic Consultant",
			Description: "Consultant with 13 CL a year takes 8 days off in January: 7 CL then 1 LOP",
			From:        "2024-01-01",
			To:          "2024-01-31",
		},
		load: loadClinicConsultantScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "mixed-clinic",
			Name:        "Mixed Clinic",
			Description: "Staff and consultants; a hospital consultant and a consultant without joining date fail alone",
			From:        "2024-06-01",
			To:          "2024-07-31",
		},
		load: loadMixedClinicScenario,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

// ListScenarios returns all available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, s.ScenarioDTO)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario resets the database and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to reset database", err)
		return
	}
	if err := s.load(ctx, h); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	h.Logger.WithField("scenario", s.ID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadHospitalStaffScenario(ctx context.Context, h *Handler) error {
	nurse := attendance.Employee{
		ID:           "S-100",
		Name:         "Priya Nair",
		Department:   "Nursing",
		Organization: attendance.OrgHospital,
		Category:     attendance.CategoryStaff,
	}
	// 9 days then off (paid), an absence leaves 8 (unpaid), 5 then off (unpaid)
	pattern := "PPPPPPPPPW" + "PPPPAPPPPW" + "PPPPPW" + "PPPPP"
	return seed(ctx, h, []attendance.Employee{nurse}, map[generic.EntityID]string{
		nurse.ID: pattern,
	}, "2024-03-01")
}

func loadClinicConsultantScenario(ctx context.Context, h *Handler) error {
	joined := generic.NewTimePoint(2021, 4, 1)
	consultant := attendance.Employee{
		ID:           "C-200",
		Name:         "Dr. Meera Iyer",
		Department:   "Cardiology",
		Organization: attendance.OrgSuperClinic,
		Category:     attendance.CategoryConsultant,
		JoiningDate:  &joined,
	}
	// 7 CL count as attendance and the LOP day does not: 7+2 reaches 9,
	// so the weekly off after the leave is still paid
	pattern := "PPPPPPPPPW" + "AAAAAAAAPPW" + "PPPPPPPPPW"
	return seed(ctx, h, []attendance.Employee{consultant}, map[generic.EntityID]string{
		consultant.ID: pattern,
	}, "2024-01-01")
}

func loadMixedClinicScenario(ctx context.Context, h *Handler) error {
	early := generic.NewTimePoint(2020, 9, 15)
	late := generic.NewTimePoint(2023, 2, 1)
	employees := []attendance.Employee{
		{ID: "C-301", Name: "Dr. Arjun Rao", Department: "Orthopaedics", Organization: attendance.OrgSuperClinic, Category: attendance.CategoryConsultant, JoiningDate: &early},
		{ID: "C-302", Name: "Dr. Kavya Shah", Department: "Dermatology", Organization: attendance.OrgSuperClinic, Category: attendance.CategoryConsultant, JoiningDate: &late},
		{ID: "C-303", Name: "Dr. Sunil Menon", Department: "Radiology", Organization: attendance.OrgSuperClinic, Category: attendance.CategoryConsultant},
		{ID: "H-304", Name: "Dr. Leela Das", Department: "Surgery", Organization: attendance.OrgHospital, Category: attendance.CategoryConsultant},
		{ID: "S-305", Name: "Ravi Kumar", Department: "Front Office", Organization: attendance.OrgSuperClinic, Category: attendance.CategoryStaff},
	}

	// June has 30 days, July 31: the absences straddle the H1/H2 boundary
	june := strings.Repeat("PPPPPPPPPW", 2) + "PPPAAAAAAA"
	july := "AAAPPPPPPW" + strings.Repeat("PPPPPPPPPW", 2) + "P"
	patterns := make(map[generic.EntityID]string, len(employees))
	for _, emp := range employees {
		patterns[emp.ID] = june + july
	}
	return seed(ctx, h, employees, patterns, "2024-06-01")
}

// seed saves employees and marks built from day patterns: P present,
// A absent, W weekly off.
func seed(ctx context.Context, h *Handler, employees []attendance.Employee, patterns map[generic.EntityID]string, start string) error {
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("save employee %s: %w", emp.ID, err)
		}
	}

	first, err := generic.ParseTimePoint(start)
	if err != nil {
		return err
	}
	var marks []attendance.RawDayMark
	for _, emp := range employees {
		m, err := marksFromPattern(emp.ID, first, patterns[emp.ID])
		if err != nil {
			return err
		}
		marks = append(marks, m...)
	}
	return h.Store.SaveMarks(ctx, marks)
}

func marksFromPattern(id generic.EntityID, first generic.TimePoint, pattern string) ([]attendance.RawDayMark, error) {
	marks := make([]attendance.RawDayMark, 0, len(pattern))
	for i, c := range pattern {
		var status attendance.RawStatus
		switch c {
		case 'P':
			status = attendance.RawPresent
		case 'A':
			status = attendance.RawAbsent
		case 'W':
			status = attendance.RawWeeklyOff
		default:
			return nil, fmt.Errorf("pattern for %s: unexpected %q at %d", id, c, i)
		}
		marks = append(marks, attendance.RawDayMark{
			EmployeeID: id,
			Date:       first.AddDays(i),
			Status:     status,
			Code:       string(status),
		})
	}
	return marks, nil
}
