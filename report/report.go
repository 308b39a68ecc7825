/*
Package report folds classified days into the tables payroll consumes.

PURPOSE:
  Summary rows count days per category for an employee and a period.
  Detail rows list every classified day in date order. Both are plain
  values recomputed on every call; nothing is cached between calls, so
  the same input always yields the same rows.

INVARIANTS:
  - Completeness: a summary row's counts add up to the days it was built from.
  - Determinism: Detail and SummarizeAll sort their output; map iteration
    order never leaks into a report.

SEE ALSO:
  - export.go: CSV and XLSX writers
  - attendance/classify.go: Produces the ClassifiedDay input
*/
package report

import (
	"fmt"
	"sort"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ROWS
// =============================================================================

type SummaryRow struct {
	EmployeeID      string         `csv:"employee_id" json:"employee_id"`
	Name            string         `csv:"name" json:"name"`
	Department      string         `csv:"department" json:"department"`
	Period          string         `csv:"period" json:"period"`
	Present         int            `csv:"present" json:"present"`
	Absent          int            `csv:"absent" json:"absent"`
	WeeklyOffPaid   int            `csv:"weekly_off_paid" json:"weekly_off_paid"`
	WeeklyOffUnpaid int            `csv:"weekly_off_unpaid" json:"weekly_off_unpaid"`
	CasualLeave     int            `csv:"casual_leave" json:"casual_leave"`
	LossOfPay       int            `csv:"loss_of_pay" json:"loss_of_pay"`
	Total           int            `csv:"total_days" json:"total_days"`
	Range           generic.Period `csv:"-" json:"-"`
}

// Count returns the count for one category.
func (r SummaryRow) Count(c attendance.DayCategory) int {
	switch c {
	case attendance.Present:
		return r.Present
	case attendance.Absent:
		return r.Absent
	case attendance.WeeklyOffPaid:
		return r.WeeklyOffPaid
	case attendance.WeeklyOffUnpaid:
		return r.WeeklyOffUnpaid
	case attendance.CasualLeave:
		return r.CasualLeave
	case attendance.LossOfPay:
		return r.LossOfPay
	}
	return 0
}

func (r *SummaryRow) add(c attendance.DayCategory) {
	switch c {
	case attendance.Present:
		r.Present++
	case attendance.Absent:
		r.Absent++
	case attendance.WeeklyOffPaid:
		r.WeeklyOffPaid++
	case attendance.WeeklyOffUnpaid:
		r.WeeklyOffUnpaid++
	case attendance.CasualLeave:
		r.CasualLeave++
	case attendance.LossOfPay:
		r.LossOfPay++
	}
	r.Total++
}

type DetailRow struct {
	EmployeeID string `csv:"employee_id" json:"employee_id"`
	Name       string `csv:"name" json:"name"`
	Date       string `csv:"date" json:"date"`
	Weekday    string `csv:"weekday" json:"weekday"`
	Category   string `csv:"category" json:"category"`
	Code       string `csv:"code" json:"code"`
	Raw        string `csv:"raw_status" json:"raw_status"`
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Summarize counts every day given, whatever its date; period only labels
// the row.
func Summarize(emp attendance.Employee, period generic.Period, label string, days []attendance.ClassifiedDay) SummaryRow {
	row := SummaryRow{
		EmployeeID: string(emp.ID),
		Name:       emp.Name,
		Department: emp.Department,
		Period:     label,
		Range:      period,
	}
	for _, d := range days {
		row.add(d.Category)
	}
	return row
}

// Detail returns one row per day sorted by date. The input is not modified.
func Detail(emp attendance.Employee, days []attendance.ClassifiedDay) []DetailRow {
	sorted := make([]attendance.ClassifiedDay, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	rows := make([]DetailRow, 0, len(sorted))
	for _, d := range sorted {
		rows = append(rows, DetailRow{
			EmployeeID: string(emp.ID),
			Name:       emp.Name,
			Date:       d.Date.String(),
			Weekday:    d.Date.Weekday().String()[:3],
			Category:   string(d.Category),
			Code:       d.Category.Short(),
			Raw:        string(d.Raw),
		})
	}
	return rows
}

// GroupBy selects the period of each summary row.
type GroupBy string

const (
	GroupByRun   GroupBy = "run"   // one row per employee for the whole window
	GroupByMonth GroupBy = "month" // one row per employee per calendar month
	GroupByHalf  GroupBy = "half"  // one row per employee per half-year
)

// ParseGroupBy accepts "", "run", "month" and "half".
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case "", GroupByRun:
		return GroupByRun, nil
	case GroupByMonth, GroupByHalf:
		return GroupBy(s), nil
	}
	return "", fmt.Errorf("report: unknown grouping %q", s)
}

// SummarizeAll produces rows sorted by employee then period start.
func SummarizeAll(results []attendance.ClassifyResult, by GroupBy) []SummaryRow {
	var rows []SummaryRow
	for _, res := range results {
		whole, ok := res.Period()
		if !ok {
			continue
		}
		for _, p := range split(whole, by) {
			rows = append(rows, Summarize(res.Employee, p, label(p, by), daysIn(res.Days, p)))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EmployeeID != rows[j].EmployeeID {
			return rows[i].EmployeeID < rows[j].EmployeeID
		}
		return rows[i].Range.Start.Before(rows[j].Range.Start)
	})
	return rows
}

// DetailAll concatenates Detail for every result, ordered by employee.
func DetailAll(results []attendance.ClassifyResult) []DetailRow {
	sorted := make([]attendance.ClassifyResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Employee.ID < sorted[j].Employee.ID })

	var rows []DetailRow
	for _, res := range sorted {
		rows = append(rows, Detail(res.Employee, res.Days)...)
	}
	return rows
}

// GroupByDepartment buckets rows by department, keeping their order.
func GroupByDepartment(rows []SummaryRow) map[string][]SummaryRow {
	out := make(map[string][]SummaryRow)
	for _, r := range rows {
		out[r.Department] = append(out[r.Department], r)
	}
	return out
}

func split(p generic.Period, by GroupBy) []generic.Period {
	switch by {
	case GroupByMonth:
		return generic.PeriodMonth.Split(p)
	case GroupByHalf:
		return generic.PeriodHalfYear.Split(p)
	default:
		return []generic.Period{p}
	}
}

func label(p generic.Period, by GroupBy) string {
	switch by {
	case GroupByMonth:
		return p.Start.Time.Format("2006-01")
	case GroupByHalf:
		return fmt.Sprintf("%d-%s", p.Start.Year(), generic.HalfYearOf(p.Start))
	default:
		return p.Start.String() + ".." + p.End.String()
	}
}

func daysIn(days []attendance.ClassifiedDay, p generic.Period) []attendance.ClassifiedDay {
	var out []attendance.ClassifiedDay
	for _, d := range days {
		if p.Contains(d.Date) {
			out = append(out, d)
		}
	}
	return out
}
