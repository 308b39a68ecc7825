package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// WriteSummaryCSV writes rows with a header line.
func WriteSummaryCSV(w io.Writer, rows []SummaryRow) error {
	if rows == nil {
		rows = []SummaryRow{}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("report: write summary csv: %w", err)
	}
	return nil
}

// WriteDetailCSV writes rows with a header line.
func WriteDetailCSV(w io.Writer, rows []DetailRow) error {
	if rows == nil {
		rows = []DetailRow{}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("report: write detail csv: %w", err)
	}
	return nil
}

var (
	summaryHeadings = []string{"Employee ID", "Name", "Department", "Period", "Present", "Absent",
		"WO Paid", "WO Unpaid", "CL", "LOP", "Total Days"}
	detailHeadings = []string{"Employee ID", "Name", "Date", "Day", "Category", "Code", "Raw"}
)

const (
	summarySheet = "Summary"
	detailSheet  = "Detail"
)

// WriteXLSX writes a workbook with a Summary and a Detail sheet.
func WriteXLSX(w io.Writer, summary []SummaryRow, detail []DetailRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return fmt.Errorf("report: add sheet: %w", err)
	}

	summaryValues := make([][]any, 0, len(summary))
	for _, r := range summary {
		summaryValues = append(summaryValues, []any{r.EmployeeID, r.Name, r.Department, r.Period,
			r.Present, r.Absent, r.WeeklyOffPaid, r.WeeklyOffUnpaid, r.CasualLeave, r.LossOfPay, r.Total})
	}
	if err := writeSheet(f, summarySheet, summaryHeadings, summaryValues); err != nil {
		return err
	}

	detailValues := make([][]any, 0, len(detail))
	for _, r := range detail {
		detailValues = append(detailValues, []any{r.EmployeeID, r.Name, r.Date, r.Weekday, r.Category, r.Code, r.Raw})
	}
	if err := writeSheet(f, detailSheet, detailHeadings, detailValues); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headings []string, rows [][]any) error {
	header := make([]any, len(headings))
	for i, h := range headings {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("report: %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
