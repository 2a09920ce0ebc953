package interfaces

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	compliance "speedwatch/internal/compliance/domain"
	"speedwatch/internal/timeslot"
)

func slotMark(pc compliance.ProviderCompliance, slot timeslot.Slot) string {
	if record := pc.Slots[slot]; record != nil {
		return record.Timestamp.Format("15:04")
	}
	return "-"
}

// BuildReportPDF renders one office's daily compliance report.
func BuildReportPDF(report compliance.OfficeReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Daily Compliance Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Office: %s", report.OfficeID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Day: %s", report.Day.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Completed Slots: %d of %d", report.TotalCompletedSlots, report.TotalRequiredSlots))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Compliance: %d%%", report.Percentage))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "ISP", "1", 0, "C", false, 0, "")
	for _, slot := range timeslot.All() {
		pdf.CellFormat(30, 6, string(slot), "1", 0, "C", false, 0, "")
	}
	pdf.CellFormat(30, 6, "Percent", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, pc := range report.Providers {
		pdf.CellFormat(60, 6, pc.Provider.DisplayName(), "1", 0, "L", false, 0, "")
		for _, slot := range timeslot.All() {
			pdf.CellFormat(30, 6, slotMark(pc, slot), "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(30, 6, fmt.Sprintf("%d%%", pc.Percentage), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders one office's daily compliance report.
func BuildReportXLSX(report compliance.OfficeReport) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	detailSheet := "providers"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(detailSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Daily Compliance Report")
	_ = f.SetCellValue(summarySheet, "A3", "Office")
	_ = f.SetCellValue(summarySheet, "B3", report.OfficeID)
	_ = f.SetCellValue(summarySheet, "A4", "Day")
	_ = f.SetCellValue(summarySheet, "B4", report.Day.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Required Slots")
	_ = f.SetCellValue(summarySheet, "B5", report.TotalRequiredSlots)
	_ = f.SetCellValue(summarySheet, "A6", "Completed Slots")
	_ = f.SetCellValue(summarySheet, "B6", report.TotalCompletedSlots)
	_ = f.SetCellValue(summarySheet, "A7", "Compliance (%)")
	_ = f.SetCellValue(summarySheet, "B7", report.Percentage)

	_ = f.SetCellValue(detailSheet, "A1", "ISP")
	for i, slot := range timeslot.All() {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		_ = f.SetCellValue(detailSheet, cell, string(slot))
	}
	_ = f.SetCellValue(detailSheet, "E1", "Completed")
	_ = f.SetCellValue(detailSheet, "F1", "Percent")
	for i, pc := range report.Providers {
		row := i + 2
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("A%d", row), pc.Provider.DisplayName())
		for j, slot := range timeslot.All() {
			cell, _ := excelize.CoordinatesToCellName(j+2, row)
			_ = f.SetCellValue(detailSheet, cell, slotMark(pc, slot))
		}
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("E%d", row), pc.CompletedSlots)
		_ = f.SetCellValue(detailSheet, fmt.Sprintf("F%d", row), pc.Percentage)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildFleetXLSX renders the fleet summary, one row per office sorted
// by id, with the category buckets on a second sheet.
func BuildFleetXLSX(summary compliance.FleetSummary) ([]byte, error) {
	f := excelize.NewFile()
	officesSheet := "offices"
	bucketsSheet := "buckets"
	f.SetSheetName("Sheet1", officesSheet)
	f.NewSheet(bucketsSheet)

	reports := append([]compliance.OfficeReport(nil), summary.Reports...)
	sort.Slice(reports, func(i, j int) bool { return reports[i].OfficeID < reports[j].OfficeID })

	_ = f.SetCellValue(officesSheet, "A1", "Office")
	_ = f.SetCellValue(officesSheet, "B1", "Completed")
	_ = f.SetCellValue(officesSheet, "C1", "Required")
	_ = f.SetCellValue(officesSheet, "D1", "Percent")
	for i, report := range reports {
		row := i + 2
		_ = f.SetCellValue(officesSheet, fmt.Sprintf("A%d", row), report.OfficeID)
		_ = f.SetCellValue(officesSheet, fmt.Sprintf("B%d", row), report.TotalCompletedSlots)
		_ = f.SetCellValue(officesSheet, fmt.Sprintf("C%d", row), report.TotalRequiredSlots)
		_ = f.SetCellValue(officesSheet, fmt.Sprintf("D%d", row), report.Percentage)
	}

	_ = f.SetCellValue(bucketsSheet, "A1", "Fully Compliant")
	_ = f.SetCellValue(bucketsSheet, "B1", "Partially Compliant")
	_ = f.SetCellValue(bucketsSheet, "C1", "Non Compliant")
	writeColumn := func(col string, ids []string) {
		for i, id := range ids {
			_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("%s%d", col, i+2), id)
		}
	}
	writeColumn("A", summary.FullyCompliant)
	writeColumn("B", summary.PartiallyCompliant)
	writeColumn("C", summary.NonCompliant)
	_ = f.SetCellValue(bucketsSheet, "E1", "Average (%)")
	_ = f.SetCellValue(bucketsSheet, "E2", summary.AveragePercentage)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
