// Package report renders induction plans as spreadsheets and printable PDFs.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"depotplan/internal/engine"
)

const (
	summarySheet  = "summary"
	trainsSheet   = "trains"
	stablingSheet = "stabling"
)

// Format names an export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename is the suggested download name for a plan.
func (f Format) Filename(plan engine.InductionPlan) string {
	return fmt.Sprintf("induction-plan-%s-%s.%s", plan.Depot, plan.GeneratedAt.Format("20060102"), f)
}

// Build renders plan in format f.
func Build(plan engine.InductionPlan, f Format) ([]byte, error) {
	if f == FormatPDF {
		return BuildPlanPDF(plan)
	}
	return BuildPlanXLSX(plan)
}

// rows flattens recommended then blocked trains into one ordered table.
func rows(plan engine.InductionPlan) []engine.TrainStatus {
	out := make([]engine.TrainStatus, 0, len(plan.Recommended)+len(plan.Blocked))
	out = append(out, plan.Recommended...)
	return append(out, plan.Blocked...)
}

func verdict(st engine.TrainStatus) string {
	if st.Readiness.Ready {
		return "READY"
	}
	return strings.Join(st.Readiness.Reasons.Strings(), " ")
}

// BuildPlanPDF renders a one-page summary followed by the train table.
func BuildPlanPDF(plan engine.InductionPlan) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Induction Plan")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Depot: %s", plan.Depot))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", plan.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Trains: %d  Ready: %d  Blocked: %d  In maintenance: %d",
		plan.TotalTrains, plan.ReadyTrains, plan.BlockedTrains, plan.InMaintenance))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Average score: %.1f  Average mileage balance: %.1f km",
		plan.AverageScore, plan.AverageMileageBalance))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Stabling: %d bays for %d trains, %d shunting moves (%s)",
		plan.Stabling.AvailableBays, plan.Stabling.EligibleTrains, plan.Stabling.TotalShuntingMoves, plan.Stabling.Variant))
	pdf.Ln(5)
	if len(plan.CleaningDue) > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Cleaning due: %s", strings.Join(plan.CleaningDue, ", ")))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(25, 6, "Train", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Score", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Branding", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Balance (km)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Bay", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, "Readiness", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, st := range rows(plan) {
		pdf.CellFormat(25, 6, st.Train.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", st.Priority.Score), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, st.Priority.Urgency.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", st.Readiness.MileageBalance), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, st.Bay, "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, verdict(st), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPlanXLSX renders the plan into summary, trains and stabling sheets.
func BuildPlanXLSX(plan engine.InductionPlan) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{trainsSheet, stablingSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	summary := [][2]any{
		{"Depot", plan.Depot},
		{"Generated", plan.GeneratedAt.Format(time.RFC3339)},
		{"Total trains", plan.TotalTrains},
		{"Ready", plan.ReadyTrains},
		{"Blocked", plan.BlockedTrains},
		{"In maintenance", plan.InMaintenance},
		{"Average score", plan.AverageScore},
		{"Average mileage balance", plan.AverageMileageBalance},
		{"Cleaning due", strings.Join(plan.CleaningDue, ", ")},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Induction Plan")
	for i, kv := range summary {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	header := []any{"Train", "Status", "Ready", "Score", "Branding", "Mileage balance", "Utilization %", "Certification", "Open work orders", "Bay", "Reasons"}
	if err := f.SetSheetRow(trainsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, st := range rows(plan) {
		row := []any{
			st.Train.ID,
			string(st.Train.Status),
			st.Readiness.Ready,
			st.Priority.Score,
			st.Priority.Urgency.String(),
			st.Readiness.MileageBalance,
			st.Utilization,
			string(st.Certification),
			st.OpenWorkOrders,
			st.Bay,
			strings.Join(st.Readiness.Reasons.Strings(), " "),
		}
		if err := f.SetSheetRow(trainsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	sp := plan.Stabling
	_ = f.SetCellValue(stablingSheet, "A1", "Available bays")
	_ = f.SetCellValue(stablingSheet, "B1", sp.AvailableBays)
	_ = f.SetCellValue(stablingSheet, "A2", "Eligible trains")
	_ = f.SetCellValue(stablingSheet, "B2", sp.EligibleTrains)
	_ = f.SetCellValue(stablingSheet, "A3", "Can accommodate")
	_ = f.SetCellValue(stablingSheet, "B3", sp.CanAccommodate)
	_ = f.SetCellValue(stablingSheet, "A4", "Total shunting moves")
	_ = f.SetCellValue(stablingSheet, "B4", sp.TotalShuntingMoves)
	_ = f.SetCellValue(stablingSheet, "C4", string(sp.Variant))

	pairs := map[string]string{}
	for _, p := range sp.Pairings {
		pairs[p.BayID] = p.TrainID
	}
	_ = f.SetCellValue(stablingSheet, "A6", "Bay")
	_ = f.SetCellValue(stablingSheet, "B6", "Track")
	_ = f.SetCellValue(stablingSheet, "C6", "Shunting depth")
	_ = f.SetCellValue(stablingSheet, "D6", "Suggested train")
	for i, b := range sp.RankedBays {
		row := i + 7
		_ = f.SetCellValue(stablingSheet, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(stablingSheet, fmt.Sprintf("B%d", row), b.TrackID)
		_ = f.SetCellValue(stablingSheet, fmt.Sprintf("C%d", row), b.Depth())
		_ = f.SetCellValue(stablingSheet, fmt.Sprintf("D%d", row), pairs[b.ID])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
