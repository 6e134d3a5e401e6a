package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

const (
	documentsSheet = "Documents"
	summarySheet   = "Summary"
)

var documentHeaders = []string{
	"Source File",
	"Tax ID",
	"Partner Name",
	"Invoice Number",
	"Issue Date",
	"Reference",
	"Output",
	"Merged",
	"Error",
}

// ReportWriter renders a job's per-document outcomes as an XLSX workbook.
type ReportWriter struct {
	logger *slog.Logger
}

func NewReportWriter(logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{logger: logger}
}

// Write saves the workbook for job to path.
func (w *ReportWriter) Write(path string, job *entity.Job, records []entity.DocumentRecord) error {
	start := time.Now()
	f, err := Workbook(job, records)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	w.logger.Info("export.xlsx.ok",
		"job_id", job.ID.String(),
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Workbook builds the report in memory: a Documents sheet with one row per
// input document and a Summary sheet with the job counters.
func Workbook(job *entity.Job, records []entity.DocumentRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(documentsSheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range documentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(documentsSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(documentsSheet, 1, 1, style)
	}

	failures := 0
	for i, r := range records {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(documentsSheet, cell, v)
		}
		write(1, r.Source)
		write(2, r.Metadata.TaxID)
		write(3, r.Metadata.PartnerName)
		write(4, r.Metadata.InvoiceNumber)
		write(5, r.Metadata.IssueDate)
		write(6, r.Metadata.Reference)
		write(7, r.Output)
		write(8, r.Merged)
		write(9, truncate(r.Error, 240))
		if r.Failed() {
			failures++
		}
	}

	_ = f.SetColWidth(documentsSheet, "A", "A", 36)
	_ = f.SetColWidth(documentsSheet, "B", "B", 22)
	_ = f.SetColWidth(documentsSheet, "C", "C", 36)
	_ = f.SetColWidth(documentsSheet, "D", "F", 20)
	_ = f.SetColWidth(documentsSheet, "G", "G", 60)
	_ = f.SetColWidth(documentsSheet, "H", "H", 10)
	_ = f.SetColWidth(documentsSheet, "I", "I", 48)
	_ = f.SetPanes(documentsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	summary := [][2]any{
		{"Job ID", job.ID.String()},
		{"Mode", string(job.Mode)},
		{"Status", string(job.Status)},
		{"Documents", len(records)},
		{"Outputs", job.Outputs},
		{"Failures", failures},
		{"Created", job.CreatedAt.UTC().Format(time.RFC3339)},
	}
	for i, kv := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 14)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)

	return f, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
