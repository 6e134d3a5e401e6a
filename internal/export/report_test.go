package export_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/export"
)

func sampleRecords() []entity.DocumentRecord {
	return []entity.DocumentRecord{
		{
			Source: "a.pdf",
			Metadata: entity.DocumentMetadata{
				TaxID: "01.234.567.8-901.000", PartnerName: "PT MAJU",
				InvoiceNumber: "010.000-24.00000001", IssueDate: "05-01-2024", Reference: "INV/01",
			},
			Output: "01.234.567.8-901.000/PT MAJU.pdf",
			Merged: true,
		},
		{
			Source:   "broken.pdf",
			Metadata: entity.EmptyMetadata(),
			Error:    strings.Repeat("x", 400),
		},
	}
}

func TestReportWriter_Write(t *testing.T) {
	job := entity.NewJob(t.TempDir(), t.TempDir(), entity.DefaultSettings())
	job.Status = constants.JobStatusPacking
	job.Outputs = 1
	path := filepath.Join(t.TempDir(), constants.ReportName)

	require.NoError(t, export.NewReportWriter(nil).Write(path, job, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Documents")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Source File", rows[0][0])
	assert.Equal(t, "a.pdf", rows[1][0])
	assert.Equal(t, "PT MAJU", rows[1][2])
	assert.Equal(t, "01.234.567.8-901.000/PT MAJU.pdf", rows[1][6])
	assert.Equal(t, "TRUE", rows[1][7])
	assert.Equal(t, entity.TaxIDNotFound, rows[2][1])
	assert.Len(t, []rune(rows[2][8]), 240)

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Job ID", job.ID.String()}, summary[0])
	assert.Equal(t, []string{"Documents", "2"}, summary[3])
	assert.Equal(t, []string{"Failures", "1"}, summary[5])
}

func TestWorkbook_Empty(t *testing.T) {
	job := entity.NewJob("/u", "/d", entity.DefaultSettings())
	f, err := export.Workbook(job, nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Documents")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "Documents", f.GetSheetName(0))
}
