package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/models"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
	"github.com/noah-isme/dept-slot-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type summarySource interface {
	DepartmentSummary(ctx context.Context, deptID string) (*models.DepartmentSummary, bool, error)
}

// ExportFile is a rendered document ready to be sent.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders department summaries as CSV or PDF.
type ExportService struct {
	summaries summarySource
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(summaries summarySource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{summaries: summaries, csv: csv, pdf: pdf, logger: logger}
}

// DepartmentSummary renders the summary of a department in the requested format.
func (s *ExportService) DepartmentSummary(ctx context.Context, deptID string, format models.ExportFormat) (*ExportFile, error) {
	format = models.ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = models.ExportCSV
	}
	if format != models.ExportCSV && format != models.ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	summary, _, err := s.summaries.DepartmentSummary(ctx, deptID)
	if err != nil {
		return nil, err
	}
	dataset := SummaryDataset(summary)

	base := "slot-summary-all"
	if deptID != "" {
		base = "slot-summary-" + deptID
	}
	file := &ExportFile{Filename: fmt.Sprintf("%s.%s", base, format)}
	switch format {
	case models.ExportPDF:
		file.ContentType = "application/pdf"
		file.Data, err = s.pdf.Render(dataset, "Slot summary: "+summary.DeptName)
	default:
		file.ContentType = "text/csv"
		file.Data, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("render summary export failed", zap.String("dept_id", deptID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

// SummaryDataset lays a summary out as one row per slot type with a count
// per day, followed by headline notes and compliance issues.
func SummaryDataset(summary *models.DepartmentSummary) export.Dataset {
	headers := []string{"Slot"}
	for _, d := range models.Days() {
		headers = append(headers, d.String())
	}
	headers = append(headers, "Teachers", "Share")

	types := make([]string, 0, len(summary.SlotDistribution))
	for t := range summary.SlotDistribution {
		types = append(types, t)
	}
	sort.Strings(types)

	rows := make([]map[string]string, 0, len(types))
	for _, t := range types {
		ts := summary.SlotDistribution[t]
		row := map[string]string{
			"Slot":     ts.Name,
			"Teachers": strconv.Itoa(ts.TeacherCount),
			"Share":    fmt.Sprintf("%d%%", ts.Percentage),
		}
		for _, d := range models.Days() {
			row[d.String()] = strconv.Itoa(ts.Days[d.String()].Count)
		}
		rows = append(rows, row)
	}

	notes := []string{
		fmt.Sprintf("Department: %s", summary.DeptName),
		fmt.Sprintf("Active teachers: %d (with assignments: %d)", summary.TotalTeachers, summary.TeachersWithAssignments),
		fmt.Sprintf("Max teachers per slot: %d", summary.MaxTeachersPerSlot),
		fmt.Sprintf("Compliance: %s", summary.Compliance.Status),
	}
	for _, issue := range summary.Compliance.Issues {
		notes = append(notes, "- "+issue)
	}
	return export.Dataset{Headers: headers, Rows: rows, Notes: notes}
}
