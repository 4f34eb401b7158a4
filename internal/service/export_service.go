package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/export"
)

// ExportFormat enumerates supported download formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var enrollmentColumns = []export.Column{
	{Header: "Course", Weight: 3},
	{Header: "Difficulty", Weight: 1.5},
	{Header: "Description", Weight: 4},
	{Header: "Enrolled At", Weight: 2},
}

type tableRenderer interface {
	Render(t export.Table) ([]byte, error)
}

// ExportResult is a rendered document ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders enrollment histories as CSV or PDF.
type ExportService struct {
	csv tableRenderer
	pdf tableRenderer
	now func() time.Time
}

// NewExportService constructs an ExportService; nil renderers fall back to the defaults.
func NewExportService(csv, pdf tableRenderer) *ExportService {
	if csv == nil {
		csv = export.NewCSVRenderer()
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	return &ExportService{csv: csv, pdf: pdf, now: time.Now}
}

// Enrollments renders the enrollment list of owner in format.
func (s *ExportService) Enrollments(format ExportFormat, owner models.Profile, items []models.EnrollmentDetail) (*ExportResult, error) {
	generated := s.now().UTC()
	table := export.Table{
		Title:    fmt.Sprintf("Enrollments of %s", owner.DisplayName()),
		Subtitle: fmt.Sprintf("%s, generated %s UTC", owner.Email, generated.Format("2006-01-02 15:04")),
		Columns:  enrollmentColumns,
		Rows:     make([][]string, 0, len(items)),
	}
	for _, item := range items {
		table.Rows = append(table.Rows, []string{
			item.Course.Title,
			models.TextOrEmpty(item.Course.Difficulty),
			models.TextOrEmpty(item.Course.Description),
			item.EnrolledAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("enrollments_%s_%s.%s", sanitizeFilename(owner.DisplayName()), generated.Format("20060102_150405"), format)
	return &ExportResult{Filename: filename, ContentType: contentType, Data: payload}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
