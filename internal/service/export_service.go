package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
	"github.com/noah-isme/sims-enrollment-api/pkg/export"
)

// Supported roster formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var rosterHeaders = []string{"Student Code", "Student Name", "Midterm", "Final", "Average", "Letter", "Status"}

type rosterRepository interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
}

type sectionDetailReader interface {
	Get(ctx context.Context, id string) (*models.SectionDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders section rosters with grades.
type ExportService struct {
	enrollments rosterRepository
	sections    sectionDetailReader
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers use the default exporters.
func NewExportService(enrollments rosterRepository, sections sectionDetailReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{enrollments: enrollments, sections: sections, csv: csv, pdf: pdf, logger: logger}
}

// ExportRoster renders every enrollment of the section in the requested format.
func (s *ExportService) ExportRoster(ctx context.Context, sectionID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	section, err := s.sections.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	roster, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := RosterDataset(section, roster)
	var (
		data        []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		data, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("roster exported", zap.String("section_id", sectionID), zap.String("format", format), zap.Int("rows", len(roster)))
	return &ExportFile{
		Filename:    fmt.Sprintf("roster_%s_%s_%s.%s", sanitizeFilePart(section.CourseCode), section.Semester, section.AcademicYear, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// RosterDataset builds the roster table for a section.
func RosterDataset(section *models.SectionDetail, roster []models.EnrollmentDetail) export.Dataset {
	title := fmt.Sprintf("%s %s - %s %s - %s, %s, room %s",
		section.CourseCode, section.CourseName, section.Semester, section.AcademicYear,
		section.DayName, section.TimeRange, section.Room)
	rows := make([][]string, 0, len(roster))
	for _, e := range roster {
		rows = append(rows, []string{
			e.StudentCode,
			e.StudentName,
			formatScore(e.MidtermScore),
			formatScore(e.FinalScore),
			formatScore(e.AverageScore),
			stringOrEmpty(e.LetterGrade),
			string(e.Status),
		})
	}
	return export.Dataset{Title: title, Headers: rosterHeaders, Rows: rows}
}

func formatScore(v *float32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*v), 'f', 2, 32)
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func sanitizeFilePart(raw string) string {
	if raw == "" {
		return "section"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, raw)
}
