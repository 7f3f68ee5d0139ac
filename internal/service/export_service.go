package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chronoslab/timetabler/internal/dto"
	appErrors "github.com/chronoslab/timetabler/pkg/errors"
	"github.com/chronoslab/timetabler/pkg/export"
)

type latestResultProvider interface {
	Latest(ctx context.Context, institutionID string) (*dto.GenerateTimetableResponse, error)
}

// ExportService renders stored timetables to downloadable formats.
type ExportService struct {
	results latestResultProvider
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(results latestResultProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		results: results,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// Export renders the institution's latest timetable as csv or pdf.
func (s *ExportService) Export(ctx context.Context, institutionID, format string) (*ExportFile, error) {
	latest, err := s.results.Latest(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	dataset := gridDataset(latest.Document)

	switch strings.ToLower(format) {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(appErrors.ErrInternal, err)
		}
		return &ExportFile{
			Name:        fmt.Sprintf("timetable-%s.csv", institutionID),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Weekly Timetable %s", institutionID))
		if err != nil {
			return nil, appErrors.Wrap(appErrors.ErrInternal, err)
		}
		return &ExportFile{
			Name:        fmt.Sprintf("timetable-%s.pdf", institutionID),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}
}

// gridDataset flattens the schedule into one row per slot time with a
// column per working day.
func gridDataset(doc dto.TimetableDocument) export.Dataset {
	headers := append([]string{"Time"}, doc.Days...)

	rows := make([]map[string]string, 0, len(doc.SlotTimes))
	for _, slot := range doc.SlotTimes {
		row := map[string]string{"Time": slot}
		for _, day := range doc.Days {
			if entry := doc.Schedule[day][slot]; entry != nil {
				cell := fmt.Sprintf("%s (%s)", entry.CourseCode, entry.Room)
				if entry.TotalParts > 1 {
					cell = fmt.Sprintf("%s (%s) %d/%d", entry.CourseCode, entry.Room, entry.Part, entry.TotalParts)
				}
				row[day] = cell
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
