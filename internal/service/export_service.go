package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
	"github.com/noah-isme/sma-kiosk-api/pkg/export"
)

type dailyReportSource interface {
	ListDailyReport(ctx context.Context, date time.Time) ([]models.DailyReportRow, error)
}

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus response metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders daily attendance reports as CSV or PDF downloads.
type ExportService struct {
	source dailyReportSource
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(source dailyReportSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source: source,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var dailyReportHeaders = []string{"NIS", "Name", "Grade", "Class", "Status", "Check-In", "Late Minutes"}

// DailyReport renders all records for one calendar day.
func (s *ExportService) DailyReport(ctx context.Context, date time.Time, format ExportFormat) (*ExportResult, error) {
	rows, err := s.source.ListDailyReport(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load daily report")
	}

	dataset := export.Dataset{Headers: dailyReportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		checkIn := ""
		if row.Status != models.AttendanceStatusAbsent {
			checkIn = row.CheckInTime.Format("15:04:05")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"NIS":          row.NIS,
			"Name":         row.FullName,
			"Grade":        row.Grade,
			"Class":        row.ClassName,
			"Status":       string(row.Status),
			"Check-In":     checkIn,
			"Late Minutes": strconv.Itoa(row.LateMinutes),
		})
	}

	day := date.Format("2006-01-02")
	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("attendance-%s.csv", day),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Daily Attendance %s", day))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("attendance-%s.pdf", day),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
