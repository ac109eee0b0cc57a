package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

type dailyReportSourceStub struct {
	rows []models.DailyReportRow
	err  error
}

func (s *dailyReportSourceStub) ListDailyReport(ctx context.Context, date time.Time) ([]models.DailyReportRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func reportDay() time.Time {
	return time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
}

func reportRows() []models.DailyReportRow {
	day := reportDay()
	return []models.DailyReportRow{
		{
			AttendanceRecord: models.AttendanceRecord{
				Status:      models.AttendanceStatusLate,
				CheckInTime: day.Add(7*time.Hour + 20*time.Minute),
				LateMinutes: 20,
			},
			NIS: "1001", FullName: "Siti Rahma", Grade: "X", ClassName: "X-1",
		},
		{
			AttendanceRecord: models.AttendanceRecord{
				Status:      models.AttendanceStatusAbsent,
				CheckInTime: day,
			},
			NIS: "1002", FullName: "Budi Santoso", Grade: "X", ClassName: "X-1",
		},
	}
}

func TestExportDailyReportCSV(t *testing.T) {
	svc := NewExportService(&dailyReportSourceStub{rows: reportRows()}, nil)

	result, err := svc.DailyReport(context.Background(), reportDay(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-2026-03-02.csv", result.FileName)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NIS,Name,Grade,Class,Status,Check-In,Late Minutes", lines[0])
	assert.Equal(t, "1001,Siti Rahma,X,X-1,late,07:20:00,20", lines[1])
	// Absent rows carry no check-in time.
	assert.Equal(t, "1002,Budi Santoso,X,X-1,absent,,0", lines[2])
}

func TestExportDailyReportPDF(t *testing.T) {
	svc := NewExportService(&dailyReportSourceStub{rows: reportRows()}, nil)

	result, err := svc.DailyReport(context.Background(), reportDay(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "attendance-2026-03-02.pdf", result.FileName)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportDailyReportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&dailyReportSourceStub{}, nil)

	_, err := svc.DailyReport(context.Background(), reportDay(), ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
