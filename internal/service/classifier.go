package service

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

// Classification is the outcome of evaluating one check-in against the
// configured work-start window.
type Classification struct {
	Status      models.AttendanceStatus
	LateMinutes int
}

// ClassifyCheckIn compares a check-in time against the work start ("HH:mm",
// interpreted on the check-in's own calendar day and location) plus a
// threshold in minutes. Arrivals up to and including the threshold are
// present; the first minute past it is late. Early arrivals are present with
// zero late minutes.
func ClassifyCheckIn(checkIn time.Time, workStart string, thresholdMinutes int) (Classification, error) {
	start, err := parseWorkStart(checkIn, workStart)
	if err != nil {
		return Classification{}, err
	}
	if thresholdMinutes < 0 {
		return Classification{}, appErrors.Clone(appErrors.ErrInvalidConfiguration, "late threshold must not be negative")
	}

	diff := checkIn.Sub(start).Minutes()
	if diff <= float64(thresholdMinutes) {
		return Classification{Status: models.AttendanceStatusPresent, LateMinutes: 0}, nil
	}

	late := int(math.Round(diff))
	if late < 0 {
		late = 0
	}
	return Classification{Status: models.AttendanceStatusLate, LateMinutes: late}, nil
}

// parseWorkStart anchors an "HH:mm" wall-clock value to the check-in's day.
func parseWorkStart(checkIn time.Time, workStart string) (time.Time, error) {
	parsed, err := time.Parse("15:04", workStart)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidConfiguration, fmt.Sprintf("invalid work start time %q, expected HH:mm", workStart))
	}
	return time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, checkIn.Location()), nil
}
