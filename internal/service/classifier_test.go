package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

func checkInAt(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

func TestClassifyCheckInEarlyArrivalIsPresent(t *testing.T) {
	result, err := ClassifyCheckIn(checkInAt(6, 45), "07:00", 15)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)
	assert.Equal(t, 0, result.LateMinutes)
}

func TestClassifyCheckInExactlyAtThresholdIsPresent(t *testing.T) {
	result, err := ClassifyCheckIn(checkInAt(7, 15), "07:00", 15)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)
	assert.Equal(t, 0, result.LateMinutes)
}

func TestClassifyCheckInOneMinutePastThresholdIsLate(t *testing.T) {
	result, err := ClassifyCheckIn(checkInAt(7, 16), "07:00", 15)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
	assert.Equal(t, 16, result.LateMinutes)
}

func TestClassifyCheckInLateMinutesCountFromWorkStart(t *testing.T) {
	result, err := ClassifyCheckIn(checkInAt(8, 30), "07:00", 15)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
	assert.Equal(t, 90, result.LateMinutes)
}

func TestClassifyCheckInZeroThreshold(t *testing.T) {
	result, err := ClassifyCheckIn(checkInAt(7, 0), "07:00", 0)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)

	result, err = ClassifyCheckIn(checkInAt(7, 1), "07:00", 0)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
	assert.Equal(t, 1, result.LateMinutes)
}

func TestClassifyCheckInUsesCheckInsOwnDay(t *testing.T) {
	nextDay := time.Date(2026, time.March, 3, 7, 20, 0, 0, time.UTC)
	result, err := ClassifyCheckIn(nextDay, "07:00", 15)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
	assert.Equal(t, 20, result.LateMinutes)
}

func TestClassifyCheckInInvalidWorkStart(t *testing.T) {
	_, err := ClassifyCheckIn(checkInAt(7, 0), "7am", 15)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
}

func TestClassifyCheckInNegativeThreshold(t *testing.T) {
	_, err := ClassifyCheckIn(checkInAt(7, 0), "07:00", -1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
}
