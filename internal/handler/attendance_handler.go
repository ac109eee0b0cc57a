package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	"github.com/noah-isme/sma-kiosk-api/internal/service"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
	"github.com/noah-isme/sma-kiosk-api/pkg/response"
)

type attendanceService interface {
	RecordCheckIn(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error)
	MarkAbsent(ctx context.Context, req service.MarkAbsentRequest) (*models.AttendanceRecord, error)
	CorrectRecord(ctx context.Context, recordID string, req service.CorrectRecordRequest) (*models.AttendanceRecord, error)
	GetDailyStats(ctx context.Context, date time.Time) (*models.DailyStats, error)
	GetHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error)
}

// AttendanceHandler exposes the kiosk check-in and the admin attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// CheckIn godoc
// @Summary Record a student check-in
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.service.RecordCheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.IsRepeat {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}

// MarkAbsent godoc
// @Summary Mark a student absent for a day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAbsentRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/absent [post]
func (h *AttendanceHandler) MarkAbsent(c *gin.Context) {
	var req service.MarkAbsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorIDFromContext(c)
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	record, err := h.service.MarkAbsent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Correct godoc
// @Summary Correct an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.CorrectRecordRequest true "Correction payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/records/{id} [patch]
func (h *AttendanceHandler) Correct(c *gin.Context) {
	var req service.CorrectRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorIDFromContext(c)
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	record, err := h.service.CorrectRecord(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// DailyStats godoc
// @Summary Daily attendance summary
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/daily [get]
func (h *AttendanceHandler) DailyStats(c *gin.Context) {
	date, err := dateFromQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.GetDailyStats(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// History godoc
// @Summary Student attendance history
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param limit query int false "Maximum records to return"
// @Success 200 {object} response.Envelope
// @Router /attendance/history/{studentId} [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	records, err := h.service.GetHistory(c.Request.Context(), c.Param("studentId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

func dateFromQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return date, nil
}
