package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-kiosk-api/internal/service"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
	"github.com/noah-isme/sma-kiosk-api/pkg/response"
)

type exportService interface {
	DailyReport(ctx context.Context, date time.Time, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler exposes report downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// DailyReport godoc
// @Summary Download the daily attendance report
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /attendance/export/daily [get]
func (h *ExportHandler) DailyReport(c *gin.Context) {
	date, err := dateFromQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	if format != service.ExportFormatCSV && format != service.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	result, err := h.service.DailyReport(c.Request.Context(), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(200, result.ContentType, result.Data)
}
