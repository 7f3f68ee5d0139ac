package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chronoslab/timetabler/internal/dto"
	"github.com/chronoslab/timetabler/internal/models"
	"github.com/chronoslab/timetabler/internal/service"
	appErrors "github.com/chronoslab/timetabler/pkg/errors"
	"github.com/chronoslab/timetabler/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Validate(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error)
	Latest(ctx context.Context, institutionID string) (*dto.GenerateTimetableResponse, error)
	History(ctx context.Context, institutionID string, limit int) ([]models.TimetableResultMeta, error)
}

type timetableExporter interface {
	Export(ctx context.Context, institutionID, format string) (*service.ExportFile, error)
}

// TimetableHandler exposes timetable generation and retrieval endpoints.
type TimetableHandler struct {
	service  timetableGenerator
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Run the timetable optimizer for an institution
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(appErrors.ErrValidation, err))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Validate godoc
// @Summary Pre-flight feasibility check without running a search
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.ValidateTimetableRequest true "Validation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	var req dto.ValidateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(appErrors.ErrValidation, err))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Latest godoc
// @Summary Latest stored timetable for an institution
// @Tags Timetables
// @Produce json
// @Param institutionId path string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{institutionId} [get]
func (h *TimetableHandler) Latest(c *gin.Context) {
	result, err := h.service.Latest(c.Request.Context(), c.Param("institutionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List stored timetable versions, newest first
// @Tags Timetables
// @Produce json
// @Param institutionId path string true "Institution ID"
// @Param limit query int false "Max versions to return"
// @Success 200 {object} response.Envelope
// @Router /timetables/{institutionId}/history [get]
func (h *TimetableHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	metas, err := h.service.History(c.Request.Context(), c.Param("institutionId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metas, nil)
}

// Export godoc
// @Summary Export the latest timetable as CSV or PDF
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param institutionId path string true "Institution ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /timetables/{institutionId}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	file, err := h.exporter.Export(c.Request.Context(), c.Param("institutionId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
