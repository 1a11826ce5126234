package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/middleware"
	"github.com/noah-isme/dept-slot-api/internal/models"
	"github.com/noah-isme/dept-slot-api/internal/service"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
	"github.com/noah-isme/dept-slot-api/pkg/response"
)

type slotService interface {
	List(ctx context.Context) ([]models.Slot, error)
	InitializeDefaults(ctx context.Context) (*dto.InitializeSlotsResponse, error)
	TeacherSlots(ctx context.Context, q dto.TeacherSlotQuery) (*dto.TeacherSlotsResponse, error)
	SaveTeacherPreference(ctx context.Context, req dto.TeacherSlotPreferenceRequest) (*dto.BatchResult, error)
	SaveBatch(ctx context.Context, req dto.BatchAssignmentsRequest) (*dto.BatchResult, error)
}

type summaryService interface {
	DepartmentSummary(ctx context.Context, deptID string) (*models.DepartmentSummary, bool, error)
}

type exportService interface {
	DepartmentSummary(ctx context.Context, deptID string, format models.ExportFormat) (*service.ExportFile, error)
}

// SlotHandler serves the slot catalogue, assignment listings and writes.
type SlotHandler struct {
	slots     slotService
	summaries summaryService
	exports   exportService
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(slots slotService, summaries summaryService, exports exportService) *SlotHandler {
	return &SlotHandler{slots: slots, summaries: summaries, exports: exports}
}

// List godoc
// @Summary List slots
// @Tags Slots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /slots/ [get]
func (h *SlotHandler) List(c *gin.Context) {
	slots, err := h.slots.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// InitializeDefaults godoc
// @Summary Create slots A, B and C when missing
// @Tags Slots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /slots/initialize-default-slots/ [post]
func (h *SlotHandler) InitializeDefaults(c *gin.Context) {
	result, err := h.slots.InitializeDefaults(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AuditFields(c, zap.Int("created", result.Created))
	status := http.StatusOK
	if result.Created > 0 {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}

// TeacherSlots godoc
// @Summary List teacher slot assignments
// @Tags Slots
// @Produce json
// @Param day_of_week query string false "Day index 0-5 or name"
// @Param teacher_id query string false "Teacher ID"
// @Param dept_id query string false "Department ID"
// @Param slot_type query string false "Slot type (A,B,C)"
// @Param include_stats query bool false "Include aggregate stats"
// @Success 200 {object} response.Envelope
// @Router /slots/teacher-slots/ [get]
func (h *SlotHandler) TeacherSlots(c *gin.Context) {
	q := dto.TeacherSlotQuery{
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		DeptID:    strings.TrimSpace(c.Query("dept_id")),
		SlotType:  models.SlotType(strings.ToUpper(strings.TrimSpace(c.Query("slot_type")))),
	}
	if raw := strings.TrimSpace(c.Query("day_of_week")); raw != "" {
		day, err := models.ParseDay(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be 0-5 or a day name"))
			return
		}
		q.DayOfWeek = &day
	}
	if raw := c.Query("include_stats"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "include_stats must be a boolean"))
			return
		}
		q.IncludeStats = include
	}

	result, err := h.slots.TeacherSlots(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SaveTeacherPreference godoc
// @Summary Apply slot operations for one teacher
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.TeacherSlotPreferenceRequest true "Operations"
// @Success 200 {object} response.Envelope
// @Router /slots/teacher-slot-preference/ [post]
func (h *SlotHandler) SaveTeacherPreference(c *gin.Context) {
	var req dto.TeacherSlotPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.slots.SaveTeacherPreference(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.AuditFields(c, zap.String("teacher_id", req.TeacherID))
	respondBatch(c, result)
}

// SaveBatch godoc
// @Summary Apply slot operations across teachers
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.BatchAssignmentsRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Router /slots/batch-assignments/ [post]
func (h *SlotHandler) SaveBatch(c *gin.Context) {
	var req dto.BatchAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.slots.SaveBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondBatch(c, result)
}

// respondBatch answers 200 when anything was applied. A batch where every
// operation failed is a rule violation carrying the per-operation results.
func respondBatch(c *gin.Context, result *dto.BatchResult) {
	if result.TotalOperations > 0 && result.SuccessCount == 0 {
		first := result.Results[0]
		message := first.Error
		if message == "" {
			message = appErrors.ErrRuleViolation.Message
		}
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrRuleViolation, message), result))
		return
	}
	middleware.AuditFields(c,
		zap.Int("success_count", result.SuccessCount),
		zap.Int("total_operations", result.TotalOperations),
	)
	response.JSON(c, http.StatusOK, result, nil)
}

// DepartmentSummary godoc
// @Summary Slot coverage and compliance for a department
// @Tags Slots
// @Produce json
// @Param dept_id query string false "Department ID; all departments when empty"
// @Success 200 {object} response.Envelope
// @Router /slots/department-summary/ [get]
func (h *SlotHandler) DepartmentSummary(c *gin.Context) {
	summary, cacheHit, err := h.summaries.DepartmentSummary(c.Request.Context(), strings.TrimSpace(c.Query("dept_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// ExportDepartmentSummary godoc
// @Summary Download a department summary
// @Tags Slots
// @Produce text/csv
// @Produce application/pdf
// @Param dept_id query string false "Department ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /slots/department-summary/export [get]
func (h *SlotHandler) ExportDepartmentSummary(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	format := models.ExportFormat(c.DefaultQuery("format", string(models.ExportCSV)))
	file, err := h.exports.DepartmentSummary(c.Request.Context(), strings.TrimSpace(c.Query("dept_id")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
