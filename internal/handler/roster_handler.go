package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-slot-api/internal/models"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
	"github.com/noah-isme/dept-slot-api/pkg/response"
)

type rosterService interface {
	Teachers(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error)
	Teacher(ctx context.Context, id string) (*models.Teacher, error)
	Departments(ctx context.Context) ([]models.Department, error)
}

// RosterHandler serves the teacher and department directory.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs a RosterHandler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// Teachers godoc
// @Summary List teachers
// @Tags Roster
// @Produce json
// @Param dept_id query string false "Department ID"
// @Param active query bool false "Filter by active status"
// @Param search query string false "Search by name or staff code"
// @Param page query int false "Page number; the full roster when omitted"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (full_name,staff_code,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /teachers/ [get]
func (h *RosterHandler) Teachers(c *gin.Context) {
	filter := models.TeacherFilter{
		DeptID:    strings.TrimSpace(c.Query("dept_id")),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.Active = &active
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer"))
			return
		}
		filter.Page = page
		if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
			filter.PageSize = size
		}
	}

	teachers, pagination, err := h.service.Teachers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination, map[string]interface{}{"count": len(teachers)})
}

// Teacher godoc
// @Summary Get teacher detail
// @Tags Roster
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *RosterHandler) Teacher(c *gin.Context) {
	teacher, err := h.service.Teacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Departments godoc
// @Summary List departments
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments/ [get]
func (h *RosterHandler) Departments(c *gin.Context) {
	depts, err := h.service.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depts, nil)
}
