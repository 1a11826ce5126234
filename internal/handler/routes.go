package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/middleware"
)

// Handlers groups every HTTP handler served under the API prefix.
type Handlers struct {
	Slots   *SlotHandler
	Roster  *RosterHandler
	Metrics *MetricsHandler
	// Audit receives one line per successful slot mutation.
	Audit *zap.Logger
}

// Register mounts the REST routes on r. Trailing slashes are part of the
// public paths.
func Register(r gin.IRouter, h Handlers) {
	if h.Slots != nil {
		slots := r.Group("/slots")
		slots.GET("/", h.Slots.List)
		slots.POST("/initialize-default-slots/", middleware.Audit(h.Audit, "initialize_slots", "slot"), h.Slots.InitializeDefaults)
		slots.GET("/teacher-slots/", h.Slots.TeacherSlots)
		slots.POST("/teacher-slot-preference/", middleware.Audit(h.Audit, "save_preference", "teacher_slot"), h.Slots.SaveTeacherPreference)
		slots.POST("/batch-assignments/", middleware.Audit(h.Audit, "save_batch", "teacher_slot"), h.Slots.SaveBatch)
		slots.GET("/department-summary/", h.Slots.DepartmentSummary)
		slots.GET("/department-summary/export", h.Slots.ExportDepartmentSummary)
	}
	if h.Roster != nil {
		r.GET("/teachers/", h.Roster.Teachers)
		r.GET("/teachers/:id", h.Roster.Teacher)
		r.GET("/departments/", h.Roster.Departments)
	}
	if h.Metrics != nil {
		r.GET("/metrics/summary", h.Metrics.Snapshot)
	}
}
