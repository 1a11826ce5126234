package dto

import (
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// SlotAction is the kind of change a slot operation applies.
type SlotAction string

const (
	ActionCreate SlotAction = "create"
	ActionUpdate SlotAction = "update"
	ActionDelete SlotAction = "delete"
)

// SlotOperation is one change to a single teacher's week.
type SlotOperation struct {
	Action    SlotAction       `json:"action" validate:"required,oneof=create update delete"`
	SlotID    string           `json:"slot_id" validate:"required"`
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"min=0,max=5"`
}

// TeacherSlotPreferenceRequest batch-applies operations for one teacher.
type TeacherSlotPreferenceRequest struct {
	TeacherID  string          `json:"teacher_id" validate:"required"`
	Operations []SlotOperation `json:"operations" validate:"required,min=1,dive"`
}

// BatchAssignment is one change that names its teacher.
type BatchAssignment struct {
	TeacherID string           `json:"teacher_id" validate:"required"`
	SlotID    string           `json:"slot_id" validate:"required"`
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"min=0,max=5"`
	Action    SlotAction       `json:"action" validate:"required,oneof=create update delete"`
}

// BatchAssignmentsRequest applies changes across many teachers.
type BatchAssignmentsRequest struct {
	Assignments []BatchAssignment `json:"assignments" validate:"required,min=1,dive"`
}

// OperationResult reports the outcome of one operation of a batch.
type OperationResult struct {
	Action    SlotAction       `json:"action"`
	TeacherID string           `json:"teacher_id"`
	SlotID    string           `json:"slot_id"`
	SlotType  models.SlotType  `json:"slot_type,omitempty"`
	DayOfWeek models.DayOfWeek `json:"day_of_week"`
	Success   bool             `json:"success"`
	Reason    string           `json:"reason,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// BatchResult summarises a batch. Operations are applied independently.
type BatchResult struct {
	SuccessCount    int               `json:"success_count"`
	TotalOperations int               `json:"total_operations"`
	Results         []OperationResult `json:"results"`
}

// Failed returns the operations that were not applied.
func (r *BatchResult) Failed() []OperationResult {
	if r == nil {
		return nil
	}
	var failed []OperationResult
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// TeacherSlotQuery mirrors the teacher-slots query string.
type TeacherSlotQuery struct {
	DayOfWeek    *models.DayOfWeek
	TeacherID    string
	DeptID       string
	SlotType     models.SlotType
	IncludeStats bool
}

// TeacherSlotsResponse lists assignments with optional aggregate stats.
type TeacherSlotsResponse struct {
	Assignments []models.TeacherSlotAssignmentDetail `json:"assignments"`
	Stats       *models.AssignmentStats              `json:"stats,omitempty"`
}

// InitializeSlotsResponse reports the outcome of seeding the default slots.
type InitializeSlotsResponse struct {
	Created int           `json:"created"`
	Slots   []models.Slot `json:"slots"`
}
