package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

const (
	slotsKey        = "slots"
	teacherSlotsKey = "teacher-slots"
	summaryKey      = "department-summary"
)

// SlotsAPI wraps the /slots endpoints.
type SlotsAPI struct {
	client  *Client
	queries *Queries
}

// NewSlotsAPI binds the slot endpoints to a client and an optional query cache.
func NewSlotsAPI(client *Client, queries *Queries) *SlotsAPI {
	return &SlotsAPI{client: client, queries: queries}
}

// List returns the fixed slots.
func (a *SlotsAPI) List(ctx context.Context) ([]models.Slot, error) {
	return Fetch(ctx, a.queries, slotsKey, func(ctx context.Context) ([]models.Slot, error) {
		var slots []models.Slot
		if err := a.client.Do(ctx, http.MethodGet, "/slots/", nil, nil, &slots); err != nil {
			return nil, err
		}
		return slots, nil
	})
}

// InitializeDefaults asks the server to seed the default slots if absent.
func (a *SlotsAPI) InitializeDefaults(ctx context.Context) (*dto.InitializeSlotsResponse, error) {
	var out dto.InitializeSlotsResponse
	if err := a.client.Do(ctx, http.MethodPost, "/slots/initialize-default-slots/", nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	_ = a.queries.Invalidate(ctx, slotsKey)
	return &out, nil
}

// TeacherSlots lists assignments matching the query, from cache when possible.
func (a *SlotsAPI) TeacherSlots(ctx context.Context, q dto.TeacherSlotQuery) (*dto.TeacherSlotsResponse, error) {
	values := teacherSlotValues(q)
	return Fetch(ctx, a.queries, teacherSlotsKey+"?"+values.Encode(), func(ctx context.Context) (*dto.TeacherSlotsResponse, error) {
		var out dto.TeacherSlotsResponse
		if err := a.client.Do(ctx, http.MethodGet, "/slots/teacher-slots/", values, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// RefreshTeacherSlots drops cached assignment listings and reads from the server.
func (a *SlotsAPI) RefreshTeacherSlots(ctx context.Context, q dto.TeacherSlotQuery) (*dto.TeacherSlotsResponse, error) {
	_ = a.queries.Invalidate(ctx, teacherSlotsKey)
	return a.TeacherSlots(ctx, q)
}

// SaveTeacherPreference applies operations to a single teacher's week.
func (a *SlotsAPI) SaveTeacherPreference(ctx context.Context, teacherID string, ops []dto.SlotOperation) (*dto.BatchResult, error) {
	if teacherID == "" {
		return nil, ErrMissingTeacher
	}
	body := dto.TeacherSlotPreferenceRequest{TeacherID: teacherID, Operations: ops}
	var out dto.BatchResult
	if err := a.client.Do(ctx, http.MethodPost, "/slots/teacher-slot-preference/", nil, body, &out); err != nil {
		return nil, err
	}
	a.invalidateAssignments(ctx)
	return &out, nil
}

// SaveBatch applies operations across teachers in one request.
func (a *SlotsAPI) SaveBatch(ctx context.Context, assignments []dto.BatchAssignment) (*dto.BatchResult, error) {
	for _, op := range assignments {
		if op.TeacherID == "" {
			return nil, ErrMissingTeacher
		}
	}
	body := dto.BatchAssignmentsRequest{Assignments: assignments}
	var out dto.BatchResult
	if err := a.client.Do(ctx, http.MethodPost, "/slots/batch-assignments/", nil, body, &out); err != nil {
		return nil, err
	}
	a.invalidateAssignments(ctx)
	return &out, nil
}

// DepartmentSummary returns the compliance report for a department.
func (a *SlotsAPI) DepartmentSummary(ctx context.Context, deptID string) (*models.DepartmentSummary, error) {
	values := url.Values{"dept_id": {deptID}}
	return Fetch(ctx, a.queries, summaryKey+"?"+values.Encode(), func(ctx context.Context) (*models.DepartmentSummary, error) {
		var out models.DepartmentSummary
		if err := a.client.Do(ctx, http.MethodGet, "/slots/department-summary/", values, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// ExportSummary downloads a department summary as "csv" or "pdf".
func (a *SlotsAPI) ExportSummary(ctx context.Context, deptID, format string) ([]byte, string, error) {
	values := url.Values{"dept_id": {deptID}, "format": {format}}
	return a.client.Download(ctx, "/slots/department-summary/export", values)
}

func (a *SlotsAPI) invalidateAssignments(ctx context.Context) {
	_ = a.queries.Invalidate(ctx, teacherSlotsKey)
	_ = a.queries.Invalidate(ctx, summaryKey)
}

func teacherSlotValues(q dto.TeacherSlotQuery) url.Values {
	values := url.Values{}
	if q.DayOfWeek != nil {
		values.Set("day_of_week", strconv.Itoa(int(*q.DayOfWeek)))
	}
	if q.TeacherID != "" {
		values.Set("teacher_id", q.TeacherID)
	}
	if q.DeptID != "" {
		values.Set("dept_id", q.DeptID)
	}
	if q.SlotType != "" {
		values.Set("slot_type", string(q.SlotType))
	}
	if q.IncludeStats {
		values.Set("include_stats", "true")
	}
	return values
}
