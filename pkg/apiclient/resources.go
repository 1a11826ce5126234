package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Resource is a plain CRUD endpoint rooted at path (for example "/courses/").
type Resource[T any] struct {
	client  *Client
	queries *Queries
	path    string
}

// NewResource binds a CRUD endpoint.
func NewResource[T any](client *Client, queries *Queries, path string) *Resource[T] {
	return &Resource[T]{client: client, queries: queries, path: "/" + strings.Trim(path, "/") + "/"}
}

func (r *Resource[T]) key() string {
	return strings.Trim(r.path, "/")
}

func (r *Resource[T]) item(id string) string {
	return r.path + url.PathEscape(id) + "/"
}

// List returns every item matching query.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	return Fetch(ctx, r.queries, r.key()+"?"+query.Encode(), func(ctx context.Context) ([]T, error) {
		var items []T
		if err := r.client.Do(ctx, http.MethodGet, r.path, query, nil, &items); err != nil {
			return nil, err
		}
		return items, nil
	})
}

// Get returns one item.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	return Fetch(ctx, r.queries, r.key()+"/"+id, func(ctx context.Context) (*T, error) {
		var item T
		if err := r.client.Do(ctx, http.MethodGet, r.item(id), nil, nil, &item); err != nil {
			return nil, err
		}
		return &item, nil
	})
}

// Create posts a new item.
func (r *Resource[T]) Create(ctx context.Context, payload interface{}) (*T, error) {
	var item T
	if err := r.client.Do(ctx, http.MethodPost, r.path, nil, payload, &item); err != nil {
		return nil, err
	}
	_ = r.queries.Invalidate(ctx, r.key())
	return &item, nil
}

// Update replaces fields of an existing item.
func (r *Resource[T]) Update(ctx context.Context, id string, payload interface{}) (*T, error) {
	var item T
	if err := r.client.Do(ctx, http.MethodPut, r.item(id), nil, payload, &item); err != nil {
		return nil, err
	}
	_ = r.queries.Invalidate(ctx, r.key())
	return &item, nil
}

// Delete removes an item.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.client.Do(ctx, http.MethodDelete, r.item(id), nil, nil, nil); err != nil {
		return err
	}
	return r.queries.Invalidate(ctx, r.key())
}

// Course is a catalog entry.
type Course struct {
	ID         string `json:"id"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	DeptID     string `json:"dept_id"`
	Credits    int    `json:"credits"`
	Semester   int    `json:"semester"`
}

// Room is a teaching room.
type Room struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number"`
	RoomType   string `json:"room_type"`
	Capacity   int    `json:"capacity"`
	TechLevel  string `json:"tech_level"`
	DeptID     string `json:"dept_id,omitempty"`
}

// Student is an enrolled student.
type Student struct {
	ID       string `json:"id"`
	RollNo   string `json:"roll_no"`
	FullName string `json:"full_name"`
	DeptID   string `json:"dept_id"`
	Batch    int    `json:"batch"`
	Semester int    `json:"current_semester"`
}

// API groups every resource module behind one client.
type API struct {
	Slots       *SlotsAPI
	Teachers    *Resource[models.Teacher]
	Departments *Resource[models.Department]
	Courses     *Resource[Course]
	Rooms       *Resource[Room]
	Students    *Resource[Student]
}

// NewAPI builds every resource module over the same client and cache.
func NewAPI(client *Client, queries *Queries) *API {
	return &API{
		Slots:       NewSlotsAPI(client, queries),
		Teachers:    NewResource[models.Teacher](client, queries, "/teachers/"),
		Departments: NewResource[models.Department](client, queries, "/departments/"),
		Courses:     NewResource[Course](client, queries, "/courses/"),
		Rooms:       NewResource[Room](client, queries, "/rooms/"),
		Students:    NewResource[Student](client, queries, "/students/"),
	}
}

// BoardGateway adapts the API to what the allocation board needs.
type BoardGateway struct {
	api *API
}

// NewBoardGateway wraps api for the board.
func NewBoardGateway(api *API) *BoardGateway {
	return &BoardGateway{api: api}
}

// Slots lists the fixed slots.
func (g *BoardGateway) Slots(ctx context.Context) ([]models.Slot, error) {
	return g.api.Slots.List(ctx)
}

// Teachers lists active teachers, optionally limited to a department.
func (g *BoardGateway) Teachers(ctx context.Context, deptID string) ([]models.Teacher, error) {
	query := url.Values{"active": {"true"}}
	if deptID != "" {
		query.Set("dept_id", deptID)
	}
	return g.api.Teachers.List(ctx, query)
}

// Assignments re-reads assignments from the server, bypassing the cache.
func (g *BoardGateway) Assignments(ctx context.Context, q dto.TeacherSlotQuery) ([]models.TeacherSlotAssignmentDetail, error) {
	resp, err := g.api.Slots.RefreshTeacherSlots(ctx, q)
	if err != nil {
		return nil, err
	}
	return resp.Assignments, nil
}

// SaveBatch persists a day's operations.
func (g *BoardGateway) SaveBatch(ctx context.Context, ops []dto.BatchAssignment) (*dto.BatchResult, error) {
	return g.api.Slots.SaveBatch(ctx, ops)
}
