package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/models"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
)

const (
	defaultTeacherPageSize = 20
	maxTeacherPageSize     = 100
)

type teacherDirectory interface {
	rosterRepository
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
}

// RosterService exposes the read-only teacher and department directory the
// allocation board is built from.
type RosterService struct {
	teachers    teacherDirectory
	departments departmentRepository
	logger      *zap.Logger
}

// NewRosterService builds the service.
func NewRosterService(teachers teacherDirectory, departments departmentRepository, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{teachers: teachers, departments: departments, logger: logger}
}

// Teachers lists teachers, optionally by department and active flag. A
// positive page switches to paged listing and returns pagination metadata.
func (s *RosterService) Teachers(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	if filter.DeptID != "" {
		if _, err := s.departments.FindByID(ctx, filter.DeptID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
	}

	if filter.Page > 0 {
		if filter.PageSize <= 0 || filter.PageSize > maxTeacherPageSize {
			filter.PageSize = defaultTeacherPageSize
		}
		teachers, total, err := s.teachers.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
		}
		if teachers == nil {
			teachers = []models.Teacher{}
		}
		return teachers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
	}

	teachers, err := s.teachers.Roster(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}
	return teachers, nil, nil
}

// Teacher fetches one teacher.
func (s *RosterService) Teacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Departments lists every department.
func (s *RosterService) Departments(ctx context.Context) ([]models.Department, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load departments")
	}
	if depts == nil {
		depts = []models.Department{}
	}
	return depts, nil
}
