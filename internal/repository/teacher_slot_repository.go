package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

// TeacherSlotRepository persists weekly teacher slot assignments.
type TeacherSlotRepository struct {
	db *sqlx.DB
}

// NewTeacherSlotRepository constructs a TeacherSlotRepository.
func NewTeacherSlotRepository(db *sqlx.DB) *TeacherSlotRepository {
	return &TeacherSlotRepository{db: db}
}

// List returns assignments with teacher and slot details, ordered by day,
// slot type and teacher name.
func (r *TeacherSlotRepository) List(ctx context.Context, filter models.TeacherSlotFilter) ([]models.TeacherSlotAssignmentDetail, error) {
	query := `SELECT tsa.id, tsa.teacher_id, tsa.slot_id, tsa.day_of_week, tsa.created_at, tsa.updated_at,
	t.dept_id, t.full_name AS teacher_name, s.slot_name, s.slot_type
FROM teacher_slot_assignments tsa
JOIN teachers t ON t.id = tsa.teacher_id
JOIN slots s ON s.id = tsa.slot_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("tsa.day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("tsa.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DeptID != "" {
		conditions = append(conditions, fmt.Sprintf("t.dept_id = $%d", len(args)+1))
		args = append(args, filter.DeptID)
	}
	if filter.SlotType != "" {
		conditions = append(conditions, fmt.Sprintf("s.slot_type = $%d", len(args)+1))
		args = append(args, filter.SlotType)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY tsa.day_of_week ASC, s.slot_type ASC, t.full_name ASC"

	var rows []models.TeacherSlotAssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher slot assignments: %w", err)
	}
	for i := range rows {
		rows[i].DayName = rows[i].DayOfWeek.String()
	}
	return rows, nil
}

// Week returns every assignment held by an active teacher. It is the state
// placement rules are checked against.
func (r *TeacherSlotRepository) Week(ctx context.Context) ([]models.TeacherSlotAssignment, error) {
	const query = `SELECT tsa.id, tsa.teacher_id, tsa.slot_id, tsa.day_of_week, tsa.created_at, tsa.updated_at
FROM teacher_slot_assignments tsa
JOIN teachers t ON t.id = tsa.teacher_id
WHERE t.active = TRUE`
	var rows []models.TeacherSlotAssignment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load week assignments: %w", err)
	}
	return rows, nil
}

// FindByTeacherDay fetches the assignment a teacher holds on a day.
func (r *TeacherSlotRepository) FindByTeacherDay(ctx context.Context, teacherID string, day models.DayOfWeek) (*models.TeacherSlotAssignment, error) {
	const query = `SELECT id, teacher_id, slot_id, day_of_week, created_at, updated_at
FROM teacher_slot_assignments WHERE teacher_id = $1 AND day_of_week = $2`
	var assignment models.TeacherSlotAssignment
	if err := r.db.GetContext(ctx, &assignment, query, teacherID, day); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts an assignment.
func (r *TeacherSlotRepository) Create(ctx context.Context, assignment *models.TeacherSlotAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	const query = `INSERT INTO teacher_slot_assignments (id, teacher_id, slot_id, day_of_week, created_at, updated_at)
VALUES (:id, :teacher_id, :slot_id, :day_of_week, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create teacher slot assignment: %w", err)
	}
	return nil
}

// UpdateSlot moves an assignment to another slot.
func (r *TeacherSlotRepository) UpdateSlot(ctx context.Context, id, slotID string) error {
	const query = `UPDATE teacher_slot_assignments SET slot_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, slotID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher slot assignment: %w", err)
	}
	return nil
}

// Delete removes the teacher's assignment on day and reports whether a row existed.
func (r *TeacherSlotRepository) Delete(ctx context.Context, teacherID string, day models.DayOfWeek) (bool, error) {
	const query = `DELETE FROM teacher_slot_assignments WHERE teacher_id = $1 AND day_of_week = $2`
	res, err := r.db.ExecContext(ctx, query, teacherID, day)
	if err != nil {
		return false, fmt.Errorf("delete teacher slot assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete teacher slot assignment: %w", err)
	}
	return n > 0, nil
}
