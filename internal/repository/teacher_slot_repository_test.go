package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

func TestTeacherSlotRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherSlotRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "slot_id", "day_of_week", "created_at", "updated_at", "dept_id", "teacher_name", "slot_name", "slot_type"}).
		AddRow("a1", "t1", "s1", 2, now, now, "d1", "Ada", "Slot A", "A")
	mock.ExpectQuery(regexp.QuoteMeta("AND tsa.day_of_week = $1 AND t.dept_id = $2 AND s.slot_type = $3 ORDER BY tsa.day_of_week ASC")).
		WithArgs(2, "d1", "A").
		WillReturnRows(rows)

	day := models.Wednesday
	list, err := repo.List(context.Background(), models.TeacherSlotFilter{DayOfWeek: &day, DeptID: "d1", SlotType: models.SlotTypeA})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Wednesday", list[0].DayName)
	assert.Equal(t, "Ada", list[0].TeacherName)
	assert.Equal(t, models.SlotTypeA, list[0].SlotType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherSlotRepositoryWeek(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherSlotRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM teacher_slot_assignments tsa\\s+JOIN teachers t ON t.id = tsa.teacher_id\\s+WHERE t.active = TRUE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "slot_id", "day_of_week", "created_at", "updated_at"}).
			AddRow("a1", "t1", "s1", 0, now, now).
			AddRow("a2", "t1", "s1", 2, now, now))

	week, err := repo.Week(context.Background())
	require.NoError(t, err)
	assert.Len(t, week, 2)
	assert.Equal(t, models.Wednesday, week[1].DayOfWeek)
}

func TestTeacherSlotRepositoryCreateUpdateDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherSlotRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO teacher_slot_assignments").
		WithArgs(sqlmock.AnyArg(), "t1", "s1", 4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	assignment := &models.TeacherSlotAssignment{TeacherID: "t1", SlotID: "s1", DayOfWeek: models.Friday}
	require.NoError(t, repo.Create(ctx, assignment))
	assert.NotEmpty(t, assignment.ID)

	mock.ExpectExec("UPDATE teacher_slot_assignments SET slot_id = \\$2").
		WithArgs(assignment.ID, "s2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateSlot(ctx, assignment.ID, "s2"))

	mock.ExpectExec("DELETE FROM teacher_slot_assignments WHERE teacher_id = \\$1 AND day_of_week = \\$2").
		WithArgs("t1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	deleted, err := repo.Delete(ctx, "t1", models.Friday)
	require.NoError(t, err)
	assert.True(t, deleted)

	mock.ExpectExec("DELETE FROM teacher_slot_assignments").
		WithArgs("t1", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	deleted, err = repo.Delete(ctx, "t1", models.Friday)
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
