package plan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/board"
	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

type memoryGateway struct {
	mu          sync.Mutex
	teachers    []models.Teacher
	slots       []models.Slot
	assignments []models.TeacherSlotAssignmentDetail
	saves       [][]dto.BatchAssignment
	saveErr     error
}

func newMemoryGateway(n int) *memoryGateway {
	gw := &memoryGateway{slots: []models.Slot{
		{ID: "slot-a", Name: "Slot A", Type: models.SlotTypeA},
		{ID: "slot-b", Name: "Slot B", Type: models.SlotTypeB},
		{ID: "slot-c", Name: "Slot C", Type: models.SlotTypeC},
	}}
	for i := 0; i < n; i++ {
		letter := string(rune('a' + i))
		gw.teachers = append(gw.teachers, models.Teacher{ID: "t-" + letter, StaffCode: "S" + strings.ToUpper(letter), FullName: "Teacher " + letter, Active: true})
	}
	return gw
}

func (g *memoryGateway) Slots(context.Context) ([]models.Slot, error) { return g.slots, nil }

func (g *memoryGateway) Teachers(context.Context, string) ([]models.Teacher, error) {
	return g.teachers, nil
}

func (g *memoryGateway) Assignments(_ context.Context, q dto.TeacherSlotQuery) ([]models.TeacherSlotAssignmentDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.TeacherSlotAssignmentDetail
	for _, a := range g.assignments {
		if q.DayOfWeek != nil && a.DayOfWeek != *q.DayOfWeek {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (g *memoryGateway) SaveBatch(_ context.Context, ops []dto.BatchAssignment) (*dto.BatchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, ops)
	if g.saveErr != nil {
		return nil, g.saveErr
	}
	res := &dto.BatchResult{TotalOperations: len(ops)}
	for _, op := range ops {
		kept := g.assignments[:0]
		for _, a := range g.assignments {
			if a.TeacherID == op.TeacherID && a.DayOfWeek == op.DayOfWeek {
				continue
			}
			kept = append(kept, a)
		}
		g.assignments = kept
		if op.Action != dto.ActionDelete {
			g.assignments = append(g.assignments, models.TeacherSlotAssignmentDetail{
				TeacherSlotAssignment: models.TeacherSlotAssignment{TeacherID: op.TeacherID, SlotID: op.SlotID, DayOfWeek: op.DayOfWeek},
			})
		}
		res.SuccessCount++
		res.Results = append(res.Results, dto.OperationResult{Action: op.Action, TeacherID: op.TeacherID, Success: true})
	}
	return res, nil
}

func openBoard(t *testing.T, gw *memoryGateway) *board.Board {
	t.Helper()
	b := board.New(gw, board.Config{Policy: allocation.DefaultPolicy(), Notifier: board.NotifierFunc(func(board.Level, string) {})})
	require.NoError(t, b.Open(context.Background()))
	return b
}

const samplePlan = `
dept_id: dept-1
days:
  - day: monday
    assign:
      - {teacher: SA, slot: A}
      - {teacher: t-b, slot: "Slot B"}
  - day: "2"
    assign:
      - {teacher: sc, slot: slot-c}
`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	assert.Equal(t, "dept-1", p.DeptID)
	require.Len(t, p.Days, 2)
	assert.Equal(t, Placement{Teacher: "SA", Slot: "A"}, p.Days[0].Assign[0])
}

func TestParseRejectsBadPlans(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no days":      "dept_id: d\n",
		"unknown key":  "days:\n  - day: monday\n    asign: []\n",
		"bad day":      "days:\n  - day: sunday\n",
		"missing slot": "days:\n  - day: monday\n    assign:\n      - teacher: t-a\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(raw))
			assert.Error(t, err)
		})
	}
}

func TestApplySavesEachDay(t *testing.T) {
	gw := newMemoryGateway(6)
	b := openBoard(t, gw)
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	outcomes, err := Apply(context.Background(), b, p, Options{})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.Monday, outcomes[0].Day)
	assert.Len(t, outcomes[0].Operations, 2)
	assert.True(t, outcomes[0].Saved)
	assert.Equal(t, models.Wednesday, outcomes[1].Day)
	assert.Len(t, gw.saves, 2)
	assert.Len(t, gw.assignments, 3)
	assert.Equal(t, board.StateClean, b.State())
}

func TestApplyDryRunSendsNothing(t *testing.T) {
	gw := newMemoryGateway(6)
	b := openBoard(t, gw)
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	outcomes, err := Apply(context.Background(), b, p, Options{DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, gw.saves)
	require.Len(t, outcomes, 2)
	assert.Len(t, outcomes[0].Operations, 2)
	assert.Len(t, outcomes[1].Operations, 1)
	assert.False(t, outcomes[1].Saved)
	assert.Empty(t, b.Pending(models.Monday))
}

func TestApplyCollectsRejections(t *testing.T) {
	gw := newMemoryGateway(3)
	b := openBoard(t, gw)
	p := &Plan{Days: []DayPlan{{
		Day: "monday",
		Assign: []Placement{
			{Teacher: "t-a", Slot: "A"},
			{Teacher: "t-b", Slot: "A"},
		},
	}}}

	outcomes, err := Apply(context.Background(), b, p, Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, outcomes[0].Rejected, 1)
	assert.Equal(t, allocation.ReasonCapacity, outcomes[0].Rejected[0].Reason)
	assert.Len(t, outcomes[0].Operations, 1)

	_, err = Apply(context.Background(), b, p, Options{DryRun: true, Strict: true})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestApplyReplaceAndRemove(t *testing.T) {
	gw := newMemoryGateway(6)
	gw.assignments = []models.TeacherSlotAssignmentDetail{
		{TeacherSlotAssignment: models.TeacherSlotAssignment{TeacherID: "t-a", SlotID: "slot-a", DayOfWeek: models.Tuesday}},
		{TeacherSlotAssignment: models.TeacherSlotAssignment{TeacherID: "t-b", SlotID: "slot-b", DayOfWeek: models.Tuesday}},
	}
	b := openBoard(t, gw)
	p := &Plan{Days: []DayPlan{
		{Day: "tue", Remove: []string{"SB"}},
		{Day: "friday", Replace: true, Assign: []Placement{{Teacher: "t-c", Slot: "C"}}},
	}}

	outcomes, err := Apply(context.Background(), b, p, Options{})
	require.NoError(t, err)

	require.Len(t, outcomes[0].Operations, 2)
	assert.Equal(t, dto.ActionDelete, outcomes[0].Operations[0].Action)
	assert.Equal(t, "t-b", outcomes[0].Operations[0].TeacherID)
	assert.Equal(t, []dto.BatchAssignment{{TeacherID: "t-c", SlotID: "slot-c", DayOfWeek: models.Friday, Action: dto.ActionCreate}}, outcomes[1].Operations)
	assert.Len(t, gw.assignments, 2)
}

func TestApplyUnknownReferences(t *testing.T) {
	gw := newMemoryGateway(2)
	b := openBoard(t, gw)

	_, err := Apply(context.Background(), b, &Plan{Days: []DayPlan{{Day: "mon", Assign: []Placement{{Teacher: "nobody", Slot: "A"}}}}}, Options{})
	assert.ErrorContains(t, err, "not on the roster")

	_, err = Apply(context.Background(), b, &Plan{Days: []DayPlan{{Day: "mon", Assign: []Placement{{Teacher: "t-a", Slot: "Z"}}}}}, Options{})
	assert.ErrorIs(t, err, board.ErrUnknownSlot)
}

func TestApplyStopsOnSaveFailure(t *testing.T) {
	gw := newMemoryGateway(6)
	gw.saveErr = errors.New("503 service unavailable")
	b := openBoard(t, gw)
	p, err := Parse(strings.NewReader(samplePlan))
	require.NoError(t, err)

	outcomes, err := Apply(context.Background(), b, p, Options{})
	require.Error(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Saved)
	assert.Len(t, b.Pending(models.Monday), 2)
	assert.Equal(t, board.StateDirty, b.State())
}
