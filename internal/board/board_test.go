package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

type fakeGateway struct {
	mu          sync.Mutex
	teachers    []models.Teacher
	slots       []models.Slot
	assignments []models.TeacherSlotAssignmentDetail
	saveErr     error
	fetchErr    error
	saveCalls   [][]dto.BatchAssignment
	fetches     int
	block       chan struct{}
	entered     chan struct{}
}

func newFakeGateway(teacherCount int) *fakeGateway {
	gw := &fakeGateway{
		slots: []models.Slot{
			{ID: "slot-a", Name: "Slot A", Type: models.SlotTypeA},
			{ID: "slot-b", Name: "Slot B", Type: models.SlotTypeB},
			{ID: "slot-c", Name: "Slot C", Type: models.SlotTypeC},
		},
	}
	for i := 0; i < teacherCount; i++ {
		id := string(rune('a'+i)) + "-teacher"
		gw.teachers = append(gw.teachers, models.Teacher{ID: id, DeptID: "dept-1", FullName: "Teacher " + id, Active: true})
	}
	return gw
}

func (g *fakeGateway) seed(teacherID, slotID string, day models.DayOfWeek) {
	g.assignments = append(g.assignments, models.TeacherSlotAssignmentDetail{
		TeacherSlotAssignment: models.TeacherSlotAssignment{ID: teacherID + slotID, TeacherID: teacherID, SlotID: slotID, DayOfWeek: day},
	})
}

func (g *fakeGateway) Slots(context.Context) ([]models.Slot, error) { return g.slots, nil }

func (g *fakeGateway) addTeachers(deptID string, n int) {
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%02d", deptID, i)
		g.teachers = append(g.teachers, models.Teacher{ID: id, DeptID: deptID, FullName: "Teacher " + id, Active: true})
	}
}

func (g *fakeGateway) Teachers(_ context.Context, deptID string) ([]models.Teacher, error) {
	if deptID == "" {
		return g.teachers, nil
	}
	var out []models.Teacher
	for _, t := range g.teachers {
		if t.DeptID == deptID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (g *fakeGateway) Assignments(_ context.Context, q dto.TeacherSlotQuery) ([]models.TeacherSlotAssignmentDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	var out []models.TeacherSlotAssignmentDetail
	for _, a := range g.assignments {
		if q.DayOfWeek != nil && a.DayOfWeek != *q.DayOfWeek {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (g *fakeGateway) SaveBatch(_ context.Context, ops []dto.BatchAssignment) (*dto.BatchResult, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveCalls = append(g.saveCalls, ops)
	if g.saveErr != nil {
		return nil, g.saveErr
	}
	res := &dto.BatchResult{TotalOperations: len(ops)}
	for _, op := range ops {
		g.apply(op)
		res.SuccessCount++
		res.Results = append(res.Results, dto.OperationResult{Action: op.Action, TeacherID: op.TeacherID, SlotID: op.SlotID, DayOfWeek: op.DayOfWeek, Success: true})
	}
	return res, nil
}

func (g *fakeGateway) apply(op dto.BatchAssignment) {
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
}

func (g *fakeGateway) saves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saveCalls)
}

type note struct {
	level   Level
	message string
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{level: level, message: message})
}

func (r *recorder) last() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

func openBoard(t *testing.T, gw *fakeGateway) (*Board, *recorder) {
	t.Helper()
	rec := &recorder{}
	b := New(gw, Config{DeptID: "dept-1", Policy: allocation.DefaultPolicy(), Notifier: rec})
	require.NoError(t, b.Open(context.Background()))
	return b, rec
}

func TestBoardRequiresOpen(t *testing.T) {
	b := New(newFakeGateway(3), Config{})
	assert.ErrorIs(t, b.Assign("a-teacher", "slot-a"), ErrNotOpen)
	_, err := b.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestBoardOpenLoadsWeek(t *testing.T) {
	gw := newFakeGateway(4)
	gw.seed("a-teacher", "slot-a", models.Monday)
	gw.seed("a-teacher", "slot-b", models.Wednesday)

	b, _ := openBoard(t, gw)

	assert.Equal(t, models.Monday, b.Day())
	assert.Equal(t, StateClean, b.State())
	assert.Equal(t, 2, b.Capacity())
	assert.Len(t, b.Pending(models.Monday), 1)
	assert.Len(t, b.Week()[models.Wednesday], 1)
	assert.Len(t, b.Teachers(), 4)
}

func TestBoardAssignMarksDirty(t *testing.T) {
	gw := newFakeGateway(4)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	assert.Equal(t, StateDirty, b.State())
	assert.Equal(t, []allocation.Placement{{TeacherID: "a-teacher", SlotID: "slot-a"}}, b.Pending(models.Monday))
}

func TestBoardSameDayConflictLeavesStateUnchanged(t *testing.T) {
	gw := newFakeGateway(4)
	gw.seed("a-teacher", "slot-a", models.Monday)
	b, rec := openBoard(t, gw)

	err := b.Assign("a-teacher", "slot-b")
	var ruleErr *allocation.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, allocation.ReasonSameDay, ruleErr.Reason)
	assert.Equal(t, []allocation.Placement{{TeacherID: "a-teacher", SlotID: "slot-a"}}, b.Pending(models.Monday))
	assert.Equal(t, StateClean, b.State())
	assert.Equal(t, LevelError, rec.last().level)
}

func TestBoardRepeatSlotCapSpansWeek(t *testing.T) {
	gw := newFakeGateway(4)
	gw.seed("a-teacher", "slot-a", models.Monday)
	gw.seed("a-teacher", "slot-a", models.Wednesday)
	b, _ := openBoard(t, gw)

	ok, err := b.RequestDay(context.Background(), models.Friday)
	require.NoError(t, err)
	require.True(t, ok)

	var ruleErr *allocation.RuleError
	require.ErrorAs(t, b.Assign("a-teacher", "slot-a"), &ruleErr)
	assert.Equal(t, allocation.ReasonRepeatSlot, ruleErr.Reason)
	assert.Empty(t, b.Pending(models.Friday))

	require.NoError(t, b.Assign("a-teacher", "slot-b"))
}

func TestBoardCapacityCeiling(t *testing.T) {
	gw := newFakeGateway(4)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	require.NoError(t, b.Assign("b-teacher", "slot-a"))

	var ruleErr *allocation.RuleError
	require.ErrorAs(t, b.Assign("c-teacher", "slot-a"), &ruleErr)
	assert.Equal(t, allocation.ReasonCapacity, ruleErr.Reason)
	assert.Len(t, b.Pending(models.Monday), 2)
}

func TestBoardEmptyRosterHasNoCapacity(t *testing.T) {
	gw := newFakeGateway(0)
	b, _ := openBoard(t, gw)

	assert.Equal(t, 0, b.Capacity())
	var ruleErr *allocation.RuleError
	require.ErrorAs(t, b.Assign("ghost", "slot-a"), &ruleErr)
	assert.Equal(t, allocation.ReasonNoCapacity, ruleErr.Reason)
	assert.Empty(t, b.Pending(models.Monday))
}

func TestBoardCapacityUsesWholeActiveRoster(t *testing.T) {
	gw := newFakeGateway(3)
	gw.addTeachers("dept-2", 27)
	b, _ := openBoard(t, gw)

	assert.Equal(t, 10, b.Capacity())
	assert.Len(t, b.Teachers(), 3)
	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	require.NoError(t, b.Assign("b-teacher", "slot-a"))
	require.NoError(t, b.Assign("c-teacher", "slot-a"))
	assert.Equal(t, 3, b.Occupancy(models.Monday, "slot-a"))
}

func TestBoardCountsSeatsHeldByOtherDepartments(t *testing.T) {
	gw := newFakeGateway(4)
	gw.addTeachers("dept-2", 2)
	gw.seed("dept-2-00", "slot-a", models.Monday)
	gw.seed("dept-2-01", "slot-a", models.Monday)
	b, _ := openBoard(t, gw)

	assert.Equal(t, 2, b.Capacity())
	assert.Empty(t, b.Pending(models.Monday))
	assert.Equal(t, 2, b.Occupancy(models.Monday, "slot-a"))

	var ruleErr *allocation.RuleError
	require.ErrorAs(t, b.Assign("a-teacher", "slot-a"), &ruleErr)
	assert.Equal(t, allocation.ReasonCapacity, ruleErr.Reason)

	require.ErrorAs(t, b.Assign("dept-2-00", "slot-b"), &ruleErr)
	assert.Equal(t, allocation.ReasonUnknown, ruleErr.Reason)

	require.NoError(t, b.Assign("a-teacher", "slot-b"))
	_, err := b.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, gw.saveCalls, 1)
	assert.Equal(t, []dto.BatchAssignment{
		{TeacherID: "a-teacher", SlotID: "slot-b", DayOfWeek: models.Monday, Action: dto.ActionCreate},
	}, gw.saveCalls[0])
	assert.Equal(t, 2, b.Occupancy(models.Monday, "slot-a"))
}

func TestBoardDepartmentScopeCapacity(t *testing.T) {
	gw := newFakeGateway(4)
	gw.addTeachers("dept-2", 20)
	gw.seed("dept-2-00", "slot-a", models.Monday)
	policy := allocation.DefaultPolicy()
	policy.Scope = allocation.ScopeDepartment
	b := New(gw, Config{DeptID: "dept-1", Policy: policy, Notifier: &recorder{}})
	require.NoError(t, b.Open(context.Background()))

	assert.Equal(t, 2, b.Capacity())
	assert.Equal(t, 0, b.Occupancy(models.Monday, "slot-a"))
	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	require.NoError(t, b.Assign("b-teacher", "slot-a"))
	assert.Error(t, b.Assign("c-teacher", "slot-a"))
}

func TestBoardUnknownSlot(t *testing.T) {
	b, _ := openBoard(t, newFakeGateway(3))
	assert.ErrorIs(t, b.Assign("a-teacher", "slot-z"), ErrUnknownSlot)
}

func TestBoardRemoveAndReAddReturnsToClean(t *testing.T) {
	gw := newFakeGateway(4)
	gw.seed("a-teacher", "slot-a", models.Monday)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Remove("a-teacher"))
	assert.Equal(t, StateDirty, b.State())

	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	assert.Equal(t, StateClean, b.State())
}

func TestBoardDiscardFlowSendsNoSave(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway(4)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Assign("a-teacher", "slot-a"))

	moved, err := b.RequestDay(ctx, models.Tuesday)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, StateConfirmingDiscard, b.State())
	target, pending := b.TargetDay()
	assert.True(t, pending)
	assert.Equal(t, models.Tuesday, target)

	assert.ErrorIs(t, b.Assign("b-teacher", "slot-b"), ErrConfirmationPending)

	require.NoError(t, b.DiscardAndContinue(ctx))
	assert.Equal(t, models.Tuesday, b.Day())
	assert.Equal(t, StateClean, b.State())
	assert.Empty(t, b.Pending(models.Monday))
	assert.Zero(t, gw.saves())
}

func TestBoardCancelDayChange(t *testing.T) {
	ctx := context.Background()
	b, _ := openBoard(t, newFakeGateway(4))

	assert.ErrorIs(t, b.CancelDayChange(), ErrNoDayChange)

	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	_, err := b.RequestDay(ctx, models.Tuesday)
	require.NoError(t, err)

	require.NoError(t, b.CancelDayChange())
	assert.Equal(t, StateDirty, b.State())
	assert.Equal(t, models.Monday, b.Day())
	assert.Len(t, b.Pending(models.Monday), 1)
}

func TestBoardSaveAndContinue(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway(4)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	_, err := b.RequestDay(ctx, models.Tuesday)
	require.NoError(t, err)

	res, err := b.SaveAndContinue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, models.Tuesday, b.Day())
	assert.Equal(t, StateClean, b.State())
	assert.Len(t, b.Snapshot(models.Monday), 1)
}

func TestBoardSaveAndContinueFailureStaysConfirming(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway(4)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	_, err := b.RequestDay(ctx, models.Tuesday)
	require.NoError(t, err)

	gw.saveErr = errors.New("boom")
	_, err = b.SaveAndContinue(ctx)
	require.Error(t, err)
	assert.Equal(t, StateConfirmingDiscard, b.State())
	assert.Equal(t, models.Monday, b.Day())
	assert.Len(t, b.Pending(models.Monday), 1)
}

func TestBoardEmptySaveIsNoop(t *testing.T) {
	gw := newFakeGateway(4)
	b, rec := openBoard(t, gw)

	res, err := b.Save(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.TotalOperations)
	assert.Zero(t, gw.saves())
	assert.Equal(t, LevelSuccess, rec.last().level)
}

func TestBoardSaveFailurePreservesPending(t *testing.T) {
	gw := newFakeGateway(4)
	b, rec := openBoard(t, gw)
	require.NoError(t, b.Assign("a-teacher", "slot-a"))
	require.NoError(t, b.Assign("b-teacher", "slot-b"))
	before := b.Pending(models.Monday)

	gw.saveErr = errors.New("server exploded")
	_, err := b.Save(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, b.Pending(models.Monday))
	assert.Equal(t, StateDirty, b.State())
	assert.Equal(t, LevelError, rec.last().level)
}

func TestBoardSaveSendsDeletesAndRefetches(t *testing.T) {
	gw := newFakeGateway(4)
	gw.seed("a-teacher", "slot-a", models.Monday)
	gw.seed("b-teacher", "slot-b", models.Monday)
	b, _ := openBoard(t, gw)

	require.NoError(t, b.Remove("b-teacher"))
	require.NoError(t, b.Assign("c-teacher", "slot-c"))

	res, err := b.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalOperations)
	require.Equal(t, 1, gw.saves())
	ops := gw.saveCalls[0]
	assert.Equal(t, dto.ActionDelete, ops[0].Action)
	assert.Equal(t, "b-teacher", ops[0].TeacherID)
	assert.Equal(t, StateClean, b.State())
	assert.ElementsMatch(t, []allocation.Placement{
		{TeacherID: "a-teacher", SlotID: "slot-a"},
		{TeacherID: "c-teacher", SlotID: "slot-c"},
	}, b.Snapshot(models.Monday))
}

func TestBoardMissingTeacherAbortsSave(t *testing.T) {
	gw := newFakeGateway(4)
	gw.seed("", "slot-a", models.Monday)
	b, rec := openBoard(t, gw)
	require.NoError(t, b.Assign("a-teacher", "slot-b"))

	_, err := b.Save(context.Background())
	assert.ErrorIs(t, err, ErrMissingTeacher)
	assert.Zero(t, gw.saves())
	assert.Equal(t, StateDirty, b.State())
	assert.Equal(t, LevelError, rec.last().level)
}

func TestBoardRejectsConcurrentSave(t *testing.T) {
	gw := newFakeGateway(4)
	gw.block = make(chan struct{})
	gw.entered = make(chan struct{}, 1)
	b, _ := openBoard(t, gw)
	require.NoError(t, b.Assign("a-teacher", "slot-a"))

	done := make(chan error, 1)
	go func() {
		_, err := b.Save(context.Background())
		done <- err
	}()

	select {
	case <-gw.entered:
	case <-time.After(time.Second):
		t.Fatal("save never reached the gateway")
	}

	assert.Equal(t, StateSaving, b.State())
	_, err := b.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveInProgress)
	assert.ErrorIs(t, b.Assign("b-teacher", "slot-b"), ErrSaveInProgress)
	_, err = b.RequestDay(context.Background(), models.Tuesday)
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(gw.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateClean, b.State())
	assert.Equal(t, 1, gw.saves())
}

func TestBoardRequestDayRejectsInvalidDay(t *testing.T) {
	b, _ := openBoard(t, newFakeGateway(3))
	_, err := b.RequestDay(context.Background(), models.DayOfWeek(6))
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestOperations(t *testing.T) {
	snapshot := []allocation.Placement{
		{TeacherID: "t1", SlotID: "a"},
		{TeacherID: "t2", SlotID: "b"},
		{TeacherID: "t3", SlotID: "c"},
	}
	pending := []allocation.Placement{
		{TeacherID: "t1", SlotID: "a"},
		{TeacherID: "t2", SlotID: "c"},
	}

	ops := Operations(models.Thursday, pending, snapshot)
	require.Len(t, ops, 3)
	assert.Equal(t, dto.BatchAssignment{TeacherID: "t3", SlotID: "c", DayOfWeek: models.Thursday, Action: dto.ActionDelete}, ops[0])
	assert.Equal(t, dto.ActionCreate, ops[1].Action)
	assert.Equal(t, dto.ActionUpdate, ops[2].Action)

	assert.Empty(t, Operations(models.Monday, nil, nil))
}
