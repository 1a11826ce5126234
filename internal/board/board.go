// Package board holds the slot-allocation board: per-day pending placements,
// validated against the week before they are accepted, and a day-switch
// state machine that reconciles them with the server of record.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Gateway is the server of record as seen by the board.
type Gateway interface {
	Slots(ctx context.Context) ([]models.Slot, error)
	Teachers(ctx context.Context, deptID string) ([]models.Teacher, error)
	Assignments(ctx context.Context, q dto.TeacherSlotQuery) ([]models.TeacherSlotAssignmentDetail, error)
	SaveBatch(ctx context.Context, ops []dto.BatchAssignment) (*dto.BatchResult, error)
}

// Config tunes a Board.
type Config struct {
	// DeptID limits the editable roster and assignments to one department.
	// Capacity is still judged against the whole active roster, and seats
	// held by other departments count towards occupancy.
	DeptID   string
	Policy   allocation.Policy
	Notifier Notifier
	Logger   *zap.Logger
}

// ErrUnknownSlot rejects placements into slots the board does not know.
var ErrUnknownSlot = errors.New("unknown slot")

// Board is the allocation surface for one user. It is safe for concurrent
// use, but every mutation is serialised and a save blocks further edits.
type Board struct {
	gw     Gateway
	deptID string
	notify Notifier
	logger *zap.Logger

	mu       sync.Mutex
	open     bool
	policy   allocation.Policy
	roster   allocation.Roster
	teachers map[string]models.Teacher
	outside  allocation.WeekState
	slots    []models.Slot
	day      models.DayOfWeek
	target   models.DayOfWeek
	state    State
	pending  allocation.WeekState
	snapshot allocation.WeekState
}

// New builds a board. Call Open before using it.
func New(gw Gateway, cfg Config) *Board {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notify := cfg.Notifier
	if notify == nil {
		notify = LogNotifier(logger)
	}
	policy := cfg.Policy
	if policy.Scope == "" {
		policy.Scope = allocation.ScopeRoster
	}
	return &Board{
		gw:     gw,
		deptID: cfg.DeptID,
		notify: notify,
		logger: logger,
		policy: policy,
	}
}

// Open loads the roster, the slots and the persisted week, and lands on Monday.
func (b *Board) Open(ctx context.Context) error {
	teachers, err := b.gw.Teachers(ctx, b.deptID)
	if err != nil {
		b.notify.Notify(LevelError, "Failed to load teachers")
		return fmt.Errorf("load teachers: %w", err)
	}
	active := teachers
	if b.deptID != "" {
		if active, err = b.gw.Teachers(ctx, ""); err != nil {
			b.notify.Notify(LevelError, "Failed to load teachers")
			return fmt.Errorf("load active roster: %w", err)
		}
	}
	slots, err := b.gw.Slots(ctx)
	if err != nil {
		b.notify.Notify(LevelError, "Failed to load slots")
		return fmt.Errorf("load slots: %w", err)
	}
	assignments, err := b.gw.Assignments(ctx, dto.TeacherSlotQuery{})
	if err != nil {
		b.notify.Notify(LevelError, "Failed to load assignments")
		return fmt.Errorf("load assignments: %w", err)
	}

	byID := make(map[string]models.Teacher, len(teachers))
	for _, t := range teachers {
		byID[t.ID] = t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.teachers = byID
	own, outside := b.splitLocked(flatten(assignments))
	week := allocation.WeekFromAssignments(own)
	b.slots = slots
	b.roster = allocation.NewRoster(active)
	b.policy = b.policy.WithSlots(slots)
	b.outside = allocation.WeekFromAssignments(outside)
	b.snapshot = week
	b.pending = week.Clone()
	b.day = models.Monday
	b.state = StateClean
	b.open = true

	b.logger.Info("board opened",
		zap.String("dept_id", b.deptID),
		zap.Int("teachers", len(teachers)),
		zap.Int("active_roster", b.roster.Size),
		zap.Int("slots", len(slots)),
		zap.Int("capacity", b.capacityLocked()),
	)
	return nil
}

// Day returns the day being edited.
func (b *Board) Day() models.DayOfWeek {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.day
}

// State returns the current state machine phase.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// TargetDay returns the day a pending day change will move to.
func (b *Board) TargetDay() (models.DayOfWeek, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target, b.state == StateConfirmingDiscard
}

// Pending returns a copy of the pending placements of day.
func (b *Board) Pending(day models.DayOfWeek) []allocation.Placement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return allocation.ClonePlacements(b.pending[day])
}

// Snapshot returns a copy of the last fetched placements of day.
func (b *Board) Snapshot(day models.DayOfWeek) []allocation.Placement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return allocation.ClonePlacements(b.snapshot[day])
}

// Week returns a copy of the whole pending week.
func (b *Board) Week() allocation.WeekState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Clone()
}

// Capacity is the per-slot seat limit derived from the active roster, or from
// the board's department under department scope.
func (b *Board) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacityLocked()
}

// Occupancy counts the seats taken in slot on day. Seats held by other
// departments count unless capacity is per department.
func (b *Board) Occupancy(day models.DayOfWeek, slotID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	week := b.pending
	if b.policy.Scope != allocation.ScopeDepartment {
		week = b.occupiedLocked()
	}
	return week.Occupancy(slotID, day, nil)
}

func (b *Board) capacityLocked() int {
	if b.policy.Scope == allocation.ScopeDepartment && b.deptID != "" {
		return allocation.Capacity(b.roster.DeptSize(b.deptID))
	}
	return allocation.Capacity(b.roster.Size)
}

// Slots returns the known slots.
func (b *Board) Slots() []models.Slot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Slot, len(b.slots))
	copy(out, b.slots)
	return out
}

// Teachers returns the roster ordered by name.
func (b *Board) Teachers() []models.Teacher {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Teacher, 0, len(b.teachers))
	for _, t := range b.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// Assign places a teacher into a slot on the current day. A rejected
// placement returns an *allocation.RuleError and leaves the day untouched.
func (b *Board) Assign(teacherID, slotID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.editableLocked(); err != nil {
		return err
	}
	if !b.knownSlotLocked(slotID) {
		b.notify.Notify(LevelError, "Invalid slot selection")
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}

	candidate := allocation.Candidate{TeacherID: teacherID, SlotID: slotID, Day: b.day}
	var decision allocation.Decision
	if b.roster.Size > 0 && !b.memberLocked(teacherID) {
		decision = allocation.Decision{
			Reason:  allocation.ReasonUnknown,
			Message: fmt.Sprintf("teacher %s is not on the %s roster", teacherID, b.deptID),
		}
	} else {
		decision = allocation.CanAssign(candidate, b.occupiedLocked(), b.roster, b.policy)
	}
	if !decision.OK {
		b.notify.Notify(LevelError, fmt.Sprintf("Cannot assign %s: %s", b.teacherNameLocked(teacherID), decision.Message))
		b.logger.Debug("placement rejected",
			zap.String("teacher_id", teacherID),
			zap.String("slot_id", slotID),
			zap.Stringer("day", b.day),
			zap.String("reason", string(decision.Reason)),
		)
		return decision.Err()
	}

	b.pending[b.day] = allocation.Apply(b.pending[b.day], candidate)
	b.markLocked()
	return nil
}

// Remove takes a teacher off the current day. Removing an unassigned teacher is a no-op.
func (b *Board) Remove(teacherID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.editableLocked(); err != nil {
		return err
	}
	if _, held := b.pending.SlotOf(teacherID, b.day); !held {
		return nil
	}
	b.pending[b.day] = allocation.Remove(b.pending[b.day], teacherID)
	b.markLocked()
	b.notify.Notify(LevelSuccess, fmt.Sprintf("Removed %s from slot assignment", b.teacherNameLocked(teacherID)))
	return nil
}

// RequestDay navigates to day. From Clean it switches immediately and
// re-fetches the day; from Dirty it parks the request and enters
// ConfirmingDiscard, returning false.
func (b *Board) RequestDay(ctx context.Context, day models.DayOfWeek) (bool, error) {
	if !day.Valid() {
		return false, ErrInvalidDay
	}
	b.mu.Lock()
	if !b.open {
		b.mu.Unlock()
		return false, ErrNotOpen
	}
	switch b.state {
	case StateSaving:
		b.mu.Unlock()
		return false, ErrSaveInProgress
	case StateConfirmingDiscard:
		b.mu.Unlock()
		return false, ErrConfirmationPending
	case StateDirty:
		b.target = day
		b.state = StateConfirmingDiscard
		from := b.day
		b.mu.Unlock()
		b.notify.Notify(LevelInfo, fmt.Sprintf("Unsaved changes on %s: save or discard before switching to %s", from, day))
		return false, nil
	}
	b.mu.Unlock()

	if err := b.navigate(ctx, day); err != nil {
		return false, err
	}
	return true, nil
}

// CancelDayChange abandons a parked day change and keeps editing.
func (b *Board) CancelDayChange() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateConfirmingDiscard {
		return ErrNoDayChange
	}
	b.state = StateDirty
	return nil
}

// DiscardAndContinue resets the current day to its last fetched state and
// moves to the parked day without saving.
func (b *Board) DiscardAndContinue(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateConfirmingDiscard {
		b.mu.Unlock()
		return ErrNoDayChange
	}
	b.pending[b.day] = allocation.ClonePlacements(b.snapshot[b.day])
	b.state = StateClean
	target := b.target
	b.mu.Unlock()

	return b.navigate(ctx, target)
}

// SaveAndContinue saves the current day and, if the save succeeds, moves to
// the parked day. On failure the board stays in ConfirmingDiscard.
func (b *Board) SaveAndContinue(ctx context.Context) (*dto.BatchResult, error) {
	b.mu.Lock()
	if b.state != StateConfirmingDiscard {
		b.mu.Unlock()
		return nil, ErrNoDayChange
	}
	target := b.target
	res, err := b.saveLocked(ctx)
	if err != nil {
		return res, err
	}
	return res, b.navigate(ctx, target)
}

// Save persists the current day. See saveLocked for the protocol.
func (b *Board) Save(ctx context.Context) (*dto.BatchResult, error) {
	b.mu.Lock()
	if !b.open {
		b.mu.Unlock()
		return nil, ErrNotOpen
	}
	switch b.state {
	case StateSaving:
		b.mu.Unlock()
		return nil, ErrSaveInProgress
	case StateConfirmingDiscard:
		b.mu.Unlock()
		return nil, ErrConfirmationPending
	}
	return b.saveLocked(ctx)
}

func (b *Board) navigate(ctx context.Context, day models.DayOfWeek) error {
	assignments, err := b.fetchDay(ctx, day)
	if err != nil {
		b.notify.Notify(LevelError, fmt.Sprintf("Failed to load assignments for %s", day))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	own, outside := b.splitLocked(assignments)
	placements := toPlacements(own)
	b.outside[day] = toPlacements(outside)
	b.snapshot[day] = placements
	b.pending[day] = allocation.ClonePlacements(placements)
	b.day = day
	b.state = StateClean
	return nil
}

// fetchDay reads every department's assignments for day so that seats held
// elsewhere are known to the capacity check.
func (b *Board) fetchDay(ctx context.Context, day models.DayOfWeek) ([]models.TeacherSlotAssignment, error) {
	d := day
	assignments, err := b.gw.Assignments(ctx, dto.TeacherSlotQuery{DayOfWeek: &d})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", day, err)
	}
	return flatten(assignments), nil
}

// splitLocked separates assignments of the board's teachers from the rest.
// An unscoped board owns every assignment.
func (b *Board) splitLocked(assignments []models.TeacherSlotAssignment) (own, outside []models.TeacherSlotAssignment) {
	for _, a := range assignments {
		if _, ok := b.teachers[a.TeacherID]; ok || b.deptID == "" {
			own = append(own, a)
			continue
		}
		outside = append(outside, a)
	}
	return own, outside
}

// occupiedLocked is the pending week plus the seats other departments hold.
// Teachers never appear on both sides.
func (b *Board) occupiedLocked() allocation.WeekState {
	if len(b.outside) == 0 {
		return b.pending
	}
	week := b.pending.Clone()
	for day, placements := range b.outside {
		week[day] = append(week[day], placements...)
	}
	return week
}

func (b *Board) memberLocked(teacherID string) bool {
	if b.deptID == "" {
		return true
	}
	t, ok := b.teachers[teacherID]
	return ok && t.Active
}

func (b *Board) editableLocked() error {
	if !b.open {
		return ErrNotOpen
	}
	switch b.state {
	case StateSaving:
		return ErrSaveInProgress
	case StateConfirmingDiscard:
		return ErrConfirmationPending
	}
	return nil
}

func (b *Board) markLocked() {
	if allocation.SamePlacements(b.pending[b.day], b.snapshot[b.day]) {
		b.state = StateClean
		return
	}
	b.state = StateDirty
}

func (b *Board) knownSlotLocked(slotID string) bool {
	for _, s := range b.slots {
		if s.ID == slotID {
			return true
		}
	}
	return false
}

func (b *Board) teacherNameLocked(teacherID string) string {
	if t, ok := b.teachers[teacherID]; ok && t.FullName != "" {
		return t.FullName
	}
	return "Teacher " + teacherID
}

func toPlacements(assignments []models.TeacherSlotAssignment) []allocation.Placement {
	placements := make([]allocation.Placement, 0, len(assignments))
	for _, a := range assignments {
		placements = append(placements, allocation.Placement{TeacherID: a.TeacherID, SlotID: a.SlotID})
	}
	return placements
}

func flatten(details []models.TeacherSlotAssignmentDetail) []models.TeacherSlotAssignment {
	out := make([]models.TeacherSlotAssignment, 0, len(details))
	for _, d := range details {
		out = append(out, d.TeacherSlotAssignment)
	}
	return out
}
