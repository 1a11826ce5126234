package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
)

type slotRepository interface {
	List(ctx context.Context) ([]models.Slot, error)
	CreateMissing(ctx context.Context, slots []models.Slot) (int, error)
}

type teacherSlotRepository interface {
	List(ctx context.Context, filter models.TeacherSlotFilter) ([]models.TeacherSlotAssignmentDetail, error)
	Week(ctx context.Context) ([]models.TeacherSlotAssignment, error)
	FindByTeacherDay(ctx context.Context, teacherID string, day models.DayOfWeek) (*models.TeacherSlotAssignment, error)
	Create(ctx context.Context, assignment *models.TeacherSlotAssignment) error
	UpdateSlot(ctx context.Context, id, slotID string) error
	Delete(ctx context.Context, teacherID string, day models.DayOfWeek) (bool, error)
}

type rosterRepository interface {
	Roster(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// summaryRefresher is told which departments changed after a write.
type summaryRefresher interface {
	Enqueue(deptIDs ...string)
}

// SlotService owns slot seeding, assignment listings and validated writes.
type SlotService struct {
	slots       slotRepository
	assignments teacherSlotRepository
	teachers    rosterRepository
	policy      allocation.Policy
	cache       *CacheService
	refresher   summaryRefresher
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger

	// writeMu serialises rule checks with the writes they guard.
	writeMu sync.Mutex
}

// SlotServiceConfig carries the optional collaborators of a SlotService.
type SlotServiceConfig struct {
	Policy    allocation.Policy
	Cache     *CacheService
	Refresher summaryRefresher
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewSlotService builds the service.
func NewSlotService(slots slotRepository, assignments teacherSlotRepository, teachers rosterRepository, cfg SlotServiceConfig) *SlotService {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Policy.Scope == "" {
		cfg.Policy.Scope = allocation.ScopeRoster
	}
	return &SlotService{
		slots:       slots,
		assignments: assignments,
		teachers:    teachers,
		policy:      cfg.Policy,
		cache:       cfg.Cache,
		refresher:   cfg.Refresher,
		metrics:     cfg.Metrics,
		validator:   cfg.Validator,
		logger:      cfg.Logger,
	}
}

// List returns the configured slots.
func (s *SlotService) List(ctx context.Context) ([]models.Slot, error) {
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	return slots, nil
}

// InitializeDefaults seeds slots A, B and C when missing. Repeated calls are harmless.
func (s *SlotService) InitializeDefaults(ctx context.Context) (*dto.InitializeSlotsResponse, error) {
	created, err := s.slots.CreateMissing(ctx, models.DefaultSlots())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize default slots")
	}
	slots, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if created > 0 {
		s.logger.Info("default slots initialized", zap.Int("created", created))
	}
	return &dto.InitializeSlotsResponse{Created: created, Slots: slots}, nil
}

// TeacherSlots lists assignments, optionally with aggregate stats.
func (s *SlotService) TeacherSlots(ctx context.Context, q dto.TeacherSlotQuery) (*dto.TeacherSlotsResponse, error) {
	if q.DayOfWeek != nil && !q.DayOfWeek.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 and 5")
	}
	if q.SlotType != "" && !q.SlotType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot_type must be A, B or C")
	}

	rows, err := s.assignments.List(ctx, models.TeacherSlotFilter{
		DayOfWeek: q.DayOfWeek,
		TeacherID: q.TeacherID,
		DeptID:    q.DeptID,
		SlotType:  q.SlotType,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher slots")
	}
	if rows == nil {
		rows = []models.TeacherSlotAssignmentDetail{}
	}

	resp := &dto.TeacherSlotsResponse{Assignments: rows}
	if q.IncludeStats {
		resp.Stats = AssignmentStats(rows)
	}
	return resp, nil
}

// SaveTeacherPreference applies operations for one teacher.
func (s *SlotService) SaveTeacherPreference(ctx context.Context, req dto.TeacherSlotPreferenceRequest) (*dto.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot preference payload")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	ops := make([]dto.BatchAssignment, len(req.Operations))
	for i, op := range req.Operations {
		ops[i] = dto.BatchAssignment{TeacherID: req.TeacherID, SlotID: op.SlotID, DayOfWeek: op.DayOfWeek, Action: op.Action}
	}
	return s.apply(ctx, ops)
}

// SaveBatch applies operations across teachers.
func (s *SlotService) SaveBatch(ctx context.Context, req dto.BatchAssignmentsRequest) (*dto.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch assignment payload")
	}
	return s.apply(ctx, req.Assignments)
}

// batchState is the world a batch is validated against. It is updated as
// operations succeed so later operations see earlier ones.
type batchState struct {
	week   allocation.WeekState
	roster allocation.Roster
	policy allocation.Policy
	slots  map[string]models.Slot
	depts  map[string]string
}

func (s *SlotService) loadBatchState(ctx context.Context) (*batchState, error) {
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	active := true
	teachers, err := s.teachers.Roster(ctx, models.TeacherFilter{Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	assignments, err := s.assignments.Week(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	state := &batchState{
		week:   allocation.WeekFromAssignments(assignments),
		roster: allocation.NewRoster(teachers),
		policy: s.policy.WithSlots(slots),
		slots:  make(map[string]models.Slot, len(slots)),
		depts:  make(map[string]string, len(teachers)),
	}
	for _, slot := range slots {
		state.slots[slot.ID] = slot
	}
	for _, t := range teachers {
		state.depts[t.ID] = t.DeptID
	}
	return state, nil
}

// actionRank orders a batch: deletes free seats before updates and creates claim them.
func actionRank(a dto.SlotAction) int {
	switch a {
	case dto.ActionDelete:
		return 0
	case dto.ActionUpdate:
		return 1
	}
	return 2
}

func (s *SlotService) apply(ctx context.Context, ops []dto.BatchAssignment) (*dto.BatchResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state, err := s.loadBatchState(ctx)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(ops))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return actionRank(ops[order[a]].Action) < actionRank(ops[order[b]].Action)
	})

	result := &dto.BatchResult{TotalOperations: len(ops), Results: make([]dto.OperationResult, len(ops))}
	touched := make(map[string]struct{})
	for _, i := range order {
		res, wrote := s.applyOne(ctx, state, ops[i])
		result.Results[i] = res
		s.metrics.RecordSlotOperation(string(res.Action), res.Success)
		if res.Success {
			result.SuccessCount++
		}
		if wrote {
			touched[state.depts[res.TeacherID]] = struct{}{}
		}
	}

	if len(touched) > 0 {
		depts := make([]string, 0, len(touched))
		for dept := range touched {
			if dept != "" {
				depts = append(depts, dept)
			}
		}
		sort.Strings(depts)
		_ = s.cache.InvalidateSummaries(ctx, depts...)
		if s.refresher != nil {
			s.refresher.Enqueue(depts...)
		}
	}

	s.logger.Info("slot operations applied",
		zap.Int("total", result.TotalOperations),
		zap.Int("succeeded", result.SuccessCount),
	)
	return result, nil
}

// applyOne runs a single operation. The boolean reports whether a row was
// written; operations that leave storage as it was succeed without writing.
func (s *SlotService) applyOne(ctx context.Context, state *batchState, op dto.BatchAssignment) (dto.OperationResult, bool) {
	res := dto.OperationResult{Action: op.Action, TeacherID: op.TeacherID, SlotID: op.SlotID, DayOfWeek: op.DayOfWeek}
	fail := func(reason allocation.Reason, format string, args ...interface{}) (dto.OperationResult, bool) {
		res.Reason = string(reason)
		res.Error = fmt.Sprintf(format, args...)
		return res, false
	}
	wrote := false

	if op.TeacherID == "" {
		return fail("", "teacher_id is required")
	}
	if !op.DayOfWeek.Valid() {
		return fail(allocation.ReasonInvalidDay, "day_of_week must be between 0 and 5")
	}
	if slot, ok := state.slots[op.SlotID]; ok {
		res.SlotType = slot.Type
	} else if op.Action != dto.ActionDelete {
		return fail("", "slot %s not found", op.SlotID)
	}

	day := op.DayOfWeek
	held, holds := state.week.SlotOf(op.TeacherID, day)

	switch op.Action {
	case dto.ActionDelete:
		deleted, err := s.assignments.Delete(ctx, op.TeacherID, day)
		if err != nil {
			s.logger.Error("delete slot assignment failed", zap.String("teacher_id", op.TeacherID), zap.Error(err))
			return fail("", "failed to delete assignment")
		}
		if !deleted {
			s.logger.Debug("delete of absent assignment", zap.String("teacher_id", op.TeacherID), zap.Stringer("day", day))
		}
		wrote = deleted
		state.week[day] = allocation.Remove(state.week[day], op.TeacherID)

	case dto.ActionCreate:
		if holds && held == op.SlotID {
			break
		}
		if d := s.check(state, state.week, op); !d.OK {
			return fail(d.Reason, "%s", d.Message)
		}
		assignment := &models.TeacherSlotAssignment{TeacherID: op.TeacherID, SlotID: op.SlotID, DayOfWeek: day}
		if err := s.assignments.Create(ctx, assignment); err != nil {
			s.logger.Error("create slot assignment failed", zap.String("teacher_id", op.TeacherID), zap.Error(err))
			return fail("", "failed to create assignment")
		}
		state.week[day] = allocation.Apply(state.week[day], allocation.Candidate{TeacherID: op.TeacherID, SlotID: op.SlotID, Day: day})
		wrote = true

	case dto.ActionUpdate:
		if !holds {
			return fail("", "teacher %s has no assignment on %s to update", op.TeacherID, day)
		}
		if held == op.SlotID {
			break
		}
		without := state.week.Clone()
		without[day] = allocation.Remove(without[day], op.TeacherID)
		if d := s.check(state, without, op); !d.OK {
			return fail(d.Reason, "%s", d.Message)
		}
		existing, err := s.assignments.FindByTeacherDay(ctx, op.TeacherID, day)
		if err != nil {
			s.logger.Error("load slot assignment failed", zap.String("teacher_id", op.TeacherID), zap.Error(err))
			return fail("", "failed to load assignment")
		}
		if err := s.assignments.UpdateSlot(ctx, existing.ID, op.SlotID); err != nil {
			s.logger.Error("update slot assignment failed", zap.String("teacher_id", op.TeacherID), zap.Error(err))
			return fail("", "failed to update assignment")
		}
		state.week[day] = allocation.Apply(state.week[day], allocation.Candidate{TeacherID: op.TeacherID, SlotID: op.SlotID, Day: day})
		wrote = true

	default:
		return fail("", "unsupported action %q", op.Action)
	}

	res.Success = true
	return res, wrote
}

func (s *SlotService) check(state *batchState, week allocation.WeekState, op dto.BatchAssignment) allocation.Decision {
	d := allocation.CanAssign(allocation.Candidate{TeacherID: op.TeacherID, SlotID: op.SlotID, Day: op.DayOfWeek}, week, state.roster, state.policy)
	if !d.OK {
		s.metrics.RecordRuleRejection(string(d.Reason))
	}
	return d
}

// AssignmentStats aggregates assignments by slot type, by day and by the
// number of days each teacher is placed on.
func AssignmentStats(rows []models.TeacherSlotAssignmentDetail) *models.AssignmentStats {
	stats := &models.AssignmentStats{
		TotalAssignments:         len(rows),
		SlotCounts:               make(map[string]int, len(models.SlotTypes)),
		DayCounts:                make(map[string]int, models.DaysPerWeek),
		DaysAssignedDistribution: make(map[string]int),
	}
	for _, t := range models.SlotTypes {
		stats.SlotCounts[string(t)] = 0
	}
	for _, d := range models.Days() {
		stats.DayCounts[d.String()] = 0
	}

	days := make(map[string]map[models.DayOfWeek]struct{})
	for _, row := range rows {
		if row.SlotType != "" {
			stats.SlotCounts[string(row.SlotType)]++
		}
		stats.DayCounts[row.DayOfWeek.String()]++
		if days[row.TeacherID] == nil {
			days[row.TeacherID] = make(map[models.DayOfWeek]struct{})
		}
		days[row.TeacherID][row.DayOfWeek] = struct{}{}
	}
	for _, held := range days {
		stats.DaysAssignedDistribution[strconv.Itoa(len(held))]++
	}
	return stats
}
