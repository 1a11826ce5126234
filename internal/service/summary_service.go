package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/models"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// SummaryService builds department slot summaries and keeps them cached.
type SummaryService struct {
	departments departmentRepository
	teachers    rosterRepository
	assignments teacherSlotRepository
	slots       slotRepository
	policy      allocation.Policy
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSummaryService builds the service. cache and metrics may be nil.
func NewSummaryService(departments departmentRepository, teachers rosterRepository, assignments teacherSlotRepository, slots slotRepository, policy allocation.Policy, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		departments: departments,
		teachers:    teachers,
		assignments: assignments,
		slots:       slots,
		policy:      policy,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// DepartmentSummary returns the summary of a department, or of every active
// teacher when deptID is empty. The boolean reports a cache hit.
func (s *SummaryService) DepartmentSummary(ctx context.Context, deptID string) (*models.DepartmentSummary, bool, error) {
	key := SummaryKey(deptID)
	var cached models.DepartmentSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	summary, err := s.Refresh(ctx, deptID)
	if err != nil {
		return nil, false, err
	}
	return summary, false, nil
}

// Refresh rebuilds a summary from the database and stores it in the cache.
func (s *SummaryService) Refresh(ctx context.Context, deptID string) (*models.DepartmentSummary, error) {
	summary, err := s.build(ctx, deptID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, SummaryKey(deptID), summary, 0)
	return summary, nil
}

func (s *SummaryService) build(ctx context.Context, deptID string) (*models.DepartmentSummary, error) {
	deptName := "All Departments"
	if deptID != "" {
		dept, err := s.departments.FindByID(ctx, deptID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		deptName = dept.Name
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveDBQuery("department_summary", time.Since(start))
	}()

	active := true
	teachers, err := s.teachers.Roster(ctx, models.TeacherFilter{DeptID: deptID, Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}
	rows, err := s.assignments.List(ctx, models.TeacherSlotFilter{DeptID: deptID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	input := SummaryInput{
		DeptID:      deptID,
		DeptName:    deptName,
		Teachers:    teachers,
		Slots:       slots,
		Assignments: rows,
		Policy:      s.policy,
		Now:         s.now().UTC(),
	}
	if deptID != "" && s.policy.Scope != allocation.ScopeDepartment {
		if input.ActiveRoster, err = s.teachers.Roster(ctx, models.TeacherFilter{Active: &active}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active roster")
		}
		if input.Occupied, err = s.assignments.Week(ctx); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
	}
	return Summarize(input), nil
}

// SummaryInput is everything a summary is computed from.
type SummaryInput struct {
	DeptID      string
	DeptName    string
	Teachers    []models.Teacher
	Slots       []models.Slot
	Assignments []models.TeacherSlotAssignmentDetail
	Policy      allocation.Policy
	Now         time.Time
	// ActiveRoster is the whole active roster capacity is judged against.
	// Nil means Teachers.
	ActiveRoster []models.Teacher
	// Occupied holds every department's placements for the capacity check
	// under roster scope. Nil means Assignments.
	Occupied []models.TeacherSlotAssignment
}

type slotDay struct {
	slotID string
	day    models.DayOfWeek
}

// Summarize computes a department summary. Assignments of teachers missing
// from Teachers are not listed. Capacity is judged against ActiveRoster and
// Occupied when they are given.
func Summarize(in SummaryInput) *models.DepartmentSummary {
	roster := make(map[string]models.Teacher, len(in.Teachers))
	for _, t := range in.Teachers {
		if t.Active {
			roster[t.ID] = t
		}
	}
	total := len(roster)

	capacityRoster := allocation.NewRoster(in.Teachers)
	if in.ActiveRoster != nil {
		capacityRoster = allocation.NewRoster(in.ActiveRoster)
	}
	maxPerSlot := allocation.Capacity(capacityRoster.Size)
	if in.Policy.Scope == allocation.ScopeDepartment {
		maxPerSlot = allocation.Capacity(total)
	}

	summary := &models.DepartmentSummary{
		DeptID:                   in.DeptID,
		DeptName:                 in.DeptName,
		TotalTeachers:            total,
		MaxTeachersPerSlot:       maxPerSlot,
		SlotDistribution:         make(map[string]models.SlotTypeSummary, len(in.Slots)),
		DayDistribution:          make(map[string]int, models.DaysPerWeek),
		DaysAssignedDistribution: make(map[string]int),
		GeneratedAt:              in.Now,
	}

	slotByID := make(map[string]models.Slot, len(in.Slots))
	for _, slot := range in.Slots {
		slotByID[slot.ID] = slot
		days := make(map[string]models.SlotDaySummary, models.DaysPerWeek)
		for _, d := range models.Days() {
			days[d.String()] = models.SlotDaySummary{Teachers: []models.SummaryTeacher{}}
		}
		summary.SlotDistribution[string(slot.Type)] = models.SlotTypeSummary{Name: slot.Name, Days: days}
	}
	for _, d := range models.Days() {
		summary.DayDistribution[d.String()] = 0
	}

	var kept []models.TeacherSlotAssignment
	held := make(map[slotDay]bool)
	daysHeld := make(map[string]map[models.DayOfWeek]struct{})
	typeHolders := make(map[models.SlotType]map[string]struct{})
	for _, row := range in.Assignments {
		teacher, ok := roster[row.TeacherID]
		if !ok {
			continue
		}
		slot, ok := slotByID[row.SlotID]
		if !ok {
			continue
		}
		kept = append(kept, row.TeacherSlotAssignment)
		held[slotDay{slotID: row.SlotID, day: row.DayOfWeek}] = true
		summary.DayDistribution[row.DayOfWeek.String()]++

		if daysHeld[row.TeacherID] == nil {
			daysHeld[row.TeacherID] = make(map[models.DayOfWeek]struct{})
		}
		daysHeld[row.TeacherID][row.DayOfWeek] = struct{}{}
		if typeHolders[slot.Type] == nil {
			typeHolders[slot.Type] = make(map[string]struct{})
		}
		typeHolders[slot.Type][row.TeacherID] = struct{}{}

		typeSummary := summary.SlotDistribution[string(slot.Type)]
		cell := typeSummary.Days[row.DayOfWeek.String()]
		cell.Count++
		cell.Teachers = append(cell.Teachers, models.SummaryTeacher{ID: teacher.ID, FullName: teacher.FullName, StaffCode: teacher.StaffCode})
		typeSummary.Days[row.DayOfWeek.String()] = cell
		summary.SlotDistribution[string(slot.Type)] = typeSummary
	}

	for slotType, typeSummary := range summary.SlotDistribution {
		typeSummary.TeacherCount = len(typeHolders[models.SlotType(slotType)])
		if total > 0 {
			typeSummary.Percentage = typeSummary.TeacherCount * 100 / total
		}
		summary.SlotDistribution[slotType] = typeSummary
	}

	summary.TeachersWithAssignments = len(daysHeld)
	for id := range roster {
		summary.DaysAssignedDistribution[strconv.Itoa(len(daysHeld[id]))]++
	}

	audited := kept
	if in.Occupied != nil && in.Policy.Scope != allocation.ScopeDepartment {
		audited = in.Occupied
	}
	violations := allocation.Audit(allocation.WeekFromAssignments(audited), capacityRoster, in.Policy)
	issues := make([]string, 0, len(violations))
	for _, v := range violations {
		if v.TeacherID != "" {
			if _, ok := roster[v.TeacherID]; !ok {
				continue
			}
		}
		if v.Reason == allocation.ReasonCapacity && !held[slotDay{slotID: v.SlotID, day: v.Day}] {
			continue
		}
		issues = append(issues, describeViolation(v, roster, slotByID))
	}
	sort.Strings(issues)
	summary.Compliance = models.Compliance{Status: models.ComplianceCompliant, Issues: issues}
	if len(issues) > 0 {
		summary.Compliance.Status = models.ComplianceNonCompliant
	}
	return summary
}

func describeViolation(v allocation.Violation, roster map[string]models.Teacher, slots map[string]models.Slot) string {
	teacher := v.TeacherID
	if t, ok := roster[v.TeacherID]; ok {
		teacher = t.FullName
	}
	slot := v.SlotID
	if sl, ok := slots[v.SlotID]; ok {
		slot = sl.Name
	}
	switch v.Reason {
	case allocation.ReasonCapacity:
		return fmt.Sprintf("%s on %s is over capacity", slot, v.Day)
	case allocation.ReasonRepeatSlot:
		return fmt.Sprintf("%s holds %s on too many days", teacher, slot)
	case allocation.ReasonSameDay:
		return fmt.Sprintf("%s holds more than one slot on %s", teacher, v.Day)
	}
	return v.Message
}
