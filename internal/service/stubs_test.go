package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/dept-slot-api/internal/models"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
)

// memoryStore backs every repository interface with in-memory maps.
type memoryStore struct {
	mu          sync.Mutex
	slots       []models.Slot
	teachers    []models.Teacher
	departments []models.Department
	assignments []models.TeacherSlotAssignment
	nextID      int
	createErr   error
	listCalls   int
}

func newMemoryStore(teachers int) *memoryStore {
	s := &memoryStore{
		slots: []models.Slot{
			{ID: "slot-a", Name: "Slot A", Type: models.SlotTypeA, StartTime: "08:00", EndTime: "15:00"},
			{ID: "slot-b", Name: "Slot B", Type: models.SlotTypeB, StartTime: "10:00", EndTime: "17:00"},
			{ID: "slot-c", Name: "Slot C", Type: models.SlotTypeC, StartTime: "12:00", EndTime: "19:00"},
		},
		departments: []models.Department{{ID: "dept-1", Name: "Computer Science"}},
	}
	for i := 0; i < teachers; i++ {
		id := string(rune('a'+i)) + "-teacher"
		s.teachers = append(s.teachers, models.Teacher{ID: id, DeptID: "dept-1", StaffCode: "T" + id[:1], FullName: "Teacher " + id[:1], Active: true})
	}
	return s
}

func (s *memoryStore) seed(teacherID, slotID string, day models.DayOfWeek) {
	s.nextID++
	s.assignments = append(s.assignments, models.TeacherSlotAssignment{
		ID: "seed-" + string(rune('0'+s.nextID)), TeacherID: teacherID, SlotID: slotID, DayOfWeek: day,
	})
}

// slotRepository

func (s *memoryStore) List(ctx context.Context) ([]models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Slot, len(s.slots))
	copy(out, s.slots)
	return out, nil
}

func (s *memoryStore) CreateMissing(ctx context.Context, slots []models.Slot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for _, slot := range slots {
		exists := false
		for _, existing := range s.slots {
			if existing.Type == slot.Type {
				exists = true
			}
		}
		if !exists {
			slot.ID = "slot-" + string(slot.Type)
			s.slots = append(s.slots, slot)
			created++
		}
	}
	return created, nil
}


// teacherSlotRepository

type assignmentStore struct{ *memoryStore }

func (s assignmentStore) List(ctx context.Context, filter models.TeacherSlotFilter) ([]models.TeacherSlotAssignmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	var out []models.TeacherSlotAssignmentDetail
	for _, a := range s.assignments {
		teacher := s.teacher(a.TeacherID)
		slot := s.slot(a.SlotID)
		if filter.DayOfWeek != nil && a.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.DeptID != "" && teacher.DeptID != filter.DeptID {
			continue
		}
		if filter.SlotType != "" && slot.Type != filter.SlotType {
			continue
		}
		out = append(out, models.TeacherSlotAssignmentDetail{
			TeacherSlotAssignment: a,
			DeptID:                teacher.DeptID,
			TeacherName:           teacher.FullName,
			SlotName:              slot.Name,
			SlotType:              slot.Type,
			DayName:               a.DayOfWeek.String(),
		})
	}
	return out, nil
}

func (s assignmentStore) Week(ctx context.Context) ([]models.TeacherSlotAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TeacherSlotAssignment, len(s.assignments))
	copy(out, s.assignments)
	return out, nil
}

func (s assignmentStore) FindByTeacherDay(ctx context.Context, teacherID string, day models.DayOfWeek) (*models.TeacherSlotAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.TeacherID == teacherID && a.DayOfWeek == day {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s assignmentStore) Create(ctx context.Context, assignment *models.TeacherSlotAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	assignment.ID = "new-" + string(rune('0'+s.nextID))
	s.assignments = append(s.assignments, *assignment)
	return nil
}

func (s assignmentStore) UpdateSlot(ctx context.Context, id, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			s.assignments[i].SlotID = slotID
		}
	}
	return nil
}

func (s assignmentStore) Delete(ctx context.Context, teacherID string, day models.DayOfWeek) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.assignments {
		if a.TeacherID == teacherID && a.DayOfWeek == day {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// rosterRepository

type rosterStore struct{ *memoryStore }

func (s rosterStore) Roster(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Teacher
	for _, t := range s.teachers {
		if filter.DeptID != "" && t.DeptID != filter.DeptID {
			continue
		}
		if filter.Active != nil && t.Active != *filter.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s rosterStore) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	all, _ := s.Roster(ctx, filter)
	start := (filter.Page - 1) * filter.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (s rosterStore) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teachers {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

// departmentRepository

type departmentStore struct{ *memoryStore }

func (s departmentStore) List(ctx context.Context) ([]models.Department, error) {
	return s.departments, nil
}

func (s departmentStore) FindByID(ctx context.Context, id string) (*models.Department, error) {
	for _, d := range s.departments {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryStore) teacher(id string) models.Teacher {
	for _, t := range s.teachers {
		if t.ID == id {
			return t
		}
	}
	return models.Teacher{ID: id}
}

func (s *memoryStore) slot(id string) models.Slot {
	for _, sl := range s.slots {
		if sl.ID == id {
			return sl
		}
	}
	return models.Slot{ID: id}
}

// cacheRepoStub is an in-memory CacheRepository.
type cacheRepoStub struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return nil
}
