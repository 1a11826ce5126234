package allocation

import (
	"sort"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Placement is a teacher seated in a slot on some day.
type Placement struct {
	TeacherID string `json:"teacher_id" yaml:"teacher_id"`
	SlotID    string `json:"slot_id" yaml:"slot_id"`
}

// Candidate is a placement proposed for a specific day.
type Candidate struct {
	TeacherID string
	SlotID    string
	Day       models.DayOfWeek
}

// Placement drops the day from the candidate.
func (c Candidate) Placement() Placement {
	return Placement{TeacherID: c.TeacherID, SlotID: c.SlotID}
}

// WeekState holds the placements of every known day.
type WeekState map[models.DayOfWeek][]Placement

// WeekFromAssignments groups persisted assignments by day.
func WeekFromAssignments(assignments []models.TeacherSlotAssignment) WeekState {
	week := make(WeekState)
	for _, a := range assignments {
		week[a.DayOfWeek] = append(week[a.DayOfWeek], Placement{TeacherID: a.TeacherID, SlotID: a.SlotID})
	}
	return week
}

// Clone returns a deep copy of the week.
func (w WeekState) Clone() WeekState {
	out := make(WeekState, len(w))
	for day, placements := range w {
		out[day] = ClonePlacements(placements)
	}
	return out
}

// SlotOf returns the slot the teacher holds on day, if any.
func (w WeekState) SlotOf(teacherID string, day models.DayOfWeek) (string, bool) {
	for _, p := range w[day] {
		if p.TeacherID == teacherID {
			return p.SlotID, true
		}
	}
	return "", false
}

// Occupancy counts placements in slotID on day accepted by include.
// A nil include counts every placement.
func (w WeekState) Occupancy(slotID string, day models.DayOfWeek, include func(teacherID string) bool) int {
	count := 0
	for _, p := range w[day] {
		if p.SlotID != slotID {
			continue
		}
		if include != nil && !include(p.TeacherID) {
			continue
		}
		count++
	}
	return count
}

// DaysHeld lists the days, other than except, on which the teacher holds any slot.
func (w WeekState) DaysHeld(teacherID string, except models.DayOfWeek) []models.DayOfWeek {
	var days []models.DayOfWeek
	for day := range w {
		if day == except {
			continue
		}
		if _, ok := w.SlotOf(teacherID, day); ok {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Apply returns the day's placements with any prior entry for the teacher
// replaced by the candidate. The input slice is not modified.
func Apply(day []Placement, c Candidate) []Placement {
	out := make([]Placement, 0, len(day)+1)
	for _, p := range day {
		if p.TeacherID == c.TeacherID {
			continue
		}
		out = append(out, p)
	}
	return append(out, c.Placement())
}

// Remove returns the day's placements without the teacher.
func Remove(day []Placement, teacherID string) []Placement {
	out := make([]Placement, 0, len(day))
	for _, p := range day {
		if p.TeacherID != teacherID {
			out = append(out, p)
		}
	}
	return out
}

// ClonePlacements copies a day's placements.
func ClonePlacements(day []Placement) []Placement {
	if day == nil {
		return nil
	}
	out := make([]Placement, len(day))
	copy(out, day)
	return out
}

// SamePlacements reports whether two days hold the same set of placements,
// ignoring order.
func SamePlacements(a, b []Placement) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[Placement]int, len(a))
	for _, p := range a {
		seen[p]++
	}
	for _, p := range b {
		if seen[p] == 0 {
			return false
		}
		seen[p]--
	}
	return true
}
