package allocation

import (
	"fmt"
	"sort"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Violation is a rule breach found in an already-built week.
type Violation struct {
	Reason    Reason           `json:"reason"`
	Day       models.DayOfWeek `json:"day_of_week"`
	TeacherID string           `json:"teacher_id,omitempty"`
	SlotID    string           `json:"slot_id,omitempty"`
	Message   string           `json:"message"`
}

// Audit re-checks the three core invariants over a whole week. Unlike
// CanAssign it reports every breach rather than the first one.
func Audit(week WeekState, roster Roster, p Policy) []Violation {
	var out []Violation
	days := make([]models.DayOfWeek, 0, len(week))
	for day := range week {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	sameSlot := make(map[Placement]int)
	for _, day := range days {
		seen := make(map[string]bool)
		occupancy := make(map[string][]string)
		for _, pl := range week[day] {
			if seen[pl.TeacherID] {
				out = append(out, Violation{
					Reason:    ReasonSameDay,
					Day:       day,
					TeacherID: pl.TeacherID,
					Message:   fmt.Sprintf("teacher %s holds more than one slot on %s", pl.TeacherID, day),
				})
				continue
			}
			seen[pl.TeacherID] = true
			sameSlot[pl]++
			occupancy[pl.SlotID] = append(occupancy[pl.SlotID], pl.TeacherID)
		}
		out = append(out, auditCapacity(day, occupancy, roster, p)...)
	}

	keys := make([]Placement, 0, len(sameSlot))
	for k := range sameSlot {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TeacherID != keys[j].TeacherID {
			return keys[i].TeacherID < keys[j].TeacherID
		}
		return keys[i].SlotID < keys[j].SlotID
	})
	for _, k := range keys {
		if n := sameSlot[k]; n > p.maxSameSlotDays() {
			out = append(out, Violation{
				Reason:    ReasonRepeatSlot,
				TeacherID: k.TeacherID,
				SlotID:    k.SlotID,
				Message:   fmt.Sprintf("teacher %s holds the same slot on %d days (max %d)", k.TeacherID, n, p.maxSameSlotDays()),
			})
		}
	}
	return out
}

func auditCapacity(day models.DayOfWeek, occupancy map[string][]string, roster Roster, p Policy) []Violation {
	var out []Violation
	slots := make([]string, 0, len(occupancy))
	for slot := range occupancy {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		teachers := occupancy[slot]
		if p.Scope == ScopeDepartment {
			byDept := make(map[string]int)
			for _, t := range teachers {
				if dept, ok := roster.Dept(t); ok {
					byDept[dept]++
				}
			}
			depts := make([]string, 0, len(byDept))
			for d := range byDept {
				depts = append(depts, d)
			}
			sort.Strings(depts)
			for _, dept := range depts {
				if limit := Capacity(roster.DeptSize(dept)); byDept[dept] > limit {
					out = append(out, capacityViolation(day, slot, byDept[dept], limit))
				}
			}
			continue
		}
		if limit := Capacity(roster.Size); len(teachers) > limit {
			out = append(out, capacityViolation(day, slot, len(teachers), limit))
		}
	}
	return out
}

func capacityViolation(day models.DayOfWeek, slot string, count, limit int) Violation {
	return Violation{
		Reason:  ReasonCapacity,
		Day:     day,
		SlotID:  slot,
		Message: fmt.Sprintf("slot %s holds %d teachers on %s (max %d)", slot, count, day, limit),
	}
}
