package allocation

import (
	"fmt"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

// Reason names the rule a placement broke.
type Reason string

const (
	ReasonSameDay      Reason = "SAME_DAY_CONFLICT"
	ReasonRepeatSlot   Reason = "REPEAT_SLOT_CAP"
	ReasonCapacity     Reason = "CAPACITY_CEILING"
	ReasonNoCapacity   Reason = "NO_CAPACITY"
	ReasonWeeklyDayCap Reason = "WEEKLY_DAY_CAP"
	ReasonExclusiveDay Reason = "EXCLUSIVE_DAY"
	ReasonDistribution Reason = "SLOT_DISTRIBUTION"
	ReasonInvalidDay   Reason = "INVALID_DAY"
	ReasonUnknown      Reason = "UNKNOWN_TEACHER"
)

// Decision is the outcome of CanAssign.
type Decision struct {
	OK      bool   `json:"ok"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Err returns nil for accepted placements and a *RuleError otherwise.
func (d Decision) Err() error {
	if d.OK {
		return nil
	}
	return &RuleError{Reason: d.Reason, Message: d.Message}
}

// RuleError carries a rejected Decision through error returns.
type RuleError struct {
	Reason  Reason
	Message string
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

var accepted = Decision{OK: true}

func reject(reason Reason, format string, args ...interface{}) Decision {
	return Decision{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// CanAssign checks a candidate placement against the week, short-circuiting
// on the first broken rule. An empty roster has no capacity at all; otherwise
// the order is same-day conflict, repeat-slot cap, capacity ceiling, then the
// optional policy rules.
func CanAssign(c Candidate, week WeekState, roster Roster, p Policy) Decision {
	if !c.Day.Valid() {
		return reject(ReasonInvalidDay, "day %d is not schedulable", int(c.Day))
	}
	if roster.Size <= 0 {
		return reject(ReasonNoCapacity, "no capacity: the roster is empty")
	}
	if !roster.Contains(c.TeacherID) {
		return reject(ReasonUnknown, "teacher %s is not on the active roster", c.TeacherID)
	}

	if _, held := week.SlotOf(c.TeacherID, c.Day); held {
		return reject(ReasonSameDay, "teacher %s is already assigned to a slot on %s", c.TeacherID, c.Day)
	}

	repeats := 0
	for _, day := range week.DaysHeld(c.TeacherID, c.Day) {
		if slot, _ := week.SlotOf(c.TeacherID, day); slot == c.SlotID {
			repeats++
		}
	}
	if maxDays := p.maxSameSlotDays(); repeats >= maxDays {
		return reject(ReasonRepeatSlot, "teacher %s already holds this slot on %d days (max %d)", c.TeacherID, repeats, maxDays)
	}

	size, include := capacityBasis(c.TeacherID, roster, p)
	limit := Capacity(size)
	if limit == 0 {
		return reject(ReasonNoCapacity, "no capacity: the department has no active teachers")
	}
	if occupied := week.Occupancy(c.SlotID, c.Day, include); occupied >= limit {
		return reject(ReasonCapacity, "slot is full on %s (%d of %d seats)", c.Day, occupied, limit)
	}

	if p.WeeklyDayCap > 0 {
		if held := len(week.DaysHeld(c.TeacherID, c.Day)); held >= p.WeeklyDayCap {
			return reject(ReasonWeeklyDayCap, "teacher %s already has assignments on %d days", c.TeacherID, held)
		}
	}

	if p.exclusive(c.Day) {
		for _, day := range week.DaysHeld(c.TeacherID, c.Day) {
			if p.exclusive(day) {
				return reject(ReasonExclusiveDay, "teacher %s already has an assignment on %s; only one of these days may be chosen", c.TeacherID, day)
			}
		}
	}

	if p.EnforceDistribution {
		if d := checkDistribution(c, week, p); !d.OK {
			return d
		}
	}

	return accepted
}

func capacityBasis(teacherID string, roster Roster, p Policy) (int, func(string) bool) {
	if p.Scope != ScopeDepartment {
		return roster.Size, nil
	}
	dept, ok := roster.Dept(teacherID)
	if !ok {
		return roster.Size, nil
	}
	return roster.DeptSize(dept), func(other string) bool {
		d, ok := roster.Dept(other)
		return ok && d == dept
	}
}

func checkDistribution(c Candidate, week WeekState, p Policy) Decision {
	newType, ok := p.SlotTypes[c.SlotID]
	if !ok {
		return accepted
	}
	counts := map[models.SlotType]int{newType: 1}
	for _, day := range week.DaysHeld(c.TeacherID, c.Day) {
		slot, _ := week.SlotOf(c.TeacherID, day)
		if t, ok := p.SlotTypes[slot]; ok {
			counts[t]++
		}
	}
	total := counts[models.SlotTypeA] + counts[models.SlotTypeB] + counts[models.SlotTypeC]
	if total != fullWeekPlacements {
		return accepted
	}
	got := distribution{a: counts[models.SlotTypeA], b: counts[models.SlotTypeB], c: counts[models.SlotTypeC]}
	for _, want := range fullWeekDistributions {
		if got == want {
			return accepted
		}
	}
	return reject(ReasonDistribution, "invalid slot distribution A:%d B:%d C:%d; valid are A-2/B-2/C-1, A-1/B-2/C-2, A-2/B-1/C-2", got.a, got.b, got.c)
}
