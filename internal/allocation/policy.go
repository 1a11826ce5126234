package allocation

import "github.com/noah-isme/dept-slot-api/internal/models"

// CapacityScope selects which headcount the 33% rule divides.
type CapacityScope string

const (
	// ScopeRoster divides the whole active roster.
	ScopeRoster CapacityScope = "roster"
	// ScopeDepartment divides the candidate's department and only counts
	// colleagues from that department against the cap.
	ScopeDepartment CapacityScope = "department"
)

// DefaultMaxSameSlotDays is the number of distinct days a teacher may hold the same slot.
const DefaultMaxSameSlotDays = 2

// Policy tunes the placement rules. The zero value of each optional rule disables it.
type Policy struct {
	Scope           CapacityScope
	MaxSameSlotDays int

	// WeeklyDayCap limits the number of distinct days a teacher is placed on.
	WeeklyDayCap int
	// ExclusiveDays may hold at most one placement per teacher between them.
	ExclusiveDays []models.DayOfWeek
	// EnforceDistribution requires a full five-day week to split slot types
	// as 2/2/1 in one of the accepted orders. Needs SlotTypes.
	EnforceDistribution bool
	// SlotTypes maps slot ids to their type.
	SlotTypes map[string]models.SlotType
}

// DefaultPolicy holds the three core rules only.
func DefaultPolicy() Policy {
	return Policy{Scope: ScopeRoster, MaxSameSlotDays: DefaultMaxSameSlotDays}
}

// WithSlots returns a copy of p that knows the slot types of slots.
func (p Policy) WithSlots(slots []models.Slot) Policy {
	types := make(map[string]models.SlotType, len(slots))
	for _, s := range slots {
		types[s.ID] = s.Type
	}
	p.SlotTypes = types
	return p
}

func (p Policy) maxSameSlotDays() int {
	if p.MaxSameSlotDays <= 0 {
		return DefaultMaxSameSlotDays
	}
	return p.MaxSameSlotDays
}

func (p Policy) exclusive(day models.DayOfWeek) bool {
	for _, d := range p.ExclusiveDays {
		if d == day {
			return true
		}
	}
	return false
}

// distribution is a slot type split accepted for a full week.
type distribution struct{ a, b, c int }

var fullWeekDistributions = []distribution{
	{a: 2, b: 2, c: 1},
	{a: 1, b: 2, c: 2},
	{a: 2, b: 1, c: 2},
}

const fullWeekPlacements = 5
