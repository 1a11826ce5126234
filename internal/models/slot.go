package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlotType identifies one of the fixed daily teaching windows.
type SlotType string

const (
	SlotTypeA SlotType = "A"
	SlotTypeB SlotType = "B"
	SlotTypeC SlotType = "C"
)

// SlotTypes lists the slot types in display order.
var SlotTypes = []SlotType{SlotTypeA, SlotTypeB, SlotTypeC}

// Valid reports whether the slot type is one of the seeded windows.
func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeA, SlotTypeB, SlotTypeC:
		return true
	}
	return false
}

// Slot is a named daily time window teachers can be assigned to.
type Slot struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"slot_name" json:"slot_name"`
	Type      SlotType  `db:"slot_type" json:"slot_type"`
	StartTime string    `db:"slot_start_time" json:"slot_start_time"`
	EndTime   string    `db:"slot_end_time" json:"slot_end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TimeRange renders the slot window for display.
func (s Slot) TimeRange() string {
	return fmt.Sprintf("%s-%s", s.StartTime, s.EndTime)
}

// DefaultSlots returns the three slots seeded on first use.
func DefaultSlots() []Slot {
	return []Slot{
		{Name: "Slot A", Type: SlotTypeA, StartTime: "08:00", EndTime: "15:00"},
		{Name: "Slot B", Type: SlotTypeB, StartTime: "10:00", EndTime: "17:00"},
		{Name: "Slot C", Type: SlotTypeC, StartTime: "12:00", EndTime: "19:00"},
	}
}

// DayOfWeek is 0 (Monday) through 5 (Saturday). There are no Sunday slots.
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DaysPerWeek is the number of schedulable days.
const DaysPerWeek = 6

var dayLabels = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Valid reports whether d is a schedulable day.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Saturday
}

// String returns the display label of the day.
func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day %d", int(d))
	}
	return dayLabels[d]
}

// ParseDay accepts a day index ("0".."5") or a label such as "monday" or "Mon".
func ParseDay(raw string) (DayOfWeek, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		d := DayOfWeek(n)
		if !d.Valid() {
			return 0, fmt.Errorf("day %d out of range", n)
		}
		return d, nil
	}
	lower := strings.ToLower(raw)
	if len(lower) >= 3 {
		for i, label := range dayLabels {
			if strings.HasPrefix(strings.ToLower(label), lower) {
				return DayOfWeek(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown day %q", raw)
}

// Days returns every schedulable day in order.
func Days() []DayOfWeek {
	days := make([]DayOfWeek, 0, DaysPerWeek)
	for d := Monday; d <= Saturday; d++ {
		days = append(days, d)
	}
	return days
}

// TeacherSlotAssignment places a teacher in a slot on a day of the week.
type TeacherSlotAssignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SlotID    string    `db:"slot_id" json:"slot_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherSlotAssignmentDetail enriches an assignment with slot and teacher data.
type TeacherSlotAssignmentDetail struct {
	TeacherSlotAssignment
	DeptID      string   `db:"dept_id" json:"dept_id"`
	TeacherName string   `db:"teacher_name" json:"teacher_name"`
	SlotName    string   `db:"slot_name" json:"slot_name"`
	SlotType    SlotType `db:"slot_type" json:"slot_type"`
	DayName     string   `db:"-" json:"day_name"`
}

// TeacherSlotFilter narrows assignment listings. Nil and empty fields are ignored.
type TeacherSlotFilter struct {
	DayOfWeek *DayOfWeek
	TeacherID string
	DeptID    string
	SlotType  SlotType
}
