package allocation

import "github.com/noah-isme/dept-slot-api/internal/models"

// Roster describes the active teaching workforce capacity is computed from.
type Roster struct {
	Size   int
	deptOf map[string]string
}

// RosterOfSize builds a roster that only knows its headcount.
func RosterOfSize(n int) Roster {
	return Roster{Size: n}
}

// NewRoster builds a roster from active teachers, remembering departments.
func NewRoster(teachers []models.Teacher) Roster {
	r := Roster{deptOf: make(map[string]string, len(teachers))}
	for _, t := range teachers {
		if !t.Active {
			continue
		}
		r.deptOf[t.ID] = t.DeptID
		r.Size++
	}
	return r
}

// Dept returns the department of a teacher on the roster.
func (r Roster) Dept(teacherID string) (string, bool) {
	dept, ok := r.deptOf[teacherID]
	return dept, ok
}

// DeptSize counts roster members of a department.
func (r Roster) DeptSize(deptID string) int {
	n := 0
	for _, d := range r.deptOf {
		if d == deptID {
			n++
		}
	}
	return n
}

// Contains reports whether the teacher is on the roster. A size-only roster
// accepts every teacher.
func (r Roster) Contains(teacherID string) bool {
	if r.deptOf == nil {
		return true
	}
	_, ok := r.deptOf[teacherID]
	return ok
}
