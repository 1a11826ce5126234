package models

import "time"

// Teacher represents a member of a department's teaching roster.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	DeptID    string    `db:"dept_id" json:"dept_id"`
	StaffCode string    `db:"staff_code" json:"staff_code"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	DeptID    string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
