package models

import "time"

// Department groups teachers under one head of department.
type Department struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"dept_name" json:"dept_name"`
	ContactInfo *string   `db:"contact_info" json:"contact_info,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
