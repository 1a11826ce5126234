package models

import "time"

// ComplianceStatus is the verdict of a department summary.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "Compliant"
	ComplianceNonCompliant ComplianceStatus = "Non-Compliant"
)

// AssignmentStats aggregates a set of assignments for include_stats responses.
type AssignmentStats struct {
	TotalAssignments         int            `json:"total_assignments"`
	SlotCounts               map[string]int `json:"slot_counts"`
	DayCounts                map[string]int `json:"day_counts"`
	DaysAssignedDistribution map[string]int `json:"days_assigned_distribution"`
}

// SummaryTeacher is a roster entry listed inside a summary cell.
type SummaryTeacher struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	StaffCode string `json:"staff_code"`
}

// SlotDaySummary counts the teachers of one slot on one day.
type SlotDaySummary struct {
	Count    int              `json:"count"`
	Teachers []SummaryTeacher `json:"teachers"`
}

// SlotTypeSummary aggregates one slot type across the week.
type SlotTypeSummary struct {
	Name         string                    `json:"name"`
	TeacherCount int                       `json:"teacher_count"`
	Percentage   int                       `json:"percentage"`
	Days         map[string]SlotDaySummary `json:"days"`
}

// Compliance records the verdict and the rule breaches behind it.
type Compliance struct {
	Status ComplianceStatus `json:"status"`
	Issues []string         `json:"issues"`
}

// DepartmentSummary reports slot coverage for one department.
type DepartmentSummary struct {
	DeptID                   string                     `json:"dept_id"`
	DeptName                 string                     `json:"dept_name"`
	TotalTeachers            int                        `json:"total_teachers"`
	TeachersWithAssignments  int                        `json:"teachers_with_assignments"`
	MaxTeachersPerSlot       int                        `json:"max_teachers_per_slot"`
	SlotDistribution         map[string]SlotTypeSummary `json:"slot_distribution"`
	DayDistribution          map[string]int             `json:"day_distribution"`
	DaysAssignedDistribution map[string]int             `json:"days_assigned_distribution"`
	Compliance               Compliance                 `json:"compliance"`
	GeneratedAt              time.Time                  `json:"generated_at"`
}

// ExportFormat selects the rendering of an exported summary.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)
