package models

// DeletionKind names a record type governed by the deletion policy.
type DeletionKind string

const (
	DeletionKindStudent DeletionKind = "students"
	DeletionKindFaculty DeletionKind = "faculties"
	DeletionKindCourse  DeletionKind = "courses"
	DeletionKindSection DeletionKind = "sections"
)

// DeletionMode is the outcome of the deletion precondition check.
type DeletionMode string

const (
	CanHardDelete  DeletionMode = "HARD_DELETE"
	MustSoftDelete DeletionMode = "SOFT_DELETE"
)

// DependentCounts holds the rows that reference a record.
type DependentCounts struct {
	Enrollments   int `db:"enrollments" json:"enrollments"`
	Sections      int `db:"sections" json:"sections"`
	CourseFaculty int `db:"course_faculty" json:"course_faculty"`
}

// DeletionDecision is computed before any mutation.
type DeletionDecision struct {
	Kind       DeletionKind    `json:"kind"`
	ID         string          `json:"id"`
	Mode       DeletionMode    `json:"mode"`
	Reason     string          `json:"reason,omitempty"`
	Dependents DependentCounts `json:"dependents"`
}
