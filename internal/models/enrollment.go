package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "Active"
	EnrollmentStatusCompleted EnrollmentStatus = "Completed"
	EnrollmentStatusFailed    EnrollmentStatus = "Failed"
	EnrollmentStatusDropped   EnrollmentStatus = "Dropped"
	EnrollmentStatusRetaking  EnrollmentStatus = "Retaking"
)

// Enrollment binds a student to a course, and optionally a section, for one semester.
// OriginalEnrollmentID is a back-reference to the first attempt, resolved by lookup.
type Enrollment struct {
	ID                   string           `db:"id" json:"id"`
	StudentID            string           `db:"student_id" json:"student_id"`
	CourseID             string           `db:"course_id" json:"course_id"`
	SectionID            *string          `db:"section_id" json:"section_id,omitempty"`
	Semester             string           `db:"semester" json:"semester"`
	AcademicYear         string           `db:"academic_year" json:"academic_year"`
	EnrollmentDate       time.Time        `db:"enrollment_date" json:"enrollment_date"`
	Status               EnrollmentStatus `db:"status" json:"status"`
	MidtermScore         *float32         `db:"midterm_score" json:"midterm_score,omitempty"`
	FinalScore           *float32         `db:"final_score" json:"final_score,omitempty"`
	AverageScore         *float32         `db:"average_score" json:"average_score,omitempty"`
	LetterGrade          *string          `db:"letter_grade" json:"letter_grade,omitempty"`
	IsFailed             bool             `db:"is_failed" json:"is_failed"`
	IsRetaking           bool             `db:"is_retaking" json:"is_retaking"`
	OriginalEnrollmentID *string          `db:"original_enrollment_id" json:"original_enrollment_id,omitempty"`
	RetakeCount          int              `db:"retake_count" json:"retake_count"`
	AssignedBy           *string          `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedDate         *time.Time       `db:"assigned_date" json:"assigned_date,omitempty"`
	Notes                *string          `db:"notes" json:"notes,omitempty"`
}

// HasScores reports whether any score has been recorded.
func (e Enrollment) HasScores() bool {
	return e.MidtermScore != nil || e.FinalScore != nil || e.AverageScore != nil
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentCode string `db:"student_code" json:"student_code"`
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
	Credits     int    `db:"credits" json:"credits"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	Semester     string
	AcademicYear string
	CourseID     string
	SectionID    string
	StudentID    string
	Status       EnrollmentStatus
	Page         int
	PageSize     int
}

// DedupScope selects the composite key used to detect an existing enrollment.
type DedupScope int

const (
	// DedupByCourse matches (student, course, semester, year) regardless of section.
	DedupByCourse DedupScope = iota
	// DedupBySection matches (student, section, semester, year).
	DedupBySection
)

// String implements fmt.Stringer.
func (s DedupScope) String() string {
	if s == DedupBySection {
		return "section"
	}
	return "course"
}

// AssignmentResult reports the outcome of an assignment batch.
type AssignmentResult struct {
	AssignedCount int `json:"assigned_count"`
	SkippedCount  int `json:"skipped_count"`
	TotalMatched  int `json:"total_matched"`
}

// GradeEntry is one row of a grade submission.
type GradeEntry struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required"`
	MidtermScore *float32 `json:"midterm_score" validate:"omitempty,gte=0,lte=10"`
	FinalScore   *float32 `json:"final_score" validate:"omitempty,gte=0,lte=10"`
}

// GradeSubmissionResult summarises a grade batch.
type GradeSubmissionResult struct {
	UpdatedCount int `json:"updated_count"`
	FailedCount  int `json:"failed_count"`
}

// Transcript lists a student's enrollments with the running GPA.
type Transcript struct {
	StudentID   string             `json:"student_id"`
	Enrollments []EnrollmentDetail `json:"enrollments"`
	GPA         float32            `json:"gpa"`
	Graded      int                `json:"graded"`
	Failed      int                `json:"failed"`
}
