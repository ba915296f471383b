package models

import "time"

// Section is a scheduled offering of a course on one weekday and period span.
type Section struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	FacultyID    string    `db:"faculty_id" json:"faculty_id"`
	Semester     string    `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartPeriod  int       `db:"start_period" json:"start_period"`
	EndPeriod    int       `db:"end_period" json:"end_period"`
	Room         string    `db:"room" json:"room"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	Active       bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail adds course, faculty and display fields for listings.
type SectionDetail struct {
	Section
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	Credits       int    `db:"credits" json:"credits"`
	FacultyName   string `db:"faculty_name" json:"faculty_name"`
	EnrolledCount int    `db:"enrolled_count" json:"enrolled_count"`
	DayName       string `db:"-" json:"day_name"`
	PeriodRange   string `db:"-" json:"period_range"`
	TimeRange     string `db:"-" json:"time_range"`
	Session       string `db:"-" json:"session"`
}

// SectionFilter describes query params for listing sections.
type SectionFilter struct {
	Semester     string
	AcademicYear string
	CourseID     string
	FacultyID    string
	Room         string
	DayOfWeek    int
	Active       *bool
	Page         int
	PageSize     int
}

// ConflictAxis names the resource two sections collide on.
type ConflictAxis string

const (
	ConflictAxisFaculty ConflictAxis = "FACULTY"
	ConflictAxisRoom    ConflictAxis = "ROOM"
)

// SectionConflict describes an existing section that collides with a candidate.
type SectionConflict struct {
	Axis        ConflictAxis `json:"axis"`
	SectionID   string       `json:"section_id"`
	CourseID    string       `json:"course_id"`
	FacultyID   string       `json:"faculty_id"`
	Room        string       `json:"room"`
	DayOfWeek   int          `json:"day_of_week"`
	DayName     string       `json:"day_name"`
	StartPeriod int          `json:"start_period"`
	EndPeriod   int          `json:"end_period"`
	TimeRange   string       `json:"time_range"`
	Message     string       `json:"message"`
}

// ScheduleConflictError is returned when a section collides with an existing one.
type ScheduleConflictError struct {
	FacultyConflict *SectionConflict `json:"faculty_conflict,omitempty"`
	RoomConflict    *SectionConflict `json:"room_conflict,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.FacultyConflict != nil && e.RoomConflict != nil:
		return e.FacultyConflict.Message + "; " + e.RoomConflict.Message
	case e.FacultyConflict != nil:
		return e.FacultyConflict.Message
	case e.RoomConflict != nil:
		return e.RoomConflict.Message
	}
	return "schedule conflict"
}

// DaySchedule groups a faculty's sections for one weekday.
type DaySchedule struct {
	DayOfWeek int             `json:"day_of_week"`
	DayName   string          `json:"day_name"`
	DayAbbr   string          `json:"day_abbr"`
	Classes   []SectionDetail `json:"classes"`
}

// WeeklySchedule is a faculty timetable for one semester.
type WeeklySchedule struct {
	FacultyID           string        `json:"faculty_id"`
	Semester            string        `json:"semester"`
	AcademicYear        string        `json:"academic_year"`
	Days                []DaySchedule `json:"days"`
	TotalCourses        int           `json:"total_courses"`
	TotalClassesPerWeek int           `json:"total_classes_per_week"`
}
