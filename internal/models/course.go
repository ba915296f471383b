package models

// Course is a catalogue entry referenced by sections and enrollments.
type Course struct {
	ID         string `db:"id" json:"id"`
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Credits    int    `db:"credits" json:"credits"`
	Department string `db:"department" json:"department"`
	Active     bool   `db:"is_active" json:"is_active"`
}

// Faculty is a teaching staff record.
type Faculty struct {
	ID          string `db:"id" json:"id"`
	FacultyCode string `db:"faculty_code" json:"faculty_code"`
	FullName    string `db:"full_name" json:"full_name"`
	Email       string `db:"email" json:"email"`
	Department  string `db:"department" json:"department"`
	Active      bool   `db:"is_active" json:"is_active"`
}
