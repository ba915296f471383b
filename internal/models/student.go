package models

// Student is a descriptive learner record. Read-only from the enrollment core.
type Student struct {
	ID          string `db:"id" json:"id"`
	StudentCode string `db:"student_code" json:"student_code"`
	FullName    string `db:"full_name" json:"full_name"`
	Email       string `db:"email" json:"email"`
	Department  string `db:"department" json:"department"`
	ClassName   string `db:"class_name" json:"class_name"`
	Active      bool   `db:"is_active" json:"is_active"`
}

// StudentFilter selects students for bulk assignment.
type StudentFilter struct {
	Department string
	ClassName  string
	ActiveOnly bool
}
