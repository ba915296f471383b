package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
)

const sectionColumns = `s.id, s.course_id, s.faculty_id, s.semester, s.academic_year, s.day_of_week, s.start_period, s.end_period, s.room, s.notes, s.is_active, s.created_at, s.updated_at`

const sectionDetailSelect = `SELECT ` + sectionColumns + `,
        COALESCE(c.course_code, '') AS course_code, COALESCE(c.course_name, '') AS course_name, COALESCE(c.credits, 0) AS credits,
        COALESCE(f.full_name, '') AS faculty_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.section_id = s.id AND e.status = 'Active') AS enrolled_count
        FROM sections s
        LEFT JOIN courses c ON c.id = s.course_id
        LEFT JOIN faculties f ON f.id = s.faculty_id`

// SectionRepository provides persistence for course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections with optional filtering and pagination.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("s.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.room) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.DayOfWeek != 0 {
		conditions = append(conditions, fmt.Sprintf("s.day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY s.day_of_week ASC, s.start_period ASC, s.room ASC LIMIT %d OFFSET %d", sectionDetailSelect, clause, size, offset)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM sections s" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID loads a section by id.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections s WHERE s.id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID loads a section with course and faculty context.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := sectionDetailSelect + ` WHERE s.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListConflictCandidates returns the active sections on the same day of the same
// enrollment period sharing either the faculty or the room.
func (r *SectionRepository) ListConflictCandidates(ctx context.Context, candidate models.Section) ([]models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections s
        WHERE s.semester = $1 AND s.academic_year = $2 AND s.day_of_week = $3 AND s.is_active = TRUE
        AND (s.faculty_id = $4 OR LOWER(s.room) = LOWER($5))
        ORDER BY s.start_period ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, candidate.Semester, candidate.AcademicYear, candidate.DayOfWeek, candidate.FacultyID, candidate.Room); err != nil {
		return nil, fmt.Errorf("list conflict candidates: %w", err)
	}
	return sections, nil
}

// ListByCourse returns the active sections of a course in an enrollment period.
func (r *SectionRepository) ListByCourse(ctx context.Context, courseID, semester, academicYear string) ([]models.SectionDetail, error) {
	query := sectionDetailSelect + ` WHERE s.course_id = $1 AND s.semester = $2 AND s.academic_year = $3 AND s.is_active = TRUE
        ORDER BY s.day_of_week ASC, s.start_period ASC`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, courseID, semester, academicYear); err != nil {
		return nil, fmt.Errorf("list course sections: %w", err)
	}
	return sections, nil
}

// ListTeachingForFaculty returns active sections of a faculty that have at least one active enrollment.
func (r *SectionRepository) ListTeachingForFaculty(ctx context.Context, facultyID, semester, academicYear string) ([]models.SectionDetail, error) {
	query := sectionDetailSelect + ` WHERE s.faculty_id = $1 AND s.semester = $2 AND s.academic_year = $3 AND s.is_active = TRUE
        AND EXISTS (SELECT 1 FROM enrollments e WHERE e.section_id = s.id AND e.status = 'Active')
        ORDER BY s.day_of_week ASC, s.start_period ASC`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, facultyID, semester, academicYear); err != nil {
		return nil, fmt.Errorf("list faculty sections: %w", err)
	}
	return sections, nil
}

// Create stores a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, course_id, faculty_id, semester, academic_year, day_of_week, start_period, end_period, room, notes, is_active, created_at, updated_at)
        VALUES (:id, :course_id, :faculty_id, :semester, :academic_year, :day_of_week, :start_period, :end_period, :room, :notes, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies a section record in place.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET course_id = :course_id, faculty_id = :faculty_id, semester = :semester, academic_year = :academic_year,
        day_of_week = :day_of_week, start_period = :start_period, end_period = :end_period, room = :room, notes = :notes,
        is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Deactivate marks a section inactive, removing it from conflict checks.
func (r *SectionRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sections SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate section: %w", err)
	}
	return nil
}

// Delete removes a section by id.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}
