package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/pkg/database"
)

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.section_id, e.semester, e.academic_year, e.enrollment_date, e.status,
        e.midterm_score, e.final_score, e.average_score, e.letter_grade, e.is_failed, e.is_retaking, e.original_enrollment_id,
        e.retake_count, e.assigned_by, e.assigned_date, e.notes`

const enrollmentDetailFrom = `FROM enrollments e
LEFT JOIN students st ON st.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`

const enrollmentDetailSelect = `SELECT ` + enrollmentColumns + `,
        COALESCE(st.student_code, '') AS student_code, COALESCE(st.full_name, '') AS student_name,
        COALESCE(c.course_code, '') AS course_code, COALESCE(c.course_name, '') AS course_name, COALESCE(c.credits, 0) AS credits
        ` + enrollmentDetailFrom

const (
	existsByCourseQuery   = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND semester = $3 AND academic_year = $4 AND status <> 'Dropped')`
	existsBySectionQuery  = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND semester = $3 AND academic_year = $4 AND status <> 'Dropped')`
	insertEnrollmentQuery = `INSERT INTO enrollments (id, student_id, course_id, section_id, semester, academic_year, enrollment_date, status,
        midterm_score, final_score, average_score, letter_grade, is_failed, is_retaking, original_enrollment_id, retake_count,
        assigned_by, assigned_date, notes)
        VALUES (:id, :student_id, :course_id, :section_id, :semester, :academic_year, :enrollment_date, :status,
        :midterm_score, :final_score, :average_score, :letter_grade, :is_failed, :is_retaking, :original_enrollment_id, :retake_count,
        :assigned_by, :assigned_date, :notes)
        ON CONFLICT DO NOTHING`
	updateGradesQuery = `UPDATE enrollments SET midterm_score = $2, final_score = $3, average_score = $4, letter_grade = $5,
        is_failed = $6, status = $7 WHERE id = $1`
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria, newest assignment first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("e.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("%s%s ORDER BY e.assigned_date DESC NULLS LAST, e.enrollment_date DESC LIMIT %d OFFSET %d", enrollmentDetailSelect, clause, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments e" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID loads an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments e WHERE e.id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns every enrollment of a student, oldest period first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.student_id = $1 ORDER BY e.academic_year ASC, e.semester ASC, c.course_code ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListBySection returns the roster of a section ordered by student code.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.section_id = $1 ORDER BY st.student_code ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return enrollments, nil
}

// Exists reports whether a non-dropped enrollment matches the dedup key of the given scope.
func (r *EnrollmentRepository) Exists(ctx context.Context, e models.Enrollment, scope models.DedupScope) (bool, error) {
	return enrollmentExists(ctx, r.db, e, scope)
}

// AssignBatch inserts the enrollments in a single transaction. Rows already present under the
// dedup scope, or rejected by the unique index, are counted as skipped. Any other failure rolls
// back the whole batch.
func (r *EnrollmentRepository) AssignBatch(ctx context.Context, enrollments []models.Enrollment, scope models.DedupScope) (assigned, skipped int, err error) {
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		assigned, skipped = 0, 0
		for i := range enrollments {
			e := &enrollments[i]
			exists, err := enrollmentExists(ctx, tx, *e, scope)
			if err != nil {
				return err
			}
			if exists {
				skipped++
				continue
			}
			inserted, err := insertEnrollment(ctx, tx, e)
			if err != nil {
				return err
			}
			if inserted {
				assigned++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return assigned, skipped, nil
}

// Create inserts a single enrollment. It returns false when the unique index already holds the key.
func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) (bool, error) {
	return insertEnrollment(ctx, r.db, e)
}

// DeleteIfUnscored removes the enrollment only while it carries no score. The returned flag is
// false when the row was left untouched.
func (r *EnrollmentRepository) DeleteIfUnscored(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE id = $1 AND midterm_score IS NULL AND final_score IS NULL AND average_score IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListGradable returns the requested enrollments of a course that are bound to an active section
// of that course taught by the faculty.
func (r *EnrollmentRepository) ListGradable(ctx context.Context, courseID, facultyID string, ids []string) ([]models.Enrollment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+enrollmentColumns+` FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        WHERE e.course_id = ? AND s.course_id = e.course_id AND s.faculty_id = ? AND s.is_active
          AND e.id IN (?)`, courseID, facultyID, ids)
	if err != nil {
		return nil, fmt.Errorf("build gradable query: %w", err)
	}
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list gradable enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateGrades persists scores and derived fields for all enrollments in one transaction.
func (r *EnrollmentRepository) UpdateGrades(ctx context.Context, enrollments []models.Enrollment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, e := range enrollments {
			if _, err := tx.ExecContext(ctx, updateGradesQuery, e.ID, e.MidtermScore, e.FinalScore, e.AverageScore, e.LetterGrade, e.IsFailed, e.Status); err != nil {
				return fmt.Errorf("update grades for %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

type queryerContext interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func enrollmentExists(ctx context.Context, q queryerContext, e models.Enrollment, scope models.DedupScope) (bool, error) {
	var exists bool
	var err error
	switch scope {
	case models.DedupBySection:
		if e.SectionID == nil {
			return false, nil
		}
		err = q.GetContext(ctx, &exists, existsBySectionQuery, e.StudentID, *e.SectionID, e.Semester, e.AcademicYear)
	default:
		err = q.GetContext(ctx, &exists, existsByCourseQuery, e.StudentID, e.CourseID, e.Semester, e.AcademicYear)
	}
	if err != nil {
		return false, fmt.Errorf("check enrollment by %s: %w", scope, err)
	}
	return exists, nil
}

func insertEnrollment(ctx context.Context, q queryerContext, e *models.Enrollment) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnrollmentDate.IsZero() {
		e.EnrollmentDate = time.Now().UTC()
	}
	res, err := q.NamedExecContext(ctx, insertEnrollmentQuery, e)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert enrollment for student %s: %w", e.StudentID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert enrollment rows affected: %w", err)
	}
	return affected > 0, nil
}
