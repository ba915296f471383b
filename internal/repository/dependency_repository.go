package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
)

// DependencyRepository counts rows that reference a record.
type DependencyRepository struct {
	db *sqlx.DB
}

// NewDependencyRepository constructs a DependencyRepository.
func NewDependencyRepository(db *sqlx.DB) *DependencyRepository {
	return &DependencyRepository{db: db}
}

var dependencyQueries = map[models.DeletionKind]string{
	models.DeletionKindStudent: `SELECT
        (SELECT COUNT(*) FROM enrollments WHERE student_id = $1) AS enrollments,
        0 AS sections,
        0 AS course_faculty`,
	models.DeletionKindFaculty: `SELECT
        0 AS enrollments,
        (SELECT COUNT(*) FROM sections WHERE faculty_id = $1) AS sections,
        (SELECT COUNT(*) FROM course_faculty WHERE faculty_id = $1) AS course_faculty`,
	models.DeletionKindCourse: `SELECT
        (SELECT COUNT(*) FROM enrollments WHERE course_id = $1) AS enrollments,
        (SELECT COUNT(*) FROM sections WHERE course_id = $1) AS sections,
        (SELECT COUNT(*) FROM course_faculty WHERE course_id = $1) AS course_faculty`,
	models.DeletionKindSection: `SELECT
        (SELECT COUNT(*) FROM enrollments WHERE section_id = $1) AS enrollments,
        0 AS sections,
        0 AS course_faculty`,
}

var existenceQueries = map[models.DeletionKind]string{
	models.DeletionKindStudent: `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`,
	models.DeletionKindFaculty: `SELECT EXISTS (SELECT 1 FROM faculties WHERE id = $1)`,
	models.DeletionKindCourse:  `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`,
	models.DeletionKindSection: `SELECT EXISTS (SELECT 1 FROM sections WHERE id = $1)`,
}

// Exists reports whether the record of the given kind is present.
func (r *DependencyRepository) Exists(ctx context.Context, kind models.DeletionKind, id string) (bool, error) {
	query, ok := existenceQueries[kind]
	if !ok {
		return false, fmt.Errorf("unsupported deletion kind %q", kind)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check %s existence: %w", kind, err)
	}
	return exists, nil
}

// Count returns the dependents referencing the record.
func (r *DependencyRepository) Count(ctx context.Context, kind models.DeletionKind, id string) (models.DependentCounts, error) {
	var counts models.DependentCounts
	query, ok := dependencyQueries[kind]
	if !ok {
		return counts, fmt.Errorf("unsupported deletion kind %q", kind)
	}
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return counts, fmt.Errorf("count %s dependents: %w", kind, err)
	}
	return counts, nil
}
