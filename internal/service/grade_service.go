package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type gradeRepository interface {
	ListGradable(ctx context.Context, courseID, facultyID string, ids []string) ([]models.Enrollment, error)
	UpdateGrades(ctx context.Context, enrollments []models.Enrollment) error
}

// SubmitGradesRequest carries a faculty member's grade sheet for one course.
type SubmitGradesRequest struct {
	CourseID  string              `json:"course_id" validate:"required"`
	FacultyID string              `json:"-" validate:"required"`
	Entries   []models.GradeEntry `json:"entries" validate:"required,min=1,dive"`
}

// GradeService records scores and derives the grading lifecycle of enrollments.
type GradeService struct {
	repo      gradeRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// SubmitGrades applies the entries in one transaction. Entries whose enrollment is not bound to a
// section of the course taught by the faculty are skipped silently. FailedCount is informational.
func (s *GradeService) SubmitGrades(ctx context.Context, req SubmitGradesRequest) (*models.GradeSubmissionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade submission")
	}

	ids := make([]string, 0, len(req.Entries))
	seen := make(map[string]struct{}, len(req.Entries))
	for _, entry := range req.Entries {
		if _, ok := seen[entry.EnrollmentID]; ok {
			continue
		}
		seen[entry.EnrollmentID] = struct{}{}
		ids = append(ids, entry.EnrollmentID)
	}

	gradable, err := s.repo.ListGradable(ctx, req.CourseID, req.FacultyID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	byID := make(map[string]*models.Enrollment, len(gradable))
	for i := range gradable {
		byID[gradable[i].ID] = &gradable[i]
	}

	// later entries for the same enrollment overwrite earlier ones
	order := make([]string, 0, len(gradable))
	touched := make(map[string]bool, len(gradable))
	skipped := 0
	for _, entry := range req.Entries {
		enrollment, ok := byID[entry.EnrollmentID]
		if !ok {
			skipped++
			continue
		}
		ApplyGrades(enrollment, entry.MidtermScore, entry.FinalScore)
		if !touched[enrollment.ID] {
			touched[enrollment.ID] = true
			order = append(order, enrollment.ID)
		}
	}

	result := &models.GradeSubmissionResult{}
	if len(order) == 0 {
		s.metrics.RecordGrades(0, skipped, 0)
		return result, nil
	}

	updates := make([]models.Enrollment, 0, len(order))
	for _, id := range order {
		e := byID[id]
		if e.AverageScore != nil && !IsPassed(*e.AverageScore) {
			result.FailedCount++
		}
		updates = append(updates, *e)
	}

	if err := s.repo.UpdateGrades(ctx, updates); err != nil {
		s.metrics.RecordRollback("grades")
		s.logger.Warn("grade batch rolled back", zap.String("course_id", req.CourseID), zap.Int("batch_size", len(updates)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "grade batch rolled back")
	}
	result.UpdatedCount = len(updates)

	s.metrics.RecordGrades(result.UpdatedCount, skipped, result.FailedCount)
	s.logger.Info("grades submitted",
		zap.String("course_id", req.CourseID),
		zap.String("faculty_id", req.FacultyID),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("skipped", skipped),
	)
	return result, nil
}
