package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/pkg/cache"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Exists(ctx context.Context, e models.Enrollment, scope models.DedupScope) (bool, error)
	AssignBatch(ctx context.Context, enrollments []models.Enrollment, scope models.DedupScope) (int, int, error)
	Create(ctx context.Context, e *models.Enrollment) (bool, error)
	DeleteIfUnscored(ctx context.Context, id string) (bool, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// AssignStudentsRequest assigns an explicit list of students to a course.
type AssignStudentsRequest struct {
	CourseID     string   `json:"course_id" validate:"required"`
	SectionID    *string  `json:"section_id"`
	StudentIDs   []string `json:"student_ids" validate:"required,min=1,dive,required"`
	Semester     string   `json:"semester" validate:"required"`
	AcademicYear string   `json:"academic_year" validate:"required"`
	Notes        *string  `json:"notes"`
	AssignedBy   string   `json:"-"`
}

// BulkAssignRequest assigns every active student of a department, optionally one class, to a section.
type BulkAssignRequest struct {
	CourseID     string  `json:"course_id" validate:"required"`
	SectionID    string  `json:"section_id" validate:"required"`
	Department   string  `json:"department" validate:"required"`
	ClassName    string  `json:"class_name"`
	Semester     string  `json:"semester" validate:"required"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	Notes        *string `json:"notes"`
	AssignedBy   string  `json:"-"`
}

// RetakeRequest registers a new attempt for a failed enrollment.
type RetakeRequest struct {
	SectionID    *string `json:"section_id"`
	Semester     string  `json:"semester" validate:"required"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	Notes        *string `json:"notes"`
	AssignedBy   string  `json:"-"`
}

// EnrollmentService assigns students to courses and sections and guards enrollment removal.
type EnrollmentService struct {
	repo      enrollmentRepository
	sections  sectionReader
	students  studentReader
	courses   courseReader
	cache     *CacheService
	locker    cache.Locker
	lockTTL   time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. A nil locker falls back to an in-process one.
// cacheSvc may be nil; when set, committed enrollment writes evict cached section listings.
func NewEnrollmentService(repo enrollmentRepository, sections sectionReader, students studentReader, courses courseReader, cacheSvc *CacheService, locker cache.Locker, lockTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &EnrollmentService{
		repo:      repo,
		sections:  sections,
		students:  students,
		courses:   courses,
		cache:     cacheSvc,
		locker:    locker,
		lockTTL:   lockTTL,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Assign creates an Active enrollment for every listed student not already enrolled in the
// course for the period. Existing enrollments are skipped, not rejected.
func (s *EnrollmentService) Assign(ctx context.Context, req AssignStudentsRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.ensureCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	if req.SectionID != nil {
		if _, err := s.loadMatchingSection(ctx, *req.SectionID, req.CourseID, req.Semester, req.AcademicYear); err != nil {
			return nil, err
		}
	}

	now := s.now()
	enrollments := make([]models.Enrollment, 0, len(req.StudentIDs))
	for _, studentID := range req.StudentIDs {
		enrollments = append(enrollments, s.newEnrollment(studentID, req.CourseID, req.SectionID, req.Semester, req.AcademicYear, req.AssignedBy, req.Notes, now))
	}

	assigned, skipped, err := s.assignBatch(ctx, req.CourseID, req.Semester, req.AcademicYear, enrollments, models.DedupByCourse)
	if err != nil {
		return nil, err
	}
	return &models.AssignmentResult{AssignedCount: assigned, SkippedCount: skipped, TotalMatched: len(req.StudentIDs)}, nil
}

// BulkAssign enrolls the active students of a department into one section. Students already
// enrolled in that section for the period are skipped.
func (s *EnrollmentService) BulkAssign(ctx context.Context, req BulkAssignRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assignment payload")
	}
	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !sectionMatches(section, req.CourseID, req.Semester, req.AcademicYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section does not belong to the course and enrollment period")
	}

	students, err := s.students.List(ctx, models.StudentFilter{Department: req.Department, ClassName: req.ClassName, ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no active students match the department filter")
	}

	now := s.now()
	sectionID := section.ID
	enrollments := make([]models.Enrollment, 0, len(students))
	for _, st := range students {
		enrollments = append(enrollments, s.newEnrollment(st.ID, req.CourseID, &sectionID, req.Semester, req.AcademicYear, req.AssignedBy, req.Notes, now))
	}

	assigned, skipped, err := s.assignBatch(ctx, req.CourseID, req.Semester, req.AcademicYear, enrollments, models.DedupBySection)
	if err != nil {
		return nil, err
	}
	return &models.AssignmentResult{AssignedCount: assigned, SkippedCount: skipped, TotalMatched: len(students)}, nil
}

// Remove deletes an enrollment that carries no scores.
func (s *EnrollmentService) Remove(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.HasScores() {
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment has recorded scores and cannot be removed")
	}
	deleted, err := s.repo.DeleteIfUnscored(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	if !deleted {
		// scored (or removed) between the read and the delete
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment has recorded scores and cannot be removed")
	}
	s.cache.Invalidate(ctx, sectionCachePattern)
	s.logger.Info("enrollment removed", zap.String("enrollment_id", id), zap.String("student_id", enrollment.StudentID))
	return nil
}

// RegisterRetake opens a new attempt for a failed enrollment, linked to the first attempt.
func (s *EnrollmentService) RegisterRetake(ctx context.Context, failedID string, req RetakeRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid retake payload")
	}
	previous, err := s.repo.FindByID(ctx, failedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !previous.IsFailed {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only failed enrollments can be retaken")
	}
	if req.SectionID != nil {
		if _, err := s.loadMatchingSection(ctx, *req.SectionID, previous.CourseID, req.Semester, req.AcademicYear); err != nil {
			return nil, err
		}
	}

	retake := s.newEnrollment(previous.StudentID, previous.CourseID, req.SectionID, req.Semester, req.AcademicYear, req.AssignedBy, req.Notes, s.now())
	retake.Status = models.EnrollmentStatusRetaking
	retake.IsRetaking = true
	original := previous.ID
	if previous.OriginalEnrollmentID != nil && *previous.OriginalEnrollmentID != "" {
		original = *previous.OriginalEnrollmentID
	}
	retake.OriginalEnrollmentID = &original
	retake.RetakeCount = previous.RetakeCount + 1

	err = withWriteLock(ctx, s.locker, assignLockKey(previous.CourseID, req.Semester, req.AcademicYear), s.lockTTL, s.metrics, "assignment", func() error {
		exists, err := s.repo.Exists(ctx, retake, models.DedupByCourse)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the course for this period")
		}
		created, err := s.repo.Create(ctx, &retake)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register retake")
		}
		if !created {
			return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the course for this period")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, sectionCachePattern)
	s.logger.Info("retake registered",
		zap.String("enrollment_id", retake.ID),
		zap.String("original_enrollment_id", original),
		zap.Int("retake_count", retake.RetakeCount),
	)
	return &retake, nil
}

// Transcript lists every enrollment of a student with the GPA over graded ones.
func (s *EnrollmentService) Transcript(ctx context.Context, studentID string) (*models.Transcript, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	details, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}

	transcript := &models.Transcript{StudentID: studentID, Enrollments: details}
	plain := make([]models.Enrollment, 0, len(details))
	for _, d := range details {
		plain = append(plain, d.Enrollment)
		if d.AverageScore != nil {
			transcript.Graded++
		}
		if d.IsFailed {
			transcript.Failed++
		}
	}
	if transcript.Enrollments == nil {
		transcript.Enrollments = []models.EnrollmentDetail{}
	}
	transcript.GPA = GPA(plain)
	return transcript, nil
}

func (s *EnrollmentService) assignBatch(ctx context.Context, courseID, semester, academicYear string, enrollments []models.Enrollment, scope models.DedupScope) (int, int, error) {
	var assigned, skipped int
	err := withWriteLock(ctx, s.locker, assignLockKey(courseID, semester, academicYear), s.lockTTL, s.metrics, "assignment", func() error {
		var err error
		assigned, skipped, err = s.repo.AssignBatch(ctx, enrollments, scope)
		if err != nil {
			s.metrics.RecordRollback("assignment")
			s.logger.Warn("assignment batch rolled back",
				zap.String("course_id", courseID),
				zap.String("scope", scope.String()),
				zap.Int("batch_size", len(enrollments)),
				zap.Error(err),
			)
			return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, "assignment batch rolled back")
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.metrics.RecordAssignment(scope, assigned, skipped)
	if assigned > 0 {
		// listings carry enrolled counts
		s.cache.Invalidate(ctx, sectionCachePattern)
	}
	s.logger.Info("assignment batch committed",
		zap.String("course_id", courseID),
		zap.String("semester", semester),
		zap.String("academic_year", academicYear),
		zap.String("scope", scope.String()),
		zap.Int("assigned", assigned),
		zap.Int("skipped", skipped),
	)
	return assigned, skipped, nil
}

func (s *EnrollmentService) ensureCourse(ctx context.Context, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

func (s *EnrollmentService) loadMatchingSection(ctx context.Context, sectionID, courseID, semester, academicYear string) (*models.Section, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !sectionMatches(section, courseID, semester, academicYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section does not belong to the course and enrollment period")
	}
	return section, nil
}

func (s *EnrollmentService) newEnrollment(studentID, courseID string, sectionID *string, semester, academicYear, assignedBy string, notes *string, now time.Time) models.Enrollment {
	e := models.Enrollment{
		StudentID:      studentID,
		CourseID:       courseID,
		Semester:       semester,
		AcademicYear:   academicYear,
		EnrollmentDate: now,
		Status:         models.EnrollmentStatusActive,
		AssignedDate:   &now,
		Notes:          notes,
	}
	if sectionID != nil {
		id := *sectionID
		e.SectionID = &id
	}
	if assignedBy != "" {
		by := assignedBy
		e.AssignedBy = &by
	}
	return e
}

func sectionMatches(section *models.Section, courseID, semester, academicYear string) bool {
	return section.CourseID == courseID && section.Semester == semester && section.AcademicYear == academicYear
}
