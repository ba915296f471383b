package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/pkg/cache"
	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	"github.com/noah-isme/sims-enrollment-api/pkg/database"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
	"github.com/noah-isme/sims-enrollment-api/pkg/timetable"
)

const sectionCachePattern = "sections:*"

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ListConflictCandidates(ctx context.Context, candidate models.Section) ([]models.Section, error)
	ListByCourse(ctx context.Context, courseID, semester, academicYear string) ([]models.SectionDetail, error)
	ListTeachingForFaculty(ctx context.Context, facultyID, semester, academicYear string) ([]models.SectionDetail, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type catalogReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error)
	CourseNames(ctx context.Context, ids []string) (map[string]string, error)
}

type deletionDecider interface {
	Decide(ctx context.Context, kind models.DeletionKind, id string) (*models.DeletionDecision, error)
}

// SectionRequest is the create/edit payload of a section.
type SectionRequest struct {
	CourseID     string  `json:"course_id" validate:"required"`
	FacultyID    string  `json:"faculty_id" validate:"required"`
	Semester     string  `json:"semester" validate:"required"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	DayOfWeek    int     `json:"day_of_week"`
	StartPeriod  int     `json:"start_period"`
	EndPeriod    int     `json:"end_period"`
	Room         string  `json:"room" validate:"required,max=50"`
	Notes        *string `json:"notes"`
}

// SectionSaveResult is returned after a section write together with advisory warnings.
type SectionSaveResult struct {
	Section  *models.SectionDetail `json:"section"`
	Warnings []string              `json:"warnings,omitempty"`
}

// SectionDeletion reports which deletion path was taken.
type SectionDeletion struct {
	Decision    *models.DeletionDecision `json:"decision"`
	Deactivated bool                     `json:"deactivated"`
}

type sectionPage struct {
	Items []models.SectionDetail `json:"items"`
	Total int                    `json:"total"`
}

// SectionService manages conflict-checked section scheduling and timetable views.
type SectionService struct {
	repo      sectionRepository
	catalog   catalogReader
	deletion  deletionDecider
	cache     *CacheService
	locker    cache.Locker
	lockTTL   time.Duration
	academic  config.AcademicConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, catalog catalogReader, deletion deletionDecider, cacheSvc *CacheService, locker cache.Locker, lockTTL time.Duration, academic config.AcademicConfig, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SectionService {
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
	return &SectionService{
		repo:      repo,
		catalog:   catalog,
		deletion:  deletion,
		cache:     cacheSvc,
		locker:    locker,
		lockTTL:   lockTTL,
		academic:  academic,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns sections through the read-through cache.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := sectionListKey(filter)
	var page sectionPage
	if !s.cache.Get(ctx, key, &page) {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
		}
		page = sectionPage{Items: items, Total: total}
		s.cache.Set(ctx, key, page, 0)
	}

	decorateSections(page.Items)
	return page.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}, nil
}

// Get returns a single section with display fields.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	decorateSection(detail)
	return detail, nil
}

// Create schedules a new section after structural and conflict checks.
func (s *SectionService) Create(ctx context.Context, req SectionRequest) (*SectionSaveResult, error) {
	return s.save(ctx, "", req)
}

// Update edits a section in place. The section itself is excluded from the conflict check.
func (s *SectionService) Update(ctx context.Context, id string, req SectionRequest) (*SectionSaveResult, error) {
	return s.save(ctx, id, req)
}

func (s *SectionService) save(ctx context.Context, id string, req SectionRequest) (*SectionSaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	check := ValidateSchedule(req.DayOfWeek, req.StartPeriod, req.EndPeriod)
	if !check.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, check.Errors[0], check)
	}

	candidate := models.Section{
		ID:           id,
		CourseID:     req.CourseID,
		FacultyID:    req.FacultyID,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		DayOfWeek:    req.DayOfWeek,
		StartPeriod:  req.StartPeriod,
		EndPeriod:    req.EndPeriod,
		Room:         req.Room,
		Notes:        req.Notes,
		Active:       true,
	}
	if id != "" {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		candidate.Active = existing.Active
		candidate.CreatedAt = existing.CreatedAt
	}
	if err := s.ensureReferences(ctx, req.CourseID, req.FacultyID); err != nil {
		return nil, err
	}

	key := sectionLockKey(candidate.Semester, candidate.AcademicYear, candidate.DayOfWeek)
	err := withWriteLock(ctx, s.locker, key, s.lockTTL, s.metrics, "section", func() error {
		if candidate.Active {
			if err := s.checkConflicts(ctx, candidate); err != nil {
				return err
			}
		}
		var err error
		if id == "" {
			err = s.repo.Create(ctx, &candidate)
		} else {
			err = s.repo.Update(ctx, &candidate)
		}
		if err != nil {
			if database.IsExclusionViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "section overlaps an existing section")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save section")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, sectionCachePattern)

	s.logger.Info("section saved",
		zap.String("section_id", candidate.ID),
		zap.String("summary", timetable.Summary(candidate.DayOfWeek, candidate.StartPeriod, candidate.EndPeriod, candidate.Room)),
	)

	detail, err := s.Get(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	return &SectionSaveResult{Section: detail, Warnings: check.Warnings}, nil
}

func (s *SectionService) checkConflicts(ctx context.Context, candidate models.Section) error {
	existing, err := s.repo.ListConflictCandidates(ctx, candidate)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing sections")
	}
	report := FindConflicts(candidate, existing)
	if !report.HasConflict() {
		return nil
	}

	var ids []string
	if report.Faculty != nil {
		ids = append(ids, report.Faculty.CourseID)
	}
	if report.Room != nil {
		ids = append(ids, report.Room.CourseID)
	}
	names, err := s.catalog.CourseNames(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve course names for conflict", zap.Error(err))
		names = nil
	}

	conflict := ConflictError(candidate, report, names)
	s.metrics.RecordConflict(conflict)
	s.logger.Info("section rejected by conflict check",
		zap.String("semester", candidate.Semester),
		zap.String("academic_year", candidate.AcademicYear),
		zap.Int("day_of_week", candidate.DayOfWeek),
		zap.String("room", candidate.Room),
		zap.Bool("faculty_conflict", conflict.FacultyConflict != nil),
		zap.Bool("room_conflict", conflict.RoomConflict != nil),
	)
	return appErrors.WithDetails(appErrors.ErrConflict, conflict.Error(), conflict)
}

// Delete removes a section outright when nothing references it and deactivates it otherwise.
func (s *SectionService) Delete(ctx context.Context, id string) (*SectionDeletion, error) {
	decision, err := s.deletion.Decide(ctx, models.DeletionKindSection, id)
	if err != nil {
		return nil, err
	}

	result := &SectionDeletion{Decision: decision}
	switch decision.Mode {
	case models.MustSoftDelete:
		err = s.repo.Deactivate(ctx, id)
		result.Deactivated = true
	default:
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	s.cache.Invalidate(ctx, sectionCachePattern)
	s.logger.Info("section deleted", zap.String("section_id", id), zap.String("mode", string(decision.Mode)))
	return result, nil
}

// ListCourseSections returns the active sections of a course, defaulting to the current period.
func (s *SectionService) ListCourseSections(ctx context.Context, courseID, semester, academicYear string) ([]models.SectionDetail, error) {
	semester, academicYear = s.period(semester, academicYear)
	if _, err := s.catalog.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	sections, err := s.repo.ListByCourse(ctx, courseID, semester, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course sections")
	}
	decorateSections(sections)
	if sections == nil {
		sections = []models.SectionDetail{}
	}
	return sections, nil
}

// WeeklySchedule groups the faculty's taught sections into the seven weekdays.
func (s *SectionService) WeeklySchedule(ctx context.Context, facultyID, semester, academicYear string) (*models.WeeklySchedule, error) {
	semester, academicYear = s.period(semester, academicYear)
	if _, err := s.catalog.FindFacultyByID(ctx, facultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	sections, err := s.repo.ListTeachingForFaculty(ctx, facultyID, semester, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty sections")
	}
	decorateSections(sections)
	return BuildWeeklySchedule(facultyID, semester, academicYear, sections), nil
}

// BuildWeeklySchedule groups sections by day ordered by start period.
func BuildWeeklySchedule(facultyID, semester, academicYear string, sections []models.SectionDetail) *models.WeeklySchedule {
	schedule := &models.WeeklySchedule{FacultyID: facultyID, Semester: semester, AcademicYear: academicYear}
	byDay := make(map[int][]models.SectionDetail, timetable.LastDay-timetable.FirstDay+1)
	courses := make(map[string]struct{})
	for _, section := range sections {
		byDay[section.DayOfWeek] = append(byDay[section.DayOfWeek], section)
		courses[section.CourseID] = struct{}{}
	}
	for _, day := range timetable.Days() {
		classes := byDay[day.Code]
		sortByStartPeriod(classes)
		if classes == nil {
			classes = []models.SectionDetail{}
		}
		schedule.Days = append(schedule.Days, models.DaySchedule{
			DayOfWeek: day.Code,
			DayName:   day.Name,
			DayAbbr:   day.Abbreviation,
			Classes:   classes,
		})
	}
	schedule.TotalCourses = len(courses)
	schedule.TotalClassesPerWeek = len(sections)
	return schedule
}

func (s *SectionService) ensureReferences(ctx context.Context, courseID, facultyID string) error {
	if _, err := s.catalog.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.catalog.FindFacultyByID(ctx, facultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return nil
}

func (s *SectionService) period(semester, academicYear string) (string, string) {
	if semester == "" {
		semester = s.academic.CurrentSemester
	}
	if academicYear == "" {
		academicYear = s.academic.CurrentAcademicYear
	}
	return semester, academicYear
}

func sectionListKey(f models.SectionFilter) string {
	active := "any"
	if f.Active != nil {
		active = fmt.Sprintf("%t", *f.Active)
	}
	return fmt.Sprintf("sections:list:%s:%s:%s:%s:%s:%d:%s:%d:%d",
		f.Semester, f.AcademicYear, f.CourseID, f.FacultyID, f.Room, f.DayOfWeek, active, f.Page, f.PageSize)
}

func decorateSections(sections []models.SectionDetail) {
	for i := range sections {
		decorateSection(&sections[i])
	}
}

func decorateSection(d *models.SectionDetail) {
	d.DayName = timetable.DayName(d.DayOfWeek)
	d.PeriodRange = timetable.PeriodRange(d.StartPeriod, d.EndPeriod)
	d.TimeRange = timetable.TimeRange(d.StartPeriod, d.EndPeriod)
	d.Session = timetable.Session(d.StartPeriod)
}

func sortByStartPeriod(sections []models.SectionDetail) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].StartPeriod < sections[j].StartPeriod
	})
}
