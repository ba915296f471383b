package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/repository"
	"github.com/noah-isme/sims-enrollment-api/pkg/cache"
	"github.com/noah-isme/sims-enrollment-api/pkg/config"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type memorySectionRepo struct {
	sections    map[string]models.Section
	enrolled    map[string]int
	listCalls   int
	deleted     []string
	deactivated []string
}

func newMemorySectionRepo(sections ...models.Section) *memorySectionRepo {
	repo := &memorySectionRepo{sections: map[string]models.Section{}, enrolled: map[string]int{}}
	for _, s := range sections {
		repo.sections[s.ID] = s
	}
	return repo
}

func (m *memorySectionRepo) detail(s models.Section) models.SectionDetail {
	return models.SectionDetail{Section: s, CourseName: "name-" + s.CourseID, EnrolledCount: m.enrolled[s.ID]}
}

func (m *memorySectionRepo) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	m.listCalls++
	var out []models.SectionDetail
	for _, s := range m.sections {
		if filter.Semester != "" && s.Semester != filter.Semester {
			continue
		}
		out = append(out, m.detail(s))
	}
	return out, len(out), nil
}

func (m *memorySectionRepo) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if s, ok := m.sections[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memorySectionRepo) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if s, ok := m.sections[id]; ok {
		d := m.detail(s)
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memorySectionRepo) ListConflictCandidates(ctx context.Context, candidate models.Section) ([]models.Section, error) {
	var out []models.Section
	for _, s := range m.sections {
		if s.Semester == candidate.Semester && s.AcademicYear == candidate.AcademicYear && s.DayOfWeek == candidate.DayOfWeek && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memorySectionRepo) ListByCourse(ctx context.Context, courseID, semester, academicYear string) ([]models.SectionDetail, error) {
	var out []models.SectionDetail
	for _, s := range m.sections {
		if s.CourseID == courseID && s.Semester == semester && s.AcademicYear == academicYear && s.Active {
			out = append(out, m.detail(s))
		}
	}
	return out, nil
}

func (m *memorySectionRepo) ListTeachingForFaculty(ctx context.Context, facultyID, semester, academicYear string) ([]models.SectionDetail, error) {
	var out []models.SectionDetail
	for _, s := range m.sections {
		if s.FacultyID == facultyID && s.Semester == semester && s.AcademicYear == academicYear && s.Active && m.enrolled[s.ID] > 0 {
			out = append(out, m.detail(s))
		}
	}
	return out, nil
}

func (m *memorySectionRepo) Create(ctx context.Context, section *models.Section) error {
	section.ID = "new-" + section.Room
	m.sections[section.ID] = *section
	return nil
}

func (m *memorySectionRepo) Update(ctx context.Context, section *models.Section) error {
	m.sections[section.ID] = *section
	return nil
}

func (m *memorySectionRepo) Deactivate(ctx context.Context, id string) error {
	s := m.sections[id]
	s.Active = false
	m.sections[id] = s
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *memorySectionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sections, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type stubCatalog struct{}

func (stubCatalog) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id, CourseName: "name-" + id}, nil
}

func (stubCatalog) FindFacultyByID(ctx context.Context, id string) (*models.Faculty, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Faculty{ID: id}, nil
}

func (stubCatalog) CourseNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		out[id] = "name-" + id
	}
	return out, nil
}

type sectionDependencies struct {
	repo *memorySectionRepo
}

func (d sectionDependencies) Exists(ctx context.Context, kind models.DeletionKind, id string) (bool, error) {
	_, ok := d.repo.sections[id]
	return ok, nil
}

func (d sectionDependencies) Count(ctx context.Context, kind models.DeletionKind, id string) (models.DependentCounts, error) {
	return models.DependentCounts{Enrollments: d.repo.enrolled[id]}, nil
}

var testAcademic = config.AcademicConfig{CurrentSemester: "HK1", CurrentAcademicYear: "2024-2025"}

func newSectionFixture(t *testing.T, cacheSvc *CacheService, existing ...models.Section) (*SectionService, *memorySectionRepo) {
	t.Helper()
	repo := newMemorySectionRepo(existing...)
	svc := NewSectionService(repo, stubCatalog{}, NewDeletionPolicy(sectionDependencies{repo: repo}), cacheSvc, cache.NewLocalLocker(), time.Minute, testAcademic, NewMetricsService(), nil, zap.NewNop())
	return svc, repo
}

func sectionRequest(facultyID, room string, day, start, end int) SectionRequest {
	return SectionRequest{CourseID: "C200", FacultyID: facultyID, Semester: "HK1", AcademicYear: "2024-2025", DayOfWeek: day, StartPeriod: start, EndPeriod: end, Room: room}
}

func TestSectionServiceCreateRejectsRoomConflict(t *testing.T) {
	s1 := mondaySection("S1", "1", "A101", 1, 3)
	svc, repo := newSectionFixture(t, nil, s1)

	_, err := svc.Create(context.Background(), sectionRequest("2", "A101", 2, 2, 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	appErr := appErrors.FromError(err)
	conflict, ok := appErr.Details.(*models.ScheduleConflictError)
	require.True(t, ok)
	require.NotNil(t, conflict.RoomConflict)
	assert.Nil(t, conflict.FacultyConflict)
	assert.Equal(t, "S1", conflict.RoomConflict.SectionID)
	assert.Equal(t, "07:00 - 09:40", conflict.RoomConflict.TimeRange)
	assert.Contains(t, appErr.Message, "name-course-S1")
	assert.Len(t, repo.sections, 1)
}

func TestSectionServiceCreateRejectsFacultyConflict(t *testing.T) {
	svc, _ := newSectionFixture(t, nil, mondaySection("S1", "1", "A101", 1, 3))

	_, err := svc.Create(context.Background(), sectionRequest("1", "B201", 2, 2, 5))
	require.Error(t, err)
	conflict := appErrors.FromError(err).Details.(*models.ScheduleConflictError)
	require.NotNil(t, conflict.FacultyConflict)
	assert.Nil(t, conflict.RoomConflict)
	assert.Equal(t, "07:00 - 09:40", conflict.FacultyConflict.TimeRange)
}

func TestSectionServiceCreateSucceedsWithWarnings(t *testing.T) {
	svc, repo := newSectionFixture(t, nil, mondaySection("S1", "1", "A101", 1, 3))

	res, err := svc.Create(context.Background(), sectionRequest("2", "B201", 2, 4, 9))
	require.NoError(t, err)
	assert.Len(t, repo.sections, 2)
	assert.Equal(t, "Monday", res.Section.DayName)
	assert.Equal(t, "Period 4-9", res.Section.PeriodRange)
	assert.Equal(t, "09:40 - 15:40", res.Section.TimeRange)
	assert.Equal(t, "Morning", res.Section.Session)
	require.Len(t, res.Warnings, 1)
}

func TestSectionServiceCreateValidation(t *testing.T) {
	svc, _ := newSectionFixture(t, nil)

	_, err := svc.Create(context.Background(), sectionRequest("1", "A101", 9, 3, 2))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	check, ok := appErr.Details.(ScheduleValidation)
	require.True(t, ok)
	assert.Len(t, check.Errors, 2)

	_, err = svc.Create(context.Background(), SectionRequest{DayOfWeek: 2, StartPeriod: 1, EndPeriod: 1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req := sectionRequest("1", "A101", 2, 1, 2)
	req.CourseID = "missing"
	_, err = svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSectionServiceUpdateExcludesItself(t *testing.T) {
	svc, repo := newSectionFixture(t, nil, mondaySection("S1", "1", "A101", 1, 3))

	req := sectionRequest("1", "A101", 2, 2, 4)
	res, err := svc.Update(context.Background(), "S1", req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Section.StartPeriod)
	assert.Equal(t, 4, repo.sections["S1"].EndPeriod)

	_, err = svc.Update(context.Background(), "ghost", req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSectionServiceDeleteFollowsPolicy(t *testing.T) {
	svc, repo := newSectionFixture(t, nil, mondaySection("S1", "1", "A101", 1, 3), mondaySection("S2", "2", "B201", 1, 3))
	repo.enrolled["S1"] = 4

	res, err := svc.Delete(context.Background(), "S1")
	require.NoError(t, err)
	assert.True(t, res.Deactivated)
	assert.Equal(t, models.MustSoftDelete, res.Decision.Mode)
	assert.False(t, repo.sections["S1"].Active)

	res, err = svc.Delete(context.Background(), "S2")
	require.NoError(t, err)
	assert.False(t, res.Deactivated)
	assert.Equal(t, []string{"S2"}, repo.deleted)

	_, err = svc.Delete(context.Background(), "S2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	// the deactivated section no longer blocks its slot
	_, err = svc.Create(context.Background(), sectionRequest("1", "A101", 2, 1, 3))
	assert.NoError(t, err)
}

func TestSectionServiceWeeklySchedule(t *testing.T) {
	mon := mondaySection("S1", "1", "A101", 4, 5)
	mon.CourseID = "C1"
	monEarly := mondaySection("S2", "1", "A102", 1, 2)
	monEarly.CourseID = "C2"
	fri := mondaySection("S3", "1", "A101", 7, 9)
	fri.DayOfWeek = 6
	fri.CourseID = "C1"
	idle := mondaySection("S4", "1", "A103", 10, 11)
	svc, repo := newSectionFixture(t, nil, mon, monEarly, fri, idle)
	repo.enrolled["S1"], repo.enrolled["S2"], repo.enrolled["S3"] = 10, 5, 3

	schedule, err := svc.WeeklySchedule(context.Background(), "1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "HK1", schedule.Semester)
	require.Len(t, schedule.Days, 7)
	monday := schedule.Days[0]
	assert.Equal(t, "Monday", monday.DayName)
	require.Len(t, monday.Classes, 2)
	assert.Equal(t, "S2", monday.Classes[0].ID)
	assert.Equal(t, "S1", monday.Classes[1].ID)
	assert.Equal(t, "Afternoon", schedule.Days[4].Classes[0].Session)
	assert.Empty(t, schedule.Days[6].Classes)
	assert.Equal(t, 2, schedule.TotalCourses)
	assert.Equal(t, 3, schedule.TotalClassesPerWeek)

	_, err = svc.WeeklySchedule(context.Background(), "missing", "", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSectionServiceListCourseSections(t *testing.T) {
	s := mondaySection("S1", "1", "A101", 1, 3)
	s.CourseID = "C101"
	svc, _ := newSectionFixture(t, nil, s)

	sections, err := svc.ListCourseSections(context.Background(), "C101", "", "")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "07:00 - 09:40", sections[0].TimeRange)

	sections, err = svc.ListCourseSections(context.Background(), "C101", "HK2", "")
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestSectionServiceListUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cacheSvc := NewCacheService(repository.NewCacheRepository(client, zap.NewNop()), NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc, repo := newSectionFixture(t, cacheSvc, mondaySection("S1", "1", "A101", 1, 3))

	items, pagination, err := svc.List(context.Background(), models.SectionFilter{Semester: "HK1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "Monday", items[0].DayName)

	_, _, err = svc.List(context.Background(), models.SectionFilter{Semester: "HK1"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "second read served from cache")

	_, err = svc.Create(context.Background(), sectionRequest("3", "Z900", 3, 1, 1))
	require.NoError(t, err)

	items, _, err = svc.List(context.Background(), models.SectionFilter{Semester: "HK1"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls, "writes invalidate the cache")
	assert.Len(t, items, 2)
}

func TestSectionListingReflectsEnrollmentWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cacheSvc := NewCacheService(repository.NewCacheRepository(client, zap.NewNop()), NewMetricsService(), time.Minute, zap.NewNop(), true)
	sectionSvc, sectionRepo := newSectionFixture(t, cacheSvc, mondaySection("S1", "1", "A101", 1, 3))

	enrollments := &memoryEnrollmentRepo{}
	students := &stubStudentReader{students: []models.Student{
		{ID: "st-1", Department: "Information Technology", Active: true},
		{ID: "st-2", Department: "Information Technology", Active: true},
	}}
	courses := stubCourseReader{"course-S1": {ID: "course-S1"}}
	enrollmentSvc := NewEnrollmentService(enrollments, sectionRepo, students, courses, cacheSvc, cache.NewLocalLocker(), time.Minute, NewMetricsService(), nil, zap.NewNop())

	filter := models.SectionFilter{Semester: "HK1"}
	items, _, err := sectionSvc.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Zero(t, items[0].EnrolledCount)

	res, err := enrollmentSvc.BulkAssign(context.Background(), BulkAssignRequest{
		CourseID: "course-S1", SectionID: "S1", Department: "Information Technology", Semester: "HK1", AcademicYear: "2024-2025",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.AssignedCount)
	sectionRepo.enrolled["S1"] = 2

	items, _, err = sectionSvc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 2, sectionRepo.listCalls, "assignment evicts cached listings")
	assert.Equal(t, 2, items[0].EnrolledCount)

	require.NoError(t, enrollmentSvc.Remove(context.Background(), enrollments.rows[0].ID))
	sectionRepo.enrolled["S1"] = 1

	items, _, err = sectionSvc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 3, sectionRepo.listCalls, "removal evicts cached listings")
	assert.Equal(t, 1, items[0].EnrolledCount)
}
