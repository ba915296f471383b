package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type enrollmentServiceMock struct {
	lastFilter models.EnrollmentFilter
	lastAssign service.AssignStudentsRequest
	lastBulk   service.BulkAssignRequest
	lastRetake service.RetakeRequest
	result     *models.AssignmentResult
	err        error
	removeErr  error
	removed    string
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.EnrollmentDetail{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *enrollmentServiceMock) Assign(ctx context.Context, req service.AssignStudentsRequest) (*models.AssignmentResult, error) {
	m.lastAssign = req
	return m.result, m.err
}

func (m *enrollmentServiceMock) BulkAssign(ctx context.Context, req service.BulkAssignRequest) (*models.AssignmentResult, error) {
	m.lastBulk = req
	return m.result, m.err
}

func (m *enrollmentServiceMock) RegisterRetake(ctx context.Context, failedID string, req service.RetakeRequest) (*models.Enrollment, error) {
	m.lastRetake = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Enrollment{ID: "e-new", Status: models.EnrollmentStatusRetaking, OriginalEnrollmentID: &failedID, RetakeCount: 1}, nil
}

func (m *enrollmentServiceMock) Remove(ctx context.Context, id string) error {
	m.removed = id
	return m.removeErr
}

func (m *enrollmentServiceMock) Transcript(ctx context.Context, studentID string) (*models.Transcript, error) {
	return &models.Transcript{StudentID: studentID, GPA: 7.5, Graded: 2}, nil
}

func TestEnrollmentHandlerAssignStampsActor(t *testing.T) {
	svc := &enrollmentServiceMock{result: &models.AssignmentResult{AssignedCount: 2, SkippedCount: 1, TotalMatched: 3}}
	h := NewEnrollmentHandler(svc)
	r := newTestRouter(adminClaims)
	r.POST("/enrollments/assign", h.Assign)

	w, env := perform(t, r, http.MethodPost, "/enrollments/assign", map[string]interface{}{
		"course_id":     "C101",
		"student_ids":   []string{"st-1", "st-2", "st-3"},
		"semester":      "HK1",
		"academic_year": "2024-2025",
		"assigned_by":   "spoofed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-admin", svc.lastAssign.AssignedBy)
	assert.Len(t, svc.lastAssign.StudentIDs, 3)
	assert.JSONEq(t, `{"assigned_count":2,"skipped_count":1,"total_matched":3}`, string(env.Data))
}

func TestEnrollmentHandlerBulkAssignMapsLockBusy(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrLockBusy, "another assignment is in progress")}
	h := NewEnrollmentHandler(svc)
	r := newTestRouter(adminClaims)
	r.POST("/enrollments/bulk-assign", h.BulkAssign)

	w, env := perform(t, r, http.MethodPost, "/enrollments/bulk-assign", service.BulkAssignRequest{
		CourseID: "C101", SectionID: "S1", Department: "Information Technology", Semester: "HK1", AcademicYear: "2024-2025",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrLockBusy.Code, env.Error.Code)
	assert.Equal(t, "Information Technology", svc.lastBulk.Department)
}

func TestEnrollmentHandlerRetake(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)
	r := newTestRouter(adminClaims)
	r.POST("/enrollments/:id/retake", h.Retake)

	w, env := perform(t, r, http.MethodPost, "/enrollments/e-1/retake", service.RetakeRequest{Semester: "HK2", AcademicYear: "2024-2025"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"original_enrollment_id":"e-1"`)
	assert.Equal(t, "u-admin", svc.lastRetake.AssignedBy)
}

func TestEnrollmentHandlerDelete(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)
	r := newTestRouter(adminClaims)
	r.DELETE("/enrollments/:id", h.Delete)

	w, _ := perform(t, r, http.MethodDelete, "/enrollments/e-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "e-1", svc.removed)

	svc.removeErr = appErrors.Clone(appErrors.ErrInvalidState, "enrollment already has scores")
	w, env := perform(t, r, http.MethodDelete, "/enrollments/e-2", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrInvalidState.Code, env.Error.Code)
}

func TestEnrollmentHandlerListAndTranscript(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)
	r := newTestRouter(adminClaims)
	r.GET("/enrollments", h.List)
	r.GET("/students/:id/transcript", h.Transcript)

	w, _ := perform(t, r, http.MethodGet, "/enrollments?courseId=C101&status=Failed&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C101", svc.lastFilter.CourseID)
	assert.Equal(t, models.EnrollmentStatusFailed, svc.lastFilter.Status)
	assert.Equal(t, 10, svc.lastFilter.PageSize)

	w, env := perform(t, r, http.MethodGet, "/students/st-1/transcript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"student_id":"st-1"`)
}
