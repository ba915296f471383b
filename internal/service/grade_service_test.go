package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type mockGradeRepo struct {
	owned      map[string]models.Enrollment
	gradableIn []string
	updated    []models.Enrollment
	updateErr  error
}

func (m *mockGradeRepo) ListGradable(ctx context.Context, courseID, facultyID string, ids []string) ([]models.Enrollment, error) {
	m.gradableIn = ids
	var out []models.Enrollment
	for _, id := range ids {
		if e, ok := m.owned[id]; ok && e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockGradeRepo) UpdateGrades(ctx context.Context, enrollments []models.Enrollment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = enrollments
	return nil
}

func newGradeFixture() (*GradeService, *mockGradeRepo) {
	repo := &mockGradeRepo{owned: map[string]models.Enrollment{
		"e1": {ID: "e1", CourseID: "C101", Status: models.EnrollmentStatusActive},
		"e2": {ID: "e2", CourseID: "C101", Status: models.EnrollmentStatusActive},
		"e3": {ID: "e3", CourseID: "C101", Status: models.EnrollmentStatusRetaking},
	}}
	return NewGradeService(repo, NewMetricsService(), nil, zap.NewNop()), repo
}

func TestGradeServiceSubmitGrades(t *testing.T) {
	svc, repo := newGradeFixture()

	res, err := svc.SubmitGrades(context.Background(), SubmitGradesRequest{
		CourseID:  "C101",
		FacultyID: "fac-1",
		Entries: []models.GradeEntry{
			{EnrollmentID: "e1", MidtermScore: score(8), FinalScore: score(9)},
			{EnrollmentID: "e2", MidtermScore: score(2), FinalScore: score(3)},
			{EnrollmentID: "e3", MidtermScore: score(7)},
			{EnrollmentID: "not-mine", MidtermScore: score(10), FinalScore: score(10)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.UpdatedCount)
	assert.Equal(t, 1, res.FailedCount)
	require.Len(t, repo.updated, 3)

	byID := map[string]models.Enrollment{}
	for _, e := range repo.updated {
		byID[e.ID] = e
	}
	assert.Equal(t, "A", *byID["e1"].LetterGrade)
	assert.Equal(t, models.EnrollmentStatusCompleted, byID["e1"].Status)
	assert.Equal(t, "F", *byID["e2"].LetterGrade)
	assert.True(t, byID["e2"].IsFailed)
	assert.Equal(t, models.EnrollmentStatusFailed, byID["e2"].Status)
	assert.Nil(t, byID["e3"].AverageScore)
	assert.Equal(t, models.EnrollmentStatusRetaking, byID["e3"].Status)
}

func TestGradeServiceSkipsForeignEnrollments(t *testing.T) {
	svc, repo := newGradeFixture()

	res, err := svc.SubmitGrades(context.Background(), SubmitGradesRequest{
		CourseID:  "C101",
		FacultyID: "fac-2",
		Entries:   []models.GradeEntry{{EnrollmentID: "elsewhere", MidtermScore: score(5), FinalScore: score(5)}},
	})
	require.NoError(t, err)
	assert.Zero(t, res.UpdatedCount)
	assert.Nil(t, repo.updated)
}

func TestGradeServiceLastEntryWins(t *testing.T) {
	svc, repo := newGradeFixture()

	res, err := svc.SubmitGrades(context.Background(), SubmitGradesRequest{
		CourseID:  "C101",
		FacultyID: "fac-1",
		Entries: []models.GradeEntry{
			{EnrollmentID: "e1", MidtermScore: score(1), FinalScore: score(1)},
			{EnrollmentID: "e1", MidtermScore: score(10), FinalScore: score(10)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpdatedCount)
	assert.Zero(t, res.FailedCount)
	assert.Equal(t, []string{"e1"}, repo.gradableIn)
	assert.Equal(t, "A+", *repo.updated[0].LetterGrade)
}

func TestGradeServiceRejectsOutOfRangeScores(t *testing.T) {
	svc, repo := newGradeFixture()

	_, err := svc.SubmitGrades(context.Background(), SubmitGradesRequest{
		CourseID:  "C101",
		FacultyID: "fac-1",
		Entries: []models.GradeEntry{
			{EnrollmentID: "e1", MidtermScore: score(8), FinalScore: score(9)},
			{EnrollmentID: "e2", MidtermScore: score(11), FinalScore: score(3)},
		},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Nil(t, repo.updated, "whole batch rejected")
}

func TestGradeServiceTransactionFailure(t *testing.T) {
	svc, repo := newGradeFixture()
	repo.updateErr = errors.New("disk full")

	_, err := svc.SubmitGrades(context.Background(), SubmitGradesRequest{
		CourseID:  "C101",
		FacultyID: "fac-1",
		Entries:   []models.GradeEntry{{EnrollmentID: "e1", MidtermScore: score(8), FinalScore: score(9)}},
	})
	assert.ErrorIs(t, err, appErrors.ErrTransaction)
}
