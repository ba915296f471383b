package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepositoryCourseNames(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_name FROM courses WHERE id IN (?, ?)")).
		WithArgs("C1", "C2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_name"}).AddRow("C1", "Programming").AddRow("C2", "Databases"))

	names, err := repo.CourseNames(context.Background(), []string{"C1", "C2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"C1": "Programming", "C2": "Databases"}, names)

	empty, err := repo.CourseNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}
