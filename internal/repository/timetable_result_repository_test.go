package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoslab/timetabler/internal/models"
)

func newTimetableResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableResultRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newTimetableResultRepoMock(t)
	defer cleanup()
	repo := NewTimetableResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_results WHERE institution_id = $1")).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_results")).
		WithArgs(sqlmock.AnyArg(), "inst-1", 3, "genetic", 121330.0, 42, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.TimetableResult{
		InstitutionID: "inst-1",
		Algorithm:     "genetic",
		FitnessScore:  121330.0,
		Generations:   42,
		Document:      types.JSONText(`{"fitnessScore":121330}`),
	}
	err := repo.CreateVersioned(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Version)
	assert.NotEmpty(t, payload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableResultRepositoryCreateVersionedRequiresInstitution(t *testing.T) {
	db, _, cleanup := newTimetableResultRepoMock(t)
	defer cleanup()
	repo := NewTimetableResultRepository(db)

	err := repo.CreateVersioned(context.Background(), nil, &models.TimetableResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "institution_id")
}

func TestTimetableResultRepositoryLatestByInstitution(t *testing.T) {
	db, mock, cleanup := newTimetableResultRepoMock(t)
	defer cleanup()
	repo := NewTimetableResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "institution_id", "version", "algorithm", "fitness_score", "generations", "document", "created_at"}).
		AddRow("res-2", "inst-1", 2, "hybrid", 98250.5, 77, types.JSONText(`{}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_results WHERE institution_id = $1 ORDER BY version DESC LIMIT 1")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	result, err := repo.LatestByInstitution(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "res-2", result.ID)
	assert.Equal(t, 2, result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableResultRepositoryListByInstitution(t *testing.T) {
	db, mock, cleanup := newTimetableResultRepoMock(t)
	defer cleanup()
	repo := NewTimetableResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "version", "algorithm", "fitness_score", "generations", "created_at"}).
		AddRow("res-2", 2, "genetic", 98250.5, 77, time.Now()).
		AddRow("res-1", 1, "genetic", 91110.0, 80, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_results WHERE institution_id = $1 ORDER BY version DESC LIMIT $2")).
		WithArgs("inst-1", 20).
		WillReturnRows(rows)

	metas, err := repo.ListByInstitution(context.Background(), "inst-1", 0)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, 2, metas[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableResultRepositoryDeleteByInstitution(t *testing.T) {
	db, mock, cleanup := newTimetableResultRepoMock(t)
	defer cleanup()
	repo := NewTimetableResultRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_results WHERE institution_id = $1")).
		WithArgs("inst-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByInstitution(context.Background(), "inst-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
