package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internship-affectation/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInternshipCatalogRepositoryListOrganizations(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInternshipCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "reference", "name", "latitude", "longitude"}).
		AddRow("org-1", "1", "CHU Liège", 50.5775, 5.5646).
		AddRow("org-999", "999", "Erreur", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, reference, name, latitude, longitude FROM internship_organizations ORDER BY reference ASC")).
		WillReturnRows(rows)

	organizations, err := repo.ListOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, organizations, 2)
	assert.True(t, organizations[0].HasAddress())
	assert.False(t, organizations[1].HasAddress())
	assert.Equal(t, 999, organizations[1].ReferenceNumber())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipCatalogRepositoryListSpecialitiesDerivesKind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInternshipCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "acronym", "mandatory", "position"}).
		AddRow("spec-ur", "Urgences", "UR", true, 1).
		AddRow("spec-mi", "Médecine interne 1", "MI", true, 4).
		AddRow("spec-de", "Dermatologie", "DE", false, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, acronym, mandatory, position FROM internship_specialities")).
		WillReturnRows(rows)

	specialities, err := repo.ListSpecialities(context.Background())
	require.NoError(t, err)
	require.Len(t, specialities, 3)
	assert.Equal(t, models.SpecialityKindEmergency, specialities[0].Kind)
	assert.Equal(t, models.SpecialityKindShared, specialities[1].Kind)
	assert.Equal(t, models.SpecialityKindStandard, specialities[2].Kind)
	require.NotNil(t, specialities[1].Position)
	assert.Equal(t, 4, *specialities[1].Position)
	assert.Nil(t, specialities[2].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipCatalogRepositoryListPeriodsAndPlaces(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInternshipCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM internship_periods")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("p1", "P1").AddRow("p2", "P2"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM internship_period_places WHERE number_places > 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "speciality_id", "period_id", "number_places"}).
			AddRow("pp-1", "org-1", "spec-ur", "p1", 2))

	periods, err := repo.ListPeriods(context.Background())
	require.NoError(t, err)
	assert.Len(t, periods, 2)

	places, err := repo.ListPlaces(context.Background())
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, 2, places[0].NumberPlaces)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInternshipCatalogRepositoryWrapsErrors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInternshipCatalogRepository(db)

	mock.ExpectQuery("FROM internship_organizations").WillReturnError(assert.AnError)

	_, err := repo.ListOrganizations(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "list organizations")
}
