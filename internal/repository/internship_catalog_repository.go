package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internship-affectation/internal/models"
)

// InternshipCatalogRepository reads organizations, specialities, periods and their declared places.
type InternshipCatalogRepository struct {
	db *sqlx.DB
}

// NewInternshipCatalogRepository builds the repository.
func NewInternshipCatalogRepository(db *sqlx.DB) *InternshipCatalogRepository {
	return &InternshipCatalogRepository{db: db}
}

// ListOrganizations returns every hospital, including the error and edit placeholders.
func (r *InternshipCatalogRepository) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	const query = `SELECT id, reference, name, latitude, longitude FROM internship_organizations ORDER BY reference ASC`
	var organizations []models.Organization
	if err := r.db.SelectContext(ctx, &organizations, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return organizations, nil
}

// ListSpecialities returns specialities; the kind is derived from the acronym.
func (r *InternshipCatalogRepository) ListSpecialities(ctx context.Context) ([]models.Speciality, error) {
	const query = `SELECT id, name, acronym, mandatory, position FROM internship_specialities ORDER BY name ASC`
	var specialities []models.Speciality
	if err := r.db.SelectContext(ctx, &specialities, query); err != nil {
		return nil, fmt.Errorf("list specialities: %w", err)
	}
	for i := range specialities {
		specialities[i].Kind = models.SpecialityKindFromAcronym(specialities[i].Acronym)
	}
	return specialities, nil
}

// ListPeriods returns the internship periods.
func (r *InternshipCatalogRepository) ListPeriods(ctx context.Context) ([]models.Period, error) {
	const query = `SELECT id, name FROM internship_periods ORDER BY name ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// ListPlaces returns declared capacities. Cells with no places are skipped.
func (r *InternshipCatalogRepository) ListPlaces(ctx context.Context) ([]models.PeriodPlaces, error) {
	const query = `SELECT id, organization_id, speciality_id, period_id, number_places
FROM internship_period_places WHERE number_places > 0 ORDER BY organization_id ASC, speciality_id ASC, period_id ASC`
	var places []models.PeriodPlaces
	if err := r.db.SelectContext(ctx, &places, query); err != nil {
		return nil, fmt.Errorf("list period places: %w", err)
	}
	return places, nil
}
