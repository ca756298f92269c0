package repository

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/internship-affectation/internal/affectation"
)

// SQLDatasetSource assembles the engine input from the database.
type SQLDatasetSource struct {
	catalog  *InternshipCatalogRepository
	students *InternshipStudentRepository
}

// NewSQLDatasetSource combines the catalog and student repositories.
func NewSQLDatasetSource(catalog *InternshipCatalogRepository, students *InternshipStudentRepository) *SQLDatasetSource {
	return &SQLDatasetSource{catalog: catalog, students: students}
}

// Load reads every table concurrently. The first failure cancels the others.
func (s *SQLDatasetSource) Load(ctx context.Context) (*affectation.Dataset, error) {
	ds := &affectation.Dataset{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		ds.Organizations, err = s.catalog.ListOrganizations(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Specialities, err = s.catalog.ListSpecialities(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Periods, err = s.catalog.ListPeriods(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Places, err = s.catalog.ListPlaces(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Students, err = s.students.ListStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Choices, err = s.students.ListChoices(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Enrollments, err = s.students.ListEnrollments(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}
