package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internship-affectation/internal/models"
)

// InternshipStudentRepository reads students with their choices and erasmus enrollments.
type InternshipStudentRepository struct {
	db *sqlx.DB
}

// NewInternshipStudentRepository builds the repository.
func NewInternshipStudentRepository(db *sqlx.DB) *InternshipStudentRepository {
	return &InternshipStudentRepository{db: db}
}

// ListStudents returns students ordered by identifier.
func (r *InternshipStudentRepository) ListStudents(ctx context.Context) ([]models.InternshipStudent, error) {
	const query = `SELECT id, first_name, last_name, latitude, longitude, priority FROM internship_students ORDER BY id ASC`
	var students []models.InternshipStudent
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list internship students: %w", err)
	}
	return students, nil
}

// ListChoices returns ranked choices ordered by student, speciality and rank.
func (r *InternshipStudentRepository) ListChoices(ctx context.Context) ([]models.InternshipChoice, error) {
	const query = `SELECT id, student_id, organization_id, speciality_id, choice, priority
FROM internship_choices ORDER BY student_id ASC, speciality_id ASC, choice ASC`
	var choices []models.InternshipChoice
	if err := r.db.SelectContext(ctx, &choices, query); err != nil {
		return nil, fmt.Errorf("list internship choices: %w", err)
	}
	return choices, nil
}

// ListEnrollments returns the pre-arranged erasmus placements.
func (r *InternshipStudentRepository) ListEnrollments(ctx context.Context) ([]models.InternshipEnrollment, error) {
	const query = `SELECT id, student_id, organization_id, speciality_id, period_id
FROM internship_enrollments ORDER BY student_id ASC, period_id ASC`
	var enrollments []models.InternshipEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list internship enrollments: %w", err)
	}
	return enrollments, nil
}
