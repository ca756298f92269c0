package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internship-affectation/internal/models"
)

// rows per INSERT statement; keeps bind parameters well under the Postgres limit
const affectationInsertBatch = 500

// AffectationRepository persists the records of the best solution.
type AffectationRepository struct {
	db *sqlx.DB
}

// NewAffectationRepository builds the repository.
func NewAffectationRepository(db *sqlx.DB) *AffectationRepository {
	return &AffectationRepository{db: db}
}

func (r *AffectationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceAll deletes every stored record and inserts the given ones. Pass a transaction
// so readers never observe a partially written solution.
func (r *AffectationRepository) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, records []models.AffectationRecord) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM internship_affectations`); err != nil {
		return fmt.Errorf("clear affectations: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	const query = `
INSERT INTO internship_affectations (id, student_id, organization_id, speciality_id, period_id, choice, type_of_internship, cost, consecutive_month, created_at)
VALUES (:id, :student_id, :organization_id, :speciality_id, :period_id, :choice, :type_of_internship, :cost, :consecutive_month, :created_at)`

	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
	}
	for start := 0; start < len(records); start += affectationInsertBatch {
		end := start + affectationInsertBatch
		if end > len(records) {
			end = len(records)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, records[start:end]); err != nil {
			return fmt.Errorf("insert affectations: %w", err)
		}
	}
	return nil
}

func affectationConditions(filter models.AffectationFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("a.student_id", filter.StudentID)
	add("a.organization_id", filter.OrganizationID)
	add("a.speciality_id", filter.SpecialityID)
	add("a.choice", filter.Choice)
	return strings.Join(conditions, " AND "), args
}

// List returns stored records matching the filter.
func (r *AffectationRepository) List(ctx context.Context, filter models.AffectationFilter) ([]models.AffectationRecord, error) {
	where, args := affectationConditions(filter)
	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.organization_id, a.speciality_id, a.period_id, a.choice, a.type_of_internship, a.cost, a.consecutive_month, a.created_at
FROM internship_affectations a WHERE %s ORDER BY a.student_id ASC, a.period_id ASC`, where)

	var records []models.AffectationRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list affectations: %w", err)
	}
	return records, nil
}

// ListDetails joins display names onto the stored records.
func (r *AffectationRepository) ListDetails(ctx context.Context, filter models.AffectationFilter) ([]models.AffectationDetail, error) {
	where, args := affectationConditions(filter)
	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.organization_id, a.speciality_id, a.period_id, a.choice, a.type_of_internship, a.cost, a.consecutive_month, a.created_at,
s.first_name AS student_first_name, s.last_name AS student_last_name,
o.reference AS organization_reference, o.name AS organization_name,
sp.acronym AS speciality_acronym, sp.name AS speciality_name, p.name AS period_name
FROM internship_affectations a
JOIN internship_students s ON s.id = a.student_id
JOIN internship_organizations o ON o.id = a.organization_id
JOIN internship_specialities sp ON sp.id = a.speciality_id
JOIN internship_periods p ON p.id = a.period_id
WHERE %s ORDER BY s.last_name ASC, s.first_name ASC, LENGTH(p.name) ASC, p.name ASC`, where)

	var details []models.AffectationDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list affectation details: %w", err)
	}
	return details, nil
}
