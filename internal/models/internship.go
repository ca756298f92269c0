package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SpecialityKind drives capacity and placement rules for a speciality.
type SpecialityKind string

const (
	SpecialityKindStandard  SpecialityKind = "STANDARD"
	SpecialityKindShared    SpecialityKind = "SHARED"
	SpecialityKindEmergency SpecialityKind = "EMERGENCY"
)

const (
	// SharedSpecialityAcronym marks specialities whose places are pooled per organization and period.
	SharedSpecialityAcronym = "MI"
	// EmergencySpecialityAcronym marks the speciality placed over two consecutive periods.
	EmergencySpecialityAcronym = "UR"
)

// SpecialityKindFromAcronym resolves the kind once at load time.
func SpecialityKindFromAcronym(acronym string) SpecialityKind {
	switch strings.ToUpper(strings.TrimSpace(acronym)) {
	case SharedSpecialityAcronym:
		return SpecialityKindShared
	case EmergencySpecialityAcronym:
		return SpecialityKindEmergency
	default:
		return SpecialityKindStandard
	}
}

// Organization is a hospital offering internships.
type Organization struct {
	ID        string   `db:"id" json:"id" yaml:"id"`
	Reference string   `db:"reference" json:"reference" yaml:"reference"`
	Name      string   `db:"name" json:"name" yaml:"name"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty" yaml:"latitude"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty" yaml:"longitude"`
}

// ReferenceNumber parses the numeric reference, returning -1 when it is not numeric.
func (o Organization) ReferenceNumber() int {
	n, err := strconv.Atoi(strings.TrimSpace(o.Reference))
	if err != nil {
		return -1
	}
	return n
}

// HasAddress reports whether coordinates are known.
func (o Organization) HasAddress() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// Speciality is an internship discipline.
type Speciality struct {
	ID        string         `db:"id" json:"id" yaml:"id"`
	Name      string         `db:"name" json:"name" yaml:"name"`
	Acronym   string         `db:"acronym" json:"acronym" yaml:"acronym"`
	Mandatory bool           `db:"mandatory" json:"mandatory" yaml:"mandatory"`
	Position  *int           `db:"position" json:"position,omitempty" yaml:"position"`
	Kind      SpecialityKind `db:"-" json:"kind" yaml:"-"`
}

// Period is one of the twelve internship slots.
type Period struct {
	ID   string `db:"id" json:"id" yaml:"id"`
	Name string `db:"name" json:"name" yaml:"name"`
}

// ParsePeriodNumber extracts the ordinal from names such as "P7".
func ParsePeriodNumber(name string) (int, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 || (trimmed[0] != 'P' && trimmed[0] != 'p') {
		return 0, fmt.Errorf("invalid period name %q", name)
	}
	n, err := strconv.Atoi(trimmed[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid period name %q: %w", name, err)
	}
	return n, nil
}

// InternshipStudent is a student requiring placement.
type InternshipStudent struct {
	ID        string   `db:"id" json:"id" yaml:"id"`
	FirstName string   `db:"first_name" json:"first_name" yaml:"first_name"`
	LastName  string   `db:"last_name" json:"last_name" yaml:"last_name"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty" yaml:"latitude"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty" yaml:"longitude"`
	Priority  bool     `db:"priority" json:"priority" yaml:"priority"`
}

// HasAddress reports whether coordinates are known.
func (s InternshipStudent) HasAddress() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// FullName joins last and first name.
func (s InternshipStudent) FullName() string {
	return strings.TrimSpace(s.LastName + " " + s.FirstName)
}

// InternshipChoice is a ranked preference for an organization in a speciality.
type InternshipChoice struct {
	ID             string `db:"id" json:"id" yaml:"id"`
	StudentID      string `db:"student_id" json:"student_id" yaml:"student_id"`
	OrganizationID string `db:"organization_id" json:"organization_id" yaml:"organization_id"`
	SpecialityID   string `db:"speciality_id" json:"speciality_id" yaml:"speciality_id"`
	Rank           int    `db:"choice" json:"choice" yaml:"choice"`
	Priority       bool   `db:"priority" json:"priority" yaml:"priority"`
}

// InternshipEnrollment is a pre-existing erasmus placement.
type InternshipEnrollment struct {
	ID             string `db:"id" json:"id" yaml:"id"`
	StudentID      string `db:"student_id" json:"student_id" yaml:"student_id"`
	OrganizationID string `db:"organization_id" json:"organization_id" yaml:"organization_id"`
	SpecialityID   string `db:"speciality_id" json:"speciality_id" yaml:"speciality_id"`
	PeriodID       string `db:"period_id" json:"period_id" yaml:"period_id"`
}

// PeriodPlaces declares the capacity of an organization/speciality/period cell.
type PeriodPlaces struct {
	ID             string `db:"id" json:"id" yaml:"id"`
	OrganizationID string `db:"organization_id" json:"organization_id" yaml:"organization_id"`
	SpecialityID   string `db:"speciality_id" json:"speciality_id" yaml:"speciality_id"`
	PeriodID       string `db:"period_id" json:"period_id" yaml:"period_id"`
	NumberPlaces   int    `db:"number_places" json:"number_places" yaml:"number_places"`
}

// AffectationRecord is a persisted placement of the best solution.
type AffectationRecord struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	OrganizationID   string    `db:"organization_id" json:"organization_id"`
	SpecialityID     string    `db:"speciality_id" json:"speciality_id"`
	PeriodID         string    `db:"period_id" json:"period_id"`
	Choice           string    `db:"choice" json:"choice"`
	Type             string    `db:"type_of_internship" json:"type_of_internship"`
	Cost             int       `db:"cost" json:"cost"`
	ConsecutiveMonth int       `db:"consecutive_month" json:"consecutive_month"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// AffectationDetail joins display fields onto a record.
type AffectationDetail struct {
	AffectationRecord
	StudentFirstName      string `db:"student_first_name" json:"student_first_name"`
	StudentLastName       string `db:"student_last_name" json:"student_last_name"`
	OrganizationReference string `db:"organization_reference" json:"organization_reference"`
	OrganizationName      string `db:"organization_name" json:"organization_name"`
	SpecialityAcronym     string `db:"speciality_acronym" json:"speciality_acronym"`
	SpecialityName        string `db:"speciality_name" json:"speciality_name"`
	PeriodName            string `db:"period_name" json:"period_name"`
}

// AffectationFilter narrows persisted record listings.
type AffectationFilter struct {
	StudentID      string
	OrganizationID string
	SpecialityID   string
	Choice         string
}
