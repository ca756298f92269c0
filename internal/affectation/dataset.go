// Package affectation assigns internship students to organizations across the twelve periods.
package affectation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/internship-affectation/internal/models"
)

const (
	// PeriodCount is the number of periods in a school year.
	PeriodCount = 12
	// MandatoryPeriodCount is the number of leading periods every student must fill.
	MandatoryPeriodCount = 8
)

// Dataset is everything a run reads from the data source.
type Dataset struct {
	Students      []models.InternshipStudent
	Organizations []models.Organization
	Specialities  []models.Speciality
	Periods       []models.Period
	Places        []models.PeriodPlaces
	Choices       []models.InternshipChoice
	Enrollments   []models.InternshipEnrollment
}

// IsMandatoryPeriod reports whether the period number must be filled.
func IsMandatoryPeriod(number int) bool {
	return number >= 1 && number <= MandatoryPeriodCount
}

type choiceRef struct {
	OrganizationID string
	Code           string
}

type studentSpeciality struct {
	StudentID    string
	SpecialityID string
}

type studentDemand struct {
	StudentID string
	Choices   []choiceRef
}

type specialityDemand struct {
	SpecialityID string
	Kind         models.SpecialityKind
	Students     []studentDemand
}

// index is the immutable, validated view of a dataset shared by every trial of a run.
type index struct {
	organizations  map[string]*models.Organization
	orgRefs        map[string]int
	orgIDs         []string
	specialities   map[string]*models.Speciality
	kinds          map[string]models.SpecialityKind
	periodNumbers  map[string]int
	periodIDs      [PeriodCount + 1]string
	students       []*models.InternshipStudent
	studentByID    map[string]*models.InternshipStudent
	choices        map[studentSpeciality][]choiceRef
	choicesByCell  map[string][]models.InternshipChoice
	enrollments    []models.InternshipEnrollment
	erasmus        map[studentSpeciality]bool
	specOrder      []string
	priorityDemand []specialityDemand
	normalDemand   []specialityDemand
	offers         map[string][]string
	errorOrgID     string
	editOrgID      string
	erasmusRef     int
	template       *CapacityTable
}

func buildIndex(ds *Dataset, opts Options) (*index, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", ErrInvalidDataset)
	}
	idx := &index{
		organizations: make(map[string]*models.Organization, len(ds.Organizations)),
		orgRefs:       make(map[string]int, len(ds.Organizations)),
		specialities:  make(map[string]*models.Speciality, len(ds.Specialities)),
		kinds:         make(map[string]models.SpecialityKind, len(ds.Specialities)),
		periodNumbers: make(map[string]int, len(ds.Periods)),
		studentByID:   make(map[string]*models.InternshipStudent, len(ds.Students)),
		choices:       make(map[studentSpeciality][]choiceRef),
		choicesByCell: make(map[string][]models.InternshipChoice),
		erasmus:       make(map[studentSpeciality]bool),
		offers:        make(map[string][]string),
		erasmusRef:    opts.ErasmusReferenceThreshold,
	}

	for i := range ds.Organizations {
		org := &ds.Organizations[i]
		if _, dup := idx.organizations[org.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate organization %s", ErrInvalidDataset, org.ID)
		}
		idx.organizations[org.ID] = org
		idx.orgRefs[org.ID] = org.ReferenceNumber()
		idx.orgIDs = append(idx.orgIDs, org.ID)
		switch strings.TrimSpace(org.Reference) {
		case opts.ErrorOrganizationRef:
			idx.errorOrgID = org.ID
		case opts.EditOrganizationRef:
			idx.editOrgID = org.ID
		}
	}
	if idx.errorOrgID == "" {
		return nil, fmt.Errorf("%w: error organization %s", ErrUnknownReference, opts.ErrorOrganizationRef)
	}
	idx.sortOrganizations(idx.orgIDs)

	for i := range ds.Specialities {
		spec := &ds.Specialities[i]
		if _, dup := idx.specialities[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate speciality %s", ErrInvalidDataset, spec.ID)
		}
		idx.specialities[spec.ID] = spec
		idx.kinds[spec.ID] = models.SpecialityKindFromAcronym(spec.Acronym)
	}
	idx.specOrder = orderSpecialities(ds.Specialities)

	for _, period := range ds.Periods {
		number, err := models.ParsePeriodNumber(period.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
		}
		if number < 1 || number > PeriodCount {
			return nil, fmt.Errorf("%w: period %s out of range", ErrInvalidDataset, period.Name)
		}
		if idx.periodIDs[number] != "" {
			return nil, fmt.Errorf("%w: duplicate period %s", ErrInvalidDataset, period.Name)
		}
		idx.periodIDs[number] = period.ID
		idx.periodNumbers[period.ID] = number
	}
	for p := 1; p <= MandatoryPeriodCount; p++ {
		if idx.periodIDs[p] == "" {
			return nil, fmt.Errorf("%w: mandatory period P%d missing", ErrInvalidDataset, p)
		}
	}

	for i := range ds.Students {
		student := &ds.Students[i]
		if _, dup := idx.studentByID[student.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate student %s", ErrInvalidDataset, student.ID)
		}
		idx.studentByID[student.ID] = student
		idx.students = append(idx.students, student)
	}
	sort.Slice(idx.students, func(i, j int) bool { return idx.students[i].ID < idx.students[j].ID })

	for _, place := range ds.Places {
		if err := idx.checkCell(place.OrganizationID, place.SpecialityID, place.PeriodID); err != nil {
			return nil, fmt.Errorf("places %s: %w", place.ID, err)
		}
	}
	template, err := NewCapacityTable(ds.Places, idx.periodNumbers, idx.kinds, idx.errorOrgID)
	if err != nil {
		return nil, err
	}
	idx.template = template

	offered := make(map[string]map[string]bool)
	for _, place := range ds.Places {
		if offered[place.SpecialityID] == nil {
			offered[place.SpecialityID] = make(map[string]bool)
		}
		if !offered[place.SpecialityID][place.OrganizationID] {
			offered[place.SpecialityID][place.OrganizationID] = true
			idx.offers[place.SpecialityID] = append(idx.offers[place.SpecialityID], place.OrganizationID)
		}
	}
	for spec := range idx.offers {
		idx.sortOrganizations(idx.offers[spec])
	}

	enrollments := append([]models.InternshipEnrollment(nil), ds.Enrollments...)
	for _, enrollment := range enrollments {
		if _, ok := idx.studentByID[enrollment.StudentID]; !ok {
			return nil, fmt.Errorf("enrollment %s: %w: student %s", enrollment.ID, ErrUnknownReference, enrollment.StudentID)
		}
		if err := idx.checkCell(enrollment.OrganizationID, enrollment.SpecialityID, enrollment.PeriodID); err != nil {
			return nil, fmt.Errorf("enrollment %s: %w", enrollment.ID, err)
		}
		idx.erasmus[studentSpeciality{enrollment.StudentID, enrollment.SpecialityID}] = true
	}
	sort.SliceStable(enrollments, func(i, j int) bool {
		if enrollments[i].StudentID != enrollments[j].StudentID {
			return enrollments[i].StudentID < enrollments[j].StudentID
		}
		return idx.periodNumbers[enrollments[i].PeriodID] < idx.periodNumbers[enrollments[j].PeriodID]
	})
	idx.enrollments = enrollments

	ranked := append([]models.InternshipChoice(nil), ds.Choices...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	for _, choice := range ranked {
		if _, ok := idx.studentByID[choice.StudentID]; !ok {
			return nil, fmt.Errorf("choice %s: %w: student %s", choice.ID, ErrUnknownReference, choice.StudentID)
		}
		if _, ok := idx.organizations[choice.OrganizationID]; !ok {
			return nil, fmt.Errorf("choice %s: %w: organization %s", choice.ID, ErrUnknownReference, choice.OrganizationID)
		}
		if _, ok := idx.specialities[choice.SpecialityID]; !ok {
			return nil, fmt.Errorf("choice %s: %w: speciality %s", choice.ID, ErrUnknownReference, choice.SpecialityID)
		}
		code, err := RankCode(choice.Rank)
		if err != nil {
			return nil, fmt.Errorf("choice %s: %w", choice.ID, err)
		}
		key := studentSpeciality{choice.StudentID, choice.SpecialityID}
		idx.choices[key] = append(idx.choices[key], choiceRef{OrganizationID: choice.OrganizationID, Code: code})
		cell := choice.OrganizationID + "|" + choice.SpecialityID
		idx.choicesByCell[cell] = append(idx.choicesByCell[cell], choice)
	}
	idx.priorityDemand = idx.demand(true)
	idx.normalDemand = idx.demand(false)

	return idx, nil
}

func (idx *index) checkCell(orgID, specID, periodID string) error {
	if _, ok := idx.organizations[orgID]; !ok {
		return fmt.Errorf("%w: organization %s", ErrUnknownReference, orgID)
	}
	if _, ok := idx.specialities[specID]; !ok {
		return fmt.Errorf("%w: speciality %s", ErrUnknownReference, specID)
	}
	if _, ok := idx.periodNumbers[periodID]; !ok {
		return fmt.Errorf("%w: period %s", ErrUnknownReference, periodID)
	}
	return nil
}

// sortOrganizations orders organization ids by numeric reference, then id.
func (idx *index) sortOrganizations(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		ri, rj := idx.orgRefs[ids[i]], idx.orgRefs[ids[j]]
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
}

// isErasmusOrganization reports organizations reserved to exchange placements.
func (idx *index) isErasmusOrganization(orgID string) bool {
	return idx.orgRefs[orgID] >= idx.erasmusRef
}

// demand groups ranked choices per speciality for one student group, in processing order.
func (idx *index) demand(priority bool) []specialityDemand {
	result := make([]specialityDemand, 0, len(idx.specOrder))
	for _, specID := range idx.specOrder {
		entry := specialityDemand{SpecialityID: specID, Kind: idx.kinds[specID]}
		for _, student := range idx.students {
			if student.Priority != priority {
				continue
			}
			key := studentSpeciality{student.ID, specID}
			if idx.erasmus[key] {
				continue
			}
			choices := idx.choices[key]
			if len(choices) == 0 {
				continue
			}
			entry.Students = append(entry.Students, studentDemand{StudentID: student.ID, Choices: choices})
		}
		if len(entry.Students) > 0 {
			result = append(result, entry)
		}
	}
	return result
}

// orderSpecialities puts unpositioned specialities first by name, then positioned ones ascending.
func orderSpecialities(specs []models.Speciality) []string {
	ordered := append([]models.Speciality(nil), specs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i].Position, ordered[j].Position
		switch {
		case pi == nil && pj == nil:
			if ordered[i].Name != ordered[j].Name {
				return ordered[i].Name < ordered[j].Name
			}
			return ordered[i].ID < ordered[j].ID
		case pi == nil:
			return true
		case pj == nil:
			return false
		case *pi != *pj:
			return *pi < *pj
		default:
			return ordered[i].ID < ordered[j].ID
		}
	})
	ids := make([]string, 0, len(ordered))
	for _, spec := range ordered {
		ids = append(ids, spec.ID)
	}
	return ids
}
