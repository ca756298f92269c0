package affectation

import (
	"fmt"
	"strings"

	"github.com/noah-isme/internship-affectation/internal/models"
)

const testErrorOrg = "org-999"

type datasetBuilder struct {
	ds       *Dataset
	priority map[string]bool
	seq      int
}

func newDatasetBuilder() *datasetBuilder {
	ds := &Dataset{
		Organizations: []models.Organization{{ID: testErrorOrg, Reference: "999", Name: "Error"}},
	}
	for i := 1; i <= PeriodCount; i++ {
		ds.Periods = append(ds.Periods, models.Period{ID: periodID(i), Name: fmt.Sprintf("P%d", i)})
	}
	return &datasetBuilder{ds: ds, priority: make(map[string]bool)}
}

func periodID(n int) string {
	return fmt.Sprintf("period-%d", n)
}

func fptr(v float64) *float64 {
	return &v
}

func (b *datasetBuilder) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *datasetBuilder) org(id, ref string, lat, lng float64) *datasetBuilder {
	b.ds.Organizations = append(b.ds.Organizations, models.Organization{
		ID: id, Reference: ref, Name: strings.ToUpper(id), Latitude: fptr(lat), Longitude: fptr(lng),
	})
	return b
}

func (b *datasetBuilder) speciality(id, acronym string) *datasetBuilder {
	b.ds.Specialities = append(b.ds.Specialities, models.Speciality{ID: id, Name: id, Acronym: acronym, Mandatory: true})
	return b
}

func (b *datasetBuilder) student(id string, priority bool, lat, lng float64) *datasetBuilder {
	b.priority[id] = priority
	b.ds.Students = append(b.ds.Students, models.InternshipStudent{
		ID: id, FirstName: id, LastName: strings.ToUpper(id), Priority: priority, Latitude: fptr(lat), Longitude: fptr(lng),
	})
	return b
}

func (b *datasetBuilder) places(org, spec string, n int, periods ...int) *datasetBuilder {
	for _, p := range periods {
		b.ds.Places = append(b.ds.Places, models.PeriodPlaces{
			ID: b.nextID("places"), OrganizationID: org, SpecialityID: spec, PeriodID: periodID(p), NumberPlaces: n,
		})
	}
	return b
}

func (b *datasetBuilder) choice(student, org, spec string, rank int) *datasetBuilder {
	b.ds.Choices = append(b.ds.Choices, models.InternshipChoice{
		ID: b.nextID("choice"), StudentID: student, OrganizationID: org, SpecialityID: spec, Rank: rank, Priority: b.priority[student],
	})
	return b
}

func (b *datasetBuilder) enrollment(student, org, spec string, period int) *datasetBuilder {
	b.ds.Enrollments = append(b.ds.Enrollments, models.InternshipEnrollment{
		ID: b.nextID("enrollment"), StudentID: student, OrganizationID: org, SpecialityID: spec, PeriodID: periodID(period),
	})
	return b
}

func (b *datasetBuilder) build() *Dataset {
	return b.ds
}

func mandatoryPeriods() []int {
	return []int{1, 2, 3, 4, 5, 6, 7, 8}
}

// propertyDataset covers every phase: emergency, shared and standard specialities, priority
// students and one erasmus enrollment. Every student demands exactly eight mandatory periods.
func propertyDataset() *Dataset {
	b := newDatasetBuilder()
	orgs := []string{"o1", "o2", "o3", "o4", "o5"}
	for i, org := range orgs {
		b.org(org, fmt.Sprint(i+1), 50.0+float64(i)/10, 4.0+float64(i)/10)
	}
	b.org("exchange", "600", 48.8, 2.3)

	specs := []struct{ id, acronym string }{
		{"ur", "UR"}, {"mi1", "MI"}, {"mi2", "MI"}, {"a", "A"}, {"b", "B"}, {"c", "C"}, {"d", "D"},
	}
	for _, s := range specs {
		b.speciality(s.id, s.acronym)
	}
	for i, org := range orgs {
		for _, s := range specs {
			b.places(org, s.id, 1+i%2, mandatoryPeriods()...)
		}
	}
	b.places("exchange", "a", 1, 1)

	for k := 0; k < 8; k++ {
		id := fmt.Sprintf("s%d", k+1)
		b.student(id, k < 2, 50.2+float64(k)/20, 4.2-float64(k)/20)
		for _, s := range specs {
			for rank := 1; rank <= 4; rank++ {
				b.choice(id, orgs[(k+rank)%len(orgs)], s.id, rank)
			}
		}
	}
	b.enrollment("s3", "exchange", "a", 1)
	return b.build()
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	return opts
}
