package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/models"
)

type fixtureFile struct {
	Organizations []models.Organization         `yaml:"organizations"`
	Specialities  []models.Speciality           `yaml:"specialities"`
	Periods       []models.Period               `yaml:"periods"`
	Places        []models.PeriodPlaces         `yaml:"places"`
	Students      []models.InternshipStudent    `yaml:"students"`
	Choices       []models.InternshipChoice     `yaml:"choices"`
	Enrollments   []models.InternshipEnrollment `yaml:"enrollments"`
}

// FixtureDatasetSource loads a dataset from a YAML document, for offline runs and demos.
// When no periods are listed, P1 to P12 are generated with the period name as identifier.
type FixtureDatasetSource struct {
	path string
}

// NewFixtureDatasetSource reads from the YAML file at path.
func NewFixtureDatasetSource(path string) *FixtureDatasetSource {
	return &FixtureDatasetSource{path: path}
}

// Load parses the fixture file.
func (s *FixtureDatasetSource) Load(_ context.Context) (*affectation.Dataset, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", s.path, err)
	}
	ds, err := DecodeFixture(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", s.path, err)
	}
	return ds, nil
}

// DecodeFixture parses a YAML dataset. Unknown keys are rejected.
func DecodeFixture(r io.Reader) (*affectation.Dataset, error) {
	var file fixtureFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if len(file.Periods) == 0 {
		for n := 1; n <= affectation.PeriodCount; n++ {
			name := "P" + strconv.Itoa(n)
			file.Periods = append(file.Periods, models.Period{ID: name, Name: name})
		}
	}
	for i := range file.Specialities {
		file.Specialities[i].Kind = models.SpecialityKindFromAcronym(file.Specialities[i].Acronym)
	}

	return &affectation.Dataset{
		Students:      file.Students,
		Organizations: file.Organizations,
		Specialities:  file.Specialities,
		Periods:       file.Periods,
		Places:        file.Places,
		Choices:       file.Choices,
		Enrollments:   file.Enrollments,
	}, nil
}
