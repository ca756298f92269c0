package affectation

import (
	"time"

	"github.com/noah-isme/internship-affectation/internal/models"
)

// Placement assigns a student to an organization and speciality for one period.
type Placement struct {
	StudentID      string `json:"student_id"`
	OrganizationID string `json:"organization_id"`
	SpecialityID   string `json:"speciality_id"`
	PeriodID       string `json:"period_id"`
	Period         int    `json:"period"`
	Code           string `json:"choice"`
	Kind           string `json:"type_of_internship"`
	Cost           int    `json:"cost"`
	Consecutive    bool   `json:"consecutive_month"`
}

// StudentSolution holds one placement slot per period, indexed 1..PeriodCount.
type StudentSolution struct {
	StudentID string
	slots     [PeriodCount + 1]*Placement
}

func newStudentSolution(studentID string) *StudentSolution {
	return &StudentSolution{StudentID: studentID}
}

// Get returns the placement at period or nil.
func (s *StudentSolution) Get(period int) *Placement {
	if period < 1 || period > PeriodCount {
		return nil
	}
	return s.slots[period]
}

func (s *StudentSolution) set(p *Placement) {
	s.slots[p.Period] = p
}

func (s *StudentSolution) clear(period int) {
	s.slots[period] = nil
}

func (s *StudentSolution) sameOrganization(period int, orgID string) bool {
	current := s.Get(period)
	return current != nil && current.OrganizationID == orgID
}

// with returns a shallow copy holding the extra placements.
func (s *StudentSolution) with(placements ...*Placement) *StudentSolution {
	clone := *s
	for _, p := range placements {
		clone.slots[p.Period] = p
	}
	return &clone
}

// openPeriods lists unfilled periods of the requested type in ascending order.
func (s *StudentSolution) openPeriods(mandatory bool) []int {
	open := make([]int, 0, PeriodCount)
	for p := 1; p <= PeriodCount; p++ {
		if IsMandatoryPeriod(p) == mandatory && s.slots[p] == nil {
			open = append(open, p)
		}
	}
	return open
}

// openPairs lists consecutive unfilled periods of the same type.
func (s *StudentSolution) openPairs(mandatory bool) [][2]int {
	pairs := make([][2]int, 0, PeriodCount)
	for p := 1; p < PeriodCount; p++ {
		if IsMandatoryPeriod(p) != mandatory || IsMandatoryPeriod(p+1) != mandatory {
			continue
		}
		if s.slots[p] == nil && s.slots[p+1] == nil {
			pairs = append(pairs, [2]int{p, p + 1})
		}
	}
	return pairs
}

// updateScores stores each placement's own cost and consecutive flag.
func (s *StudentSolution) updateScores() {
	for p := 1; p <= PeriodCount; p++ {
		if s.slots[p] == nil {
			continue
		}
		cost, broken := placementCost(s, p)
		s.slots[p].Cost = cost
		s.slots[p].Consecutive = broken
	}
}

func (s *StudentSolution) placements() []Placement {
	result := make([]Placement, 0, PeriodCount)
	for p := 1; p <= PeriodCount; p++ {
		if s.slots[p] != nil {
			result = append(result, *s.slots[p])
		}
	}
	return result
}

// StudentResult is the flattened solution of one student.
type StudentResult struct {
	StudentID  string      `json:"student_id"`
	Cost       int         `json:"cost"`
	Placements []Placement `json:"placements"`
}

// Solution is the flattened outcome of one trial.
type Solution struct {
	Cost     int             `json:"cost"`
	Students []StudentResult `json:"students"`
}

// Placements returns every placement ordered by student then period.
func (s *Solution) Placements() []Placement {
	if s == nil {
		return nil
	}
	var result []Placement
	for _, student := range s.Students {
		result = append(result, student.Placements...)
	}
	return result
}

// ErrorPlacements counts placements at the error organization.
func (s *Solution) ErrorPlacements() int {
	count := 0
	for _, p := range s.Placements() {
		if p.Code == CodeError {
			count++
		}
	}
	return count
}

// MandatoryPlacements counts placements in mandatory periods.
func (s *Solution) MandatoryPlacements() int {
	count := 0
	for _, p := range s.Placements() {
		if IsMandatoryPeriod(p.Period) {
			count++
		}
	}
	return count
}

// Records converts the solution into persistence rows.
func (s *Solution) Records(createdAt time.Time) []models.AffectationRecord {
	placements := s.Placements()
	records := make([]models.AffectationRecord, 0, len(placements))
	for _, p := range placements {
		consecutive := 0
		if p.Consecutive {
			consecutive = 1
		}
		records = append(records, models.AffectationRecord{
			StudentID:        p.StudentID,
			OrganizationID:   p.OrganizationID,
			SpecialityID:     p.SpecialityID,
			PeriodID:         p.PeriodID,
			Choice:           p.Code,
			Type:             p.Kind,
			Cost:             p.Cost,
			ConsecutiveMonth: consecutive,
			CreatedAt:        createdAt,
		})
	}
	return records
}
