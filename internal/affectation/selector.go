package affectation

import (
	"fmt"
	"math"
)

type candidate struct {
	placements []*Placement
	cost       int
}

func placementKind(priority bool) string {
	if priority {
		return KindPriority
	}
	return KindNormal
}

func (t *trial) newPlacement(studentID, orgID, specID string, period int, code, kind string) *Placement {
	return &Placement{
		StudentID:      studentID,
		OrganizationID: orgID,
		SpecialityID:   specID,
		PeriodID:       t.idx.periodIDs[period],
		Period:         period,
		Code:           code,
		Kind:           kind,
	}
}

// keepBest appends c to best when it ties the current minimum and resets best when it beats it.
func keepBest(best []candidate, bestCost *int, c candidate) []candidate {
	switch {
	case c.cost < *bestCost:
		*bestCost = c.cost
		return append(best[:0], c)
	case c.cost == *bestCost:
		return append(best, c)
	default:
		return best
	}
}

// iterateSingle evaluates every open mandatory period for each choice.
func (t *trial) iterateSingle(studentID, specID string, choices []choiceRef, priority bool) ([]candidate, error) {
	sol := t.solutions[studentID]
	open := sol.openPeriods(true)
	if len(open) == 0 {
		return nil, fmt.Errorf("student %s: %w", studentID, ErrNoOpenPeriod)
	}
	kind := placementKind(priority)
	bestCost := math.MaxInt
	var best []candidate
	for _, choice := range choices {
		for _, period := range open {
			if !t.capacity.Available(choice.OrganizationID, specID, period) {
				continue
			}
			p := t.newPlacement(studentID, choice.OrganizationID, specID, period, choice.Code, kind)
			cost := studentCost(sol.with(p), t.capacity)
			best = keepBest(best, &bestCost, candidate{placements: []*Placement{p}, cost: cost})
		}
	}
	return best, nil
}

// iterateEmergency evaluates every pair of consecutive open mandatory periods for each choice.
// Pairs starting on an even period carry an extra penalty.
func (t *trial) iterateEmergency(studentID, specID string, choices []choiceRef, priority bool) ([]candidate, error) {
	sol := t.solutions[studentID]
	pairs := sol.openPairs(true)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("student %s: no consecutive periods: %w", studentID, ErrNoOpenPeriod)
	}
	kind := placementKind(priority)
	bestCost := math.MaxInt
	var best []candidate
	for _, choice := range choices {
		for _, pair := range pairs {
			if !t.capacity.Available(choice.OrganizationID, specID, pair[0]) || !t.capacity.Available(choice.OrganizationID, specID, pair[1]) {
				continue
			}
			first := t.newPlacement(studentID, choice.OrganizationID, specID, pair[0], choice.Code, kind)
			second := t.newPlacement(studentID, choice.OrganizationID, specID, pair[1], choice.Code, kind)
			cost := studentCost(sol.with(first, second), t.capacity)
			if pair[0]%2 == 0 {
				cost += EvenStartPenalty
			}
			best = keepBest(best, &bestCost, candidate{placements: []*Placement{first, second}, cost: cost})
		}
	}
	return best, nil
}

// bestChoice picks the placement(s) for one student in one speciality. When no ranked choice
// fits, priority students go straight to the error organization while normal students walk the
// distance ordered organizations first.
func (t *trial) bestChoice(studentID, specID string, choices []choiceRef, priority, emergency bool) ([]*Placement, error) {
	evaluate := t.iterateSingle
	if emergency {
		evaluate = t.iterateEmergency
	}

	candidates, err := evaluate(studentID, specID, choices, priority)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		errorChoice := []choiceRef{{OrganizationID: t.idx.errorOrgID, Code: CodeError}}
		if priority {
			candidates, err = evaluate(studentID, specID, errorChoice, priority)
			if err != nil {
				return nil, err
			}
		} else {
			exclude := make(map[string]bool)
			for {
				orgID, ok := t.nextNearest(studentID, specID, exclude)
				imposed := errorChoice
				if ok {
					imposed = []choiceRef{{OrganizationID: orgID, Code: CodeImposed}}
				}
				candidates, err = evaluate(studentID, specID, imposed, priority)
				if err != nil {
					return nil, err
				}
				if len(candidates) > 0 || !ok {
					break
				}
				exclude[orgID] = true
			}
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("student %s speciality %s: %w", studentID, specID, ErrNoCapacity)
	}
	return t.pickCandidate(candidates), nil
}

// pickCandidate breaks cost ties by the most remaining places, then uniformly at random.
func (t *trial) pickCandidate(candidates []candidate) []*Placement {
	if len(candidates) == 1 {
		return candidates[0].placements
	}
	maxRoom := math.MinInt
	var roomiest []candidate
	for _, c := range candidates {
		room := 0
		for _, p := range c.placements {
			room += t.capacity.Remaining(p.OrganizationID, p.SpecialityID, p.Period)
		}
		switch {
		case room > maxRoom:
			maxRoom = room
			roomiest = append(roomiest[:0], c)
		case room == maxRoom:
			roomiest = append(roomiest, c)
		}
	}
	return roomiest[t.rng.Intn(len(roomiest))].placements
}
