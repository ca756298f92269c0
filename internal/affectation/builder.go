package affectation

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/internship-affectation/internal/models"
)

type errorEntry struct {
	StudentID    string
	SpecialityID string
	Period       int
	Choices      []choiceRef
	Priority     bool
}

// trial owns every piece of mutable state of one build. Nothing is shared between trials
// except the read-only index.
type trial struct {
	idx       *index
	opts      Options
	rng       *rand.Rand
	capacity  *CapacityTable
	solutions map[string]*StudentSolution
	distances map[studentSpeciality][]rankedOrganization
	errors    []errorEntry
	report    Report
	logger    *zap.Logger
}

func newTrial(idx *index, opts Options, seed int64, logger *zap.Logger) *trial {
	t := &trial{
		idx:       idx,
		opts:      opts,
		rng:       rand.New(rand.NewSource(seed)),
		capacity:  idx.template.Clone(),
		solutions: make(map[string]*StudentSolution, len(idx.students)),
		distances: make(map[studentSpeciality][]rankedOrganization),
		logger:    logger,
	}
	for _, student := range idx.students {
		t.solutions[student.ID] = newStudentSolution(student.ID)
	}
	return t
}

// build runs every phase in order and flattens the outcome.
func (t *trial) build() *Solution {
	phases := []struct {
		name Phase
		fn   func()
	}{
		{PhaseErasmus, t.fillErasmus},
		{PhaseEmergencyPriority, func() { t.fillEmergency(true) }},
		{PhaseEmergencyNormal, func() { t.fillEmergency(false) }},
		{PhaseOthersPriority, func() { t.fillOthers(true) }},
		{PhaseOthersNormal, func() { t.fillOthers(false) }},
		{PhaseErrorSwap, t.swapErrors},
		{PhaseEmptySwap, t.swapEmpty},
	}
	for _, phase := range phases {
		start := time.Now()
		phase.fn()
		t.logger.Debug("affectation phase completed",
			zap.String("phase", string(phase.name)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return t.flatten()
}

// shift rotates the list by a random offset.
func (t *trial) shift(students []studentDemand) []studentDemand {
	if len(students) == 0 {
		return nil
	}
	offset := t.rng.Intn(len(students))
	rotated := make([]studentDemand, 0, len(students))
	rotated = append(rotated, students[offset:]...)
	return append(rotated, students[:offset]...)
}

// commit consumes capacity for the placements and stores them in the student's solution.
func (t *trial) commit(placements []*Placement) error {
	for i, p := range placements {
		if err := t.capacity.Decrease(p.OrganizationID, p.SpecialityID, p.Period); err != nil {
			for _, done := range placements[:i] {
				_ = t.capacity.Increase(done.OrganizationID, done.SpecialityID, done.Period)
			}
			return err
		}
	}
	sol := t.solutions[placements[0].StudentID]
	for _, p := range placements {
		sol.set(p)
	}
	sol.updateScores()
	return nil
}

func (t *trial) fail(studentID, specID string, phase Phase, err error) {
	t.report.Failures = append(t.report.Failures, StudentFailure{
		StudentID:    studentID,
		SpecialityID: specID,
		Phase:        phase,
		Reason:       err.Error(),
		Err:          err,
	})
	t.logger.Warn("affectation placement failed",
		zap.String("student_id", studentID),
		zap.String("speciality_id", specID),
		zap.String("phase", string(phase)),
		zap.Error(err),
	)
}

// fillErasmus places exchange enrollments verbatim. Enrollments whose cell is full or whose
// period is already taken are dropped and reported.
func (t *trial) fillErasmus() {
	for _, enrollment := range t.idx.enrollments {
		period := t.idx.periodNumbers[enrollment.PeriodID]
		sol := t.solutions[enrollment.StudentID]
		if sol.Get(period) != nil || !t.capacity.Available(enrollment.OrganizationID, enrollment.SpecialityID, period) {
			t.dropEnrollment(enrollment)
			continue
		}
		p := t.newPlacement(enrollment.StudentID, enrollment.OrganizationID, enrollment.SpecialityID, period, CodeErasmus, KindErasmus)
		if err := t.commit([]*Placement{p}); err != nil {
			t.dropEnrollment(enrollment)
		}
	}
}

func (t *trial) dropEnrollment(enrollment models.InternshipEnrollment) {
	t.report.DroppedEnrollments = append(t.report.DroppedEnrollments, enrollment)
	t.logger.Warn("erasmus enrollment dropped",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
	)
}

func (t *trial) demand(priority bool) []specialityDemand {
	if priority {
		return t.idx.priorityDemand
	}
	return t.idx.normalDemand
}

func (t *trial) fillEmergency(priority bool) {
	phase := PhaseEmergencyNormal
	if priority {
		phase = PhaseEmergencyPriority
	}
	for _, demand := range t.demand(priority) {
		if demand.Kind != models.SpecialityKindEmergency {
			continue
		}
		for _, student := range t.shift(demand.Students) {
			placements, err := t.bestChoice(student.StudentID, demand.SpecialityID, student.Choices, priority, true)
			if err != nil {
				t.fail(student.StudentID, demand.SpecialityID, phase, err)
				continue
			}
			if err := t.commit(placements); err != nil {
				t.fail(student.StudentID, demand.SpecialityID, phase, err)
			}
		}
	}
}

func (t *trial) fillOthers(priority bool) {
	phase := PhaseOthersNormal
	if priority {
		phase = PhaseOthersPriority
	}
	for _, demand := range t.demand(priority) {
		if demand.Kind == models.SpecialityKindEmergency {
			continue
		}
		for _, student := range t.shift(demand.Students) {
			placements, err := t.bestChoice(student.StudentID, demand.SpecialityID, student.Choices, priority, false)
			if err != nil {
				t.fail(student.StudentID, demand.SpecialityID, phase, err)
				continue
			}
			if err := t.commit(placements); err != nil {
				t.fail(student.StudentID, demand.SpecialityID, phase, err)
				continue
			}
			if placements[0].Code == CodeError {
				t.errors = append(t.errors, errorEntry{
					StudentID:    student.StudentID,
					SpecialityID: demand.SpecialityID,
					Period:       placements[0].Period,
					Choices:      student.Choices,
					Priority:     priority,
				})
			}
		}
	}
}

// flatten scores every student against the final capacity table.
func (t *trial) flatten() *Solution {
	solution := &Solution{Students: make([]StudentResult, 0, len(t.idx.students))}
	for _, student := range t.idx.students {
		sol := t.solutions[student.ID]
		cost := studentCost(sol, t.capacity)
		solution.Cost += cost
		solution.Students = append(solution.Students, StudentResult{
			StudentID:  student.ID,
			Cost:       cost,
			Placements: sol.placements(),
		})
	}
	t.report.ErrorPlacements = solution.ErrorPlacements()
	return solution
}
