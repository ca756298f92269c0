package affectation

import "github.com/noah-isme/internship-affectation/internal/models"

// Phase names a step of the solution builder.
type Phase string

const (
	PhaseErasmus           Phase = "erasmus"
	PhaseEmergencyPriority Phase = "emergency_priority"
	PhaseEmergencyNormal   Phase = "emergency_normal"
	PhaseOthersPriority    Phase = "others_priority"
	PhaseOthersNormal      Phase = "others_normal"
	PhaseErrorSwap         Phase = "error_swap"
	PhaseEmptySwap         Phase = "empty_swap"
)

// StudentFailure records a placement attempt that could not complete.
type StudentFailure struct {
	StudentID    string `json:"student_id"`
	SpecialityID string `json:"speciality_id"`
	Phase        Phase  `json:"phase"`
	Reason       string `json:"reason"`
	Err          error  `json:"-"`
}

// Report summarises what a trial could not do.
type Report struct {
	Failures                []StudentFailure              `json:"failures"`
	DroppedEnrollments      []models.InternshipEnrollment `json:"dropped_enrollments"`
	ErrorPlacements         int                           `json:"error_placements"`
	SwappedErrors           int                           `json:"swapped_errors"`
	RedistributedPlacements int                           `json:"redistributed_placements"`
}

// HasFailures reports whether any student failed a phase.
func (r Report) HasFailures() bool {
	return len(r.Failures) > 0
}
