package dto

import (
	"time"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/pkg/jobs"
)

// GenerateAffectationRequest starts a run of the assignment engine.
// Zero values fall back to the configured defaults.
type GenerateAffectationRequest struct {
	Executions int    `json:"executions" validate:"omitempty,min=1"`
	Seed       *int64 `json:"seed"`
	Workers    int    `json:"workers" validate:"omitempty,min=1,max=64"`
}

// GenerateAffectationResponse summarises a finished run.
type GenerateAffectationResponse struct {
	RunID           string                 `json:"runId"`
	Executions      int                    `json:"executions"`
	Seed            int64                  `json:"seed"`
	BestCost        int                    `json:"bestCost"`
	BestTrial       int                    `json:"bestTrial"`
	Costs           []int                  `json:"costs"`
	History         []int                  `json:"history"`
	Persisted       int                    `json:"persisted"`
	Placements      int                    `json:"placements"`
	ErrorPlacements int                    `json:"errorPlacements"`
	Report          affectation.Report     `json:"report"`
	Statistics      affectation.Statistics `json:"statistics"`
	Duration        string                 `json:"duration"`
	FinishedAt      time.Time              `json:"finishedAt"`
}

// AffectationJobResponse reports the state of an asynchronous run.
type AffectationJobResponse struct {
	jobs.Status
}

// StatisticsQuery selects how the occupancy table is ordered.
type StatisticsQuery struct {
	SortOrganization string `form:"sortOrganization" validate:"omitempty,oneof=ref speciality"`
}

// StatisticsResponse describes the persisted solution.
type StatisticsResponse struct {
	Statistics  affectation.Statistics     `json:"statistics"`
	Occupancy   []affectation.OccupancyRow `json:"occupancy"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

// ListAssignmentsQuery filters and orders persisted assignments.
type ListAssignmentsQuery struct {
	Sort           string `form:"sort" validate:"omitempty,oneof=name score"`
	StudentID      string `form:"studentId"`
	OrganizationID string `form:"organizationId"`
	SpecialityID   string `form:"specialityId"`
	Choice         string `form:"choice" validate:"omitempty,oneof=1 2 3 4 I X E"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PageSize       int    `form:"pageSize" validate:"omitempty,min=1,max=500"`
}

// ExportRequest selects the assignment sheet format.
type ExportRequest struct {
	Format string `form:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportResponse points at a stored export.
type ExportResponse struct {
	ExportID  string    `json:"exportId"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportDownload is a resolved export file.
type ExportDownload struct {
	Filename    string
	ContentType string
	Content     []byte
}
