package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/dto"
	"github.com/noah-isme/internship-affectation/internal/models"
	"github.com/noah-isme/internship-affectation/internal/service"
	appErrors "github.com/noah-isme/internship-affectation/pkg/errors"
	"github.com/noah-isme/internship-affectation/pkg/response"
)

type affectationRunner interface {
	Generate(ctx context.Context, req dto.GenerateAffectationRequest) (*dto.GenerateAffectationResponse, error)
	Enqueue(ctx context.Context, req dto.GenerateAffectationRequest) (*dto.AffectationJobResponse, error)
	JobStatus(ctx context.Context, id string) (*dto.AffectationJobResponse, error)
	Statistics(ctx context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, error)
	ListAssignments(ctx context.Context, query dto.ListAssignmentsQuery) ([]affectation.StudentSummary, *models.Pagination, error)
	Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	ResolveDownload(ctx context.Context, token string) (*dto.ExportDownload, error)
}

// AffectationHandler exposes the assignment engine over HTTP.
type AffectationHandler struct {
	service affectationRunner
}

// NewAffectationHandler constructs the handler.
func NewAffectationHandler(svc *service.AffectationService) *AffectationHandler {
	return &AffectationHandler{service: svc}
}

// Register mounts the affectation routes on the group.
func (h *AffectationHandler) Register(group *gin.RouterGroup) {
	routes := group.Group("/affectations")
	routes.GET("", h.List)
	routes.POST("/generate", h.Generate)
	routes.POST("/jobs", h.Enqueue)
	routes.GET("/jobs/:id", h.JobStatus)
	routes.GET("/statistics", h.Statistics)
	routes.POST("/exports", h.Export)
	routes.GET("/exports/:token", h.Download)
}

// bindGenerateRequest accepts an empty body; every run parameter then keeps its configured default.
func bindGenerateRequest(c *gin.Context) (dto.GenerateAffectationRequest, bool) {
	var req dto.GenerateAffectationRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return req, false
	}
	return req, true
}

// Generate godoc
// @Summary Run the assignment engine and persist the best solution
// @Tags Affectations
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAffectationRequest false "Run parameters"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /affectations/generate [post]
func (h *AffectationHandler) Generate(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Enqueue godoc
// @Summary Queue an assignment run
// @Tags Affectations
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAffectationRequest false "Run parameters"
// @Success 202 {object} response.Envelope
// @Router /affectations/jobs [post]
func (h *AffectationHandler) Enqueue(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	status, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, status)
}

// JobStatus godoc
// @Summary Get the state of a queued run
// @Tags Affectations
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /affectations/jobs/{id} [get]
func (h *AffectationHandler) JobStatus(c *gin.Context) {
	status, err := h.service.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Statistics godoc
// @Summary Statistics and occupancy of the persisted solution
// @Tags Affectations
// @Produce json
// @Param sortOrganization query string false "ref or speciality"
// @Success 200 {object} response.Envelope
// @Router /affectations/statistics [get]
func (h *AffectationHandler) Statistics(c *gin.Context) {
	var query dto.StatisticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.service.Statistics(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List persisted assignments per student
// @Tags Affectations
// @Produce json
// @Param sort query string false "name or score"
// @Param studentId query string false "Student ID"
// @Param organizationId query string false "Organization ID"
// @Param specialityId query string false "Speciality ID"
// @Param choice query string false "Choice code (1-4, I, X, E)"
// @Param page query int false "Page"
// @Param pageSize query int false "Students per page"
// @Success 200 {object} response.Envelope
// @Router /affectations [get]
func (h *AffectationHandler) List(c *gin.Context) {
	var query dto.ListAssignmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, pagination, err := h.service.ListAssignments(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, pagination)
}

// Export godoc
// @Summary Render the persisted assignments as CSV, PDF or XLSX
// @Tags Affectations
// @Produce json
// @Param format query string true "csv, pdf or xlsx"
// @Success 201 {object} response.Envelope
// @Router /affectations/exports [post]
func (h *AffectationHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an assignment export through its signed token
// @Tags Affectations
// @Produce octet-stream
// @Param token path string true "Download token"
// @Success 200 {file} file
// @Failure 410 {object} response.Envelope
// @Router /affectations/exports/{token} [get]
func (h *AffectationHandler) Download(c *gin.Context) {
	file, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
