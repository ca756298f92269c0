package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/dto"
	"github.com/noah-isme/internship-affectation/internal/models"
	appErrors "github.com/noah-isme/internship-affectation/pkg/errors"
	"github.com/noah-isme/internship-affectation/pkg/jobs"
)

type affectationRunnerMock struct {
	generateReq dto.GenerateAffectationRequest
	statsQuery  dto.StatisticsQuery
	listQuery   dto.ListAssignmentsQuery
	exportReq   dto.ExportRequest
	generateErr error
	downloadErr error
}

func (m *affectationRunnerMock) Generate(_ context.Context, req dto.GenerateAffectationRequest) (*dto.GenerateAffectationResponse, error) {
	m.generateReq = req
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &dto.GenerateAffectationResponse{RunID: "run-1", BestCost: 42, Executions: 3}, nil
}

func (m *affectationRunnerMock) Enqueue(_ context.Context, req dto.GenerateAffectationRequest) (*dto.AffectationJobResponse, error) {
	m.generateReq = req
	return &dto.AffectationJobResponse{Status: jobs.Status{ID: "job-1", State: jobs.StateQueued}}, nil
}

func (m *affectationRunnerMock) JobStatus(_ context.Context, id string) (*dto.AffectationJobResponse, error) {
	if id != "job-1" {
		return nil, appErrors.ErrJobNotFound
	}
	return &dto.AffectationJobResponse{Status: jobs.Status{ID: id, State: jobs.StateFinished}}, nil
}

func (m *affectationRunnerMock) Statistics(_ context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, error) {
	m.statsQuery = query
	return &dto.StatisticsResponse{Statistics: affectation.Statistics{TotalStudents: 2}}, nil
}

func (m *affectationRunnerMock) ListAssignments(_ context.Context, query dto.ListAssignmentsQuery) ([]affectation.StudentSummary, *models.Pagination, error) {
	m.listQuery = query
	return []affectation.StudentSummary{{StudentID: "stu-1", Cost: 15}}, &models.Pagination{Page: 1, PageSize: 1, TotalCount: 1}, nil
}

func (m *affectationRunnerMock) Export(_ context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	m.exportReq = req
	return &dto.ExportResponse{ExportID: "exp-1", Format: req.Format, URL: "/api/v1/affectations/exports/tok"}, nil
}

func (m *affectationRunnerMock) ResolveDownload(_ context.Context, token string) (*dto.ExportDownload, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return &dto.ExportDownload{Filename: "affectations-exp-1.csv", ContentType: "text/csv", Content: []byte("Student\n")}, nil
}

func newAffectationRouter(mock *affectationRunnerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := &AffectationHandler{service: mock}
	handler.Register(router.Group("/api/v1"))
	return router
}

func serve(router *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAffectationHandlerGenerate(t *testing.T) {
	mock := &affectationRunnerMock{}
	w := serve(newAffectationRouter(mock), http.MethodPost, "/api/v1/affectations/generate", []byte(`{"executions":3,"seed":9,"workers":2}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, mock.generateReq.Executions)
	require.NotNil(t, mock.generateReq.Seed)
	assert.Equal(t, int64(9), *mock.generateReq.Seed)
	assert.Equal(t, 2, mock.generateReq.Workers)

	var envelope struct {
		Data dto.GenerateAffectationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "run-1", envelope.Data.RunID)
	assert.Equal(t, 42, envelope.Data.BestCost)
}

func TestAffectationHandlerGenerateEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &affectationRunnerMock{}
	handler := &AffectationHandler{service: mock}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/affectations/generate", nil)

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.GenerateAffectationRequest{}, mock.generateReq)
}

func TestAffectationHandlerGenerateInvalidPayload(t *testing.T) {
	w := serve(newAffectationRouter(&affectationRunnerMock{}), http.MethodPost, "/api/v1/affectations/generate", []byte(`{"executions":`))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAffectationHandlerGenerateDataInconsistency(t *testing.T) {
	mock := &affectationRunnerMock{generateErr: appErrors.Clone(appErrors.ErrDataInconsistency, "unknown organization")}
	w := serve(newAffectationRouter(mock), http.MethodPost, "/api/v1/affectations/generate", []byte(`{}`))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "DATA_INCONSISTENCY")
}

func TestAffectationHandlerJobs(t *testing.T) {
	router := newAffectationRouter(&affectationRunnerMock{})

	w := serve(router, http.MethodPost, "/api/v1/affectations/jobs", []byte(`{"executions":50}`))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"job-1"`)

	w = serve(router, http.MethodGet, "/api/v1/affectations/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"finished"`)

	w = serve(router, http.MethodGet, "/api/v1/affectations/jobs/unknown", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAffectationHandlerStatisticsQuery(t *testing.T) {
	mock := &affectationRunnerMock{}
	w := serve(newAffectationRouter(mock), http.MethodGet, "/api/v1/affectations/statistics?sortOrganization=speciality", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "speciality", mock.statsQuery.SortOrganization)
	assert.Contains(t, w.Body.String(), `"tot_stud":2`)
}

func TestAffectationHandlerList(t *testing.T) {
	mock := &affectationRunnerMock{}
	w := serve(newAffectationRouter(mock), http.MethodGet, "/api/v1/affectations?sort=score&choice=X&page=1&pageSize=1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ListAssignmentsQuery{Sort: "score", Choice: "X", Page: 1, PageSize: 1}, mock.listQuery)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestAffectationHandlerExportAndDownload(t *testing.T) {
	mock := &affectationRunnerMock{}
	router := newAffectationRouter(mock)

	w := serve(router, http.MethodPost, "/api/v1/affectations/exports?format=xlsx", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "xlsx", mock.exportReq.Format)

	w = serve(router, http.MethodGet, "/api/v1/affectations/exports/tok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "affectations-exp-1.csv")
	assert.Equal(t, "Student\n", w.Body.String())
}

func TestAffectationHandlerDownloadExpired(t *testing.T) {
	mock := &affectationRunnerMock{downloadErr: appErrors.ErrLinkExpired}
	w := serve(newAffectationRouter(mock), http.MethodGet, "/api/v1/affectations/exports/tok", nil)
	require.Equal(t, http.StatusGone, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ok := NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return nil }))
	down := NewMetricsHandler(nil, pingerFunc(func(context.Context) error { return context.DeadlineExceeded }))
	router.GET("/ready", ok.Ready)
	router.GET("/down", down.Ready)
	router.GET("/metrics", down.Prometheus)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/down", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/metrics", nil).Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

