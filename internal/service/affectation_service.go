package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/dto"
	"github.com/noah-isme/internship-affectation/internal/models"
	appErrors "github.com/noah-isme/internship-affectation/pkg/errors"
	"github.com/noah-isme/internship-affectation/pkg/jobs"
)

// JobTypeGenerate identifies asynchronous generation jobs.
const JobTypeGenerate = "affectation.generate"

type datasetSource interface {
	Load(ctx context.Context) (*affectation.Dataset, error)
}

type affectationStore interface {
	ReplaceAll(ctx context.Context, exec sqlx.ExtContext, records []models.AffectationRecord) error
	List(ctx context.Context, filter models.AffectationFilter) ([]models.AffectationRecord, error)
	ListDetails(ctx context.Context, filter models.AffectationFilter) ([]models.AffectationDetail, error)
}

type affectationEngine interface {
	Options() affectation.Options
	RunWith(ctx context.Context, ds *affectation.Dataset, persister affectation.Persister, opts affectation.Options) (*affectation.Result, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) (jobs.Status, error)
	Status(id string) (jobs.Status, bool)
}

type assignmentExporter interface {
	Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	ResolveDownload(ctx context.Context, token string) (*dto.ExportDownload, error)
}

// AffectationServiceConfig bounds what callers may request.
type AffectationServiceConfig struct {
	DefaultExecutions int
	MaxExecutions     int
	Seed              int64
	Workers           int
	StatisticsTTL     time.Duration
}

// AffectationService runs the assignment engine and serves the persisted solution.
type AffectationService struct {
	source    datasetSource
	store     affectationStore
	tx        txProvider
	engine    affectationEngine
	cache     *CacheService
	metrics   *MetricsService
	exporter  assignmentExporter
	queue     jobQueue
	runSlot   *semaphore.Weighted
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AffectationServiceConfig
	now       func() time.Time
}

// NewAffectationService constructs the service. A nil store or tx provider turns Generate into a dry run.
func NewAffectationService(
	source datasetSource,
	store affectationStore,
	tx txProvider,
	engine affectationEngine,
	cache *CacheService,
	metrics *MetricsService,
	exporter assignmentExporter,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AffectationServiceConfig,
) *AffectationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultExecutions <= 0 {
		cfg.DefaultExecutions = 1
	}
	if cfg.MaxExecutions <= 0 {
		cfg.MaxExecutions = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &AffectationService{
		source:    source,
		store:     store,
		tx:        tx,
		engine:    engine,
		cache:     cache,
		metrics:   metrics,
		exporter:  exporter,
		runSlot:   semaphore.NewWeighted(1),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// UseQueue attaches the queue serving Enqueue and JobStatus.
func (s *AffectationService) UseQueue(queue jobQueue) {
	s.queue = queue
}

func (s *AffectationService) validate(req interface{}) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return nil
}

func (s *AffectationService) runOptions(req dto.GenerateAffectationRequest) (affectation.Options, error) {
	opts := s.engine.Options()
	opts.Executions = req.Executions
	if opts.Executions == 0 {
		opts.Executions = s.cfg.DefaultExecutions
	}
	if opts.Executions > s.cfg.MaxExecutions {
		return opts, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("executions must not exceed %d", s.cfg.MaxExecutions))
	}
	opts.Seed = s.cfg.Seed
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if opts.Seed == 0 {
		opts.Seed = s.now().UnixNano()
	}
	opts.Workers = req.Workers
	if opts.Workers == 0 {
		opts.Workers = s.cfg.Workers
	}
	return opts, nil
}

// Generate runs the engine and persists its best solution.
func (s *AffectationService) Generate(ctx context.Context, req dto.GenerateAffectationRequest) (*dto.GenerateAffectationResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	opts, err := s.runOptions(req)
	if err != nil {
		return nil, err
	}

	// One run at a time: a run replaces every stored assignment on each improvement.
	if err := s.runSlot.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.runSlot.Release(1)

	ds, err := s.source.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load internship data")
	}

	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID), zap.Int("executions", opts.Executions), zap.Int64("seed", opts.Seed))
	log.Info("affectation run started", zap.Int("students", len(ds.Students)), zap.Int("workers", opts.Workers))

	start := s.now()
	var persister affectation.Persister
	if s.store != nil && s.tx != nil {
		persister = affectation.PersisterFunc(s.persist)
	}
	result, err := s.engine.RunWith(ctx, ds, persister, opts)
	s.metrics.ObserveRun(result, time.Since(start))
	if err != nil {
		log.Error("affectation run failed", zap.Error(err))
		return nil, mapEngineError(err)
	}

	finishedAt := s.now().UTC()
	records := result.Solution.Records(finishedAt)
	stats := affectation.ComputeStatistics(records, ds, opts.ErrorOrganizationRef)
	if result.Persisted > 0 {
		if err := s.cache.InvalidateSolution(ctx); err != nil {
			log.Warn("statistics cache not invalidated", zap.Error(err))
		}
	}
	log.Info("affectation run finished",
		zap.Int("best_cost", result.BestCost),
		zap.Int("best_trial", result.BestTrial),
		zap.Int("persisted", result.Persisted),
		zap.Int("failures", len(result.Report.Failures)),
	)

	return &dto.GenerateAffectationResponse{
		RunID:           runID,
		Executions:      result.Executions,
		Seed:            result.Seed,
		BestCost:        result.BestCost,
		BestTrial:       result.BestTrial,
		Costs:           result.Costs,
		History:         result.History,
		Persisted:       result.Persisted,
		Placements:      len(records),
		ErrorPlacements: result.Solution.ErrorPlacements(),
		Report:          result.Report,
		Statistics:      stats,
		Duration:        result.Duration,
		FinishedAt:      finishedAt,
	}, nil
}

// persist replaces every stored assignment with the solution inside one transaction.
func (s *AffectationService) persist(ctx context.Context, solution *affectation.Solution) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin affectation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.store.ReplaceAll(ctx, tx, solution.Records(s.now().UTC())); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit affectation tx: %w", err)
	}
	return nil
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, affectation.ErrUnknownReference), errors.Is(err, affectation.ErrInvalidDataset):
		return appErrors.Wrap(err, appErrors.ErrDataInconsistency.Code, appErrors.ErrDataInconsistency.Status, err.Error())
	case errors.Is(err, affectation.ErrNoCapacity):
		return appErrors.Wrap(err, appErrors.ErrNoCapacity.Code, appErrors.ErrNoCapacity.Status, appErrors.ErrNoCapacity.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "affectation run failed")
	}
}

// Enqueue schedules Generate on the job queue.
func (s *AffectationService) Enqueue(_ context.Context, req dto.GenerateAffectationRequest) (*dto.AffectationJobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "job queue unavailable")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if _, err := s.runOptions(req); err != nil {
		return nil, err
	}
	status, err := s.queue.Enqueue(jobs.Job{Type: JobTypeGenerate, Payload: req})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue run")
	}
	return &dto.AffectationJobResponse{Status: status}, nil
}

// JobStatus reports the state of an asynchronous run.
func (s *AffectationService) JobStatus(_ context.Context, id string) (*dto.AffectationJobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.ErrJobNotFound
	}
	status, ok := s.queue.Status(id)
	if !ok {
		return nil, appErrors.ErrJobNotFound
	}
	return &dto.AffectationJobResponse{Status: status}, nil
}

// Statistics describes the persisted solution.
func (s *AffectationService) Statistics(ctx context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, error) {
	if err := s.validate(query); err != nil {
		return nil, err
	}
	sortBy := query.SortOrganization
	if sortBy == "" {
		sortBy = affectation.SortOccupancyByReference
	}

	var resp dto.StatisticsResponse
	_, err := s.cache.Remember(ctx, CacheKey(CachePrefixStatistics, sortBy), s.cfg.StatisticsTTL, &resp, func() error {
		if s.store == nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "assignment store unavailable")
		}
		records, err := s.store.List(ctx, models.AffectationFilter{})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
		if len(records) == 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "no persisted solution")
		}
		ds, err := s.source.Load(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load internship data")
		}
		resp = dto.StatisticsResponse{
			Statistics:  affectation.ComputeStatistics(records, ds, s.engine.Options().ErrorOrganizationRef),
			Occupancy:   affectation.ComputeOccupancy(records, ds, sortBy),
			GeneratedAt: latestCreatedAt(records),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func latestCreatedAt(records []models.AffectationRecord) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.CreatedAt.After(latest) {
			latest = r.CreatedAt
		}
	}
	return latest
}

// ListAssignments returns persisted placements grouped per student, one page of students at a time.
// A zero page size returns every student.
func (s *AffectationService) ListAssignments(ctx context.Context, query dto.ListAssignmentsQuery) ([]affectation.StudentSummary, *models.Pagination, error) {
	if err := s.validate(query); err != nil {
		return nil, nil, err
	}
	if s.store == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "assignment store unavailable")
	}
	sortBy := query.Sort
	if sortBy == "" {
		sortBy = affectation.SortStudentsByName
	}
	filter := models.AffectationFilter{
		StudentID:      query.StudentID,
		OrganizationID: query.OrganizationID,
		SpecialityID:   query.SpecialityID,
		Choice:         query.Choice,
	}

	var summaries []affectation.StudentSummary
	key := CacheKey(CachePrefixAssignments, sortBy, filter.StudentID, filter.OrganizationID, filter.SpecialityID, filter.Choice)
	_, err := s.cache.Remember(ctx, key, s.cfg.StatisticsTTL, &summaries, func() error {
		details, err := s.store.ListDetails(ctx, filter)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
		records := make([]models.AffectationRecord, 0, len(details))
		students := make([]models.InternshipStudent, 0, len(details))
		for _, d := range details {
			records = append(records, d.AffectationRecord)
			students = append(students, models.InternshipStudent{ID: d.StudentID, FirstName: d.StudentFirstName, LastName: d.StudentLastName})
		}
		summaries = affectation.SummarizeStudents(records, students, sortBy)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	page, pagination := paginate(summaries, query.Page, query.PageSize)
	return page, pagination, nil
}

func paginate(summaries []affectation.StudentSummary, page, size int) ([]affectation.StudentSummary, *models.Pagination) {
	total := len(summaries)
	if size <= 0 {
		return summaries, &models.Pagination{Page: 1, PageSize: total, TotalCount: total}
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return summaries[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

// Export renders the persisted assignments as a downloadable sheet.
func (s *AffectationService) Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports unavailable")
	}
	return s.exporter.Generate(ctx, req)
}

// ResolveDownload returns the export behind a signed token.
func (s *AffectationService) ResolveDownload(ctx context.Context, token string) (*dto.ExportDownload, error) {
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	return s.exporter.ResolveDownload(ctx, token)
}

// AffectationWorker executes queued generation jobs.
type AffectationWorker struct {
	generator interface {
		Generate(ctx context.Context, req dto.GenerateAffectationRequest) (*dto.GenerateAffectationResponse, error)
	}
	logger *zap.Logger
}

// NewAffectationWorker builds a worker around the service.
func NewAffectationWorker(svc *AffectationService, logger *zap.Logger) *AffectationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffectationWorker{generator: svc, logger: logger}
}

// Handle implements jobs.Handler.
func (w *AffectationWorker) Handle(ctx context.Context, job jobs.Job) (interface{}, error) {
	req, ok := job.Payload.(dto.GenerateAffectationRequest)
	if !ok {
		return nil, fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	w.logger.Debug("affectation job picked", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	resp, err := w.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
