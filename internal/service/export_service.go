package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/internship-affectation/internal/dto"
	"github.com/noah-isme/internship-affectation/internal/models"
	appErrors "github.com/noah-isme/internship-affectation/pkg/errors"
	"github.com/noah-isme/internship-affectation/pkg/export"
	"github.com/noah-isme/internship-affectation/pkg/storage"
)

// Assignment sheet columns.
const (
	columnStudent          = "Student"
	columnPeriod           = "Period"
	columnReference        = "Ref"
	columnOrganization     = "Organization"
	columnSpeciality       = "Speciality"
	columnChoice           = "Choice"
	columnType             = "Type"
	columnCost             = "Cost"
	columnConsecutiveMonth = "Non consecutive"
)

var assignmentColumns = []string{
	columnStudent, columnPeriod, columnReference, columnOrganization, columnSpeciality,
	columnChoice, columnType, columnCost, columnConsecutiveMonth,
}

type affectationDetailReader interface {
	ListDetails(ctx context.Context, filter models.AffectationFilter) ([]models.AffectationDetail, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders assignment sheets and persists them behind signed links.
type ExportService struct {
	affectations affectationDetailReader
	store        storage.Store
	signer       *storage.SignedURLSigner
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          ExportConfig
	now          func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(affectations affectationDetailReader, store storage.Store, signer *storage.SignedURLSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		affectations: affectations,
		store:        store,
		signer:       signer,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Generate renders the persisted assignments in the requested format and stores the file.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	renderer, err := export.ForFormat(req.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	details, err := s.affectations.ListDetails(ctx, models.AffectationFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	table := buildAssignmentTable(details)
	payload, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	key := s.buildKey(exportID, renderer.Extension())
	if err := s.store.Save(ctx, key, renderer.ContentType(), payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	s.metrics.ObserveExport(renderer.Extension())
	s.logger.Info("assignment export stored",
		zap.String("export_id", exportID),
		zap.String("key", key),
		zap.Int("rows", len(table.Rows)),
	)

	return &dto.ExportResponse{
		ExportID:  exportID,
		Format:    renderer.Extension(),
		Rows:      len(table.Rows),
		Token:     token,
		URL:       s.downloadURL(token),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a token and loads the stored file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*dto.ExportDownload, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.ErrLinkExpired
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	content, err := s.store.Load(ctx, claims.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export")
	}
	ext := strings.TrimPrefix(path.Ext(claims.Key), ".")
	renderer, err := export.ForFormat(ext)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	return &dto.ExportDownload{
		Filename:    path.Base(claims.Key),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

type expiringStore interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// Cleanup removes exports older than the result TTL when the store supports it.
func (s *ExportService) Cleanup() (int, error) {
	cleaner, ok := s.store.(expiringStore)
	if !ok {
		return 0, nil
	}
	deleted, err := cleaner.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

func (s *ExportService) buildKey(exportID, ext string) string {
	return fmt.Sprintf("%s/affectations-%s.%s", s.now().UTC().Format("20060102"), exportID, ext)
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/affectations/exports/%s", prefix, token)
}

func buildAssignmentTable(details []models.AffectationDetail) export.Table {
	table := export.Table{
		Title:   "Internship assignments",
		Headers: assignmentColumns,
		Rows:    make([]map[string]string, 0, len(details)),
	}
	for _, d := range details {
		table.Rows = append(table.Rows, map[string]string{
			columnStudent:          strings.TrimSpace(d.StudentLastName + " " + d.StudentFirstName),
			columnPeriod:           d.PeriodName,
			columnReference:        d.OrganizationReference,
			columnOrganization:     d.OrganizationName,
			columnSpeciality:       d.SpecialityAcronym,
			columnChoice:           d.Choice,
			columnType:             d.Type,
			columnCost:             strconv.Itoa(d.Cost),
			columnConsecutiveMonth: strconv.Itoa(d.ConsecutiveMonth),
		})
	}
	return table
}
