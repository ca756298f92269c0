package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/internship-affectation/internal/dto"
	"github.com/noah-isme/internship-affectation/internal/models"
	appErrors "github.com/noah-isme/internship-affectation/pkg/errors"
	"github.com/noah-isme/internship-affectation/pkg/storage"
)

type detailReaderStub struct {
	details []models.AffectationDetail
	err     error
}

func (s detailReaderStub) ListDetails(context.Context, models.AffectationFilter) ([]models.AffectationDetail, error) {
	return s.details, s.err
}

func sampleDetails() []models.AffectationDetail {
	return []models.AffectationDetail{
		{
			AffectationRecord: models.AffectationRecord{
				StudentID: "stu-1", OrganizationID: "org-1", SpecialityID: "ur", PeriodID: "P1",
				Choice: "1", Type: "N", Cost: 0,
			},
			StudentFirstName: "Ada", StudentLastName: "Lovelace",
			OrganizationReference: "1", OrganizationName: "Saint-Luc",
			SpecialityAcronym: "UR", SpecialityName: "Urgences", PeriodName: "P1",
		},
		{
			AffectationRecord: models.AffectationRecord{
				StudentID: "stu-1", OrganizationID: "org-2", SpecialityID: "ch", PeriodID: "P3",
				Choice: "I", Type: "N", Cost: 15, ConsecutiveMonth: 1,
			},
			StudentFirstName: "Ada", StudentLastName: "Lovelace",
			OrganizationReference: "2", OrganizationName: "Erasme",
			SpecialityAcronym: "CH", SpecialityName: "Chirurgie", PeriodName: "P3",
		},
	}
}

func newExportServiceForTest(t *testing.T, reader affectationDetailReader) (*ExportService, *storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}
	svc := NewExportService(reader, store, signer, cfg, NewMetricsService(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC) }
	return svc, store, dir
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, _, dir := newExportServiceForTest(t, detailReaderStub{details: sampleDetails()})

	result, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, "/api/v1/affectations/exports/"+result.Token, result.URL)

	path := filepath.Join(dir, "20240901", "affectations-"+result.ExportID+".csv")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, assignmentColumns, records[0])
	assert.Equal(t, []string{"Lovelace Ada", "P3", "2", "Erasme", "CH", "I", "N", "15", "1"}, records[2])
}

func TestExportServiceGenerateBinaryFormats(t *testing.T) {
	for _, format := range []string{"pdf", "xlsx"} {
		t.Run(format, func(t *testing.T) {
			svc, _, _ := newExportServiceForTest(t, detailReaderStub{details: sampleDetails()})
			result, err := svc.Generate(context.Background(), dto.ExportRequest{Format: format})
			require.NoError(t, err)

			download, err := svc.ResolveDownload(context.Background(), result.Token)
			require.NoError(t, err)
			assert.Equal(t, "affectations-"+result.ExportID+"."+format, download.Filename)
			assert.NotEmpty(t, download.Content)
		})
	}
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t, detailReaderStub{})
	_, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServicePropagatesReaderError(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t, detailReaderStub{err: errors.New("db down")})
	_, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestExportServiceResolveDownload(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t, detailReaderStub{details: sampleDetails()})
	result, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", download.ContentType)
	assert.Contains(t, string(download.Content), "Saint-Luc")

	_, err = svc.ResolveDownload(context.Background(), "garbage")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, store.Delete(context.Background(), "20240901/affectations-"+result.ExportID+".csv"))
	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceResolveExpiredLink(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t, detailReaderStub{details: sampleDetails()})
	expired := storage.NewSignedURLSigner("secret", time.Nanosecond)
	svc.signer = expired

	result, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrLinkExpired)
}

func TestExportServiceCleanup(t *testing.T) {
	svc, _, dir := newExportServiceForTest(t, detailReaderStub{details: sampleDetails()})
	result, err := svc.Generate(context.Background(), dto.ExportRequest{Format: "csv"})
	require.NoError(t, err)

	path := filepath.Join(dir, "20240901", "affectations-"+result.ExportID+".csv")
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
