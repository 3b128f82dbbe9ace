package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docintel/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ResultRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewResultRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func sampleResult() *domain.DocumentProcessingResult {
	return &domain.DocumentProcessingResult{
		DocumentID:     "doc-42",
		Status:         domain.ProcessingSuccess,
		ProcessingTime: 1200,
		Errors:         []string{},
		CompletedAt:    time.Date(2026, 3, 1, 8, 59, 0, 0, time.UTC),
		Analysis: domain.DocumentAnalysis{
			Provider:       domain.ProviderIntelligentFallback,
			Classification: domain.Classification{Category: domain.CategorySafety, Priority: domain.PriorityCritical},
			Safety:         domain.SafetyAssessment{SafetyScore: 70},
		},
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS document_results").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultUpserts(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	in := sampleResult()
	mock.ExpectExec("INSERT INTO document_results").
		WithArgs("doc-42", "success", "Safety", "critical", "intelligent-fallback", 70, int64(1200),
			sqlmock.AnyArg(), in.CompletedAt, repo.now().UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveResult(context.Background(), in); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultRejectsMissingID(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()
	if err := repo.SaveResult(context.Background(), &domain.DocumentProcessingResult{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGetResultDecodesPayload(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	payload, _ := json.Marshal(sampleResult())
	mock.ExpectQuery("SELECT result").
		WithArgs("doc-42").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(payload))

	got, err := repo.GetResult(context.Background(), "doc-42")
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if got.Analysis.Safety.SafetyScore != 70 || got.Status != domain.ProcessingSuccess {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestGetResultReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT result").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetResult(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
