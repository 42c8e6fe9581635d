package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func TestDocumentRepository_Create(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewDocumentRepository(sqlxDB)
	ctx := context.Background()

	testCases := []struct {
		name      string
		setupMock func()
		wantErr   error
	}{
		{
			name: "inserts document",
			setupMock: func() {
				mock.ExpectExec("INSERT INTO documents").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			wantErr: nil,
		},
		{
			name: "unique violation maps to ErrDuplicate",
			setupMock: func() {
				mock.ExpectExec("INSERT INTO documents").
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: database.ErrDuplicate,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			doc := &domain.Document{
				ID:          "doc-1",
				ExecutionID: "exec-1",
				SourceID:    "source-1",
				ExternalID:  "ext-1",
				Title:       "Notice",
				Status:      domain.DocumentNew,
			}

			err := repo.Create(ctx, doc)
			if tc.wantErr == nil && err != nil {
				t.Errorf("Create() unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tc.wantErr)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestDocumentRepository_Exists(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewDocumentRepository(sqlxDB)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("source-1", "ext-1").
		WillReturnRows(rows)

	exists, err := repo.Exists(ctx, "source-1", "ext-1")
	if err != nil {
		t.Fatalf("Exists() unexpected error: %v", err)
	}
	if !exists {
		t.Error("Exists() = false, want true")
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestDocumentRepository_UpdateOutcome(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewDocumentRepository(sqlxDB)
	ctx := context.Background()

	testCases := []struct {
		name      string
		setupMock func()
		wantErr   error
	}{
		{
			name: "updates outcome",
			setupMock: func() {
				mock.ExpectExec("UPDATE documents").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantErr: nil,
		},
		{
			name: "missing document maps to ErrNotFound",
			setupMock: func() {
				mock.ExpectExec("UPDATE documents").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: database.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			note := "change code RES-1 already exists"
			doc := &domain.Document{
				ID:     "doc-1",
				Status: domain.DocumentIgnored,
				Note:   &note,
			}

			err := repo.UpdateOutcome(ctx, doc)
			if tc.wantErr == nil && err != nil {
				t.Errorf("UpdateOutcome() unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("UpdateOutcome() error = %v, want %v", err, tc.wantErr)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}
