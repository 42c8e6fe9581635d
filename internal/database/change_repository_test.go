package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
)

func TestChangeRepository_CodeExists(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewChangeRepository(sqlxDB)
	ctx := context.Background()

	// Comparison runs against the uppercased code.
	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("RES-2026-001").
		WillReturnRows(rows)

	exists, err := repo.CodeExists(ctx, "res-2026-001")
	if err != nil {
		t.Fatalf("CodeExists() unexpected error: %v", err)
	}
	if !exists {
		t.Error("CodeExists() = false, want true")
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestChangeRepository_CreateWithDocument(t *testing.T) {
	ctx := context.Background()

	change := func() *domain.Change {
		return &domain.Change{
			ID:         "change-1",
			Code:       "res-2026-001",
			Title:      "Resolution",
			Priority:   domain.PriorityMedium,
			DocumentID: "doc-1",
			CreatedBy:  "analyst",
		}
	}
	doc := func() *domain.Document {
		return &domain.Document{ID: "doc-1", Status: domain.DocumentNew}
	}

	t.Run("commits change and document together", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		repo := database.NewChangeRepository(sqlxDB)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO changes").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE documents").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		d := doc()
		if err := repo.CreateWithDocument(ctx, change(), d); err != nil {
			t.Fatalf("CreateWithDocument() unexpected error: %v", err)
		}

		if d.Status != domain.DocumentProcessed {
			t.Errorf("document status = %v, want %v", d.Status, domain.DocumentProcessed)
		}
		if d.ChangeID == nil || *d.ChangeID != "change-1" {
			t.Error("document change link not set")
		}

		if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
			t.Errorf("unfulfilled expectations: %v", expectErr)
		}
	})

	t.Run("code collision rolls back and maps to ErrDuplicate", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		repo := database.NewChangeRepository(sqlxDB)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO changes").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.CreateWithDocument(ctx, change(), doc())
		if !errors.Is(err, database.ErrDuplicate) {
			t.Errorf("CreateWithDocument() error = %v, want ErrDuplicate", err)
		}

		if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
			t.Errorf("unfulfilled expectations: %v", expectErr)
		}
	})

	t.Run("missing document rolls back", func(t *testing.T) {
		sqlxDB, mock := newMockDB(t)
		repo := database.NewChangeRepository(sqlxDB)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO changes").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE documents").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CreateWithDocument(ctx, change(), doc())
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("CreateWithDocument() error = %v, want ErrNotFound", err)
		}

		if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
			t.Errorf("unfulfilled expectations: %v", expectErr)
		}
	})
}
