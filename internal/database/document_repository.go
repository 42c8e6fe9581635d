package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goharvest/internal/domain"
)

// DocumentRepository handles database operations for harvested documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, execution_id, source_id, external_id, title,
	       description, code, category, published_at, effective_at,
	       document_url, pdf_url, raw_snapshot, metadata,
	       status, note, change_id, created_at, updated_at`

// Create inserts a new harvested document. Returns ErrDuplicate when the
// (source_id, external_id) uniqueness constraint rejects the row.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	query := `
		INSERT INTO documents (
			id, execution_id, source_id, external_id, title,
			description, code, category, published_at, effective_at,
			document_url, pdf_url, raw_snapshot, metadata,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.ExecutionID,
		doc.SourceID,
		doc.ExternalID,
		doc.Title,
		doc.Description,
		doc.Code,
		doc.Category,
		doc.PublishedAt,
		doc.EffectiveAt,
		doc.DocumentURL,
		doc.PDFURL,
		doc.RawSnapshot,
		&doc.Metadata,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("document %s/%s: %w", doc.SourceID, doc.ExternalID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// Exists reports whether a document with the given dedup key is stored.
func (r *DocumentRepository) Exists(ctx context.Context, sourceID, externalID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM documents WHERE source_id = $1 AND external_id = $2)`

	err := r.db.GetContext(ctx, &exists, query, sourceID, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}

	return exists, nil
}

// GetByID retrieves a document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	err := r.db.GetContext(ctx, &doc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ListPending retrieves documents in status new, oldest first, optionally
// scoped to one execution. executionID == "" means all executions.
func (r *DocumentRepository) ListPending(ctx context.Context, executionID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	var err error

	if executionID != "" {
		query := `
			SELECT ` + documentColumns + `
			FROM documents
			WHERE status = $1 AND execution_id = $2
			ORDER BY created_at
		`
		err = r.db.SelectContext(ctx, &docs, query, domain.DocumentNew, executionID)
	} else {
		query := `
			SELECT ` + documentColumns + `
			FROM documents
			WHERE status = $1
			ORDER BY created_at
		`
		err = r.db.SelectContext(ctx, &docs, query, domain.DocumentNew)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list pending documents: %w", err)
	}

	if docs == nil {
		docs = []*domain.Document{}
	}

	return docs, nil
}

// ListBySourceID retrieves documents for one source with pagination.
func (r *DocumentRepository) ListBySourceID(ctx context.Context, sourceID string, limit, offset int) ([]*domain.Document, error) {
	var docs []*domain.Document
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE source_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &docs, query, sourceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	if docs == nil {
		docs = []*domain.Document{}
	}

	return docs, nil
}

// UpdateOutcome persists a document's promotion outcome (status, note,
// change link). Used for the ignored and error paths, where the change
// record transaction does not apply.
func (r *DocumentRepository) UpdateOutcome(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = time.Now()

	query := `
		UPDATE documents
		SET status = $2, note = $3, change_id = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Status,
		doc.Note,
		doc.ChangeID,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update document outcome: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}

	return nil
}
