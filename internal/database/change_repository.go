package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goharvest/internal/domain"
)

// ChangeRepository handles database operations for normative change records.
type ChangeRepository struct {
	db *sqlx.DB
}

// NewChangeRepository creates a new change repository.
func NewChangeRepository(db *sqlx.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

const changeColumns = `id, code, title, description, priority, affected_validators,
	       document_id, created_by, deleted, created_at, updated_at`

// CodeExists reports whether a non-deleted change record already carries
// the given code. Comparison is case-insensitive via uppercasing.
func (r *ChangeRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM changes WHERE code = $1 AND deleted = false)`

	err := r.db.GetContext(ctx, &exists, query, strings.ToUpper(code))
	if err != nil {
		return false, fmt.Errorf("failed to check change code: %w", err)
	}

	return exists, nil
}

// GetByID retrieves a change record by its ID.
func (r *ChangeRepository) GetByID(ctx context.Context, id string) (*domain.Change, error) {
	var change domain.Change
	query := `SELECT ` + changeColumns + ` FROM changes WHERE id = $1`

	err := r.db.GetContext(ctx, &change, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("change %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get change: %w", err)
	}

	return &change, nil
}

// List retrieves non-deleted change records, most recent first.
func (r *ChangeRepository) List(ctx context.Context, limit, offset int) ([]*domain.Change, error) {
	var changes []*domain.Change
	query := `
		SELECT ` + changeColumns + `
		FROM changes
		WHERE deleted = false
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &changes, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}

	if changes == nil {
		changes = []*domain.Change{}
	}

	return changes, nil
}

// CreateWithDocument inserts the change record and marks the source document
// processed in one transaction. Either both rows land or neither does.
func (r *ChangeRepository) CreateWithDocument(ctx context.Context, change *domain.Change, doc *domain.Document) (err error) {
	now := time.Now()
	change.Code = strings.ToUpper(change.Code)
	change.CreatedAt = now
	change.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertQuery := `
		INSERT INTO changes (
			id, code, title, description, priority, affected_validators,
			document_id, created_by, deleted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)
	`

	_, err = tx.ExecContext(ctx, insertQuery,
		change.ID,
		change.Code,
		change.Title,
		change.Description,
		change.Priority,
		change.AffectedValidators,
		change.DocumentID,
		change.CreatedBy,
		change.CreatedAt,
		change.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			err = fmt.Errorf("change code %s: %w", change.Code, ErrDuplicate)
			return err
		}
		err = fmt.Errorf("failed to create change: %w", err)
		return err
	}

	doc.Status = domain.DocumentProcessed
	doc.ChangeID = &change.ID
	doc.UpdatedAt = now

	updateQuery := `
		UPDATE documents
		SET status = $2, change_id = $3, note = NULL, updated_at = $4
		WHERE id = $1
	`

	result, updateErr := tx.ExecContext(ctx, updateQuery, doc.ID, doc.Status, doc.ChangeID, doc.UpdatedAt)
	if updateErr != nil {
		err = fmt.Errorf("failed to link document: %w", updateErr)
		return err
	}

	rowsAffected, raErr := result.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("failed to get rows affected: %w", raErr)
		return err
	}
	if rowsAffected == 0 {
		err = fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return err
	}

	return nil
}
