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

// ExecutionRepository handles database operations for scraping executions.
type ExecutionRepository struct {
	db *sqlx.DB
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sqlx.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

const executionColumns = `id, source_id, triggered_by, status,
	       started_at, completed_at, duration_ms,
	       documents_found, documents_new, documents_duplicate, documents_error,
	       log, error_message, stack_trace`

// Create inserts a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *domain.Execution) error {
	query := `
		INSERT INTO executions (
			id, source_id, triggered_by, status, started_at,
			documents_found, documents_new, documents_duplicate, documents_error, log
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.SourceID,
		execution.TriggeredBy,
		execution.Status,
		execution.StartedAt,
		execution.DocumentsFound,
		execution.DocumentsNew,
		execution.DocumentsDuplicate,
		execution.DocumentsError,
		execution.Log,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// GetByID retrieves an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*domain.Execution, error) {
	var execution domain.Execution
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	err := r.db.GetContext(ctx, &execution, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("execution %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return &execution, nil
}

// Update updates an existing execution record.
func (r *ExecutionRepository) Update(ctx context.Context, execution *domain.Execution) error {
	query := `
		UPDATE executions
		SET status = $1,
		    completed_at = $2,
		    duration_ms = $3,
		    documents_found = $4,
		    documents_new = $5,
		    documents_duplicate = $6,
		    documents_error = $7,
		    log = $8,
		    error_message = $9,
		    stack_trace = $10
		WHERE id = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.Status,
		execution.CompletedAt,
		execution.DurationMs,
		execution.DocumentsFound,
		execution.DocumentsNew,
		execution.DocumentsDuplicate,
		execution.DocumentsError,
		execution.Log,
		execution.ErrorMessage,
		execution.StackTrace,
		execution.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("execution %s: %w", execution.ID, ErrNotFound)
	}

	return nil
}

// MarkCancelled force-transitions a still-running execution to cancelled.
// Used as the orphan-repair path when no live cancel handle exists.
// Returns true if a row was transitioned.
func (r *ExecutionRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE executions
		SET status = $2,
		    completed_at = $3,
		    duration_ms = EXTRACT(EPOCH FROM ($3 - started_at)) * 1000
		WHERE id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, id, domain.ExecutionCancelled, at, domain.ExecutionRunning)
	if err != nil {
		return false, fmt.Errorf("failed to cancel execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListBySourceID retrieves executions for a source with pagination,
// most recent first.
func (r *ExecutionRepository) ListBySourceID(ctx context.Context, sourceID string, limit, offset int) ([]*domain.Execution, error) {
	var executions []*domain.Execution
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE source_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &executions, query, sourceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	if executions == nil {
		executions = []*domain.Execution{}
	}

	return executions, nil
}

// List retrieves recent executions across all sources.
func (r *ExecutionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Execution, error) {
	var executions []*domain.Execution
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &executions, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	if executions == nil {
		executions = []*domain.Execution{}
	}

	return executions, nil
}
