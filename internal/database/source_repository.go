package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goharvest/internal/domain"
)

// SourceRepository handles database operations for sources.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, name, type, url, enabled, deleted, config,
	       interval_minutes, next_run_at,
	       last_run_at, success_count, failure_count, consecutive_failures, last_error,
	       created_at, updated_at`

// Create inserts a new source.
func (r *SourceRepository) Create(ctx context.Context, source *domain.Source) error {
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	source.CreatedAt = time.Now()
	source.UpdatedAt = source.CreatedAt

	query := `
		INSERT INTO sources (
			id, name, type, url, enabled, deleted, config,
			interval_minutes, next_run_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		source.ID,
		source.Name,
		source.Type,
		source.URL,
		source.Enabled,
		source.Deleted,
		&source.Config,
		source.IntervalMinutes,
		source.NextRunAt,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("source %q: %w", source.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create source: %w", err)
	}

	return nil
}

// GetByID retrieves a source by id, including soft-deleted rows.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	err := r.db.GetContext(ctx, &source, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// GetActive retrieves a non-deleted source by id.
func (r *SourceRepository) GetActive(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1 AND deleted = false`

	err := r.db.GetContext(ctx, &source, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// List retrieves all non-deleted sources ordered by name.
func (r *SourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE deleted = false ORDER BY name`

	err := r.db.SelectContext(ctx, &sources, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	if sources == nil {
		sources = []*domain.Source{}
	}

	return sources, nil
}

// ListDue retrieves enabled, non-deleted sources whose next run time has passed.
func (r *SourceRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE enabled = true
		  AND deleted = false
		  AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY name
	`

	err := r.db.SelectContext(ctx, &sources, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sources: %w", err)
	}

	if sources == nil {
		sources = []*domain.Source{}
	}

	return sources, nil
}

// Update updates a source's configuration fields.
func (r *SourceRepository) Update(ctx context.Context, source *domain.Source) error {
	source.UpdatedAt = time.Now()

	query := `
		UPDATE sources
		SET name = $2, type = $3, url = $4, enabled = $5, config = $6,
		    interval_minutes = $7, next_run_at = $8, updated_at = $9
		WHERE id = $1 AND deleted = false
	`

	result, err := r.db.ExecContext(ctx, query,
		source.ID,
		source.Name,
		source.Type,
		source.URL,
		source.Enabled,
		&source.Config,
		source.IntervalMinutes,
		source.NextRunAt,
		source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("source %s: %w", source.ID, ErrNotFound)
	}

	return nil
}

// SoftDelete marks a source deleted without removing its history.
func (r *SourceRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE sources SET deleted = true, updated_at = $2 WHERE id = $1 AND deleted = false`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}

	return nil
}

// RecordRunStart stamps last_run_at when an execution opens.
func (r *SourceRepository) RecordRunStart(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sources SET last_run_at = $2, updated_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordRunSuccess updates success bookkeeping and advances the schedule.
func (r *SourceRepository) RecordRunSuccess(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE sources
		SET success_count = success_count + 1,
		    consecutive_failures = 0,
		    last_error = NULL,
		    next_run_at = $2 + (interval_minutes * INTERVAL '1 minute'),
		    updated_at = $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to record run success: %w", err)
	}
	return nil
}

// RecordRunFailure updates failure bookkeeping and advances the schedule.
func (r *SourceRepository) RecordRunFailure(ctx context.Context, id, errMsg string, at time.Time) error {
	query := `
		UPDATE sources
		SET failure_count = failure_count + 1,
		    consecutive_failures = consecutive_failures + 1,
		    last_error = $3,
		    next_run_at = $2 + (interval_minutes * INTERVAL '1 minute'),
		    updated_at = $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, at, errMsg); err != nil {
		return fmt.Errorf("failed to record run failure: %w", err)
	}
	return nil
}

// UpsertTx upserts multiple sources in a single transaction, keyed by name.
// Returns the count of created and updated sources; any failure rolls back all.
func (r *SourceRepository) UpsertTx(ctx context.Context, sources []*domain.Source) (created, updated int, err error) {
	if len(sources) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, source := range sources {
		isCreated, upsertErr := r.upsertOne(ctx, tx, source)
		if upsertErr != nil {
			err = fmt.Errorf("upsert source %q: %w", source.Name, upsertErr)
			return 0, 0, err
		}
		if isCreated {
			created++
		} else {
			updated++
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("commit transaction: %w", commitErr)
		return 0, 0, err
	}

	return created, updated, nil
}

// upsertOne inserts or updates a source within an existing transaction.
// Uses PostgreSQL's ON CONFLICT with the xmax trick to detect insert vs update.
func (r *SourceRepository) upsertOne(ctx context.Context, tx *sqlx.Tx, source *domain.Source) (bool, error) {
	now := time.Now()
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	source.CreatedAt = now
	source.UpdatedAt = now

	query := `
		INSERT INTO sources (
			id, name, type, url, enabled, deleted, config,
			interval_minutes, next_run_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, false, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type,
			url = EXCLUDED.url,
			enabled = EXCLUDED.enabled,
			config = EXCLUDED.config,
			interval_minutes = EXCLUDED.interval_minutes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS is_insert
	`

	var returnedID string
	var isInsert bool
	err := tx.QueryRowContext(ctx, query,
		source.ID,
		source.Name,
		source.Type,
		source.URL,
		source.Enabled,
		&source.Config,
		source.IntervalMinutes,
		source.NextRunAt,
		source.CreatedAt,
		source.UpdatedAt,
	).Scan(&returnedID, &isInsert)
	if err != nil {
		return false, fmt.Errorf("upsert source: %w", err)
	}

	source.ID = returnedID
	return isInsert, nil
}
