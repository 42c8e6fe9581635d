// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Source represents a configured external origin of regulatory documents.
// Type selects which scrape handler serves it.
type Source struct {
	ID      string `db:"id"      json:"id"`
	Name    string `db:"name"    json:"name"`
	Type    string `db:"type"    json:"type"`
	URL     string `db:"url"     json:"url"`
	Enabled bool   `db:"enabled" json:"enabled"`
	Deleted bool   `db:"deleted" json:"deleted"`

	// Config is a free-form bag interpreted by the handler for this
	// source type (selectors, catalog entries, pagination hints).
	Config JSONBMap `db:"config" json:"config,omitempty"`

	// Scheduling
	IntervalMinutes int        `db:"interval_minutes" json:"interval_minutes"`
	NextRunAt       *time.Time `db:"next_run_at"      json:"next_run_at,omitempty"`

	// Run bookkeeping, mutated by the orchestrator on every run.
	LastRunAt           *time.Time `db:"last_run_at"          json:"last_run_at,omitempty"`
	SuccessCount        int        `db:"success_count"        json:"success_count"`
	FailureCount        int        `db:"failure_count"        json:"failure_count"`
	ConsecutiveFailures int        `db:"consecutive_failures" json:"consecutive_failures"`
	LastError           *string    `db:"last_error"           json:"last_error,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsDue reports whether the source should be picked up by RunAllDue.
func (s *Source) IsDue(now time.Time) bool {
	if !s.Enabled || s.Deleted {
		return false
	}
	if s.NextRunAt == nil {
		return true
	}
	return !s.NextRunAt.After(now)
}
