package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExecutionStatus represents the lifecycle status of a scraping execution.
type ExecutionStatus string

const (
	ExecutionRunning               ExecutionStatus = "running"
	ExecutionCompleted             ExecutionStatus = "completed"
	ExecutionCompletedWithWarnings ExecutionStatus = "completed_with_warnings"
	ExecutionFailed                ExecutionStatus = "failed"
	ExecutionCancelled             ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status allows no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionCompleted ||
		s == ExecutionCompletedWithWarnings ||
		s == ExecutionFailed ||
		s == ExecutionCancelled
}

// ValidateExecutionTransition checks if a status transition is valid.
// Executions are created running and reach exactly one terminal status.
func ValidateExecutionTransition(from, to ExecutionStatus) error {
	if from != ExecutionRunning {
		return fmt.Errorf("invalid execution transition from %s to %s", from, to)
	}
	if !to.IsTerminal() {
		return fmt.Errorf("invalid execution transition from %s to %s", from, to)
	}
	return nil
}

// Execution represents one scraping run against one source.
// It tracks detailed counters and an append-only text log.
type Execution struct {
	ID          string          `db:"id"           json:"id"`
	SourceID    string          `db:"source_id"    json:"source_id"`
	TriggeredBy string          `db:"triggered_by" json:"triggered_by"`
	Status      ExecutionStatus `db:"status"       json:"status"`

	StartedAt   time.Time  `db:"started_at"   json:"started_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	DurationMs  *int64     `db:"duration_ms"  json:"duration_ms,omitempty"`

	// Counters
	DocumentsFound     int `db:"documents_found"     json:"documents_found"`
	DocumentsNew       int `db:"documents_new"       json:"documents_new"`
	DocumentsDuplicate int `db:"documents_duplicate" json:"documents_duplicate"`
	DocumentsError     int `db:"documents_error"     json:"documents_error"`

	Log          string  `db:"log"           json:"log"`
	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`
	StackTrace   *string `db:"stack_trace"   json:"stack_trace,omitempty"`
}

// NewExecution creates a running execution for a source.
func NewExecution(id, sourceID, triggeredBy string, startedAt time.Time) *Execution {
	return &Execution{
		ID:          id,
		SourceID:    sourceID,
		TriggeredBy: triggeredBy,
		Status:      ExecutionRunning,
		StartedAt:   startedAt,
	}
}

// AppendLog appends a timestamped line to the execution's text log.
func (e *Execution) AppendLog(at time.Time, msg string) {
	line := fmt.Sprintf("[%s] %s", at.UTC().Format(time.RFC3339), msg)
	if e.Log == "" {
		e.Log = line
		return
	}
	e.Log = e.Log + "\n" + line
}

// Finish moves the execution to a terminal status and fills in timing.
func (e *Execution) Finish(status ExecutionStatus, at time.Time) error {
	if err := ValidateExecutionTransition(e.Status, status); err != nil {
		return err
	}
	e.Status = status
	completedAt := at
	e.CompletedAt = &completedAt
	duration := at.Sub(e.StartedAt).Milliseconds()
	e.DurationMs = &duration
	return nil
}

// Summary returns a one-line counter summary for logs and notifications.
func (e *Execution) Summary() string {
	parts := []string{
		fmt.Sprintf("found=%d", e.DocumentsFound),
		fmt.Sprintf("new=%d", e.DocumentsNew),
		fmt.Sprintf("duplicates=%d", e.DocumentsDuplicate),
		fmt.Sprintf("errors=%d", e.DocumentsError),
	}
	return strings.Join(parts, " ")
}
