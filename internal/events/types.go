// Package events provides lifecycle event publishing for scraping executions.
package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the Redis stream for execution lifecycle events.
const StreamName = "execution-events"

// EventType represents the type of execution lifecycle event.
type EventType string

const (
	// ExecutionStarted indicates an execution opened in running status.
	ExecutionStarted EventType = "EXECUTION_STARTED"
	// ExecutionLog carries a log line emitted during an execution.
	ExecutionLog EventType = "EXECUTION_LOG"
	// ExecutionProgress carries running counters during the document loop.
	ExecutionProgress EventType = "EXECUTION_PROGRESS"
	// DocumentFound indicates a candidate document was persisted.
	DocumentFound EventType = "DOCUMENT_FOUND"
	// ExecutionCompleted indicates a successful terminal status.
	ExecutionCompleted EventType = "EXECUTION_COMPLETED"
	// ExecutionFailed indicates a failed or cancelled terminal status.
	ExecutionFailed EventType = "EXECUTION_FAILED"
)

// Event is the envelope for all execution lifecycle events.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// StartedPayload contains data for EXECUTION_STARTED events.
type StartedPayload struct {
	ExecutionID string    `json:"execution_id"`
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	TriggeredBy string    `json:"triggered_by"`
}

// LogPayload contains data for EXECUTION_LOG events.
type LogPayload struct {
	ExecutionID string `json:"execution_id"`
	SourceID    string `json:"source_id"`
	Message     string `json:"message"`
	Level       string `json:"level"`
}

// ProgressPayload contains running counters for EXECUTION_PROGRESS events.
// Counters are monotonically non-decreasing within one execution.
type ProgressPayload struct {
	ExecutionID string `json:"execution_id"`
	SourceID    string `json:"source_id"`
	Status      string `json:"status"`
	Found       int    `json:"found"`
	New         int    `json:"new"`
	Duplicates  int    `json:"duplicates"`
	Errors      int    `json:"errors"`
	Activity    string `json:"activity,omitempty"`
}

// DocumentFoundPayload contains data for DOCUMENT_FOUND events.
type DocumentFoundPayload struct {
	ExecutionID string    `json:"execution_id"`
	SourceID    string    `json:"source_id"`
	DocumentID  string    `json:"document_id"`
	Title       string    `json:"title"`
	Code        string    `json:"code,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsNew       bool      `json:"is_new"`
	FoundAt     time.Time `json:"found_at"`
}

// CompletedPayload contains data for EXECUTION_COMPLETED events.
type CompletedPayload struct {
	ExecutionID string `json:"execution_id"`
	SourceID    string `json:"source_id"`
	Status      string `json:"status"`
	Found       int    `json:"found"`
	New         int    `json:"new"`
	Duplicates  int    `json:"duplicates"`
	Errors      int    `json:"errors"`
	DurationMs  int64  `json:"duration_ms"`
}

// FailedPayload contains data for EXECUTION_FAILED events. Cancelled
// executions are reported here with their status, not as system errors.
type FailedPayload struct {
	ExecutionID string `json:"execution_id"`
	SourceID    string `json:"source_id"`
	Status      string `json:"status"`
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
}

// Notifier receives an ordered stream of lifecycle events for observers.
// Delivery is fire-and-forget from the orchestrator's perspective; failed
// delivery is never retried and never fails a run.
type Notifier interface {
	NotifyStarted(p StartedPayload)
	NotifyLog(p LogPayload)
	NotifyProgress(p ProgressPayload)
	NotifyDocumentFound(p DocumentFoundPayload)
	NotifyCompleted(p CompletedPayload)
	NotifyFailed(p FailedPayload)
}

// NopNotifier discards all events. Used when no sink is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyStarted(StartedPayload)             {}
func (NopNotifier) NotifyLog(LogPayload)                     {}
func (NopNotifier) NotifyProgress(ProgressPayload)           {}
func (NopNotifier) NotifyDocumentFound(DocumentFoundPayload) {}
func (NopNotifier) NotifyCompleted(CompletedPayload)         {}
func (NopNotifier) NotifyFailed(FailedPayload)               {}
