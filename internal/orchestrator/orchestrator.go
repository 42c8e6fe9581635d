// Package orchestrator drives scraping executions end to end: bookkeeping,
// handler invocation, per-document dedup and persistence, completion and
// failure accounting, and cancellation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/events"
	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/scrape"
)

// SourceStore is the persistence surface the orchestrator needs for sources.
type SourceStore interface {
	GetActive(ctx context.Context, id string) (*domain.Source, error)
	ListDue(ctx context.Context, now time.Time) ([]*domain.Source, error)
	RecordRunStart(ctx context.Context, id string, at time.Time) error
	RecordRunSuccess(ctx context.Context, id string, at time.Time) error
	RecordRunFailure(ctx context.Context, id, errMsg string, at time.Time) error
}

// ExecutionStore is the persistence surface for execution records.
type ExecutionStore interface {
	Create(ctx context.Context, execution *domain.Execution) error
	Update(ctx context.Context, execution *domain.Execution) error
	GetByID(ctx context.Context, id string) (*domain.Execution, error)
	MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error)
}

// DocumentStore is the persistence surface for harvested documents.
type DocumentStore interface {
	Exists(ctx context.Context, sourceID, externalID string) (bool, error)
	Create(ctx context.Context, doc *domain.Document) error
}

// Result summarizes one RunExecution call.
type Result struct {
	ExecutionID string                 `json:"execution_id,omitempty"`
	SourceID    string                 `json:"source_id"`
	Status      domain.ExecutionStatus `json:"status"`
	Found       int                    `json:"found"`
	New         int                    `json:"new"`
	Duplicates  int                    `json:"duplicates"`
	Errors      int                    `json:"errors"`
	Err         error                  `json:"-"`
}

// Options configures orchestrator behavior.
type Options struct {
	// InterSourceDelay is the pause between sequential runs in RunAllDue.
	InterSourceDelay time.Duration
	// SnapshotMaxBytes caps the stored raw snapshot per document.
	SnapshotMaxBytes int
}

// Orchestrator runs scraping executions for configured sources.
type Orchestrator struct {
	sources    SourceStore
	executions ExecutionStore
	documents  DocumentStore
	registry   *scrape.Registry
	cancels    *CancelRegistry
	notifier   events.Notifier
	log        logger.Logger
	opts       Options
}

// New creates an orchestrator. A nil notifier is replaced with a no-op sink.
func New(
	sources SourceStore,
	executions ExecutionStore,
	documents DocumentStore,
	registry *scrape.Registry,
	cancels *CancelRegistry,
	notifier events.Notifier,
	log logger.Logger,
	opts Options,
) *Orchestrator {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Orchestrator{
		sources:    sources,
		executions: executions,
		documents:  documents,
		registry:   registry,
		cancels:    cancels,
		notifier:   notifier,
		log:        log,
		opts:       opts,
	}
}

// RunExecution runs one scraping execution for one source.
//
// Once the execution record is created in running status, exactly one
// terminal status is persisted and exactly one terminal notification is
// emitted, whatever happens in between. Errors are converted into the
// result; nothing propagates to the caller as a raw failure.
func (o *Orchestrator) RunExecution(ctx context.Context, sourceID, triggeredBy string) *Result {
	source, err := o.sources.GetActive(ctx, sourceID)
	if err != nil {
		// Precondition failure: no execution record, no partial state.
		o.log.Warn("Source not runnable",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
		return &Result{
			SourceID: sourceID,
			Status:   domain.ExecutionFailed,
			Err:      fmt.Errorf("resolve source: %w", err),
		}
	}

	now := time.Now()
	execution := domain.NewExecution(uuid.New().String(), source.ID, triggeredBy, now)
	execution.AppendLog(now, fmt.Sprintf("execution started for source %q by %s", source.Name, triggeredBy))

	// Terminal bookkeeping must survive caller cancellation.
	persistCtx := context.WithoutCancel(ctx)

	if createErr := o.executions.Create(ctx, execution); createErr != nil {
		o.log.Error("Failed to create execution",
			logger.String("source_id", source.ID),
			logger.Error(createErr),
		)
		return &Result{
			SourceID: source.ID,
			Status:   domain.ExecutionFailed,
			Err:      fmt.Errorf("create execution: %w", createErr),
		}
	}

	if startErr := o.sources.RecordRunStart(ctx, source.ID, now); startErr != nil {
		o.log.Warn("Failed to record run start",
			logger.String("source_id", source.ID),
			logger.Error(startErr),
		)
	}

	o.notifier.NotifyStarted(events.StartedPayload{
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		SourceName:  source.Name,
		Status:      string(execution.Status),
		StartedAt:   execution.StartedAt,
		TriggeredBy: triggeredBy,
	})

	// Cancellation handle: derived from the caller's signal so cancelling
	// the caller cancels the run, and registered by id so an independent
	// cancel request reaches this run without touching the caller.
	runCtx, cancel := context.WithCancel(ctx)
	o.cancels.Add(execution.ID, cancel)
	defer func() {
		o.cancels.Remove(execution.ID)
		cancel()
	}()

	runErr := o.harvest(runCtx, source, execution)

	switch {
	case runErr == nil:
		return o.finishSuccess(persistCtx, source, execution)
	case errors.Is(runErr, context.Canceled) || runCtx.Err() != nil:
		return o.finishCancelled(persistCtx, source, execution)
	default:
		return o.finishFailed(persistCtx, source, execution, runErr)
	}
}

// harvest invokes the handler and runs the per-document loop. A panic from a
// handler is converted to an error with its stack recorded on the execution.
func (o *Orchestrator) harvest(ctx context.Context, source *domain.Source, execution *domain.Execution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			execution.StackTrace = &stack
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler, err := o.registry.Resolve(source.Type)
	if err != nil {
		// Fatal configuration error for this run; never retried.
		return fmt.Errorf("resolve handler: %w", err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	candidates, err := handler.Harvest(ctx, source)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	execution.DocumentsFound = len(candidates)
	execution.AppendLog(time.Now(), fmt.Sprintf("handler returned %d candidates", len(candidates)))

	for i := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.processCandidate(ctx, source, execution, &candidates[i])
	}

	return nil
}

// processCandidate dedups, persists, and notifies for one candidate. Failures
// are absorbed into the error counter and the execution log; one bad document
// never sinks the run.
func (o *Orchestrator) processCandidate(ctx context.Context, source *domain.Source, execution *domain.Execution, raw *scrape.RawDocument) {
	now := time.Now()

	if raw.ExternalID == "" || raw.Title == "" {
		execution.DocumentsError++
		o.logCandidateError(execution, now, "candidate rejected: missing external id or title")
		return
	}

	exists, err := o.documents.Exists(ctx, source.ID, raw.ExternalID)
	if err != nil {
		execution.DocumentsError++
		o.logCandidateError(execution, now, fmt.Sprintf("dedup check failed for %q: %v", raw.ExternalID, err))
		return
	}
	if exists {
		execution.DocumentsDuplicate++
		return
	}

	doc := o.buildDocument(source, execution, raw)
	if createErr := o.documents.Create(ctx, doc); createErr != nil {
		if errors.Is(createErr, database.ErrDuplicate) {
			// Lost a concurrent race; the store constraint is the arbiter.
			execution.DocumentsDuplicate++
			return
		}
		execution.DocumentsError++
		o.logCandidateError(execution, now, fmt.Sprintf("persist failed for %q: %v", raw.ExternalID, createErr))
		return
	}

	execution.DocumentsNew++

	o.notifier.NotifyDocumentFound(events.DocumentFoundPayload{
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		DocumentID:  doc.ID,
		Title:       doc.Title,
		Code:        raw.Code,
		Category:    raw.Category,
		IsNew:       true,
		FoundAt:     now,
	})
	o.notifier.NotifyProgress(events.ProgressPayload{
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		Status:      string(execution.Status),
		Found:       execution.DocumentsFound,
		New:         execution.DocumentsNew,
		Duplicates:  execution.DocumentsDuplicate,
		Errors:      execution.DocumentsError,
		Activity:    fmt.Sprintf("stored %q", doc.Title),
	})
}

// logCandidateError records a per-document failure on the execution's text log
// and mirrors it onto the notification stream.
func (o *Orchestrator) logCandidateError(execution *domain.Execution, at time.Time, msg string) {
	execution.AppendLog(at, msg)
	o.notifier.NotifyLog(events.LogPayload{
		ExecutionID: execution.ID,
		SourceID:    execution.SourceID,
		Message:     msg,
		Level:       "error",
	})
}

func (o *Orchestrator) buildDocument(source *domain.Source, execution *domain.Execution, raw *scrape.RawDocument) *domain.Document {
	doc := &domain.Document{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		ExternalID:  raw.ExternalID,
		Title:       raw.Title,
		PublishedAt: raw.PublishedAt,
		EffectiveAt: raw.EffectiveAt,
		Status:      domain.DocumentNew,
	}

	if raw.Description != "" {
		doc.Description = &raw.Description
	}
	if raw.Code != "" {
		doc.Code = &raw.Code
	}
	if raw.Category != "" {
		doc.Category = &raw.Category
	}
	if raw.DocumentURL != "" {
		doc.DocumentURL = &raw.DocumentURL
	}
	if raw.PDFURL != "" {
		doc.PDFURL = &raw.PDFURL
	}
	if raw.RawSnapshot != "" {
		snapshot := raw.RawSnapshot
		if o.opts.SnapshotMaxBytes > 0 && len(snapshot) > o.opts.SnapshotMaxBytes {
			snapshot = snapshot[:o.opts.SnapshotMaxBytes]
		}
		doc.RawSnapshot = &snapshot
	}
	if len(raw.Metadata) > 0 {
		meta := make(domain.JSONBMap, len(raw.Metadata))
		for k, v := range raw.Metadata {
			meta[k] = v
		}
		doc.Metadata = meta
	}

	return doc
}

func (o *Orchestrator) finishSuccess(persistCtx context.Context, source *domain.Source, execution *domain.Execution) *Result {
	now := time.Now()

	status := domain.ExecutionCompleted
	if execution.DocumentsError > 0 {
		status = domain.ExecutionCompletedWithWarnings
	}
	execution.AppendLog(now, "execution finished: "+execution.Summary())

	if err := execution.Finish(status, now); err != nil {
		o.log.Error("Invalid terminal transition", logger.Error(err))
	}
	if err := o.executions.Update(persistCtx, execution); err != nil {
		o.log.Error("Failed to persist terminal execution",
			logger.String("execution_id", execution.ID),
			logger.Error(err),
		)
	}
	if err := o.sources.RecordRunSuccess(persistCtx, source.ID, now); err != nil {
		o.log.Warn("Failed to record run success",
			logger.String("source_id", source.ID),
			logger.Error(err),
		)
	}

	var durationMs int64
	if execution.DurationMs != nil {
		durationMs = *execution.DurationMs
	}
	o.notifier.NotifyCompleted(events.CompletedPayload{
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		Status:      string(execution.Status),
		Found:       execution.DocumentsFound,
		New:         execution.DocumentsNew,
		Duplicates:  execution.DocumentsDuplicate,
		Errors:      execution.DocumentsError,
		DurationMs:  durationMs,
	})

	o.log.Info("Execution completed",
		logger.String("execution_id", execution.ID),
		logger.String("source_id", source.ID),
		logger.String("status", string(execution.Status)),
		logger.Int("found", execution.DocumentsFound),
		logger.Int("new", execution.DocumentsNew),
		logger.Int("duplicates", execution.DocumentsDuplicate),
		logger.Int("errors", execution.DocumentsError),
	)

	return o.resultFor(execution, nil)
}

func (o *Orchestrator) finishCancelled(persistCtx context.Context, source *domain.Source, execution *domain.Execution) *Result {
	now := time.Now()
	execution.AppendLog(now, "execution cancelled")

	if err := execution.Finish(domain.ExecutionCancelled, now); err != nil {
		o.log.Error("Invalid terminal transition", logger.Error(err))
	}
	if err := o.executions.Update(persistCtx, execution); err != nil {
		o.log.Error("Failed to persist cancelled execution",
			logger.String("execution_id", execution.ID),
			logger.Error(err),
		)
	}

	o.notifier.NotifyFailed(events.FailedPayload{
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		Status:      string(domain.ExecutionCancelled),
		Error:       "execution cancelled",
	})

	o.log.Info("Execution cancelled",
		logger.String("execution_id", execution.ID),
		logger.String("source_id", source.ID),
	)

	return o.resultFor(execution, context.Canceled)
}

func (o *Orchestrator) finishFailed(persistCtx context.Context, source *domain.Source, execution *domain.Execution, runErr error) *Result {
	now := time.Now()
	errMsg := runErr.Error()
	execution.ErrorMessage = &errMsg
	if execution.StackTrace == nil {
		diagnostic := fmt.Sprintf("%+v", runErr)
		execution.StackTrace = &diagnostic
	}
	execution.AppendLog(now, "execution failed: "+errMsg)

	if err := execution.Finish(domain.ExecutionFailed, now); err != nil {
		o.log.Error("Invalid terminal transition", logger.Error(err))
	}
	if err := o.executions.Update(persistCtx, execution); err != nil {
		o.log.Error("Failed to persist failed execution",
			logger.String("execution_id", execution.ID),
			logger.Error(err),
		)
	}
	if err := o.sources.RecordRunFailure(persistCtx, source.ID, errMsg, now); err != nil {
		o.log.Warn("Failed to record run failure",
			logger.String("source_id", source.ID),
			logger.Error(err),
		)
	}

	o.notifier.NotifyFailed(events.FailedPayload{
		ExecutionID: execution.ID,
		SourceID:    source.ID,
		Status:      string(domain.ExecutionFailed),
		Error:       errMsg,
	})

	o.log.Error("Execution failed",
		logger.String("execution_id", execution.ID),
		logger.String("source_id", source.ID),
		logger.Error(runErr),
	)

	return o.resultFor(execution, runErr)
}

func (o *Orchestrator) resultFor(execution *domain.Execution, err error) *Result {
	return &Result{
		ExecutionID: execution.ID,
		SourceID:    execution.SourceID,
		Status:      execution.Status,
		Found:       execution.DocumentsFound,
		New:         execution.DocumentsNew,
		Duplicates:  execution.DocumentsDuplicate,
		Errors:      execution.DocumentsError,
		Err:         err,
	}
}

// RunAllDue runs every enabled, non-deleted source whose schedule has passed,
// sequentially with a fixed inter-source delay. Sequential execution bounds
// outbound request concurrency against external sites to one at a time.
// Cancelling ctx aborts the remaining queue; completed runs are unaffected.
func (o *Orchestrator) RunAllDue(ctx context.Context, triggeredBy string) ([]*Result, error) {
	sources, err := o.sources.ListDue(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list due sources: %w", err)
	}

	o.log.Info("Running due sources", logger.Int("count", len(sources)))

	results := make([]*Result, 0, len(sources))
	for i, source := range sources {
		if ctxErr := ctx.Err(); ctxErr != nil {
			o.log.Info("Run-all-due aborted",
				logger.Int("completed", len(results)),
				logger.Int("remaining", len(sources)-i),
			)
			return results, ctxErr
		}

		results = append(results, o.RunExecution(ctx, source.ID, triggeredBy))

		if i < len(sources)-1 && o.opts.InterSourceDelay > 0 {
			select {
			case <-time.After(o.opts.InterSourceDelay):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}
	}

	return results, nil
}

// CancelExecution requests cancellation of a live execution. If the id has a
// handle in the registry the signal is delivered best-effort. If not (for
// example after a process restart) but the persisted execution is still
// running, it is force-transitioned to cancelled as a repair action; this
// does not guarantee the handler actually stopped. Cancelling an already
// terminal execution is a no-op.
func (o *Orchestrator) CancelExecution(ctx context.Context, executionID string) error {
	if o.cancels.Cancel(executionID) {
		o.log.Info("Cancellation signalled", logger.String("execution_id", executionID))
		return nil
	}

	execution, err := o.executions.GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("load execution: %w", err)
	}
	if execution.Status != domain.ExecutionRunning {
		return nil
	}

	transitioned, err := o.executions.MarkCancelled(ctx, executionID, time.Now())
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	if transitioned {
		o.log.Warn("Orphaned execution force-cancelled",
			logger.String("execution_id", executionID),
		)
		o.notifier.NotifyFailed(events.FailedPayload{
			ExecutionID: executionID,
			SourceID:    execution.SourceID,
			Status:      string(domain.ExecutionCancelled),
			Error:       "execution cancelled",
			Details:     "no live cancel handle; repaired from persisted status",
		})
	}

	return nil
}
