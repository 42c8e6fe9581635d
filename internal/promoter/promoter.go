// Package promoter turns harvested documents into normative change records,
// one at a time or as a batch over everything pending.
package promoter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/logger"
)

// DocumentStore is the persistence surface the promoter needs for documents.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListPending(ctx context.Context, executionID string) ([]*domain.Document, error)
	UpdateOutcome(ctx context.Context, doc *domain.Document) error
}

// ChangeStore is the persistence surface for change records.
type ChangeStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateWithDocument(ctx context.Context, change *domain.Change, doc *domain.Document) error
}

// ErrNotPromotable is returned when a document's status does not allow
// promotion.
var ErrNotPromotable = errors.New("document is not promotable")

// Request carries the caller's inputs for promoting one document. Zero-value
// fields fall back to values derived from the document itself.
type Request struct {
	DocumentID string
	// Code overrides the document's promotion code. Uppercased before use.
	Code string
	// Priority overrides the heuristic suggestion.
	Priority domain.Priority
	// Validators overrides the heuristic validator tags.
	Validators []string
	// PromotedBy identifies the actor recorded on the change.
	PromotedBy string
}

// Outcome is the per-document promotion verdict.
type Outcome string

const (
	OutcomePromoted Outcome = "promoted"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeError    Outcome = "error"
)

// DocumentResult reports how one document fared during promotion.
type DocumentResult struct {
	DocumentID string  `json:"document_id"`
	Outcome    Outcome `json:"outcome"`
	ChangeID   string  `json:"change_id,omitempty"`
	Code       string  `json:"code,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// BatchResult aggregates a PromoteAllPending run.
type BatchResult struct {
	Total    int              `json:"total"`
	Promoted int              `json:"promoted"`
	Ignored  int              `json:"ignored"`
	Errors   int              `json:"errors"`
	Results  []DocumentResult `json:"results"`
}

// Promoter converts pending documents into change records.
type Promoter struct {
	documents DocumentStore
	changes   ChangeStore
	log       logger.Logger
}

// New creates a promoter.
func New(documents DocumentStore, changes ChangeStore, log logger.Logger) *Promoter {
	return &Promoter{
		documents: documents,
		changes:   changes,
		log:       log,
	}
}

// PromoteDocument promotes one document into a change record.
//
// A document whose status is not new or needs_review fails fast with
// ErrNotPromotable and nothing is written. A code collision with an existing
// non-deleted change marks the document ignored with a note; this is the
// re-promotion dedup boundary, so re-running a batch never produces duplicate
// change records. Any other failure marks the document errored with the
// failure recorded in its note.
func (p *Promoter) PromoteDocument(ctx context.Context, req Request) (*DocumentResult, error) {
	doc, err := p.documents.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return p.promote(ctx, doc, req)
}

func (p *Promoter) promote(ctx context.Context, doc *domain.Document, req Request) (*DocumentResult, error) {
	if !doc.Status.IsPromotable() {
		return nil, fmt.Errorf("document %s in status %s: %w", doc.ID, doc.Status, ErrNotPromotable)
	}

	code := req.Code
	if code == "" {
		code = doc.PromotionCode()
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return p.recordError(ctx, doc, "no promotion code could be derived")
	}

	priority := req.Priority
	if priority == "" {
		priority = suggestPriority(doc)
	}
	if !priority.Valid() {
		return p.recordError(ctx, doc, fmt.Sprintf("invalid priority %q", priority))
	}

	validators := domain.StringArray(req.Validators)
	if len(validators) == 0 {
		validators = suggestValidators(doc)
	}

	// Outcome writes survive caller cancellation so a document is never
	// stranded half-promoted.
	persistCtx := context.WithoutCancel(ctx)

	exists, err := p.changes.CodeExists(ctx, code)
	if err != nil {
		return p.recordError(persistCtx, doc, fmt.Sprintf("code check failed: %v", err))
	}
	if exists {
		return p.recordIgnored(persistCtx, doc, code)
	}

	change := &domain.Change{
		ID:                 uuid.New().String(),
		Code:               code,
		Title:              doc.Title,
		Description:        doc.Description,
		Priority:           priority,
		AffectedValidators: validators,
		DocumentID:         doc.ID,
		CreatedBy:          req.PromotedBy,
	}

	if createErr := p.changes.CreateWithDocument(persistCtx, change, doc); createErr != nil {
		if errors.Is(createErr, database.ErrDuplicate) {
			// Lost a concurrent race on the code; same verdict as the
			// up-front check.
			return p.recordIgnored(persistCtx, doc, code)
		}
		return p.recordError(persistCtx, doc, fmt.Sprintf("create change failed: %v", createErr))
	}

	p.log.Info("Document promoted",
		logger.String("document_id", doc.ID),
		logger.String("change_id", change.ID),
		logger.String("code", code),
		logger.String("priority", string(priority)),
	)

	return &DocumentResult{
		DocumentID: doc.ID,
		Outcome:    OutcomePromoted,
		ChangeID:   change.ID,
		Code:       code,
	}, nil
}

func (p *Promoter) recordIgnored(ctx context.Context, doc *domain.Document, code string) (*DocumentResult, error) {
	note := fmt.Sprintf("change code %s already exists", code)
	doc.Status = domain.DocumentIgnored
	doc.Note = &note

	if err := p.documents.UpdateOutcome(ctx, doc); err != nil {
		p.log.Error("Failed to mark document ignored",
			logger.String("document_id", doc.ID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("mark ignored: %w", err)
	}

	p.log.Info("Document ignored",
		logger.String("document_id", doc.ID),
		logger.String("code", code),
	)

	return &DocumentResult{
		DocumentID: doc.ID,
		Outcome:    OutcomeIgnored,
		Code:       code,
		Note:       note,
	}, nil
}

func (p *Promoter) recordError(ctx context.Context, doc *domain.Document, note string) (*DocumentResult, error) {
	doc.Status = domain.DocumentError
	doc.Note = &note

	if err := p.documents.UpdateOutcome(ctx, doc); err != nil {
		p.log.Error("Failed to mark document errored",
			logger.String("document_id", doc.ID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("mark errored: %w", err)
	}

	p.log.Warn("Document promotion errored",
		logger.String("document_id", doc.ID),
		logger.String("note", note),
	)

	return &DocumentResult{
		DocumentID: doc.ID,
		Outcome:    OutcomeError,
		Note:       note,
	}, nil
}

// PromoteAllPending promotes every document in status new, oldest first,
// optionally scoped to one execution. Codes, priorities, and validator tags
// come from the heuristics. One document's failure never stops the batch;
// cancelling ctx stops between documents and leaves the remainder pending.
func (p *Promoter) PromoteAllPending(ctx context.Context, executionID, promotedBy string) (*BatchResult, error) {
	docs, err := p.documents.ListPending(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}

	p.log.Info("Promoting pending documents",
		logger.Int("count", len(docs)),
		logger.String("execution_id", executionID),
	)

	started := time.Now()
	batch := &BatchResult{
		Total:   len(docs),
		Results: make([]DocumentResult, 0, len(docs)),
	}

	for i, doc := range docs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.log.Info("Batch promotion aborted",
				logger.Int("processed", i),
				logger.Int("remaining", len(docs)-i),
			)
			return batch, ctxErr
		}

		result, promoteErr := p.promote(ctx, doc, Request{
			DocumentID: doc.ID,
			PromotedBy: promotedBy,
		})
		if promoteErr != nil {
			batch.Errors++
			batch.Results = append(batch.Results, DocumentResult{
				DocumentID: doc.ID,
				Outcome:    OutcomeError,
				Note:       promoteErr.Error(),
			})
			continue
		}

		batch.Results = append(batch.Results, *result)
		switch result.Outcome {
		case OutcomePromoted:
			batch.Promoted++
		case OutcomeIgnored:
			batch.Ignored++
		case OutcomeError:
			batch.Errors++
		}
	}

	p.log.Info("Batch promotion finished",
		logger.Int("total", batch.Total),
		logger.Int("promoted", batch.Promoted),
		logger.Int("ignored", batch.Ignored),
		logger.Int("errors", batch.Errors),
		logger.Duration("elapsed", time.Since(started)),
	)

	return batch, nil
}
