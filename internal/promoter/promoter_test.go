package promoter_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/promoter"
	"github.com/jonesrussell/goharvest/internal/testhelpers"
)

type fakeDocumentStore struct {
	docs     map[string]*domain.Document
	pending  []*domain.Document
	outcomes []*domain.Document
}

func newFakeDocumentStore(docs ...*domain.Document) *fakeDocumentStore {
	s := &fakeDocumentStore{docs: make(map[string]*domain.Document)}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return s
}

func (s *fakeDocumentStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, database.ErrNotFound)
	}
	return doc, nil
}

func (s *fakeDocumentStore) ListPending(_ context.Context, executionID string) ([]*domain.Document, error) {
	if executionID == "" {
		return s.pending, nil
	}
	var scoped []*domain.Document
	for _, doc := range s.pending {
		if doc.ExecutionID == executionID {
			scoped = append(scoped, doc)
		}
	}
	return scoped, nil
}

func (s *fakeDocumentStore) UpdateOutcome(_ context.Context, doc *domain.Document) error {
	s.outcomes = append(s.outcomes, doc)
	return nil
}

type fakeChangeStore struct {
	codes     map[string]bool
	createErr error
	created   []*domain.Change
}

func newFakeChangeStore(existingCodes ...string) *fakeChangeStore {
	s := &fakeChangeStore{codes: make(map[string]bool)}
	for _, code := range existingCodes {
		s.codes[strings.ToUpper(code)] = true
	}
	return s
}

func (s *fakeChangeStore) CodeExists(_ context.Context, code string) (bool, error) {
	return s.codes[strings.ToUpper(code)], nil
}

func (s *fakeChangeStore) CreateWithDocument(_ context.Context, change *domain.Change, doc *domain.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.codes[change.Code] = true
	s.created = append(s.created, change)
	doc.Status = domain.DocumentProcessed
	doc.ChangeID = &change.ID
	return nil
}

func pendingDocument(id, code string) *domain.Document {
	description := "Mandatory update to the payroll reporting format"
	return &domain.Document{
		ID:          id,
		ExecutionID: "exec-1",
		SourceID:    "source-1",
		ExternalID:  "ext-" + id,
		Title:       "Resolution on payroll reporting",
		Description: &description,
		Code:        &code,
		Status:      domain.DocumentNew,
		CreatedAt:   time.Now(),
	}
}

func TestPromoteDocument(t *testing.T) {
	doc := pendingDocument("doc-1", "res-2026-001")
	documents := newFakeDocumentStore(doc)
	changes := newFakeChangeStore()

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	result, err := p.PromoteDocument(context.Background(), promoter.Request{
		DocumentID: "doc-1",
		PromotedBy: "analyst",
	})
	require.NoError(t, err)

	assert.Equal(t, promoter.OutcomePromoted, result.Outcome)
	assert.Equal(t, "RES-2026-001", result.Code)
	assert.NotEmpty(t, result.ChangeID)

	require.Len(t, changes.created, 1)
	change := changes.created[0]
	assert.Equal(t, "RES-2026-001", change.Code)
	assert.Equal(t, doc.Title, change.Title)
	assert.Equal(t, "doc-1", change.DocumentID)
	assert.Equal(t, "analyst", change.CreatedBy)

	// Heuristics: "mandatory" pushes priority high, payroll and format tags.
	assert.Equal(t, domain.PriorityHigh, change.Priority)
	assert.Contains(t, change.AffectedValidators, "payroll")
	assert.Contains(t, change.AffectedValidators, "format")

	assert.Equal(t, domain.DocumentProcessed, doc.Status)
}

func TestPromoteDocumentOverrides(t *testing.T) {
	doc := pendingDocument("doc-1", "res-2026-001")
	documents := newFakeDocumentStore(doc)
	changes := newFakeChangeStore()

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	result, err := p.PromoteDocument(context.Background(), promoter.Request{
		DocumentID: "doc-1",
		Code:       "custom-code",
		Priority:   domain.PriorityLow,
		Validators: []string{"accounting"},
		PromotedBy: "analyst",
	})
	require.NoError(t, err)

	assert.Equal(t, "CUSTOM-CODE", result.Code)
	require.Len(t, changes.created, 1)
	assert.Equal(t, domain.PriorityLow, changes.created[0].Priority)
	assert.Equal(t, domain.StringArray{"accounting"}, changes.created[0].AffectedValidators)
}

func TestPromoteDocumentCodeCollision(t *testing.T) {
	doc := pendingDocument("doc-1", "res-2026-001")
	documents := newFakeDocumentStore(doc)
	changes := newFakeChangeStore("RES-2026-001")

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	result, err := p.PromoteDocument(context.Background(), promoter.Request{DocumentID: "doc-1"})
	require.NoError(t, err)

	// Collision is a verdict, not a failure: document is parked ignored.
	assert.Equal(t, promoter.OutcomeIgnored, result.Outcome)
	assert.Contains(t, result.Note, "RES-2026-001")
	assert.Empty(t, changes.created)

	assert.Equal(t, domain.DocumentIgnored, doc.Status)
	require.NotNil(t, doc.Note)
	require.Len(t, documents.outcomes, 1)
}

func TestPromoteDocumentCollisionRace(t *testing.T) {
	doc := pendingDocument("doc-1", "res-2026-001")
	documents := newFakeDocumentStore(doc)
	changes := newFakeChangeStore()
	changes.createErr = fmt.Errorf("change code RES-2026-001: %w", database.ErrDuplicate)

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	result, err := p.PromoteDocument(context.Background(), promoter.Request{DocumentID: "doc-1"})
	require.NoError(t, err)

	assert.Equal(t, promoter.OutcomeIgnored, result.Outcome)
	assert.Equal(t, domain.DocumentIgnored, doc.Status)
}

func TestPromoteDocumentNotPromotable(t *testing.T) {
	doc := pendingDocument("doc-1", "res-2026-001")
	doc.Status = domain.DocumentProcessed
	documents := newFakeDocumentStore(doc)
	changes := newFakeChangeStore()

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	_, err := p.PromoteDocument(context.Background(), promoter.Request{DocumentID: "doc-1"})
	assert.ErrorIs(t, err, promoter.ErrNotPromotable)

	// Fail-fast: nothing written.
	assert.Empty(t, changes.created)
	assert.Empty(t, documents.outcomes)
}

func TestPromoteDocumentNotFound(t *testing.T) {
	p := promoter.New(newFakeDocumentStore(), newFakeChangeStore(), testhelpers.NewTestLogger())

	_, err := p.PromoteDocument(context.Background(), promoter.Request{DocumentID: "missing"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestPromoteDocumentCreateFailure(t *testing.T) {
	doc := pendingDocument("doc-1", "res-2026-001")
	documents := newFakeDocumentStore(doc)
	changes := newFakeChangeStore()
	changes.createErr = fmt.Errorf("connection reset")

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	result, err := p.PromoteDocument(context.Background(), promoter.Request{DocumentID: "doc-1"})
	require.NoError(t, err)

	assert.Equal(t, promoter.OutcomeError, result.Outcome)
	assert.Equal(t, domain.DocumentError, doc.Status)
	require.NotNil(t, doc.Note)
	assert.Contains(t, *doc.Note, "connection reset")
}

func TestPromoteAllPending(t *testing.T) {
	docA := pendingDocument("doc-1", "res-2026-001")
	docB := pendingDocument("doc-2", "res-2026-001") // same code as docA
	docC := pendingDocument("doc-3", "res-2026-002")

	documents := newFakeDocumentStore(docA, docB, docC)
	documents.pending = []*domain.Document{docA, docB, docC}
	changes := newFakeChangeStore()

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	batch, err := p.PromoteAllPending(context.Background(), "", "schedule")
	require.NoError(t, err)

	// docA claims the code, docB collides, docC gets its own.
	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.Promoted)
	assert.Equal(t, 1, batch.Ignored)
	assert.Zero(t, batch.Errors)
	require.Len(t, batch.Results, 3)

	assert.Equal(t, domain.DocumentProcessed, docA.Status)
	assert.Equal(t, domain.DocumentIgnored, docB.Status)
	assert.Equal(t, domain.DocumentProcessed, docC.Status)

	// Re-running the batch with the same inputs promotes nothing new.
	documents.pending = nil
	again, err := p.PromoteAllPending(context.Background(), "", "schedule")
	require.NoError(t, err)
	assert.Zero(t, again.Total)
}

func TestPromoteAllPendingScopedToExecution(t *testing.T) {
	docA := pendingDocument("doc-1", "res-2026-001")
	docB := pendingDocument("doc-2", "res-2026-002")
	docB.ExecutionID = "exec-2"

	documents := newFakeDocumentStore(docA, docB)
	documents.pending = []*domain.Document{docA, docB}
	changes := newFakeChangeStore()

	p := promoter.New(documents, changes, testhelpers.NewTestLogger())

	batch, err := p.PromoteAllPending(context.Background(), "exec-2", "api")
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Total)
	assert.Equal(t, domain.DocumentNew, docA.Status)
	assert.Equal(t, domain.DocumentProcessed, docB.Status)
}

func TestPromoteAllPendingStopsOnCancelledContext(t *testing.T) {
	docA := pendingDocument("doc-1", "res-2026-001")
	documents := newFakeDocumentStore(docA)
	documents.pending = []*domain.Document{docA}

	p := promoter.New(documents, newFakeChangeStore(), testhelpers.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := p.PromoteAllPending(ctx, "", "api")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, batch.Promoted)
	assert.Equal(t, domain.DocumentNew, docA.Status)
}
