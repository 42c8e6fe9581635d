package domain

import (
	"time"
)

// DocumentStatus represents the promotion lifecycle of a harvested document.
type DocumentStatus string

const (
	DocumentNew         DocumentStatus = "new"
	DocumentNeedsReview DocumentStatus = "needs_review"
	DocumentProcessed   DocumentStatus = "processed"
	DocumentIgnored     DocumentStatus = "ignored"
	DocumentError       DocumentStatus = "error"
)

// IsPromotable reports whether the promoter may act on a document in this status.
func (s DocumentStatus) IsPromotable() bool {
	return s == DocumentNew || s == DocumentNeedsReview
}

// Document represents a deduplicated, persisted extraction result awaiting
// promotion. Uniqueness is enforced on (source_id, external_id).
type Document struct {
	ID          string `db:"id"           json:"id"`
	ExecutionID string `db:"execution_id" json:"execution_id"`
	SourceID    string `db:"source_id"    json:"source_id"`
	ExternalID  string `db:"external_id"  json:"external_id"`
	Title       string `db:"title"        json:"title"`

	Description *string    `db:"description"  json:"description,omitempty"`
	Code        *string    `db:"code"         json:"code,omitempty"`
	Category    *string    `db:"category"     json:"category,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	EffectiveAt *time.Time `db:"effective_at" json:"effective_at,omitempty"`

	DocumentURL *string `db:"document_url" json:"document_url,omitempty"`
	PDFURL      *string `db:"pdf_url"      json:"pdf_url,omitempty"`

	// RawSnapshot holds a size-capped copy of the extracted markup.
	RawSnapshot *string  `db:"raw_snapshot" json:"raw_snapshot,omitempty"`
	Metadata    JSONBMap `db:"metadata"     json:"metadata,omitempty"`

	Status DocumentStatus `db:"status" json:"status"`

	// Note records why a document was ignored or errored at promotion time.
	Note *string `db:"note" json:"note,omitempty"`
	// ChangeID links to the change record once the document is processed.
	ChangeID *string `db:"change_id" json:"change_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PromotionCode returns the code used for change-record uniqueness checks:
// the document's own code when present, the external id otherwise.
func (d *Document) PromotionCode() string {
	if d.Code != nil && *d.Code != "" {
		return *d.Code
	}
	return d.ExternalID
}
