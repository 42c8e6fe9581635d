package domain

import (
	"time"
)

// Priority levels for change records.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether the priority is one of the known levels.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Change represents a promoted normative change record derived from a
// harvested document. Code is uppercased and unique among non-deleted records.
type Change struct {
	ID          string  `db:"id"          json:"id"`
	Code        string  `db:"code"        json:"code"`
	Title       string  `db:"title"       json:"title"`
	Description *string `db:"description" json:"description,omitempty"`

	Priority           Priority    `db:"priority"            json:"priority"`
	AffectedValidators StringArray `db:"affected_validators" json:"affected_validators"`

	DocumentID string `db:"document_id" json:"document_id"`
	CreatedBy  string `db:"created_by"  json:"created_by"`
	Deleted    bool   `db:"deleted"     json:"deleted"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
