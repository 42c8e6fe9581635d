// Package scrape defines the source handler capability set and the bundled
// handler implementations. One handler serves each source type; the
// orchestrator treats all handlers uniformly.
package scrape

import (
	"context"
	"time"

	"github.com/jonesrussell/goharvest/internal/domain"
)

// RawDocument is a single extraction result produced by a handler before
// dedup and persistence. ExternalID and Title are required; everything else
// is optional.
type RawDocument struct {
	ExternalID  string
	Title       string
	Description string
	Code        string
	Category    string
	PublishedAt *time.Time
	EffectiveAt *time.Time
	DocumentURL string
	PDFURL      string
	RawSnapshot string
	Metadata    map[string]string
}

// Handler is the pluggable per-source extraction collaborator.
//
// Harvest returns the full candidate list in one call; handlers are not
// contracted to stream incrementally. An empty list means "no results" and
// is not an error. Errors are reserved for transport-level failures, which
// the orchestrator treats as run-level failures.
type Handler interface {
	// CanHandle reports whether this handler serves the given source type.
	CanHandle(sourceType string) bool
	// Harvest extracts candidate documents from the source.
	Harvest(ctx context.Context, source *domain.Source) ([]RawDocument, error)
}
