package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/goharvest/internal/domain"
)

// TypeCatalog is the source type served by CatalogHandler.
const TypeCatalog = "catalog"

// catalogDateLayout is the date format expected in catalog entries.
const catalogDateLayout = "2006-01-02"

// CatalogHandler serves sources whose documents are a fixed reference list
// embedded in the source config rather than scraped from a live page. Used
// for registries that publish a stable catalog and for seeding known
// historical records.
//
// Config shape:
//
//	{"entries": [{"external_id": "...", "title": "...", "code": "...",
//	              "category": "...", "published_at": "2024-01-31",
//	              "document_url": "...", "pdf_url": "...",
//	              "description": "..."}]}
type CatalogHandler struct{}

// NewCatalogHandler creates the static catalog handler.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// CanHandle implements Handler.
func (h *CatalogHandler) CanHandle(sourceType string) bool {
	return sourceType == TypeCatalog
}

// Harvest implements Handler.
func (h *CatalogHandler) Harvest(ctx context.Context, source *domain.Source) ([]RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, ok := source.Config["entries"]
	if !ok {
		return []RawDocument{}, nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("source %s: config key \"entries\" must be a list", source.ID)
	}

	docs := make([]RawDocument, 0, len(entries))
	for i, item := range entries {
		entry, entryOK := item.(map[string]any)
		if !entryOK {
			return nil, fmt.Errorf("source %s: entry %d is not an object", source.ID, i)
		}

		doc := RawDocument{
			ExternalID:  entryString(entry, "external_id"),
			Title:       entryString(entry, "title"),
			Code:        entryString(entry, "code"),
			Category:    entryString(entry, "category"),
			Description: entryString(entry, "description"),
			DocumentURL: entryString(entry, "document_url"),
			PDFURL:      entryString(entry, "pdf_url"),
		}
		if doc.ExternalID == "" || doc.Title == "" {
			return nil, fmt.Errorf("source %s: entry %d is missing external_id or title", source.ID, i)
		}

		if raw := entryString(entry, "published_at"); raw != "" {
			if published, err := time.Parse(catalogDateLayout, raw); err == nil {
				doc.PublishedAt = &published
			}
		}
		if raw := entryString(entry, "effective_at"); raw != "" {
			if effective, err := time.Parse(catalogDateLayout, raw); err == nil {
				doc.EffectiveAt = &effective
			}
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func entryString(entry map[string]any, key string) string {
	if v, ok := entry[key].(string); ok {
		return v
	}
	return ""
}
