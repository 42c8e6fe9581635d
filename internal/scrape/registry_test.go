package scrape_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/scrape"
	"github.com/jonesrussell/goharvest/internal/testhelpers"
)

func TestRegistryResolve(t *testing.T) {
	registry := scrape.NewRegistry(
		scrape.NewHTMLListHandler(testhelpers.NewTestLogger()),
		scrape.NewCatalogHandler(),
	)

	handler, err := registry.Resolve(scrape.TypeHTMLList)
	require.NoError(t, err)
	assert.True(t, handler.CanHandle(scrape.TypeHTMLList))

	handler, err = registry.Resolve(scrape.TypeCatalog)
	require.NoError(t, err)
	assert.True(t, handler.CanHandle(scrape.TypeCatalog))

	_, err = registry.Resolve("rss_feed")
	assert.ErrorContains(t, err, "rss_feed")
}

func TestRegistryFirstMatchWins(t *testing.T) {
	first := scrape.NewCatalogHandler()
	second := scrape.NewCatalogHandler()

	registry := scrape.NewRegistry(first, second)

	handler, err := registry.Resolve(scrape.TypeCatalog)
	require.NoError(t, err)
	assert.Same(t, scrape.Handler(first), handler)
}

func TestCatalogHandlerHarvest(t *testing.T) {
	handler := scrape.NewCatalogHandler()

	source := &domain.Source{
		ID:   "source-1",
		Type: scrape.TypeCatalog,
		Config: domain.JSONBMap{
			"entries": []any{
				map[string]any{
					"external_id":  "res-1",
					"title":        "Resolution 1",
					"code":         "RES-2026-001",
					"category":     "resolution",
					"published_at": "2026-01-15",
					"document_url": "https://registry.example/res-1",
				},
				map[string]any{
					"external_id": "res-2",
					"title":       "Resolution 2",
				},
			},
		},
	}

	docs, err := handler.Harvest(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "res-1", docs[0].ExternalID)
	assert.Equal(t, "Resolution 1", docs[0].Title)
	assert.Equal(t, "RES-2026-001", docs[0].Code)
	require.NotNil(t, docs[0].PublishedAt)
	assert.Equal(t, 2026, docs[0].PublishedAt.Year())

	assert.Equal(t, "res-2", docs[1].ExternalID)
	assert.Nil(t, docs[1].PublishedAt)
}

func TestCatalogHandlerHarvestNoEntries(t *testing.T) {
	handler := scrape.NewCatalogHandler()

	docs, err := handler.Harvest(context.Background(), &domain.Source{ID: "source-1"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCatalogHandlerHarvestRejectsBadEntries(t *testing.T) {
	handler := scrape.NewCatalogHandler()

	source := &domain.Source{
		ID: "source-1",
		Config: domain.JSONBMap{
			"entries": []any{
				map[string]any{"title": "No identity"},
			},
		},
	}

	_, err := handler.Harvest(context.Background(), source)
	assert.ErrorContains(t, err, "external_id")
}

func TestCatalogHandlerHarvestCancelledContext(t *testing.T) {
	handler := scrape.NewCatalogHandler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Harvest(ctx, &domain.Source{ID: "source-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
