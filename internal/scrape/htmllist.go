package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/logger"
)

// TypeHTMLList is the source type served by HTMLListHandler.
const TypeHTMLList = "html_list"

// Selector config keys read from source.Config.
const (
	cfgItemSelector  = "item_selector"
	cfgTitleSelector = "title_selector"
	cfgLinkSelector  = "link_selector"
	cfgCodeSelector  = "code_selector"
	cfgDescSelector  = "description_selector"
	cfgDateSelector  = "date_selector"
	cfgDateLayout    = "date_layout"
	cfgCategory      = "category"
	cfgIDAttr        = "id_attribute"
	cfgUserAgent     = "user_agent"
)

const defaultUserAgent = "goharvest/1.0"

// HTMLListHandler is the generic selector-driven list handler: it fetches a
// source's URL and extracts one candidate document per matched list item.
// Selectors come from the source's config bag, so one handler serves every
// plain listing page.
type HTMLListHandler struct {
	log logger.Logger
}

// NewHTMLListHandler creates the generic HTML list handler.
func NewHTMLListHandler(log logger.Logger) *HTMLListHandler {
	return &HTMLListHandler{log: log}
}

// CanHandle implements Handler.
func (h *HTMLListHandler) CanHandle(sourceType string) bool {
	return sourceType == TypeHTMLList
}

// Harvest implements Handler. Cancellation is observed before the fetch and
// again before results are returned; a fetch already in flight completes its
// round trip.
func (h *HTMLListHandler) Harvest(ctx context.Context, source *domain.Source) ([]RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	itemSelector := configString(source.Config, cfgItemSelector)
	if itemSelector == "" {
		return nil, fmt.Errorf("source %s: config key %q is required", source.ID, cfgItemSelector)
	}

	collector := colly.NewCollector(
		colly.UserAgent(configStringDefault(source.Config, cfgUserAgent, defaultUserAgent)),
		colly.MaxDepth(1),
		colly.IgnoreRobotsTxt(),
	)
	collector.WithTransport(&http.Transport{
		DisableKeepAlives: true,
	})

	var docs []RawDocument
	var fetchErr error

	collector.OnHTML(itemSelector, func(e *colly.HTMLElement) {
		doc, ok := h.extractItem(source, e)
		if ok {
			docs = append(docs, doc)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", r.Request.URL, err)
	})

	if visitErr := collector.Visit(source.URL); visitErr != nil {
		return nil, fmt.Errorf("visit %s: %w", source.URL, visitErr)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.log.Debug("HTML list harvest finished",
		logger.String("source_id", source.ID),
		logger.Int("candidates", len(docs)),
	)

	// Empty list is a valid "no results" outcome, never an error.
	return docs, nil
}

// extractItem maps one matched list element to a RawDocument. Items without
// an identity or title are skipped here; the orchestrator never sees them.
func (h *HTMLListHandler) extractItem(source *domain.Source, e *colly.HTMLElement) (RawDocument, bool) {
	sel := e.DOM

	title := strings.TrimSpace(selectorText(sel, configString(source.Config, cfgTitleSelector)))
	if title == "" {
		title = strings.TrimSpace(sel.Text())
	}
	if title == "" {
		return RawDocument{}, false
	}

	link := ""
	if linkSel := configString(source.Config, cfgLinkSelector); linkSel != "" {
		if href, ok := sel.Find(linkSel).Attr("href"); ok {
			link = e.Request.AbsoluteURL(href)
		}
	} else if href, ok := sel.Find("a").Attr("href"); ok {
		link = e.Request.AbsoluteURL(href)
	}

	externalID := ""
	if idAttr := configString(source.Config, cfgIDAttr); idAttr != "" {
		if v, ok := sel.Attr(idAttr); ok {
			externalID = strings.TrimSpace(v)
		}
	}
	if externalID == "" {
		externalID = link
	}
	if externalID == "" {
		return RawDocument{}, false
	}

	doc := RawDocument{
		ExternalID:  externalID,
		Title:       title,
		Code:        strings.TrimSpace(selectorText(sel, configString(source.Config, cfgCodeSelector))),
		Description: strings.TrimSpace(selectorText(sel, configString(source.Config, cfgDescSelector))),
		Category:    configString(source.Config, cfgCategory),
		DocumentURL: link,
	}

	if html, err := goquery.OuterHtml(sel); err == nil {
		doc.RawSnapshot = html
	}

	if dateSel := configString(source.Config, cfgDateSelector); dateSel != "" {
		raw := strings.TrimSpace(selectorText(sel, dateSel))
		layout := configStringDefault(source.Config, cfgDateLayout, "2006-01-02")
		if raw != "" {
			if published, err := time.Parse(layout, raw); err == nil {
				doc.PublishedAt = &published
			}
		}
	}

	if strings.HasSuffix(strings.ToLower(link), ".pdf") {
		doc.PDFURL = link
	}

	return doc, true
}

func selectorText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return sel.Find(selector).First().Text()
}

func configString(cfg domain.JSONBMap, key string) string {
	if cfg == nil {
		return ""
	}
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

func configStringDefault(cfg domain.JSONBMap, key, fallback string) string {
	if v := configString(cfg, key); v != "" {
		return v
	}
	return fallback
}
