package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/promoter"
)

type DocumentHandler struct {
	repo     *database.DocumentRepository
	promoter *promoter.Promoter
	logger   logger.Logger
}

func NewDocumentHandler(repo *database.DocumentRepository, prom *promoter.Promoter, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		repo:     repo,
		promoter: prom,
		logger:   log,
	}
}

func (h *DocumentHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	doc, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	var docs []*domain.Document
	var err error

	if sourceID := c.Query("source_id"); sourceID != "" {
		limit, offset := pagination(c)
		docs, err = h.repo.ListBySourceID(c.Request.Context(), sourceID, limit, offset)
	} else {
		docs, err = h.repo.ListPending(c.Request.Context(), c.Query("execution_id"))
	}
	if err != nil {
		h.logger.Error("Failed to list documents",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

type promoteRequest struct {
	Code       string   `json:"code"`
	Priority   string   `json:"priority"`
	Validators []string `json:"validators"`
	PromotedBy string   `json:"promoted_by"`
}

// Promote promotes one document into a change record. A code collision
// answers 200 with the ignored outcome; only invalid input and system
// failures are HTTP errors.
func (h *DocumentHandler) Promote(c *gin.Context) {
	id := c.Param("id")

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.PromotedBy == "" {
		req.PromotedBy = triggeredByAPI
	}

	result, err := h.promoter.PromoteDocument(c.Request.Context(), promoter.Request{
		DocumentID: id,
		Code:       req.Code,
		Priority:   domain.Priority(req.Priority),
		Validators: req.Validators,
		PromotedBy: req.PromotedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		case errors.Is(err, promoter.ErrNotPromotable):
			c.JSON(http.StatusConflict, gin.H{"error": "Document is not promotable", "details": err.Error()})
		default:
			h.logger.Error("Failed to promote document",
				logger.String("document_id", id),
				logger.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to promote document"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

type promoteAllRequest struct {
	ExecutionID string `json:"execution_id"`
	PromotedBy  string `json:"promoted_by"`
}

func (h *DocumentHandler) PromoteAll(c *gin.Context) {
	var req promoteAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if req.PromotedBy == "" {
		req.PromotedBy = triggeredByAPI
	}

	batch, err := h.promoter.PromoteAllPending(c.Request.Context(), req.ExecutionID, req.PromotedBy)
	if err != nil {
		h.logger.Error("Failed to promote pending documents",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to promote pending documents"})
		return
	}

	c.JSON(http.StatusOK, batch)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultListLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
