package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/logger"
)

type ChangeHandler struct {
	repo   *database.ChangeRepository
	logger logger.Logger
}

func NewChangeHandler(repo *database.ChangeRepository, log logger.Logger) *ChangeHandler {
	return &ChangeHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *ChangeHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	change, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Change not found"})
		return
	}

	c.JSON(http.StatusOK, change)
}

func (h *ChangeHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	changes, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list changes",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list changes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}
