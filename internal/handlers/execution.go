package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/orchestrator"
)

const triggeredByAPI = "api"

const defaultListLimit = 50

type ExecutionHandler struct {
	orch   *orchestrator.Orchestrator
	repo   *database.ExecutionRepository
	logger logger.Logger
}

func NewExecutionHandler(orch *orchestrator.Orchestrator, repo *database.ExecutionRepository, log logger.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		orch:   orch,
		repo:   repo,
		logger: log,
	}
}

// Run triggers one execution for a source and waits for the outcome. A run
// that fails still answers 200 with the failed result; only a source that
// cannot be resolved answers 404.
func (h *ExecutionHandler) Run(c *gin.Context) {
	sourceID := c.Param("id")

	result := h.orch.RunExecution(c.Request.Context(), sourceID, triggeredByAPI)
	if result.ExecutionID == "" {
		if errors.Is(result.Err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start execution"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunAllDue triggers a sequential sweep over every due source.
func (h *ExecutionHandler) RunAllDue(c *gin.Context) {
	results, err := h.orch.RunAllDue(c.Request.Context(), triggeredByAPI)
	if err != nil {
		h.logger.Error("Failed to run due sources",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run due sources", "results": results})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// Cancel requests cancellation of a running execution. Cancelling an
// already-finished execution is accepted and does nothing.
func (h *ExecutionHandler) Cancel(c *gin.Context) {
	id := c.Param("id")

	if err := h.orch.CancelExecution(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Execution not found"})
			return
		}
		h.logger.Error("Failed to cancel execution",
			logger.String("execution_id", id),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel execution"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"execution_id": id, "status": "cancellation requested"})
}

func (h *ExecutionHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	execution, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Execution not found"})
		return
	}

	c.JSON(http.StatusOK, execution)
}

func (h *ExecutionHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	var executions []*domain.Execution
	var err error

	if sourceID := c.Query("source_id"); sourceID != "" {
		executions, err = h.repo.ListBySourceID(c.Request.Context(), sourceID, limit, offset)
	} else {
		executions, err = h.repo.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		h.logger.Error("Failed to list executions",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list executions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": executions,
		"count":      len(executions),
	})
}
