package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/handlers"
	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/orchestrator"
	"github.com/jonesrussell/goharvest/internal/promoter"
)

const (
	corsMaxAgeHours = 12
)

// Deps bundles everything the router needs.
type Deps struct {
	Sources      *database.SourceRepository
	Executions   *database.ExecutionRepository
	Documents    *database.DocumentRepository
	Changes      *database.ChangeRepository
	Orchestrator *orchestrator.Orchestrator
	Promoter     *promoter.Promoter
	Logger       logger.Logger
	CORSOrigins  []string
}

func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"X-CSRF-Token", "Authorization", "accept", "origin",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	// Middleware
	router.Use(ginLogger(deps.Logger))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1
	v1 := router.Group("/api/v1")
	sourceHandler := handlers.NewSourceHandler(deps.Sources, deps.Logger)
	executionHandler := handlers.NewExecutionHandler(deps.Orchestrator, deps.Executions, deps.Logger)
	documentHandler := handlers.NewDocumentHandler(deps.Documents, deps.Promoter, deps.Logger)
	changeHandler := handlers.NewChangeHandler(deps.Changes, deps.Logger)

	// Sources endpoints
	sources := v1.Group("/sources")
	sources.POST("", sourceHandler.Create)
	sources.GET("", sourceHandler.List)
	sources.GET("/:id", sourceHandler.GetByID)
	sources.PUT("/:id", sourceHandler.Update)
	sources.DELETE("/:id", sourceHandler.Delete)
	sources.POST("/:id/run", executionHandler.Run)

	// Executions endpoints
	executions := v1.Group("/executions")
	executions.POST("/run-due", executionHandler.RunAllDue)
	executions.GET("", executionHandler.List)
	executions.GET("/:id", executionHandler.GetByID)
	executions.POST("/:id/cancel", executionHandler.Cancel)

	// Documents endpoints
	documents := v1.Group("/documents")
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.GetByID)
	documents.POST("/:id/promote", documentHandler.Promote)
	documents.POST("/promote-all", documentHandler.PromoteAll)

	// Changes endpoints
	changes := v1.Group("/changes")
	changes.GET("", changeHandler.List)
	changes.GET("/:id", changeHandler.GetByID)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
