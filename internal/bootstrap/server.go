package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/goharvest/internal/api"
	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// RunServer starts the HTTP API and, if enabled, the cron scheduler, then
// blocks until ctx is cancelled and shutdown completes.
func (a *App) RunServer(ctx context.Context) error {
	router := api.NewRouter(api.Deps{
		Sources:      a.Sources,
		Executions:   a.Executions,
		Documents:    a.Documents,
		Changes:      a.Changes,
		Orchestrator: a.Orchestrator,
		Promoter:     a.Promoter,
		Logger:       a.Log,
		CORSOrigins:  a.Config.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	var sched *scheduler.Scheduler
	if a.Config.Harvest.CronEnabled {
		sched = scheduler.New(a.Orchestrator, a.Config.Harvest.CronSchedule, a.Log)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("Starting HTTP server",
			logger.String("host", a.Config.Server.Host),
			logger.Int("port", a.Config.Server.Port),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if sched != nil {
			sched.Stop()
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.Log.Info("Shutting down")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	a.Log.Info("Server exited")
	return nil
}
