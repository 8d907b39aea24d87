// Package main provides the entry point for the embedding and
// scheduled-task orchestration core: the SQS-driven embedding pipeline
// and the cron-based scheduled-task scheduler, run as their own composed
// service rather than folded into the main API server.
//
// @title Embedding & Task Scheduler Core
// @version 0.1.0
// @description Document embedding orchestration pipeline and multi-tenant scheduled-task scheduler
// @BasePath /
// @schemes http https
package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/emergent/domain/email"
	"github.com/emergent-company/emergent/domain/embedstatus"
	"github.com/emergent-company/emergent/domain/embedstore"
	"github.com/emergent-company/emergent/domain/embedworker"
	"github.com/emergent-company/emergent/domain/progress"
	"github.com/emergent-company/emergent/domain/reprocess"
	"github.com/emergent-company/emergent/domain/scheduledtasks"
	"github.com/emergent-company/emergent/domain/scheduler"
	"github.com/emergent-company/emergent/domain/schedulertick"
	"github.com/emergent-company/emergent/domain/taskcallback"
	"github.com/emergent-company/emergent/domain/taskdispatch"
	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/internal/database"
	"github.com/emergent-company/emergent/internal/server"
	"github.com/emergent-company/emergent/internal/storage"
	"github.com/emergent-company/emergent/pkg/agentqueue"
	"github.com/emergent-company/emergent/pkg/auth"
	"github.com/emergent-company/emergent/pkg/embeddings"
	"github.com/emergent-company/emergent/pkg/logger"
	"github.com/emergent-company/emergent/pkg/qasummary"
)

func main() {
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		server.Module,
		storage.Module,
		auth.Module,

		// Embedding/QA clients
		embeddings.Module,
		qasummary.Module,

		// Email (notifications for scheduled-task completion/failure)
		email.Module,

		// Generic cron-driven maintenance task runner, reused by the
		// scheduler tick
		scheduler.Module,

		// Embedding pipeline: progress coordination, reprocess planning,
		// vector persistence, SQS worker, status queries
		progress.Module,
		reprocess.Module,
		embedstore.Module,
		embedworker.Module,
		embedstatus.Module,

		// Scheduled-task scheduler: registry, tick, dispatch, callback
		scheduledtasks.Module,
		agentqueue.Module,
		schedulertick.Module,
		taskdispatch.Module,
		taskcallback.Module,

		fx.Invoke(ensureSchemas),
	).Run()
}

// ensureSchemas idempotently creates this core's own tables on boot. The
// rest of the schema is owned by the main API server's migrations; these
// three are new to this core and have no migration of their own yet.
func ensureSchemas(lc fx.Lifecycle, progressRepo *progress.Repository, embedRepo *embedstore.Repository, taskRepo *scheduledtasks.Repository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := progressRepo.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := embedRepo.EnsureSchema(ctx); err != nil {
				return err
			}
			return taskRepo.EnsureSchema(ctx)
		},
	})
}
