package progress

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Repository provides the raw reads/writes backing the Progress Coordinator.
type Repository struct {
	db  *bun.DB
	log *slog.Logger
}

// NewRepository creates a new progress repository.
func NewRepository(db *bun.DB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("progress.repo"))}
}

// EnsureSchema idempotently creates the progress table.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rag.progress (
			src            text PRIMARY KEY,
			parent_status  text NOT NULL DEFAULT 'starting',
			terminated     boolean NOT NULL DEFAULT false,
			error_message  text,
			total_chunks   integer NOT NULL DEFAULT 0,
			child_chunks   jsonb NOT NULL DEFAULT '{}'::jsonb,
			last_updated   timestamptz NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return apperror.NewInternal("failed to ensure progress schema", err)
	}
	return nil
}

// getForUpdate reads a progress row with a row lock held for the life of
// tx, creating a fresh starting record first if none exists. This is the
// Postgres-native realization of a compare-and-set over a jsonb map: the
// lock guarantees only one writer observes-and-mutates child_chunks at a
// time, the same guarantee DynamoDB's ConditionExpression gave the source
// at the level of a single attribute.
func (r *Repository) getForUpdate(ctx context.Context, tx bun.Tx, src string) (*Record, error) {
	rec := new(Record)
	err := tx.NewSelect().Model(rec).Where("src = ?", src).For("UPDATE").Scan(ctx)
	if err == nil {
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	fresh := &Record{
		Src:          src,
		ParentStatus: ParentStarting,
		ChildChunks:  map[string]ChildEntry{},
		LastUpdated:  time.Now().UTC(),
	}
	_, err = tx.NewInsert().Model(fresh).On("CONFLICT (src) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}

	rec = new(Record)
	if err := tx.NewSelect().Model(rec).Where("src = ?", src).For("UPDATE").Scan(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get reads a progress record without locking.
func (r *Repository) Get(ctx context.Context, src string) (*Record, error) {
	rec := new(Record)
	err := r.db.NewSelect().Model(rec).Where("src = ?", src).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewInternal("failed to read progress record", err)
	}
	return rec, nil
}

// Delete removes a document's progress record entirely (used by the
// reprocess planner's full cleanup and by Coordinator.Reset).
func (r *Repository) Delete(ctx context.Context, src string) error {
	_, err := r.db.NewDelete().Model((*Record)(nil)).Where("src = ?", src).Exec(ctx)
	if err != nil {
		return apperror.NewInternal("failed to delete progress record", err)
	}
	return nil
}
