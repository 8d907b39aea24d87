package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/internal/database"
	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/cas"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Coordinator implements the two-level progress state machine: per-child
// status transitions that fold into a derived parent status, with an
// eager short-circuit to Failed the instant any child fails. SQS delivers
// at-least-once, so every operation here must be safe to apply twice.
type Coordinator struct {
	db   *bun.DB
	repo *Repository
	log  *slog.Logger
}

// NewCoordinator creates a new progress coordinator.
func NewCoordinator(db *bun.DB, repo *Repository, log *slog.Logger) *Coordinator {
	return &Coordinator{db: db, repo: repo, log: log.With(logger.Scope("progress.coordinator"))}
}

// UpdateChildStatus applies a single child chunk's status transition and
// folds the result into the parent status, all under one row lock so a
// concurrent duplicate delivery of the same message cannot interleave.
// Illegal or repeated (already-terminal) transitions are silently ignored,
// which is what makes at-least-once delivery safe to replay here.
func (c *Coordinator) UpdateChildStatus(ctx context.Context, src, childKey string, newStatus ChildStatus, errMsg string, objectKey string) error {
	tx, err := database.BeginSafeTx(ctx, c.db)
	if err != nil {
		return apperror.NewInternal("failed to begin progress transaction", err)
	}
	defer tx.Rollback()

	rec, err := c.repo.getForUpdate(ctx, tx.Tx, src)
	if err != nil {
		return apperror.NewInternal("failed to lock progress record", err)
	}

	if rec.Terminated {
		// A previously terminated document never reopens; a straggling
		// duplicate or late message from before cleanup is just dropped.
		return tx.Commit()
	}

	current, exists := rec.ChildChunks[childKey]
	if exists && !current.Status.IsLegalTransition(newStatus) {
		c.log.DebugContext(ctx, "ignoring illegal or duplicate child transition",
			slog.String("src", src), slog.String("child", childKey),
			slog.String("from", string(current.Status)), slog.String("to", string(newStatus)))
		return tx.Commit()
	}

	entry := ChildEntry{
		Status:      newStatus,
		LastUpdated: time.Now().UTC(),
		Version:     current.Version + 1,
		Error:       errMsg,
		ObjectKey:   objectKey,
	}
	if rec.ChildChunks == nil {
		rec.ChildChunks = map[string]ChildEntry{}
	}
	rec.ChildChunks[childKey] = entry

	nextParent := AggregateParentStatus(rec.ChildChunks)
	rec.ParentStatus = nextParent
	rec.LastUpdated = entry.LastUpdated
	if nextParent == ParentFailed && rec.ErrorMessage == nil && errMsg != "" {
		msg := errMsg
		rec.ErrorMessage = &msg
	}

	if _, err := tx.Tx.NewUpdate().Model(rec).WherePK().Exec(ctx); err != nil {
		return apperror.NewInternal("failed to persist child status", err)
	}

	return tx.Commit()
}

// UpdateParentStatus sets the parent status. When status is the empty
// string the aggregator decides it from the current child map (the
// "let (B) auto-reduce parent status from child aggregates" path after a
// child completes); otherwise status is forced directly, used when a
// caller has already decided the outcome out-of-band (the embedding
// worker's eager failure short-circuit). It is a no-op once the document
// reached a terminal parent status, implemented as a single conditional
// UPDATE via pkg/cas rather than a row-lock transaction, since no child
// map mutation is involved.
func (c *Coordinator) UpdateParentStatus(ctx context.Context, src string, status ParentStatus, errMsg string) (bool, error) {
	if status == "" {
		rec, err := c.repo.Get(ctx, src)
		if err != nil {
			return false, err
		}
		if rec == nil {
			return false, nil
		}
		status = AggregateParentStatus(rec.ChildChunks)
	}

	set := map[string]any{
		"parent_status": string(status),
		"last_updated":  time.Now().UTC(),
	}
	if errMsg != "" {
		set["error_message"] = errMsg
	}

	applied, err := cas.Apply(ctx, c.db, cas.Update{
		Table:     "rag.progress",
		PKColumn:  "src",
		PKValue:   src,
		Set:       set,
		Predicate: "parent_status IS NULL OR parent_status NOT IN ('completed', 'failed')",
	})
	if err != nil {
		return false, apperror.NewInternal("failed to force parent status", err)
	}
	return applied, nil
}

// Get exposes the underlying repository read, used by callers (the
// embedding worker's selective-skip check) that need the full record
// rather than just the terminal bit IsTerminal reports.
func (c *Coordinator) Get(ctx context.Context, src string) (*Record, error) {
	return c.repo.Get(ctx, src)
}

// IsTerminal reports whether a document's progress record is marked
// terminated or its parent status is already terminal (completed or failed).
func (c *Coordinator) IsTerminal(ctx context.Context, src string) (bool, error) {
	rec, err := c.repo.Get(ctx, src)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return rec.Terminated || rec.ParentStatus.IsTerminal(), nil
}

// MarkTerminated flips the terminated flag so that any further duplicate
// SQS deliveries for this document are dropped instead of reopening it.
func (c *Coordinator) MarkTerminated(ctx context.Context, src string) error {
	_, err := cas.Apply(ctx, c.db, cas.Update{
		Table:    "rag.progress",
		PKColumn: "src",
		PKValue:  src,
		Set: map[string]any{
			"terminated":   true,
			"last_updated": time.Now().UTC(),
		},
	})
	if err != nil {
		return apperror.NewInternal("failed to mark progress record terminated", err)
	}
	return nil
}

// Reset deletes a document's progress record entirely so that a full
// reprocess can start from a clean starting state. Selective cleanup does
// not call it: the progress record stays in place and only the
// non-completed children's embeddings are deleted.
func (c *Coordinator) Reset(ctx context.Context, src string) error {
	return c.repo.Delete(ctx, src)
}
