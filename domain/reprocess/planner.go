package reprocess

import (
	"context"
	"log/slog"

	"github.com/emergent-company/emergent/domain/embedstore"
	"github.com/emergent-company/emergent/domain/progress"
	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
	"github.com/emergent-company/emergent/pkg/memoset"
)

// Planner decides, for a document under forced reprocess, whether to wipe
// everything, delete only the non-completed children's embeddings, or do
// nothing. It is invoked at most once per document per worker process:
// seen memoizes that decision so repeated child-chunk messages belonging
// to the same force-reprocess batch don't repeat the work.
type Planner struct {
	progressRepo  *progress.Repository
	embeddingRepo *embedstore.Repository
	seen          *memoset.Set[string]
	log           *slog.Logger
}

// NewPlanner creates a new reprocess planner.
func NewPlanner(progressRepo *progress.Repository, embeddingRepo *embedstore.Repository, log *slog.Logger) *Planner {
	return &Planner{
		progressRepo:  progressRepo,
		embeddingRepo: embeddingRepo,
		seen:          memoset.New[string](),
		log:           log.With(logger.Scope("reprocess.planner")),
	}
}

// ShouldPlan reports whether src still needs a planning decision in this
// process lifetime. It atomically claims the right to plan if so; callers
// that lose the race must skip straight to (C)'s per-child handling.
func (p *Planner) ShouldPlan(src string) bool {
	return p.seen.TryAdd(src)
}

// ResetSeen clears the per-process memoization set, called on SIGHUP so a
// long-lived worker process can replan documents across deploy-less config
// changes.
func (p *Planner) ResetSeen() {
	p.seen.Reset()
}

// Plan derives and executes the cleanup decision for src. expectedChunkIDs
// is the full set of child-chunk keys the caller expects to exist for this
// document (known from the chunker's fan-out count), used to detect a
// structural change against what the progress record has recorded so far.
func (p *Planner) Plan(ctx context.Context, src string, expectedChunkIDs []string) (Plan, error) {
	rec, err := p.progressRepo.Get(ctx, src)
	if err != nil {
		return Plan{}, err
	}

	existing := map[string]progress.ChildEntry{}
	if rec != nil {
		existing = rec.ChildChunks
	}

	if len(existing) != len(expectedChunkIDs) {
		if err := p.fullCleanup(ctx, src); err != nil {
			return Plan{}, err
		}
		return Plan{Decision: DecisionFull}, nil
	}

	counts, err := p.embeddingRepo.CountEmbeddings(ctx, src)
	if err != nil {
		return Plan{}, err
	}
	if counts.Total > 0 && counts.WithChildChunk < counts.Total {
		// Legacy rows predating child-chunk tagging can't be selectively
		// targeted, so the whole document starts over.
		if err := p.fullCleanup(ctx, src); err != nil {
			return Plan{}, err
		}
		return Plan{Decision: DecisionFull}, nil
	}

	var failing []string
	for key, entry := range existing {
		if entry.Status != progress.ChildCompleted {
			failing = append(failing, key)
		}
	}

	if len(failing) == 0 {
		return Plan{Decision: DecisionNone}, nil
	}

	if err := p.embeddingRepo.DeleteBySrcAndChildChunks(ctx, src, failing); err != nil {
		return Plan{}, err
	}
	return Plan{Decision: DecisionSelective, ChildChunks: failing}, nil
}

func (p *Planner) fullCleanup(ctx context.Context, src string) error {
	if err := p.embeddingRepo.DeleteBySrc(ctx, src); err != nil {
		return apperror.NewInternal("full cleanup: failed to delete embeddings", err)
	}
	if err := p.progressRepo.Delete(ctx, src); err != nil {
		return apperror.NewInternal("full cleanup: failed to delete progress record", err)
	}
	p.log.InfoContext(ctx, "full reprocess cleanup", slog.String("src", src))
	return nil
}
