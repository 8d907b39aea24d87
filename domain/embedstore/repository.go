package embedstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Repository is the Vector Store Gateway: persistence for embedding rows,
// model-agnostic about vector arithmetic (it renders the caller's float32
// vectors to pgvector literal form and stores them as given).
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new embedstore repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("embedstore.repo")),
	}
}

// EnsureSchema idempotently creates the embeddings table and its indexes.
// Safe to call on every process start; only unrecoverable connectivity
// errors are returned.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rag.embeddings (
			id                     bigserial PRIMARY KEY,
			src                    text NOT NULL,
			child_chunk            text,
			local_embedding_index  integer NOT NULL,
			locations              jsonb,
			orig_indexes           jsonb,
			char_index             integer,
			token_count            integer,
			content                text NOT NULL,
			content_vector         vector(768),
			qa_vector              vector(768),
			object_key             text,
			created_at             timestamptz NOT NULL DEFAULT now(),
			UNIQUE (src, child_chunk, local_embedding_index)
		)
	`)
	if err != nil {
		r.log.Error("failed to ensure embeddings schema", logger.Error(err))
		return apperror.NewInternal("failed to ensure embeddings schema", err)
	}

	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS embeddings_src_child_chunk_idx
		ON rag.embeddings (src, child_chunk)
	`)
	if err != nil {
		r.log.Error("failed to ensure embeddings index", logger.Error(err))
		return apperror.NewInternal("failed to ensure embeddings index", err)
	}

	return nil
}

// Insert appends a single embedding row within the caller's transaction
// scope; it is (src, child_chunk, local_embedding_index)-idempotent via
// ON CONFLICT DO UPDATE so a redelivered message that re-embeds the same
// micro-chunk overwrites rather than duplicates.
//
// Vectors are written as raw SQL with an explicit ::vector cast rather
// than through bun's model-based insert: bun's driver has no native
// pgvector marshaling, so float slices must be rendered to the
// "[v1,v2,...]" text literal pgvector expects on the wire.
func (r *Repository) Insert(ctx context.Context, row *Row, contentEmbedding, qaEmbedding []float32) error {
	_, err := r.db.NewRaw(`
		INSERT INTO rag.embeddings
			(src, child_chunk, local_embedding_index, locations, orig_indexes,
			 char_index, token_count, content, content_vector, qa_vector, object_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?::vector, ?::vector, ?)
		ON CONFLICT (src, child_chunk, local_embedding_index) DO UPDATE SET
			locations      = EXCLUDED.locations,
			orig_indexes   = EXCLUDED.orig_indexes,
			char_index     = EXCLUDED.char_index,
			token_count    = EXCLUDED.token_count,
			content        = EXCLUDED.content,
			content_vector = EXCLUDED.content_vector,
			qa_vector      = EXCLUDED.qa_vector,
			object_key     = EXCLUDED.object_key
	`,
		row.Src, row.ChildChunk, row.LocalEmbeddingIndex, row.Locations, row.OrigIndexes,
		row.CharIndex, row.TokenCount, row.Content,
		floatsToVectorLiteral(contentEmbedding), floatsToVectorLiteral(qaEmbedding), row.ObjectKey,
	).Exec(ctx)

	if err != nil {
		r.log.Error("failed to insert embedding row",
			logger.Error(err), slog.String("src", row.Src), slog.String("childChunk", row.ChildChunk))
		return apperror.NewInternal("failed to insert embedding row", err)
	}
	return nil
}

// floatsToVectorLiteral converts a slice of float32 to a PostgreSQL vector
// literal.
func floatsToVectorLiteral(vec []float32) string {
	if len(vec) == 0 {
		return "[]"
	}
	result := "["
	for i, v := range vec {
		if i > 0 {
			result += ","
		}
		result += fmt.Sprintf("%g", v)
	}
	result += "]"
	return result
}

// DeleteBySrc removes every row for a document. Used by full cleanup.
func (r *Repository) DeleteBySrc(ctx context.Context, src string) error {
	_, err := r.db.NewDelete().
		Model((*Row)(nil)).
		Where("src = ?", src).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to delete embeddings by src", logger.Error(err), slog.String("src", src))
		return apperror.NewInternal("failed to delete embeddings", err)
	}
	return nil
}

// DeleteBySrcAndChildChunks removes rows for a document restricted to the
// given set of child-chunk keys. Used by selective cleanup.
func (r *Repository) DeleteBySrcAndChildChunks(ctx context.Context, src string, childChunks []string) error {
	if len(childChunks) == 0 {
		return nil
	}
	_, err := r.db.NewDelete().
		Model((*Row)(nil)).
		Where("src = ?", src).
		Where("child_chunk IN (?)", bun.In(childChunks)).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to selectively delete embeddings", logger.Error(err), slog.String("src", src))
		return apperror.NewInternal("failed to delete embeddings", err)
	}
	return nil
}

// CountEmbeddings reports the total row count for a document and how many
// of those rows carry a non-null child_chunk, letting the reprocess planner
// detect legacy data that predates chunk identification.
func (r *Repository) CountEmbeddings(ctx context.Context, src string) (CountResult, error) {
	total, err := r.db.NewSelect().Model((*Row)(nil)).Where("src = ?", src).Count(ctx)
	if err != nil {
		return CountResult{}, apperror.NewInternal("failed to count embeddings", err)
	}

	withChunk, err := r.db.NewSelect().
		Model((*Row)(nil)).
		Where("src = ?", src).
		Where("child_chunk IS NOT NULL").
		Count(ctx)
	if err != nil {
		return CountResult{}, apperror.NewInternal("failed to count embeddings", err)
	}

	return CountResult{Total: total, WithChildChunk: withChunk}, nil
}

// DistinctChildChunks returns the distinct child_chunk keys with at least
// one embedding row for src.
func (r *Repository) DistinctChildChunks(ctx context.Context, src string) ([]string, error) {
	var keys []string
	err := r.db.NewSelect().
		Model((*Row)(nil)).
		ColumnExpr("DISTINCT child_chunk").
		Where("src = ?", src).
		Where("child_chunk IS NOT NULL").
		Scan(ctx, &keys)
	if err != nil {
		return nil, apperror.NewInternal("failed to list child chunks", err)
	}
	return keys, nil
}
