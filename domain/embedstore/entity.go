package embedstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Row is one embedding row in the rag.embeddings table: a single local
// micro-chunk's pair of vectors (content + QA-augmented), addressed by
// (src, child_chunk, local_embedding_index).
type Row struct {
	bun.BaseModel `bun:"table:rag.embeddings,alias:e"`

	ID                  int64           `bun:"id,pk,autoincrement" json:"id"`
	Src                 string          `bun:"src,notnull" json:"src"`
	ChildChunk          string          `bun:"child_chunk" json:"childChunk"`
	LocalEmbeddingIndex int             `bun:"local_embedding_index,notnull" json:"localEmbeddingIndex"`
	Locations           json.RawMessage `bun:"locations,type:jsonb" json:"locations,omitempty"`
	OrigIndexes         json.RawMessage `bun:"orig_indexes,type:jsonb" json:"origIndexes,omitempty"`
	CharIndex           int             `bun:"char_index" json:"charIndex"`
	TokenCount          int             `bun:"token_count" json:"tokenCount"`
	Content             string          `bun:"content,notnull" json:"content"`
	ContentVector       []byte          `bun:"content_vector,type:vector(768)" json:"-"`
	QAVector            []byte          `bun:"qa_vector,type:vector(768)" json:"-"`
	ObjectKey           *string         `bun:"object_key" json:"objectKey,omitempty"`
	CreatedAt           time.Time       `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// CountResult reports the reprocess planner's legacy-data probe: how many
// rows exist for a document, and of those, how many carry a child_chunk
// identifier (pre-migration rows may have a NULL child_chunk).
type CountResult struct {
	Total         int
	WithChildChunk int
}
