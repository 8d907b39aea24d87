package progress

import (
	"time"

	"github.com/uptrace/bun"
)

// ChildEntry is one child chunk's status inside the progress record's
// childChunks map.
type ChildEntry struct {
	Status      ChildStatus `json:"status"`
	LastUpdated time.Time   `json:"lastUpdated"`
	Version     int         `json:"version"`
	Error       string      `json:"error,omitempty"`
	ObjectKey   string      `json:"objectKey,omitempty"`
}

// Record is the per-document coordination row in rag.progress, one per
// trimmed_src. childChunks is stored as jsonb because its key set is
// dynamic (one entry per child chunk) and mutated by a read-modify-write
// under a row lock rather than by column-level CAS.
type Record struct {
	bun.BaseModel `bun:"table:rag.progress,alias:p"`

	Src           string                `bun:"src,pk" json:"src"`
	ParentStatus  ParentStatus          `bun:"parent_status,notnull" json:"parentChunkStatus"`
	Terminated    bool                  `bun:"terminated,notnull,default:false" json:"terminated"`
	ErrorMessage  *string               `bun:"error_message" json:"errorMessage,omitempty"`
	TotalChunks   int                   `bun:"total_chunks,notnull,default:0" json:"-"`
	ChildChunks   map[string]ChildEntry `bun:"child_chunks,type:jsonb" json:"-"`
	LastUpdated   time.Time             `bun:"last_updated,notnull,default:now()" json:"lastUpdated"`
}
