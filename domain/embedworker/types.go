package embedworker

import "encoding/json"

// QueueMessage is the body of one SQS message: one child chunk of one
// document, identified by its storage location. ForceReprocess and
// TotalChunks travel as object metadata on the underlying chunk file in
// the source system; they are carried here as plain fields since this
// core owns message production for its own queue.
type QueueMessage struct {
	Bucket         string `json:"bucket"`
	Key            string `json:"key"`
	Src            string `json:"src"`
	ChunkIndex     int    `json:"chunkIndex"`
	TotalChunks    int    `json:"totalChunks"`
	ForceReprocess bool   `json:"forceReprocess"`
}

// ChunkFile is the JSON document stored at <trimmed_src>-<k>.chunks.json:
// an ordered sequence of local micro-chunks belonging to one child chunk.
type ChunkFile struct {
	Src    string       `json:"src"`
	Chunks []LocalChunk `json:"chunks"`
}

// LocalChunk is one micro-chunk within a child-chunk file.
type LocalChunk struct {
	Content   string          `json:"content"`
	Locations json.RawMessage `json:"locations,omitempty"`
	Indexes   json.RawMessage `json:"indexes,omitempty"`
	CharIndex int             `json:"char_index"`
}
