package embedworker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueMessage_RoundTrip(t *testing.T) {
	qm := QueueMessage{Bucket: "b", Key: "k", Src: "doc1.json", ChunkIndex: 2, TotalChunks: 3, ForceReprocess: true}
	data, err := json.Marshal(qm)
	require.NoError(t, err)

	var out QueueMessage
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, qm, out)
}

func TestChunkFile_Unmarshal(t *testing.T) {
	raw := `{"src":"doc1.json","chunks":[{"content":"hi","char_index":0}]}`
	var cf ChunkFile
	require.NoError(t, json.Unmarshal([]byte(raw), &cf))
	require.Equal(t, "doc1.json", cf.Src)
	require.Len(t, cf.Chunks, 1)
	require.Equal(t, "hi", cf.Chunks[0].Content)
}
