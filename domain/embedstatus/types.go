package embedstatus

// ItemType distinguishes the two status-lookup paths in §4.E.
type ItemType string

const (
	ItemImage ItemType = "image"
	ItemText  ItemType = "text"
)

// StatusQuery is one {key, type} pair in a getStatus request.
type StatusQuery struct {
	Key  string   `json:"key"`
	Type ItemType `json:"type"`
}

// Status is the outcome for one queried key. When a key's lookup itself
// fails, GetStatus leaves that key out of its result map (there is no
// entry and no null value for it) and the rest of the batch still succeeds.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
	StatusNotFound   Status = "not_found"
	StatusStarting   Status = "starting"
	StatusTerminated Status = "terminated"
)
