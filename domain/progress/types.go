package progress

// ChildStatus is the status of a single child chunk within a document's
// progress record. Transitions are one-way and the terminal states are
// absorbing: starting -> {processing, failed}, processing -> {completed,
// failed}, {completed, failed} -> nothing.
type ChildStatus string

const (
	ChildStarting   ChildStatus = "starting"
	ChildProcessing ChildStatus = "processing"
	ChildCompleted  ChildStatus = "completed"
	ChildFailed     ChildStatus = "failed"
)

// IsTerminal reports whether s is an absorbing state.
func (s ChildStatus) IsTerminal() bool {
	return s == ChildCompleted || s == ChildFailed
}

// IsLegalTransition reports whether moving from s to next is permitted.
// The empty status (no prior entry) may move to any status.
func (s ChildStatus) IsLegalTransition(next ChildStatus) bool {
	if s == "" {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	switch s {
	case ChildStarting:
		return next == ChildProcessing || next == ChildFailed
	case ChildProcessing:
		return next == ChildCompleted || next == ChildFailed
	default:
		return false
	}
}

// ParentStatus is the document-level status, a pure function of the
// multiset of child statuses once computed, but also directly settable to
// Failed as an eager short-circuit when any child fails.
type ParentStatus string

const (
	ParentStarting   ParentStatus = "starting"
	ParentProcessing ParentStatus = "processing"
	ParentCompleted  ParentStatus = "completed"
	ParentFailed     ParentStatus = "failed"
)

// IsTerminal reports whether s is an absorbing state.
func (s ParentStatus) IsTerminal() bool {
	return s == ParentCompleted || s == ParentFailed
}

// AggregateParentStatus implements the §3 aggregation rule: failed if any
// child failed, completed iff every child completed, otherwise processing.
// An empty set of children aggregates to Starting (nothing has begun yet).
func AggregateParentStatus(children map[string]ChildEntry) ParentStatus {
	if len(children) == 0 {
		return ParentStarting
	}

	allCompleted := true
	for _, c := range children {
		if c.Status == ChildFailed {
			return ParentFailed
		}
		if c.Status != ChildCompleted {
			allCompleted = false
		}
	}
	if allCompleted {
		return ParentCompleted
	}
	return ParentProcessing
}
