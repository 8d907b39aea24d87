package reprocess

// Decision names the cleanup action the planner chose for a document.
type Decision string

const (
	// DecisionNone is a no-op: every recorded child is completed and the
	// stored state is structurally consistent.
	DecisionNone Decision = "none"
	// DecisionSelective deletes embeddings only for non-completed children,
	// leaving completed rows and the progress record untouched.
	DecisionSelective Decision = "selective"
	// DecisionFull wipes every embedding row and the progress record for
	// the document, forcing every child to start from scratch.
	DecisionFull Decision = "full"
)

// Plan is the planner's output for one document.
type Plan struct {
	Decision Decision
	// ChildChunks lists the child-chunk keys a DecisionSelective cleanup
	// removed embeddings for. Empty for DecisionNone and DecisionFull.
	ChildChunks []string
}
