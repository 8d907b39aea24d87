// Package coreerrors defines the typed error taxonomy shared by the
// embedding pipeline and the task scheduler. Most of these never cross an
// HTTP boundary, so unlike pkg/apperror they carry no HTTP status -- callers
// distinguish them with errors.As and decide locally whether to log, retry,
// or surface a field on a record.
package coreerrors

import "fmt"

// ChildFailed marks a child chunk as unrecoverably failed for the current
// message; the parent is forced to failed in the same logical step.
type ChildFailed struct {
	Src   string
	Child string
	Err   error
}

func (e *ChildFailed) Error() string {
	return fmt.Sprintf("child %s of %s failed: %v", e.Child, e.Src, e.Err)
}

func (e *ChildFailed) Unwrap() error { return e.Err }

// StructuralChange indicates the expected child-chunk count no longer
// matches the progress record; the reprocess planner responds with a full
// cleanup. Not user-visible.
type StructuralChange struct {
	Src      string
	Expected int
	Existing int
}

func (e *StructuralChange) Error() string {
	return fmt.Sprintf("%s: expected %d child chunks, found %d", e.Src, e.Expected, e.Existing)
}

// InvalidState marks an illegal status transition attempt; callers log it
// as a warning and no-op.
type InvalidState struct {
	Src  string
	From string
	To   string
}

func (e *InvalidState) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Src, e.From, e.To)
}

// RaceLoss marks a conditional write that did not apply because another
// writer already moved the row past the predicate. Informational, never
// surfaced to a user.
type RaceLoss struct {
	Table string
	Key   string
}

func (e *RaceLoss) Error() string {
	return fmt.Sprintf("lost race updating %s[%s]", e.Table, e.Key)
}

// TaskClaimLost marks a scheduler tick that failed to claim a due instance
// because a concurrent tick already claimed it.
type TaskClaimLost struct {
	TaskID string
	DueAt  string
}

func (e *TaskClaimLost) Error() string {
	return fmt.Sprintf("task %s: claim for %s lost to a concurrent tick", e.TaskID, e.DueAt)
}

// CredentialFailure marks a task whose API key could not be resolved to an
// active credential; the dispatcher emits a failure log entry and does not
// enqueue the task.
type CredentialFailure struct {
	TaskID   string
	APIKeyID string
	Reason   string
}

func (e *CredentialFailure) Error() string {
	return fmt.Sprintf("task %s: credential %s unusable: %s", e.TaskID, e.APIKeyID, e.Reason)
}

// Terminated marks a message dropped because the document's progress record
// was already terminated by an operator kill switch. Not an error in the
// conventional sense; kept here so worker code can use errors.As uniformly.
type Terminated struct {
	Src string
}

func (e *Terminated) Error() string {
	return fmt.Sprintf("%s: terminated by operator, message dropped", e.Src)
}
