// Package engine implements the Node Executor and Scheduler Loop (§4.5,
// §4.7) and exposes the single entry point ExecuteAgentFlow (§6) that
// drives one flow execution against a live chat session.
package engine

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, mirroring the teacher's graph/graph.go style of
// package-level vars for conditions the caller is expected to check with
// errors.Is, plus struct types (below) for conditions that carry data.
var (
	// ErrBadInput is returned when both `question` and `form` are supplied
	// to a single call — the two are mutually exclusive (§4.5 step 6).
	ErrBadInput = errors.New("engine: question and form are mutually exclusive")

	// ErrInvalidResume is returned when a resume is attempted against an
	// execution that is not currently STOPPED (§4.8).
	ErrInvalidResume = errors.New("engine: execution is not in a resumable (STOPPED) state")

	// ErrNodeNotInCheckpoint is returned when a resume's humanInput.startNodeId
	// does not appear in the latest execution's checkpoint (§4.8).
	ErrNodeNotInCheckpoint = errors.New("engine: resume start node not found in checkpoint")

	// ErrIterationLimit is returned when the scheduler loop exceeds
	// MAX_ITERATIONS (§4.7, §7).
	ErrIterationLimit = errors.New("engine: exceeded maximum scheduler iterations")

	// ErrStartInput is returned when no starting node (indegree 0) has the
	// logical name startAgentflow (§7). A node's startInputType is not
	// inspected.
	ErrStartInput = errors.New("engine: no starting node accepts input")

	// ErrNoExecution is returned when a resume is requested but no prior
	// execution exists for (agentflowId, sessionId).
	ErrNoExecution = errors.New("engine: no execution found for session")

	// ErrNoRunner is returned when a node's logical name has no registered
	// Runner.
	ErrNoRunner = errors.New("engine: no runner registered for node")
)

// AbortedError is returned when the caller's abort signal fires during a
// run. Per §7 it carries no user-facing error string — Error() exists only
// to satisfy the `error` interface; callers should check errors.As and
// treat its presence as cancellation, not failure.
type AbortedError struct {
	NodeID string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("engine: aborted at node %s", e.NodeID)
}

// NodeExecutionError wraps a node implementation's own error with the
// node id that produced it (§7: NodeExecutionError / ResolveError both
// terminate the owning node's checkpoint entry as ERROR).
type NodeExecutionError struct {
	NodeID string
	Err    error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("engine: node %s failed: %v", e.NodeID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}
