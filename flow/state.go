package flow

import "maps"

// ChatMessage is one turn of the flattened chat history, matching the
// {role, content} pair named in the runtime state of §3.
type ChatMessage struct {
	Role    string
	Content string
}

// RuntimeState is the mutable per-execution scratch described in §3:
// `state`, `form` and `chatHistory`. It is owned by the scheduler for the
// duration of one run and is rehydrated from a checkpoint on resume.
type RuntimeState struct {
	State       map[string]any
	Form        map[string]any
	ChatHistory []ChatMessage
}

// NewRuntimeState returns a RuntimeState with empty, non-nil maps/slices.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		State: make(map[string]any),
		Form:  make(map[string]any),
	}
}

// Clone returns a deep-enough copy suitable for safe mutation — the
// top-level maps are copied, matching the engine's single-threaded access
// pattern (no concurrent mutation ever occurs, so a shallow copy of the
// top level is sufficient, mirroring the teacher's checkpoint snapshots
// which clone the top-level map before serializing it).
func (s *RuntimeState) Clone() *RuntimeState {
	clone := &RuntimeState{
		State:       make(map[string]any, len(s.State)),
		Form:        make(map[string]any, len(s.Form)),
		ChatHistory: append([]ChatMessage(nil), s.ChatHistory...),
	}
	maps.Copy(clone.State, s.State)
	maps.Copy(clone.Form, s.Form)
	return clone
}

// MergeStateUpdate applies a node's `state` output field as a last-writer-
// wins overlay, per §3/§4.5. The update itself stays on the owning
// checkpoint entry as part of the node's output (data.state); the merged
// result is not recorded per entry.
func (s *RuntimeState) MergeStateUpdate(update map[string]any) {
	maps.Copy(s.State, update)
}

// AppendChatHistory appends to the ordered chat history.
func (s *RuntimeState) AppendChatHistory(msgs ...ChatMessage) {
	s.ChatHistory = append(s.ChatHistory, msgs...)
}

// FlattenChatHistory renders the chat history as "role: content" lines,
// joined by newlines, as consumed by the {{chat_history}} variable
// reference (§4.2).
func FlattenChatHistory(history []ChatMessage) string {
	var out string
	for i, m := range history {
		if i > 0 {
			out += "\n"
		}
		out += m.Role + ": " + m.Content
	}
	return out
}

// ExecutedEntry is one record of the Agent Flow Executed Data checkpoint
// (§3). It is appended to on every terminal node transition.
type ExecutedEntry struct {
	NodeID          string
	NodeLabel       string
	Data            map[string]any // the node's full output
	PreviousNodeIds []string
	Status          Status
}

// ExecutedData is the ordered checkpoint list, serialized to the Execution
// Store on every terminal transition and on human-input stop.
type ExecutedData []ExecutedEntry

// FindByNodeID returns the index of the last entry for nodeID, or -1.
func (d ExecutedData) FindByNodeID(nodeID string) int {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].NodeID == nodeID {
			return i
		}
	}
	return -1
}

// ContentOf returns the `output.content` field of the entry, if present.
func (e ExecutedEntry) ContentOf() (string, bool) {
	out, ok := e.Data["output"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := out["content"].(string)
	return content, ok
}

// FinalStatus applies the precedence of §4.7/§8: TERMINATED > ERROR >
// STOPPED > FINISHED over the checkpoint entries.
func (d ExecutedData) FinalStatus() Status {
	seen := map[Status]bool{}
	for _, e := range d {
		seen[e.Status] = true
	}
	switch {
	case seen[StatusTerminated]:
		return StatusTerminated
	case seen[StatusError]:
		return StatusError
	case seen[StatusStopped]:
		return StatusStopped
	default:
		return StatusFinished
	}
}
