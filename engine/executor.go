package engine

import (
	"context"
	"maps"

	"github.com/agentflow/engine/flow"
	"github.com/agentflow/engine/log"
	"github.com/agentflow/engine/nodereg"
	"github.com/agentflow/engine/stream"
)

// humanInputActionKey is the output field the executor synthesizes on a
// human-input pause (§4.5 step 8).
const humanInputActionKey = "humanInputAction"

// Executor dispatches one node invocation per §4.5. It is stateless across
// calls; all per-execution state lives in the scheduler.
type Executor struct {
	Registry      nodereg.Registry
	Streamer      stream.Streamer
	OverrideAllow map[string]bool // node logical name -> override config permitted
	Logger        log.Logger
}

// NewExecutor constructs an Executor, defaulting a nil streamer to
// NoopStreamer and setting Logger to the package default logger.
func NewExecutor(registry nodereg.Registry, streamer stream.Streamer, overrideAllow map[string]bool) *Executor {
	if streamer == nil {
		streamer = stream.NoopStreamer{}
	}
	return &Executor{
		Registry:      registry,
		Streamer:      streamer,
		OverrideAllow: overrideAllow,
		Logger:        log.GetDefaultLogger(),
	}
}

// dispatchInput is what the scheduler hands the Executor for one node
// dispatch: the combined fan-in input (or the seed input for a starting
// node) plus, for a node with no predecessors, a resume/loop-seeded value.
type dispatchInput struct {
	NodeID          string
	CombinedInput   any
	PreviousNodeIDs []string
}

// dispatchResult is what the Executor reports back to the scheduler.
type dispatchResult struct {
	Entry       flow.ExecutedEntry
	ShouldStop  bool
	StateUpdate map[string]any
	FormUpdate  map[string]any
	ChatAppend  []flow.ChatMessage
}

// Run executes one node per §4.5's eight steps.
func (ex *Executor) Run(ctx context.Context, node flow.Node, in dispatchInput, rctx *flow.ResolveContext, params nodereg.RunParams, overrideConfig map[string]any) (dispatchResult, error) {
	// Step 1: cancellation check.
	select {
	case <-ctx.Done():
		return dispatchResult{}, &AbortedError{NodeID: node.ID}
	default:
	}

	// Step 2: INPROGRESS stream event.
	ex.Streamer.Emit(stream.Event{
		ChatID: params.ChatID,
		Kind:   stream.KindNextNode,
		NodeID: node.ID,
		NodeLabel: node.Label,
		Status: string(flow.StatusInProgress),
	})
	ex.Logger.Debug("dispatching node %s (%s)", node.ID, node.Name)

	// Step 3: deep-copy declared data, apply override config if allowlisted.
	data := make(map[string]any, len(node.Data))
	maps.Copy(data, node.Data)
	if overrideConfig != nil && ex.OverrideAllow[node.Name] {
		if overrides, ok := overrideConfig[node.Name].(map[string]any); ok {
			maps.Copy(data, overrides)
		}
	}

	// Step 4: variable resolution over the copied data.
	resolved, err := rctx.ResolveValue(data)
	if err != nil {
		ex.Logger.Error("node %s: resolving data failed: %v", node.ID, err)
		entry := flow.ExecutedEntry{
			NodeID: node.ID, NodeLabel: node.Label,
			Data:            map[string]any{"error": err.Error()},
			PreviousNodeIds: in.PreviousNodeIDs,
			Status:          flow.StatusError,
		}
		return dispatchResult{Entry: entry}, &NodeExecutionError{NodeID: node.ID, Err: err}
	}
	resolvedData, _ := resolved.(map[string]any)

	// Step 5: isLastNode is determined by the caller (IsLastNode below) and
	// arrives already set on params.

	// Step 6: finalInput assembly — question/form mutual exclusivity is
	// checked by the caller before seeding the start node; here we simply
	// forward the already-combined input.
	finalInput := in.CombinedInput

	runner, ok := ex.Registry.Resolve(node.Name)
	if !ok {
		ex.Logger.Error("node %s: no runner registered for %q", node.ID, node.Name)
		err := ErrNoRunner
		entry := flow.ExecutedEntry{
			NodeID: node.ID, NodeLabel: node.Label,
			Data:            map[string]any{"error": "no runner registered for node " + node.Name},
			PreviousNodeIds: in.PreviousNodeIDs,
			Status:          flow.StatusError,
		}
		return dispatchResult{Entry: entry}, &NodeExecutionError{NodeID: node.ID, Err: err}
	}

	// Step 7: invoke the node.
	output, err := runner.Run(ctx, resolvedData, finalInput, params)
	if err != nil {
		ex.Logger.Error("node %s: run failed: %v", node.ID, err)
		entry := flow.ExecutedEntry{
			NodeID: node.ID, NodeLabel: node.Label,
			Data:            map[string]any{"error": err.Error()},
			PreviousNodeIds: in.PreviousNodeIDs,
			Status:          flow.StatusError,
		}
		return dispatchResult{Entry: entry}, &NodeExecutionError{NodeID: node.ID, Err: err}
	}

	// Step 8: human-input stop.
	if node.Name == flow.NameHumanInput && params.HumanInput == nil {
		if output == nil {
			output = nodereg.Output{}
		}
		outField, _ := output["output"].(map[string]any)
		if outField == nil {
			outField = map[string]any{}
		}
		ex.Logger.Info("node %s stopped for human input", node.ID)
		outField[humanInputActionKey] = map[string]any{
			"id":     node.ID,
			"nodeId": node.ID,
			"elements": []map[string]any{
				{"type": "approve-button", "label": "Yes"},
				{"type": "reject-button", "label": "No"},
			},
		}
		output["output"] = outField

		entry := flow.ExecutedEntry{
			NodeID: node.ID, NodeLabel: node.Label,
			Data:            output,
			PreviousNodeIds: in.PreviousNodeIDs,
			Status:          flow.StatusStopped,
		}

		ex.Streamer.Emit(stream.Event{
			ChatID: params.ChatID,
			Kind:   stream.KindAction,
			Action: map[string]any{
				"id":     node.ID,
				"mapping": map[string]any{"approve": "yes", "reject": "no"},
				"elements": outField[humanInputActionKey],
				"data":    output,
			},
		})
		ex.Streamer.Emit(stream.Event{
			ChatID: params.ChatID,
			Kind:   stream.KindNextNode,
			NodeID: node.ID,
			NodeLabel: node.Label,
			Status: string(flow.StatusStopped),
		})

		return dispatchResult{Entry: entry, ShouldStop: true}, nil
	}

	entry := flow.ExecutedEntry{
		NodeID: node.ID, NodeLabel: node.Label,
		Data:            output,
		PreviousNodeIds: in.PreviousNodeIDs,
		Status:          flow.StatusFinished,
	}

	result := dispatchResult{Entry: entry}
	if state, ok := output["state"].(map[string]any); ok {
		result.StateUpdate = state
	}
	if outField, ok := output["output"].(map[string]any); ok {
		if form, ok := outField["form"].(map[string]any); ok {
			result.FormUpdate = form
		}
	}
	result.ChatAppend = extractChatHistory(output["chatHistory"])

	ex.Streamer.Emit(stream.Event{
		ChatID: params.ChatID,
		Kind:   stream.KindNextNode,
		NodeID: node.ID,
		NodeLabel: node.Label,
		Status: string(flow.StatusFinished),
	})

	return result, nil
}

// extractChatHistory tolerates the two shapes a node's `chatHistory` field
// can take depending on how the implementation built its output map:
// []map[string]any (constructed in Go code) or []any (round-tripped
// through JSON).
func extractChatHistory(v any) []flow.ChatMessage {
	toMsg := func(m map[string]any) (flow.ChatMessage, bool) {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		if role == "" && content == "" {
			return flow.ChatMessage{}, false
		}
		return flow.ChatMessage{Role: role, Content: content}, true
	}

	var out []flow.ChatMessage
	switch history := v.(type) {
	case []map[string]any:
		for _, m := range history {
			if msg, ok := toMsg(m); ok {
				out = append(out, msg)
			}
		}
	case []any:
		for _, item := range history {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := toMsg(m); ok {
					out = append(out, msg)
				}
			}
		}
	}
	return out
}

// IsLastNode implements §4.5 step 5: true if the node has no successors, or
// it is a human-input node and this call is not a resume of it.
func IsLastNode(g *flow.Graph, node flow.Node, isResumeOfThisNode bool) bool {
	if len(g.Successors(node.ID)) == 0 {
		return true
	}
	if node.Name == flow.NameHumanInput && !isResumeOfThisNode {
		return true
	}
	return false
}
