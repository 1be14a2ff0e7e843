package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentflow/engine/chatstore"
	"github.com/agentflow/engine/flow"
	"github.com/agentflow/engine/nodereg"
	"github.com/agentflow/engine/store"
	"github.com/agentflow/engine/stream"
	"github.com/agentflow/engine/varstore"
)

// HumanInput is the resume payload of §4.8/§6: {startNodeId, feedback, ...}.
type HumanInput struct {
	StartNodeID string
	Feedback    string
	Approved    bool
}

// Input is the incoming per-request payload of §6.
type Input struct {
	Question       string
	Form           map[string]any
	HumanInput     *HumanInput
	OverrideConfig map[string]any
	Uploads        []string // uploaded-file text content, already extracted
	SessionID      string
	LeadEmail      string
	IsInternal     bool
}

// Params bundles everything ExecuteAgentFlow needs, per §6's entry-point
// parameter list.
type Params struct {
	AgentflowID  string
	ChatID       string
	APIMessageID string

	Graph    *flow.Graph
	Input    Input
	Registry nodereg.Registry

	ExecutionStore store.Store
	VarStore       *varstore.Store
	ChatStore      chatstore.Store
	Streamer       stream.Streamer

	OverrideAllow map[string]bool
	MaxIterations int
	MaxLoopCount  int

	Ctx context.Context // carries the caller's abort signal via cancellation
}

// Result is the external result shape of §6.
type Result struct {
	Text                  string
	Question              string
	Form                  map[string]any
	ChatID                string
	ChatMessageID         string
	FollowUpPrompts       []string
	ExecutionID           string
	SessionID             string
	AgentFlowExecutedData flow.ExecutedData
}

// checkpointSnapshot is the JSON shape persisted in Execution.ExecutionData.
type checkpointSnapshot struct {
	Entries     []entrySnapshot    `json:"entries"`
	State       map[string]any     `json:"state"`
	Form        map[string]any     `json:"form"`
	ChatHistory []flow.ChatMessage `json:"chatHistory"`
}

type entrySnapshot struct {
	NodeID          string         `json:"nodeId"`
	NodeLabel       string         `json:"nodeLabel"`
	Data            map[string]any `json:"data"`
	PreviousNodeIds []string       `json:"previousNodeIds"`
	Status          flow.Status    `json:"status"`
}

func toSnapshot(checkpoint flow.ExecutedData, rt *flow.RuntimeState) checkpointSnapshot {
	entries := make([]entrySnapshot, len(checkpoint))
	for i, e := range checkpoint {
		entries[i] = entrySnapshot{
			NodeID: e.NodeID, NodeLabel: e.NodeLabel, Data: e.Data,
			PreviousNodeIds: e.PreviousNodeIds, Status: e.Status,
		}
	}
	return checkpointSnapshot{Entries: entries, State: rt.State, Form: rt.Form, ChatHistory: rt.ChatHistory}
}

func fromSnapshot(data []byte) (flow.ExecutedData, *flow.RuntimeState, error) {
	var snap checkpointSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("engine: unmarshal checkpoint snapshot: %w", err)
	}
	checkpoint := make(flow.ExecutedData, len(snap.Entries))
	for i, e := range snap.Entries {
		checkpoint[i] = flow.ExecutedEntry{
			NodeID: e.NodeID, NodeLabel: e.NodeLabel, Data: e.Data,
			PreviousNodeIds: e.PreviousNodeIds, Status: e.Status,
		}
	}
	rt := &flow.RuntimeState{State: snap.State, Form: snap.Form, ChatHistory: snap.ChatHistory}
	if rt.State == nil {
		rt.State = make(map[string]any)
	}
	if rt.Form == nil {
		rt.Form = make(map[string]any)
	}
	return checkpoint, rt, nil
}

// ExecuteAgentFlow is the single entry point of §6. It either starts a
// fresh flow execution or resumes a STOPPED one, depending on whether
// params.Input.HumanInput is set.
func ExecuteAgentFlow(p Params) (Result, error) {
	ctx := p.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	streamer := p.Streamer
	if streamer == nil {
		streamer = stream.NoopStreamer{}
	}

	if p.Input.Question != "" && p.Input.Form != nil && len(p.Input.Form) > 0 {
		return Result{}, ErrBadInput
	}

	if p.Input.HumanInput != nil {
		return resumeAgentFlow(ctx, p, streamer)
	}
	return startAgentFlow(ctx, p, streamer)
}

func startAgentFlow(ctx context.Context, p Params, streamer stream.Streamer) (Result, error) {
	starts := p.Graph.StartingNodes()
	var seedNodeID string
	for _, id := range starts {
		if n := p.Graph.Nodes[id]; n.Name == flow.NameStart {
			seedNodeID = id
			break
		}
	}
	if seedNodeID == "" {
		return Result{}, ErrStartInput
	}

	exec, err := p.ExecutionStore.Create(ctx, p.AgentflowID, p.Input.SessionID, nil)
	if err != nil {
		return Result{}, fmt.Errorf("engine: create execution: %w", err)
	}

	if p.ChatStore != nil {
		_, _ = p.ChatStore.Create(ctx, chatstore.Message{
			ChatID: p.ChatID, SessionID: p.Input.SessionID,
			Role: chatstore.RoleUserMessage, Content: p.Input.Question,
		})
	}

	streamer.Emit(stream.Event{ChatID: p.ChatID, Kind: stream.KindFlowStatus, FlowStatus: string(flow.StatusInProgress)})

	rt := flow.NewRuntimeState()
	rctx := &flow.ResolveContext{
		Question: p.Input.Question,
		Form:     p.Input.Form,
		Vars:     p.VarStore.Merged(overrideVars(p.Input.OverrideConfig)),
		FlowConfig: map[string]any{
			"chatflowid":   p.AgentflowID,
			"chatId":       p.ChatID,
			"sessionId":    p.Input.SessionID,
			"apiMessageId": p.APIMessageID,
		},
	}
	for _, u := range p.Input.Uploads {
		rctx.FileAttachmentText += u
	}

	finalInput := p.Input.Question
	if len(p.Input.Form) > 0 {
		finalInput = p.Input.Form
	}

	sch := buildScheduler(p, streamer)

	runResult := sch.Run(ctx, seedNodeID, finalInput, rctx, rt, nodereg.RunParams{
		ChatflowID: p.AgentflowID, ChatID: p.ChatID, SessionID: p.Input.SessionID,
		APIMessageID: p.APIMessageID,
	}, p.Input.OverrideConfig, nil)

	return finalizeRun(ctx, p, streamer, exec.ID, runResult, rt)
}

func resumeAgentFlow(ctx context.Context, p Params, streamer stream.Streamer) (Result, error) {
	latest, err := p.ExecutionStore.LatestBySession(ctx, p.AgentflowID, p.Input.SessionID)
	if err != nil {
		if err == store.ErrNotFound {
			return Result{}, ErrNoExecution
		}
		return Result{}, fmt.Errorf("engine: resume lookup: %w", err)
	}
	if latest.State != store.StateStopped {
		return Result{}, ErrInvalidResume
	}

	checkpoint, rt, err := fromSnapshot(latest.ExecutionData)
	if err != nil {
		return Result{}, err
	}

	startNodeID := p.Input.HumanInput.StartNodeID
	idx := checkpoint.FindByNodeID(startNodeID)
	if idx < 0 {
		return Result{}, ErrNodeNotInCheckpoint
	}

	// Drop the stale STOPPED entry and rehydrate state atomically with the
	// queue seed so no intermediate snapshot is observable (§9 open question).
	stoppedEntry := checkpoint[idx]
	checkpoint = append(checkpoint[:idx], checkpoint[idx+1:]...)
	if s, ok := stoppedEntry.Data["state"].(map[string]any); ok {
		rt.MergeStateUpdate(s)
	}

	inProgress := store.StateInProgress
	if err := p.ExecutionStore.Update(ctx, latest.ID, &inProgress, nil); err != nil {
		return Result{}, fmt.Errorf("engine: resume update: %w", err)
	}

	if p.ChatStore != nil {
		_ = p.ChatStore.ClearLatestAction(ctx, p.ChatID)
	}

	streamer.Emit(stream.Event{ChatID: p.ChatID, Kind: stream.KindFlowStatus, FlowStatus: string(flow.StatusInProgress)})

	rctx := &flow.ResolveContext{
		Form:       p.Input.Form,
		Vars:       p.VarStore.Merged(overrideVars(p.Input.OverrideConfig)),
		Checkpoint: checkpoint,
		FlowConfig: map[string]any{
			"chatflowid":   p.AgentflowID,
			"chatId":       p.ChatID,
			"sessionId":    p.Input.SessionID,
			"apiMessageId": p.APIMessageID,
		},
		ChatHistory: rt.ChatHistory,
	}

	humanInputMap := map[string]any{
		"startNodeId": p.Input.HumanInput.StartNodeID,
		"feedback":    p.Input.HumanInput.Feedback,
		"approved":    p.Input.HumanInput.Approved,
	}

	sch := buildScheduler(p, streamer)
	runResult := sch.Run(ctx, startNodeID, humanInputMap, rctx, rt, nodereg.RunParams{
		ChatflowID: p.AgentflowID, ChatID: p.ChatID, SessionID: p.Input.SessionID,
		APIMessageID: p.APIMessageID, HumanInput: humanInputMap,
	}, p.Input.OverrideConfig, checkpoint)

	return finalizeRun(ctx, p, streamer, latest.ID, runResult, rt)
}

// overrideVars extracts the `$vars` sub-map from a request's overrideConfig
// (§4.2's `$vars.<path>` row), so only `overrideConfig.vars` is merged over
// the static VarStore rather than the whole overrideConfig payload.
func overrideVars(overrideConfig map[string]any) map[string]any {
	vars, _ := overrideConfig["vars"].(map[string]any)
	return vars
}

func buildScheduler(p Params, streamer stream.Streamer) *Scheduler {
	ex := NewExecutor(p.Registry, streamer, p.OverrideAllow)
	sch := NewScheduler(p.Graph, ex)
	if p.MaxIterations > 0 {
		sch.MaxIterations = p.MaxIterations
	}
	if p.MaxLoopCount > 0 {
		sch.MaxLoopCount = p.MaxLoopCount
	}
	return sch
}

func finalizeRun(ctx context.Context, p Params, streamer stream.Streamer, executionID string, runResult RunResult, rt *flow.RuntimeState) (Result, error) {
	finalState := runResult.FinalStatus
	storeState := store.State(finalState)

	snap := toSnapshot(runResult.Checkpoint, rt)
	data, _ := json.Marshal(snap)

	_ = p.ExecutionStore.Update(ctx, executionID, &storeState, data)

	streamer.Emit(stream.Event{ChatID: p.ChatID, Kind: stream.KindFlowStatus, FlowStatus: string(finalState)})

	text := " "
	if n := len(runResult.Checkpoint); n > 0 {
		if content, ok := runResult.Checkpoint[n-1].ContentOf(); ok && content != "" {
			text = content
		}
	}

	if p.ChatStore != nil {
		msg := chatstore.Message{
			ChatID: p.ChatID, SessionID: p.Input.SessionID,
			Role: chatstore.RoleAPIMessage, Content: text,
		}
		if finalState == flow.StatusStopped {
			if n := len(runResult.Checkpoint); n > 0 {
				if out, ok := runResult.Checkpoint[n-1].Data["output"].(map[string]any); ok {
					if action, ok := out[humanInputActionKey].(map[string]any); ok {
						msg.Action = action
					}
				}
			}
		}
		_, _ = p.ChatStore.Create(ctx, msg)
	}

	result := Result{
		Text:                  text,
		Question:              p.Input.Question,
		Form:                  rt.Form,
		ChatID:                p.ChatID,
		ChatMessageID:         p.APIMessageID,
		ExecutionID:           executionID,
		SessionID:             p.Input.SessionID,
		AgentFlowExecutedData: runResult.Checkpoint,
	}

	if runResult.Err != nil {
		if _, ok := runResult.Err.(*AbortedError); ok {
			return result, nil
		}
		if runResult.Err == ErrIterationLimit {
			return result, ErrIterationLimit
		}
		return result, runResult.Err
	}
	return result, nil
}
