package engine

import (
	"context"
	"time"

	"github.com/agentflow/engine/flow"
	"github.com/agentflow/engine/nodereg"
	"github.com/agentflow/engine/stream"
)

// DefaultMaxIterations and DefaultMaxLoopCount are the scheduler's default
// runaway-graph ceilings, overridable via Scheduler.MaxIterations/MaxLoopCount
// (engine.Params.MaxIterations/MaxLoopCount). The scheduler never touches the
// environment; MAX_ITERATIONS/MAX_LOOP_COUNT are not read anywhere in this
// module, so a caller that wants them honored sets engine.Params itself.
const (
	DefaultMaxIterations = 1000
	DefaultMaxLoopCount  = 10
)

// queueEntry is one ready-queue item: the node to dispatch plus the
// combined input already computed for it.
type queueEntry struct {
	NodeID        string
	CombinedInput any
	ReceivedFrom  map[string]any // predecessorId -> output, as delivered to the waiting record
}

// Scheduler drives the ready-queue loop of §4.7 over one flow graph.
type Scheduler struct {
	Graph         *flow.Graph
	Executor      *Executor
	MaxIterations int
	MaxLoopCount  int
	Tracer        Tracer
}

// NewScheduler constructs a Scheduler with the default ceilings and a
// no-op Tracer.
func NewScheduler(g *flow.Graph, ex *Executor) *Scheduler {
	return &Scheduler{
		Graph:         g,
		Executor:      ex,
		MaxIterations: DefaultMaxIterations,
		MaxLoopCount:  DefaultMaxLoopCount,
		Tracer:        NoopTracer{},
	}
}

// RunResult is what one scheduler pass produces; entrypoint.go turns this
// into the external Result of §6.
type RunResult struct {
	Checkpoint  flow.ExecutedData
	FinalStatus flow.Status
	Stopped     bool
	Err         error
}

// snapshot streams the current checkpoint, stripping FLOWISE_CREDENTIAL_ID
// keys per §6/§8.
func (sch *Scheduler) snapshot(chatID string, checkpoint flow.ExecutedData) {
	stripped := stream.StripCredentialKeys(checkpointToAny(checkpoint))
	sch.Executor.Streamer.Emit(stream.Event{
		ChatID:       chatID,
		Kind:         stream.KindExecutedData,
		ExecutedData: stripped,
	})
}

func checkpointToAny(checkpoint flow.ExecutedData) []any {
	out := make([]any, len(checkpoint))
	for i, e := range checkpoint {
		out[i] = map[string]any{
			"nodeId":          e.NodeID,
			"nodeLabel":       e.NodeLabel,
			"data":            e.Data,
			"previousNodeIds": e.PreviousNodeIds,
			"status":          string(e.Status),
		}
	}
	return out
}

// Run executes the ready-queue loop starting from seedNodeID with
// seedInput, against rctx (shared, mutated as the run progresses) and
// runtime state. humanInput is forwarded on the seed dispatch only, never
// reapplied on subsequent dispatches within this run (§4.7's "clear
// currentHumanInput" step).
func (sch *Scheduler) Run(ctx context.Context, seedNodeID string, seedInput any, rctx *flow.ResolveContext, rt *flow.RuntimeState, params nodereg.RunParams, overrideConfig map[string]any, checkpoint flow.ExecutedData) (runResult RunResult) {
	flowStarted := time.Now()
	sch.Tracer.OnSpan(TraceSpan{Event: TraceFlowStart, StartTime: flowStarted})
	defer func() {
		sch.Tracer.OnSpan(TraceSpan{Event: TraceFlowEnd, StartTime: flowStarted, EndTime: time.Now(), Err: runResult.Err})
	}()

	analyzer := flow.NewAnalyzer(sch.Graph)
	waiting := make(map[string]*flow.WaitingRecord)
	loopCounts := make(map[string]int)

	queue := []queueEntry{{NodeID: seedNodeID, CombinedInput: seedInput}}
	iterations := 0
	humanInput := params.HumanInput

	for len(queue) > 0 {
		if iterations >= sch.MaxIterations {
			entry := flow.ExecutedEntry{
				NodeID: seedNodeID,
				Data:   map[string]any{"error": ErrIterationLimit.Error()},
				Status: flow.StatusError,
			}
			checkpoint = append(checkpoint, entry)
			sch.snapshot(params.ChatID, checkpoint)
			return RunResult{Checkpoint: checkpoint, FinalStatus: checkpoint.FinalStatus(), Err: ErrIterationLimit}
		}
		iterations++

		select {
		case <-ctx.Done():
			node := sch.Graph.Nodes[queue[0].NodeID]
			checkpoint = append(checkpoint, flow.ExecutedEntry{
				NodeID: node.ID, NodeLabel: node.Label,
				Status: flow.StatusTerminated,
			})
			sch.snapshot(params.ChatID, checkpoint)
			return RunResult{Checkpoint: checkpoint, FinalStatus: flow.StatusTerminated, Err: &AbortedError{NodeID: node.ID}}
		default:
		}

		entry := queue[0]
		queue = queue[1:]

		node, ok := sch.Graph.Nodes[entry.NodeID]
		if !ok || node.IsStickyNote() {
			continue
		}

		previousIDs := sch.Graph.Predecessors(node.ID)

		callParams := params
		callParams.HumanInput = nil
		if node.ID == seedNodeID {
			callParams.HumanInput = humanInput
		}
		callParams.IsLastNode = IsLastNode(sch.Graph, node, callParams.HumanInput != nil)

		started := time.Now()
		sch.Tracer.OnSpan(TraceSpan{Event: TraceNodeStart, NodeID: node.ID, Iteration: iterations, StartTime: started})

		result, err := sch.Executor.Run(ctx, node, dispatchInput{
			NodeID:          node.ID,
			CombinedInput:   entry.CombinedInput,
			PreviousNodeIDs: previousIDs,
		}, rctx, callParams, overrideConfig)

		if err != nil {
			sch.Tracer.OnSpan(TraceSpan{Event: TraceNodeError, NodeID: node.ID, Iteration: iterations, StartTime: started, EndTime: time.Now(), Err: err})
			if aborted, ok := err.(*AbortedError); ok {
				checkpoint = append(checkpoint, flow.ExecutedEntry{
					NodeID: aborted.NodeID, NodeLabel: node.Label,
					PreviousNodeIds: previousIDs,
					Status:          flow.StatusTerminated,
				})
				sch.snapshot(params.ChatID, checkpoint)
				return RunResult{Checkpoint: checkpoint, FinalStatus: flow.StatusTerminated, Err: err}
			}
			checkpoint = append(checkpoint, result.Entry)
			sch.snapshot(params.ChatID, checkpoint)
			return RunResult{Checkpoint: checkpoint, FinalStatus: flow.StatusError, Err: err}
		}

		sch.Tracer.OnSpan(TraceSpan{Event: TraceNodeEnd, NodeID: node.ID, Iteration: iterations, StartTime: started, EndTime: time.Now()})

		checkpoint = append(checkpoint, result.Entry)
		sch.snapshot(params.ChatID, checkpoint)
		if result.StateUpdate != nil {
			rt.MergeStateUpdate(result.StateUpdate)
		}
		if result.FormUpdate != nil {
			for k, v := range result.FormUpdate {
				rt.Form[k] = v
			}
		}
		rt.AppendChatHistory(result.ChatAppend...)
		rctx.Checkpoint = checkpoint
		rctx.ChatHistory = rt.ChatHistory

		if result.ShouldStop {
			return RunResult{Checkpoint: checkpoint, FinalStatus: flow.StatusStopped, Stopped: true}
		}

		conditions := flow.ParseConditions(result.Entry.Data)
		skip := flow.PruneSkippedSuccessors(sch.Graph, node.ID, conditions)

		for _, succ := range sch.Graph.Successors(node.ID) {
			if skip[succ] {
				continue
			}
			w, ok := waiting[succ]
			if !ok {
				w = analyzer.Setup(succ)
				waiting[succ] = w
			}
			if w.Deliver(node.ID, result.Entry.Data) {
				delete(waiting, succ)
				order := flow.SortPredecessors(sch.Graph, succ, sch.Graph.Predecessors(succ))
				combined := flow.Combine(order, w.ReceivedInputs)
				queue = append(queue, queueEntry{NodeID: succ, CombinedInput: combined, ReceivedFrom: w.ReceivedInputs})
			}
		}

		if node.Name == flow.NameLoop {
			if loopTarget, ok := result.Entry.Data["output"].(map[string]any); ok {
				if nodeID, ok := loopTarget["nodeID"].(string); ok && nodeID != "" {
					max := sch.MaxLoopCount
					if m, ok := loopTarget["maxLoopCount"].(int); ok && m > 0 {
						max = m
					}
					count := loopCounts[node.ID] + 1
					if count < max {
						loopCounts[node.ID] = count
						queue = append(queue, queueEntry{NodeID: nodeID, CombinedInput: result.Entry.Data})
						humanInput = nil
					}
				}
			}
		}
	}

	return RunResult{Checkpoint: checkpoint, FinalStatus: checkpoint.FinalStatus()}
}
