package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow/engine/flow"
	"github.com/agentflow/engine/nodereg"
	"github.com/agentflow/engine/stream"
)

func passthroughNode(content string) nodereg.RunnerFunc {
	return func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
		return nodereg.Output{"output": map[string]any{"content": content}}, nil
	}
}

func newScheduler(g *flow.Graph, registry nodereg.Registry) *Scheduler {
	ex := NewExecutor(registry, stream.NoopStreamer{}, nil)
	return NewScheduler(g, ex)
}

func simpleRctx() *flow.ResolveContext {
	return &flow.ResolveContext{}
}

func TestScheduler_SimpleChain(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
			{ID: "a", Name: "llmAgentflow"},
			{ID: "b", Name: "llmAgentflow"},
		},
		[]flow.Edge{
			{Source: "start", SourceHandle: "start-output-0", Target: "a"},
			{Source: "a", SourceHandle: "a-output-0", Target: "b"},
		},
	)
	registry := nodereg.MapRegistry{
		flow.NameStart:  &nodereg.StartNode{},
		"llmAgentflow":  passthroughNode("hello"),
	}
	sch := newScheduler(g, registry)

	result := sch.Run(context.Background(), "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)

	require.NoError(t, result.Err)
	assert.Equal(t, flow.StatusFinished, result.FinalStatus)
	assert.Len(t, result.Checkpoint, 3)
	assert.Equal(t, "b", result.Checkpoint[2].NodeID)
}

func TestScheduler_ConditionalBranchPrunesSuccessor(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
			{ID: "cond", Name: flow.NameCondition},
			{ID: "yes", Name: "llmAgentflow"},
			{ID: "no", Name: "llmAgentflow"},
		},
		[]flow.Edge{
			{Source: "start", SourceHandle: "start-output-0", Target: "cond"},
			{Source: "cond", SourceHandle: "cond-output-0", Target: "yes"},
			{Source: "cond", SourceHandle: "cond-output-1", Target: "no"},
		},
	)
	registry := nodereg.MapRegistry{
		flow.NameStart:      &nodereg.StartNode{},
		flow.NameCondition: nodereg.RunnerFunc(func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
			return nodereg.Output{
				"output": map[string]any{
					"content": "",
					"conditions": []any{
						map[string]any{"isFullfilled": true},
						map[string]any{"isFullfilled": false},
					},
				},
			}, nil
		}),
		"llmAgentflow": passthroughNode("reached"),
	}
	sch := newScheduler(g, registry)

	result := sch.Run(context.Background(), "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)

	require.NoError(t, result.Err)
	ids := make([]string, 0)
	for _, e := range result.Checkpoint {
		ids = append(ids, e.NodeID)
	}
	assert.Contains(t, ids, "yes")
	assert.NotContains(t, ids, "no")
}

func TestScheduler_HumanInputPauseAndResume(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
			{ID: "human", Name: flow.NameHumanInput},
			{ID: "after", Name: "llmAgentflow"},
		},
		[]flow.Edge{
			{Source: "start", SourceHandle: "start-output-0", Target: "human"},
			{Source: "human", SourceHandle: "human-output-0", Target: "after"},
		},
	)
	registry := nodereg.MapRegistry{
		flow.NameStart:      &nodereg.StartNode{},
		flow.NameHumanInput: passthroughNode("waiting"),
		"llmAgentflow":      passthroughNode("resumed"),
	}
	sch := newScheduler(g, registry)

	paused := sch.Run(context.Background(), "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)
	require.NoError(t, paused.Err)
	assert.True(t, paused.Stopped)
	assert.Equal(t, flow.StatusStopped, paused.FinalStatus)
	idx := paused.Checkpoint.FindByNodeID("human")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, flow.StatusStopped, paused.Checkpoint[idx].Status)

	resumeCheckpoint := append(flow.ExecutedData(nil), paused.Checkpoint...)
	resumeCheckpoint = append(resumeCheckpoint[:idx], resumeCheckpoint[idx+1:]...)

	resumed := sch.Run(context.Background(), "human", map[string]any{"approved": true}, simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{HumanInput: map[string]any{"approved": true}}, nil, resumeCheckpoint)
	require.NoError(t, resumed.Err)
	assert.Equal(t, flow.StatusFinished, resumed.FinalStatus)
	assert.Equal(t, "after", resumed.Checkpoint[len(resumed.Checkpoint)-1].NodeID)
}

func TestScheduler_LoopStopsAtMaxLoopCount(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
			{ID: "body", Name: "llmAgentflow"},
			{ID: "loop", Name: flow.NameLoop},
		},
		[]flow.Edge{
			{Source: "start", SourceHandle: "start-output-0", Target: "body"},
			{Source: "body", SourceHandle: "body-output-0", Target: "loop"},
		},
	)
	registry := nodereg.MapRegistry{
		flow.NameStart: &nodereg.StartNode{},
		"llmAgentflow": passthroughNode("iterating"),
		flow.NameLoop: nodereg.RunnerFunc(func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
			return nodereg.Output{
				"output": map[string]any{
					"content":      "",
					"nodeID":       "body",
					"maxLoopCount": 3,
				},
			}, nil
		}),
	}
	sch := newScheduler(g, registry)
	sch.MaxLoopCount = 3

	result := sch.Run(context.Background(), "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)

	require.NoError(t, result.Err)
	bodyCount := 0
	for _, e := range result.Checkpoint {
		if e.NodeID == "body" {
			bodyCount++
		}
	}
	assert.Equal(t, 3, bodyCount)
}

func TestScheduler_IterationLimitOverflow(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
			{ID: "body", Name: "llmAgentflow"},
			{ID: "loop", Name: flow.NameLoop},
		},
		[]flow.Edge{
			{Source: "start", SourceHandle: "start-output-0", Target: "body"},
			{Source: "body", SourceHandle: "body-output-0", Target: "loop"},
		},
	)
	registry := nodereg.MapRegistry{
		flow.NameStart: &nodereg.StartNode{},
		"llmAgentflow": passthroughNode("iterating"),
		flow.NameLoop: nodereg.RunnerFunc(func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
			return nodereg.Output{
				"output": map[string]any{"content": "", "nodeID": "body", "maxLoopCount": 1000},
			}, nil
		}),
	}
	sch := newScheduler(g, registry)
	sch.MaxIterations = 5
	sch.MaxLoopCount = 1000

	result := sch.Run(context.Background(), "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)

	assert.ErrorIs(t, result.Err, ErrIterationLimit)
	assert.Equal(t, flow.StatusError, result.FinalStatus)
}

func TestScheduler_CancelledContextTerminates(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
			{ID: "a", Name: "llmAgentflow"},
		},
		[]flow.Edge{
			{Source: "start", SourceHandle: "start-output-0", Target: "a"},
		},
	)
	registry := nodereg.MapRegistry{
		flow.NameStart: &nodereg.StartNode{},
		"llmAgentflow": passthroughNode("never reached"),
	}
	sch := newScheduler(g, registry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	time.Sleep(time.Millisecond)

	result := sch.Run(ctx, "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)

	var aborted *AbortedError
	require.ErrorAs(t, result.Err, &aborted)
	assert.Equal(t, flow.StatusTerminated, result.FinalStatus)
}

func TestScheduler_TracerReceivesSpans(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "start", Name: flow.NameStart},
		},
		nil,
	)
	registry := nodereg.MapRegistry{flow.NameStart: &nodereg.StartNode{}}
	sch := newScheduler(g, registry)

	var events []TraceEvent
	sch.Tracer = traceRecorder(func(s TraceSpan) { events = append(events, s.Event) })

	sch.Run(context.Background(), "start", "hi", simpleRctx(), flow.NewRuntimeState(), nodereg.RunParams{}, nil, nil)

	assert.Contains(t, events, TraceFlowStart)
	assert.Contains(t, events, TraceNodeStart)
	assert.Contains(t, events, TraceNodeEnd)
	assert.Contains(t, events, TraceFlowEnd)
}

type traceRecorder func(TraceSpan)

func (f traceRecorder) OnSpan(s TraceSpan) { f(s) }
