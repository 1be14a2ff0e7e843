package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow/engine/flow"
	"github.com/agentflow/engine/nodereg"
	"github.com/agentflow/engine/stream"
)

func TestExecutor_ResolvesVariablesBeforeInvoking(t *testing.T) {
	var seenData map[string]any
	registry := nodereg.MapRegistry{
		"echo": nodereg.RunnerFunc(func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
			seenData = data
			return nodereg.Output{"output": map[string]any{"content": "ok"}}, nil
		}),
	}
	ex := NewExecutor(registry, stream.NoopStreamer{}, nil)

	node := flow.Node{ID: "n1", Name: "echo", Data: map[string]any{"prompt": "{{question}}"}}
	rctx := &flow.ResolveContext{Question: "what is 2+2"}

	_, err := ex.Run(context.Background(), node, dispatchInput{NodeID: "n1"}, rctx, nodereg.RunParams{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "what is 2+2", seenData["prompt"])
}

func TestExecutor_OverrideConfigOnlyAppliedWhenAllowlisted(t *testing.T) {
	var seenData map[string]any
	registry := nodereg.MapRegistry{
		"echo": nodereg.RunnerFunc(func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
			seenData = data
			return nodereg.Output{"output": map[string]any{"content": "ok"}}, nil
		}),
	}
	node := flow.Node{ID: "n1", Name: "echo", Data: map[string]any{"model": "gpt-3"}}
	rctx := &flow.ResolveContext{}
	overrides := map[string]any{"echo": map[string]any{"model": "gpt-4"}}

	exDenied := NewExecutor(registry, stream.NoopStreamer{}, nil)
	_, err := exDenied.Run(context.Background(), node, dispatchInput{NodeID: "n1"}, rctx, nodereg.RunParams{}, overrides)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3", seenData["model"])

	exAllowed := NewExecutor(registry, stream.NoopStreamer{}, map[string]bool{"echo": true})
	_, err = exAllowed.Run(context.Background(), node, dispatchInput{NodeID: "n1"}, rctx, nodereg.RunParams{}, overrides)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", seenData["model"])
}

func TestExecutor_ResolveErrorWrapsAsNodeExecutionError(t *testing.T) {
	registry := nodereg.MapRegistry{
		"echo": nodereg.RunnerFunc(func(ctx context.Context, data map[string]any, input any, params nodereg.RunParams) (nodereg.Output, error) {
			t.Fatal("runner must not be invoked when resolution fails")
			return nil, nil
		}),
	}
	ex := NewExecutor(registry, stream.NoopStreamer{}, nil)
	node := flow.Node{ID: "n1", Name: "echo", Data: map[string]any{"prompt": "{{$var.env}}"}}
	rctx := &flow.ResolveContext{Vars: map[string]any{"env": "prod"}}

	_, err := ex.Run(context.Background(), node, dispatchInput{NodeID: "n1"}, rctx, nodereg.RunParams{}, nil)
	var nodeErr *NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "n1", nodeErr.NodeID)
	var resolveErr *flow.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, "$var.env", resolveErr.Reference)
}

func TestExecutor_NoRunnerRegistered(t *testing.T) {
	ex := NewExecutor(nodereg.MapRegistry{}, stream.NoopStreamer{}, nil)
	node := flow.Node{ID: "n1", Name: "missing"}

	_, err := ex.Run(context.Background(), node, dispatchInput{NodeID: "n1"}, &flow.ResolveContext{}, nodereg.RunParams{}, nil)
	var nodeErr *NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	assert.ErrorIs(t, nodeErr.Err, ErrNoRunner)
}

func TestExecutor_CancelledContextAborts(t *testing.T) {
	ex := NewExecutor(nodereg.MapRegistry{}, stream.NoopStreamer{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Run(ctx, flow.Node{ID: "n1", Name: "echo"}, dispatchInput{NodeID: "n1"}, &flow.ResolveContext{}, nodereg.RunParams{}, nil)
	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, "n1", aborted.NodeID)
}

func TestExecutor_HumanInputFirstCallStopsWithAction(t *testing.T) {
	registry := nodereg.MapRegistry{flow.NameHumanInput: &nodereg.HumanInputNode{}}
	ex := NewExecutor(registry, stream.NoopStreamer{}, nil)
	node := flow.Node{ID: "human", Name: flow.NameHumanInput}

	result, err := ex.Run(context.Background(), node, dispatchInput{NodeID: "human"}, &flow.ResolveContext{}, nodereg.RunParams{}, nil)
	require.NoError(t, err)
	assert.True(t, result.ShouldStop)
	assert.Equal(t, flow.StatusStopped, result.Entry.Status)

	out, ok := result.Entry.Data["output"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, out, humanInputActionKey)
}

func TestExecutor_HumanInputResumeDoesNotStop(t *testing.T) {
	registry := nodereg.MapRegistry{flow.NameHumanInput: &nodereg.HumanInputNode{}}
	ex := NewExecutor(registry, stream.NoopStreamer{}, nil)
	node := flow.Node{ID: "human", Name: flow.NameHumanInput}

	result, err := ex.Run(context.Background(), node, dispatchInput{NodeID: "human"}, &flow.ResolveContext{}, nodereg.RunParams{HumanInput: map[string]any{"feedback": "yes", "approved": true}}, nil)
	require.NoError(t, err)
	assert.False(t, result.ShouldStop)
	assert.Equal(t, flow.StatusFinished, result.Entry.Status)
}

func TestIsLastNode(t *testing.T) {
	g := flow.NewGraph(
		[]flow.Node{
			{ID: "a", Name: "llmAgentflow"},
			{ID: "b", Name: "llmAgentflow"},
			{ID: "human", Name: flow.NameHumanInput},
			{ID: "after", Name: "llmAgentflow"},
		},
		[]flow.Edge{
			{Source: "a", SourceHandle: "a-output-0", Target: "b"},
			{Source: "human", SourceHandle: "human-output-0", Target: "after"},
		},
	)

	assert.False(t, IsLastNode(g, g.Nodes["a"], false))
	assert.True(t, IsLastNode(g, g.Nodes["b"], false))
	assert.True(t, IsLastNode(g, g.Nodes["human"], false))
	assert.False(t, IsLastNode(g, g.Nodes["human"], true))
}

func TestExtractChatHistory_TolerantOfShapes(t *testing.T) {
	fromTyped := extractChatHistory([]map[string]any{{"role": "user", "content": "hi"}})
	assert.Equal(t, []flow.ChatMessage{{Role: "user", Content: "hi"}}, fromTyped)

	fromAny := extractChatHistory([]any{map[string]any{"role": "assistant", "content": "hello"}})
	assert.Equal(t, []flow.ChatMessage{{Role: "assistant", Content: "hello"}}, fromAny)

	assert.Nil(t, extractChatHistory(nil))
}
