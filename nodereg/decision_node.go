package nodereg

import "context"

// ConditionFunc evaluates one branch of a conditionAgentflow node against
// the node's resolved data and the combined fan-in input, returning
// whether that branch is fulfilled.
type ConditionFunc func(data map[string]any, input any) bool

// ConditionNode is the reference `conditionAgentflow` implementation: it
// evaluates a fixed ordered list of ConditionFuncs and reports each as an
// `output.conditions[]` entry, which the engine's Branch Pruner (§4.6)
// reads to decide which successor edges to skip.
type ConditionNode struct {
	Branches []ConditionFunc
}

// Run implements Runner.
func (n *ConditionNode) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	conditions := make([]map[string]any, len(n.Branches))
	for i, branch := range n.Branches {
		conditions[i] = map[string]any{"isFullfilled": branch(data, input)}
	}
	return Output{
		"output": map[string]any{
			"conditions": conditions,
			"content":    "",
		},
	}, nil
}

// ConditionAgentNode is the reference `conditionAgentAgentflow`
// implementation: like ConditionNode, but the fulfilled branch is decided
// by a single classifier function instead of independently evaluated
// predicates — mirroring an LLM-routed condition node while keeping node
// semantics out of the engine's concern (§1 Non-goals).
type ConditionAgentNode struct {
	NumBranches int
	Classify    func(data map[string]any, input any) int // returns the fulfilled branch index
}

// Run implements Runner.
func (n *ConditionAgentNode) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	chosen := n.Classify(data, input)
	conditions := make([]map[string]any, n.NumBranches)
	for i := range conditions {
		conditions[i] = map[string]any{"isFullfilled": i == chosen}
	}
	return Output{
		"output": map[string]any{
			"conditions": conditions,
			"content":    "",
		},
	}, nil
}
