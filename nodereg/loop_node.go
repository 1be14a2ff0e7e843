package nodereg

import "context"

// LoopNode is the reference `loopAgentflow` implementation (§4.7,
// glossary "Loop node"). LoopTo names the earlier node id to re-enqueue;
// MaxLoopCount overrides the engine's default per-loop ceiling (§8
// "Loop node with maxLoopCount = 1 executes its successor exactly once").
type LoopNode struct {
	LoopTo       string
	MaxLoopCount int
}

// Run implements Runner.
func (n *LoopNode) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	out := Output{
		"output": map[string]any{
			"nodeID":  n.LoopTo,
			"content": "",
		},
	}
	if n.MaxLoopCount > 0 {
		out["output"].(map[string]any)["maxLoopCount"] = n.MaxLoopCount
	}
	return out, nil
}
