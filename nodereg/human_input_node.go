package nodereg

import "context"

// HumanInputNode is the reference `humanInputAgentflow` implementation.
// The pause/resume protocol itself is implemented by the engine's Node
// Executor (§4.5 step 8) — this node only needs to produce a sensible
// output once resumed with feedback; on the first (non-resuming) call it
// returns an empty output.content, to which the executor adds the
// humanInputAction before stopping.
type HumanInputNode struct{}

// Run implements Runner.
func (n *HumanInputNode) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	if params.HumanInput == nil {
		return Output{
			"output": map[string]any{"content": ""},
		}, nil
	}

	feedback, _ := params.HumanInput["feedback"].(string)
	return Output{
		"output": map[string]any{
			"content":  feedback,
			"approved": params.HumanInput["approved"],
		},
	}, nil
}
