package nodereg

import "context"

// StartNode is the reference `startAgentflow` implementation: the single
// entry point of a flow. The engine seeds a fresh run from a starting node
// with this logical name (ErrStartInput when there is none); no
// startInputType is declared or checked. It passes a question string, or a
// form's "text" field, through as its output content.
type StartNode struct{}

// Run implements Runner.
func (n *StartNode) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	content := ""
	if s, ok := input.(string); ok {
		content = s
	} else if m, ok := input.(map[string]any); ok {
		if t, ok := m["text"].(string); ok {
			content = t
		}
	}
	return Output{
		"output": map[string]any{"content": content},
	}, nil
}
