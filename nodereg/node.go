// Package nodereg defines the narrow contract the engine uses to invoke a
// node implementation (§6, "Node implementation contract") and provides a
// small set of reference implementations used by tests. The engine never introspects a node beyond this contract — the
// production node-implementation registry is an external collaborator
// out of scope for this module (§1).
package nodereg

import "context"

// RunParams is passed to every node invocation alongside its resolved
// input data and final input (§4.5).
type RunParams struct {
	ChatflowID  string
	ChatID      string
	SessionID   string
	APIMessageID string
	IsLastNode  bool
	// HumanInput is non-nil only on the call that resumes a previously
	// STOPPED humanInputAgentflow node (§4.8).
	HumanInput map[string]any
}

// Output is the open record a node returns (§4.5). Only a handful of keys
// are recognized by the engine; everything else is kept untouched on the
// node's checkpoint entry. The final chat message carries only the text
// content (and, on a human-input pause, the pending action).
type Output = map[string]any

// Runner is the contract a node implementation satisfies: run(data, input,
// runParams) -> output.
type Runner interface {
	Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error)
}

// RunnerFunc adapts a plain function to the Runner interface, mirroring
// the teacher's graph.Node.Function field (graph/graph.go).
type RunnerFunc func(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	return f(ctx, data, input, params)
}

// Registry resolves a node's logical name to its Runner implementation.
// The engine holds only this weak reference (§3 Ownership) — it never
// owns or constructs node implementations itself.
type Registry interface {
	Resolve(logicalName string) (Runner, bool)
}

// MapRegistry is the simplest Registry: a name-keyed lookup table, the
// idiom the teacher uses for its own node maps (graph/state_graph.go's
// `nodes map[string]Node`).
type MapRegistry map[string]Runner

// Resolve implements Registry.
func (m MapRegistry) Resolve(logicalName string) (Runner, bool) {
	r, ok := m[logicalName]
	return r, ok
}

// Register adds or replaces a runner for a logical name.
func (m MapRegistry) Register(logicalName string, r Runner) {
	m[logicalName] = r
}
