package flow

import "fmt"

// Condition is one entry of a decision node's `output.conditions[]`.
type Condition struct {
	IsFullfilled bool
}

// PruneSkippedSuccessors implements the Branch Pruner of §4.6. It only
// applies to nodes in the decision set; callers should check
// IsDecisionNode(node.Name) before relying on a non-empty result, though
// calling it on a non-decision node is harmless (conditions will simply be
// empty).
//
// For each condition at index i where IsFullfilled is false, the edge
// whose SourceHandle is "<nodeId>-output-<i>" identifies a successor to
// skip for this dispatch only — it is not retroactively removed from
// already-scheduled branches and may still be reached via another path.
func PruneSkippedSuccessors(g *Graph, nodeID string, conditions []Condition) map[string]bool {
	skip := make(map[string]bool)
	for i, c := range conditions {
		if c.IsFullfilled {
			continue
		}
		handle := fmt.Sprintf("%s-output-%d", nodeID, i)
		for _, e := range g.EdgesFrom(nodeID) {
			if e.SourceHandle == handle {
				skip[e.Target] = true
			}
		}
	}
	return skip
}

// ParseConditions reads `output.conditions[]` out of a node's raw output
// map, accepting either []any or []map[string]any and tolerating a missing
// or malformed field (no conditions to prune).
func ParseConditions(output map[string]any) []Condition {
	out, ok := output["output"].(map[string]any)
	if !ok {
		return nil
	}
	var raw []any
	switch c := out["conditions"].(type) {
	case []any:
		raw = c
	case []map[string]any:
		for _, m := range c {
			raw = append(raw, m)
		}
	default:
		return nil
	}
	conditions := make([]Condition, len(raw))
	for i, c := range raw {
		if m, ok := c.(map[string]any); ok {
			if ok, _ := m["isFullfilled"].(bool); ok {
				conditions[i] = Condition{IsFullfilled: true}
			}
		}
	}
	return conditions
}
