package flow

import "sort"

// Combine implements the Input Combiner of §4.3. inputs maps predecessor
// node id to that predecessor's delivered output (already sorted by the
// numeric suffix of its outgoing edge's source handle by the caller, via
// SortPredecessors).
func Combine(order []string, inputs map[string]any) any {
	var valid []any
	var ids []string
	for _, id := range order {
		v, ok := inputs[id]
		if !ok || v == nil {
			continue
		}
		valid = append(valid, v)
		ids = append(ids, id)
	}

	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}

	merged := map[string]any{}
	jsonPart := map[string]any{}
	binaryPart := map[string]any{}
	var textParts []string
	var firstErr any
	sawJSON, sawBinary := false, false

	for i, v := range valid {
		id := ids[i]
		if obj, ok := v.(map[string]any); ok {
			if j, ok := obj["json"]; ok {
				jsonPart[id] = j
				sawJSON = true
			}
			if t, ok := obj["text"].(string); ok && t != "" {
				textParts = append(textParts, t)
			}
			if b, ok := obj["binary"]; ok {
				binaryPart[id] = b
				sawBinary = true
			}
			if e, ok := obj["error"]; ok && e != nil && firstErr == nil {
				firstErr = e
			}
		} else {
			// primitive input contributes { json: {srcId -> value} }
			jsonPart[id] = v
			sawJSON = true
		}
	}

	text := joinLines(textParts)
	if sawJSON {
		merged["json"] = jsonPart
	}
	if text != "" {
		merged["text"] = text
	}
	if sawBinary {
		merged["binary"] = binaryPart
	}
	if firstErr != nil {
		merged["error"] = firstErr
	}

	// "if only text was produced, wrap as { json: { text: combinedText } }"
	if !sawJSON && !sawBinary && firstErr == nil && text != "" {
		return map[string]any{"json": map[string]any{"text": text}}
	}

	return merged
}

func joinLines(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// SortPredecessors orders predecessor ids by the numeric suffix parsed
// from the outgoing edge that connects them to target, per §4.1's
// deterministic fan-in positioning rule.
func SortPredecessors(g *Graph, target string, predecessorIDs []string) []string {
	order := make([]string, len(predecessorIDs))
	copy(order, predecessorIDs)

	indexOf := make(map[string]int, len(order))
	for _, id := range order {
		best := 0
		for _, e := range g.EdgesFrom(id) {
			if e.Target == target {
				best = sourceHandleIndex(e.SourceHandle)
				break
			}
		}
		indexOf[id] = best
	}

	sort.SliceStable(order, func(i, j int) bool {
		return indexOf[order[i]] < indexOf[order[j]]
	})
	return order
}
