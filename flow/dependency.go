package flow

// WaitingRecord is the per-unready-target bookkeeping of §3/§4.4: a node
// that has at least one predecessor currently in flight.
type WaitingRecord struct {
	NodeID            string
	ReceivedInputs    map[string]any   // predecessorId -> output
	ExpectedInputs    map[string]bool  // unconditional predecessors
	ConditionalGroups map[string][]string // decisionNodeId -> [predecessorId]
	IsConditional     bool
}

// newWaitingRecord allocates the maps for a fresh record.
func newWaitingRecord(nodeID string) *WaitingRecord {
	return &WaitingRecord{
		NodeID:            nodeID,
		ReceivedInputs:    make(map[string]any),
		ExpectedInputs:    make(map[string]bool),
		ConditionalGroups: make(map[string][]string),
	}
}

// Analyzer computes, for a target node, which of its predecessors are
// unconditional vs. belong to a conditional group rooted at a decision
// ancestor (§4.4).
type Analyzer struct {
	g *Graph
}

// NewAnalyzer binds an Analyzer to a graph.
func NewAnalyzer(g *Graph) *Analyzer {
	return &Analyzer{g: g}
}

// Setup walks the incoming edges of target and builds its WaitingRecord.
//
// For each incoming edge (s -> target), ancestors of s are walked
// depth-first, guarding a visited set, until either a decision-set node d
// is found or a source with no predecessor is reached. If a decision
// ancestor is found, s joins conditionalGroups[d]; otherwise s joins
// expectedInputs. A target whose direct predecessor is itself in the
// decision set takes that predecessor as its own conditional group —
// this falls out naturally because the walk starts at s itself.
func (a *Analyzer) Setup(target string) *WaitingRecord {
	w := newWaitingRecord(target)
	for _, s := range a.g.Predecessors(target) {
		decision, ok := a.nearestDecisionAncestor(s)
		if ok {
			w.ConditionalGroups[decision] = append(w.ConditionalGroups[decision], s)
			w.IsConditional = true
		} else {
			w.ExpectedInputs[s] = true
		}
	}
	return w
}

// nearestDecisionAncestor walks s and its ancestors depth-first until it
// finds a node in the decision set, returning that node's id. If s itself
// is a decision node, s is returned — the edge from a decision node to its
// successor is always conditional. If no decision ancestor exists before
// running out of predecessors, ok is false.
func (a *Analyzer) nearestDecisionAncestor(s string) (string, bool) {
	visited := make(map[string]bool)
	var walk func(string) (string, bool)
	walk = func(n string) (string, bool) {
		if visited[n] {
			return "", false
		}
		visited[n] = true
		if node, ok := a.g.Nodes[n]; ok && IsDecisionNode(node.Name) {
			return n, true
		}
		preds := a.g.Predecessors(n)
		if len(preds) == 0 {
			return "", false
		}
		for _, p := range preds {
			if d, ok := walk(p); ok {
				return d, true
			}
		}
		return "", false
	}
	return walk(s)
}

// Ready implements the readiness predicate of §4.4: all unconditional
// predecessors delivered, and for every conditional group at least one
// predecessor in that group delivered.
func (w *WaitingRecord) Ready() bool {
	for p := range w.ExpectedInputs {
		if _, ok := w.ReceivedInputs[p]; !ok {
			return false
		}
	}
	for _, group := range w.ConditionalGroups {
		delivered := false
		for _, p := range group {
			if _, ok := w.ReceivedInputs[p]; ok {
				delivered = true
				break
			}
		}
		if !delivered {
			return false
		}
	}
	return true
}

// Deliver records a predecessor's output and reports whether the record is
// now ready to dequeue.
func (w *WaitingRecord) Deliver(predecessorID string, output any) bool {
	w.ReceivedInputs[predecessorID] = output
	return w.Ready()
}
