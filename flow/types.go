// Package flow implements the static graph model, variable resolution,
// fan-in input combination, dependency analysis and branch pruning for the
// agent flow execution engine. It has no knowledge of how a flow is run —
// that is the job of package engine.
package flow

import "strings"

// Status is the terminal or in-flight state of a node execution or a whole
// flow execution.
type Status string

const (
	StatusInProgress Status = "INPROGRESS"
	StatusFinished   Status = "FINISHED"
	StatusStopped    Status = "STOPPED"
	StatusError      Status = "ERROR"
	StatusTerminated Status = "TERMINATED"
)

// Logical node names with special scheduling meaning. Kept in one place so
// the decision set can be extended without hunting through the scheduler.
const (
	NameStickyNote    = "stickyNoteAgentflow"
	NameStart         = "startAgentflow"
	NameLoop          = "loopAgentflow"
	NameCondition     = "conditionAgentflow"
	NameConditionAgent = "conditionAgentAgentflow"
	NameHumanInput    = "humanInputAgentflow"
)

// decisionSet holds the logical names whose output can prune successor
// edges (§4.4, §4.6 of the specification).
var decisionSet = map[string]bool{
	NameCondition:      true,
	NameConditionAgent: true,
	NameHumanInput:     true,
}

// IsDecisionNode reports whether a logical node name belongs to the
// decision set.
func IsDecisionNode(name string) bool {
	return decisionSet[name]
}

// InputParam is a single declared input parameter of a node.
type InputParam struct {
	Name           string
	Type           string
	AcceptVariable bool
}

// Node is a vertex of an agent flow graph.
type Node struct {
	ID       string
	Name     string // logical name: discriminates node type/behavior
	Label    string
	Inputs   []InputParam
	Data     map[string]any // concrete input values keyed by parameter name
	Impl     any            // opaque implementation reference, resolved by nodereg
}

// IsStickyNote reports whether this node is an annotation that the
// scheduler must never execute.
func (n Node) IsStickyNote() bool {
	return n.Name == NameStickyNote
}

// Edge connects an output handle of a source node to an input handle of a
// target node. SourceHandle carries the numeric suffix used both for
// deterministic fan-in ordering and for branch pruning.
type Edge struct {
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
}

// sourceHandleIndex parses the numeric suffix out of a handle of the form
// "<nodeId>-output-<index>", defaulting to 0 when absent or malformed.
// Per spec §4.1 the index is "the first numeric token after splitting on
// '-'", so any segment that parses as an integer wins, left to right.
func sourceHandleIndex(handle string) int {
	for _, part := range strings.Split(handle, "-") {
		if part == "" {
			continue
		}
		n := 0
		ok := true
		for _, r := range part {
			if r < '0' || r > '9' {
				ok = false
				break
			}
			n = n*10 + int(r-'0')
		}
		if ok {
			return n
		}
	}
	return 0
}

// Graph is the immutable adjacency view over a flow's nodes and edges.
type Graph struct {
	Nodes map[string]Node
	Edges []Edge

	graph         map[string][]string // forward adjacency, sticky notes filtered
	reversedGraph map[string][]string
	indegree      map[string]int
}

// NewGraph derives the forward/reverse adjacency and indegree map at load
// time. Sticky-note nodes are excluded from traversal entirely (§4.1): they
// never appear as a key or a value of the adjacency maps, and edges
// touching them are dropped.
func NewGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		Nodes:         make(map[string]Node, len(nodes)),
		graph:         make(map[string][]string),
		reversedGraph: make(map[string][]string),
		indegree:      make(map[string]int),
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
		if n.IsStickyNote() {
			continue
		}
		if _, ok := g.graph[n.ID]; !ok {
			g.graph[n.ID] = nil
		}
		if _, ok := g.indegree[n.ID]; !ok {
			g.indegree[n.ID] = 0
		}
	}
	for _, e := range edges {
		src, srcOK := g.Nodes[e.Source]
		tgt, tgtOK := g.Nodes[e.Target]
		if !srcOK || !tgtOK || src.IsStickyNote() || tgt.IsStickyNote() {
			continue
		}
		g.Edges = append(g.Edges, e)
		g.graph[e.Source] = append(g.graph[e.Source], e.Target)
		g.reversedGraph[e.Target] = append(g.reversedGraph[e.Target], e.Source)
		g.indegree[e.Target]++
	}
	return g
}

// Successors returns the child node ids of n (sticky notes already
// filtered out at construction time).
func (g *Graph) Successors(n string) []string {
	return g.graph[n]
}

// Predecessors returns the parent node ids of n.
func (g *Graph) Predecessors(n string) []string {
	return g.reversedGraph[n]
}

// Indegree returns the number of unconditional+conditional incoming edges
// for a node, as computed at load time.
func (g *Graph) Indegree(n string) int {
	return g.indegree[n]
}

// StartingNodes returns every node with indegree 0, i.e. every node that is
// eligible to seed the ready queue at the beginning of a run.
func (g *Graph) StartingNodes() []string {
	var starts []string
	for id, deg := range g.indegree {
		if deg == 0 {
			starts = append(starts, id)
		}
	}
	return starts
}

// EdgesFrom returns every edge whose Source is n, in no particular order.
func (g *Graph) EdgesFrom(n string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == n {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge whose Target is n.
func (g *Graph) EdgesTo(n string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Target == n {
			out = append(out, e)
		}
	}
	return out
}
