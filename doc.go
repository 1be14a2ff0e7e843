// Package engine provides agentflow, a dependency-driven execution runtime
// for user-authored flows: directed graphs of computational nodes wired
// together against a live chat session.
//
// # Quick Start
//
// Install the module:
//
//	go get github.com/agentflow/engine
//
// Load a flow definition, register node runners, and execute it against a
// chat session:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/agentflow/engine/engine"
//		"github.com/agentflow/engine/flow"
//		"github.com/agentflow/engine/nodereg"
//		"github.com/agentflow/engine/store/memory"
//		"github.com/agentflow/engine/varstore"
//	)
//
//	func main() {
//		g := flow.NewGraph(nodes, edges)
//		registry := nodereg.MapRegistry{
//			flow.NameStart:      &nodereg.StartNode{},
//			flow.NameHumanInput: &nodereg.HumanInputNode{},
//			"llmAgentflow":      nodereg.NewLLMNode(apiKey, "gpt-4o-mini"),
//		}
//
//		result, err := engine.ExecuteAgentFlow(engine.Params{
//			AgentflowID:    "flow-1",
//			ChatID:         "chat-1",
//			Graph:          g,
//			Registry:       registry,
//			ExecutionStore: memory.New(),
//			VarStore:       varstore.New(nil),
//			Input:          engine.Input{Question: "hello", SessionID: "session-1"},
//			Ctx:            context.Background(),
//		})
//		_ = result
//		_ = err
//	}
//
// # Package Structure
//
// flow/
// Graph model, variable resolution, branch pruning, multi-source input
// combination, and dependency/fan-in analysis. Pure, stateless building
// blocks with no knowledge of persistence or streaming.
//
// engine/
// The scheduler: a ready-queue loop that walks the flow graph node by node,
// dispatches each node through a fixed-step executor contract, prunes
// skipped branches, waits on fan-in, re-enqueues bounded loop-backs, and
// stops for human input. ExecuteAgentFlow is the single entry point for
// both fresh runs and resumes.
//
// store/
// Execution checkpoint persistence, with memory, sqlite, postgres, and
// redis backends behind a common Store interface.
//
// chatstore/, varstore/, stream/
// Chat message history, override-variable resolution, and the SSE-style
// event streaming surface consumed by callers that want live progress.
//
// nodereg/
// The node runner registry and a handful of reference node
// implementations (start, human input, condition, loop, LLM) used by
// tests. Individual node-type semantics beyond these are out of scope
// for the engine itself.
//
// log/
// A small leveled logging interface, with a golog-backed implementation,
// used by the engine's node executor for operational logging.
//
// # Execution Model
//
// A flow is a directed graph with exactly one reachable start node. The
// scheduler maintains a FIFO ready queue seeded from the start node and
// walks outward along edges, tracking per-node waiting records so that
// nodes with multiple predecessors (fan-in) only fire once every expected
// input has arrived, or, for nodes downstream of a decision node, once the
// first delivery from that conditional group has arrived. Decision-node output is
// inspected for `output.conditions[].isFullfilled` to prune the successors
// reachable only through unfulfilled branches.
//
// Execution halts cooperatively when the caller's context is cancelled, when
// a human-input node is reached without a resume payload (the run is
// checkpointed as STOPPED and can be resumed later), when a configured
// iteration ceiling is exceeded, or when a node returns an error.
//
// # Configuration
//
// The engine itself reads no environment variables; callers wire API keys,
// connection strings, and store backends explicitly through engine.Params.
package engine
