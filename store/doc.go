// Package store defines the Execution Store of §4.8: the persistence
// boundary the engine uses to create, update, fetch, and resume a flow
// execution's checkpoint. The engine owns the encoding of ExecutionData
// (a serialized flow.ExecutedData snapshot, opaque to this package); the
// store only persists and retrieves the bytes alongside the execution's
// state and identity.
//
// # Core Concepts
//
// An Execution is one run (or resumed run) of a flow against a session.
// Its State progresses INPROGRESS -> {FINISHED, ERROR, TERMINATED} on a
// normal or aborted completion, or INPROGRESS -> STOPPED when the run
// pauses at a human-input node, with STOPPED -> INPROGRESS on resume.
//
// # Available Implementations
//
//   - store/memory: an in-process map, for tests
//   - store/sqlite: a single-table SQLite store, for single-process deployments
//   - store/postgres: a PostgreSQL store, for production deployments
//   - store/redis: a Redis-backed store, for latency-sensitive deployments
//
// Every implementation satisfies the same Store interface and the same
// ordering contract for LatestBySession (most recent CreatedDate wins),
// so callers can swap backends without touching engine code.
//
// # Usage
//
//	execStore, err := sqlite.New(sqlite.Options{Path: "./agentflow.db"})
//	if err != nil {
//		return err
//	}
//
//	result, err := engine.ExecuteAgentFlow(engine.Params{
//		ExecutionStore: execStore,
//		// ...
//	})
package store
