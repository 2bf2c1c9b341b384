// Package api contains the core building blocks used by the orka
// orchestration engine. It provides the low-level primitives for defining
// orchestrators and activities, replaying recorded history, and observing
// engine behavior.
//
// Most users interact with the higher-level orka package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Orchestrators and activities
//   - History events
//   - Replay execution
//   - Observability
//
// # Orchestrators and Activities
//
// An OrchestratorFunc is the deterministic decision logic of a workflow: it
// calls activities, waits for external events, and eventually returns an
// output. An ActivityFunc is a unit of side-effecting work executed
// out-of-band by a dispatcher. Orchestrators decide; activities do.
//
// Orchestrator code must be deterministic. It must not read the wall clock,
// generate randomness, or perform I/O directly; any such need belongs in an
// activity whose result is recorded. This is a hard correctness contract:
// the engine replays orchestrator code against its history, and a replay
// that diverges from the record fails the instance with a
// NonDeterminismError.
//
// # History and Replay
//
// Every instance owns an append-only, ordered sequence of HistoryEvent
// records. The history is the sole source of truth: all in-memory state is
// a projection rebuilt by Execute, which re-runs the orchestrator from the
// beginning and feeds recorded outcomes back synchronously. A call with no
// recorded outcome becomes a PendingAction, and the orchestrator suspends
// by returning ErrSuspended.
//
// Because results are recorded, an activity's side effect runs at most once
// per task id no matter how many times the instance is replayed.
//
// # Observability
//
// The Observer interface reports lifecycle events. Ready-made
// implementations cover structured logging (log/slog) and basic in-memory
// metrics, and NewCompositeObserver combines several observers.
//
// # Usage
//
// Most applications should start from the orka package, using the engine
// constructors and LocalRunner provided there. See the examples directory
// for end-to-end usage.
package api
