// Package orka provides a lightweight, embeddable durable orchestration
// engine for Go.
//
// Orka is designed for backend services that need reliable multi-step
// operations, human-in-the-loop approvals, or long-lived coordination
// logic, without introducing heavy infrastructure.
// It runs fully in Go, supports multiple persistence backends, and
// integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The Orka programming model is intentionally small and idiomatic:
//
//  1. Engine
//  2. Orchestrator
//  3. Activity
//  4. Dispatcher
//  5. LocalRunner
//
// These components form a complete orchestration system with deterministic
// replay, durable state (when using persistent backends), and a clear
// mental model.
//
// # Engine
//
// The Engine owns the append-only event history of every orchestration
// instance and provides APIs to:
//   - schedule new instances
//   - deliver external events to suspended instances
//   - terminate instances
//   - read instance state and history
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Redis (via the orka/redis submodule)
//
// Each backend includes a matching activity task queue implementation so
// dispatchers can reliably fetch work.
//
// # Orchestrator
//
// An OrchestratorFunc describes a long-running operation as ordinary Go
// code:
//
//	func Order(ctx *orka.OrchestrationContext) (any, error) {
//	    res, err := ctx.CallActivity("Charge", ctx.Input())
//	    if err != nil {
//	        return nil, err
//	    }
//	    approval, err := ctx.WaitExternalEvent("Approval")
//	    if err != nil {
//	        return nil, err
//	    }
//	    ...
//	}
//
// Orchestrator code never runs side effects directly. Instead it records
// decisions (schedule this activity, wait for that event) into the
// instance history and is re-executed from the beginning every time new
// information arrives. Because all non-deterministic work happens in
// activities, replay reconstructs exactly the same state each time. The
// engine detects code that violates this contract and fails the instance
// with a descriptive error rather than silently corrupting state.
//
// # Activity
//
// An ActivityFunc is the fundamental unit of side-effecting work:
//
//	type ActivityFunc func(ctx context.Context, input any) (any, error)
//
// Activities are:
//   - free to perform I/O, call APIs, and use the clock
//   - dispatched at most once per scheduling decision
//   - expected to be idempotent if a dispatcher crashes mid-flight
//
// # Dispatcher
//
// A Dispatcher pulls activity tasks from a queue, executes the registered
// ActivityFunc, and feeds the outcome back into the engine, which resumes
// the owning instance. Dispatchers run asynchronously and can be scaled
// horizontally.
//
// # LocalRunner
//
// LocalRunner bundles an in-memory engine, queue, and dispatcher into a
// single, process-local helper useful for development and unit testing.
// It lets you:
//
//   - schedule orchestrations
//   - raise external events
//   - wait for completion
//
// LocalRunner is intentionally **not crash-durable**, but it provides the
// most convenient way to run and debug orchestrations during development.
//
// # Summary
//
// Orka's goal is to give Go developers durable execution that feels like
// Go: easy to embed, easy to test, deterministic, and without operational
// overhead. Engines manage history and replay, Dispatchers execute
// activities, OrchestratorFuncs contain coordination logic, ActivityFuncs
// contain side effects, and LocalRunner provides a fast, developer-friendly
// runtime.
//
// For examples, see the /examples directory or the project README.
package orka
