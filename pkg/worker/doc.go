// Package worker provides the activity dispatcher used to drive orka
// orchestrations forward.
//
// Dispatchers consume activity tasks from a task queue, execute the
// registered activity functions, and deliver their outcomes back to the
// engine. They are designed to be lightweight and easy to embed in existing
// services, and they can be scaled horizontally for higher throughput.
//
// Most applications construct dispatchers via helper functions in the orka
// package, which wire engines, queues, and observers together with sensible
// defaults.
//
// # Dispatcher Responsibilities
//
// A dispatcher is responsible for:
//
//   - Polling a task queue for scheduled activity tasks
//   - Resolving activity names against the engine's registry
//   - Executing activity functions with the task input
//   - Delivering completions and failures back to the engine, which appends
//     them to the instance history and resumes the orchestrator
//   - Reporting activity lifecycle events via observers
//
// Dispatchers are long-lived components that typically run in dedicated
// goroutines or processes. Multiple dispatchers can safely operate on the
// same queue; each task is delivered to exactly one of them.
//
// # Integration with Engine and Queues
//
// Dispatchers are decoupled from any particular persistence backend. They
// rely on interfaces provided by the engine and task queue layers:
//
//   - The ActivityHost interface resolves activity functions and accepts
//     task outcomes.
//   - The task queue provides delivery of tasks to be performed.
//
// Different backends (e.g. in-memory, SQLite, Redis) can be plugged in
// through matching queue implementations.
//
// See the orka package documentation and examples for typical usage.
package worker
