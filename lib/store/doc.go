// Package store defines the contract every rsnDB engine fulfils. Collaborators
// (the request dispatcher, the CLI, the exchange adaptors) only ever talk to
// an engine through these interfaces.
//
// The package focuses on:
//   - A small set of composable interfaces (Reader, Writer, Tx, IStore)
//   - All-or-nothing mutations, including multi-operation batches
//   - Typed failures: every error is an *errs.Error carrying a code and context
//
// Key Components:
//
//   - Reader and Writer: the data operations on tables, the graph and the KV
//     cache. Writer calls are atomic; a failure leaves the engine untouched.
//
//   - Tx: Reader plus Writer. It is what a Batch function sees, so the same
//     code can run against the engine directly or inside a batch.
//
//   - IStore: Tx plus versioning (undo, redo, checkpoints, history),
//     persistence (save, load) and lifecycle (info, close).
//
// Implementations:
//
//	- Local Store (lstore): the in-process engine. It composes the immutable
//	  state of lib/db, the version controller and the persistence codec
//	  behind a single mutex.
//	  Available in the "github.com/ValentinKolb/rsnDB/lib/store/lstore" package.
//
// The conformance suite in lib/store/testing runs against any IStore.
package store
