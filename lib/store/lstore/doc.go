// Package lstore implements the local rsnDB engine on top of the
// store.IStore interface.
//
// Key Features:
//   - Immutable states: every mutation produces a new lib/db.State that
//     shares all untouched data with its predecessor
//   - Versioning: each successful mutation is one snapshot in a
//     lib/version controller, giving undo, redo and named checkpoints
//   - Atomic batches: a batch runs on a working copy and commits once
//   - Persistence: Save and Load go through lib/persist with paths confined
//     to the configured data directory
//   - Observability: zap logging and VictoriaMetrics counters per operation
//
// Implementation Details:
//
//   - Working copies: an operation receives a txn holding the current
//     state. Writes replace txn.st; the result is committed only when the
//     operation returns without error and the state actually changed.
//
//   - Load: the file is decoded and rebuilt (including every checkpoint
//     state) before the engine is touched. The history is then reset to a
//     single snapshot and the checkpoints are restored detached, so rolling
//     back to one appends its state as a new snapshot.
//
// Thread Safety:
//
// All methods take a single mutex. There are no background goroutines and
// no package-level engine: each Store is an explicitly owned value.
//
// Usage Example:
//
//	st, err := lstore.New(lstore.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = st.CreateTable("users", db.Schema{}, db.ModeFlexible)
//	_, _ = st.Insert("users", value.Document(value.Field{Name: "name", Value: value.String("ada")}))
//	_, _ = st.Save("users.db")
package lstore
