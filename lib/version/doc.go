// Package version implements the versioning controller: a linear history
// of immutable states with a cursor, named checkpoints and an append-only
// operation log.
//
// The controller is generic over the state type and never copies states;
// it relies on them being immutable values (lib/db.State shares structure
// between versions, so keeping the whole history alive is cheap).
//
// Rules:
//   - Commit appends after the cursor and discards any redo tail
//     (branch-on-write). Log entries of discarded snapshots are marked, never
//     removed.
//   - Undo and Redo move the cursor and report false at either end.
//   - A checkpoint keeps a reference to its state, so rolling back always
//     restores exactly that state: by moving the cursor when the snapshot is
//     still in the history, by appending it otherwise.
//   - Reset replaces the history after a load; undo history never survives
//     it.
package version
