// Package db implements the data layer of rsnDB: document tables, a
// labeled directed graph over table rows and a flat KV cache, combined in
// one immutable State.
//
// The package focuses on:
//   - Schema-validated tables in strict or flexible mode
//   - Per-field uniqueness enforced through radix indexes (no table scans)
//   - Label-indexed outbound and inbound adjacency for edges
//   - Cascading edge removal when rows or tables disappear
//   - Cheap snapshots through structural sharing
//
// Key Components:
//
//   - State: The root value. All mutating methods (CreateTable, Insert,
//     Update, Remove, Empty, DeleteTable, Link, Unlink, Put, Drop) return a
//     new *State and never touch the receiver. A failed operation returns
//     an error and no state, so partial application is impossible.
//
//   - Schema / FieldDef / Mode: The table contract. Strict tables reject
//     unknown fields; flexible tables store them verbatim but still check
//     the declared ones.
//
//   - Condition: A (field, operator, value) filter used by Read, Count,
//     Update, Remove and Empty.
//
//   - Dump / FromDump: A flat representation for persistence. FromDump runs
//     the full validation again and rebuilds every index.
//
// Row ids have the form "<table>_<sequence>" with the sequence zero padded
// to five digits. Sequences are never reused within a table, even after
// the row with the highest id was removed.
//
// Edges reference rows by (table, id) rather than by pointer so that
// every State stays self-contained.
package db
