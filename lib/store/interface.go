package store

import (
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/db/util"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/lib/version"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Reader bundles the operations that never change data.
type Reader interface {
	// Tables lists the table names in lexical order.
	Tables() ([]string, error)
	// Describe returns the schema, mode and row count of a table.
	Describe(table string) (db.TableInfo, error)
	// Read returns the rows matching opts. Without opts.OrderBy rows come in insertion order.
	Read(table string, opts db.ReadOptions) ([]db.Row, error)
	// Row returns a single row by id.
	Row(table, id string) (db.Row, error)
	// Count returns the number of rows matching cond (nil matches all).
	Count(table string, cond *db.Condition) (int, error)
	// Walk runs a breadth-first traversal from (table, id). The start node is never reported.
	Walk(table, id, label string, hops db.HopRange, dir db.Direction) ([]db.Reached, error)
	// Edges lists every edge touching (table, id).
	Edges(table, id string) ([]db.Edge, error)
	// Get returns the value of a KV key.
	Get(key string) (value.Value, error)
	// Keys lists the KV keys with the given prefix in lexical order.
	Keys(prefix string) ([]string, error)
}

// Writer bundles the data mutations. Each call either applies completely
// or fails without any effect.
type Writer interface {
	// CreateTable declares a new table. The schema is fixed afterwards.
	CreateTable(name string, schema db.Schema, mode db.Mode) error
	// DeleteTable drops a table and cascades to every edge touching its rows.
	DeleteTable(name string) (rows, edges int, err error)
	// Insert validates fields and stores them as a new row, returning its id.
	Insert(table string, fields value.Value) (id string, err error)
	// Update merges patch into every row matching cond.
	Update(table string, cond *db.Condition, patch value.Value) (int, error)
	// Remove deletes the matching rows and cascades to their edges.
	Remove(table string, cond *db.Condition) (rows, edges int, err error)
	// Empty clears the fields of the matching rows and keeps ids and edges.
	Empty(table string, cond *db.Condition) (int, error)
	// Link adds a directed, labeled edge between two existing rows.
	Link(e db.Edge) error
	// Unlink removes an edge.
	Unlink(e db.Edge) error
	// Put sets a KV entry.
	Put(key string, v value.Value) error
	// Drop removes a KV entry.
	Drop(key string) error
}

// Tx is the view handed to a Batch function.
type Tx interface {
	Reader
	Writer
}

// IStore is the complete contract of an rsnDB engine.
//
// Every Writer call that changes data records one snapshot. Reads, no-op
// writes and failed writes record nothing.
type IStore interface {
	Tx

	// Batch runs fn against a private copy of the current state. If fn
	// returns nil the result is committed as a single snapshot described by
	// desc; otherwise nothing changes. fn must not call back into the store.
	Batch(desc string, fn func(tx Tx) error) error

	// Undo moves back one snapshot. It reports false at the oldest snapshot.
	Undo() (bool, error)
	// Redo moves forward one snapshot. It reports false at the newest snapshot.
	Redo() (bool, error)
	// Checkpoint names the current snapshot.
	Checkpoint(name string) (version.CheckpointInfo, error)
	// RollbackTo restores the state captured by a checkpoint.
	RollbackTo(name string) error
	// ReleaseCheckpoint forgets a checkpoint.
	ReleaseCheckpoint(name string) error
	// Checkpoints lists the live checkpoints.
	Checkpoints() ([]version.CheckpointInfo, error)
	// History returns the operation log, oldest first.
	History() ([]version.Entry, error)

	// Save writes the current state and the checkpoints to path and
	// returns the number of bytes written.
	Save(path string) (int64, error)
	// Load replaces the state with the contents of path. Undo history is
	// reset; checkpoints are restored detached.
	Load(path string) error

	// Info reports statistics about the engine.
	Info() (Info, error)
	// Close releases the engine. Every later call fails.
	Close() error
}

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Info describes an engine. It is a point-in-time copy.
type Info struct {
	Session     string                   `json:"session"`
	Tables      []db.TableInfo           `json:"tables"`
	Rows        int                      `json:"rows"`
	Edges       int                      `json:"edges"`
	KVEntries   int                      `json:"kv_entries"`
	Snapshots   int                      `json:"snapshots"`
	Cursor      int                      `json:"cursor"`
	Checkpoints []version.CheckpointInfo `json:"checkpoints"`

	// RowDistribution describes how rows spread over the tables.
	RowDistribution util.DistributionStats `json:"row_distribution"`
	// RowSizes summarizes the encoded size of the rows in bytes.
	RowSizes util.SizeSummary `json:"row_sizes"`
}
