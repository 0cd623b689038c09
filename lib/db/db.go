package db

import (
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Mode controls how a table treats fields that are not in its schema.
type Mode string

const (
	ModeStrict   Mode = "strict"   // unknown fields are rejected
	ModeFlexible Mode = "flexible" // unknown fields are stored verbatim
)

// ParseMode accepts "strict" and "flexible" (empty means strict).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, "":
		return ModeStrict, nil
	case ModeFlexible:
		return ModeFlexible, nil
	default:
		return "", errs.New(errs.InvalidArgument, "unknown table mode %q (want strict or flexible)", s)
	}
}

// Row is a single record. Fields is always a document.
type Row struct {
	ID     string      `json:"id" bson:"id"`
	Fields value.Value `json:"fields" bson:"fields"`
}

// Edge is a directed, labeled relation between two rows.
type Edge struct {
	FromTable string `json:"from_table" bson:"from_table"`
	FromID    string `json:"from_id" bson:"from_id"`
	Label     string `json:"label" bson:"label"`
	ToTable   string `json:"to_table" bson:"to_table"`
	ToID      string `json:"to_id" bson:"to_id"`
}

// KVEntry is a single cache slot.
type KVEntry struct {
	Key   string      `json:"key" bson:"key"`
	Value value.Value `json:"value" bson:"value"`
}

// TableInfo describes a table without its rows.
type TableInfo struct {
	Name    string     `json:"name"`
	Mode    Mode       `json:"mode"`
	Fields  []FieldDef `json:"fields"`
	Rows    int        `json:"rows"`
	NextSeq uint64     `json:"next_seq"`
}

// StateInfo summarizes a state for reporting.
type StateInfo struct {
	Tables    int            `json:"tables"`
	Rows      int            `json:"rows"`
	Edges     int            `json:"edges"`
	KVEntries int            `json:"kv_entries"`
	RowsBy    map[string]int `json:"rows_by_table"`
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// State is an immutable snapshot of tables, edges and KV entries.
//
// Every operation that changes data returns a new *State and leaves the
// receiver untouched. The underlying radix trees share all unchanged
// structure, so keeping many states alive (the undo history) costs only
// the modified paths per mutation.
//
// Thread-safety: a State is never modified after construction and can be
// read concurrently. Serializing writers is the caller's job.
type State struct {
	tables *iradix.Tree // table name -> *table
	edges  *iradix.Tree // adjacency keys (see graph.go) -> Edge
	kv     *iradix.Tree // key -> value.Value
	limit  int          // recursion limit applied to incoming values
}

// New returns an empty state. limit is the value recursion limit
// (value.DefaultRecursionLimit when <= 0).
func New(limit int) *State {
	if limit <= 0 {
		limit = value.DefaultRecursionLimit
	}
	return &State{
		tables: iradix.New(),
		edges:  iradix.New(),
		kv:     iradix.New(),
		limit:  limit,
	}
}

// RecursionLimit returns the nesting limit applied to incoming values.
func (s *State) RecursionLimit() int {
	return s.limit
}

// WithRecursionLimit returns a state sharing all data but validating new
// values against a different limit.
func (s *State) WithRecursionLimit(limit int) *State {
	if limit <= 0 {
		limit = value.DefaultRecursionLimit
	}
	out := *s
	out.limit = limit
	return &out
}

func (s *State) clone() *State {
	out := *s
	return &out
}

// Info returns counts over the whole state.
func (s *State) Info() StateInfo {
	info := StateInfo{
		Tables:    s.tables.Len(),
		Edges:     s.edges.Len() / 2,
		KVEntries: s.kv.Len(),
		RowsBy:    make(map[string]int, s.tables.Len()),
	}
	s.tables.Root().Walk(func(k []byte, v interface{}) bool {
		n := v.(*table).rows.Len()
		info.RowsBy[string(k)] = n
		info.Rows += n
		return false
	})
	return info
}

// Equal reports whether two states hold the same tables (schema, mode,
// id counter and rows), the same edges and the same KV entries.
func (s *State) Equal(o *State) bool {
	if s == o {
		return true
	}
	if s.tables.Len() != o.tables.Len() || s.edges.Len() != o.edges.Len() || s.kv.Len() != o.kv.Len() {
		return false
	}

	equal := true
	s.tables.Root().Walk(func(k []byte, v interface{}) bool {
		ov, ok := o.tables.Get(k)
		if !ok || !v.(*table).equal(ov.(*table)) {
			equal = false
		}
		return !equal
	})
	if !equal {
		return false
	}

	s.edges.Root().Walk(func(k []byte, _ interface{}) bool {
		if _, ok := o.edges.Get(k); !ok {
			equal = false
		}
		return !equal
	})
	if !equal {
		return false
	}

	s.kv.Root().Walk(func(k []byte, v interface{}) bool {
		ov, ok := o.kv.Get(k)
		if !ok || !value.Equal(v.(value.Value), ov.(value.Value)) {
			equal = false
		}
		return !equal
	})
	return equal
}
