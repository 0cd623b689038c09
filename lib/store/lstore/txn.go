package lstore

import (
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// txn applies operations to a working copy of the state. Because db.State
// is immutable, dropping a txn discards all of its changes.
//
// Thread-safety: not safe for concurrent use; only used under Store.mu.
type txn struct {
	st *db.State
}

var _ store.Tx = (*txn)(nil)

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

func (t *txn) Tables() ([]string, error) {
	return t.st.Tables(), nil
}

func (t *txn) Describe(table string) (db.TableInfo, error) {
	return t.st.Describe(table)
}

func (t *txn) Read(table string, opts db.ReadOptions) ([]db.Row, error) {
	return t.st.Read(table, opts)
}

func (t *txn) Row(table, id string) (db.Row, error) {
	return t.st.Get(table, id)
}

func (t *txn) Count(table string, cond *db.Condition) (int, error) {
	return t.st.Count(table, cond)
}

func (t *txn) Walk(table, id, label string, hops db.HopRange, dir db.Direction) ([]db.Reached, error) {
	return t.st.Walk(table, id, label, hops, dir)
}

func (t *txn) Edges(table, id string) ([]db.Edge, error) {
	return t.st.Edges(table, id)
}

func (t *txn) Get(key string) (value.Value, error) {
	return t.st.GetKey(key)
}

func (t *txn) Keys(prefix string) ([]string, error) {
	return t.st.Keys(prefix), nil
}

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

func (t *txn) CreateTable(name string, schema db.Schema, mode db.Mode) error {
	next, err := t.st.CreateTable(name, schema, mode)
	if err != nil {
		return err
	}
	t.st = next
	return nil
}

func (t *txn) DeleteTable(name string) (int, int, error) {
	next, rows, edges, err := t.st.DeleteTable(name)
	if err != nil {
		return 0, 0, err
	}
	t.st = next
	return rows, edges, nil
}

func (t *txn) Insert(table string, fields value.Value) (string, error) {
	next, id, err := t.st.Insert(table, fields)
	if err != nil {
		return "", err
	}
	t.st = next
	return id, nil
}

func (t *txn) Update(table string, cond *db.Condition, patch value.Value) (int, error) {
	next, n, err := t.st.Update(table, cond, patch)
	if err != nil {
		return 0, err
	}
	t.st = next
	return n, nil
}

func (t *txn) Remove(table string, cond *db.Condition) (int, int, error) {
	next, rows, edges, err := t.st.Remove(table, cond)
	if err != nil {
		return 0, 0, err
	}
	t.st = next
	return rows, edges, nil
}

func (t *txn) Empty(table string, cond *db.Condition) (int, error) {
	next, n, err := t.st.Empty(table, cond)
	if err != nil {
		return 0, err
	}
	t.st = next
	return n, nil
}

func (t *txn) Link(e db.Edge) error {
	next, err := t.st.Link(e)
	if err != nil {
		return err
	}
	t.st = next
	return nil
}

func (t *txn) Unlink(e db.Edge) error {
	next, err := t.st.Unlink(e)
	if err != nil {
		return err
	}
	t.st = next
	return nil
}

func (t *txn) Put(key string, v value.Value) error {
	next, err := t.st.Put(key, v)
	if err != nil {
		return err
	}
	t.st = next
	return nil
}

func (t *txn) Drop(key string) error {
	next, err := t.st.Drop(key)
	if err != nil {
		return err
	}
	t.st = next
	return nil
}
