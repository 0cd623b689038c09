package db

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Internal Table Representation
// --------------------------------------------------------------------------

// table is copy-on-write: every change produces a new *table that shares
// the untouched trees of the old one.
type table struct {
	name    string
	schema  Schema
	mode    Mode
	nextSeq uint64                  // last issued sequence number
	rows    *iradix.Tree            // seqKey -> Row, iteration is insertion order
	unique  map[string]*iradix.Tree // field -> value.Key() -> row id
}

func newTable(name string, schema Schema, mode Mode) *table {
	t := &table{
		name:   name,
		schema: schema,
		mode:   mode,
		rows:   iradix.New(),
		unique: make(map[string]*iradix.Tree),
	}
	for _, f := range schema.uniqueFields() {
		t.unique[f] = iradix.New()
	}
	return t
}

func (t *table) clone() *table {
	out := *t
	out.unique = make(map[string]*iradix.Tree, len(t.unique))
	for k, v := range t.unique {
		out.unique[k] = v
	}
	return &out
}

func (t *table) info() TableInfo {
	fields := make([]FieldDef, len(t.schema.Fields))
	copy(fields, t.schema.Fields)
	return TableInfo{Name: t.name, Mode: t.mode, Fields: fields, Rows: t.rows.Len(), NextSeq: t.nextSeq}
}

func (t *table) equal(o *table) bool {
	if t.name != o.name || t.mode != o.mode || t.nextSeq != o.nextSeq || t.rows.Len() != o.rows.Len() {
		return false
	}
	if len(t.schema.Fields) != len(o.schema.Fields) {
		return false
	}
	for i := range t.schema.Fields {
		if t.schema.Fields[i] != o.schema.Fields[i] {
			return false
		}
	}
	equal := true
	t.rows.Root().Walk(func(k []byte, v interface{}) bool {
		ov, ok := o.rows.Get(k)
		if !ok || !value.Equal(v.(Row).Fields, ov.(Row).Fields) {
			equal = false
		}
		return !equal
	})
	return equal
}

func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func (t *table) rowID(seq uint64) string {
	return fmt.Sprintf("%s_%05d", t.name, seq)
}

// parseRowID extracts the sequence number from "<table>_<seq>".
func (t *table) parseRowID(id string) (uint64, bool) {
	idx := strings.LastIndexByte(id, '_')
	if idx < 0 || id[:idx] != t.name {
		return 0, false
	}
	seq, err := strconv.ParseUint(id[idx+1:], 10, 64)
	if err != nil || seq == 0 {
		return 0, false
	}
	return seq, true
}

func (t *table) getRow(id string) (Row, bool) {
	seq, ok := t.parseRowID(id)
	if !ok {
		return Row{}, false
	}
	v, ok := t.rows.Get(seqKey(seq))
	if !ok {
		return Row{}, false
	}
	return v.(Row), true
}

// scan returns the rows matching cond in insertion order.
func (t *table) scan(cond *Condition) ([]Row, error) {
	var (
		out []Row
		err error
	)
	t.rows.Root().Walk(func(_ []byte, v interface{}) bool {
		r := v.(Row)
		ok, matchErr := cond.match(t.name, r)
		if matchErr != nil {
			err = matchErr
			return true
		}
		if ok {
			out = append(out, r)
		}
		return false
	})
	return out, err
}

// --------------------------------------------------------------------------
// Unique Index Maintenance
// --------------------------------------------------------------------------

// uniqueIndex batches changes to all unique indexes of a table.
type uniqueIndex struct {
	tbl  *table
	txns map[string]*iradix.Txn
}

func (t *table) indexTxn() *uniqueIndex {
	ix := &uniqueIndex{tbl: t, txns: make(map[string]*iradix.Txn, len(t.unique))}
	for f, tree := range t.unique {
		ix.txns[f] = tree.Txn()
	}
	return ix
}

// remove drops the entries of a row. Only entries pointing at that row are
// removed, so removing a row that lost the race for a key is harmless.
func (ix *uniqueIndex) remove(r Row) {
	for f, txn := range ix.txns {
		v, ok := r.Fields.Get(f)
		if !ok || v.IsNull() {
			continue
		}
		k := v.Key()
		if owner, ok := txn.Get(k); ok && owner.(string) == r.ID {
			txn.Delete(k)
		}
	}
}

// add registers a row's values, failing on a collision with any other row.
func (ix *uniqueIndex) add(r Row) error {
	for _, f := range ix.tbl.schema.uniqueFields() {
		v, ok := r.Fields.Get(f)
		if !ok || v.IsNull() {
			continue
		}
		k := v.Key()
		if owner, ok := ix.txns[f].Get(k); ok && owner.(string) != r.ID {
			return errs.New(errs.UniqueConstraintViolation, "value %s for field %q already used by %s", v, f, owner).
				With("table", ix.tbl.name).
				With("field", f).
				With("row", owner.(string))
		}
		ix.txns[f].Insert(k, r.ID)
	}
	return nil
}

func (ix *uniqueIndex) commit(t *table) {
	for f, txn := range ix.txns {
		t.unique[f] = txn.Commit()
	}
}

// --------------------------------------------------------------------------
// Table Store Operations
// --------------------------------------------------------------------------

func (s *State) table(name string) (*table, error) {
	v, ok := s.tables.Get([]byte(name))
	if !ok {
		return nil, errs.New(errs.UnknownTable, "table %q does not exist", name).With("table", name)
	}
	return v.(*table), nil
}

func (s *State) withTable(t *table) *State {
	out := s.clone()
	out.tables, _, _ = s.tables.Insert([]byte(t.name), t)
	return out
}

// Tables returns all table names in sorted order.
func (s *State) Tables() []string {
	names := make([]string, 0, s.tables.Len())
	s.tables.Root().Walk(func(k []byte, _ interface{}) bool {
		names = append(names, string(k))
		return false
	})
	return names
}

// HasTable reports whether a table exists.
func (s *State) HasTable(name string) bool {
	_, ok := s.tables.Get([]byte(name))
	return ok
}

// Describe returns a table's schema, mode and size.
func (s *State) Describe(name string) (TableInfo, error) {
	t, err := s.table(name)
	if err != nil {
		return TableInfo{}, err
	}
	return t.info(), nil
}

// CreateTable adds an empty table. Fails with IdentifierInvalid,
// DuplicateTable or InvalidArgument (bad schema).
func (s *State) CreateTable(name string, schema Schema, mode Mode) (*State, error) {
	if err := guard.Identifier("table", name); err != nil {
		return nil, err
	}
	if s.HasTable(name) {
		return nil, errs.New(errs.DuplicateTable, "table %q already exists", name).With("table", name)
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	normalized, err := schema.normalize()
	if err != nil {
		return nil, errs.As(err).With("table", name)
	}
	return s.withTable(newTable(name, normalized, mode)), nil
}

// Insert validates fields and stores them under a new row id.
func (s *State) Insert(name string, fields value.Value) (*State, string, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, "", err
	}
	normalized, err := validateRow(name, t.schema, t.mode, fields, s.limit)
	if err != nil {
		return nil, "", err
	}

	nt := t.clone()
	nt.nextSeq++
	row := Row{ID: nt.rowID(nt.nextSeq), Fields: normalized}

	ix := nt.indexTxn()
	if err := ix.add(row); err != nil {
		return nil, "", err
	}
	ix.commit(nt)
	nt.rows, _, _ = nt.rows.Insert(seqKey(nt.nextSeq), row)
	return s.withTable(nt), row.ID, nil
}

// ReadOptions refines Read.
type ReadOptions struct {
	Where   *Condition
	OrderBy string // field to sort by; rows without an ordered value go last
	Desc    bool
	Limit   int // <= 0 means unlimited
}

// Read returns matching rows. Without OrderBy rows come in insertion order.
func (s *State) Read(name string, opts ReadOptions) ([]Row, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	cond, err := opts.Where.prepare(name)
	if err != nil {
		return nil, err
	}
	rows, err := t.scan(cond)
	if err != nil {
		return nil, err
	}

	if opts.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			a, aok := rows[i].Fields.Get(opts.OrderBy)
			b, bok := rows[j].Fields.Get(opts.OrderBy)
			cmp, ok := value.Compare(a, b)
			switch {
			case aok && bok && ok:
				if opts.Desc {
					return cmp > 0
				}
				return cmp < 0
			case !aok || a.IsNull():
				return false
			case !bok || b.IsNull():
				return true
			default:
				// mixed tags: order by tag so the result is deterministic
				return a.Tag() < b.Tag()
			}
		})
	}

	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows, nil
}

// Get returns a single row by id.
func (s *State) Get(name, id string) (Row, error) {
	t, err := s.table(name)
	if err != nil {
		return Row{}, err
	}
	r, ok := t.getRow(id)
	if !ok {
		return Row{}, errRowNotFound(name, id)
	}
	return r, nil
}

// Count returns the number of rows matching cond.
func (s *State) Count(name string, cond *Condition) (int, error) {
	t, err := s.table(name)
	if err != nil {
		return 0, err
	}
	if cond == nil {
		return t.rows.Len(), nil
	}
	cond, err = cond.prepare(name)
	if err != nil {
		return 0, err
	}
	rows, err := t.scan(cond)
	return len(rows), err
}

// Update merges patch into every matching row. The whole update is rejected
// if any resulting row fails validation or a unique constraint.
func (s *State) Update(name string, cond *Condition, patch value.Value) (*State, int, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, 0, err
	}
	if patch.IsNull() {
		patch = value.Document()
	}
	if patch.Tag() != value.TagDocument {
		return nil, 0, errs.New(errs.TypeMismatch, "patch must be a document, got %s", patch.Tag()).With("table", name)
	}
	cond, err = cond.prepare(name)
	if err != nil {
		return nil, 0, err
	}
	matched, err := t.scan(cond)
	if err != nil {
		return nil, 0, err
	}
	if len(matched) == 0 {
		return s, 0, nil
	}

	updated := make([]Row, 0, len(matched))
	for _, r := range matched {
		fields, err := validateRow(name, t.schema, t.mode, r.Fields.Merge(patch), s.limit)
		if err != nil {
			return nil, 0, errs.As(err).With("row", r.ID)
		}
		updated = append(updated, Row{ID: r.ID, Fields: fields})
	}

	nt := t.clone()
	ix := nt.indexTxn()
	for _, r := range matched {
		ix.remove(r)
	}
	rows := nt.rows.Txn()
	for _, r := range updated {
		if err := ix.add(r); err != nil {
			return nil, 0, err
		}
		seq, _ := nt.parseRowID(r.ID)
		rows.Insert(seqKey(seq), r)
	}
	ix.commit(nt)
	nt.rows = rows.Commit()
	return s.withTable(nt), len(updated), nil
}

// Remove deletes matching rows and every edge touching them.
func (s *State) Remove(name string, cond *Condition) (*State, int, int, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, 0, 0, err
	}
	cond, err = cond.prepare(name)
	if err != nil {
		return nil, 0, 0, err
	}
	matched, err := t.scan(cond)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(matched) == 0 {
		return s, 0, 0, nil
	}

	nt := t.clone()
	ix := nt.indexTxn()
	rows := nt.rows.Txn()
	edges := s.edges.Txn()
	removedEdges := 0
	for _, r := range matched {
		ix.remove(r)
		seq, _ := nt.parseRowID(r.ID)
		rows.Delete(seqKey(seq))
		removedEdges += cascadeRow(edges, name, r.ID)
	}
	ix.commit(nt)
	nt.rows = rows.Commit()

	out := s.withTable(nt)
	out.edges = edges.Commit()
	return out, len(matched), removedEdges, nil
}

// Empty clears the fields of matching rows but keeps their ids and edges.
func (s *State) Empty(name string, cond *Condition) (*State, int, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, 0, err
	}
	cond, err = cond.prepare(name)
	if err != nil {
		return nil, 0, err
	}
	matched, err := t.scan(cond)
	if err != nil {
		return nil, 0, err
	}
	if len(matched) == 0 {
		return s, 0, nil
	}

	nt := t.clone()
	ix := nt.indexTxn()
	rows := nt.rows.Txn()
	for _, r := range matched {
		ix.remove(r)
		seq, _ := nt.parseRowID(r.ID)
		rows.Insert(seqKey(seq), Row{ID: r.ID, Fields: value.Document()})
	}
	ix.commit(nt)
	nt.rows = rows.Commit()
	return s.withTable(nt), len(matched), nil
}

// DeleteTable drops a table, its rows and every edge touching its rows.
func (s *State) DeleteTable(name string) (*State, int, int, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, 0, 0, err
	}
	edges := s.edges.Txn()
	removedEdges := cascadeTable(edges, name)

	out := s.clone()
	out.tables, _, _ = s.tables.Delete([]byte(name))
	out.edges = edges.Commit()
	return out, t.rows.Len(), removedEdges, nil
}

func errRowNotFound(tbl, id string) *errs.Error {
	return errs.New(errs.RowNotFound, "row %q does not exist in table %q", id, tbl).
		With("table", tbl).
		With("row", id)
}
