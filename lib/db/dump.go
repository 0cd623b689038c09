package db

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Flat Representation (used for persistence)
// --------------------------------------------------------------------------

// Dump is a flat, self-contained copy of a State.
type Dump struct {
	Tables []TableDump `bson:"tables"`
	Edges  []Edge      `bson:"edges"`
	KV     []KVEntry   `bson:"kv"`
}

// TableDump is one table of a Dump. Rows are in insertion order.
type TableDump struct {
	Name    string     `bson:"name"`
	Mode    Mode       `bson:"mode"`
	Fields  []FieldDef `bson:"fields"`
	NextSeq int64      `bson:"next_seq"`
	Rows    []Row      `bson:"rows"`
}

// Dump flattens the state.
func (s *State) Dump() Dump {
	d := Dump{
		Tables: make([]TableDump, 0, s.tables.Len()),
		Edges:  s.AllEdges(),
		KV:     make([]KVEntry, 0, s.kv.Len()),
	}
	s.tables.Root().Walk(func(_ []byte, v interface{}) bool {
		t := v.(*table)
		td := TableDump{
			Name:    t.name,
			Mode:    t.mode,
			Fields:  t.info().Fields,
			NextSeq: int64(t.nextSeq),
			Rows:    make([]Row, 0, t.rows.Len()),
		}
		t.rows.Root().Walk(func(_ []byte, rv interface{}) bool {
			td.Rows = append(td.Rows, rv.(Row))
			return false
		})
		d.Tables = append(d.Tables, td)
		return false
	})
	s.kv.Root().Walk(func(k []byte, v interface{}) bool {
		d.KV = append(d.KV, KVEntry{Key: string(k), Value: v.(value.Value)})
		return false
	})
	return d
}

// FromDump rebuilds a State, running the same validation as the regular
// operations: schemas, row types, unique constraints and edge endpoints.
// The uniqueness indexes are rebuilt from the rows.
func FromDump(d Dump, limit int) (*State, error) {
	s := New(limit)
	for _, td := range d.Tables {
		next, err := s.CreateTable(td.Name, Schema{Fields: td.Fields}, td.Mode)
		if err != nil {
			return nil, err
		}
		t, _ := next.table(td.Name)
		nt := t.clone()
		ix := nt.indexTxn()
		rows := nt.rows.Txn()
		for _, r := range td.Rows {
			seq, ok := nt.parseRowID(r.ID)
			if !ok {
				return nil, errs.New(errs.InvalidArgument, "row id %q does not belong to table %q", r.ID, td.Name).
					With("table", td.Name).With("row", r.ID)
			}
			if _, dup := rows.Get(seqKey(seq)); dup {
				return nil, errs.New(errs.InvalidArgument, "row id %q appears twice", r.ID).With("table", td.Name)
			}
			// emptied rows keep their id without any fields
			fields := value.Document()
			if r.Fields.Len() > 0 {
				if fields, err = validateRow(td.Name, nt.schema, nt.mode, r.Fields, limit); err != nil {
					return nil, err
				}
			}
			row := Row{ID: r.ID, Fields: fields}
			if err := ix.add(row); err != nil {
				return nil, err
			}
			rows.Insert(seqKey(seq), row)
			if seq > nt.nextSeq {
				nt.nextSeq = seq
			}
		}
		if td.NextSeq > 0 && uint64(td.NextSeq) > nt.nextSeq {
			nt.nextSeq = uint64(td.NextSeq)
		}
		ix.commit(nt)
		nt.rows = rows.Commit()
		s = next.withTable(nt)
	}

	for _, e := range d.Edges {
		next, err := s.Link(e)
		if err != nil {
			return nil, err
		}
		s = next
	}

	for _, kv := range d.KV {
		next, err := s.Put(kv.Key, kv.Value)
		if err != nil {
			return nil, err
		}
		s = next
	}
	return s, nil
}
