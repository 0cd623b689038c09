package db

import (
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
)

// --------------------------------------------------------------------------
// Adjacency Keys
// --------------------------------------------------------------------------

/*
	Every edge is stored twice in the same radix tree:

	  o \0 fromTable \0 fromID \0 label \0 toTable \0 toID   (outbound)
	  i \0 toTable \0 toID \0 label \0 fromTable \0 fromID   (inbound)

	Table names and labels are identifiers and row ids are generated, so
	none of them contain \0 and every prefix below is unambiguous. A prefix
	scan over "o\0t\0id\0" yields a row's outbound edges, adding the label
	narrows it to one label.
*/

const sep = "\x00"

func outKey(e Edge) []byte {
	return []byte("o" + sep + e.FromTable + sep + e.FromID + sep + e.Label + sep + e.ToTable + sep + e.ToID)
}

func inKey(e Edge) []byte {
	return []byte("i" + sep + e.ToTable + sep + e.ToID + sep + e.Label + sep + e.FromTable + sep + e.FromID)
}

func nodePrefix(dir, tbl, id, label string) []byte {
	p := dir + sep + tbl + sep + id + sep
	if label != "" {
		p += label + sep
	}
	return []byte(p)
}

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Direction selects which edges a walk follows.
type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// ParseDirection accepts out, in and both (empty means out).
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case DirOut, "":
		return DirOut, nil
	case DirIn:
		return DirIn, nil
	case DirBoth:
		return DirBoth, nil
	}
	return "", errs.New(errs.InvalidArgument, "unknown direction %q", s)
}

// HopRange bounds a walk. The zero value means a single hop.
type HopRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (h HopRange) normalize() (HopRange, error) {
	if h.Min == 0 && h.Max == 0 {
		return HopRange{Min: 1, Max: 1}, nil
	}
	if h.Min == 0 {
		h.Min = 1
	}
	if h.Max < 1 || h.Min < 0 || h.Min > h.Max {
		return HopRange{}, errs.New(errs.InvalidArgument, "invalid hop range {%d,%d}", h.Min, h.Max).
			With("min", h.Min).With("max", h.Max)
	}
	return h, nil
}

// Node addresses a row.
type Node struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

// Reached is a node found by a walk together with the hop count at which
// it was first discovered.
type Reached struct {
	Node
	Depth int `json:"depth"`
}

// --------------------------------------------------------------------------
// Graph Store Operations
// --------------------------------------------------------------------------

func (s *State) requireRow(tbl, id string) error {
	t, err := s.table(tbl)
	if err != nil {
		return err
	}
	if _, ok := t.getRow(id); !ok {
		return errRowNotFound(tbl, id)
	}
	return nil
}

// Link adds a directed edge. Both endpoints must exist.
func (s *State) Link(e Edge) (*State, error) {
	if err := guard.Identifier("label", e.Label); err != nil {
		return nil, err
	}
	if err := s.requireRow(e.FromTable, e.FromID); err != nil {
		return nil, err
	}
	if err := s.requireRow(e.ToTable, e.ToID); err != nil {
		return nil, err
	}
	if _, exists := s.edges.Get(outKey(e)); exists {
		return nil, errs.New(errs.DuplicateEdge, "edge %s already exists", e).With("label", e.Label)
	}

	txn := s.edges.Txn()
	txn.Insert(outKey(e), e)
	txn.Insert(inKey(e), e)
	out := s.clone()
	out.edges = txn.Commit()
	return out, nil
}

// Unlink removes a directed edge.
func (s *State) Unlink(e Edge) (*State, error) {
	if _, exists := s.edges.Get(outKey(e)); !exists {
		return nil, errs.New(errs.EdgeNotFound, "edge %s does not exist", e).With("label", e.Label)
	}
	txn := s.edges.Txn()
	txn.Delete(outKey(e))
	txn.Delete(inKey(e))
	out := s.clone()
	out.edges = txn.Commit()
	return out, nil
}

// HasEdge reports whether the exact edge exists.
func (s *State) HasEdge(e Edge) bool {
	_, ok := s.edges.Get(outKey(e))
	return ok
}

// Edges lists the outbound then inbound edges of a row.
func (s *State) Edges(tbl, id string) ([]Edge, error) {
	if err := s.requireRow(tbl, id); err != nil {
		return nil, err
	}
	var out []Edge
	s.edges.Root().WalkPrefix(nodePrefix("o", tbl, id, ""), func(_ []byte, v interface{}) bool {
		out = append(out, v.(Edge))
		return false
	})
	s.edges.Root().WalkPrefix(nodePrefix("i", tbl, id, ""), func(_ []byte, v interface{}) bool {
		e := v.(Edge)
		// self loops were already listed as outbound
		if e.FromTable != tbl || e.FromID != id {
			out = append(out, e)
		}
		return false
	})
	return out, nil
}

// AllEdges returns every edge ordered by their outbound key.
func (s *State) AllEdges() []Edge {
	out := make([]Edge, 0, s.edges.Len()/2)
	s.edges.Root().WalkPrefix([]byte("o"+sep), func(_ []byte, v interface{}) bool {
		out = append(out, v.(Edge))
		return false
	})
	return out
}

// EdgeCount returns the number of edges.
func (s *State) EdgeCount() int {
	return s.edges.Len() / 2
}

// Walk runs a breadth-first traversal from (tbl, id) along edges with the
// given label (any label when empty). Every node is reported once, at the
// depth it was first discovered; nodes closer than hops.Min are omitted and
// nothing beyond hops.Max is visited. The start node is never reported.
func (s *State) Walk(tbl, id, label string, hops HopRange, dir Direction) ([]Reached, error) {
	hops, err := hops.normalize()
	if err != nil {
		return nil, err
	}
	dir, err = ParseDirection(string(dir))
	if err != nil {
		return nil, err
	}
	if err := s.requireRow(tbl, id); err != nil {
		return nil, err
	}

	start := Node{Table: tbl, ID: id}
	visited := map[Node]struct{}{start: {}}
	frontier := []Node{start}
	var out []Reached

	for depth := 1; depth <= hops.Max && len(frontier) > 0; depth++ {
		var next []Node
		for _, n := range frontier {
			for _, nb := range s.neighbours(n, label, dir) {
				if _, seen := visited[nb]; seen {
					continue
				}
				visited[nb] = struct{}{}
				next = append(next, nb)
				if depth >= hops.Min {
					out = append(out, Reached{Node: nb, Depth: depth})
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func (s *State) neighbours(n Node, label string, dir Direction) []Node {
	var out []Node
	if dir == DirOut || dir == DirBoth {
		s.edges.Root().WalkPrefix(nodePrefix("o", n.Table, n.ID, label), func(_ []byte, v interface{}) bool {
			e := v.(Edge)
			out = append(out, Node{Table: e.ToTable, ID: e.ToID})
			return false
		})
	}
	if dir == DirIn || dir == DirBoth {
		s.edges.Root().WalkPrefix(nodePrefix("i", n.Table, n.ID, label), func(_ []byte, v interface{}) bool {
			e := v.(Edge)
			out = append(out, Node{Table: e.FromTable, ID: e.FromID})
			return false
		})
	}
	return out
}

// String renders an edge as "from_table/from_id -[label]-> to_table/to_id".
func (e Edge) String() string {
	return e.FromTable + "/" + e.FromID + " -[" + e.Label + "]-> " + e.ToTable + "/" + e.ToID
}

// --------------------------------------------------------------------------
// Cascades
// --------------------------------------------------------------------------

// cascadeRow deletes every edge touching the row and returns how many.
func cascadeRow(txn *iradix.Txn, tbl, id string) int {
	return cascadePrefix(txn, nodePrefix("o", tbl, id, ""), nodePrefix("i", tbl, id, ""))
}

// cascadeTable deletes every edge touching any row of the table.
func cascadeTable(txn *iradix.Txn, tbl string) int {
	return cascadePrefix(txn, []byte("o"+sep+tbl+sep), []byte("i"+sep+tbl+sep))
}

func cascadePrefix(txn *iradix.Txn, prefixes ...[]byte) int {
	doomed := make(map[Edge]struct{})
	root := txn.Root()
	for _, p := range prefixes {
		root.WalkPrefix(p, func(_ []byte, v interface{}) bool {
			doomed[v.(Edge)] = struct{}{}
			return false
		})
	}
	for e := range doomed {
		txn.Delete(outKey(e))
		txn.Delete(inKey(e))
	}
	return len(doomed)
}
