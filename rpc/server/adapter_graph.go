package server

import (
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// NewGraphServerAdapter creates the adapter for the graph verbs.
func NewGraphServerAdapter() IRPCServerAdapter {
	return &graphServerAdapterImpl{}
}

type graphServerAdapterImpl struct{}

func (adapter *graphServerAdapterImpl) Verbs() []common.Verb {
	return []common.Verb{common.VerbLink, common.VerbUnlink, common.VerbWalk, common.VerbEdges}
}

func (adapter *graphServerAdapterImpl) Handle(req *common.Request, st store.IStore) (value.Value, error) {
	return adapter.HandleTx(req, st)
}

func (adapter *graphServerAdapterImpl) HandleTx(req *common.Request, tx store.Tx) (value.Value, error) {
	switch req.Verb {
	case common.VerbLink, common.VerbUnlink:
		e, err := req.Edge()
		if err != nil {
			return value.Value{}, err
		}
		if req.Verb == common.VerbLink {
			return value.Null(), tx.Link(e)
		}
		return value.Null(), tx.Unlink(e)

	case common.VerbWalk:
		if err := needTable(req); err != nil {
			return value.Value{}, err
		}
		dir, err := db.ParseDirection(req.Direction)
		if err != nil {
			return value.Value{}, err
		}
		reached, err := tx.Walk(req.Table, req.ID, req.Label, req.Hops, dir)
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, len(reached))
		for i, r := range reached {
			items[i] = value.Document(
				value.Field{Name: "table", Value: value.String(r.Table)},
				value.Field{Name: "id", Value: value.String(r.ID)},
				value.Field{Name: "depth", Value: value.Int(int64(r.Depth))},
			)
		}
		return value.Array(items...), nil

	case common.VerbEdges:
		if err := needTable(req); err != nil {
			return value.Value{}, err
		}
		edges, err := tx.Edges(req.Table, req.ID)
		if err != nil {
			return value.Value{}, err
		}
		return toValue(edges)

	default:
		return value.Value{}, errs.New(errs.InvalidArgument, "graph adapter: unsupported verb %s", req.Verb)
	}
}
