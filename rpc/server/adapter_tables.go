package server

import (
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// NewTableServerAdapter creates the adapter for the table verbs.
func NewTableServerAdapter() IRPCServerAdapter {
	return &tableServerAdapterImpl{}
}

type tableServerAdapterImpl struct{}

func (adapter *tableServerAdapterImpl) Verbs() []common.Verb {
	return []common.Verb{
		common.VerbCreateTable, common.VerbDeleteTable, common.VerbInsert, common.VerbRead, common.VerbCount,
		common.VerbUpdate, common.VerbRemove, common.VerbEmpty, common.VerbTables, common.VerbDescribe,
	}
}

func (adapter *tableServerAdapterImpl) Handle(req *common.Request, st store.IStore) (value.Value, error) {
	return adapter.HandleTx(req, st)
}

func (adapter *tableServerAdapterImpl) HandleTx(req *common.Request, tx store.Tx) (value.Value, error) {
	if req.Verb == common.VerbTables {
		names, err := tx.Tables()
		if err != nil {
			return value.Value{}, err
		}
		return stringsValue(names), nil
	}
	if err := needTable(req); err != nil {
		return value.Value{}, err
	}

	switch req.Verb {
	case common.VerbCreateTable:
		mode, err := db.ParseMode(req.Mode)
		if err != nil {
			return value.Value{}, err
		}
		var schema db.Schema
		if req.Schema != nil {
			schema = *req.Schema
		}
		return value.Null(), tx.CreateTable(req.Table, schema, mode)

	case common.VerbDeleteTable:
		rows, edges, err := tx.DeleteTable(req.Table)
		if err != nil {
			return value.Value{}, err
		}
		return counts("rows", rows, "edges", edges), nil

	case common.VerbInsert:
		fields, err := payload(req, req.Fields, "fields")
		if err != nil {
			return value.Value{}, err
		}
		id, err := tx.Insert(req.Table, fields)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(id), nil

	case common.VerbRead:
		rows, err := tx.Read(req.Table, readOptions(req))
		if err != nil {
			return value.Value{}, err
		}
		return rowsValue(rows), nil

	case common.VerbCount:
		n, err := tx.Count(req.Table, req.Where)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(int64(n)), nil

	case common.VerbUpdate:
		patch, err := payload(req, req.Patch, "a patch")
		if err != nil {
			return value.Value{}, err
		}
		n, err := tx.Update(req.Table, req.Where, patch)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(int64(n)), nil

	case common.VerbRemove:
		rows, edges, err := tx.Remove(req.Table, req.Where)
		if err != nil {
			return value.Value{}, err
		}
		return counts("rows", rows, "edges", edges), nil

	case common.VerbEmpty:
		n, err := tx.Empty(req.Table, req.Where)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(int64(n)), nil

	case common.VerbDescribe:
		info, err := tx.Describe(req.Table)
		if err != nil {
			return value.Value{}, err
		}
		return toValue(info)

	default:
		return value.Value{}, errs.New(errs.InvalidArgument, "table adapter: unsupported verb %s", req.Verb)
	}
}
