package server

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// NewKVServerAdapter creates the adapter for the key-value verbs.
func NewKVServerAdapter() IRPCServerAdapter {
	return &kvServerAdapterImpl{}
}

type kvServerAdapterImpl struct{}

func (adapter *kvServerAdapterImpl) Verbs() []common.Verb {
	return []common.Verb{common.VerbPut, common.VerbGet, common.VerbDrop, common.VerbKeys}
}

func (adapter *kvServerAdapterImpl) Handle(req *common.Request, st store.IStore) (value.Value, error) {
	return adapter.HandleTx(req, st)
}

func (adapter *kvServerAdapterImpl) HandleTx(req *common.Request, tx store.Tx) (value.Value, error) {
	if req.Verb == common.VerbKeys {
		keys, err := tx.Keys(req.Key)
		if err != nil {
			return value.Value{}, err
		}
		return stringsValue(keys), nil
	}

	switch req.Verb {
	case common.VerbPut:
		v, err := payload(req, req.Value, "a value")
		if err != nil {
			return value.Value{}, err
		}
		return value.Null(), tx.Put(req.Key, v)
	case common.VerbGet:
		return tx.Get(req.Key)
	case common.VerbDrop:
		return value.Null(), tx.Drop(req.Key)
	default:
		return value.Value{}, errs.New(errs.InvalidArgument, "kv adapter: unsupported verb %s", req.Verb)
	}
}
