package server

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// NewIStoreServerAdapter creates the adapter for the store-level verbs:
// versioning and persistence. None of them may run inside a batch.
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Verbs() []common.Verb {
	return []common.Verb{
		common.VerbUndo, common.VerbRedo, common.VerbCheckpoint, common.VerbRollback,
		common.VerbRelease, common.VerbCheckpoints, common.VerbHistory,
		common.VerbSave, common.VerbLoad, common.VerbInfo,
	}
}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Request, st store.IStore) (value.Value, error) {
	switch req.Verb {
	case common.VerbUndo:
		moved, err := st.Undo()
		return value.Bool(moved), err
	case common.VerbRedo:
		moved, err := st.Redo()
		return value.Bool(moved), err

	case common.VerbCheckpoint, common.VerbRollback, common.VerbRelease:
		if req.Name == "" {
			return value.Value{}, missing(req, "a checkpoint name")
		}
		switch req.Verb {
		case common.VerbCheckpoint:
			info, err := st.Checkpoint(req.Name)
			if err != nil {
				return value.Value{}, err
			}
			return toValue(info)
		case common.VerbRollback:
			return value.Null(), st.RollbackTo(req.Name)
		default:
			return value.Null(), st.ReleaseCheckpoint(req.Name)
		}

	case common.VerbCheckpoints:
		cps, err := st.Checkpoints()
		if err != nil {
			return value.Value{}, err
		}
		return toValue(cps)
	case common.VerbHistory:
		entries, err := st.History()
		if err != nil {
			return value.Value{}, err
		}
		return toValue(entries)

	case common.VerbSave:
		if req.Path == "" {
			return value.Value{}, missing(req, "a path")
		}
		n, err := st.Save(req.Path)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(n), nil
	case common.VerbLoad:
		if req.Path == "" {
			return value.Value{}, missing(req, "a path")
		}
		return value.Null(), st.Load(req.Path)
	case common.VerbInfo:
		info, err := st.Info()
		if err != nil {
			return value.Value{}, err
		}
		return toValue(info)

	default:
		return value.Value{}, errs.New(errs.InvalidArgument, "store adapter: unsupported verb %s", req.Verb)
	}
}
