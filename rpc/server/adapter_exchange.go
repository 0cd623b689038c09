package server

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/exchange"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// NewExchangeServerAdapter creates the adapter for the import and export
// verbs. Files are resolved below the adaptor's root.
func NewExchangeServerAdapter(a *exchange.Adaptor) IRPCServerAdapter {
	return &exchangeServerAdapterImpl{adaptor: a}
}

type exchangeServerAdapterImpl struct {
	adaptor *exchange.Adaptor
}

func (adapter *exchangeServerAdapterImpl) Verbs() []common.Verb {
	return []common.Verb{common.VerbExportJSONL, common.VerbImportJSONL, common.VerbExportSQLite, common.VerbImportSQLite}
}

func (adapter *exchangeServerAdapterImpl) Handle(req *common.Request, st store.IStore) (value.Value, error) {
	if err := needTable(req); err != nil {
		return value.Value{}, err
	}
	if req.Path == "" {
		return value.Value{}, missing(req, "a path")
	}

	var (
		n   int
		err error
	)
	switch req.Verb {
	case common.VerbExportJSONL:
		n, err = adapter.adaptor.ExportJSONL(st, req.Table, req.Path)
	case common.VerbImportJSONL:
		n, err = adapter.adaptor.ImportJSONL(st, req.Table, req.Path)
	case common.VerbExportSQLite:
		n, err = adapter.adaptor.ExportSQLite(st, req.Table, req.Path)
	case common.VerbImportSQLite:
		source := req.Name
		if source == "" {
			source = req.Table
		}
		n, err = adapter.adaptor.ImportSQLite(st, source, req.Table, req.Path)
	default:
		return value.Value{}, errs.New(errs.InvalidArgument, "exchange adapter: unsupported verb %s", req.Verb)
	}
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(n)), nil
}
