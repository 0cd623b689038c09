package client

import (
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/lib/version"
	"github.com/ValentinKolb/rsnDB/rpc/common"
	"github.com/ValentinKolb/rsnDB/rpc/serializer"
)

// NewRPCStore creates a client that sends every call as a serialized
// request to handler and decodes the response.
func NewRPCStore(handler Handler, serializer serializer.IRPCSerializer) *RPCStore {
	return &RPCStore{
		rpcClientAdapter{
			handler:    handler,
			serializer: serializer,
		},
	}
}

// RPCStore is a typed client of the dispatcher. It implements store.Tx;
// batches are sent as request lists with Batch.
type RPCStore struct {
	rpcClientAdapter
}

var _ store.Tx = (*RPCStore)(nil)

func (i *RPCStore) invoke(req *common.Request) (value.Value, error) {
	return invokeRPCRequest(req, i.handler, i.serializer)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *RPCStore) Tables() (names []string, err error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbTables})
	if err != nil {
		return nil, err
	}
	err = decode(resp, &names)
	return names, err
}

func (i *RPCStore) Describe(table string) (info db.TableInfo, err error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbDescribe, Table: table})
	if err != nil {
		return db.TableInfo{}, err
	}
	err = decode(resp, &info)
	return info, err
}

func (i *RPCStore) Read(table string, opts db.ReadOptions) (rows []db.Row, err error) {
	req := common.NewReadRequest(table, opts.Where)
	req.OrderBy, req.Desc, req.Limit = opts.OrderBy, opts.Desc, opts.Limit
	resp, err := i.invoke(req)
	if err != nil {
		return nil, err
	}
	err = decode(resp, &rows)
	return rows, err
}

// Row reads a single row by its id. The dispatcher has no verb for it, so
// the rows are filtered on the client.
func (i *RPCStore) Row(table, id string) (db.Row, error) {
	rows, err := i.Read(table, db.ReadOptions{})
	if err != nil {
		return db.Row{}, err
	}
	for _, r := range rows {
		if r.ID == id {
			return r, nil
		}
	}
	return db.Row{}, errs.New(errs.RowNotFound, "row %q not found", id).With("table", table).With("id", id)
}

func (i *RPCStore) Count(table string, cond *db.Condition) (int, error) {
	return asInt(i.invoke(&common.Request{Verb: common.VerbCount, Table: table, Where: cond}))
}

func (i *RPCStore) Walk(table, id, label string, hops db.HopRange, dir db.Direction) (out []db.Reached, err error) {
	resp, err := i.invoke(&common.Request{
		Verb: common.VerbWalk, Table: table, ID: id, Label: label, Hops: hops, Direction: string(dir),
	})
	if err != nil {
		return nil, err
	}
	err = decode(resp, &out)
	return out, err
}

func (i *RPCStore) Edges(table, id string) (out []db.Edge, err error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbEdges, Table: table, ID: id})
	if err != nil {
		return nil, err
	}
	err = decode(resp, &out)
	return out, err
}

func (i *RPCStore) Get(key string) (value.Value, error) {
	return i.invoke(common.NewGetRequest(key))
}

func (i *RPCStore) Keys(prefix string) (keys []string, err error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbKeys, Key: prefix})
	if err != nil {
		return nil, err
	}
	err = decode(resp, &keys)
	return keys, err
}

func (i *RPCStore) CreateTable(name string, schema db.Schema, mode db.Mode) error {
	_, err := i.invoke(&common.Request{Verb: common.VerbCreateTable, Table: name, Schema: &schema, Mode: string(mode)})
	return err
}

func (i *RPCStore) DeleteTable(name string) (rows, edges int, err error) {
	return asPair(i.invoke(&common.Request{Verb: common.VerbDeleteTable, Table: name}))
}

func (i *RPCStore) Insert(table string, fields value.Value) (string, error) {
	resp, err := i.invoke(common.NewInsertRequest(table, fields))
	if err != nil {
		return "", err
	}
	id, ok := resp.AsString()
	if !ok {
		return "", errs.New(errs.Internal, "expected a row id, got %s", resp.Tag())
	}
	return id, nil
}

func (i *RPCStore) Update(table string, cond *db.Condition, patch value.Value) (int, error) {
	return asInt(i.invoke(common.NewUpdateRequest(table, cond, patch)))
}

func (i *RPCStore) Remove(table string, cond *db.Condition) (rows, edges int, err error) {
	return asPair(i.invoke(&common.Request{Verb: common.VerbRemove, Table: table, Where: cond}))
}

func (i *RPCStore) Empty(table string, cond *db.Condition) (int, error) {
	return asInt(i.invoke(&common.Request{Verb: common.VerbEmpty, Table: table, Where: cond}))
}

func (i *RPCStore) Link(e db.Edge) error {
	_, err := i.invoke(common.NewLinkRequest(e))
	return err
}

func (i *RPCStore) Unlink(e db.Edge) error {
	req := common.NewLinkRequest(e)
	req.Verb = common.VerbUnlink
	_, err := i.invoke(req)
	return err
}

func (i *RPCStore) Put(key string, v value.Value) error {
	_, err := i.invoke(common.NewPutRequest(key, v))
	return err
}

func (i *RPCStore) Drop(key string) error {
	_, err := i.invoke(&common.Request{Verb: common.VerbDrop, Key: key})
	return err
}

// --------------------------------------------------------------------------
// Batches and Versioning
// --------------------------------------------------------------------------

// Batch queues reqs and commits them as one snapshot described by desc. It
// returns the result of every request in order. If a request cannot be
// queued the batch is aborted.
func (i *RPCStore) Batch(desc string, reqs ...*common.Request) ([]value.Value, error) {
	if _, err := i.invoke(&common.Request{Verb: common.VerbBatch, Text: desc}); err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if _, err := i.invoke(req); err != nil {
			if _, abortErr := i.invoke(&common.Request{Verb: common.VerbAbort}); abortErr != nil {
				Logger.Warnf("failed to abort batch: %v", abortErr)
			}
			return nil, err
		}
	}
	resp, err := i.invoke(&common.Request{Verb: common.VerbCommit})
	if err != nil {
		return nil, err
	}
	return resp.Items(), nil
}

func (i *RPCStore) Undo() (bool, error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbUndo})
	moved, _ := resp.AsBool()
	return moved, err
}

func (i *RPCStore) Redo() (bool, error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbRedo})
	moved, _ := resp.AsBool()
	return moved, err
}

func (i *RPCStore) Checkpoint(name string) (info version.CheckpointInfo, err error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbCheckpoint, Name: name})
	if err != nil {
		return info, err
	}
	err = decode(resp, &info)
	return info, err
}

func (i *RPCStore) RollbackTo(name string) error {
	_, err := i.invoke(&common.Request{Verb: common.VerbRollback, Name: name})
	return err
}

func (i *RPCStore) Checkpoints() (out []version.CheckpointInfo, err error) {
	resp, err := i.invoke(&common.Request{Verb: common.VerbCheckpoints})
	if err != nil {
		return nil, err
	}
	err = decode(resp, &out)
	return out, err
}
