package server

import (
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// IRPCServerAdapter is the interface for all verb adapters.
// An adapter owns a group of verbs and translates them into store calls.
type IRPCServerAdapter interface {
	// Verbs lists the verbs the adapter handles
	Verbs() []common.Verb

	// Handle runs a request against the store. A null result means the
	// verb returns no data.
	Handle(req *common.Request, st store.IStore) (value.Value, error)
}

// iTxAdapter is implemented by adapters whose verbs may be queued in a
// batch and run inside store.IStore.Batch.
type iTxAdapter interface {
	IRPCServerAdapter

	// HandleTx runs a request inside a batch transaction
	HandleTx(req *common.Request, tx store.Tx) (value.Value, error)
}
