// Package server implements the in-process request dispatcher of rsnDB.
// It turns common.Request values into calls on a store.IStore and adds the
// session features that sit above the store: batches and aliases.
//
// The package focuses on:
//   - Routing each verb to the adapter that owns it
//   - Validating request arguments and enforcing the command, ingest,
//     batch and alias limits
//   - Mapping every failure to a structured common.Failure
//
// Key Components:
//
//   - IRPCServerAdapter: Interface for verb adapters. The table, graph and
//     KV adapters also run inside a store batch; the store adapter
//     (versioning, persistence) and the exchange adapter do not.
//
//   - Server: Holds the store, the serializer, the adapters, the open batch
//     queue and the alias registry (an xsync.MapOf).
//
// Batches:
//
//	BATCH opens a queue. Data verbs are queued (at most MaxBatchOps), any
//	other verb fails with InvalidArgument. COMMIT runs the queue inside
//	IStore.Batch and returns the per-request results; one failure rolls
//	back the whole queue. ABORT discards it.
//
// Aliases:
//
//	ALIAS stores a copy of a request under an identifier. CALL runs it. An
//	alias may itself be a CALL; chains deeper than MaxAliasDepth fail with
//	LimitExceeded.
//
// Usage Example:
//
//	st, _ := lstore.New(lstore.DefaultConfig())
//	srv, _ := server.NewServer(common.DefaultServerConfig(), st)
//	out := srv.HandleText([]byte(`{"verb":"PUT","key":"k","value":1}`))
//
// Thread Safety:
//
//	The server serializes all requests with a mutex. Batch and alias state
//	is shared by every caller of the same Server.
package server
