// Package rpc provides the request/response surface of rsnDB. It turns
// serialized requests into calls on a store.IStore and is used by the
// exec command to run scripts.
//
// The package is organized into several subpackages:
//
//   - common: Request, Response and Failure, the verb set and the
//     dispatcher configuration.
//
//   - serializer: Request/Response encodings (JSON, gob).
//
//   - server: The in-process dispatcher with verb adapters, batches and
//     aliases.
//
//   - client: A typed client that sends calls through a serializer to the
//     dispatcher and restores typed errors from failure responses.
package rpc
