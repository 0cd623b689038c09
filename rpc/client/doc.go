// Package client implements a typed client of the request dispatcher. It
// turns Go calls into requests, sends them through a serializer to a
// Handler (usually *server.Server) and decodes the responses.
//
// The package focuses on:
//   - Exercising the full wire path: serialize, dispatch, deserialize
//   - Restoring typed errors (*errs.Error with the original code) from failure responses
//   - Decoding results back into db and version types
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.Tx
//     interface plus batches, undo/redo and checkpoints.
//
// Usage Example:
//
//	srv, _ := server.NewServer(common.DefaultServerConfig(), st)
//	c := client.NewRPCStore(srv, serializer.NewGOBSerializer())
//
//	id, _ := c.Insert("users", value.Document(value.Field{Name: "name", Value: value.String("Ann")}))
//	n, _ := c.Count("users", nil)
//
// Results travel as values, so the JSON serializer returns documents with
// sorted field names while gob keeps the stored order.
//
// Thread Safety:
//
//	The client holds no state of its own. It is as safe for concurrent use as
//	the Handler, and *server.Server is safe. An open batch is shared by all
//	users of the same server.
package client
