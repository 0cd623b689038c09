// Package common provides the message types and configuration shared by
// the request surface of rsnDB.
//
// The package focuses on:
//   - The Request/Response protocol used by the dispatcher, the exec
//     command and scripts
//   - Mapping typed engine errors to structured failures
//   - Dispatcher configuration
//
// Key Components:
//
//   - Request: One command. The Verb selects the operation and decides
//     which of the other fields are read. Factory functions cover the
//     common cases.
//
//   - Response: Ok plus an optional Result value, or a Failure whose Kind
//     is the error code name (for example "UnknownTable").
//
//   - Verb: The closed set of operations, grouped into tables, graph, KV,
//     versioning, persistence, exchange and control verbs. Data verbs are
//     the ones allowed inside a batch.
//
//   - ServerConfig: Serializer choice, data directory and the batch and
//     alias limits.
package common
