// Package serializer provides Request/Response encodings for the rsnDB
// request surface. It defines a common interface and two implementations.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Carrying value.Value payloads without loss in either format
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: JSON encoding. Human-readable and the format of
//     exec scripts and HandleText. Document field order is not preserved
//     across a round trip (members come back sorted by name).
//
//   - gobSerializerImpl: Go's gob encoding. Values travel as embedded BSON
//     so field order and the int/float distinction survive.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, _ := serializer.ByName("json")
//	data, err := s.SerializeRequest(*common.NewGetRequest("k"))
//	// ...
//	var req common.Request
//	err = s.DeserializeRequest(data, &req)
package serializer
