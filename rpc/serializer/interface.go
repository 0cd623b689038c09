package serializer

import (
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// IRPCSerializer is the interface for all Request/Response serializers
type IRPCSerializer interface {
	// SerializeRequest serializes a Request into a byte array
	SerializeRequest(req common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a Request
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a Response into a byte array
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into a Response
	DeserializeResponse(b []byte, resp *common.Response) error
}

// ByName returns the serializer registered under name ("json" or "gob").
func ByName(name string) (IRPCSerializer, error) {
	switch name {
	case "json", "":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, errs.New(errs.InvalidArgument, "unknown serializer %q (want json or gob)", name)
	}
}
