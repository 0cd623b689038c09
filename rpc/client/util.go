package client

import (
	"encoding/json"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/logging"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
	"github.com/ValentinKolb/rsnDB/rpc/serializer"
)

var (
	Logger = logging.GetLogger("client")
)

// Handler answers serialized requests. *server.Server implements it.
type Handler interface {
	HandleText(req []byte) []byte
}

// rpcClientAdapter stores all data needed to invoke requests. Used by
// RPCStore with the composition pattern.
type rpcClientAdapter struct {
	handler    Handler
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest serializes req, hands it to the handler and decodes the
// response. A failure response is turned back into an *errs.Error with the
// same code, message and details.
func invokeRPCRequest(req *common.Request, handler Handler, ser serializer.IRPCSerializer) (value.Value, error) {
	// Serialize the request
	reqBytes, err := ser.SerializeRequest(*req)
	if err != nil {
		return value.Value{}, errs.Wrap(errs.Internal, err, "serialize %s request", req.Verb)
	}

	respBytes := handler.HandleText(reqBytes)

	// Deserialize the response
	var resp common.Response
	if err := ser.DeserializeResponse(respBytes, &resp); err != nil {
		return value.Value{}, errs.Wrap(errs.Internal, err, "deserialize %s response", req.Verb)
	}

	// Check if the response is an error response
	if !resp.Ok {
		return value.Value{}, fromFailure(resp.Error)
	}
	if resp.Result == nil {
		return value.Null(), nil
	}
	return *resp.Result, nil
}

// fromFailure rebuilds the typed error of a failure response
func fromFailure(f *common.Failure) error {
	if f == nil {
		return errs.New(errs.Internal, "failure response without error")
	}
	code, ok := errs.ParseCode(f.Kind)
	if !ok {
		Logger.Warnf("unknown error kind %q in response", f.Kind)
		code = errs.Internal
	}
	e := errs.New(code, "%s", f.Message)
	for k, v := range f.Details {
		e = e.With(k, v)
	}
	return e
}

// decode converts a result into a Go value through its JSON form
func decode(v value.Value, out any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return errs.Wrap(errs.Internal, err, "encode result")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.Internal, err, "decode result")
	}
	return nil
}

// asInt reads an integer result
func asInt(v value.Value, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, errs.New(errs.Internal, "expected an integer result, got %s", v.Tag())
	}
	return int(n), nil
}

// asPair reads a {rows, edges} result
func asPair(v value.Value, err error) (int, int, error) {
	if err != nil {
		return 0, 0, err
	}
	var out struct {
		Rows  int `json:"rows"`
		Edges int `json:"edges"`
	}
	if err := decode(v, &out); err != nil {
		return 0, 0, err
	}
	return out.Rows, out.Edges, nil
}
