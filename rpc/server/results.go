package server

import (
	"encoding/json"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

// --------------------------------------------------------------------------
// Argument helpers
// --------------------------------------------------------------------------

func missing(req *common.Request, arg string) error {
	return errs.New(errs.InvalidArgument, "%s needs %s", req.Verb, arg).With("verb", req.Verb.String())
}

func needTable(req *common.Request) error {
	if req.Table == "" {
		return missing(req, "a table")
	}
	return nil
}

func payload(req *common.Request, v *value.Value, arg string) (value.Value, error) {
	if v == nil {
		return value.Value{}, missing(req, arg)
	}
	return *v, nil
}

// checkIngest enforces the payload cap on INSERT, UPDATE and PUT.
func checkIngest(req *common.Request) error {
	var v *value.Value
	switch req.Verb {
	case common.VerbInsert:
		v = req.Fields
	case common.VerbUpdate:
		v = req.Patch
	case common.VerbPut:
		v = req.Value
	default:
		return nil
	}
	if v == nil {
		return nil
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "encode payload")
	}
	return guard.CheckIngest(len(data))
}

func readOptions(req *common.Request) db.ReadOptions {
	return db.ReadOptions{Where: req.Where, OrderBy: req.OrderBy, Desc: req.Desc, Limit: req.Limit}
}

// --------------------------------------------------------------------------
// Result encoding
// --------------------------------------------------------------------------

// resultDepth leaves room for the wrapping of a maximally nested row.
const resultDepth = value.DefaultRecursionLimit + 8

func rowValue(r db.Row) value.Value {
	return value.Document(
		value.Field{Name: "id", Value: value.String(r.ID)},
		value.Field{Name: "fields", Value: r.Fields},
	)
}

func rowsValue(rows []db.Row) value.Value {
	items := make([]value.Value, len(rows))
	for i, r := range rows {
		items[i] = rowValue(r)
	}
	return value.Array(items...)
}

func stringsValue(ss []string) value.Value {
	items := make([]value.Value, len(ss))
	for i, s := range ss {
		items[i] = value.String(s)
	}
	return value.Array(items...)
}

func counts(kv ...any) value.Value {
	fields := make([]value.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, value.Field{Name: kv[i].(string), Value: value.Int(int64(kv[i+1].(int)))})
	}
	return value.Document(fields...)
}

// toValue converts a plain result struct through its JSON form.
func toValue(x any) (value.Value, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return value.Value{}, errs.Wrap(errs.Internal, err, "encode result")
	}
	return value.FromJSON(data, resultDepth)
}
