package common

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Request is a single command. Which fields are used depends on the verb.
type Request struct {
	// Verb selects the operation
	Verb Verb `json:"verb" validate:"required"`

	// Addressing
	Table string `json:"table,omitempty"` // Table verbs, WALK, EDGES, exchange verbs
	ID    string `json:"id,omitempty"`    // WALK, EDGES
	Name  string `json:"name,omitempty"`  // Checkpoints, aliases, IMPORT_SQLITE source table
	Key   string `json:"key,omitempty"`   // KV verbs, KEYS prefix
	Label string `json:"label,omitempty"` // LINK, UNLINK, WALK

	// Table definition
	Schema *db.Schema `json:"schema,omitempty"` // CREATE_TABLE
	Mode   string     `json:"mode,omitempty" validate:"omitempty,oneof=strict flexible"`

	// Payloads
	Fields *value.Value `json:"fields,omitempty"` // INSERT
	Patch  *value.Value `json:"patch,omitempty"`  // UPDATE
	Value  *value.Value `json:"value,omitempty"`  // PUT

	// Query options
	Where   *db.Condition `json:"where,omitempty"` // READ, COUNT, UPDATE, REMOVE, EMPTY
	OrderBy string        `json:"order_by,omitempty"`
	Desc    bool          `json:"desc,omitempty"`
	Limit   int           `json:"limit,omitempty" validate:"min=0"`

	// Graph
	From      *db.Node    `json:"from,omitempty"` // LINK, UNLINK
	To        *db.Node    `json:"to,omitempty"`   // LINK, UNLINK
	Hops      db.HopRange `json:"hops"`           // WALK
	Direction string      `json:"direction,omitempty" validate:"omitempty,oneof=out in both"`

	// Files
	Path string `json:"path,omitempty"` // SAVE, LOAD, exchange verbs

	// Text is a free-form description (BATCH, COMMIT)
	Text string `json:"text,omitempty"`

	// Requests holds the aliased request of ALIAS
	Requests []Request `json:"requests,omitempty" validate:"dive"`
}

// Failure is the structured form of an error crossing the surface.
type Failure struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Response is the answer to a single Request.
type Response struct {
	Ok     bool         `json:"ok"`
	Result *value.Value `json:"result,omitempty"` // Set on success if the verb returns data
	Error  *Failure     `json:"error,omitempty"`  // Set on failure
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewInsertRequest creates a new INSERT request
func NewInsertRequest(table string, fields value.Value) *Request {
	return &Request{Verb: VerbInsert, Table: table, Fields: &fields}
}

// NewReadRequest creates a new READ request
func NewReadRequest(table string, where *db.Condition) *Request {
	return &Request{Verb: VerbRead, Table: table, Where: where}
}

// NewUpdateRequest creates a new UPDATE request
func NewUpdateRequest(table string, where *db.Condition, patch value.Value) *Request {
	return &Request{Verb: VerbUpdate, Table: table, Where: where, Patch: &patch}
}

// NewLinkRequest creates a new LINK request
func NewLinkRequest(e db.Edge) *Request {
	return &Request{
		Verb:  VerbLink,
		From:  &db.Node{Table: e.FromTable, ID: e.FromID},
		Label: e.Label,
		To:    &db.Node{Table: e.ToTable, ID: e.ToID},
	}
}

// NewPutRequest creates a new PUT request
func NewPutRequest(key string, v value.Value) *Request {
	return &Request{Verb: VerbPut, Key: key, Value: &v}
}

// NewGetRequest creates a new GET request
func NewGetRequest(key string) *Request {
	return &Request{Verb: VerbGet, Key: key}
}

// NewAliasRequest creates a new ALIAS request storing req under name
func NewAliasRequest(name string, req Request) *Request {
	return &Request{Verb: VerbAlias, Name: name, Requests: []Request{req}}
}

// NewCallRequest creates a new CALL request
func NewCallRequest(name string) *Request {
	return &Request{Verb: VerbCall, Name: name}
}

// Edge returns the edge addressed by From, Label and To.
func (r *Request) Edge() (db.Edge, error) {
	if r.From == nil || r.To == nil {
		return db.Edge{}, errs.New(errs.InvalidArgument, "%s needs from and to", r.Verb)
	}
	return db.Edge{FromTable: r.From.Table, FromID: r.From.ID, Label: r.Label, ToTable: r.To.Table, ToID: r.To.ID}, nil
}

// NewSuccessResponse creates a successful response. A null result is
// omitted.
func NewSuccessResponse(result value.Value) *Response {
	resp := &Response{Ok: true}
	if !result.IsNull() {
		resp.Result = &result
	}
	return resp
}

// NewErrorResponse maps err to a failure response. Untyped errors become
// Internal.
func NewErrorResponse(err error) *Response {
	e := errs.As(err)
	f := &Failure{Kind: e.Code.String(), Message: e.Msg}
	if len(e.Details) > 0 {
		f.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			f.Details[k] = fmt.Sprint(v)
		}
	}
	return &Response{Error: f}
}

// Err returns the failure as an error, or nil for a successful response.
func (r *Response) Err() error {
	if r.Ok || r.Error == nil {
		return nil
	}
	return r.Error
}

// --------------------------------------------------------------------------
// Verb Definition
// --------------------------------------------------------------------------

// Verb names a request operation.
type Verb string

// String returns the verb name.
func (v Verb) String() string {
	return string(v)
}

const (
	// Tables

	VerbCreateTable Verb = "CREATE_TABLE"
	VerbDeleteTable Verb = "DELETE_TABLE"
	VerbInsert      Verb = "INSERT"
	VerbRead        Verb = "READ"
	VerbCount       Verb = "COUNT"
	VerbUpdate      Verb = "UPDATE"
	VerbRemove      Verb = "REMOVE"
	VerbEmpty       Verb = "EMPTY"
	VerbTables      Verb = "TABLES"
	VerbDescribe    Verb = "DESCRIBE"

	// Graph

	VerbLink   Verb = "LINK"
	VerbUnlink Verb = "UNLINK"
	VerbWalk   Verb = "WALK"
	VerbEdges  Verb = "EDGES"

	// KV

	VerbPut  Verb = "PUT"
	VerbGet  Verb = "GET"
	VerbDrop Verb = "DROP"
	VerbKeys Verb = "KEYS"

	// Versioning

	VerbUndo        Verb = "UNDO"
	VerbRedo        Verb = "REDO"
	VerbCheckpoint  Verb = "CHECKPOINT"
	VerbRollback    Verb = "ROLLBACK"
	VerbRelease     Verb = "RELEASE"
	VerbCheckpoints Verb = "CHECKPOINTS"
	VerbHistory     Verb = "HISTORY"

	// Persistence

	VerbSave Verb = "SAVE"
	VerbLoad Verb = "LOAD"
	VerbInfo Verb = "INFO"

	// Exchange

	VerbExportJSONL  Verb = "EXPORT_JSONL"
	VerbImportJSONL  Verb = "IMPORT_JSONL"
	VerbExportSQLite Verb = "EXPORT_SQLITE"
	VerbImportSQLite Verb = "IMPORT_SQLITE"

	// Control

	VerbBatch  Verb = "BATCH"
	VerbCommit Verb = "COMMIT"
	VerbAbort  Verb = "ABORT"
	VerbAlias  Verb = "ALIAS"
	VerbCall   Verb = "CALL"
)

// dataVerbs are the verbs that can run inside a store batch.
var dataVerbs = map[Verb]struct{}{
	VerbCreateTable: {}, VerbDeleteTable: {}, VerbInsert: {}, VerbRead: {}, VerbCount: {},
	VerbUpdate: {}, VerbRemove: {}, VerbEmpty: {}, VerbTables: {}, VerbDescribe: {},
	VerbLink: {}, VerbUnlink: {}, VerbWalk: {}, VerbEdges: {},
	VerbPut: {}, VerbGet: {}, VerbDrop: {}, VerbKeys: {},
}

// IsData reports whether v reads or writes data and may be queued in a
// batch.
func (v Verb) IsData() bool {
	_, ok := dataVerbs[v]
	return ok
}

// ParseVerb normalizes a verb name (case-insensitive).
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Verbs() {
		if v == known {
			return v, nil
		}
	}
	return "", errs.New(errs.InvalidArgument, "unknown verb %q", s)
}

// Verbs returns all verbs in lexical order.
func Verbs() []Verb {
	all := []Verb{
		VerbUndo, VerbRedo, VerbCheckpoint, VerbRollback, VerbRelease, VerbCheckpoints, VerbHistory,
		VerbSave, VerbLoad, VerbInfo,
		VerbExportJSONL, VerbImportJSONL, VerbExportSQLite, VerbImportSQLite,
		VerbBatch, VerbCommit, VerbAbort, VerbAlias, VerbCall,
	}
	for v := range dataVerbs {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}
