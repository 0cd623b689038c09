package server

import (
	"fmt"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/exchange"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/logging"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/common"
	"github.com/ValentinKolb/rsnDB/rpc/serializer"
)

var Logger = logging.GetLogger("rpc")

// Option configures a Server.
type Option func(*Server)

// WithExchange replaces the exchange adaptor (by default rooted at the
// configured data directory on the OS filesystem).
func WithExchange(a *exchange.Adaptor) Option {
	return func(s *Server) { s.exchange = a }
}

// WithSerializer replaces the serializer chosen by the configuration.
func WithSerializer(ser serializer.IRPCSerializer) Option {
	return func(s *Server) { s.serializer = ser }
}

// Server dispatches requests to a store. It owns the batch queue and the
// alias registry of one session.
//
// Usage:
//
//	srv, err := server.NewServer(common.DefaultServerConfig(), st)
//	if err != nil {
//		panic(err)
//	}
//	resp := srv.Handle(common.NewGetRequest("k"))
//
// Thread-safety: all methods are safe for concurrent use. Requests are
// handled one at a time.
type Server struct {
	mu         sync.Mutex
	config     common.ServerConfig
	store      store.IStore
	serializer serializer.IRPCSerializer
	exchange   *exchange.Adaptor
	adapters   map[common.Verb]IRPCServerAdapter
	aliases    *xsync.MapOf[string, common.Request]

	// open batch
	batching  bool
	batchText string
	queue     []common.Request
}

// NewServer creates a dispatcher for st.
func NewServer(config common.ServerConfig, st store.IStore, opts ...Option) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errs.New(errs.InvalidArgument, "server: store is nil")
	}

	s := &Server{
		config:  config,
		store:   st,
		aliases: xsync.NewMapOf[string, common.Request](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.serializer == nil {
		ser, err := serializer.ByName(config.Serializer)
		if err != nil {
			return nil, err
		}
		s.serializer = ser
	}
	if s.exchange == nil {
		s.exchange = exchange.New(config.DataDir)
	}

	s.adapters = make(map[common.Verb]IRPCServerAdapter)
	for _, adapter := range []IRPCServerAdapter{
		NewTableServerAdapter(),
		NewGraphServerAdapter(),
		NewKVServerAdapter(),
		NewIStoreServerAdapter(),
		NewExchangeServerAdapter(s.exchange),
	} {
		for _, verb := range adapter.Verbs() {
			s.adapters[verb] = adapter
		}
	}

	Logger.Debugf("created dispatcher%s", config.String())
	return s, nil
}

// --------------------------------------------------------------------------
// Entry points
// --------------------------------------------------------------------------

// Handle runs a single request and never panics on bad input; every
// failure is reported in the response.
func (s *Server) Handle(req *common.Request) *common.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req == nil {
		return common.NewErrorResponse(errs.New(errs.InvalidArgument, "empty request"))
	}
	result, err := s.handle(*req, 0)
	if err != nil {
		Logger.Debugw("request failed", "verb", req.Verb, "code", errs.CodeOf(err).String(), "err", err)
		return common.NewErrorResponse(err)
	}
	return common.NewSuccessResponse(result)
}

// HandleText decodes a serialized request, runs it and returns the
// serialized response. Requests longer than MaxCommandBytes are rejected
// before decoding.
func (s *Server) HandleText(text []byte) []byte {
	var resp *common.Response
	if err := guard.CheckCommand(string(text)); err != nil {
		resp = common.NewErrorResponse(err)
	} else {
		var req common.Request
		if err := s.serializer.DeserializeRequest(text, &req); err != nil {
			resp = common.NewErrorResponse(errs.Wrap(errs.InvalidArgument, err, "failed to deserialize request"))
		} else {
			resp = s.Handle(&req)
		}
	}

	out, err := s.serializer.SerializeResponse(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		out, _ = s.serializer.SerializeResponse(*common.NewErrorResponse(
			errs.Wrap(errs.Internal, err, "failed to serialize response")))
	}
	return out
}

// Batching reports whether a batch is open and how many requests it holds.
func (s *Server) Batching() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batching, len(s.queue)
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// handle dispatches one request. depth counts CALL expansions.
func (s *Server) handle(req common.Request, depth int) (value.Value, error) {
	verb, err := common.ParseVerb(string(req.Verb))
	if err != nil {
		return value.Value{}, err
	}
	req.Verb = verb
	if err := guard.Struct(&req); err != nil {
		return value.Value{}, err
	}
	if err := checkIngest(&req); err != nil {
		return value.Value{}, err
	}

	switch verb {
	case common.VerbBatch:
		return s.openBatch(&req)
	case common.VerbCommit:
		return s.commit(&req)
	case common.VerbAbort:
		return s.abort()
	case common.VerbAlias:
		return s.alias(&req)
	case common.VerbCall:
		return s.call(&req, depth)
	}

	if s.batching {
		return s.enqueue(req)
	}

	adapter, ok := s.adapters[verb]
	if !ok {
		return value.Value{}, errs.New(errs.InvalidArgument, "no adapter for verb %s", verb)
	}
	return adapter.Handle(&req, s.store)
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

func (s *Server) openBatch(req *common.Request) (value.Value, error) {
	if s.batching {
		return value.Value{}, errs.New(errs.InvalidArgument, "a batch is already open")
	}
	s.batching = true
	s.batchText = req.Text
	s.queue = s.queue[:0]
	return value.Null(), nil
}

func (s *Server) enqueue(req common.Request) (value.Value, error) {
	if !req.Verb.IsData() {
		return value.Value{}, errs.New(errs.InvalidArgument, "%s is not allowed inside a batch", req.Verb).
			With("verb", req.Verb.String())
	}
	if err := guard.CheckBatch(len(s.queue)+1, s.config.MaxBatchOps); err != nil {
		return value.Value{}, err
	}
	s.queue = append(s.queue, req)
	return value.Int(int64(len(s.queue))), nil
}

// commit runs the queue inside one store batch. Either every request
// succeeds and their results are returned in order, or nothing changes.
func (s *Server) commit(req *common.Request) (value.Value, error) {
	if !s.batching {
		return value.Value{}, errs.New(errs.InvalidArgument, "no batch is open")
	}
	queue := s.queue
	desc := req.Text
	if desc == "" {
		desc = s.batchText
	}
	if desc == "" {
		desc = fmt.Sprintf("batch of %d", len(queue))
	}
	s.batching, s.batchText, s.queue = false, "", nil

	results := make([]value.Value, 0, len(queue))
	err := s.store.Batch(desc, func(tx store.Tx) error {
		for i := range queue {
			adapter, ok := s.adapters[queue[i].Verb].(iTxAdapter)
			if !ok {
				return errs.New(errs.InvalidArgument, "%s cannot run inside a batch", queue[i].Verb)
			}
			result, err := adapter.HandleTx(&queue[i], tx)
			if err != nil {
				return errs.As(err).With("op", i).With("verb", queue[i].Verb.String())
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return value.Value{}, err
	}
	Logger.Debugw("batch committed", "ops", len(queue), "desc", desc)
	return value.Array(results...), nil
}

func (s *Server) abort() (value.Value, error) {
	if !s.batching {
		return value.Value{}, errs.New(errs.InvalidArgument, "no batch is open")
	}
	n := len(s.queue)
	s.batching, s.batchText, s.queue = false, "", nil
	return value.Int(int64(n)), nil
}

// --------------------------------------------------------------------------
// Aliases
// --------------------------------------------------------------------------

func (s *Server) alias(req *common.Request) (value.Value, error) {
	if err := guard.Identifier("alias", req.Name); err != nil {
		return value.Value{}, err
	}
	if len(req.Requests) != 1 {
		return value.Value{}, errs.New(errs.InvalidArgument, "ALIAS needs exactly one request, got %d", len(req.Requests))
	}
	if _, err := common.ParseVerb(string(req.Requests[0].Verb)); err != nil {
		return value.Value{}, err
	}
	s.aliases.Store(req.Name, req.Requests[0])
	return value.Null(), nil
}

// call expands an alias. Chains of CALL aliases count towards the depth
// limit, so cycles fail instead of looping.
func (s *Server) call(req *common.Request, depth int) (value.Value, error) {
	depth++
	if err := guard.CheckDepth(depth, s.config.MaxAliasDepth); err != nil {
		return value.Value{}, errs.As(err).With("alias", req.Name)
	}
	target, ok := s.aliases.Load(req.Name)
	if !ok {
		return value.Value{}, errs.New(errs.InvalidArgument, "unknown alias %q", req.Name).With("alias", req.Name)
	}
	return s.handle(target, depth)
}

// Aliases returns the registered alias names.
func (s *Server) Aliases() []string {
	var names []string
	s.aliases.Range(func(name string, _ common.Request) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
