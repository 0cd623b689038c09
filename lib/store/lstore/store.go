package lstore

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/logging"
	"github.com/ValentinKolb/rsnDB/lib/persist"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/lib/version"
)

// Store is the local engine. It owns one immutable db.State per snapshot,
// the version controller over them and the persistence codec.
//
// Thread-safety: every method takes the same mutex, reads included, so a
// Store may be shared between goroutines. Batch functions must not call
// back into the Store.
type Store struct {
	mu     sync.Mutex
	cfg    Config
	id     uuid.UUID
	ctl    *version.Controller[*db.State]
	codec  *persist.Codec
	set    *metrics.Set
	log    *zap.SugaredLogger
	closed bool
}

var _ store.IStore = (*Store)(nil)

// Option configures optional dependencies of a Store.
type Option func(*options)

type options struct {
	fs    afero.Fs
	clock func() time.Time
}

// WithFs replaces the OS filesystem used by Save and Load.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithClock replaces time.Now for history and checkpoint timestamps.
func WithClock(fn func() time.Time) Option {
	return func(o *options) { o.clock = fn }
}

// New creates an empty engine.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{fs: afero.NewOsFs(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	s := &Store{
		cfg: cfg,
		id:  id,
		ctl: version.New(db.New(cfg.RecursionLimit),
			version.WithMaxSnapshots(cfg.MaxSnapshots),
			version.WithClock(o.clock),
		),
		codec: &persist.Codec{
			Fs:         o.fs,
			Passphrase: cfg.Passphrase,
			Compress:   cfg.Compress,
			Level:      cfg.CompressionLevel,
		},
		set: metrics.NewSet(),
		log: logging.GetLogger("store").With("session", id.String()),
	}
	s.set.NewGauge("rsndb_snapshots", func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return float64(s.ctl.Len())
	})
	s.log.Debugf("engine created\n%s", cfg)
	return s, nil
}

// NewStore is New for callers that only need the interface.
func NewStore(cfg Config, opts ...Option) (store.IStore, error) {
	return New(cfg, opts...)
}

// Session returns the id of this engine instance.
func (s *Store) Session() string {
	return s.id.String()
}

// WriteMetrics writes the engine metrics in Prometheus text format.
func (s *Store) WriteMetrics(w io.Writer) {
	s.set.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Execution Helpers
// --------------------------------------------------------------------------

func (s *Store) usable() error {
	if s.closed {
		return errs.New(errs.InvalidArgument, "store is closed")
	}
	return nil
}

// observe counts op and its failure code.
func (s *Store) observe(op string, err error) error {
	s.set.GetOrCreateCounter(fmt.Sprintf(`rsndb_ops_total{op=%q}`, op)).Inc()
	if err != nil {
		code := errs.CodeOf(err)
		s.set.GetOrCreateCounter(fmt.Sprintf(`rsndb_op_errors_total{code=%q}`, code.String())).Inc()
		s.log.Debugw("operation failed", "op", op, "code", code.String(), "error", err)
	}
	return err
}

// read runs fn on the current state.
func (s *Store) read(op string, fn func(tx *txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return s.observe(op, err)
	}
	return s.observe(op, fn(&txn{st: s.ctl.Current()}))
}

// write runs fn on a working copy and commits the result as one snapshot
// if fn succeeds and changed anything.
func (s *Store) write(op, desc string, fn func(tx *txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return s.observe(op, err)
	}

	cur := s.ctl.Current()
	tx := &txn{st: cur}
	if err := fn(tx); err != nil {
		return s.observe(op, err)
	}
	if tx.st != cur {
		seq := s.ctl.Commit(desc, tx.st)
		s.log.Debugw("commit", "op", desc, "snapshot", seq)
	}
	return s.observe(op, nil)
}

// control runs fn for operations on the history itself.
func (s *Store) control(op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return s.observe(op, err)
	}
	return s.observe(op, fn())
}

// resolve maps a user supplied path into the data directory.
func (s *Store) resolve(p string) (string, error) {
	clean, err := guard.SafePath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.cfg.DataDir, filepath.FromSlash(clean)), nil
}

// --------------------------------------------------------------------------
// Interface Methods: Reader (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Tables() (names []string, err error) {
	err = s.read("tables", func(tx *txn) (e error) {
		names, e = tx.Tables()
		return
	})
	return
}

func (s *Store) Describe(table string) (info db.TableInfo, err error) {
	err = s.read("describe", func(tx *txn) (e error) {
		info, e = tx.Describe(table)
		return
	})
	return
}

func (s *Store) Read(table string, opts db.ReadOptions) (rows []db.Row, err error) {
	err = s.read("read", func(tx *txn) (e error) {
		rows, e = tx.Read(table, opts)
		return
	})
	return
}

func (s *Store) Row(table, id string) (row db.Row, err error) {
	err = s.read("row", func(tx *txn) (e error) {
		row, e = tx.Row(table, id)
		return
	})
	return
}

func (s *Store) Count(table string, cond *db.Condition) (n int, err error) {
	err = s.read("count", func(tx *txn) (e error) {
		n, e = tx.Count(table, cond)
		return
	})
	return
}

func (s *Store) Walk(table, id, label string, hops db.HopRange, dir db.Direction) (out []db.Reached, err error) {
	err = s.read("walk", func(tx *txn) (e error) {
		out, e = tx.Walk(table, id, label, hops, dir)
		return
	})
	return
}

func (s *Store) Edges(table, id string) (out []db.Edge, err error) {
	err = s.read("edges", func(tx *txn) (e error) {
		out, e = tx.Edges(table, id)
		return
	})
	return
}

func (s *Store) Get(key string) (v value.Value, err error) {
	err = s.read("get", func(tx *txn) (e error) {
		v, e = tx.Get(key)
		return
	})
	return
}

func (s *Store) Keys(prefix string) (keys []string, err error) {
	err = s.read("keys", func(tx *txn) (e error) {
		keys, e = tx.Keys(prefix)
		return
	})
	return
}

// --------------------------------------------------------------------------
// Interface Methods: Writer
// --------------------------------------------------------------------------

func (s *Store) CreateTable(name string, schema db.Schema, mode db.Mode) error {
	return s.write("create_table", "create table "+name, func(tx *txn) error {
		return tx.CreateTable(name, schema, mode)
	})
}

func (s *Store) DeleteTable(name string) (rows, edges int, err error) {
	err = s.write("delete_table", "delete table "+name, func(tx *txn) (e error) {
		rows, edges, e = tx.DeleteTable(name)
		return
	})
	return
}

func (s *Store) Insert(table string, fields value.Value) (id string, err error) {
	err = s.write("insert", "insert into "+table, func(tx *txn) (e error) {
		id, e = tx.Insert(table, fields)
		return
	})
	return
}

func (s *Store) Update(table string, cond *db.Condition, patch value.Value) (n int, err error) {
	err = s.write("update", "update "+table, func(tx *txn) (e error) {
		n, e = tx.Update(table, cond, patch)
		return
	})
	return
}

func (s *Store) Remove(table string, cond *db.Condition) (rows, edges int, err error) {
	err = s.write("remove", "remove from "+table, func(tx *txn) (e error) {
		rows, edges, e = tx.Remove(table, cond)
		return
	})
	return
}

func (s *Store) Empty(table string, cond *db.Condition) (n int, err error) {
	err = s.write("empty", "empty "+table, func(tx *txn) (e error) {
		n, e = tx.Empty(table, cond)
		return
	})
	return
}

func (s *Store) Link(e db.Edge) error {
	return s.write("link", "link "+e.String(), func(tx *txn) error {
		return tx.Link(e)
	})
}

func (s *Store) Unlink(e db.Edge) error {
	return s.write("unlink", "unlink "+e.String(), func(tx *txn) error {
		return tx.Unlink(e)
	})
}

func (s *Store) Put(key string, v value.Value) error {
	return s.write("put", "put "+key, func(tx *txn) error {
		return tx.Put(key, v)
	})
}

func (s *Store) Drop(key string) error {
	return s.write("drop", "drop "+key, func(tx *txn) error {
		return tx.Drop(key)
	})
}

// Batch runs fn against one working copy and commits once. A failing fn
// leaves no trace: no snapshot, no partial change.
func (s *Store) Batch(desc string, fn func(tx store.Tx) error) error {
	if desc == "" {
		desc = "batch"
	}
	return s.write("batch", desc, func(tx *txn) error {
		return fn(tx)
	})
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close marks the engine as closed. Later calls fail with InvalidArgument.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.New(errs.InvalidArgument, "store is already closed")
	}
	s.closed = true
	s.log.Debug("engine closed")
	return nil
}
