package version

import (
	"sort"
	"time"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Kind classifies a history entry.
type Kind string

const (
	KindMutation   Kind = "mutation"
	KindCheckpoint Kind = "checkpoint"
	KindUndo       Kind = "undo"
	KindRedo       Kind = "redo"
	KindRollback   Kind = "rollback"
	KindRelease    Kind = "release"
	KindLoad       Kind = "load"
)

// Entry is one line of the history log. The log is append-only; entries
// whose snapshot was later discarded by branch-on-write are only marked.
type Entry struct {
	Seq       uint64    `json:"seq"`
	At        time.Time `json:"at"`
	Kind      Kind      `json:"kind"`
	Op        string    `json:"op"`
	Snapshot  uint64    `json:"snapshot"` // sequence of the snapshot current after the event
	Discarded bool      `json:"discarded,omitempty"`
}

// CheckpointInfo describes a named checkpoint.
type CheckpointInfo struct {
	Name     string    `json:"name"`
	Snapshot uint64    `json:"snapshot"`
	At       time.Time `json:"at"`
	Attached bool      `json:"attached"` // the snapshot is still part of the undo history
}

type snapshot[S any] struct {
	seq   uint64
	state S
}

type checkpoint[S any] struct {
	name  string
	seq   uint64
	at    time.Time
	state S
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	maxSnapshots int
	clock        func() time.Time
}

// WithMaxSnapshots bounds the number of retained snapshots (0 = unbounded).
// When exceeded the oldest snapshots are dropped; checkpoints keep their
// state regardless.
func WithMaxSnapshots(n int) Option {
	return func(o *options) { o.maxSnapshots = n }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(fn func() time.Time) Option {
	return func(o *options) { o.clock = fn }
}

// --------------------------------------------------------------------------
// Controller
// --------------------------------------------------------------------------

// Controller keeps a linear history of immutable states with a cursor.
//
// Thread-safety: not safe for concurrent use; the owning store serializes
// access.
type Controller[S any] struct {
	opts        options
	snaps       []snapshot[S]
	cursor      int
	nextSeq     uint64
	checkpoints map[string]*checkpoint[S]
	log         []Entry
	logSeq      uint64
	bySnapshot  map[uint64]int // snapshot seq -> index of its mutation entry in log
}

// New creates a controller whose history holds just the initial state.
func New[S any](initial S, opts ...Option) *Controller[S] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Controller[S]{
		opts:        o,
		checkpoints: make(map[string]*checkpoint[S]),
		bySnapshot:  make(map[uint64]int),
	}
	c.snaps = []snapshot[S]{{seq: c.issue(), state: initial}}
	return c
}

func (c *Controller[S]) issue() uint64 {
	c.nextSeq++
	return c.nextSeq
}

func (c *Controller[S]) record(kind Kind, op string) {
	c.logSeq++
	c.log = append(c.log, Entry{
		Seq:      c.logSeq,
		At:       c.opts.clock(),
		Kind:     kind,
		Op:       op,
		Snapshot: c.snaps[c.cursor].seq,
	})
}

// Current returns the state at the cursor.
func (c *Controller[S]) Current() S {
	return c.snaps[c.cursor].state
}

// CurrentSeq returns the sequence number of the current snapshot.
func (c *Controller[S]) CurrentSeq() uint64 {
	return c.snaps[c.cursor].seq
}

// Cursor returns the index of the current snapshot within the history.
func (c *Controller[S]) Cursor() int {
	return c.cursor
}

// Len returns the number of retained snapshots.
func (c *Controller[S]) Len() int {
	return len(c.snaps)
}

// CanUndo reports whether Undo would move the cursor.
func (c *Controller[S]) CanUndo() bool { return c.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (c *Controller[S]) CanRedo() bool { return c.cursor < len(c.snaps)-1 }

// Commit records next as the result of op. Snapshots after the cursor are
// discarded (branch-on-write) and their log entries marked.
func (c *Controller[S]) Commit(op string, next S) uint64 {
	c.truncate()
	seq := c.issue()
	c.snaps = append(c.snaps, snapshot[S]{seq: seq, state: next})
	c.cursor = len(c.snaps) - 1
	c.record(KindMutation, op)
	c.bySnapshot[seq] = len(c.log) - 1
	c.trim()
	return seq
}

// truncate drops the redo tail.
func (c *Controller[S]) truncate() {
	for _, s := range c.snaps[c.cursor+1:] {
		if idx, ok := c.bySnapshot[s.seq]; ok {
			c.log[idx].Discarded = true
			delete(c.bySnapshot, s.seq)
		}
	}
	var zero snapshot[S]
	for i := c.cursor + 1; i < len(c.snaps); i++ {
		c.snaps[i] = zero
	}
	c.snaps = c.snaps[:c.cursor+1]
}

// trim enforces the snapshot bound by dropping the oldest entries.
func (c *Controller[S]) trim() {
	max := c.opts.maxSnapshots
	if max <= 0 || len(c.snaps) <= max {
		return
	}
	drop := len(c.snaps) - max
	for _, s := range c.snaps[:drop] {
		delete(c.bySnapshot, s.seq)
	}
	kept := make([]snapshot[S], max)
	copy(kept, c.snaps[drop:])
	c.snaps = kept
	c.cursor -= drop
	if c.cursor < 0 {
		c.cursor = 0
	}
}

// Undo moves the cursor back one snapshot. It returns false when already
// at the oldest retained snapshot.
func (c *Controller[S]) Undo() bool {
	if !c.CanUndo() {
		return false
	}
	c.cursor--
	c.record(KindUndo, "undo")
	return true
}

// Redo moves the cursor forward one snapshot if one exists.
func (c *Controller[S]) Redo() bool {
	if !c.CanRedo() {
		return false
	}
	c.cursor++
	c.record(KindRedo, "redo")
	return true
}

// Checkpoint names the current snapshot without moving the cursor.
func (c *Controller[S]) Checkpoint(name string) (CheckpointInfo, error) {
	if name == "" {
		return CheckpointInfo{}, errs.New(errs.InvalidArgument, "empty checkpoint name")
	}
	if _, exists := c.checkpoints[name]; exists {
		return CheckpointInfo{}, errs.New(errs.DuplicateCheckpoint, "checkpoint %q already exists", name).
			With("checkpoint", name)
	}
	cp := &checkpoint[S]{
		name:  name,
		seq:   c.snaps[c.cursor].seq,
		at:    c.opts.clock(),
		state: c.snaps[c.cursor].state,
	}
	c.checkpoints[name] = cp
	c.record(KindCheckpoint, "checkpoint "+name)
	return c.info(cp), nil
}

// RollbackTo makes the checkpoint's state current. If its snapshot is still
// in the history the cursor simply moves there (later snapshots stay
// reachable by Redo until the next Commit); otherwise the checkpoint state
// is appended as a new snapshot.
func (c *Controller[S]) RollbackTo(name string) error {
	cp, ok := c.checkpoints[name]
	if !ok {
		return errs.New(errs.UnknownCheckpoint, "checkpoint %q does not exist", name).With("checkpoint", name)
	}
	if pos, found := c.position(cp.seq); found {
		c.cursor = pos
		c.record(KindRollback, "rollback to "+name)
		return nil
	}

	c.truncate()
	seq := c.issue()
	c.snaps = append(c.snaps, snapshot[S]{seq: seq, state: cp.state})
	c.cursor = len(c.snaps) - 1
	c.record(KindRollback, "rollback to "+name)
	c.bySnapshot[seq] = len(c.log) - 1
	c.trim()
	return nil
}

// Release forgets a checkpoint.
func (c *Controller[S]) Release(name string) error {
	if _, ok := c.checkpoints[name]; !ok {
		return errs.New(errs.UnknownCheckpoint, "checkpoint %q does not exist", name).With("checkpoint", name)
	}
	delete(c.checkpoints, name)
	c.record(KindRelease, "release "+name)
	return nil
}

// position finds a snapshot by sequence. Sequences increase along the
// history, so a binary search suffices.
func (c *Controller[S]) position(seq uint64) (int, bool) {
	i := sort.Search(len(c.snaps), func(i int) bool { return c.snaps[i].seq >= seq })
	if i < len(c.snaps) && c.snaps[i].seq == seq {
		return i, true
	}
	return 0, false
}

func (c *Controller[S]) info(cp *checkpoint[S]) CheckpointInfo {
	_, attached := c.position(cp.seq)
	return CheckpointInfo{Name: cp.name, Snapshot: cp.seq, At: cp.at, Attached: attached}
}

// Checkpoints lists the live checkpoints ordered by snapshot, then name.
func (c *Controller[S]) Checkpoints() []CheckpointInfo {
	out := make([]CheckpointInfo, 0, len(c.checkpoints))
	for _, cp := range c.checkpoints {
		out = append(out, c.info(cp))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Snapshot != out[j].Snapshot {
			return out[i].Snapshot < out[j].Snapshot
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CheckpointState returns the state captured by a checkpoint.
func (c *Controller[S]) CheckpointState(name string) (S, bool) {
	cp, ok := c.checkpoints[name]
	if !ok {
		var zero S
		return zero, false
	}
	return cp.state, true
}

// History returns a copy of the log, oldest first.
func (c *Controller[S]) History() []Entry {
	out := make([]Entry, len(c.log))
	copy(out, c.log)
	return out
}

// Reset replaces the whole history with a single snapshot of state and
// drops every checkpoint. The log keeps growing.
func (c *Controller[S]) Reset(state S, op string) {
	for _, s := range c.snaps {
		delete(c.bySnapshot, s.seq)
	}
	c.snaps = []snapshot[S]{{seq: c.issue(), state: state}}
	c.cursor = 0
	c.checkpoints = make(map[string]*checkpoint[S])
	c.record(KindLoad, op)
}

// Restore re-creates a checkpoint captured elsewhere (e.g. read from disk).
// Its snapshot is not part of the history, so rolling back appends it.
func (c *Controller[S]) Restore(name string, at time.Time, state S) error {
	if _, exists := c.checkpoints[name]; exists {
		return errs.New(errs.DuplicateCheckpoint, "checkpoint %q already exists", name).With("checkpoint", name)
	}
	c.checkpoints[name] = &checkpoint[S]{name: name, seq: 0, at: at, state: state}
	return nil
}
