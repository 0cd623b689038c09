package lstore

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/persist"
)

// --------------------------------------------------------------------------
// Interface Methods: Persistence
// --------------------------------------------------------------------------

// Save writes the current state and every checkpoint (with the state it
// captured) to path inside the data directory.
func (s *Store) Save(path string) (n int64, err error) {
	err = s.control("save", func() error {
		target, err := s.resolve(path)
		if err != nil {
			return err
		}
		defer s.timePersist("save", time.Now())

		doc := &persist.Document{
			Format:  persist.DocumentFormat,
			SavedAt: time.Now().UTC(),
			Session: s.id.String(),
			State:   s.ctl.Current().Dump(),
		}
		for _, cp := range s.ctl.Checkpoints() {
			st, _ := s.ctl.CheckpointState(cp.Name)
			doc.Checkpoints = append(doc.Checkpoints, persist.CheckpointDump{
				Name:      cp.Name,
				Seq:       int64(cp.Snapshot),
				CreatedAt: cp.At,
				State:     st.Dump(),
			})
		}

		if n, err = s.codec.Save(target, doc); err != nil {
			return err
		}
		s.log.Infow("store saved", "path", target, "bytes", n, "checkpoints", len(doc.Checkpoints))
		return nil
	})
	return
}

// Load replaces the state with the contents of path. The file is decoded
// and fully validated before anything changes; on failure the engine keeps
// its current state and history.
func (s *Store) Load(path string) error {
	return s.control("load", func() error {
		target, err := s.resolve(path)
		if err != nil {
			return err
		}
		defer s.timePersist("load", time.Now())

		st, cps, err := s.decode(target)
		if err != nil {
			return err
		}

		s.ctl.Reset(st, "load "+path)
		for _, cp := range cps {
			if err := s.ctl.Restore(cp.name, cp.at, cp.state); err != nil {
				return errs.Wrap(errs.Internal, err, "restore checkpoint")
			}
		}
		s.log.Infow("store loaded", "path", target, "checkpoints", len(cps))
		return nil
	})
}

// Verify decodes and validates path without touching the engine. It
// returns the file header.
func (s *Store) Verify(path string) (h persist.Header, err error) {
	err = s.control("verify", func() error {
		target, err := s.resolve(path)
		if err != nil {
			return err
		}
		if h, err = s.codec.Inspect(target); err != nil {
			return err
		}
		_, _, err = s.decode(target)
		return err
	})
	return
}

// Exists reports whether path exists inside the data directory.
func (s *Store) Exists(path string) (ok bool, err error) {
	err = s.control("exists", func() error {
		target, err := s.resolve(path)
		if err != nil {
			return err
		}
		ok = s.codec.Exists(target)
		return nil
	})
	return
}

type loadedCheckpoint struct {
	name  string
	at    time.Time
	state *db.State
}

// decode reads path and rebuilds the state and checkpoint states.
func (s *Store) decode(target string) (*db.State, []loadedCheckpoint, error) {
	doc, err := s.codec.Load(target)
	if err != nil {
		return nil, nil, err
	}
	st, err := db.FromDump(doc.State, s.cfg.RecursionLimit)
	if err != nil {
		return nil, nil, errs.As(err).With("section", "state")
	}

	cps := make([]loadedCheckpoint, 0, len(doc.Checkpoints))
	seen := make(map[string]struct{}, len(doc.Checkpoints))
	for _, cp := range doc.Checkpoints {
		if cp.Name == "" {
			return nil, nil, errs.New(errs.InvalidArgument, "checkpoint without name in file")
		}
		if _, dup := seen[cp.Name]; dup {
			return nil, nil, errs.New(errs.DuplicateCheckpoint, "checkpoint %q appears twice in file", cp.Name).
				With("checkpoint", cp.Name)
		}
		seen[cp.Name] = struct{}{}

		cst, err := db.FromDump(cp.State, s.cfg.RecursionLimit)
		if err != nil {
			return nil, nil, errs.As(err).With("section", fmt.Sprintf("checkpoint %s", cp.Name))
		}
		cps = append(cps, loadedCheckpoint{name: cp.Name, at: cp.CreatedAt, state: cst})
	}
	return st, cps, nil
}

func (s *Store) timePersist(op string, start time.Time) {
	s.set.GetOrCreateHistogram(fmt.Sprintf(`rsndb_persist_duration_seconds{op=%q}`, op)).UpdateDuration(start)
}
