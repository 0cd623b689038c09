package lstore

import (
	"github.com/ValentinKolb/rsnDB/lib/version"
)

// --------------------------------------------------------------------------
// Interface Methods: Versioning
// --------------------------------------------------------------------------

func (s *Store) Undo() (moved bool, err error) {
	err = s.control("undo", func() error {
		moved = s.ctl.Undo()
		return nil
	})
	return
}

func (s *Store) Redo() (moved bool, err error) {
	err = s.control("redo", func() error {
		moved = s.ctl.Redo()
		return nil
	})
	return
}

func (s *Store) Checkpoint(name string) (info version.CheckpointInfo, err error) {
	err = s.control("checkpoint", func() (e error) {
		if info, e = s.ctl.Checkpoint(name); e == nil {
			s.log.Infow("checkpoint created", "checkpoint", name, "snapshot", info.Snapshot)
		}
		return
	})
	return
}

func (s *Store) RollbackTo(name string) error {
	return s.control("rollback", func() error {
		if err := s.ctl.RollbackTo(name); err != nil {
			return err
		}
		s.log.Infow("rolled back", "checkpoint", name, "snapshot", s.ctl.CurrentSeq())
		return nil
	})
}

func (s *Store) ReleaseCheckpoint(name string) error {
	return s.control("release", func() error {
		return s.ctl.Release(name)
	})
}

func (s *Store) Checkpoints() (out []version.CheckpointInfo, err error) {
	err = s.control("checkpoints", func() error {
		out = s.ctl.Checkpoints()
		return nil
	})
	return
}

func (s *Store) History() (out []version.Entry, err error) {
	err = s.control("history", func() error {
		out = s.ctl.History()
		return nil
	})
	return
}
