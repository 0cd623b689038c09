package lstore

import (
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/db/util"
	"github.com/ValentinKolb/rsnDB/lib/store"
)

// Info reports the session, table sizes, graph and cache sizes, the
// history position and how rows are distributed.
func (s *Store) Info() (info store.Info, err error) {
	err = s.control("info", func() error {
		st := s.ctl.Current()
		si := st.Info()

		info = store.Info{
			Session:     s.id.String(),
			Rows:        si.Rows,
			Edges:       si.Edges,
			KVEntries:   si.KVEntries,
			Snapshots:   s.ctl.Len(),
			Cursor:      s.ctl.Cursor(),
			Checkpoints: s.ctl.Checkpoints(),
		}

		perTable := make([]float64, 0, si.Tables)
		sizes := util.NewSizeHistogram()
		for _, name := range st.Tables() {
			ti, err := st.Describe(name)
			if err != nil {
				return err
			}
			info.Tables = append(info.Tables, ti)
			perTable = append(perTable, float64(ti.Rows))

			rows, err := st.Read(name, db.ReadOptions{})
			if err != nil {
				return err
			}
			for _, r := range rows {
				sizes.AddSample(len(r.Fields.String()))
			}
		}
		info.RowDistribution = util.NewDistributionStats(perTable)
		info.RowSizes = sizes.Summary()
		return nil
	})
	return
}
