package testing

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

// RunStoreBenchmarks runs the benchmarks for an IStore implementation.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Insert", func(b *testing.B) {
			benchmarkInsert(b, factory())
		})

		b.Run("InsertUnique", func(b *testing.B) {
			benchmarkInsertUnique(b, factory())
		})

		b.Run("ReadWhere", func(b *testing.B) {
			benchmarkReadWhere(b, factory())
		})

		b.Run("Walk", func(b *testing.B) {
			benchmarkWalk(b, factory())
		})

		b.Run("PutGet", func(b *testing.B) {
			benchmarkPutGet(b, factory())
		})

		b.Run("SaveLoad", func(b *testing.B) {
			benchmarkSaveLoad(b, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func mustNoErr(b *testing.B, err error) {
	b.Helper()
	if err != nil {
		b.Fatal(err)
	}
}

func isDuplicate(err error) bool {
	return errs.Is(err, errs.DuplicateEdge)
}

func seedUsers(b *testing.B, st store.IStore, n int) {
	b.Helper()
	mustNoErr(b, st.CreateTable("users", usersSchema(), db.ModeStrict))
	mustNoErr(b, st.Batch("seed", func(tx store.Tx) error {
		for i := 0; i < n; i++ {
			if _, err := tx.Insert("users", Doc("name", fmt.Sprintf("user%d", i), "age", i%90)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func benchmarkInsert(b *testing.B, st store.IStore) {
	b.Cleanup(func() { _ = st.Close() })
	mustNoErr(b, st.CreateTable("users", usersSchema(), db.ModeStrict))
	row := Doc("name", "bench", "age", 30)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Insert("users", row); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkInsertUnique(b *testing.B, st store.IStore) {
	b.Cleanup(func() { _ = st.Close() })
	mustNoErr(b, st.CreateTable("users", usersSchema(), db.ModeStrict))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Insert("users", Doc("name", "bench", "email", fmt.Sprintf("%d@example.com", i))); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkReadWhere(b *testing.B, st store.IStore) {
	b.Cleanup(func() { _ = st.Close() })
	seedUsers(b, st, 5_000)
	opts := db.ReadOptions{Where: db.Where("age", db.OpGe, value.Int(80)), OrderBy: "name", Limit: 50}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Read("users", opts); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkWalk(b *testing.B, st store.IStore) {
	b.Cleanup(func() { _ = st.Close() })
	mustNoErr(b, st.CreateTable("n", db.Schema{}, db.ModeFlexible))

	const nodes = 1_000
	ids := make([]string, nodes)
	mustNoErr(b, st.Batch("graph", func(tx store.Tx) error {
		for i := range ids {
			id, err := tx.Insert("n", Doc("i", i))
			if err != nil {
				return err
			}
			ids[i] = id
		}
		for i := range ids {
			for _, j := range []int{(i + 1) % nodes, (i * 7) % nodes} {
				if j == i {
					continue
				}
				err := tx.Link(db.Edge{FromTable: "n", FromID: ids[i], Label: "to", ToTable: "n", ToID: ids[j]})
				if err != nil && !isDuplicate(err) {
					return err
				}
			}
		}
		return nil
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Walk("n", ids[i%nodes], "to", db.HopRange{Min: 1, Max: 4}, db.DirOut); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkPutGet(b *testing.B, st store.IStore) {
	b.Cleanup(func() { _ = st.Close() })
	v := Doc("payload", "some cached value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key:%d", i%1000)
		if err := st.Put(key, v); err != nil {
			b.Fatal(err)
		}
		if _, err := st.Get(key); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSaveLoad(b *testing.B, factory StoreFactory) {
	src := factory()
	b.Cleanup(func() { _ = src.Close() })
	seedUsers(b, src, 2_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := src.Save("bench/store.db"); err != nil {
			b.Fatal(err)
		}
		dst := factory()
		if err := dst.Load("bench/store.db"); err != nil {
			b.Fatal(err)
		}
		_ = dst.Close()
	}
}
