// Package testing provides the conformance tests and benchmarks every
// store.IStore implementation must pass.
//
// The package contains:
//   - testing: the behavioural contract (schemas, conditions, cascades,
//     walks, undo/redo, checkpoints, batches, save/load, path safety)
//   - benchmark: throughput of inserts, filtered reads, walks, KV access
//     and persistence
//
// Example usage:
//
//	fs := afero.NewMemMapFs()
//	factory := func() store.IStore {
//		cfg := lstore.DefaultConfig()
//		cfg.DataDir = "/data"
//		st, _ := lstore.New(cfg, lstore.WithFs(fs))
//		return st
//	}
//
//	testing.RunStoreTests(t, "lstore", factory)
//	testing.RunStoreBenchmarks(b, "lstore", factory)
package testing
