package lstore

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store"
	storetesting "github.com/ValentinKolb/rsnDB/lib/store/testing"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

func memFactory(cfg Config) (storetesting.StoreFactory, afero.Fs) {
	fs := afero.NewMemMapFs()
	return func() store.IStore {
		st, err := New(cfg, WithFs(fs))
		if err != nil {
			panic(err)
		}
		return st
	}, fs
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"
	return cfg
}

func TestLocalStore(t *testing.T) {
	factory, _ := memFactory(testConfig())
	storetesting.RunStoreTests(t, "lstore", factory)

	cfg := testConfig()
	cfg.Passphrase = "correct horse"
	cfg.CompressionLevel = "best"
	encrypted, _ := memFactory(cfg)
	storetesting.RunStoreTests(t, "lstore-encrypted", encrypted)
}

func BenchmarkLocalStore(b *testing.B) {
	factory, _ := memFactory(testConfig())
	storetesting.RunStoreBenchmarks(b, "lstore", factory)
}

func TestConfig(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.RecursionLimit = 65
	assert.True(t, errs.Is(cfg.Validate(), errs.InvalidArgument))

	cfg = DefaultConfig()
	cfg.CompressionLevel = "ultra"
	assert.True(t, errs.Is(cfg.Validate(), errs.InvalidArgument))

	cfg = DefaultConfig()
	cfg.DataDir = ""
	_, err := New(cfg)
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	cfg = DefaultConfig()
	cfg.Passphrase = "hunter2"
	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "ENGINE")
	assert.Contains(t, out, "enabled")
}

func TestEncryptedFileNeedsPassphrase(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig()
	cfg.Passphrase = "secret"
	src, err := New(cfg, WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, src.Put("k", value.String("v")))
	_, err = src.Save("enc.db")
	require.NoError(t, err)

	plain, err := New(testConfig(), WithFs(fs))
	require.NoError(t, err)
	assert.True(t, errs.Is(plain.Load("enc.db"), errs.DecryptionFailed))

	cfg.Passphrase = "wrong"
	wrong, err := New(cfg, WithFs(fs))
	require.NoError(t, err)
	assert.True(t, errs.Is(wrong.Load("enc.db"), errs.AuthenticationFailed))

	h, err := src.Verify("enc.db")
	require.NoError(t, err)
	assert.True(t, h.Encrypted())
	assert.True(t, h.Compressed())
}

func TestCorruptFileKeepsState(t *testing.T) {
	factory, fs := memFactory(testConfig())
	st := factory().(*Store)
	require.NoError(t, st.Put("k", value.Int(1)))
	_, err := st.Save("s.db")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/data/s.db")
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, afero.WriteFile(fs, "/data/s.db", data, 0o644))

	require.NoError(t, st.Put("k", value.Int(2)))
	assert.True(t, errs.Is(st.Load("s.db"), errs.ChecksumMismatch))
	_, err = st.Verify("s.db")
	assert.True(t, errs.Is(err, errs.ChecksumMismatch))

	v, err := st.Get("k")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)
	moved, err := st.Undo()
	require.NoError(t, err)
	assert.True(t, moved, "history survives a failed load")
}

func TestRejectedWritesKeepStoreSavable(t *testing.T) {
	factory, _ := memFactory(testConfig())
	st := factory().(*Store)
	require.NoError(t, st.CreateTable("notes", db.Schema{}, db.ModeFlexible))

	fields, err := value.FromJSON([]byte(`{"a\u0000b": 1}`), 0)
	require.NoError(t, err)
	_, err = st.Insert("notes", fields)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	assert.True(t, errs.Is(st.Put("k", fields), errs.InvalidArgument))

	_, err = st.Insert("notes", storetesting.Doc("text", "ok"))
	require.NoError(t, err)
	_, err = st.Save("notes.db")
	require.NoError(t, err)
	require.NoError(t, st.Load("notes.db"))
	n, err := st.Count("notes", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExists(t *testing.T) {
	factory, _ := memFactory(testConfig())
	st := factory().(*Store)

	ok, err := st.Exists("nested/s.db")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.Save("nested/s.db")
	require.NoError(t, err)
	ok, err = st.Exists("nested/s.db")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = st.Exists("../s.db")
	assert.True(t, errs.Is(err, errs.PathRejected))
}

func TestMaxSnapshots(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSnapshots = 3
	st, err := New(cfg, WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, st.Put("k", value.Int(int64(i))))
	}
	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, 3, info.Snapshots)
	assert.Equal(t, 2, info.Cursor)
}

func TestInfoAndMetrics(t *testing.T) {
	st, err := New(testConfig(), WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	require.NoError(t, st.CreateTable("a", db.Schema{}, db.ModeFlexible))
	require.NoError(t, st.CreateTable("b", db.Schema{}, db.ModeFlexible))
	for i := 0; i < 4; i++ {
		_, err := st.Insert("a", storetesting.Doc("i", i))
		require.NoError(t, err)
	}
	_, err = st.Insert("b", storetesting.Doc("i", 0))
	require.NoError(t, err)
	require.NoError(t, st.Put("k", value.Null()))
	_, err = st.Checkpoint("cp")
	require.NoError(t, err)
	_, err = st.Insert("missing", storetesting.Doc("i", 0))
	require.Error(t, err)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, st.Session(), info.Session)
	assert.Equal(t, 5, info.Rows)
	assert.Equal(t, 1, info.KVEntries)
	assert.Equal(t, 9, info.Snapshots) // initial + 2 tables + 5 rows + put
	require.Len(t, info.Tables, 2)
	assert.Equal(t, "a", info.Tables[0].Name)
	assert.Equal(t, 4, info.Tables[0].Rows)
	assert.Equal(t, 1.0, info.RowDistribution.Min)
	assert.Equal(t, 4.0, info.RowDistribution.Max)
	assert.Equal(t, int64(5), info.RowSizes.Count)
	require.Len(t, info.Checkpoints, 1)

	var buf bytes.Buffer
	st.WriteMetrics(&buf)
	out := buf.String()
	assert.Contains(t, out, `rsndb_ops_total{op="insert"} 6`)
	assert.Contains(t, out, `rsndb_op_errors_total{code="UnknownTable"} 1`)
	assert.Contains(t, out, "rsndb_snapshots 9")
}
