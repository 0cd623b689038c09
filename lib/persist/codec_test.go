package persist

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/value"
)

func sampleState(t *testing.T) *db.State {
	t.Helper()
	s := db.New(0)
	s, err := s.CreateTable("users", db.Schema{Fields: []db.FieldDef{
		{Name: "name", Type: db.TypeString, Required: true},
		{Name: "email", Type: db.TypeString, Unique: true},
		{Name: "age", Type: db.TypeInteger},
	}}, db.ModeStrict)
	require.NoError(t, err)
	s, err = s.CreateTable("notes", db.Schema{}, db.ModeFlexible)
	require.NoError(t, err)

	s, alice, err := s.Insert("users", value.Document(
		value.Field{Name: "name", Value: value.String("alice")},
		value.Field{Name: "email", Value: value.String("a@example.com")},
		value.Field{Name: "age", Value: value.Int(25)},
	))
	require.NoError(t, err)
	s, note, err := s.Insert("notes", value.Document(
		value.Field{Name: "text", Value: value.String("hello")},
		value.Field{Name: "tags", Value: value.Array(value.String("a"), value.Float(1.5), value.Null())},
		value.Field{Name: "meta", Value: value.Document(value.Field{Name: "pinned", Value: value.Bool(true)})},
	))
	require.NoError(t, err)
	s, err = s.Link(db.Edge{FromTable: "users", FromID: alice, Label: "wrote", ToTable: "notes", ToID: note})
	require.NoError(t, err)
	s, err = s.Put("session:1", value.Document(value.Field{Name: "user", Value: value.String(alice)}))
	require.NoError(t, err)
	return s
}

func sampleDoc(t *testing.T) *Document {
	s := sampleState(t)
	return &Document{
		Format:  DocumentFormat,
		SavedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Session: "test",
		State:   s.Dump(),
		Checkpoints: []CheckpointDump{
			{Name: "empty", Seq: 1, CreatedAt: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), State: db.New(0).Dump()},
		},
	}
}

func memCodec(pass string, compress bool) *Codec {
	return &Codec{Fs: afero.NewMemMapFs(), Passphrase: pass, Compress: compress, Level: "fastest"}
}

func rebuild(t *testing.T, d db.Dump) *db.State {
	t.Helper()
	s, err := db.FromDump(d, 0)
	require.NoError(t, err)
	return s
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		pass     string
		compress bool
	}{
		{"plain", "", false},
		{"compressed", "", true},
		{"encrypted", "secret", false},
		{"compressed and encrypted", "secret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := memCodec(tt.pass, tt.compress)
			doc := sampleDoc(t)

			n, err := c.Save("/data/store.db", doc)
			require.NoError(t, err)
			assert.Greater(t, n, int64(HeaderSize))

			h, err := c.Inspect("/data/store.db")
			require.NoError(t, err)
			assert.Equal(t, tt.pass != "", h.Encrypted())
			assert.Equal(t, tt.compress, h.Compressed())

			got, err := c.Load("/data/store.db")
			require.NoError(t, err)
			assert.Equal(t, "test", got.Session)
			assert.True(t, doc.SavedAt.Equal(got.SavedAt))
			assert.True(t, rebuild(t, doc.State).Equal(rebuild(t, got.State)))

			require.Len(t, got.Checkpoints, 1)
			assert.Equal(t, "empty", got.Checkpoints[0].Name)
			assert.Empty(t, rebuild(t, got.Checkpoints[0].State).Tables())
		})
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	c := memCodec("", true)
	_, err := c.Save("/db/store.db", sampleDoc(t))
	require.NoError(t, err)
	_, err = c.Save("/db/store.db", sampleDoc(t))
	require.NoError(t, err)

	entries, err := afero.ReadDir(c.Fs, "/db")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.db", entries[0].Name())
}

func TestEverySingleByteFlipIsDetected(t *testing.T) {
	for _, pass := range []string{"", "secret"} {
		c := memCodec(pass, true)
		data, err := c.Encode(sampleDoc(t))
		require.NoError(t, err)

		for i := range data {
			corrupt := append([]byte(nil), data...)
			corrupt[i] ^= 0x01
			_, err := c.Decode(corrupt)
			require.Truef(t, errs.Is(err, errs.ChecksumMismatch), "byte %d: %v", i, err)
		}
	}
}

func TestDigestCoversHeader(t *testing.T) {
	data, err := memCodec("", true).Encode(sampleDoc(t))
	require.NoError(t, err)
	stored := data[3:HeaderSize]
	body := data[HeaderSize:]

	bodyOnly := sha256.Sum256(body)
	assert.NotEqual(t, bodyOnly[:], stored, "body-only verifiers must not accept the file")

	withHeader := sha256.Sum256(append(append([]byte(nil), data[:3]...), body...))
	assert.Equal(t, withHeader[:], stored)
}

func TestTruncatedFile(t *testing.T) {
	c := memCodec("", false)
	data, err := c.Encode(sampleDoc(t))
	require.NoError(t, err)

	for _, n := range []int{0, 1, HeaderSize - 1, HeaderSize, len(data) - 1} {
		_, err := c.Decode(data[:n])
		assert.Truef(t, errs.Is(err, errs.ChecksumMismatch), "len %d: %v", n, err)
	}
}

func TestWrongPassphrase(t *testing.T) {
	data, err := memCodec("right", true).Encode(sampleDoc(t))
	require.NoError(t, err)

	_, err = memCodec("wrong", true).Decode(data)
	assert.True(t, errs.Is(err, errs.AuthenticationFailed), "%v", err)

	_, err = memCodec("", true).Decode(data)
	assert.True(t, errs.Is(err, errs.DecryptionFailed), "%v", err)
}

func TestPassphraseForPlaintextFile(t *testing.T) {
	data, err := memCodec("", true).Encode(sampleDoc(t))
	require.NoError(t, err)
	_, err = memCodec("secret", true).Decode(data)
	assert.True(t, errs.Is(err, errs.DecryptionFailed), "%v", err)
}

func TestUnsupportedFormat(t *testing.T) {
	t.Run("legacy headerless file", func(t *testing.T) {
		rest := []byte("some old payload without a version tag")
		sum := sha256.Sum256(rest)
		_, err := memCodec("", false).Decode(append(sum[:], rest...))
		assert.True(t, errs.Is(err, errs.UnsupportedFormatVersion), "%v", err)
	})

	t.Run("future version", func(t *testing.T) {
		body := []byte("body")
		data := make([]byte, HeaderSize+len(body))
		binary.BigEndian.PutUint16(data, 2)
		d := digest(2, 0, body)
		copy(data[3:], d[:])
		copy(data[HeaderSize:], body)
		_, err := memCodec("", false).Decode(data)
		assert.True(t, errs.Is(err, errs.UnsupportedFormatVersion), "%v", err)
	})

	t.Run("unknown flag", func(t *testing.T) {
		data := frame(1<<5, []byte("body"))
		_, err := memCodec("", false).Decode(data)
		assert.True(t, errs.Is(err, errs.UnsupportedFormatVersion), "%v", err)
	})
}

func TestGarbageBodyWithValidDigest(t *testing.T) {
	_, err := memCodec("", false).Decode(frame(FlagCompressed, []byte("not zstd")))
	assert.True(t, errs.Is(err, errs.ChecksumMismatch), "%v", err)

	_, err = memCodec("", false).Decode(frame(0, []byte("not bson")))
	assert.True(t, errs.Is(err, errs.ChecksumMismatch), "%v", err)

	_, err = memCodec("secret", false).Decode(frame(FlagEncrypted, []byte("short")))
	assert.True(t, errs.Is(err, errs.DecryptionFailed), "%v", err)
}

func TestParseLevel(t *testing.T) {
	for _, l := range []string{"fastest", "default", "better", "best", ""} {
		_, err := ParseLevel(l)
		assert.NoError(t, err, l)
	}
	_, err := ParseLevel("ultra")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestLoadMissingFile(t *testing.T) {
	c := memCodec("", true)
	assert.False(t, c.Exists("/nope.db"))
	_, err := c.Load("/nope.db")
	assert.True(t, errs.Is(err, errs.Internal))
}
