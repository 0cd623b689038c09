package persist

import (
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/logging"
)

var logger = logging.GetLogger("persist")

// maxDecoderMemory caps what a (possibly hostile) zstd frame may allocate.
const maxDecoderMemory = 1 << 30

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

// Codec turns Documents into store files and back.
//
// The pipeline is BSON, then zstd (if Compress), then AES-256-GCM with an
// argon2id derived key (if Passphrase is set), framed by a header holding
// the format version, the flags and a sha256 digest.
//
// Thread-safety: a Codec holds no mutable state and may be shared.
type Codec struct {
	Fs         afero.Fs
	Passphrase string
	Compress   bool
	Level      string // fastest, default, better or best
}

// NewCodec returns a codec on the OS filesystem with compression enabled.
func NewCodec(passphrase string) *Codec {
	return &Codec{Fs: afero.NewOsFs(), Passphrase: passphrase, Compress: true, Level: "default"}
}

// ParseLevel maps a compression level name to a zstd encoder level.
func ParseLevel(s string) (zstd.EncoderLevel, error) {
	switch strings.ToLower(s) {
	case "fastest":
		return zstd.SpeedFastest, nil
	case "default", "":
		return zstd.SpeedDefault, nil
	case "better":
		return zstd.SpeedBetterCompression, nil
	case "best":
		return zstd.SpeedBestCompression, nil
	default:
		return 0, errs.New(errs.InvalidArgument, "unknown compression level %q", s)
	}
}

// Encode serializes doc into the complete file contents.
func (c *Codec) Encode(doc *Document) ([]byte, error) {
	body, err := bson.Marshal(doc)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "serialize document")
	}

	var flags byte
	if c.Compress {
		lvl, err := ParseLevel(c.Level)
		if err != nil {
			return nil, err
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl))
		if err != nil {
			return nil, errs.Wrap(errs.Internal, err, "init compressor")
		}
		body = enc.EncodeAll(body, nil)
		_ = enc.Close()
		flags |= FlagCompressed
	}

	if c.Passphrase != "" {
		flags |= FlagEncrypted
		body, err = seal(c.Passphrase, body, aad(flags))
		if err != nil {
			return nil, err
		}
	}
	return frame(flags, body), nil
}

// Decode verifies and deserializes file contents. Checks run in a fixed
// order: header and digest, version and flags, decryption, decompression,
// deserialization.
func (c *Codec) Decode(data []byte) (*Document, error) {
	h, body, err := unframe(data)
	if err != nil {
		return nil, err
	}

	switch {
	case h.Encrypted() && c.Passphrase == "":
		return nil, errs.New(errs.DecryptionFailed, "file is encrypted but no passphrase is configured")
	case !h.Encrypted() && c.Passphrase != "":
		return nil, errs.New(errs.DecryptionFailed, "a passphrase is configured but the file is not encrypted")
	case h.Encrypted():
		if body, err = open(c.Passphrase, body, aad(h.Flags)); err != nil {
			return nil, err
		}
	}

	if h.Compressed() {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecoderMemory), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errs.Wrap(errs.Internal, err, "init decompressor")
		}
		defer dec.Close()
		if body, err = dec.DecodeAll(body, nil); err != nil {
			return nil, errs.Wrap(errs.ChecksumMismatch, err, "decompress body")
		}
	}

	doc := new(Document)
	if err := bson.Unmarshal(body, doc); err != nil {
		return nil, errs.Wrap(errs.ChecksumMismatch, err, "deserialize document")
	}
	if doc.Format != DocumentFormat {
		return nil, errs.New(errs.UnsupportedFormatVersion, "unknown document format %q", doc.Format)
	}
	return doc, nil
}

// Inspect verifies only the header and digest.
func (c *Codec) Inspect(path string) (Header, error) {
	data, err := c.read(path)
	if err != nil {
		return Header{}, err
	}
	h, _, err := unframe(data)
	return h, err
}

// Save encodes doc and atomically replaces path: the bytes go to a temp
// file in the same directory, which is synced and then renamed.
func (c *Codec) Save(path string, doc *Document) (int64, error) {
	data, err := c.Encode(doc)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := c.Fs.MkdirAll(dir, 0o755); err != nil {
		return 0, errs.Wrap(errs.Internal, err, "create directory").With("path", dir)
	}
	tmp, err := afero.TempFile(c.Fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, errs.Wrap(errs.Internal, err, "create temp file").With("path", path)
	}
	cleanup := func() { _ = c.Fs.Remove(tmp.Name()) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, errs.Wrap(errs.Internal, err, "write temp file").With("path", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, errs.Wrap(errs.Internal, err, "sync temp file").With("path", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, errs.Wrap(errs.Internal, err, "close temp file").With("path", path)
	}
	if err := c.Fs.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return 0, errs.Wrap(errs.Internal, err, "replace store file").With("path", path)
	}

	logger.Debugf("saved %s (%d bytes, flags %#02x)", path, len(data), data[2])
	return int64(len(data)), nil
}

// Load reads and decodes path.
func (c *Codec) Load(path string) (*Document, error) {
	data, err := c.read(path)
	if err != nil {
		return nil, err
	}
	doc, err := c.Decode(data)
	if err != nil {
		logger.Debugf("load %s failed: %v", path, err)
		return nil, err
	}
	return doc, nil
}

// Exists reports whether path is present.
func (c *Codec) Exists(path string) bool {
	ok, err := afero.Exists(c.Fs, path)
	return err == nil && ok
}

func (c *Codec) read(path string) ([]byte, error) {
	data, err := afero.ReadFile(c.Fs, path)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "read store file").With("path", path)
	}
	return data, nil
}

func aad(flags byte) []byte {
	return []byte{byte(FormatVersion >> 8), byte(FormatVersion), flags}
}
