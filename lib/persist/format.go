package persist

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// --------------------------------------------------------------------------
// File Header
// --------------------------------------------------------------------------

const (
	// FormatVersion is the only version this build reads and writes.
	FormatVersion uint16 = 1

	// FlagEncrypted marks an AES-GCM encrypted body.
	FlagEncrypted byte = 1 << 0
	// FlagCompressed marks a zstd compressed body.
	FlagCompressed byte = 1 << 1

	knownFlags = FlagEncrypted | FlagCompressed

	digestSize = sha256.Size
	// HeaderSize is version (2) + flags (1) + digest (32).
	HeaderSize = 2 + 1 + digestSize
)

// Header is the fixed-size prefix of a store file.
type Header struct {
	Version uint16
	Flags   byte
	Digest  [digestSize]byte
}

// Encrypted reports whether the body is encrypted.
func (h Header) Encrypted() bool { return h.Flags&FlagEncrypted != 0 }

// Compressed reports whether the body is compressed.
func (h Header) Compressed() bool { return h.Flags&FlagCompressed != 0 }

// digest covers version, flags and body, so any flipped byte outside the
// digest slot itself is detected. It is not sha256(body): a verifier that
// hashes the body alone will reject every file written here.
func digest(version uint16, flags byte, body []byte) [digestSize]byte {
	h := sha256.New()
	var prefix [3]byte
	binary.BigEndian.PutUint16(prefix[:2], version)
	prefix[2] = flags
	h.Write(prefix[:])
	h.Write(body)
	var out [digestSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// frame prepends the header to body.
func frame(flags byte, body []byte) []byte {
	out := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint16(out[:2], FormatVersion)
	out[2] = flags
	d := digest(FormatVersion, flags, body)
	copy(out[3:HeaderSize], d[:])
	copy(out[HeaderSize:], body)
	return out
}

// unframe verifies the header and returns it with the body. No byte of the
// body is interpreted before the digest matched.
func unframe(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		if legacy(data) {
			return Header{}, nil, errLegacy()
		}
		return Header{}, nil, errs.New(errs.ChecksumMismatch, "file too short for header (%d bytes)", len(data)).
			With("size", len(data))
	}

	var h Header
	h.Version = binary.BigEndian.Uint16(data[:2])
	h.Flags = data[2]
	copy(h.Digest[:], data[3:HeaderSize])
	body := data[HeaderSize:]

	if want := digest(h.Version, h.Flags, body); want != h.Digest {
		if legacy(data) {
			return Header{}, nil, errLegacy()
		}
		return Header{}, nil, errs.New(errs.ChecksumMismatch, "digest mismatch")
	}
	if h.Version != FormatVersion {
		return Header{}, nil, errs.New(errs.UnsupportedFormatVersion, "format version %d is not supported", h.Version).
			With("version", h.Version).With("supported", FormatVersion)
	}
	if h.Flags&^knownFlags != 0 {
		return Header{}, nil, errs.New(errs.UnsupportedFormatVersion, "unknown flags %#02x", h.Flags).
			With("flags", h.Flags)
	}
	return h, body, nil
}

// legacy detects files of the headerless layout: a sha256 of the rest of
// the file in the first 32 bytes.
func legacy(data []byte) bool {
	if len(data) < digestSize {
		return false
	}
	sum := sha256.Sum256(data[digestSize:])
	return bytes.Equal(sum[:], data[:digestSize])
}

func errLegacy() error {
	return errs.New(errs.UnsupportedFormatVersion, "file has no format version header")
}
