/*
Package persist implements the rsnDB store file format.

A file is a fixed header followed by the body:

	[version u16 BE][flags u8][sha256 digest 32][body]

The body is the BSON encoded Document, zstd compressed when FlagCompressed
is set and then AES-256-GCM encrypted when FlagEncrypted is set. Encrypted
bodies start with the 16 byte argon2id salt and the 12 byte nonce.

The package focuses on:
  - Fail fast: the digest over version, flags and body is checked before
    any byte of the body is decrypted, decompressed or parsed.
  - Typed failures: every rejection carries an errs code
    (ChecksumMismatch, UnsupportedFormatVersion, DecryptionFailed,
    AuthenticationFailed).
  - Atomic replace: Save writes a synced temp file next to the target and
    renames it over the target.

The filesystem is an afero.Fs, so tests run entirely in memory.
*/
package persist
