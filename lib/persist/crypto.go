package persist

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

const (
	saltSize  = 16
	nonceSize = 12

	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	keySize      = 32
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "init cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "init gcm")
	}
	return gcm, nil
}

// seal returns salt || nonce || ciphertext. aad binds the ciphertext to the
// header fields.
func seal(passphrase string, plain, aad []byte) ([]byte, error) {
	out := make([]byte, saltSize+nonceSize, saltSize+nonceSize+len(plain)+16)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "read random salt and nonce")
	}
	gcm, err := newGCM(deriveKey(passphrase, out[:saltSize]))
	if err != nil {
		return nil, err
	}
	return gcm.Seal(out, out[saltSize:saltSize+nonceSize], plain, aad), nil
}

func open(passphrase string, body, aad []byte) ([]byte, error) {
	if len(body) < saltSize+nonceSize {
		return nil, errs.New(errs.DecryptionFailed, "encrypted body too short (%d bytes)", len(body))
	}
	gcm, err := newGCM(deriveKey(passphrase, body[:saltSize]))
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, body[saltSize:saltSize+nonceSize], body[saltSize+nonceSize:], aad)
	if err != nil {
		return nil, errs.Wrap(errs.AuthenticationFailed, err, "wrong passphrase or tampered ciphertext")
	}
	return plain, nil
}
