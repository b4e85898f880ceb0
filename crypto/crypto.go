package crypto

import (
	stdcrypto "crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrHashingUnsupported is returned when the digest primitive is not linked
// into the binary. It is an environment fault, never a credential mismatch.
var ErrHashingUnsupported = errors.New("secure hashing unsupported")

// DigestSize is the length in hex characters of every digest.
const DigestSize = sha256.Size * 2

// Hasher computes a one-way fixed-length digest of a string.
type Hasher interface {
	Digest(text string) (string, error)
}

// Engine is the SHA-256 Hasher.
type Engine struct {
	hash stdcrypto.Hash
}

func NewEngine() *Engine {
	return &Engine{hash: stdcrypto.SHA256}
}

// Digest returns the lowercase hex SHA-256 of text.
func (e *Engine) Digest(text string) (string, error) {
	if e == nil || !e.hash.Available() {
		return "", ErrHashingUnsupported
	}
	h := e.hash.New()
	io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SaltedDigest hashes text with salt appended, the form stored in the
// account directory.
func SaltedDigest(h Hasher, text, salt string) (string, error) {
	return h.Digest(text + salt)
}

// DeriveKey expands secret into a 32-byte key bound to info, so one
// configured secret can feed several independent keys.
func DeriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveCookieKeys returns the HMAC and AES keys for the cookie store.
func DeriveCookieKeys(secret string) (authKey, encKey []byte, err error) {
	if authKey, err = DeriveKey(secret, "sitegate cookie auth"); err != nil {
		return nil, nil, err
	}
	if encKey, err = DeriveKey(secret, "sitegate cookie encryption"); err != nil {
		return nil, nil, err
	}
	return authKey, encKey, nil
}
