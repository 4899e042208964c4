package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used when the caller
	// does not supply one.
	DefaultIterations = 100000

	saltSize = 16
)

// DerivedKey bundles a password-derived key with the parameters needed to
// re-derive it. The salt is always returned so it can be stored alongside
// the ciphertext.
type DerivedKey struct {
	Key        []byte
	Salt       []byte
	Iterations int
}

// DeriveKey stretches a password into a 256-bit key using PBKDF2-SHA256.
// A fresh salt is generated when none is supplied.
func DeriveKey(password string, salt []byte, iterations int) (DerivedKey, error) {
	if password == "" {
		return DerivedKey{}, fmt.Errorf("%w: empty password", ErrKeyDerivationFailed)
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return DerivedKey{}, fmt.Errorf("%w: %v", ErrKeyDerivationFailed, err)
		}
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
	return DerivedKey{Key: key, Salt: salt, Iterations: iterations}, nil
}

// Hash returns the hex digest of data under the named algorithm.
func Hash(data []byte, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HMAC returns the hex-encoded keyed digest of data under the secret.
func HMAC(data []byte, secret string, algorithm string) (string, error) {
	fn, err := hashConstructor(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(fn, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyHMAC checks a hex signature against data in constant time.
func VerifyHMAC(data []byte, signature, secret string) bool {
	expected, err := HMAC(data, secret, "sha256")
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

func newHash(algorithm string) (hash.Hash, error) {
	fn, err := hashConstructor(algorithm)
	if err != nil {
		return nil, err
	}
	return fn(), nil
}

func hashConstructor(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "", "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, errors.New("crypto: unsupported hash algorithm " + algorithm)
	}
}
