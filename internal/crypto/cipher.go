// Package crypto provides the authenticated encryption, key derivation and
// HMAC primitives used for messages, documents and backups. Everything fails
// closed: a payload that does not authenticate yields an error, never
// partial plaintext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"crewlink.aero/internal/obs"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16
)

var (
	ErrInvalidKeySize      = errors.New("crypto: key must be 32 bytes")
	ErrUnknownPurpose      = errors.New("crypto: unknown purpose")
	ErrEncryptionFailed    = errors.New("crypto: encryption failed")
	ErrDecryptionFailed    = errors.New("crypto: decryption failed")
	ErrKeyDerivationFailed = errors.New("crypto: key derivation failed")
	ErrBackupRestoreFailed = errors.New("crypto: backup restore failed")
)

// Purpose is bound into the ciphertext as associated data, so a payload
// encrypted for one context can never be decrypted as another.
type Purpose string

const (
	PurposeMessage  Purpose = "message"
	PurposeDocument Purpose = "document"
	PurposeBackup   Purpose = "backup"

	// purposeKeyWrap protects data keys under the master key; internal to
	// the key ring.
	purposeKeyWrap Purpose = "keywrap"
)

// ValidPurpose reports whether p is an externally usable purpose tag.
func ValidPurpose(p Purpose) bool {
	switch p {
	case PurposeMessage, PurposeDocument, PurposeBackup:
		return true
	}
	return false
}

// EncryptedPayload carries one AES-256-GCM sealed value. The tag is kept
// separate from the ciphertext so tampering with either is detectable in
// tests and storage audits.
type EncryptedPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Tag        []byte `json:"tag"`
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext under the key with the purpose bound as
// associated data. A fresh random key is generated when none is supplied;
// the key in use is always returned. A fresh nonce is generated on every
// call and never reused for a given key.
func Encrypt(plaintext []byte, purpose Purpose, key []byte) (EncryptedPayload, []byte, error) {
	if !ValidPurpose(purpose) {
		return EncryptedPayload{}, nil, ErrUnknownPurpose
	}
	return seal(plaintext, purpose, key)
}

func seal(plaintext []byte, purpose Purpose, key []byte) (EncryptedPayload, []byte, error) {
	if key == nil {
		generated, err := GenerateKey()
		if err != nil {
			return EncryptedPayload{}, nil, err
		}
		key = generated
	}
	if len(key) != KeySize {
		return EncryptedPayload{}, nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedPayload{}, nil, ErrEncryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedPayload{}, nil, ErrEncryptionFailed
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedPayload{}, nil, err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, []byte(purpose))
	split := len(sealed) - tagSize
	payload := EncryptedPayload{
		Ciphertext: sealed[:split],
		Nonce:      nonce,
		Tag:        sealed[split:],
	}
	return payload, key, nil
}

// Decrypt opens a sealed payload. Any mismatch of tag, key, nonce or
// purpose fails closed with ErrDecryptionFailed.
func Decrypt(payload EncryptedPayload, key []byte, purpose Purpose) ([]byte, error) {
	if !ValidPurpose(purpose) {
		return nil, ErrUnknownPurpose
	}
	return open(payload, key, purpose)
}

func open(payload EncryptedPayload, key []byte, purpose Purpose) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(payload.Nonce) != gcm.NonceSize() || len(payload.Tag) != tagSize {
		obs.IncDecryptFailure()
		return nil, ErrDecryptionFailed
	}
	sealed := make([]byte, 0, len(payload.Ciphertext)+tagSize)
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.Tag...)
	plaintext, err := gcm.Open(nil, payload.Nonce, sealed, []byte(purpose))
	if err != nil {
		obs.IncDecryptFailure()
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
