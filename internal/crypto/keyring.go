package crypto

import (
	"encoding/base64"
	"errors"
	"sync"
)

var ErrMasterKeyInvalid = errors.New("crypto: master key must decode to 32 bytes")

// KeyRing implements server-held key custody. Per-resource data keys are
// envelope-encrypted under the master key before storage, and the plaintext
// keys are cached in memory only. Without a key ring the gateway falls back
// to handing keys to the caller.
type KeyRing struct {
	masterKey []byte

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewKeyRing decodes a base64 master key and returns a ring around it.
func NewKeyRing(masterKeyBase64 string) (*KeyRing, error) {
	masterKey, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil || len(masterKey) != KeySize {
		return nil, ErrMasterKeyInvalid
	}
	return &KeyRing{
		masterKey: masterKey,
		cache:     make(map[string][]byte),
	}, nil
}

// Wrap encrypts a data key under the master key for storage.
func (r *KeyRing) Wrap(dataKey []byte) (EncryptedPayload, error) {
	payload, _, err := seal(dataKey, purposeKeyWrap, r.masterKey)
	return payload, err
}

// Unwrap recovers a data key previously wrapped by this ring.
func (r *KeyRing) Unwrap(wrapped EncryptedPayload) ([]byte, error) {
	return open(wrapped, r.masterKey, purposeKeyWrap)
}

// Cache stores a plaintext data key in memory under the resource id.
func (r *KeyRing) Cache(resourceID string, dataKey []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[resourceID] = dataKey
}

// Cached returns a previously cached data key.
func (r *KeyRing) Cached(resourceID string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.cache[resourceID]
	return key, ok
}

// Load returns the data key for a resource, unwrapping and caching it on
// first use.
func (r *KeyRing) Load(resourceID string, wrapped EncryptedPayload) ([]byte, error) {
	if key, ok := r.Cached(resourceID); ok {
		return key, nil
	}
	key, err := r.Unwrap(wrapped)
	if err != nil {
		return nil, err
	}
	r.Cache(resourceID, key)
	return key, nil
}
