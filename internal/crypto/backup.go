package crypto

import (
	"encoding/json"
	"fmt"
)

// Bundle is a transportable encrypted backup: the salt and iteration count
// travel with the payload so the key can be re-derived from the password.
type Bundle struct {
	Version    int              `json:"version"`
	Salt       []byte           `json:"salt"`
	Iterations int              `json:"iterations"`
	Payload    EncryptedPayload `json:"payload"`
}

const bundleVersion = 1

// EncryptBackup serializes data, derives a key from the password and seals
// the result with the backup purpose tag.
func EncryptBackup(data any, password string) (*Bundle, error) {
	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("serialize backup: %w", err)
	}
	derived, err := DeriveKey(password, nil, DefaultIterations)
	if err != nil {
		return nil, err
	}
	payload, _, err := Encrypt(serialized, PurposeBackup, derived.Key)
	if err != nil {
		return nil, err
	}
	return &Bundle{
		Version:    bundleVersion,
		Salt:       derived.Salt,
		Iterations: derived.Iterations,
		Payload:    payload,
	}, nil
}

// RestoreBackup re-derives the key from the bundled salt and unseals the
// payload into out. Any failure — wrong password, corrupted bundle,
// tampered ciphertext — surfaces as ErrBackupRestoreFailed.
func RestoreBackup(bundle *Bundle, password string, out any) error {
	if bundle == nil || bundle.Version != bundleVersion {
		return fmt.Errorf("%w: unsupported bundle", ErrBackupRestoreFailed)
	}
	derived, err := DeriveKey(password, bundle.Salt, bundle.Iterations)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackupRestoreFailed, err)
	}
	plaintext, err := Decrypt(bundle.Payload, derived.Key, PurposeBackup)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackupRestoreFailed, err)
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupRestoreFailed, err)
	}
	return nil
}
