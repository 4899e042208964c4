// Package resource guards stored messages and documents: every operation is
// gated by the caller's verified claims and encrypted content is handled
// through the crypto package.
package resource

import (
	"time"

	"crewlink.aero/internal/crypto"
)

// Status tracks the soft lifecycle of a resource. A deleted resource never
// transitions back.
type Status string

const (
	StatusSent    Status = "sent"
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// AuditRecord is one append-only entry in a resource's access log.
type AuditRecord struct {
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// Message is a crew-to-crew message. Only the sender and recipient may read
// it, regardless of clearance.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Category    string
	Metadata    map[string]string

	// Body holds the plaintext for unencrypted messages.
	Body []byte

	Encrypted bool
	Payload   crypto.EncryptedPayload
	// KeyEnvelope is set under server-held custody: the data key wrapped
	// by the key ring. RawKey is the client-held fallback where the key
	// travels alongside the ciphertext, as in the original design.
	KeyEnvelope *crypto.EncryptedPayload
	RawKey      []byte

	Status    Status
	ReadAt    *time.Time
	CreatedAt time.Time
	DeletedAt *time.Time
	Audit     []AuditRecord
}

// Document is clearance-gated stored content: readable by anyone whose
// clearance meets its access level.
type Document struct {
	ID          string
	UploaderID  string
	Filename    string
	Category    string
	AccessLevel int
	Size        int64

	Body []byte

	Encrypted   bool
	Payload     crypto.EncryptedPayload
	KeyEnvelope *crypto.EncryptedPayload
	RawKey      []byte

	Status    Status
	CreatedAt time.Time
	DeletedAt *time.Time
	Audit     []AuditRecord
}

// Filter narrows list results after ownership and clearance gating has
// already been applied; it can never widen access.
type Filter struct {
	Category string
	From     time.Time
	To       time.Time
	Query    string
}

// MessageSummary is list-safe message metadata: no body, no key material.
type MessageSummary struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Category    string     `json:"category,omitempty"`
	Encrypted   bool       `json:"encrypted"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DocumentSummary is list-safe document metadata.
type DocumentSummary struct {
	ID          string    `json:"id"`
	UploaderID  string    `json:"uploader_id"`
	Filename    string    `json:"filename"`
	Category    string    `json:"category,omitempty"`
	AccessLevel int       `json:"access_level"`
	Size        int64     `json:"size"`
	Encrypted   bool      `json:"encrypted"`
	CreatedAt   time.Time `json:"created_at"`
}
