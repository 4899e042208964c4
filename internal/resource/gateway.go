package resource

import (
	"errors"
	"strings"
	"time"

	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/crypto"
)

const defaultDeleteWindow = 5 * time.Minute

// Gateway composes access control and encryption around the stored
// resources. It is the only component that touches claims, ciphers and
// stores together.
type Gateway struct {
	messages  MessageStore
	documents DocumentStore
	crew      auth.CrewStore
	ring      *crypto.KeyRing

	now          func() time.Time
	deleteWindow time.Duration
}

// GatewayOption configures Gateway behavior.
type GatewayOption func(*Gateway)

// WithKeyRing enables server-held key custody. Without it the gateway
// stores and returns raw data keys, matching the original client-held model.
func WithKeyRing(ring *crypto.KeyRing) GatewayOption {
	return func(g *Gateway) { g.ring = ring }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if fn != nil {
			g.now = fn
		}
	}
}

// WithDeleteWindow overrides how long after a read a sender may still
// delete a message.
func WithDeleteWindow(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.deleteWindow = d
		}
	}
}

// NewGateway wires stores together. crew is consulted for recipient checks.
func NewGateway(messages MessageStore, documents DocumentStore, crew auth.CrewStore, opts ...GatewayOption) (*Gateway, error) {
	if messages == nil || documents == nil {
		return nil, errors.New("resource: message and document stores are required")
	}
	if crew == nil {
		return nil, errors.New("resource: crew store is required")
	}
	g := &Gateway{
		messages:     messages,
		documents:    documents,
		crew:         crew,
		now:          time.Now,
		deleteWindow: defaultDeleteWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ServerHeldKeys reports whether data keys stay inside the process.
func (g *Gateway) ServerHeldKeys() bool { return g.ring != nil }

// sealContent encrypts content for storage, either wrapping the data key
// under the ring or passing it back raw.
func (g *Gateway) sealContent(content []byte, purpose crypto.Purpose) (payload crypto.EncryptedPayload, envelope *crypto.EncryptedPayload, rawKey []byte, err error) {
	payload, key, err := crypto.Encrypt(content, purpose, nil)
	if err != nil {
		return crypto.EncryptedPayload{}, nil, nil, err
	}
	if g.ring != nil {
		wrapped, err := g.ring.Wrap(key)
		if err != nil {
			return crypto.EncryptedPayload{}, nil, nil, err
		}
		return payload, &wrapped, nil, nil
	}
	return payload, nil, key, nil
}

// contentKey recovers the data key for a stored resource.
func (g *Gateway) contentKey(resourceID string, envelope *crypto.EncryptedPayload, rawKey []byte) ([]byte, error) {
	if g.ring != nil && envelope != nil {
		return g.ring.Load(resourceID, *envelope)
	}
	if rawKey != nil {
		return rawKey, nil
	}
	return nil, crypto.ErrDecryptionFailed
}

func matchesFilter(f Filter, category string, createdAt time.Time, text ...string) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, category) {
		return false
	}
	if !f.From.IsZero() && createdAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && createdAt.After(f.To) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		found := false
		for _, s := range text {
			if strings.Contains(strings.ToLower(s), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
