package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"crewlink.aero/internal/audit"
	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/crypto"
)

// SendMessageInput carries everything needed to store a message.
type SendMessageInput struct {
	RecipientID string
	Content     []byte
	Encrypt     bool
	Category    string
	Metadata    map[string]string
}

// MessageReceipt is returned to the sender. Key is populated only in the
// client-held custody fallback.
type MessageReceipt struct {
	Message MessageSummary `json:"message"`
	Key     []byte         `json:"key,omitempty"`
}

// MessageContent is the result of an authorized read. Undecryptable marks
// a stored payload that failed authentication; the read itself succeeds so
// inbox listings stay usable.
type MessageContent struct {
	Summary       MessageSummary    `json:"message"`
	Body          []byte            `json:"body,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Undecryptable bool              `json:"undecryptable,omitempty"`
}

// SendMessage stores a message for the recipient, encrypting the body when
// requested.
func (g *Gateway) SendMessage(ctx context.Context, claims *auth.Claims, in SendMessageInput) (*MessageReceipt, error) {
	if claims == nil {
		return nil, ErrAccessDenied
	}
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	recipient, err := g.crew.Find(ctx, in.RecipientID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	if !recipient.IsActive {
		return nil, ErrRecipientInactive
	}

	now := g.now().UTC()
	msg := &Message{
		SenderID:    claims.EmployeeID(),
		RecipientID: recipient.EmployeeID,
		Category:    in.Category,
		Metadata:    in.Metadata,
		Status:      StatusSent,
		CreatedAt:   now,
		Audit:       []AuditRecord{{Action: "send", Actor: claims.EmployeeID(), At: now}},
	}

	var rawKey []byte
	if in.Encrypt {
		payload, envelope, key, err := g.sealContent(in.Content, crypto.PurposeMessage)
		if err != nil {
			return nil, err
		}
		msg.Encrypted = true
		msg.Payload = payload
		msg.KeyEnvelope = envelope
		msg.RawKey = key
		rawKey = key
	} else {
		msg.Body = append([]byte(nil), in.Content...)
	}

	if err := g.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return &MessageReceipt{Message: messageSummary(msg), Key: rawKey}, nil
}

// ReadMessage returns the message content to the sender or recipient. A
// stored payload that fails authentication is reported as undecryptable
// and logged as a security event instead of failing the read.
func (g *Gateway) ReadMessage(ctx context.Context, id string, claims *auth.Claims) (*MessageContent, error) {
	if claims == nil {
		return nil, ErrAccessDenied
	}
	msg, err := g.messages.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Status == StatusDeleted {
		return nil, ErrNotFound
	}
	actor := claims.EmployeeID()
	if actor != msg.SenderID && actor != msg.RecipientID {
		_ = audit.LogEvent(ctx, "message.access.denied", map[string]any{
			"message_id": msg.ID,
			"action":     "read",
		})
		return nil, ErrAccessDenied
	}

	now := g.now().UTC()
	content := &MessageContent{Metadata: msg.Metadata}

	if msg.Encrypted {
		key, keyErr := g.contentKey(msg.ID, msg.KeyEnvelope, msg.RawKey)
		var plaintext []byte
		if keyErr == nil {
			plaintext, keyErr = crypto.Decrypt(msg.Payload, key, crypto.PurposeMessage)
		}
		if keyErr != nil {
			content.Undecryptable = true
			_ = audit.LogEvent(ctx, "message.decrypt.failed", map[string]any{
				"message_id": msg.ID,
			})
		} else {
			content.Body = plaintext
		}
	} else {
		content.Body = msg.Body
	}

	// The read marker is stamped once, only for the true recipient. Both
	// the stamp and the audit append run atomically inside the store so
	// concurrent readers cannot lose each other's entries.
	var summary MessageSummary
	err = g.messages.Mutate(ctx, id, func(m *Message) error {
		if m.Status == StatusDeleted {
			return ErrNotFound
		}
		if actor == m.RecipientID && m.ReadAt == nil {
			m.ReadAt = &now
		}
		m.Audit = append(m.Audit, AuditRecord{Action: "read", Actor: actor, At: now})
		summary = messageSummary(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	content.Summary = summary
	return content, nil
}

// DeleteMessage soft-deletes a message. Only the sender may delete, and
// once the recipient has read it only within the delete window.
func (g *Gateway) DeleteMessage(ctx context.Context, id string, claims *auth.Claims) error {
	if claims == nil {
		return ErrAccessDenied
	}
	actor := claims.EmployeeID()
	return g.messages.Mutate(ctx, id, func(m *Message) error {
		if m.Status == StatusDeleted {
			return ErrNotFound
		}
		if actor != m.SenderID {
			_ = audit.LogEvent(ctx, "message.access.denied", map[string]any{
				"message_id": m.ID,
				"action":     "delete",
			})
			return ErrAccessDenied
		}
		now := g.now().UTC()
		if m.ReadAt != nil && now.After(m.ReadAt.Add(g.deleteWindow)) {
			return ErrDeleteWindowExpired
		}
		m.Status = StatusDeleted
		m.DeletedAt = &now
		m.Audit = append(m.Audit, AuditRecord{Action: "delete", Actor: actor, At: now})
		return nil
	})
}

// ListMessages returns metadata for messages the caller sent or received.
// Ownership gating runs before any content filter so query parameters can
// never widen access; results carry no key material.
func (g *Gateway) ListMessages(ctx context.Context, claims *auth.Claims, filter Filter) ([]MessageSummary, error) {
	if claims == nil {
		return nil, ErrAccessDenied
	}
	all, err := g.messages.List(ctx)
	if err != nil {
		return nil, err
	}
	actor := claims.EmployeeID()
	var out []MessageSummary
	for _, msg := range all {
		if msg.Status == StatusDeleted {
			continue
		}
		if actor != msg.SenderID && actor != msg.RecipientID {
			continue
		}
		if !matchesFilter(filter, msg.Category, msg.CreatedAt, msg.SenderID, msg.RecipientID, string(msg.Body)) {
			continue
		}
		out = append(out, messageSummary(msg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func messageSummary(msg *Message) MessageSummary {
	return MessageSummary{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Category:    msg.Category,
		Encrypted:   msg.Encrypted,
		ReadAt:      msg.ReadAt,
		CreatedAt:   msg.CreatedAt,
	}
}
