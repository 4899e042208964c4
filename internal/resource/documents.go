package resource

import (
	"context"
	"fmt"
	"sort"

	"crewlink.aero/internal/audit"
	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/crypto"
	"crewlink.aero/internal/obs"
)

// adminClearance may delete any document regardless of ownership.
const adminClearance = auth.MaxClearance

// UploadDocumentInput carries everything needed to store a document.
type UploadDocumentInput struct {
	Filename    string
	Content     []byte
	AccessLevel int
	Category    string
	Encrypt     bool
}

// DocumentReceipt is returned to the uploader. Key is populated only in
// the client-held custody fallback.
type DocumentReceipt struct {
	Document DocumentSummary `json:"document"`
	Key      []byte          `json:"key,omitempty"`
}

// UploadDocument stores a document. The uploader's clearance must meet the
// requested access level: nobody can publish above their own tier.
func (g *Gateway) UploadDocument(ctx context.Context, claims *auth.Claims, in UploadDocumentInput) (*DocumentReceipt, error) {
	if claims == nil {
		return nil, ErrAccessDenied
	}
	if in.Filename == "" || len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: filename and content are required", ErrInvalidInput)
	}
	if in.AccessLevel < auth.MinClearance || in.AccessLevel > auth.MaxClearance {
		return nil, fmt.Errorf("%w: access level must be between %d and %d", ErrInvalidInput, auth.MinClearance, auth.MaxClearance)
	}
	if !auth.HasClearance(claims, in.AccessLevel) {
		obs.IncAccessDenied("clearance")
		return nil, ErrInsufficientClearance
	}

	now := g.now().UTC()
	doc := &Document{
		UploaderID:  claims.EmployeeID(),
		Filename:    in.Filename,
		Category:    in.Category,
		AccessLevel: in.AccessLevel,
		Size:        int64(len(in.Content)),
		Status:      StatusActive,
		CreatedAt:   now,
		Audit:       []AuditRecord{{Action: "upload", Actor: claims.EmployeeID(), At: now}},
	}

	var rawKey []byte
	if in.Encrypt {
		payload, envelope, key, err := g.sealContent(in.Content, crypto.PurposeDocument)
		if err != nil {
			return nil, err
		}
		doc.Encrypted = true
		doc.Payload = payload
		doc.KeyEnvelope = envelope
		doc.RawKey = key
		rawKey = key
	} else {
		doc.Body = append([]byte(nil), in.Content...)
	}

	if err := g.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return &DocumentReceipt{Document: documentSummary(doc), Key: rawKey}, nil
}

// DownloadDocument returns the document content to any caller whose
// clearance meets its access level. Unlike message reads, a decryption
// failure here is a hard error: a corrupted download must be visible to
// the caller.
func (g *Gateway) DownloadDocument(ctx context.Context, id string, claims *auth.Claims) (*Document, []byte, error) {
	if claims == nil {
		return nil, nil, ErrAccessDenied
	}
	doc, err := g.documents.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.Status == StatusDeleted {
		return nil, nil, ErrNotFound
	}
	if !auth.HasClearance(claims, doc.AccessLevel) {
		obs.IncAccessDenied("clearance")
		_ = audit.LogEvent(ctx, "document.access.denied", map[string]any{
			"document_id":  doc.ID,
			"access_level": doc.AccessLevel,
			"action":       "download",
		})
		return nil, nil, ErrAccessDenied
	}

	var body []byte
	if doc.Encrypted {
		key, keyErr := g.contentKey(doc.ID, doc.KeyEnvelope, doc.RawKey)
		if keyErr == nil {
			body, keyErr = crypto.Decrypt(doc.Payload, key, crypto.PurposeDocument)
		}
		if keyErr != nil {
			_ = audit.LogEvent(ctx, "document.decrypt.failed", map[string]any{
				"document_id": doc.ID,
			})
			return nil, nil, crypto.ErrDecryptionFailed
		}
	} else {
		body = doc.Body
	}

	// The audit append runs atomically inside the store so concurrent
	// downloads cannot lose each other's entries.
	now := g.now().UTC()
	record := AuditRecord{Action: "download", Actor: claims.EmployeeID(), At: now}
	err = g.documents.Mutate(ctx, id, func(d *Document) error {
		if d.Status == StatusDeleted {
			return ErrNotFound
		}
		d.Audit = append(d.Audit, record)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	doc.Audit = append(doc.Audit, record)
	return doc, body, nil
}

// DeleteDocument soft-deletes a document. Allowed for the uploader or for
// top-clearance callers.
func (g *Gateway) DeleteDocument(ctx context.Context, id string, claims *auth.Claims) error {
	if claims == nil {
		return ErrAccessDenied
	}
	actor := claims.EmployeeID()
	return g.documents.Mutate(ctx, id, func(d *Document) error {
		if d.Status == StatusDeleted {
			return ErrNotFound
		}
		if actor != d.UploaderID && !auth.HasClearance(claims, adminClearance) {
			obs.IncAccessDenied("ownership")
			_ = audit.LogEvent(ctx, "document.access.denied", map[string]any{
				"document_id": d.ID,
				"action":      "delete",
			})
			return ErrAccessDenied
		}
		now := g.now().UTC()
		d.Status = StatusDeleted
		d.DeletedAt = &now
		d.Audit = append(d.Audit, AuditRecord{Action: "delete", Actor: actor, At: now})
		return nil
	})
}

// ListDocuments returns metadata for documents the caller's clearance
// permits. Clearance gating runs before any content filter.
func (g *Gateway) ListDocuments(ctx context.Context, claims *auth.Claims, filter Filter) ([]DocumentSummary, error) {
	if claims == nil {
		return nil, ErrAccessDenied
	}
	all, err := g.documents.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []DocumentSummary
	for _, doc := range all {
		if doc.Status == StatusDeleted {
			continue
		}
		if !auth.HasClearance(claims, doc.AccessLevel) {
			continue
		}
		if !matchesFilter(filter, doc.Category, doc.CreatedAt, doc.Filename, doc.UploaderID) {
			continue
		}
		out = append(out, documentSummary(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AuditTrail returns the append-only access log for a document. Restricted
// to the uploader or top clearance.
func (g *Gateway) AuditTrail(ctx context.Context, id string, claims *auth.Claims) ([]AuditRecord, error) {
	if claims == nil {
		return nil, ErrAccessDenied
	}
	doc, err := g.documents.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.EmployeeID() != doc.UploaderID && !auth.HasClearance(claims, adminClearance) {
		return nil, ErrAccessDenied
	}
	return doc.Audit, nil
}

func documentSummary(doc *Document) DocumentSummary {
	return DocumentSummary{
		ID:          doc.ID,
		UploaderID:  doc.UploaderID,
		Filename:    doc.Filename,
		Category:    doc.Category,
		AccessLevel: doc.AccessLevel,
		Size:        doc.Size,
		Encrypted:   doc.Encrypted,
		CreatedAt:   doc.CreatedAt,
	}
}
