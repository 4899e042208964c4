package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/resource"
)

type sendMessageRequest struct {
	RecipientID string            `json:"recipient_id"`
	Content     string            `json:"content"`
	Encrypt     bool              `json:"encrypt"`
	Category    string            `json:"category,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type messageContentResponse struct {
	Message       resource.MessageSummary `json:"message"`
	Body          string                  `json:"body,omitempty"`
	Metadata      map[string]string       `json:"metadata,omitempty"`
	Undecryptable bool                    `json:"undecryptable,omitempty"`
}

type listMessagesResponse struct {
	Items []resource.MessageSummary `json:"items"`
	AsOf  time.Time                 `json:"as_of"`
}

func (a *API) handleMessagesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.sendMessage(w, r)
	case http.MethodGet:
		a.listMessages(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleMessageResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/messages/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.readMessage(w, r, id)
	case http.MethodDelete:
		a.deleteMessage(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RecipientID) == "" {
		writeError(w, r, http.StatusBadRequest, "recipient_id is required")
		return
	}

	receipt, err := a.gateway.SendMessage(r.Context(), claims, resource.SendMessageInput{
		RecipientID: req.RecipientID,
		Content:     []byte(req.Content),
		Encrypt:     req.Encrypt,
		Category:    req.Category,
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/messages/"+receipt.Message.ID)
	writeJSON(w, http.StatusCreated, receipt)
}

func (a *API) readMessage(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	content, err := a.gateway.ReadMessage(r.Context(), id, claims)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageContentResponse{
		Message:       content.Summary,
		Body:          string(content.Body),
		Metadata:      content.Metadata,
		Undecryptable: content.Undecryptable,
	})
}

func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := a.gateway.DeleteMessage(r.Context(), id, claims); err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.gateway.ListMessages(r.Context(), claims, filter)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if items == nil {
		items = []resource.MessageSummary{}
	}
	writeJSON(w, http.StatusOK, listMessagesResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

// filterFromQuery maps query parameters onto a store filter. from/to are
// RFC3339 timestamps.
func filterFromQuery(q url.Values) (resource.Filter, error) {
	f := resource.Filter{
		Category: strings.TrimSpace(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return resource.Filter{}, errors.New("from must be an RFC3339 timestamp")
		}
		f.From = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return resource.Filter{}, errors.New("to must be an RFC3339 timestamp")
		}
		f.To = t
	}
	return f, nil
}
