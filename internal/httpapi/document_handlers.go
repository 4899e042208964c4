package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/resource"
)

type uploadDocumentRequest struct {
	Filename    string `json:"filename"`
	Content     []byte `json:"content"`
	AccessLevel int    `json:"access_level"`
	Category    string `json:"category,omitempty"`
	Encrypt     bool   `json:"encrypt"`
}

type listDocumentsResponse struct {
	Items []resource.DocumentSummary `json:"items"`
	AsOf  time.Time                  `json:"as_of"`
}

func (a *API) handleDocumentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.uploadDocument(w, r)
	case http.MethodGet:
		a.listDocuments(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/audit") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/audit"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.documentAuditTrail(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.downloadDocument(w, r, path)
	case http.MethodDelete:
		a.deleteDocument(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) uploadDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	var req uploadDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := a.gateway.UploadDocument(r.Context(), claims, resource.UploadDocumentInput{
		Filename:    req.Filename,
		Content:     req.Content,
		AccessLevel: req.AccessLevel,
		Category:    req.Category,
		Encrypt:     req.Encrypt,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/documents/"+receipt.Document.ID)
	writeJSON(w, http.StatusCreated, receipt)
}

// downloadDocument streams the document body. Metadata rides in headers
// so the payload stays raw bytes.
func (a *API) downloadDocument(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	doc, body, err := a.gateway.DownloadDocument(r.Context(), id, claims)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *API) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	if err := a.gateway.DeleteDocument(r.Context(), id, claims); err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
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
	items, err := a.gateway.ListDocuments(r.Context(), claims, filter)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if items == nil {
		items = []resource.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, listDocumentsResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) documentAuditTrail(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	trail, err := a.gateway.AuditTrail(r.Context(), id, claims)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": trail})
}
