// Package httpapi is the HTTP transport for the crew communication
// service. Handlers stay thin: parsing, status mapping and audit events
// live here, the rules live in internal/auth and internal/resource.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/crypto"
	"crewlink.aero/internal/obs"
	"crewlink.aero/internal/resource"
)

// ReadyProbe reports whether the service can take traffic. With no
// database configured the in-memory stores are always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Authenticator
	gateway    *resource.Gateway
	readyProbe ReadyProbe
	version    string
}

func New(authn *auth.Authenticator, gateway *resource.Gateway, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authn,
		gateway:    gateway,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/password", a.handleChangePassword)
	a.mux.HandleFunc("/v1/auth/me", a.handleWhoAmI)

	a.mux.HandleFunc("/v1/messages", a.handleMessagesCollection)
	a.mux.HandleFunc("/v1/messages/", a.handleMessageResource)
	a.mux.HandleFunc("/v1/documents", a.handleDocumentsCollection)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleAuthError maps domain errors to HTTP statuses. Credential
// failures stay deliberately vague.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, r, http.StatusLocked, err.Error())
	case errors.Is(err, auth.ErrAccountDeactivated):
		writeError(w, r, http.StatusForbidden, "account is deactivated")
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, http.StatusUnauthorized, "token expired")
	case errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMalformedToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrInsufficientRole),
		errors.Is(err, auth.ErrInsufficientClearance),
		errors.Is(err, auth.ErrDepartmentRestricted):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "employee id already registered")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleResourceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resource.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, resource.ErrRecipientNotFound):
		writeError(w, r, http.StatusNotFound, "recipient not found")
	case errors.Is(err, resource.ErrRecipientInactive):
		writeError(w, r, http.StatusConflict, "recipient is deactivated")
	case errors.Is(err, resource.ErrDeleteWindowExpired):
		writeError(w, r, http.StatusConflict, "delete window has expired")
	case errors.Is(err, resource.ErrInsufficientClearance):
		writeError(w, r, http.StatusForbidden, "insufficient clearance")
	case errors.Is(err, resource.ErrAccessDenied):
		writeError(w, r, http.StatusForbidden, "access denied")
	case errors.Is(err, resource.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, crypto.ErrDecryptionFailed):
		writeError(w, r, http.StatusInternalServerError, "stored content failed decryption")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
