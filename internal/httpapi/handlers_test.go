package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/crypto"
	"crewlink.aero/internal/resource"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	crew := auth.NewMemoryStore()
	tokens, err := auth.NewTokenService("test-access-secret", auth.NewBlacklist(),
		auth.WithRefreshSecret("test-refresh-secret"))
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	authn, err := auth.NewAuthenticator(crew, tokens)
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}

	master := make([]byte, crypto.KeySize)
	for i := range master {
		master[i] = byte(i)
	}
	ring, err := crypto.NewKeyRing(base64.StdEncoding.EncodeToString(master))
	if err != nil {
		t.Fatalf("key ring: %v", err)
	}
	gateway, err := resource.NewGateway(
		resource.NewMemoryMessageStore(),
		resource.NewMemoryDocumentStore(),
		crew,
		resource.WithKeyRing(ring),
	)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return New(authn, gateway, ReadyProbe{}, "test")
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func registerCrew(t *testing.T, h http.Handler, id, role, dept string, clearance int) auth.TokenPair {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"employee_id": id,
		"name":        "Test Crew " + id,
		"role":        role,
		"department":  dept,
		"clearance":   clearance,
		"password":    "Secure1!pass",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", id, rr.Code, rr.Body.String())
	}
	var resp registerResponse
	decodeBody(t, rr, &resp)
	return resp.Tokens
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestAPI(t).Handler()

	rr := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/info", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d", rr.Code)
	}
	var info map[string]any
	decodeBody(t, rr, &info)
	if info["server_held_keys"] != true {
		t.Fatalf("expected server_held_keys=true, got %v", info["server_held_keys"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestAPI(t).Handler()

	for _, path := range []string{"/v1/messages", "/v1/documents", "/v1/auth/me"} {
		rr := doJSON(t, h, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rr.Code)
		}
	}

	rr := doJSON(t, h, http.MethodGet, "/v1/messages", "not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rr.Code)
	}
}

func TestRegisterLoginWhoAmI(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)

	rr := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"employee_id": "aa12345",
		"password":    "Secure1!pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var pair auth.TokenPair
	decodeBody(t, rr, &pair)

	rr = doJSON(t, h, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var me map[string]any
	decodeBody(t, rr, &me)
	if me["employee_id"] != "AA12345" {
		t.Fatalf("unexpected employee_id %v", me["employee_id"])
	}
	if me["clearance"] != float64(4) {
		t.Fatalf("unexpected clearance %v", me["clearance"])
	}
}

func TestLoginFailuresLockAccount(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)

	for i := 0; i < 5; i++ {
		rr := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
			"employee_id": "AA12345",
			"password":    "wrong-password",
		})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rr.Code)
		}
	}

	rr := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"employee_id": "AA12345",
		"password":    "Secure1!pass",
	})
	if rr.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRefreshAndLogout(t *testing.T) {
	h := newTestAPI(t).Handler()
	pair := registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)

	rr := doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rotated auth.TokenPair
	decodeBody(t, rr, &rotated)
	if rotated.AccessToken == "" {
		t.Fatalf("expected rotated access token")
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/auth/logout", pair.AccessToken, map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// The revoked access token no longer authenticates.
	rr = doJSON(t, h, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401, got %d", rr.Code)
	}
	// And the revoked refresh token can no longer be exchanged.
	rr = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked refresh: expected 401, got %d", rr.Code)
	}
}

func TestChangePassword(t *testing.T) {
	h := newTestAPI(t).Handler()
	pair := registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)

	rr := doJSON(t, h, http.MethodPost, "/v1/auth/password", pair.AccessToken, map[string]any{
		"current_password": "wrong",
		"new_password":     "Another1!pass",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current: expected 401, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/auth/password", pair.AccessToken, map[string]any{
		"current_password": "Secure1!pass",
		"new_password":     "Another1!pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("change: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"employee_id": "AA12345",
		"password":    "Another1!pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rr.Code)
	}
}

func TestMessageFlow(t *testing.T) {
	h := newTestAPI(t).Handler()
	sender := registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)
	recipient := registerCrew(t, h, "BB6789", "flight_attendant", "cabin_crew", 2)
	outsider := registerCrew(t, h, "CC1000", "admin", "administration", 5)

	rr := doJSON(t, h, http.MethodPost, "/v1/messages", sender.AccessToken, map[string]any{
		"recipient_id": "BB6789",
		"content":      "gate change: B14",
		"encrypt":      true,
		"category":     "ops",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var receipt struct {
		Message resource.MessageSummary `json:"message"`
		Key     []byte                  `json:"key"`
	}
	decodeBody(t, rr, &receipt)
	if receipt.Key != nil {
		t.Fatalf("server-held custody must not return keys")
	}
	id := receipt.Message.ID

	// Recipient reads the plaintext.
	rr = doJSON(t, h, http.MethodGet, "/v1/messages/"+id, recipient.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var content messageContentResponse
	decodeBody(t, rr, &content)
	if content.Body != "gate change: B14" {
		t.Fatalf("unexpected body %q", content.Body)
	}

	// A third party is denied regardless of clearance.
	rr = doJSON(t, h, http.MethodGet, "/v1/messages/"+id, outsider.AccessToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("outsider read: expected 403, got %d", rr.Code)
	}

	// Sender lists and finds it; outsider does not.
	rr = doJSON(t, h, http.MethodGet, "/v1/messages?category=ops", sender.AccessToken, nil)
	var list listMessagesResponse
	decodeBody(t, rr, &list)
	if len(list.Items) != 1 {
		t.Fatalf("sender list: expected 1 item, got %d", len(list.Items))
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/messages", outsider.AccessToken, nil)
	decodeBody(t, rr, &list)
	if len(list.Items) != 0 {
		t.Fatalf("outsider list: expected 0 items, got %d", len(list.Items))
	}

	// Sender deletes within the window.
	rr = doJSON(t, h, http.MethodDelete, "/v1/messages/"+id, sender.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/messages/"+id, recipient.AccessToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted read: expected 404, got %d", rr.Code)
	}
}

func TestMessageToUnknownRecipient(t *testing.T) {
	h := newTestAPI(t).Handler()
	sender := registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)

	rr := doJSON(t, h, http.MethodPost, "/v1/messages", sender.AccessToken, map[string]any{
		"recipient_id": "ZZ99999",
		"content":      "anyone there?",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDocumentFlow(t *testing.T) {
	h := newTestAPI(t).Handler()
	uploader := registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)
	junior := registerCrew(t, h, "BB6789", "flight_attendant", "cabin_crew", 2)

	body := []byte("flight manual rev 12")
	rr := doJSON(t, h, http.MethodPost, "/v1/documents", uploader.AccessToken, map[string]any{
		"filename":     "manual.pdf",
		"content":      body,
		"access_level": 4,
		"category":     "manuals",
		"encrypt":      true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var receipt struct {
		Document resource.DocumentSummary `json:"document"`
	}
	decodeBody(t, rr, &receipt)
	id := receipt.Document.ID

	// Below the access level: denied.
	rr = doJSON(t, h, http.MethodGet, "/v1/documents/"+id, junior.AccessToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("junior download: expected 403, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/documents/"+id, uploader.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(rr.Body.Bytes(), body) {
		t.Fatalf("downloaded bytes differ: %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); got == "" {
		t.Fatalf("expected Content-Disposition header")
	}

	// Listing honors clearance.
	rr = doJSON(t, h, http.MethodGet, "/v1/documents", junior.AccessToken, nil)
	var list listDocumentsResponse
	decodeBody(t, rr, &list)
	if len(list.Items) != 0 {
		t.Fatalf("junior list: expected 0 items, got %d", len(list.Items))
	}

	// Audit trail is restricted to the uploader.
	rr = doJSON(t, h, http.MethodGet, "/v1/documents/"+id+"/audit", junior.AccessToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("junior audit: expected 403, got %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/documents/"+id+"/audit", uploader.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("audit: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Uploader deletes.
	rr = doJSON(t, h, http.MethodDelete, "/v1/documents/"+id, uploader.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
}

func TestUploadAboveOwnClearance(t *testing.T) {
	h := newTestAPI(t).Handler()
	junior := registerCrew(t, h, "BB6789", "flight_attendant", "cabin_crew", 2)

	rr := doJSON(t, h, http.MethodPost, "/v1/documents", junior.AccessToken, map[string]any{
		"filename":     "secret.pdf",
		"content":      []byte("x"),
		"access_level": 5,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDuplicateRegistration(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerCrew(t, h, "AA12345", "captain", "flight_operations", 4)

	rr := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"employee_id": "AA12345",
		"name":        "Duplicate",
		"role":        "captain",
		"department":  "flight_operations",
		"clearance":   4,
		"password":    "Secure1!pass",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}
