package httpapi

import (
	"net/http"
	"time"

	"crewlink.aero/internal/audit"
	"crewlink.aero/internal/auth"
)

type registerRequest struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Clearance  int    `json:"clearance"`
	Password   string `json:"password"`
}

type loginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type crewMemberResponse struct {
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Role       auth.Role `json:"role"`
	Department string    `json:"department"`
	Clearance  int       `json:"clearance"`
	CreatedAt  time.Time `json:"created_at"`
}

type registerResponse struct {
	Member crewMemberResponse `json:"member"`
	Tokens auth.TokenPair     `json:"tokens"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, member, err := a.auth.Register(r.Context(), auth.RegisterInput{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Role:       auth.Role(req.Role),
		Department: auth.Department(req.Department),
		Clearance:  req.Clearance,
		Password:   req.Password,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"employee_id": member.EmployeeID,
		"role":        member.Role,
		"clearance":   member.Clearance,
	})

	writeJSON(w, http.StatusCreated, registerResponse{
		Member: crewResponse(member),
		Tokens: pair,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.auth.Login(r.Context(), req.EmployeeID, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"employee_id": auth.NormalizeEmployeeID(req.EmployeeID),
		})
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"employee_id": auth.NormalizeEmployeeID(req.EmployeeID),
	})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleLogout revokes the presented access token and, when supplied,
// the refresh token.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}

	var req logoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	a.auth.Logout(r.Context(), token, req.RefreshToken)
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.auth.ChangePassword(r.Context(), claims.EmployeeID(), req.CurrentPassword, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password.changed", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "password_changed"})
}

// handleWhoAmI echoes the verified claims, letting clients inspect what
// the server sees in their token.
func (a *API) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": claims.EmployeeID(),
		"name":        claims.Name,
		"role":        claims.Role,
		"department":  claims.Department,
		"clearance":   claims.Clearance,
		"airline":     claims.Airline,
		"expires_at":  claims.ExpiresAt,
	})
}

func crewResponse(m *auth.CrewMember) crewMemberResponse {
	return crewMemberResponse{
		EmployeeID: m.EmployeeID,
		Name:       m.Name,
		Role:       m.Role,
		Department: string(m.Department),
		Clearance:  m.Clearance,
		CreatedAt:  m.CreatedAt,
	}
}
