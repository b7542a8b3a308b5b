package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/service"
)

// The OAuth state cookie only has to outlive one trip to GitHub's consent
// page and back.
const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// AuthHandler serves registration, password login, logout, the current-user
// lookup and the optional GitHub OAuth pair.
//
//   - HandleRegister       → POST /api/auth/register
//   - HandleLogin          → POST /api/auth/login
//   - HandleLogout         → POST /api/auth/logout
//   - HandleMe             → GET  /api/auth/me
//   - HandleGitHubLogin    → GET  /api/auth/github/login
//   - HandleGitHubCallback → GET  /api/auth/github/callback
type AuthHandler struct {
	responder
	auth    *service.AuthService
	github  *auth.GitHubProvider // nil when GitHub sign-in is not configured
	cookies auth.CookieOptions
}

// NewAuthHandler creates the auth endpoints. Pass a nil github provider when
// GITHUB_CLIENT_ID is unset; GitHubEnabled then reports false and the
// router leaves the two OAuth routes unmounted.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	cookies auth.CookieOptions,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		auth:      authService,
		github:    github,
		cookies:   cookies,
	}
}

// GitHubEnabled reports whether the OAuth routes should be mounted.
func (h *AuthHandler) GitHubEnabled() bool {
	return h.github != nil
}

// registerRequest is the sign-up form body:
//
//	{"fullName": "Ann Lee", "email": "ann@example.com", "password": "hunter22"}
type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the login form body. rememberMe selects the long session
// lifetime and may be omitted.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /api/auth/register  {fullName, email, password}
// 201 with the user; 409 duplicate_email; 400 invalid_input.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, h.cookies, result.Session.Credential, result.Session.ExpiresAt)
	h.writeJSON(w, http.StatusCreated, result.User)
}

// HandleLogin verifies credentials and sets the session cookie.
//
// HTTP: POST /api/auth/login  {email, password, rememberMe?}
// 200 with the user; 401 auth_failure whatever was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			// A garbled body reads like any other failed login.
			h.writeError(w, apperror.AuthFailed())
			return
		}
		h.writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, h.cookies, result.Session.Credential, result.Session.ExpiresAt)
	h.writeJSON(w, http.StatusOK, result.User)
}

// HandleLogout ends the attached session, if any, and clears the cookie.
// It always answers 204.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.CredentialFromRequest(r)); err != nil {
		h.logger.Error("logout: ending session failed", slog.String("error", err.Error()))
	}
	auth.ClearSessionCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the signed-in user, or JSON null for anonymous callers.
// Mounted behind auth.OptionalSession.
//
// HTTP: GET /api/auth/me
//
//	200 {"id": "...", "email": "ann@example.com", "fullName": "Ann Lee", ...}
//	200 null
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusOK, (*model.User)(nil))
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects the browser to GitHub's consent page.
//
// A random state is stored in a short-lived HttpOnly cookie and checked on
// the callback, which ties the callback to a login this server started.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
//  1. Validate the state parameter against the cookie
//  2. Exchange the code for a GitHub profile
//  3. Sign the matching account in (linking or creating it)
//  4. Set the session cookie and redirect to the dashboard
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("github_id", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, h.cookies, result.Session.Credential, result.Session.ExpiresAt)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
