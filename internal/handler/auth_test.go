package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/repository/sqlstore"
	"github.com/sakif/travelboard/internal/service"
)

// The JSON auth endpoints are covered through the full router in the server
// package; these tests focus on the GitHub redirect pair.

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 99, "login": "ann", "name": "Ann", "email": "ann@x.com"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newGitHubAuthHandler(t *testing.T) (*AuthHandler, *service.SessionService) {
	t.Helper()
	db, err := sqlstore.OpenMigrated(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sealer, err := auth.NewSessionSealer("handler-test-secret-123")
	require.NoError(t, err)

	activity := service.NewActivityService(db.Activity(), events.NewLogPublisher(logger), logger)
	sessions := service.NewSessionService(db.Sessions(), db.Users(), sealer, service.SessionConfig{}, logger)
	authService := service.NewAuthService(db.Users(), auth.NewPasswordService(bcrypt.MinCost), sessions, activity, logger)

	gh := fakeGitHub(t)
	provider := auth.NewGitHubProvider("id", "secret", "http://localhost/api/auth/github/callback").
		WithEndpoints(oauth2.Endpoint{
			AuthURL:   gh.URL + "/login/oauth/authorize",
			TokenURL:  gh.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}, gh.URL)

	return NewAuthHandler(authService, provider, auth.CookieOptions{}, logger), sessions
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGitHubLogin_RedirectsWithState(t *testing.T) {
	h, _ := newGitHubAuthHandler(t)

	rec := httptest.NewRecorder()
	h.HandleGitHubLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/github/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	state := cookieNamed(rec, stateCookieName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
}

func TestGitHubCallback_SignsIn(t *testing.T) {
	h, sessions := newGitHubAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s1"})
	rec := httptest.NewRecorder()
	h.HandleGitHubCallback(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))

	session := cookieNamed(rec, auth.CookieName)
	require.NotNil(t, session)
	user, err := sessions.Resolve(context.Background(), session.Value)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", user.Email)
	require.NotNil(t, user.GitHubID)
	assert.Equal(t, int64(99), *user.GitHubID)
}

func TestGitHubCallback_Rejects(t *testing.T) {
	h, _ := newGitHubAuthHandler(t)

	tests := []struct {
		name       string
		query      string
		cookie     string
		wantStatus int
		wantTo     string
	}{
		{name: "no state cookie", query: "?code=abc&state=s1", wantStatus: http.StatusBadRequest},
		{name: "state mismatch", query: "?code=abc&state=other", cookie: "s1", wantStatus: http.StatusBadRequest},
		{name: "user denied", query: "?error=access_denied&state=s1", cookie: "s1", wantStatus: http.StatusSeeOther, wantTo: "/?auth=denied"},
		{name: "missing code", query: "?state=s1", cookie: "s1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.HandleGitHubCallback(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantTo != "" {
				assert.Equal(t, tt.wantTo, rec.Header().Get("Location"))
			}
			assert.Nil(t, cookieNamed(rec, auth.CookieName))
		})
	}
}
