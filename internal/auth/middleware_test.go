package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
)

type fakeResolver struct {
	users map[string]*model.User
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, credential string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[credential]; ok {
		return u, nil
	}
	return nil, apperror.Unauthenticated()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser writes the context user's id, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id, ok := UserIDFromContext(r.Context()); ok {
		io.WriteString(w, id)
		return
	}
	io.WriteString(w, "anonymous")
})

func requestWithCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
	}
	return req
}

func TestRequireSession(t *testing.T) {
	resolver := &fakeResolver{users: map[string]*model.User{"good": {ID: "u1"}}}
	h := RequireSession(resolver, quietLogger())(echoUser)

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{name: "live session", cookie: "good", wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "no cookie", wantStatus: http.StatusUnauthorized},
		{name: "dead session", cookie: "expired", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithCookie(tt.cookie))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error":"unauthenticated"`)
			}
		})
	}
}

func TestRequireSession_StorageFaultIs500(t *testing.T) {
	h := RequireSession(&fakeResolver{err: errors.New("db down")}, quietLogger())(echoUser)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithCookie("anything"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestOptionalSession(t *testing.T) {
	resolver := &fakeResolver{users: map[string]*model.User{"good": {ID: "u1"}}}
	h := OptionalSession(resolver, quietLogger())(echoUser)

	for cookie, want := range map[string]string{"good": "u1", "bad": "anonymous", "": "anonymous"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestWithCookie(cookie))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String(), "cookie %q", cookie)
	}
}

func TestSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, CookieOptions{Secure: true}, "sealed", time.Now().Add(30*24*time.Hour))

	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		c := cookies[0]
		assert.Equal(t, CookieName, c.Name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.InDelta(t, 30*24*3600, c.MaxAge, 5)
	}

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, CookieOptions{})
	cookies = rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, "", cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
	}
}
