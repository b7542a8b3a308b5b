package auth

import (
	"net/http"
	"time"
)

// CookieName carries the sealed session credential.
//
// COOKIE ATTRIBUTES:
//
//	HttpOnly  scripts cannot read the credential
//	SameSite  Lax: sent on top-level navigation, not on cross-site POSTs
//	Secure    from COOKIE_SECURE; turn it on behind HTTPS
//	Path      "/" so every API route receives it
const CookieName = "session"

// CookieOptions are the deployment-dependent cookie attributes.
type CookieOptions struct {
	Secure bool
}

// SetSessionCookie writes the credential with a lifetime matching the
// session's, so "remember me" survives browser restarts for 30 days.
func SetSessionCookie(w http.ResponseWriter, opts CookieOptions, credential string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    credential,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the cookie (Max-Age < 0).
// The attributes must match SetSessionCookie or browsers keep the old one.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CredentialFromRequest returns the cookie value, or "" when there is none.
func CredentialFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
