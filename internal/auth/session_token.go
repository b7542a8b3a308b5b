package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issuer is written to and required in the iss claim of every sealed cookie.
const issuer = "travelboard"

// MinSecretLength is the shortest HMAC secret NewSessionSealer accepts.
const MinSecretLength = 16

// ErrInvalidCredential is returned by Open for any cookie that fails
// verification. Callers treat it exactly like a missing cookie.
var ErrInvalidCredential = errors.New("auth: invalid session credential")

// NewSessionToken returns 32 bytes from crypto/rand, base64url encoded.
// The raw token only ever leaves the server inside the sealed cookie.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the lookup key stored in the sessions table.
//
// Only the SHA-256 hex digest is persisted, so a leaked sessions table
// does not hand out live tokens:
//
//	token  "q3b...Xw"  -> cookie (sealed)
//	digest "9f86...0a" -> sessions.token_hash
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionSealer wraps a session token in an HS256 JWT so the cookie cannot be
// forged or altered. The JWT is only a tamper-proof envelope: the session
// table remains the source of truth for whether the session is live.
type SessionSealer struct {
	secret []byte
}

// NewSessionSealer returns a sealer keyed by secret.
//
// The secret comes from SESSION_SECRET. Anything shorter than
// MinSecretLength is refused so a typo cannot leave the cookies guessable.
func NewSessionSealer(secret string) (*SessionSealer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	return &SessionSealer{secret: []byte(secret)}, nil
}

// Seal produces the cookie value: sub = user id, jti = session token.
func (s *SessionSealer) Seal(userID, token string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        token,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session credential: %w", err)
	}
	return signed, nil
}

// Open verifies the signature and expiry and returns the user id and raw
// session token. Every failure is reported as ErrInvalidCredential.
func (s *SessionSealer) Open(credential string) (userID, token string, err error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(credential, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return "", "", ErrInvalidCredential
	}
	return claims.Subject, claims.ID, nil
}
