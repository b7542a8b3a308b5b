package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

// Default session lifetimes.
const (
	DefaultSessionTTL  = 7 * 24 * time.Hour
	RememberSessionTTL = 30 * 24 * time.Hour
)

// SessionConfig holds the lifetimes; zero values fall back to the defaults.
type SessionConfig struct {
	TTL         time.Duration
	RememberTTL time.Duration
}

// StartedSession is what the transport needs to hand the credential to the
// client.
type StartedSession struct {
	Credential string
	ExpiresAt  time.Time
}

// SessionService issues, resolves and ends server-side sessions.
//
// A session moves Active → Expired (clock) or Active → LoggedOut (End).
// Both terminal states resolve as Unauthenticated, forever.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	sealer   *auth.SessionSealer
	cfg      SessionConfig
	logger   *slog.Logger

	now func() time.Time
}

// NewSessionService builds the session lifecycle on top of the session and
// user stores. The sealer signs the cookie and cfg picks the two
// lifetimes:
//
//	remember=false  cfg.TTL
//	remember=true   cfg.RememberTTL
func NewSessionService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	sealer *auth.SessionSealer,
	cfg SessionConfig,
	logger *slog.Logger,
) *SessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = RememberSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		sealer:   sealer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start mints an unguessable token for userID and persists its hash.
// remember selects the long lifetime.
func (s *SessionService) Start(ctx context.Context, userID string, remember bool) (*StartedSession, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ttl := s.cfg.TTL
	if remember {
		ttl = s.cfg.RememberTTL
	}
	session := &model.Session{
		TokenHash: auth.HashToken(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("failed to create session",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("starting session: %w", err)
	}

	credential, err := s.sealer.Seal(userID, token, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &StartedSession{Credential: credential, ExpiresAt: session.ExpiresAt}, nil
}

// Resolve returns the user bound to a live session. Every kind of dead or
// bogus credential is apperror.ErrUnauthenticated; only storage faults come
// back as other errors.
//
// CHECKS, IN ORDER:
//  1. The credential's signature and expiry (sealer.Open).
//  2. A session row exists for the token's hash.
//  3. The row belongs to the user named in the credential.
//  4. The row is still active: not past expires_at, not logged out.
//  5. The user still exists.
func (s *SessionService) Resolve(ctx context.Context, credential string) (*model.User, error) {
	userID, token, err := s.sealer.Open(credential)
	if err != nil {
		return nil, apperror.Unauthenticated()
	}

	session, err := s.sessions.Get(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if session.UserID != userID || session.State(s.now()) != model.SessionActive {
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("resolving session user: %w", err)
	}
	return user, nil
}

// End logs the session out. Unknown, expired and already-ended credentials
// are accepted silently.
func (s *SessionService) End(ctx context.Context, credential string) error {
	_, token, err := s.sealer.Open(credential)
	if err != nil {
		return nil
	}
	if err := s.sessions.End(ctx, auth.HashToken(token), s.now()); err != nil {
		s.logger.Error("failed to end session", slog.String("error", err.Error()))
		return fmt.Errorf("ending session: %w", err)
	}
	return nil
}
