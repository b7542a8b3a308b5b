package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

// AuthService is the credential store plus the sign-in flows built on it.
// It never touches HTTP: handlers turn AuthResult into cookies.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ SessionService (server-side sessions)
//	                               ↘ ActivityService (feed + events)
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - passwords  *auth.PasswordService      → bcrypt hash and verify
//   - sessions   *SessionService            → start and end sessions
//   - activity   *ActivityService           → "Created your account", logins
//   - logger     *slog.Logger               → structured logging
//
// CreateAccount needs only users, passwords and logger; the CLI passes nil
// for the other two.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  *SessionService
	activity  *ActivityService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with the given dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions *SessionService,
	activity *ActivityService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		activity:  activity,
		logger:    logger,
	}
}

// AuthResult bundles the user with the session just started for them.
type AuthResult struct {
	User    *model.User
	Session *StartedSession
}

// RegisterInput is the sign-up form after JSON decoding. Fields arrive
// untrimmed; Register and CreateAccount normalise them.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// Register creates a password account and signs it in with a default-length
// session. The email is compared case-insensitively; a taken address fails
// with DuplicateEmail and leaves the existing row untouched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.CreateAccount(ctx, in)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Start(ctx, user.ID, false)
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, user.ID, events.KindRegister, "", user.ID, "Created your account")
	return &AuthResult{User: user, Session: session}, nil
}

// CreateAccount validates in and stores a password account without signing
// it in: no session is started and no activity is recorded. The `user add`
// command provisions accounts through it.
//
// VALIDATION
//
//	fullName   required, at most MaxNameLength after trimming
//	email      required, normalised, at most MaxEmailLength, one @ and a dot
//	password   MinPasswordLen to auth.MaxPasswordBytes bytes
func (s *AuthService) CreateAccount(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.FullName)
	email := model.NormalizeEmail(in.Email)

	c := &checker{}
	c.required("fullName", name).maxLen("fullName", name, MaxNameLength).
		required("email", email).maxLen("email", email, MaxEmailLength)
	if err := c.err(); err != nil {
		return nil, err
	}
	if !looksLikeEmail(email) {
		return nil, apperror.ValidationFailed("email", "email must be a valid email address")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	user := &model.User{Email: email, DisplayName: name, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Info("registration for existing email rejected")
			return nil, apperror.DuplicateEmail()
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Verify checks an email/password pair. Unknown email and wrong password
// both fail with the same AuthFailure and take the same bcrypt time.
func (s *AuthService) Verify(ctx context.Context, email, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" || len(password) > auth.MaxPasswordBytes {
		s.passwords.VerifyDummy(password)
		return nil, apperror.AuthFailed()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, apperror.AuthFailed()
		}
		s.logger.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.AuthFailed()
		}
		s.logger.Error("failed to verify password",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}
	return user, nil
}

// Login verifies credentials and starts a session; remember selects the
// 30-day lifetime.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*AuthResult, error) {
	user, err := s.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, apperror.ErrAuthFailure) {
			s.logger.Warn("login failed")
		}
		return nil, err
	}

	session, err := s.sessions.Start(ctx, user.ID, remember)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID), slog.Bool("remember", remember))
	s.activity.Record(ctx, user.ID, events.KindLogin, "", user.ID, loginMessage("password"))
	return &AuthResult{User: user, Session: session}, nil
}

// Logout ends the session behind credential, if any.
func (s *AuthService) Logout(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}
	return s.sessions.End(ctx, credential)
}

// LoginGitHub signs in the owner of a GitHub profile. First sign-in either
// links the GitHub id to an existing account with the same email or creates
// a password-less account.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.githubUser(ctx, gh)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Start(ctx, user.ID, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("user_id", user.ID),
		slog.String("login", gh.Login),
	)
	s.activity.Record(ctx, user.ID, events.KindLogin, "", user.ID, loginMessage("GitHub"))
	return &AuthResult{User: user, Session: session}, nil
}

// githubUser resolves a GitHub profile to a local account:
//
//	1. an account already linked to gh.ID
//	2. an account with the same (normalised) email, which gets linked
//	3. a new password-less account
func (s *AuthService) githubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	user, err := s.users.GetByGitHubID(ctx, gh.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	email := model.NormalizeEmail(gh.Email)
	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
			return nil, fmt.Errorf("service/auth: linking GitHub user %d: %w", gh.ID, err)
		}
		id := gh.ID
		user.GitHubID = &id
		return user, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	id := gh.ID
	user = &model.User{Email: email, DisplayName: gh.DisplayName(), GitHubID: &id}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %d: %w", gh.ID, err)
	}
	s.logger.Info("user registered via GitHub", slog.String("user_id", user.ID))
	return user, nil
}

// validatePassword enforces the length window. The upper bound is bcrypt's
// input limit, measured in bytes rather than runes.
func validatePassword(password string) error {
	switch {
	case password == "":
		return apperror.ValidationFailed("password", "password is required")
	case len(password) < MinPasswordLen:
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	case len(password) > auth.MaxPasswordBytes:
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}

// looksLikeEmail is a loose check: one @ with something on each side
// and a dot in the domain.
func looksLikeEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domain, ".") &&
		!strings.ContainsAny(domain, "@ ") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
