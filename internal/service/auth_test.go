package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/events"
)

func registerAnn(t *testing.T, env *testEnv) *AuthResult {
	t.Helper()
	res, err := env.authSvc.Register(context.Background(), RegisterInput{
		FullName: "Ann", Email: "ann@x.com", Password: "pw12345",
	})
	require.NoError(t, err)
	return res
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.authSvc.Register(context.Background(), RegisterInput{
		FullName: "  Ann  ", Email: "  Ann@X.com ", Password: "pw12345",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "ann@x.com", res.User.Email, "email is stored normalised")
	assert.Equal(t, "Ann", res.User.DisplayName)
	assert.True(t, strings.HasPrefix(res.User.PasswordHash, "$2"), "password is stored as bcrypt")
	assert.NotContains(t, res.User.PasswordHash, "pw12345")

	require.NotNil(t, res.Session)
	assert.NotEmpty(t, res.Session.Credential)
	assert.WithinDuration(t, env.now.Add(DefaultSessionTTL), res.Session.ExpiresAt, time.Second)
	assert.Contains(t, env.publisher.kinds(), events.KindRegister)
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	first := registerAnn(t, env)

	_, err := env.authSvc.Register(context.Background(), RegisterInput{
		FullName: "Other Ann", Email: "ANN@X.COM", Password: "different-pw",
	})
	require.ErrorIs(t, err, apperror.ErrConflict)

	stored, err := env.users.GetByID(context.Background(), first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", stored.DisplayName, "existing row must not change")
	assert.Equal(t, first.User.PasswordHash, stored.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        RegisterInput
		wantField string
	}{
		{name: "missing name", in: RegisterInput{Email: "a@x.com", Password: "pw12345"}, wantField: "fullName"},
		{name: "missing email", in: RegisterInput{FullName: "A", Password: "pw12345"}, wantField: "email"},
		{name: "malformed email", in: RegisterInput{FullName: "A", Email: "not-an-email", Password: "pw12345"}, wantField: "email"},
		{name: "email without domain dot", in: RegisterInput{FullName: "A", Email: "a@localhost", Password: "pw12345"}, wantField: "email"},
		{name: "missing password", in: RegisterInput{FullName: "A", Email: "a@x.com"}, wantField: "password"},
		{name: "short password", in: RegisterInput{FullName: "A", Email: "a@x.com", Password: "pw1"}, wantField: "password"},
		{name: "password over 72 bytes", in: RegisterInput{FullName: "A", Email: "a@x.com", Password: strings.Repeat("p", 73)}, wantField: "password"},
		{name: "name too long", in: RegisterInput{FullName: strings.Repeat("n", MaxNameLength+1), Email: "a@x.com", Password: "pw12345"}, wantField: "fullName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.authSvc.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, env.users.users, "nothing is stored on validation failure")
		})
	}
}

func TestRegister_StorageFaultIsNotDomainError(t *testing.T) {
	env := newTestEnv(t)
	env.users.err = errors.New("disk full")

	_, err := env.authSvc.Register(context.Background(), RegisterInput{FullName: "A", Email: "a@x.com", Password: "pw12345"})
	require.Error(t, err)

	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr), "storage faults must surface as internal errors")
}

// =========================================================================
// CreateAccount TESTS
// =========================================================================

func TestCreateAccount_StartsNoSessionAndRecordsNothing(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.authSvc.CreateAccount(context.Background(), RegisterInput{
		FullName: "Ann", Email: "Ann@X.com", Password: "pw12345",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ann@x.com", user.Email)
	assert.Empty(t, env.sessions.sessions, "no session may be started")
	assert.Empty(t, env.publisher.kinds(), "no activity may be published")
	assert.Zero(t, env.activity.count())

	// The account can sign in normally afterwards.
	res, err := env.authSvc.Login(context.Background(), "ann@x.com", "pw12345", false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
}

func TestCreateAccount_SharesRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	registerAnn(t, env)

	_, err := env.authSvc.CreateAccount(context.Background(), RegisterInput{
		FullName: "Ann Again", Email: "ANN@x.com", Password: "pw12345",
	})
	require.ErrorIs(t, err, apperror.ErrConflict)

	_, err = env.authSvc.CreateAccount(context.Background(), RegisterInput{
		FullName: "Bob", Email: "bob@x.com", Password: "pw",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "password", appErr.Field)
}

// =========================================================================
// Verify / Login TESTS
// =========================================================================

func TestVerify_GenericFailure(t *testing.T) {
	env := newTestEnv(t)
	registerAnn(t, env)
	ctx := context.Background()

	_, wrongPassword := env.authSvc.Verify(ctx, "ann@x.com", "nope-nope")
	_, unknownEmail := env.authSvc.Verify(ctx, "nobody@x.com", "pw12345")
	_, empty := env.authSvc.Verify(ctx, "", "")

	for _, err := range []error{wrongPassword, unknownEmail, empty} {
		require.ErrorIs(t, err, apperror.ErrAuthFailure)
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error(), "messages must not reveal which part was wrong")
}

func TestVerify_CaseInsensitiveEmail(t *testing.T) {
	env := newTestEnv(t)
	reg := registerAnn(t, env)

	user, err := env.authSvc.Verify(context.Background(), " ANN@x.com", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
}

func TestLogin_RememberSelectsLongSession(t *testing.T) {
	env := newTestEnv(t)
	registerAnn(t, env)

	short, err := env.authSvc.Login(context.Background(), "ann@x.com", "pw12345", false)
	require.NoError(t, err)
	long, err := env.authSvc.Login(context.Background(), "ann@x.com", "pw12345", true)
	require.NoError(t, err)

	assert.WithinDuration(t, env.now.Add(7*24*time.Hour), short.Session.ExpiresAt, time.Second)
	assert.WithinDuration(t, env.now.Add(30*24*time.Hour), long.Session.ExpiresAt, time.Second)
	assert.Contains(t, env.publisher.kinds(), events.KindLogin)
}

func TestLogin_ThenResolveReturnsSameUser(t *testing.T) {
	env := newTestEnv(t)
	registerAnn(t, env)

	res, err := env.authSvc.Login(context.Background(), "ann@x.com", "pw12345", false)
	require.NoError(t, err)

	me, err := env.sessionSvc.Resolve(context.Background(), res.Session.Credential)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)
}

func TestLogin_GitHubOnlyAccountCannotUsePassword(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.authSvc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 5, Login: "gh", Email: "gh@x.com"})
	require.NoError(t, err)

	_, err = env.authSvc.Login(context.Background(), "gh@x.com", "", false)
	assert.ErrorIs(t, err, apperror.ErrAuthFailure)
	_, err = env.authSvc.Login(context.Background(), "gh@x.com", "anything", false)
	assert.ErrorIs(t, err, apperror.ErrAuthFailure)
}

// =========================================================================
// Logout TESTS
// =========================================================================

func TestLogout_EndsSession(t *testing.T) {
	env := newTestEnv(t)
	res := registerAnn(t, env)
	ctx := context.Background()

	require.NoError(t, env.authSvc.Logout(ctx, res.Session.Credential))

	_, err := env.sessionSvc.Resolve(ctx, res.Session.Credential)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	// Logging out twice, or without a session, is fine.
	assert.NoError(t, env.authSvc.Logout(ctx, res.Session.Credential))
	assert.NoError(t, env.authSvc.Logout(ctx, ""))
	assert.NoError(t, env.authSvc.Logout(ctx, "garbage"))
}

// =========================================================================
// GitHub TESTS
// =========================================================================

func TestLoginGitHub(t *testing.T) {
	t.Run("first sign-in creates a password-less account", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.authSvc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 9, Login: "octo", Email: "Octo@X.com"})
		require.NoError(t, err)
		assert.Equal(t, "octo@x.com", res.User.Email)
		assert.Equal(t, "octo", res.User.DisplayName)
		assert.Empty(t, res.User.PasswordHash)
		require.NotNil(t, res.User.GitHubID)
		assert.Equal(t, int64(9), *res.User.GitHubID)
	})

	t.Run("matching email links the existing account", func(t *testing.T) {
		env := newTestEnv(t)
		reg := registerAnn(t, env)

		res, err := env.authSvc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 10, Login: "ann", Email: "ann@x.com"})
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)

		byGitHub, err := env.users.GetByGitHubID(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, byGitHub.ID)
	})

	t.Run("returning user is found by github id", func(t *testing.T) {
		env := newTestEnv(t)
		first, err := env.authSvc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 11, Login: "x", Email: "x@x.com"})
		require.NoError(t, err)

		again, err := env.authSvc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 11, Login: "x", Email: "changed@x.com"})
		require.NoError(t, err)
		assert.Equal(t, first.User.ID, again.User.ID)
		assert.Len(t, env.users.users, 1)
	})

	t.Run("nil profile is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.authSvc.LoginGitHub(context.Background(), nil)
		assert.Error(t, err)
	})
}
