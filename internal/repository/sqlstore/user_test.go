package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
)

// ===== CREATE =====

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "ana@example.com", DisplayName: "Ana", PasswordHash: "h"}
	require.NoError(t, db.Users().Create(context.Background(), user))

	assert.NotEmpty(t, user.ID, "Create should assign an id")
	assert.False(t, user.CreatedAt.IsZero(), "Create should stamp created_at")
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "ana@example.com")

	err := db.Users().Create(context.Background(), &model.User{Email: "ana@example.com", DisplayName: "Other"})
	require.ErrorIs(t, err, apperror.ErrConflict)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email", appErr.Field)
}

func TestUserCreate_DuplicateGitHubID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	gh := int64(4242)

	require.NoError(t, db.Users().Create(ctx, &model.User{Email: "a@example.com", DisplayName: "A", GitHubID: &gh}))

	err := db.Users().Create(ctx, &model.User{Email: "b@example.com", DisplayName: "B", GitHubID: &gh})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

// ===== READ =====

func TestUserGetBy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	gh := int64(777)
	created := &model.User{Email: "gh@example.com", DisplayName: "GH", GitHubID: &gh}
	require.NoError(t, db.Users().Create(ctx, created))

	byID, err := db.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "gh@example.com", byID.Email)
	require.NotNil(t, byID.GitHubID)
	assert.Equal(t, gh, *byID.GitHubID)
	assert.Empty(t, byID.PasswordHash)

	byEmail, err := db.Users().GetByEmail(ctx, "gh@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byGitHub, err := db.Users().GetByGitHubID(ctx, gh)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byGitHub.ID)
}

func TestUserGetBy_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Users().GetByID(ctx, "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = db.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = db.Users().GetByGitHubID(ctx, 1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	user := createTestUser(t, db, "ana@example.com")
	got, err := db.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GitHubID)
}

// ===== LINK =====

func TestUserLinkGitHub(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com")

	require.NoError(t, db.Users().LinkGitHub(ctx, user.ID, 99))

	got, err := db.Users().GetByGitHubID(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	assert.ErrorIs(t, db.Users().LinkGitHub(ctx, "missing", 100), apperror.ErrNotFound)

	other := createTestUser(t, db, "bo@example.com")
	assert.ErrorIs(t, db.Users().LinkGitHub(ctx, other.ID, 99), apperror.ErrConflict)
}
