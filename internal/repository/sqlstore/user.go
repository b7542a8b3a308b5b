package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore persists accounts in the users table.
//
// COLUMNS:
//
//	id             xid assigned by Create
//	email          normalised (trimmed, lower-case), UNIQUE
//	display_name   full name as entered
//	password_hash  bcrypt encoding, "" for GitHub-only accounts
//	github_id      NULL until a GitHub account is linked, UNIQUE
//	created_at     UTC
//
// Lookups that find nothing return apperror.NotFound; uniqueness violations
// are translated to apperror conflicts so the service layer never sees a
// driver error for an expected outcome.
type UserStore struct {
	db *DB
}

// Users returns the account store backed by db.
func (db *DB) Users() *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, display_name, password_hash, github_id, created_at`

// Create relies on the UNIQUE constraint for email uniqueness, so two
// concurrent registrations for one address cannot both succeed.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		nullInt64(user.GitHubID),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return apperror.DuplicateEmail()
		}
		if isUniqueViolation(err, "github_id") {
			return apperror.Conflict("user", strconv.FormatInt(*user.GitHubID, 10))
		}
		return fmt.Errorf("sqlstore: creating user: %w", err)
	}
	return nil
}

// GetByID loads the account a session points at. An unknown id is
// apperror.NotFound, which the session service treats as a dead session.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getBy(ctx, "id", id, id)
}

// GetByEmail expects an already-normalised address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getBy(ctx, "email", email, email)
}

// GetByGitHubID finds the account linked to a GitHub user id.
func (s *UserStore) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.getBy(ctx, "github_id", githubID, strconv.FormatInt(githubID, 10))
}

// LinkGitHub attaches a GitHub account to an existing (password) user.
func (s *UserStore) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`UPDATE users SET github_id = ? WHERE id = ?`), githubID, userID)
	if err != nil {
		if isUniqueViolation(err, "github_id") {
			return apperror.Conflict("user", strconv.FormatInt(githubID, 10))
		}
		return fmt.Errorf("sqlstore: linking github account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: linking github account: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// column is always one of our own literals, never user input.
func (s *UserStore) getBy(ctx context.Context, column string, value any, label string) (*model.User, error) {
	row := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`), value)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", label)
		}
		return nil, fmt.Errorf("sqlstore: getting user by %s: %w", column, err)
	}
	return user, nil
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &githubID, &u.CreatedAt); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}
