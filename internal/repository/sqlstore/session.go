package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

// SessionStore persists sessions by token hash. Rows are never deleted by
// logout, only stamped with ended_at, so a logged-out token cannot come back.
//
// SESSION ROW LIFECYCLE:
//
//	Create         row written with ended_at NULL
//	Get            row read on every authenticated request
//	End            ended_at stamped on logout (first logout wins)
//	DeleteExpired  row removed once expires_at has passed (`sessions prune`)
//
// Only the SHA-256 hash of a token is stored. A leaked database therefore
// holds nothing a client could present as a credential.
type SessionStore struct {
	db *DB
}

// Sessions returns the session store backed by db.
func (db *DB) Sessions() *SessionStore {
	return &SessionStore{db: db}
}

// Create writes a newly started session. Both timestamps are stored in UTC;
// the caller has already picked the expiry (default or remember-me).
func (s *SessionStore) Create(ctx context.Context, session *model.Session) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at, ended_at)
		 VALUES (?, ?, ?, ?, NULL)`),
		session.TokenHash,
		session.UserID,
		session.CreatedAt.UTC(),
		session.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating session: %w", err)
	}
	return nil
}

// Get loads a session by token hash, ended or not. Deciding whether it is
// still usable (expiry, logout) is the session service's job; an unknown
// hash is apperror.NotFound.
func (s *SessionStore) Get(ctx context.Context, tokenHash string) (*model.Session, error) {
	var (
		sess  model.Session
		ended sql.NullTime
	)
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT token_hash, user_id, created_at, expires_at, ended_at
		 FROM sessions WHERE token_hash = ?`), tokenHash,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &ended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The hash is not an identifier worth echoing back.
			return nil, apperror.NotFound("session", "token")
		}
		return nil, fmt.Errorf("sqlstore: getting session: %w", err)
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}

// End only stamps sessions that are still open, keeping the first logout time.
func (s *SessionStore) End(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`UPDATE sessions SET ended_at = ? WHERE token_hash = ? AND ended_at IS NULL`),
		at.UTC(), tokenHash)
	if err != nil {
		return fmt.Errorf("sqlstore: ending session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before cutoff, logged out or not.
func (s *SessionStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`DELETE FROM sessions WHERE expires_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlstore: deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}
