package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/auth"
	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/model"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes of the repository interfaces. They implement just
// enough behaviour (uniqueness, owner scoping, idempotency) for the service
// logic to be exercised without a database.

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	err    error // returned by every call when set
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.DuplicateEmail()
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeUserRepo) LinkGitHub(_ context.Context, userID string, githubID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	id := githubID
	u.GitHubID = &id
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	err      error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *s
	f.sessions[s.TokenHash] = &cp
	return nil
}

func (f *fakeSessionRepo) Get(_ context.Context, hash string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[hash]
	if !ok {
		return nil, apperror.NotFound("session", "token")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) End(_ context.Context, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if s, ok := f.sessions[hash]; ok && s.EndedAt == nil {
		t := at
		s.EndedAt = &t
	}
	return nil
}

// only returns the single session stored, for tests that start exactly one.
func (f *fakeSessionRepo) only() *model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		return s
	}
	return nil
}

// fakeOwned is a generic owner-scoped store. idOf/setID/setOwner adapt it to T.
type fakeOwned[T any] struct {
	mu     sync.Mutex
	rows   []T
	owners []string
	keys   map[string]string // owner|key → id
	nextID int
	err    error

	idOf  func(*T) string
	setID func(*T, string)
}

func newFakeOwned[T any](idOf func(*T) string, setID func(*T, string)) *fakeOwned[T] {
	return &fakeOwned[T]{keys: make(map[string]string), idOf: idOf, setID: setID}
}

func (f *fakeOwned[T]) List(_ context.Context, ownerID string) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]T, 0)
	// newest first
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.owners[i] == ownerID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeOwned[T]) Get(_ context.Context, ownerID, id string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.rows {
		if f.owners[i] == ownerID && f.idOf(&f.rows[i]) == id {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("resource", id)
}

func (f *fakeOwned[T]) Create(_ context.Context, ownerID string, item *T, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if key != "" {
		if id, ok := f.keys[ownerID+"|"+key]; ok {
			for i := range f.rows {
				if f.idOf(&f.rows[i]) == id {
					*item = f.rows[i]
					return true, nil
				}
			}
		}
	}
	f.nextID++
	f.setID(item, fmt.Sprintf("id-%d", f.nextID))
	f.rows = append(f.rows, *item)
	f.owners = append(f.owners, ownerID)
	if key != "" {
		f.keys[ownerID+"|"+key] = f.idOf(item)
	}
	return false, nil
}

func (f *fakeOwned[T]) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.rows {
		if f.owners[i] == ownerID && f.idOf(&f.rows[i]) == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			f.owners = append(f.owners[:i], f.owners[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("resource", id)
}

func (f *fakeOwned[T]) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newFakeActivityRepo() *fakeOwned[model.Activity] {
	return newFakeOwned(
		func(a *model.Activity) string { return a.ID },
		func(a *model.Activity, id string) { a.ID, a.CreatedAt = id, time.Now() },
	)
}

func newFakeTripRepo() *fakeOwned[model.Trip] {
	return newFakeOwned(
		func(t *model.Trip) string { return t.ID },
		func(t *model.Trip, id string) { t.ID, t.CreatedAt = id, time.Now() },
	)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// =========================================================================
// WIRING
// =========================================================================

type testEnv struct {
	users     *fakeUserRepo
	sessions  *fakeSessionRepo
	activity  *fakeOwned[model.Activity]
	publisher *recordingPublisher

	sessionSvc  *SessionService
	authSvc     *AuthService
	activitySvc *ActivityService
	now         time.Time
}

func newTestEnv(t interface{ Fatalf(string, ...any) }) *testEnv {
	sealer, err := auth.NewSessionSealer("service-test-secret-123")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	env := &testEnv{
		users:     newFakeUserRepo(),
		sessions:  newFakeSessionRepo(),
		activity:  newFakeActivityRepo(),
		publisher: &recordingPublisher{},
		now:       time.Now(),
	}
	logger := newTestLogger()
	env.activitySvc = NewActivityService(env.activity, env.publisher, logger)
	env.sessionSvc = NewSessionService(env.sessions, env.users, sealer, SessionConfig{}, logger)
	env.sessionSvc.now = func() time.Time { return env.now }
	env.authSvc = NewAuthService(env.users, auth.NewPasswordService(bcrypt.MinCost), env.sessionSvc, env.activitySvc, logger)
	return env
}

// ownerCtx is a request context carrying an authenticated user.
func ownerCtx(userID string) context.Context {
	return auth.WithUser(context.Background(), &model.User{ID: userID})
}
