// Package reconcile keeps a client-side view of one collection consistent
// with the server while staying responsive.
//
// A Reconciler renders from the local cache first, replaces that with the
// server snapshot once it arrives, and applies adds and removes
// optimistically: the view changes at once and the server request runs in
// the background. A failed background request leaves the optimistic state
// in place and raises a Notice; it is never rolled back silently.
//
// Lifecycle: New → Load → (Add | Remove | Refresh)* → Close.
//
// WHAT THE VIEW SEES:
//
//	Load     cache render (when the cache holds items), then server render
//	Add      local render with a "local-<uuid>" id, later one with the server id
//	Remove   local render without the item, server delete in the background
//	Refresh  server render with pending local changes laid over it
//
// SEQUENCING:
// Every fetch takes the next sequence number. A response is applied only if
// no newer fetch has been applied first, so a slow response can never
// overwrite a newer snapshot.
//
// CACHE:
// The cache is the LocalStore entry under Keys.Canonical, a JSON array of
// items. Local adds and removes update it; a server snapshot does not, so
// items the server never confirmed survive a restart. Caches are per user:
// see ForOwner.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/travelboard/internal/apperror"
)

// ProvisionalPrefix marks ids assigned locally before the server confirmed
// a create.
const ProvisionalPrefix = "local-"

const defaultSyncTimeout = 30 * time.Second

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("reconcile: reconciler closed")

// IsProvisional reports whether id was assigned locally.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Source tells the view where the rendered items came from.
type Source int

const (
	SourceCache  Source = iota // local cache, before or instead of the server
	SourceServer               // a fresh server snapshot
	SourceLocal                // optimistic state after a local change
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceServer:
		return "server"
	case SourceLocal:
		return "local"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Level grades a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is a transient, user-visible message (a toast).
type Notice struct {
	Collection string
	Level      Level
	Message    string
	Err        error
}

// View is the render target. Calls are serialised per Reconciler and made
// while it holds its lock, so a View must not call back into it.
type View[T any] interface {
	Render(collection string, items []T, source Source)
	Notify(n Notice)
}

// Remote is the authoritative store for one collection.
type Remote[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T, idempotencyKey string) (T, error)
	Delete(ctx context.Context, id string) error
}

// Config wires a Reconciler to one collection. Collection, Store, Remote,
// View, ID and WithID are required; New rejects a config missing any of
// them. Logger defaults to a discarding logger.
type Config[T any] struct {
	Collection string
	Keys       Keys
	Store      LocalStore
	Remote     Remote[T]
	View       View[T]

	// ID reads an item's id; WithID returns a copy carrying id.
	ID     func(T) string
	WithID func(T, string) T

	Logger *slog.Logger
	// SyncTimeout bounds each background create or delete. Default 30s.
	SyncTimeout time.Duration
}

// deletion tracks a remove until the server has seen it. mark is the last
// fetch sequence issued when the delete completed: fetches issued at or
// before mark may still contain the row.
type deletion struct {
	done bool
	mark uint64
}

// Reconciler keeps one collection's view in step with the server.
//
// STATE:
// items is what the view shows; cache mirrors the canonical LocalStore
// entry. The maps track local changes the server has not caught up with,
// and merge uses them to lay those changes over each snapshot:
//
//	inflight  creates still running    → keep the provisional item
//	orphans   removed before confirmed → delete the server copy on arrival
//	created   confirmed after a fetch  → keep until a later fetch has it
//	deleted   removed locally          → hide until a later fetch lacks it
//
// All fields below mu are guarded by it.
type Reconciler[T any] struct {
	cfg  Config[T]
	view View[T] // nil after Close

	mu       sync.Mutex
	items    []T // render state
	cache    []T // mirror of the canonical cache entry
	rendered bool
	closed   bool

	seq     uint64 // last fetch issued
	applied uint64 // last fetch applied

	inflight map[string]bool     // provisional ids whose create is running
	orphans  map[string]bool     // provisional ids removed while their create runs
	created  map[string]uint64   // confirmed server ids → seq mark, like deletion.mark
	deleted  map[string]deletion // server ids removed locally

	wg sync.WaitGroup
}

// New checks cfg and returns an idle Reconciler. Nothing is read or fetched
// until Load.
func New[T any](cfg Config[T]) (*Reconciler[T], error) {
	switch {
	case cfg.Collection == "":
		return nil, errors.New("reconcile: collection is required")
	case cfg.Keys.Canonical == "":
		return nil, errors.New("reconcile: canonical cache key is required")
	case cfg.Store == nil, cfg.Remote == nil, cfg.View == nil:
		return nil, errors.New("reconcile: store, remote and view are required")
	case cfg.ID == nil || cfg.WithID == nil:
		return nil, errors.New("reconcile: ID and WithID are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultSyncTimeout
	}
	return &Reconciler[T]{
		cfg:      cfg,
		view:     cfg.View,
		inflight: make(map[string]bool),
		orphans:  make(map[string]bool),
		created:  make(map[string]uint64),
		deleted:  make(map[string]deletion),
	}, nil
}

// Migrate adopts legacy cache data: when the canonical entry is absent or
// empty, the first legacy key holding a non-empty list is copied to it.
// Legacy entries are never modified. A canonical entry with at least one
// item, or one that cannot be parsed, is never overwritten, so running
// Migrate again changes nothing. It returns the adopted legacy key, or "".
func (r *Reconciler[T]) Migrate() (string, error) {
	store := r.cfg.Store
	canonical, ok, err := store.Get(r.cfg.Keys.Canonical)
	if err != nil {
		return "", err
	}
	if ok {
		n, err := countItems(canonical)
		if err != nil {
			r.cfg.Logger.Warn("canonical cache unreadable, not migrating",
				slog.String("key", r.cfg.Keys.Canonical),
				slog.String("error", err.Error()),
			)
			return "", nil
		}
		if n > 0 {
			return "", nil
		}
	}

	for _, key := range r.cfg.Keys.Legacy {
		value, ok, err := store.Get(key)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		n, err := countItems(value)
		if err != nil {
			r.cfg.Logger.Warn("skipping unreadable legacy cache", slog.String("key", key))
			continue
		}
		if n == 0 {
			continue
		}
		if err := store.Set(r.cfg.Keys.Canonical, value); err != nil {
			return "", err
		}
		r.cfg.Logger.Info("migrated legacy cache",
			slog.String("from", key),
			slog.String("to", r.cfg.Keys.Canonical),
			slog.Int("items", n),
		)
		return key, nil
	}
	return "", nil
}

// countItems reports how many entries a legacy value holds. Blank values
// count as zero; anything that is not a JSON array is an error.
func countItems(value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return 0, err
	}
	return len(raw), nil
}

// Load migrates, renders the cache when it holds anything, then fetches.
// With a cache there is never an empty render while the fetch is running;
// if the fetch fails the cache render stays and the error is returned.
func (r *Reconciler[T]) Load(ctx context.Context) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if _, err := r.Migrate(); err != nil {
		r.cfg.Logger.Warn("cache migration failed", slog.String("error", err.Error()))
	}

	r.mu.Lock()
	cached, err := r.readCache()
	if err != nil {
		r.notify(LevelError, "could not read local cache", err)
	}
	r.cache = cached
	if len(cached) > 0 && !r.rendered {
		r.items = slices.Clone(cached)
		r.render(SourceCache)
	}
	r.mu.Unlock()

	return r.Refresh(ctx)
}

// Refresh fetches the server snapshot. Responses are applied in issue
// order: one that arrives after a newer fetch was applied is discarded.
func (r *Reconciler[T]) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	server, err := r.cfg.Remote.List(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq < r.applied {
		r.cfg.Logger.Debug("discarding stale fetch",
			slog.String("collection", r.cfg.Collection),
			slog.Uint64("seq", seq),
			slog.Uint64("applied", r.applied),
		)
		return nil
	}
	if err != nil {
		r.notify(LevelError, "could not load "+r.cfg.Collection, err)
		if !r.rendered {
			r.render(SourceCache)
		}
		return fmt.Errorf("reconcile: loading %s: %w", r.cfg.Collection, err)
	}

	r.applied = seq
	r.items = r.merge(seq, server)
	r.render(SourceServer)
	return nil
}

// merge builds the render state from a server snapshot: local changes the
// snapshot cannot reflect yet are laid over it.
//
// ORDER OF THE RESULT:
//  1. Provisional items, newest first (pending or failed creates).
//  2. The snapshot in server order, minus rows removed locally.
//  3. Creates confirmed after fetch seq was issued, unless the snapshot
//     already has them.
//
// Called with r.mu held.
func (r *Reconciler[T]) merge(seq uint64, server []T) []T {
	out := make([]T, 0, len(server)+len(r.inflight))
	seen := make(map[string]bool, len(server))

	// Provisional items (pending or failed creates) stay visible.
	for _, it := range r.items {
		if IsProvisional(r.cfg.ID(it)) {
			out = append(out, it)
		}
	}
	// Creates confirmed after this fetch was issued.
	fresh := make([]T, 0)
	for _, it := range r.items {
		id := r.cfg.ID(it)
		if mark, ok := r.created[id]; ok && seq <= mark {
			fresh = append(fresh, it)
		}
	}

	for _, it := range server {
		id := r.cfg.ID(it)
		if d, ok := r.deleted[id]; ok && (!d.done || seq <= d.mark) {
			continue
		}
		seen[id] = true
		out = append(out, it)
	}
	for _, it := range fresh {
		if !seen[r.cfg.ID(it)] {
			out = append(out, it)
		}
	}

	for id, d := range r.deleted {
		if d.done && seq > d.mark {
			delete(r.deleted, id)
		}
	}
	for id, mark := range r.created {
		if seq > mark {
			delete(r.created, id)
		}
	}
	return out
}

// Add shows item at once under a provisional id, caches it and creates it
// on the server in the background with a fresh idempotency key. The
// returned copy carries the provisional id.
func (r *Reconciler[T]) Add(ctx context.Context, item T) (T, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}

	pid := ProvisionalPrefix + uuid.NewString()
	item = r.cfg.WithID(item, pid)
	r.items = slices.Insert(r.items, 0, item)
	r.cache = slices.Insert(r.cache, 0, item)
	r.persist()
	r.inflight[pid] = true
	r.render(SourceLocal)

	r.wg.Add(1)
	r.mu.Unlock()

	go r.create(ctx, pid, item, uuid.NewString())
	return item, nil
}

// create sends item to the server under idempotency key and settles the
// provisional id pid:
//
//	failure            item stays local, user is notified
//	removed meanwhile  server copy is deleted again
//	success            pid is swapped for the server id in view and cache
func (r *Reconciler[T]) create(ctx context.Context, pid string, item T, key string) {
	defer r.wg.Done()
	ctx, cancel := r.syncContext(ctx)
	defer cancel()

	created, err := r.cfg.Remote.Create(ctx, item, key)

	r.mu.Lock()
	delete(r.inflight, pid)
	if err != nil {
		r.notify(LevelError, "could not save to "+r.cfg.Collection+"; kept locally", err)
		r.mu.Unlock()
		return
	}

	id := r.cfg.ID(created)
	if r.orphans[pid] {
		// Removed while the create was running: take the server copy back.
		delete(r.orphans, pid)
		r.mu.Unlock()
		if err := r.cfg.Remote.Delete(ctx, id); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			r.mu.Lock()
			r.notify(LevelError, "could not remove from "+r.cfg.Collection, err)
			r.mu.Unlock()
		}
		return
	}

	r.items = r.replace(r.items, pid, created)
	r.cache = r.replace(r.cache, pid, created)
	r.persist()
	r.created[id] = r.seq
	r.render(SourceLocal)
	r.mu.Unlock()
}

// Remove drops the item from the view and the cache at once and deletes it
// on the server in the background. An id that is neither rendered nor
// cached is NotFound.
func (r *Reconciler[T]) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	var inItems, inCache bool
	r.items, inItems = r.without(r.items, id)
	r.cache, inCache = r.without(r.cache, id)
	if !inItems && !inCache {
		r.mu.Unlock()
		return fmt.Errorf("reconcile: %s %q: %w", r.cfg.Collection, id, apperror.ErrNotFound)
	}
	r.persist()
	r.render(SourceLocal)

	if IsProvisional(id) {
		// Never reached the server, or is still on its way there.
		if r.inflight[id] {
			r.orphans[id] = true
		}
		r.mu.Unlock()
		return nil
	}

	r.deleted[id] = deletion{}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.remove(ctx, id)
	return nil
}

// remove deletes id on the server. NotFound counts as success. On failure
// the tombstone is dropped, so the next snapshot brings the item back.
func (r *Reconciler[T]) remove(ctx context.Context, id string) {
	defer r.wg.Done()
	ctx, cancel := r.syncContext(ctx)
	defer cancel()

	err := r.cfg.Remote.Delete(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		delete(r.deleted, id)
		r.notify(LevelError, "could not remove from "+r.cfg.Collection, err)
		return
	}
	r.deleted[id] = deletion{done: true, mark: r.seq}
}

// Items returns a copy of the render state.
func (r *Reconciler[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// Wait blocks until every background create and delete has finished.
func (r *Reconciler[T]) Wait() {
	r.wg.Wait()
}

// Close rejects further operations, waits for background syncs and
// detaches the view. Closing twice is a no-op.
func (r *Reconciler[T]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	r.view = nil
	r.mu.Unlock()
	return nil
}

// syncContext detaches background work from the caller's cancellation but
// keeps its values, and bounds it by SyncTimeout.
func (r *Reconciler[T]) syncContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.cfg.SyncTimeout)
}

// The helpers below expect r.mu to be held.

func (r *Reconciler[T]) render(src Source) {
	r.rendered = true
	if r.view != nil {
		r.view.Render(r.cfg.Collection, slices.Clone(r.items), src)
	}
}

func (r *Reconciler[T]) notify(level Level, msg string, err error) {
	if level == LevelError {
		r.cfg.Logger.Warn(msg, slog.String("collection", r.cfg.Collection), slog.Any("error", err))
	}
	if r.view != nil {
		r.view.Notify(Notice{Collection: r.cfg.Collection, Level: level, Message: msg, Err: err})
	}
}

// readCache decodes the canonical entry. Missing or blank means empty.
func (r *Reconciler[T]) readCache() ([]T, error) {
	value, ok, err := r.cfg.Store.Get(r.cfg.Keys.Canonical)
	if err != nil || !ok || strings.TrimSpace(value) == "" {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, fmt.Errorf("reconcile: decoding %s: %w", r.cfg.Keys.Canonical, err)
	}
	return items, nil
}

// persist writes r.cache back to the canonical key. A store failure is
// reported to the view; the in-memory state is kept either way.
func (r *Reconciler[T]) persist() {
	b, err := json.Marshal(r.cache)
	if err == nil {
		err = r.cfg.Store.Set(r.cfg.Keys.Canonical, string(b))
	}
	if err != nil {
		r.notify(LevelError, "could not update local cache", err)
	}
}

func (r *Reconciler[T]) without(items []T, id string) ([]T, bool) {
	i := slices.IndexFunc(items, func(it T) bool { return r.cfg.ID(it) == id })
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}

func (r *Reconciler[T]) replace(items []T, id string, with T) []T {
	if i := slices.IndexFunc(items, func(it T) bool { return r.cfg.ID(it) == id }); i >= 0 {
		items[i] = with
	}
	return items
}
