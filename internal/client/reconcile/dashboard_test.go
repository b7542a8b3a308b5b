package reconcile_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/travelboard/internal/client"
	"github.com/sakif/travelboard/internal/client/reconcile"
	"github.com/sakif/travelboard/internal/config"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository/sqlstore"
	"github.com/sakif/travelboard/internal/server"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlstore.OpenMigrated(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		DBDriver:      sqlstore.DriverSQLite,
		SessionSecret: "dashboard-test-secret-0123456789",
		SessionTTL:    time.Hour,
		RememberTTL:   24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
		MaxBodyBytes:  1 << 20,
	}
	s, err := server.New(cfg, db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestDashboardAgainstServer(t *testing.T) {
	ts := newAPI(t)
	ctx := context.Background()

	c, err := client.New(ts.URL, nil)
	require.NoError(t, err)
	ann, err := c.Register(ctx, "Ann", "ann@example.com", "secret123")
	require.NoError(t, err)

	trips := client.NewCollection[model.Trip](c, model.CollectionTrips)
	_, err = trips.Create(ctx, model.Trip{
		Title: "Spring in Kyoto", Destination: "Kyoto",
		StartDate: "2026-04-01", EndDate: "2026-04-08",
	}, "")
	require.NoError(t, err)

	// An older front end left a wishlist behind under a legacy key.
	store := reconcile.NewMemoryStore()
	legacy, err := json.Marshal([]model.WishlistItem{{ID: "legacy-1", Place: "Cached Place"}})
	require.NoError(t, err)
	require.NoError(t, reconcile.ForOwner(store, ann.ID).Set("gt_wishlist", string(legacy)))

	var out strings.Builder
	d, err := reconcile.NewDashboard(c, store, ann.ID, reconcile.TextViews(reconcile.NewPrinter(&out)), nil)
	require.NoError(t, err)

	require.NoError(t, d.Load(ctx))

	require.Len(t, d.Trips.Items(), 1)
	assert.Equal(t, "Spring in Kyoto", d.Trips.Items()[0].Title)
	assert.Empty(t, d.Wishlist.Items(), "server snapshot replaces the cached render")
	assert.Contains(t, out.String(), "wishlist (1, cache)\n  - Cached Place\n")
	assert.Contains(t, out.String(), "trips (1, server)\n  - Spring in Kyoto (Kyoto) 2026-04-01..2026-04-08\n")

	_, err = d.Wishlist.Add(ctx, model.WishlistItem{Place: "Lisbon"})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	remote, err := client.NewCollection[model.WishlistItem](c, model.CollectionWishlist).List(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "Lisbon", remote[0].Place)
	assert.Equal(t, remote[0].ID, d.Wishlist.Items()[0].ID, "provisional id replaced by the server id")

	canonical, ok, err := reconcile.ForOwner(store, ann.ID).Get(reconcile.WishlistKeys.Canonical)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, canonical, "Lisbon")
	assert.Contains(t, canonical, "Cached Place")
}

func TestDashboardKeepsUsersApartInOneStore(t *testing.T) {
	ts := newAPI(t)
	ctx := context.Background()
	store, err := reconcile.OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	signUp := func(name, email string) (*client.Client, *model.User) {
		c, err := client.New(ts.URL, nil)
		require.NoError(t, err)
		u, err := c.Register(ctx, name, email, "secret123")
		require.NoError(t, err)
		return c, u
	}

	annClient, ann := signUp("Ann", "ann@example.com")
	var annOut strings.Builder
	annBoard, err := reconcile.NewDashboard(annClient, store, ann.ID, reconcile.TextViews(reconcile.NewPrinter(&annOut)), nil)
	require.NoError(t, err)
	require.NoError(t, annBoard.Load(ctx))
	_, err = annBoard.Wishlist.Add(ctx, model.WishlistItem{Place: "Ann's Lisbon"})
	require.NoError(t, err)
	_, err = annBoard.Trips.Add(ctx, model.Trip{
		Title: "Ann's Trip", Destination: "Porto", StartDate: "2026-05-01", EndDate: "2026-05-03",
	})
	require.NoError(t, err)
	require.NoError(t, annBoard.Close())

	bobClient, bob := signUp("Bob", "bob@example.com")
	var bobOut strings.Builder
	bobBoard, err := reconcile.NewDashboard(bobClient, store, bob.ID, reconcile.TextViews(reconcile.NewPrinter(&bobOut)), nil)
	require.NoError(t, err)
	require.NoError(t, bobBoard.Load(ctx))
	require.NoError(t, bobBoard.Close())

	assert.NotContains(t, bobOut.String(), "Ann's", "bob's dashboard printed ann's data")
	assert.NotContains(t, bobOut.String(), "cache)", "bob has no cache of his own yet")
	assert.Empty(t, bobBoard.Wishlist.Items())
	assert.Empty(t, bobBoard.Trips.Items())

	_, ok, err := reconcile.ForOwner(store, bob.ID).Get(reconcile.WishlistKeys.Canonical)
	require.NoError(t, err)
	assert.False(t, ok)

	annCache, ok, err := reconcile.ForOwner(store, ann.ID).Get(reconcile.WishlistKeys.Canonical)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, annCache, "Ann's Lisbon")
}

func TestNewDashboardRequiresOwner(t *testing.T) {
	c, err := client.New("http://localhost:1", nil)
	require.NoError(t, err)
	_, err = reconcile.NewDashboard(c, reconcile.NewMemoryStore(), "", reconcile.TextViews(reconcile.NewPrinter(io.Discard)), nil)
	assert.Error(t, err)
}
