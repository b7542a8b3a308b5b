package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/travelboard/internal/client"
	"github.com/sakif/travelboard/internal/model"
)

// Dashboard is the set of cached collections a dashboard page shows.
// Bookings are not cached and stay server-only.
type Dashboard struct {
	Trips    *Reconciler[model.Trip]
	Wishlist *Reconciler[model.WishlistItem]
	Hotels   *Reconciler[model.Hotel]
	Saved    *Reconciler[model.SavedDestination]
}

// DashboardViews holds one render target per collection. TextViews builds
// the terminal set; a GUI would supply its own.
type DashboardViews struct {
	Trips    View[model.Trip]
	Wishlist View[model.WishlistItem]
	Hotels   View[model.Hotel]
	Saved    View[model.SavedDestination]
}

// TextViews renders every collection through p, one line per item:
//
//	trips     Lisbon weekend (Lisbon) 2025-05-01..2025-05-04 budget 850
//	wishlist  Kyoto: cherry blossom season
//	hotels    Hotel Avenida 2025-05-01..2025-05-04
//	saved     Porto, Portugal
func TextViews(p *Printer) DashboardViews {
	return DashboardViews{
		Trips: TextView(p, func(t model.Trip) string {
			s := fmt.Sprintf("%s (%s) %s..%s", t.Title, t.Destination, t.StartDate, t.EndDate)
			if t.Budget != nil {
				s += " budget " + t.Budget.String()
			}
			return s
		}),
		Wishlist: TextView(p, func(w model.WishlistItem) string {
			if w.Note != nil && *w.Note != "" {
				return w.Place + ": " + *w.Note
			}
			return w.Place
		}),
		Hotels: TextView(p, func(h model.Hotel) string {
			s := h.Place
			if h.CheckIn != nil && h.CheckOut != nil {
				s += fmt.Sprintf(" %s..%s", *h.CheckIn, *h.CheckOut)
			}
			return s
		}),
		Saved: TextView(p, func(d model.SavedDestination) string {
			return d.City + ", " + d.Country
		}),
	}
}

// NewDashboard wires the four cached collections of ownerID to c. Every
// cache key is scoped to ownerID through ForOwner, so one store can serve
// several accounts without their collections ever mixing.
//
// Typical use after sign-in:
//
//	d, err := reconcile.NewDashboard(c, store, user.ID, reconcile.TextViews(p), logger)
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//	err = d.Load(ctx)
//
// Nothing is fetched until Load.
func NewDashboard(c *client.Client, store LocalStore, ownerID string, views DashboardViews, logger *slog.Logger) (*Dashboard, error) {
	if ownerID == "" {
		return nil, errors.New("reconcile: dashboard needs the signed-in user's id")
	}
	store = ForOwner(store, ownerID)

	trips, err := New(Config[model.Trip]{
		Collection: model.CollectionTrips,
		Keys:       TripKeys,
		Store:      store,
		Remote:     client.NewCollection[model.Trip](c, model.CollectionTrips),
		View:       views.Trips,
		ID:         func(t model.Trip) string { return t.ID },
		WithID:     func(t model.Trip, id string) model.Trip { t.ID = id; return t },
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	wishlist, err := New(Config[model.WishlistItem]{
		Collection: model.CollectionWishlist,
		Keys:       WishlistKeys,
		Store:      store,
		Remote:     client.NewCollection[model.WishlistItem](c, model.CollectionWishlist),
		View:       views.Wishlist,
		ID:         func(w model.WishlistItem) string { return w.ID },
		WithID:     func(w model.WishlistItem, id string) model.WishlistItem { w.ID = id; return w },
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	hotels, err := New(Config[model.Hotel]{
		Collection: model.CollectionHotels,
		Keys:       HotelKeys,
		Store:      store,
		Remote:     client.NewCollection[model.Hotel](c, model.CollectionHotels),
		View:       views.Hotels,
		ID:         func(h model.Hotel) string { return h.ID },
		WithID:     func(h model.Hotel, id string) model.Hotel { h.ID = id; return h },
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	saved, err := New(Config[model.SavedDestination]{
		Collection: model.CollectionSaved,
		Keys:       SavedKeys,
		Store:      store,
		Remote:     client.NewCollection[model.SavedDestination](c, model.CollectionSaved),
		View:       views.Saved,
		ID:         func(d model.SavedDestination) string { return d.ID },
		WithID:     func(d model.SavedDestination, id string) model.SavedDestination { d.ID = id; return d },
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Dashboard{Trips: trips, Wishlist: wishlist, Hotels: hotels, Saved: saved}, nil
}

// Load loads every collection concurrently. A failing collection does not
// stop the others; the first error is returned once all have finished.
func (d *Dashboard) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return d.Trips.Load(ctx) })
	g.Go(func() error { return d.Wishlist.Load(ctx) })
	g.Go(func() error { return d.Hotels.Load(ctx) })
	g.Go(func() error { return d.Saved.Load(ctx) })
	return g.Wait()
}

// Close closes every collection, waiting for their background syncs.
func (d *Dashboard) Close() error {
	return errors.Join(
		d.Trips.Close(),
		d.Wishlist.Close(),
		d.Hotels.Close(),
		d.Saved.Close(),
	)
}
