package sqlstore

import (
	"database/sql"
	"time"

	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

// =========================================================================
// TABLE DESCRIPTORS
// =========================================================================
//
// Each constructor below describes one table to the generic Collection[T]:
// which columns follow id and owner_id, how rows are ordered, and how a T
// is written and read. Adding a collection means adding a migration, a
// model type and one descriptor here.
//
// ORDERING (what the list endpoints return):
//
//	trips               start_date DESC, then title, then id
//	wishlist            added_at   DESC, then id DESC
//	hotels              created_at DESC, then id DESC
//	saved_destinations  saved_at   DESC, then city, then id
//	bookings            created_at DESC, then id DESC
//	activity            created_at DESC, then id DESC, at most ActivityLimit
//
// The id tie-breakers make the order total, so two rows stamped in the same
// second still list the same way every time.
//
// MONEY AND NULLS:
// Amounts are stored as integer cents (*_cents columns). Optional fields are
// pointers in the model and NULL in the table; the helpers at the bottom of
// this file convert between the two.

var (
	_ repository.OwnedRepository[model.Trip]             = (*Collection[model.Trip])(nil)
	_ repository.OwnedRepository[model.WishlistItem]     = (*Collection[model.WishlistItem])(nil)
	_ repository.OwnedRepository[model.Hotel]            = (*Collection[model.Hotel])(nil)
	_ repository.OwnedRepository[model.SavedDestination] = (*Collection[model.SavedDestination])(nil)
	_ repository.OwnedRepository[model.Booking]          = (*Collection[model.Booking])(nil)
	_ repository.OwnedRepository[model.Activity]         = (*Collection[model.Activity])(nil)
)

// ActivityLimit caps the activity feed: GET /api/activity returns at most
// this many entries, newest first.
const ActivityLimit = 20

// Trips stores trips. budget_cents is NULL when no budget was given.
func (db *DB) Trips() *Collection[model.Trip] {
	return newCollection(db, table[model.Trip]{
		collection: model.CollectionTrips,
		resource:   "trip",
		name:       "trips",
		columns:    []string{"title", "destination", "start_date", "end_date", "budget_cents", "created_at"},
		orderBy:    "start_date DESC, title ASC, id ASC",
		stamp: func(t *model.Trip, id, ownerID string, now time.Time) {
			t.ID, t.OwnerID, t.CreatedAt = id, ownerID, now
		},
		values: func(t *model.Trip) []any {
			return []any{t.Title, t.Destination, t.StartDate, t.EndDate, nullMoney(t.Budget), t.CreatedAt}
		},
		scan: func(row scanner) (model.Trip, error) {
			var (
				t      model.Trip
				budget sql.NullInt64
			)
			err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Destination, &t.StartDate, &t.EndDate, &budget, &t.CreatedAt)
			t.Budget = moneyPtr(budget)
			return t, err
		},
		id: func(t *model.Trip) string { return t.ID },
	})
}

// Wishlist stores wishlist places with an optional note.
func (db *DB) Wishlist() *Collection[model.WishlistItem] {
	return newCollection(db, table[model.WishlistItem]{
		collection: model.CollectionWishlist,
		resource:   "wishlist item",
		name:       "wishlist",
		columns:    []string{"place", "note", "added_at"},
		orderBy:    "added_at DESC, id DESC",
		stamp: func(w *model.WishlistItem, id, ownerID string, now time.Time) {
			w.ID, w.OwnerID, w.AddedAt = id, ownerID, now
		},
		values: func(w *model.WishlistItem) []any {
			return []any{w.Place, nullString(w.Note), w.AddedAt}
		},
		scan: func(row scanner) (model.WishlistItem, error) {
			var (
				w    model.WishlistItem
				note sql.NullString
			)
			err := row.Scan(&w.ID, &w.OwnerID, &w.Place, &note, &w.AddedAt)
			w.Note = stringPtr(note)
			return w, err
		},
		id: func(w *model.WishlistItem) string { return w.ID },
	})
}

// Hotels stores hotel stays; check-in and check-out are optional.
func (db *DB) Hotels() *Collection[model.Hotel] {
	return newCollection(db, table[model.Hotel]{
		collection: model.CollectionHotels,
		resource:   "hotel",
		name:       "hotels",
		columns:    []string{"place", "note", "check_in", "check_out", "created_at"},
		orderBy:    "created_at DESC, id DESC",
		stamp: func(h *model.Hotel, id, ownerID string, now time.Time) {
			h.ID, h.OwnerID, h.CreatedAt = id, ownerID, now
		},
		values: func(h *model.Hotel) []any {
			return []any{h.Place, nullString(h.Note), nullString(h.CheckIn), nullString(h.CheckOut), h.CreatedAt}
		},
		scan: func(row scanner) (model.Hotel, error) {
			var (
				h                       model.Hotel
				note, checkIn, checkOut sql.NullString
			)
			err := row.Scan(&h.ID, &h.OwnerID, &h.Place, &note, &checkIn, &checkOut, &h.CreatedAt)
			h.Note, h.CheckIn, h.CheckOut = stringPtr(note), stringPtr(checkIn), stringPtr(checkOut)
			return h, err
		},
		id: func(h *model.Hotel) string { return h.ID },
	})
}

// SavedDestinations stores cities saved from the destination catalog.
func (db *DB) SavedDestinations() *Collection[model.SavedDestination] {
	return newCollection(db, table[model.SavedDestination]{
		collection: model.CollectionSaved,
		resource:   "saved destination",
		name:       "saved_destinations",
		columns:    []string{"city", "country", "region", "saved_at"},
		orderBy:    "saved_at DESC, city ASC, id ASC",
		stamp: func(s *model.SavedDestination, id, ownerID string, now time.Time) {
			s.ID, s.OwnerID, s.SavedAt = id, ownerID, now
		},
		values: func(s *model.SavedDestination) []any {
			return []any{s.City, s.Country, nullString(s.Region), s.SavedAt}
		},
		scan: func(row scanner) (model.SavedDestination, error) {
			var (
				s      model.SavedDestination
				region sql.NullString
			)
			err := row.Scan(&s.ID, &s.OwnerID, &s.City, &s.Country, &region, &s.SavedAt)
			s.Region = stringPtr(region)
			return s, err
		},
		id: func(s *model.SavedDestination) string { return s.ID },
	})
}

// Bookings stores flight bookings. Both prices are cents; the total is
// whatever the client computed and is not re-derived here.
func (db *DB) Bookings() *Collection[model.Booking] {
	return newCollection(db, table[model.Booking]{
		collection: model.CollectionBookings,
		resource:   "booking",
		name:       "bookings",
		columns: []string{
			"from_city", "to_city", "flight_date", "airline", "passengers",
			"price_per_person_cents", "total_cents", "duration", "created_at",
		},
		orderBy: "created_at DESC, id DESC",
		stamp: func(b *model.Booking, id, ownerID string, now time.Time) {
			b.ID, b.OwnerID, b.CreatedAt = id, ownerID, now
		},
		values: func(b *model.Booking) []any {
			return []any{
				b.From, b.To, b.FlightDate, b.Airline, int64(b.Passengers),
				int64(b.PricePerPerson), int64(b.Total), nullString(b.Duration), b.CreatedAt,
			}
		},
		scan: func(row scanner) (model.Booking, error) {
			var (
				b            model.Booking
				price, total int64
				duration     sql.NullString
			)
			err := row.Scan(&b.ID, &b.OwnerID, &b.From, &b.To, &b.FlightDate, &b.Airline, &b.Passengers,
				&price, &total, &duration, &b.CreatedAt)
			b.PricePerPerson, b.Total = model.Money(price), model.Money(total)
			b.Duration = stringPtr(duration)
			return b, err
		},
		id: func(b *model.Booking) string { return b.ID },
	})
}

// Activity stores the feed written by service.ActivityService. It goes
// through the same Collection[T] as the resources, so the feed is owner
// scoped exactly like them.
func (db *DB) Activity() *Collection[model.Activity] {
	return newCollection(db, table[model.Activity]{
		collection: model.CollectionActivity,
		resource:   "activity",
		name:       "activity",
		columns:    []string{"kind", "message", "created_at"},
		orderBy:    "created_at DESC, id DESC",
		limit:      ActivityLimit,
		stamp: func(a *model.Activity, id, ownerID string, now time.Time) {
			a.ID, a.OwnerID, a.CreatedAt = id, ownerID, now
		},
		values: func(a *model.Activity) []any {
			return []any{a.Kind, a.Message, a.CreatedAt}
		},
		scan: func(row scanner) (model.Activity, error) {
			var a model.Activity
			err := row.Scan(&a.ID, &a.OwnerID, &a.Kind, &a.Message, &a.CreatedAt)
			return a, err
		},
		id: func(a *model.Activity) string { return a.ID },
	})
}

// =========================================================================
// NULL HELPERS
// =========================================================================

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullMoney(m *model.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

func moneyPtr(n sql.NullInt64) *model.Money {
	if !n.Valid {
		return nil
	}
	m := model.Money(n.Int64)
	return &m
}
