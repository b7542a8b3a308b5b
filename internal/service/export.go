package service

import (
	"context"
	"time"

	"github.com/sakif/travelboard/internal/model"
)

// Export is a snapshot of every collection the caller owns. As JSON:
//
//	{
//	  "exported_at": "2026-05-01T10:00:00Z",
//	  "trips": [...],
//	  "wishlist": [...],
//	  "hotels": [...],
//	  "saved": [...],
//	  "bookings": [...]
//	}
//
// Empty collections are [] rather than null.
type Export struct {
	ExportedAt time.Time                `json:"exported_at"`
	Trips      []model.Trip             `json:"trips"`
	Wishlist   []model.WishlistItem     `json:"wishlist"`
	Hotels     []model.Hotel            `json:"hotels"`
	Saved      []model.SavedDestination `json:"saved"`
	Bookings   []model.Booking          `json:"bookings"`
}

// ExportService assembles an Export from the per-collection services, so
// ownership and ordering are exactly those of the list endpoints.
type ExportService struct {
	trips    *ResourceService[model.Trip]
	wishlist *ResourceService[model.WishlistItem]
	hotels   *ResourceService[model.Hotel]
	saved    *ResourceService[model.SavedDestination]
	bookings *ResourceService[model.Booking]

	now func() time.Time
}

// NewExportService reads through the given collection services. Pass the
// same instances the HTTP routes use.
func NewExportService(
	trips *ResourceService[model.Trip],
	wishlist *ResourceService[model.WishlistItem],
	hotels *ResourceService[model.Hotel],
	saved *ResourceService[model.SavedDestination],
	bookings *ResourceService[model.Booking],
) *ExportService {
	return &ExportService{
		trips:    trips,
		wishlist: wishlist,
		hotels:   hotels,
		saved:    saved,
		bookings: bookings,
		now:      time.Now,
	}
}

// Export lists every collection of the caller in turn. The collections are
// read one after another, not in a transaction, so an export taken during
// a write may include it in one collection and not yet in another.
func (s *ExportService) Export(ctx context.Context) (*Export, error) {
	if _, err := RequireOwner(ctx); err != nil {
		return nil, err
	}

	out := &Export{ExportedAt: s.now().UTC()}
	var err error
	if out.Trips, err = s.trips.List(ctx); err != nil {
		return nil, err
	}
	if out.Wishlist, err = s.wishlist.List(ctx); err != nil {
		return nil, err
	}
	if out.Hotels, err = s.hotels.List(ctx); err != nil {
		return nil, err
	}
	if out.Saved, err = s.saved.List(ctx); err != nil {
		return nil, err
	}
	if out.Bookings, err = s.bookings.List(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
