package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

// kind describes one resource type to the generic service.
type kind[T any] struct {
	collection string
	resource   string // singular, used in event kinds: "trip" → "trip.created"
	validate   func(*T) error
	id         func(*T) string
	label      func(*T) string // human label for activity messages
}

// ResourceService is the list/create/delete contract shared by every
// user-owned collection. All methods require an authenticated owner in ctx.
//
// REQUEST FLOW:
//
//	CollectionHandler[T] (HTTP) → ResourceService[T] → OwnedRepository[T] (DB)
//	                                                 ↘ ActivityService (feed + events)
//
// The owner always comes from the context, never from the request body, so
// a client cannot create or delete on someone else's behalf. Domain errors
// (*apperror.AppError) pass through unchanged; anything else is logged here
// and wrapped, and the handler answers it with a generic 500.
type ResourceService[T any] struct {
	kind     kind[T]
	repo     repository.OwnedRepository[T]
	activity *ActivityService
	logger   *slog.Logger
}

func newResourceService[T any](k kind[T], repo repository.OwnedRepository[T], activity *ActivityService, logger *slog.Logger) *ResourceService[T] {
	return &ResourceService[T]{kind: k, repo: repo, activity: activity, logger: logger}
}

// Collection is the collection name, e.g. "trips".
func (s *ResourceService[T]) Collection() string {
	return s.kind.collection
}

// List returns the caller's items in the collection's display order.
func (s *ResourceService[T]) List(ctx context.Context) ([]T, error) {
	ownerID, err := RequireOwner(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list "+s.kind.collection,
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing %s: %w", s.kind.collection, err)
	}
	return items, nil
}

// Create validates item, stores it under the caller and returns it with its
// server-assigned id. With an idempotency key, a retry returns the resource
// stored by the first attempt (replayed=true) instead of inserting again.
func (s *ResourceService[T]) Create(ctx context.Context, item *T, idempotencyKey string) (replayed bool, err error) {
	ownerID, err := RequireOwner(ctx)
	if err != nil {
		return false, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		if _, err := uuid.Parse(idempotencyKey); err != nil {
			return false, apperror.ValidationFailed("Idempotency-Key", "Idempotency-Key must be a UUID")
		}
	}
	if err := s.kind.validate(item); err != nil {
		return false, err
	}

	replayed, err = s.repo.Create(ctx, ownerID, item, idempotencyKey)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return false, err
		}
		s.logger.Error("failed to create "+s.kind.resource,
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("creating %s: %w", s.kind.resource, err)
	}

	id := s.kind.id(item)
	if replayed {
		s.logger.Info(s.kind.resource+" create replayed", slog.String("id", id))
		return true, nil
	}

	s.logger.Info(s.kind.resource+" created", slog.String("id", id), slog.String("owner_id", ownerID))
	s.activity.Record(ctx, ownerID, events.Created(s.kind.resource), s.kind.collection, id,
		fmt.Sprintf("Added %s %s", s.kind.resource, s.kind.label(item)))
	return false, nil
}

// Delete removes one of the caller's resources. A foreign or unknown id is
// NotFound and nothing is removed.
func (s *ResourceService[T]) Delete(ctx context.Context, id string) error {
	ownerID, err := RequireOwner(ctx)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.NotFound(s.kind.resource, id)
	}

	// Fetched first only for the activity label; ownership is enforced by the
	// scoped delete below either way.
	existing, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return s.storageError("get", ownerID, err)
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return s.storageError("delete", ownerID, err)
	}

	s.logger.Info(s.kind.resource+" deleted", slog.String("id", id), slog.String("owner_id", ownerID))
	s.activity.Record(ctx, ownerID, events.Deleted(s.kind.resource), s.kind.collection, id,
		fmt.Sprintf("Removed %s %s", s.kind.resource, s.kind.label(existing)))
	return nil
}

// storageError passes domain errors through and logs anything else.
func (s *ResourceService[T]) storageError(op, ownerID string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("failed to "+op+" "+s.kind.resource,
		slog.String("owner_id", ownerID),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s %s: %w", op, s.kind.resource, err)
}

// =========================================================================
// COLLECTIONS
// =========================================================================
//
// One constructor per resource type. Each binds the generic service to its
// validation rules and to the label used in activity messages, e.g.
// "Added trip \"Spring\" to Kyoto".

// NewTripService serves /api/trips. Trips are checked by validateTrip
// (title, destination, dates in order, non-negative budget).
func NewTripService(repo repository.OwnedRepository[model.Trip], activity *ActivityService, logger *slog.Logger) *ResourceService[model.Trip] {
	return newResourceService(kind[model.Trip]{
		collection: model.CollectionTrips,
		resource:   "trip",
		validate:   validateTrip,
		id:         func(t *model.Trip) string { return t.ID },
		label:      func(t *model.Trip) string { return fmt.Sprintf("%q to %s", t.Title, t.Destination) },
	}, repo, activity, logger)
}

// NewWishlistService serves /api/wishlist. Duplicate places are allowed.
func NewWishlistService(repo repository.OwnedRepository[model.WishlistItem], activity *ActivityService, logger *slog.Logger) *ResourceService[model.WishlistItem] {
	return newResourceService(kind[model.WishlistItem]{
		collection: model.CollectionWishlist,
		resource:   "wishlist",
		validate:   validateWishlistItem,
		id:         func(w *model.WishlistItem) string { return w.ID },
		label:      func(w *model.WishlistItem) string { return w.Place },
	}, repo, activity, logger)
}

// NewHotelService serves /api/hotels.
func NewHotelService(repo repository.OwnedRepository[model.Hotel], activity *ActivityService, logger *slog.Logger) *ResourceService[model.Hotel] {
	return newResourceService(kind[model.Hotel]{
		collection: model.CollectionHotels,
		resource:   "hotel",
		validate:   validateHotel,
		id:         func(h *model.Hotel) string { return h.ID },
		label:      func(h *model.Hotel) string { return h.Place },
	}, repo, activity, logger)
}

// NewSavedDestinationService serves /api/saved. Activity messages read
// "Added destination Lisbon, Portugal".
func NewSavedDestinationService(repo repository.OwnedRepository[model.SavedDestination], activity *ActivityService, logger *slog.Logger) *ResourceService[model.SavedDestination] {
	return newResourceService(kind[model.SavedDestination]{
		collection: model.CollectionSaved,
		resource:   "destination",
		validate:   validateSavedDestination,
		id:         func(s *model.SavedDestination) string { return s.ID },
		label:      func(s *model.SavedDestination) string { return s.City + ", " + s.Country },
	}, repo, activity, logger)
}

// NewBookingService serves /api/bookings, the flight bookings collection.
func NewBookingService(repo repository.OwnedRepository[model.Booking], activity *ActivityService, logger *slog.Logger) *ResourceService[model.Booking] {
	return newResourceService(kind[model.Booking]{
		collection: model.CollectionBookings,
		resource:   "booking",
		validate:   validateBooking,
		id:         func(b *model.Booking) string { return b.ID },
		label: func(b *model.Booking) string {
			return fmt.Sprintf("%s → %s on %s", b.From, b.To, b.FlightDate)
		},
	}, repo, activity, logger)
}
