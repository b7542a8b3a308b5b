package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/repository"
)

// ActivityService writes and reads the per-user activity feed.
//
// Recording is a side effect of other operations and never fails them: a
// storage or broker error is logged and swallowed.
type ActivityService struct {
	repo      repository.OwnedRepository[model.Activity]
	publisher events.Publisher
	logger    *slog.Logger
}

// NewActivityService wires the feed to its table and to publisher. A nil
// publisher is allowed: entries are then stored but not broadcast.
func NewActivityService(repo repository.OwnedRepository[model.Activity], publisher events.Publisher, logger *slog.Logger) *ActivityService {
	return &ActivityService{repo: repo, publisher: publisher, logger: logger}
}

// Record stores one feed entry and publishes the matching event.
func (s *ActivityService) Record(ctx context.Context, ownerID, kind, collection, resourceID, message string) {
	entry := &model.Activity{Kind: kind, Message: message}
	if _, err := s.repo.Create(ctx, ownerID, entry, ""); err != nil {
		s.logger.Error("failed to record activity",
			slog.String("kind", kind),
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OwnerID:    ownerID,
		Collection: collection,
		ResourceID: resourceID,
		Message:    message,
		OccurredAt: entry.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("failed to publish activity event",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}

// List returns the caller's most recent entries, newest first.
func (s *ActivityService) List(ctx context.Context) ([]model.Activity, error) {
	ownerID, err := RequireOwner(ctx)
	if err != nil {
		return nil, err
	}
	feed, err := s.repo.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list activity", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return feed, nil
}

func loginMessage(method string) string {
	return "Signed in with " + method
}
