// Package events fans activity out of the process. The activity table is
// the record the dashboard reads; publishers are best-effort notifications
// for anything else that wants to react (mailers, analytics).
package events

import (
	"context"
	"log/slog"
	"time"
)

// Kinds written by the server.
const (
	KindLogin    = "auth.login"
	KindRegister = "auth.register"
)

// Created and Deleted build the kind for a collection mutation,
// e.g. "trip.created".
func Created(resource string) string { return resource + ".created" }
func Deleted(resource string) string { return resource + ".deleted" }

// Event is one activity entry as it leaves the process. It mirrors the
// activity row plus the collection and resource it concerns.
//
// EXAMPLE (JSON body on the queue):
//
//	{
//	  "id": "cq3h5v2n0k8s73c0g4tg",
//	  "kind": "trip.created",
//	  "owner_id": "cq3h5f2n0k8s73c0g4s0",
//	  "collection": "trips",
//	  "resource_id": "cq3h5v2n0k8s73c0g4t0",
//	  "message": "Added trip \"Spring\" to Kyoto",
//	  "occurred_at": "2026-04-01T09:30:00Z"
//	}
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	OwnerID    string    `json:"owner_id"`
	Collection string    `json:"collection,omitempty"`
	ResourceID string    `json:"resource_id,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
//
// Publish errors are reported to the caller, which logs them and carries
// on: a broker outage never fails the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the structured log. It is the default when
// no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs e at debug level and never fails.
func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.LogAttrs(ctx, slog.LevelDebug, "activity event",
		slog.String("id", e.ID),
		slog.String("kind", e.Kind),
		slog.String("owner_id", e.OwnerID),
		slog.String("resource_id", e.ResourceID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
