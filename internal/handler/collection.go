package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// IdempotencyHeader carries the client's UUID for a create request.
const IdempotencyHeader = "Idempotency-Key"

// resourceService is the part of service.ResourceService the handler needs.
type resourceService[T any] interface {
	Collection() string
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item *T, idempotencyKey string) (replayed bool, err error)
	Delete(ctx context.Context, id string) error
}

// CollectionHandler serves list/create/delete for one owner-scoped
// collection. Every collection shares this contract:
//
//	GET    /api/{collection}       → 200 [...]
//	POST   /api/{collection}       → 201 {...}
//	DELETE /api/{collection}/{id}  → 204
//
// The handler decodes, calls the service and encodes, nothing more. The
// owner comes from the session middleware through the request context.
// Every error goes through writeError, so a NotFound from the service is a
// 404 whether the id is unknown or belongs to someone else.
type CollectionHandler[T any] struct {
	responder
	svc resourceService[T]
}

// NewCollectionHandler serves svc. The mount path is svc.Collection().
func NewCollectionHandler[T any](svc resourceService[T], logger *slog.Logger) *CollectionHandler[T] {
	return &CollectionHandler[T]{responder: responder{logger: logger}, svc: svc}
}

// Mount registers the three routes under r at /{collection}.
func (h *CollectionHandler[T]) Mount(r chi.Router) {
	path := "/" + h.svc.Collection()
	r.Get(path, h.HandleList)
	r.Post(path, h.HandleCreate)
	r.Delete(path+"/{id}", h.HandleDelete)
}

// HandleList answers the caller's items as a JSON array, [] when empty.
func (h *CollectionHandler[T]) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// HandleCreate decodes one resource and stores it. A replayed
// Idempotency-Key answers 201 with the original resource, so a client
// retrying after a lost response sees the same result it would have seen.
func (h *CollectionHandler[T]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	item := new(T)
	if err := decodeJSON(r, item); err != nil {
		h.writeError(w, err)
		return
	}

	replayed, err := h.svc.Create(r.Context(), item, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// HandleDelete answers 204 with no body. Deleting an id twice is a 404 the
// second time.
func (h *CollectionHandler[T]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
