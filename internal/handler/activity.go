package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/travelboard/internal/service"
)

// ActivityHandler serves the dashboard's "recent activity" panel.
//
//   - HandleList → GET /api/activity
//
// Entries are written as a side effect of sign-in and of every create and
// delete; there is no endpoint to add or remove them directly.
type ActivityHandler struct {
	responder
	activity *service.ActivityService
}

func NewActivityHandler(activity *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{responder: responder{logger: logger}, activity: activity}
}

// HandleList serves GET /api/activity, newest first.
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	feed, err := h.activity.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, feed)
}
