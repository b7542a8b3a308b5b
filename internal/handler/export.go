package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
	"github.com/sakif/travelboard/internal/service"
)

// csvHeaders is the first row of a CSV export. Each resource is flattened
// onto the same columns; the ones that do not apply stay empty.
var csvHeaders = []string{
	"collection", "id", "name", "details", "start", "end", "amount", "created_at",
}

// ExportHandler serves a download of everything the caller owns.
//
//   - HandleExport → GET /api/export[?format=json|csv]
//
// CSV EXAMPLE:
//
//	collection,id,name,details,start,end,amount,created_at
//	trips,cq3h...,Spring in Kyoto,Kyoto,2026-04-01,2026-04-08,2000,2026-03-01T10:00:00Z
//	wishlist,cq3i...,Lisbon,,,,,2026-03-02T08:00:00Z
type ExportHandler struct {
	responder
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{responder: responder{logger: logger}, export: export}
}

// HandleExport serves GET /api/export. JSON by default; ?format=csv returns
// one CSV row per resource.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		h.writeError(w, apperror.ValidationFailed("format", "format must be json or csv"))
		return
	}

	out, err := h.export.Export(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if format != "csv" {
		h.writeJSON(w, http.StatusOK, out)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write(csvHeaders) //nolint:errcheck // bytes.Buffer never fails
	for _, rec := range exportRecords(out) {
		cw.Write(rec) //nolint:errcheck
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("export: writing CSV", slog.String("error", err.Error()))
		h.writeError(w, err)
		return
	}

	filename := fmt.Sprintf("travelboard-%s.csv", out.ExportedAt.Format(model.DateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// exportRecords flattens e in collection order: trips, wishlist, hotels,
// saved destinations, bookings. Each collection keeps its list order.
func exportRecords(e *service.Export) [][]string {
	var out [][]string
	for _, t := range e.Trips {
		amount := ""
		if t.Budget != nil {
			amount = t.Budget.String()
		}
		out = append(out, []string{model.CollectionTrips, t.ID, t.Title, t.Destination,
			t.StartDate, t.EndDate, amount, formatTime(t.CreatedAt)})
	}
	for _, wi := range e.Wishlist {
		out = append(out, []string{model.CollectionWishlist, wi.ID, wi.Place, deref(wi.Note),
			"", "", "", formatTime(wi.AddedAt)})
	}
	for _, ho := range e.Hotels {
		out = append(out, []string{model.CollectionHotels, ho.ID, ho.Place, deref(ho.Note),
			deref(ho.CheckIn), deref(ho.CheckOut), "", formatTime(ho.CreatedAt)})
	}
	for _, s := range e.Saved {
		details := s.Country
		if s.Region != nil {
			details += " / " + *s.Region
		}
		out = append(out, []string{model.CollectionSaved, s.ID, s.City, details,
			"", "", "", formatTime(s.SavedAt)})
	}
	for _, b := range e.Bookings {
		details := fmt.Sprintf("%s, %d passenger(s)", b.Airline, b.Passengers)
		if b.Duration != nil {
			details += ", " + *b.Duration
		}
		out = append(out, []string{model.CollectionBookings, b.ID, b.From + " - " + b.To, details,
			b.FlightDate, "", b.Total.String(), formatTime(b.CreatedAt)})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
