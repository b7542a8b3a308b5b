package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
)

func ptr[T any](v T) *T { return &v }

// fieldOf returns the offending field of a validation error, or "" for nil.
func fieldOf(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		return ""
	}
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.ErrorIs(t, err, apperror.ErrValidation)
	return appErr.Field
}

func TestValidateTrip(t *testing.T) {
	valid := func() model.Trip {
		return model.Trip{Title: "Japan", Destination: "Tokyo", StartDate: "2026-01-01", EndDate: "2026-01-10"}
	}

	tests := []struct {
		name      string
		mutate    func(*model.Trip)
		wantField string
	}{
		{name: "valid", mutate: func(*model.Trip) {}},
		{name: "same-day trip", mutate: func(t *model.Trip) { t.EndDate = t.StartDate }},
		{name: "blank title", mutate: func(t *model.Trip) { t.Title = "   " }, wantField: "title"},
		{name: "missing destination", mutate: func(t *model.Trip) { t.Destination = "" }, wantField: "destination"},
		{name: "bad start date", mutate: func(t *model.Trip) { t.StartDate = "01/01/2026" }, wantField: "start_date"},
		{name: "impossible date", mutate: func(t *model.Trip) { t.EndDate = "2026-02-30" }, wantField: "end_date"},
		{name: "end before start", mutate: func(t *model.Trip) { t.EndDate = "2025-12-31" }, wantField: "end_date"},
		{name: "negative budget", mutate: func(t *model.Trip) { t.Budget = ptr(model.Money(-1)) }, wantField: "budget"},
		{name: "title too long", mutate: func(t *model.Trip) { t.Title = strings.Repeat("é", MaxNameLength+1) }, wantField: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := valid()
			tt.mutate(&trip)
			assert.Equal(t, tt.wantField, fieldOf(t, validateTrip(&trip)))
		})
	}
}

func TestValidateTrip_Trims(t *testing.T) {
	trip := model.Trip{Title: "  Japan ", Destination: " Tokyo", StartDate: " 2026-01-01", EndDate: "2026-01-10 "}
	require.NoError(t, validateTrip(&trip))
	assert.Equal(t, "Japan", trip.Title)
	assert.Equal(t, "2026-01-01", trip.StartDate)
}

func TestValidateWishlistItem(t *testing.T) {
	item := model.WishlistItem{Place: " Kyoto ", Note: ptr("   ")}
	require.NoError(t, validateWishlistItem(&item))
	assert.Equal(t, "Kyoto", item.Place)
	assert.Nil(t, item.Note, "a blank note is dropped")

	assert.Equal(t, "place", fieldOf(t, validateWishlistItem(&model.WishlistItem{})))
	long := model.WishlistItem{Place: "Kyoto", Note: ptr(strings.Repeat("n", MaxNoteLength+1))}
	assert.Equal(t, "note", fieldOf(t, validateWishlistItem(&long)))
}

func TestValidateHotel(t *testing.T) {
	tests := []struct {
		name      string
		hotel     model.Hotel
		wantField string
	}{
		{name: "place only", hotel: model.Hotel{Place: "Porto"}},
		{name: "with dates", hotel: model.Hotel{Place: "Porto", CheckIn: ptr("2026-06-01"), CheckOut: ptr("2026-06-03")}},
		{name: "missing place", hotel: model.Hotel{}, wantField: "place"},
		{name: "bad check-in", hotel: model.Hotel{Place: "Porto", CheckIn: ptr("June 1")}, wantField: "checkIn"},
		{name: "checkout before checkin", hotel: model.Hotel{Place: "Porto", CheckIn: ptr("2026-06-03"), CheckOut: ptr("2026-06-01")}, wantField: "checkOut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantField, fieldOf(t, validateHotel(&tt.hotel)))
		})
	}
}

func TestValidateSavedDestination(t *testing.T) {
	assert.Equal(t, "", fieldOf(t, validateSavedDestination(&model.SavedDestination{City: "Paris", Country: "France"})))
	assert.Equal(t, "city", fieldOf(t, validateSavedDestination(&model.SavedDestination{Country: "France"})))
	assert.Equal(t, "country", fieldOf(t, validateSavedDestination(&model.SavedDestination{City: "Paris"})))
}

func TestValidateBooking(t *testing.T) {
	valid := func() model.Booking {
		return model.Booking{From: "LIS", To: "JFK", FlightDate: "2026-07-10", Airline: "TAP", Passengers: 2, PricePerPerson: 45000, Total: 90000}
	}

	tests := []struct {
		name      string
		mutate    func(*model.Booking)
		wantField string
	}{
		{name: "valid", mutate: func(*model.Booking) {}},
		{name: "missing from", mutate: func(b *model.Booking) { b.From = "" }, wantField: "from"},
		{name: "missing airline", mutate: func(b *model.Booking) { b.Airline = " " }, wantField: "airline"},
		{name: "bad flight date", mutate: func(b *model.Booking) { b.FlightDate = "tomorrow" }, wantField: "flight_date"},
		{name: "zero passengers", mutate: func(b *model.Booking) { b.Passengers = 0 }, wantField: "passengers"},
		{name: "negative total", mutate: func(b *model.Booking) { b.Total = -1 }, wantField: "total"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(&b)
			assert.Equal(t, tt.wantField, fieldOf(t, validateBooking(&b)))
		})
	}
}

func TestLooksLikeEmail(t *testing.T) {
	for email, want := range map[string]bool{
		"ann@x.com":    true,
		"a.b@sub.x.io": true,
		"ann":          false,
		"@x.com":       false,
		"ann@":         false,
		"ann@x":        false,
		"ann@.com":     false,
		"ann@x.com.":   false,
		"a@b@x.com":    false,
	} {
		assert.Equal(t, want, looksLikeEmail(email), email)
	}
}
