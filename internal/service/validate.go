package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/travelboard/internal/apperror"
	"github.com/sakif/travelboard/internal/model"
)

// Field limits, counted in characters after trimming.
const (
	MaxNameLength  = 200
	MaxNoteLength  = 2000
	MaxEmailLength = 254
	MinPasswordLen = 6
)

// checker collects the first validation failure of a chain of checks.
//
//	c := &checker{}
//	c.required("title", t.Title).maxLen("title", t.Title, MaxNameLength)
//	return c.err()
type checker struct {
	failed *apperror.AppError
}

func (c *checker) fail(field, format string, args ...any) *checker {
	if c.failed == nil {
		c.failed = apperror.ValidationFailed(field, fmt.Sprintf(format, args...))
	}
	return c
}

func (c *checker) required(field, value string) *checker {
	if value == "" {
		return c.fail(field, "%s is required", field)
	}
	return c
}

func (c *checker) maxLen(field, value string, max int) *checker {
	if utf8.RuneCountInString(value) > max {
		return c.fail(field, "%s must be %d characters or less", field, max)
	}
	return c
}

// date checks YYYY-MM-DD; empty values are left to required.
func (c *checker) date(field, value string) *checker {
	if value == "" {
		return c
	}
	if _, err := model.ParseDate(value); err != nil {
		return c.fail(field, "%s must be a date in YYYY-MM-DD format", field)
	}
	return c
}

// notBefore requires end >= start for two already-validated dates. ISO dates
// compare correctly as strings.
func (c *checker) notBefore(endField, end, startField, start string) *checker {
	if c.failed == nil && end != "" && start != "" && end < start {
		return c.fail(endField, "%s must not be before %s", endField, startField)
	}
	return c
}

func (c *checker) nonNegative(field string, m model.Money) *checker {
	if m < 0 {
		return c.fail(field, "%s must not be negative", field)
	}
	return c
}

func (c *checker) err() error {
	if c.failed == nil {
		return nil
	}
	return c.failed
}

// trimOptional trims an optional text field; a blank value becomes nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// =========================================================================
// PER-COLLECTION VALIDATION
// =========================================================================
//
// Each validator normalises the item in place (trimming, blank → nil) and
// returns the first violation as an InvalidInput error. The error's Field
// is the JSON name of the offending field, so a form can highlight it.

// validateTrip:
//
//	title, destination    required, at most MaxNameLength
//	start_date, end_date  required, YYYY-MM-DD, end not before start
//	budget                optional, not negative
func validateTrip(t *model.Trip) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Destination = strings.TrimSpace(t.Destination)
	t.StartDate = strings.TrimSpace(t.StartDate)
	t.EndDate = strings.TrimSpace(t.EndDate)

	c := &checker{}
	c.required("title", t.Title).maxLen("title", t.Title, MaxNameLength).
		required("destination", t.Destination).maxLen("destination", t.Destination, MaxNameLength).
		required("start_date", t.StartDate).date("start_date", t.StartDate).
		required("end_date", t.EndDate).date("end_date", t.EndDate).
		notBefore("end_date", t.EndDate, "start_date", t.StartDate)
	if t.Budget != nil {
		c.nonNegative("budget", *t.Budget)
	}
	return c.err()
}

// validateWishlistItem: place is required, note is optional.
func validateWishlistItem(w *model.WishlistItem) error {
	w.Place = strings.TrimSpace(w.Place)
	w.Note = trimOptional(w.Note)

	c := &checker{}
	c.required("place", w.Place).maxLen("place", w.Place, MaxNameLength).
		maxLen("note", optional(w.Note), MaxNoteLength)
	return c.err()
}

// validateHotel: place is required; checkIn and checkOut are optional
// dates, and when both are given checkOut may not come first.
func validateHotel(h *model.Hotel) error {
	h.Place = strings.TrimSpace(h.Place)
	h.Note = trimOptional(h.Note)
	h.CheckIn = trimOptional(h.CheckIn)
	h.CheckOut = trimOptional(h.CheckOut)

	c := &checker{}
	c.required("place", h.Place).maxLen("place", h.Place, MaxNameLength).
		maxLen("note", optional(h.Note), MaxNoteLength).
		date("checkIn", optional(h.CheckIn)).
		date("checkOut", optional(h.CheckOut)).
		notBefore("checkOut", optional(h.CheckOut), "checkIn", optional(h.CheckIn))
	return c.err()
}

// validateSavedDestination: city and country are required, region is
// optional.
func validateSavedDestination(s *model.SavedDestination) error {
	s.City = strings.TrimSpace(s.City)
	s.Country = strings.TrimSpace(s.Country)
	s.Region = trimOptional(s.Region)

	c := &checker{}
	c.required("city", s.City).maxLen("city", s.City, MaxNameLength).
		required("country", s.Country).maxLen("country", s.Country, MaxNameLength).
		maxLen("region", optional(s.Region), MaxNameLength)
	return c.err()
}

// validateBooking:
//
//	from, to, airline        required, at most MaxNameLength
//	flight_date              required, YYYY-MM-DD
//	passengers               at least 1
//	price_per_person, total  not negative (0 when omitted)
//	duration                 optional free text, e.g. "2h 35m"
func validateBooking(b *model.Booking) error {
	b.From = strings.TrimSpace(b.From)
	b.To = strings.TrimSpace(b.To)
	b.FlightDate = strings.TrimSpace(b.FlightDate)
	b.Airline = strings.TrimSpace(b.Airline)
	b.Duration = trimOptional(b.Duration)

	c := &checker{}
	c.required("from", b.From).maxLen("from", b.From, MaxNameLength).
		required("to", b.To).maxLen("to", b.To, MaxNameLength).
		required("flight_date", b.FlightDate).date("flight_date", b.FlightDate).
		required("airline", b.Airline).maxLen("airline", b.Airline, MaxNameLength).
		maxLen("duration", optional(b.Duration), MaxNameLength).
		nonNegative("price_per_person", b.PricePerPerson).
		nonNegative("total", b.Total)
	if b.Passengers <= 0 {
		c.fail("passengers", "passengers must be at least 1")
	}
	return c.err()
}
