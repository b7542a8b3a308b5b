// Package model holds the domain types shared by the store, the services,
// the HTTP handlers and the client.
//
// RESOURCES
//
//	trips      Trip              planned journeys with an optional budget
//	wishlist   WishlistItem      places to visit some day
//	hotels     Hotel             bookmarked stays
//	saved      SavedDestination  starred catalog entries
//	bookings   Booking           recorded flights
//	activity   Activity          server-written feed lines
//
// The JSON tags are the wire format. Field names follow what the web
// client already sends, which is why a few of them are camelCase.
package model

import "time"

// Collection names. They double as table names and URL segments.
const (
	CollectionTrips    = "trips"
	CollectionWishlist = "wishlist"
	CollectionHotels   = "hotels"
	CollectionSaved    = "saved"
	CollectionBookings = "bookings"
	CollectionActivity = "activity"
)

// Every resource below belongs to exactly one user (OwnerID). The owner is
// never serialised: a client only ever sees its own rows.

// Trip is a planned journey.
type Trip struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	Title       string    `json:"title"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Budget      *Money    `json:"budget"`
	CreatedAt   time.Time `json:"created_at"`
}

// WishlistItem is a place the user would like to visit some day.
type WishlistItem struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"-"`
	Place   string    `json:"place"`
	Note    *string   `json:"note"`
	AddedAt time.Time `json:"added_at"`
}

// Hotel is a bookmarked stay.
type Hotel struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Place     string    `json:"place"`
	Note      *string   `json:"note"`
	CheckIn   *string   `json:"checkIn"`
	CheckOut  *string   `json:"checkOut"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedDestination is a catalog destination the user starred.
type SavedDestination struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"-"`
	City    string    `json:"city"`
	Country string    `json:"country"`
	Region  *string   `json:"region"`
	SavedAt time.Time `json:"saved_at"`
}

// Booking is a flight the user recorded from the flight search page.
type Booking struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"-"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	FlightDate     string    `json:"flight_date"`
	Airline        string    `json:"airline"`
	Passengers     int       `json:"passengers"`
	PricePerPerson Money     `json:"price_per_person"`
	Total          Money     `json:"total"`
	Duration       *string   `json:"duration"`
	CreatedAt      time.Time `json:"created_at"`
}

// Activity is one line of the dashboard's "recent activity" feed.
// Rows are written by the server as a side effect of other operations.
type Activity struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
