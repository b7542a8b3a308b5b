package reconcile

// Keys names the canonical cache entry of a collection and the legacy
// entries older front ends wrote, in the order they are tried.
type Keys struct {
	Canonical string
	Legacy    []string
}

// Cache keys per collection.
var (
	TripKeys = Keys{
		Canonical: "travelboard.trips.v2",
		Legacy:    []string{"trips", "gt_trips", "myTrips"},
	}
	WishlistKeys = Keys{
		Canonical: "travelboard.wishlist.v2",
		Legacy:    []string{"wishlist", "gt_wishlist", "wishList"},
	}
	HotelKeys = Keys{
		Canonical: "travelboard.hotels.v2",
		Legacy:    []string{"hotels", "gt_hotels"},
	}
	SavedKeys = Keys{
		Canonical: "travelboard.saved.v2",
		Legacy:    []string{"savedDestinations", "gt_saved", "saved"},
	}
)
