package model

import "time"

// ParkingSpot is a parking-space listing published by a user.  A spot
// is either available or reserved by exactly one user other than its
// publisher; ReservedBy is non-nil if and only if Available is false.
//
// Fields:
//  ID          – opaque primary key (UUID string).
//  Description – free text shown in listings (non-empty).
//  Location    – free text address (non-empty).
//  Price       – non-negative price.
//  PublisherID – user who published the spot.
//  Available   – false while a reservation holds the spot.
//  ReservedBy  – reserving user (nil while available).
//  Image       – stored image reference (nil when no image).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type ParkingSpot struct {
    ID          string    // parking_spots.id
    Description string    // parking_spots.description
    Location    string    // parking_spots.location
    Price       float64   // parking_spots.price
    PublisherID string    // parking_spots.publisher_id
    Available   bool      // parking_spots.available
    ReservedBy  *string   // parking_spots.reserved_by (nullable)
    Image       *string   // parking_spots.image (nullable)
    CreatedAt   time.Time // parking_spots.created_at
    UpdatedAt   time.Time // parking_spots.updated_at
}

// IsReservedBy reports whether userID currently holds the reservation.
func (s *ParkingSpot) IsReservedBy(userID string) bool {
    return !s.Available && s.ReservedBy != nil && *s.ReservedBy == userID
}

// SpotPatch carries the optional fields of an edit.  A nil slot keeps
// the stored value.
type SpotPatch struct {
    Description *string
    Location    *string
    Price       *float64
}

// Empty reports whether the patch carries no field updates.
func (p SpotPatch) Empty() bool {
    return p.Description == nil && p.Location == nil && p.Price == nil
}

// Apply overwrites the present fields of spot.
func (p SpotPatch) Apply(spot *ParkingSpot) {
    if p.Description != nil {
        spot.Description = *p.Description
    }
    if p.Location != nil {
        spot.Location = *p.Location
    }
    if p.Price != nil {
        spot.Price = *p.Price
    }
}

// SpotView is a spot with its publisher resolved for display.  Publisher
// is nil when the publishing user no longer exists.
type SpotView struct {
    ParkingSpot
    Publisher *User
}
