package model

import "time"

// Reservation records that a user reserved a spot.  Rows form an
// append-only audit trail: they are written in the same transaction as
// a successful reserve and are never updated or removed when the
// reservation is cancelled.
//
// Fields:
//  ID        – primary key identifier (UUID string).
//  UserID    – user who made the reservation.
//  SpotID    – spot that was reserved.
//  CreatedAt – when the reservation happened.
type Reservation struct {
    ID        string    // reservations.id
    UserID    string    // reservations.user_id
    SpotID    string    // reservations.spot_id
    CreatedAt time.Time // reservations.created_at
}
