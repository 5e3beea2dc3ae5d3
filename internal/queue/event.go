// Package queue defines the parking event payloads exchanged over RabbitMQ
// together with the publisher used by the API and the consumer that
// turns events into an audit log.
package queue

import "time"

// EventsQueue is the durable queue every spot event is routed to.
const EventsQueue = "parking.events"

// Event types.
const (
    SpotPublished           = "spot.published"
    SpotReserved            = "spot.reserved"
    SpotReservationCanceled = "spot.reservation_cancelled"
    SpotDeleted             = "spot.deleted"
)

// SpotEvent is published after a spot changes state.  It carries enough
// information for downstream consumers to log or notify without querying
// the primary database.
type SpotEvent struct {
    Type        string    `json:"type"`
    SpotID      string    `json:"spot_id"`
    UserID      string    `json:"user_id,omitempty"`      // acting user (reserver or canceller)
    PublisherID string    `json:"publisher_id,omitempty"` // owner of the spot
    OccurredAt  time.Time `json:"occurred_at"`
}
