// Package queue defines the booking events exchanged over RabbitMQ and
// the consumer that records them.
package queue

import "time"

// BookingQueueName is the durable queue booking events are published to.
const BookingQueueName = "booking.events"

// Event types.
const (
    EventBookingCreated       = "booking.created"
    EventBookingStatusChanged = "booking.status_changed"
    EventBookingCancelled     = "booking.cancelled"
    EventBookingDeleted       = "booking.deleted"
)

// BookingEvent is published after a booking changes.  It carries enough
// information for consumers to log, notify or aggregate without reading
// the database.
type BookingEvent struct {
    ID         string    `json:"id"`
    Type       string    `json:"type"`
    BookingID  uint64    `json:"booking_id"`
    CarID      uint64    `json:"car_id"`
    UserID     uint64    `json:"user_id"`
    OwnerID    uint64    `json:"owner_id"`
    ActorID    uint64    `json:"actor_id"`
    Status     string    `json:"status"`
    Price      float64   `json:"price"`
    PickupDate string    `json:"pickup_date"`
    ReturnDate string    `json:"return_date"`
    OccurredAt time.Time `json:"occurred_at"`
}
