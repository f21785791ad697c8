package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    StatusPending   BookingStatus = "pending"
    StatusConfirmed BookingStatus = "confirmed"
    StatusCancelled BookingStatus = "cancelled"
    StatusCompleted BookingStatus = "completed"
)

// ActiveStatuses are the states that block overlapping reservations.
// IsActive and the repository queries both derive from it.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed}

// IsValid reports whether s is one of the four known states.
func (s BookingStatus) IsValid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
        return true
    }
    return false
}

// IsActive reports whether a booking in state s holds its date range.
func (s BookingStatus) IsActive() bool {
    for _, a := range ActiveStatuses {
        if s == a {
            return true
        }
    }
    return false
}

// Booking mirrors a row of the `bookings` table.
//
// OwnerID is copied from the car when the booking is created and is
// not updated afterwards: it names the owner at booking time.  Price is
// fixed at creation and never recomputed.  Car, User and Owner are
// resolved by detail queries and are nil on bare rows.
type Booking struct {
    ID         uint64        `json:"id"`
    CarID      uint64        `json:"carId"`
    UserID     uint64        `json:"userId"`
    OwnerID    uint64        `json:"ownerId"`
    PickupDate time.Time     `json:"pickupDate"`
    ReturnDate time.Time     `json:"returnDate"`
    Status     BookingStatus `json:"status"`
    Price      float64       `json:"price"`
    CreatedAt  time.Time     `json:"createdAt"`
    UpdatedAt  time.Time     `json:"updatedAt"`

    Car   *Car     `json:"car,omitempty"`
    User  *UserRef `json:"user,omitempty"`
    Owner *UserRef `json:"owner,omitempty"`
}

// DashboardStats is the owner dashboard summary.  It is recomputed on
// every read.
type DashboardStats struct {
    TotalCars         int       `json:"totalCars"`
    TotalBookings     int       `json:"totalBookings"`
    PendingBookings   int       `json:"pendingBookings"`
    ConfirmedBookings int       `json:"confirmedBookings"`
    CompletedBookings int       `json:"completedBookings"`
    MonthlyRevenue    float64   `json:"monthlyRevenue"`
    TotalRevenue      float64   `json:"totalRevenue"`
    RecentBookings    []Booking `json:"recentBookings"`
}

// RevenuePoint is one bucket of the revenue analytics series.  Day is
// zero for monthly buckets.
type RevenuePoint struct {
    Year         int     `json:"year"`
    Month        int     `json:"month"`
    Day          int     `json:"day,omitempty"`
    TotalRevenue float64 `json:"totalRevenue"`
    BookingCount int     `json:"bookingCount"`
}
