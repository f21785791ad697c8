package service

import (
    "context"
    "time"

    "github.com/iliyamo/car-rental/internal/model"
)

// ActiveBookingLister returns the pending and confirmed bookings of a car.
// Both the repository and an open booking transaction satisfy it.
type ActiveBookingLister interface {
    ListActiveByCar(ctx context.Context, carID uint64) ([]model.Booking, error)
}

// Overlaps reports whether the closed intervals [aStart, aEnd] and
// [bStart, bEnd] intersect.  Touching endpoints overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// HasConflict reports whether any active booking in existing overlaps
// [pickup, ret].  Cancelled and completed bookings never conflict.
func HasConflict(existing []model.Booking, pickup, ret time.Time) bool {
    for _, b := range existing {
        if !b.Status.IsActive() {
            continue
        }
        if Overlaps(b.PickupDate, b.ReturnDate, pickup, ret) {
            return true
        }
    }
    return false
}

// CheckOverlap loads the active bookings of carID from src and reports
// whether [pickup, ret] collides with one of them.
func CheckOverlap(ctx context.Context, src ActiveBookingLister, carID uint64, pickup, ret time.Time) (bool, error) {
    existing, err := src.ListActiveByCar(ctx, carID)
    if err != nil {
        return false, err
    }
    return HasConflict(existing, pickup, ret), nil
}
