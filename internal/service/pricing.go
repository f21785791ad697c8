package service

import (
    "math"
    "time"
)

const dayLength = 24 * time.Hour

// BillableDays returns the inclusive number of days between pickup and
// ret: both the pickup and the return day are billed, and a partial day
// counts as a whole one.  Equal dates bill a single day.
func BillableDays(pickup, ret time.Time) (int, error) {
    diff := ret.Sub(pickup)
    if diff < 0 {
        return 0, fail(ErrInvalidRange, "return date must be after pickup date")
    }
    return int(math.Ceil(float64(diff)/float64(dayLength))) + 1, nil
}

// ComputePrice returns the total price of renting at ratePerDay from
// pickup to ret, rounded to cents.
func ComputePrice(pickup, ret time.Time, ratePerDay float64) (float64, error) {
    days, err := BillableDays(pickup, ret)
    if err != nil {
        return 0, err
    }
    return math.Round(float64(days)*ratePerDay*100) / 100, nil
}
