package service

import (
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func date(s string) time.Time {
    t, err := time.Parse(dateLayout, s)
    if err != nil {
        panic(err)
    }
    return t
}

func TestComputePrice(t *testing.T) {
    tests := []struct {
        name   string
        pickup time.Time
        ret    time.Time
        rate   float64
        want   float64
        days   int
    }{
        {"same day bills one day", date("2024-12-10"), date("2024-12-10"), 150, 150, 1},
        {"inclusive day count", date("2024-12-10"), date("2024-12-14"), 150, 750, 5},
        {"partial day rounds up", date("2024-12-10"), date("2024-12-10").Add(25 * time.Hour), 100, 300, 3},
        {"rounded to cents", date("2024-01-01"), date("2024-01-03"), 33.333, 100, 3},
        {"free car", date("2024-01-01"), date("2024-01-02"), 0, 0, 2},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            got, err := ComputePrice(tt.pickup, tt.ret, tt.rate)
            require.NoError(t, err)
            assert.InDelta(t, tt.want, got, 0.0001)

            days, err := BillableDays(tt.pickup, tt.ret)
            require.NoError(t, err)
            assert.Equal(t, tt.days, days)
        })
    }
}

func TestComputePriceRejectsReversedRange(t *testing.T) {
    _, err := ComputePrice(date("2024-12-14"), date("2024-12-10"), 150)
    require.Error(t, err)
    assert.True(t, errors.Is(err, ErrInvalidRange))
}
