package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/car-rental/internal/model"
)

// DashboardRepo computes owner statistics straight from the cars and
// bookings tables.  Nothing is cached or stored, so deleting bookings
// never leaves stale aggregates behind.
type DashboardRepo struct {
	db       *sql.DB
	bookings *BookingRepo
}

// NewDashboardRepo returns a DashboardRepo bound to the given database.
func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{db: db, bookings: NewBookingRepo(db)}
}

// RecentBookingsLimit is the number of bookings listed on the dashboard.
const RecentBookingsLimit = 5

// Stats returns the dashboard summary for ownerID.  Monthly revenue
// covers confirmed and completed bookings created in [monthStart, monthEnd).
func (r *DashboardRepo) Stats(ctx context.Context, ownerID uint64, monthStart, monthEnd time.Time) (*model.DashboardStats, error) {
	var s model.DashboardStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars WHERE owner_id = ?`, ownerID).Scan(&s.TotalCars); err != nil {
		return nil, fmt.Errorf("count cars: %w", err)
	}
	const q = `SELECT
			COUNT(*),
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'confirmed'), 0),
			COALESCE(SUM(status = 'completed'), 0),
			COALESCE(SUM(CASE WHEN status IN ('confirmed', 'completed') THEN price ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('confirmed', 'completed') AND created_at >= ? AND created_at < ? THEN price ELSE 0 END), 0)
		FROM bookings WHERE owner_id = ?`
	err := r.db.QueryRowContext(ctx, q, monthStart, monthEnd, ownerID).Scan(
		&s.TotalBookings, &s.PendingBookings, &s.ConfirmedBookings, &s.CompletedBookings,
		&s.TotalRevenue, &s.MonthlyRevenue)
	if err != nil {
		return nil, fmt.Errorf("aggregate bookings: %w", err)
	}
	recent, err := r.bookings.ListRecentByOwner(ctx, ownerID, RecentBookingsLimit)
	if err != nil {
		return nil, err
	}
	s.RecentBookings = recent
	return &s, nil
}

// Revenue groups confirmed and completed bookings of ownerID created at
// or after since.  byDay selects daily buckets, otherwise buckets are
// months.  Points are returned in chronological order.
func (r *DashboardRepo) Revenue(ctx context.Context, ownerID uint64, since time.Time, byDay bool) ([]model.RevenuePoint, error) {
	day := "0"
	if byDay {
		day = "DAY(created_at)"
	}
	q := `SELECT YEAR(created_at) AS y, MONTH(created_at) AS m, ` + day + ` AS d,
			COALESCE(SUM(price), 0), COUNT(*)
		FROM bookings
		WHERE owner_id = ? AND status IN ('confirmed', 'completed') AND created_at >= ?
		GROUP BY y, m, d
		ORDER BY y, m, d`
	rows, err := r.db.QueryContext(ctx, q, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("query revenue: %w", err)
	}
	defer rows.Close()
	points := []model.RevenuePoint{}
	for rows.Next() {
		var p model.RevenuePoint
		if err := rows.Scan(&p.Year, &p.Month, &p.Day, &p.TotalRevenue, &p.BookingCount); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
