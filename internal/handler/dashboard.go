package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/car-rental/internal/model"
)

// DashboardStore is implemented by *repository.DashboardRepo.
type DashboardStore interface {
    Stats(ctx context.Context, ownerID uint64, monthStart, monthEnd time.Time) (*model.DashboardStats, error)
    Revenue(ctx context.Context, ownerID uint64, since time.Time, byDay bool) ([]model.RevenuePoint, error)
}

// DashboardHandler serves the owner statistics.
type DashboardHandler struct {
    Store DashboardStore
    Now   func() time.Time
}

func NewDashboardHandler(s DashboardStore) *DashboardHandler {
    if s == nil {
        panic("nil repository passed to NewDashboardHandler")
    }
    return &DashboardHandler{Store: s, Now: time.Now}
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    now := h.Now().UTC()
    monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

    ctx, cancel := requestContext(c)
    defer cancel()

    stats, err := h.Store.Stats(ctx, uid, monthStart, monthStart.AddDate(0, 1, 0))
    if err != nil {
        return respondError(c, err, "Server error while fetching dashboard stats")
    }
    return ok(c, http.StatusOK, "", echo.Map{"stats": stats})
}

// Revenue handles GET /api/dashboard/revenue?period=monthly|yearly.
// Monthly covers the last 30 days by day; yearly the last 12 months by
// month.
func (h *DashboardHandler) Revenue(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    period := c.QueryParam("period")
    if period == "" {
        period = "monthly"
    }
    now := h.Now().UTC()
    var (
        since time.Time
        byDay bool
    )
    switch period {
    case "monthly":
        since, byDay = now.AddDate(0, 0, -30), true
    case "yearly":
        since = now.AddDate(-1, 0, 0)
    default:
        return fail(c, http.StatusBadRequest, "period must be monthly or yearly")
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    points, err := h.Store.Revenue(ctx, uid, since, byDay)
    if err != nil {
        return respondError(c, err, "Server error while fetching revenue analytics")
    }
    return ok(c, http.StatusOK, "", echo.Map{"period": period, "data": points})
}
