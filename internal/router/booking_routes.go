package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/car-rental/internal/handler"
    "github.com/iliyamo/car-rental/internal/middleware"
    "github.com/iliyamo/car-rental/internal/model"
)

// RegisterBookings registers /api/bookings.  Every route requires a
// valid JWT; status changes, deletion and the owner listing also require
// the owner role.  Who may act on a given booking is decided by the
// booking service.
func RegisterBookings(api *echo.Group, h *handler.BookingHandler, jwtSecret string) {
    g := api.Group("/bookings", middleware.JWTAuth(jwtSecret))
    ownerOnly := middleware.RequireRole(model.RoleOwner)

    g.POST("", h.Create)
    g.GET("/my-bookings", h.MyBookings)
    g.GET("/owner/bookings", h.OwnerBookings, ownerOnly)
    g.GET("/:id", h.Get)
    g.PATCH("/:id/status", h.UpdateStatus, ownerOnly)
    g.PATCH("/:id/cancel", h.Cancel)
    g.DELETE("/:id", h.Delete, ownerOnly)
}

// RegisterDashboard registers the owner statistics under /api/dashboard.
func RegisterDashboard(api *echo.Group, h *handler.DashboardHandler, jwtSecret string) {
    g := api.Group("/dashboard", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleOwner))
    g.GET("/stats", h.Stats)
    g.GET("/revenue", h.Revenue)
}
