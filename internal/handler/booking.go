package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/service"
)

// BookingManager is implemented by *service.BookingService.
type BookingManager interface {
    Create(ctx context.Context, requesterID uint64, in service.CreateInput) (*model.Booking, error)
    Get(ctx context.Context, id, actorID uint64) (*model.Booking, error)
    ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error)
    ListForOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error)
    SetStatus(ctx context.Context, id, actorID uint64, status model.BookingStatus) (*model.Booking, error)
    Cancel(ctx context.Context, id, actorID uint64) (*model.Booking, error)
    Delete(ctx context.Context, id, actorID uint64) error
}

// BookingHandler exposes the booking lifecycle.  Every route sits behind
// JWTAuth; owner routes additionally behind RequireRole("owner").
type BookingHandler struct {
    Bookings BookingManager
}

func NewBookingHandler(b BookingManager) *BookingHandler {
    if b == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: b}
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    var in service.CreateInput
    if err := c.Bind(&in); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    b, err := h.Bookings.Create(ctx, uid, in)
    if err != nil {
        return respondError(c, err, "Server error while creating booking")
    }
    return ok(c, http.StatusCreated, "Booking created successfully", echo.Map{"booking": b})
}

// MyBookings handles GET /api/bookings/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    list, err := h.Bookings.ListForUser(ctx, uid)
    if err != nil {
        return respondError(c, err, "Server error while fetching bookings")
    }
    return ok(c, http.StatusOK, "", echo.Map{"count": len(list), "bookings": list})
}

// OwnerBookings handles GET /api/bookings/owner/bookings.
func (h *BookingHandler) OwnerBookings(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    list, err := h.Bookings.ListForOwner(ctx, uid)
    if err != nil {
        return respondError(c, err, "Server error while fetching bookings")
    }
    return ok(c, http.StatusOK, "", echo.Map{"count": len(list), "bookings": list})
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid booking id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    b, err := h.Bookings.Get(ctx, id, uid)
    if err != nil {
        return respondError(c, err, "Server error while fetching booking")
    }
    return ok(c, http.StatusOK, "", echo.Map{"booking": b})
}

// UpdateStatus handles PATCH /api/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid booking id")
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    status := model.BookingStatus(body.Status)
    b, err := h.Bookings.SetStatus(ctx, id, uid, status)
    if err != nil {
        return respondError(c, err, "Server error while updating booking status")
    }
    return ok(c, http.StatusOK, "Booking status updated successfully", echo.Map{"booking": b})
}

// Cancel handles PATCH /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid booking id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    b, err := h.Bookings.Cancel(ctx, id, uid)
    if err != nil {
        return respondError(c, err, "Server error while cancelling booking")
    }
    return ok(c, http.StatusOK, "Booking cancelled successfully", echo.Map{"booking": b})
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid booking id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Bookings.Delete(ctx, id, uid); err != nil {
        return respondError(c, err, "Server error while deleting booking")
    }
    return ok(c, http.StatusOK, "Booking deleted successfully", nil)
}
