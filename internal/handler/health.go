package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Health is used by load balancers and monitoring to verify that the
// service is running.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "success":   true,
        "status":    "healthy",
        "timestamp": time.Now().UTC().Format(time.RFC3339),
    })
}

// Index describes the API at GET /.
func Index(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "success": true,
        "message": "Car Rental API is running",
        "endpoints": echo.Map{
            "auth":      "/api/auth",
            "cars":      "/api/cars",
            "bookings":  "/api/bookings",
            "dashboard": "/api/dashboard",
            "health":    "/health",
        },
    })
}

// ErrorHandler renders every error that reaches echo, including unknown
// routes, in the {success, message} envelope.
func ErrorHandler(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }
    status := http.StatusInternalServerError
    msg := "Internal server error"
    if he, isHTTP := err.(*echo.HTTPError); isHTTP {
        status = he.Code
        switch status {
        case http.StatusNotFound:
            msg = "Route not found"
        case http.StatusMethodNotAllowed:
            msg = "Method not allowed"
        case http.StatusRequestEntityTooLarge:
            msg = "Request body too large"
        default:
            if s, isString := he.Message.(string); isString {
                msg = s
            } else {
                msg = http.StatusText(status)
            }
        }
    }
    if c.Request().Method == http.MethodHead {
        _ = c.NoContent(status)
        return
    }
    _ = fail(c, status, msg)
}
