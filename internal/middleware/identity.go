package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// UserID returns the authenticated user's ID, or false when the request
// did not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ContextUserID).(uint64)
    return id, ok && id > 0
}

// Role returns the authenticated user's role or "".
func Role(c echo.Context) string {
    r, _ := c.Get(ContextRole).(string)
    return r
}

// currentUserID is the rate limiter's view of the caller: the decimal
// user ID or "anon".
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
