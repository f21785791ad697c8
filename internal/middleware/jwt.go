package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/car-rental/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the numeric user ID and role in the context under
// ContextUserID and ContextRole.  The secret must match the one used
// when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Not authorized, no token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Not authorized, token failed"})
            }
            uid, _ := claims.UserID() // validated by ParseAccessToken

            c.Set(ContextUserID, uid)
            c.Set(ContextRole, claims.Role)
            return next(c)
        }
    }
}
