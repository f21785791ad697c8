// Package router wires handlers and middleware onto an Echo instance.
package router

import (
    "context"
    "fmt"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/iliyamo/car-rental/internal/config"
    "github.com/iliyamo/car-rental/internal/handler"
    "github.com/iliyamo/car-rental/internal/middleware"
)

// Deps are the handlers and infrastructure the API is built from.  Redis
// may be nil, which disables rate limiting and response caching.
type Deps struct {
    Cfg       config.Config
    Log       zerolog.Logger
    Auth      *handler.AuthHandler
    Cars      *handler.CarHandler
    Bookings  *handler.BookingHandler
    Dashboard *handler.DashboardHandler
    Redis     *redis.Client
    RateLimit config.RateLimitConfig
    Cache     config.CacheConfig
}

// New returns a configured Echo instance serving the whole API.
func New(d Deps) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Validator = handler.NewValidator()
    e.HTTPErrorHandler = handler.ErrorHandler

    e.Use(echomw.RequestID())
    e.Use(middleware.RequestLogger(d.Log))
    e.Use(echomw.Recover())
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins:     d.Cfg.CORSOrigins,
        AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
        AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
        AllowCredentials: true,
    }))
    // uploads plus room for the other form fields
    e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", d.Cfg.UploadMaxBytes+1<<20)))

    if d.Redis != nil && d.Cars != nil {
        cacheCfg, rdb, log := d.Cache, d.Redis, d.Log
        d.Cars.OnChange = func(ctx context.Context) {
            if err := middleware.InvalidateCache(ctx, cacheCfg, rdb); err != nil {
                log.Warn().Err(err).Msg("invalidate car cache")
            }
        }
    }

    RegisterRoutes(e)
    api := e.Group("/api", middleware.NewTokenBucket(d.RateLimit, d.Redis))
    RegisterAuth(api, d.Auth, d.Cfg.JWTSecret)
    RegisterCars(e, api, d.Cars, middleware.NewRedisCache(d.Cache, d.Redis), d.Cfg.JWTSecret)
    RegisterBookings(api, d.Bookings, d.Cfg.JWTSecret)
    RegisterDashboard(api, d.Dashboard, d.Cfg.JWTSecret)
    return e
}

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/", handler.Index)
    e.GET("/health", handler.Health)
}

// RegisterAuth registers /api/auth.  Profile is the only route needing an
// access token; logout accepts either a bearer token or a refresh token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, jwtSecret string) {
    g := api.Group("/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)
    g.GET("/profile", a.Profile, middleware.JWTAuth(jwtSecret))
}
