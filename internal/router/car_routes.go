package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/car-rental/internal/handler"
    "github.com/iliyamo/car-rental/internal/middleware"
    "github.com/iliyamo/car-rental/internal/model"
)

// RegisterCars registers the public catalogue, the owner's car
// management under /api/cars and the uploaded images under /uploads.
// cache wraps the public listing and detail routes only; availability
// depends on bookings and is never cached.
func RegisterCars(e *echo.Echo, api *echo.Group, h *handler.CarHandler, cache echo.MiddlewareFunc, jwtSecret string) {
    e.GET("/uploads/:name", h.ServeImage)

    g := api.Group("/cars")
    g.GET("", h.List, cache)
    g.GET("/:id", h.Get, cache)
    g.GET("/:id/availability", h.Availability)

    owner := g.Group("", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleOwner))
    owner.POST("", h.Create)
    owner.GET("/owner/my-cars", h.MyCars)
    owner.PUT("/:id", h.Update)
    owner.PATCH("/:id/toggle", h.Toggle)
    owner.DELETE("/:id", h.Delete)
}
