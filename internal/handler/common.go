package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "reflect"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/car-rental/internal/middleware"
    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/service"
)

const requestTimeout = 5 * time.Second

// getUserID returns the authenticated user's ID stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return 0, errors.New("invalid user_id in context")
    }
    return id, nil
}

// requestContext bounds database work for one request.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// ok writes a success envelope merging payload into the body.
func ok(c echo.Context, status int, message string, payload echo.Map) error {
    body := echo.Map{"success": true}
    if message != "" {
        body["message"] = message
    }
    for k, v := range payload {
        body[k] = v
    }
    return c.JSON(status, body)
}

// fail writes an error envelope.
func fail(c echo.Context, status int, message string) error {
    return c.JSON(status, echo.Map{"success": false, "message": message})
}

// respondError maps err to its status and client message.  Internal
// failures are logged with the request logger and answered with
// fallback.
func respondError(c echo.Context, err error, fallback string) error {
    status := service.StatusOf(err)
    if status >= http.StatusInternalServerError {
        zerolog.Ctx(c.Request().Context()).Error().Err(err).
            Str("path", c.Path()).Msg(fallback)
        return fail(c, status, fallback)
    }
    return fail(c, status, capitalize(service.Message(err)))
}

func capitalize(s string) string {
    if s == "" {
        return s
    }
    return strings.ToUpper(s[:1]) + s[1:]
}

// Validator adapts go-playground/validator to echo.Validator and knows
// the car enumerations.
type Validator struct {
    v *validator.Validate
}

// NewValidator returns a Validator with the car enum rules registered.
func NewValidator() *Validator {
    v := validator.New()
    // report fields by their json names
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" || name == "" {
            return f.Name
        }
        return name
    })
    rules := map[string][]string{
        "carcategory":     model.CarCategories,
        "carfuel":         model.CarFuelTypes,
        "cartransmission": model.CarTransmissions,
        "carlocation":     model.CarLocations,
    }
    for tag, values := range rules {
        allowed := values
        // registration only fails for empty tags or nil funcs
        _ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
            return inList(allowed, fl.Field().String())
        })
    }
    return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i any) error {
    return cv.v.Struct(i)
}

// validationMessage turns the first validation failure into a sentence.
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) || len(verrs) == 0 {
        return "Invalid request"
    }
    fe := verrs[0]
    field := fe.Field()
    switch fe.Tag() {
    case "required":
        return fmt.Sprintf("%s is required", field)
    case "email":
        return fmt.Sprintf("%s must be a valid email", field)
    case "min", "gte":
        return fmt.Sprintf("%s must be at least %s", field, fe.Param())
    case "max", "lte":
        return fmt.Sprintf("%s must be at most %s", field, fe.Param())
    case "oneof":
        return fmt.Sprintf("%s must be one of %s", field, fe.Param())
    case "carcategory":
        return fmt.Sprintf("%s must be one of %s", field, strings.Join(model.CarCategories, ", "))
    case "carfuel":
        return fmt.Sprintf("%s must be one of %s", field, strings.Join(model.CarFuelTypes, ", "))
    case "cartransmission":
        return fmt.Sprintf("%s must be one of %s", field, strings.Join(model.CarTransmissions, ", "))
    case "carlocation":
        return fmt.Sprintf("%s must be one of %s", field, strings.Join(model.CarLocations, ", "))
    }
    return fmt.Sprintf("%s is invalid", field)
}

func inList(list []string, v string) bool {
    for _, s := range list {
        if s == v {
            return true
        }
    }
    return false
}
