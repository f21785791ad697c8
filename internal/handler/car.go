package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/repository"
    "github.com/iliyamo/car-rental/internal/service"
    "github.com/iliyamo/car-rental/internal/storage"
)

// UploadsPrefix is the URL prefix stored images are served under.
const UploadsPrefix = "/uploads/"

// CarStore is implemented by *repository.CarRepo.
type CarStore interface {
    Create(ctx context.Context, c *model.Car) error
    GetByID(ctx context.Context, id uint64) (*model.Car, error)
    GetOwned(ctx context.Context, id, ownerID uint64) (*model.Car, error)
    ListAvailable(ctx context.Context, f model.CarFilter) ([]model.Car, error)
    ListByOwner(ctx context.Context, ownerID uint64) ([]model.Car, error)
    Update(ctx context.Context, c *model.Car) error
    ToggleAvailability(ctx context.Context, id, ownerID uint64) (bool, error)
    Delete(ctx context.Context, id, ownerID uint64) error
}

// Quoter is implemented by *service.BookingService.
type Quoter interface {
    Quote(ctx context.Context, carID uint64, pickup, ret string) (*service.Quote, error)
}

// CarHandler serves the public catalogue and the owner's car management.
// OnChange, when set, runs after every successful mutation; the router
// uses it to drop cached listings.
type CarHandler struct {
    Cars     CarStore
    Images   *storage.ImageStore
    Quotes   Quoter
    OnChange func(ctx context.Context)
}

func NewCarHandler(cars CarStore, images *storage.ImageStore, quotes Quoter) *CarHandler {
    if cars == nil || images == nil || quotes == nil {
        panic("nil dependency passed to NewCarHandler")
    }
    return &CarHandler{Cars: cars, Images: images, Quotes: quotes}
}

// carInput carries the validated listing fields.
type carInput struct {
    Brand           string  `json:"brand" validate:"required,max=80"`
    Model           string  `json:"model" validate:"required,max=80"`
    Year            int     `json:"year" validate:"gte=1990,lte=2030"`
    Category        string  `json:"category" validate:"carcategory"`
    SeatingCapacity int     `json:"seating_capacity" validate:"gte=2,lte=12"`
    FuelType        string  `json:"fuel_type" validate:"carfuel"`
    Transmission    string  `json:"transmission" validate:"cartransmission"`
    PricePerDay     float64 `json:"pricePerDay" validate:"gte=0"`
    Location        string  `json:"location" validate:"carlocation"`
    Description     string  `json:"description" validate:"required"`
}

var carFields = []string{
    "brand", "model", "year", "pricePerDay", "category", "transmission",
    "fuel_type", "seating_capacity", "location", "description",
}

func (in carInput) apply(car *model.Car) {
    car.Brand = in.Brand
    car.Model = in.Model
    car.Year = in.Year
    car.Category = in.Category
    car.SeatingCapacity = in.SeatingCapacity
    car.FuelType = in.FuelType
    car.Transmission = in.Transmission
    car.PricePerDay = in.PricePerDay
    car.Location = in.Location
    car.Description = in.Description
}

func inputFrom(car *model.Car) carInput {
    return carInput{
        Brand: car.Brand, Model: car.Model, Year: car.Year, Category: car.Category,
        SeatingCapacity: car.SeatingCapacity, FuelType: car.FuelType, Transmission: car.Transmission,
        PricePerDay: car.PricePerDay, Location: car.Location, Description: car.Description,
    }
}

// setField parses one form value into in.  Unknown names are ignored.
func (in *carInput) setField(name, raw string) error {
    raw = strings.TrimSpace(raw)
    var err error
    switch name {
    case "brand":
        in.Brand = raw
    case "model":
        in.Model = raw
    case "year":
        in.Year, err = strconv.Atoi(raw)
    case "category":
        in.Category = raw
    case "seating_capacity":
        in.SeatingCapacity, err = strconv.Atoi(raw)
    case "fuel_type":
        in.FuelType = raw
    case "transmission":
        in.Transmission = raw
    case "pricePerDay":
        in.PricePerDay, err = strconv.ParseFloat(raw, 64)
    case "location":
        in.Location = raw
    case "description":
        in.Description = raw
    }
    if err != nil {
        return errors.New(name + " must be a number")
    }
    return nil
}

// List handles GET /api/cars.
func (h *CarHandler) List(c echo.Context) error {
    f := model.CarFilter{
        Category: strings.TrimSpace(c.QueryParam("category")),
        Location: strings.TrimSpace(c.QueryParam("location")),
        Search:   strings.TrimSpace(c.QueryParam("search")),
    }
    for name, dst := range map[string]**float64{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
        raw := strings.TrimSpace(c.QueryParam(name))
        if raw == "" {
            continue
        }
        v, err := strconv.ParseFloat(raw, 64)
        if err != nil {
            return fail(c, http.StatusBadRequest, name+" must be a number")
        }
        *dst = &v
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    cars, err := h.Cars.ListAvailable(ctx, f)
    if err != nil {
        return respondError(c, err, "Server error while fetching cars")
    }
    return ok(c, http.StatusOK, "", echo.Map{"count": len(cars), "cars": cars})
}

// Get handles GET /api/cars/:id.
func (h *CarHandler) Get(c echo.Context) error {
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid car id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    car, err := h.Cars.GetByID(ctx, id)
    if err != nil {
        return respondError(c, err, "Server error while fetching car")
    }
    return ok(c, http.StatusOK, "", echo.Map{"car": car})
}

// Availability handles GET /api/cars/:id/availability.
func (h *CarHandler) Availability(c echo.Context) error {
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid car id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    q, err := h.Quotes.Quote(ctx, id, c.QueryParam("pickupDate"), c.QueryParam("returnDate"))
    if err != nil {
        return respondError(c, err, "Server error while checking availability")
    }
    return ok(c, http.StatusOK, "", echo.Map{"available": q.Available, "price": q.Price, "days": q.Days})
}

// MyCars handles GET /api/cars/owner/my-cars.
func (h *CarHandler) MyCars(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    cars, err := h.Cars.ListByOwner(ctx, uid)
    if err != nil {
        return respondError(c, err, "Server error while fetching owner cars")
    }
    return ok(c, http.StatusOK, "", echo.Map{"count": len(cars), "cars": cars})
}

// Create handles POST /api/cars.  The body is multipart form data with
// every listing field and an "image" file.
func (h *CarHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    var in carInput
    for _, name := range carFields {
        raw := c.FormValue(name)
        if strings.TrimSpace(raw) == "" {
            return fail(c, http.StatusBadRequest, "All fields are required")
        }
        if err := in.setField(name, raw); err != nil {
            return fail(c, http.StatusBadRequest, err.Error())
        }
    }
    if err := c.Validate(&in); err != nil {
        return fail(c, http.StatusBadRequest, validationMessage(err))
    }

    image, status, err := h.saveImage(c)
    if err != nil {
        return fail(c, status, err.Error())
    }
    if image == "" {
        return fail(c, http.StatusBadRequest, "Car image is required")
    }

    car := &model.Car{OwnerID: uid, Image: UploadsPrefix + image, IsAvailable: true}
    in.apply(car)

    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Cars.Create(ctx, car); err != nil {
        h.removeImage(c, UploadsPrefix+image)
        return respondError(c, err, "Server error while adding car")
    }
    h.changed(ctx)
    return ok(c, http.StatusCreated, "Car added successfully", echo.Map{"car": car})
}

// Update handles PUT /api/cars/:id.  Only the submitted fields change; a
// new image replaces the stored one, which is deleted.  Both multipart
// forms and JSON bodies are accepted.
func (h *CarHandler) Update(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid car id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    car, err := h.Cars.GetOwned(ctx, id, uid)
    if errors.Is(err, repository.ErrForbidden) {
        return fail(c, http.StatusForbidden, "Not authorized to update this car")
    }
    if err != nil {
        return respondError(c, err, "Server error while updating car")
    }

    in := inputFrom(car)
    available := car.IsAvailable
    if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
        patch := map[string]any{}
        if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
            return fail(c, http.StatusBadRequest, "Invalid request body")
        }
        for _, name := range carFields {
            if v, present := patch[name]; present {
                if err := in.setField(name, jsonScalar(v)); err != nil {
                    return fail(c, http.StatusBadRequest, err.Error())
                }
            }
        }
        if v, present := patch["isAvailable"].(bool); present {
            available = v
        }
    } else {
        for _, name := range carFields {
            if raw := c.FormValue(name); raw != "" {
                if err := in.setField(name, raw); err != nil {
                    return fail(c, http.StatusBadRequest, err.Error())
                }
            }
        }
        if raw := c.FormValue("isAvailable"); raw != "" {
            v, err := strconv.ParseBool(raw)
            if err != nil {
                return fail(c, http.StatusBadRequest, "isAvailable must be a boolean")
            }
            available = v
        }
    }
    if err := c.Validate(&in); err != nil {
        return fail(c, http.StatusBadRequest, validationMessage(err))
    }

    image, status, err := h.saveImage(c)
    if err != nil {
        return fail(c, status, err.Error())
    }
    oldImage := car.Image
    in.apply(car)
    car.IsAvailable = available
    if image != "" {
        car.Image = UploadsPrefix + image
    }

    if err := h.Cars.Update(ctx, car); err != nil {
        if image != "" {
            h.removeImage(c, car.Image)
        }
        return respondError(c, err, "Server error while updating car")
    }
    if image != "" {
        h.removeImage(c, oldImage)
    }
    h.changed(ctx)

    updated, err := h.Cars.GetByID(ctx, id)
    if err != nil {
        return respondError(c, err, "Server error while updating car")
    }
    return ok(c, http.StatusOK, "Car updated successfully", echo.Map{"car": updated})
}

// Toggle handles PATCH /api/cars/:id/toggle.
func (h *CarHandler) Toggle(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid car id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    if _, err := h.Cars.GetOwned(ctx, id, uid); err != nil {
        if errors.Is(err, repository.ErrForbidden) {
            return fail(c, http.StatusForbidden, "Not authorized to modify this car")
        }
        return respondError(c, err, "Server error while toggling availability")
    }
    available, err := h.Cars.ToggleAvailability(ctx, id, uid)
    if err != nil {
        return respondError(c, err, "Server error while toggling availability")
    }
    h.changed(ctx)

    car, err := h.Cars.GetByID(ctx, id)
    if err != nil {
        return respondError(c, err, "Server error while toggling availability")
    }
    msg := "Car deactivated successfully"
    if available {
        msg = "Car activated successfully"
    }
    return ok(c, http.StatusOK, msg, echo.Map{"car": car})
}

// Delete handles DELETE /api/cars/:id.  The car's bookings are removed
// with it.
func (h *CarHandler) Delete(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    id, valid := parseID(c, "id")
    if !valid {
        return fail(c, http.StatusBadRequest, "Invalid car id")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    car, err := h.Cars.GetOwned(ctx, id, uid)
    if errors.Is(err, repository.ErrForbidden) {
        return fail(c, http.StatusForbidden, "Not authorized to delete this car")
    }
    if err != nil {
        return respondError(c, err, "Server error while deleting car")
    }
    if err := h.Cars.Delete(ctx, id, uid); err != nil {
        return respondError(c, err, "Server error while deleting car")
    }
    h.removeImage(c, car.Image)
    h.changed(ctx)
    return ok(c, http.StatusOK, "Car deleted successfully", nil)
}

// ServeImage handles GET /uploads/:name.
func (h *CarHandler) ServeImage(c echo.Context) error {
    f, err := h.Images.Open(c.Param("name"))
    if err != nil {
        if errors.Is(err, storage.ErrInvalidName) || errors.Is(err, storage.ErrImageNotFound) {
            return fail(c, http.StatusNotFound, "Image not found")
        }
        return respondError(c, err, "Server error while reading image")
    }
    defer f.Close()
    c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
    return c.Stream(http.StatusOK, storage.ContentType(c.Param("name")), f)
}

// saveImage stores the "image" upload if one was sent.  It returns the
// stored name, or "" when no file was attached.
func (h *CarHandler) saveImage(c echo.Context) (string, int, error) {
    fh, err := c.FormFile("image")
    if err != nil {
        return "", 0, nil
    }
    if fh.Size > h.Images.MaxBytes() {
        return "", http.StatusBadRequest, storage.ErrTooLarge
    }
    src, err := fh.Open()
    if err != nil {
        return "", http.StatusBadRequest, errors.New("could not read uploaded image")
    }
    defer src.Close()

    name, err := h.Images.Save(fh.Filename, src)
    switch {
    case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedType):
        return "", http.StatusBadRequest, err
    case err != nil:
        zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("save car image")
        return "", http.StatusInternalServerError, errors.New("could not store uploaded image")
    }
    return name, 0, nil
}

// removeImage deletes a stored image referenced by url.  Images that
// were not uploaded here, such as seeded URLs, are left alone.
func (h *CarHandler) removeImage(c echo.Context, url string) {
    name, found := strings.CutPrefix(url, UploadsPrefix)
    if !found {
        return
    }
    if err := h.Images.Delete(name); err != nil && !errors.Is(err, storage.ErrInvalidName) {
        zerolog.Ctx(c.Request().Context()).Warn().Err(err).Str("image", name).Msg("delete car image")
    }
}

func (h *CarHandler) changed(ctx context.Context) {
    if h.OnChange != nil {
        h.OnChange(ctx)
    }
}

// jsonScalar renders a decoded JSON value the way it would arrive in a
// form field.
func jsonScalar(v any) string {
    switch t := v.(type) {
    case string:
        return t
    case float64:
        return strconv.FormatFloat(t, 'f', -1, 64)
    case bool:
        return strconv.FormatBool(t)
    case nil:
        return ""
    }
    return ""
}
