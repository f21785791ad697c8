package service

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/queue"
    "github.com/iliyamo/car-rental/internal/repository"
)

const dateLayout = "2006-01-02"

// BookingStore is the persistence the booking service needs.
// *repository.BookingRepo implements it.
type BookingStore interface {
    InTx(ctx context.Context, fn func(tx repository.BookingTx) error) error
    ListActiveByCar(ctx context.Context, carID uint64) ([]model.Booking, error)
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    GetDetail(ctx context.Context, id uint64) (*model.Booking, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
    ListByOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error)
    UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error
    CancelActive(ctx context.Context, id uint64) (bool, error)
    Delete(ctx context.Context, id uint64) error
}

// CarReader looks a car up by ID.
type CarReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Car, error)
}

// CreateInput is a booking request as received from a client.  Dates are
// YYYY-MM-DD or RFC 3339 strings.
type CreateInput struct {
    CarID      uint64 `json:"carId"`
    PickupDate string `json:"pickupDate"`
    ReturnDate string `json:"returnDate"`
}

// Quote is the result of an availability query.
type Quote struct {
    Available bool    `json:"available"`
    Price     float64 `json:"price"`
    Days      int     `json:"days"`
}

// BookingService runs the booking lifecycle: creation with availability
// and pricing, owner status changes, renter cancellation and deletion.
//
// Creation runs in a store transaction holding a lock on the car, so two
// requests for the same car cannot both pass the overlap check.
type BookingService struct {
    store  BookingStore
    cars   CarReader
    events EventPublisher
    log    zerolog.Logger
    now    func() time.Time
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
    return func(s *BookingService) { s.now = now }
}

// WithPublisher sets the event publisher.  The default discards events.
func WithPublisher(p EventPublisher) Option {
    return func(s *BookingService) {
        if p != nil {
            s.events = p
        }
    }
}

// NewBookingService panics when store or cars is nil, mirroring the
// handler constructors.
func NewBookingService(store BookingStore, cars CarReader, log zerolog.Logger, opts ...Option) *BookingService {
    if store == nil || cars == nil {
        panic("nil dependency passed to NewBookingService")
    }
    s := &BookingService{store: store, cars: cars, events: NopPublisher{}, log: log, now: time.Now}
    for _, o := range opts {
        o(s)
    }
    return s
}

// Create books a car for requesterID and returns the stored booking with
// its car and people resolved.
func (s *BookingService) Create(ctx context.Context, requesterID uint64, in CreateInput) (*model.Booking, error) {
    if in.CarID == 0 || strings.TrimSpace(in.PickupDate) == "" || strings.TrimSpace(in.ReturnDate) == "" {
        return nil, fail(ErrMissingField, "carId, pickupDate and returnDate are required")
    }

    var created model.Booking
    err := s.store.InTx(ctx, func(tx repository.BookingTx) error {
        car, err := tx.LockCar(ctx, in.CarID)
        if errors.Is(err, repository.ErrNotFound) {
            return fail(ErrNotFound, "car not found")
        }
        if err != nil {
            return internal(err)
        }
        if !car.IsAvailable {
            return fail(ErrUnavailable, "car is not available")
        }

        pickup, ret, err := s.parseRange(in.PickupDate, in.ReturnDate)
        if err != nil {
            return err
        }

        conflict, err := CheckOverlap(ctx, tx, car.ID, pickup, ret)
        if err != nil {
            return internal(err)
        }
        if conflict {
            return fail(ErrConflict, "car is already booked for the selected dates")
        }

        price, err := ComputePrice(pickup, ret, car.PricePerDay)
        if err != nil {
            return err
        }

        created = model.Booking{
            CarID:      car.ID,
            UserID:     requesterID,
            OwnerID:    car.OwnerID,
            PickupDate: pickup,
            ReturnDate: ret,
            Status:     model.StatusPending,
            Price:      price,
        }
        if err := tx.Insert(ctx, &created); err != nil {
            return internal(err)
        }
        return nil
    })
    if err != nil {
        return nil, s.wrap(err)
    }

    s.publish(ctx, queue.EventBookingCreated, &created, requesterID)

    detail, err := s.store.GetDetail(ctx, created.ID)
    if err != nil {
        return nil, s.wrap(err)
    }
    return detail, nil
}

// Quote reports whether carID could be booked for the given dates and
// what it would cost.  It applies the same date rules as Create but
// takes no lock, so the answer may be stale by the time a booking is
// made.
func (s *BookingService) Quote(ctx context.Context, carID uint64, pickupRaw, returnRaw string) (*Quote, error) {
    if carID == 0 || strings.TrimSpace(pickupRaw) == "" || strings.TrimSpace(returnRaw) == "" {
        return nil, fail(ErrMissingField, "pickupDate and returnDate are required")
    }
    car, err := s.cars.GetByID(ctx, carID)
    if errors.Is(err, repository.ErrNotFound) {
        return nil, fail(ErrNotFound, "car not found")
    }
    if err != nil {
        return nil, s.wrap(err)
    }
    pickup, ret, err := s.parseRange(pickupRaw, returnRaw)
    if err != nil {
        return nil, err
    }
    days, err := BillableDays(pickup, ret)
    if err != nil {
        return nil, err
    }
    price, err := ComputePrice(pickup, ret, car.PricePerDay)
    if err != nil {
        return nil, err
    }
    q := &Quote{Price: price, Days: days}
    if !car.IsAvailable {
        return q, nil
    }
    conflict, err := CheckOverlap(ctx, s.store, carID, pickup, ret)
    if err != nil {
        return nil, s.wrap(err)
    }
    q.Available = !conflict
    return q, nil
}

// Get returns booking id when actorID is its renter or owner.
func (s *BookingService) Get(ctx context.Context, id, actorID uint64) (*model.Booking, error) {
    b, err := s.store.GetDetail(ctx, id)
    if err != nil {
        return nil, s.wrap(err)
    }
    if b.UserID != actorID && b.OwnerID != actorID {
        return nil, fail(ErrForbidden, "not authorized to view this booking")
    }
    return b, nil
}

// ListForUser returns the bookings made by userID, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    out, err := s.store.ListByUser(ctx, userID)
    if err != nil {
        return nil, s.wrap(err)
    }
    return out, nil
}

// ListForOwner returns the bookings on ownerID's cars, newest first.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error) {
    out, err := s.store.ListByOwner(ctx, ownerID)
    if err != nil {
        return nil, s.wrap(err)
    }
    return out, nil
}

// SetStatus overwrites the status of booking id.  Only the owner recorded
// on the booking may do so.  Any of the four states may be set from any
// other: owners use it to correct mistakes, including reopening a
// completed booking.
func (s *BookingService) SetStatus(ctx context.Context, id, actorID uint64, status model.BookingStatus) (*model.Booking, error) {
    if !status.IsValid() {
        return nil, fail(ErrInvalidStatus, "status must be one of pending, confirmed, cancelled, completed")
    }
    b, err := s.store.GetByID(ctx, id)
    if err != nil {
        return nil, s.wrap(err)
    }
    if b.OwnerID != actorID {
        return nil, fail(ErrForbidden, "only the car owner can update this booking")
    }
    if err := s.store.UpdateStatus(ctx, id, status); err != nil {
        return nil, s.wrap(err)
    }
    b.Status = status
    s.publish(ctx, queue.EventBookingStatusChanged, b, actorID)

    detail, err := s.store.GetDetail(ctx, id)
    if err != nil {
        return nil, s.wrap(err)
    }
    return detail, nil
}

// Cancel cancels booking id on behalf of its renter.  Only pending and
// confirmed bookings can be cancelled.
func (s *BookingService) Cancel(ctx context.Context, id, actorID uint64) (*model.Booking, error) {
    b, err := s.store.GetByID(ctx, id)
    if err != nil {
        return nil, s.wrap(err)
    }
    if b.UserID != actorID {
        return nil, fail(ErrForbidden, "only the renter can cancel this booking")
    }
    if !b.Status.IsActive() {
        return nil, fail(ErrInvalidState, "only pending or confirmed bookings can be cancelled")
    }
    ok, err := s.store.CancelActive(ctx, id)
    if err != nil {
        return nil, s.wrap(err)
    }
    if !ok {
        // the owner changed the status after we read it
        return nil, fail(ErrInvalidState, "only pending or confirmed bookings can be cancelled")
    }
    b.Status = model.StatusCancelled
    s.publish(ctx, queue.EventBookingCancelled, b, actorID)

    detail, err := s.store.GetDetail(ctx, id)
    if err != nil {
        return nil, s.wrap(err)
    }
    return detail, nil
}

// Delete removes booking id permanently.  Only its owner may delete it.
func (s *BookingService) Delete(ctx context.Context, id, actorID uint64) error {
    b, err := s.store.GetByID(ctx, id)
    if err != nil {
        return s.wrap(err)
    }
    if b.OwnerID != actorID {
        return fail(ErrForbidden, "only the car owner can delete this booking")
    }
    if err := s.store.Delete(ctx, id); err != nil {
        return s.wrap(err)
    }
    s.publish(ctx, queue.EventBookingDeleted, b, actorID)
    return nil
}

// parseRange parses both dates and applies the creation rules: pickup
// not before today (UTC, date only) and return strictly after pickup.
func (s *BookingService) parseRange(pickupRaw, returnRaw string) (time.Time, time.Time, error) {
    pickup, err := ParseDate(pickupRaw)
    if err != nil {
        return time.Time{}, time.Time{}, fail(ErrInvalidDate, "invalid pickup date")
    }
    ret, err := ParseDate(returnRaw)
    if err != nil {
        return time.Time{}, time.Time{}, fail(ErrInvalidDate, "invalid return date")
    }
    if pickup.Before(startOfDay(s.now())) {
        return time.Time{}, time.Time{}, fail(ErrInvalidDate, "pickup date cannot be in the past")
    }
    if !ret.After(pickup) {
        return time.Time{}, time.Time{}, fail(ErrInvalidRange, "return date must be after pickup date")
    }
    return pickup, ret, nil
}

// wrap turns store errors into domain errors.  Domain errors pass
// through unchanged.
func (s *BookingService) wrap(err error) error {
    var de *Error
    switch {
    case errors.As(err, &de):
        if errors.Is(de.Kind, ErrInternal) {
            s.log.Error().Err(de.Err).Msg("booking operation failed")
        }
        return de
    case errors.Is(err, repository.ErrBookingNotFound):
        return fail(ErrNotFound, "booking not found")
    case errors.Is(err, repository.ErrNotFound):
        return fail(ErrNotFound, err.Error())
    }
    s.log.Error().Err(err).Msg("booking operation failed")
    return internal(err)
}

func (s *BookingService) publish(ctx context.Context, typ string, b *model.Booking, actorID uint64) {
    ev := NewBookingEvent(typ, b, actorID, s.now())
    // detached from the request so a client disconnect does not drop the event
    pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
    defer cancel()
    if err := s.events.Publish(pubCtx, ev); err != nil {
        s.log.Warn().Err(err).Str("event", typ).Uint64("booking_id", b.ID).Msg("publish booking event failed")
    }
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// instant in UTC.
func ParseDate(raw string) (time.Time, error) {
    raw = strings.TrimSpace(raw)
    if t, err := time.Parse(dateLayout, raw); err == nil {
        return t, nil
    }
    t, err := time.Parse(time.RFC3339, raw)
    if err != nil {
        return time.Time{}, err
    }
    return t.UTC(), nil
}

func startOfDay(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
