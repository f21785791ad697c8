package service

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/queue"
    "github.com/iliyamo/car-rental/internal/repository"
)

// memStore is an in-memory BookingStore.  InTx holds a single mutex for
// the whole transaction, which stands in for the row lock on the car.
type memStore struct {
    mu       sync.Mutex
    cars     map[uint64]*model.Car
    bookings map[uint64]*model.Booking
    nextID   uint64
    failList error
}

func newMemStore(cars ...model.Car) *memStore {
    s := &memStore{cars: map[uint64]*model.Car{}, bookings: map[uint64]*model.Booking{}}
    for i := range cars {
        c := cars[i]
        s.cars[c.ID] = &c
    }
    return s
}

func (s *memStore) InTx(ctx context.Context, fn func(tx repository.BookingTx) error) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    staged := &memTx{s: s}
    if err := fn(staged); err != nil {
        return err
    }
    for _, b := range staged.inserted {
        s.bookings[b.ID] = b
    }
    return nil
}

func (s *memStore) active(carID uint64) ([]model.Booking, error) {
    if s.failList != nil {
        return nil, s.failList
    }
    var out []model.Booking
    for _, b := range s.bookings {
        if b.CarID == carID && b.Status.IsActive() {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (s *memStore) ListActiveByCar(_ context.Context, carID uint64) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.active(carID)
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (s *memStore) GetDetail(ctx context.Context, id uint64) (*model.Booking, error) {
    b, err := s.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    if c, ok := s.cars[b.CarID]; ok {
        cp := *c
        b.Car = &cp
    }
    b.User = &model.UserRef{ID: b.UserID}
    b.Owner = &model.UserRef{ID: b.OwnerID}
    return b, nil
}

func (s *memStore) list(match func(*model.Booking) bool) []model.Booking {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []model.Booking{}
    for _, b := range s.bookings {
        if match(b) {
            out = append(out, *b)
        }
    }
    return out
}

func (s *memStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
    return s.list(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (s *memStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Booking, error) {
    return s.list(func(b *model.Booking) bool { return b.OwnerID == ownerID }), nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uint64, status model.BookingStatus) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = status
    return nil
}

func (s *memStore) CancelActive(_ context.Context, id uint64) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || !b.Status.IsActive() {
        return false, nil
    }
    b.Status = model.StatusCancelled
    return true, nil
}

func (s *memStore) Delete(_ context.Context, id uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.bookings[id]; !ok {
        return repository.ErrBookingNotFound
    }
    delete(s.bookings, id)
    return nil
}

// carByID lets memStore double as the CarReader.
type carByID struct{ s *memStore }

func (c carByID) GetByID(_ context.Context, id uint64) (*model.Car, error) {
    c.s.mu.Lock()
    defer c.s.mu.Unlock()
    car, ok := c.s.cars[id]
    if !ok {
        return nil, repository.ErrCarNotFound
    }
    cp := *car
    return &cp, nil
}

// memTx runs with memStore.mu already held.
type memTx struct {
    s        *memStore
    inserted []*model.Booking
}

func (t *memTx) LockCar(_ context.Context, carID uint64) (*model.Car, error) {
    c, ok := t.s.cars[carID]
    if !ok {
        return nil, repository.ErrCarNotFound
    }
    cp := *c
    return &cp, nil
}

func (t *memTx) ListActiveByCar(_ context.Context, carID uint64) ([]model.Booking, error) {
    return t.s.active(carID)
}

func (t *memTx) Insert(_ context.Context, b *model.Booking) error {
    t.s.nextID++
    b.ID = t.s.nextID
    b.CreatedAt = time.Now()
    b.UpdatedAt = b.CreatedAt
    cp := *b
    t.inserted = append(t.inserted, &cp)
    return nil
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.BookingEvent
    err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func (p *recordingPublisher) types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    var out []string
    for _, e := range p.events {
        out = append(out, e.Type)
    }
    return out
}

const (
    ownerID  uint64 = 1
    renterID uint64 = 2
    otherID  uint64 = 3
)

var today = time.Date(2024, 12, 1, 15, 4, 5, 0, time.UTC)

func newTestService(t *testing.T, cars ...model.Car) (*BookingService, *memStore, *recordingPublisher) {
    t.Helper()
    if len(cars) == 0 {
        cars = []model.Car{{ID: 10, OwnerID: ownerID, PricePerDay: 150, IsAvailable: true}}
    }
    store := newMemStore(cars...)
    pub := &recordingPublisher{}
    svc := NewBookingService(store, carByID{store}, zerolog.Nop(),
        WithClock(func() time.Time { return today }), WithPublisher(pub))
    return svc, store, pub
}

func mustCreate(t *testing.T, svc *BookingService, pickup, ret string) *model.Booking {
    t.Helper()
    b, err := svc.Create(context.Background(), renterID, CreateInput{CarID: 10, PickupDate: pickup, ReturnDate: ret})
    require.NoError(t, err)
    return b
}

func TestCreateBooking(t *testing.T) {
    svc, _, pub := newTestService(t)

    b := mustCreate(t, svc, "2024-12-10", "2024-12-14")
    assert.Equal(t, model.StatusPending, b.Status)
    assert.Equal(t, ownerID, b.OwnerID)
    assert.Equal(t, renterID, b.UserID)
    assert.InDelta(t, 750, b.Price, 0.001)
    require.NotNil(t, b.Car)
    require.NotNil(t, b.User)
    assert.Equal(t, uint64(10), b.Car.ID)
    assert.Equal(t, []string{queue.EventBookingCreated}, pub.types())
}

func TestCreateBookingPickupTodayAllowed(t *testing.T) {
    svc, _, _ := newTestService(t)
    b := mustCreate(t, svc, "2024-12-01", "2024-12-02")
    assert.InDelta(t, 300, b.Price, 0.001)
}

func TestCreateBookingFailures(t *testing.T) {
    unavailable := model.Car{ID: 11, OwnerID: ownerID, PricePerDay: 80, IsAvailable: false}
    available := model.Car{ID: 10, OwnerID: ownerID, PricePerDay: 150, IsAvailable: true}

    tests := []struct {
        name   string
        in     CreateInput
        kind   error
        status int
    }{
        {"missing car", CreateInput{PickupDate: "2024-12-10", ReturnDate: "2024-12-12"}, ErrMissingField, 400},
        {"missing pickup", CreateInput{CarID: 10, ReturnDate: "2024-12-12"}, ErrMissingField, 400},
        {"missing return", CreateInput{CarID: 10, PickupDate: "2024-12-10", ReturnDate: "  "}, ErrMissingField, 400},
        {"unknown car", CreateInput{CarID: 99, PickupDate: "2024-12-10", ReturnDate: "2024-12-12"}, ErrNotFound, 404},
        {"unavailable car", CreateInput{CarID: 11, PickupDate: "2030-01-01", ReturnDate: "2030-01-05"}, ErrUnavailable, 400},
        {"unavailable even with bad dates", CreateInput{CarID: 11, PickupDate: "2020-01-01", ReturnDate: "2019-01-01"}, ErrUnavailable, 400},
        {"pickup in the past", CreateInput{CarID: 10, PickupDate: "2024-11-30", ReturnDate: "2024-12-05"}, ErrInvalidDate, 400},
        {"garbage date", CreateInput{CarID: 10, PickupDate: "next tuesday", ReturnDate: "2024-12-05"}, ErrInvalidDate, 400},
        {"return equals pickup", CreateInput{CarID: 10, PickupDate: "2024-12-10", ReturnDate: "2024-12-10"}, ErrInvalidRange, 400},
        {"return before pickup", CreateInput{CarID: 10, PickupDate: "2024-12-10", ReturnDate: "2024-12-09"}, ErrInvalidRange, 400},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            svc, store, pub := newTestService(t, available, unavailable)
            _, err := svc.Create(context.Background(), renterID, tt.in)
            require.Error(t, err)
            assert.ErrorIs(t, err, tt.kind)
            assert.Equal(t, tt.status, StatusOf(err))
            assert.Empty(t, store.bookings)
            assert.Empty(t, pub.types())
        })
    }
}

func TestCreateBookingConflicts(t *testing.T) {
    svc, _, _ := newTestService(t)
    mustCreate(t, svc, "2024-12-10", "2024-12-14")

    _, err := svc.Create(context.Background(), otherID, CreateInput{CarID: 10, PickupDate: "2024-12-11", ReturnDate: "2024-12-12"})
    assert.ErrorIs(t, err, ErrConflict)
    assert.Equal(t, 400, StatusOf(err))

    // touching the return day still conflicts
    _, err = svc.Create(context.Background(), otherID, CreateInput{CarID: 10, PickupDate: "2024-12-14", ReturnDate: "2024-12-16"})
    assert.ErrorIs(t, err, ErrConflict)

    b, err := svc.Create(context.Background(), otherID, CreateInput{CarID: 10, PickupDate: "2024-12-15", ReturnDate: "2024-12-16"})
    require.NoError(t, err)
    assert.Equal(t, otherID, b.UserID)
}

func TestCancelledBookingFreesDates(t *testing.T) {
    svc, _, _ := newTestService(t)
    first := mustCreate(t, svc, "2024-12-10", "2024-12-14")

    _, err := svc.Cancel(context.Background(), first.ID, renterID)
    require.NoError(t, err)

    _, err = svc.Create(context.Background(), otherID, CreateInput{CarID: 10, PickupDate: "2024-12-10", ReturnDate: "2024-12-14"})
    assert.NoError(t, err)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
    svc, store, _ := newTestService(t)

    const n = 16
    var (
        wg        sync.WaitGroup
        mu        sync.Mutex
        succeeded int
        conflicts int
    )
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            _, err := svc.Create(context.Background(), user, CreateInput{CarID: 10, PickupDate: "2024-12-10", ReturnDate: "2024-12-12"})
            mu.Lock()
            defer mu.Unlock()
            if err == nil {
                succeeded++
            } else if errors.Is(err, ErrConflict) {
                conflicts++
            }
        }(uint64(100 + i))
    }
    wg.Wait()

    assert.Equal(t, 1, succeeded)
    assert.Equal(t, n-1, conflicts)
    active, err := store.ListActiveByCar(context.Background(), 10)
    require.NoError(t, err)
    assert.Len(t, active, 1)
}

func TestCreateBookingStoreFailureIsInternal(t *testing.T) {
    svc, store, _ := newTestService(t)
    store.failList = errors.New("connection reset")

    _, err := svc.Create(context.Background(), renterID, CreateInput{CarID: 10, PickupDate: "2024-12-10", ReturnDate: "2024-12-12"})
    require.Error(t, err)
    assert.ErrorIs(t, err, ErrInternal)
    assert.Equal(t, 500, StatusOf(err))
    assert.Equal(t, "internal server error", Message(err))
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
    svc, _, pub := newTestService(t)
    pub.err = errors.New("broker down")

    b := mustCreate(t, svc, "2024-12-10", "2024-12-12")
    assert.NotZero(t, b.ID)
}

func TestSetStatus(t *testing.T) {
    svc, _, pub := newTestService(t)
    b := mustCreate(t, svc, "2024-12-10", "2024-12-12")

    got, err := svc.SetStatus(context.Background(), b.ID, ownerID, model.StatusConfirmed)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, got.Status)

    // any transition is accepted, including reopening a completed booking
    _, err = svc.SetStatus(context.Background(), b.ID, ownerID, model.StatusCompleted)
    require.NoError(t, err)
    got, err = svc.SetStatus(context.Background(), b.ID, ownerID, model.StatusPending)
    require.NoError(t, err)
    assert.Equal(t, model.StatusPending, got.Status)

    for _, bad := range []model.BookingStatus{"archived", "CONFIRMED", " confirmed", ""} {
        _, err = svc.SetStatus(context.Background(), b.ID, ownerID, bad)
        assert.ErrorIs(t, err, ErrInvalidStatus, "status %q", bad)
        assert.Equal(t, 400, StatusOf(err))
    }

    _, err = svc.SetStatus(context.Background(), b.ID, renterID, model.StatusConfirmed)
    assert.ErrorIs(t, err, ErrForbidden)
    assert.Equal(t, 403, StatusOf(err))

    _, err = svc.SetStatus(context.Background(), 999, ownerID, model.StatusConfirmed)
    assert.ErrorIs(t, err, ErrNotFound)
    assert.Equal(t, 404, StatusOf(err))

    assert.Equal(t, []string{
        queue.EventBookingCreated,
        queue.EventBookingStatusChanged,
        queue.EventBookingStatusChanged,
        queue.EventBookingStatusChanged,
    }, pub.types())
}

func TestCancel(t *testing.T) {
    svc, _, _ := newTestService(t)
    b := mustCreate(t, svc, "2024-12-10", "2024-12-12")

    _, err := svc.Cancel(context.Background(), b.ID, ownerID)
    assert.ErrorIs(t, err, ErrForbidden)

    got, err := svc.Cancel(context.Background(), b.ID, renterID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, got.Status)

    _, err = svc.Cancel(context.Background(), b.ID, renterID)
    assert.ErrorIs(t, err, ErrInvalidState)

    _, err = svc.Cancel(context.Background(), 999, renterID)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelCompletedBooking(t *testing.T) {
    svc, _, _ := newTestService(t)
    b := mustCreate(t, svc, "2024-12-10", "2024-12-12")
    _, err := svc.SetStatus(context.Background(), b.ID, ownerID, model.StatusCompleted)
    require.NoError(t, err)

    _, err = svc.Cancel(context.Background(), b.ID, renterID)
    assert.ErrorIs(t, err, ErrInvalidState)
    assert.Equal(t, 400, StatusOf(err))
}

func TestDelete(t *testing.T) {
    svc, store, pub := newTestService(t)
    b := mustCreate(t, svc, "2024-12-10", "2024-12-12")

    err := svc.Delete(context.Background(), b.ID, renterID)
    assert.ErrorIs(t, err, ErrForbidden)

    require.NoError(t, svc.Delete(context.Background(), b.ID, ownerID))
    assert.Empty(t, store.bookings)
    assert.Contains(t, pub.types(), queue.EventBookingDeleted)

    err = svc.Delete(context.Background(), b.ID, ownerID)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAuthorization(t *testing.T) {
    svc, _, _ := newTestService(t)
    b := mustCreate(t, svc, "2024-12-10", "2024-12-12")

    for _, actor := range []uint64{renterID, ownerID} {
        got, err := svc.Get(context.Background(), b.ID, actor)
        require.NoError(t, err)
        assert.Equal(t, b.ID, got.ID)
    }
    _, err := svc.Get(context.Background(), b.ID, otherID)
    assert.ErrorIs(t, err, ErrForbidden)
}

func TestListings(t *testing.T) {
    svc, _, _ := newTestService(t)
    mustCreate(t, svc, "2024-12-10", "2024-12-12")

    mine, err := svc.ListForUser(context.Background(), renterID)
    require.NoError(t, err)
    assert.Len(t, mine, 1)

    owned, err := svc.ListForOwner(context.Background(), ownerID)
    require.NoError(t, err)
    assert.Len(t, owned, 1)

    none, err := svc.ListForUser(context.Background(), otherID)
    require.NoError(t, err)
    assert.Empty(t, none)
}

func TestQuote(t *testing.T) {
    svc, _, _ := newTestService(t,
        model.Car{ID: 10, OwnerID: ownerID, PricePerDay: 150, IsAvailable: true},
        model.Car{ID: 11, OwnerID: ownerID, PricePerDay: 80, IsAvailable: false})
    mustCreate(t, svc, "2024-12-10", "2024-12-14")

    q, err := svc.Quote(context.Background(), 10, "2024-12-20", "2024-12-22")
    require.NoError(t, err)
    assert.Equal(t, &Quote{Available: true, Price: 450, Days: 3}, q)

    q, err = svc.Quote(context.Background(), 10, "2024-12-12", "2024-12-13")
    require.NoError(t, err)
    assert.False(t, q.Available)

    q, err = svc.Quote(context.Background(), 11, "2024-12-20", "2024-12-21")
    require.NoError(t, err)
    assert.False(t, q.Available)
    assert.InDelta(t, 160, q.Price, 0.001)

    _, err = svc.Quote(context.Background(), 12, "2024-12-20", "2024-12-21")
    assert.ErrorIs(t, err, ErrNotFound)

    _, err = svc.Quote(context.Background(), 10, "2024-12-20", "")
    assert.ErrorIs(t, err, ErrMissingField)
}

func TestParseDate(t *testing.T) {
    d, err := ParseDate("2024-12-10")
    require.NoError(t, err)
    assert.Equal(t, date("2024-12-10"), d)

    d, err = ParseDate("2024-12-10T10:00:00+02:00")
    require.NoError(t, err)
    assert.Equal(t, time.Date(2024, 12, 10, 8, 0, 0, 0, time.UTC), d)

    _, err = ParseDate("10/12/2024")
    assert.Error(t, err)
}

func TestStatusOfRepositoryErrors(t *testing.T) {
    assert.Equal(t, 404, StatusOf(repository.ErrCarNotFound))
    assert.Equal(t, 403, StatusOf(repository.ErrForbidden))
    assert.Equal(t, 500, StatusOf(errors.New("boom")))
    assert.Equal(t, "car not found", Message(repository.ErrCarNotFound))
}
