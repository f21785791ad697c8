package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental/internal/model"
)

var (
	carCols = []string{"id", "owner_id", "brand", "model", "image", "year", "category",
		"seating_capacity", "fuel_type", "transmission", "price_per_day", "location",
		"description", "is_available", "created_at", "updated_at"}
	bookingCols = []string{"id", "car_id", "user_id", "owner_id", "pickup_date", "return_date",
		"status", "price", "created_at", "updated_at"}
	created = time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func carRow(id, owner uint64) []any {
	return []any{id, owner, "Toyota", "Corolla", "/uploads/car.jpg", 2022, "Sedan",
		5, "Hybrid", "Automatic", 65.0, "New York", "city car", true, created, created}
}

func bookingRow(id, car uint64, status string) []any {
	pickup := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	return []any{id, car, uint64(2), uint64(1), pickup, pickup.AddDate(0, 0, 3),
		status, 260.0, created, created}
}

func rows(cols []string, vals ...[]any) *sqlmock.Rows {
	r := sqlmock.NewRows(cols)
	for _, v := range vals {
		dv := make([]driver.Value, len(v))
		for i := range v {
			dv[i] = v[i]
		}
		r.AddRow(dv...)
	}
	return r
}

func TestBookingInTxCommits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM cars c WHERE c.id = \? FOR UPDATE`).WithArgs(uint64(10)).
		WillReturnRows(rows(carCols, carRow(10, 1)))
	mock.ExpectQuery(`FROM bookings b WHERE b.car_id = \? AND b.status IN \(\?, \?\)`).
		WithArgs(uint64(10), "pending", "confirmed").
		WillReturnRows(rows(bookingCols))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).WithArgs(int64(7)).
		WillReturnRows(rows(bookingCols, bookingRow(7, 10, "pending")))
	mock.ExpectCommit()

	var inserted model.Booking
	err := repo.InTx(context.Background(), func(tx BookingTx) error {
		car, err := tx.LockCar(context.Background(), 10)
		if err != nil {
			return err
		}
		active, err := tx.ListActiveByCar(context.Background(), car.ID)
		if err != nil {
			return err
		}
		assert.Empty(t, active)
		inserted = model.Booking{CarID: car.ID, UserID: 2, OwnerID: car.OwnerID,
			PickupDate: time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
			ReturnDate: time.Date(2024, 12, 13, 0, 0, 0, 0, time.UTC),
			Status:     model.StatusPending, Price: 260}
		return tx.Insert(context.Background(), &inserted)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), inserted.ID)
	assert.Equal(t, created, inserted.CreatedAt)
}

func TestBookingInTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(rows(carCols))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx BookingTx) error {
		_, err := tx.LockCar(context.Background(), 99)
		return err
	})
	assert.ErrorIs(t, err, ErrCarNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingInTxBeginFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

	called := false
	err := NewBookingRepo(db).InTx(context.Background(), func(BookingTx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestCancelActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	q := regexp.QuoteMeta(`UPDATE bookings SET status = ? WHERE id = ? AND status IN (?, ?)`)

	mock.ExpectExec(q).WithArgs("cancelled", uint64(3), "pending", "confirmed").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.CancelActive(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(q).WithArgs("cancelled", uint64(4), "pending", "confirmed").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.CancelActive(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateStatusAndDeleteNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
		WithArgs(model.StatusConfirmed, uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 8, model.StatusConfirmed), ErrBookingNotFound)

	mock.ExpectExec(`DELETE FROM bookings WHERE id = \?`).WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrBookingNotFound)
}

func TestGetByIDBooking(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).WithArgs(uint64(7)).
		WillReturnRows(rows(bookingCols, bookingRow(7, 10, "confirmed")))
	b, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, 260.0, b.Price)

	mock.ExpectQuery(`FROM bookings b WHERE b.id = \?`).WithArgs(uint64(8)).
		WillReturnRows(rows(bookingCols))
	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListAvailableBuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCarRepo(db)
	lo, hi := 50.0, 200.0

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE c.is_available = 1 AND c.category = ? AND c.location = ? AND c.price_per_day >= ? AND c.price_per_day <= ? AND (LOWER(c.brand) LIKE ?`)).
		WithArgs("SUV", "Chicago", lo, hi, `%50\%%`, `%50\%%`, `%50\%%`).
		WillReturnRows(rows(append(carCols, "name", "email")))

	cars, err := repo.ListAvailable(context.Background(), model.CarFilter{
		Category: "SUV", Location: "Chicago", MinPrice: &lo, MaxPrice: &hi, Search: " 50% ",
	})
	require.NoError(t, err)
	assert.NotNil(t, cars)
	assert.Empty(t, cars)
}

func TestGetOwned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCarRepo(db)
	withOwner := append(carCols, "name", "email")

	mock.ExpectQuery(`WHERE c.id = \?`).WithArgs(uint64(10)).
		WillReturnRows(rows(withOwner, append(carRow(10, 1), "Olivia", "owner@example.com")))
	c, err := repo.GetOwned(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "Olivia", c.Owner.Name)
	assert.Equal(t, uint64(1), c.Owner.ID)

	mock.ExpectQuery(`WHERE c.id = \?`).WithArgs(uint64(10)).
		WillReturnRows(rows(withOwner, append(carRow(10, 1), "Olivia", "owner@example.com")))
	_, err = repo.GetOwned(context.Background(), 10, 2)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestToggleAvailability(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCarRepo(db)

	mock.ExpectExec(`UPDATE cars SET is_available = NOT is_available WHERE id = \? AND owner_id = \?`).
		WithArgs(uint64(10), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT is_available FROM cars WHERE id = \?`).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"is_available"}).AddRow(false))

	available, err := repo.ToggleAvailability(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.False(t, available)

	mock.ExpectExec(`UPDATE cars SET is_available`).WithArgs(uint64(10), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = repo.ToggleAvailability(context.Background(), 10, 2)
	assert.ErrorIs(t, err, ErrCarNotFound)
}

func TestRevenueGroupsByDay(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDashboardRepo(db)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DAY\(created_at\) AS d`).WithArgs(uint64(1), since).
		WillReturnRows(sqlmock.NewRows([]string{"y", "m", "d", "sum", "count"}).
			AddRow(2024, 11, 3, 450.0, 2).
			AddRow(2024, 11, 9, 120.5, 1))

	points, err := repo.Revenue(context.Background(), 1, since, true)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 3, points[0].Day)
	assert.Equal(t, 450.0, points[0].TotalRevenue)
	assert.Equal(t, 1, points[1].BookingCount)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% a\_b c\\d`, escapeLike(`100% a_b c\d`))
}

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'uq_users_email'"}
	assert.True(t, isDuplicateKey(dup))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert user: %w", dup)))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.False(t, isDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry")))
	assert.False(t, isDuplicateKey(errors.New("booking 1062 not found")))
}

func TestRevokeByHashOnlyOnce(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	q := `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP\(\) WHERE token_hash = \? AND revoked_at IS NULL`

	mock.ExpectExec(q).WithArgs("h1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("h1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RevokeByHash(context.Background(), "h1"))
	assert.ErrorIs(t, repo.RevokeByHash(context.Background(), "h1"), ErrInvalidRefresh)
}

func TestValidateRefreshUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}
