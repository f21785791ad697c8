package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/car-rental/internal/model"
)

// BookingTx is the set of operations available while a booking is being
// created.  Implementations hold a lock on the car row for the lifetime
// of the transaction so that concurrent creations for the same car are
// serialized between the availability check and the insert.
type BookingTx interface {
	// LockCar loads the car and locks it until the transaction ends.
	LockCar(ctx context.Context, carID uint64) (*model.Car, error)
	// ListActiveByCar returns the pending and confirmed bookings of carID.
	ListActiveByCar(ctx context.Context, carID uint64) ([]model.Booking, error)
	// Insert stores b and fills in its ID and timestamps.
	Insert(ctx context.Context, b *model.Booking) error
}

// BookingRepo provides data access to the bookings table.  All
// timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.car_id, b.user_id, b.owner_id, b.pickup_date, b.return_date,
	b.status, b.price, b.created_at, b.updated_at`

const bookingDetailSelect = `SELECT ` + bookingColumns + `, ` + carColumns + `,
	u.name, u.email, o.name, o.email
	FROM bookings b
	JOIN cars c ON c.id = b.car_id
	JOIN users u ON u.id = b.user_id
	JOIN users o ON o.id = b.owner_id`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func bookingDest(b *model.Booking) []any {
	return []any{
		&b.ID, &b.CarID, &b.UserID, &b.OwnerID, &b.PickupDate, &b.ReturnDate,
		&b.Status, &b.Price, &b.CreatedAt, &b.UpdatedAt,
	}
}

func scanBookingDetail(s rowScanner) (*model.Booking, error) {
	var (
		b     model.Booking
		car   model.Car
		user  model.UserRef
		owner model.UserRef
	)
	dest := append(bookingDest(&b), carDest(&car)...)
	dest = append(dest, &user.Name, &user.Email, &owner.Name, &owner.Email)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	user.ID = b.UserID
	owner.ID = b.OwnerID
	b.Car, b.User, b.Owner = &car, &user, &owner
	return &b, nil
}

// InTx runs fn inside a transaction and commits when it returns nil.
// Any error, or a panic, rolls the transaction back.
func (r *BookingRepo) InTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlBookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// ListActiveByCar returns the pending and confirmed bookings of carID
// outside of any transaction.
func (r *BookingRepo) ListActiveByCar(ctx context.Context, carID uint64) ([]model.Booking, error) {
	return listActiveByCar(ctx, r.db, carID)
}

// GetByID returns the bare booking row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id).
		Scan(bookingDest(&b)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query booking: %w", err)
	}
	return &b, nil
}

// GetDetail returns the booking with its car, renter and owner resolved.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query booking: %w", err)
	}
	return b, nil
}

// ListByUser returns the bookings made by userID, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.listDetails(ctx, bookingDetailSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`, userID)
}

// ListByOwner returns the bookings on cars owned by ownerID, newest first.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error) {
	return r.listDetails(ctx, bookingDetailSelect+` WHERE b.owner_id = ? ORDER BY b.created_at DESC, b.id DESC`, ownerID)
}

// ListRecentByOwner returns at most limit of the owner's latest bookings.
func (r *BookingRepo) ListRecentByOwner(ctx context.Context, ownerID uint64, limit int) ([]model.Booking, error) {
	return r.listDetails(ctx, bookingDetailSelect+` WHERE b.owner_id = ? ORDER BY b.created_at DESC, b.id DESC LIMIT ?`, ownerID, limit)
}

func (r *BookingRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateStatus overwrites the status of booking id.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return requireAffected(res, ErrBookingNotFound)
}

// CancelActive sets booking id to cancelled if it is still pending or
// confirmed.  It reports false when the booking was in any other state
// at the time of the update.
func (r *BookingRepo) CancelActive(ctx context.Context, id uint64) (bool, error) {
	in, args := activeStatusIn()
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status IN `+in,
		append([]any{model.StatusCancelled, id}, args...)...)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes booking id permanently.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return requireAffected(res, ErrBookingNotFound)
}

func listActiveByCar(ctx context.Context, q queryer, carID uint64) ([]model.Booking, error) {
	in, args := activeStatusIn()
	rows, err := q.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.car_id = ? AND b.status IN `+in,
		append([]any{carID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query active bookings: %w", err)
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(bookingDest(&b)...); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// activeStatusIn returns a "(?, ?)" placeholder list for
// model.ActiveStatuses and the matching arguments.
func activeStatusIn() (string, []any) {
	marks := make([]string, len(model.ActiveStatuses))
	args := make([]any, len(model.ActiveStatuses))
	for i, s := range model.ActiveStatuses {
		marks[i] = "?"
		args[i] = s
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}

type sqlBookingTx struct {
	tx *sql.Tx
}

func (t *sqlBookingTx) LockCar(ctx context.Context, carID uint64) (*model.Car, error) {
	var c model.Car
	err := t.tx.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars c WHERE c.id = ? FOR UPDATE`, carID).
		Scan(carDest(&c)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock car: %w", err)
	}
	return &c, nil
}

func (t *sqlBookingTx) ListActiveByCar(ctx context.Context, carID uint64) ([]model.Booking, error) {
	return listActiveByCar(ctx, t.tx, carID)
}

func (t *sqlBookingTx) Insert(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (car_id, user_id, owner_id, pickup_date, return_date, status, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, b.CarID, b.UserID, b.OwnerID, b.PickupDate, b.ReturnDate, b.Status, b.Price)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// read back defaults and timestamps
	return t.tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id).
		Scan(bookingDest(b)...)
}
