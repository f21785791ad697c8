package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/car-rental/internal/model"
)

// CarRepo provides CRUD operations for car listings.  Mutating methods
// take the acting owner's ID and include it in the WHERE clause so a car
// can only be changed by the user who listed it.
type CarRepo struct {
	db *sql.DB
}

// NewCarRepo returns a new CarRepo bound to the given database.
func NewCarRepo(db *sql.DB) *CarRepo { return &CarRepo{db: db} }

// DB exposes the underlying handle.
func (r *CarRepo) DB() *sql.DB { return r.db }

const carColumns = `c.id, c.owner_id, c.brand, c.model, c.image, c.year, c.category,
	c.seating_capacity, c.fuel_type, c.transmission, c.price_per_day, c.location,
	c.description, c.is_available, c.created_at, c.updated_at`

const carWithOwnerSelect = `SELECT ` + carColumns + `, u.name, u.email
	FROM cars c JOIN users u ON u.id = c.owner_id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func carDest(c *model.Car) []any {
	return []any{
		&c.ID, &c.OwnerID, &c.Brand, &c.Model, &c.Image, &c.Year, &c.Category,
		&c.SeatingCapacity, &c.FuelType, &c.Transmission, &c.PricePerDay, &c.Location,
		&c.Description, &c.IsAvailable, &c.CreatedAt, &c.UpdatedAt,
	}
}

func scanCarWithOwner(s rowScanner) (*model.Car, error) {
	var c model.Car
	owner := model.UserRef{}
	dest := append(carDest(&c), &owner.Name, &owner.Email)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	owner.ID = c.OwnerID
	c.Owner = &owner
	return &c, nil
}

// Create inserts a car and fills in its generated ID and timestamps.
func (r *CarRepo) Create(ctx context.Context, c *model.Car) error {
	const q = `INSERT INTO cars (owner_id, brand, model, image, year, category, seating_capacity,
		fuel_type, transmission, price_per_day, location, description, is_available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		c.OwnerID, c.Brand, c.Model, c.Image, c.Year, c.Category, c.SeatingCapacity,
		c.FuelType, c.Transmission, c.PricePerDay, c.Location, c.Description, c.IsAvailable)
	if err != nil {
		return fmt.Errorf("insert car: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

// GetByID returns the car with its owner's name and email.
func (r *CarRepo) GetByID(ctx context.Context, id uint64) (*model.Car, error) {
	c, err := scanCarWithOwner(r.db.QueryRowContext(ctx, carWithOwnerSelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query car: %w", err)
	}
	return c, nil
}

// GetOwned returns the car when ownerID listed it.  It returns
// ErrCarNotFound when the car does not exist and ErrForbidden when it
// belongs to someone else.
func (r *CarRepo) GetOwned(ctx context.Context, id, ownerID uint64) (*model.Car, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return c, nil
}

// ListAvailable returns available cars matching f, newest first.
func (r *CarRepo) ListAvailable(ctx context.Context, f model.CarFilter) ([]model.Car, error) {
	where := []string{"c.is_available = 1"}
	var args []any
	if f.Category != "" {
		where = append(where, "c.category = ?")
		args = append(args, f.Category)
	}
	if f.Location != "" {
		where = append(where, "c.location = ?")
		args = append(args, f.Location)
	}
	if f.MinPrice != nil {
		where = append(where, "c.price_per_day >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "c.price_per_day <= ?")
		args = append(args, *f.MaxPrice)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		where = append(where, "(LOWER(c.brand) LIKE ? OR LOWER(c.model) LIKE ? OR LOWER(c.description) LIKE ?)")
		args = append(args, like, like, like)
	}
	q := carWithOwnerSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY c.created_at DESC, c.id DESC"
	return r.list(ctx, q, args...)
}

// ListByOwner returns all cars listed by ownerID, newest first.
func (r *CarRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Car, error) {
	return r.list(ctx, carWithOwnerSelect+` WHERE c.owner_id = ? ORDER BY c.created_at DESC, c.id DESC`, ownerID)
}

func (r *CarRepo) list(ctx context.Context, q string, args ...any) ([]model.Car, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}
	defer rows.Close()
	cars := []model.Car{}
	for rows.Next() {
		c, err := scanCarWithOwner(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, *c)
	}
	return cars, rows.Err()
}

// Update overwrites the mutable fields of c.  The row must belong to
// c.OwnerID.
func (r *CarRepo) Update(ctx context.Context, c *model.Car) error {
	const q = `UPDATE cars SET brand = ?, model = ?, image = ?, year = ?, category = ?,
		seating_capacity = ?, fuel_type = ?, transmission = ?, price_per_day = ?, location = ?,
		description = ?, is_available = ?
		WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		c.Brand, c.Model, c.Image, c.Year, c.Category, c.SeatingCapacity, c.FuelType,
		c.Transmission, c.PricePerDay, c.Location, c.Description, c.IsAvailable,
		c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	return requireAffected(res, ErrCarNotFound)
}

// ToggleAvailability flips is_available and returns the new value.
func (r *CarRepo) ToggleAvailability(ctx context.Context, id, ownerID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cars SET is_available = NOT is_available WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("toggle car: %w", err)
	}
	if err := requireAffected(res, ErrCarNotFound); err != nil {
		return false, err
	}
	var available bool
	if err := r.db.QueryRowContext(ctx, `SELECT is_available FROM cars WHERE id = ?`, id).Scan(&available); err != nil {
		return false, err
	}
	return available, nil
}

// Delete removes the car.  Its bookings go with it through the foreign
// key's ON DELETE CASCADE.
func (r *CarRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	return requireAffected(res, ErrCarNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
