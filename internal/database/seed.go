package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/car-rental/internal/utils"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password123"

type seedUser struct {
	name, email, role string
}

type seedCar struct {
	ownerEmail   string
	brand, model string
	year         int
	category     string
	seats        int
	fuel         string
	transmission string
	price        float64
	location     string
	description  string
}

var seedUsers = []seedUser{
	{"Olivia Owner", "owner@example.com", "owner"},
	{"Marcus Fleet", "fleet@example.com", "owner"},
	{"Rita Renter", "user@example.com", "user"},
	{"Sam Driver", "sam@example.com", "user"},
}

var seedCars = []seedCar{
	{"owner@example.com", "Toyota", "Corolla", 2022, "Sedan", 5, "Hybrid", "Automatic", 65, "New York", "Economical hybrid sedan for city trips."},
	{"owner@example.com", "BMW", "X5", 2023, "SUV", 5, "Diesel", "Automatic", 180, "Los Angeles", "Spacious SUV with panoramic roof."},
	{"owner@example.com", "Volkswagen", "Golf", 2021, "Hatchback", 5, "Petrol", "Manual", 55, "Chicago", "Nimble hatchback, easy to park."},
	{"fleet@example.com", "Tesla", "Model S", 2024, "Luxury", 5, "Electric", "Automatic", 250, "Houston", "Long range electric with autopilot."},
	{"fleet@example.com", "Ford", "Explorer", 2020, "SUV", 7, "Petrol", "Semi-Automatic", 120, "New York", "Seven seats for family road trips."},
}

// Seed inserts sample owners, renters and cars.  Users whose email
// already exists are left untouched and cars are only added for owners
// that have none, so running it twice is harmless.
func Seed(ctx context.Context, db *sql.DB, bcryptCost int, log zerolog.Logger) error {
	hash, err := utils.HashPassword(SeedPassword, bcryptCost)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make(map[string]uint64, len(seedUsers))
	for _, u := range seedUsers {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`,
			u.name, u.email, hash, u.role); err != nil {
			return fmt.Errorf("seed user %s: %w", u.email, err)
		}
		var id uint64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, u.email).Scan(&id); err != nil {
			return fmt.Errorf("lookup user %s: %w", u.email, err)
		}
		ids[u.email] = id
	}

	skip := map[uint64]bool{}
	for _, u := range seedUsers {
		if u.role != "owner" {
			continue
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars WHERE owner_id = ?`, ids[u.email]).Scan(&n); err != nil {
			return err
		}
		skip[ids[u.email]] = n > 0
	}

	added := 0
	for _, c := range seedCars {
		owner := ids[c.ownerEmail]
		if skip[owner] {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cars (owner_id, brand, model, image, year, category, seating_capacity,
				fuel_type, transmission, price_per_day, location, description, is_available)
			VALUES (?, ?, ?, '', ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			owner, c.brand, c.model, c.year, c.category, c.seats, c.fuel, c.transmission,
			c.price, c.location, c.description)
		if err != nil {
			return fmt.Errorf("seed car %s %s: %w", c.brand, c.model, err)
		}
		added++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Int("users", len(seedUsers)).Int("cars_added", added).Msg("seed complete")
	return nil
}
