package model

import "time"

// Enumerations a car listing is validated against.
var (
    CarCategories    = []string{"Sedan", "SUV", "Hatchback", "Luxury"}
    CarFuelTypes     = []string{"Petrol", "Diesel", "Hybrid", "Electric"}
    CarTransmissions = []string{"Automatic", "Manual", "Semi-Automatic"}
    CarLocations     = []string{"New York", "Los Angeles", "Houston", "Chicago"}
)

// Car mirrors a row of the `cars` table.  OwnerID is the only user
// allowed to mutate the listing.  Owner is filled in by queries that
// join the users table and is nil otherwise.
type Car struct {
    ID              uint64    `json:"id"`
    OwnerID         uint64    `json:"ownerId"`
    Owner           *UserRef  `json:"owner,omitempty"`
    Brand           string    `json:"brand"`
    Model           string    `json:"model"`
    Image           string    `json:"image"`
    Year            int       `json:"year"`
    Category        string    `json:"category"`
    SeatingCapacity int       `json:"seating_capacity"`
    FuelType        string    `json:"fuel_type"`
    Transmission    string    `json:"transmission"`
    PricePerDay     float64   `json:"pricePerDay"`
    Location        string    `json:"location"`
    Description     string    `json:"description"`
    IsAvailable     bool      `json:"isAvailable"`
    CreatedAt       time.Time `json:"createdAt"`
    UpdatedAt       time.Time `json:"updatedAt"`
}

// CarFilter narrows the public car listing.  Zero values disable a
// filter; MinPrice/MaxPrice are pointers so that 0 is a usable bound.
type CarFilter struct {
    Category string
    Location string
    Search   string
    MinPrice *float64
    MaxPrice *float64
}
