package model

import "time"

// Roles accepted by the API.  Owners list cars and manage the bookings
// made on them; users rent cars.
const (
    RoleUser  = "user"
    RoleOwner = "owner"
)

// User represents an application user record as stored in the
// `users` table.  PasswordHash never leaves the server, so it carries
// no json tag.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name shown to owners and renters.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – user or owner.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    `json:"id"`
    Name         string    `json:"name"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    Role         string    `json:"role"`
    CreatedAt    time.Time `json:"createdAt"`
    UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRef is the public projection of a user embedded in cars and
// bookings (name and email only).
type UserRef struct {
    ID    uint64 `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
