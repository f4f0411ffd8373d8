package model

import "time"

// User represents a platform user
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`   // "admin" or "user"
	Status    string    `json:"status"` // "active" or "inactive"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRole constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserStatus constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive checks if user is active
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Outcome override constants for flash trade settlement
const (
	OutcomeDefault   = ""     // platform default win rate applies
	OutcomeForceWin  = "win"  // every expired trade settles as won
	OutcomeForceLoss = "loss" // every expired trade settles as lost
)

// OutcomePolicy governs how a user's expired flash trades are resolved.
// Mutated only through admin tooling; the settlement scheduler treats it
// as read-only input.
type OutcomePolicy struct {
	UserID   string   `json:"user_id"`
	Override string   `json:"override"`           // "", "win" or "loss"
	WinRate  *float64 `json:"win_rate,omitempty"` // percent, nil = platform default
}

// UserSnapshot is the payload pushed on the balance channel after auth
// and after any balance-affecting event.
type UserSnapshot struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	Balance  float64 `json:"balance"`
}
