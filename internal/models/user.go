package models

import "time"

const (
	RoleCollector  = "collector"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Name         string    `json:"name"`
	ShopID       *int64    `json:"shop_id,omitempty"`
	IsBlocked    bool      `json:"is_blocked"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor is the authenticated identity attached to inbound commands.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ShopID   int64  `json:"shop_id"`
}

// IsSupervisor reports whether the actor may override bookings it does
// not own.
func (a Actor) IsSupervisor() bool {
	return a.Role == RoleSupervisor || a.Role == RoleAdmin
}
