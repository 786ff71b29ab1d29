package models

import "time"

type Shop struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsBlocked bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
}
