package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer holds contact and delivery details for a buyer
type Customer struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Phone         string    `json:"phone" db:"phone"`
	Email         string    `json:"email" db:"email"`
	Address       string    `json:"address" db:"address"`
	LocationNotes string    `json:"location_notes" db:"location_notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
