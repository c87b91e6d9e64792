package models

import "time"

// Quote is a request for bulk or custom order pricing
type Quote struct {
	ID              uint64
	Name            string
	Email           string
	Phone           string
	ProductInterest string
	// Quantity is 0 when customer did not specify it
	Quantity  int
	Details   string
	CreatedAt time.Time
}
