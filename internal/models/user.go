package models

import "time"

// User represents a marketplace account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"` // Always stored lowercase
	PasswordHash string    `json:"-"`        // Never expose this to the client
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	IsSuperuser  bool      `json:"isSuperuser"`
	CreatedAt    time.Time `json:"createdAt"`
}
