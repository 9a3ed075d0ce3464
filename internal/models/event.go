package models

import "time"

// Event represents a loggable marketplace action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "vehicle.create", "user.signup"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	VehicleID *string   `json:"vehicleId,omitempty"` // Nullable for account-level events
	CreatedAt time.Time `json:"createdAt"`
}
