package models

import "time"

// Vehicle represents a listed vehicle. The owner reference is set once at
// creation and never changes afterwards.
type Vehicle struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner"`
	Make         string         `json:"make"` // stored uppercase, like all string specs below
	Model        string         `json:"model"`
	Year         int            `json:"year"`
	Price        float64        `json:"price"`
	Mileage      int            `json:"mileage"`
	Color        string         `json:"color"`
	FuelType     string         `json:"fuelType"`
	Transmission string         `json:"transmission"`
	Description  string         `json:"description"`
	Images       []VehicleImage `json:"images,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// VehicleImage is an uploaded photo attached to a vehicle. A vehicle holds
// at most MaxImagesPerVehicle of them.
type VehicleImage struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicleId"`
	BlobRef   string    `json:"blobRef"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaxImagesPerVehicle caps the number of images attached to one vehicle.
const MaxImagesPerVehicle = 10
