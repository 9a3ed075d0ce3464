package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/models"
	"github.com/openwheels/openwheels-be/internal/storage"
)

// VehicleServiceProvider defines the interface for catalog services.
type VehicleServiceProvider interface {
	GetVehicleByID(id string) (models.Vehicle, error)
	GetAllVehicles() ([]models.Vehicle, error)
	CreateVehicle(requester *auth.Identity, in VehicleCreate) (models.Vehicle, error)
	UpdateVehicle(requester *auth.Identity, id string, in VehicleUpdate) (models.Vehicle, error)
	DeleteVehicle(requester *auth.Identity, id string) error
	AddImage(requester *auth.Identity, vehicleID, ext string, r io.Reader) (models.VehicleImage, error)
	DeleteImage(requester *auth.Identity, imageID string) error
}

// VehicleCreate carries the fields accepted when listing a vehicle. The
// numeric fields are pointers so a missing field is distinguishable from a
// zero one.
type VehicleCreate struct {
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         *int     `json:"year"`
	Price        *float64 `json:"price"`
	Mileage      *int     `json:"mileage"`
	Color        string   `json:"color"`
	FuelType     string   `json:"fuelType"`
	Transmission string   `json:"transmission"`
	Description  string   `json:"description"`
}

// VehicleUpdate carries a partial vehicle update. The owner reference is
// immutable after creation, so any payload carrying an owner key is
// rejected, whatever its value.
type VehicleUpdate struct {
	Make         *string  `json:"make"`
	Model        *string  `json:"model"`
	Year         *int     `json:"year"`
	Price        *float64 `json:"price"`
	Mileage      *int     `json:"mileage"`
	Color        *string  `json:"color"`
	FuelType     *string  `json:"fuelType"`
	Transmission *string  `json:"transmission"`
	Description  *string  `json:"description"`

	// ownerPresent records whether the payload carried an owner key at all.
	// A pointer field cannot capture this: json null decodes to nil and the
	// key's presence is lost.
	ownerPresent bool
}

// UnmarshalJSON decodes the update and records owner-key presence, since a
// JSON null owner is as forbidden as any other value.
func (u *VehicleUpdate) UnmarshalJSON(data []byte) error {
	type plain VehicleUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*u = VehicleUpdate(p)
	_, u.ownerPresent = keys["owner"]
	return nil
}

// VehicleService provides business logic for the vehicle catalog.
type VehicleService struct {
	db    *sql.DB
	blobs storage.BlobStore
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(db *sql.DB, blobs storage.BlobStore) *VehicleService {
	return &VehicleService{db: db, blobs: blobs}
}

// uppercaseSpecFields folds the fixed list of vehicle string fields to
// uppercase before persistence, so comparisons downstream are
// case-insensitive by construction.
func uppercaseSpecFields(v *models.Vehicle) {
	v.Make = strings.ToUpper(v.Make)
	v.Model = strings.ToUpper(v.Model)
	v.Color = strings.ToUpper(v.Color)
	v.FuelType = strings.ToUpper(v.FuelType)
	v.Transmission = strings.ToUpper(v.Transmission)
}

// GetVehicleByID retrieves a vehicle with its nested image list.
func (s *VehicleService) GetVehicleByID(id string) (models.Vehicle, error) {
	vehicle, err := getVehicle(s.db, id)
	if err != nil {
		return models.Vehicle{}, err
	}
	images, err := s.imagesForVehicle(id)
	if err != nil {
		return models.Vehicle{}, err
	}
	vehicle.Images = images
	return vehicle, nil
}

func getVehicle(q dbtx, id string) (models.Vehicle, error) {
	var v models.Vehicle
	row := q.QueryRow(
		"SELECT id, owner_id, make, model, year, price, mileage, color, fuel_type, transmission, description, created_at FROM vehicles WHERE id = ?",
		id,
	)
	err := row.Scan(&v.ID, &v.OwnerID, &v.Make, &v.Model, &v.Year, &v.Price, &v.Mileage, &v.Color, &v.FuelType, &v.Transmission, &v.Description, &v.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Vehicle{}, apperror.NewNotFound("Vehicle not found")
		}
		return models.Vehicle{}, apperror.NewInternal("Error loading vehicle", err)
	}
	return v, nil
}

// GetAllVehicles retrieves every vehicle in storage order.
func (s *VehicleService) GetAllVehicles() ([]models.Vehicle, error) {
	return scanVehicles(s.db.Query(
		"SELECT id, owner_id, make, model, year, price, mileage, color, fuel_type, transmission, description, created_at FROM vehicles ORDER BY created_at",
	))
}

func scanVehicles(rows *sql.Rows, err error) ([]models.Vehicle, error) {
	if err != nil {
		return nil, apperror.NewInternal("Error listing vehicles", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Make, &v.Model, &v.Year, &v.Price, &v.Mileage, &v.Color, &v.FuelType, &v.Transmission, &v.Description, &v.CreatedAt); err != nil {
			return nil, apperror.NewInternal("Error scanning vehicle", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func validateVehicleCreate(in VehicleCreate) error {
	var missing []string
	if in.Make == "" {
		missing = append(missing, "make")
	}
	if in.Model == "" {
		missing = append(missing, "model")
	}
	if in.Year == nil {
		missing = append(missing, "year")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if in.Mileage == nil {
		missing = append(missing, "mileage")
	}
	if in.Color == "" {
		missing = append(missing, "color")
	}
	if in.FuelType == "" {
		missing = append(missing, "fuelType")
	}
	if in.Transmission == "" {
		missing = append(missing, "transmission")
	}
	if len(missing) > 0 {
		return apperror.NewValidation("Missing required fields: " + strings.Join(missing, ", "))
	}
	if *in.Year <= 0 {
		return apperror.NewValidation("Year must be a positive integer.")
	}
	if *in.Price < 0 {
		return apperror.NewValidation("Price must not be negative.")
	}
	if *in.Mileage < 0 {
		return apperror.NewValidation("Mileage must not be negative.")
	}
	return nil
}

// CreateVehicle lists a new vehicle. The owner is always the authenticated
// requester; any owner value in the input is ignored.
func (s *VehicleService) CreateVehicle(requester *auth.Identity, in VehicleCreate) (models.Vehicle, error) {
	if requester == nil {
		return models.Vehicle{}, apperror.NewUnauthenticated("Authentication required")
	}
	if err := validateVehicleCreate(in); err != nil {
		return models.Vehicle{}, err
	}

	v := models.Vehicle{
		ID:           uuid.New().String(),
		OwnerID:      requester.ID,
		Make:         in.Make,
		Model:        in.Model,
		Year:         *in.Year,
		Price:        *in.Price,
		Mileage:      *in.Mileage,
		Color:        in.Color,
		FuelType:     in.FuelType,
		Transmission: in.Transmission,
		Description:  in.Description,
	}
	uppercaseSpecFields(&v)

	_, err := s.db.Exec(
		"INSERT INTO vehicles(id, owner_id, make, model, year, price, mileage, color, fuel_type, transmission, description) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		v.ID, v.OwnerID, v.Make, v.Model, v.Year, v.Price, v.Mileage, v.Color, v.FuelType, v.Transmission, v.Description,
	)
	if err != nil {
		return models.Vehicle{}, apperror.NewInternal("Error creating vehicle", err)
	}
	return getVehicle(s.db, v.ID)
}

// UpdateVehicle applies a partial update to a vehicle. Only the owner may
// update it, and the owner reference itself can never be part of the
// payload.
func (s *VehicleService) UpdateVehicle(requester *auth.Identity, id string, in VehicleUpdate) (models.Vehicle, error) {
	vehicle, err := getVehicle(s.db, id)
	if err != nil {
		return models.Vehicle{}, err
	}
	if err := ownershipErr(auth.Decide(requester, vehicle.OwnerID, false)); err != nil {
		return models.Vehicle{}, err
	}
	if in.ownerPresent {
		return models.Vehicle{}, apperror.NewValidation("Owner field cannot be updated.")
	}
	if in.Year != nil && *in.Year <= 0 {
		return models.Vehicle{}, apperror.NewValidation("Year must be a positive integer.")
	}
	if in.Price != nil && *in.Price < 0 {
		return models.Vehicle{}, apperror.NewValidation("Price must not be negative.")
	}
	if in.Mileage != nil && *in.Mileage < 0 {
		return models.Vehicle{}, apperror.NewValidation("Mileage must not be negative.")
	}

	applyVehicleUpdate(&vehicle, in)
	uppercaseSpecFields(&vehicle)

	_, err = s.db.Exec(
		"UPDATE vehicles SET make = ?, model = ?, year = ?, price = ?, mileage = ?, color = ?, fuel_type = ?, transmission = ?, description = ? WHERE id = ?",
		vehicle.Make, vehicle.Model, vehicle.Year, vehicle.Price, vehicle.Mileage, vehicle.Color, vehicle.FuelType, vehicle.Transmission, vehicle.Description, id,
	)
	if err != nil {
		return models.Vehicle{}, apperror.NewInternal("Error updating vehicle", err)
	}
	return s.GetVehicleByID(id)
}

func applyVehicleUpdate(v *models.Vehicle, in VehicleUpdate) {
	if in.Make != nil {
		v.Make = *in.Make
	}
	if in.Model != nil {
		v.Model = *in.Model
	}
	if in.Year != nil {
		v.Year = *in.Year
	}
	if in.Price != nil {
		v.Price = *in.Price
	}
	if in.Mileage != nil {
		v.Mileage = *in.Mileage
	}
	if in.Color != nil {
		v.Color = *in.Color
	}
	if in.FuelType != nil {
		v.FuelType = *in.FuelType
	}
	if in.Transmission != nil {
		v.Transmission = *in.Transmission
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
}

// DeleteVehicle removes a vehicle; the store cascades its image rows and the
// blobs are removed afterwards.
func (s *VehicleService) DeleteVehicle(requester *auth.Identity, id string) error {
	vehicle, err := getVehicle(s.db, id)
	if err != nil {
		return err
	}
	if err := ownershipErr(auth.Decide(requester, vehicle.OwnerID, false)); err != nil {
		return err
	}

	images, err := s.imagesForVehicle(id)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec("DELETE FROM vehicles WHERE id = ?", id); err != nil {
		return apperror.NewInternal("Error deleting vehicle", err)
	}

	for _, img := range images {
		if err := s.blobs.Remove(img.BlobRef); err != nil {
			log.Warn().Err(err).Str("blob_ref", img.BlobRef).Msg("Failed to remove image blob for deleted vehicle")
		}
	}
	return nil
}

// AddImage attaches an uploaded image to a vehicle. The cap is checked
// before the blob is written so a rejected upload leaves nothing on disk.
func (s *VehicleService) AddImage(requester *auth.Identity, vehicleID, ext string, r io.Reader) (models.VehicleImage, error) {
	vehicle, err := getVehicle(s.db, vehicleID)
	if err != nil {
		return models.VehicleImage{}, err
	}
	if err := ownershipErr(auth.Decide(requester, vehicle.OwnerID, false)); err != nil {
		return models.VehicleImage{}, err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM vehicle_images WHERE vehicle_id = ?", vehicleID).Scan(&count); err != nil {
		return models.VehicleImage{}, apperror.NewInternal("Error counting images", err)
	}
	if count >= models.MaxImagesPerVehicle {
		return models.VehicleImage{}, apperror.NewValidation(
			fmt.Sprintf("A vehicle can have a maximum of %d images.", models.MaxImagesPerVehicle),
		)
	}

	ref, err := s.blobs.Save(vehicleID, ext, r)
	if err != nil {
		return models.VehicleImage{}, apperror.NewInternal("Error storing image", err)
	}

	img := models.VehicleImage{
		ID:        uuid.New().String(),
		VehicleID: vehicleID,
		BlobRef:   ref,
	}
	if _, err := s.db.Exec("INSERT INTO vehicle_images(id, vehicle_id, blob_ref) VALUES(?, ?, ?)", img.ID, img.VehicleID, img.BlobRef); err != nil {
		if rmErr := s.blobs.Remove(ref); rmErr != nil {
			log.Warn().Err(rmErr).Str("blob_ref", ref).Msg("Failed to remove orphaned image blob")
		}
		return models.VehicleImage{}, apperror.NewInternal("Error saving image", err)
	}
	return s.getImage(img.ID)
}

// DeleteImage removes an image. Authorization resolves through the owning
// vehicle.
func (s *VehicleService) DeleteImage(requester *auth.Identity, imageID string) error {
	img, err := s.getImage(imageID)
	if err != nil {
		return err
	}
	vehicle, err := getVehicle(s.db, img.VehicleID)
	if err != nil {
		return err
	}
	if err := ownershipErr(auth.Decide(requester, vehicle.OwnerID, false)); err != nil {
		return err
	}

	if _, err := s.db.Exec("DELETE FROM vehicle_images WHERE id = ?", imageID); err != nil {
		return apperror.NewInternal("Error deleting image", err)
	}
	if err := s.blobs.Remove(img.BlobRef); err != nil {
		log.Warn().Err(err).Str("blob_ref", img.BlobRef).Msg("Failed to remove deleted image blob")
	}
	return nil
}

func (s *VehicleService) getImage(id string) (models.VehicleImage, error) {
	var img models.VehicleImage
	row := s.db.QueryRow("SELECT id, vehicle_id, blob_ref, created_at FROM vehicle_images WHERE id = ?", id)
	err := row.Scan(&img.ID, &img.VehicleID, &img.BlobRef, &img.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.VehicleImage{}, apperror.NewNotFound("Image not found")
		}
		return models.VehicleImage{}, apperror.NewInternal("Error loading image", err)
	}
	return img, nil
}

func (s *VehicleService) imagesForVehicle(vehicleID string) ([]models.VehicleImage, error) {
	rows, err := s.db.Query("SELECT id, vehicle_id, blob_ref, created_at FROM vehicle_images WHERE vehicle_id = ? ORDER BY created_at", vehicleID)
	if err != nil {
		return nil, apperror.NewInternal("Error listing images", err)
	}
	defer rows.Close()

	var images []models.VehicleImage
	for rows.Next() {
		var img models.VehicleImage
		if err := rows.Scan(&img.ID, &img.VehicleID, &img.BlobRef, &img.CreatedAt); err != nil {
			return nil, apperror.NewInternal("Error scanning image", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
