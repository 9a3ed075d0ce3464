// Package seed loads a demo data set: four accounts and their vehicle
// listings. It runs through the regular services, so seeded rows follow the
// same normalization as API writes.
package seed

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/models"
	"github.com/openwheels/openwheels-be/internal/services"
)

type seedVehicle struct {
	owner        int // index into the seeded users
	makeName     string
	model        string
	year         int
	price        float64
	mileage      int
	color        string
	fuelType     string
	transmission string
}

var seedUsers = []services.UserCreate{
	{Username: "anna_müller", Password: "password1", FirstName: "Anna", LastName: "Müller", Email: "anna.mueller@fake.ch"},
	{Username: "lucas_meier", Password: "password2", FirstName: "Lucas", LastName: "Meier", Email: "lucas.meier@fake.ch"},
	{Username: "sophie_bernhard", Password: "password3", FirstName: "Sophie", LastName: "Bernhard", Email: "sophie.bernhard@fake.ch"},
	{Username: "nicolas_schneider", Password: "password4", FirstName: "Nicolas", LastName: "Schneider", Email: "nicolas.schneider@fake.ch"},
}

var seedVehicles = []seedVehicle{
	{0, "Toyota", "Camry", 2015, 12000, 80000, "Red", "Petrol", "Automatic"},
	{3, "Toyota", "Corolla", 2020, 18000, 30000, "Blue", "Hybrid", "Manual"},
	{1, "Honda", "Civic", 2018, 14000, 60000, "Blue", "Petrol", "Manual"},
	{2, "Tesla", "Model S", 2020, 60000, 20000, "Black", "Electric", "Automatic"},
	{2, "Mercedes-Benz", "C-Class", 2018, 25000, 45000, "Black", "Diesel", "Automatic"},
	{0, "Mercedes-Benz", "E-Class", 2021, 45000, 15000, "White", "Petrol", "Automatic"},
	{1, "BMW", "3 Series", 2019, 35000, 38000, "Grey", "Petrol", "Automatic"},
	{3, "Volkswagen", "Golf 7", 2017, 20000, 50000, "White", "Petrol", "Manual"},
	{2, "Volkswagen", "Golf 8", 2021, 32000, 15000, "Blue", "Hybrid", "Automatic"},
	{3, "Audi", "A4", 2016, 28000, 60000, "Silver", "Diesel", "Manual"},
}

// Run populates the database with the demo users and vehicles.
func Run(users services.UserServiceProvider, vehicles services.VehicleServiceProvider) error {
	created := make([]models.User, 0, len(seedUsers))
	for _, in := range seedUsers {
		user, err := users.CreateUser(in)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", in.Username, err)
		}
		created = append(created, user)
	}

	for _, sv := range seedVehicles {
		owner := created[sv.owner]
		year, price, mileage := sv.year, sv.price, sv.mileage
		vehicle, err := vehicles.CreateVehicle(
			&auth.Identity{ID: owner.ID, Username: owner.Username},
			services.VehicleCreate{
				Make:         sv.makeName,
				Model:        sv.model,
				Year:         &year,
				Price:        &price,
				Mileage:      &mileage,
				Color:        sv.color,
				FuelType:     sv.fuelType,
				Transmission: sv.transmission,
			},
		)
		if err != nil {
			return fmt.Errorf("seed vehicle %s %s: %w", sv.makeName, sv.model, err)
		}
		log.Info().Str("vehicle_id", vehicle.ID).Msgf("Seeded %s %s", vehicle.Make, vehicle.Model)
	}

	log.Info().Msg("Database seeded successfully!")
	return nil
}
