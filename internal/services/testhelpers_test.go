package services

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/database"
	"github.com/openwheels/openwheels-be/internal/models"
)

var testDBCounter atomic.Int64

// newTestDB opens a fresh in-memory database with the full schema and
// foreign keys enabled. Shared cache keeps one database visible across the
// pool's connections.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", testDBCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// memBlobs is an in-memory BlobStore recording saves and removals.
type memBlobs struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{saved: make(map[string][]byte)}
}

func (m *memBlobs) Save(vehicleID, ext string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	ref := filepath.Join(vehicleID, uuid.New().String()+"."+ext)
	m.mu.Lock()
	m.saved[ref] = data
	m.mu.Unlock()
	return ref, nil
}

func (m *memBlobs) Remove(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, ref)
	m.removed = append(m.removed, ref)
	return nil
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func createTestUser(t *testing.T, users *UserService, username string) models.User {
	t.Helper()
	user, err := users.CreateUser(UserCreate{
		Username: username,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return user
}

func identityFor(user models.User) *auth.Identity {
	return &auth.Identity{ID: user.ID, Username: user.Username, IsSuperuser: user.IsSuperuser}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func createTestVehicle(t *testing.T, vehicles *VehicleService, owner models.User, makeName, model string, year int, price float64) models.Vehicle {
	t.Helper()
	v, err := vehicles.CreateVehicle(identityFor(owner), VehicleCreate{
		Make:         makeName,
		Model:        model,
		Year:         intPtr(year),
		Price:        floatPtr(price),
		Mileage:      intPtr(50000),
		Color:        "Black",
		FuelType:     "Petrol",
		Transmission: "Manual",
	})
	if err != nil {
		t.Fatalf("CreateVehicle(%s %s): %v", makeName, model, err)
	}
	return v
}
