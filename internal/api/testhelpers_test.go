package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/openwheels/openwheels-be/internal/database"
	"github.com/openwheels/openwheels-be/internal/models"
	"github.com/openwheels/openwheels-be/internal/monitoring"
	"github.com/openwheels/openwheels-be/internal/services"
	"github.com/openwheels/openwheels-be/internal/storage"
	"github.com/openwheels/openwheels-be/internal/websocket"
)

var testDBCounter atomic.Int64

// testEnv is a fully wired API over an in-memory database.
type testEnv struct {
	server *httptest.Server
	db     *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:api_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", testDBCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	blobs, err := storage.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating blob store: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	eventSvc := services.NewEventService(db, hub)
	router := NewRouter(Deps{
		Hub:         hub,
		AuthService: services.NewAuthService(db),
		UserService: services.NewUserService(db, blobs),
		VehicleSvc:  services.NewVehicleService(db, blobs),
		SearchSvc:   services.NewSearchService(db),
		EventSvc:    eventSvc,
		StatUpdater: monitoring.NewStatUpdater(db, hub),
		CORSOrigin:  "http://localhost:3000",
	})

	server := httptest.NewServer(router)
	env := &testEnv{server: server, db: db}
	t.Cleanup(func() {
		server.Close()
		db.Close()
	})
	return env
}

// do runs one request against the test server. A non-empty token is sent as
// a bearer Authorization header; a non-nil body is JSON encoded.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, e.server.URL+path, payload)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return resp, data
}

// signup registers an account through the API and returns its session.
func (e *testEnv) signup(t *testing.T, username string) services.Session {
	t.Helper()

	resp, body := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": username,
		"password": "password123",
		"email":    username + "@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s: status %d, body %s", username, resp.StatusCode, body)
	}

	var sess services.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		t.Fatalf("decoding signup response: %v", err)
	}
	return sess
}

// listVehicle creates a vehicle through the API and returns it.
func (e *testEnv) listVehicle(t *testing.T, token, makeName, model string, price float64) models.Vehicle {
	t.Helper()

	resp, body := e.do(t, http.MethodPost, "/api/v1/vehicles", token, map[string]any{
		"make":         makeName,
		"model":        model,
		"year":         2020,
		"price":        price,
		"mileage":      50000,
		"color":        "Blue",
		"fuelType":     "Petrol",
		"transmission": "Manual",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("listing vehicle: status %d, body %s", resp.StatusCode, body)
	}

	var v models.Vehicle
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decoding vehicle: %v", err)
	}
	return v
}

// errorMessage pulls the message out of an {"error": ...} body.
func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decoding error body %q: %v", body, err)
	}
	return e.Error
}

// multipartImage builds a multipart body with one "image" file field.
func multipartImage(t *testing.T, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
