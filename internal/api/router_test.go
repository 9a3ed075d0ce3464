package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/openwheels/openwheels-be/internal/models"
	"github.com/openwheels/openwheels-be/internal/monitoring"
)

// pngHeader is enough of a PNG for content sniffing to accept it.
var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func TestSignupAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	sess := env.signup(t, "Anna")
	if len(sess.Token) != 40 {
		t.Fatalf("token length = %d, want 40", len(sess.Token))
	}
	if sess.User.Username != "anna" {
		t.Fatalf("username not normalized in response: %q", sess.User.Username)
	}

	resp, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "anna",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "password") {
		t.Fatalf("login response leaks password material: %s", body)
	}

	var again struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &again); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if again.Token != sess.Token {
		t.Fatalf("login minted a different token than signup")
	}
}

func TestSignupFailureIsUniform(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "anna")

	for _, payload := range []map[string]string{
		{"username": "anna", "password": "password123"},
		{"username": "ab", "password": "password123"},
		{"username": "maria", "password": "short"},
	} {
		resp, body := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("signup %v: status = %d, want 400", payload, resp.StatusCode)
		}
		if msg := errorMessage(t, body); msg != "Signup failed!" {
			t.Fatalf("signup %v: message = %q, want %q", payload, msg, "Signup failed!")
		}
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "anna")

	resp, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "anna"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing password: status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, body); msg != "Both username and password are required!" {
		t.Fatalf("missing password: message = %q", msg)
	}

	// Unknown user and wrong password answer identically.
	for _, payload := range []map[string]string{
		{"username": "nobody", "password": "password123"},
		{"username": "anna", "password": "wrongpass123"},
	} {
		resp, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", payload)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login %v: status = %d, want 401", payload, resp.StatusCode)
		}
		if msg := errorMessage(t, body); msg != "Invalid username or password!" {
			t.Fatalf("login %v: message = %q", payload, msg)
		}
	}
}

func TestMutationsRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "anna")
	v := env.listVehicle(t, sess.Token, "Toyota", "Camry", 12000)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/vehicles"},
		{http.MethodPut, "/api/v1/vehicles/" + v.ID},
		{http.MethodDelete, "/api/v1/vehicles/" + v.ID},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPut, "/api/v1/users/" + sess.User.ID},
		{http.MethodDelete, "/api/v1/users/" + sess.User.ID},
	}
	for _, tc := range cases {
		resp, _ := env.do(t, tc.method, tc.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s anonymous: status = %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
		resp, _ = env.do(t, tc.method, tc.path, "not-a-real-token", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s bad token: status = %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestNotOwnerMutationsAnswer405(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	lucas := env.signup(t, "lucas")
	v := env.listVehicle(t, anna.Token, "Toyota", "Camry", 12000)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/api/v1/vehicles/" + v.ID, map[string]string{"color": "Green"}},
		{http.MethodDelete, "/api/v1/vehicles/" + v.ID, nil},
		{http.MethodPut, "/api/v1/users/" + anna.User.ID, map[string]string{"firstName": "X"}},
		{http.MethodDelete, "/api/v1/users/" + anna.User.ID, nil},
	}
	for _, tc := range cases {
		resp, body := env.do(t, tc.method, tc.path, lucas.Token, tc.body)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s as non-owner: status = %d, want 405", tc.method, tc.path, resp.StatusCode)
		}
		if msg := errorMessage(t, body); msg != "Not allowed!" {
			t.Fatalf("%s %s: message = %q, want %q", tc.method, tc.path, msg, "Not allowed!")
		}
	}
}

func TestVehicleOwnerFieldImmutable(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	v := env.listVehicle(t, anna.Token, "Toyota", "Camry", 12000)

	for _, payload := range []map[string]any{
		{"owner": anna.User.ID, "color": "Green"},
		{"owner": nil, "color": "Green"},
	} {
		resp, body := env.do(t, http.MethodPut, "/api/v1/vehicles/"+v.ID, anna.Token, payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("owner-key update %v: status = %d, want 400", payload, resp.StatusCode)
		}
		if msg := errorMessage(t, body); msg != "Owner field cannot be updated." {
			t.Fatalf("owner-key update %v: message = %q", payload, msg)
		}
	}
}

func TestVehicleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	v := env.listVehicle(t, anna.Token, "toyota", "camry", 12000)

	if v.Make != "TOYOTA" || v.Model != "CAMRY" {
		t.Fatalf("spec fields not uppercased: %+v", v)
	}
	if v.OwnerID != anna.User.ID {
		t.Fatalf("owner = %q, want requester", v.OwnerID)
	}

	// The catalog is publicly readable.
	resp, body := env.do(t, http.MethodGet, "/api/v1/vehicles/"+v.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public detail read: status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/vehicles", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public list read: status = %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPut, "/api/v1/vehicles/"+v.ID, anna.Token, map[string]any{
		"color": "green",
		"price": 11500,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", resp.StatusCode, body)
	}
	var updated models.Vehicle
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decoding updated vehicle: %v", err)
	}
	if updated.Color != "GREEN" || updated.Price != 11500 {
		t.Fatalf("update not applied: %+v", updated)
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/vehicles/"+v.ID, anna.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/vehicles/"+v.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("read after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	lucas := env.signup(t, "lucas")

	// Any authenticated account can read the directory.
	resp, body := env.do(t, http.MethodGet, "/api/v1/users", lucas.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users: status = %d", resp.StatusCode)
	}
	var users []models.User
	if err := json.Unmarshal(body, &users); err != nil {
		t.Fatalf("decoding users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if strings.Contains(string(body), "password") {
		t.Fatalf("user listing leaks password material: %s", body)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/"+anna.User.ID, lucas.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read other account: status = %d, want 200", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/missing", lucas.Token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("read unknown account: status = %d, want 404", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPut, "/api/v1/users/"+anna.User.ID, anna.Token, map[string]string{
		"firstName": "Anna",
		"lastName":  "Schmidt",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("self update: status = %d, body %s", resp.StatusCode, body)
	}
	var updated models.User
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decoding updated user: %v", err)
	}
	if updated.FirstName != "Anna" || updated.LastName != "Schmidt" {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestAccountDeleteCascadesAndRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	v := env.listVehicle(t, anna.Token, "Toyota", "Camry", 12000)

	resp, _ := env.do(t, http.MethodDelete, "/api/v1/users/"+anna.User.ID, anna.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("account delete: status = %d, want 204", resp.StatusCode)
	}

	// The vehicle went with the account.
	resp, _ = env.do(t, http.MethodGet, "/api/v1/vehicles/"+v.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("vehicle survived account delete: status = %d", resp.StatusCode)
	}

	// The token no longer authenticates.
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users", anna.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token still accepted: status = %d", resp.StatusCode)
	}
}

func TestSearchEndpoints(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	env.listVehicle(t, anna.Token, "Toyota", "Camry", 12000)
	env.listVehicle(t, anna.Token, "Toyota", "Corolla", 18000)
	env.listVehicle(t, anna.Token, "Honda", "Civic", 15000)

	resp, body := env.do(t, http.MethodGet, "/api/v1/vehicles/search?make=toyota", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: status = %d", resp.StatusCode)
	}
	var results []models.Vehicle
	if err := json.Unmarshal(body, &results); err != nil {
		t.Fatalf("decoding search results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 Toyotas, got %d", len(results))
	}
	if results[0].Price > results[1].Price {
		t.Fatalf("results not ascending by price: %v, %v", results[0].Price, results[1].Price)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/vehicles/search?min_price=abc", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad min_price: status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, body); msg != "min_price must be a number" {
		t.Fatalf("bad min_price: message = %q", msg)
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/vehicles/makes", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("makes: status = %d", resp.StatusCode)
	}
	var makes []string
	if err := json.Unmarshal(body, &makes); err != nil {
		t.Fatalf("decoding makes: %v", err)
	}
	if len(makes) != 2 || makes[0] != "HONDA" || makes[1] != "TOYOTA" {
		t.Fatalf("makes = %v, want [HONDA TOYOTA]", makes)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/vehicles/makes/toyota/models", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("models for make: status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/vehicles/makes/lada/models", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("models for unknown make: status = %d, want 404", resp.StatusCode)
	}
}

func TestImageUploadPipeline(t *testing.T) {
	env := newTestEnv(t)
	anna := env.signup(t, "anna")
	lucas := env.signup(t, "lucas")
	v := env.listVehicle(t, anna.Token, "Toyota", "Camry", 12000)

	upload := func(token string, content []byte) (*http.Response, []byte) {
		payload, contentType := multipartImage(t, content)
		req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/vehicles/"+v.ID+"/images", payload)
		if err != nil {
			t.Fatalf("building upload request: %v", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := env.server.Client().Do(req)
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("reading upload response: %v", err)
		}
		return resp, body
	}

	resp, body := upload(anna.Token, pngHeader)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status = %d, body %s", resp.StatusCode, body)
	}
	var img models.VehicleImage
	if err := json.Unmarshal(body, &img); err != nil {
		t.Fatalf("decoding image: %v", err)
	}

	// Non-image payloads are rejected by the sniffer.
	resp, body = upload(anna.Token, []byte("just some text"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-image upload: status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, body); msg != "Uploaded file must be an image" {
		t.Fatalf("non-image upload: message = %q", msg)
	}

	// Only the vehicle owner may upload or remove images.
	resp, _ = upload(lucas.Token, pngHeader)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("non-owner upload: status = %d, want 405", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/images/"+img.ID, lucas.Token, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("non-owner image delete: status = %d, want 405", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/images/"+img.ID, anna.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("owner image delete: status = %d, want 204", resp.StatusCode)
	}
}

func TestEventsAndStatusArePublic(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "anna")

	resp, body := env.do(t, http.MethodGet, "/api/v1/events", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events: status = %d", resp.StatusCode)
	}
	var events []models.Event
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatalf("decoding events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected the signup event to be recorded")
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: status = %d", resp.StatusCode)
	}
	var snap monitoring.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decoding status snapshot: %v", err)
	}
}
