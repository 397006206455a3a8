package location

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func passthroughAuth(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func TestPingHandler(t *testing.T) {
	mock, svc, _, _ := newServiceMock(t)
	expectPersist(mock, "conn-1", "user-1")

	app := fiber.New()
	RegisterRoutes(app.Group("/locations"), svc, passthroughAuth("user-1"))

	body, _ := json.Marshal(map[string]interface{}{
		"connection_id": "conn-1",
		"latitude":      24.1,
		"longitude":     55.2,
	})
	req := httptest.NewRequest(http.MethodPost, "/locations/ping", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("ping status: %v %d", err, resp.StatusCode)
	}

	var res UpdateResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Persisted || res.Sample.UserID != "user-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPingHandlerValidation(t *testing.T) {
	_, svc, _, _ := newServiceMock(t)

	app := fiber.New()
	RegisterRoutes(app.Group("/locations"), svc, passthroughAuth("user-1"))

	cases := []map[string]interface{}{
		{"latitude": 24.1, "longitude": 55.2},                             // missing connection
		{"connection_id": "conn-1", "longitude": 55.2},                    // missing latitude
		{"connection_id": "conn-1", "latitude": 95.0, "longitude": 55.2},  // out of range
		{"connection_id": "conn-1", "latitude": 24.1, "longitude": 185.0}, // out of range
	}
	for i, body := range cases {
		payload, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/locations/ping", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
}

func TestGetUserLocationHandlerNotFound(t *testing.T) {
	mock, svc, _, _ := newServiceMock(t)

	mock.ExpectQuery(`SELECT user_id, latitude, longitude, floor, accuracy, speed, heading, online, recorded_at`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	app := fiber.New()
	RegisterRoutes(app.Group("/locations"), svc, passthroughAuth("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/locations/users/ghost", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMemoryStatusHandler(t *testing.T) {
	_, svc, _, _ := newServiceMock(t)
	svc.cache.Put("user-1", PositionSample{Online: true})

	app := fiber.New()
	RegisterRoutes(app.Group("/locations"), svc, passthroughAuth("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/locations/memory", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("memory status: %v", err)
	}

	var status MemoryStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.TotalCached != 1 || status.Active != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}
