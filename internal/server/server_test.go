package server

import (
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/FaRaZ-32729/mushabaBackend/internal/config"
	"github.com/FaRaZ-32729/mushabaBackend/internal/logger"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "secret",
		ServerPort:      ":0",
		CacheTTLMs:      120000,
		SweepIntervalMs: 15000,
		HistoryLength:   5,
	}
}

func TestHealthRoute(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	s := NewServer(testConfig(), mock, nil, logger.New("error"))

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	s := NewServer(testConfig(), mock, nil, logger.New("error"))

	for _, path := range []string{"/locations/memory", "/waypoints/connections/c1/waypoints"} {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != 401 {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}
